package countdown

import (
	"fmt"
	"time"
)

// Remaining maps a deadline to a human countdown label and an overdue flag,
// computed purely from the two timestamps. Callers re-invoke it on a fixed
// interval; no server round-trip is involved.
func Remaining(deadline, now time.Time) (string, bool) {
	d := deadline.Sub(now)
	if d < 0 {
		return fmt.Sprintf("overdue by %s", format(-d)), true
	}
	return format(d), false
}

func format(d time.Duration) string {
	d = d.Round(time.Second)

	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
