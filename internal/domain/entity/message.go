package entity

import "time"

// Message is immutable once created. SeenBy is the per-recipient seen
// receipt: append-only, recording the same reader twice is a no-op.
type Message struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	SenderID       string    `json:"sender_id" firestore:"senderId"`
	Body           string    `json:"body" firestore:"body"`
	SeenBy         []string  `json:"seen_by" firestore:"seenBy"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}

// SeenByUser reports whether userID has already seen the message.
func (m *Message) SeenByUser(userID string) bool {
	for _, id := range m.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}
