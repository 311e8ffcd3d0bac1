package entity

import "time"

const (
	ConversationPending = "pending"
	ConversationActive  = "active"
	ConversationClosed  = "closed"
)

// Conversation is the single allowed channel between a creator and a
// customer. At most one non-closed conversation may exist per pair.
type Conversation struct {
	ID            string    `json:"id" firestore:"id"`
	CreatorID     string    `json:"creator_id" firestore:"creatorId"`
	CustomerID    string    `json:"customer_id" firestore:"customerId"`
	StartedBy     string    `json:"started_by" firestore:"startedBy"`
	Status        string    `json:"status" firestore:"status"` // "pending", "active", "closed"
	LastMessage   string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Participants returns both member ids, creator first.
func (c *Conversation) Participants() []string {
	return []string{c.CreatorID, c.CustomerID}
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID == c.CreatorID || userID == c.CustomerID
}

// Counterpart returns the other member's id, or "" for non-members.
func (c *Conversation) Counterpart(userID string) string {
	switch userID {
	case c.CreatorID:
		return c.CustomerID
	case c.CustomerID:
		return c.CreatorID
	}
	return ""
}
