package entity

import "time"

const (
	RequestPending             = "pending"
	RequestAcceptedByCreator   = "accepted_by_creator"
	RequestConfirmedByCustomer = "confirmed_by_customer"
	RequestDeclined            = "declined"
)

const (
	CurrencyUSD = "USD"
	CurrencyEGP = "EGP"
)

// ServiceRequest is a customer's ask for custom work from a creator.
// Created by the customer, accepted (with a deadline) by the creator,
// then confirmed by the customer. DeadlineUTC is non-nil exactly while the
// request is accepted or confirmed, and only ever changes through an
// accepted DeadlineProposal.
type ServiceRequest struct {
	ID             string     `json:"id" firestore:"id"`
	ConversationID string     `json:"conversation_id" firestore:"conversationId"`
	CreatorID      string     `json:"creator_id" firestore:"creatorId"`
	CustomerID     string     `json:"customer_id" firestore:"customerId"`
	Requirements   string     `json:"requirements" firestore:"requirements"`
	ProposedBudget *float64   `json:"proposed_budget,omitempty" firestore:"proposedBudget,omitempty"`
	Currency       string     `json:"currency" firestore:"currency"` // "USD", "EGP"
	Status         string     `json:"status" firestore:"status"`
	DeadlineUTC    *time.Time `json:"deadline_utc,omitempty" firestore:"deadlineUtc,omitempty"`
	CreatedAt      time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time  `json:"updated_at" firestore:"updatedAt"`
}

// Agreed reports whether the request has an agreed (or provisionally
// agreed) deadline, i.e. it is accepted or confirmed.
func (r *ServiceRequest) Agreed() bool {
	return r.Status == RequestAcceptedByCreator || r.Status == RequestConfirmedByCustomer
}
