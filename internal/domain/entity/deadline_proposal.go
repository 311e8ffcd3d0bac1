package entity

import "time"

const (
	ProposalPending  = "pending"
	ProposalAccepted = "accepted"
	ProposalDeclined = "declined"
)

const (
	RoleCreator  = "creator"
	RoleCustomer = "customer"
)

// DeadlineProposal is a renegotiation of an already-agreed deadline. Either
// party may propose; the counterpart must respond. At most one proposal per
// service request is pending at any time. Resolved proposals are retained
// forever for the audit history.
type DeadlineProposal struct {
	ID                  string     `json:"id" firestore:"id"`
	ServiceRequestID    string     `json:"service_request_id" firestore:"serviceRequestId"`
	ProposedDeadlineUTC time.Time  `json:"proposed_deadline_utc" firestore:"proposedDeadlineUtc"`
	Reason              string     `json:"reason,omitempty" firestore:"reason,omitempty"`
	Status              string     `json:"status" firestore:"status"` // "pending", "accepted", "declined"
	ProposedBy          string     `json:"proposed_by" firestore:"proposedBy"` // "creator", "customer"
	RespondedAt         *time.Time `json:"responded_at,omitempty" firestore:"respondedAt,omitempty"`
	CreatedAt           time.Time  `json:"created_at" firestore:"createdAt"`
}
