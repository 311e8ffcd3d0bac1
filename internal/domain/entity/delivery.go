package entity

import "time"

const (
	DeliveryAwaitingPurchase = "awaiting_purchase"
	DeliveryPurchased        = "purchased"
)

// Delivery tracks a produced deliverable against its service request.
// Status only ever advances awaiting_purchase -> purchased, promoted once
// the external purchase ledger confirms payment for (customerId, productId).
type Delivery struct {
	ID               string     `json:"id" firestore:"id"`
	ConversationID   string     `json:"conversation_id" firestore:"conversationId"`
	ServiceRequestID string     `json:"service_request_id" firestore:"serviceRequestId"`
	CustomerID       string     `json:"customer_id" firestore:"customerId"`
	ProductID        string     `json:"product_id" firestore:"productId"`
	Status           string     `json:"status" firestore:"status"` // "awaiting_purchase", "purchased"
	PurchasedAt      *time.Time `json:"purchased_at,omitempty" firestore:"purchasedAt,omitempty"`
	CreatedAt        time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt        time.Time  `json:"updated_at" firestore:"updatedAt"`
}
