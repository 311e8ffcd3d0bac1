package entity

import "time"

// Order is a row in the external purchase ledger. Consulted read-only
// during delivery reconciliation; this service never writes orders.
type Order struct {
	ID         string    `json:"id" firestore:"id"`
	CustomerID string    `json:"customer_id" firestore:"customerId"`
	ProductID  string    `json:"product_id" firestore:"productId"`
	Status     string    `json:"status" firestore:"status"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
