package repository

import (
	"context"

	"craftex/internal/domain/entity"
)

// OrderRepository is the read-only view onto the external purchase ledger.
// A NOT_FOUND error is the expected steady state for a product the customer
// has not bought yet, not a failure.
type OrderRepository interface {
	GetPurchasedProduct(ctx context.Context, customerID, productID string) (*entity.Order, error)
}
