package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"craftex/internal/domain/entity"
	"craftex/internal/domain/repository"
	"craftex/pkg/errors"
)

// firestoreOrderRepository reads the purchase ledger maintained by the
// checkout service. This service never writes to it.
type firestoreOrderRepository struct {
	client *firestore.Client
}

func NewFirestoreOrderRepository(client *firestore.Client) repository.OrderRepository {
	return &firestoreOrderRepository{
		client: client,
	}
}

func (r *firestoreOrderRepository) GetPurchasedProduct(ctx context.Context, customerID, productID string) (*entity.Order, error) {
	query := r.client.Collection("orders").
		Where("customerId", "==", customerID).
		Where("productId", "==", productID).
		Limit(1)

	iter := query.Documents(ctx)
	doc, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Order", nil)
		}
		return nil, errors.Internal("Failed to query purchase ledger", err)
	}

	var order entity.Order
	if err := doc.DataTo(&order); err != nil {
		return nil, errors.Internal("Failed to parse order data", err)
	}

	return &order, nil
}
