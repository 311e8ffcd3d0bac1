package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"craftex/internal/domain/entity"
	"craftex/internal/domain/repository"
	"craftex/pkg/errors"
)

type firestoreDeliveryRepository struct {
	client *firestore.Client
}

func NewFirestoreDeliveryRepository(client *firestore.Client) repository.DeliveryRepository {
	return &firestoreDeliveryRepository{
		client: client,
	}
}

func (r *firestoreDeliveryRepository) Create(ctx context.Context, delivery *entity.Delivery) error {
	if delivery.ID == "" {
		delivery.ID = uuid.New().String()
	}

	now := time.Now()
	delivery.CreatedAt = now
	delivery.UpdatedAt = now

	_, err := r.client.Collection("deliveries").Doc(delivery.ID).Set(ctx, delivery)
	if err != nil {
		return errors.Internal("Failed to create delivery", err)
	}

	return nil
}

func (r *firestoreDeliveryRepository) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	doc, err := r.client.Collection("deliveries").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Delivery", nil)
		}
		return nil, errors.Internal("Failed to get delivery", err)
	}

	var delivery entity.Delivery
	if err := doc.DataTo(&delivery); err != nil {
		return nil, errors.Internal("Failed to parse delivery data", err)
	}

	return &delivery, nil
}

func (r *firestoreDeliveryRepository) Update(ctx context.Context, delivery *entity.Delivery) error {
	delivery.UpdatedAt = time.Now()

	_, err := r.client.Collection("deliveries").Doc(delivery.ID).Set(ctx, delivery)
	if err != nil {
		return errors.Internal("Failed to update delivery", err)
	}

	return nil
}

func (r *firestoreDeliveryRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Delivery, error) {
	query := r.client.Collection("deliveries").
		Where("conversationId", "==", conversationID).
		OrderBy("createdAt", firestore.Desc)

	return collectDeliveries(query.Documents(ctx))
}

func (r *firestoreDeliveryRepository) ListAwaitingByCustomer(ctx context.Context, customerID string) ([]*entity.Delivery, error) {
	query := r.client.Collection("deliveries").
		Where("customerId", "==", customerID).
		Where("status", "==", entity.DeliveryAwaitingPurchase)

	return collectDeliveries(query.Documents(ctx))
}

func collectDeliveries(iter *firestore.DocumentIterator) ([]*entity.Delivery, error) {
	var deliveries []*entity.Delivery
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate deliveries", err)
		}

		var delivery entity.Delivery
		if err := doc.DataTo(&delivery); err != nil {
			return nil, errors.Internal("Failed to parse delivery data", err)
		}

		deliveries = append(deliveries, &delivery)
	}

	return deliveries, nil
}
