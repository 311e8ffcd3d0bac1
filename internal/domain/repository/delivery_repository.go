package repository

import (
	"context"

	"craftex/internal/domain/entity"
)

type DeliveryRepository interface {
	Create(ctx context.Context, delivery *entity.Delivery) error
	GetByID(ctx context.Context, id string) (*entity.Delivery, error)
	Update(ctx context.Context, delivery *entity.Delivery) error
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.Delivery, error)
	ListAwaitingByCustomer(ctx context.Context, customerID string) ([]*entity.Delivery, error)
}
