package usecase

import (
	"context"
	"time"

	"craftex/internal/domain/entity"
	"craftex/internal/domain/repository"
	"craftex/internal/infrastructure/keylock"
	ws "craftex/internal/infrastructure/websocket"
	"craftex/pkg/errors"
	"craftex/pkg/logger"
)

type DeliveryUseCase struct {
	deliveryRepo     repository.DeliveryRepository
	requestRepo      repository.ServiceRequestRepository
	orderRepo        repository.OrderRepository
	conversationRepo repository.ConversationRepository
	publisher        EventPublisher
	locks            *keylock.KeyLock
	now              func() time.Time
}

func NewDeliveryUseCase(
	deliveryRepo repository.DeliveryRepository,
	requestRepo repository.ServiceRequestRepository,
	orderRepo repository.OrderRepository,
	conversationRepo repository.ConversationRepository,
	publisher EventPublisher,
	locks *keylock.KeyLock,
) *DeliveryUseCase {
	return &DeliveryUseCase{
		deliveryRepo:     deliveryRepo,
		requestRepo:      requestRepo,
		orderRepo:        orderRepo,
		conversationRepo: conversationRepo,
		publisher:        publisher,
		locks:            locks,
		now:              time.Now,
	}
}

type CreateDeliveryInput struct {
	ServiceRequestID string
	ProductID        string
}

// CreateDelivery registers the creator's deliverable against an accepted or
// confirmed service request. The delivery starts awaiting_purchase and is
// promoted only once the purchase ledger confirms payment.
func (uc *DeliveryUseCase) CreateDelivery(ctx context.Context, userID string, input CreateDeliveryInput) (*entity.Delivery, error) {
	request, err := uc.requestRepo.GetByID(ctx, input.ServiceRequestID)
	if err != nil {
		return nil, err
	}
	if userID != request.CreatorID {
		return nil, errors.Forbidden("Only the creator may deliver for a service request", nil)
	}
	if !request.Agreed() {
		return nil, errors.StateConflict("Service request has not been accepted")
	}

	delivery := &entity.Delivery{
		ConversationID:   request.ConversationID,
		ServiceRequestID: request.ID,
		CustomerID:       request.CustomerID,
		ProductID:        input.ProductID,
		Status:           entity.DeliveryAwaitingPurchase,
	}
	if err := uc.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, err
	}

	uc.notify(delivery)
	return delivery, nil
}

func (uc *DeliveryUseCase) GetDelivery(ctx context.Context, userID, deliveryID string) (*entity.Delivery, error) {
	delivery, err := uc.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	request, err := uc.requestRepo.GetByID(ctx, delivery.ServiceRequestID)
	if err != nil {
		return nil, err
	}
	if userID != request.CreatorID && userID != request.CustomerID {
		return nil, errors.Forbidden("Only a participant may view the delivery", nil)
	}
	return delivery, nil
}

func (uc *DeliveryUseCase) ListConversationDeliveries(ctx context.Context, userID, conversationID string) ([]*entity.Delivery, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("Only a participant may list deliveries", nil)
	}
	return uc.deliveryRepo.ListByConversation(ctx, conversationID)
}

// MarkPurchased promotes a delivery to purchased. Promotion is monotonic:
// a delivery already purchased stays purchased and keeps its original
// purchase timestamp no matter how often the check repeats.
func (uc *DeliveryUseCase) MarkPurchased(ctx context.Context, deliveryID string) (*entity.Delivery, error) {
	uc.locks.Lock(deliveryID)
	defer uc.locks.Unlock(deliveryID)

	delivery, err := uc.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.Status == entity.DeliveryPurchased {
		return delivery, nil
	}

	purchasedAt := uc.now()
	delivery.Status = entity.DeliveryPurchased
	delivery.PurchasedAt = &purchasedAt
	if err := uc.deliveryRepo.Update(ctx, delivery); err != nil {
		return nil, err
	}

	logger.Info("Delivery %s promoted to purchased", delivery.ID)
	uc.notify(delivery)
	return delivery, nil
}

// CheckPurchase consults the purchase ledger for one delivery and promotes
// it on a hit. A missing order is the normal not-yet-bought state, not an
// error.
func (uc *DeliveryUseCase) CheckPurchase(ctx context.Context, deliveryID string) (*entity.Delivery, error) {
	delivery, err := uc.deliveryRepo.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.Status == entity.DeliveryPurchased {
		return delivery, nil
	}

	if _, err := uc.orderRepo.GetPurchasedProduct(ctx, delivery.CustomerID, delivery.ProductID); err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return delivery, nil
		}
		return nil, err
	}

	return uc.MarkPurchased(ctx, delivery.ID)
}

// SweepCustomer reconciles every awaiting delivery of one customer against
// the purchase ledger.
func (uc *DeliveryUseCase) SweepCustomer(ctx context.Context, customerID string) error {
	deliveries, err := uc.deliveryRepo.ListAwaitingByCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	for _, delivery := range deliveries {
		if _, err := uc.CheckPurchase(ctx, delivery.ID); err != nil {
			logger.Error("Purchase check failed for delivery %s: %v", delivery.ID, err)
		}
	}
	return nil
}

func (uc *DeliveryUseCase) notify(delivery *entity.Delivery) {
	event := ws.NewEvent(ws.EventConversationUpdated, delivery.ConversationID, ws.ConversationUpdatedData{
		ConversationID: delivery.ConversationID,
		Resource:       "delivery",
	})
	uc.publisher.SendToUser(delivery.CustomerID, event)
	uc.publisher.BroadcastToConversation(delivery.ConversationID, event, "")
}
