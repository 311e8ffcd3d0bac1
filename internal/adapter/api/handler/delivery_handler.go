package handler

import (
	"craftex/internal/usecase"
	"craftex/pkg/errors"
	"craftex/pkg/response"

	"github.com/labstack/echo/v4"
)

type DeliveryHandler struct {
	deliveryUseCase *usecase.DeliveryUseCase
}

func NewDeliveryHandler(deliveryUseCase *usecase.DeliveryUseCase) *DeliveryHandler {
	return &DeliveryHandler{
		deliveryUseCase: deliveryUseCase,
	}
}

type createDeliveryRequest struct {
	ServiceRequestID string `json:"service_request_id" validate:"required"`
	ProductID        string `json:"product_id" validate:"required"`
}

func (h *DeliveryHandler) CreateDelivery(c echo.Context) error {
	userID := c.Get("uid").(string)

	var req createDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	delivery, err := h.deliveryUseCase.CreateDelivery(c.Request().Context(), userID, usecase.CreateDeliveryInput{
		ServiceRequestID: req.ServiceRequestID,
		ProductID:        req.ProductID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, delivery)
}

func (h *DeliveryHandler) ListConversationDeliveries(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	deliveries, err := h.deliveryUseCase.ListConversationDeliveries(c.Request().Context(), userID, conversationID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, deliveries)
}

// CheckPurchase lets a client poll the purchase status on demand instead of
// waiting for the next reconciliation tick.
func (h *DeliveryHandler) CheckPurchase(c echo.Context) error {
	userID := c.Get("uid").(string)
	deliveryID := c.Param("deliveryId")

	if _, err := h.deliveryUseCase.GetDelivery(c.Request().Context(), userID, deliveryID); err != nil {
		return response.Error(c, err)
	}

	delivery, err := h.deliveryUseCase.CheckPurchase(c.Request().Context(), deliveryID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, delivery)
}
