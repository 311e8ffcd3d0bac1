package router

import (
	"craftex/internal/adapter/api/handler"
	"craftex/internal/adapter/api/middleware"

	"github.com/labstack/echo/v4"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	conversationHandler *handler.ConversationHandler,
	serviceRequestHandler *handler.ServiceRequestHandler,
	deliveryHandler *handler.DeliveryHandler,
	wsHandler *handler.WebSocketHandler,
) {
	SetupHealthRouter(e)
	SetupConversationRouter(e, conversationHandler, serviceRequestHandler, deliveryHandler, authMiddleware)
	SetupServiceRequestRouter(e, serviceRequestHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler)
}
