package router

import (
	"github.com/labstack/echo/v4"

	"craftex/internal/adapter/api/handler"
	"craftex/internal/adapter/api/middleware"
)

// SetupConversationRouter wires every conversation-scoped route: messaging,
// seen receipts, the service-request negotiation, and deliveries.
func SetupConversationRouter(
	e *echo.Echo,
	conversationHandler *handler.ConversationHandler,
	serviceRequestHandler *handler.ServiceRequestHandler,
	deliveryHandler *handler.DeliveryHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	group := e.Group("/v1/conversations")
	group.Use(authMiddleware.Authenticate)

	// Conversation management
	group.POST("", conversationHandler.CreateConversation)
	group.GET("", conversationHandler.GetUserConversations)
	group.GET("/:id", conversationHandler.GetConversationByID)
	group.DELETE("/:id", conversationHandler.DeleteConversation)

	// Messaging
	group.POST("/:id/messages", conversationHandler.SendMessage)
	group.GET("/:id/messages", conversationHandler.GetConversationMessages)
	group.PUT("/:id/messages/:messageId/seen", conversationHandler.MarkMessageSeen)

	// Service request negotiation
	group.POST("/:id/service-requests", serviceRequestHandler.CreateServiceRequest)
	group.GET("/:id/service-requests/:requestId", serviceRequestHandler.GetServiceRequest)
	group.PUT("/:id/service-requests/:requestId/accept", serviceRequestHandler.AcceptServiceRequest)
	group.PUT("/:id/service-requests/:requestId/confirm", serviceRequestHandler.ConfirmServiceRequest)
	group.DELETE("/:id/service-requests/:requestId", serviceRequestHandler.DeclineServiceRequest)

	// Deadline renegotiation
	group.POST("/:id/service-requests/:requestId/deadline-proposals", serviceRequestHandler.ProposeDeadline)
	group.PUT("/:id/service-requests/:requestId/deadline-proposals/:proposalId", serviceRequestHandler.RespondToDeadlineProposal)
	group.GET("/:id/service-requests/:requestId/deadline-proposals", serviceRequestHandler.GetDeadlineProposalHistory)

	// Deliveries
	group.POST("/:id/deliveries", deliveryHandler.CreateDelivery)
	group.GET("/:id/deliveries", deliveryHandler.ListConversationDeliveries)
	group.PUT("/:id/deliveries/:deliveryId/purchased", deliveryHandler.CheckPurchase)
}
