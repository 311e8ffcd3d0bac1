package router

import (
	"github.com/labstack/echo/v4"

	"craftex/internal/adapter/api/handler"
	"craftex/internal/adapter/api/middleware"
)

// SetupServiceRequestRouter wires the cross-conversation request listings
// and the pending-count badge.
func SetupServiceRequestRouter(e *echo.Echo, serviceRequestHandler *handler.ServiceRequestHandler, authMiddleware *middleware.AuthMiddleware) {
	group := e.Group("/v1/service-requests")
	group.Use(authMiddleware.Authenticate)

	group.GET("/creator", serviceRequestHandler.ListCreatorRequests)
	group.GET("/customer", serviceRequestHandler.ListCustomerRequests)
	group.GET("/pending-count", serviceRequestHandler.GetPendingCount)
}
