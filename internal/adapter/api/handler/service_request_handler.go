package handler

import (
	"time"

	"craftex/internal/domain/entity"
	"craftex/internal/usecase"
	"craftex/pkg/errors"
	"craftex/pkg/response"
	"craftex/pkg/utils"

	"github.com/labstack/echo/v4"
)

type ServiceRequestHandler struct {
	serviceRequestUseCase *usecase.ServiceRequestUseCase
}

func NewServiceRequestHandler(serviceRequestUseCase *usecase.ServiceRequestUseCase) *ServiceRequestHandler {
	return &ServiceRequestHandler{
		serviceRequestUseCase: serviceRequestUseCase,
	}
}

type createServiceRequestRequest struct {
	Requirements   string   `json:"requirements" validate:"required,min=10"`
	ProposedBudget *float64 `json:"proposed_budget,omitempty" validate:"omitempty,gt=0"`
	Currency       string   `json:"currency" validate:"required,oneof=USD EGP"`
}

func (h *ServiceRequestHandler) CreateServiceRequest(c echo.Context) error {
	userID := c.Get("uid").(string)
	conversationID := c.Param("id")

	var req createServiceRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.serviceRequestUseCase.CreateServiceRequest(c.Request().Context(), userID, usecase.CreateServiceRequestInput{
		ConversationID: conversationID,
		Requirements:   req.Requirements,
		ProposedBudget: req.ProposedBudget,
		Currency:       req.Currency,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

type acceptServiceRequestRequest struct {
	DeadlineUTC time.Time `json:"deadline_utc" validate:"required"`
}

func (h *ServiceRequestHandler) AcceptServiceRequest(c echo.Context) error {
	userID := c.Get("uid").(string)
	requestID := c.Param("requestId")

	var req acceptServiceRequestRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.serviceRequestUseCase.AcceptServiceRequest(c.Request().Context(), userID, requestID, req.DeadlineUTC)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *ServiceRequestHandler) ConfirmServiceRequest(c echo.Context) error {
	userID := c.Get("uid").(string)
	requestID := c.Param("requestId")

	result, err := h.serviceRequestUseCase.ConfirmServiceRequest(c.Request().Context(), userID, requestID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *ServiceRequestHandler) DeclineServiceRequest(c echo.Context) error {
	userID := c.Get("uid").(string)
	requestID := c.Param("requestId")

	if err := h.serviceRequestUseCase.DeclineServiceRequest(c.Request().Context(), userID, requestID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Service request declined",
	})
}

func (h *ServiceRequestHandler) GetServiceRequest(c echo.Context) error {
	userID := c.Get("uid").(string)
	requestID := c.Param("requestId")

	result, err := h.serviceRequestUseCase.GetServiceRequest(c.Request().Context(), userID, requestID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *ServiceRequestHandler) ListCreatorRequests(c echo.Context) error {
	return h.listRequests(c, entity.RoleCreator)
}

func (h *ServiceRequestHandler) ListCustomerRequests(c echo.Context) error {
	return h.listRequests(c, entity.RoleCustomer)
}

func (h *ServiceRequestHandler) listRequests(c echo.Context, role string) error {
	userID := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)
	statuses := c.QueryParams()["status"]

	requests, total, err := h.serviceRequestUseCase.ListServiceRequests(c.Request().Context(), userID, role, statuses, pagination.Limit, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, requests, total, pagination.Limit, pagination.Offset)
}

func (h *ServiceRequestHandler) GetPendingCount(c echo.Context) error {
	userID := c.Get("uid").(string)

	count, err := h.serviceRequestUseCase.PendingRequestCount(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"count": count,
	})
}

type proposeDeadlineRequest struct {
	ProposedDeadlineUTC time.Time `json:"proposed_deadline_utc" validate:"required"`
	Reason              string    `json:"reason,omitempty"`
}

func (h *ServiceRequestHandler) ProposeDeadline(c echo.Context) error {
	userID := c.Get("uid").(string)
	requestID := c.Param("requestId")

	var req proposeDeadlineRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	proposal, err := h.serviceRequestUseCase.ProposeDeadline(c.Request().Context(), userID, requestID, usecase.ProposeDeadlineInput{
		ProposedDeadline: req.ProposedDeadlineUTC,
		Reason:           req.Reason,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, proposal)
}

type respondProposalRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

func (h *ServiceRequestHandler) RespondToDeadlineProposal(c echo.Context) error {
	userID := c.Get("uid").(string)
	requestID := c.Param("requestId")
	proposalID := c.Param("proposalId")

	var req respondProposalRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.serviceRequestUseCase.RespondToDeadlineProposal(c.Request().Context(), userID, requestID, proposalID, *req.Accept)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *ServiceRequestHandler) GetDeadlineProposalHistory(c echo.Context) error {
	userID := c.Get("uid").(string)
	requestID := c.Param("requestId")

	history, err := h.serviceRequestUseCase.GetDeadlineProposalHistory(c.Request().Context(), userID, requestID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, history)
}
