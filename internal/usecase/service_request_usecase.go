package usecase

import (
	"context"
	"strings"
	"time"

	"craftex/internal/domain/entity"
	"craftex/internal/domain/repository"
	"craftex/internal/infrastructure/keylock"
	ws "craftex/internal/infrastructure/websocket"
	"craftex/pkg/countdown"
	"craftex/pkg/errors"
	"craftex/pkg/logger"
)

const minRequirementsLen = 10

type ServiceRequestUseCase struct {
	requestRepo      repository.ServiceRequestRepository
	conversationRepo repository.ConversationRepository
	publisher        EventPublisher
	locks            *keylock.KeyLock
	now              func() time.Time
}

func NewServiceRequestUseCase(
	requestRepo repository.ServiceRequestRepository,
	conversationRepo repository.ConversationRepository,
	publisher EventPublisher,
	locks *keylock.KeyLock,
) *ServiceRequestUseCase {
	return &ServiceRequestUseCase{
		requestRepo:      requestRepo,
		conversationRepo: conversationRepo,
		publisher:        publisher,
		locks:            locks,
		now:              time.Now,
	}
}

type CreateServiceRequestInput struct {
	ConversationID string
	Requirements   string
	ProposedBudget *float64
	Currency       string
}

// ServiceRequestResponse decorates a request with the server-computed
// countdown so every surface renders the same remaining-time label.
type ServiceRequestResponse struct {
	*entity.ServiceRequest
	DeadlineCountdown string `json:"deadline_countdown,omitempty"`
	DeadlineOverdue   bool   `json:"deadline_overdue,omitempty"`
}

func (uc *ServiceRequestUseCase) decorate(request *entity.ServiceRequest) *ServiceRequestResponse {
	resp := &ServiceRequestResponse{ServiceRequest: request}
	if request.DeadlineUTC != nil && request.Agreed() {
		resp.DeadlineCountdown, resp.DeadlineOverdue = countdown.Remaining(*request.DeadlineUTC, uc.now())
	}
	return resp
}

func validCurrency(currency string) bool {
	return currency == entity.CurrencyUSD || currency == entity.CurrencyEGP
}

// CreateServiceRequest opens a pending request inside an existing
// conversation. Only the customer side may create one.
func (uc *ServiceRequestUseCase) CreateServiceRequest(ctx context.Context, userID string, input CreateServiceRequestInput) (*ServiceRequestResponse, error) {
	if len(strings.TrimSpace(input.Requirements)) < minRequirementsLen {
		return nil, errors.BadRequest("Requirements must be at least 10 characters", nil)
	}
	if !validCurrency(input.Currency) {
		return nil, errors.BadRequest("Currency must be USD or EGP", nil)
	}
	if input.ProposedBudget != nil && *input.ProposedBudget <= 0 {
		return nil, errors.BadRequest("Proposed budget must be positive", nil)
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if conversation.Status == entity.ConversationClosed {
		return nil, errors.StateConflict("Conversation is closed")
	}
	if userID != conversation.CustomerID {
		return nil, errors.Forbidden("Only the customer may create a service request", nil)
	}

	request := &entity.ServiceRequest{
		ConversationID: conversation.ID,
		CreatorID:      conversation.CreatorID,
		CustomerID:     conversation.CustomerID,
		Requirements:   strings.TrimSpace(input.Requirements),
		ProposedBudget: input.ProposedBudget,
		Currency:       input.Currency,
		Status:         entity.RequestPending,
	}

	if err := uc.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	uc.notify(conversation.ID, conversation.CreatorID, conversation.CustomerID, "service_request")
	return uc.decorate(request), nil
}

// AcceptServiceRequest moves a pending request to accepted_by_creator and
// pins the first agreed deadline. Accepting again with the same deadline is
// a retry and succeeds silently; a different deadline on a non-pending
// request is a stale transition.
func (uc *ServiceRequestUseCase) AcceptServiceRequest(ctx context.Context, userID, requestID string, deadline time.Time) (*ServiceRequestResponse, error) {
	uc.locks.Lock(requestID)
	defer uc.locks.Unlock(requestID)

	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if userID != request.CreatorID {
		return nil, errors.Forbidden("Only the creator may accept a service request", nil)
	}

	deadline = deadline.UTC()
	// Retries short-circuit before validation so a replay that arrives after
	// the deadline has passed still resolves idempotently.
	if request.Status != entity.RequestPending {
		if request.Status == entity.RequestAcceptedByCreator && request.DeadlineUTC != nil && request.DeadlineUTC.Equal(deadline) {
			return uc.decorate(request), nil
		}
		return nil, errors.StateConflict("Service request is not pending")
	}
	if !deadline.After(uc.now()) {
		return nil, errors.InvalidDeadline("Deadline must be in the future")
	}

	request.Status = entity.RequestAcceptedByCreator
	request.DeadlineUTC = &deadline
	if err := uc.requestRepo.Update(ctx, request); err != nil {
		return nil, err
	}

	uc.notify(request.ConversationID, request.CreatorID, request.CustomerID, "service_request")
	return uc.decorate(request), nil
}

// ConfirmServiceRequest is the customer's final approval of the accepted
// deadline. Confirming an already-confirmed request is a retry no-op.
func (uc *ServiceRequestUseCase) ConfirmServiceRequest(ctx context.Context, userID, requestID string) (*ServiceRequestResponse, error) {
	uc.locks.Lock(requestID)
	defer uc.locks.Unlock(requestID)

	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if userID != request.CustomerID {
		return nil, errors.Forbidden("Only the customer may confirm a service request", nil)
	}

	switch request.Status {
	case entity.RequestConfirmedByCustomer:
		return uc.decorate(request), nil
	case entity.RequestAcceptedByCreator:
	default:
		return nil, errors.StateConflict("Service request has not been accepted yet")
	}

	request.Status = entity.RequestConfirmedByCustomer
	if err := uc.requestRepo.Update(ctx, request); err != nil {
		return nil, err
	}

	uc.notify(request.ConversationID, request.CreatorID, request.CustomerID, "service_request")
	return uc.decorate(request), nil
}

// DeclineServiceRequest removes the request entirely. Either party may
// decline at any stage, confirmed included. Decline is destructive so a
// declined request never lingers in pending counters; a retried decline
// that finds nothing left succeeds.
func (uc *ServiceRequestUseCase) DeclineServiceRequest(ctx context.Context, userID, requestID string) error {
	uc.locks.Lock(requestID)
	defer uc.locks.Unlock(requestID)

	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil
		}
		return err
	}
	if userID != request.CreatorID && userID != request.CustomerID {
		return errors.Forbidden("Only a participant may decline a service request", nil)
	}

	if err := uc.requestRepo.Delete(ctx, request.ID); err != nil {
		return err
	}

	logger.Info("Service request %s declined by %s", request.ID, userID)
	uc.notify(request.ConversationID, request.CreatorID, request.CustomerID, "service_request")
	return nil
}

func (uc *ServiceRequestUseCase) GetServiceRequest(ctx context.Context, userID, requestID string) (*ServiceRequestResponse, error) {
	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if userID != request.CreatorID && userID != request.CustomerID {
		return nil, errors.Forbidden("Only a participant may view the service request", nil)
	}
	return uc.decorate(request), nil
}

// ListServiceRequests returns the user's requests on whichever side they
// hold, optionally filtered by status.
func (uc *ServiceRequestUseCase) ListServiceRequests(ctx context.Context, userID, role string, statuses []string, limit, offset int) ([]*ServiceRequestResponse, int64, error) {
	for _, s := range statuses {
		switch s {
		case entity.RequestPending, entity.RequestAcceptedByCreator, entity.RequestConfirmedByCustomer:
		default:
			return nil, 0, errors.BadRequest("Unknown status filter: "+s, nil)
		}
	}

	var (
		requests []*entity.ServiceRequest
		total    int64
		err      error
	)
	switch role {
	case entity.RoleCreator:
		requests, total, err = uc.requestRepo.ListByCreator(ctx, userID, statuses, limit, offset)
	case entity.RoleCustomer:
		requests, total, err = uc.requestRepo.ListByCustomer(ctx, userID, statuses, limit, offset)
	default:
		return nil, 0, errors.BadRequest("Role must be creator or customer", nil)
	}
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*ServiceRequestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, uc.decorate(request))
	}
	return responses, total, nil
}

// PendingRequestCount backs the navigation badge: requests still awaiting
// someone's action on either side.
func (uc *ServiceRequestUseCase) PendingRequestCount(ctx context.Context, userID string) (int64, error) {
	return uc.requestRepo.CountPendingForUser(ctx, userID)
}

type ProposeDeadlineInput struct {
	ProposedDeadline time.Time
	Reason           string
}

// ProposeDeadline opens a renegotiation of an agreed deadline. Only one
// proposal may be pending per request, and the proposed deadline must
// differ from the current one.
func (uc *ServiceRequestUseCase) ProposeDeadline(ctx context.Context, userID, requestID string, input ProposeDeadlineInput) (*entity.DeadlineProposal, error) {
	uc.locks.Lock(requestID)
	defer uc.locks.Unlock(requestID)

	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var role string
	switch userID {
	case request.CreatorID:
		role = entity.RoleCreator
	case request.CustomerID:
		role = entity.RoleCustomer
	default:
		return nil, errors.Forbidden("Only a participant may propose a deadline", nil)
	}

	if !request.Agreed() || request.DeadlineUTC == nil {
		return nil, errors.StateConflict("Service request has no agreed deadline to renegotiate")
	}

	proposed := input.ProposedDeadline.UTC()
	if !proposed.After(uc.now()) {
		return nil, errors.InvalidDeadline("Proposed deadline must be in the future")
	}
	if proposed.Equal(*request.DeadlineUTC) {
		return nil, errors.InvalidDeadline("Proposed deadline matches the current deadline")
	}

	if _, err := uc.requestRepo.GetPendingProposal(ctx, requestID); err == nil {
		return nil, errors.ProposalConflict()
	} else if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	proposal := &entity.DeadlineProposal{
		ServiceRequestID:    requestID,
		ProposedDeadlineUTC: proposed,
		Reason:              strings.TrimSpace(input.Reason),
		Status:              entity.ProposalPending,
		ProposedBy:          role,
	}
	if err := uc.requestRepo.CreateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	uc.notify(request.ConversationID, request.CreatorID, request.CustomerID, "deadline_proposal")
	return proposal, nil
}

// RespondToDeadlineProposal resolves a pending proposal. Only the
// counterpart of the proposer may respond. Acceptance rewrites the parent
// request's deadline in the same locked section, so the deadline and the
// proposal status never diverge.
func (uc *ServiceRequestUseCase) RespondToDeadlineProposal(ctx context.Context, userID, requestID, proposalID string, accept bool) (*ServiceRequestResponse, error) {
	uc.locks.Lock(requestID)
	defer uc.locks.Unlock(requestID)

	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	proposal, err := uc.requestRepo.GetProposalByID(ctx, requestID, proposalID)
	if err != nil {
		return nil, err
	}

	var responderRole string
	switch userID {
	case request.CreatorID:
		responderRole = entity.RoleCreator
	case request.CustomerID:
		responderRole = entity.RoleCustomer
	default:
		return nil, errors.Forbidden("Only a participant may respond to a deadline proposal", nil)
	}
	if responderRole == proposal.ProposedBy {
		return nil, errors.Forbidden("The proposer cannot respond to their own proposal", nil)
	}

	if proposal.Status != entity.ProposalPending {
		// A retried response that matches the recorded outcome succeeds.
		if (accept && proposal.Status == entity.ProposalAccepted) || (!accept && proposal.Status == entity.ProposalDeclined) {
			return uc.decorate(request), nil
		}
		return nil, errors.StateConflict("Deadline proposal has already been resolved")
	}

	respondedAt := uc.now()
	proposal.RespondedAt = &respondedAt
	if accept {
		proposal.Status = entity.ProposalAccepted
	} else {
		proposal.Status = entity.ProposalDeclined
	}
	if err := uc.requestRepo.UpdateProposal(ctx, requestID, proposal); err != nil {
		return nil, err
	}

	if accept {
		deadline := proposal.ProposedDeadlineUTC
		request.DeadlineUTC = &deadline
		if err := uc.requestRepo.Update(ctx, request); err != nil {
			return nil, err
		}
	}

	uc.notify(request.ConversationID, request.CreatorID, request.CustomerID, "deadline_proposal")
	return uc.decorate(request), nil
}

// GetDeadlineProposalHistory returns every proposal for the request,
// newest first, resolved ones included.
func (uc *ServiceRequestUseCase) GetDeadlineProposalHistory(ctx context.Context, userID, requestID string) ([]*entity.DeadlineProposal, error) {
	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if userID != request.CreatorID && userID != request.CustomerID {
		return nil, errors.Forbidden("Only a participant may view the proposal history", nil)
	}
	return uc.requestRepo.ListProposals(ctx, requestID)
}

// notify pushes a conversation_updated hint to both sides. Clients re-fetch
// on receipt, so duplicated hints are harmless.
func (uc *ServiceRequestUseCase) notify(conversationID, creatorID, customerID, resource string) {
	event := ws.NewEvent(ws.EventConversationUpdated, conversationID, ws.ConversationUpdatedData{
		ConversationID: conversationID,
		Resource:       resource,
	})
	uc.publisher.SendToUser(creatorID, event)
	uc.publisher.SendToUser(customerID, event)
	uc.publisher.BroadcastToConversation(conversationID, event, "")
}
