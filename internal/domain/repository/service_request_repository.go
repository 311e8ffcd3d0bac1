package repository

import (
	"context"

	"craftex/internal/domain/entity"
)

type ServiceRequestRepository interface {
	Create(ctx context.Context, request *entity.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*entity.ServiceRequest, error)
	Update(ctx context.Context, request *entity.ServiceRequest) error
	Delete(ctx context.Context, id string) error
	// ListByCreator and ListByCustomer return requests ordered by creation
	// time. An empty statuses slice means no status filter.
	ListByCreator(ctx context.Context, creatorID string, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error)
	ListByCustomer(ctx context.Context, customerID string, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error)
	CountPendingForUser(ctx context.Context, userID string) (int64, error)

	// Deadline proposal methods
	CreateProposal(ctx context.Context, proposal *entity.DeadlineProposal) error
	GetProposalByID(ctx context.Context, requestID, proposalID string) (*entity.DeadlineProposal, error)
	GetPendingProposal(ctx context.Context, requestID string) (*entity.DeadlineProposal, error)
	UpdateProposal(ctx context.Context, requestID string, proposal *entity.DeadlineProposal) error
	// ListProposals returns the full proposal history newest-first,
	// including resolved proposals.
	ListProposals(ctx context.Context, requestID string) ([]*entity.DeadlineProposal, error)
}
