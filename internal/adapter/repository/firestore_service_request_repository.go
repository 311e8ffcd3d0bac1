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
	"craftex/pkg/logger"
)

type firestoreServiceRequestRepository struct {
	client *firestore.Client
}

func NewFirestoreServiceRequestRepository(client *firestore.Client) repository.ServiceRequestRepository {
	return &firestoreServiceRequestRepository{
		client: client,
	}
}

func (r *firestoreServiceRequestRepository) Create(ctx context.Context, request *entity.ServiceRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}

	now := time.Now()
	request.CreatedAt = now
	request.UpdatedAt = now

	_, err := r.client.Collection("serviceRequests").Doc(request.ID).Set(ctx, request)
	if err != nil {
		return errors.Internal("Failed to create service request", err)
	}

	return nil
}

func (r *firestoreServiceRequestRepository) GetByID(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	doc, err := r.client.Collection("serviceRequests").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Service request", nil)
		}
		return nil, errors.Internal("Failed to get service request", err)
	}

	var request entity.ServiceRequest
	if err := doc.DataTo(&request); err != nil {
		return nil, errors.Internal("Failed to parse service request data", err)
	}

	return &request, nil
}

func (r *firestoreServiceRequestRepository) Update(ctx context.Context, request *entity.ServiceRequest) error {
	request.UpdatedAt = time.Now()

	_, err := r.client.Collection("serviceRequests").Doc(request.ID).Set(ctx, request)
	if err != nil {
		return errors.Internal("Failed to update service request", err)
	}

	return nil
}

func (r *firestoreServiceRequestRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Collection("serviceRequests").Doc(id).Delete(ctx)
	if err != nil {
		return errors.Internal("Failed to delete service request", err)
	}

	return nil
}

func (r *firestoreServiceRequestRepository) ListByCreator(ctx context.Context, creatorID string, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error) {
	return r.list(ctx, "creatorId", creatorID, statuses, limit, offset)
}

func (r *firestoreServiceRequestRepository) ListByCustomer(ctx context.Context, customerID string, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error) {
	return r.list(ctx, "customerId", customerID, statuses, limit, offset)
}

func (r *firestoreServiceRequestRepository) list(ctx context.Context, field, userID string, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error) {
	query := r.client.Collection("serviceRequests").Where(field, "==", userID)
	if len(statuses) > 0 {
		query = query.Where("status", "in", statuses)
	}
	query = query.OrderBy("createdAt", firestore.Asc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing service requests for %s=%s: %v", field, userID, err)
		return nil, 0, errors.Internal("Failed to list service requests", err)
	}

	total := int64(len(allDocs))

	start := offset
	if start > len(allDocs) {
		start = len(allDocs)
	}
	end := len(allDocs)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var requests []*entity.ServiceRequest
	for i := start; i < end; i++ {
		var request entity.ServiceRequest
		if err := allDocs[i].DataTo(&request); err != nil {
			logger.Warn("Skipping malformed service request doc %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		requests = append(requests, &request)
	}

	return requests, total, nil
}

func (r *firestoreServiceRequestRepository) CountPendingForUser(ctx context.Context, userID string) (int64, error) {
	awaiting := []string{entity.RequestPending, entity.RequestAcceptedByCreator}

	var total int64
	for _, field := range []string{"creatorId", "customerId"} {
		docs, err := r.client.Collection("serviceRequests").
			Where(field, "==", userID).
			Where("status", "in", awaiting).
			Documents(ctx).GetAll()
		if err != nil {
			return 0, errors.Internal("Failed to count pending service requests", err)
		}
		total += int64(len(docs))
	}

	return total, nil
}

func (r *firestoreServiceRequestRepository) proposals(requestID string) *firestore.CollectionRef {
	return r.client.Collection("serviceRequests").Doc(requestID).Collection("deadlineProposals")
}

func (r *firestoreServiceRequestRepository) CreateProposal(ctx context.Context, proposal *entity.DeadlineProposal) error {
	if proposal.ID == "" {
		proposal.ID = uuid.New().String()
	}

	proposal.CreatedAt = time.Now()

	_, err := r.proposals(proposal.ServiceRequestID).Doc(proposal.ID).Set(ctx, proposal)
	if err != nil {
		return errors.Internal("Failed to create deadline proposal", err)
	}

	return nil
}

func (r *firestoreServiceRequestRepository) GetProposalByID(ctx context.Context, requestID, proposalID string) (*entity.DeadlineProposal, error) {
	doc, err := r.proposals(requestID).Doc(proposalID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Deadline proposal", nil)
		}
		return nil, errors.Internal("Failed to get deadline proposal", err)
	}

	var proposal entity.DeadlineProposal
	if err := doc.DataTo(&proposal); err != nil {
		return nil, errors.Internal("Failed to parse deadline proposal data", err)
	}

	return &proposal, nil
}

func (r *firestoreServiceRequestRepository) GetPendingProposal(ctx context.Context, requestID string) (*entity.DeadlineProposal, error) {
	query := r.proposals(requestID).Where("status", "==", entity.ProposalPending).Limit(1)

	iter := query.Documents(ctx)
	doc, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Deadline proposal", nil)
		}
		return nil, errors.Internal("Failed to query pending proposal", err)
	}

	var proposal entity.DeadlineProposal
	if err := doc.DataTo(&proposal); err != nil {
		return nil, errors.Internal("Failed to parse deadline proposal data", err)
	}

	return &proposal, nil
}

func (r *firestoreServiceRequestRepository) UpdateProposal(ctx context.Context, requestID string, proposal *entity.DeadlineProposal) error {
	_, err := r.proposals(requestID).Doc(proposal.ID).Set(ctx, proposal)
	if err != nil {
		return errors.Internal("Failed to update deadline proposal", err)
	}

	return nil
}

func (r *firestoreServiceRequestRepository) ListProposals(ctx context.Context, requestID string) ([]*entity.DeadlineProposal, error) {
	iter := r.proposals(requestID).OrderBy("createdAt", firestore.Desc).Documents(ctx)

	var proposals []*entity.DeadlineProposal
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate deadline proposals", err)
		}

		var proposal entity.DeadlineProposal
		if err := doc.DataTo(&proposal); err != nil {
			return nil, errors.Internal("Failed to parse deadline proposal data", err)
		}

		proposals = append(proposals, &proposal)
	}

	return proposals, nil
}
