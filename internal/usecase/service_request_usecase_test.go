package usecase

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftex/internal/domain/entity"
	"craftex/internal/infrastructure/keylock"
	"craftex/internal/infrastructure/websocket"
	"craftex/pkg/errors"
)

type requestFixture struct {
	uc        *ServiceRequestUseCase
	repo      *fakeServiceRequestRepo
	convRepo  *fakeConversationRepo
	publisher *fakePublisher
	now       time.Time
	convID    string
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	convRepo := newFakeConversationRepo()
	conv := &entity.Conversation{
		CreatorID:  "creator-1",
		CustomerID: "customer-1",
		Status:     entity.ConversationActive,
	}
	require.NoError(t, convRepo.Create(context.Background(), conv))

	repo := newFakeServiceRequestRepo()
	publisher := &fakePublisher{}
	uc := NewServiceRequestUseCase(repo, convRepo, publisher, keylock.New())

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	return &requestFixture{uc: uc, repo: repo, convRepo: convRepo, publisher: publisher, now: now, convID: conv.ID}
}

func (f *requestFixture) createRequest(t *testing.T) *ServiceRequestResponse {
	t.Helper()
	budget := 150.0
	resp, err := f.uc.CreateServiceRequest(context.Background(), "customer-1", CreateServiceRequestInput{
		ConversationID: f.convID,
		Requirements:   "Ten custom badge illustrations in my channel style",
		ProposedBudget: &budget,
		Currency:       entity.CurrencyUSD,
	})
	require.NoError(t, err)
	return resp
}

func TestCreateServiceRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("customer creates a pending request", func(t *testing.T) {
		f := newRequestFixture(t)
		resp := f.createRequest(t)

		assert.Equal(t, entity.RequestPending, resp.Status)
		assert.Nil(t, resp.DeadlineUTC)
		assert.Empty(t, resp.DeadlineCountdown)
		assert.NotEmpty(t, f.publisher.eventsOfType(websocket.EventConversationUpdated))
	})

	t.Run("creator cannot create a request", func(t *testing.T) {
		f := newRequestFixture(t)
		_, err := f.uc.CreateServiceRequest(ctx, "creator-1", CreateServiceRequestInput{
			ConversationID: f.convID,
			Requirements:   "I will make you something nice",
			Currency:       entity.CurrencyUSD,
		})
		assert.True(t, errors.Is(err, "FORBIDDEN"))
	})

	t.Run("requirements too short", func(t *testing.T) {
		f := newRequestFixture(t)
		_, err := f.uc.CreateServiceRequest(ctx, "customer-1", CreateServiceRequestInput{
			ConversationID: f.convID,
			Requirements:   "badges",
			Currency:       entity.CurrencyUSD,
		})
		assert.True(t, errors.Is(err, "BAD_REQUEST"))
	})

	t.Run("unsupported currency", func(t *testing.T) {
		f := newRequestFixture(t)
		_, err := f.uc.CreateServiceRequest(ctx, "customer-1", CreateServiceRequestInput{
			ConversationID: f.convID,
			Requirements:   "Ten custom badge illustrations",
			Currency:       "EUR",
		})
		assert.True(t, errors.Is(err, "BAD_REQUEST"))
	})

	t.Run("closed conversation rejects new requests", func(t *testing.T) {
		f := newRequestFixture(t)
		conv, err := f.convRepo.GetByID(ctx, f.convID)
		require.NoError(t, err)
		conv.Status = entity.ConversationClosed
		require.NoError(t, f.convRepo.Update(ctx, conv))

		_, err = f.uc.CreateServiceRequest(ctx, "customer-1", CreateServiceRequestInput{
			ConversationID: f.convID,
			Requirements:   "Ten custom badge illustrations",
			Currency:       entity.CurrencyUSD,
		})
		assert.True(t, errors.Is(err, "STATE_CONFLICT"))
	})
}

func TestAcceptServiceRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("creator accepts with a future deadline", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		deadline := f.now.Add(72 * time.Hour)

		resp, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, deadline)
		require.NoError(t, err)
		assert.Equal(t, entity.RequestAcceptedByCreator, resp.Status)
		require.NotNil(t, resp.DeadlineUTC)
		assert.True(t, resp.DeadlineUTC.Equal(deadline))
		assert.Equal(t, "3d 0h", resp.DeadlineCountdown)
		assert.False(t, resp.DeadlineOverdue)
	})

	t.Run("customer cannot accept", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		_, err := f.uc.AcceptServiceRequest(ctx, "customer-1", request.ID, f.now.Add(time.Hour))
		assert.True(t, errors.Is(err, "FORBIDDEN"))
	})

	t.Run("past deadline is rejected", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(-time.Minute))
		assert.True(t, errors.Is(err, "INVALID_DEADLINE"))

		_, err = f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now)
		assert.True(t, errors.Is(err, "INVALID_DEADLINE"))
	})

	t.Run("retried accept with the same deadline is a no-op", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		deadline := f.now.Add(48 * time.Hour)

		_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, deadline)
		require.NoError(t, err)

		resp, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, deadline)
		require.NoError(t, err)
		assert.Equal(t, entity.RequestAcceptedByCreator, resp.Status)
	})

	t.Run("retried accept succeeds even after the deadline has passed", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		deadline := f.now.Add(48 * time.Hour)

		_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, deadline)
		require.NoError(t, err)

		f.uc.now = func() time.Time { return deadline.Add(time.Hour) }
		resp, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, deadline)
		require.NoError(t, err)
		assert.Equal(t, entity.RequestAcceptedByCreator, resp.Status)
		assert.True(t, resp.DeadlineOverdue)
	})

	t.Run("accept with a different deadline after acceptance conflicts", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(48*time.Hour))
		require.NoError(t, err)

		_, err = f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(96*time.Hour))
		assert.True(t, errors.Is(err, "STATE_CONFLICT"))
	})
}

func TestConfirmServiceRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("customer confirms an accepted request", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(24*time.Hour))
		require.NoError(t, err)

		resp, err := f.uc.ConfirmServiceRequest(ctx, "customer-1", request.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.RequestConfirmedByCustomer, resp.Status)

		// Retry is idempotent.
		resp, err = f.uc.ConfirmServiceRequest(ctx, "customer-1", request.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.RequestConfirmedByCustomer, resp.Status)
	})

	t.Run("confirming a pending request conflicts", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		_, err := f.uc.ConfirmServiceRequest(ctx, "customer-1", request.ID)
		assert.True(t, errors.Is(err, "STATE_CONFLICT"))
	})

	t.Run("creator cannot confirm", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(24*time.Hour))
		require.NoError(t, err)

		_, err = f.uc.ConfirmServiceRequest(ctx, "creator-1", request.ID)
		assert.True(t, errors.Is(err, "FORBIDDEN"))
	})
}

func TestDeclineServiceRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("decline removes the request and its proposals", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		require.NoError(t, f.uc.DeclineServiceRequest(ctx, "creator-1", request.ID))

		_, err := f.repo.GetByID(ctx, request.ID)
		assert.True(t, errors.Is(err, "NOT_FOUND"))

		count, err := f.uc.PendingRequestCount(ctx, "creator-1")
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)
	})

	t.Run("retried decline after removal succeeds", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		require.NoError(t, f.uc.DeclineServiceRequest(ctx, "customer-1", request.ID))
		require.NoError(t, f.uc.DeclineServiceRequest(ctx, "customer-1", request.ID))
	})

	t.Run("confirmed requests can still be declined", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(24*time.Hour))
		require.NoError(t, err)
		_, err = f.uc.ConfirmServiceRequest(ctx, "customer-1", request.ID)
		require.NoError(t, err)

		require.NoError(t, f.uc.DeclineServiceRequest(ctx, "creator-1", request.ID))

		_, err = f.repo.GetByID(ctx, request.ID)
		assert.True(t, errors.Is(err, "NOT_FOUND"))
	})

	t.Run("outsider cannot decline", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		err := f.uc.DeclineServiceRequest(ctx, "stranger", request.ID)
		assert.True(t, errors.Is(err, "FORBIDDEN"))
	})
}

func TestListServiceRequests(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	request := f.createRequest(t)
	_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(24*time.Hour))
	require.NoError(t, err)

	accepted, total, err := f.uc.ListServiceRequests(ctx, "creator-1", entity.RoleCreator, []string{entity.RequestAcceptedByCreator}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, accepted, 1)
	assert.NotEmpty(t, accepted[0].DeadlineCountdown)

	pending, total, err := f.uc.ListServiceRequests(ctx, "customer-1", entity.RoleCustomer, []string{entity.RequestPending}, 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, pending)

	_, _, err = f.uc.ListServiceRequests(ctx, "creator-1", entity.RoleCreator, []string{"declined"}, 20, 0)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestProposeDeadline(t *testing.T) {
	ctx := context.Background()

	accepted := func(t *testing.T) (*requestFixture, *ServiceRequestResponse) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		resp, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(48*time.Hour))
		require.NoError(t, err)
		return f, resp
	}

	t.Run("creator proposes an extension", func(t *testing.T) {
		f, request := accepted(t)

		proposal, err := f.uc.ProposeDeadline(ctx, "creator-1", request.ID, ProposeDeadlineInput{
			ProposedDeadline: f.now.Add(96 * time.Hour),
			Reason:           "Commission queue is longer than expected",
		})
		require.NoError(t, err)
		assert.Equal(t, entity.ProposalPending, proposal.Status)
		assert.Equal(t, entity.RoleCreator, proposal.ProposedBy)
	})

	t.Run("second pending proposal conflicts", func(t *testing.T) {
		f, request := accepted(t)

		_, err := f.uc.ProposeDeadline(ctx, "creator-1", request.ID, ProposeDeadlineInput{
			ProposedDeadline: f.now.Add(96 * time.Hour),
		})
		require.NoError(t, err)

		_, err = f.uc.ProposeDeadline(ctx, "customer-1", request.ID, ProposeDeadlineInput{
			ProposedDeadline: f.now.Add(24 * time.Hour),
		})
		assert.True(t, errors.Is(err, "PROPOSAL_CONFLICT"))
	})

	t.Run("proposal equal to the current deadline is invalid", func(t *testing.T) {
		f, request := accepted(t)

		_, err := f.uc.ProposeDeadline(ctx, "customer-1", request.ID, ProposeDeadlineInput{
			ProposedDeadline: *request.DeadlineUTC,
		})
		assert.True(t, errors.Is(err, "INVALID_DEADLINE"))
	})

	t.Run("pending request has nothing to renegotiate", func(t *testing.T) {
		f := newRequestFixture(t)
		request := f.createRequest(t)

		_, err := f.uc.ProposeDeadline(ctx, "creator-1", request.ID, ProposeDeadlineInput{
			ProposedDeadline: f.now.Add(24 * time.Hour),
		})
		assert.True(t, errors.Is(err, "STATE_CONFLICT"))
	})
}

func TestRespondToDeadlineProposal(t *testing.T) {
	ctx := context.Background()

	propose := func(t *testing.T) (*requestFixture, *ServiceRequestResponse, *entity.DeadlineProposal) {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		resp, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(48*time.Hour))
		require.NoError(t, err)
		proposal, err := f.uc.ProposeDeadline(ctx, "creator-1", resp.ID, ProposeDeadlineInput{
			ProposedDeadline: f.now.Add(96 * time.Hour),
			Reason:           "More revisions than planned",
		})
		require.NoError(t, err)
		return f, resp, proposal
	}

	t.Run("acceptance rewrites the request deadline", func(t *testing.T) {
		f, request, proposal := propose(t)

		resp, err := f.uc.RespondToDeadlineProposal(ctx, "customer-1", request.ID, proposal.ID, true)
		require.NoError(t, err)
		require.NotNil(t, resp.DeadlineUTC)
		assert.True(t, resp.DeadlineUTC.Equal(proposal.ProposedDeadlineUTC))

		stored, err := f.repo.GetProposalByID(ctx, request.ID, proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.ProposalAccepted, stored.Status)
		assert.NotNil(t, stored.RespondedAt)
	})

	t.Run("decline keeps the original deadline", func(t *testing.T) {
		f, request, proposal := propose(t)
		original := *request.DeadlineUTC

		resp, err := f.uc.RespondToDeadlineProposal(ctx, "customer-1", request.ID, proposal.ID, false)
		require.NoError(t, err)
		assert.True(t, resp.DeadlineUTC.Equal(original))

		// A new proposal may follow once the previous one is resolved.
		_, err = f.uc.ProposeDeadline(ctx, "customer-1", request.ID, ProposeDeadlineInput{
			ProposedDeadline: f.now.Add(12 * time.Hour),
		})
		require.NoError(t, err)
	})

	t.Run("proposer cannot answer their own proposal", func(t *testing.T) {
		f, request, proposal := propose(t)

		_, err := f.uc.RespondToDeadlineProposal(ctx, "creator-1", request.ID, proposal.ID, true)
		assert.True(t, errors.Is(err, "FORBIDDEN"))
	})

	t.Run("retried response matching the outcome succeeds", func(t *testing.T) {
		f, request, proposal := propose(t)

		_, err := f.uc.RespondToDeadlineProposal(ctx, "customer-1", request.ID, proposal.ID, true)
		require.NoError(t, err)

		_, err = f.uc.RespondToDeadlineProposal(ctx, "customer-1", request.ID, proposal.ID, true)
		require.NoError(t, err)

		_, err = f.uc.RespondToDeadlineProposal(ctx, "customer-1", request.ID, proposal.ID, false)
		assert.True(t, errors.Is(err, "STATE_CONFLICT"))
	})
}

func TestGetDeadlineProposalHistory(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	request := f.createRequest(t)
	_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(48*time.Hour))
	require.NoError(t, err)

	first, err := f.uc.ProposeDeadline(ctx, "creator-1", request.ID, ProposeDeadlineInput{
		ProposedDeadline: f.now.Add(96 * time.Hour),
	})
	require.NoError(t, err)
	_, err = f.uc.RespondToDeadlineProposal(ctx, "customer-1", request.ID, first.ID, false)
	require.NoError(t, err)

	second, err := f.uc.ProposeDeadline(ctx, "customer-1", request.ID, ProposeDeadlineInput{
		ProposedDeadline: f.now.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	history, err := f.uc.GetDeadlineProposalHistory(ctx, "creator-1", request.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
	assert.Equal(t, entity.ProposalDeclined, history[1].Status)

	_, err = f.uc.GetDeadlineProposalHistory(ctx, "stranger", request.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestPendingRequestCount(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)

	count, err := f.uc.PendingRequestCount(ctx, "creator-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	request := f.createRequest(t)

	count, err = f.uc.PendingRequestCount(ctx, "creator-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(24*time.Hour))
	require.NoError(t, err)

	// Still awaiting the customer's confirmation.
	count, err = f.uc.PendingRequestCount(ctx, "customer-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	_, err = f.uc.ConfirmServiceRequest(ctx, "customer-1", request.ID)
	require.NoError(t, err)

	count, err = f.uc.PendingRequestCount(ctx, "customer-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

// A request carries a deadline exactly while it is accepted or confirmed,
// no matter which order the transitions arrive in or how many of them are
// stale. Random sequences shake out orderings the targeted tests miss.
func TestDeadlinePresenceAcrossRandomTransitions(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	participants := []string{"creator-1", "customer-1"}

	for round := 0; round < 50; round++ {
		f := newRequestFixture(t)
		request := f.createRequest(t)
		var lastProposal *entity.DeadlineProposal

		checkInvariant := func() bool {
			stored, err := f.repo.GetByID(ctx, request.ID)
			if errors.Is(err, "NOT_FOUND") {
				// Declined requests are removed outright.
				return false
			}
			require.NoError(t, err)
			if stored.Agreed() {
				require.NotNil(t, stored.DeadlineUTC, "accepted or confirmed request must carry a deadline")
			} else {
				require.Nil(t, stored.DeadlineUTC, "pending request must not carry a deadline")
			}
			return true
		}

		require.True(t, checkInvariant())
		for step := 0; step < 12; step++ {
			switch rng.Intn(5) {
			case 0:
				deadline := f.now.Add(time.Duration(1+rng.Intn(96)) * time.Hour)
				_, _ = f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, deadline)
			case 1:
				_, _ = f.uc.ConfirmServiceRequest(ctx, "customer-1", request.ID)
			case 2:
				proposed := f.now.Add(time.Duration(100+rng.Intn(100)) * time.Hour)
				proposal, err := f.uc.ProposeDeadline(ctx, participants[rng.Intn(2)], request.ID, ProposeDeadlineInput{
					ProposedDeadline: proposed,
				})
				if err == nil {
					lastProposal = proposal
				}
			case 3:
				if lastProposal != nil {
					responder := "customer-1"
					if lastProposal.ProposedBy == entity.RoleCustomer {
						responder = "creator-1"
					}
					_, _ = f.uc.RespondToDeadlineProposal(ctx, responder, request.ID, lastProposal.ID, rng.Intn(2) == 0)
				}
			case 4:
				_ = f.uc.DeclineServiceRequest(ctx, participants[rng.Intn(2)], request.ID)
			}
			if !checkInvariant() {
				break
			}
		}
	}
}

func TestConcurrentDeadlineProposals(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t)
	request := f.createRequest(t)
	_, err := f.uc.AcceptServiceRequest(ctx, "creator-1", request.ID, f.now.Add(48*time.Hour))
	require.NoError(t, err)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.ProposeDeadline(ctx, "creator-1", request.ID, ProposeDeadlineInput{
				ProposedDeadline: f.now.Add(time.Duration(72+i) * time.Hour),
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, attemptErr := range errs {
		if attemptErr == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(attemptErr, "PROPOSAL_CONFLICT"))
	}
	assert.Equal(t, 1, succeeded)

	pending, err := f.repo.GetPendingProposal(ctx, request.ID)
	require.NoError(t, err)
	history, err := f.uc.GetDeadlineProposalHistory(ctx, "creator-1", request.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, pending.ID, history[0].ID)
}
