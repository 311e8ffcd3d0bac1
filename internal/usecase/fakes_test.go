package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"craftex/internal/domain/entity"
	"craftex/internal/infrastructure/websocket"
	"craftex/pkg/errors"
)

// In-memory fakes shared by the use case tests.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, errors.NotFound("User", nil)
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	return r.Create(ctx, user)
}

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	nextID        int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: map[string]*entity.Conversation{},
		messages:      map[string][]*entity.Message{},
	}
}

func (r *fakeConversationRepo) id(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s-%d", prefix, r.nextID)
}

func (r *fakeConversationRepo) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conversation.ID == "" {
		conversation.ID = r.id("conv")
	}
	cp := *conversation
	r.conversations[conversation.ID] = &cp
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conversations[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *fakeConversationRepo) GetOpenByPair(ctx context.Context, creatorID, customerID string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.CreatorID == creatorID && c.CustomerID == customerID && c.Status != entity.ConversationClosed {
			cp := *c
			return &cp, nil
		}
	}
	return nil, errors.NotFound("Conversation", nil)
}

func (r *fakeConversationRepo) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Conversation
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeConversationRepo) Update(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversation.ID]; !ok {
		return errors.NotFound("Conversation", nil)
	}
	cp := *conversation
	r.conversations[conversation.ID] = &cp
	return nil
}

func (r *fakeConversationRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == "" {
		message.ID = r.id("msg")
	}
	cp := *message
	cp.SeenBy = append([]string(nil), message.SeenBy...)
	r.messages[message.ConversationID] = append(r.messages[message.ConversationID], &cp)
	return nil
}

func (r *fakeConversationRepo) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages[conversationID] {
		if m.ID == messageID {
			cp := *m
			cp.SeenBy = append([]string(nil), m.SeenBy...)
			return &cp, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *fakeConversationRepo) GetMessagesByConversation(ctx context.Context, conversationID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[conversationID]
	total := int64(len(msgs))
	if offset >= len(msgs) {
		return nil, total, nil
	}
	msgs = msgs[offset:]
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[:limit]
	}
	var out []*entity.Message
	for _, m := range msgs {
		cp := *m
		cp.SeenBy = append([]string(nil), m.SeenBy...)
		out = append(out, &cp)
	}
	return out, total, nil
}

func (r *fakeConversationRepo) UpdateMessage(ctx context.Context, conversationID string, message *entity.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages[conversationID] {
		if m.ID == message.ID {
			cp := *message
			cp.SeenBy = append([]string(nil), message.SeenBy...)
			r.messages[conversationID][i] = &cp
			return nil
		}
	}
	return errors.NotFound("Message", nil)
}

type fakeServiceRequestRepo struct {
	mu        sync.Mutex
	requests  map[string]*entity.ServiceRequest
	proposals map[string][]*entity.DeadlineProposal
	nextID    int
}

func newFakeServiceRequestRepo() *fakeServiceRequestRepo {
	return &fakeServiceRequestRepo{
		requests:  map[string]*entity.ServiceRequest{},
		proposals: map[string][]*entity.DeadlineProposal{},
	}
}

func (r *fakeServiceRequestRepo) id(prefix string) string {
	r.nextID++
	return fmt.Sprintf("%s-%d", prefix, r.nextID)
}

func (r *fakeServiceRequestRepo) Create(ctx context.Context, request *entity.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request.ID == "" {
		request.ID = r.id("req")
	}
	cp := *request
	r.requests[request.ID] = &cp
	return nil
}

func (r *fakeServiceRequestRepo) GetByID(ctx context.Context, id string) (*entity.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, errors.NotFound("Service request", nil)
}

func (r *fakeServiceRequestRepo) Update(ctx context.Context, request *entity.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[request.ID]; !ok {
		return errors.NotFound("Service request", nil)
	}
	cp := *request
	r.requests[request.ID] = &cp
	return nil
}

func (r *fakeServiceRequestRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[id]; !ok {
		return errors.NotFound("Service request", nil)
	}
	delete(r.requests, id)
	delete(r.proposals, id)
	return nil
}

func (r *fakeServiceRequestRepo) list(match func(*entity.ServiceRequest) bool, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ServiceRequest
	for _, req := range r.requests {
		if !match(req) {
			continue
		}
		if len(statuses) > 0 {
			ok := false
			for _, s := range statuses {
				if req.Status == s {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeServiceRequestRepo) ListByCreator(ctx context.Context, creatorID string, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error) {
	return r.list(func(req *entity.ServiceRequest) bool { return req.CreatorID == creatorID }, statuses, limit, offset)
}

func (r *fakeServiceRequestRepo) ListByCustomer(ctx context.Context, customerID string, statuses []string, limit, offset int) ([]*entity.ServiceRequest, int64, error) {
	return r.list(func(req *entity.ServiceRequest) bool { return req.CustomerID == customerID }, statuses, limit, offset)
}

func (r *fakeServiceRequestRepo) CountPendingForUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, req := range r.requests {
		if req.CreatorID != userID && req.CustomerID != userID {
			continue
		}
		if req.Status == entity.RequestPending || req.Status == entity.RequestAcceptedByCreator {
			n++
		}
	}
	return n, nil
}

func (r *fakeServiceRequestRepo) CreateProposal(ctx context.Context, proposal *entity.DeadlineProposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if proposal.ID == "" {
		proposal.ID = r.id("prop")
	}
	cp := *proposal
	r.proposals[proposal.ServiceRequestID] = append(r.proposals[proposal.ServiceRequestID], &cp)
	return nil
}

func (r *fakeServiceRequestRepo) GetProposalByID(ctx context.Context, requestID, proposalID string) (*entity.DeadlineProposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.proposals[requestID] {
		if p.ID == proposalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.NotFound("Deadline proposal", nil)
}

func (r *fakeServiceRequestRepo) GetPendingProposal(ctx context.Context, requestID string) (*entity.DeadlineProposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.proposals[requestID] {
		if p.Status == entity.ProposalPending {
			cp := *p
			return &cp, nil
		}
	}
	return nil, errors.NotFound("Deadline proposal", nil)
}

func (r *fakeServiceRequestRepo) UpdateProposal(ctx context.Context, requestID string, proposal *entity.DeadlineProposal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.proposals[requestID] {
		if p.ID == proposal.ID {
			cp := *proposal
			r.proposals[requestID][i] = &cp
			return nil
		}
	}
	return errors.NotFound("Deadline proposal", nil)
}

func (r *fakeServiceRequestRepo) ListProposals(ctx context.Context, requestID string) ([]*entity.DeadlineProposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.proposals[requestID]
	out := make([]*entity.DeadlineProposal, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		cp := *src[i]
		out = append(out, &cp)
	}
	return out, nil
}

type fakeDeliveryRepo struct {
	mu         sync.Mutex
	deliveries map[string]*entity.Delivery
	nextID     int
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{deliveries: map[string]*entity.Delivery{}}
}

func (r *fakeDeliveryRepo) Create(ctx context.Context, delivery *entity.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delivery.ID == "" {
		r.nextID++
		delivery.ID = fmt.Sprintf("del-%d", r.nextID)
	}
	cp := *delivery
	r.deliveries[delivery.ID] = &cp
	return nil
}

func (r *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*entity.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.deliveries[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, errors.NotFound("Delivery", nil)
}

func (r *fakeDeliveryRepo) Update(ctx context.Context, delivery *entity.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deliveries[delivery.ID]; !ok {
		return errors.NotFound("Delivery", nil)
	}
	cp := *delivery
	r.deliveries[delivery.ID] = &cp
	return nil
}

func (r *fakeDeliveryRepo) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Delivery
	for _, d := range r.deliveries {
		if d.ConversationID == conversationID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeDeliveryRepo) ListAwaitingByCustomer(ctx context.Context, customerID string) ([]*entity.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Delivery
	for _, d := range r.deliveries {
		if d.CustomerID == customerID && d.Status == entity.DeliveryAwaitingPurchase {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order // keyed customerID+"/"+productID
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*entity.Order{}}
}

func (r *fakeOrderRepo) addPurchase(customerID, productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[customerID+"/"+productID] = &entity.Order{
		ID:         "order-" + productID,
		CustomerID: customerID,
		ProductID:  productID,
		Status:     "paid",
	}
}

func (r *fakeOrderRepo) GetPurchasedProduct(ctx context.Context, customerID, productID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[customerID+"/"+productID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, errors.NotFound("Order", nil)
}

type publishedEvent struct {
	userID         string
	conversationID string
	exceptUserID   string
	event          websocket.Event
}

type fakePublisher struct {
	mu     sync.Mutex
	direct []publishedEvent
	rooms  []publishedEvent
}

func (p *fakePublisher) SendToUser(userID string, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direct = append(p.direct, publishedEvent{userID: userID, event: event})
}

func (p *fakePublisher) BroadcastToConversation(conversationID string, event websocket.Event, exceptUserID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rooms = append(p.rooms, publishedEvent{conversationID: conversationID, exceptUserID: exceptUserID, event: event})
}

func (p *fakePublisher) eventsOfType(eventType string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range append(append([]publishedEvent(nil), p.direct...), p.rooms...) {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fakeSeenStore struct {
	mu   sync.Mutex
	sets map[string]map[string]bool
}

func newFakeSeenStore() *fakeSeenStore {
	return &fakeSeenStore{sets: map[string]map[string]bool{}}
}

func (s *fakeSeenStore) Add(ctx context.Context, conversationID string, messageIDs ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[conversationID] == nil {
		s.sets[conversationID] = map[string]bool{}
	}
	for _, id := range messageIDs {
		s.sets[conversationID][id] = true
	}
	return nil
}

func (s *fakeSeenStore) Members(ctx context.Context, conversationID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.sets[conversationID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeSeenStore) Drop(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, conversationID)
	return nil
}

func (s *fakeSeenStore) Close() error { return nil }
