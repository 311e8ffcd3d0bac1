package usecase

import (
	"context"
	"strings"
	"time"

	"craftex/internal/domain/entity"
	"craftex/internal/domain/repository"
	"craftex/internal/infrastructure/keylock"
	"craftex/internal/infrastructure/seencache"
	ws "craftex/internal/infrastructure/websocket"
	"craftex/pkg/errors"
	"craftex/pkg/logger"
)

type ConversationUseCase struct {
	conversationRepo repository.ConversationRepository
	userRepo         repository.UserRepository
	seenStore        seencache.Store
	publisher        EventPublisher
	locks            *keylock.KeyLock
}

func NewConversationUseCase(
	conversationRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	seenStore seencache.Store,
	publisher EventPublisher,
	locks *keylock.KeyLock,
) *ConversationUseCase {
	return &ConversationUseCase{
		conversationRepo: conversationRepo,
		userRepo:         userRepo,
		seenStore:        seenStore,
		publisher:        publisher,
		locks:            locks,
	}
}

type CreateConversationInput struct {
	RecipientID  string
	FirstMessage string
}

type ConversationResponse struct {
	*entity.Conversation
	OtherUser *entity.User `json:"other_user,omitempty"`
}

// pairKey serializes conversation creation per (creator, customer) pair so
// the at-most-one-open-conversation invariant holds under concurrent first
// messages.
func pairKey(creatorID, customerID string) string {
	return "pair:" + creatorID + ":" + customerID
}

// CreateOrGetConversation starts the single allowed conversation between a
// creator and a customer with its first message. When a non-closed
// conversation already exists the existing conversation is returned alongside
// a DUPLICATE_CONVERSATION error, so no duplicate row is ever created and the
// caller can route the user to the existing thread.
func (uc *ConversationUseCase) CreateOrGetConversation(ctx context.Context, starterID string, input CreateConversationInput) (*ConversationResponse, error) {
	if starterID == input.RecipientID {
		logger.Warn("User %s attempted to start a conversation with themselves", starterID)
		return nil, errors.SelfMessage()
	}

	starter, err := uc.userRepo.GetByID(ctx, starterID)
	if err != nil {
		return nil, errors.NotFound("Sender", err)
	}
	recipient, err := uc.userRepo.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, errors.NotFound("Recipient", err)
	}

	creatorID, customerID := starterID, input.RecipientID
	if starter.Role == entity.RoleCustomer {
		creatorID, customerID = input.RecipientID, starterID
	}
	if starter.Role == recipient.Role {
		return nil, errors.BadRequest("A conversation requires one creator and one customer", nil)
	}

	key := pairKey(creatorID, customerID)
	uc.locks.Lock(key)
	defer uc.locks.Unlock(key)

	existing, err := uc.conversationRepo.GetOpenByPair(ctx, creatorID, customerID)
	if err == nil && existing != nil {
		return &ConversationResponse{Conversation: existing, OtherUser: recipient}, errors.DuplicateConversation()
	}
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	conversation := &entity.Conversation{
		CreatorID:     creatorID,
		CustomerID:    customerID,
		StartedBy:     starterID,
		Status:        entity.ConversationPending,
		LastMessageAt: time.Now(),
	}

	if err := uc.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	if _, err := uc.appendMessage(ctx, conversation, starterID, input.FirstMessage); err != nil {
		return nil, err
	}

	return &ConversationResponse{Conversation: conversation, OtherUser: recipient}, nil
}

type MessageResponse struct {
	*entity.Message
	Sender *entity.User `json:"sender,omitempty"`
}

// SendMessage appends a message to an open conversation and fans the
// message_created event out to the counterpart's sessions.
func (uc *ConversationUseCase) SendMessage(ctx context.Context, senderID, conversationID, body string) (*MessageResponse, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.BadRequest("Message body cannot be empty", nil)
	}

	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !conversation.HasParticipant(senderID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}
	if conversation.Status == entity.ConversationClosed {
		return nil, errors.StateConflict("Conversation is closed")
	}

	sender, err := uc.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, errors.NotFound("Sender", err)
	}

	message, err := uc.appendMessage(ctx, conversation, senderID, body)
	if err != nil {
		return nil, err
	}

	return &MessageResponse{Message: message, Sender: sender}, nil
}

func (uc *ConversationUseCase) appendMessage(ctx context.Context, conversation *entity.Conversation, senderID, body string) (*entity.Message, error) {
	message := &entity.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Body:           body,
		SeenBy:         []string{senderID},
	}

	if err := uc.conversationRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	conversation.LastMessage = body
	conversation.LastMessageAt = message.CreatedAt
	// The first counterpart reply activates a pending conversation.
	if conversation.Status == entity.ConversationPending && senderID != conversation.StartedBy {
		conversation.Status = entity.ConversationActive
	}

	if err := uc.conversationRepo.Update(ctx, conversation); err != nil {
		return nil, err
	}

	event := ws.NewEvent(ws.EventMessageCreated, conversation.ID, ws.MessageCreatedData{Message: message})
	uc.publisher.BroadcastToConversation(conversation.ID, event, senderID)
	uc.publisher.SendToUser(conversation.Counterpart(senderID), event)

	return message, nil
}

// MarkMessageSeen records a seen receipt. The receipt set is append-only and
// idempotent: replaying the same receipt changes nothing and emits no event.
func (uc *ConversationUseCase) MarkMessageSeen(ctx context.Context, userID, conversationID, messageID string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}

	message, err := uc.conversationRepo.GetMessageByID(ctx, conversationID, messageID)
	if err != nil {
		return err
	}

	if message.SeenByUser(userID) {
		return nil
	}

	message.SeenBy = append(message.SeenBy, userID)
	if err := uc.conversationRepo.UpdateMessage(ctx, conversationID, message); err != nil {
		return err
	}

	if err := uc.seenStore.Add(ctx, conversationID, messageID); err != nil {
		// Cache-only state; the authoritative receipt is already stored.
		logger.Warn("Failed to persist seen receipt for message %s: %v", messageID, err)
	}

	event := ws.NewEvent(ws.EventMessageSeen, conversationID, ws.MessageSeenData{
		ConversationID: conversationID,
		MessageID:      messageID,
		SeenBy:         userID,
	})
	uc.publisher.BroadcastToConversation(conversationID, event, "")

	return nil
}

func (uc *ConversationUseCase) GetUserConversations(ctx context.Context, userID string, limit, offset int) ([]*ConversationResponse, int64, error) {
	conversations, total, err := uc.conversationRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var responses []*ConversationResponse
	for _, conversation := range conversations {
		resp := &ConversationResponse{Conversation: conversation}
		if other, err := uc.userRepo.GetByID(ctx, conversation.Counterpart(userID)); err == nil {
			resp.OtherUser = other
		}
		responses = append(responses, resp)
	}

	return responses, total, nil
}

func (uc *ConversationUseCase) GetConversationByID(ctx context.Context, userID, conversationID string) (*ConversationResponse, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	resp := &ConversationResponse{Conversation: conversation}
	if other, err := uc.userRepo.GetByID(ctx, conversation.Counterpart(userID)); err == nil {
		resp.OtherUser = other
	}

	return resp, nil
}

func (uc *ConversationUseCase) GetConversationMessages(ctx context.Context, userID, conversationID string, limit, offset int) ([]*MessageResponse, int64, error) {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if !conversation.HasParticipant(userID) {
		return nil, 0, errors.Forbidden("User is not a participant in this conversation", nil)
	}

	messages, total, err := uc.conversationRepo.GetMessagesByConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var responses []*MessageResponse
	for _, message := range messages {
		resp := &MessageResponse{Message: message}
		if sender, err := uc.userRepo.GetByID(ctx, message.SenderID); err == nil {
			resp.Sender = sender
		}
		responses = append(responses, resp)
	}

	return responses, total, nil
}

// DeleteConversation closes the conversation. Closure is terminal: no new
// service requests may reference it, but confirmed requests and deliveries
// tied to it stay queryable for history.
func (uc *ConversationUseCase) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	conversation, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	}
	if conversation.Status == entity.ConversationClosed {
		return nil
	}

	conversation.Status = entity.ConversationClosed
	if err := uc.conversationRepo.Update(ctx, conversation); err != nil {
		return err
	}

	if err := uc.seenStore.Drop(ctx, conversationID); err != nil {
		logger.Warn("Failed to drop seen receipts for conversation %s: %v", conversationID, err)
	}

	event := ws.NewEvent(ws.EventConversationDeleted, conversationID, ws.ConversationDeletedData{
		ConversationID: conversationID,
	})
	for _, participantID := range conversation.Participants() {
		uc.publisher.SendToUser(participantID, event)
	}
	uc.publisher.BroadcastToConversation(conversationID, event, "")

	return nil
}
