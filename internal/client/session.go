package client

import (
	"context"
	"encoding/json"
	"sync"

	"craftex/internal/domain/entity"
	"craftex/internal/infrastructure/seencache"
	ws "craftex/internal/infrastructure/websocket"
	"craftex/pkg/logger"
)

// Fetcher is the read side of the API as seen from an embedded client.
// The session never trusts event payloads for derived state; updates and
// deletes always trigger a re-fetch through this interface.
type Fetcher interface {
	FetchConversations(ctx context.Context, userID string) ([]*entity.Conversation, error)
	FetchMessages(ctx context.Context, conversationID string) ([]*entity.Message, error)
	FetchPendingCount(ctx context.Context, userID string) (int64, error)
}

// Session is the local synchronized state of one signed-in user. It is
// embedded by both the creator and the customer applications; the two
// differ only in which side of each conversation the user holds.
//
// Events may arrive duplicated or out of order. Every application path is
// therefore idempotent: seen receipts merge as set unions, creations are
// keyed by message id, and updates re-fetch authoritative state instead of
// patching from the payload.
type Session struct {
	userID  string
	fetcher Fetcher
	seen    seencache.Store

	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message          // by conversation
	seenSets      map[string]map[string]map[string]bool // conversation -> message -> user
	unread        map[string]int                        // by conversation
	pendingCount  int64
	openID        string // conversation currently on screen

	// generation counters discard responses of superseded re-fetches
	convGen map[string]uint64
	listGen uint64
}

func NewSession(userID string, fetcher Fetcher, seen seencache.Store) *Session {
	return &Session{
		userID:        userID,
		fetcher:       fetcher,
		seen:          seen,
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		seenSets:      make(map[string]map[string]map[string]bool),
		unread:        make(map[string]int),
		convGen:       make(map[string]uint64),
	}
}

// Hydrate loads the durable seen cache so indicators render correctly
// before the first sync completes.
func (s *Session) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, conversationID := range ids {
		members, err := s.seen.Members(ctx, conversationID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		for _, messageID := range members {
			s.markSeenLocked(conversationID, messageID, s.userID)
		}
		s.mu.Unlock()
	}
	return nil
}

// Resync replaces the conversation list and pending counter with
// authoritative state. Called on connect and after every reconnect.
func (s *Session) Resync(ctx context.Context) error {
	s.mu.Lock()
	s.listGen++
	gen := s.listGen
	s.mu.Unlock()

	conversations, err := s.fetcher.FetchConversations(ctx, s.userID)
	if err != nil {
		return err
	}
	pending, err := s.fetcher.FetchPendingCount(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.listGen {
		// A newer resync started while this one was in flight.
		return nil
	}
	s.conversations = make(map[string]*entity.Conversation, len(conversations))
	for _, c := range conversations {
		s.conversations[c.ID] = c
	}
	s.pendingCount = pending
	return nil
}

// Open marks a conversation as on screen and clears its unread counter.
func (s *Session) Open(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openID = conversationID
	s.unread[conversationID] = 0
}

// Close marks no conversation as on screen.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openID = ""
}

// ApplyRaw decodes and applies one push frame from the socket.
func (s *Session) ApplyRaw(ctx context.Context, payload []byte) error {
	var event ws.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	return s.Apply(ctx, event)
}

// Apply folds one push event into local state.
func (s *Session) Apply(ctx context.Context, event ws.Event) error {
	switch event.Type {
	case ws.EventMessageCreated:
		return s.applyMessageCreated(event)
	case ws.EventMessageSeen:
		return s.applyMessageSeen(event)
	case ws.EventConversationUpdated:
		return s.refetch(ctx, event.ConversationID)
	case ws.EventConversationDeleted:
		return s.applyConversationDeleted(ctx, event.ConversationID)
	default:
		logger.Debug("Ignoring unknown event type %q", event.Type)
		return nil
	}
}

func (s *Session) applyMessageCreated(event ws.Event) error {
	data, err := decode[ws.MessageCreatedData](event.Data)
	if err != nil || data.Message == nil {
		return err
	}
	message := data.Message

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.messages[message.ConversationID] {
		if existing.ID == message.ID {
			return nil
		}
	}
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], message)
	for _, seenBy := range message.SeenBy {
		s.markSeenLocked(message.ConversationID, message.ID, seenBy)
	}

	if conv, ok := s.conversations[message.ConversationID]; ok {
		conv.LastMessage = message.Body
		conv.LastMessageAt = message.CreatedAt
	}

	// Own messages and the on-screen conversation never count as unread.
	if message.SenderID != s.userID && s.openID != message.ConversationID {
		s.unread[message.ConversationID]++
	}
	return nil
}

func (s *Session) applyMessageSeen(event ws.Event) error {
	data, err := decode[ws.MessageSeenData](event.Data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markSeenLocked(data.ConversationID, data.MessageID, data.SeenBy)
	return nil
}

func (s *Session) markSeenLocked(conversationID, messageID, userID string) {
	if s.seenSets[conversationID] == nil {
		s.seenSets[conversationID] = make(map[string]map[string]bool)
	}
	if s.seenSets[conversationID][messageID] == nil {
		s.seenSets[conversationID][messageID] = make(map[string]bool)
	}
	s.seenSets[conversationID][messageID][userID] = true
}

// refetch refreshes the messages of one conversation and the pending
// counter. Responses of an older refetch for the same conversation are
// discarded when a newer one has started since.
func (s *Session) refetch(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	s.convGen[conversationID]++
	gen := s.convGen[conversationID]
	s.mu.Unlock()

	messages, err := s.fetcher.FetchMessages(ctx, conversationID)
	if err != nil {
		return err
	}
	pending, err := s.fetcher.FetchPendingCount(ctx, s.userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.convGen[conversationID] {
		return nil
	}
	s.messages[conversationID] = messages
	for _, message := range messages {
		for _, seenBy := range message.SeenBy {
			s.markSeenLocked(conversationID, message.ID, seenBy)
		}
	}
	s.pendingCount = pending
	return nil
}

func (s *Session) applyConversationDeleted(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	delete(s.unread, conversationID)
	if s.openID == conversationID {
		s.openID = ""
	}
	s.mu.Unlock()

	// Pending requests tied to the conversation may have gone with it.
	pending, err := s.fetcher.FetchPendingCount(ctx, s.userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.pendingCount = pending
	s.mu.Unlock()
	return nil
}

// UnreadCount returns the unread badge for one conversation.
func (s *Session) UnreadCount(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[conversationID]
}

// PendingCount returns the requests-awaiting-action badge.
func (s *Session) PendingCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingCount
}

// Seen reports whether userID has seen the message, from local state.
func (s *Session) Seen(conversationID, messageID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seenSets[conversationID][messageID][userID]
}

// Messages returns the local copy of a conversation's messages.
func (s *Session) Messages(conversationID string) []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.Message(nil), s.messages[conversationID]...)
}

// Conversations returns the local conversation list.
func (s *Session) Conversations() []*entity.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	return out
}

// decode round-trips an event payload into its typed form. Payloads arrive
// as map[string]interface{} after json.Unmarshal of the frame.
func decode[T any](data interface{}) (T, error) {
	var out T
	raw, err := json.Marshal(data)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
