package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"craftex/pkg/logger"
)

// Client represents one connected session. A user with two open tabs has two
// clients, and events addressed to the user reach both.
type Client struct {
	SessionID string
	UserID    string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Manager tracks connected sessions and per-conversation subscription groups
// and fans events out to them.
type Manager struct {
	clients    map[string]*Client            // by session id
	userIndex  map[string]map[string]*Client // user id -> session id -> client
	rooms      map[string]map[string]*Client // conversation id -> session id -> client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex

	// markSeen is invoked for inbound mark_seen frames; wired at startup to
	// avoid a dependency from this package onto the use cases.
	markSeen func(ctx context.Context, userID, conversationID, messageID string) error
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		userIndex:  make(map[string]map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// SetMarkSeenFunc wires the handler for inbound mark_seen frames.
func (m *Manager) SetMarkSeenFunc(fn func(ctx context.Context, userID, conversationID, messageID string) error) {
	m.markSeen = fn
}

// Start runs the manager's registration loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				m.clients[client.SessionID] = client
				if m.userIndex[client.UserID] == nil {
					m.userIndex[client.UserID] = make(map[string]*Client)
				}
				m.userIndex[client.UserID][client.SessionID] = client
				m.mutex.Unlock()
				logger.Info("Session registered: %s (user %s)", client.SessionID, client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if _, ok := m.clients[client.SessionID]; ok {
					delete(m.clients, client.SessionID)
					delete(m.userIndex[client.UserID], client.SessionID)
					if len(m.userIndex[client.UserID]) == 0 {
						delete(m.userIndex, client.UserID)
					}
					for _, room := range m.rooms {
						delete(room, client.SessionID)
					}
					close(client.Send)
				}
				m.mutex.Unlock()
				logger.Info("Session unregistered: %s (user %s)", client.SessionID, client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// JoinConversation subscribes a session to a conversation group.
func (m *Manager) JoinConversation(conversationID string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.rooms[conversationID] == nil {
		m.rooms[conversationID] = make(map[string]*Client)
	}
	m.rooms[conversationID][client.SessionID] = client
}

// LeaveConversation unsubscribes a session from a conversation group.
func (m *Manager) LeaveConversation(conversationID string, client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if room, ok := m.rooms[conversationID]; ok {
		delete(room, client.SessionID)
		if len(room) == 0 {
			delete(m.rooms, conversationID)
		}
	}
}

// SendToUser delivers an event to every connected session of one user.
func (m *Manager) SendToUser(userID string, event Event) {
	payload, err := event.marshal()
	if err != nil {
		logger.Error("Failed to marshal %s event for user %s: %v", event.Type, userID, err)
		return
	}

	m.mutex.RLock()
	sessions := make([]*Client, 0, len(m.userIndex[userID]))
	for _, client := range m.userIndex[userID] {
		sessions = append(sessions, client)
	}
	m.mutex.RUnlock()

	for _, client := range sessions {
		m.deliver(client, payload)
	}
}

// BroadcastToConversation delivers an event to every session subscribed to
// the conversation group, optionally excluding one user's sessions.
func (m *Manager) BroadcastToConversation(conversationID string, event Event, exceptUserID string) {
	payload, err := event.marshal()
	if err != nil {
		logger.Error("Failed to marshal %s event for conversation %s: %v", event.Type, conversationID, err)
		return
	}

	m.mutex.RLock()
	sessions := make([]*Client, 0, len(m.rooms[conversationID]))
	for _, client := range m.rooms[conversationID] {
		if client.UserID != exceptUserID {
			sessions = append(sessions, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range sessions {
		m.deliver(client, payload)
	}
}

// ConnectedUserIDs lists the users with at least one live session. The
// delivery reconciler sweeps only these, so idle accounts cost nothing.
func (m *Manager) ConnectedUserIDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	ids := make([]string, 0, len(m.userIndex))
	for userID := range m.userIndex {
		ids = append(ids, userID)
	}
	return ids
}

func (m *Manager) deliver(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		// Slow consumer; drop the session, the client resyncs on reconnect.
		logger.Warn("Session %s send buffer full, dropping connection", client.SessionID)
		m.Unregister <- client
	}
}
