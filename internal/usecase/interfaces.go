package usecase

import (
	ws "craftex/internal/infrastructure/websocket"
)

// EventPublisher is the push-channel surface the use cases emit protocol
// events through. Satisfied by the websocket manager; faked in tests.
type EventPublisher interface {
	SendToUser(userID string, event ws.Event)
	BroadcastToConversation(conversationID string, event ws.Event, exceptUserID string)
}
