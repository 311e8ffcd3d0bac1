package websocket

import (
	"encoding/json"
	"time"

	"craftex/internal/domain/entity"
)

// Push event kinds delivered to connected sessions. Clients must treat every
// event as possibly duplicated and possibly reordered: seen events are
// applied as set unions and update events trigger a full re-fetch.
const (
	EventMessageCreated      = "message_created"
	EventMessageSeen         = "message_seen"
	EventConversationUpdated = "conversation_updated"
	EventConversationDeleted = "conversation_deleted"
)

// Inbound frame types sent by clients over the socket.
const (
	FrameTypePing              = "ping"
	FrameTypePong              = "pong"
	FrameTypeJoinConversation  = "join_conversation"
	FrameTypeLeaveConversation = "leave_conversation"
	FrameTypeMarkSeen          = "mark_seen"
)

type Event struct {
	Type           string      `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

type MessageCreatedData struct {
	Message *entity.Message `json:"message"`
}

type MessageSeenData struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	SeenBy         string `json:"seen_by"`
}

type ConversationUpdatedData struct {
	ConversationID string `json:"conversation_id"`
	// Resource hints at what changed ("service_request", "deadline_proposal",
	// "delivery"); clients re-fetch the affected lists either way.
	Resource string `json:"resource,omitempty"`
}

type ConversationDeletedData struct {
	ConversationID string `json:"conversation_id"`
}

func NewEvent(eventType, conversationID string, data interface{}) Event {
	return Event{
		Type:           eventType,
		ConversationID: conversationID,
		Data:           data,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
}

func (e Event) marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Frame is an inbound client message.
type Frame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
}
