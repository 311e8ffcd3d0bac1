package websocket

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"craftex/pkg/logger"
)

// ReadPump reads frames from the socket until it closes.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("Read error on session %s: %v", c.SessionID, err)
			}
			break
		}
		m.handleFrame(c, payload)
	}
}

// WritePump flushes queued events to the socket.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		payload, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Error("Write error on session %s: %v", c.SessionID, err)
			return
		}
	}
}

func (m *Manager) handleFrame(client *Client, payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		logger.Warn("Malformed frame from session %s: %v", client.SessionID, err)
		return
	}

	switch frame.Type {
	case FrameTypePing:
		m.deliverEvent(client, NewEvent(FrameTypePong, "", nil))

	case FrameTypeJoinConversation:
		if frame.ConversationID == "" {
			return
		}
		m.JoinConversation(frame.ConversationID, client)
		logger.Debug("Session %s joined conversation %s", client.SessionID, frame.ConversationID)

	case FrameTypeLeaveConversation:
		if frame.ConversationID == "" {
			return
		}
		m.LeaveConversation(frame.ConversationID, client)
		logger.Debug("Session %s left conversation %s", client.SessionID, frame.ConversationID)

	case FrameTypeMarkSeen:
		if m.markSeen == nil || frame.ConversationID == "" || frame.MessageID == "" {
			return
		}
		if err := m.markSeen(context.Background(), client.UserID, frame.ConversationID, frame.MessageID); err != nil {
			logger.Warn("mark_seen from %s failed: %v", client.UserID, err)
		}

	default:
		logger.Warn("Unknown frame type %q from session %s", frame.Type, client.SessionID)
	}
}

func (m *Manager) deliverEvent(client *Client, event Event) {
	payload, err := event.marshal()
	if err != nil {
		return
	}
	m.deliver(client, payload)
}
