package chat

import (
	"encoding/json"

	"modchat/internal/models"
)

// Wire event types. Inbound events arrive on the websocket from clients;
// outbound events are what the service emits back.
const (
	// Inbound
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
	EventSendImage   = "send_image"

	// Outbound
	EventHistory = "load_previous_messages"
	EventReceive = "receive_message"
	EventError   = "send_error"
)

// InboundEvent is the envelope clients send us. Fields are populated
// depending on Type.
type InboundEvent struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	Sender   string `json:"sender,omitempty"`
	Body     string `json:"body,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// OutboundEvent is the envelope we emit to clients.
type OutboundEvent struct {
	Type     string            `json:"type"`
	Messages []*models.Message `json:"messages,omitempty"` // history replay
	Message  *models.Message   `json:"message,omitempty"`  // live delivery
	Error    string            `json:"error,omitempty"`
}

func historyEvent(messages []*models.Message) []byte {
	return marshalEvent(OutboundEvent{Type: EventHistory, Messages: messages})
}

func receiveEvent(msg *models.Message) []byte {
	return marshalEvent(OutboundEvent{Type: EventReceive, Message: msg})
}

func errorEvent(message string) []byte {
	return marshalEvent(OutboundEvent{Type: EventError, Error: message})
}

func marshalEvent(ev OutboundEvent) []byte {
	payload, _ := json.Marshal(ev)
	return payload
}
