package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domain "github.com/example/marketplace-chat/domain/chat"
)

// ErrMalformedPayload is returned for frames that are not a well-formed event.
var ErrMalformedPayload = errors.New("malformed payload")

// Inbound action names. A frame without an action is a message.
const (
	ActionMessage = "message"
	ActionTyping  = "typing"
)

// InboundEvent is one decoded client frame: MessageEvent, TypingEvent or
// UnknownEvent.
type InboundEvent interface {
	inbound()
}

// MessageEvent is a chat message addressed to ReceiverID. Text is trimmed and non-empty.
type MessageEvent struct {
	ReceiverID int64
	Text       string
}

// TypingEvent toggles the typing indicator shown to ReceiverID.
type TypingEvent struct {
	ReceiverID int64
	Typing     bool
}

// UnknownEvent is a well-formed frame with an action this server does not handle.
type UnknownEvent struct {
	Action string
}

func (MessageEvent) inbound() {}
func (TypingEvent) inbound()  {}
func (UnknownEvent) inbound() {}

// ParseInbound decodes a client frame. It returns ErrMalformedPayload when the
// frame is not a JSON object or a required field is missing or mistyped.
func ParseInbound(data []byte) (InboundEvent, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, ErrMalformedPayload
	}

	action := ActionMessage
	if raw, ok := fields["action"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &action); err != nil {
			return nil, ErrMalformedPayload
		}
	}

	switch action {
	case ActionMessage:
		receiverID, ok := decodeInt(fields["receiver_id"])
		if !ok {
			return nil, ErrMalformedPayload
		}
		var text string
		if raw, present := fields["message"]; !present || json.Unmarshal(raw, &text) != nil {
			return nil, ErrMalformedPayload
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, ErrMalformedPayload
		}
		return MessageEvent{ReceiverID: receiverID, Text: text}, nil

	case ActionTyping:
		receiverID, ok := decodeInt(fields["receiver_id"])
		if !ok {
			return nil, ErrMalformedPayload
		}
		var typing bool
		if raw, present := fields["typing"]; !present || json.Unmarshal(raw, &typing) != nil || isNull(raw) {
			return nil, ErrMalformedPayload
		}
		return TypingEvent{ReceiverID: receiverID, Typing: typing}, nil

	default:
		return UnknownEvent{Action: action}, nil
	}
}

// decodeInt accepts only JSON integer numbers, not numeric strings.
func decodeInt(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	v, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Outbound event type tags.
const (
	TypeMessage = "message"
	TypeTyping  = "typing"
	TypeError   = "error"
)

// OutboundMessage is a persisted message as delivered to clients.
type OutboundMessage struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	ListingID  int64     `json:"listing_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewOutboundMessage builds the client view of a stored message.
func NewOutboundMessage(m *domain.Message) OutboundMessage {
	return OutboundMessage{
		Type:       TypeMessage,
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		ListingID:  m.ListingID,
		Message:    m.Message,
		CreatedAt:  m.CreatedAt,
	}
}

// OutboundTyping is a typing indicator. It is never stored.
type OutboundTyping struct {
	Type       string    `json:"type"`
	ListingID  int64     `json:"listing_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Typing     bool      `json:"typing"`
	Timestamp  time.Time `json:"timestamp"`
}

// OutboundError is sent only to the connection whose frame was rejected.
type OutboundError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewOutboundError builds an error event.
func NewOutboundError(msg string) OutboundError {
	return OutboundError{Type: TypeError, Message: msg}
}
