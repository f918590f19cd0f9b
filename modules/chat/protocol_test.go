package chat

import (
	"encoding/json"
	"testing"
	"time"

	domain "github.com/example/marketplace-chat/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  InboundEvent
	}{
		{"message", `{"action":"message","receiver_id":100,"message":"Is it available?"}`,
			MessageEvent{ReceiverID: 100, Text: "Is it available?"}},
		{"action defaults to message", `{"receiver_id":100,"message":"hi"}`,
			MessageEvent{ReceiverID: 100, Text: "hi"}},
		{"null action is message", `{"action":null,"receiver_id":100,"message":"hi"}`,
			MessageEvent{ReceiverID: 100, Text: "hi"}},
		{"text is trimmed", `{"receiver_id":100,"message":"  hi \n"}`,
			MessageEvent{ReceiverID: 100, Text: "hi"}},
		{"typing on", `{"action":"typing","receiver_id":5,"typing":true}`,
			TypingEvent{ReceiverID: 5, Typing: true}},
		{"typing off", `{"action":"typing","receiver_id":5,"typing":false}`,
			TypingEvent{ReceiverID: 5, Typing: false}},
		{"unknown action", `{"action":"wave","receiver_id":5}`,
			UnknownEvent{Action: "wave"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInbound([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInbound_Malformed(t *testing.T) {
	frames := []string{
		``,
		`not json`,
		`[1,2]`,
		`null`,
		`"message"`,
		`{"action":5,"receiver_id":1,"message":"x"}`,
		`{"message":"x"}`,
		`{"receiver_id":"100","message":"x"}`,
		`{"receiver_id":true,"message":"x"}`,
		`{"receiver_id":1.5,"message":"x"}`,
		`{"receiver_id":null,"message":"x"}`,
		`{"receiver_id":100}`,
		`{"receiver_id":100,"message":"   "}`,
		`{"receiver_id":100,"message":42}`,
		`{"action":"typing","receiver_id":5}`,
		`{"action":"typing","receiver_id":5,"typing":null}`,
		`{"action":"typing","receiver_id":5,"typing":"yes"}`,
		`{"action":"typing","typing":true}`,
	}

	for _, frame := range frames {
		_, err := ParseInbound([]byte(frame))
		assert.ErrorIs(t, err, ErrMalformedPayload, "frame %q", frame)
	}
}

func TestOutboundMessage_JSON(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	out := NewOutboundMessage(&domain.Message{
		ID: 11, SenderID: 5, ReceiverID: 100, ListingID: 7, Message: "hi", CreatedAt: created,
	})

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type":"message","id":11,"sender_id":5,"receiver_id":100,
		"listing_id":7,"message":"hi","created_at":"2024-05-01T12:00:00Z"
	}`, string(data))
}
