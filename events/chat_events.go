package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MessageSentEvent is emitted after a chat message has been persisted.
type MessageSentEvent struct {
	MessageID  int64     `json:"message_id"`
	ListingID  int64     `json:"listing_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	SellerID   int64     `json:"seller_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageSentV1 is the typed event definition for persisted chat messages.
// Subject: events.chat.v1.message-sent
var MessageSentV1 = helper.EventDefinition[MessageSentEvent](
	"chat", "MessageSent", "v1",
)
