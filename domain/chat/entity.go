package chat

import (
	"time"

	"github.com/example/marketplace-chat/domain/listing"
	"github.com/example/marketplace-chat/domain/user"
)

// Message is a persisted chat message between two users about a listing.
// Deleting either participant or the listing deletes the message.
type Message struct {
	ID         int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID   int64            `gorm:"index;not null" json:"sender_id"`
	Sender     *user.User       `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"-"`
	ReceiverID int64            `gorm:"index;not null" json:"receiver_id"`
	Receiver   *user.User       `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"-"`
	ListingID  int64            `gorm:"index;not null" json:"listing_id"`
	Listing    *listing.Listing `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Message    string           `gorm:"type:text;not null" json:"message"`
	CreatedAt  time.Time        `gorm:"index" json:"created_at"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "chat_messages"
}

// Counterpart returns the other participant of m from userID's point of view.
func (m Message) Counterpart(userID int64) int64 {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Chat is one conversation thread with a single counterpart on a listing.
type Chat struct {
	UserID   int64     `json:"user_id"`
	UserName string    `json:"user_name"`
	Messages []Message `json:"messages"`
}

// Conversation groups every thread a user has on one listing.
type Conversation struct {
	ListingID    int64  `json:"listing_id"`
	ListingTitle string `json:"listing_title"`
	Chats        []Chat `json:"chats"`
}
