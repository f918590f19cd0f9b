package interaction

import (
	"time"

	"github.com/example/marketplace-chat/domain/listing"
	"github.com/example/marketplace-chat/domain/user"
)

// Action is the kind of user interaction with a listing.
type Action string

const (
	ActionView          Action = "view"
	ActionClick         Action = "click"
	ActionFavorite      Action = "favorite"
	ActionAddToCart     Action = "add_to_cart"
	ActionPurchase      Action = "purchase"
	ActionShare         Action = "share"
	ActionMessageSeller Action = "message_seller"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionClick, ActionFavorite, ActionAddToCart,
		ActionPurchase, ActionShare, ActionMessageSeller:
		return true
	}
	return false
}

// ItemInteraction is one recorded signal consumed by the recommendation subsystem.
type ItemInteraction struct {
	ID          int64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      *int64           `gorm:"index" json:"user_id,omitempty"`
	User        *user.User       `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	AnonymousID string           `gorm:"size:128;index" json:"anonymous_id,omitempty"`
	ListingID   int64            `gorm:"index;not null" json:"listing_id"`
	Listing     *listing.Listing `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Action      Action           `gorm:"size:20;not null" json:"action"`
	Weight      float64          `gorm:"not null;default:1" json:"weight"`
	DeviceType  string           `gorm:"size:100" json:"device_type,omitempty"`
	SessionID   string           `gorm:"size:128" json:"session_id,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
}

// TableName returns the table name for the ItemInteraction entity.
func (ItemInteraction) TableName() string {
	return "item_interactions"
}
