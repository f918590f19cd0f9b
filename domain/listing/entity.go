package listing

import (
	"errors"
	"time"
)

// SellerStatus is the approval state of a seller profile.
type SellerStatus string

const (
	SellerPending  SellerStatus = "pending"
	SellerApproved SellerStatus = "approved"
	SellerRejected SellerStatus = "rejected"
)

// Seller is the business profile attached to a seller account.
type Seller struct {
	ID           int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64        `gorm:"uniqueIndex;not null" json:"user_id"`
	BusinessName string       `gorm:"size:150;not null" json:"business_name"`
	Address      string       `gorm:"size:255" json:"address"`
	Logo         string       `gorm:"size:255" json:"logo,omitempty"`
	Status       SellerStatus `gorm:"size:10;not null;default:pending" json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

// TableName returns the table name for the Seller entity.
func (Seller) TableName() string {
	return "sellers"
}

// Listing is an item posted for sale by a seller.
type Listing struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string    `gorm:"size:150;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"not null" json:"price"`
	Location    string    `gorm:"size:150" json:"location"`
	Category    string    `gorm:"size:100" json:"category"`
	SellerID    int64     `gorm:"index;not null" json:"seller_id"`
	Seller      *Seller   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the table name for the Listing entity.
func (Listing) TableName() string {
	return "listings"
}

// ErrNotFound is returned when a listing does not exist.
var ErrNotFound = errors.New("listing not found")
