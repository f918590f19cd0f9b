package marketplace

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/marketplace-chat/domain/chat"
	"github.com/example/marketplace-chat/domain/interaction"
	"github.com/example/marketplace-chat/domain/listing"
	"github.com/example/marketplace-chat/domain/user"
	"gorm.io/gorm"
)

var (
	// ErrListingNotFound is returned when a listing does not exist.
	ErrListingNotFound = listing.ErrNotFound
	// ErrSellerExists is returned when a user already has a seller profile.
	ErrSellerExists = errors.New("seller profile already exists")
	// ErrNotSeller is returned when an operation needs a seller profile the user does not have.
	ErrNotSeller = errors.New("seller profile required")
	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Repository is the gorm-backed store for sellers, listings, chat messages
// and interactions.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListingSellerUserID returns the user id of the seller owning the listing.
func (r *Repository) ListingSellerUserID(ctx context.Context, listingID int64) (int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("listings").
		Joins("JOIN sellers ON sellers.id = listings.seller_id").
		Where("listings.id = ?", listingID).
		Limit(1).
		Pluck("sellers.user_id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to look up listing seller: %w", err)
	}
	if len(ids) == 0 {
		return 0, ErrListingNotFound
	}
	return ids[0], nil
}

// CreateMessage persists a chat message and fills in its id and timestamp.
// Both participants and the listing must exist.
func (r *Repository) CreateMessage(ctx context.Context, msg *chat.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var listings int64
		if err := tx.Model(&listing.Listing{}).Where("id = ?", msg.ListingID).Count(&listings).Error; err != nil {
			return fmt.Errorf("failed to check listing: %w", err)
		}
		if listings == 0 {
			return ErrListingNotFound
		}

		var users int64
		err := tx.Model(&user.User{}).
			Where("id IN ?", []int64{msg.SenderID, msg.ReceiverID}).
			Count(&users).Error
		if err != nil {
			return fmt.Errorf("failed to check participants: %w", err)
		}
		if users != 2 {
			return ErrUserNotFound
		}

		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		return nil
	})
}

// MessagesForListing returns the messages on a listing in ascending creation
// order. A non-zero participant restricts the result to messages it sent or
// received.
func (r *Repository) MessagesForListing(ctx context.Context, listingID, participant int64) ([]chat.Message, error) {
	q := r.db.WithContext(ctx).Where("listing_id = ?", listingID)
	if participant != 0 {
		q = q.Where("sender_id = ? OR receiver_id = ?", participant, participant)
	}

	var msgs []chat.Message
	if err := q.Order("created_at ASC, id ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// MessagesForUser returns every message the user sent or received, oldest first.
func (r *Repository) MessagesForUser(ctx context.Context, userID int64) ([]chat.Message, error) {
	var msgs []chat.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user messages: %w", err)
	}
	return msgs, nil
}

// ListingTitles maps listing ids to titles. Missing listings are omitted.
func (r *Repository) ListingTitles(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	var rows []listing.Listing
	if err := r.db.WithContext(ctx).Select("id", "title").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load listing titles: %w", err)
	}
	for _, l := range rows {
		titles[l.ID] = l.Title
	}
	return titles, nil
}

// UserNames maps user ids to display names. Missing users are omitted.
func (r *Repository) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var rows []user.User
	if err := r.db.WithContext(ctx).Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load user names: %w", err)
	}
	for _, u := range rows {
		names[u.ID] = u.Name
	}
	return names, nil
}

// CreateSeller creates the seller profile and promotes the user to the seller
// role in one transaction.
func (r *Repository) CreateSeller(ctx context.Context, seller *listing.Seller) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&listing.Seller{}).Where("user_id = ?", seller.UserID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check seller profile: %w", err)
		}
		if count > 0 {
			return ErrSellerExists
		}

		res := tx.Model(&user.User{}).Where("id = ?", seller.UserID).Update("role", user.RoleSeller)
		if res.Error != nil {
			return fmt.Errorf("failed to promote user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		if err := tx.Create(seller).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSellerExists
			}
			return fmt.Errorf("failed to create seller: %w", err)
		}
		return nil
	})
}

// SellerByUserID returns the seller profile of a user.
func (r *Repository) SellerByUserID(ctx context.Context, userID int64) (*listing.Seller, error) {
	var seller listing.Seller
	if err := r.db.WithContext(ctx).First(&seller, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotSeller
		}
		return nil, fmt.Errorf("failed to find seller: %w", err)
	}
	return &seller, nil
}

// CreateListing inserts a listing.
func (r *Repository) CreateListing(ctx context.Context, l *listing.Listing) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

// GetListing returns a listing by id.
func (r *Repository) GetListing(ctx context.Context, id int64) (*listing.Listing, error) {
	var l listing.Listing
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &l, nil
}

// UpdateListing saves every column of l.
func (r *Repository) UpdateListing(ctx context.Context, l *listing.Listing) error {
	if err := r.db.WithContext(ctx).Omit("Seller").Save(l).Error; err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}

// DeleteListing removes a listing with its chat messages and interactions.
// The rows are deleted explicitly so the result does not depend on the
// driver enforcing foreign keys.
func (r *Repository) DeleteListing(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", id).Delete(&chat.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete listing messages: %w", err)
		}
		if err := tx.Where("listing_id = ?", id).Delete(&interaction.ItemInteraction{}).Error; err != nil {
			return fmt.Errorf("failed to delete listing interactions: %w", err)
		}
		res := tx.Delete(&listing.Listing{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrListingNotFound
		}
		return nil
	})
}

// ApproveSeller sets the seller profile of userID to approved and makes sure
// the account carries the seller role.
func (r *Repository) ApproveSeller(ctx context.Context, userID int64) (*listing.Seller, error) {
	var seller listing.Seller
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&seller, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotSeller
			}
			return fmt.Errorf("failed to find seller: %w", err)
		}
		if err := tx.Model(&seller).Update("status", listing.SellerApproved).Error; err != nil {
			return fmt.Errorf("failed to approve seller: %w", err)
		}
		seller.Status = listing.SellerApproved
		if err := tx.Model(&user.User{}).Where("id = ?", userID).Update("role", user.RoleSeller).Error; err != nil {
			return fmt.Errorf("failed to promote user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// CreateInteraction records an interaction.
func (r *Repository) CreateInteraction(ctx context.Context, in *interaction.ItemInteraction) error {
	if err := r.db.WithContext(ctx).Create(in).Error; err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

// InteractionsForListing returns the recorded interactions of a listing, oldest first.
func (r *Repository) InteractionsForListing(ctx context.Context, listingID int64) ([]interaction.ItemInteraction, error) {
	var rows []interaction.ItemInteraction
	if err := r.db.WithContext(ctx).Where("listing_id = ?", listingID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	return rows, nil
}
