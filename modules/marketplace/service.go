package marketplace

import (
	"context"
	"errors"
	"strings"

	"github.com/example/marketplace-chat/domain/chat"
	"github.com/example/marketplace-chat/domain/interaction"
	"github.com/example/marketplace-chat/domain/listing"
	"github.com/example/marketplace-chat/domain/user"
)

var (
	// ErrSelfMessage is returned when sender and receiver are the same user.
	ErrSelfMessage = errors.New("sender and receiver must differ")
	// ErrEmptyMessage is returned when the message text is blank.
	ErrEmptyMessage = errors.New("message text is required")
	// ErrInvalidListing is returned when listing input fails validation.
	ErrInvalidListing = errors.New("title and a non-negative price are required")
	// ErrInvalidSeller is returned when seller input fails validation.
	ErrInvalidSeller = errors.New("business name is required")
	// ErrInvalidInteraction is returned when interaction input fails validation.
	ErrInvalidInteraction = errors.New("listing and a known action are required")
	// ErrNotListingOwner is returned when a caller who is neither the owner
	// nor an admin tries to change a listing.
	ErrNotListingOwner = errors.New("not authorized to modify this listing")
)

// ListingInput carries the fields of a new listing.
type ListingInput struct {
	Title       string
	Description string
	Price       float64
	Location    string
	Category    string
}

// ListingUpdate carries the listing fields to change. Nil fields are kept.
type ListingUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Location    *string  `json:"location,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// Service holds the marketplace business rules.
type Service struct {
	repo *Repository
}

// NewService creates a new Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ListingSellerUserID returns the user id of the listing's seller.
func (s *Service) ListingSellerUserID(ctx context.Context, listingID int64) (int64, error) {
	return s.repo.ListingSellerUserID(ctx, listingID)
}

// CreateMessage validates and persists a message.
func (s *Service) CreateMessage(ctx context.Context, senderID, receiverID, listingID int64, text string) (*chat.Message, error) {
	if senderID == receiverID {
		return nil, ErrSelfMessage
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	msg := &chat.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		ListingID:  listingID,
		Message:    text,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListingMessages returns the messages on a listing, oldest first.
func (s *Service) ListingMessages(ctx context.Context, listingID, participant int64) ([]chat.Message, error) {
	return s.repo.MessagesForListing(ctx, listingID, participant)
}

// Conversations groups every message of userID by listing and then by
// counterpart, preserving first-appearance order at both levels.
func (s *Service) Conversations(ctx context.Context, userID int64) ([]chat.Conversation, error) {
	msgs, err := s.repo.MessagesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var listingIDs, userIDs []int64
	seenListing := make(map[int64]bool)
	seenUser := make(map[int64]bool)
	for _, m := range msgs {
		if !seenListing[m.ListingID] {
			seenListing[m.ListingID] = true
			listingIDs = append(listingIDs, m.ListingID)
		}
		if other := m.Counterpart(userID); !seenUser[other] {
			seenUser[other] = true
			userIDs = append(userIDs, other)
		}
	}

	titles, err := s.repo.ListingTitles(ctx, listingIDs)
	if err != nil {
		return nil, err
	}
	names, err := s.repo.UserNames(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	return groupConversations(userID, msgs, titles, names), nil
}

func groupConversations(userID int64, msgs []chat.Message, titles, names map[int64]string) []chat.Conversation {
	convs := []chat.Conversation{}
	convIndex := make(map[int64]int)
	chatIndex := make(map[int64]map[int64]int)

	for _, m := range msgs {
		ci, ok := convIndex[m.ListingID]
		if !ok {
			ci = len(convs)
			convIndex[m.ListingID] = ci
			chatIndex[m.ListingID] = make(map[int64]int)
			convs = append(convs, chat.Conversation{
				ListingID:    m.ListingID,
				ListingTitle: titles[m.ListingID],
				Chats:        []chat.Chat{},
			})
		}

		other := m.Counterpart(userID)
		ti, ok := chatIndex[m.ListingID][other]
		if !ok {
			ti = len(convs[ci].Chats)
			chatIndex[m.ListingID][other] = ti
			convs[ci].Chats = append(convs[ci].Chats, chat.Chat{
				UserID:   other,
				UserName: names[other],
			})
		}
		convs[ci].Chats[ti].Messages = append(convs[ci].Chats[ti].Messages, m)
	}
	return convs
}

// BecomeSeller creates a pending seller profile for userID and grants the seller role.
func (s *Service) BecomeSeller(ctx context.Context, userID int64, businessName, address string) (*listing.Seller, error) {
	businessName = strings.TrimSpace(businessName)
	if businessName == "" {
		return nil, ErrInvalidSeller
	}

	seller := &listing.Seller{
		UserID:       userID,
		BusinessName: businessName,
		Address:      strings.TrimSpace(address),
		Status:       listing.SellerPending,
	}
	if err := s.repo.CreateSeller(ctx, seller); err != nil {
		return nil, err
	}
	return seller, nil
}

// CreateListing posts a listing owned by the caller's seller profile.
func (s *Service) CreateListing(ctx context.Context, userID int64, in ListingInput) (*listing.Listing, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.Price < 0 {
		return nil, ErrInvalidListing
	}

	seller, err := s.repo.SellerByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	l := &listing.Listing{
		Title:       title,
		Description: in.Description,
		Price:       in.Price,
		Location:    in.Location,
		Category:    in.Category,
		SellerID:    seller.ID,
	}
	if err := s.repo.CreateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// GetListing returns a listing by id.
func (s *Service) GetListing(ctx context.Context, id int64) (*listing.Listing, error) {
	return s.repo.GetListing(ctx, id)
}

// UpdateListing applies in to a listing owned by actor. Admins may update any listing.
func (s *Service) UpdateListing(ctx context.Context, actor user.Identity, listingID int64, in ListingUpdate) (*listing.Listing, error) {
	l, err := s.ownedListing(ctx, actor, listingID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, ErrInvalidListing
		}
		l.Title = title
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, ErrInvalidListing
		}
		l.Price = *in.Price
	}
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.Location != nil {
		l.Location = *in.Location
	}
	if in.Category != nil {
		l.Category = *in.Category
	}

	if err := s.repo.UpdateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteListing removes a listing owned by actor together with its chat
// messages and interactions. Admins may delete any listing.
func (s *Service) DeleteListing(ctx context.Context, actor user.Identity, listingID int64) error {
	if _, err := s.ownedListing(ctx, actor, listingID); err != nil {
		return err
	}
	return s.repo.DeleteListing(ctx, listingID)
}

func (s *Service) ownedListing(ctx context.Context, actor user.Identity, listingID int64) (*listing.Listing, error) {
	l, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if actor.Role == user.RoleAdmin {
		return l, nil
	}
	ownerID, err := s.repo.ListingSellerUserID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if ownerID != actor.UserID {
		return nil, ErrNotListingOwner
	}
	return l, nil
}

// ApproveSeller marks the user's seller profile approved.
func (s *Service) ApproveSeller(ctx context.Context, userID int64) (*listing.Seller, error) {
	return s.repo.ApproveSeller(ctx, userID)
}

// RecordInteraction stores an interaction signal. Weight defaults to 1.
func (s *Service) RecordInteraction(ctx context.Context, in *interaction.ItemInteraction) error {
	if in.ListingID == 0 || !in.Action.Valid() {
		return ErrInvalidInteraction
	}
	if in.Weight == 0 {
		in.Weight = 1.0
	}
	return s.repo.CreateInteraction(ctx, in)
}
