package marketplace

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/marketplace-chat/domain/chat"
	"github.com/example/marketplace-chat/domain/interaction"
	"github.com/example/marketplace-chat/domain/listing"
	"github.com/example/marketplace-chat/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// MarketplacePort is the view other modules have of the marketplace module.
type MarketplacePort interface {
	ListingSellerID(ctx context.Context, listingID int64) (int64, error)
	CreateMessage(ctx context.Context, senderID, receiverID, listingID int64, text string) (*chat.Message, error)
	ListingMessages(ctx context.Context, listingID, participant int64) ([]chat.Message, error)
	Conversations(ctx context.Context, userID int64) ([]chat.Conversation, error)
	BecomeSeller(ctx context.Context, userID int64, businessName, address string) (*listing.Seller, error)
	CreateListing(ctx context.Context, userID int64, in ListingInput) (*listing.Listing, error)
	GetListing(ctx context.Context, listingID int64) (*listing.Listing, error)
	UpdateListing(ctx context.Context, actor user.Identity, listingID int64, in ListingUpdate) (*listing.Listing, error)
	DeleteListing(ctx context.Context, actor user.Identity, listingID int64) error
	ApproveSeller(ctx context.Context, userID int64) (*listing.Seller, error)
	RecordInteraction(ctx context.Context, in interaction.ItemInteraction) (int64, error)
}

// MarketplaceAdapter implements MarketplacePort over the service container.
type MarketplaceAdapter struct {
	container mono.ServiceContainer
}

var _ MarketplacePort = (*MarketplaceAdapter)(nil)

// NewMarketplaceAdapter creates a new MarketplaceAdapter.
func NewMarketplaceAdapter(container mono.ServiceContainer) *MarketplaceAdapter {
	return &MarketplaceAdapter{container: container}
}

func callService[Req, Resp any](ctx context.Context, c mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx, c, service, json.Marshal, json.Unmarshal, req, resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// ListingSellerID returns the user id of the listing's seller, or
// listing.ErrNotFound.
func (a *MarketplaceAdapter) ListingSellerID(ctx context.Context, listingID int64) (int64, error) {
	var resp GetListingSellerResponse
	if err := callService(ctx, a.container, "get-listing-seller", &GetListingSellerRequest{ListingID: listingID}, &resp); err != nil {
		return 0, err
	}
	if !resp.Found {
		return 0, listing.ErrNotFound
	}
	return resp.SellerID, nil
}

// CreateMessage persists a chat message.
func (a *MarketplaceAdapter) CreateMessage(ctx context.Context, senderID, receiverID, listingID int64, text string) (*chat.Message, error) {
	req := CreateMessageRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		ListingID:  listingID,
		Message:    text,
	}
	var resp CreateMessageResponse
	if err := callService(ctx, a.container, "create-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// ListingMessages lists messages on a listing, oldest first.
func (a *MarketplaceAdapter) ListingMessages(ctx context.Context, listingID, participant int64) ([]chat.Message, error) {
	var resp ListListingMessagesResponse
	req := ListListingMessagesRequest{ListingID: listingID, Participant: participant}
	if err := callService(ctx, a.container, "list-listing-messages", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Conversations lists the grouped conversations of a user.
func (a *MarketplaceAdapter) Conversations(ctx context.Context, userID int64) ([]chat.Conversation, error) {
	var resp ListUserConversationsResponse
	if err := callService(ctx, a.container, "list-user-conversations", &ListUserConversationsRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// BecomeSeller creates a seller profile for the user.
func (a *MarketplaceAdapter) BecomeSeller(ctx context.Context, userID int64, businessName, address string) (*listing.Seller, error) {
	var resp BecomeSellerResponse
	req := BecomeSellerRequest{UserID: userID, BusinessName: businessName, Address: address}
	if err := callService(ctx, a.container, "become-seller", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Seller, nil
}

// CreateListing posts a listing for the user's seller profile.
func (a *MarketplaceAdapter) CreateListing(ctx context.Context, userID int64, in ListingInput) (*listing.Listing, error) {
	req := CreateListingRequest{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Location:    in.Location,
		Category:    in.Category,
	}
	var resp CreateListingResponse
	if err := callService(ctx, a.container, "create-listing", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Listing, nil
}

// GetListing fetches a listing, or listing.ErrNotFound.
func (a *MarketplaceAdapter) GetListing(ctx context.Context, listingID int64) (*listing.Listing, error) {
	var resp GetListingResponse
	if err := callService(ctx, a.container, "get-listing", &GetListingRequest{ListingID: listingID}, &resp); err != nil {
		return nil, err
	}
	if !resp.Found {
		return nil, listing.ErrNotFound
	}
	return &resp.Listing, nil
}

// UpdateListing changes a listing the actor owns, or any listing for admins.
func (a *MarketplaceAdapter) UpdateListing(ctx context.Context, actor user.Identity, listingID int64, in ListingUpdate) (*listing.Listing, error) {
	var resp UpdateListingResponse
	req := UpdateListingRequest{Actor: actor, ListingID: listingID, Update: in}
	if err := callService(ctx, a.container, "update-listing", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Listing, nil
}

// DeleteListing removes a listing and everything that references it.
func (a *MarketplaceAdapter) DeleteListing(ctx context.Context, actor user.Identity, listingID int64) error {
	var resp DeleteListingResponse
	req := DeleteListingRequest{Actor: actor, ListingID: listingID}
	return callService(ctx, a.container, "delete-listing", &req, &resp)
}

// ApproveSeller approves the user's seller profile.
func (a *MarketplaceAdapter) ApproveSeller(ctx context.Context, userID int64) (*listing.Seller, error) {
	var resp ApproveSellerResponse
	if err := callService(ctx, a.container, "approve-seller", &ApproveSellerRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp.Seller, nil
}

// RecordInteraction stores an interaction and returns its id.
func (a *MarketplaceAdapter) RecordInteraction(ctx context.Context, in interaction.ItemInteraction) (int64, error) {
	var resp RecordInteractionResponse
	if err := callService(ctx, a.container, "record-interaction", &RecordInteractionRequest{Interaction: in}, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}
