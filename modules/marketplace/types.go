package marketplace

import (
	"github.com/example/marketplace-chat/domain/chat"
	"github.com/example/marketplace-chat/domain/interaction"
	"github.com/example/marketplace-chat/domain/listing"
	"github.com/example/marketplace-chat/domain/user"
)

// GetListingSellerRequest asks for the seller of a listing.
type GetListingSellerRequest struct {
	ListingID int64 `json:"listing_id"`
}

// GetListingSellerResponse reports the seller's user id. Found is false when
// the listing does not exist.
type GetListingSellerResponse struct {
	Found    bool  `json:"found"`
	SellerID int64 `json:"seller_id,omitempty"`
}

// CreateMessageRequest persists a chat message.
type CreateMessageRequest struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	ListingID  int64  `json:"listing_id"`
	Message    string `json:"message"`
}

// CreateMessageResponse carries the stored message.
type CreateMessageResponse struct {
	Message chat.Message `json:"message"`
}

// ListListingMessagesRequest lists messages on a listing. Participant zero
// means every message.
type ListListingMessagesRequest struct {
	ListingID   int64 `json:"listing_id"`
	Participant int64 `json:"participant,omitempty"`
}

// ListListingMessagesResponse carries messages oldest first.
type ListListingMessagesResponse struct {
	Messages []chat.Message `json:"messages"`
}

// ListUserConversationsRequest lists a user's grouped conversations.
type ListUserConversationsRequest struct {
	UserID int64 `json:"user_id"`
}

// ListUserConversationsResponse carries grouped conversations.
type ListUserConversationsResponse struct {
	Conversations []chat.Conversation `json:"conversations"`
}

// BecomeSellerRequest creates a seller profile.
type BecomeSellerRequest struct {
	UserID       int64  `json:"user_id"`
	BusinessName string `json:"business_name"`
	Address      string `json:"address,omitempty"`
}

// BecomeSellerResponse carries the created profile.
type BecomeSellerResponse struct {
	Seller listing.Seller `json:"seller"`
}

// CreateListingRequest posts a listing on behalf of UserID.
type CreateListingRequest struct {
	UserID      int64   `json:"user_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	Category    string  `json:"category"`
}

// CreateListingResponse carries the created listing.
type CreateListingResponse struct {
	Listing listing.Listing `json:"listing"`
}

// GetListingRequest fetches one listing.
type GetListingRequest struct {
	ListingID int64 `json:"listing_id"`
}

// GetListingResponse carries the listing when Found.
type GetListingResponse struct {
	Found   bool            `json:"found"`
	Listing listing.Listing `json:"listing"`
}

// UpdateListingRequest changes a listing on behalf of Actor.
type UpdateListingRequest struct {
	Actor     user.Identity `json:"actor"`
	ListingID int64         `json:"listing_id"`
	Update    ListingUpdate `json:"update"`
}

// UpdateListingResponse carries the updated listing.
type UpdateListingResponse struct {
	Listing listing.Listing `json:"listing"`
}

// DeleteListingRequest deletes a listing on behalf of Actor.
type DeleteListingRequest struct {
	Actor     user.Identity `json:"actor"`
	ListingID int64         `json:"listing_id"`
}

// DeleteListingResponse acknowledges a deletion.
type DeleteListingResponse struct {
	Deleted bool `json:"deleted"`
}

// ApproveSellerRequest approves the seller profile of a user.
type ApproveSellerRequest struct {
	UserID int64 `json:"user_id"`
}

// ApproveSellerResponse carries the approved profile.
type ApproveSellerResponse struct {
	Seller listing.Seller `json:"seller"`
}

// RecordInteractionRequest stores an interaction.
type RecordInteractionRequest struct {
	Interaction interaction.ItemInteraction `json:"interaction"`
}

// RecordInteractionResponse carries the stored interaction id.
type RecordInteractionResponse struct {
	ID int64 `json:"id"`
}
