package chat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/example/marketplace-chat/domain/listing"
	"golang.org/x/sync/singleflight"
)

// ErrListingNotFound is returned when the listing behind a channel does not exist.
var ErrListingNotFound = listing.ErrNotFound

// Denial reasons sent to the sender of a rejected message.
const (
	ReasonBuyerToNonSeller = "Buyers can only message the seller."
	ReasonSellerToSelf     = "Seller cannot message themselves."
)

// ListingDirectory resolves the user id of a listing's seller.
// It returns ErrListingNotFound when the listing does not exist.
type ListingDirectory interface {
	ListingSellerID(ctx context.Context, listingID int64) (int64, error)
}

// Decision is the verdict on one message.
type Decision struct {
	Allowed  bool
	Reason   string
	SellerID int64
}

// Decide applies the pairing rule: buyers may only write to the seller and
// the seller may write to anyone but themselves.
func Decide(sellerID, senderID, receiverID int64) Decision {
	d := Decision{SellerID: sellerID}
	switch {
	case senderID != sellerID && receiverID != sellerID:
		d.Reason = ReasonBuyerToNonSeller
	case senderID == sellerID && receiverID == sellerID:
		d.Reason = ReasonSellerToSelf
	default:
		d.Allowed = true
	}
	return d
}

// AccessPolicy admits channels and messages. The seller is looked up on every
// call; concurrent lookups for the same listing share one request.
type AccessPolicy struct {
	listings ListingDirectory
	group    singleflight.Group
}

// NewAccessPolicy creates an AccessPolicy backed by listings.
func NewAccessPolicy(listings ListingDirectory) *AccessPolicy {
	return &AccessPolicy{listings: listings}
}

// CanOpen admits any user onto an existing listing.
func (p *AccessPolicy) CanOpen(ctx context.Context, listingID, _ int64) error {
	_, err := p.sellerOf(ctx, listingID)
	return err
}

// CanSend decides whether senderID may message receiverID on listingID.
func (p *AccessPolicy) CanSend(ctx context.Context, listingID, senderID, receiverID int64) (Decision, error) {
	sellerID, err := p.sellerOf(ctx, listingID)
	if err != nil {
		return Decision{}, err
	}
	return Decide(sellerID, senderID, receiverID), nil
}

func (p *AccessPolicy) sellerOf(ctx context.Context, listingID int64) (int64, error) {
	v, err, _ := p.group.Do(strconv.FormatInt(listingID, 10), func() (any, error) {
		return p.listings.ListingSellerID(ctx, listingID)
	})
	if err != nil {
		return 0, fmt.Errorf("seller lookup for listing %d: %w", listingID, err)
	}
	return v.(int64), nil
}
