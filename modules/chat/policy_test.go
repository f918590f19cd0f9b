package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/example/marketplace-chat/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	const seller = 100

	tests := []struct {
		name     string
		sender   int64
		receiver int64
		allowed  bool
		reason   string
	}{
		{"buyer to seller", 5, seller, true, ""},
		{"seller to buyer", seller, 5, true, ""},
		{"buyer to another buyer", 5, 42, false, ReasonBuyerToNonSeller},
		{"seller to self", seller, seller, false, ReasonSellerToSelf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(seller, tt.sender, tt.receiver)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, int64(seller), d.SellerID)
		})
	}
}

func TestAccessPolicy_CanOpen(t *testing.T) {
	p := NewAccessPolicy(&fakeListings{sellers: map[int64]int64{7: 100}})
	ctx := context.Background()

	assert.NoError(t, p.CanOpen(ctx, 7, 5))
	assert.NoError(t, p.CanOpen(ctx, 7, 100))
	assert.ErrorIs(t, p.CanOpen(ctx, 8, 5), ErrListingNotFound)
}

func TestAccessPolicy_CanSendLooksUpEveryTime(t *testing.T) {
	listings := &fakeListings{sellers: map[int64]int64{7: 100}}
	p := NewAccessPolicy(listings)
	ctx := context.Background()

	d, err := p.CanSend(ctx, 7, 5, 100)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	listings.remove(7)
	_, err = p.CanSend(ctx, 7, 5, 100)
	assert.ErrorIs(t, err, ErrListingNotFound)
	assert.Equal(t, 2, listings.calls)
}

func TestAccessPolicy_LookupError(t *testing.T) {
	boom := errors.New("service unavailable")
	p := NewAccessPolicy(&fakeListings{err: boom})

	_, err := p.CanSend(context.Background(), 7, 5, 100)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrListingNotFound)
}

func TestAuthGate_Resolve(t *testing.T) {
	gate := NewAuthGate(fakeIdentities{
		"good":   {UserID: 5, Email: "b@example.com", Role: user.RoleBuyer},
		"nobody": {UserID: 0},
	})
	ctx := context.Background()

	id, err := gate.Resolve(ctx, "  good ")
	require.NoError(t, err)
	assert.Equal(t, int64(5), id.UserID)

	for _, token := range []string{"", "   ", "bogus", "nobody"} {
		_, err := gate.Resolve(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthenticated, "token %q", token)
	}
}
