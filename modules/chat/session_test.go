package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/marketplace-chat/domain/user"
	"github.com/gofiber/contrib/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	listingBike = 7
	sellerID    = 100
	buyerID     = 5
	otherBuyer  = 42
)

type chatFixture struct {
	svc      *Service
	listings *fakeListings
	store    *fakeStore
	notifier *fakeNotifier
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		listings: &fakeListings{sellers: map[int64]int64{listingBike: sellerID}},
		store:    &fakeStore{},
		notifier: &fakeNotifier{},
	}
	cfg := DefaultConfig()
	cfg.MaxMessageLength = 20
	f.svc = NewService(cfg, Deps{
		Identities: fakeIdentities{
			"seller-token": {UserID: sellerID, Role: user.RoleSeller},
			"buyer-token":  {UserID: buyerID, Role: user.RoleBuyer},
			"other-token":  {UserID: otherBuyer, Role: user.RoleBuyer},
		},
		Listings: f.listings,
		Store:    f.store,
		Notifier: f.notifier,
	}, &mockLogger{})
	return f
}

type openChannel struct {
	tr   *fakeTransport
	done chan *Session
}

// open starts a session and waits until it is registered.
func (f *chatFixture) open(t *testing.T, listingParam, token string, userID int64) *openChannel {
	t.Helper()
	var listingID int64 = listingBike
	before := len(f.svc.Registry().ConnectionsFor(listingID, userID))

	ch := f.start(listingParam, token)
	require.Eventually(t, func() bool {
		return len(f.svc.Registry().ConnectionsFor(listingID, userID)) == before+1
	}, time.Second, 5*time.Millisecond)
	return ch
}

func (f *chatFixture) start(listingParam, token string) *openChannel {
	ch := &openChannel{tr: newFakeTransport(), done: make(chan *Session, 1)}
	go func() {
		ch.done <- f.svc.Serve(context.Background(), ch.tr, listingParam, token)
	}()
	return ch
}

func (c *openChannel) wait(t *testing.T) *Session {
	t.Helper()
	select {
	case s := <-c.done:
		return s
	case <-time.After(time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func (c *openChannel) waitFrames(t *testing.T, typ string, n int) []map[string]any {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.tr.framesOfType(typ)) >= n
	}, time.Second, 5*time.Millisecond)
	return c.tr.framesOfType(typ)
}

func TestSession_RejectsBeforeAdmission(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		token   string
	}{
		{"missing token", "7", ""},
		{"unknown token", "7", "forged"},
		{"non-numeric listing", "bike", "buyer-token"},
		{"zero listing", "0", "buyer-token"},
		{"unknown listing", "8", "buyer-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newChatFixture(t)
			ch := f.start(tt.listing, tt.token)
			s := ch.wait(t)

			assert.Equal(t, StateClosed, s.State())
			assert.Equal(t, websocket.ClosePolicyViolation, s.CloseCode())
			assert.Equal(t, websocket.ClosePolicyViolation, ch.tr.closeCode())
			assert.True(t, ch.tr.closed.Load())
			listings, _ := f.svc.Registry().Stats()
			assert.Zero(t, listings)
		})
	}
}

func TestSession_BuyerToSellerDeliveredToBoth(t *testing.T) {
	f := newChatFixture(t)
	seller := f.open(t, "7", "seller-token", sellerID)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	buyer.tr.send(map[string]any{"action": "message", "receiver_id": sellerID, "message": "Is it available?"})

	got := seller.waitFrames(t, TypeMessage, 1)
	echo := buyer.waitFrames(t, TypeMessage, 1)
	assert.Equal(t, "Is it available?", got[0]["message"])
	assert.EqualValues(t, buyerID, got[0]["sender_id"])
	assert.EqualValues(t, sellerID, got[0]["receiver_id"])
	assert.EqualValues(t, listingBike, got[0]["listing_id"])
	assert.Equal(t, got[0]["id"], echo[0]["id"])

	assert.Equal(t, 1, f.store.count())
	evs := f.notifier.all()
	require.Len(t, evs, 1)
	assert.Equal(t, int64(sellerID), evs[0].SellerID)
	assert.Equal(t, int64(buyerID), evs[0].SenderID)

	buyer.tr.hangUp()
	s := buyer.wait(t)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 1, s.Outcomes()[OutcomeDelivered])
	assert.False(t, f.svc.Registry().Has(listingBike, buyerID))
	assert.True(t, f.svc.Registry().Has(listingBike, sellerID))
}

func TestSession_SellerReplyReachesOfflineBuyer(t *testing.T) {
	f := newChatFixture(t)
	seller := f.open(t, "7", "seller-token", sellerID)

	seller.tr.send(map[string]any{"receiver_id": buyerID, "message": "Yes"})

	seller.waitFrames(t, TypeMessage, 1)
	assert.Equal(t, 1, f.store.count())
}

func TestSession_BuyerToOtherBuyerDenied(t *testing.T) {
	f := newChatFixture(t)
	other := f.open(t, "7", "other-token", otherBuyer)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	buyer.tr.send(map[string]any{"receiver_id": otherBuyer, "message": "hey"})

	errs := buyer.waitFrames(t, TypeError, 1)
	assert.Equal(t, ReasonBuyerToNonSeller, errs[0]["message"])
	assert.Zero(t, f.store.count())
	assert.Empty(t, other.tr.frames())
	assert.Empty(t, f.notifier.all())
}

func TestSession_SellerToSelfIsDropped(t *testing.T) {
	f := newChatFixture(t)
	seller := f.open(t, "7", "seller-token", sellerID)

	seller.tr.send(map[string]any{"receiver_id": sellerID, "message": "note to self"})
	seller.tr.send(map[string]any{"receiver_id": buyerID, "message": "after"})

	msgs := seller.waitFrames(t, TypeMessage, 1)
	assert.Equal(t, "after", msgs[0]["message"])
	assert.Empty(t, seller.tr.framesOfType(TypeError))
	assert.Equal(t, 1, f.store.count())

	seller.tr.hangUp()
	s := seller.wait(t)
	assert.Equal(t, 1, s.Outcomes()[OutcomeSelfAddressed])
}

func TestSession_MalformedAndUnknownFramesAreDropped(t *testing.T) {
	f := newChatFixture(t)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	buyer.tr.in <- []byte(`not json`)
	buyer.tr.send(map[string]any{"receiver_id": "100", "message": "x"})
	buyer.tr.send(map[string]any{"action": "wave", "receiver_id": sellerID})
	buyer.tr.send(map[string]any{"receiver_id": sellerID, "message": "real"})

	buyer.waitFrames(t, TypeMessage, 1)
	assert.Empty(t, buyer.tr.framesOfType(TypeError))

	buyer.tr.hangUp()
	s := buyer.wait(t)
	assert.Equal(t, 2, s.Outcomes()[OutcomeMalformed])
	assert.Equal(t, 1, s.Outcomes()[OutcomeUnknownAction])
}

func TestSession_TypingIsRelayedNotStored(t *testing.T) {
	f := newChatFixture(t)
	seller := f.open(t, "7", "seller-token", sellerID)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	buyer.tr.send(map[string]any{"action": "typing", "receiver_id": sellerID, "typing": true})

	got := seller.waitFrames(t, TypeTyping, 1)
	buyer.waitFrames(t, TypeTyping, 1)
	assert.Equal(t, true, got[0]["typing"])
	assert.EqualValues(t, buyerID, got[0]["sender_id"])
	assert.NotEmpty(t, got[0]["timestamp"])
	assert.Zero(t, f.store.count())
	assert.Empty(t, f.notifier.all())
}

func TestSession_TypingIgnoresPolicy(t *testing.T) {
	f := newChatFixture(t)
	other := f.open(t, "7", "other-token", otherBuyer)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	buyer.tr.send(map[string]any{"action": "typing", "receiver_id": otherBuyer, "typing": true})

	other.waitFrames(t, TypeTyping, 1)
}

func TestSession_PersistenceFailure(t *testing.T) {
	f := newChatFixture(t)
	f.store.err = errors.New("disk full")
	seller := f.open(t, "7", "seller-token", sellerID)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	buyer.tr.send(map[string]any{"receiver_id": sellerID, "message": "hello"})

	errs := buyer.waitFrames(t, TypeError, 1)
	assert.Equal(t, errSendFailed, errs[0]["message"])
	assert.Empty(t, seller.tr.frames())
	assert.Empty(t, f.notifier.all())
}

func TestSession_ListingRemovedMidSession(t *testing.T) {
	f := newChatFixture(t)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	f.listings.remove(listingBike)
	buyer.tr.send(map[string]any{"receiver_id": sellerID, "message": "still there?"})

	errs := buyer.waitFrames(t, TypeError, 1)
	assert.Equal(t, errListingRemoved, errs[0]["message"])
	assert.Zero(t, f.store.count())
}

func TestSession_MessageTooLong(t *testing.T) {
	f := newChatFixture(t)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	buyer.tr.send(map[string]any{"receiver_id": sellerID, "message": "this message is far too long"})

	errs := buyer.waitFrames(t, TypeError, 1)
	assert.Equal(t, errTooLong, errs[0]["message"])
	assert.Zero(t, f.store.count())
}

func TestSession_ErrorGoesOnlyToOffendingConnection(t *testing.T) {
	f := newChatFixture(t)
	first := f.open(t, "7", "buyer-token", buyerID)
	second := f.open(t, "7", "buyer-token", buyerID)

	first.tr.send(map[string]any{"receiver_id": otherBuyer, "message": "hey"})

	first.waitFrames(t, TypeError, 1)
	assert.Empty(t, second.tr.frames())
}

func TestSession_FailedConnectionIsPruned(t *testing.T) {
	f := newChatFixture(t)
	sellerA := f.open(t, "7", "seller-token", sellerID)
	sellerB := f.open(t, "7", "seller-token", sellerID)
	buyer := f.open(t, "7", "buyer-token", buyerID)
	sellerB.tr.failWrites.Store(true)

	buyer.tr.send(map[string]any{"receiver_id": sellerID, "message": "hello"})

	sellerA.waitFrames(t, TypeMessage, 1)
	buyer.waitFrames(t, TypeMessage, 1)
	require.Eventually(t, func() bool {
		return len(f.svc.Registry().ConnectionsFor(listingBike, sellerID)) == 1
	}, time.Second, 5*time.Millisecond)

	s := sellerB.wait(t)
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_DisconnectCleansRegistry(t *testing.T) {
	f := newChatFixture(t)
	buyer := f.open(t, "7", "buyer-token", buyerID)

	_ = buyer.tr.Close()
	s := buyer.wait(t)

	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, int64(buyerID), s.Identity().UserID)
	listings, conns := f.svc.Registry().Stats()
	assert.Zero(t, listings)
	assert.Zero(t, conns)
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(99).String())
	assert.Equal(t, "persistence_failed", OutcomePersistenceFailed.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}

func TestSession_ShutdownDuringAdmissionLeavesNothingRegistered(t *testing.T) {
	f := newChatFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := newFakeTransport()
	s := f.svc.Serve(ctx, tr, "7", "buyer-token")

	assert.Equal(t, StateClosed, s.State())
	assert.True(t, tr.closed.Load())
	assert.Empty(t, f.svc.Registry().ConnectionsFor(listingBike, buyerID))
}
