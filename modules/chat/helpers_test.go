package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	domain "github.com/example/marketplace-chat/domain/chat"
	"github.com/example/marketplace-chat/domain/user"
	"github.com/example/marketplace-chat/events"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

var errTransportClosed = errors.New("transport closed")

// fakeTransport feeds frames from a channel and records writes.
type fakeTransport struct {
	in   chan []byte
	done chan struct{}

	mu         sync.Mutex
	written    [][]byte
	closeFrame []byte
	closeOnce  sync.Once
	closed     atomic.Bool
	failWrites atomic.Bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:   make(chan []byte, 16),
		done: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-f.in:
		if !ok {
			return 0, nil, errTransportClosed
		}
		return websocket.TextMessage, data, nil
	case <-f.done:
		return 0, nil, errTransportClosed
	}
}

func (f *fakeTransport) WriteMessage(_ int, data []byte) error {
	if f.closed.Load() {
		return errTransportClosed
	}
	if f.failWrites.Load() {
		return errors.New("broken pipe")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) WriteControl(messageType int, data []byte, _ time.Time) error {
	if messageType == websocket.CloseMessage {
		f.mu.Lock()
		f.closeFrame = append([]byte(nil), data...)
		f.mu.Unlock()
	}
	return nil
}

func (f *fakeTransport) SetWriteDeadline(_ time.Time) error { return nil }

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		close(f.done)
	})
	return nil
}

// send queues a client frame.
func (f *fakeTransport) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	f.in <- data
}

// hangUp ends the client side cleanly.
func (f *fakeTransport) hangUp() {
	close(f.in)
}

// frames decodes every recorded write.
func (f *fakeTransport) frames() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.written))
	for _, w := range f.written {
		var m map[string]any
		if err := json.Unmarshal(w, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// framesOfType filters recorded writes by their "type" field.
func (f *fakeTransport) framesOfType(typ string) []map[string]any {
	var out []map[string]any
	for _, m := range f.frames() {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

// closeCode returns the status code of the close frame sent, or zero.
func (f *fakeTransport) closeCode() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.closeFrame) < 2 {
		return 0
	}
	return int(f.closeFrame[0])<<8 | int(f.closeFrame[1])
}

func (f *fakeTransport) closeReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.closeFrame) < 2 {
		return ""
	}
	return string(f.closeFrame[2:])
}

// fakeIdentities maps tokens to identities.
type fakeIdentities map[string]user.Identity

func (f fakeIdentities) Resolve(_ context.Context, token string) (user.Identity, error) {
	id, ok := f[token]
	if !ok {
		return user.Identity{}, errors.New("invalid token")
	}
	return id, nil
}

// fakeListings maps listing ids to seller user ids.
type fakeListings struct {
	mu      sync.Mutex
	sellers map[int64]int64
	err     error
	calls   int
}

func (f *fakeListings) ListingSellerID(_ context.Context, listingID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	sellerID, ok := f.sellers[listingID]
	if !ok {
		return 0, ErrListingNotFound
	}
	return sellerID, nil
}

func (f *fakeListings) remove(listingID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sellers, listingID)
}

// fakeStore keeps messages in memory.
type fakeStore struct {
	mu       sync.Mutex
	messages []domain.Message
	err      error
}

func (f *fakeStore) CreateMessage(_ context.Context, senderID, receiverID, listingID int64, text string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	msg := domain.Message{
		ID:         int64(len(f.messages) + 1),
		SenderID:   senderID,
		ReceiverID: receiverID,
		ListingID:  listingID,
		Message:    text,
		CreatedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.messages = append(f.messages, msg)
	return &msg, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

// fakeNotifier records published events.
type fakeNotifier struct {
	mu     sync.Mutex
	events []events.MessageSentEvent
}

func (f *fakeNotifier) MessageSent(_ context.Context, ev events.MessageSentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeNotifier) all() []events.MessageSentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.MessageSentEvent(nil), f.events...)
}

func eventFixture() events.MessageSentEvent {
	return events.MessageSentEvent{MessageID: 1, ListingID: 7, SenderID: 5, ReceiverID: 100, SellerID: 100}
}
