package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/example/marketplace-chat/domain/user"
	"github.com/example/marketplace-chat/events"
	"github.com/gofiber/contrib/websocket"
)

// State is a stage of the channel lifecycle.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateAccessChecking
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateAccessChecking:
		return "access_checking"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Outcome is the result of handling one inbound frame.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeMalformed
	OutcomeUnknownAction
	OutcomeSelfAddressed
	OutcomeTooLong
	OutcomeDenied
	OutcomeLookupFailed
	OutcomePersistenceFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeUnknownAction:
		return "unknown_action"
	case OutcomeSelfAddressed:
		return "self_addressed"
	case OutcomeTooLong:
		return "too_long"
	case OutcomeDenied:
		return "denied"
	case OutcomeLookupFailed:
		return "lookup_failed"
	case OutcomePersistenceFailed:
		return "persistence_failed"
	}
	return "unknown"
}

// Close reasons and error texts sent to clients.
const (
	reasonInvalidListing = "Invalid listing."
	reasonUnauthorized   = "Authentication required."
	reasonNoListing      = "Listing not found."
	reasonAccessCheck    = "Unable to verify access."

	errSendFailed     = "Failed to send message."
	errListingRemoved = "Listing no longer exists."
	errTooLong        = "Message is too long."
)

// Session is the state of one channel.
type Session struct {
	svc       *Service
	transport Transport

	state     State
	listingID int64
	identity  user.Identity
	conn      *Connection
	closeCode int
	outcomes  map[Outcome]int
}

func newSession(svc *Service, t Transport) *Session {
	return &Session{
		svc:       svc,
		transport: t,
		state:     StateConnecting,
		outcomes:  make(map[Outcome]int),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Identity returns the resolved identity; zero before authentication.
func (s *Session) Identity() user.Identity { return s.identity }

// CloseCode returns the close status sent on rejection, or zero.
func (s *Session) CloseCode() int { return s.closeCode }

// Outcomes returns how many frames ended in each outcome.
func (s *Session) Outcomes() map[Outcome]int { return s.outcomes }

func (s *Session) run(ctx context.Context, listingParam, token string) {
	defer s.cleanup()

	log := s.svc.logger

	listingID, err := strconv.ParseInt(listingParam, 10, 64)
	if err != nil || listingID <= 0 {
		s.reject(reasonInvalidListing)
		return
	}
	s.listingID = listingID

	s.state = StateAuthenticating
	identity, err := s.svc.gate.Resolve(ctx, token)
	if err != nil {
		log.Info("Channel rejected", "listingID", listingID, "reason", "unauthenticated", "error", err)
		s.reject(reasonUnauthorized)
		return
	}
	s.identity = identity

	s.state = StateAccessChecking
	if err := s.svc.policy.CanOpen(ctx, listingID, identity.UserID); err != nil {
		reason := reasonAccessCheck
		if errors.Is(err, ErrListingNotFound) {
			reason = reasonNoListing
		}
		log.Info("Channel rejected", "listingID", listingID, "userID", identity.UserID, "error", err)
		s.reject(reason)
		return
	}

	s.conn = NewConnection(listingID, identity.UserID, s.transport, s.svc.cfg.WriteTimeout)
	s.svc.registry.Register(listingID, identity.UserID, s.conn)
	if ctx.Err() != nil {
		// Shutdown began while this channel was being admitted.
		return
	}
	s.state = StateOpen
	log.Info("Channel opened", "listingID", listingID, "userID", identity.UserID, "connID", s.conn.ID)

	for {
		_, data, err := s.transport.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !s.conn.Closed() {
				log.Debug("Channel read failed", "connID", s.conn.ID, "error", err)
			}
			return
		}

		outcome := s.handle(ctx, data)
		s.outcomes[outcome]++
	}
}

// reject closes the transport with a policy-violation status before admission.
func (s *Session) reject(reason string) {
	s.closeCode = websocket.ClosePolicyViolation
	_ = s.transport.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(controlWriteWait))
	_ = s.transport.Close()
}

// cleanup runs on every exit path; Remove is a no-op when never registered.
func (s *Session) cleanup() {
	s.svc.registry.Remove(s.listingID, s.identity.UserID, s.conn)
	if s.conn != nil {
		s.conn.Close()
		s.svc.logger.Info("Channel closed", "listingID", s.listingID, "userID", s.identity.UserID, "connID", s.conn.ID)
	}
	s.state = StateClosed
}

func (s *Session) handle(ctx context.Context, data []byte) Outcome {
	ev, err := ParseInbound(data)
	if err != nil {
		return OutcomeMalformed
	}

	switch e := ev.(type) {
	case MessageEvent:
		return s.handleMessage(ctx, e)
	case TypingEvent:
		return s.handleTyping(e)
	default:
		return OutcomeUnknownAction
	}
}

func (s *Session) handleMessage(ctx context.Context, e MessageEvent) Outcome {
	senderID := s.identity.UserID
	if e.ReceiverID == senderID {
		return OutcomeSelfAddressed
	}
	if limit := s.svc.cfg.MaxMessageLength; limit > 0 && utf8.RuneCountInString(e.Text) > limit {
		s.replyError(errTooLong)
		return OutcomeTooLong
	}

	decision, err := s.svc.policy.CanSend(ctx, s.listingID, senderID, e.ReceiverID)
	if err != nil {
		s.svc.logger.Warn("Seller lookup failed", "listingID", s.listingID, "error", err)
		if errors.Is(err, ErrListingNotFound) {
			s.replyError(errListingRemoved)
		} else {
			s.replyError(errSendFailed)
		}
		return OutcomeLookupFailed
	}
	if !decision.Allowed {
		s.replyError(decision.Reason)
		return OutcomeDenied
	}

	storeCtx, cancel := s.storeContext(ctx)
	msg, err := s.svc.store.CreateMessage(storeCtx, senderID, e.ReceiverID, s.listingID, e.Text)
	cancel()
	if err != nil {
		s.svc.logger.Error("Failed to persist message", "listingID", s.listingID, "senderID", senderID, "error", err)
		s.replyError(errSendFailed)
		return OutcomePersistenceFailed
	}

	if _, err := s.svc.dispatcher.SendToUsers(s.listingID, NewOutboundMessage(msg), e.ReceiverID, senderID); err != nil {
		s.svc.logger.Error("Failed to dispatch message", "messageID", msg.ID, "error", err)
	}

	if s.svc.notifier != nil {
		event := events.MessageSentEvent{
			MessageID:  msg.ID,
			ListingID:  msg.ListingID,
			SenderID:   msg.SenderID,
			ReceiverID: msg.ReceiverID,
			SellerID:   decision.SellerID,
			CreatedAt:  msg.CreatedAt,
		}
		if err := s.svc.notifier.MessageSent(ctx, event); err != nil {
			s.svc.logger.Warn("Failed to publish message event", "messageID", msg.ID, "error", err)
		}
	}
	return OutcomeDelivered
}

func (s *Session) handleTyping(e TypingEvent) Outcome {
	senderID := s.identity.UserID
	if e.ReceiverID == senderID {
		return OutcomeSelfAddressed
	}

	event := OutboundTyping{
		Type:       TypeTyping,
		ListingID:  s.listingID,
		SenderID:   senderID,
		ReceiverID: e.ReceiverID,
		Typing:     e.Typing,
		Timestamp:  time.Now().UTC(),
	}
	if _, err := s.svc.dispatcher.SendToUsers(s.listingID, event, e.ReceiverID, senderID); err != nil {
		s.svc.logger.Error("Failed to dispatch typing event", "error", err)
	}
	return OutcomeDelivered
}

// replyError writes an error event to this connection only. A failed write
// closes the connection, which ends the read loop.
func (s *Session) replyError(text string) {
	payload, err := json.Marshal(NewOutboundError(text))
	if err != nil {
		return
	}
	if err := s.conn.Send(payload); err != nil {
		s.svc.logger.Debug("Error reply failed", "connID", s.conn.ID, "error", err)
		s.conn.Close()
	}
}

func (s *Session) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.svc.cfg.StoreTimeout > 0 {
		return context.WithTimeout(ctx, s.svc.cfg.StoreTimeout)
	}
	return context.WithCancel(ctx)
}
