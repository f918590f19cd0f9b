package api

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/example/marketplace-chat/domain/chat"
	"github.com/example/marketplace-chat/modules/auth"
	"github.com/example/marketplace-chat/modules/marketplace"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth   AuthClient
	market marketplace.MarketplacePort
	chat   ChatServer
	logger types.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authClient AuthClient, market marketplace.MarketplacePort, chatServer ChatServer, logger types.Logger) *Handlers {
	return &Handlers{
		auth:   authClient,
		market: market,
		chat:   chatServer,
		logger: logger,
	}
}

// Health reports liveness and the chat channel counts.
func (h *Handlers) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status": "healthy",
		"time":   time.Now().UTC(),
	}
	if h.chat != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		status := h.chat.Health(ctx)
		body["chat"] = fiber.Map{
			"healthy": status.Healthy,
			"details": status.Details,
		}
		if !status.Healthy {
			body["status"] = "degraded"
		}
	}
	return c.JSON(body)
}

// Register handles user registration.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	u, err := h.auth.Register(c.UserContext(), auth.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(u)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return badRequest(c, "Email and password are required")
	}

	resp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(resp)
}

// Refresh handles token refresh.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "Refresh token is required")
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired refresh token",
		})
	}
	return c.JSON(pair)
}

// Me returns the caller's account.
func (h *Handlers) Me(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthorized(c)
	}

	u, err := h.auth.GetUser(c.UserContext(), identity.UserID)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(u)
}

// BecomeSeller creates the caller's seller profile.
func (h *Handlers) BecomeSeller(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req BecomeSellerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	seller, err := h.market.BecomeSeller(c.UserContext(), identity.UserID, req.BusinessName, req.Address)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(seller)
}

// CreateListing posts a listing for the calling seller.
func (h *Handlers) CreateListing(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	l, err := h.market.CreateListing(c.UserContext(), identity.UserID, marketplace.ListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		Category:    req.Category,
	})
	if err != nil {
		return h.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(l)
}

// GetListing returns one listing.
func (h *Handlers) GetListing(c *fiber.Ctx) error {
	listingID, ok := parseID(c.Params("id"))
	if !ok {
		return badRequest(c, "Invalid listing id")
	}

	l, err := h.market.GetListing(c.UserContext(), listingID)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(l)
}

// UpdateListing changes a listing the caller owns. Admins may change any listing.
func (h *Handlers) UpdateListing(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthorized(c)
	}
	listingID, ok := parseID(c.Params("id"))
	if !ok {
		return badRequest(c, "Invalid listing id")
	}

	var req UpdateListingRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	l, err := h.market.UpdateListing(c.UserContext(), *identity, listingID, marketplace.ListingUpdate{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		Category:    req.Category,
	})
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(l)
}

// DeleteListing removes a listing the caller owns, along with its chat history.
func (h *Handlers) DeleteListing(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthorized(c)
	}
	listingID, ok := parseID(c.Params("id"))
	if !ok {
		return badRequest(c, "Invalid listing id")
	}

	if err := h.market.DeleteListing(c.UserContext(), *identity, listingID); err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Listing " + strconv.FormatInt(listingID, 10) + " deleted successfully"})
}

// SuspendUser disables an account.
func (h *Handlers) SuspendUser(c *fiber.Ctx) error {
	return h.setUserActive(c, false)
}

// ActivateUser re-enables an account.
func (h *Handlers) ActivateUser(c *fiber.Ctx) error {
	return h.setUserActive(c, true)
}

func (h *Handlers) setUserActive(c *fiber.Ctx, active bool) error {
	userID, ok := parseID(c.Params("id"))
	if !ok {
		return badRequest(c, "Invalid user id")
	}

	u, err := h.auth.SetUserActive(c.UserContext(), userID, active)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(u)
}

// ApproveSeller approves a user's seller profile.
func (h *Handlers) ApproveSeller(c *fiber.Ctx) error {
	userID, ok := parseID(c.Params("id"))
	if !ok {
		return badRequest(c, "Invalid user id")
	}

	seller, err := h.market.ApproveSeller(c.UserContext(), userID)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(seller)
}

// Conversations returns every chat the caller takes part in, grouped by
// listing and counterpart.
func (h *Handlers) Conversations(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthorized(c)
	}

	convs, err := h.market.Conversations(c.UserContext(), identity.UserID)
	if err != nil {
		return h.handleError(c, err)
	}
	return c.JSON(convs)
}

// ListingMessages returns the caller's messages on one listing, oldest first.
func (h *Handlers) ListingMessages(c *fiber.Ctx) error {
	identity, ok := identityFrom(c)
	if !ok {
		return unauthorized(c)
	}
	listingID, ok := parseID(c.Params("listing_id"))
	if !ok {
		return badRequest(c, "Invalid listing id")
	}

	msgs, err := h.market.ListingMessages(c.UserContext(), listingID, identity.UserID)
	if err != nil {
		return h.handleError(c, err)
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	return c.JSON(msgs)
}

// ChatSocket hands an upgraded connection to the chat module.
func (h *Handlers) ChatSocket(c *websocket.Conn) {
	h.chat.Serve(c, c.Params("listing_id"), c.Query("token"))
}

// handleError maps service errors to HTTP responses. Errors that crossed a
// service boundary keep only their text, so they are matched by message.
func (h *Handlers) handleError(c *fiber.Ctx, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, auth.ErrInvalidCredentials.Error()):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized", Message: "Invalid email or password"})
	case strings.Contains(errStr, auth.ErrAccountDisabled.Error()):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "forbidden", Message: "Account is disabled"})
	case strings.Contains(errStr, auth.ErrUserExists.Error()):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "conflict", Message: "Email already registered"})
	case strings.Contains(errStr, marketplace.ErrSellerExists.Error()):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "conflict", Message: "Seller profile already exists"})
	case strings.Contains(errStr, marketplace.ErrNotListingOwner.Error()):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "forbidden", Message: "Not authorized"})
	case strings.Contains(errStr, marketplace.ErrNotSeller.Error()):
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "forbidden", Message: "Seller profile required"})
	case errors.Is(err, marketplace.ErrListingNotFound), strings.Contains(errStr, marketplace.ErrListingNotFound.Error()):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: "Listing not found"})
	case errors.Is(err, auth.ErrUserNotFound), strings.Contains(errStr, auth.ErrUserNotFound.Error()):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: "User not found"})
	}

	for _, sentinel := range []error{
		auth.ErrInvalidEmail, auth.ErrNameRequired, auth.ErrWeakPassword, auth.ErrPasswordTooLong,
		marketplace.ErrInvalidListing, marketplace.ErrInvalidSeller,
	} {
		if strings.Contains(errStr, sentinel.Error()) {
			return badRequest(c, capitalize(sentinel.Error()))
		}
	}

	h.logger.Error("Internal error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "bad_request", Message: msg})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized", Message: "User not authenticated"})
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil && id > 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
