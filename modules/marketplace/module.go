package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// DBProvider supplies the shared database connection once it is open.
type DBProvider interface {
	DB() *gorm.DB
}

// Module exposes sellers, listings, chat history and interaction recording
// as request-reply services.
type Module struct {
	dbs     DBProvider
	service *Service
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new marketplace module.
func NewModule(dbs DBProvider, logger types.Logger) *Module {
	return &Module{
		dbs:    dbs,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "marketplace"
}

// Start wires the service onto the shared database.
func (m *Module) Start(_ context.Context) error {
	db := m.dbs.DB()
	if db == nil {
		return errors.New("database not started")
	}
	m.service = NewService(NewRepository(db))
	m.logger.Info("Marketplace module started")
	return nil
}

// Stop shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Marketplace module stopped")
	return nil
}

// Health reports whether the module has been started.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational"}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-listing-seller", json.Unmarshal, json.Marshal, m.handleGetListingSeller,
	); err != nil {
		return fmt.Errorf("failed to register get-listing-seller service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-message", json.Unmarshal, json.Marshal, m.handleCreateMessage,
	); err != nil {
		return fmt.Errorf("failed to register create-message service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-listing-messages", json.Unmarshal, json.Marshal, m.handleListListingMessages,
	); err != nil {
		return fmt.Errorf("failed to register list-listing-messages service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-user-conversations", json.Unmarshal, json.Marshal, m.handleListUserConversations,
	); err != nil {
		return fmt.Errorf("failed to register list-user-conversations service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "become-seller", json.Unmarshal, json.Marshal, m.handleBecomeSeller,
	); err != nil {
		return fmt.Errorf("failed to register become-seller service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-listing", json.Unmarshal, json.Marshal, m.handleCreateListing,
	); err != nil {
		return fmt.Errorf("failed to register create-listing service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-listing", json.Unmarshal, json.Marshal, m.handleGetListing,
	); err != nil {
		return fmt.Errorf("failed to register get-listing service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "update-listing", json.Unmarshal, json.Marshal, m.handleUpdateListing,
	); err != nil {
		return fmt.Errorf("failed to register update-listing service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-listing", json.Unmarshal, json.Marshal, m.handleDeleteListing,
	); err != nil {
		return fmt.Errorf("failed to register delete-listing service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "approve-seller", json.Unmarshal, json.Marshal, m.handleApproveSeller,
	); err != nil {
		return fmt.Errorf("failed to register approve-seller service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "record-interaction", json.Unmarshal, json.Marshal, m.handleRecordInteraction,
	); err != nil {
		return fmt.Errorf("failed to register record-interaction service: %w", err)
	}

	m.logger.Info("Registered marketplace services", "services", []string{
		"get-listing-seller", "create-message", "list-listing-messages", "list-user-conversations",
		"become-seller", "create-listing", "get-listing", "update-listing", "delete-listing",
		"approve-seller", "record-interaction",
	})
	return nil
}

func (m *Module) handleGetListingSeller(ctx context.Context, req GetListingSellerRequest, _ *mono.Msg) (GetListingSellerResponse, error) {
	sellerID, err := m.service.ListingSellerUserID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return GetListingSellerResponse{Found: false}, nil
		}
		return GetListingSellerResponse{}, err
	}
	return GetListingSellerResponse{Found: true, SellerID: sellerID}, nil
}

func (m *Module) handleCreateMessage(ctx context.Context, req CreateMessageRequest, _ *mono.Msg) (CreateMessageResponse, error) {
	msg, err := m.service.CreateMessage(ctx, req.SenderID, req.ReceiverID, req.ListingID, req.Message)
	if err != nil {
		m.logger.Error("Failed to create message", "listingID", req.ListingID, "error", err)
		return CreateMessageResponse{}, err
	}
	return CreateMessageResponse{Message: *msg}, nil
}

func (m *Module) handleListListingMessages(ctx context.Context, req ListListingMessagesRequest, _ *mono.Msg) (ListListingMessagesResponse, error) {
	msgs, err := m.service.ListingMessages(ctx, req.ListingID, req.Participant)
	if err != nil {
		return ListListingMessagesResponse{}, err
	}
	return ListListingMessagesResponse{Messages: msgs}, nil
}

func (m *Module) handleListUserConversations(ctx context.Context, req ListUserConversationsRequest, _ *mono.Msg) (ListUserConversationsResponse, error) {
	convs, err := m.service.Conversations(ctx, req.UserID)
	if err != nil {
		return ListUserConversationsResponse{}, err
	}
	return ListUserConversationsResponse{Conversations: convs}, nil
}

func (m *Module) handleBecomeSeller(ctx context.Context, req BecomeSellerRequest, _ *mono.Msg) (BecomeSellerResponse, error) {
	seller, err := m.service.BecomeSeller(ctx, req.UserID, req.BusinessName, req.Address)
	if err != nil {
		return BecomeSellerResponse{}, err
	}
	m.logger.Info("Seller profile created", "userID", req.UserID, "sellerID", seller.ID)
	return BecomeSellerResponse{Seller: *seller}, nil
}

func (m *Module) handleCreateListing(ctx context.Context, req CreateListingRequest, _ *mono.Msg) (CreateListingResponse, error) {
	l, err := m.service.CreateListing(ctx, req.UserID, ListingInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		Category:    req.Category,
	})
	if err != nil {
		return CreateListingResponse{}, err
	}
	return CreateListingResponse{Listing: *l}, nil
}

func (m *Module) handleGetListing(ctx context.Context, req GetListingRequest, _ *mono.Msg) (GetListingResponse, error) {
	l, err := m.service.GetListing(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			return GetListingResponse{Found: false}, nil
		}
		return GetListingResponse{}, err
	}
	return GetListingResponse{Found: true, Listing: *l}, nil
}

func (m *Module) handleUpdateListing(ctx context.Context, req UpdateListingRequest, _ *mono.Msg) (UpdateListingResponse, error) {
	l, err := m.service.UpdateListing(ctx, req.Actor, req.ListingID, req.Update)
	if err != nil {
		return UpdateListingResponse{}, err
	}
	return UpdateListingResponse{Listing: *l}, nil
}

func (m *Module) handleDeleteListing(ctx context.Context, req DeleteListingRequest, _ *mono.Msg) (DeleteListingResponse, error) {
	if err := m.service.DeleteListing(ctx, req.Actor, req.ListingID); err != nil {
		return DeleteListingResponse{}, err
	}
	m.logger.Info("Listing deleted", "listingID", req.ListingID, "by", req.Actor.UserID)
	return DeleteListingResponse{Deleted: true}, nil
}

func (m *Module) handleApproveSeller(ctx context.Context, req ApproveSellerRequest, _ *mono.Msg) (ApproveSellerResponse, error) {
	seller, err := m.service.ApproveSeller(ctx, req.UserID)
	if err != nil {
		return ApproveSellerResponse{}, err
	}
	m.logger.Info("Seller approved", "userID", req.UserID, "sellerID", seller.ID)
	return ApproveSellerResponse{Seller: *seller}, nil
}

func (m *Module) handleRecordInteraction(ctx context.Context, req RecordInteractionRequest, _ *mono.Msg) (RecordInteractionResponse, error) {
	in := req.Interaction
	if err := m.service.RecordInteraction(ctx, &in); err != nil {
		return RecordInteractionResponse{}, err
	}
	return RecordInteractionResponse{ID: in.ID}, nil
}
