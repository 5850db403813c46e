// Package app implements the clients service handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/platform/id"
	"github.com/casebooklabs/casebook/internal/services/clients/api"
	"github.com/casebooklabs/casebook/internal/services/clients/storage"
)

// Service handles clients topics over a shared store.
type Service struct {
	store storage.Store

	now   func() time.Time
	newID func() string
}

// New creates a clients service over the given store.
func New(store storage.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{store: store, now: time.Now, newID: id.New}, nil
}

// Register subscribes every clients topic on the connection. Reads admit the
// receptionist so the front desk can attach clients to appointments; writes
// stay with admins and lawyers.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}
	subscriptions := map[string]bus.Handler{
		api.TopicCreateClient:  bus.Allow(s.handleCreateClient, claims.RoleAdmin, claims.RoleLawyer),
		api.TopicUpdateClient:  bus.Allow(s.handleUpdateClient, claims.RoleAdmin, claims.RoleLawyer),
		api.TopicDeleteClient:  bus.Allow(s.handleDeleteClient, claims.RoleAdmin),
		api.TopicGetAllClients: bus.Allow(s.handleGetAllClients, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicGetClientByID: bus.Allow(s.handleGetClientByID, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func clientErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeClientNotFound, "Client not found")
	}
	if errors.Is(err, storage.ErrConflict) {
		return cberrors.New(cberrors.CodeClientEmailExists, "Client email already exists")
	}
	return err
}

func toAPIClient(client storage.Client) api.Client {
	return api.Client{
		ID:          client.ID,
		Name:        client.Name,
		PhoneNumber: client.PhoneNumber,
		Email:       client.Email,
		CreatedAt:   client.CreatedAt,
	}
}

func (s *Service) handleCreateClient(ctx context.Context, req *bus.Request) (any, error) {
	var in api.CreateClientRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed create client request", err)
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "client name is required")
	}
	if in.Email == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "client email is required")
	}

	if _, err := s.store.GetClientByEmail(ctx, in.Email); err == nil {
		return nil, cberrors.New(cberrors.CodeClientEmailExists, "Client email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	client := storage.Client{
		ID:          s.newID(),
		Name:        in.Name,
		PhoneNumber: in.PhoneNumber,
		Email:       in.Email,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, clientErr(err)
	}

	stored, err := s.store.GetClient(ctx, client.ID)
	if err != nil {
		return nil, clientErr(err)
	}
	return toAPIClient(stored), nil
}

func (s *Service) handleGetAllClients(ctx context.Context, req *bus.Request) (any, error) {
	var in api.ListRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed list request", err)
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}

	page, err := s.store.ListClients(ctx, (in.Page-1)*in.Limit, in.Limit)
	if err != nil {
		return nil, err
	}
	out := api.ClientPage{Total: page.Total, Page: in.Page, Limit: in.Limit}
	for _, client := range page.Clients {
		out.Clients = append(out.Clients, toAPIClient(client))
	}
	return out, nil
}

func (s *Service) handleGetClientByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	client, err := s.store.GetClient(ctx, in.ID)
	if err != nil {
		return nil, clientErr(err)
	}
	return toAPIClient(client), nil
}

func (s *Service) handleUpdateClient(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateClientRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update request", err)
	}
	client, err := s.store.GetClient(ctx, in.ID)
	if err != nil {
		return nil, clientErr(err)
	}
	if in.Email != nil {
		client.Email = strings.TrimSpace(*in.Email)
	}
	if in.PhoneNumber != nil {
		client.PhoneNumber = *in.PhoneNumber
	}
	if err := s.store.UpdateClient(ctx, client); err != nil {
		return nil, clientErr(err)
	}
	return toAPIClient(client), nil
}

func (s *Service) handleDeleteClient(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed delete request", err)
	}
	if err := s.store.DeleteClient(ctx, in.ID); err != nil {
		return nil, clientErr(err)
	}
	return struct{}{}, nil
}
