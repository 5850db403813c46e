// Package app implements the visitors service handlers. The front desk owns
// this data: every topic admits the receptionist, and admins retain full
// access for oversight.
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
	"github.com/casebooklabs/casebook/internal/services/visitors/api"
	"github.com/casebooklabs/casebook/internal/services/visitors/storage"
)

// Service handles visitors topics over a shared store.
type Service struct {
	store storage.Store

	now   func() time.Time
	newID func() string
}

// New creates a visitors service over the given store.
func New(store storage.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{store: store, now: time.Now, newID: id.New}, nil
}

// Register subscribes every visitors topic on the connection.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}
	subscriptions := map[string]bus.Handler{
		api.TopicRecordNewVisitor:    bus.Allow(s.handleRecordNewVisitor, claims.RoleReceptionist, claims.RoleAdmin),
		api.TopicGetAllVisitors:      bus.Allow(s.handleGetAllVisitors, claims.RoleReceptionist, claims.RoleAdmin),
		api.TopicGetVisitorByID:      bus.Allow(s.handleGetVisitorByID, claims.RoleReceptionist, claims.RoleAdmin),
		api.TopicUpdateVisitorRecord: bus.Allow(s.handleUpdateVisitorRecord, claims.RoleReceptionist, claims.RoleAdmin),
		api.TopicSignOutVisitor:      bus.Allow(s.handleSignOutVisitor, claims.RoleReceptionist, claims.RoleAdmin),
		api.TopicSearchForVisitor:    bus.Allow(s.handleSearchForVisitor, claims.RoleReceptionist, claims.RoleAdmin),
		api.TopicDeleteVisitorRecord: bus.Allow(s.handleDeleteVisitorRecord, claims.RoleAdmin),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func visitorErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeVisitorNotFound, "Visitor not found")
	}
	return err
}

func toAPIVisitor(v storage.Visitor) api.Visitor {
	return api.Visitor{
		ID:             v.ID,
		FullName:       v.FullName,
		PhoneNumber:    v.PhoneNumber,
		PurposeOfVisit: v.PurposeOfVisit,
		WhoToSee:       v.WhoToSee,
		TimeIn:         v.TimeIn,
		TimeOut:        v.TimeOut,
		RecordedBy:     v.RecordedBy,
	}
}

func (s *Service) handleRecordNewVisitor(ctx context.Context, req *bus.Request) (any, error) {
	var in api.RecordVisitorRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed record visitor request", err)
	}
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "visitor name is required")
	}

	visitor := storage.Visitor{
		ID:             s.newID(),
		FullName:       in.FullName,
		PhoneNumber:    in.PhoneNumber,
		PurposeOfVisit: in.PurposeOfVisit,
		WhoToSee:       in.WhoToSee,
		TimeIn:         s.now().UTC(),
		RecordedBy:     req.Claims.Username,
	}
	if err := s.store.CreateVisitor(ctx, visitor); err != nil {
		return nil, err
	}

	stored, err := s.store.GetVisitor(ctx, visitor.ID)
	if err != nil {
		return nil, visitorErr(err)
	}
	return toAPIVisitor(stored), nil
}

func (s *Service) handleGetAllVisitors(ctx context.Context, req *bus.Request) (any, error) {
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

	page, err := s.store.ListVisitors(ctx, (in.Page-1)*in.Limit, in.Limit)
	if err != nil {
		return nil, err
	}
	out := api.VisitorPage{Total: page.Total, Page: in.Page, Limit: in.Limit}
	for _, v := range page.Visitors {
		out.Visitors = append(out.Visitors, toAPIVisitor(v))
	}
	return out, nil
}

func (s *Service) handleGetVisitorByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	visitor, err := s.store.GetVisitor(ctx, in.ID)
	if err != nil {
		return nil, visitorErr(err)
	}
	return toAPIVisitor(visitor), nil
}

func (s *Service) handleSearchForVisitor(ctx context.Context, req *bus.Request) (any, error) {
	var in api.SearchVisitorRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed search request", err)
	}
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "visitor name is required")
	}

	visitors, err := s.store.SearchVisitorsByName(ctx, in.FullName)
	if err != nil {
		return nil, err
	}
	if len(visitors) == 0 {
		return nil, cberrors.New(cberrors.CodeVisitorNotFound, "Visitor not found")
	}
	out := make([]api.Visitor, 0, len(visitors))
	for _, v := range visitors {
		out = append(out, toAPIVisitor(v))
	}
	return out, nil
}

func (s *Service) handleUpdateVisitorRecord(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateVisitorRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update request", err)
	}

	visitor, err := s.store.GetVisitor(ctx, in.VisitorID)
	if err != nil {
		return nil, visitorErr(err)
	}
	if in.FullName != nil {
		visitor.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.PhoneNumber != nil {
		visitor.PhoneNumber = *in.PhoneNumber
	}
	if in.PurposeOfVisit != nil {
		visitor.PurposeOfVisit = *in.PurposeOfVisit
	}
	if in.WhoToSee != nil {
		visitor.WhoToSee = *in.WhoToSee
	}
	if err := s.store.UpdateVisitor(ctx, visitor); err != nil {
		return nil, visitorErr(err)
	}
	return toAPIVisitor(visitor), nil
}

func (s *Service) handleSignOutVisitor(ctx context.Context, req *bus.Request) (any, error) {
	var in api.SignOutRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed sign out request", err)
	}

	visitor, err := s.store.GetVisitor(ctx, in.VisitorID)
	if err != nil {
		return nil, visitorErr(err)
	}
	if visitor.TimeOut != nil {
		return toAPIVisitor(visitor), nil
	}
	at := s.now().UTC()
	visitor.TimeOut = &at
	if err := s.store.UpdateVisitor(ctx, visitor); err != nil {
		return nil, visitorErr(err)
	}
	return toAPIVisitor(visitor), nil
}

func (s *Service) handleDeleteVisitorRecord(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed delete request", err)
	}
	if err := s.store.DeleteVisitor(ctx, in.ID); err != nil {
		return nil, visitorErr(err)
	}
	return struct{}{}, nil
}
