// Package app implements the appointments service handlers.
//
// Booking validation is strict: windows must be ordered, in the future, and
// free of overlap with every other booking on the same assignee's calendar.
// The overlap check and the write run under a per-assignee lock so a pair of
// concurrent bookings cannot both slip through.
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
	"github.com/casebooklabs/casebook/internal/platform/timeouts"
	"github.com/casebooklabs/casebook/internal/services/appointments/api"
	"github.com/casebooklabs/casebook/internal/services/appointments/storage"
	casesapi "github.com/casebooklabs/casebook/internal/services/cases/api"
	clientsapi "github.com/casebooklabs/casebook/internal/services/clients/api"
	usersapi "github.com/casebooklabs/casebook/internal/services/users/api"
)

// Service handles appointments topics over a shared store.
type Service struct {
	store     storage.Store
	conn      bus.Conn
	calendars *calendarLocks

	now   func() time.Time
	newID func() string
}

// New creates an appointments service over the given store.
func New(store storage.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{
		store:     store,
		calendars: newCalendarLocks(),
		now:       time.Now,
		newID:     id.New,
	}, nil
}

// Register subscribes every appointments topic on the connection.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}
	s.conn = conn

	everyone := []string{claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist}
	subscriptions := map[string]bus.Handler{
		api.TopicCreateAppointment:  bus.Allow(s.handleCreateAppointment, claims.RoleAdmin, claims.RoleLawyer),
		api.TopicGetAllAppointments: bus.Allow(s.handleGetAllAppointments, everyone...),
		api.TopicGetAppointmentByID: bus.Allow(s.handleGetAppointmentByID, everyone...),
		api.TopicSearchTitles:       bus.Allow(s.handleSearchTitles, everyone...),
		api.TopicGetMyAppointments:  bus.Allow(s.handleGetMyAppointments, everyone...),
		api.TopicUpdateAppointment:  bus.Allow(s.handleUpdateAppointment, claims.RoleAdmin, claims.RoleLawyer),
		api.TopicCancelAppointment:  bus.Allow(s.handleCancelAppointment, claims.RoleAdmin, claims.RoleLawyer),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func appointmentErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeAppointmentNotFound, "Appointment not found")
	}
	return err
}

func toAPIAppointment(a storage.Appointment) api.Appointment {
	out := api.Appointment{
		ID:       a.ID,
		Title:    a.Title,
		Start:    a.Start,
		End:      a.End,
		Location: a.Location,
		Notes:    a.Notes,
		Assignee: api.AssigneeRef{ID: a.AssigneeID, Username: a.AssigneeUsername},
		BookedBy: a.BookedBy,
	}
	if a.ClientID != "" {
		out.Client = &api.ClientRef{ID: a.ClientID, Name: a.ClientName}
	}
	if a.CaseID != "" {
		out.Case = &api.CaseRef{ID: a.CaseID, Number: a.CaseNumber}
	}
	return out
}

// validateWindow rejects inverted and past windows.
func (s *Service) validateWindow(start, end time.Time) error {
	if !end.After(start) {
		return cberrors.New(cberrors.CodeAppointmentOrdering, "Appointment must end after it starts")
	}
	if start.Before(s.now()) {
		return cberrors.New(cberrors.CodeAppointmentInPast, "Appointment cannot start in the past")
	}
	return nil
}

// checkCalendarFree scans the assignee's bookings for an overlap, skipping
// excludeID so an update does not collide with itself.
func (s *Service) checkCalendarFree(ctx context.Context, assigneeID, excludeID string, start, end time.Time) error {
	existing, err := s.store.ListAppointmentsForAssignee(ctx, assigneeID)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == excludeID {
			continue
		}
		if overlaps(start, end, other.Start, other.End) {
			return cberrors.WithMetadata(cberrors.CodeAppointmentOverlap,
				"Appointment overlaps an existing booking",
				map[string]string{"conflictsWith": other.ID})
		}
	}
	return nil
}

func (s *Service) handleCreateAppointment(ctx context.Context, req *bus.Request) (any, error) {
	var in api.CreateAppointmentRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed create appointment request", err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "appointment title is required")
	}
	if strings.TrimSpace(in.AssigneeID) == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "assignee id is required")
	}
	start, end := in.Start.UTC(), in.End.UTC()
	if err := s.validateWindow(start, end); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, timeouts.BusRequest)
	defer cancel()
	var assignee usersapi.EmployeeSummary
	if err := s.conn.Request(callCtx, usersapi.TopicGetEmployeeByID, usersapi.GetByIDRequest{ID: in.AssigneeID}, &assignee); err != nil {
		return nil, err
	}

	var client clientsapi.Client
	if strings.TrimSpace(in.ClientID) != "" {
		clientCtx, cancelClient := context.WithTimeout(ctx, timeouts.BusRequest)
		defer cancelClient()
		if err := s.conn.Request(clientCtx, clientsapi.TopicGetClientByID, clientsapi.GetByIDRequest{ID: in.ClientID}, &client); err != nil {
			return nil, err
		}
	}

	var linkedCase casesapi.Case
	if strings.TrimSpace(in.CaseID) != "" {
		caseCtx, cancelCase := context.WithTimeout(ctx, timeouts.BusRequest)
		defer cancelCase()
		if err := s.conn.Request(caseCtx, casesapi.TopicSearchCaseByID, casesapi.GetByIDRequest{ID: in.CaseID}, &linkedCase); err != nil {
			return nil, err
		}
	}

	unlock := s.calendars.lock(assignee.ID)
	defer unlock()

	if err := s.checkCalendarFree(ctx, assignee.ID, "", start, end); err != nil {
		return nil, err
	}

	appointment := storage.Appointment{
		ID:               s.newID(),
		Title:            strings.TrimSpace(in.Title),
		Start:            start,
		End:              end,
		Location:         in.Location,
		Notes:            in.Notes,
		AssigneeID:       assignee.ID,
		AssigneeUsername: assignee.Username,
		ClientID:         client.ID,
		ClientName:       client.Name,
		CaseID:           linkedCase.ID,
		CaseNumber:       linkedCase.Number,
		BookedBy:         req.Claims.Username,
	}
	if err := s.store.CreateAppointment(ctx, appointment); err != nil {
		return nil, err
	}

	stored, err := s.store.GetAppointment(ctx, appointment.ID)
	if err != nil {
		return nil, appointmentErr(err)
	}
	return toAPIAppointment(stored), nil
}

func (s *Service) handleGetAllAppointments(ctx context.Context, req *bus.Request) (any, error) {
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

	page, err := s.store.ListAppointments(ctx, (in.Page-1)*in.Limit, in.Limit)
	if err != nil {
		return nil, err
	}
	out := api.AppointmentPage{Total: page.Total, Page: in.Page, Limit: in.Limit}
	for _, a := range page.Appointments {
		out.Appointments = append(out.Appointments, toAPIAppointment(a))
	}
	return out, nil
}

func (s *Service) handleGetAppointmentByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	appointment, err := s.store.GetAppointment(ctx, in.ID)
	if err != nil {
		return nil, appointmentErr(err)
	}
	return toAPIAppointment(appointment), nil
}

func (s *Service) handleSearchTitles(ctx context.Context, req *bus.Request) (any, error) {
	var in api.SearchTitlesRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed search request", err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "search term is required")
	}
	matches, err := s.store.SearchAppointmentsByTitle(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	out := make([]api.Appointment, 0, len(matches))
	for _, a := range matches {
		out = append(out, toAPIAppointment(a))
	}
	return out, nil
}

func (s *Service) handleGetMyAppointments(ctx context.Context, req *bus.Request) (any, error) {
	appointments, err := s.store.ListAppointmentsForAssignee(ctx, req.Claims.SubjectID)
	if err != nil {
		return nil, err
	}
	out := make([]api.Appointment, 0, len(appointments))
	for _, a := range appointments {
		out = append(out, toAPIAppointment(a))
	}
	return out, nil
}

func (s *Service) handleUpdateAppointment(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateAppointmentRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update request", err)
	}

	appointment, err := s.store.GetAppointment(ctx, in.AppointmentID)
	if err != nil {
		return nil, appointmentErr(err)
	}

	if in.Title != nil {
		appointment.Title = strings.TrimSpace(*in.Title)
	}
	if in.Location != nil {
		appointment.Location = *in.Location
	}
	if in.Notes != nil {
		appointment.Notes = *in.Notes
	}
	windowChanged := in.Start != nil || in.End != nil
	if in.Start != nil {
		appointment.Start = in.Start.UTC()
	}
	if in.End != nil {
		appointment.End = in.End.UTC()
	}

	unlock := s.calendars.lock(appointment.AssigneeID)
	defer unlock()

	if windowChanged {
		if err := s.validateWindow(appointment.Start, appointment.End); err != nil {
			return nil, err
		}
		if err := s.checkCalendarFree(ctx, appointment.AssigneeID, appointment.ID, appointment.Start, appointment.End); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateAppointment(ctx, appointment); err != nil {
		return nil, appointmentErr(err)
	}

	stored, err := s.store.GetAppointment(ctx, appointment.ID)
	if err != nil {
		return nil, appointmentErr(err)
	}
	return toAPIAppointment(stored), nil
}

func (s *Service) handleCancelAppointment(ctx context.Context, req *bus.Request) (any, error) {
	var in api.CancelRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed cancel request", err)
	}
	if err := s.store.DeleteAppointment(ctx, in.AppointmentID); err != nil {
		return nil, appointmentErr(err)
	}
	return struct{}{}, nil
}
