// Package app implements the cases service handlers.
//
// Cases is the orchestration-heavy service: opening or moving a case fans
// out to users and clients for verification before anything is written, and
// every multi-write flow keeps a compensation log so a failed step unwinds
// the steps already applied.
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
	"github.com/casebooklabs/casebook/internal/saga"
	"github.com/casebooklabs/casebook/internal/services/cases/api"
	"github.com/casebooklabs/casebook/internal/services/cases/storage"
	clientsapi "github.com/casebooklabs/casebook/internal/services/clients/api"
	notifapi "github.com/casebooklabs/casebook/internal/services/notifications/api"
	usersapi "github.com/casebooklabs/casebook/internal/services/users/api"
)

// Service handles cases topics over a shared store and a bus connection for
// cross-service verification.
type Service struct {
	store storage.Store
	conn  bus.Conn

	now   func() time.Time
	newID func() string
}

// New creates a cases service over the given store.
func New(store storage.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{store: store, now: time.Now, newID: id.New}, nil
}

// Register subscribes every cases topic on the connection.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}
	s.conn = conn

	subscriptions := map[string]bus.Handler{
		api.TopicCreateNewCase:       bus.Allow(s.handleCreateNewCase, claims.RoleAdmin, claims.RoleLawyer),
		api.TopicAssignNewCase:       bus.Allow(s.handleAssignNewCase, claims.RoleAdmin),
		api.TopicReassignCase:        bus.Allow(s.handleReassignCase, claims.RoleAdmin),
		api.TopicSearchCaseByID:      bus.Allow(s.handleSearchCaseByID, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicSearchCaseByNumber:  bus.Allow(s.handleSearchCaseByNumber, claims.RoleAdmin, claims.RoleLawyer),
		api.TopicGetAllCases:         bus.Allow(s.handleGetAllCases, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicUpdateCaseDetails:   bus.Allow(s.handleUpdateCaseDetails, claims.RoleAdmin, claims.RoleLawyer),
		api.TopicGetUpcomingHearings: bus.Allow(s.handleGetUpcomingHearings, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicSearchMyHearings:    bus.Allow(s.handleSearchMyHearings, claims.RoleAdmin, claims.RoleLawyer),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

// call issues one downstream request with the shared per-call deadline. The
// inbound claim rides along on ctx, so the callee's gate sees the original
// actor.
func (s *Service) call(ctx context.Context, topic string, in, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, timeouts.BusRequest)
	defer cancel()
	return s.conn.Request(callCtx, topic, in, out)
}

func caseErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeCaseNotFound, "Case not found")
	}
	if errors.Is(err, storage.ErrConflict) {
		return cberrors.New(cberrors.CodeCaseNumberExists, "Case number already exists")
	}
	return err
}

func toAPICase(c storage.Case) api.Case {
	notes := make([]api.Note, 0, len(c.Notes))
	for _, note := range c.Notes {
		notes = append(notes, api.Note{Message: note.Message})
	}
	return api.Case{
		ID:            c.ID,
		Title:         c.Title,
		Number:        c.Number,
		Type:          c.Type,
		Status:        c.Status,
		FiledDate:     c.FiledDate,
		HearingDate:   c.HearingDate,
		AssignedJudge: c.AssignedJudge,
		Plaintiffs:    c.Plaintiffs,
		Defendants:    c.Defendants,
		Notes:         notes,
		Client:        api.ClientRef{ID: c.ClientID, Name: c.ClientName},
		Assignee:      api.AssigneeRef{ID: c.AssigneeID, Username: c.AssigneeUsername},
		AssignedBy:    c.AssignedBy,
	}
}

func fromAPINotes(notes []api.Note) []storage.Note {
	out := make([]storage.Note, 0, len(notes))
	for _, note := range notes {
		out = append(out, storage.Note{Message: note.Message})
	}
	return out
}

// verifyAssignee resolves an employee and rejects receptionists, who cannot
// hold a caseload.
func (s *Service) verifyAssignee(ctx context.Context, assigneeID string) (usersapi.EmployeeSummary, error) {
	var assignee usersapi.EmployeeSummary
	if err := s.call(ctx, usersapi.TopicGetEmployeeByID, usersapi.GetByIDRequest{ID: assigneeID}, &assignee); err != nil {
		return usersapi.EmployeeSummary{}, err
	}
	if assignee.Role == claims.RoleReceptionist {
		return usersapi.EmployeeSummary{}, cberrors.New(cberrors.CodeCaseAssigneeRole,
			"Cannot assign a case to a receptionist")
	}
	return assignee, nil
}

func (s *Service) verifyClient(ctx context.Context, clientID string) (clientsapi.Client, error) {
	var client clientsapi.Client
	if err := s.call(ctx, clientsapi.TopicGetClientByID, clientsapi.GetByIDRequest{ID: clientID}, &client); err != nil {
		return clientsapi.Client{}, err
	}
	return client, nil
}

func (s *Service) checkNumberFree(ctx context.Context, number string) error {
	_, err := s.store.GetCaseByNumber(ctx, number)
	if err == nil {
		return cberrors.New(cberrors.CodeCaseNumberExists, "Case number already exists")
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// openCase runs the shared tail of the create and assign flows: write the
// record, then re-read it for the reply. The write is logged for
// compensation so a failed re-read leaves no half-created case behind.
func (s *Service) openCase(ctx context.Context, c storage.Case) (storage.Case, error) {
	log := &saga.Log{}
	if err := s.store.CreateCase(ctx, c); err != nil {
		return storage.Case{}, caseErr(err)
	}
	log.Append("delete case "+c.ID, func(undoCtx context.Context) error {
		return s.store.DeleteCase(undoCtx, c.ID)
	})

	stored, err := s.store.GetCase(ctx, c.ID)
	if err != nil {
		_ = log.Compensate(ctx)
		return storage.Case{}, caseErr(err)
	}
	log.Discard()
	return stored, nil
}

func (s *Service) handleCreateNewCase(ctx context.Context, req *bus.Request) (any, error) {
	var in api.CreateCaseRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed create case request", err)
	}
	if err := validateCaseFields(in.Title, in.Number, in.ClientID); err != nil {
		return nil, err
	}

	actor, err := s.verifyAssignee(ctx, req.Claims.SubjectID)
	if err != nil {
		return nil, err
	}
	client, err := s.verifyClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNumberFree(ctx, in.Number); err != nil {
		return nil, err
	}

	stored, err := s.openCase(ctx, storage.Case{
		ID:               s.newID(),
		Title:            strings.TrimSpace(in.Title),
		Number:           strings.TrimSpace(in.Number),
		Type:             in.Type,
		Status:           defaultStatus(in.Status),
		FiledDate:        s.now().UTC(),
		HearingDate:      in.HearingDate,
		AssignedJudge:    in.AssignedJudge,
		Plaintiffs:       in.Plaintiffs,
		Defendants:       in.Defendants,
		Notes:            fromAPINotes(in.Notes),
		ClientID:         client.ID,
		ClientName:       client.Name,
		AssigneeID:       actor.ID,
		AssigneeUsername: actor.Username,
		AssignedBy:       actor.Username,
	})
	if err != nil {
		return nil, err
	}
	return toAPICase(stored), nil
}

func (s *Service) handleAssignNewCase(ctx context.Context, req *bus.Request) (any, error) {
	var in api.AssignCaseRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed assign case request", err)
	}
	if err := validateCaseFields(in.Title, in.Number, in.ClientID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.AssigneeID) == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "assignee id is required")
	}

	assignee, err := s.verifyAssignee(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}
	client, err := s.verifyClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if err := s.checkNumberFree(ctx, in.Number); err != nil {
		return nil, err
	}

	stored, err := s.openCase(ctx, storage.Case{
		ID:               s.newID(),
		Title:            strings.TrimSpace(in.Title),
		Number:           strings.TrimSpace(in.Number),
		Type:             in.Type,
		Status:           defaultStatus(in.Status),
		FiledDate:        s.now().UTC(),
		HearingDate:      in.HearingDate,
		AssignedJudge:    in.AssignedJudge,
		Plaintiffs:       in.Plaintiffs,
		Defendants:       in.Defendants,
		Notes:            fromAPINotes(in.Notes),
		ClientID:         client.ID,
		ClientName:       client.Name,
		AssigneeID:       assignee.ID,
		AssigneeUsername: assignee.Username,
		AssignedBy:       req.Claims.Username,
	})
	if err != nil {
		return nil, err
	}

	s.conn.Publish(notifapi.TopicCaseAssigned, notifapi.CaseAssigned{
		To:         assignee.Email,
		AssignedBy: req.Claims.Username,
		CaseTitle:  stored.Title,
		CaseNumber: stored.Number,
	})
	return toAPICase(stored), nil
}

func (s *Service) handleReassignCase(ctx context.Context, req *bus.Request) (any, error) {
	var in api.ReassignCaseRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed reassign request", err)
	}

	c, err := s.store.GetCase(ctx, in.CaseID)
	if err != nil {
		return nil, caseErr(err)
	}
	assignee, err := s.verifyAssignee(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}

	c.AssigneeID = assignee.ID
	c.AssigneeUsername = assignee.Username
	c.AssignedBy = req.Claims.Username
	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, caseErr(err)
	}

	s.conn.Publish(notifapi.TopicCaseAssigned, notifapi.CaseAssigned{
		To:         assignee.Email,
		AssignedBy: req.Claims.Username,
		CaseTitle:  c.Title,
		CaseNumber: c.Number,
	})

	stored, err := s.store.GetCase(ctx, c.ID)
	if err != nil {
		return nil, caseErr(err)
	}
	return toAPICase(stored), nil
}

func (s *Service) handleSearchCaseByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	c, err := s.store.GetCase(ctx, in.ID)
	if err != nil {
		return nil, caseErr(err)
	}
	return toAPICase(c), nil
}

func (s *Service) handleSearchCaseByNumber(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByNumberRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	c, err := s.store.GetCaseByNumber(ctx, in.Number)
	if err != nil {
		return nil, caseErr(err)
	}
	return toAPICase(c), nil
}

func (s *Service) handleGetAllCases(ctx context.Context, req *bus.Request) (any, error) {
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

	page, err := s.store.ListCases(ctx, (in.Page-1)*in.Limit, in.Limit)
	if err != nil {
		return nil, err
	}
	out := api.CasePage{Total: page.Total, Page: in.Page, Limit: in.Limit}
	for _, c := range page.Cases {
		out.Cases = append(out.Cases, toAPICase(c))
	}
	return out, nil
}

func (s *Service) handleUpdateCaseDetails(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateCaseRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update request", err)
	}

	c, err := s.store.GetCase(ctx, in.CaseID)
	if err != nil {
		return nil, caseErr(err)
	}
	// Lawyers touch their own caseload only; admins touch anything.
	if req.Claims.Role == claims.RoleLawyer && c.AssigneeID != req.Claims.SubjectID {
		return nil, cberrors.New(cberrors.CodeCaseNotAssignedToYou, "Case is not assigned to you")
	}

	if in.Title != nil {
		c.Title = *in.Title
	}
	if in.Type != nil {
		c.Type = *in.Type
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.HearingDate != nil {
		at := in.HearingDate.UTC()
		c.HearingDate = &at
	}
	if in.AssignedJudge != nil {
		c.AssignedJudge = *in.AssignedJudge
	}
	if in.Plaintiffs != nil {
		c.Plaintiffs = *in.Plaintiffs
	}
	if in.Defendants != nil {
		c.Defendants = *in.Defendants
	}
	c.Notes = append(c.Notes, fromAPINotes(in.Notes)...)

	if err := s.store.UpdateCase(ctx, c); err != nil {
		return nil, caseErr(err)
	}

	stored, err := s.store.GetCase(ctx, c.ID)
	if err != nil {
		return nil, caseErr(err)
	}
	return toAPICase(stored), nil
}

func (s *Service) handleGetUpcomingHearings(ctx context.Context, req *bus.Request) (any, error) {
	cases, err := s.store.ListUpcomingHearings(ctx, "", s.now().UTC())
	if err != nil {
		return nil, err
	}
	return toAPICases(cases), nil
}

func (s *Service) handleSearchMyHearings(ctx context.Context, req *bus.Request) (any, error) {
	cases, err := s.store.ListUpcomingHearings(ctx, req.Claims.SubjectID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return toAPICases(cases), nil
}

func toAPICases(cases []storage.Case) []api.Case {
	out := make([]api.Case, 0, len(cases))
	for _, c := range cases {
		out = append(out, toAPICase(c))
	}
	return out
}

func validateCaseFields(title, number, clientID string) error {
	if strings.TrimSpace(title) == "" {
		return cberrors.New(cberrors.CodeInvalidArgument, "case title is required")
	}
	if strings.TrimSpace(number) == "" {
		return cberrors.New(cberrors.CodeInvalidArgument, "case number is required")
	}
	if strings.TrimSpace(clientID) == "" {
		return cberrors.New(cberrors.CodeInvalidArgument, "client id is required")
	}
	return nil
}

func defaultStatus(status string) string {
	if strings.TrimSpace(status) == "" {
		return api.StatusOpen
	}
	return status
}
