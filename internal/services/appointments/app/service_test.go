package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/services/appointments/api"
	"github.com/casebooklabs/casebook/internal/services/appointments/storage/sqlite"
	casesapi "github.com/casebooklabs/casebook/internal/services/cases/api"
	clientsapi "github.com/casebooklabs/casebook/internal/services/clients/api"
	usersapi "github.com/casebooklabs/casebook/internal/services/users/api"
)

type testEnv struct {
	conn *bus.Inproc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "appointments.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc, err := New(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	conn := bus.NewInproc()
	t.Cleanup(func() { _ = conn.Close() })
	if err := svc.Register(conn); err != nil {
		t.Fatalf("register: %v", err)
	}

	err = conn.Subscribe(usersapi.TopicGetEmployeeByID, func(ctx context.Context, req *bus.Request) (any, error) {
		var in usersapi.GetByIDRequest
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		employees := map[string]usersapi.EmployeeSummary{
			"lawyer-1": {ID: "lawyer-1", Username: "ada", Email: "ada@example.com", Role: claims.RoleLawyer},
			"lawyer-2": {ID: "lawyer-2", Username: "bob", Email: "bob@example.com", Role: claims.RoleLawyer},
		}
		employee, ok := employees[in.ID]
		if !ok {
			return nil, cberrors.New(cberrors.CodeUserNotFound, "User not found")
		}
		return employee, nil
	})
	if err != nil {
		t.Fatalf("subscribe users stub: %v", err)
	}

	err = conn.Subscribe(clientsapi.TopicGetClientByID, func(ctx context.Context, req *bus.Request) (any, error) {
		var in clientsapi.GetByIDRequest
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		if in.ID != "client-1" {
			return nil, cberrors.New(cberrors.CodeClientNotFound, "Client not found")
		}
		return clientsapi.Client{ID: "client-1", Name: "Acme Holdings"}, nil
	})
	if err != nil {
		t.Fatalf("subscribe clients stub: %v", err)
	}

	err = conn.Subscribe(casesapi.TopicSearchCaseByID, func(ctx context.Context, req *bus.Request) (any, error) {
		var in casesapi.GetByIDRequest
		if err := req.Decode(&in); err != nil {
			return nil, err
		}
		if in.ID != "case-1" {
			return nil, cberrors.New(cberrors.CodeCaseNotFound, "Case not found")
		}
		return casesapi.Case{ID: "case-1", Number: "LC-2026-014", Title: "Acme v. Omega"}, nil
	})
	if err != nil {
		t.Fatalf("subscribe cases stub: %v", err)
	}
	return &testEnv{conn: conn}
}

func lawyerCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ctx = bus.WithClaims(ctx, &claims.Claims{SubjectID: "lawyer-1", Username: "ada", Role: claims.RoleLawyer})
	return ctx, cancel
}

// slot returns a window h from now lasting d.
func slot(h time.Duration, d time.Duration) (time.Time, time.Time) {
	start := time.Now().Add(h).UTC().Truncate(time.Second)
	return start, start.Add(d)
}

func book(t *testing.T, env *testEnv, assigneeID string, start, end time.Time) api.Appointment {
	t.Helper()
	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var appointment api.Appointment
	err := env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Consultation", Start: start, End: end, AssigneeID: assigneeID, ClientID: "client-1",
	}, &appointment)
	if err != nil {
		t.Fatalf("book appointment: %v", err)
	}
	return appointment
}

func TestCreateAppointment(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, 30*time.Minute)
	appointment := book(t, env, "lawyer-1", start, end)

	if appointment.Assignee != (api.AssigneeRef{ID: "lawyer-1", Username: "ada"}) {
		t.Fatalf("assignee = %+v", appointment.Assignee)
	}
	if appointment.Client == nil || appointment.Client.Name != "Acme Holdings" {
		t.Fatalf("client = %+v", appointment.Client)
	}
	if appointment.BookedBy != "ada" {
		t.Fatalf("booked by = %q", appointment.BookedBy)
	}
	if !appointment.Start.Equal(start) || !appointment.End.Equal(end) {
		t.Fatalf("window = %v..%v, want %v..%v", appointment.Start, appointment.End, start, end)
	}
}

func TestCreateAppointmentLinksCase(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, 30*time.Minute)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var appointment api.Appointment
	err := env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Hearing prep", Start: start, End: end, AssigneeID: "lawyer-1", CaseID: "case-1",
	}, &appointment)
	if err != nil {
		t.Fatalf("book appointment: %v", err)
	}
	if appointment.Case == nil || appointment.Case.Number != "LC-2026-014" {
		t.Fatalf("case = %+v", appointment.Case)
	}

	err = env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Hearing prep", Start: end, End: end.Add(time.Hour), AssigneeID: "lawyer-1", CaseID: "ghost",
	}, &appointment)
	if !cberrors.IsCode(err, cberrors.CodeCaseNotFound) {
		t.Fatalf("got %v, want CASE_NOT_FOUND", err)
	}
}

func TestCreateAppointmentForbiddenForReceptionist(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, 30*time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = bus.WithClaims(ctx, &claims.Claims{SubjectID: "front-1", Username: "dina", Role: claims.RoleReceptionist})

	var appointment api.Appointment
	err := env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Walk-in", Start: start, End: end, AssigneeID: "lawyer-1",
	}, &appointment)
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestCreateAppointmentRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	book(t, env, "lawyer-1", start, end)

	ctx, cancel := lawyerCtx(t)
	defer cancel()

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"straddles start", start.Add(-30 * time.Minute), start.Add(30 * time.Minute)},
		{"straddles end", end.Add(-30 * time.Minute), end.Add(30 * time.Minute)},
		{"contained", start.Add(10 * time.Minute), end.Add(-10 * time.Minute)},
		{"contains", start.Add(-10 * time.Minute), end.Add(10 * time.Minute)},
		{"exact", start, end},
	}
	for _, tc := range cases {
		var appointment api.Appointment
		err := env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
			Title: "Clash", Start: tc.start, End: tc.end, AssigneeID: "lawyer-1",
		}, &appointment)
		if !cberrors.IsCode(err, cberrors.CodeAppointmentOverlap) {
			t.Fatalf("%s: got %v, want APPOINTMENT_OVERLAP", tc.name, err)
		}
	}
}

func TestCreateAppointmentBackToBackAllowed(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	book(t, env, "lawyer-1", start, end)
	book(t, env, "lawyer-1", end, end.Add(time.Hour))
	book(t, env, "lawyer-1", start.Add(-time.Hour), start)
}

func TestCreateAppointmentOtherAssigneeUnaffected(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	book(t, env, "lawyer-1", start, end)
	book(t, env, "lawyer-2", start, end)
}

func TestCreateAppointmentRejectsInvertedWindow(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var appointment api.Appointment
	err := env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Backwards", Start: end, End: start, AssigneeID: "lawyer-1",
	}, &appointment)
	if !cberrors.IsCode(err, cberrors.CodeAppointmentOrdering) {
		t.Fatalf("got %v, want APPOINTMENT_ORDERING", err)
	}

	err = env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Zero length", Start: start, End: start, AssigneeID: "lawyer-1",
	}, &appointment)
	if !cberrors.IsCode(err, cberrors.CodeAppointmentOrdering) {
		t.Fatalf("got %v, want APPOINTMENT_ORDERING", err)
	}
}

func TestCreateAppointmentRejectsPastStart(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(-time.Hour, 30*time.Minute)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var appointment api.Appointment
	err := env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Yesterday", Start: start, End: end, AssigneeID: "lawyer-1",
	}, &appointment)
	if !cberrors.IsCode(err, cberrors.CodeAppointmentInPast) {
		t.Fatalf("got %v, want APPOINTMENT_IN_PAST", err)
	}
}

func TestCreateAppointmentUnknownAssignee(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, 30*time.Minute)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var appointment api.Appointment
	err := env.conn.Request(ctx, api.TopicCreateAppointment, api.CreateAppointmentRequest{
		Title: "Ghost", Start: start, End: end, AssigneeID: "ghost",
	}, &appointment)
	if !cberrors.IsCode(err, cberrors.CodeUserNotFound) {
		t.Fatalf("got %v, want USER_NOT_FOUND", err)
	}
}

func TestUpdateAppointmentWindowExcludesSelf(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	appointment := book(t, env, "lawyer-1", start, end)

	ctx, cancel := lawyerCtx(t)
	defer cancel()

	// Shifting a booking within its own old window must not self-conflict.
	newStart := start.Add(30 * time.Minute)
	newEnd := end.Add(30 * time.Minute)
	var updated api.Appointment
	err := env.conn.Request(ctx, api.TopicUpdateAppointment, api.UpdateAppointmentRequest{
		AppointmentID: appointment.ID, Start: &newStart, End: &newEnd,
	}, &updated)
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !updated.Start.Equal(newStart) || !updated.End.Equal(newEnd) {
		t.Fatalf("window = %v..%v, want %v..%v", updated.Start, updated.End, newStart, newEnd)
	}
}

func TestUpdateAppointmentRejectsOverlap(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	book(t, env, "lawyer-1", start, end)
	other := book(t, env, "lawyer-1", end, end.Add(time.Hour))

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	clashStart := start.Add(30 * time.Minute)
	clashEnd := end.Add(30 * time.Minute)
	var updated api.Appointment
	err := env.conn.Request(ctx, api.TopicUpdateAppointment, api.UpdateAppointmentRequest{
		AppointmentID: other.ID, Start: &clashStart, End: &clashEnd,
	}, &updated)
	if !cberrors.IsCode(err, cberrors.CodeAppointmentOverlap) {
		t.Fatalf("got %v, want APPOINTMENT_OVERLAP", err)
	}
}

func TestUpdateAppointmentDetailsOnly(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	appointment := book(t, env, "lawyer-1", start, end)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	location := "Meeting room B"
	var updated api.Appointment
	err := env.conn.Request(ctx, api.TopicUpdateAppointment, api.UpdateAppointmentRequest{
		AppointmentID: appointment.ID, Location: &location,
	}, &updated)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Location != "Meeting room B" {
		t.Fatalf("location = %q", updated.Location)
	}
	if !updated.Start.Equal(appointment.Start) || !updated.End.Equal(appointment.End) {
		t.Fatalf("window changed: %v..%v", updated.Start, updated.End)
	}

	var stored api.Appointment
	if err := env.conn.Request(ctx, api.TopicGetAppointmentByID, api.GetByIDRequest{ID: appointment.ID}, &stored); err != nil {
		t.Fatalf("reread: %v", err)
	}
	if stored.Location != updated.Location || !stored.Start.Equal(updated.Start) {
		t.Fatalf("reply %+v diverges from stored record %+v", updated, stored)
	}
}

func TestSearchAppointmentTitles(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	book(t, env, "lawyer-1", start, end)
	book(t, env, "lawyer-2", start, end)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var matches []api.Appointment
	if err := env.conn.Request(ctx, api.TopicSearchTitles, api.SearchTitlesRequest{Title: "Consult"}, &matches); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}

	if err := env.conn.Request(ctx, api.TopicSearchTitles, api.SearchTitlesRequest{Title: "Deposition"}, &matches); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("got %d matches, want 0", len(matches))
	}
}

func TestGetMyAppointments(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	book(t, env, "lawyer-1", start, end)
	book(t, env, "lawyer-1", end, end.Add(time.Hour))
	book(t, env, "lawyer-2", start, end)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var mine []api.Appointment
	if err := env.conn.Request(ctx, api.TopicGetMyAppointments, struct{}{}, &mine); err != nil {
		t.Fatalf("my appointments: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("got %d appointments, want 2", len(mine))
	}
	if mine[0].Start.After(mine[1].Start) {
		t.Fatalf("appointments out of order: %v, %v", mine[0].Start, mine[1].Start)
	}
}

func TestCancelAppointment(t *testing.T) {
	env := newTestEnv(t)
	start, end := slot(time.Hour, time.Hour)
	appointment := book(t, env, "lawyer-1", start, end)

	ctx, cancel := lawyerCtx(t)
	defer cancel()
	var ack struct{}
	if err := env.conn.Request(ctx, api.TopicCancelAppointment, api.CancelRequest{AppointmentID: appointment.ID}, &ack); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var got api.Appointment
	err := env.conn.Request(ctx, api.TopicGetAppointmentByID, api.GetByIDRequest{ID: appointment.ID}, &got)
	if !cberrors.IsCode(err, cberrors.CodeAppointmentNotFound) {
		t.Fatalf("got %v, want APPOINTMENT_NOT_FOUND", err)
	}

	// The cancelled slot is free again.
	book(t, env, "lawyer-1", start, end)
}
