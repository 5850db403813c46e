package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/services/visitors/api"
	"github.com/casebooklabs/casebook/internal/services/visitors/storage/sqlite"
)

func newTestService(t *testing.T) *bus.Inproc {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "visitors.db"))
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
	return conn
}

func frontCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ctx = bus.WithClaims(ctx, &claims.Claims{SubjectID: "front-1", Username: "front", Role: claims.RoleReceptionist})
	return ctx, cancel
}

func recordVisitor(t *testing.T, conn *bus.Inproc, name string) api.Visitor {
	t.Helper()
	ctx, cancel := frontCtx(t)
	defer cancel()
	var visitor api.Visitor
	err := conn.Request(ctx, api.TopicRecordNewVisitor, api.RecordVisitorRequest{
		FullName: name, PurposeOfVisit: "Consultation", WhoToSee: "ada",
	}, &visitor)
	if err != nil {
		t.Fatalf("record visitor: %v", err)
	}
	return visitor
}

func TestRecordNewVisitor(t *testing.T) {
	conn := newTestService(t)
	visitor := recordVisitor(t, conn, "Jo Doe")

	if visitor.TimeIn.IsZero() {
		t.Fatalf("time in not stamped")
	}
	if visitor.TimeOut != nil {
		t.Fatalf("time out already set: %v", visitor.TimeOut)
	}
	if visitor.RecordedBy != "front" {
		t.Fatalf("recorded by = %q, want front", visitor.RecordedBy)
	}
}

func TestLawyerCannotRecordVisitor(t *testing.T) {
	conn := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = bus.WithClaims(ctx, &claims.Claims{SubjectID: "lawyer-1", Username: "ada", Role: claims.RoleLawyer})

	var visitor api.Visitor
	err := conn.Request(ctx, api.TopicRecordNewVisitor, api.RecordVisitorRequest{FullName: "Jo"}, &visitor)
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestSignOutVisitor(t *testing.T) {
	conn := newTestService(t)
	visitor := recordVisitor(t, conn, "Jo Doe")

	ctx, cancel := frontCtx(t)
	defer cancel()
	var signedOut api.Visitor
	if err := conn.Request(ctx, api.TopicSignOutVisitor, api.SignOutRequest{VisitorID: visitor.ID}, &signedOut); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if signedOut.TimeOut == nil {
		t.Fatalf("time out not stamped")
	}

	// Signing out twice keeps the first stamp.
	first := *signedOut.TimeOut
	var again api.Visitor
	if err := conn.Request(ctx, api.TopicSignOutVisitor, api.SignOutRequest{VisitorID: visitor.ID}, &again); err != nil {
		t.Fatalf("second sign out: %v", err)
	}
	if again.TimeOut == nil || !again.TimeOut.Equal(first) {
		t.Fatalf("time out moved: %v vs %v", again.TimeOut, first)
	}
}

func TestUpdateVisitorRecord(t *testing.T) {
	conn := newTestService(t)
	visitor := recordVisitor(t, conn, "Jo Doe")

	whoToSee := "root"
	ctx, cancel := frontCtx(t)
	defer cancel()
	var updated api.Visitor
	err := conn.Request(ctx, api.TopicUpdateVisitorRecord, api.UpdateVisitorRequest{
		VisitorID: visitor.ID, WhoToSee: &whoToSee,
	}, &updated)
	if err != nil {
		t.Fatalf("update visitor: %v", err)
	}
	if updated.WhoToSee != "root" {
		t.Fatalf("who to see = %q, want root", updated.WhoToSee)
	}
	if updated.FullName != "Jo Doe" {
		t.Fatalf("name changed unexpectedly: %q", updated.FullName)
	}
}

func TestGetVisitorMissing(t *testing.T) {
	conn := newTestService(t)
	ctx, cancel := frontCtx(t)
	defer cancel()

	var visitor api.Visitor
	err := conn.Request(ctx, api.TopicGetVisitorByID, api.GetByIDRequest{ID: "ghost"}, &visitor)
	if !cberrors.IsCode(err, cberrors.CodeVisitorNotFound) {
		t.Fatalf("got %v, want VISITOR_NOT_FOUND", err)
	}
}

func TestDeleteVisitorRequiresAdmin(t *testing.T) {
	conn := newTestService(t)
	visitor := recordVisitor(t, conn, "Jo Doe")

	ctx, cancel := frontCtx(t)
	defer cancel()
	var ack struct{}
	err := conn.Request(ctx, api.TopicDeleteVisitorRecord, api.GetByIDRequest{ID: visitor.ID}, &ack)
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("receptionist delete: got %v, want Forbidden", err)
	}

	adminCtx, cancelAdmin := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelAdmin()
	adminCtx = bus.WithClaims(adminCtx, &claims.Claims{SubjectID: "admin-1", Username: "root", Role: claims.RoleAdmin})
	if err := conn.Request(adminCtx, api.TopicDeleteVisitorRecord, api.GetByIDRequest{ID: visitor.ID}, &ack); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestSearchForVisitorMatchesSubstring(t *testing.T) {
	conn := newTestService(t)
	recordVisitor(t, conn, "Jo Doe")
	recordVisitor(t, conn, "Joanna Doe")
	recordVisitor(t, conn, "Sam Oak")

	ctx, cancel := frontCtx(t)
	defer cancel()
	var found []api.Visitor
	if err := conn.Request(ctx, api.TopicSearchForVisitor, api.SearchVisitorRequest{FullName: "Doe"}, &found); err != nil {
		t.Fatalf("search visitors: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("got %d visitors, want 2", len(found))
	}

	err := conn.Request(ctx, api.TopicSearchForVisitor, api.SearchVisitorRequest{FullName: "Nobody"}, &found)
	if !cberrors.IsCode(err, cberrors.CodeVisitorNotFound) {
		t.Fatalf("got %v, want VISITOR_NOT_FOUND", err)
	}

	err = conn.Request(ctx, api.TopicSearchForVisitor, api.SearchVisitorRequest{}, &found)
	if !cberrors.IsKind(err, cberrors.KindInvalid) {
		t.Fatalf("got %v, want Invalid", err)
	}
}

func TestListVisitorsNewestFirst(t *testing.T) {
	conn := newTestService(t)
	recordVisitor(t, conn, "First")
	time.Sleep(5 * time.Millisecond)
	recordVisitor(t, conn, "Second")

	ctx, cancel := frontCtx(t)
	defer cancel()
	var page api.VisitorPage
	if err := conn.Request(ctx, api.TopicGetAllVisitors, api.ListRequest{}, &page); err != nil {
		t.Fatalf("list visitors: %v", err)
	}
	if page.Total != 2 || len(page.Visitors) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Visitors[0].FullName != "Second" {
		t.Fatalf("first entry = %q, want Second", page.Visitors[0].FullName)
	}
}
