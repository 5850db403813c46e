package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/casebooklabs/casebook/internal/services/cases/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cases.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleCase(id, number string) storage.Case {
	return storage.Case{
		ID:               id,
		Title:            "Acme v. Doe",
		Number:           number,
		Type:             "Civil",
		Status:           "Open",
		FiledDate:        time.Now().UTC().Truncate(time.Millisecond),
		AssignedJudge:    "Hon. Marsh",
		Notes:            []storage.Note{{Message: "intake complete"}},
		ClientID:         "client-1",
		ClientName:       "Acme Holdings",
		AssigneeID:       "lawyer-1",
		AssigneeUsername: "ada",
		AssignedBy:       "root",
	}
}

func TestCaseRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	hearing := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Millisecond)
	want := sampleCase("case-1", "CV-1")
	want.HearingDate = &hearing
	if err := store.CreateCase(ctx, want); err != nil {
		t.Fatalf("create case: %v", err)
	}

	got, err := store.GetCase(ctx, "case-1")
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if got.Number != "CV-1" || got.ClientName != "Acme Holdings" {
		t.Fatalf("got %+v", got)
	}
	if got.HearingDate == nil || !got.HearingDate.Equal(hearing) {
		t.Fatalf("hearing date = %v, want %v", got.HearingDate, hearing)
	}
	if len(got.Notes) != 1 || got.Notes[0].Message != "intake complete" {
		t.Fatalf("notes = %+v", got.Notes)
	}

	byNumber, err := store.GetCaseByNumber(ctx, "CV-1")
	if err != nil {
		t.Fatalf("get by number: %v", err)
	}
	if byNumber.ID != "case-1" {
		t.Fatalf("got id %q, want case-1", byNumber.ID)
	}
}

func TestCaseNumberUnique(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CreateCase(ctx, sampleCase("case-1", "CV-1")); err != nil {
		t.Fatalf("create case: %v", err)
	}
	err := store.CreateCase(ctx, sampleCase("case-2", "CV-1"))
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestDeleteCase(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.CreateCase(ctx, sampleCase("case-1", "CV-1")); err != nil {
		t.Fatalf("create case: %v", err)
	}
	if err := store.DeleteCase(ctx, "case-1"); err != nil {
		t.Fatalf("delete case: %v", err)
	}
	if _, err := store.GetCase(ctx, "case-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListUpcomingHearings(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	later := now.Add(24 * time.Hour)
	muchLater := now.Add(96 * time.Hour)
	earlier := now.Add(-24 * time.Hour)

	first := sampleCase("case-1", "CV-1")
	first.HearingDate = &muchLater
	second := sampleCase("case-2", "CV-2")
	second.HearingDate = &later
	second.AssigneeID = "lawyer-2"
	stale := sampleCase("case-3", "CV-3")
	stale.HearingDate = &earlier
	noHearing := sampleCase("case-4", "CV-4")

	for _, c := range []storage.Case{first, second, stale, noHearing} {
		if err := store.CreateCase(ctx, c); err != nil {
			t.Fatalf("create %s: %v", c.ID, err)
		}
	}

	all, err := store.ListUpcomingHearings(ctx, "", now)
	if err != nil {
		t.Fatalf("list hearings: %v", err)
	}
	if len(all) != 2 || all[0].ID != "case-2" || all[1].ID != "case-1" {
		t.Fatalf("hearings = %+v, want case-2 then case-1", all)
	}

	mine, err := store.ListUpcomingHearings(ctx, "lawyer-2", now)
	if err != nil {
		t.Fatalf("list my hearings: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "case-2" {
		t.Fatalf("my hearings = %+v, want case-2 only", mine)
	}
}
