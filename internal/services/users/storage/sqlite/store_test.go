package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/casebooklabs/casebook/internal/services/users/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedRole(t *testing.T, store *Store, id, name string) {
	t.Helper()
	if err := store.CreateRole(context.Background(), storage.Role{ID: id, Name: name}); err != nil {
		t.Fatalf("create role: %v", err)
	}
}

func TestCreateUserRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedRole(t, store, "role-1", "Lawyer")

	want := storage.User{
		ID:           "user-1",
		Username:     "ada",
		Email:        "ada@example.com",
		FullName:     "Ada Okafor",
		PhoneNumber:  "555-0100",
		PasswordHash: "hash",
		RoleID:       "role-1",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := store.CreateUser(ctx, want); err != nil {
		t.Fatalf("create user: %v", err)
	}

	got, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	byName, err := store.GetUserByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("get user by username: %v", err)
	}
	if byName.ID != "user-1" {
		t.Fatalf("got id %q, want user-1", byName.ID)
	}

	byEmail, err := store.GetUserByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("get user by email: %v", err)
	}
	if byEmail.ID != "user-1" {
		t.Fatalf("got id %q, want user-1", byEmail.ID)
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedRole(t, store, "role-1", "Lawyer")

	first := storage.User{ID: "user-1", Username: "ada", Email: "a@example.com", PasswordHash: "h", RoleID: "role-1", CreatedAt: time.Now()}
	if err := store.CreateUser(ctx, first); err != nil {
		t.Fatalf("create user: %v", err)
	}
	dup := storage.User{ID: "user-2", Username: "ada", Email: "b@example.com", PasswordHash: "h", RoleID: "role-1", CreatedAt: time.Now()}
	if err := store.CreateUser(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestGetUserMissing(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetUser(context.Background(), "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestListUsersPaging(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedRole(t, store, "role-1", "Lawyer")

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		user := storage.User{
			ID:           "user-" + string(rune('a'+i)),
			Username:     "user" + string(rune('a'+i)),
			Email:        "user" + string(rune('a'+i)) + "@example.com",
			PasswordHash: "h",
			RoleID:       "role-1",
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateUser(ctx, user); err != nil {
			t.Fatalf("create user %d: %v", i, err)
		}
	}

	page, err := store.ListUsers(ctx, 0, 2)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if page.Total != 5 {
		t.Fatalf("total = %d, want 5", page.Total)
	}
	if len(page.Users) != 2 {
		t.Fatalf("page size = %d, want 2", len(page.Users))
	}
	if page.Users[0].Username != "usere" {
		t.Fatalf("first user = %q, want newest first", page.Users[0].Username)
	}

	tail, err := store.ListUsers(ctx, 4, 2)
	if err != nil {
		t.Fatalf("list users tail: %v", err)
	}
	if len(tail.Users) != 1 {
		t.Fatalf("tail size = %d, want 1", len(tail.Users))
	}
}

func TestUpdateUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedRole(t, store, "role-1", "Lawyer")
	seedRole(t, store, "role-2", "Admin")

	user := storage.User{ID: "user-1", Username: "ada", Email: "a@example.com", PasswordHash: "h", RoleID: "role-1", CreatedAt: time.Now()}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	user.FullName = "Ada Okafor"
	user.RoleID = "role-2"
	if err := store.UpdateUser(ctx, user); err != nil {
		t.Fatalf("update user: %v", err)
	}

	got, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.FullName != "Ada Okafor" || got.RoleID != "role-2" {
		t.Fatalf("update not applied: %+v", got)
	}

	missing := storage.User{ID: "ghost", RoleID: "role-1"}
	if err := store.UpdateUser(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedRole(t, store, "role-1", "Lawyer")

	user := storage.User{ID: "user-1", Username: "ada", Email: "a@example.com", PasswordHash: "h", RoleID: "role-1", CreatedAt: time.Now()}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := store.GetUser(ctx, "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := store.DeleteUser(ctx, "user-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestRoleLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	seedRole(t, store, "role-1", "Lawyer")
	if err := store.CreateRole(ctx, storage.Role{ID: "role-2", Name: "Lawyer"}); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate role name: got %v, want ErrConflict", err)
	}

	role, err := store.GetRole(ctx, "role-1")
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role.Name != "Lawyer" {
		t.Fatalf("role name = %q, want Lawyer", role.Name)
	}

	seedRole(t, store, "role-3", "Admin")
	roles, err := store.ListRoles(ctx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 2 || roles[0].Name != "Admin" {
		t.Fatalf("roles = %+v, want Admin first", roles)
	}
}
