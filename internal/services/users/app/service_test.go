package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	notifapi "github.com/casebooklabs/casebook/internal/services/notifications/api"
	"github.com/casebooklabs/casebook/internal/services/users/api"
	"github.com/casebooklabs/casebook/internal/services/users/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *bus.Inproc) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc, err := New(store)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.newPassword = func() (string, error) { return "initial-pw", nil }

	conn := bus.NewInproc()
	t.Cleanup(func() { _ = conn.Close() })
	if err := svc.Register(conn); err != nil {
		t.Fatalf("register: %v", err)
	}
	return svc, conn
}

func adminCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	ctx = bus.WithClaims(ctx, &claims.Claims{SubjectID: "admin-1", Username: "root", Role: claims.RoleAdmin})
	return ctx, cancel
}

func createRole(t *testing.T, conn *bus.Inproc, name string) api.Role {
	t.Helper()
	ctx, cancel := adminCtx(t)
	defer cancel()
	var role api.Role
	if err := conn.Request(ctx, api.TopicCreateRole, api.CreateRoleRequest{Name: name}, &role); err != nil {
		t.Fatalf("create role %s: %v", name, err)
	}
	return role
}

func createUser(t *testing.T, conn *bus.Inproc, req api.CreateUserRequest) api.User {
	t.Helper()
	ctx, cancel := adminCtx(t)
	defer cancel()
	var user api.User
	if err := conn.Request(ctx, api.TopicCreateUser, req, &user); err != nil {
		t.Fatalf("create user %s: %v", req.Username, err)
	}
	return user
}

func TestCreateUserIssuesInitialPassword(t *testing.T) {
	_, conn := newTestService(t)

	issued := make(chan notifapi.PasswordIssued, 1)
	err := conn.Subscribe(notifapi.TopicPasswordIssued, func(ctx context.Context, req *bus.Request) (any, error) {
		var msg notifapi.PasswordIssued
		if err := req.Decode(&msg); err != nil {
			t.Errorf("decode: %v", err)
		}
		issued <- msg
		return nil, nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	role := createRole(t, conn, "Lawyer")
	user := createUser(t, conn, api.CreateUserRequest{
		Username: "ada",
		Email:    "ada@example.com",
		FullName: "Ada Okafor",
		RoleID:   role.ID,
	})

	if user.ID == "" {
		t.Fatalf("user id not assigned")
	}
	if user.RoleName != "Lawyer" {
		t.Fatalf("role name = %q, want Lawyer", user.RoleName)
	}

	select {
	case msg := <-issued:
		if msg.To != "ada@example.com" || msg.Username != "ada" || msg.TempPassword != "initial-pw" {
			t.Fatalf("unexpected notification: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("password notification never published")
	}
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	_, conn := newTestService(t)
	role := createRole(t, conn, "Lawyer")
	createUser(t, conn, api.CreateUserRequest{Username: "ada", Email: "a@example.com", RoleID: role.ID})

	ctx, cancel := adminCtx(t)
	defer cancel()
	var out api.User
	err := conn.Request(ctx, api.TopicCreateUser, api.CreateUserRequest{Username: "ada", Email: "b@example.com", RoleID: role.ID}, &out)
	if !cberrors.IsCode(err, cberrors.CodeUsernameExists) {
		t.Fatalf("got %v, want USERNAME_EXISTS", err)
	}
}

func TestCreateUserUnknownRole(t *testing.T) {
	_, conn := newTestService(t)
	ctx, cancel := adminCtx(t)
	defer cancel()

	var out api.User
	err := conn.Request(ctx, api.TopicCreateUser, api.CreateUserRequest{Username: "ada", Email: "a@example.com", RoleID: "ghost"}, &out)
	if !cberrors.IsCode(err, cberrors.CodeRoleNotFound) {
		t.Fatalf("got %v, want ROLE_NOT_FOUND", err)
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	_, conn := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = bus.WithClaims(ctx, &claims.Claims{SubjectID: "u-2", Username: "front", Role: claims.RoleReceptionist})

	var out api.User
	err := conn.Request(ctx, api.TopicCreateUser, api.CreateUserRequest{Username: "ada", Email: "a@example.com", RoleID: "r"}, &out)
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestGetEmployeeByID(t *testing.T) {
	_, conn := newTestService(t)
	role := createRole(t, conn, "Lawyer")
	user := createUser(t, conn, api.CreateUserRequest{Username: "ada", Email: "a@example.com", RoleID: role.ID})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var summary api.EmployeeSummary
	if err := conn.Request(ctx, api.TopicGetEmployeeByID, api.GetByIDRequest{ID: user.ID}, &summary); err != nil {
		t.Fatalf("get employee: %v", err)
	}
	want := api.EmployeeSummary{ID: user.ID, Username: "ada", Email: "a@example.com", Role: "Lawyer"}
	if summary != want {
		t.Fatalf("got %+v, want %+v", summary, want)
	}
}

func TestGetEmployeeByIDMissing(t *testing.T) {
	_, conn := newTestService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var summary api.EmployeeSummary
	err := conn.Request(ctx, api.TopicGetEmployeeByID, api.GetByIDRequest{ID: "ghost"}, &summary)
	if !cberrors.IsCode(err, cberrors.CodeUserNotFound) {
		t.Fatalf("got %v, want USER_NOT_FOUND", err)
	}
}

func TestUpdateProfileSelfOnly(t *testing.T) {
	_, conn := newTestService(t)
	role := createRole(t, conn, "Lawyer")
	user := createUser(t, conn, api.CreateUserRequest{Username: "ada", Email: "a@example.com", RoleID: role.ID})

	fullName := "Ada Okafor"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctx = bus.WithClaims(ctx, &claims.Claims{SubjectID: user.ID, Username: "ada", Role: claims.RoleLawyer})

	var updated api.User
	if err := conn.Request(ctx, api.TopicUpdateUserProfile, api.UpdateProfileRequest{ID: user.ID, FullName: &fullName}, &updated); err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.FullName != "Ada Okafor" {
		t.Fatalf("full name = %q, want Ada Okafor", updated.FullName)
	}

	otherCtx, cancelOther := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelOther()
	otherCtx = bus.WithClaims(otherCtx, &claims.Claims{SubjectID: "someone-else", Username: "bob", Role: claims.RoleLawyer})
	err := conn.Request(otherCtx, api.TopicUpdateUserProfile, api.UpdateProfileRequest{ID: user.ID, FullName: &fullName}, &updated)
	if !cberrors.IsKind(err, cberrors.KindForbidden) {
		t.Fatalf("got %v, want Forbidden", err)
	}
}

func TestUpdateUserRole(t *testing.T) {
	_, conn := newTestService(t)
	lawyer := createRole(t, conn, "Lawyer")
	admin := createRole(t, conn, "Admin")
	user := createUser(t, conn, api.CreateUserRequest{Username: "ada", Email: "a@example.com", RoleID: lawyer.ID})

	ctx, cancel := adminCtx(t)
	defer cancel()
	var updated api.User
	if err := conn.Request(ctx, api.TopicUpdateUserRole, api.UpdateRoleRequest{ID: user.ID, RoleID: admin.ID}, &updated); err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.RoleName != "Admin" {
		t.Fatalf("role name = %q, want Admin", updated.RoleName)
	}
}

func TestDeleteUser(t *testing.T) {
	_, conn := newTestService(t)
	role := createRole(t, conn, "Lawyer")
	user := createUser(t, conn, api.CreateUserRequest{Username: "ada", Email: "a@example.com", RoleID: role.ID})

	ctx, cancel := adminCtx(t)
	defer cancel()
	var ack struct{}
	if err := conn.Request(ctx, api.TopicDeleteUser, api.GetByIDRequest{ID: user.ID}, &ack); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	var summary api.EmployeeSummary
	err := conn.Request(ctx, api.TopicGetEmployeeByID, api.GetByIDRequest{ID: user.ID}, &summary)
	if !cberrors.IsCode(err, cberrors.CodeUserNotFound) {
		t.Fatalf("got %v, want USER_NOT_FOUND", err)
	}
}

func TestDuplicateRoleName(t *testing.T) {
	_, conn := newTestService(t)
	createRole(t, conn, "Lawyer")

	ctx, cancel := adminCtx(t)
	defer cancel()
	var out api.Role
	err := conn.Request(ctx, api.TopicCreateRole, api.CreateRoleRequest{Name: "Lawyer"}, &out)
	if !cberrors.IsCode(err, cberrors.CodeRoleExists) {
		t.Fatalf("got %v, want ROLE_EXISTS", err)
	}
}
