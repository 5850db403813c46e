// Package app implements the users service handlers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/casebooklabs/casebook/internal/auth/claims"
	cberrors "github.com/casebooklabs/casebook/internal/errors"
	"github.com/casebooklabs/casebook/internal/platform/bus"
	"github.com/casebooklabs/casebook/internal/platform/id"
	"github.com/casebooklabs/casebook/internal/random"
	notifapi "github.com/casebooklabs/casebook/internal/services/notifications/api"
	"github.com/casebooklabs/casebook/internal/services/users/api"
	"github.com/casebooklabs/casebook/internal/services/users/storage"
)

const initialPasswordLength = 12

// Service handles users topics over a shared store.
type Service struct {
	store storage.Store
	conn  bus.Conn

	now         func() time.Time
	newID       func() string
	newPassword func() (string, error)
}

// New creates a users service over the given store.
func New(store storage.Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &Service{
		store:       store,
		now:         time.Now,
		newID:       id.New,
		newPassword: func() (string, error) { return random.Password(initialPasswordLength) },
	}, nil
}

// Register subscribes every users topic on the connection. Gates run before
// handlers; internal topics skip the role check and stay reachable only from
// other services.
func (s *Service) Register(conn bus.Conn) error {
	if conn == nil {
		return fmt.Errorf("bus connection is required")
	}
	s.conn = conn

	subscriptions := map[string]bus.Handler{
		api.TopicCreateUser:        bus.Allow(s.handleCreateUser, claims.RoleAdmin),
		api.TopicGetUsers:          bus.Allow(s.handleGetUsers, claims.RoleAdmin),
		api.TopicUpdateUserRole:    bus.Allow(s.handleUpdateRole, claims.RoleAdmin),
		api.TopicDeleteUser:        bus.Allow(s.handleDeleteUser, claims.RoleAdmin),
		api.TopicCreateRole:        bus.Allow(s.handleCreateRole, claims.RoleAdmin),
		api.TopicGetAllRoles:       bus.Allow(s.handleGetAllRoles, claims.RoleAdmin),
		api.TopicGetRoleByID:       bus.Allow(s.handleGetRoleByID, claims.RoleAdmin),
		api.TopicUpdateUserProfile: bus.Allow(s.handleUpdateProfile, claims.RoleAdmin, claims.RoleLawyer, claims.RoleReceptionist),
		api.TopicGetEmployeeByID:   bus.Internal(s.handleGetEmployeeByID),
		api.TopicFindUsername:      bus.Internal(s.handleFindUsername),
		api.TopicFindUserByEmail:   bus.Internal(s.handleFindUserByEmail),
	}
	for topic, handler := range subscriptions {
		if err := conn.Subscribe(topic, handler); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}

func userErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeUserNotFound, "User not found")
	}
	return err
}

func roleErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return cberrors.New(cberrors.CodeRoleNotFound, "Role not found")
	}
	return err
}

func toAPIUser(user storage.User, roleName string) api.User {
	return api.User{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FullName:    user.FullName,
		PhoneNumber: user.PhoneNumber,
		RoleID:      user.RoleID,
		RoleName:    roleName,
		CreatedAt:   user.CreatedAt,
	}
}

func (s *Service) handleCreateUser(ctx context.Context, req *bus.Request) (any, error) {
	var in api.CreateUserRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed create user request", err)
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "username is required")
	}
	if in.Email == "" {
		return nil, cberrors.New(cberrors.CodeUserEmailMissing, "email is required")
	}

	role, err := s.store.GetRole(ctx, in.RoleID)
	if err != nil {
		return nil, roleErr(err)
	}
	if _, err := s.store.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, cberrors.New(cberrors.CodeUsernameExists, "Username already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, cberrors.New(cberrors.CodeUserEmailExists, "Email already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	password, err := s.newPassword()
	if err != nil {
		return nil, fmt.Errorf("generate initial password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash initial password: %w", err)
	}

	user := storage.User{
		ID:           s.newID(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, cberrors.New(cberrors.CodeUsernameExists, "Username already exists")
		}
		return nil, err
	}

	// Delivery is best effort. The account exists either way; the initial
	// password can be re-issued by an admin if the mail never lands.
	s.publish(notifapi.TopicPasswordIssued, notifapi.PasswordIssued{
		To:           user.Email,
		Username:     user.Username,
		TempPassword: password,
	})

	stored, err := s.store.GetUser(ctx, user.ID)
	if err != nil {
		return nil, userErr(err)
	}
	return toAPIUser(stored, role.Name), nil
}

func (s *Service) publish(topic string, in any) {
	if s.conn == nil {
		log.Printf("users: dropped publish to %s: no bus connection", topic)
		return
	}
	s.conn.Publish(topic, in)
}

func (s *Service) roleNames(ctx context.Context) (map[string]string, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}
	return names, nil
}

func (s *Service) handleGetUsers(ctx context.Context, req *bus.Request) (any, error) {
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

	page, err := s.store.ListUsers(ctx, (in.Page-1)*in.Limit, in.Limit)
	if err != nil {
		return nil, err
	}
	names, err := s.roleNames(ctx)
	if err != nil {
		return nil, err
	}

	out := api.UserPage{Total: page.Total, Page: in.Page, Limit: in.Limit}
	for _, user := range page.Users {
		out.Users = append(out.Users, toAPIUser(user, names[user.RoleID]))
	}
	return out, nil
}

func (s *Service) handleGetEmployeeByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	user, err := s.store.GetUser(ctx, in.ID)
	if err != nil {
		return nil, userErr(err)
	}
	role, err := s.store.GetRole(ctx, user.RoleID)
	if err != nil {
		return nil, roleErr(err)
	}
	return api.EmployeeSummary{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     role.Name,
	}, nil
}

func (s *Service) handleFindUsername(ctx context.Context, req *bus.Request) (any, error) {
	var in api.FindUsernameRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed find request", err)
	}
	user, err := s.store.GetUserByUsername(ctx, in.Username)
	if err != nil {
		return nil, userErr(err)
	}
	return s.userReply(ctx, user)
}

func (s *Service) handleFindUserByEmail(ctx context.Context, req *bus.Request) (any, error) {
	var in api.FindEmailRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed find request", err)
	}
	user, err := s.store.GetUserByEmail(ctx, in.Email)
	if err != nil {
		return nil, userErr(err)
	}
	return s.userReply(ctx, user)
}

func (s *Service) userReply(ctx context.Context, user storage.User) (any, error) {
	role, err := s.store.GetRole(ctx, user.RoleID)
	if err != nil {
		return nil, roleErr(err)
	}
	return toAPIUser(user, role.Name), nil
}

func (s *Service) handleUpdateProfile(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateProfileRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update request", err)
	}
	// Profile updates are self-service only.
	if req.Claims == nil || req.Claims.SubjectID != in.ID {
		return nil, cberrors.New(cberrors.CodeForbidden, "Forbidden resource")
	}

	user, err := s.store.GetUser(ctx, in.ID)
	if err != nil {
		return nil, userErr(err)
	}
	if in.FullName != nil {
		user.FullName = *in.FullName
	}
	if in.PhoneNumber != nil {
		user.PhoneNumber = *in.PhoneNumber
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, userErr(err)
	}
	return s.userReply(ctx, user)
}

func (s *Service) handleUpdateRole(ctx context.Context, req *bus.Request) (any, error) {
	var in api.UpdateRoleRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed update request", err)
	}
	role, err := s.store.GetRole(ctx, in.RoleID)
	if err != nil {
		return nil, roleErr(err)
	}
	user, err := s.store.GetUser(ctx, in.ID)
	if err != nil {
		return nil, userErr(err)
	}
	user.RoleID = role.ID
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, userErr(err)
	}
	return toAPIUser(user, role.Name), nil
}

func (s *Service) handleDeleteUser(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed delete request", err)
	}
	if err := s.store.DeleteUser(ctx, in.ID); err != nil {
		return nil, userErr(err)
	}
	return struct{}{}, nil
}

func (s *Service) handleCreateRole(ctx context.Context, req *bus.Request) (any, error) {
	var in api.CreateRoleRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed create role request", err)
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, cberrors.New(cberrors.CodeInvalidArgument, "role name is required")
	}

	role := storage.Role{ID: s.newID(), Name: in.Name}
	if err := s.store.CreateRole(ctx, role); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, cberrors.New(cberrors.CodeRoleExists, "Role already exists")
		}
		return nil, err
	}
	return api.Role{ID: role.ID, Name: role.Name}, nil
}

func (s *Service) handleGetAllRoles(ctx context.Context, req *bus.Request) (any, error) {
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.Role, 0, len(roles))
	for _, role := range roles {
		out = append(out, api.Role{ID: role.ID, Name: role.Name})
	}
	return out, nil
}

func (s *Service) handleGetRoleByID(ctx context.Context, req *bus.Request) (any, error) {
	var in api.GetByIDRequest
	if err := req.Decode(&in); err != nil {
		return nil, cberrors.Wrap(cberrors.CodeInvalidArgument, "malformed get request", err)
	}
	role, err := s.store.GetRole(ctx, in.ID)
	if err != nil {
		return nil, roleErr(err)
	}
	return api.Role{ID: role.ID, Name: role.Name}, nil
}
