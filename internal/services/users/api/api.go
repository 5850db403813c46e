// Package api defines the wire contract of the users service: its request
// topics and the payload shapes other services and the gateway rely on.
package api

import "time"

// Request topics owned by the users service.
const (
	TopicCreateUser        = "users.create-user"
	TopicGetUsers          = "users.get-users"
	TopicGetEmployeeByID   = "users.get-employee-by-id"
	TopicFindUsername      = "users.find-username"
	TopicFindUserByEmail   = "users.find-user-by-email"
	TopicUpdateUserProfile = "users.update-user-profile"
	TopicUpdateUserRole    = "users.update-user-role"
	TopicDeleteUser        = "users.delete-user"
	TopicCreateRole        = "users.create-new-role"
	TopicGetAllRoles       = "users.get-all-roles"
	TopicGetRoleByID       = "users.get-role-by-id"
)

// User is the full user record as returned to authorized callers. The
// password hash never leaves the service.
type User struct {
	ID          string    `cbor:"id" json:"id"`
	Username    string    `cbor:"username" json:"username"`
	Email       string    `cbor:"email" json:"email"`
	FullName    string    `cbor:"fullName" json:"fullName"`
	PhoneNumber string    `cbor:"phoneNumber" json:"phoneNumber"`
	RoleID      string    `cbor:"roleId" json:"roleId"`
	RoleName    string    `cbor:"roleName" json:"roleName"`
	CreatedAt   time.Time `cbor:"createdAt" json:"createdAt"`
}

// EmployeeSummary is the subset of a user record that other services embed
// when they denormalize assignee fields. It is deliberately small: a saga
// step never receives the full remote record.
type EmployeeSummary struct {
	ID       string `cbor:"id" json:"id"`
	Username string `cbor:"username" json:"username"`
	Email    string `cbor:"email" json:"email"`
	Role     string `cbor:"role" json:"role"`
}

// Role is one assignable role.
type Role struct {
	ID   string `cbor:"id" json:"id"`
	Name string `cbor:"name" json:"name"`
}

// CreateUserRequest creates a user with a generated initial password.
type CreateUserRequest struct {
	Username    string `cbor:"username" json:"username"`
	Email       string `cbor:"email" json:"email"`
	FullName    string `cbor:"fullName" json:"fullName"`
	PhoneNumber string `cbor:"phoneNumber" json:"phoneNumber"`
	RoleID      string `cbor:"roleId" json:"roleId"`
}

// GetByIDRequest addresses a single record by id.
type GetByIDRequest struct {
	ID string `cbor:"id" json:"id"`
}

// FindUsernameRequest looks a user up by exact username.
type FindUsernameRequest struct {
	Username string `cbor:"username" json:"username"`
}

// FindEmailRequest looks a user up by exact email.
type FindEmailRequest struct {
	Email string `cbor:"email" json:"email"`
}

// UpdateProfileRequest updates the caller's own mutable profile fields.
// Nil fields are left unchanged.
type UpdateProfileRequest struct {
	ID          string  `cbor:"id" json:"id"`
	FullName    *string `cbor:"fullName,omitempty" json:"fullName,omitempty"`
	PhoneNumber *string `cbor:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
}

// UpdateRoleRequest moves a user to a different role.
type UpdateRoleRequest struct {
	ID     string `cbor:"id" json:"id"`
	RoleID string `cbor:"roleId" json:"roleId"`
}

// CreateRoleRequest declares a new role name.
type CreateRoleRequest struct {
	Name string `cbor:"name" json:"name"`
}

// ListRequest pages through records.
type ListRequest struct {
	Page  int `cbor:"page" json:"page"`
	Limit int `cbor:"limit" json:"limit"`
}

// UserPage is one page of user records.
type UserPage struct {
	Total int    `cbor:"total" json:"total"`
	Page  int    `cbor:"page" json:"page"`
	Limit int    `cbor:"limit" json:"limit"`
	Users []User `cbor:"users" json:"users"`
}
