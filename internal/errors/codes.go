package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// CodeInvalidArgument represents a request that fails validation.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"

	// Authorization
	CodeForbidden Code = "FORBIDDEN"

	// Users
	CodeUserNotFound     Code = "USER_NOT_FOUND"
	CodeUsernameExists   Code = "USERNAME_EXISTS"
	CodeUserEmailExists  Code = "USER_EMAIL_EXISTS"
	CodeRoleNotFound     Code = "ROLE_NOT_FOUND"
	CodeRoleExists       Code = "ROLE_EXISTS"
	CodeUserEmailMissing Code = "USER_EMAIL_MISSING"

	// Clients
	CodeClientNotFound    Code = "CLIENT_NOT_FOUND"
	CodeClientEmailExists Code = "CLIENT_EMAIL_EXISTS"

	// Cases
	CodeCaseNotFound         Code = "CASE_NOT_FOUND"
	CodeCaseNumberExists     Code = "CASE_NUMBER_EXISTS"
	CodeCaseAssigneeRole     Code = "CASE_ASSIGNEE_ROLE_DISALLOWED"
	CodeCaseNotAssignedToYou Code = "CASE_NOT_ASSIGNED_TO_YOU"

	// Files
	CodeFileNotFound   Code = "FILE_NOT_FOUND"
	CodeFileNameExists Code = "FILE_NAME_EXISTS"
	CodeFileOrphaned   Code = "FILE_STORAGE_ORPHANED"

	// Tasks
	CodeTaskNotFound   Code = "TASK_NOT_FOUND"
	CodeTaskNameExists Code = "TASK_NAME_EXISTS"

	// Visitors
	CodeVisitorNotFound Code = "VISITOR_NOT_FOUND"

	// Appointments
	CodeAppointmentNotFound Code = "APPOINTMENT_NOT_FOUND"
	CodeAppointmentOverlap  Code = "APPOINTMENT_OVERLAP"
	CodeAppointmentInPast   Code = "APPOINTMENT_IN_PAST"
	CodeAppointmentOrdering Code = "APPOINTMENT_END_BEFORE_START"

	// Transport
	CodeCallTimeout Code = "CALL_TIMEOUT"
)

var codeKinds = map[Code]Kind{
	CodeInvalidArgument:      KindInvalid,
	CodeForbidden:            KindForbidden,
	CodeUserNotFound:         KindNotFound,
	CodeUsernameExists:       KindConflict,
	CodeUserEmailExists:      KindConflict,
	CodeRoleNotFound:         KindNotFound,
	CodeRoleExists:           KindConflict,
	CodeUserEmailMissing:     KindInvalid,
	CodeClientNotFound:       KindNotFound,
	CodeClientEmailExists:    KindConflict,
	CodeCaseNotFound:         KindNotFound,
	CodeCaseNumberExists:     KindConflict,
	CodeCaseAssigneeRole:     KindForbidden,
	CodeCaseNotAssignedToYou: KindForbidden,
	CodeFileNotFound:         KindNotFound,
	CodeFileNameExists:       KindConflict,
	CodeFileOrphaned:         KindFatal,
	CodeTaskNotFound:         KindNotFound,
	CodeTaskNameExists:       KindConflict,
	CodeVisitorNotFound:      KindNotFound,
	CodeAppointmentNotFound:  KindNotFound,
	CodeAppointmentOverlap:   KindConflict,
	CodeAppointmentInPast:    KindInvalid,
	CodeAppointmentOrdering:  KindInvalid,
	CodeCallTimeout:          KindTimeout,
}

// Kind returns the failure kind registered for this code.
func (c Code) Kind() Kind {
	if kind, ok := codeKinds[c]; ok {
		return kind
	}
	return KindUnknown
}
