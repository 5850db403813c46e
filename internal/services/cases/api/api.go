// Package api defines the wire contract of the cases service.
package api

import "time"

// Request topics owned by the cases service.
const (
	TopicCreateNewCase       = "cases.create-new-case"
	TopicAssignNewCase       = "cases.assign-new-case"
	TopicReassignCase        = "cases.reassign-case"
	TopicSearchCaseByID      = "cases.search-case-by-id"
	TopicSearchCaseByNumber  = "cases.search-case-by-number"
	TopicGetAllCases         = "cases.get-all-cases"
	TopicUpdateCaseDetails   = "cases.update-case-details"
	TopicGetUpcomingHearings = "cases.get-upcoming-hearings"
	TopicSearchMyHearings    = "cases.search-my-hearings"
)

// Case statuses.
const (
	StatusOpen    = "Open"
	StatusPending = "Pending"
	StatusClosed  = "Closed"
)

// Note is one free-form annotation on a case.
type Note struct {
	Message string `cbor:"message" json:"message"`
}

// ClientRef is the denormalized client projection embedded in a case. It is
// always built from the clients service's verified summary at write time,
// never from caller-supplied values.
type ClientRef struct {
	ID   string `cbor:"id" json:"id"`
	Name string `cbor:"name" json:"name"`
}

// AssigneeRef is the denormalized assignee projection embedded in a case.
type AssigneeRef struct {
	ID       string `cbor:"id" json:"id"`
	Username string `cbor:"username" json:"username"`
}

// Case is the full case record with its relational projections.
type Case struct {
	ID            string      `cbor:"id" json:"id"`
	Title         string      `cbor:"title" json:"title"`
	Number        string      `cbor:"number" json:"number"`
	Type          string      `cbor:"type" json:"type"`
	Status        string      `cbor:"status" json:"status"`
	FiledDate     time.Time   `cbor:"filedDate" json:"filedDate"`
	HearingDate   *time.Time  `cbor:"hearingDate,omitempty" json:"hearingDate,omitempty"`
	AssignedJudge string      `cbor:"assignedJudge" json:"assignedJudge"`
	Plaintiffs    string      `cbor:"plaintiffs,omitempty" json:"plaintiffs,omitempty"`
	Defendants    string      `cbor:"defendants,omitempty" json:"defendants,omitempty"`
	Notes         []Note      `cbor:"notes,omitempty" json:"notes,omitempty"`
	Client        ClientRef   `cbor:"client" json:"client"`
	Assignee      AssigneeRef `cbor:"assignee" json:"assignee"`
	AssignedBy    string      `cbor:"assignedBy,omitempty" json:"assignedBy,omitempty"`
}

// CaseSummary is the subset other services embed when they reference a case.
type CaseSummary struct {
	ID     string `cbor:"id" json:"id"`
	Number string `cbor:"number" json:"number"`
	Title  string `cbor:"title" json:"title"`
}

// CreateCaseRequest opens a case assigned to the acting user.
type CreateCaseRequest struct {
	Title         string     `cbor:"title" json:"title"`
	Number        string     `cbor:"number" json:"number"`
	Type          string     `cbor:"type" json:"type"`
	Status        string     `cbor:"status" json:"status"`
	HearingDate   *time.Time `cbor:"hearingDate,omitempty" json:"hearingDate,omitempty"`
	AssignedJudge string     `cbor:"assignedJudge" json:"assignedJudge"`
	Plaintiffs    string     `cbor:"plaintiffs,omitempty" json:"plaintiffs,omitempty"`
	Defendants    string     `cbor:"defendants,omitempty" json:"defendants,omitempty"`
	Notes         []Note     `cbor:"notes,omitempty" json:"notes,omitempty"`
	ClientID      string     `cbor:"clientId" json:"clientId"`
}

// AssignCaseRequest opens a case on behalf of a chosen assignee.
type AssignCaseRequest struct {
	AssigneeID    string     `cbor:"assigneeId" json:"assigneeId"`
	ClientID      string     `cbor:"clientId" json:"clientId"`
	Title         string     `cbor:"title" json:"title"`
	Number        string     `cbor:"number" json:"number"`
	Type          string     `cbor:"type" json:"type"`
	Status        string     `cbor:"status" json:"status"`
	HearingDate   *time.Time `cbor:"hearingDate,omitempty" json:"hearingDate,omitempty"`
	AssignedJudge string     `cbor:"assignedJudge" json:"assignedJudge"`
	Plaintiffs    string     `cbor:"plaintiffs,omitempty" json:"plaintiffs,omitempty"`
	Defendants    string     `cbor:"defendants,omitempty" json:"defendants,omitempty"`
	Notes         []Note     `cbor:"notes,omitempty" json:"notes,omitempty"`
}

// ReassignCaseRequest moves an existing case to a different assignee.
type ReassignCaseRequest struct {
	CaseID     string `cbor:"caseId" json:"caseId"`
	AssigneeID string `cbor:"assigneeId" json:"assigneeId"`
}

// GetByIDRequest addresses a single record by id.
type GetByIDRequest struct {
	ID string `cbor:"id" json:"id"`
}

// GetByNumberRequest addresses a case by its unique case number.
type GetByNumberRequest struct {
	Number string `cbor:"number" json:"number"`
}

// UpdateCaseRequest patches mutable case fields; nil fields are left
// unchanged. Notes are appended, not replaced.
type UpdateCaseRequest struct {
	CaseID        string     `cbor:"caseId" json:"caseId"`
	Title         *string    `cbor:"title,omitempty" json:"title,omitempty"`
	Type          *string    `cbor:"type,omitempty" json:"type,omitempty"`
	Status        *string    `cbor:"status,omitempty" json:"status,omitempty"`
	HearingDate   *time.Time `cbor:"hearingDate,omitempty" json:"hearingDate,omitempty"`
	AssignedJudge *string    `cbor:"assignedJudge,omitempty" json:"assignedJudge,omitempty"`
	Plaintiffs    *string    `cbor:"plaintiffs,omitempty" json:"plaintiffs,omitempty"`
	Defendants    *string    `cbor:"defendants,omitempty" json:"defendants,omitempty"`
	Notes         []Note     `cbor:"notes,omitempty" json:"notes,omitempty"`
}

// ListRequest pages through records.
type ListRequest struct {
	Page  int `cbor:"page" json:"page"`
	Limit int `cbor:"limit" json:"limit"`
}

// CasePage is one page of case records.
type CasePage struct {
	Total int    `cbor:"total" json:"total"`
	Page  int    `cbor:"page" json:"page"`
	Limit int    `cbor:"limit" json:"limit"`
	Cases []Case `cbor:"cases" json:"cases"`
}

// MyHearingsRequest lists upcoming hearings for one assignee.
type MyHearingsRequest struct {
	AssigneeID string `cbor:"assigneeId" json:"assigneeId"`
}
