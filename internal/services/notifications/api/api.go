// Package api defines the wire contract of the notifications service.
//
// The notifications service only listens: every topic here is published
// fire-and-forget by another service, and no reply is ever produced.
package api

// Publish topics consumed by the notifications service.
const (
	TopicCaseAssigned   = "notifications.case-assigned"
	TopicTaskAssigned   = "notifications.task-assigned"
	TopicPasswordIssued = "notifications.user-password-issued"
)

// CaseAssigned announces that a case was opened on someone's behalf.
type CaseAssigned struct {
	To         string `cbor:"to" json:"to"`
	AssignedBy string `cbor:"assignedBy" json:"assignedBy"`
	CaseTitle  string `cbor:"caseTitle" json:"caseTitle"`
	CaseNumber string `cbor:"caseNumber" json:"caseNumber"`
}

// TaskAssigned announces that a task was assigned to someone.
type TaskAssigned struct {
	To         string `cbor:"to" json:"to"`
	AssignedBy string `cbor:"assignedBy" json:"assignedBy"`
	TaskName   string `cbor:"taskName" json:"taskName"`
}

// PasswordIssued carries a freshly provisioned account's initial password.
type PasswordIssued struct {
	To           string `cbor:"to" json:"to"`
	Username     string `cbor:"username" json:"username"`
	TempPassword string `cbor:"tempPassword" json:"tempPassword"`
}
