// Package api defines the wire contract of the appointments service.
package api

import "time"

// Request topics owned by the appointments service.
const (
	TopicCreateAppointment  = "appointments.create-appointment"
	TopicGetAllAppointments = "appointments.get-all-appointments"
	TopicGetAppointmentByID = "appointments.get-appointment-by-id"
	TopicSearchTitles       = "appointments.search-appointment-titles"
	TopicGetMyAppointments  = "appointments.get-my-appointments"
	TopicUpdateAppointment  = "appointments.update-appointment"
	TopicCancelAppointment  = "appointments.cancel-appointment"
)

// AssigneeRef is the denormalized assignee projection embedded in an
// appointment.
type AssigneeRef struct {
	ID       string `cbor:"id" json:"id"`
	Username string `cbor:"username" json:"username"`
}

// ClientRef is the denormalized client projection embedded in an appointment.
type ClientRef struct {
	ID   string `cbor:"id" json:"id"`
	Name string `cbor:"name" json:"name"`
}

// CaseRef is the denormalized case projection embedded in an appointment.
type CaseRef struct {
	ID     string `cbor:"id" json:"id"`
	Number string `cbor:"number" json:"number"`
}

// Appointment is one scheduled meeting on an employee's calendar.
type Appointment struct {
	ID       string      `cbor:"id" json:"id"`
	Title    string      `cbor:"title" json:"title"`
	Start    time.Time   `cbor:"start" json:"start"`
	End      time.Time   `cbor:"end" json:"end"`
	Location string      `cbor:"location,omitempty" json:"location,omitempty"`
	Notes    string      `cbor:"notes,omitempty" json:"notes,omitempty"`
	Assignee AssigneeRef `cbor:"assignee" json:"assignee"`
	Client   *ClientRef  `cbor:"client,omitempty" json:"client,omitempty"`
	Case     *CaseRef    `cbor:"case,omitempty" json:"case,omitempty"`
	BookedBy string      `cbor:"bookedBy" json:"bookedBy"`
}

// CreateAppointmentRequest books a slot on an assignee's calendar.
type CreateAppointmentRequest struct {
	Title      string    `cbor:"title" json:"title"`
	Start      time.Time `cbor:"start" json:"start"`
	End        time.Time `cbor:"end" json:"end"`
	Location   string    `cbor:"location,omitempty" json:"location,omitempty"`
	Notes      string    `cbor:"notes,omitempty" json:"notes,omitempty"`
	AssigneeID string    `cbor:"assigneeId" json:"assigneeId"`
	ClientID   string    `cbor:"clientId,omitempty" json:"clientId,omitempty"`
	CaseID     string    `cbor:"caseId,omitempty" json:"caseId,omitempty"`
}

// GetByIDRequest addresses a single record by id.
type GetByIDRequest struct {
	ID string `cbor:"id" json:"id"`
}

// SearchTitlesRequest matches appointments whose title contains the term.
type SearchTitlesRequest struct {
	Title string `cbor:"title" json:"title"`
}

// MyAppointmentsRequest lists appointments booked for one assignee.
type MyAppointmentsRequest struct {
	AssigneeID string `cbor:"assigneeId" json:"assigneeId"`
}

// UpdateAppointmentRequest patches mutable appointment fields; nil fields
// are left unchanged. A changed window is re-checked for overlap against
// every other appointment of the same assignee.
type UpdateAppointmentRequest struct {
	AppointmentID string     `cbor:"appointmentId" json:"appointmentId"`
	Title         *string    `cbor:"title,omitempty" json:"title,omitempty"`
	Start         *time.Time `cbor:"start,omitempty" json:"start,omitempty"`
	End           *time.Time `cbor:"end,omitempty" json:"end,omitempty"`
	Location      *string    `cbor:"location,omitempty" json:"location,omitempty"`
	Notes         *string    `cbor:"notes,omitempty" json:"notes,omitempty"`
}

// CancelRequest removes a booking.
type CancelRequest struct {
	AppointmentID string `cbor:"appointmentId" json:"appointmentId"`
}

// ListRequest pages through records.
type ListRequest struct {
	Page  int `cbor:"page" json:"page"`
	Limit int `cbor:"limit" json:"limit"`
}

// AppointmentPage is one page of appointment records.
type AppointmentPage struct {
	Total        int           `cbor:"total" json:"total"`
	Page         int           `cbor:"page" json:"page"`
	Limit        int           `cbor:"limit" json:"limit"`
	Appointments []Appointment `cbor:"appointments" json:"appointments"`
}
