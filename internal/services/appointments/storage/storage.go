// Package storage defines persistence contracts for appointments state.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Appointment stores one calendar booking.
type Appointment struct {
	ID               string
	Title            string
	Start            time.Time
	End              time.Time
	Location         string
	Notes            string
	AssigneeID       string
	AssigneeUsername string
	ClientID         string
	ClientName       string
	CaseID           string
	CaseNumber       string
	BookedBy         string
}

// AppointmentPage stores a page of bookings with the total match count.
type AppointmentPage struct {
	Appointments []Appointment
	Total        int
}

// Store persists appointments.
type Store interface {
	CreateAppointment(ctx context.Context, a Appointment) error
	GetAppointment(ctx context.Context, id string) (Appointment, error)
	ListAppointments(ctx context.Context, offset, limit int) (AppointmentPage, error)
	ListAppointmentsForAssignee(ctx context.Context, assigneeID string) ([]Appointment, error)
	SearchAppointmentsByTitle(ctx context.Context, term string) ([]Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
	Close() error
}
