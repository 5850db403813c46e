// Package storage defines persistence contracts for notification delivery
// records.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// DeliveryStatus identifies one delivery lifecycle state.
type DeliveryStatus string

const (
	// DeliveryStatusDelivered means the mailer accepted the message.
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	// DeliveryStatusFailed means the mailer rejected the message.
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// DeliveryRecord stores one notification delivery attempt.
type DeliveryRecord struct {
	ID        string
	Topic     string
	Recipient string
	Subject   string
	Body      string
	Status    DeliveryStatus
	LastError string
	CreatedAt time.Time
}

// DeliveryPage stores a page of delivery records with the total match count.
type DeliveryPage struct {
	Deliveries []DeliveryRecord
	Total      int
}

// Store persists delivery records.
type Store interface {
	CreateDelivery(ctx context.Context, record DeliveryRecord) error
	GetDelivery(ctx context.Context, id string) (DeliveryRecord, error)
	ListDeliveries(ctx context.Context, offset, limit int) (DeliveryPage, error)
	Close() error
}
