// Package api defines the wire contract of the clients service.
package api

import "time"

// Request topics owned by the clients service.
const (
	TopicCreateClient  = "clients.create-new-client"
	TopicGetAllClients = "clients.get-all-clients"
	TopicGetClientByID = "clients.get-client-by-id"
	TopicUpdateClient  = "clients.update-client-details"
	TopicDeleteClient  = "clients.delete-client"
)

// Client is the full client record.
type Client struct {
	ID          string    `cbor:"id" json:"id"`
	Name        string    `cbor:"name" json:"name"`
	PhoneNumber string    `cbor:"phoneNumber" json:"phoneNumber"`
	Email       string    `cbor:"email" json:"email"`
	CreatedAt   time.Time `cbor:"createdAt" json:"createdAt"`
}

// ClientSummary is the subset other services embed when they denormalize
// client fields.
type ClientSummary struct {
	ID   string `cbor:"id" json:"id"`
	Name string `cbor:"name" json:"name"`
}

// CreateClientRequest registers a new client. Email must be unique.
type CreateClientRequest struct {
	Name        string `cbor:"name" json:"name"`
	PhoneNumber string `cbor:"phoneNumber" json:"phoneNumber"`
	Email       string `cbor:"email" json:"email"`
}

// GetByIDRequest addresses a single record by id.
type GetByIDRequest struct {
	ID string `cbor:"id" json:"id"`
}

// UpdateClientRequest patches mutable client fields; nil fields are left
// unchanged.
type UpdateClientRequest struct {
	ID          string  `cbor:"id" json:"id"`
	Email       *string `cbor:"email,omitempty" json:"email,omitempty"`
	PhoneNumber *string `cbor:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
}

// ListRequest pages through records.
type ListRequest struct {
	Page  int `cbor:"page" json:"page"`
	Limit int `cbor:"limit" json:"limit"`
}

// ClientPage is one page of client records.
type ClientPage struct {
	Total   int      `cbor:"total" json:"total"`
	Page    int      `cbor:"page" json:"page"`
	Limit   int      `cbor:"limit" json:"limit"`
	Clients []Client `cbor:"clients" json:"clients"`
}
