// Package api defines the wire contract of the visitors service.
package api

import "time"

// Request topics owned by the visitors service.
const (
	TopicRecordNewVisitor    = "visitors.record-new-visitor"
	TopicGetAllVisitors      = "visitors.get-all-visitors"
	TopicGetVisitorByID      = "visitors.get-visitor-by-id"
	TopicUpdateVisitorRecord = "visitors.update-visitor-record"
	TopicSignOutVisitor      = "visitors.sign-out-visitor"
	TopicSearchForVisitor    = "visitors.search-for-visitor"
	TopicDeleteVisitorRecord = "visitors.delete-visitor-record"
)

// Visitor is one front-desk visit record.
type Visitor struct {
	ID             string     `cbor:"id" json:"id"`
	FullName       string     `cbor:"fullName" json:"fullName"`
	PhoneNumber    string     `cbor:"phoneNumber" json:"phoneNumber"`
	PurposeOfVisit string     `cbor:"purposeOfVisit" json:"purposeOfVisit"`
	WhoToSee       string     `cbor:"whoToSee" json:"whoToSee"`
	TimeIn         time.Time  `cbor:"timeIn" json:"timeIn"`
	TimeOut        *time.Time `cbor:"timeOut,omitempty" json:"timeOut,omitempty"`
	RecordedBy     string     `cbor:"recordedBy" json:"recordedBy"`
}

// RecordVisitorRequest signs a walk-in visitor into the building.
type RecordVisitorRequest struct {
	FullName       string `cbor:"fullName" json:"fullName"`
	PhoneNumber    string `cbor:"phoneNumber" json:"phoneNumber"`
	PurposeOfVisit string `cbor:"purposeOfVisit" json:"purposeOfVisit"`
	WhoToSee       string `cbor:"whoToSee" json:"whoToSee"`
}

// GetByIDRequest addresses a single record by id.
type GetByIDRequest struct {
	ID string `cbor:"id" json:"id"`
}

// UpdateVisitorRequest patches mutable visit fields; nil fields are left
// unchanged.
type UpdateVisitorRequest struct {
	VisitorID      string  `cbor:"visitorId" json:"visitorId"`
	FullName       *string `cbor:"fullName,omitempty" json:"fullName,omitempty"`
	PhoneNumber    *string `cbor:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	PurposeOfVisit *string `cbor:"purposeOfVisit,omitempty" json:"purposeOfVisit,omitempty"`
	WhoToSee       *string `cbor:"whoToSee,omitempty" json:"whoToSee,omitempty"`
}

// SearchVisitorRequest matches visits by full-name substring.
type SearchVisitorRequest struct {
	FullName string `cbor:"fullName" json:"fullName"`
}

// SignOutRequest stamps the visit's departure time.
type SignOutRequest struct {
	VisitorID string `cbor:"visitorId" json:"visitorId"`
}

// ListRequest pages through records.
type ListRequest struct {
	Page  int `cbor:"page" json:"page"`
	Limit int `cbor:"limit" json:"limit"`
}

// VisitorPage is one page of visit records.
type VisitorPage struct {
	Total    int       `cbor:"total" json:"total"`
	Page     int       `cbor:"page" json:"page"`
	Limit    int       `cbor:"limit" json:"limit"`
	Visitors []Visitor `cbor:"visitors" json:"visitors"`
}
