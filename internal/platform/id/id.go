// Package id generates the opaque identifiers used for persisted records.
package id

import "github.com/google/uuid"

// New returns a new random record identifier.
func New() string {
	return uuid.NewString()
}

// Valid reports whether value parses as a record identifier.
func Valid(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
