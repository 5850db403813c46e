// Package claims models the pre-verified identity assertion attached to
// every user-originated request envelope.
//
// A claim is produced once at the gateway edge from a bearer token and is
// carried unchanged through every hop of a multi-service write. Services
// never re-verify the signature; the gateway is the trust boundary.
package claims

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role names recognised by the authorization gate. Membership tests are
// exact string matches; there is no hierarchy and no wildcard.
const (
	RoleAdmin        = "Admin"
	RoleLawyer       = "Lawyer"
	RoleReceptionist = "Receptionist"
)

// Claims is the token-derived identity carried on request envelopes.
type Claims struct {
	SubjectID string    `cbor:"subjectId" json:"subjectId"`
	Username  string    `cbor:"username" json:"username"`
	Role      string    `cbor:"role" json:"role"`
	IssuedAt  time.Time `cbor:"issuedAt" json:"issuedAt"`
	ExpiresAt time.Time `cbor:"expiresAt" json:"expiresAt"`
}

// Valid reports whether the claim names a subject and has not expired.
func (c *Claims) Valid(now time.Time) bool {
	if c == nil {
		return false
	}
	if strings.TrimSpace(c.SubjectID) == "" {
		return false
	}
	if !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt) {
		return false
	}
	return true
}

type tokenClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a bearer token for the given identity. Token issuance happens
// at login, which lives outside this module; Issue exists for the gateway's
// tests and for seeding development environments.
func Issue(secret []byte, identity Claims, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("signing secret is required")
	}
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Username: identity.Username,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(secret)
}

// Parse verifies a bearer token and extracts the identity claim.
func Parse(secret []byte, bearer string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return nil, fmt.Errorf("bearer token is required")
	}

	var parsed tokenClaims
	token, err := jwt.ParseWithClaims(bearer, &parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse bearer token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("bearer token is invalid")
	}

	out := &Claims{
		SubjectID: parsed.Subject,
		Username:  parsed.Username,
		Role:      parsed.Role,
	}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time.UTC()
	}
	return out, nil
}
