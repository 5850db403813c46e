package claims

import (
	"testing"
	"time"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	issued, err := Issue(secret, Claims{
		SubjectID: "u-100",
		Username:  "jdoe",
		Role:      RoleLawyer,
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	parsed, err := Parse(secret, issued)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed.SubjectID != "u-100" {
		t.Fatalf("expected subject u-100, got %q", parsed.SubjectID)
	}
	if parsed.Username != "jdoe" {
		t.Fatalf("expected username jdoe, got %q", parsed.Username)
	}
	if parsed.Role != RoleLawyer {
		t.Fatalf("expected role %s, got %q", RoleLawyer, parsed.Role)
	}
	if !parsed.Valid(time.Now()) {
		t.Fatal("expected parsed claim to be valid")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	issued, err := Issue([]byte("secret-a"), Claims{SubjectID: "u-1", Role: RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := Parse([]byte("secret-b"), issued); err == nil {
		t.Fatal("expected parse to fail with wrong secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issued, err := Issue([]byte("secret"), Claims{SubjectID: "u-1", Role: RoleAdmin}, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := Parse([]byte("secret"), issued); err == nil {
		t.Fatal("expected parse to fail for expired token")
	}
}

func TestClaimsValid(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name  string
		claim *Claims
		want  bool
	}{
		{"nil claim", nil, false},
		{"empty subject", &Claims{Role: RoleAdmin}, false},
		{"expired", &Claims{SubjectID: "u-1", ExpiresAt: now.Add(-time.Second)}, false},
		{"no expiry", &Claims{SubjectID: "u-1"}, true},
		{"live", &Claims{SubjectID: "u-1", ExpiresAt: now.Add(time.Hour)}, true},
	}
	for _, tc := range tests {
		if got := tc.claim.Valid(now); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
