package random

import "testing"

func TestPasswordLength(t *testing.T) {
	got, err := Password(12)
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("password length = %d, want 12", len(got))
	}
}

func TestPasswordRejectsNonPositiveLength(t *testing.T) {
	if _, err := Password(0); err == nil {
		t.Fatalf("expected error for zero length")
	}
}

func TestPasswordVaries(t *testing.T) {
	a, err := Password(16)
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	b, err := Password(16)
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	if a == b {
		t.Fatalf("two generated passwords matched: %q", a)
	}
}
