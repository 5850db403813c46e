package id

import "testing"

func TestNewProducesUniqueValidIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		value := New()
		if !Valid(value) {
			t.Fatalf("generated id %q is not valid", value)
		}
		if seen[value] {
			t.Fatalf("generated duplicate id %q", value)
		}
		seen[value] = true
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "ghost-1", "123", "not-a-uuid"} {
		if Valid(value) {
			t.Fatalf("expected %q to be invalid", value)
		}
	}
}
