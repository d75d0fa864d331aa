package db_test

import (
	"testing"

	"github.com/sablemail/dispatch-backend/internal/db"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"User@Example.COM", "user@example.com"},
		{"  padded@x.com  ", "padded@x.com"},
		{"already@lower.com", "already@lower.com"},
		{"", ""},
	}
	for _, c := range cases {
		if got := db.NormalizeEmail(c.in); got != c.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEmailKey_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := db.EmailKey("User@Example.com")
	b := db.EmailKey("  user@example.com")
	if a != b {
		t.Errorf("keys differ for equivalent addresses: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key should be 64 hex chars, got %d", len(a))
	}
}

func TestEmailKey_DistinctAddressesDiffer(t *testing.T) {
	if db.EmailKey("a@x.com") == db.EmailKey("b@x.com") {
		t.Error("distinct addresses must not collide")
	}
}
