package uuid

import (
	"testing"

	googleuuid "github.com/google/uuid"
)

func TestNew_IsVersion7(t *testing.T) {
	id := New()
	parsed, err := googleuuid.Parse(id)
	if err != nil {
		t.Fatalf("New() returned invalid uuid %q: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("version = %d, want 7", parsed.Version())
	}
}

func TestNew_Ordered(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("ids not increasing: %q then %q", prev, next)
		}
		prev = next
	}
}

func TestParseAndIsValid(t *testing.T) {
	id := New()
	if !IsValid(id) {
		t.Errorf("IsValid(%q) = false", id)
	}
	if IsValid("not-a-uuid") {
		t.Error("IsValid accepted garbage")
	}
	if _, err := Parse("123"); err == nil {
		t.Error("Parse accepted garbage")
	}
	upper := "0190C2B4-7E5A-7000-8000-000000000000"
	got, err := Parse(upper)
	if err != nil {
		t.Fatalf("Parse(%q): %v", upper, err)
	}
	if got != "0190c2b4-7e5a-7000-8000-000000000000" {
		t.Errorf("Parse returned %q", got)
	}
}
