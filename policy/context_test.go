package policy

import (
	"testing"
)

func TestContext_CorrelationID(t *testing.T) {
	a := NewContext()
	b := NewContext()

	if a.CorrelationID() == "" {
		t.Error("CorrelationID should not be empty")
	}
	if a.CorrelationID() == b.CorrelationID() {
		t.Error("two contexts should not share a correlation ID")
	}

	c := NewContextWithID("req-123")
	if c.CorrelationID() != "req-123" {
		t.Errorf("CorrelationID = %q, want req-123", c.CorrelationID())
	}
}

func TestContext_SetGet(t *testing.T) {
	ec := NewContext()

	if _, ok := ec.Get("missing"); ok {
		t.Error("Get on empty context should miss")
	}

	ec.Set("a", 1)
	ec.Set("b", "two")
	ec.Set("a", 10) // overwrite keeps position

	v, ok := ec.Get("a")
	if !ok || v != 10 {
		t.Errorf("Get(a) = (%v, %v), want (10, true)", v, ok)
	}
}

func TestContext_KeyOrder(t *testing.T) {
	ec := NewContext()
	ec.Set("z", 1)
	ec.Set("a", 2)
	ec.Set("m", 3)
	ec.Set("z", 4)

	keys := ec.Keys()
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestContext_Delete(t *testing.T) {
	ec := NewContext()
	ec.Set("a", 1)
	ec.Set("b", 2)

	ec.Delete("a")
	ec.Delete("a") // idempotent

	if _, ok := ec.Get("a"); ok {
		t.Error("deleted key should miss")
	}
	keys := ec.Keys()
	if len(keys) != 1 || keys[0] != "b" {
		t.Errorf("Keys() after delete = %v, want [b]", keys)
	}
}

func TestContext_Attempts(t *testing.T) {
	ec := NewContext()
	if ec.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", ec.Attempts())
	}

	ec.Set(KeyAttempts, 3)
	if ec.Attempts() != 3 {
		t.Errorf("Attempts() = %d, want 3", ec.Attempts())
	}
}
