package orders

import (
	"strings"
	"testing"
	"time"
)

func TestNewOrderNumberFormat(t *testing.T) {
	number := NewOrderNumber(time.Now())

	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		t.Fatalf("expected three segments, got %q", number)
	}
	if parts[0] != "SL" {
		t.Fatalf("expected SL prefix, got %q", number)
	}
	if len(parts[2]) != 4 {
		t.Fatalf("expected 4 char suffix, got %q", number)
	}
	if number != strings.ToUpper(number) {
		t.Fatalf("number should be upper case: %q", number)
	}
}

func TestNewOrderNumberVaries(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewOrderNumber(now)
		if seen[n] {
			t.Fatalf("duplicate number %q within 50 draws", n)
		}
		seen[n] = true
	}
}
