package uuid_test

import (
	"strings"
	"testing"

	. "github.com/mkrupp/memeforge/internal/util/uuid"
)

func TestNew_UUIDv7(t *testing.T) {
	t.Parallel()

	first, err := New(UUIDv7)
	if err != nil {
		t.Fatalf("New(UUIDv7) failed: %v", err)
	}

	second, err := New(UUIDv7)
	if err != nil {
		t.Fatalf("New(UUIDv7) failed: %v", err)
	}

	if first.String() == second.String() {
		t.Error("two generated UUIDs are identical")
	}

	// Version nibble must be 7, variant bits must be 10.
	bytes := first.Bytes()
	if bytes[6]>>4 != 7 {
		t.Errorf("version nibble = %d, want 7", bytes[6]>>4)
	}

	if bytes[8]>>6 != 0b10 {
		t.Errorf("variant bits = %b, want 10", bytes[8]>>6)
	}
}

func TestNew_UnknownVersion(t *testing.T) {
	t.Parallel()

	if _, err := New(UUIDVersion(4)); err == nil {
		t.Error("expected error for unsupported version, got nil")
	}
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	generated, err := New(UUIDv7)
	if err != nil {
		t.Fatalf("New(UUIDv7) failed: %v", err)
	}

	parsed, err := Parse(generated.String())
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", generated.String(), err)
	}

	if parsed.String() != generated.String() {
		t.Errorf("round trip mismatch: %q != %q", parsed.String(), generated.String())
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "too short", input: "abcd"},
		{name: "not hex", input: strings.Repeat("zz", 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse(tt.input); err == nil {
				t.Errorf("Parse(%q) expected error, got nil", tt.input)
			}
		})
	}
}

func TestShort(t *testing.T) {
	t.Parallel()

	generated, err := New(UUIDv7)
	if err != nil {
		t.Fatalf("New(UUIDv7) failed: %v", err)
	}

	short := generated.Short()

	if len(short) == 0 || len(short) > 8 {
		t.Errorf("Short() = %q, want 1-8 chars", short)
	}

	if strings.ContainsAny(short, `<>:"/\|?*`) {
		t.Errorf("Short() contains filename metacharacters: %q", short)
	}
}
