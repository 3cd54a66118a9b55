package encoding_test

import (
	"strings"
	"testing"

	. "github.com/mkrupp/memeforge/internal/util/encoding"
)

func TestEncodeCrockfordB32LC(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "empty", input: []byte{}, want: ""},
		{name: "zero byte", input: []byte{0x00}, want: "00"},
		{name: "single byte", input: []byte{0xFF}, want: "zw"},
		{name: "hello", input: []byte("hello"), want: "d1jprv3f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := EncodeCrockfordB32LC(tt.input); got != tt.want {
				t.Errorf("EncodeCrockfordB32LC(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEncodeCrockfordB32LC_Alphabet(t *testing.T) {
	t.Parallel()

	// No output may contain the ambiguous characters excluded by the alphabet.
	input := make([]byte, 256)
	for i := range input {
		input[i] = byte(i)
	}

	encoded := EncodeCrockfordB32LC(input)

	if strings.ContainsAny(encoded, "ilou") {
		t.Errorf("encoded output contains ambiguous characters: %q", encoded)
	}
}
