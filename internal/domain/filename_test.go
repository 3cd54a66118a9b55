package domain_test

import (
	"strings"
	"testing"
	"time"

	. "github.com/mkrupp/memeforge/internal/domain"
)

func TestGenerateFilename(t *testing.T) {
	t.Parallel()

	timestamp := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

	tests := []struct {
		name   string
		opts   FilenameOptions
		format Format
		want   string
	}{
		{
			name:   "plain prefix",
			opts:   FilenameOptions{Prefix: "meme", Timestamp: timestamp},
			format: FormatPNG,
			want:   "meme_2025-03-14_15-09-26.png",
		},
		{
			name:   "with quality",
			opts:   FilenameOptions{Prefix: "meme", Quality: 85, IncludeQuality: true, Timestamp: timestamp},
			format: FormatJPEG,
			want:   "meme_2025-03-14_15-09-26_q85.jpg",
		},
		{
			name:   "with suffix",
			opts:   FilenameOptions{Prefix: "meme", Suffix: "01hq", Timestamp: timestamp},
			format: FormatWebP,
			want:   "meme_2025-03-14_15-09-26_01hq.webp",
		},
		{
			name:   "empty prefix falls back",
			opts:   FilenameOptions{Prefix: "", Timestamp: timestamp},
			format: FormatPNG,
			want:   "meme_2025-03-14_15-09-26.png",
		},
		{
			name:   "metacharacters are stripped",
			opts:   FilenameOptions{Prefix: `dank<>:"/\|?*memes`, Timestamp: timestamp},
			format: FormatPNG,
			want:   "dank_memes_2025-03-14_15-09-26.png",
		},
		{
			name:   "reserved device name is renamed",
			opts:   FilenameOptions{Prefix: "CON", Timestamp: timestamp},
			format: FormatPNG,
			want:   "CON_file_2025-03-14_15-09-26.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := GenerateFilename(tt.opts, tt.format)
			if got != tt.want {
				t.Errorf("GenerateFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGenerateFilename_Properties(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"normal",
		strings.Repeat("x", 1000),
		"a b\tc",
		"..//..\\..",
		"\x00\x01\x02",
		"CON", "prn", "LPT9",
		"emoji\U0001F600name",
	}

	for _, prefix := range inputs {
		for _, format := range []Format{FormatPNG, FormatJPEG, FormatWebP} {
			name := GenerateFilename(FilenameOptions{Prefix: prefix, Quality: 80, IncludeQuality: true}, format)

			if len(name) > 255 {
				t.Errorf("filename for prefix %q exceeds 255 chars: %d", prefix, len(name))
			}

			if strings.ContainsAny(name, `<>:"/\|?*`) {
				t.Errorf("filename for prefix %q contains metacharacters: %q", prefix, name)
			}

			if !strings.HasSuffix(name, format.Ext()) {
				t.Errorf("filename %q does not end with %q", name, format.Ext())
			}
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		format Format
		want   string
	}{
		{name: "passthrough", input: "out.png", format: FormatPNG, want: "out.png"},
		{name: "extension follows the format", input: "out.txt", format: FormatWebP, want: "out.webp"},
		{name: "traversal cannot escape", input: "../escape.png", format: FormatPNG, want: "escape.png"},
		{name: "nested traversal", input: "../../etc/passwd", format: FormatJPEG, want: "etc_passwd.jpg"},
		{name: "metacharacters are stripped", input: `a<b>:"c.png`, format: FormatPNG, want: "a_b_c.png"},
		{name: "bare extension falls back", input: ".png", format: FormatPNG, want: "meme.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SanitizeFilename(tt.input, tt.format); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenamePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "passthrough", input: "plain-name", want: "plain-name"},
		{name: "collapses underscores", input: "a___b", want: "a_b"},
		{name: "trims leading dots", input: "..hidden", want: "hidden"},
		{name: "empty becomes default", input: "   ", want: "meme"},
		{name: "reserved lowercase", input: "nul", want: "nul_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := SanitizeFilenamePrefix(tt.input); got != tt.want {
				t.Errorf("SanitizeFilenamePrefix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
