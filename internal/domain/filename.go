package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxFilenameLength = 255
	defaultPrefix     = "meme"
	timestampLayout   = "2006-01-02_15-04-05"
)

//nolint:gochecknoglobals
var reservedDeviceNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// FilenameOptions controls generated export filenames.
type FilenameOptions struct {
	// Prefix is sanitized before use; empty falls back to "meme".
	Prefix string

	// Quality is embedded as "_q{n}" when IncludeQuality is set.
	Quality        int
	IncludeQuality bool

	// Suffix disambiguates filenames within the same second (batch exports).
	Suffix string

	// Timestamp overrides the embedded time. Zero means time.Now().
	Timestamp time.Time
}

// GenerateFilename builds "{prefix}_{YYYY-MM-DD_HH-MM-SS}[_q{quality}][_{suffix}].{ext}".
// The result is guaranteed to be at most 255 characters, free of filesystem
// metacharacters, and to end in the extension matching the format.
func GenerateFilename(opts FilenameOptions, format Format) string {
	prefix := SanitizeFilenamePrefix(opts.Prefix)

	timestamp := opts.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	name := prefix + "_" + timestamp.Format(timestampLayout)

	if opts.IncludeQuality {
		name += fmt.Sprintf("_q%d", opts.Quality)
	}

	if suffix := SanitizeFilenamePrefix(opts.Suffix); opts.Suffix != "" && suffix != defaultPrefix {
		name += "_" + suffix
	}

	ext := format.Ext()
	if len(name)+len(ext) > maxFilenameLength {
		name = name[:maxFilenameLength-len(ext)]
	}

	return name + ext
}

// SanitizeFilename makes a caller-supplied filename safe for delivery. The
// stem passes through the same cleaning as generated prefixes, so path
// separators and traversal dots cannot escape the target directory, and the
// extension is replaced with the one matching the format.
func SanitizeFilename(name string, format Format) string {
	stem := SanitizeFilenamePrefix(strings.TrimSuffix(name, filepath.Ext(name)))

	ext := format.Ext()
	if len(stem)+len(ext) > maxFilenameLength {
		stem = stem[:maxFilenameLength-len(ext)]
	}

	return stem + ext
}

// SanitizeFilenamePrefix makes an arbitrary string safe for use in a
// filename: characters from `<>:"/\|?*`, control characters and whitespace
// become underscores, runs of underscores collapse, and reserved Windows
// device names are renamed. Empty results fall back to "meme".
func SanitizeFilenamePrefix(prefix string) string {
	var builder strings.Builder

	for _, r := range prefix {
		switch {
		case r < 0x20 || r == 0x7f:
			builder.WriteByte('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			builder.WriteByte('_')
		case r == ' ' || r == '\t':
			builder.WriteByte('_')
		default:
			builder.WriteRune(r)
		}
	}

	sanitized := builder.String()

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}

	sanitized = strings.Trim(sanitized, "_.")

	if sanitized == "" {
		return defaultPrefix
	}

	if _, reserved := reservedDeviceNames[strings.ToLower(sanitized)]; reserved {
		return sanitized + "_file"
	}

	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
	}

	return sanitized
}
