package domain

import (
	"errors"
	"time"
)

var ErrRecordNotFound = errors.New("export record not found")

// ExportRecord is one completed export attempt as kept in history. Failed
// attempts are recorded too, with the failure category instead of a filename.
type ExportRecord struct {
	ID       int64
	ExportID string
	Format   Format
	Quality  int
	ByteSize int64
	Filename string
	Strategy string
	Success  bool
	Category Category
	Elapsed  time.Duration

	// CreatedAt is a unix timestamp in seconds.
	CreatedAt int64
}

// ExportStats aggregates history counters for reporting.
type ExportStats struct {
	Total     int64
	Succeeded int64
	Failed    int64
	ByFormat  map[Format]int64
}
