package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkrupp/memeforge/internal/domain"
	. "github.com/mkrupp/memeforge/internal/repo/history"
)

func testRepository(t *testing.T) Repository {
	t.Helper()

	repo, err := NewSQLiteHistoryRepository(SQLiteHistoryRepositoryConfig{
		DatabasePath: filepath.Join(t.TempDir(), "history.db"),
	})
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}

	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("close repository: %v", err)
		}
	})

	return repo
}

func testRecord(exportID string, format domain.Format, success bool) domain.ExportRecord {
	//nolint:exhaustruct
	record := domain.ExportRecord{
		ExportID: exportID,
		Format:   format,
		Quality:  90,
		ByteSize: 4096,
		Filename: "meme_2025-06-01_12-00-00" + format.Ext(),
		Strategy: "staged-rename",
		Success:  success,
		Elapsed:  120 * time.Millisecond,
	}

	if !success {
		record.Category = domain.CategoryMemory
		record.Filename = ""
	}

	return record
}

func TestSQLiteHistoryRepository_RecordAndList(t *testing.T) {
	t.Parallel()

	repo := testRepository(t)

	for _, record := range []domain.ExportRecord{
		testRecord("exp-1", domain.FormatPNG, true),
		testRecord("exp-2", domain.FormatJPEG, true),
		testRecord("exp-3", domain.FormatWebP, false),
	} {
		if err := repo.RecordExport(context.TODO(), record); err != nil {
			t.Fatalf("record export: %v", err)
		}
	}

	records, err := repo.ListRecent(context.TODO(), 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("ListRecent(2) returned %d records", len(records))
	}

	// Newest first.
	if records[0].ExportID != "exp-3" || records[1].ExportID != "exp-2" {
		t.Errorf("unexpected order: %s, %s", records[0].ExportID, records[1].ExportID)
	}

	if records[0].Category != domain.CategoryMemory {
		t.Errorf("failure category = %q, want %q", records[0].Category, domain.CategoryMemory)
	}

	if records[1].Elapsed != 120*time.Millisecond {
		t.Errorf("elapsed = %s, want 120ms", records[1].Elapsed)
	}
}

func TestSQLiteHistoryRepository_Stats(t *testing.T) {
	t.Parallel()

	repo := testRepository(t)

	for _, record := range []domain.ExportRecord{
		testRecord("exp-1", domain.FormatPNG, true),
		testRecord("exp-2", domain.FormatPNG, true),
		testRecord("exp-3", domain.FormatJPEG, true),
		testRecord("exp-4", domain.FormatWebP, false),
	} {
		if err := repo.RecordExport(context.TODO(), record); err != nil {
			t.Fatalf("record export: %v", err)
		}
	}

	stats, err := repo.Stats(context.TODO())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.Total != 4 || stats.Succeeded != 3 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want total=4 succeeded=3 failed=1", stats)
	}

	if stats.ByFormat[domain.FormatPNG] != 2 || stats.ByFormat[domain.FormatJPEG] != 1 {
		t.Errorf("ByFormat = %v, want png=2 jpeg=1", stats.ByFormat)
	}

	if _, ok := stats.ByFormat[domain.FormatWebP]; ok {
		t.Error("failed export counted in ByFormat")
	}
}

func TestSQLiteHistoryRepository_Prune(t *testing.T) {
	t.Parallel()

	repo := testRepository(t)

	for i := range 10 {
		record := testRecord("exp", domain.FormatPNG, true)
		record.Quality = i

		if err := repo.RecordExport(context.TODO(), record); err != nil {
			t.Fatalf("record export: %v", err)
		}
	}

	removed, err := repo.Prune(context.TODO(), 3)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}

	if removed != 7 {
		t.Errorf("Prune(3) removed %d, want 7", removed)
	}

	records, err := repo.ListRecent(context.TODO(), 100)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("history holds %d records after prune, want 3", len(records))
	}

	// The newest records survive.
	if records[0].Quality != 9 || records[2].Quality != 7 {
		t.Errorf("surviving qualities %d..%d, want 9..7", records[0].Quality, records[2].Quality)
	}
}
