package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // database/sql driver

	"github.com/mkrupp/memeforge/internal/domain"
	"github.com/mkrupp/memeforge/internal/infra/logging"
)

// SQLiteHistoryRepositoryConfig holds configuration for the SQLite history repository.
type SQLiteHistoryRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/memeforge.db"`
}

// SQLiteHistoryRepository implements Repository using SQLite as the storage backend.
type SQLiteHistoryRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteHistoryRepository)(nil)

// SQLiteHistoryRepositoryFactory creates a factory function that returns a new
// SQLiteHistoryRepository. The factory function implements the RepositoryFactory type.
func SQLiteHistoryRepositoryFactory(cfg SQLiteHistoryRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteHistoryRepository(cfg)
	}
}

// NewSQLiteHistoryRepository creates a new SQLiteHistoryRepository with the given
// configuration. It initializes the database connection and creates the schema
// if needed. Returns an error if database connection or initialization fails.
func NewSQLiteHistoryRepository(cfg SQLiteHistoryRepositoryConfig) (*SQLiteHistoryRepository, error) {
	log := logging.GetLogger("repo.history.sqlite_history_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(db); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteHistoryRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) (err error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS exports (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			export_id  TEXT    NOT NULL,
			format     TEXT    NOT NULL,
			quality    INTEGER NOT NULL,
			byte_size  INTEGER NOT NULL,
			filename   TEXT    NOT NULL,
			strategy   TEXT    NOT NULL,
			success    INTEGER NOT NULL,
			category   TEXT    NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// RecordExport implements Repository.RecordExport using SQLite.
func (r *SQLiteHistoryRepository) RecordExport(ctx context.Context, record domain.ExportRecord) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	createdAt := record.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports
			(export_id, format, quality, byte_size, filename, strategy, success, category, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ExportID,
		record.Format.String(),
		record.Quality,
		record.ByteSize,
		record.Filename,
		record.Strategy,
		record.Success,
		string(record.Category),
		record.Elapsed.Milliseconds(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert export: %w", err)
	}

	r.log.DebugContext(ctx, "export recorded",
		"exportID", record.ExportID,
		"success", record.Success,
	)

	return nil
}

// ListRecent implements Repository.ListRecent using SQLite.
func (r *SQLiteHistoryRepository) ListRecent(ctx context.Context, limit int) ([]domain.ExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, export_id, format, quality, byte_size, filename, strategy, success, category, elapsed_ms, created_at
		FROM exports ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []domain.ExportRecord

	for rows.Next() {
		var (
			record    domain.ExportRecord
			format    string
			category  string
			elapsedMS int64
		)

		if err := rows.Scan(
			&record.ID,
			&record.ExportID,
			&format,
			&record.Quality,
			&record.ByteSize,
			&record.Filename,
			&record.Strategy,
			&record.Success,
			&category,
			&elapsedMS,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}

		// Records written by older builds may carry format names the
		// current build does not know; keep them listable regardless.
		record.Format, _ = domain.ParseFormat(format) //nolint:errcheck
		record.Category = domain.Category(category)
		record.Elapsed = time.Duration(elapsedMS) * time.Millisecond

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}

	return records, nil
}

// Stats implements Repository.Stats using SQLite.
func (r *SQLiteHistoryRepository) Stats(ctx context.Context) (domain.ExportStats, error) {
	stats := domain.ExportStats{
		ByFormat: make(map[domain.Format]int64),
	}

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(success), 0) FROM exports`,
	).Scan(&stats.Total, &stats.Succeeded)
	if err != nil {
		return stats, fmt.Errorf("query totals: %w", err)
	}

	stats.Failed = stats.Total - stats.Succeeded

	rows, err := r.db.QueryContext(ctx, `
		SELECT format, COUNT(*) FROM exports WHERE success = 1 GROUP BY format`,
	)
	if err != nil {
		return stats, fmt.Errorf("query per-format counts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var (
			format string
			count  int64
		)

		if err := rows.Scan(&format, &count); err != nil {
			return stats, fmt.Errorf("scan per-format count: %w", err)
		}

		parsed, err := domain.ParseFormat(format)
		if err != nil {
			continue
		}

		stats.ByFormat[parsed] = count
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate per-format counts: %w", err)
	}

	return stats, nil
}

// Prune implements Repository.Prune using SQLite.
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, keep int) (int64, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM exports WHERE id NOT IN (
			SELECT id FROM exports ORDER BY id DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune exports: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned exports: %w", err)
	}

	if removed > 0 {
		r.log.DebugContext(ctx, "history pruned", "removed", removed, "keep", keep)
	}

	return removed, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteHistoryRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
