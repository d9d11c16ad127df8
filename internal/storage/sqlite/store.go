// Package sqlite provides a SQLite-backed durable record log.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/dotgrid/internal/grid"
	sqlitemigrate "github.com/louisbranch/dotgrid/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/dotgrid/internal/storage/sqlite/migrations"
	"github.com/louisbranch/dotgrid/internal/wire"
	_ "modernc.org/sqlite"
)

// tailPollInterval bounds how stale a tail can go when the appender lives in
// another process and in-process wakeups never fire.
const tailPollInterval = time.Second

// Store persists the record log in SQLite. Appends are durably committed
// before they return; readers only ever observe whole records.
type Store struct {
	sqlDB *sql.DB

	mu      sync.Mutex
	changed chan struct{}
}

// Open opens a SQLite record log, applies embedded migrations, and pins the
// grid geometry: a log created for one grid refuses to open for another.
func Open(path string, params grid.Params) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store := &Store{sqlDB: sqlDB, changed: make(chan struct{})}
	if err := store.pinGrid(params); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append durably appends one record and returns its zero-based sequence.
func (s *Store) Append(ctx context.Context, record []byte) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(record) != wire.RecordSize {
		return 0, fmt.Errorf("record must be %d bytes, got %d", wire.RecordSize, len(record))
	}
	res, err := s.sqlDB.ExecContext(ctx, "INSERT INTO records (record) VALUES (?)", record)
	if err != nil {
		return 0, fmt.Errorf("append record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append record seq: %w", err)
	}

	s.mu.Lock()
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	// AUTOINCREMENT starts at 1; sequence numbers are zero-based.
	return uint64(id - 1), nil
}

// ReadFrom returns the concatenated bytes of every record at or after
// fromRecord.
func (s *Store) ReadFrom(ctx context.Context, fromRecord uint64) ([]byte, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT record FROM records WHERE seq > ? ORDER BY seq", int64(fromRecord))
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	defer rows.Close()

	var buf []byte
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if len(record) != wire.RecordSize {
			return nil, fmt.Errorf("stored record is %d bytes, want %d", len(record), wire.RecordSize)
		}
		buf = append(buf, record...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return buf, nil
}

// Count returns the number of records appended so far.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return uint64(count), nil
}

// Tail streams record bytes from fromRecord until ctx is cancelled. Wakeups
// come from in-process appends; a poll interval covers appends from other
// processes sharing the database file.
func (s *Store) Tail(ctx context.Context, fromRecord uint64) (<-chan []byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(chan []byte)
	go func() {
		defer close(out)
		next := fromRecord
		ticker := time.NewTicker(tailPollInterval)
		defer ticker.Stop()
		for {
			s.mu.Lock()
			changed := s.changed
			s.mu.Unlock()

			chunk, err := s.ReadFrom(ctx, next)
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("tail read failed from_record=%d err=%v", next, err)
				}
				return
			}
			if len(chunk) > 0 {
				select {
				case out <- chunk:
					next += uint64(len(chunk) / wire.RecordSize)
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case <-changed:
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// pinGrid stores the grid geometry on first open and validates it afterwards.
func (s *Store) pinGrid(params grid.Params) error {
	width, widthOK, err := s.getMeta("grid_width")
	if err != nil {
		return err
	}
	height, heightOK, err := s.getMeta("grid_height")
	if err != nil {
		return err
	}
	if !widthOK && !heightOK {
		if err := s.setMeta("grid_width", strconv.Itoa(params.Width)); err != nil {
			return err
		}
		return s.setMeta("grid_height", strconv.Itoa(params.Height))
	}
	if width != strconv.Itoa(params.Width) || height != strconv.Itoa(params.Height) {
		return fmt.Errorf("log was created for a %sx%s grid, not %dx%d", width, height, params.Width, params.Height)
	}
	return nil
}

func (s *Store) getMeta(key string) (string, bool, error) {
	var value string
	err := s.sqlDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) setMeta(key, value string) error {
	if _, err := s.sqlDB.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}
