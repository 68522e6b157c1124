package acct

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS acct (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		pid        INTEGER NOT NULL,
		name       TEXT    NOT NULL,
		status     INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		exited_at  INTEGER NOT NULL,
		reaped_at  INTEGER NOT NULL
	)
`

// Entry is one reaped process.
type Entry struct {
	PID       int
	Name      string
	Status    uint8
	CreatedAt time.Time
	ExitedAt  time.Time
	ReapedAt  time.Time
}

// lockRetry is how often Open retries a journal lock held by another
// kernel.
const lockRetry = 50 * time.Millisecond

// Journal is an open accounting database. It is safe for concurrent use.
//
// A journal is owned by one kernel at a time: Open takes an exclusive lock
// on a sibling ".lock" file and Close drops it.
type Journal struct {
	path string
	db   *sql.DB
	fl   *flock.Flock
	log  *slog.Logger
}

// Open locks and opens the journal at path, creating it if needed. It waits
// for a lock held elsewhere until ctx is done.
// A nil logger falls back to slog.Default().
func Open(ctx context.Context, path string, log *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path must not be empty")
	}
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory for %s: %w", path, err)
	}

	j := &Journal{path: path, fl: flock.New(path + ".lock"), log: log}
	if err := j.lock(ctx); err != nil {
		return nil, err
	}
	if err := j.openDB(ctx); err != nil {
		j.unlock()
		return nil, err
	}

	log.Debug("accounting journal opened", "path", path)
	return j, nil
}

func (j *Journal) lock(ctx context.Context) error {
	ok, err := j.fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock journal %s: %w", j.path, err)
	}
	if !ok {
		return fmt.Errorf("lock journal %s: held by another kernel", j.path)
	}
	return nil
}

// unlock leaves the lock file on disk so a waiting opener never locks an
// unlinked inode.
func (j *Journal) unlock() {
	if err := j.fl.Close(); err != nil {
		j.log.Warn("failed to unlock journal", "path", j.fl.Path(), "error", err)
	}
}

func (j *Journal) openDB(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		j.path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", j.path, err)
	}
	// The file lock already makes this kernel the only writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("create acct schema in %s: %w", j.path, err)
	}
	j.db = db
	return nil
}

// Path returns the database path.
func (j *Journal) Path() string {
	return j.path
}

// Record appends e to the journal.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	const stmt = `INSERT INTO acct (pid, name, status, created_at, exited_at, reaped_at) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := j.db.ExecContext(ctx, stmt,
		e.PID, e.Name, int(e.Status),
		e.CreatedAt.UnixNano(), e.ExitedAt.UnixNano(), e.ReapedAt.UnixNano(),
	); err != nil {
		return fmt.Errorf("record pid %d: %w", e.PID, err)
	}
	return nil
}

// Entries returns every recorded entry in the order it was reaped.
func (j *Journal) Entries(ctx context.Context) ([]Entry, error) {
	const query = `SELECT pid, name, status, created_at, exited_at, reaped_at FROM acct ORDER BY seq`

	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query acct: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			status                  int
			created, exited, reaped int64
		)
		if err := rows.Scan(&e.PID, &e.Name, &status, &created, &exited, &reaped); err != nil {
			return nil, fmt.Errorf("scan acct row: %w", err)
		}
		e.Status = uint8(status)
		e.CreatedAt = time.Unix(0, created)
		e.ExitedAt = time.Unix(0, exited)
		e.ReapedAt = time.Unix(0, reaped)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate acct rows: %w", err)
	}
	return entries, nil
}

// Close closes the database and releases the journal lock.
func (j *Journal) Close() error {
	err := j.db.Close()
	j.unlock()
	if err != nil {
		return fmt.Errorf("close sqlite %s: %w", j.path, err)
	}
	return nil
}
