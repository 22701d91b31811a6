// Package journal keeps an audit trail of alerts in sqlite. It is write-only from the monitor
// point of view and never consulted to decide what is new.
package journal

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed schema.sql
var schema string

// errNotRetryable stops retries of failed statements not caused by sqlite locks
var errNotRetryable = errors.New("not retryable")

// Config represents database configuration
type Config struct {
	DSN          string
	MaxOpenConns int
}

// Entry is a single journal record, one per candidate alert decision
type Entry struct {
	ID         int64     `json:"id"`
	Candidate  string    `json:"candidate"`
	MeanScore  float64   `json:"mean_score"`
	Level      string    `json:"level"`
	ItemIDs    []string  `json:"item_ids"`
	Message    string    `json:"message"`
	Sent       bool      `json:"sent"` // false if gated out by the mean score
	Recipients int       `json:"recipients"`
	Delivered  int       `json:"delivered"`
	CreatedAt  time.Time `json:"created_at"`
}

// entryRow is the db representation of Entry
type entryRow struct {
	ID         int64   `db:"id"`
	Candidate  string  `db:"candidate"`
	MeanScore  float64 `db:"mean_score"`
	Level      string  `db:"level"`
	ItemIDs    string  `db:"item_ids"`
	Message    string  `db:"message"`
	Sent       bool    `db:"sent"`
	Recipients int     `db:"recipients"`
	Delivered  int     `db:"delivered"`
	CreatedAt  int64   `db:"created_at"`
}

// Journal stores alert entries
type Journal struct {
	db *sqlx.DB
}

// New opens the database and creates the schema
func New(ctx context.Context, cfg Config) (*Journal, error) {
	if cfg.DSN == "" {
		return nil, errors.New("empty dsn")
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record inserts entry, retrying on sqlite lock errors. Sets entry ID and, if zero, CreatedAt.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	row := entryRow{
		Candidate:  e.Candidate,
		MeanScore:  e.MeanScore,
		Level:      e.Level,
		ItemIDs:    strings.Join(e.ItemIDs, "\n"),
		Message:    e.Message,
		Sent:       e.Sent,
		Recipients: e.Recipients,
		Delivered:  e.Delivered,
		CreatedAt:  e.CreatedAt.UnixNano(),
	}

	query := `INSERT INTO alerts (candidate, mean_score, level, item_ids, message, sent, recipients, delivered, created_at)
		VALUES (:candidate, :mean_score, :level, :item_ids, :message, :sent, :recipients, :delivered, :created_at)`

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		res, err := j.db.NamedExecContext(ctx, query, row)
		if err != nil {
			if isLockError(err) {
				return err
			}
			return errors.Join(errNotRetryable, fmt.Errorf("insert alert: %w", err))
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return errors.Join(errNotRetryable, fmt.Errorf("get alert id: %w", err))
		}
		return nil
	}, errNotRetryable)
}

// List returns up to limit most recent entries, newest first
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []entryRow
	query := `SELECT id, candidate, mean_score, level, item_ids, message, sent, recipients, delivered, created_at
		FROM alerts ORDER BY created_at DESC, id DESC LIMIT ?`
	if err := j.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}

	res := make([]Entry, 0, len(rows))
	for _, r := range rows {
		var ids []string
		if r.ItemIDs != "" {
			ids = strings.Split(r.ItemIDs, "\n")
		}
		res = append(res, Entry{
			ID:         r.ID,
			Candidate:  r.Candidate,
			MeanScore:  r.MeanScore,
			Level:      r.Level,
			ItemIDs:    ids,
			Message:    r.Message,
			Sent:       r.Sent,
			Recipients: r.Recipients,
			Delivered:  r.Delivered,
			CreatedAt:  time.Unix(0, r.CreatedAt),
		})
	}
	return res, nil
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.db.Close()
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
