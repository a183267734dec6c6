package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Visit records one navigation event.
type Visit struct {
	ID        int64
	Event     string // set, push, back, forward
	Path      string
	Title     string
	StateTime int64
	Orphan    bool
	VisitedAt time.Time
}

// VisitLog keeps every navigation event, newest first.
type VisitLog struct {
	db      *sql.DB
	maxSize int // max number of visits to keep
}

// NewVisitLog creates a visit log using the given database.
func NewVisitLog(db *DB) *VisitLog {
	return &VisitLog{db: db.Conn(), maxSize: 1000}
}

// Add records a visit and trims the log to its maximum size.
func (vl *VisitLog) Add(ctx context.Context, v Visit) error {
	if v.Path == "" {
		return nil
	}
	_, err := vl.db.ExecContext(ctx,
		`INSERT INTO visits (event, path, title, state_time, orphan) VALUES (?, ?, ?, ?, ?)`,
		v.Event, v.Path, v.Title, v.StateTime, v.Orphan,
	)
	if err != nil {
		return fmt.Errorf("recording visit: %w", err)
	}

	_, err = vl.db.ExecContext(ctx,
		`DELETE FROM visits WHERE id NOT IN (SELECT id FROM visits ORDER BY id DESC LIMIT ?)`,
		vl.maxSize,
	)
	if err != nil {
		return fmt.Errorf("trimming visits: %w", err)
	}
	return nil
}

// List returns up to limit visits, newest first. A limit <= 0 returns all.
func (vl *VisitLog) List(ctx context.Context, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := vl.db.QueryContext(ctx,
		`SELECT id, event, path, title, state_time, orphan, visited_at
		 FROM visits ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying visits: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var visitedAt any
		if err := rows.Scan(&v.ID, &v.Event, &v.Path, &v.Title, &v.StateTime, &v.Orphan, &visitedAt); err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		v.VisitedAt = parseTimestamp(visitedAt)
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Count returns the number of visits.
func (vl *VisitLog) Count(ctx context.Context) (int, error) {
	var count int
	err := vl.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM visits`).Scan(&count)
	return count, err
}

// Clear removes all visits.
func (vl *VisitLog) Clear(ctx context.Context) error {
	_, err := vl.db.ExecContext(ctx, `DELETE FROM visits`)
	return err
}

// parseTimestamp accepts what the driver hands back for a DATETIME column.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, _ := time.Parse("2006-01-02 15:04:05", t)
		return parsed
	case []byte:
		parsed, _ := time.Parse("2006-01-02 15:04:05", string(t))
		return parsed
	default:
		return time.Time{}
	}
}
