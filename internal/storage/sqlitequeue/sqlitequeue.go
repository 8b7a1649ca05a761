package sqlitequeue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

const DefaultCapacity = 100

// Queue is a bounded, newest-first list of activity records kept in a local
// SQLite file. Pushing past capacity evicts the oldest records.
type Queue struct {
	db       *sql.DB
	capacity int
}

func Open(path string, capacity int) (*Queue, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(5 * time.Minute)

	q := &Queue{db: db, capacity: capacity}
	if err := q.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return q, nil
}

func (q *Queue) Close() error {
	if q.db == nil {
		return nil
	}
	return q.db.Close()
}

func (q *Queue) initSchema(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS activity_queue (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	record TEXT NOT NULL,
	queued_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`)
	return errors.Wrap(err, "init schema")
}

// Push puts rec at the front and trims the queue to capacity. A record with
// an already queued id replaces it.
func (q *Queue) Push(ctx context.Context, rec models.ActivityRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM activity_queue WHERE id = ?`, rec.ID); err != nil {
		return errors.Wrap(err, "delete previous copy")
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO activity_queue (id, record) VALUES (?, ?)`, rec.ID, string(b)); err != nil {
		return errors.Wrap(err, "insert record")
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM activity_queue
WHERE seq NOT IN (SELECT seq FROM activity_queue ORDER BY seq DESC LIMIT ?)`, q.capacity); err != nil {
		return errors.Wrap(err, "trim queue")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (q *Queue) List(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	return q.query(ctx, "DESC", limit)
}

// Oldest returns up to limit records, oldest first.
func (q *Queue) Oldest(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	return q.query(ctx, "ASC", limit)
}

func (q *Queue) query(ctx context.Context, order string, limit int) ([]models.ActivityRecord, error) {
	if limit <= 0 || limit > q.capacity {
		limit = q.capacity
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT record FROM activity_queue ORDER BY seq `+order+` LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select records")
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		var rec models.ActivityRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, errors.Wrap(err, "unmarshal record")
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (q *Queue) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	_, err := q.db.ExecContext(ctx, `DELETE FROM activity_queue WHERE id IN (`+placeholders+`)`, args...)
	return errors.Wrap(err, "delete records")
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_queue`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count records")
	}
	return n, nil
}
