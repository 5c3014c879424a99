package progress

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// SQLRetryLog stores aggregation failures in the aggregation_retries table.
type SQLRetryLog struct{ db *sql.DB }

func NewSQLRetryLog(db *sql.DB) *SQLRetryLog { return &SQLRetryLog{db: db} }

func (r *SQLRetryLog) Append(ctx context.Context, f Failure) error {
	if f.CreatedAt == 0 {
		f.CreatedAt = time.Now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO aggregation_retries (student_id, kind, target_id, course_id, last_error, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		f.StudentID, f.Kind, f.TargetID, f.CourseID, f.LastError, f.CreatedAt)
	return err
}

func (r *SQLRetryLog) Pending(ctx context.Context, limit int) ([]Failure, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, student_id, kind, target_id, course_id, last_error, created_at
		   FROM aggregation_retries WHERE resolved_at IS NULL
		  ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.ID, &f.StudentID, &f.Kind, &f.TargetID, &f.CourseID, &f.LastError, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *SQLRetryLog) Resolve(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE aggregation_retries SET resolved_at=$1 WHERE id=$2`, time.Now().Unix(), id)
	return err
}

// MemoryRetryLog keeps failures in memory; pairs with the in-memory store.
type MemoryRetryLog struct {
	mu      sync.Mutex
	seq     int64
	pending []Failure
}

func NewMemoryRetryLog() *MemoryRetryLog { return &MemoryRetryLog{} }

func (r *MemoryRetryLog) Append(_ context.Context, f Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	f.ID = r.seq
	r.pending = append(r.pending, f)
	return nil
}

func (r *MemoryRetryLog) Pending(_ context.Context, limit int) ([]Failure, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.pending) {
		limit = len(r.pending)
	}
	out := make([]Failure, limit)
	copy(out, r.pending[:limit])
	return out, nil
}

func (r *MemoryRetryLog) Resolve(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, f := range r.pending {
		if f.ID == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return nil
		}
	}
	return nil
}
