package assignment

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// Store is the append-only home of submission rows.
type Store interface {
	AppendSubmission(ctx context.Context, sub Submission) error
	ListSubmissions(ctx context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error)
}

type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) AppendSubmission(ctx context.Context, sub Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assignment_submissions
		   (id, student_id, material_id, submission_type, content, file_path,
		    original_filename, url, status, grade, feedback, submitted_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sub.ID, sub.StudentID, string(sub.MaterialID), sub.Type, sub.Content,
		sub.FilePath, sub.OriginalFilename, sub.URL, sub.Status, sub.Grade,
		sub.Feedback, sub.SubmittedAt.Unix())
	return err
}

func (s *SQLStore) ListSubmissions(ctx context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, material_id, submission_type, content, file_path,
		        original_filename, url, status, grade, feedback, submitted_at
		   FROM assignment_submissions
		  WHERE student_id=$1 AND material_id=$2 ORDER BY submitted_at`,
		studentID, string(materialID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var (
			sub        Submission
			materialID string
			submitted  int64
		)
		if err := rows.Scan(&sub.ID, &sub.StudentID, &materialID, &sub.Type, &sub.Content,
			&sub.FilePath, &sub.OriginalFilename, &sub.URL, &sub.Status, &sub.Grade,
			&sub.Feedback, &submitted); err != nil {
			return nil, err
		}
		sub.MaterialID = catalog.MaterialID(materialID)
		sub.SubmittedAt = time.Unix(submitted, 0).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

// MemoryStore serves tests and offline runs.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string][]Submission // student|material
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: map[string][]Submission{}}
}

func (m *MemoryStore) AppendSubmission(_ context.Context, sub Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sub.StudentID + "|" + string(sub.MaterialID)
	m.rows[k] = append(m.rows[k], sub)
	return nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := studentID + "|" + string(materialID)
	out := make([]Submission, len(m.rows[k]))
	copy(out, m.rows[k])
	return out, nil
}
