package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// SQLStore persists progress state in the relational store. Works against
// both sqlite and postgres (schema in internal/db).
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

const recordCols = `id, student_id, course_id, section_id, material_id, status,
	progress_pct, time_spent_sec, score, attempts, interactions_json,
	started_at, completed_at, last_accessed_at`

func (s *SQLStore) scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var (
		rec         Record
		materialID  string
		interJSON   string
		startedAt   int64
		completedAt sql.NullInt64
		lastAccess  int64
	)
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.CourseID, &rec.SectionID, &materialID,
		&rec.Status, &rec.ProgressPct, &rec.TimeSpentSec, &rec.Score, &rec.Attempts,
		&interJSON, &startedAt, &completedAt, &lastAccess)
	if err != nil {
		return Record{}, err
	}
	rec.MaterialID = catalog.MaterialID(materialID)
	if interJSON != "" {
		if uerr := json.Unmarshal([]byte(interJSON), &rec.Interactions); uerr != nil {
			rec.Interactions = Bag{}
		}
	}
	rec.StartedAt = time.Unix(startedAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		rec.CompletedAt = &t
	}
	rec.LastAccessed = time.Unix(lastAccess, 0).UTC()
	return rec, nil
}

func (s *SQLStore) GetRecord(ctx context.Context, studentID string, materialID catalog.MaterialID) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordCols+` FROM progress_records WHERE student_id=$1 AND material_id=$2`,
		studentID, string(materialID))
	rec, err := s.scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("progress record %s/%s: %w", studentID, materialID, ErrNotFound)
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *SQLStore) CreateRecord(ctx context.Context, rec Record) error {
	bag, err := json.Marshal(rec.Interactions)
	if err != nil {
		return err
	}
	var completedAt *int64
	if rec.CompletedAt != nil {
		v := rec.CompletedAt.Unix()
		completedAt = &v
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO progress_records (`+recordCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rec.ID, rec.StudentID, rec.CourseID, rec.SectionID, string(rec.MaterialID),
		rec.Status, rec.ProgressPct, rec.TimeSpentSec, rec.Score, rec.Attempts,
		string(bag), rec.StartedAt.Unix(), completedAt, rec.LastAccessed.Unix())
	if err != nil && isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (s *SQLStore) UpdateRecord(ctx context.Context, rec Record) error {
	bag, err := json.Marshal(rec.Interactions)
	if err != nil {
		return err
	}
	var completedAt *int64
	if rec.CompletedAt != nil {
		v := rec.CompletedAt.Unix()
		completedAt = &v
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE progress_records
		    SET status=$1, progress_pct=$2, time_spent_sec=$3, score=$4, attempts=$5,
		        interactions_json=$6, completed_at=$7, last_accessed_at=$8
		  WHERE student_id=$9 AND material_id=$10`,
		rec.Status, rec.ProgressPct, rec.TimeSpentSec, rec.Score, rec.Attempts,
		string(bag), completedAt, rec.LastAccessed.Unix(),
		rec.StudentID, string(rec.MaterialID))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("progress record %s/%s: %w", rec.StudentID, rec.MaterialID, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) ListCourseRecords(ctx context.Context, studentID string, courseID int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordCols+` FROM progress_records
		  WHERE student_id=$1 AND course_id=$2`, studentID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountCompleted(ctx context.Context, studentID string, materialIDs []catalog.MaterialID) (int, error) {
	if len(materialIDs) == 0 {
		return 0, nil
	}
	args := []any{studentID}
	ph := make([]string, 0, len(materialIDs))
	for i, id := range materialIDs {
		ph = append(ph, fmt.Sprintf("$%d", i+2))
		args = append(args, string(id))
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM progress_records
		  WHERE student_id=$1 AND status='completed' AND material_id IN (`+strings.Join(ph, ",")+`)`,
		args...).Scan(&n)
	return n, err
}

func (s *SQLStore) GetSectionProgress(ctx context.Context, studentID string, sectionID int64) (SectionProgress, error) {
	sp := SectionProgress{StudentID: studentID, SectionID: sectionID, Status: StatusNotStarted}
	var completedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT status, completed_at FROM section_progress WHERE student_id=$1 AND section_id=$2`,
		studentID, sectionID).Scan(&sp.Status, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sp, nil
	}
	if err != nil {
		return SectionProgress{}, err
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		sp.CompletedAt = &t
	}
	return sp, nil
}

func (s *SQLStore) CompleteSection(ctx context.Context, studentID string, sectionID int64, at time.Time) error {
	// Set-once: the conflict arm only promotes rows that are not completed yet.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO section_progress (student_id, section_id, status, completed_at)
		 VALUES ($1,$2,'completed',$3)
		 ON CONFLICT (student_id, section_id) DO UPDATE SET
		   status='completed',
		   completed_at=COALESCE(section_progress.completed_at, $3)`,
		studentID, sectionID, at.Unix())
	return err
}

func (s *SQLStore) CountCompletedSections(ctx context.Context, studentID string, sectionIDs []int64) (int, error) {
	if len(sectionIDs) == 0 {
		return 0, nil
	}
	args := []any{studentID}
	ph := make([]string, 0, len(sectionIDs))
	for i, id := range sectionIDs {
		ph = append(ph, fmt.Sprintf("$%d", i+2))
		args = append(args, id)
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM section_progress
		  WHERE student_id=$1 AND status='completed' AND section_id IN (`+strings.Join(ph, ",")+`)`,
		args...).Scan(&n)
	return n, err
}

func (s *SQLStore) GetEnrollment(ctx context.Context, studentID string, courseID int64) (Enrollment, error) {
	e := Enrollment{StudentID: studentID, CourseID: courseID}
	var completedAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT status, completed_at FROM enrollments WHERE student_id=$1 AND course_id=$2`,
		studentID, courseID).Scan(&e.Status, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Enrollment{}, fmt.Errorf("enrollment %s/%d: %w", studentID, courseID, ErrNotFound)
	}
	if err != nil {
		return Enrollment{}, err
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		e.CompletedAt = &t
	}
	return e, nil
}

func (s *SQLStore) CompleteEnrollment(ctx context.Context, studentID string, courseID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE enrollments
		    SET status='completed', completed_at=COALESCE(completed_at, $1)
		  WHERE student_id=$2 AND course_id=$3 AND status != 'completed'`,
		at.Unix(), studentID, courseID)
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
