package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// allocRetries bounds the attempt-number allocation loop.
const allocRetries = 3

// Store loads question banks and keeps the append-only attempt log.
type Store interface {
	Questions(ctx context.Context, materialID catalog.MaterialID) ([]Question, error)
	// AppendSubmission assigns the next attempt number for the pair and
	// persists the row. Attempt numbers never repeat or skip.
	AppendSubmission(ctx context.Context, sub Submission) (Submission, error)
	ListSubmissions(ctx context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error)
}

// SQLStore reads questions from the materials table and appends attempts to
// quiz_submissions.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Questions(ctx context.Context, materialID catalog.MaterialID) ([]Question, error) {
	var qjson sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT questions_json FROM materials WHERE id=$1`, string(materialID)).Scan(&qjson)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrMaterialNotFound
	}
	if err != nil {
		return nil, err
	}
	if !qjson.Valid || qjson.String == "" {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal([]byte(qjson.String), &questions); err != nil {
		return nil, fmt.Errorf("questions for %s: %w", materialID, err)
	}
	return questions, nil
}

func (s *SQLStore) AppendSubmission(ctx context.Context, sub Submission) (Submission, error) {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return Submission{}, err
	}
	results, err := json.Marshal(sub.Results)
	if err != nil {
		return Submission{}, err
	}
	// The unique (student, material, attempt_number) index backstops the
	// MAX+1 allocation if two submissions race across processes. Bounded so a
	// persistent violation surfaces instead of spinning.
	var lastErr error
	for attempt := 0; attempt < allocRetries; attempt++ {
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO quiz_submissions
			   (id, student_id, material_id, attempt_number, score, total_questions,
			    correct_answers, time_taken_sec, answers_json, results_json, passed, submitted_at)
			 SELECT $1,$2,$3,COALESCE(MAX(attempt_number),0)+1,$4,$5,$6,$7,$8,$9,$10,$11
			   FROM quiz_submissions WHERE student_id=$2 AND material_id=$3
			 RETURNING attempt_number`,
			sub.ID, sub.StudentID, string(sub.MaterialID), sub.Score, sub.TotalQuestions,
			sub.CorrectAnswers, sub.TimeTakenSec, string(answers), string(results),
			sub.Passed, sub.SubmittedAt.Unix()).Scan(&sub.AttemptNumber)
		if err != nil && isUniqueViolation(err) {
			lastErr = err
			continue
		}
		if err != nil {
			return Submission{}, err
		}
		return sub, nil
	}
	return Submission{}, fmt.Errorf("allocate attempt number for %s/%s: %w",
		sub.StudentID, sub.MaterialID, lastErr)
}

func (s *SQLStore) ListSubmissions(ctx context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, material_id, attempt_number, score, total_questions,
		        correct_answers, time_taken_sec, answers_json, results_json, passed, submitted_at
		   FROM quiz_submissions
		  WHERE student_id=$1 AND material_id=$2 ORDER BY attempt_number`,
		studentID, string(materialID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var (
			sub          Submission
			materialID   string
			answersJSON  string
			resultsJSON  string
			submittedSec int64
		)
		if err := rows.Scan(&sub.ID, &sub.StudentID, &materialID, &sub.AttemptNumber,
			&sub.Score, &sub.TotalQuestions, &sub.CorrectAnswers, &sub.TimeTakenSec,
			&answersJSON, &resultsJSON, &sub.Passed, &submittedSec); err != nil {
			return nil, err
		}
		sub.MaterialID = catalog.MaterialID(materialID)
		_ = json.Unmarshal([]byte(answersJSON), &sub.Answers)
		_ = json.Unmarshal([]byte(resultsJSON), &sub.Results)
		sub.SubmittedAt = unixTime(submittedSec)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

// MemoryStore serves tests and offline runs.
type MemoryStore struct {
	mu          sync.Mutex
	questions   map[catalog.MaterialID][]Question
	submissions map[string][]Submission // student|material
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions:   map[catalog.MaterialID][]Question{},
		submissions: map[string][]Submission{},
	}
}

// PutQuestions seeds a question bank.
func (m *MemoryStore) PutQuestions(materialID catalog.MaterialID, questions []Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[materialID] = questions
}

func (m *MemoryStore) Questions(_ context.Context, materialID catalog.MaterialID) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qs, ok := m.questions[materialID]
	if !ok {
		return nil, catalog.ErrMaterialNotFound
	}
	return qs, nil
}

func (m *MemoryStore) AppendSubmission(_ context.Context, sub Submission) (Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sub.StudentID + "|" + string(sub.MaterialID)
	sub.AttemptNumber = len(m.submissions[k]) + 1
	m.submissions[k] = append(m.submissions[k], sub)
	return sub, nil
}

func (m *MemoryStore) ListSubmissions(_ context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := studentID + "|" + string(materialID)
	out := make([]Submission, len(m.submissions[k]))
	copy(out, m.submissions[k])
	return out, nil
}
