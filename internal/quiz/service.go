package quiz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/progress"
)

var (
	ErrInvalidQuizMaterial = errors.New("invalid quiz material")
	ErrNoQuestions         = errors.New("quiz has no questions")
)

// Service grades submissions and wires their side effects: progress update,
// telemetry, and the append-only attempt log, in that order.
type Service struct {
	store    Store
	catalog  catalog.Catalog
	grader   *Grader
	progress *progress.Service
	now      func() time.Time
}

func NewService(store Store, cat catalog.Catalog, progressSvc *progress.Service, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		catalog:  cat,
		grader:   NewGrader(),
		progress: progressSvc,
		now:      now,
	}
}

// SubmitQuiz grades answers (positional, absent entries treated as nil, more
// answers than questions rejected) against the material's question bank.
//
// A failed attempt records progress 0, not the partial score's percentage:
// the material stays incomplete until a passing attempt occurs. An attempt
// that fails after an earlier pass does not un-complete the material; the
// progress service only moves completion forward.
func (s *Service) SubmitQuiz(ctx context.Context, studentID string, courseID, sectionID int64, materialID catalog.MaterialID, answers []any, timeTakenSec int64) (Result, error) {
	mat, err := s.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		if errors.Is(err, catalog.ErrMaterialNotFound) {
			return Result{}, ErrInvalidQuizMaterial
		}
		return Result{}, err
	}
	if mat.ContentType != catalog.ContentQuiz {
		return Result{}, ErrInvalidQuizMaterial
	}

	questions, err := s.store.Questions(ctx, materialID)
	if err != nil {
		return Result{}, err
	}
	if len(questions) == 0 {
		return Result{}, ErrNoQuestions
	}
	if len(answers) > len(questions) {
		return Result{}, &progress.ValidationError{
			Field: "answers",
			Msg:   fmt.Sprintf("%d answers for %d questions", len(answers), len(questions)),
		}
	}

	results := make([]QuestionResult, 0, len(questions))
	correct := 0
	for i, q := range questions {
		var ans any
		if i < len(answers) {
			ans = answers[i]
		}
		res := s.grader.Grade(q, ans)
		if res.IsCorrect {
			correct++
		}
		results = append(results, res)
	}

	score := float64(correct) / float64(len(questions)) * 100
	passing := mat.PassingThreshold()
	passed := score >= passing

	pct := 0.0
	if passed {
		pct = 100
	}
	if _, err := s.progress.UpdateProgress(ctx, studentID, materialID, pct, timeTakenSec, &score); err != nil {
		return Result{}, err
	}
	if err := s.progress.RecordInteraction(ctx, studentID, courseID, sectionID, materialID,
		progress.Action{Name: "quiz_submitted"}); err != nil {
		return Result{}, err
	}

	sub, err := s.store.AppendSubmission(ctx, Submission{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		MaterialID:     materialID,
		Score:          score,
		TotalQuestions: len(questions),
		CorrectAnswers: correct,
		TimeTakenSec:   timeTakenSec,
		Answers:        answers,
		Results:        results,
		Passed:         passed,
		SubmittedAt:    s.now(),
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Score:          score,
		Passed:         passed,
		PassingScore:   passing,
		CorrectAnswers: correct,
		TotalQuestions: len(questions),
		Questions:      results,
		TimeTakenSec:   timeTakenSec,
		AttemptNumber:  sub.AttemptNumber,
	}, nil
}

// Attempts returns the attempt log for a student and material.
func (s *Service) Attempts(ctx context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error) {
	return s.store.ListSubmissions(ctx, studentID, materialID)
}
