package quiz

import (
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeFillBlank      QuestionType = "fill_blank"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeEssay          QuestionType = "essay"
)

type Choice struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Choices       []Choice     `json:"choices,omitempty"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	SampleAnswer  string       `json:"sample_answer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
}

// QuestionResult is the graded outcome for one question, echoed back to the
// client in the submission response.
type QuestionResult struct {
	QuestionID    string `json:"question_id"`
	UserAnswer    any    `json:"user_answer"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// Result is the full response of a quiz submission.
type Result struct {
	Score          float64          `json:"score"`
	Passed         bool             `json:"passed"`
	PassingScore   float64          `json:"passing_score"`
	CorrectAnswers int              `json:"correct_answers"`
	TotalQuestions int              `json:"total_questions"`
	Questions      []QuestionResult `json:"questions"`
	TimeTakenSec   int64            `json:"time_taken_sec"`
	AttemptNumber  int              `json:"attempt_number"`
}

// Submission is one attempt in the append-only log. Attempt numbers are
// 1-based and strictly increasing per (student, material); rows are never
// overwritten.
type Submission struct {
	ID             string             `json:"id"`
	StudentID      string             `json:"student_id"`
	MaterialID     catalog.MaterialID `json:"material_id"`
	AttemptNumber  int                `json:"attempt_number"`
	Score          float64            `json:"score"`
	TotalQuestions int                `json:"total_questions"`
	CorrectAnswers int                `json:"correct_answers"`
	TimeTakenSec   int64              `json:"time_taken_sec"`
	Answers        []any              `json:"answers"`
	Results        []QuestionResult   `json:"results"`
	Passed         bool               `json:"passed"`
	SubmittedAt    time.Time          `json:"submitted_at"`
}
