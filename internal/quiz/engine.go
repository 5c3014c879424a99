package quiz

import (
	"fmt"
	"strconv"
	"strings"
)

// manualGradingNote is what essay questions display instead of an answer key.
const manualGradingNote = "Manual grading required"

// Strategy grades a single question against one answer. Strategies are pure:
// no side effects, no storage access.
type Strategy interface {
	Grade(q Question, answer any) QuestionResult
}

// Grader routes by question type to the matching Strategy. Unknown types are
// graded incorrect with the question's explanation passed through.
type Grader struct {
	strategies map[QuestionType]Strategy
}

func NewGrader() *Grader {
	return &Grader{
		strategies: map[QuestionType]Strategy{
			TypeMultipleChoice: choiceStrategy{},
			TypeTrueFalse:      textMatchStrategy{},
			TypeFillBlank:      textMatchStrategy{},
			TypeShortAnswer:    textMatchStrategy{},
			TypeEssay:          essayStrategy{},
		},
	}
}

func (g *Grader) Grade(q Question, answer any) QuestionResult {
	s, ok := g.strategies[q.Type]
	if !ok {
		return QuestionResult{
			QuestionID:    q.ID,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		}
	}
	res := s.Grade(q, answer)
	res.QuestionID = q.ID
	return res
}

// choiceStrategy: the answer is the index of the chosen option; correct iff
// that option is flagged is_correct.
type choiceStrategy struct{}

func (choiceStrategy) Grade(q Question, answer any) QuestionResult {
	res := QuestionResult{
		UserAnswer:    answer,
		CorrectAnswer: correctChoiceText(q),
		Explanation:   q.Explanation,
	}
	idx, ok := answerIndex(answer)
	if !ok || idx < 0 || idx >= len(q.Choices) {
		return res
	}
	res.IsCorrect = q.Choices[idx].IsCorrect
	return res
}

// textMatchStrategy compares against the stored correct answer with
// whitespace trimmed and case ignored. true_false answers may arrive as
// booleans or strings; both normalize to "true"/"false".
type textMatchStrategy struct{}

func (textMatchStrategy) Grade(q Question, answer any) QuestionResult {
	res := QuestionResult{
		UserAnswer:    answer,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}
	if answer == nil {
		return res
	}
	got := answerText(answer)
	res.IsCorrect = strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(q.CorrectAnswer))
	return res
}

// essayStrategy never auto-grades; submissions are flagged for manual review.
type essayStrategy struct{}

func (essayStrategy) Grade(q Question, answer any) QuestionResult {
	display := q.SampleAnswer
	if display == "" {
		display = manualGradingNote
	}
	return QuestionResult{
		UserAnswer:    answer,
		IsCorrect:     false,
		CorrectAnswer: display,
		Explanation:   manualGradingNote,
	}
}

func correctChoiceText(q Question) string {
	for _, c := range q.Choices {
		if c.IsCorrect {
			return c.Text
		}
	}
	return ""
}

func answerIndex(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64: // JSON numbers decode to float64
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func answerText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
