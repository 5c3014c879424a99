package catalog

import (
	"context"
	"errors"
)

// MaterialID is the opaque identifier materials carry across stores. It is a
// distinct type so it cannot be confused with the numeric course/section IDs.
type MaterialID string

func (id MaterialID) String() string { return string(id) }

// ContentType enumerates the material kinds the completion rules know about.
type ContentType string

const (
	ContentText        ContentType = "text"
	ContentVideo       ContentType = "video"
	ContentQuiz        ContentType = "quiz"
	ContentAssignment  ContentType = "assignment"
	ContentDocument    ContentType = "document"
	ContentInteractive ContentType = "interactive"
)

// DefaultPassingScore applies when a quiz material has no configured threshold.
const DefaultPassingScore = 70.0

type Material struct {
	ID           MaterialID  `json:"id"`
	SectionID    int64       `json:"section_id"`
	Title        string      `json:"title"`
	ContentType  ContentType `json:"content_type"`
	PassingScore *float64    `json:"passing_score,omitempty"`
	DueDate      *int64      `json:"due_date,omitempty"` // unix seconds
	Position     int         `json:"position"`
}

// PassingThreshold returns the configured passing score or the default.
func (m Material) PassingThreshold() float64 {
	if m.PassingScore != nil {
		return *m.PassingScore
	}
	return DefaultPassingScore
}

var ErrMaterialNotFound = errors.New("material not found")

// Catalog resolves material identity and type parameters. The progress engine
// never joins against material content directly; every resolution goes through
// this interface.
type Catalog interface {
	GetMaterial(ctx context.Context, id MaterialID) (Material, error)
	MaterialExists(ctx context.Context, id MaterialID) (bool, error)
}

// Structure answers which children count toward completion roll-ups.
type Structure interface {
	RequiredMaterialIDs(ctx context.Context, sectionID int64) ([]MaterialID, error)
	RequiredSectionIDs(ctx context.Context, courseID int64) ([]int64, error)
}
