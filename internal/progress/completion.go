package progress

import "github.com/classtrack/classtrack-lms/internal/catalog"

// Rule decides whether an observed (progress, score) pair completes a
// material. One variant per content type keeps the dispatch closed: a new
// content type has to pick its rule here, it cannot fall through silently.
type Rule interface {
	Complete(pct float64, score *float64) bool
}

// ScoreThreshold completes on a recorded score at or above the threshold.
// Progress percentage is ignored: a quiz is passed or it is not.
type ScoreThreshold struct{ Min float64 }

func (r ScoreThreshold) Complete(_ float64, score *float64) bool {
	return score != nil && *score >= r.Min
}

// PctThreshold completes at or above a progress percentage.
type PctThreshold struct{ Min float64 }

func (r PctThreshold) Complete(pct float64, _ *float64) bool { return pct >= r.Min }

// videoTolerance admits partially-watched videos; players rarely report the
// exact last frame.
const videoTolerance = 90.0

// RuleFor maps a material to its completion rule. Unknown content types get
// the full-progress default.
func RuleFor(m catalog.Material) Rule {
	switch m.ContentType {
	case catalog.ContentQuiz:
		return ScoreThreshold{Min: m.PassingThreshold()}
	case catalog.ContentVideo:
		return PctThreshold{Min: videoTolerance}
	case catalog.ContentText, catalog.ContentDocument, catalog.ContentAssignment, catalog.ContentInteractive:
		return PctThreshold{Min: 100}
	default:
		return PctThreshold{Min: 100}
	}
}

// DefaultRule applies when the material cannot be resolved at all.
func DefaultRule() Rule { return PctThreshold{Min: 100} }
