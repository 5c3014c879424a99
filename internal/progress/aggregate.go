package progress

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// Failure is one aggregation recompute that could not be applied. The material
// write it followed is already durable, so failures are logged and replayed
// instead of rolled back.
type Failure struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	Kind      string `json:"kind"` // "section" or "course"
	TargetID  int64  `json:"target_id"`
	CourseID  int64  `json:"course_id"`
	LastError string `json:"last_error"`
	CreatedAt int64  `json:"created_at"`
}

// RetryLog persists aggregation failures for later replay.
type RetryLog interface {
	Append(ctx context.Context, f Failure) error
	Pending(ctx context.Context, limit int) ([]Failure, error)
	Resolve(ctx context.Context, id int64) error
}

type Clock func() time.Time

// Aggregator owns the derived section and course completion state. Nothing
// else writes section_progress or enrollment completion.
type Aggregator struct {
	store     Store
	structure catalog.Structure
	retries   RetryLog
	now       Clock
}

func NewAggregator(store Store, structure catalog.Structure, retries RetryLog, now Clock) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{store: store, structure: structure, retries: retries, now: now}
}

// RecomputeSection re-derives the section completion for one student.
// Idempotent: a second run with unchanged inputs leaves completed_at alone.
func (a *Aggregator) RecomputeSection(ctx context.Context, studentID string, sectionID int64) error {
	required, err := a.structure.RequiredMaterialIDs(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("section %d required materials: %w", sectionID, err)
	}
	// A section with no required materials has no completion signal.
	if len(required) == 0 {
		return nil
	}
	done, err := a.store.CountCompleted(ctx, studentID, required)
	if err != nil {
		return fmt.Errorf("section %d completed count: %w", sectionID, err)
	}
	if done < len(required) {
		return nil
	}
	return a.completeOnce(ctx,
		func(ctx context.Context) (Status, error) {
			sp, err := a.store.GetSectionProgress(ctx, studentID, sectionID)
			return sp.Status, err
		},
		func(ctx context.Context, at time.Time) error {
			return a.store.CompleteSection(ctx, studentID, sectionID, at)
		})
}

// RecomputeCourse re-derives the enrollment completion for one student.
func (a *Aggregator) RecomputeCourse(ctx context.Context, studentID string, courseID int64) error {
	required, err := a.structure.RequiredSectionIDs(ctx, courseID)
	if err != nil {
		return fmt.Errorf("course %d required sections: %w", courseID, err)
	}
	if len(required) == 0 {
		return nil
	}
	done, err := a.store.CountCompletedSections(ctx, studentID, required)
	if err != nil {
		return fmt.Errorf("course %d completed sections: %w", courseID, err)
	}
	if done < len(required) {
		return nil
	}
	e, err := a.store.GetEnrollment(ctx, studentID, courseID)
	if errors.Is(err, ErrNotFound) {
		// Not enrolled: no enrollment row to complete.
		return nil
	}
	if err != nil {
		return err
	}
	return a.completeOnce(ctx,
		func(context.Context) (Status, error) {
			if e.Status == EnrollmentCompleted {
				return StatusCompleted, nil
			}
			return StatusInProgress, nil
		},
		func(ctx context.Context, at time.Time) error {
			return a.store.CompleteEnrollment(ctx, studentID, courseID, at)
		})
}

// completeOnce is the single place both roll-ups get their set-once semantics
// from: an already-completed row is left untouched.
func (a *Aggregator) completeOnce(ctx context.Context,
	load func(context.Context) (Status, error),
	mark func(context.Context, time.Time) error) error {
	status, err := load(ctx)
	if err != nil {
		return err
	}
	if status == StatusCompleted {
		return nil
	}
	return mark(ctx, a.now())
}

// RollUp runs the section recompute and, whenever the section is (or becomes)
// complete, the course recompute. Failures are appended to the retry log and
// logged; they never propagate to the material write that triggered them.
func (a *Aggregator) RollUp(ctx context.Context, studentID string, sectionID, courseID int64) {
	if err := a.RecomputeSection(ctx, studentID, sectionID); err != nil {
		log.Printf("section recompute failed student=%s section=%d: %v", studentID, sectionID, err)
		a.logFailure(ctx, Failure{StudentID: studentID, Kind: "section", TargetID: sectionID, CourseID: courseID, LastError: err.Error()})
		return
	}
	if err := a.RecomputeCourse(ctx, studentID, courseID); err != nil {
		log.Printf("course recompute failed student=%s course=%d: %v", studentID, courseID, err)
		a.logFailure(ctx, Failure{StudentID: studentID, Kind: "course", TargetID: courseID, CourseID: courseID, LastError: err.Error()})
	}
}

func (a *Aggregator) logFailure(ctx context.Context, f Failure) {
	if a.retries == nil {
		return
	}
	f.CreatedAt = a.now().Unix()
	if err := a.retries.Append(ctx, f); err != nil {
		log.Printf("aggregation retry log append failed: %v", err)
	}
}

// RetryPending replays logged aggregation failures. Returns how many entries
// were resolved.
func (a *Aggregator) RetryPending(ctx context.Context, limit int) (int, error) {
	if a.retries == nil {
		return 0, nil
	}
	pending, err := a.retries.Pending(ctx, limit)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, f := range pending {
		var rerr error
		switch f.Kind {
		case "section":
			if rerr = a.RecomputeSection(ctx, f.StudentID, f.TargetID); rerr == nil {
				rerr = a.RecomputeCourse(ctx, f.StudentID, f.CourseID)
			}
		case "course":
			rerr = a.RecomputeCourse(ctx, f.StudentID, f.TargetID)
		default:
			// drop unknown kinds so they cannot wedge the queue
		}
		if rerr != nil {
			log.Printf("aggregation retry failed id=%d: %v", f.ID, rerr)
			continue
		}
		if err := a.retries.Resolve(ctx, f.ID); err != nil {
			return resolved, err
		}
		resolved++
	}
	return resolved, nil
}
