package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// keyedLocks serializes read-modify-write sequences per (student, material).
// time_spent must accumulate, and a stale completion evaluation must not skip
// an aggregation trigger, so the whole sequence runs under one key's lock.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = map[string]*sync.Mutex{}
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

const conflictRetries = 3

// Service is the sole writer of progress records. It records interaction
// telemetry, applies progress deltas, evaluates completion, and triggers the
// roll-up on the transition into completed.
type Service struct {
	store   Store
	catalog catalog.Catalog
	agg     *Aggregator
	now     Clock
	locks   keyedLocks

	// invalidate, when set, drops cached course reports after a write.
	invalidate func(studentID string, courseID int64)
}

func NewService(store Store, cat catalog.Catalog, agg *Aggregator, now Clock) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, catalog: cat, agg: agg, now: now}
}

// OnWrite registers a hook called after every successful record write.
func (s *Service) OnWrite(fn func(studentID string, courseID int64)) { s.invalidate = fn }

func lockKey(studentID string, materialID catalog.MaterialID) string {
	return studentID + "|" + string(materialID)
}

// RecordInteraction creates the progress record on first contact or merges
// telemetry into an existing one. It never evaluates completion.
func (s *Service) RecordInteraction(ctx context.Context, studentID string, courseID, sectionID int64, materialID catalog.MaterialID, events ...Interaction) error {
	if studentID == "" {
		return invalid("student_id", "required")
	}
	if materialID == "" {
		return invalid("material_id", "required")
	}
	bag, err := EncodeInteractions(events...)
	if err != nil {
		return invalid("interaction_data", err.Error())
	}

	l := s.locks.get(lockKey(studentID, materialID))
	l.Lock()
	defer l.Unlock()

	var courseForNotify int64
	for attempt := 0; ; attempt++ {
		now := s.now()
		rec, err := s.store.GetRecord(ctx, studentID, materialID)
		switch {
		case errors.Is(err, ErrNotFound):
			rec = Record{
				ID:           uuid.NewString(),
				StudentID:    studentID,
				CourseID:     courseID,
				SectionID:    sectionID,
				MaterialID:   materialID,
				Status:       StatusInProgress,
				Attempts:     1,
				Interactions: bag,
				StartedAt:    now,
				LastAccessed: now,
			}
			if cerr := s.store.CreateRecord(ctx, rec); cerr != nil {
				// A create race across processes: re-read and merge instead.
				if errors.Is(cerr, ErrConflict) && attempt < conflictRetries {
					continue
				}
				return fmt.Errorf("create progress record: %w", cerr)
			}
		case err != nil:
			return err
		default:
			rec.Interactions = rec.Interactions.Merge(bag)
			rec.Attempts++
			rec.LastAccessed = now
			if uerr := s.store.UpdateRecord(ctx, rec); uerr != nil {
				return fmt.Errorf("merge interaction: %w", uerr)
			}
		}
		courseForNotify = rec.CourseID
		break
	}
	s.notify(studentID, courseForNotify)
	return nil
}

// UpdateProgress applies a progress/time/score delta and evaluates completion.
// Returns false when no record exists yet for the pair; RecordInteraction has
// to run first.
func (s *Service) UpdateProgress(ctx context.Context, studentID string, materialID catalog.MaterialID, pct float64, timeDeltaSec int64, score *float64) (bool, error) {
	if timeDeltaSec < 0 {
		return false, invalid("time_spent_delta", "must be non-negative")
	}

	l := s.locks.get(lockKey(studentID, materialID))
	l.Lock()
	defer l.Unlock()

	var lastErr error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		updated, completedNow, rec, err := s.applyProgress(ctx, studentID, materialID, pct, timeDeltaSec, score)
		if errors.Is(err, ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return false, err
		}
		if !updated {
			return false, nil
		}
		if completedNow && s.agg != nil {
			s.agg.RollUp(ctx, studentID, rec.SectionID, rec.CourseID)
		}
		s.notify(studentID, rec.CourseID)
		return true, nil
	}
	return false, lastErr
}

func (s *Service) applyProgress(ctx context.Context, studentID string, materialID catalog.MaterialID, pct float64, timeDeltaSec int64, score *float64) (updated, completedNow bool, rec Record, err error) {
	rec, err = s.store.GetRecord(ctx, studentID, materialID)
	if errors.Is(err, ErrNotFound) {
		return false, false, Record{}, nil
	}
	if err != nil {
		return false, false, Record{}, err
	}

	rec.ProgressPct = clampPct(pct)
	rec.TimeSpentSec += timeDeltaSec
	if score != nil {
		v := clampPct(*score)
		rec.Score = &v
	}

	rule := DefaultRule()
	if mat, merr := s.catalog.GetMaterial(ctx, materialID); merr == nil {
		rule = RuleFor(mat)
	} else if !errors.Is(merr, catalog.ErrMaterialNotFound) {
		return false, false, Record{}, merr
	}

	now := s.now()
	wasCompleted := rec.Status == StatusCompleted
	if rule.Complete(rec.ProgressPct, rec.Score) {
		rec.Status = StatusCompleted
		if rec.CompletedAt == nil {
			t := now
			rec.CompletedAt = &t
		}
	} else if wasCompleted {
		// Completion only moves forward; a later failing attempt does not
		// un-complete the material.
	} else if rec.ProgressPct > 0 {
		rec.Status = StatusInProgress
	}
	rec.LastAccessed = now

	if err := s.store.UpdateRecord(ctx, rec); err != nil {
		return false, false, Record{}, err
	}
	return true, rec.Status == StatusCompleted && !wasCompleted, rec, nil
}

func (s *Service) notify(studentID string, courseID int64) {
	if s.invalidate != nil {
		s.invalidate(studentID, courseID)
	}
}
