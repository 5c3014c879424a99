package progress_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/progress"
)

func seedCompleted(t *testing.T, store *progress.MemoryStore, studentID string, courseID, sectionID int64, materialID catalog.MaterialID) {
	t.Helper()
	err := store.CreateRecord(context.Background(), progress.Record{
		ID:         string(materialID) + "-rec",
		StudentID:  studentID,
		CourseID:   courseID,
		SectionID:  sectionID,
		MaterialID: materialID,
		Status:     progress.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed completed record %s: %v", materialID, err)
	}
}

func TestRecomputeSectionZeroRequiredNeverCompletes(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.sections[10] = nil

	_, store, agg, _ := newEngine(cat)
	if err := agg.RecomputeSection(ctx, "s1", 10); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	sp, _ := store.GetSectionProgress(ctx, "s1", 10)
	if sp.Status == progress.StatusCompleted {
		t.Fatal("section with no required materials must not auto-complete")
	}
}

func TestRecomputeSectionIdempotentCompletedAt(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.sections[10] = []catalog.MaterialID{"m1"}

	_, store, agg, _ := newEngine(cat)
	seedCompleted(t, store, "s1", 20, 10, "m1")

	if err := agg.RecomputeSection(ctx, "s1", 10); err != nil {
		t.Fatalf("first recompute: %v", err)
	}
	sp, _ := store.GetSectionProgress(ctx, "s1", 10)
	if sp.Status != progress.StatusCompleted || sp.CompletedAt == nil {
		t.Fatalf("section not completed: %+v", sp)
	}
	first := *sp.CompletedAt

	// The clock keeps stepping, but a second run must not bump completed_at.
	if err := agg.RecomputeSection(ctx, "s1", 10); err != nil {
		t.Fatalf("second recompute: %v", err)
	}
	sp, _ = store.GetSectionProgress(ctx, "s1", 10)
	if !sp.CompletedAt.Equal(first) {
		t.Fatalf("completed_at moved from %v to %v", first, *sp.CompletedAt)
	}
}

func TestRecomputeSectionIncomplete(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.sections[10] = []catalog.MaterialID{"m1", "m2"}

	_, store, agg, _ := newEngine(cat)
	seedCompleted(t, store, "s1", 20, 10, "m1")

	if err := agg.RecomputeSection(ctx, "s1", 10); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	sp, _ := store.GetSectionProgress(ctx, "s1", 10)
	if sp.Status == progress.StatusCompleted {
		t.Fatal("section completed with a required material missing")
	}
}

func TestRecomputeCourseSkipsUnenrolled(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.courses[20] = []int64{10}

	_, store, agg, _ := newEngine(cat)
	if err := store.CompleteSection(ctx, "s1", 10, time.Unix(1_700_000_000, 0)); err != nil {
		t.Fatalf("seed section: %v", err)
	}

	if err := agg.RecomputeCourse(ctx, "s1", 20); err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if _, err := store.GetEnrollment(ctx, "s1", 20); !errors.Is(err, progress.ErrNotFound) {
		t.Fatalf("enrollment should stay absent, got %v", err)
	}
}

func TestRollUpLogsFailureAndRetryResolves(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.sections[10] = []catalog.MaterialID{"m1"}
	cat.courses[20] = []int64{10}

	_, store, agg, retries := newEngine(cat)
	store.Enroll("s1", 20)
	seedCompleted(t, store, "s1", 20, 10, "m1")

	// Structure lookup fails: the roll-up must swallow the error and log it.
	cat.sectionErr = errors.New("catalog unavailable")
	agg.RollUp(ctx, "s1", 10, 20)

	pending, err := retries.Pending(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d entries, want 1", len(pending))
	}
	if pending[0].Kind != "section" || pending[0].TargetID != 10 {
		t.Fatalf("unexpected failure entry: %+v", pending[0])
	}

	// Catalog recovers; the replay completes section and course.
	cat.sectionErr = nil
	resolved, err := agg.RetryPending(ctx, 10)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if resolved != 1 {
		t.Fatalf("resolved = %d, want 1", resolved)
	}
	sp, _ := store.GetSectionProgress(ctx, "s1", 10)
	if sp.Status != progress.StatusCompleted {
		t.Fatalf("section status = %s after retry, want completed", sp.Status)
	}
	e, err := store.GetEnrollment(ctx, "s1", 20)
	if err != nil || e.Status != progress.EnrollmentCompleted {
		t.Fatalf("enrollment after retry: %+v, %v", e, err)
	}
	if left, _ := retries.Pending(ctx, 10); len(left) != 0 {
		t.Fatalf("retry queue not drained: %d left", len(left))
	}
}
