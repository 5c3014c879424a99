package progress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// Store is the durable home of progress records and the derived section and
// enrollment completion rows. Both the SQL store and the in-memory store
// implement it; the services only ever see this interface.
type Store interface {
	GetRecord(ctx context.Context, studentID string, materialID catalog.MaterialID) (Record, error)
	// CreateRecord fails with ErrConflict when a record already exists for the
	// (student, material) key.
	CreateRecord(ctx context.Context, rec Record) error
	// UpdateRecord overwrites the record identified by (student, material).
	UpdateRecord(ctx context.Context, rec Record) error
	ListCourseRecords(ctx context.Context, studentID string, courseID int64) ([]Record, error)
	CountCompleted(ctx context.Context, studentID string, materialIDs []catalog.MaterialID) (int, error)

	GetSectionProgress(ctx context.Context, studentID string, sectionID int64) (SectionProgress, error)
	// CompleteSection sets status=completed with the given timestamp unless the
	// row is already completed; re-running it never bumps completed_at.
	CompleteSection(ctx context.Context, studentID string, sectionID int64, at time.Time) error
	CountCompletedSections(ctx context.Context, studentID string, sectionIDs []int64) (int, error)

	GetEnrollment(ctx context.Context, studentID string, courseID int64) (Enrollment, error)
	// CompleteEnrollment mirrors CompleteSection's set-once semantics at the
	// course level.
	CompleteEnrollment(ctx context.Context, studentID string, courseID int64, at time.Time) error
}

type recordKey struct {
	student  string
	material catalog.MaterialID
}

type sectionKey struct {
	student string
	section int64
}

type courseKey struct {
	student string
	course  int64
}

type MemoryStore struct {
	mu          sync.RWMutex
	records     map[recordKey]Record
	sections    map[sectionKey]SectionProgress
	enrollments map[courseKey]Enrollment
}

// MemoryStore backs the engine with maps, for tests and single-process
// offline deployments.
func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     map[recordKey]Record{},
		sections:    map[sectionKey]SectionProgress{},
		enrollments: map[courseKey]Enrollment{},
	}
}

func (m *MemoryStore) GetRecord(_ context.Context, studentID string, materialID catalog.MaterialID) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[recordKey{studentID, materialID}]
	if !ok {
		return Record{}, fmt.Errorf("progress record %s/%s: %w", studentID, materialID, ErrNotFound)
	}
	rec.Interactions = rec.Interactions.Clone()
	return rec, nil
}

func (m *MemoryStore) CreateRecord(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recordKey{rec.StudentID, rec.MaterialID}
	if _, ok := m.records[k]; ok {
		return ErrConflict
	}
	rec.Interactions = rec.Interactions.Clone()
	m.records[k] = rec
	return nil
}

func (m *MemoryStore) UpdateRecord(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recordKey{rec.StudentID, rec.MaterialID}
	if _, ok := m.records[k]; !ok {
		return fmt.Errorf("progress record %s/%s: %w", rec.StudentID, rec.MaterialID, ErrNotFound)
	}
	rec.Interactions = rec.Interactions.Clone()
	m.records[k] = rec
	return nil
}

func (m *MemoryStore) ListCourseRecords(_ context.Context, studentID string, courseID int64) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Record
	for k, rec := range m.records {
		if k.student == studentID && rec.CourseID == courseID {
			rec.Interactions = rec.Interactions.Clone()
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *MemoryStore) CountCompleted(_ context.Context, studentID string, materialIDs []catalog.MaterialID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, id := range materialIDs {
		if rec, ok := m.records[recordKey{studentID, id}]; ok && rec.Status == StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetSectionProgress(_ context.Context, studentID string, sectionID int64) (SectionProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sp, ok := m.sections[sectionKey{studentID, sectionID}]
	if !ok {
		return SectionProgress{StudentID: studentID, SectionID: sectionID, Status: StatusNotStarted}, nil
	}
	return sp, nil
}

func (m *MemoryStore) CompleteSection(_ context.Context, studentID string, sectionID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sectionKey{studentID, sectionID}
	sp, ok := m.sections[k]
	if ok && sp.Status == StatusCompleted {
		return nil
	}
	t := at
	m.sections[k] = SectionProgress{StudentID: studentID, SectionID: sectionID, Status: StatusCompleted, CompletedAt: &t}
	return nil
}

func (m *MemoryStore) CountCompletedSections(_ context.Context, studentID string, sectionIDs []int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, id := range sectionIDs {
		if sp, ok := m.sections[sectionKey{studentID, id}]; ok && sp.Status == StatusCompleted {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetEnrollment(_ context.Context, studentID string, courseID int64) (Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.enrollments[courseKey{studentID, courseID}]
	if !ok {
		return Enrollment{}, fmt.Errorf("enrollment %s/%d: %w", studentID, courseID, ErrNotFound)
	}
	return e, nil
}

// Enroll seeds an active enrollment; exposed on the concrete type for tests
// and offline bootstrap.
func (m *MemoryStore) Enroll(studentID string, courseID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := courseKey{studentID, courseID}
	if _, ok := m.enrollments[k]; !ok {
		m.enrollments[k] = Enrollment{StudentID: studentID, CourseID: courseID, Status: EnrollmentActive}
	}
}

func (m *MemoryStore) CompleteEnrollment(_ context.Context, studentID string, courseID int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := courseKey{studentID, courseID}
	e, ok := m.enrollments[k]
	if !ok {
		e = Enrollment{StudentID: studentID, CourseID: courseID, Status: EnrollmentActive}
	}
	if e.Status == EnrollmentCompleted {
		return nil
	}
	t := at
	e.Status = EnrollmentCompleted
	e.CompletedAt = &t
	m.enrollments[k] = e
	return nil
}
