package progress

import (
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Record is the per-(student, material) ground truth. At most one record
// exists per pair; the service is its sole writer.
type Record struct {
	ID           string             `json:"id"`
	StudentID    string             `json:"student_id"`
	CourseID     int64              `json:"course_id"`
	SectionID    int64              `json:"section_id"`
	MaterialID   catalog.MaterialID `json:"material_id"`
	Status       Status             `json:"status"`
	ProgressPct  float64            `json:"progress_pct"`
	TimeSpentSec int64              `json:"time_spent_sec"`
	Score        *float64           `json:"score,omitempty"`
	Attempts     int                `json:"attempts"`
	Interactions Bag                `json:"interaction_data,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	LastAccessed time.Time          `json:"last_accessed_at"`
}

// SectionProgress is derived state owned by the section aggregator.
type SectionProgress struct {
	StudentID   string     `json:"student_id"`
	SectionID   int64      `json:"section_id"`
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// Enrollment carries the course-level completion owned by the course aggregator.
type Enrollment struct {
	StudentID   string           `json:"student_id"`
	CourseID    int64            `json:"course_id"`
	Status      EnrollmentStatus `json:"status"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func clampPct(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
