package assignment

import (
	"time"

	"github.com/classtrack/classtrack-lms/internal/catalog"
)

type SubmissionType string

const (
	TypeText SubmissionType = "text"
	TypeFile SubmissionType = "file"
	TypeURL  SubmissionType = "url"
)

type SubmissionStatus string

const (
	StatusSubmitted SubmissionStatus = "submitted"
	StatusGraded    SubmissionStatus = "graded"
	StatusReturned  SubmissionStatus = "returned"
	StatusLate      SubmissionStatus = "late"
)

// Submission is one submission event. Students may submit repeatedly; each
// event is a new row, and the progress record reflects the latest one.
type Submission struct {
	ID         string             `json:"id"`
	StudentID  string             `json:"student_id"`
	MaterialID catalog.MaterialID `json:"material_id"`
	Type       SubmissionType     `json:"submission_type"`

	// Exactly one payload group is set, matching Type.
	Content          string `json:"content,omitempty"`
	FilePath         string `json:"file_path,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	URL              string `json:"url,omitempty"`

	Status      SubmissionStatus `json:"status"`
	Grade       *float64         `json:"grade,omitempty"`
	Feedback    string           `json:"feedback,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
}
