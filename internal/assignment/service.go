package assignment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/progress"
	"github.com/classtrack/classtrack-lms/internal/storage"
)

var ErrInvalidAssignmentMaterial = errors.New("invalid assignment material")

// ValidationError mirrors the progress package's field-level rejection shape.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// Payload is the incoming submission body. Exactly one of Content,
// File+Filename, or URL must be set, matching Type.
type Payload struct {
	Type     SubmissionType
	Content  string
	File     io.Reader
	Filename string
	URL      string
}

func (p Payload) validate() error {
	switch p.Type {
	case TypeText:
		if p.Content == "" {
			return &ValidationError{Field: "content", Msg: "required for text submissions"}
		}
		if p.File != nil || p.URL != "" {
			return &ValidationError{Field: "submission_type", Msg: "text submissions carry only content"}
		}
	case TypeFile:
		if p.File == nil || p.Filename == "" {
			return &ValidationError{Field: "file", Msg: "file and filename required for file submissions"}
		}
		if p.Content != "" || p.URL != "" {
			return &ValidationError{Field: "submission_type", Msg: "file submissions carry only a file"}
		}
	case TypeURL:
		if p.URL == "" {
			return &ValidationError{Field: "url", Msg: "required for url submissions"}
		}
		if p.Content != "" || p.File != nil {
			return &ValidationError{Field: "submission_type", Msg: "url submissions carry only a url"}
		}
	default:
		return &ValidationError{Field: "submission_type", Msg: "must be text, file, or url"}
	}
	return nil
}

// Service records assignment submissions. Submitting is itself full
// completion; grading happens later and does not revise progress.
type Service struct {
	store    Store
	catalog  catalog.Catalog
	blobs    storage.BlobStore
	progress *progress.Service
	now      func() time.Time
}

func NewService(store Store, cat catalog.Catalog, blobs storage.BlobStore, progressSvc *progress.Service, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, catalog: cat, blobs: blobs, progress: progressSvc, now: now}
}

// Submit validates the material, persists the submission row, and marks the
// material complete through the progress service.
func (s *Service) Submit(ctx context.Context, studentID string, courseID, sectionID int64, materialID catalog.MaterialID, p Payload) (string, error) {
	mat, err := s.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		if errors.Is(err, catalog.ErrMaterialNotFound) {
			return "", ErrInvalidAssignmentMaterial
		}
		return "", err
	}
	if mat.ContentType != catalog.ContentAssignment {
		return "", ErrInvalidAssignmentMaterial
	}
	if err := p.validate(); err != nil {
		return "", err
	}

	sub := Submission{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		MaterialID:  materialID,
		Type:        p.Type,
		Status:      StatusSubmitted,
		SubmittedAt: s.now(),
	}
	switch p.Type {
	case TypeText:
		sub.Content = p.Content
	case TypeFile:
		key := path.Join("assignments", string(materialID), studentID, sub.ID+"_"+path.Base(p.Filename))
		stored, err := s.blobs.Put(key, p.File)
		if err != nil {
			return "", fmt.Errorf("store submission file: %w", err)
		}
		sub.FilePath = stored
		sub.OriginalFilename = p.Filename
	case TypeURL:
		sub.URL = p.URL
	}

	if err := s.store.AppendSubmission(ctx, sub); err != nil {
		return "", fmt.Errorf("append submission: %w", err)
	}

	// The interaction runs first so a first-time submit has a record for the
	// completion write to land on.
	if err := s.progress.RecordInteraction(ctx, studentID, courseID, sectionID, materialID,
		progress.Action{Name: "assignment_submitted"}); err != nil {
		return "", err
	}
	if _, err := s.progress.UpdateProgress(ctx, studentID, materialID, 100, 0, nil); err != nil {
		return "", err
	}
	return sub.ID, nil
}

// Submissions lists the submission history for a student and material.
func (s *Service) Submissions(ctx context.Context, studentID string, materialID catalog.MaterialID) ([]Submission, error) {
	return s.store.ListSubmissions(ctx, studentID, materialID)
}
