package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classtrack/classtrack-lms/internal/assignment"
	authmw "github.com/classtrack/classtrack-lms/internal/auth/middleware"
	"github.com/classtrack/classtrack-lms/internal/catalog"
)

// POST /materials/{materialID}/assignment-submit
// File payloads arrive base64-encoded in the JSON body.
func SubmitAssignmentHandler(svc *assignment.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		studentID := authmw.SubjectFromContext(r.Context())
		if studentID == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		materialID := catalog.MaterialID(chi.URLParam(r, "materialID"))
		var req struct {
			SubmissionType string `json:"submission_type"`
			Content        string `json:"content,omitempty"`
			FileBase64     string `json:"file,omitempty"`
			Filename       string `json:"filename,omitempty"`
			URL            string `json:"url,omitempty"`
			CourseID       int64  `json:"course_id"`
			SectionID      int64  `json:"section_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		p := assignment.Payload{
			Type:     assignment.SubmissionType(req.SubmissionType),
			Content:  req.Content,
			Filename: req.Filename,
			URL:      req.URL,
		}
		if req.FileBase64 != "" {
			raw, err := base64.StdEncoding.DecodeString(req.FileBase64)
			if err != nil {
				nethttp.Error(w, "file must be base64", nethttp.StatusBadRequest)
				return
			}
			p.File = bytes.NewReader(raw)
		}
		id, err := svc.Submit(r.Context(), studentID, req.CourseID, req.SectionID, materialID, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{"success": true, "submission_id": id})
	}
}
