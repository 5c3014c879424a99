package http

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/classtrack/classtrack-lms/internal/auth/middleware"
	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/progress"
)

// POST /materials/{materialID}/interactions
func RecordInteractionHandler(svc *progress.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		studentID := authmw.SubjectFromContext(r.Context())
		if studentID == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		materialID := catalog.MaterialID(chi.URLParam(r, "materialID"))
		var req struct {
			CourseID        int64          `json:"course_id"`
			SectionID       int64          `json:"section_id"`
			InteractionData map[string]any `json:"interaction_data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		err := svc.RecordInteraction(r.Context(), studentID, req.CourseID, req.SectionID, materialID,
			progress.Custom(req.InteractionData))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]bool{"success": true})
	}
}

// POST /materials/{materialID}/progress
func UpdateProgressHandler(svc *progress.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		studentID := authmw.SubjectFromContext(r.Context())
		if studentID == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		materialID := catalog.MaterialID(chi.URLParam(r, "materialID"))
		var req struct {
			ProgressPct    float64  `json:"progress_pct"`
			TimeSpentDelta int64    `json:"time_spent_delta_sec"`
			Score          *float64 `json:"score,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		updated, err := svc.UpdateProgress(r.Context(), studentID, materialID,
			req.ProgressPct, req.TimeSpentDelta, req.Score)
		if err != nil {
			writeError(w, err)
			return
		}
		if !updated {
			writeJSON(w, nethttp.StatusNotFound,
				map[string]string{"error": "no progress record; record an interaction first"})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]bool{"updated": true})
	}
}
