package http

import (
	"encoding/json"
	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/classtrack/classtrack-lms/internal/auth/middleware"
	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/quiz"
)

// POST /materials/{materialID}/quiz-submit
func SubmitQuizHandler(svc *quiz.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		studentID := authmw.SubjectFromContext(r.Context())
		if studentID == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		materialID := catalog.MaterialID(chi.URLParam(r, "materialID"))
		var req struct {
			Answers   []any `json:"answers"`
			TimeTaken int64 `json:"time_taken"`
			CourseID  int64 `json:"course_id"`
			SectionID int64 `json:"section_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		res, err := svc.SubmitQuiz(r.Context(), studentID, req.CourseID, req.SectionID,
			materialID, req.Answers, req.TimeTaken)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, res)
	}
}

// GET /materials/{materialID}/attempts
func ListAttemptsHandler(svc *quiz.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		studentID := authmw.SubjectFromContext(r.Context())
		if studentID == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		materialID := catalog.MaterialID(chi.URLParam(r, "materialID"))
		subs, err := svc.Attempts(r.Context(), studentID, materialID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, subs)
	}
}
