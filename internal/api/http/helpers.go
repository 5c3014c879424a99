package http

import (
	"encoding/json"
	"errors"
	nethttp "net/http"

	"github.com/classtrack/classtrack-lms/internal/assignment"
	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/progress"
	"github.com/classtrack/classtrack-lms/internal/quiz"
)

func writeJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w nethttp.ResponseWriter, err error) {
	var (
		pv *progress.ValidationError
		av *assignment.ValidationError
	)
	switch {
	case errors.As(err, &pv):
		writeJSON(w, nethttp.StatusBadRequest, map[string]string{"error": pv.Msg, "field": pv.Field})
	case errors.As(err, &av):
		writeJSON(w, nethttp.StatusBadRequest, map[string]string{"error": av.Msg, "field": av.Field})
	case errors.Is(err, quiz.ErrInvalidQuizMaterial),
		errors.Is(err, quiz.ErrNoQuestions),
		errors.Is(err, assignment.ErrInvalidAssignmentMaterial):
		writeJSON(w, nethttp.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, progress.ErrNotFound), errors.Is(err, catalog.ErrMaterialNotFound):
		writeJSON(w, nethttp.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, progress.ErrConflict):
		writeJSON(w, nethttp.StatusConflict, map[string]string{"error": "concurrent update, retry"})
	default:
		writeJSON(w, nethttp.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
