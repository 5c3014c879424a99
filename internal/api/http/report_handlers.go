package http

import (
	"encoding/json"
	nethttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authmw "github.com/classtrack/classtrack-lms/internal/auth/middleware"
	"github.com/classtrack/classtrack-lms/internal/cache"
	"github.com/classtrack/classtrack-lms/internal/progress"
	"github.com/classtrack/classtrack-lms/internal/rbac"
)

// GET /students/{studentID}/courses/{courseID}/progress
// Students may read their own tree; progress:view-all covers everyone else's.
func CourseProgressHandler(rep *progress.Reporter, reports cache.ReportCache) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sub := authmw.SubjectFromContext(r.Context())
		if sub == "" {
			nethttp.Error(w, "unauthorized", nethttp.StatusUnauthorized)
			return
		}
		studentID := chi.URLParam(r, "studentID")
		courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
		if err != nil {
			nethttp.Error(w, "bad course id", nethttp.StatusBadRequest)
			return
		}
		if studentID != sub {
			role := rbac.RoleFromContext(r.Context())
			if !rbac.NewChecker(nil).Has(role, "progress:view-all") {
				nethttp.Error(w, "forbidden", nethttp.StatusForbidden)
				return
			}
		}

		if buf, ok := reports.Get(r.Context(), studentID, courseID); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(buf)
			return
		}

		tree, err := rep.CourseReport(r.Context(), studentID, courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		buf, err := json.Marshal(tree)
		if err != nil {
			writeError(w, err)
			return
		}
		reports.Set(r.Context(), studentID, courseID, buf)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf)
	}
}

// POST /admin/aggregations/retry
func RetryAggregationsHandler(agg *progress.Aggregator) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		limit := 100
		if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
			limit = v
		}
		n, err := agg.RetryPending(r.Context(), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]int{"resolved": n})
	}
}
