package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/classtrack/classtrack-lms/internal/api/http"
	"github.com/classtrack/classtrack-lms/internal/assignment"
	auth "github.com/classtrack/classtrack-lms/internal/auth/middleware"
	"github.com/classtrack/classtrack-lms/internal/cache"
	"github.com/classtrack/classtrack-lms/internal/catalog"
	"github.com/classtrack/classtrack-lms/internal/config"
	"github.com/classtrack/classtrack-lms/internal/db"
	"github.com/classtrack/classtrack-lms/internal/progress"
	"github.com/classtrack/classtrack-lms/internal/quiz"
	"github.com/classtrack/classtrack-lms/internal/rbac"
	"github.com/classtrack/classtrack-lms/internal/storage"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	// --- Stores and services ---
	cat := catalog.NewSQLCatalog(dbh)
	progressStore := progress.NewSQLStore(dbh, cfg.DBDriver)
	retryLog := progress.NewSQLRetryLog(dbh)
	agg := progress.NewAggregator(progressStore, cat, retryLog, nil)
	progressSvc := progress.NewService(progressStore, cat, agg, nil)
	reporter := progress.NewReporter(progressStore, cat)

	quizStore := quiz.NewSQLStore(dbh, cfg.DBDriver)
	quizSvc := quiz.NewService(quizStore, cat, progressSvc, nil)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}
	assignStore := assignment.NewSQLStore(dbh, cfg.DBDriver)
	assignSvc := assignment.NewService(assignStore, cat, bs, progressSvc, nil)

	reports := cache.NewNoop()
	if cfg.RedisAddr != "" {
		reports = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, time.Duration(cfg.ReportTTLSec)*time.Second)
	}
	progressSvc.OnWrite(func(studentID string, courseID int64) {
		reports.Invalidate(context.Background(), studentID, courseID)
	})

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}

	// Protected API (JWT → role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("interaction:record")).
			Post("/materials/{materialID}/interactions", api.RecordInteractionHandler(progressSvc))
		pr.With(rbac.Require("progress:update")).
			Post("/materials/{materialID}/progress", api.UpdateProgressHandler(progressSvc))

		pr.With(rbac.Require("quiz:submit")).
			Post("/materials/{materialID}/quiz-submit", api.SubmitQuizHandler(quizSvc))
		pr.With(rbac.RequireAny("progress:view-own", "progress:view-all")).
			Get("/materials/{materialID}/attempts", api.ListAttemptsHandler(quizSvc))

		pr.With(rbac.Require("assignment:submit")).
			Post("/materials/{materialID}/assignment-submit", api.SubmitAssignmentHandler(assignSvc))

		pr.With(rbac.RequireAny("progress:view-own", "progress:view-all")).
			Get("/students/{studentID}/courses/{courseID}/progress", api.CourseProgressHandler(reporter, reports))

		pr.With(rbac.Require("aggregation:retry")).
			Post("/admin/aggregations/retry", api.RetryAggregationsHandler(agg))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
