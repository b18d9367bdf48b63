package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/hoclieu/hoclieu-lms/internal/api/http"
	auth "github.com/hoclieu/hoclieu-lms/internal/auth/middleware"
	"github.com/hoclieu/hoclieu-lms/internal/config"
	"github.com/hoclieu/hoclieu-lms/internal/content"
	"github.com/hoclieu/hoclieu-lms/internal/db"
	"github.com/hoclieu/hoclieu-lms/internal/events"
	"github.com/hoclieu/hoclieu-lms/internal/rbac"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := content.NewSQLStore(dbh, cfg.DBDriver)

	// --- Events (broker is optional; the service runs fine without) ---
	var pub events.Publisher
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			log.Printf("amqp disabled: %v", err)
		} else {
			defer p.Close()
			pub = p
		}
	}
	feed := events.NewFeed(events.NewEventRepo(dbh), pub, cfg.SiteID)

	svc := content.NewService(store, feed, cfg.PassingScore)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Protected API (JWT -> subject/role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		// Teacher-only: authoring
		pr.With(rbac.Require("lesson:create")).
			Post("/lessons", api.CreateLessonHandler(svc))
		pr.With(rbac.Require("quiz:create")).
			Post("/quizzes", api.CreateQuizHandler(svc))

		// Student flow
		pr.With(rbac.Require("quiz:view")).
			Get("/quizzes/{quizID}", api.GetQuizHandler(svc))
		pr.With(rbac.Require("attempt:create")).
			Post("/quizzes/{quizID}/submit", api.SubmitQuizHandler(svc))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(svc))
		pr.With(rbac.RequireAny("progress:view-own", "progress:view-all")).
			Get("/lessons/{lessonID}/progress", api.LessonProgressHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s, passing=%d)", cfg.HTTPAddr, cfg.DBDriver, cfg.PassingScore)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
