// Package server exposes notes, spaced repetition, calendar, quizzes and
// the AI features over a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/lazypower/lumine/internal/calendar"
	"github.com/lazypower/lumine/internal/engine"
	"github.com/lazypower/lumine/internal/review"
	"github.com/lazypower/lumine/internal/store"
)

// Config carries the settings the HTTP layer needs.
type Config struct {
	Version   string
	JWTSecret []byte
	Issuer    string
	// Location interprets date-only calendar input. Defaults to time.Local.
	Location *time.Location
	// Events stores calendar events. Defaults to the database.
	Events calendar.Repository
}

// Server is the Lumine HTTP API server.
type Server struct {
	db       *store.DB
	engine   *engine.Engine
	reviews  *review.Service
	events   calendar.Repository
	cfg      Config
	validate *validator.Validate
	trans    ut.Translator
	router   chi.Router
	started  time.Time
}

// New creates a Server. The engine supplies the review service and the AI
// provider.
func New(db *store.DB, eng *engine.Engine, cfg Config) (*Server, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Events == nil {
		cfg.Events = db.Events()
	}
	validate, trans, err := newValidator()
	if err != nil {
		return nil, err
	}
	s := &Server{
		db:       db,
		engine:   eng,
		reviews:  eng.Reviews,
		events:   cfg.Events,
		cfg:      cfg,
		validate: validate,
		trans:    trans,
		started:  time.Now(),
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(accessLog))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Route("/notes", func(r chi.Router) {
				r.Get("/", s.handleListNotes)
				r.Post("/", s.handleCreateNote)
				r.Get("/spaced-repetition/due", s.handleDueNotes)
				r.Get("/{id}", s.handleGetNote)
				r.Put("/{id}", s.handleUpdateNote)
				r.Delete("/{id}", s.handleDeleteNote)
			})

			r.Route("/spaced-repetition", func(r chi.Router) {
				r.Post("/review", s.handleReview)
				r.Post("/skip", s.handleSkip)
				r.Post("/enable", s.handleEnable)
				r.Post("/disable", s.handleDisable)
				r.Get("/session", s.handleSession)
				r.Get("/stats", s.handleStats)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", s.handleListEvents)
				r.Post("/", s.handleCreateEvent)
				r.Get("/range", s.handleEventRange)
				r.Get("/{id}", s.handleGetEvent)
				r.Put("/{id}", s.handleUpdateEvent)
				r.Delete("/{id}", s.handleDeleteEvent)
			})

			r.Route("/quizzes", func(r chi.Router) {
				r.Get("/", s.handleListQuizzes)
				r.Post("/", s.handleCreateQuiz)
				r.Get("/{id}", s.handleGetQuiz)
				r.Put("/{id}", s.handleUpdateQuiz)
				r.Delete("/{id}", s.handleDeleteQuiz)
			})

			r.Route("/ai", func(r chi.Router) {
				r.Post("/generate-tags", s.handleGenerateTags)
				r.Post("/generate-quiz", s.handleGenerateQuiz)
				r.Post("/generate-note", s.handleGenerateNote)
				r.Post("/enhance", s.handleEnhance)
				r.Post("/summarize", s.handleSummarize)
				r.Post("/suggest-schedule", s.handleSuggestSchedule)
			})

			r.Get("/users/me", s.handleGetMe)
			r.Put("/users/me", s.handleUpdateProfile)
			r.Put("/users/me/preferences", s.handleUpdatePreferences)
		})
	})

	s.router = r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	level := zerolog.InfoLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("http-request")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.PingContext(r.Context()); err != nil {
		dbOK = false
	}
	schema, err := s.db.SchemaVersion()
	if err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("schema-version-failed")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version(),
		"uptime":         time.Since(s.started).Seconds(),
		"db":             dbOK,
		"db_path":        s.db.Path,
		"schema_version": schema,
		"ai":             s.engine.Available(),
	})
}

func (s *Server) version() string {
	if s.cfg.Version == "" {
		return "dev"
	}
	return s.cfg.Version
}
