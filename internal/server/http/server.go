// Package httpserver exposes the record services over HTTP/JSON.
package httpserver

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/and161185/carenotes/internal/blob"
	"github.com/and161185/carenotes/internal/service"
)

// Services are the coordinators the handlers call.
type Services struct {
	Auth        service.AuthService
	Users       service.UserService
	Patients    service.PatientService
	Timelines   service.TimelineService
	Occurrences service.OccurrenceService
}

// MetricsSink observes requests and serves the scrape endpoint.
type MetricsSink interface {
	Observer
	Handler() http.Handler
}

// Options tune the transport.
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	// Metrics and Health are optional.
	Metrics MetricsSink
	Health  func(context.Context) error
}

// Server holds handler dependencies.
type Server struct {
	svc   Services
	blobs blob.Store
	log   *zap.Logger
	opts  Options
}

// New constructs Server.
func New(svc Services, blobs blob.Store, log *zap.Logger, opts Options) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	return &Server{svc: svc, blobs: blobs, log: log, opts: opts}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logging(s.log))
	r.Use(Recover(s.log))
	if s.opts.Metrics != nil {
		r.Use(Metrics(s.opts.Metrics))
	}
	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}
	r.Get("/uploads/{filename}", s.serveUpload)
	r.Post("/auth", s.login)
	r.Post("/users", s.createUser)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(s.svc.Auth))

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", s.getUser)
			r.Patch("/", s.updateUser)
			r.Delete("/", s.deleteUser)
			r.Get("/patients", s.listPatients)
		})

		r.Post("/patients", s.createPatient)
		r.Route("/patients/{patientID}", func(r chi.Router) {
			r.Get("/", s.getPatient)
			r.Patch("/", s.updatePatient)
			r.Delete("/", s.deletePatient)
			r.Get("/timelines", s.listTimelines)
			r.Post("/timelines", s.createTimeline)
			r.Delete("/timelines/{timelineID}", s.deleteTimeline)
		})

		r.Route("/timelines/{timelineID}", func(r chi.Router) {
			r.Get("/", s.getTimeline)
			r.Patch("/", s.updateTimeline)
			r.Get("/occurrences", s.listOccurrences)
			r.Post("/occurrences", s.createOccurrence)
			r.Delete("/occurrences/{occurrenceID}", s.deleteOccurrence)
		})

		r.Route("/occurrences/{occurrenceID}", func(r chi.Router) {
			r.Get("/", s.getOccurrence)
			r.Patch("/", s.updateOccurrence)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, "unavailable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, "ok", nil)
}
