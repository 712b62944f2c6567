package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/notetaker/internal/config"
	"github.com/snarg/notetaker/internal/database"
	"github.com/snarg/notetaker/internal/metrics"
)

// ServerOptions holds the collaborators the HTTP server routes to.
type ServerOptions struct {
	Config      *config.Config
	Store       database.Store
	Transcripts TranscriptSubmitter
	Summaries   SummaryRunner
	Events      EventSource
	Stats       RuntimeStats
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// NewRouter builds the full route tree. Split from NewServer so tests can
// drive it through httptest.
func NewRouter(opts ServerOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(CORSWithOrigins(opts.Config.CORSOriginList()))
	r.Use(metrics.InstrumentHandler)

	r.Handle("/metrics", promhttp.Handler())

	health := NewHealthHandler(opts.Store, opts.Stats, opts.Version, opts.StartTime)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(opts.Config.AuthToken))
			NewTranscriptsHandler(opts.Transcripts).Routes(r)
			NewMeetingsHandler(opts.Store, opts.Summaries).Routes(r)
			NewEventsHandler(opts.Events).Routes(r)
		})
	})

	return r
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      NewRouter(opts),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
