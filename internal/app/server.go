package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookcast/ingest/internal/api/handlers"
	appMiddleware "github.com/bookcast/ingest/internal/api/middlewares"
	"github.com/bookcast/ingest/internal/config"
	db "github.com/bookcast/ingest/internal/core/database"
	"github.com/bookcast/ingest/internal/core/dispatch"
	"github.com/bookcast/ingest/internal/core/ingest"
	"github.com/bookcast/ingest/internal/core/summary"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, dbClient *db.DatabaseClient, pipeline *ingest.Pipeline, orchestrator *summary.Orchestrator, dispatcher *dispatch.Dispatcher) *Server {
	ingestHandler := handlers.NewIngestHandler(dbClient, pipeline, orchestrator, dispatcher)
	summaryHandler := handlers.NewSummaryHandler(dbClient, orchestrator)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	// public endpoints
	r.Post("/", handlers.Echo)
	r.Get("/health", handlers.Health)

	// protected endpoints; ingestion answers 202 before the heavy work
	// starts, so a short request timeout is enough
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.AuthMiddleware)
		protected.Use(middleware.Timeout(60 * time.Second))
		protected.Post("/parse-pdf", ingestHandler.ParsePDF)
		protected.Post("/parse-ebook", ingestHandler.ParseEbook)
		protected.Post("/parse-epub", ingestHandler.ParseEPUB)
	})

	// summarization runs synchronously and needs room for the LLM calls
	r.Group(func(protected chi.Router) {
		protected.Use(appMiddleware.AuthMiddleware)
		protected.Use(middleware.Timeout(15 * time.Minute))
		protected.Post("/generate-section-summary", summaryHandler.GenerateSectionSummary)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
