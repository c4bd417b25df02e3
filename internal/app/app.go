package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bookcast/ingest/internal/config"
	"github.com/bookcast/ingest/internal/core"
	db "github.com/bookcast/ingest/internal/core/database"
	"github.com/bookcast/ingest/internal/core/dispatch"
	"github.com/bookcast/ingest/internal/core/ingest"
	"github.com/bookcast/ingest/internal/core/llm"
	"github.com/bookcast/ingest/internal/core/source"
	"github.com/bookcast/ingest/internal/core/summary"
)

type App struct {
	DBClient *db.DatabaseClient
	Server   *Server

	geminiEmbedder *llm.GeminiEmbedder
	geminiVision   *llm.GeminiVision
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	fetcher, err := source.NewFetcher(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the document fetcher, %w", err)
	}

	embedder := llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbedModel)
	chat := llm.NewOpenAIChat(cfg.OpenAIAPIKey, cfg.GenModel)

	// The Gemini clients are optional; without an API key the pipeline
	// falls back to OCR and the default embedder.
	var (
		geminiEmbedder *llm.GeminiEmbedder
		geminiVision   *llm.GeminiVision
		altEmbedder    core.Embedder
		vision         core.Vision
	)
	if cfg.GeminiAPIKey != "" {
		geminiEmbedder, err = llm.NewGeminiEmbedder(appCtx, cfg.GeminiAPIKey, cfg.GeminiEmbedModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the gemini embedder, %w", err)
		}
		geminiVision, err = llm.NewGeminiVision(appCtx, cfg.GeminiAPIKey, cfg.VisionModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the vision client, %w", err)
		}
		altEmbedder = geminiEmbedder
		vision = geminiVision
	}

	pipeline := ingest.NewPipeline(fetcher, embedder, altEmbedder, vision, ingest.Options{
		MinTextLen: cfg.MinTextLen,
		OCRDPi:     cfg.OCRDPi,
		VisionDPI:  cfg.VisionDPI,
	})

	chunker, err := summary.NewTokenChunker(cfg.GenModel, cfg.ChunkTokenBudget)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the token chunker, %w", err)
	}
	summarizer := summary.NewSummarizer(chat, embedder, chunker)
	orchestrator := summary.NewOrchestrator(summarizer, cfg.SectionWorkers)

	notifier := dispatch.NewWebhookNotifier(cfg.CallbackTimeout)
	dispatcher := dispatch.NewDispatcher(dispatch.GoRunner{}, notifier)

	server := NewServer(cfg, dbClient, pipeline, orchestrator, dispatcher)

	return &App{
		DBClient:       dbClient,
		Server:         server,
		geminiEmbedder: geminiEmbedder,
		geminiVision:   geminiVision,
	}, nil
}

func (a *App) Close() {
	if a.geminiEmbedder != nil {
		_ = a.geminiEmbedder.Close()
	}
	if a.geminiVision != nil {
		_ = a.geminiVision.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
