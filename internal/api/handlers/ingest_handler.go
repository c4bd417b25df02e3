package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	appMiddleware "github.com/bookcast/ingest/internal/api/middlewares"
	"github.com/bookcast/ingest/internal/core"
	"github.com/bookcast/ingest/internal/core/dispatch"
	"github.com/bookcast/ingest/internal/core/ingest"
	"github.com/bookcast/ingest/internal/core/summary"
	"github.com/bookcast/ingest/internal/models"
)

// StoreProvider hands out stores scoped to a caller's credential.
type StoreProvider interface {
	Service() core.Store
	WithClaims(claimsJSON string) core.Store
}

// IngestHandler accepts document processing requests, dispatches the work
// to the background and answers immediately.
type IngestHandler struct {
	stores     StoreProvider
	pipeline   *ingest.Pipeline
	summaries  *summary.Orchestrator
	dispatcher *dispatch.Dispatcher
}

func NewIngestHandler(stores StoreProvider, pipeline *ingest.Pipeline, summaries *summary.Orchestrator, dispatcher *dispatch.Dispatcher) *IngestHandler {
	return &IngestHandler{stores: stores, pipeline: pipeline, summaries: summaries, dispatcher: dispatcher}
}

// storeFor selects the store matching the caller's credential: the elevated
// one for administrators, a claims-scoped one for everyone else.
func storeFor(stores StoreProvider, r *http.Request) core.Store {
	auth, ok := appMiddleware.AuthFrom(r.Context())
	if !ok || auth.Admin {
		return stores.Service()
	}
	return stores.WithClaims(auth.ClaimsJSON)
}

type parsePDFRequest struct {
	BookID      string           `json:"book_id"`
	PDFURL      string           `json:"pdf_url"`
	PageCount   int              `json:"page_count"`
	TOC         []models.Section `json:"toc"`
	Title       string           `json:"title"`
	Author      string           `json:"author"`
	CallbackURL string           `json:"callback_url"`
}

// ParsePDF starts a standard PDF extraction job.
func (h *IngestHandler) ParsePDF(w http.ResponseWriter, r *http.Request) {
	var req parsePDFRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID == "" || req.PDFURL == "" {
		writeError(w, http.StatusBadRequest, "book_id and pdf_url are required")
		return
	}

	// Everything the job needs is captured here, by value; the request
	// and its context are not touched after this handler returns.
	store := storeFor(h.stores, r)
	job := ingest.Job{
		BookID:    req.BookID,
		URL:       req.PDFURL,
		Kind:      "pdf",
		UnitLimit: req.PageCount,
	}
	book := models.Book{ID: req.BookID, Title: req.Title, Author: req.Author, TOC: req.TOC}

	h.dispatcher.Dispatch(req.BookID, req.CallbackURL, func(ctx context.Context) (string, error) {
		if book.Title != "" || book.Author != "" || len(book.TOC) > 0 {
			if err := store.UpsertBook(ctx, &book); err != nil {
				log.Printf("Ingest: failed to record book %s metadata: %v", book.ID, err)
			}
		}

		res, err := h.pipeline.ProcessBook(ctx, store, job)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("PDF processed and stored successfully (%d pages)", res.UnitCount), nil
	})

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "PDF processing started",
		"book_id": req.BookID,
	})
}

type parseEbookRequest struct {
	BookID       string `json:"book_id"`
	EbookURL     string `json:"ebook_url"`
	EpubURL      string `json:"epub_url"`
	PageCount    int    `json:"page_count"`
	ChapterLimit int    `json:"chapter_limit"`
	FileType     string `json:"file_type"`
	UseGemini    bool   `json:"use_gemini"`
	CallbackURL  string `json:"callback_url"`
}

// ParseEbook starts an ebook extraction job (PDF or EPUB by file_type) and
// chains into section summarization when the book has a TOC on record.
func (h *IngestHandler) ParseEbook(w http.ResponseWriter, r *http.Request) {
	h.parseEbook(w, r, "pdf")
}

// ParseEPUB is the /parse-epub alias: identical contract with the file
// type defaulted to epub.
func (h *IngestHandler) ParseEPUB(w http.ResponseWriter, r *http.Request) {
	h.parseEbook(w, r, "epub")
}

func (h *IngestHandler) parseEbook(w http.ResponseWriter, r *http.Request, defaultKind string) {
	var req parseEbookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url := req.EbookURL
	if url == "" {
		url = req.EpubURL
	}
	if req.BookID == "" || url == "" {
		writeError(w, http.StatusBadRequest, "book_id and ebook_url are required")
		return
	}

	kind := strings.ToLower(req.FileType)
	if kind == "" {
		kind = defaultKind
	}
	if kind != "pdf" && kind != "epub" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q, expected pdf or epub", req.FileType))
		return
	}

	limit := req.PageCount
	if limit == 0 {
		limit = req.ChapterLimit
	}

	store := storeFor(h.stores, r)
	job := ingest.Job{
		BookID:         req.BookID,
		URL:            url,
		Kind:           kind,
		UnitLimit:      limit,
		UseVision:      req.UseGemini && kind == "pdf",
		UseAltEmbedder: req.UseGemini,
	}

	h.dispatcher.Dispatch(req.BookID, req.CallbackURL, func(ctx context.Context) (string, error) {
		res, err := h.pipeline.ProcessBook(ctx, store, job)
		if err != nil {
			return "", err
		}
		msg := fmt.Sprintf("%s processed and stored successfully (%d units)", strings.ToUpper(kind), res.UnitCount)

		// Summarization is chained automatically when a TOC is already
		// on record for the book; sections can't be summarized before
		// their pages exist.
		book, err := store.GetBook(ctx, job.BookID)
		if err != nil {
			log.Printf("Ingest: TOC lookup failed for book %s, skipping summaries: %v", job.BookID, err)
			return msg, nil
		}
		if book == nil || len(book.TOC) == 0 {
			return msg, nil
		}

		sumRes, err := h.summaries.ProcessAllSections(ctx, store, book.ID, book.Title, book.Author, book.TOC)
		if err != nil {
			return "", fmt.Errorf("section summaries: %w", err)
		}
		return fmt.Sprintf("%s; %d sections summarized", msg, sumRes.ProcessedCount), nil
	})

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": strings.ToUpper(kind) + " processing started",
		"book_id": req.BookID,
	})
}
