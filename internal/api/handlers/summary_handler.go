package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/bookcast/ingest/internal/core/summary"
	"github.com/bookcast/ingest/internal/models"
)

// SummaryHandler runs section summarization synchronously for books whose
// pages are already ingested.
type SummaryHandler struct {
	stores    StoreProvider
	summaries *summary.Orchestrator
}

func NewSummaryHandler(stores StoreProvider, summaries *summary.Orchestrator) *SummaryHandler {
	return &SummaryHandler{stores: stores, summaries: summaries}
}

type sectionSummaryRequest struct {
	BookID string           `json:"book_id"`
	Title  string           `json:"title"`
	Author string           `json:"author"`
	TOC    []models.Section `json:"toc"`
}

// GenerateSectionSummary summarizes every TOC section of a book and stores
// the results. The TOC comes from the request body when given, otherwise
// from the book record.
func (h *SummaryHandler) GenerateSectionSummary(w http.ResponseWriter, r *http.Request) {
	var req sectionSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BookID == "" {
		writeError(w, http.StatusBadRequest, "book_id is required")
		return
	}

	store := storeFor(h.stores, r)
	title, author, toc := req.Title, req.Author, req.TOC
	if len(toc) == 0 {
		book, err := store.GetBook(r.Context(), req.BookID)
		if err != nil {
			log.Printf("Summary: book lookup failed for %s: %v", req.BookID, err)
			writeError(w, http.StatusInternalServerError, "failed to load book")
			return
		}
		if book == nil || len(book.TOC) == 0 {
			writeError(w, http.StatusBadRequest, "no table of contents available for this book")
			return
		}
		title, author, toc = book.Title, book.Author, book.TOC
	}

	res, err := h.summaries.ProcessAllSections(r.Context(), store, req.BookID, title, author, toc)
	if err != nil {
		log.Printf("Summary: processing failed for book %s: %v", req.BookID, err)
		writeError(w, http.StatusInternalServerError, "section summarization failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Processed %d sections", res.ProcessedCount),
	})
}
