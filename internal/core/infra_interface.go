package core

import (
	"context"

	"github.com/bookcast/ingest/internal/models"
)

// Store defines the persistence operations the pipelines need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type Store interface {
	GetBook(ctx context.Context, bookID string) (*models.Book, error)

	// UpsertBook records or refreshes a book's title, author and TOC so
	// later summarization calls can look them up by id.
	UpsertBook(ctx context.Context, book *models.Book) error

	// InsertPage writes a single page record immediately. The extraction
	// pipeline calls it once per non-empty unit to bound peak memory.
	InsertPage(ctx context.Context, page *models.BookPage) error

	// SelectPageTexts returns the texts of all pages of a book whose
	// page_number falls inside [startPage, endPage], in page order.
	SelectPageTexts(ctx context.Context, bookID string, startPage, endPage int) ([]string, error)

	// InsertSections writes a batch of section summaries in one call.
	InsertSections(ctx context.Context, sections []models.SectionSummary) error
}

// Notifier delivers the one-shot completion webhook for a background job.
type Notifier interface {
	Notify(ctx context.Context, callbackURL, bookID, status, message string)
}
