package models

import (
	"time"
)

// Book holds the caller-registered metadata for a book, including the
// table of contents used for section summarization.
type Book struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Author    string    `db:"author" json:"author"`
	TOC       []Section `db:"toc" json:"toc"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BookPage is one extracted unit: a PDF page or an EPUB chapter.
// Embedding is nil when the embedding call failed; the page is stored anyway.
type BookPage struct {
	BookID     string    `db:"book_id" json:"book_id"`
	PageNumber int       `db:"page_number" json:"page_number"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"embedding,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Section is one table-of-contents entry. Page numbers are 1-based and
// inclusive on both ends.
type Section struct {
	Title     string `json:"title"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// SectionSummary is the persisted summary artifact for one TOC entry.
type SectionSummary struct {
	BookID       string    `db:"book_id" json:"book_id"`
	Index        int       `db:"index" json:"index"`
	SectionTitle string    `db:"section_title" json:"section_title"`
	StartPage    int       `db:"start_page" json:"start_page"`
	EndPage      int       `db:"end_page" json:"end_page"`
	Summary      string    `db:"summary" json:"summary"`
	Embedding    []float32 `db:"embedding" json:"embedding"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ProcessResult reports the outcome of a document extraction run.
// UnitCount is the number of pages/chapters scanned, not the number persisted:
// blank units are counted but never written.
type ProcessResult struct {
	Success   bool `json:"success"`
	UnitCount int  `json:"unit_count"`
}

// SummaryResult reports the outcome of a summarization batch.
// ProcessedCount may be less than the TOC length when sections fail.
type SummaryResult struct {
	Success        bool `json:"success"`
	ProcessedCount int  `json:"processed_count"`
}
