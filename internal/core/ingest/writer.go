package ingest

import (
	"context"
	"fmt"
	"log"

	"github.com/bookcast/ingest/internal/core"
	"github.com/bookcast/ingest/internal/models"
)

// Writer appends page records to the store one at a time, as units come off
// the extractor. There is no buffering and no rollback: rows written before
// a failure stay written.
type Writer struct {
	store core.Store
}

func NewWriter(store core.Store) *Writer {
	return &Writer{store: store}
}

func (w *Writer) WritePage(ctx context.Context, page *models.BookPage) error {
	if err := w.store.InsertPage(ctx, page); err != nil {
		log.Printf("Writer: failed to persist page %d of book %s: %v", page.PageNumber, page.BookID, err)
		return fmt.Errorf("insert page %d: %w", page.PageNumber, err)
	}
	return nil
}
