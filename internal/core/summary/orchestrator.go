package summary

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bookcast/ingest/internal/core"
	"github.com/bookcast/ingest/internal/models"
)

// Orchestrator fans section summarization out over a bounded worker pool
// and batch-writes whatever succeeded. Sections are independent: one
// failing is logged and dropped, never cancelling its siblings.
type Orchestrator struct {
	summarizer *Summarizer
	workers    int
}

func NewOrchestrator(summarizer *Summarizer, workers int) *Orchestrator {
	if workers <= 0 {
		workers = 5
	}
	return &Orchestrator{summarizer: summarizer, workers: workers}
}

func (o *Orchestrator) ProcessAllSections(
	ctx context.Context,
	store core.Store,
	bookID, bookTitle, bookAuthor string,
	toc []models.Section,
) (models.SummaryResult, error) {
	var (
		mu      sync.Mutex
		results []models.SectionSummary
	)

	g := new(errgroup.Group)
	g.SetLimit(o.workers)

	for i, section := range toc {
		g.Go(func() error {
			rec, err := o.summarizer.SummarizeSection(ctx, store, bookID, bookTitle, bookAuthor, i, section)
			if err != nil {
				log.Printf("Summary: section %q failed: %v", section.Title, err)
				return nil
			}
			mu.Lock()
			results = append(results, rec)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors, so Wait only synchronizes.
	_ = g.Wait()

	if len(results) > 0 {
		if err := store.InsertSections(ctx, results); err != nil {
			return models.SummaryResult{}, fmt.Errorf("insert sections: %w", err)
		}
	}

	log.Printf("Summary: processed %d/%d sections for book %s", len(results), len(toc), bookID)
	return models.SummaryResult{Success: true, ProcessedCount: len(results)}, nil
}
