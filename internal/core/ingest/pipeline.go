package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bookcast/ingest/internal/core"
	"github.com/bookcast/ingest/internal/core/extract"
	"github.com/bookcast/ingest/internal/core/source"
	"github.com/bookcast/ingest/internal/models"
)

// Job describes one document to ingest.
type Job struct {
	BookID string
	URL    string
	Kind   string // "pdf" or "epub"

	// UnitLimit caps how many pages/chapters are processed. Zero means
	// no cap.
	UnitLimit int

	// UseVision switches PDF fallback extraction from local OCR to the
	// vision model; UseAltEmbedder switches to the alternate embedding
	// provider. Both map to the request's use_gemini flag.
	UseVision      bool
	UseAltEmbedder bool
}

// Fetcher downloads a document to scratch storage.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, kind string) (*source.ScratchFile, error)
}

// Options carries the extraction tuning knobs from config.
type Options struct {
	MinTextLen int
	OCRDPi     int
	VisionDPI  int
}

// Pipeline drives one document through fetch, per-unit extraction,
// best-effort embedding and incremental persistence. Units are handled
// strictly one at a time: a page is extracted, embedded and written before
// the next one is touched, so peak memory stays flat however long the
// document is.
type Pipeline struct {
	fetcher     Fetcher
	embedder    core.Embedder
	altEmbedder core.Embedder
	vision      core.Vision
	opts        Options

	// openExtractor is swapped out by tests.
	openExtractor func(path string, job Job) (core.UnitExtractor, error)
}

func NewPipeline(fetcher Fetcher, embedder, altEmbedder core.Embedder, vision core.Vision, opts Options) *Pipeline {
	p := &Pipeline{
		fetcher:     fetcher,
		embedder:    embedder,
		altEmbedder: altEmbedder,
		vision:      vision,
		opts:        opts,
	}
	p.openExtractor = p.defaultOpenExtractor
	return p
}

func (p *Pipeline) defaultOpenExtractor(path string, job Job) (core.UnitExtractor, error) {
	switch job.Kind {
	case "pdf":
		pdfOpts := extract.PDFOptions{
			MinTextLen: p.opts.MinTextLen,
			OCRDPi:     p.opts.OCRDPi,
			VisionDPI:  p.opts.VisionDPI,
		}
		if job.UseVision {
			pdfOpts.Vision = p.vision
		}
		return extract.NewPDFExtractor(path, pdfOpts)
	case "epub":
		return extract.NewEPUBExtractor(path)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnsupportedKind, job.Kind)
	}
}

func (p *Pipeline) embedderFor(job Job) core.Embedder {
	if job.UseAltEmbedder && p.altEmbedder != nil {
		return p.altEmbedder
	}
	return p.embedder
}

// ProcessBook runs the whole extraction for one document. A download or
// document-open failure aborts with an error; a failure on an individual
// unit is logged and skipped. The scratch file is removed on every path.
func (p *Pipeline) ProcessBook(ctx context.Context, store core.Store, job Job) (models.ProcessResult, error) {
	scratch, err := p.fetcher.Fetch(ctx, job.URL, job.Kind)
	if err != nil {
		return models.ProcessResult{}, err
	}
	defer scratch.Close()

	ex, err := p.openExtractor(scratch.Path, job)
	if err != nil {
		return models.ProcessResult{}, fmt.Errorf("open document: %w", err)
	}
	defer ex.Close()

	total := ex.UnitCount()
	if job.UnitLimit > 0 && job.UnitLimit < total {
		total = job.UnitLimit
	}
	log.Printf("Ingest: processing %d units of book %s", total, job.BookID)

	writer := NewWriter(store)
	embedder := p.embedderFor(job)

	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return models.ProcessResult{UnitCount: n - 1}, err
		}

		text, err := ex.ExtractUnit(ctx, n)
		if err != nil {
			log.Printf("Ingest: extraction failed for unit %d of book %s: %v", n, job.BookID, err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		var embedding []float32
		if vec, err := embedder.Embed(ctx, text); err != nil {
			log.Printf("Ingest: embedding failed for unit %d of book %s, storing without: %v", n, job.BookID, err)
		} else {
			embedding = vec
		}

		page := &models.BookPage{
			BookID:     job.BookID,
			PageNumber: n,
			Text:       text,
			Embedding:  embedding,
		}
		if err := writer.WritePage(ctx, page); err != nil {
			return models.ProcessResult{UnitCount: n}, err
		}
	}

	log.Printf("Ingest: finished book %s, %d units scanned", job.BookID, total)
	return models.ProcessResult{Success: true, UnitCount: total}, nil
}
