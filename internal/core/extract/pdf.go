package extract

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bookcast/ingest/internal/core"
)

// PDFOptions tunes the extraction chain for one document.
type PDFOptions struct {
	// MinTextLen is the trimmed length below which the text layer is
	// considered insufficient and the chain falls through to OCR.
	MinTextLen int

	// OCRDPi is the rasterization resolution for local OCR.
	OCRDPi int

	// Vision, when set, replaces local OCR with a vision-model call at
	// VisionDPI.
	Vision    core.Vision
	VisionDPI int
}

// PDFExtractor extracts per-page text from a PDF. The cheap text layer is
// tried first; pages without one are rasterized and OCRed, or sent to a
// vision model when the caller opted in.
type PDFExtractor struct {
	file       *os.File
	reader     *pdf.Reader
	raster     *rasterizer
	ocr        *ocrEngine
	strategies []pageStrategy
}

func NewPDFExtractor(path string, opts PDFOptions) (*PDFExtractor, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	if opts.MinTextLen <= 0 {
		opts.MinTextLen = 50
	}
	if opts.OCRDPi <= 0 {
		opts.OCRDPi = 100
	}
	if opts.VisionDPI <= 0 {
		opts.VisionDPI = 200
	}

	e := &PDFExtractor{
		file:   f,
		reader: r,
		raster: newRasterizer(path),
	}

	e.strategies = append(e.strategies, &textLayerStrategy{reader: r, minLen: opts.MinTextLen})
	if opts.Vision != nil {
		e.strategies = append(e.strategies, &visionStrategy{raster: e.raster, dpi: opts.VisionDPI, vision: opts.Vision})
	} else {
		e.ocr = newOCREngine()
		e.strategies = append(e.strategies, &ocrStrategy{raster: e.raster, dpi: opts.OCRDPi, engine: e.ocr})
	}

	return e, nil
}

func (e *PDFExtractor) UnitCount() int {
	return e.reader.NumPage()
}

// ExtractUnit walks the strategy chain for page n. Strategy failures are
// absorbed. A strategy that produced some text without accepting it (a
// sub-threshold text layer, say) is kept as a fallback, so the page only
// comes back "" when no strategy produced anything at all.
func (e *PDFExtractor) ExtractUnit(ctx context.Context, n int) (string, error) {
	var fallback string
	for _, s := range e.strategies {
		text, ok, err := s.extract(ctx, n)
		if err != nil {
			log.Printf("Extract: %s failed for page %d: %v", s.name(), n, err)
			continue
		}
		if ok {
			return strings.TrimSpace(text), nil
		}
		if t := strings.TrimSpace(text); t != "" && fallback == "" {
			fallback = t
		}
	}
	return fallback, nil
}

func (e *PDFExtractor) Close() error {
	var first error
	if e.ocr != nil {
		if err := e.ocr.Close(); err != nil {
			first = err
		}
	}
	if err := e.raster.Close(); err != nil && first == nil {
		first = err
	}
	if err := e.file.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

var _ core.UnitExtractor = (*PDFExtractor)(nil)

// textLayerStrategy reads the PDF's native text layer.
type textLayerStrategy struct {
	reader *pdf.Reader
	minLen int
}

func (s *textLayerStrategy) name() string { return "text-layer" }

func (s *textLayerStrategy) extract(_ context.Context, n int) (string, bool, error) {
	page := s.reader.Page(n)
	if page.V.IsNull() {
		return "", false, nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false, err
	}
	return text, len(strings.TrimSpace(text)) > s.minLen, nil
}

// ocrStrategy rasterizes the page and runs local OCR over it.
type ocrStrategy struct {
	raster *rasterizer
	dpi    int
	engine *ocrEngine
}

func (s *ocrStrategy) name() string { return "ocr" }

func (s *ocrStrategy) extract(_ context.Context, n int) (string, bool, error) {
	img, err := s.raster.pagePNG(n, s.dpi)
	if err != nil {
		return "", false, err
	}
	text, err := s.engine.Text(img)
	if err != nil {
		return "", false, err
	}
	return text, strings.TrimSpace(text) != "", nil
}

// visionStrategy rasterizes at a higher resolution and asks a vision model
// for the page text. The model's answer is accepted verbatim.
type visionStrategy struct {
	raster *rasterizer
	dpi    int
	vision core.Vision
}

func (s *visionStrategy) name() string { return "vision" }

func (s *visionStrategy) extract(ctx context.Context, n int) (string, bool, error) {
	img, err := s.raster.pagePNG(n, s.dpi)
	if err != nil {
		return "", false, err
	}
	text, err := s.vision.ExtractPageText(ctx, img)
	if err != nil {
		return "", false, err
	}
	return text, true, nil
}
