package extract

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
)

// rasterizer renders single PDF pages to PNG bytes. The underlying MuPDF
// document is opened lazily so text-layer-only PDFs never pay for it.
type rasterizer struct {
	path string
	doc  *fitz.Document
}

func newRasterizer(path string) *rasterizer {
	return &rasterizer{path: path}
}

// pagePNG renders the 1-based page n at the given DPI. The returned buffer
// is the only reference to the pixel data; the caller drops it as soon as
// OCR or the vision model has consumed it.
func (r *rasterizer) pagePNG(n int, dpi int) ([]byte, error) {
	if r.doc == nil {
		doc, err := fitz.New(r.path)
		if err != nil {
			return nil, fmt.Errorf("open pdf for rasterization: %w", err)
		}
		r.doc = doc
	}

	img, err := r.doc.ImageDPI(n-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", n, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", n, err)
	}
	return buf.Bytes(), nil
}

func (r *rasterizer) Close() error {
	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc = nil
	return err
}
