package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// ocrEngine wraps a tesseract client configured for book pages: PSM 6,
// a single uniform block of text. One client is reused across a document's
// pages and closed with the extractor.
type ocrEngine struct {
	client *gosseract.Client
}

func newOCREngine() *ocrEngine {
	c := gosseract.NewClient()
	_ = c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	return &ocrEngine{client: c}
}

func (e *ocrEngine) Text(png []byte) (string, error) {
	if err := e.client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("ocr set image: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}

func (e *ocrEngine) Close() error {
	return e.client.Close()
}
