package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/bookcast/ingest/internal/core"
)

const visionPrompt = "This is a page from a book. Extract all the main text from this image."

// GeminiVision extracts page text from a rasterized image, used as the
// OCR replacement when a request opts into vision-model extraction.
type GeminiVision struct {
	client    *genai.Client
	modelName string
}

func NewGeminiVision(ctx context.Context, apiKey, modelName string) (*GeminiVision, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiVision{client: cl, modelName: modelName}, nil
}

func (g *GeminiVision) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiVision) ExtractPageText(ctx context.Context, png []byte) (string, error) {
	m := g.client.GenerativeModel(g.modelName)

	resp, err := m.GenerateContent(ctx, genai.Text(visionPrompt), genai.ImageData("png", png))
	if err != nil {
		return "", fmt.Errorf("gemini vision: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String(), nil
}

var _ core.Vision = (*GeminiVision)(nil)
