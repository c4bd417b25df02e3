package core

import "context"

// Embedder computes a fixed-length vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chat produces a completion for a system/user prompt pair.
type Chat interface {
	Complete(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Vision extracts the main text from a rasterized book page.
type Vision interface {
	ExtractPageText(ctx context.Context, png []byte) (string, error)
}
