package summary

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Chunker splits section text into model-sized pieces.
type Chunker interface {
	Chunk(text string) ([]string, error)
}

// TokenChunker budgets text by real token count, using the tokenizer of the
// generation model so chunk boundaries line up with the model's context
// window rather than a character guess.
type TokenChunker struct {
	enc    *tiktoken.Tiktoken
	budget int
}

func NewTokenChunker(model string, budget int) (*TokenChunker, error) {
	if budget <= 0 {
		return nil, fmt.Errorf("token budget must be positive, got %d", budget)
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model names fall back to the encoding the current
		// chat models share.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("load tokenizer: %w", err)
		}
	}
	return &TokenChunker{enc: enc, budget: budget}, nil
}

func (c *TokenChunker) Chunk(text string) ([]string, error) {
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= c.budget {
		return []string{text}, nil
	}

	chunks := make([]string, 0, (len(tokens)+c.budget-1)/c.budget)
	for start := 0; start < len(tokens); start += c.budget {
		end := start + c.budget
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.enc.Decode(tokens[start:end]))
	}
	return chunks, nil
}

var _ Chunker = (*TokenChunker)(nil)
