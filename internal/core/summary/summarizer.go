package summary

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bookcast/ingest/internal/core"
	"github.com/bookcast/ingest/internal/models"
)

// Summarizer turns one TOC section into a persisted summary record. Chunk
// summarization degrades gracefully (a failed chunk keeps its raw text);
// embedding the final summary does not: a summary without an embedding is
// incomplete and the section fails.
type Summarizer struct {
	chat     core.Chat
	embedder core.Embedder
	chunker  Chunker
}

func NewSummarizer(chat core.Chat, embedder core.Embedder, chunker Chunker) *Summarizer {
	return &Summarizer{chat: chat, embedder: embedder, chunker: chunker}
}

func (s *Summarizer) SummarizeSection(
	ctx context.Context,
	store core.Store,
	bookID, bookTitle, bookAuthor string,
	index int,
	section models.Section,
) (models.SectionSummary, error) {
	texts, err := store.SelectPageTexts(ctx, bookID, section.StartPage, section.EndPage)
	if err != nil {
		return models.SectionSummary{}, fmt.Errorf("fetch pages %d-%d: %w", section.StartPage, section.EndPage, err)
	}
	if len(texts) == 0 {
		return models.SectionSummary{}, fmt.Errorf("%w: pages %d-%d", core.ErrNoContent, section.StartPage, section.EndPage)
	}

	sectionText := strings.Join(texts, " ")

	chunks, err := s.chunker.Chunk(sectionText)
	if err != nil {
		log.Printf("Summary: chunking failed for section %q, summarizing whole text: %v", section.Title, err)
		chunks = []string{sectionText}
	}

	sys := systemPrompt(section.Title, bookTitle, bookAuthor)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := s.chat.Complete(ctx, sys, "Here is the page text: "+chunk)
		if err != nil {
			// Keep the raw text so the record still carries the
			// section's content.
			log.Printf("Summary: model call failed for chunk %d of section %q, keeping raw text: %v", i, section.Title, err)
			out = chunk
		}
		parts = append(parts, out)
	}
	finalSummary := strings.Join(parts, "\n\n")

	embedding, err := s.embedder.Embed(ctx, finalSummary)
	if err != nil {
		return models.SectionSummary{}, fmt.Errorf("embed summary for section %q: %w", section.Title, err)
	}

	return models.SectionSummary{
		BookID:       bookID,
		Index:        index,
		SectionTitle: section.Title,
		StartPage:    section.StartPage,
		EndPage:      section.EndPage,
		Summary:      finalSummary,
		Embedding:    embedding,
	}, nil
}
