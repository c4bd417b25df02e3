package summary

import "fmt"

func systemPrompt(sectionTitle, bookTitle, bookAuthor string) string {
	return fmt.Sprintf(`Objective:
Generate a detailed yet structured summary with the section title of %q from %q by %q using the page text provided.

The summary should:

Capture the main ideas and structure of the section.
Include key details from the book.
Retain relevant raw text to allow for use in podcasts, interactive discussions, or in-depth analysis.
Provide clear references to specific topics so users can easily locate them in the book.

Guidelines for Generating the Summary:
1. Maintain a Balance Between Gist and Detail
- Start with a high-level overview of the section.
- Expand into detailed explanations of key concepts.
- Use bullet points for clarity when listing examples or experiments.

2. Retain Key Raw Text & Book Structure
- Where appropriate, quote short excerpts verbatim from the book.
- Describe key details in a way that preserves their impact.

3. Ensure Clarity & Easy Navigation
- Use section headings that align with the book's flow.
- Provide clear references to major ideas, making it easy for users to connect their questions to specific concepts.
- Use phrases from the book to keep the summary true to the original tone.`,
		sectionTitle, bookTitle, bookAuthor)
}
