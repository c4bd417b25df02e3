package extract

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// htmlToText converts chapter markup to normalized plain text: script and
// style elements are dropped, each line is trimmed, multi-headline lines
// are split on double-space boundaries, and blank fragments are removed.
func htmlToText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style").Remove()
	text := doc.Text()

	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, phrase := range strings.Split(line, "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				out = append(out, phrase)
			}
		}
	}

	return strings.Join(out, "\n"), nil
}
