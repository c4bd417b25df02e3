package core

import "context"

// UnitExtractor yields the text of one document unit at a time: a page for
// PDFs, a chapter for EPUBs. Implementations keep the document open between
// calls and must be closed by the caller.
type UnitExtractor interface {
	// UnitCount reports how many units the open document contains.
	UnitCount() int

	// ExtractUnit returns the best-effort text for the 1-based unit n.
	// An empty string means the unit had no extractable text; that is not
	// an error.
	ExtractUnit(ctx context.Context, n int) (string, error)

	Close() error
}
