package extract

import "context"

// pageStrategy is one way of getting text off a PDF page. Strategies are
// tried in order until one accepts; a strategy error is logged by the
// caller and the chain moves on.
type pageStrategy interface {
	name() string

	// extract returns the text for the 1-based page n and whether the
	// result is good enough to stop the chain.
	extract(ctx context.Context, n int) (text string, ok bool, err error)
}
