package source

import (
	"fmt"
	"log"
	"os"

	"github.com/bookcast/ingest/internal/core"
)

// ScratchFile is a downloaded document on local disk. Close removes it;
// callers defer it so the scratch space is reclaimed on every exit path.
type ScratchFile struct {
	Path string
}

func (s *ScratchFile) Close() error {
	if s == nil || s.Path == "" {
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("Source: failed to remove scratch file %s: %v", s.Path, err)
		return err
	}
	s.Path = ""
	return nil
}

func suffixFor(kind string) (string, error) {
	switch kind {
	case "pdf":
		return ".pdf", nil
	case "epub":
		return ".epub", nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedKind, kind)
	}
}
