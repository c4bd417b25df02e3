package core

import "errors"

var (
	// ErrTransfer marks a failed document download. Terminal for the
	// whole job: nothing can be processed without the file.
	ErrTransfer = errors.New("document transfer failed")

	// ErrNoContent marks a section whose page range matched zero stored
	// pages. The section is skipped; the batch continues.
	ErrNoContent = errors.New("no pages found for section")

	// ErrUnsupportedKind is returned for file kinds other than pdf/epub.
	ErrUnsupportedKind = errors.New("unsupported file type")
)
