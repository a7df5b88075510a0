package textedit

import "errors"

var (
	// ErrOutOfRange is returned when an edit does not fit the buffer.
	ErrOutOfRange = errors.New("edit out of range")

	// ErrOverlap is returned when two edits of one batch cover the same bytes.
	ErrOverlap = errors.New("overlapping edits")

	// ErrMismatch is returned when the buffer does not hold the text an edit
	// expects to replace.
	ErrMismatch = errors.New("edit does not match buffer")
)
