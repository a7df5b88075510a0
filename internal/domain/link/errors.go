package link

import "errors"

var (
	// ErrTargetChanged means the target text moved on since resolution. No
	// edit was written.
	ErrTargetChanged = errors.New("link: target changed, could not apply")

	// ErrNotLinked is returned for operations that need a resolved
	// counterpart.
	ErrNotLinked = errors.New("link: not linked")

	// ErrClosed is returned once the link reached a final phase.
	ErrClosed = errors.New("link: closed")
)
