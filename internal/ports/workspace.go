package ports

import "github.com/corey/sigsync/internal/domain/textedit"

// Workspace is the buffer service: it serves the live text of a file (an
// open editor buffer if there is one, the disk otherwise) and commits edit
// lists atomically.
type Workspace interface {
	// Snapshot returns the current text of path, never a cached parse input.
	Snapshot(path string) ([]byte, error)

	// Apply splices edits into the current text of path as one transaction.
	// Either every edit lands or the file is left untouched.
	Apply(path string, edits []textedit.Edit) error

	// Reveal asks the editor to show path with the cursor at offset.
	Reveal(path string, offset int)
}

// Notifier surfaces short, transient messages to the user.
type Notifier interface {
	Notify(path string, offset int, message string)
}
