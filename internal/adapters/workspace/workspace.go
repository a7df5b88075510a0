// Package workspace implements ports.Workspace: open editor documents
// overlaid on the file system.
//
// An open document is the truth for its path until it is closed; edits to
// it update the overlay and bump its version, and subscribers (the editor
// connection) are told so they can apply the same edits to their buffer.
// Paths without a document are read from and committed to disk, the latter
// through a temp file and rename so a file is never left half written.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/corey/sigsync/internal/domain/textedit"
)

// ErrStale is returned for a document change older than the current version.
var ErrStale = errors.New("workspace: stale document version")

// EventKind classifies workspace events.
type EventKind string

const (
	EventEdited   EventKind = "edited"
	EventRevealed EventKind = "revealed"
)

// Event is published after a commit or a reveal request.
type Event struct {
	Kind    EventKind       `json:"kind"`
	Path    string          `json:"path"`
	Version int             `json:"version,omitempty"` // document version after an edit, 0 for disk files
	Edits   []textedit.Edit `json:"edits,omitempty"`
	Offset  int             `json:"offset,omitempty"`
	Line    int             `json:"line,omitempty"`
	Column  int             `json:"column,omitempty"`
}

type document struct {
	version int
	text    []byte
}

// Workspace is safe for concurrent use.
type Workspace struct {
	mu   sync.RWMutex
	docs map[string]*document

	smu  sync.RWMutex
	subs []func(Event)

	log *slog.Logger
}

// New creates an empty workspace. logger may be nil.
func New(logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default().With("component", "workspace")
	}
	return &Workspace{docs: make(map[string]*document), log: logger}
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Subscribe registers fn for every later event. fn runs on the goroutine
// that caused the event and must not call back into the workspace.
func (w *Workspace) Subscribe(fn func(Event)) {
	w.smu.Lock()
	defer w.smu.Unlock()
	w.subs = append(w.subs, fn)
}

func (w *Workspace) publish(ev Event) {
	w.smu.RLock()
	subs := slices.Clone(w.subs)
	w.smu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Open installs the editor's text for path.
func (w *Workspace) Open(path string, version int, text []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[clean(path)] = &document{version: version, text: append([]byte(nil), text...)}
}

// Change replaces the text of an open document. Versions must increase;
// an older version returns ErrStale. Changing a document that is not open
// opens it.
func (w *Workspace) Change(path string, version int, text []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := clean(path)
	if d, ok := w.docs[p]; ok && version <= d.version {
		return fmt.Errorf("%s version %d (have %d): %w", p, version, d.version, ErrStale)
	}
	w.docs[p] = &document{version: version, text: append([]byte(nil), text...)}
	return nil
}

// Close drops the overlay for path; later reads go to disk.
func (w *Workspace) Close(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, clean(path))
}

// IsOpen reports whether path has an editor document.
func (w *Workspace) IsOpen(path string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.docs[clean(path)]
	return ok
}

// Version returns the version of an open document.
func (w *Workspace) Version(path string) (int, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	d, ok := w.docs[clean(path)]
	if !ok {
		return 0, false
	}
	return d.version, true
}

// OpenPaths returns the paths of all open documents.
func (w *Workspace) OpenPaths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.docs))
	for p := range w.docs {
		out = append(out, p)
	}
	return out
}

// Snapshot returns a copy of the current text of path.
func (w *Workspace) Snapshot(path string) ([]byte, error) {
	p := clean(path)
	w.mu.RLock()
	d, ok := w.docs[p]
	if ok {
		out := append([]byte(nil), d.text...)
		w.mu.RUnlock()
		return out, nil
	}
	w.mu.RUnlock()
	return os.ReadFile(p)
}

// Apply commits edits to path as one transaction.
func (w *Workspace) Apply(path string, edits []textedit.Edit) error {
	p := clean(path)
	ev, err := w.commit(p, edits)
	if err != nil {
		return fmt.Errorf("apply to %s: %w", p, err)
	}
	w.log.Debug("edits committed", "path", p, "edits", len(edits), "version", ev.Version)
	w.publish(ev)
	return nil
}

func (w *Workspace) commit(p string, edits []textedit.Edit) (Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev := Event{Kind: EventEdited, Path: p, Edits: edits}

	if d, ok := w.docs[p]; ok {
		out, err := textedit.Apply(d.text, edits)
		if err != nil {
			return ev, err
		}
		d.text = out
		d.version++
		ev.Version = d.version
		return ev, nil
	}

	info, err := os.Stat(p)
	if err != nil {
		return ev, err
	}
	src, err := os.ReadFile(p)
	if err != nil {
		return ev, err
	}
	out, err := textedit.Apply(src, edits)
	if err != nil {
		return ev, err
	}
	return ev, atomicWriteFile(p, out, info.Mode().Perm())
}

// Reveal publishes a request to show path at offset.
func (w *Workspace) Reveal(path string, offset int) {
	p := clean(path)
	ev := Event{Kind: EventRevealed, Path: p, Offset: offset}
	if text, err := w.Snapshot(p); err == nil {
		ev.Line, ev.Column = textedit.NewLines(text).Position(offset)
	}
	w.publish(ev)
}

// atomicWriteFile writes content to a file atomically using rename.
func atomicWriteFile(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	// Create temp file in same directory (ensures same filesystem for rename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".sigsync-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing to disk: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	return nil
}
