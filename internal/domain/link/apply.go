package link

import (
	"fmt"
	"log/slog"

	"github.com/corey/sigsync/internal/domain/textedit"
	"github.com/corey/sigsync/internal/ports"
)

// Applier commits computed edits to a link's target.
type Applier struct {
	ws     ports.Workspace
	notify ports.Notifier
	log    *slog.Logger
}

// NewApplier creates an applier. notify and logger may be nil.
func NewApplier(ws ports.Workspace, notify ports.Notifier, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default().With("component", "link")
	}
	return &Applier{ws: ws, notify: notify, log: logger}
}

// Apply re-reads the target, checks that the linked span still holds the
// text seen at resolution and commits edits as one transaction. On any
// mismatch nothing is written, the link is aborted and the user is told.
// With jump, the editor is moved to the target's name afterward.
func (a *Applier) Apply(s *State, edits []textedit.Edit, jump bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Final() {
		return ErrClosed
	}
	if s.phase != Linked {
		return ErrNotLinked
	}

	path, span, initial := s.guard()
	text, err := a.ws.Snapshot(path)
	if err != nil {
		s.finish(Aborted, "target unreadable")
		return fmt.Errorf("read target %s: %w", path, err)
	}
	if span.Text(text) != initial || !span.InBounds(len(text)) {
		return a.reject(s, path, span.Start)
	}
	if err := textedit.Validate(text, edits); err != nil {
		a.log.Debug("edit expectations failed", "path", path, "err", err)
		return a.reject(s, path, span.Start)
	}

	if len(edits) > 0 {
		if err := a.ws.Apply(path, edits); err != nil {
			s.finish(Aborted, "commit failed")
			return fmt.Errorf("apply to %s: %w", path, err)
		}
	}
	s.finish(Applied, "")
	a.log.Debug("link applied", "id", s.ID, "path", path, "edits", len(edits))

	if jump {
		name := s.target.Sig.NameSpan().Start + s.delta
		a.ws.Reveal(path, textedit.MapOffset(name, edits))
	}
	return nil
}

func (a *Applier) reject(s *State, path string, offset int) error {
	s.finish(Aborted, ErrTargetChanged.Error())
	a.log.Info("target changed since resolution", "id", s.ID, "path", path)
	if a.notify != nil {
		a.notify.Notify(path, offset, "target changed, could not apply")
	}
	return ErrTargetChanged
}
