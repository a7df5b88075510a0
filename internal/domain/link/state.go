// Package link holds the state of one declaration/definition synchronization:
// the signature the user started editing, its resolved counterpart and the
// lifecycle between them.
//
//	Unresolved -> Resolving -> Linked -> Applied | Aborted | Invalidated
//
// Applied, Aborted and Invalidated are final. The next edit starts a new
// State.
package link

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/corey/sigsync/internal/domain/resolve"
	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/sigdiff"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// Phase is a lifecycle position.
type Phase int

const (
	Unresolved Phase = iota
	Resolving
	Linked
	Applied
	Aborted
	Invalidated
)

func (p Phase) String() string {
	switch p {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Linked:
		return "linked"
	case Applied:
		return "applied"
	case Aborted:
		return "aborted"
	case Invalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Final reports whether no transition leaves p.
func (p Phase) Final() bool { return p >= Applied }

const reasonNoCounterpart = "no counterpart"

// State is one link. The source half is fixed at creation; the target half
// is filled in once by Link. Safe for concurrent use.
type State struct {
	ID         string
	Generation uint64

	// Source is the signature as it was when editing started. SourceText
	// and Name are its span text and declarator name at that time.
	Source     *signature.Signature
	SourceText string
	Name       string

	mu     sync.Mutex
	phase  Phase
	reason string
	target *resolve.Target
	delta  int
}

// New starts a link for src.
func New(src *signature.Signature, generation uint64) *State {
	return &State{
		ID:         uuid.NewString(),
		Generation: generation,
		Source:     src,
		SourceText: src.Text(),
		Name:       src.Function.Name,
	}
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Reason returns why the link was invalidated or aborted.
func (s *State) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *State) transition(from, to Phase) error {
	if s.phase.Final() {
		return ErrClosed
	}
	if s.phase != from {
		return fmt.Errorf("link: %s -> %s from %s", from, to, s.phase)
	}
	s.phase = to
	return nil
}

// BeginResolve moves Unresolved to Resolving.
func (s *State) BeginResolve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(Unresolved, Resolving)
}

// Link records the resolved counterpart. A nil target ends the link: there
// is nothing to keep in sync.
func (s *State) Link(t *resolve.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == nil {
		if err := s.transition(Resolving, Invalidated); err != nil {
			return err
		}
		s.reason = reasonNoCounterpart
		return nil
	}
	if err := s.transition(Resolving, Linked); err != nil {
		return err
	}
	s.target = t
	return nil
}

// Dormant reports whether resolution found no counterpart.
func (s *State) Dormant() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == Invalidated && s.reason == reasonNoCounterpart
}

// Target returns the resolved counterpart, or nil before Link.
func (s *State) Target() *resolve.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Invalidate ends a link that has not reached a final phase. It reports
// whether it did anything.
func (s *State) Invalidate(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Final() {
		return false
	}
	s.phase = Invalidated
	s.reason = reason
	return true
}

// Track checks live, the signature now under the cursor, against the one
// editing started on. A missing signature or a different name ends the link.
func (s *State) Track(live *signature.Signature) bool {
	switch {
	case live == nil:
		s.Invalidate("cursor left the signature")
		return false
	case live.Function.Name != s.Name || live.Kind != s.Source.Kind:
		s.Invalidate("tracked name changed")
		return false
	case live.File.Path != s.Source.File.Path:
		s.Invalidate("cursor moved to another file")
		return false
	case live.Span.Start != s.Source.Span.Start:
		// Edits inside the signature never move its first byte, so a new
		// start is another declaration, such as an overload.
		s.Invalidate("cursor moved to another signature")
		return false
	}
	return !s.Phase().Final()
}

// Types returns the type table the link resolves names against.
func (s *State) Types() *rewrite.Table {
	if t := s.Target(); t != nil {
		return t.Types
	}
	return nil
}

// ComputeEdits returns the edits that bring the target in line with live.
// When source and target share a file and the target follows the source,
// the edits are shifted by the growth of the source signature.
func (s *State) ComputeEdits(live *signature.Signature, opts ...sigdiff.Option) ([]textedit.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Final() {
		return nil, ErrClosed
	}
	if s.phase != Linked {
		return nil, ErrNotLinked
	}
	if live == nil || live.Kind != s.Source.Kind ||
		live.File.Path != s.Source.File.Path || live.Span.Start != s.Source.Span.Start {
		return nil, nil
	}

	s.delta = 0
	ts := s.target.Sig
	if ts.File.Path == s.Source.File.Path && ts.Span.Start >= s.Source.Span.End {
		s.delta = live.Span.End - s.Source.Span.End
	}
	opts = append([]sigdiff.Option{sigdiff.WithDelta(s.delta)}, opts...)
	return sigdiff.Diff(sigdiff.Input{
		Orig:   s.Source,
		Live:   live,
		Target: ts,
		Types:  s.target.Types,
	}, opts...), nil
}

// guard returns the target path, the span to check and the text expected
// there, shifted like the last computed edits.
func (s *State) guard() (string, textedit.Span, string) {
	ts := s.target.Sig
	return ts.File.Path, ts.Span.Shift(s.delta), s.target.InitialText
}

func (s *State) finish(to Phase, reason string) {
	s.phase = to
	s.reason = reason
}
