package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/domain/link"
	"github.com/corey/sigsync/internal/domain/resolve"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
	"github.com/corey/sigsync/internal/ports"
)

// maxQueuedEvents bounds an editor's pending events; the oldest are dropped.
const maxQueuedEvents = 256

// Resolver finds the counterpart of a signature. *resolve.Resolver is the
// production implementation.
type Resolver interface {
	Resolve(ctx context.Context, src *signature.Signature) *resolve.Target
}

// ParseFunc returns the parse of the live text of path.
type ParseFunc func(path string) (*cppast.File, error)

type position struct {
	path      string
	line, col int
}

// Session is the sync state of one editor: at most one link, the resolution
// running for it and the events waiting to be picked up.
//
// Cursor starts resolution in the background. A later Cursor that lands on
// another signature supersedes it: the pending result is dropped when it
// arrives. Edits and Apply run synchronously against the live text.
type Session struct {
	Editor string

	parse    ParseFunc
	resolver Resolver
	applier  *link.Applier
	latency  *LatencyTracker
	log      *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cur    *link.State
	cancel context.CancelFunc
	cursor position
	wg     sync.WaitGroup

	qmu   sync.Mutex
	queue []socket.Event
}

// NewSession creates a session for editor. latency and logger may be nil.
func NewSession(editor string, ws ports.Workspace, parse ParseFunc, r Resolver, latency *LatencyTracker, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default().With("component", "session")
	}
	s := &Session{
		Editor:   editor,
		parse:    parse,
		resolver: r,
		latency:  latency,
		log:      logger.With("editor", editor),
	}
	s.applier = link.NewApplier(ws, s, logger)
	return s
}

// Current returns the session's link, which may already be final.
func (s *Session) Current() *link.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Cursor reports the editor's cursor. While it stays on the signature being
// tracked the current link is kept; on any other signature a new link is
// started and resolved in the background. Off a signature, nil is returned.
func (s *Session) Cursor(path string, line, col int) (*link.State, error) {
	f, err := s.parse(path)
	if err != nil {
		return nil, err
	}
	sig := signature.Locate(f, line, col)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = position{path: path, line: line, col: col}
	if s.cur != nil && !s.cur.Phase().Final() {
		if s.track(s.cur, sig) {
			return s.cur, nil
		}
	}
	// Without a counterpart there is nothing to re-resolve until the cursor
	// reaches another signature.
	if s.cur != nil && s.cur.Dormant() && sameSite(s.cur.Source, sig) {
		return s.cur, nil
	}
	if sig == nil {
		s.cur = nil
		return nil, nil
	}
	return s.start(sig), nil
}

func sameSite(a, b *signature.Signature) bool {
	return b != nil && a.File.Path == b.File.Path && a.Kind == b.Kind &&
		a.Function.Name == b.Function.Name && a.Span.Start == b.Span.Start
}

// track checks live against st and reports an ended link.
func (s *Session) track(st *link.State, live *signature.Signature) bool {
	prev := st.Phase()
	if st.Track(live) {
		return true
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if prev == link.Resolving {
		recordLink(context.Background(), OutcomeSuperseded)
	} else if prev == link.Linked {
		recordLink(context.Background(), OutcomeInvalidated)
		s.push(socket.Event{Kind: socket.EventInvalidated, LinkID: st.ID, Path: st.Source.File.Path, Message: st.Reason()})
	}
	s.log.Debug("link ended", "id", st.ID, "reason", st.Reason())
	return false
}

func (s *Session) start(sig *signature.Signature) *link.State {
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	st := link.New(sig, s.gen)
	_ = st.BeginResolve()

	ctx, cancel := context.WithCancel(context.Background())
	s.cur, s.cancel = st, cancel
	s.wg.Add(1)
	go s.resolve(ctx, cancel, st)
	return st
}

func (s *Session) resolve(ctx context.Context, cancel context.CancelFunc, st *link.State) {
	defer s.wg.Done()
	defer cancel()

	begin := time.Now()
	sctx, span := startResolveSpan(ctx, st.Source.QualifiedName(), st.Source.Kind.String())
	target := s.resolver.Resolve(sctx, st.Source)
	span.End()
	elapsed := time.Since(begin)
	recordResolve(ctx, elapsed, target != nil)
	if s.latency != nil {
		s.latency.Record(elapsed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != st || ctx.Err() != nil {
		s.log.Debug("resolution superseded", "id", st.ID, "generation", st.Generation)
		return
	}
	if err := st.Link(target); err != nil {
		s.log.Debug("resolution discarded", "id", st.ID, "err", err)
		return
	}
	if target == nil {
		recordLink(ctx, OutcomeDormant)
		return
	}
	line, col := target.Sig.File.Lines().Position(target.Sig.NameSpan().Start)
	s.push(socket.Event{
		Kind:   socket.EventLinked,
		LinkID: st.ID,
		Path:   target.Sig.File.Path,
		Offset: target.Sig.NameSpan().Start,
		Line:   line,
		Column: col,
	})
	s.log.Debug("linked", "id", st.ID, "function", st.Source.QualifiedName(), "target", target.Sig.File.Path)
}

// Wait blocks until no resolution is running.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Edits returns the edits the current link would apply. It re-locates the
// signature at the last cursor position in the live text.
func (s *Session) Edits() (*link.State, []textedit.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editsLocked()
}

func (s *Session) editsLocked() (*link.State, []textedit.Edit, error) {
	st := s.cur
	if st == nil {
		return nil, nil, link.ErrNotLinked
	}
	if st.Phase().Final() {
		return st, nil, link.ErrClosed
	}
	f, err := s.parse(s.cursor.path)
	if err != nil {
		return st, nil, err
	}
	live := signature.Locate(f, s.cursor.line, s.cursor.col)
	if !s.track(st, live) {
		return st, nil, link.ErrClosed
	}
	edits, err := st.ComputeEdits(live)
	return st, edits, err
}

// Apply computes and commits the current link's edits. A target that
// changed since resolution yields link.ErrTargetChanged and a notice event.
func (s *Session) Apply(jump bool) (*link.State, []textedit.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, edits, err := s.editsLocked()
	if err != nil {
		return st, nil, err
	}
	err = s.applier.Apply(st, edits, jump)
	switch {
	case err == nil:
		recordLink(context.Background(), OutcomeApplied)
	case errors.Is(err, link.ErrTargetChanged) || st.Phase() == link.Aborted:
		recordLink(context.Background(), OutcomeAborted)
	}
	return st, edits, err
}

// Notify queues a notice for the editor.
func (s *Session) Notify(path string, offset int, message string) {
	s.push(socket.Event{Kind: socket.EventNotice, Path: path, Offset: offset, Message: message})
}

func (s *Session) push(ev socket.Event) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.queue) >= maxQueuedEvents {
		s.queue = s.queue[1:]
	}
	s.queue = append(s.queue, ev)
}

// Events drains the pending events.
func (s *Session) Events() []socket.Event {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	evs := s.queue
	s.queue = nil
	return evs
}

// Close ends the current link and waits for a running resolution.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.cur != nil {
		s.cur.Invalidate("editor closed")
	}
	s.mu.Unlock()
	s.wg.Wait()
}
