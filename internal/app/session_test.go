//go:build !lean

package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/corey/sigsync/internal/adapters/treesitter"
	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/domain/link"
	"github.com/corey/sigsync/internal/domain/resolve"
	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// memFiles is an in-memory workspace whose texts the test swaps freely.
type memFiles struct {
	mu    sync.Mutex
	files map[string]string
}

func (m *memFiles) set(path, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = text
}

func (m *memFiles) get(path string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[path]
}

func (m *memFiles) Snapshot(path string) ([]byte, error) {
	return []byte(m.get(path)), nil
}

func (m *memFiles) Apply(path string, edits []textedit.Edit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, err := textedit.ApplyString(m.files[path], edits)
	if err != nil {
		return err
	}
	m.files[path] = out
	return nil
}

func (m *memFiles) Reveal(string, int) {}

func (m *memFiles) parse(path string) (*cppast.File, error) {
	return treesitter.NewParser().Parse(path, []byte(m.get(path)))
}

// gateResolver blocks every resolution until gate is closed and answers
// with targets[name].
type gateResolver struct {
	gate    chan struct{}
	targets map[string]*resolve.Target
	calls   atomic.Int32
}

func (r *gateResolver) Resolve(ctx context.Context, src *signature.Signature) *resolve.Target {
	r.calls.Add(1)
	select {
	case <-r.gate:
	case <-ctx.Done():
		return nil
	}
	return r.targets[src.Function.Name]
}

func openGate() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func targetIn(t *testing.T, path, src, marker string) *resolve.Target {
	t.Helper()
	f, err := treesitter.NewParser().Parse(path, []byte(src))
	require.NoError(t, err)
	sig := signature.LocateOffset(f, strings.Index(src, marker))
	require.NotNil(t, sig)
	return &resolve.Target{Sig: sig, InitialText: sig.Text(), Types: rewrite.NewTable()}
}

const (
	editPath   = "/p/edit.cpp"
	headerPath = "/p/edit.h"
	editSrc    = "void a(int x) {}\n\nvoid b(int y, int z) {}\n"
	headerSrc  = "void b(int y, int z);\n"
)

func newTestSession(t *testing.T, r *gateResolver) (*Session, *memFiles) {
	t.Helper()
	ws := &memFiles{files: map[string]string{editPath: editSrc, headerPath: headerSrc}}
	s := NewSession("e1", ws, ws.parse, r, NewLatencyTracker(0), nil)
	t.Cleanup(s.Close)
	return s, ws
}

func kinds(evs []socket.Event) []string {
	var out []string
	for _, ev := range evs {
		out = append(out, ev.Kind)
	}
	return out
}

func TestSession_CursorResolvesInBackground(t *testing.T) {
	r := &gateResolver{gate: openGate(), targets: map[string]*resolve.Target{
		"b": targetIn(t, headerPath, headerSrc, "b("),
	}}
	s, _ := newTestSession(t, r)

	st, err := s.Cursor(editPath, 3, 6)
	require.NoError(t, err)
	require.NotNil(t, st)
	s.Wait()

	assert.Equal(t, link.Linked, st.Phase())
	evs := s.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, socket.EventLinked, evs[0].Kind)
	assert.Equal(t, st.ID, evs[0].LinkID)
	assert.Equal(t, headerPath, evs[0].Path)
	assert.Equal(t, 1, evs[0].Line)
	assert.Equal(t, 6, evs[0].Column)
	assert.Empty(t, s.Events())
}

func TestSession_StaysOnTrackedSignature(t *testing.T) {
	r := &gateResolver{gate: openGate(), targets: map[string]*resolve.Target{
		"b": targetIn(t, headerPath, headerSrc, "b("),
	}}
	s, _ := newTestSession(t, r)

	first, err := s.Cursor(editPath, 3, 6)
	require.NoError(t, err)
	s.Wait()
	again, err := s.Cursor(editPath, 3, 12)
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestSession_SupersededResultDiscarded(t *testing.T) {
	r := &gateResolver{gate: make(chan struct{}), targets: map[string]*resolve.Target{
		"a": targetIn(t, headerPath, "void a(int x);\n", "a("),
		"b": targetIn(t, headerPath, headerSrc, "b("),
	}}
	s, _ := newTestSession(t, r)

	first, err := s.Cursor(editPath, 1, 6)
	require.NoError(t, err)
	assert.Equal(t, link.Resolving, first.Phase())

	second, err := s.Cursor(editPath, 3, 6)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Greater(t, second.Generation, first.Generation)
	assert.Equal(t, link.Invalidated, first.Phase())

	close(r.gate)
	s.Wait()

	assert.Equal(t, link.Invalidated, first.Phase())
	assert.Nil(t, first.Target())
	assert.Equal(t, link.Linked, second.Phase())
	assert.Same(t, second, s.Current())

	evs := s.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, second.ID, evs[0].LinkID)
}

func TestSession_DormantWithoutCounterpart(t *testing.T) {
	r := &gateResolver{gate: openGate(), targets: map[string]*resolve.Target{}}
	s, _ := newTestSession(t, r)

	st, err := s.Cursor(editPath, 1, 6)
	require.NoError(t, err)
	s.Wait()
	assert.True(t, st.Dormant())
	assert.Empty(t, s.Events())

	again, err := s.Cursor(editPath, 1, 8)
	require.NoError(t, err)
	assert.Same(t, st, again)
	assert.Equal(t, int32(1), r.calls.Load())

	_, _, err = s.Edits()
	assert.ErrorIs(t, err, link.ErrClosed)
}

func TestSession_LeavingSignatureInvalidates(t *testing.T) {
	r := &gateResolver{gate: openGate(), targets: map[string]*resolve.Target{
		"b": targetIn(t, headerPath, headerSrc, "b("),
	}}
	s, _ := newTestSession(t, r)

	st, err := s.Cursor(editPath, 3, 6)
	require.NoError(t, err)
	s.Wait()
	s.Events()

	off, err := s.Cursor(editPath, 2, 1)
	require.NoError(t, err)
	assert.Nil(t, off)
	assert.Equal(t, link.Invalidated, st.Phase())
	assert.Equal(t, "cursor left the signature", st.Reason())
	assert.Equal(t, []string{socket.EventInvalidated}, kinds(s.Events()))
}

// arityResolver answers with the target that has the same parameter count,
// standing in for overload resolution.
type arityResolver map[int]*resolve.Target

func (r arityResolver) Resolve(_ context.Context, src *signature.Signature) *resolve.Target {
	return r[src.Function.ArgCount()]
}

func TestSession_OverloadSwitchEndsLink(t *testing.T) {
	const (
		src    = "void f(int a) {}\n\nvoid f(double d, char c) {}\n"
		header = "void f(int a);\nvoid f(double d, char c);\n"
	)
	r := arityResolver{
		1: targetIn(t, headerPath, header, "f(int"),
		2: targetIn(t, headerPath, header, "f(double"),
	}
	ws := &memFiles{files: map[string]string{editPath: src, headerPath: header}}
	s := NewSession("e1", ws, ws.parse, r, NewLatencyTracker(0), nil)
	t.Cleanup(s.Close)

	first, err := s.Cursor(editPath, 1, 6)
	require.NoError(t, err)
	s.Wait()
	require.Equal(t, link.Linked, first.Phase())

	second, err := s.Cursor(editPath, 3, 6)
	require.NoError(t, err)
	s.Wait()
	require.NotSame(t, first, second)
	assert.Equal(t, link.Invalidated, first.Phase())
	assert.Equal(t, "cursor moved to another signature", first.Reason())
	assert.Equal(t, link.Linked, second.Phase())
	assert.Equal(t, []string{socket.EventLinked, socket.EventInvalidated, socket.EventLinked}, kinds(s.Events()))

	_, edits, err := s.Edits()
	require.NoError(t, err)
	assert.Empty(t, edits)
	assert.Equal(t, header, ws.get(headerPath))
}

func TestSession_EditsAndApply(t *testing.T) {
	r := &gateResolver{gate: openGate(), targets: map[string]*resolve.Target{
		"b": targetIn(t, headerPath, headerSrc, "b("),
	}}
	s, ws := newTestSession(t, r)

	_, err := s.Cursor(editPath, 3, 6)
	require.NoError(t, err)
	s.Wait()

	ws.set(editPath, "void a(int x) {}\n\nvoid b(int z, int y) {}\n")
	st, edits, err := s.Edits()
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "int z, int y", edits[0].New)

	_, _, err = s.Apply(false)
	require.NoError(t, err)
	assert.Equal(t, link.Applied, st.Phase())
	assert.Equal(t, "void b(int z, int y);\n", ws.get(headerPath))
}

func TestSession_ApplyConflictQueuesNotice(t *testing.T) {
	r := &gateResolver{gate: openGate(), targets: map[string]*resolve.Target{
		"b": targetIn(t, headerPath, headerSrc, "b("),
	}}
	s, ws := newTestSession(t, r)

	_, err := s.Cursor(editPath, 3, 6)
	require.NoError(t, err)
	s.Wait()
	s.Events()

	ws.set(editPath, "void a(int x) {}\n\nvoid b(int z, int y) {}\n")
	ws.set(headerPath, "void b(int y,  int z);\n")

	st, _, err := s.Apply(true)
	assert.ErrorIs(t, err, link.ErrTargetChanged)
	assert.Equal(t, link.Aborted, st.Phase())
	assert.Equal(t, "void b(int y,  int z);\n", ws.get(headerPath))

	evs := s.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, socket.EventNotice, evs[0].Kind)
	assert.Equal(t, "target changed, could not apply", evs[0].Message)
}

func TestSession_EventQueueBounded(t *testing.T) {
	s, _ := newTestSession(t, &gateResolver{gate: openGate()})
	for i := 0; i < maxQueuedEvents+10; i++ {
		s.Notify(editPath, i, "n")
	}
	evs := s.Events()
	require.Len(t, evs, maxQueuedEvents)
	assert.Equal(t, 10, evs[0].Offset)
}

func TestSession_CloseCancelsPending(t *testing.T) {
	r := &gateResolver{gate: make(chan struct{})}
	s, _ := newTestSession(t, r)

	st, err := s.Cursor(editPath, 1, 6)
	require.NoError(t, err)
	s.Close()
	assert.Equal(t, link.Invalidated, st.Phase())
	assert.Equal(t, "editor closed", st.Reason())
}
