//go:build !lean

package link_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/sigsync/internal/adapters/treesitter"
	"github.com/corey/sigsync/internal/domain/link"
	"github.com/corey/sigsync/internal/domain/resolve"
	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
)

type memWorkspace struct {
	mu      sync.Mutex
	files   map[string]string
	applied int
	reveals []int
}

func newWorkspace(files map[string]string) *memWorkspace {
	return &memWorkspace{files: files}
}

func (w *memWorkspace) Snapshot(path string) ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	text, ok := w.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(text), nil
}

func (w *memWorkspace) Apply(path string, edits []textedit.Edit) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	out, err := textedit.ApplyString(w.files[path], edits)
	if err != nil {
		return err
	}
	w.files[path] = out
	w.applied++
	return nil
}

func (w *memWorkspace) Reveal(_ string, offset int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reveals = append(w.reveals, offset)
}

func (w *memWorkspace) text(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[path]
}

type notices struct{ messages []string }

func (n *notices) Notify(_ string, _ int, message string) { n.messages = append(n.messages, message) }

func locate(t *testing.T, path, src, marker string) *signature.Signature {
	t.Helper()
	f, err := treesitter.NewParser().Parse(path, []byte(src))
	require.NoError(t, err)
	i := strings.Index(src, marker)
	require.GreaterOrEqual(t, i, 0, "marker %q", marker)
	sig := signature.LocateOffset(f, i)
	require.NotNil(t, sig, marker)
	return sig
}

const (
	srcPath = "/p/foo.cpp"
	dstPath = "/p/foo.h"
	origSrc = "void foo(int a, int b) {}\n"
	liveSrc = "void foo(int b, int a) {}\n"
	header  = "#pragma once\nvoid foo(int a, int b);\n"
)

func linked(t *testing.T) *link.State {
	t.Helper()
	s := link.New(locate(t, srcPath, origSrc, "foo"), 1)
	require.NoError(t, s.BeginResolve())
	target := locate(t, dstPath, header, "foo")
	require.NoError(t, s.Link(&resolve.Target{Sig: target, InitialText: target.Text(), Types: rewrite.NewTable()}))
	return s
}

func TestState_Lifecycle(t *testing.T) {
	s := link.New(locate(t, srcPath, origSrc, "foo"), 3)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, uint64(3), s.Generation)
	assert.Equal(t, "foo", s.Name)
	assert.Equal(t, "void foo(int a, int b)", s.SourceText)
	assert.Equal(t, link.Unresolved, s.Phase())

	_, err := s.ComputeEdits(locate(t, srcPath, liveSrc, "foo"))
	assert.ErrorIs(t, err, link.ErrNotLinked)

	require.NoError(t, s.BeginResolve())
	assert.Error(t, s.BeginResolve())
	target := locate(t, dstPath, header, "foo")
	require.NoError(t, s.Link(&resolve.Target{Sig: target, InitialText: target.Text()}))
	assert.Equal(t, link.Linked, s.Phase())
	assert.Same(t, target, s.Target().Sig)

	assert.True(t, s.Invalidate("cursor left"))
	assert.Equal(t, link.Invalidated, s.Phase())
	assert.Equal(t, "cursor left", s.Reason())
	assert.False(t, s.Dormant())
	assert.False(t, s.Invalidate("again"))

	_, err = s.ComputeEdits(locate(t, srcPath, liveSrc, "foo"))
	assert.ErrorIs(t, err, link.ErrClosed)
	assert.ErrorIs(t, s.Link(nil), link.ErrClosed)
}

func TestState_NoCounterpartEndsLink(t *testing.T) {
	s := link.New(locate(t, srcPath, origSrc, "foo"), 1)
	require.NoError(t, s.BeginResolve())
	require.NoError(t, s.Link(nil))
	assert.Equal(t, link.Invalidated, s.Phase())
	assert.True(t, s.Phase().Final())
	assert.True(t, s.Dormant())
}

func TestState_Track(t *testing.T) {
	s := linked(t)
	assert.True(t, s.Track(locate(t, srcPath, liveSrc, "foo")))
	assert.Equal(t, link.Linked, s.Phase())

	assert.False(t, s.Track(locate(t, srcPath, "void bar(int b, int a) {}\n", "bar")))
	assert.Equal(t, link.Invalidated, s.Phase())
	assert.Equal(t, "tracked name changed", s.Reason())
}

func TestState_TrackOverloadInvalidates(t *testing.T) {
	s := linked(t)
	src := origSrc + "\nvoid foo(double d) {}\n"
	other := locate(t, srcPath, src, "foo(double")

	edits, err := s.ComputeEdits(other)
	require.NoError(t, err)
	assert.Empty(t, edits)

	assert.False(t, s.Track(other))
	assert.Equal(t, link.Invalidated, s.Phase())
	assert.Equal(t, "cursor moved to another signature", s.Reason())
}

func TestState_TrackNilInvalidates(t *testing.T) {
	s := linked(t)
	assert.False(t, s.Track(nil))
	assert.Equal(t, "cursor left the signature", s.Reason())
}

func TestApplier_Commits(t *testing.T) {
	ws := newWorkspace(map[string]string{srcPath: liveSrc, dstPath: header})
	s := linked(t)

	edits, err := s.ComputeEdits(locate(t, srcPath, liveSrc, "foo"))
	require.NoError(t, err)
	require.Len(t, edits, 1)

	require.NoError(t, link.NewApplier(ws, nil, nil).Apply(s, edits, true))
	assert.Equal(t, "#pragma once\nvoid foo(int b, int a);\n", ws.text(dstPath))
	assert.Equal(t, link.Applied, s.Phase())
	assert.Equal(t, []int{strings.Index(header, "foo")}, ws.reveals)

	assert.ErrorIs(t, link.NewApplier(ws, nil, nil).Apply(s, edits, false), link.ErrClosed)
	assert.Equal(t, 1, ws.applied)
}

func TestApplier_RejectsChangedTarget(t *testing.T) {
	ws := newWorkspace(map[string]string{srcPath: liveSrc, dstPath: header})
	s := linked(t)
	edits, err := s.ComputeEdits(locate(t, srcPath, liveSrc, "foo"))
	require.NoError(t, err)

	// Someone else touched the header in the meantime.
	changed := strings.Replace(header, "int b", "int  b", 1)
	ws.files[dstPath] = changed

	n := &notices{}
	err = link.NewApplier(ws, n, nil).Apply(s, edits, true)
	assert.ErrorIs(t, err, link.ErrTargetChanged)
	assert.Equal(t, changed, ws.text(dstPath))
	assert.Zero(t, ws.applied)
	assert.Empty(t, ws.reveals)
	assert.Equal(t, []string{"target changed, could not apply"}, n.messages)
	assert.Equal(t, link.Aborted, s.Phase())
}

func TestApplier_RejectsShiftedTarget(t *testing.T) {
	ws := newWorkspace(map[string]string{srcPath: liveSrc, dstPath: "// moved\n" + header})
	s := linked(t)
	edits, err := s.ComputeEdits(locate(t, srcPath, liveSrc, "foo"))
	require.NoError(t, err)

	err = link.NewApplier(ws, nil, nil).Apply(s, edits, false)
	assert.ErrorIs(t, err, link.ErrTargetChanged)
	assert.Zero(t, ws.applied)
}

func TestApplier_NotLinked(t *testing.T) {
	ws := newWorkspace(map[string]string{})
	s := link.New(locate(t, srcPath, origSrc, "foo"), 1)
	assert.ErrorIs(t, link.NewApplier(ws, nil, nil).Apply(s, nil, false), link.ErrNotLinked)
}

func TestComputeEdits_SameFileTargetAfterSource(t *testing.T) {
	const (
		orig = "void foo(int a, int b);\nvoid foo(int a, int b) {}\n"
		live = "void foo(int b, int a, int c);\nvoid foo(int a, int b) {}\n"
	)
	s := link.New(locate(t, srcPath, orig, "foo"), 1)
	require.NoError(t, s.BeginResolve())
	target := locate(t, srcPath, orig, "foo(int a, int b) {")
	require.Equal(t, signature.KindDefinition, target.Kind)
	require.NoError(t, s.Link(&resolve.Target{Sig: target, InitialText: target.Text(), Types: rewrite.NewTable()}))

	edits, err := s.ComputeEdits(locate(t, srcPath, live, "foo"))
	require.NoError(t, err)

	ws := newWorkspace(map[string]string{srcPath: live})
	require.NoError(t, link.NewApplier(ws, nil, nil).Apply(s, edits, false))
	assert.Equal(t, "void foo(int b, int a, int c);\nvoid foo(int b, int a, int c) {}\n", ws.text(srcPath))
}
