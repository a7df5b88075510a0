package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/corey/sigsync/internal/domain/link"
	"github.com/corey/sigsync/internal/domain/resolve"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
)

var (
	// ErrNoSignature means the position is not on a function signature.
	ErrNoSignature = errors.New("no function signature at position")

	// ErrNoCounterpart means the signature has no unambiguous counterpart.
	ErrNoCounterpart = errors.New("no matching declaration or definition")

	// ErrSignatureChanged means the live text no longer holds the signature
	// located in the original text.
	ErrSignatureChanged = errors.New("signature under the cursor is a different function")
)

// LocateResult is a signature and its counterpart.
type LocateResult struct {
	Source *signature.Signature
	Target *resolve.Target // nil without a counterpart
}

// Locate finds the signature at a 1-based position of the live text of path
// and resolves its counterpart.
func (a *App) Locate(ctx context.Context, path string, line, col int) (*LocateResult, error) {
	f, err := a.parseLive(path)
	if err != nil {
		return nil, err
	}
	sig := signature.Locate(f, line, col)
	if sig == nil {
		return nil, ErrNoSignature
	}
	return &LocateResult{Source: sig, Target: a.Resolver.Resolve(ctx, sig)}, nil
}

// SyncOptions controls a one-shot sync.
type SyncOptions struct {
	DryRun bool // compute and preview, write nothing
	Jump   bool // report where the target's name ended up
}

// SyncResult is the outcome of a one-shot sync.
type SyncResult struct {
	Source  *signature.Signature
	Target  *resolve.Target
	Edits   []textedit.Edit
	Preview []byte // unified diff, DryRun only
	Applied bool

	// Line and Column locate the target's name after a Jump.
	Line, Column int

	Notices []string
}

type noticeList struct{ msgs *[]string }

func (n noticeList) Notify(path string, offset int, message string) {
	*n.msgs = append(*n.msgs, fmt.Sprintf("%s@%d: %s", filepath.Base(path), offset, message))
}

// Sync runs the whole link lifecycle once: the signature at line:col of
// original (the text before editing) is resolved against the index, the
// signature at the same position in the live text of path is diffed against
// it and the edits are committed to the counterpart.
func (a *App) Sync(ctx context.Context, path string, line, col int, original []byte, opts SyncOptions) (*SyncResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	of, err := a.Parser.Parse(abs, original)
	if err != nil {
		return nil, fmt.Errorf("parse original: %w", err)
	}
	orig := signature.Locate(of, line, col)
	if orig == nil {
		return nil, ErrNoSignature
	}

	st := link.New(orig, 1)
	_ = st.BeginResolve()
	target := a.Resolver.Resolve(ctx, orig)
	if err := st.Link(target); err != nil {
		return nil, err
	}
	if target == nil {
		recordLink(ctx, OutcomeDormant)
		return nil, ErrNoCounterpart
	}
	res := &SyncResult{Source: orig, Target: target}

	lf, err := a.parseLive(abs)
	if err != nil {
		return nil, err
	}
	live := signature.Locate(lf, line, col)
	if !st.Track(live) {
		recordLink(ctx, OutcomeInvalidated)
		return res, ErrSignatureChanged
	}
	res.Edits, err = st.ComputeEdits(live)
	if err != nil {
		return res, err
	}

	if opts.DryRun {
		text, err := a.Workspace.Snapshot(target.Sig.File.Path)
		if err != nil {
			return res, err
		}
		rel, err := filepath.Rel(a.Config.ProjectRoot, target.Sig.File.Path)
		if err != nil {
			rel = target.Sig.File.Path
		}
		res.Preview, err = textedit.Preview(rel, text, res.Edits)
		return res, err
	}

	applier := link.NewApplier(a.Workspace, noticeList{&res.Notices}, a.log.With("component", "link"))
	if err := applier.Apply(st, res.Edits, opts.Jump); err != nil {
		recordLink(ctx, OutcomeAborted)
		return res, err
	}
	recordLink(ctx, OutcomeApplied)
	res.Applied = true
	if opts.Jump {
		a.mu.Lock()
		res.Line, res.Column = a.lastReveal.Line, a.lastReveal.Column
		a.mu.Unlock()
	}
	return res, nil
}
