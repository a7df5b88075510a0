// Package resolve finds the other side of a declaration/definition pair.
//
// Every failure here is a quiet "no correspondence": callers get nil and the
// feature stays dormant. Only internal invariant violations are logged above
// debug level.
package resolve

import (
	"context"
	"log/slog"

	"github.com/corey/sigsync/internal/domain/astcache"
	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/symindex"
	"github.com/corey/sigsync/internal/ports"
)

// Target is a resolved counterpart.
type Target struct {
	Sig *signature.Signature

	// InitialText is the target span's text at resolution time, the guard
	// checked again before any edit is applied.
	InitialText string

	// Types is the project type table plus the types of both files.
	Types *rewrite.Table
}

// Resolver looks counterparts up in the project index and re-locates them
// in a fresh parse of the target file.
type Resolver struct {
	index *symindex.Index
	cache *astcache.Cache
	ws    ports.Workspace
	log   *slog.Logger
}

// New creates a resolver. logger may be nil.
func New(index *symindex.Index, cache *astcache.Cache, ws ports.Workspace, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default().With("component", "resolve")
	}
	return &Resolver{index: index, cache: cache, ws: ws, log: logger}
}

// Resolve returns the counterpart of src, or nil.
func (r *Resolver) Resolve(ctx context.Context, src *signature.Signature) *Target {
	if src == nil {
		return nil
	}
	sym := symindex.SymbolOf(src)

	var (
		match ports.FunctionSymbol
		ok    bool
	)
	if src.Kind == signature.KindDefinition {
		match, ok = symindex.Best(r.index.FindMatchingDeclaration(sym))
	} else {
		match, ok = r.index.FindMatchingDefinition(sym)
	}
	if !ok {
		r.log.Debug("no counterpart", "function", src.QualifiedName(), "kind", src.Kind)
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}

	text, err := r.ws.Snapshot(match.Path)
	if err != nil {
		r.log.Debug("read target", "path", match.Path, "err", err)
		return nil
	}
	file, err := r.cache.Get(match.Path, text)
	if err != nil {
		r.log.Debug("parse target", "path", match.Path, "err", err)
		return nil
	}

	target := signature.LocateAt(file, match.Line, match.Column, match.Name)
	if target == nil {
		r.log.Debug("target moved since indexing", "path", match.Path, "line", match.Line, "column", match.Column)
		return nil
	}
	if target.Kind == src.Kind {
		r.log.Warn("counterpart has the same kind as the source",
			"function", src.QualifiedName(), "kind", src.Kind, "path", match.Path)
		return nil
	}
	if !target.Declarator.HasParens() {
		r.log.Warn("counterpart lacks parentheses", "function", src.QualifiedName(), "path", match.Path)
		return nil
	}
	if got, want := target.Function.ArgCount(), src.Function.ArgCount(); got != want {
		r.log.Warn("counterpart argument count disagrees",
			"function", src.QualifiedName(), "source", want, "target", got, "path", match.Path)
		return nil
	}

	return &Target{
		Sig:         target,
		InitialText: target.Text(),
		Types:       r.index.Types().Overlay(src.File.Types, target.File.Types),
	}
}
