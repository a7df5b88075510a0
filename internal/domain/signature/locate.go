package signature

import (
	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// Locate finds the signature around a 1-based line and column.
func Locate(f *cppast.File, line, col int) *Signature {
	off, ok := f.Lines().Offset(line, col)
	if !ok {
		return nil
	}
	return LocateOffset(f, off)
}

// LocateOffset walks the node path at off from the innermost node outward.
// Bodies and constructor initializer lists stop the walk: editing inside a
// function never yields a signature. The first function definition, or the
// first simple declaration with a single declarator, owns the signature.
func LocateOffset(f *cppast.File, off int) *Signature {
	path := f.PathAt(off)
	for i := len(path) - 1; i >= 0; i-- {
		switch n := path[i].(type) {
		case *cppast.CompoundStatement, *cppast.CtorInitializer:
			return nil
		case *cppast.FunctionDefinition:
			return build(f, path[:i], n, KindDefinition, n.Declarator, n.ReturnType)
		case *cppast.SimpleDeclaration:
			if len(n.Declarators) != 1 {
				return nil
			}
			return build(f, path[:i], n, KindDeclaration, n.Declarators[0], n.ReturnType)
		case *cppast.Scope:
			return nil
		case *cppast.FunctionDeclarator, *cppast.NestedDeclarator, *cppast.DeclaratorID:
		}
	}
	return nil
}

// LocateAt re-locates a known symbol at its declared position and checks
// that the declarator found there actually declares name.
func LocateAt(f *cppast.File, line, col int, name string) *Signature {
	sig := Locate(f, line, col)
	if sig == nil || sig.Function.Name != name {
		return nil
	}
	return sig
}

func build(f *cppast.File, outer []cppast.Node, owner cppast.Node, kind Kind, decl cppast.Node, ret textedit.Span) *Signature {
	fd := cppast.FunctionOf(decl)
	if fd == nil || fd.ID == nil || fd.ID.Name == "" || !fd.HasParens() {
		return nil
	}

	scope := cppast.ScopeNames(outer)
	funcScope := append([]string(nil), scope...)
	if fd.ID.Global {
		funcScope = nil
	}
	funcScope = append(funcScope, fd.ID.Qualifier...)

	return &Signature{
		File:       f,
		Kind:       kind,
		Owner:      owner,
		Declarator: fd,
		Function:   newFunction(f, fd, ret),
		Span:       textedit.Span{Start: owner.Span().Start, End: fd.End()},
		Scope:      scope,
		FuncScope:  funcScope,
	}
}
