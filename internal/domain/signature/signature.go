// Package signature locates C++ function signatures in parsed files and
// describes them as immutable values.
package signature

import (
	"regexp"
	"strings"

	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// Kind tells which side of a declaration/definition pair a signature is.
type Kind int

const (
	KindDeclaration Kind = iota
	KindDefinition
)

func (k Kind) String() string {
	if k == KindDefinition {
		return "definition"
	}
	return "declaration"
}

// Signature is a located function signature. It is never mutated; the next
// locate produces a new one.
type Signature struct {
	File       *cppast.File
	Kind       Kind
	Owner      cppast.Node // *cppast.FunctionDefinition or *cppast.SimpleDeclaration
	Declarator *cppast.FunctionDeclarator
	Function   Function

	// Span runs from the start of the owning declaration to the end of the
	// trailing return type, exception spec, cv-qualifiers or ")".
	Span textedit.Span

	// Scope is the lexical scope of the declaration. FuncScope adds the
	// declarator's own qualifier (a::b::f declares f in a::b).
	Scope     []string
	FuncScope []string
}

// Function is the symbol-level view of a signature.
type Function struct {
	Name       string
	ReturnType string        // raw text, empty for constructors and friends
	ReturnSpan textedit.Span // cppast.NoSpan when absent
	Params     []Param
	Const      bool
	Volatile   bool
	VoidList   bool // written as (void)
}

// ArgCount returns the number of declared parameters.
func (f Function) ArgCount() int { return len(f.Params) }

// Param is a parameter with its type text split around the name.
type Param struct {
	cppast.Param

	Type   string // prefix + suffix, the name removed
	Prefix string // text before the name (or the whole declaration when unnamed)
	Suffix string // text after the name, such as array bounds

	// CommentName is the identifier of a /*name*/ comment directly after the
	// parameter, if any. CommentSpan covers the comment from "/*" to "*/"
	// and is NoSpan when there is none.
	CommentName string
	CommentSpan textedit.Span
}

// NameSpan returns the span of the declarator name, the identifier a link
// tracks while the user edits.
func (s *Signature) NameSpan() textedit.Span { return s.Declarator.ID.NameSpan }

// Text returns the signature's source text.
func (s *Signature) Text() string { return s.File.Text(s.Span) }

// QualifiedName returns FuncScope::Name.
func (s *Signature) QualifiedName() string {
	return cppast.JoinScope(append(append([]string(nil), s.FuncScope...), s.Function.Name))
}

// Definition returns the owning definition, or nil for declarations.
func (s *Signature) Definition() *cppast.FunctionDefinition {
	d, _ := s.Owner.(*cppast.FunctionDefinition)
	return d
}

var commentName = regexp.MustCompile(`^\s*(/\*\s*([A-Za-z_][A-Za-z0-9_]*)\s*\*/)`)

func newFunction(f *cppast.File, fd *cppast.FunctionDeclarator, ret textedit.Span) Function {
	fn := Function{
		Name:       fd.ID.Name,
		ReturnSpan: cppast.NoSpan,
		Const:      fd.HasCV("const"),
		Volatile:   fd.HasCV("volatile"),
	}
	switch {
	case fd.Trailing.Start >= 0:
		fn.ReturnSpan = fd.Trailing
	case ret.Start >= 0 && !ret.IsEmpty():
		fn.ReturnSpan = ret
	}
	if fn.ReturnSpan.Start >= 0 {
		fn.ReturnType = f.Text(fn.ReturnSpan)
	}

	for i, p := range fd.Params {
		next := fd.RParen
		if i+1 < len(fd.Params) {
			next = fd.Params[i+1].Extent.Start
		}
		fn.Params = append(fn.Params, newParam(f, p, next))
	}
	if len(fn.Params) == 1 {
		p := fn.Params[0]
		if !p.Named() && !p.HasDefault() && strings.TrimSpace(p.Type) == "void" {
			fn.Params = nil
			fn.VoidList = true
		}
	}
	return fn
}

func newParam(f *cppast.File, p cppast.Param, next int) Param {
	out := Param{Param: p, CommentSpan: cppast.NoSpan}
	if p.Named() {
		out.Prefix = f.Text(textedit.Span{Start: p.Decl.Start, End: p.NameSpan.Start})
		out.Suffix = f.Text(textedit.Span{Start: p.NameSpan.End, End: p.Decl.End})
	} else {
		out.Prefix = f.Text(p.Decl)
	}
	out.Type = strings.TrimSpace(out.Prefix) + strings.TrimSpace(out.Suffix)

	tail := textedit.Span{Start: p.Decl.End, End: next}
	text := f.Text(tail)
	if m := commentName.FindStringSubmatchIndex(text); m != nil {
		out.CommentName = text[m[4]:m[5]]
		out.CommentSpan = textedit.Span{Start: tail.Start + m[2], End: tail.Start + m[3]}
	}
	return out
}
