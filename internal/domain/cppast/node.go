// Package cppast is the small C++ syntax model the signature engine works on.
//
// It is a closed set of node kinds: scopes, function definitions, simple
// declarations, the declarator chain (function, nested and id declarators)
// and the two boundaries the locator refuses to cross (compound statements
// and constructor initializer lists). Everything else a C++ parser produces
// is dropped by the adapter that builds a File.
package cppast

import "github.com/corey/sigsync/internal/domain/textedit"

// Node is implemented by every kind in this package and by nothing else.
// Consumers switch on the concrete type.
type Node interface {
	Span() textedit.Span
	Children() []Node
	node()
}

// ScopeKind distinguishes the lexical scopes that contribute to names.
type ScopeKind int

const (
	ScopeNamespace ScopeKind = iota
	ScopeClass
	ScopeStruct
	ScopeUnion
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeNamespace:
		return "namespace"
	case ScopeClass:
		return "class"
	case ScopeStruct:
		return "struct"
	case ScopeUnion:
		return "union"
	default:
		return "unknown"
	}
}

// Scope is a namespace or class body. Anonymous namespaces have an empty Name.
// A nested namespace definition (namespace a::b) is split into one Scope per
// component.
type Scope struct {
	Kind   ScopeKind
	Name   string
	Extent textedit.Span
	Body   []Node
}

// FunctionDefinition is a function with a body (or = default / = delete).
type FunctionDefinition struct {
	Extent     textedit.Span
	ReturnType textedit.Span // leading specifiers + ptr operators; empty for ctors
	Declarator Node          // outermost declarator; see FunctionOf
	Init       *CtorInitializer
	Body       *CompoundStatement
	Uses       []Ident // plain identifiers referenced in Init and Body
}

// SimpleDeclaration is a declaration statement or member declaration with
// zero or more declarators.
type SimpleDeclaration struct {
	Extent      textedit.Span
	ReturnType  textedit.Span
	Declarators []Node
}

// FunctionDeclarator is a declarator followed by a parameter list.
type FunctionDeclarator struct {
	Extent textedit.Span
	ID     *DeclaratorID // nil when the inner declarator is not a plain name

	// LParen and RParen are the offsets of the parentheses, -1 when the
	// parser had to invent them.
	LParen int
	RParen int
	Params []Param

	CV        []Token // const / volatile after the parameter list
	Exception textedit.Span
	Trailing  textedit.Span // type after "->"
}

// NestedDeclarator is a pointer, reference or parenthesized declarator
// wrapping another declarator.
type NestedDeclarator struct {
	Extent   textedit.Span
	Operator string // "*", "&", "&&" or "(" for parentheses
	Inner    Node
}

// DeclaratorID is the name being declared, possibly qualified.
type DeclaratorID struct {
	Extent    textedit.Span
	Name      string
	NameSpan  textedit.Span
	Qualifier []string // a::b::f -> [a b]
	Global    bool     // ::f
}

// CompoundStatement is a function body.
type CompoundStatement struct {
	Extent textedit.Span
}

// CtorInitializer is a constructor member initializer list.
type CtorInitializer struct {
	Extent textedit.Span
}

// Token is a keyword-like token with its text.
type Token struct {
	Text string
	Span textedit.Span
}

// Ident is an identifier occurrence.
type Ident struct {
	Name string
	Span textedit.Span
}

// Param is one entry of a parameter list. Decl covers the type and
// declarator without any default value. NameSpan is empty (Start == End == -1)
// for unnamed parameters.
type Param struct {
	Extent      textedit.Span
	Decl        textedit.Span
	Name        string
	NameSpan    textedit.Span
	Default     string
	DefaultSpan textedit.Span
	Variadic    bool // a bare "..."
}

// NoSpan is the zero value for absent optional spans.
var NoSpan = textedit.Span{Start: -1, End: -1}

// Named reports whether the parameter declares a name.
func (p Param) Named() bool { return p.NameSpan.Start >= 0 }

// HasDefault reports whether the parameter carries a default argument.
func (p Param) HasDefault() bool { return p.DefaultSpan.Start >= 0 }

func (n *Scope) Span() textedit.Span              { return n.Extent }
func (n *FunctionDefinition) Span() textedit.Span { return n.Extent }
func (n *SimpleDeclaration) Span() textedit.Span  { return n.Extent }
func (n *FunctionDeclarator) Span() textedit.Span { return n.Extent }
func (n *NestedDeclarator) Span() textedit.Span   { return n.Extent }
func (n *DeclaratorID) Span() textedit.Span       { return n.Extent }
func (n *CompoundStatement) Span() textedit.Span  { return n.Extent }
func (n *CtorInitializer) Span() textedit.Span    { return n.Extent }

func (n *Scope) Children() []Node { return n.Body }

func (n *FunctionDefinition) Children() []Node {
	out := make([]Node, 0, 3)
	if n.Declarator != nil {
		out = append(out, n.Declarator)
	}
	if n.Init != nil {
		out = append(out, n.Init)
	}
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

func (n *SimpleDeclaration) Children() []Node { return n.Declarators }

func (n *FunctionDeclarator) Children() []Node {
	if n.ID == nil {
		return nil
	}
	return []Node{n.ID}
}

func (n *NestedDeclarator) Children() []Node {
	if n.Inner == nil {
		return nil
	}
	return []Node{n.Inner}
}

func (n *DeclaratorID) Children() []Node      { return nil }
func (n *CompoundStatement) Children() []Node { return nil }
func (n *CtorInitializer) Children() []Node   { return nil }

func (*Scope) node()              {}
func (*FunctionDefinition) node() {}
func (*SimpleDeclaration) node()  {}
func (*FunctionDeclarator) node() {}
func (*NestedDeclarator) node()   {}
func (*DeclaratorID) node()       {}
func (*CompoundStatement) node()  {}
func (*CtorInitializer) node()    {}

// FunctionOf unwraps nested declarators down to the function declarator
// that directly names the entity. It returns nil for declarators that do not
// declare a function (variables, function pointers).
func FunctionOf(d Node) *FunctionDeclarator {
	for d != nil {
		switch n := d.(type) {
		case *FunctionDeclarator:
			if n.ID == nil {
				return nil
			}
			return n
		case *NestedDeclarator:
			d = n.Inner
		default:
			return nil
		}
	}
	return nil
}

// HasParens reports whether both parentheses of the parameter list are real
// tokens in the source.
func (n *FunctionDeclarator) HasParens() bool { return n.LParen >= 0 && n.RParen > n.LParen }

// Interior is the span strictly between the parentheses.
func (n *FunctionDeclarator) Interior() textedit.Span {
	return textedit.Span{Start: n.LParen + 1, End: n.RParen}
}

// End returns the end of the signature shape: trailing return type, else
// exception specification, else last cv-qualifier, else the closing paren.
func (n *FunctionDeclarator) End() int {
	switch {
	case n.Trailing.Start >= 0:
		return n.Trailing.End
	case n.Exception.Start >= 0:
		return n.Exception.End
	case len(n.CV) > 0:
		return n.CV[len(n.CV)-1].Span.End
	default:
		return n.RParen + 1
	}
}

// HasCV reports whether the declarator carries qualifier q.
func (n *FunctionDeclarator) HasCV(q string) bool {
	for _, t := range n.CV {
		if t.Text == q {
			return true
		}
	}
	return false
}
