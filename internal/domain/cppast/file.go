package cppast

import (
	"strings"

	"github.com/corey/sigsync/internal/domain/textedit"
)

// TypeKind classifies a named type.
type TypeKind int

const (
	TypeClass TypeKind = iota
	TypeStruct
	TypeUnion
	TypeEnum
	TypeAlias // typedef or using
)

// TypeDecl is a named type declared somewhere in a file.
type TypeDecl struct {
	Name  string
	Scope []string // enclosing namespaces and classes, outermost first
	Kind  TypeKind
}

// QualifiedName joins Scope and Name with "::".
func (t TypeDecl) QualifiedName() string {
	if len(t.Scope) == 0 {
		return t.Name
	}
	return JoinScope(t.Scope) + "::" + t.Name
}

// File is one parsed translation unit.
type File struct {
	Path  string
	Src   []byte
	Nodes []Node
	Types []TypeDecl

	lines *textedit.Lines
}

// NewFile assembles a File. A File is read-only once built and may be shared
// between goroutines.
func NewFile(path string, src []byte, nodes []Node, types []TypeDecl) *File {
	return &File{Path: path, Src: src, Nodes: nodes, Types: types, lines: textedit.NewLines(src)}
}

// Lines returns the offset/position index of the source.
func (f *File) Lines() *textedit.Lines {
	if f.lines == nil {
		f.lines = textedit.NewLines(f.Src)
	}
	return f.lines
}

// Text returns the source covered by span.
func (f *File) Text(span textedit.Span) string { return span.Text(f.Src) }

// PathAt returns the nodes whose span contains off, outermost first.
func (f *File) PathAt(off int) []Node {
	var path []Node
	nodes := f.Nodes
	for {
		var next Node
		for _, n := range nodes {
			if n.Span().Contains(off) {
				next = n
				break
			}
		}
		if next == nil {
			return path
		}
		path = append(path, next)
		nodes = next.Children()
	}
}

// Walk visits every node depth-first, parents before children, passing the
// names of the enclosing named scopes. Returning false from fn skips the
// node's children.
func Walk(nodes []Node, fn func(n Node, scope []string) bool) {
	walk(nodes, nil, fn)
}

func walk(nodes []Node, scope []string, fn func(Node, []string) bool) {
	for _, n := range nodes {
		if !fn(n, scope) {
			continue
		}
		inner := scope
		if s, ok := n.(*Scope); ok && s.Name != "" {
			inner = append(scope[:len(scope):len(scope)], s.Name)
		}
		walk(n.Children(), inner, fn)
	}
}

// ScopeNames returns the names of the scopes on path, skipping anonymous
// namespaces.
func ScopeNames(path []Node) []string {
	var names []string
	for _, n := range path {
		if s, ok := n.(*Scope); ok && s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// JoinScope renders a scope chain as "a::b::c".
func JoinScope(parts []string) string { return strings.Join(parts, "::") }
