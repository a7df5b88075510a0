// Package rewrite is the name and type rewriting service: it canonicalizes
// type text against a table of known types and re-renders it with the
// shortest names that still resolve from another scope.
//
// Names the table does not know (standard library types, macros, template
// parameters) pass through as written.
package rewrite

import (
	"strings"
	"sync"

	"github.com/corey/sigsync/internal/domain/cppast"
)

// Table is a set of fully qualified type names. Safe for concurrent use.
type Table struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

// NewTable returns a table holding the given fully qualified names.
func NewTable(names ...string) *Table {
	t := &Table{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		t.names[n] = struct{}{}
	}
	return t
}

// Add records a type declared in scope.
func (t *Table) Add(scope []string, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[qualify(scope, []string{name})] = struct{}{}
}

// AddDecls records every type of a parsed file.
func (t *Table) AddDecls(decls []cppast.TypeDecl) {
	for _, d := range decls {
		t.Add(d.Scope, d.Name)
	}
}

// Len returns the number of known types.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}

func (t *Table) has(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.names[name]
	return ok
}

// Overlay returns a table with the names of t plus extra. t is not modified.
func (t *Table) Overlay(extra ...[]cppast.TypeDecl) *Table {
	t.mu.RLock()
	out := &Table{names: make(map[string]struct{}, len(t.names))}
	for n := range t.names {
		out.names[n] = struct{}{}
	}
	t.mu.RUnlock()
	for _, decls := range extra {
		out.AddDecls(decls)
	}
	return out
}

// Lookup resolves a name as written in scope, searching from the innermost
// enclosing scope outward. It returns the fully qualified name.
func (t *Table) Lookup(parts []string, global bool, scope []string) (string, bool) {
	if t == nil || len(parts) == 0 {
		return "", false
	}
	if global {
		q := qualify(nil, parts)
		return q, t.has(q)
	}
	for i := len(scope); i >= 0; i-- {
		q := qualify(scope[:i], parts)
		if t.has(q) {
			return q, true
		}
	}
	return "", false
}

// Canonical normalizes whitespace and replaces every name the table knows
// by its fully qualified form, resolved from scope.
func Canonical(t *Table, typ string, scope []string) string {
	toks := tokenize(typ)
	return render(substitute(toks, func(c chain) []token {
		q, ok := t.Lookup(c.parts, c.global, scope)
		if !ok {
			return nil
		}
		return nameTokens(strings.Split(q, "::"), false)
	}))
}

// RewriteInPlace renders text, written in scope from, for use in scope to:
// each known name becomes the shortest suffix of its qualified name that
// still resolves to the same type from to. Only the names change, the
// spacing and comments of text are kept.
func RewriteInPlace(t *Table, text string, from, to []string) string {
	toks := tokenize(text)
	var b strings.Builder
	pos := 0
	for _, c := range chains(toks) {
		q, ok := t.Lookup(c.parts, c.global, from)
		if !ok {
			continue
		}
		b.WriteString(text[pos:toks[c.start].start])
		b.WriteString(render(nameTokens(Minimize(t, q, to))))
		pos = toks[c.end-1].end
	}
	b.WriteString(text[pos:])
	return b.String()
}

// Minimize returns the shortest form of the fully qualified name q that
// resolves to q from scope. The bool is true when only a leading "::" makes
// it unambiguous.
func Minimize(t *Table, q string, scope []string) ([]string, bool) {
	parts := strings.Split(q, "::")
	for i := len(parts) - 1; i >= 0; i-- {
		if got, ok := t.Lookup(parts[i:], false, scope); ok && got == q {
			return parts[i:], false
		}
	}
	return parts, true
}

// Pretty renders a function name for display: "operator ==" and
// "ns :: f" become "operator==" and "ns::f".
func Pretty(name string) string { return Normalize(name) }

// substitute replaces each name chain for which fn returns tokens.
func substitute(toks []token, fn func(chain) []token) []token {
	var out []token
	pos := 0
	for _, c := range chains(toks) {
		repl := fn(c)
		if repl == nil {
			continue
		}
		out = append(out, toks[pos:c.start]...)
		out = append(out, repl...)
		pos = c.end
	}
	return append(out, toks[pos:]...)
}

func nameTokens(parts []string, global bool) []token {
	var out []token
	if global {
		out = append(out, token{kind: tokScope, text: "::"})
	}
	for i, p := range parts {
		if i > 0 {
			out = append(out, token{kind: tokScope, text: "::"})
		}
		out = append(out, token{kind: tokWord, text: p})
	}
	return out
}

func qualify(scope, parts []string) string {
	all := make([]string, 0, len(scope)+len(parts))
	all = append(all, scope...)
	all = append(all, parts...)
	return strings.Join(all, "::")
}
