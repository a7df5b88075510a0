// Package symindex is the project-wide symbol index: every function
// declaration and definition plus the named types, used to find the other
// side of a declaration/definition pair.
package symindex

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/ports"
)

// Tier ranks how well a candidate matches: lower is better.
type Tier int

const (
	TierExact    Tier = iota // name, argument count and canonical types
	TierArgCount             // name and argument count
	TierName                 // name only
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierArgCount:
		return "arg-count"
	default:
		return "name"
	}
}

// Candidate is a ranked lookup result.
type Candidate struct {
	Symbol ports.FunctionSymbol
	Tier   Tier
}

// Index holds the symbols of every indexed file. Safe for concurrent use.
type Index struct {
	mu     sync.RWMutex
	files  map[string]*ports.FileSymbols
	byName map[string][]*ports.FunctionSymbol
	types  *rewrite.Table
}

// New returns an empty index.
func New() *Index {
	return &Index{
		files:  make(map[string]*ports.FileSymbols),
		byName: make(map[string][]*ports.FunctionSymbol),
		types:  rewrite.NewTable(),
	}
}

// Update replaces the symbols of one file.
func (ix *Index) Update(fs *ports.FileSymbols) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.files[fs.Path] = fs
	ix.rebuildLocked()
}

// UpdateAll replaces the symbols of many files at once.
func (ix *Index) UpdateAll(files []*ports.FileSymbols) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, fs := range files {
		ix.files[fs.Path] = fs
	}
	ix.rebuildLocked()
}

// Remove drops a file.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.files[path]; !ok {
		return
	}
	delete(ix.files, path)
	ix.rebuildLocked()
}

func (ix *Index) rebuildLocked() {
	ix.byName = make(map[string][]*ports.FunctionSymbol)
	types := rewrite.NewTable()
	for _, fs := range ix.files {
		for i := range fs.Functions {
			fn := &fs.Functions[i]
			ix.byName[fn.Name] = append(ix.byName[fn.Name], fn)
		}
		for _, t := range fs.Types {
			types.Add(t.Scope, t.Name)
		}
	}
	ix.types = types
}

// File returns the stored entry for path.
func (ix *Index) File(path string) (*ports.FileSymbols, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	fs, ok := ix.files[path]
	return fs, ok
}

// Paths returns the indexed paths, sorted.
func (ix *Index) Paths() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]string, 0, len(ix.files))
	for p := range ix.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stats returns the number of files and function symbols.
func (ix *Index) Stats() (files, functions int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, list := range ix.byName {
		functions += len(list)
	}
	return len(ix.files), functions
}

// Types returns the project type table.
func (ix *Index) Types() *rewrite.Table {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.types
}

// FindMatchingDeclaration ranks the declarations that could belong to the
// definition def, best first.
func (ix *Index) FindMatchingDeclaration(def ports.FunctionSymbol) []Candidate {
	return ix.find(def, ports.RoleDeclaration)
}

// FindMatchingDefinition returns the definition linked to the declaration
// decl: the only exact match, or failing any exact match, the only
// definition with the same name and argument count.
func (ix *Index) FindMatchingDefinition(decl ports.FunctionSymbol) (ports.FunctionSymbol, bool) {
	var exact, count []Candidate
	for _, c := range ix.find(decl, ports.RoleDefinition) {
		switch c.Tier {
		case TierExact:
			exact = append(exact, c)
		case TierArgCount:
			count = append(count, c)
		}
	}
	switch {
	case len(exact) == 1:
		return exact[0].Symbol, true
	case len(exact) == 0 && len(count) == 1:
		return count[0].Symbol, true
	}
	return ports.FunctionSymbol{}, false
}

// Best picks the unique candidate of the best tier present.
func Best(cands []Candidate) (ports.FunctionSymbol, bool) {
	if len(cands) == 0 {
		return ports.FunctionSymbol{}, false
	}
	best := cands[0].Tier
	n := 0
	for _, c := range cands {
		if c.Tier == best {
			n++
		}
	}
	if n != 1 {
		return ports.FunctionSymbol{}, false
	}
	return cands[0].Symbol, true
}

func (ix *Index) find(q ports.FunctionSymbol, role ports.FunctionRole) []Candidate {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	want := ix.scopeKey(q)
	wantTypes := ix.paramKeys(q)

	var out []Candidate
	for _, sym := range ix.byName[q.Name] {
		if sym.Role != role || (sym.Path == q.Path && sym.Offset == q.Offset) {
			continue
		}
		if ix.scopeKey(*sym) != want {
			continue
		}
		tier := TierName
		if sym.ArgCount() == q.ArgCount() {
			tier = TierArgCount
			if sym.Const == q.Const && sym.Volatile == q.Volatile && slices.Equal(ix.paramKeys(*sym), wantTypes) {
				tier = TierExact
			}
		}
		out = append(out, Candidate{Symbol: *sym, Tier: tier})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		if out[i].Symbol.Path != out[j].Symbol.Path {
			return out[i].Symbol.Path < out[j].Symbol.Path
		}
		return out[i].Symbol.Offset < out[j].Symbol.Offset
	})
	return out
}

// scopeKey resolves the function scope of sym. A declarator qualifier naming
// a known class is looked up from the lexical scope, so a definition of
// Widget::f inside namespace ui::detail still finds ui::Widget.
func (ix *Index) scopeKey(sym ports.FunctionSymbol) string {
	scope := sym.Scope
	if n := len(sym.Lexical); n <= len(scope) && slices.Equal(sym.Lexical, scope[:n]) && n < len(scope) {
		if q, ok := ix.types.Lookup(scope[n:], false, sym.Lexical); ok {
			return q
		}
	}
	return strings.Join(scope, "::")
}

func (ix *Index) paramKeys(sym ports.FunctionSymbol) []string {
	out := make([]string, len(sym.ParamTypes))
	for i, t := range sym.ParamTypes {
		out[i] = rewrite.Canonical(ix.types, t, sym.Scope)
	}
	return out
}
