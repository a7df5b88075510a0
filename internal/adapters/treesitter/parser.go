// Package treesitter parses C and C++ sources with tree-sitter and converts
// the syntax tree into the cppast model the signature engine consumes.
//
// The C++ grammar is compiled in via CGo. Lean builds (-tags lean) carry no
// grammar and load it at runtime from a shared library through purego.
package treesitter

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/sigsync/internal/domain/cppast"
)

// grammarName is the language every supported extension maps to. The C++
// grammar is a superset of what the engine needs from C headers.
const grammarName = "cpp"

// DefaultExtensions are the file extensions parsed when none are configured.
var DefaultExtensions = []string{".h", ".hh", ".hpp", ".hxx", ".c", ".cc", ".cpp", ".cxx", ".ipp", ".inl"}

// Parser converts C++ source files into cppast.Files. It is safe for
// concurrent use; every call gets its own tree-sitter parser.
type Parser struct {
	mu     sync.Mutex
	lang   *tree_sitter.Language
	exts   map[string]bool
	loader *Loader
}

// NewParser creates a parser with the compiled-in C++ grammar, if any.
func NewParser() *Parser {
	p := &Parser{exts: make(map[string]bool)}
	p.lang = builtinLanguage()
	p.SetExtensions(DefaultExtensions)
	return p
}

// SetExtensions replaces the set of extensions the parser accepts.
func (p *Parser) SetExtensions(exts []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exts = make(map[string]bool, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		p.exts[strings.ToLower(ext)] = true
	}
}

// SetGrammarPaths configures runtime loading of the grammar from shared
// libraries in the given directories. Project-local paths should come first.
func (p *Parser) SetGrammarPaths(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loader = NewLoader(paths)
}

// SupportsExtension reports whether files with ext are parsed.
func (p *Parser) SupportsExtension(ext string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exts[strings.ToLower(ext)]
}

// Supports reports whether path has a parsed extension.
func (p *Parser) Supports(path string) bool {
	return p.SupportsExtension(filepath.Ext(path))
}

// Available reports whether a grammar is compiled in or loadable.
func (p *Parser) Available() bool {
	_, err := p.language()
	return err == nil
}

func (p *Parser) language() (*tree_sitter.Language, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lang != nil {
		return p.lang, nil
	}
	if p.loader == nil {
		return nil, fmt.Errorf("grammar %q: %w", grammarName, ErrNoGrammar)
	}
	lang, err := p.loader.Load(grammarName)
	if err != nil {
		return nil, err
	}
	p.lang = lang
	return lang, nil
}

// Parse converts source into a cppast.File. Syntax errors do not fail the
// parse; the affected regions simply produce fewer nodes.
func (p *Parser) Parse(path string, source []byte) (*cppast.File, error) {
	lang, err := p.language()
	if err != nil {
		return nil, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree", path)
	}
	defer tree.Close()

	return convert(path, tree.RootNode(), source), nil
}
