package treesitter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Loader opens tree-sitter grammars compiled as shared libraries (.so on
// Linux, .dylib on macOS) with purego, so lean builds need no CGo grammar.
// Loaded languages are cached for the life of the process.
type Loader struct {
	paths []string

	mu      sync.Mutex
	loaded  map[string]*tree_sitter.Language
	handles []uintptr
}

// NewLoader creates a loader searching paths in order; first match wins.
func NewLoader(paths []string) *Loader {
	return &Loader{paths: paths, loaded: make(map[string]*tree_sitter.Language)}
}

// DefaultGrammarPaths returns <root>/.sigsync/grammars then
// ~/.sigsync/grammars.
func DefaultGrammarPaths(projectRoot string) []string {
	var paths []string
	if projectRoot != "" {
		paths = append(paths, filepath.Join(projectRoot, ".sigsync", "grammars"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".sigsync", "grammars"))
	}
	return paths
}

// LibExtension returns the shared library extension for the current platform.
func LibExtension() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// SymbolName returns the exported C constructor of a grammar, e.g.
// tree_sitter_cpp.
func SymbolName(lang string) string {
	return "tree_sitter_" + strings.ReplaceAll(lang, "-", "_")
}

// Find returns the library path for lang, or "" when none exists.
func (l *Loader) Find(lang string) string {
	name := lang + LibExtension()
	for _, dir := range l.paths {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// Load opens the grammar library for lang and returns its language.
func (l *Loader) Load(lang string) (*tree_sitter.Language, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.loaded[lang]; ok {
		return cached, nil
	}

	path := l.Find(lang)
	if path == "" {
		return nil, fmt.Errorf("grammar %q in %v: %w", lang, l.paths, ErrNoGrammar)
	}

	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("grammar %q: dlopen %s: %w", lang, path, err)
	}
	l.handles = append(l.handles, handle)

	sym := SymbolName(lang)
	var ctor func() uintptr
	purego.RegisterLibFunc(&ctor, handle, sym)

	ptr := ctor()
	if ptr == 0 {
		return nil, fmt.Errorf("grammar %q: %s() returned null", lang, sym)
	}

	// ptr is a static TSLanguage* owned by the library, never moved by the GC.
	language := tree_sitter.NewLanguage(*(*unsafe.Pointer)(unsafe.Pointer(&ptr)))
	l.loaded[lang] = language
	return language, nil
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string { return l.paths }
