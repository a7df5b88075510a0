//go:build !lean

package treesitter

// The default build compiles tree-sitter-cpp in. Building with -tags lean
// drops it and relies on the runtime loader instead.

import (
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	ts_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
)

// langPtr wraps a Language() call that returns unsafe.Pointer.
func langPtr(p unsafe.Pointer) *tree_sitter.Language {
	return tree_sitter.NewLanguage(p)
}

func builtinLanguage() *tree_sitter.Language {
	return langPtr(ts_cpp.Language())
}
