//go:build lean

package treesitter

import tree_sitter "github.com/tree-sitter/go-tree-sitter"

// builtinLanguage returns nil in lean builds; the grammar is loaded from
// cpp.so / cpp.dylib on the configured grammar paths.
//
// Build with: go build -tags lean ./cmd/sigsync/
func builtinLanguage() *tree_sitter.Language { return nil }
