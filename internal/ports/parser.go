package ports

import "github.com/corey/sigsync/internal/domain/cppast"

// Parser turns C++ source into the cppast model. The concrete implementation
// (tree-sitter) lives in internal/adapters/treesitter.
type Parser interface {
	// Parse converts a whole file. Syntax errors are not an error: the parser
	// recovers and the broken region yields fewer nodes.
	Parse(path string, source []byte) (*cppast.File, error)

	// SupportsExtension reports whether files with this extension (leading
	// dot included) are C or C++ sources the parser handles.
	SupportsExtension(ext string) bool
}
