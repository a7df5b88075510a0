package treesitter

import "errors"

// ErrNoGrammar is returned when no C++ grammar is compiled in or found on
// the grammar search paths.
var ErrNoGrammar = errors.New("no grammar available")
