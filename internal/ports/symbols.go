package ports

import "strings"

// FunctionRole tells whether a function symbol has a body.
type FunctionRole string

const (
	RoleDeclaration FunctionRole = "declaration"
	RoleDefinition  FunctionRole = "definition"
)

// FunctionSymbol is one function declaration or definition as recorded in
// the project index. Types are kept as written; they are canonicalized at
// query time against the project's type table.
type FunctionSymbol struct {
	Name string `json:"name"`

	// Scope is the function scope: the lexical scope plus the declarator
	// qualifier. Lexical is where the declaration itself appears.
	Scope   []string `json:"scope"`
	Lexical []string `json:"lexical"`

	Role       FunctionRole `json:"role"`
	ReturnType string       `json:"return_type,omitempty"`
	ParamTypes []string     `json:"param_types"`
	ParamNames []string     `json:"param_names"`
	Const      bool         `json:"const,omitempty"`
	Volatile   bool         `json:"volatile,omitempty"`

	Path   string `json:"path"`
	Line   int    `json:"line"`   // 1-based line of the declarator name
	Column int    `json:"column"` // 1-based byte column of the declarator name
	Offset int    `json:"offset"`
}

// QualifiedName returns Scope::Name.
func (s *FunctionSymbol) QualifiedName() string {
	if len(s.Scope) == 0 {
		return s.Name
	}
	return strings.Join(s.Scope, "::") + "::" + s.Name
}

// ArgCount returns the number of parameters.
func (s *FunctionSymbol) ArgCount() int { return len(s.ParamTypes) }

// TypeSymbol is a named type (class, struct, union, enum or alias).
type TypeSymbol struct {
	Name  string   `json:"name"`
	Scope []string `json:"scope"`
	Kind  string   `json:"kind"`
}

// FileSymbols is the index entry for one source file.
type FileSymbols struct {
	Path      string           `json:"path"`
	Hash      string           `json:"hash"` // sha256 of the content that was indexed
	ModTime   int64            `json:"mod_time"`
	Functions []FunctionSymbol `json:"functions"`
	Types     []TypeSymbol     `json:"types"`
}
