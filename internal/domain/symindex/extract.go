package symindex

import (
	"github.com/corey/sigsync/internal/domain/cppast"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/ports"
)

// Extract collects the function and type symbols of a parsed file.
// Functions are found by running the signature locator on every declarator
// name, so the index sees exactly what the locator would.
func Extract(f *cppast.File) (funcs []ports.FunctionSymbol, types []ports.TypeSymbol) {
	cppast.Walk(f.Nodes, func(n cppast.Node, _ []string) bool {
		var decls []cppast.Node
		switch d := n.(type) {
		case *cppast.FunctionDefinition:
			decls = []cppast.Node{d.Declarator}
		case *cppast.SimpleDeclaration:
			if len(d.Declarators) == 1 {
				decls = d.Declarators
			}
		case *cppast.Scope:
			return true
		default:
			return false
		}
		for _, decl := range decls {
			fd := cppast.FunctionOf(decl)
			if fd == nil {
				continue
			}
			if sig := signature.LocateOffset(f, fd.ID.NameSpan.Start); sig != nil {
				funcs = append(funcs, SymbolOf(sig))
			}
		}
		return false
	})

	for _, t := range f.Types {
		types = append(types, ports.TypeSymbol{Name: t.Name, Scope: t.Scope, Kind: typeKindName(t.Kind)})
	}
	return funcs, types
}

// SymbolOf describes a located signature as an index symbol.
func SymbolOf(sig *signature.Signature) ports.FunctionSymbol {
	fn := sig.Function
	sym := ports.FunctionSymbol{
		Name:       fn.Name,
		Scope:      sig.FuncScope,
		Lexical:    sig.Scope,
		Role:       ports.RoleDeclaration,
		ReturnType: fn.ReturnType,
		ParamTypes: make([]string, len(fn.Params)),
		ParamNames: make([]string, len(fn.Params)),
		Const:      fn.Const,
		Volatile:   fn.Volatile,
		Path:       sig.File.Path,
		Offset:     sig.NameSpan().Start,
	}
	if sig.Kind == signature.KindDefinition {
		sym.Role = ports.RoleDefinition
	}
	for i, p := range fn.Params {
		sym.ParamTypes[i] = p.Type
		sym.ParamNames[i] = p.Name
	}
	sym.Line, sym.Column = sig.File.Lines().Position(sym.Offset)
	return sym
}

func typeKindName(k cppast.TypeKind) string {
	switch k {
	case cppast.TypeClass:
		return "class"
	case cppast.TypeStruct:
		return "struct"
	case cppast.TypeUnion:
		return "union"
	case cppast.TypeEnum:
		return "enum"
	default:
		return "alias"
	}
}
