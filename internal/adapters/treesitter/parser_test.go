//go:build !lean

package treesitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/sigsync/internal/domain/cppast"
)

type found struct {
	owner cppast.Node
	fn    *cppast.FunctionDeclarator
	scope []string
}

// functions collects every function declarator owned by a definition or a
// single-declarator declaration, keyed by name.
func functions(f *cppast.File) map[string]found {
	out := make(map[string]found)
	cppast.Walk(f.Nodes, func(n cppast.Node, scope []string) bool {
		switch d := n.(type) {
		case *cppast.FunctionDefinition:
			if fn := cppast.FunctionOf(d.Declarator); fn != nil {
				out[fn.ID.Name] = found{owner: d, fn: fn, scope: scope}
			}
			return false
		case *cppast.SimpleDeclaration:
			for _, decl := range d.Declarators {
				if fn := cppast.FunctionOf(decl); fn != nil {
					out[fn.ID.Name] = found{owner: d, fn: fn, scope: scope}
				}
			}
			return false
		}
		return true
	})
	return out
}

func parse(t *testing.T, src string) *cppast.File {
	t.Helper()
	f, err := NewParser().Parse("test.cpp", []byte(src))
	require.NoError(t, err)
	return f
}

func TestParser_ClassMembers(t *testing.T) {
	f := parse(t, `namespace app {
class Widget {
public:
    int resize(int w, int h) const;
    void reset(void);
};
}
`)
	fns := functions(f)

	resize, ok := fns["resize"]
	require.True(t, ok)
	assert.Equal(t, []string{"app", "Widget"}, resize.scope)
	assert.True(t, resize.fn.HasParens())
	assert.True(t, resize.fn.HasCV("const"))
	require.Len(t, resize.fn.Params, 2)
	assert.Equal(t, "w", resize.fn.Params[0].Name)
	assert.Equal(t, "int w", f.Text(resize.fn.Params[0].Decl))
	assert.Equal(t, "h", resize.fn.Params[1].Name)
	assert.Equal(t, "int", f.Text(resize.owner.(*cppast.SimpleDeclaration).ReturnType))
	assert.Equal(t, "int w, int h", f.Text(resize.fn.Interior()))
	assert.Equal(t, ") const", string(f.Src[resize.fn.RParen:resize.fn.End()]))

	reset, ok := fns["reset"]
	require.True(t, ok)
	require.Len(t, reset.fn.Params, 1)
	assert.False(t, reset.fn.Params[0].Named())

	require.NotEmpty(t, f.Types)
	assert.Equal(t, "app::Widget", f.Types[0].QualifiedName())
	assert.Equal(t, cppast.TypeClass, f.Types[0].Kind)
}

func TestParser_OutOfLineDefinition(t *testing.T) {
	f := parse(t, `int app::Widget::resize(int w, int h) const {
    return w * h;
}
`)
	def, ok := functions(f)["resize"]
	require.True(t, ok)
	d := def.owner.(*cppast.FunctionDefinition)

	assert.Equal(t, []string{"app", "Widget"}, def.fn.ID.Qualifier)
	assert.Equal(t, "resize", f.Text(def.fn.ID.NameSpan))
	assert.Equal(t, "int", f.Text(d.ReturnType))
	require.NotNil(t, d.Body)
	assert.Nil(t, d.Init)

	var names []string
	for _, u := range d.Uses {
		names = append(names, u.Name)
		assert.Greater(t, u.Span.Start, def.fn.RParen)
	}
	assert.Equal(t, []string{"w", "h"}, names)
}

func TestParser_ConstructorInitializer(t *testing.T) {
	f := parse(t, `Widget::Widget(int size) : size_(size) {}
`)
	def, ok := functions(f)["Widget"]
	require.True(t, ok)
	d := def.owner.(*cppast.FunctionDefinition)

	require.NotNil(t, d.Init)
	assert.Equal(t, cppast.NoSpan, d.ReturnType)
	require.Len(t, d.Uses, 1)
	assert.Equal(t, "size", d.Uses[0].Name)
}

func TestParser_LambdaParametersShadowUses(t *testing.T) {
	f := parse(t, `int twice(int a) {
  auto g = [a](int b) { return a + b; };
  auto h = [](int a) { return a; };
  return g(1) + h(a);
}
`)
	def, ok := functions(f)["twice"]
	require.True(t, ok)
	d := def.owner.(*cppast.FunctionDefinition)

	var names []string
	for _, u := range d.Uses {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"g", "a", "a", "h", "g", "h", "a"}, names)
}

func TestParser_ParameterShapes(t *testing.T) {
	f := parse(t, `const char *name(int /*unused*/, double scale = 1.0, ...);
`)
	fn, ok := functions(f)["name"]
	require.True(t, ok)

	assert.Equal(t, "const char *", f.Text(fn.owner.(*cppast.SimpleDeclaration).ReturnType))
	require.Len(t, fn.fn.Params, 3)

	unnamed := fn.fn.Params[0]
	assert.False(t, unnamed.Named())
	assert.Equal(t, "int", f.Text(unnamed.Decl))

	scale := fn.fn.Params[1]
	assert.Equal(t, "scale", scale.Name)
	assert.Equal(t, "double scale", f.Text(scale.Decl))
	assert.True(t, scale.HasDefault())
	assert.Equal(t, "1.0", scale.Default)

	assert.True(t, fn.fn.Params[2].Variadic)
}

func TestParser_TrailingReturnAndExceptionSpec(t *testing.T) {
	f := parse(t, `auto area(int w) noexcept -> long;
`)
	fn, ok := functions(f)["area"]
	require.True(t, ok)

	assert.Equal(t, "noexcept", f.Text(fn.fn.Exception))
	assert.Equal(t, "long", f.Text(fn.fn.Trailing))
	assert.Equal(t, fn.fn.Trailing.End, fn.fn.End())
}

func TestParser_PreprocessorGuardsAreTransparent(t *testing.T) {
	f := parse(t, `#ifndef A_H
#define A_H
namespace a {
void g(int x);
}
#endif
`)
	g, ok := functions(f)["g"]
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, g.scope)
}

func TestParser_TypeAliases(t *testing.T) {
	f := parse(t, `namespace n {
typedef unsigned long size_type;
using Name = const char *;
struct Point { int x; };
}
`)
	names := make(map[string]cppast.TypeKind)
	for _, td := range f.Types {
		names[td.QualifiedName()] = td.Kind
	}
	assert.Equal(t, cppast.TypeAlias, names["n::size_type"])
	assert.Equal(t, cppast.TypeAlias, names["n::Name"])
	assert.Equal(t, cppast.TypeStruct, names["n::Point"])
}

func TestParser_MultipleDeclaratorsKept(t *testing.T) {
	f := parse(t, "int a, f(int);\n")
	require.Len(t, f.Nodes, 1)
	decl, ok := f.Nodes[0].(*cppast.SimpleDeclaration)
	require.True(t, ok)
	assert.Len(t, decl.Declarators, 2)
}

func TestParser_ExtensionFilter(t *testing.T) {
	p := NewParser()
	assert.True(t, p.Supports("a/b/widget.HPP"))
	assert.True(t, p.Supports("widget.cc"))
	assert.False(t, p.Supports("main.go"))

	p.SetExtensions([]string{"cpp"})
	assert.True(t, p.Supports("x.cpp"))
	assert.False(t, p.Supports("x.h"))
	assert.True(t, p.Available())
}
