package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corey/sigsync/internal/domain/cppast"
)

func table() *Table {
	t := NewTable()
	t.AddDecls([]cppast.TypeDecl{
		{Name: "Widget", Scope: []string{"ui"}},
		{Name: "Size", Scope: []string{"ui", "Widget"}},
		{Name: "Size", Scope: []string{"geo"}},
		{Name: "Point", Scope: []string{"geo"}},
	})
	return t
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "const char*", Normalize("const  char *"))
	assert.Equal(t, "std::vector<int>&", Normalize("std :: vector < int > &"))
	assert.Equal(t, "unsigned long", Normalize("unsigned\n\tlong"))
	assert.Equal(t, "int", Normalize("int /* count */"))
}

func TestLookup_InnermostFirst(t *testing.T) {
	tab := table()

	q, ok := tab.Lookup([]string{"Size"}, false, []string{"ui", "Widget"})
	assert.True(t, ok)
	assert.Equal(t, "ui::Widget::Size", q)

	q, ok = tab.Lookup([]string{"Size"}, false, []string{"geo"})
	assert.True(t, ok)
	assert.Equal(t, "geo::Size", q)

	_, ok = tab.Lookup([]string{"Size"}, false, nil)
	assert.False(t, ok)

	q, ok = tab.Lookup([]string{"geo", "Point"}, true, []string{"ui"})
	assert.True(t, ok)
	assert.Equal(t, "geo::Point", q)
}

func TestCanonical(t *testing.T) {
	tab := table()
	assert.Equal(t, "const ui::Widget::Size&", Canonical(tab, "const Size &", []string{"ui", "Widget"}))
	assert.Equal(t, "const ui::Widget::Size&", Canonical(tab, "const Widget::Size&", []string{"ui"}))
	assert.Equal(t, "std::string", Canonical(tab, "std::string", []string{"ui"}), "unknown names pass through")
	assert.Equal(t, "geo::Point*", Canonical(tab, "::geo::Point *", nil))
}

func TestRewriteInPlace_MinimizesForTarget(t *testing.T) {
	tab := table()

	// Written inside the class, used at namespace scope.
	assert.Equal(t, "Widget::Size", RewriteInPlace(tab, "Size", []string{"ui", "Widget"}, []string{"ui"}))
	// Written at global scope, used inside the class.
	assert.Equal(t, "Size", RewriteInPlace(tab, "ui::Widget::Size", nil, []string{"ui", "Widget"}))
	// geo::Size is shadowed inside ui::Widget.
	assert.Equal(t, "geo::Size", RewriteInPlace(tab, "Size", []string{"geo"}, []string{"ui", "Widget"}))
	assert.Equal(t, "std::vector<geo::Point>", RewriteInPlace(tab, "std::vector<Point>", []string{"geo"}, []string{"ui"}))
}

func TestMinimize_NeedsGlobalQualifier(t *testing.T) {
	tab := NewTable("a::T", "a::b::T", "a::b::a::T")
	parts, global := Minimize(tab, "a::T", []string{"a", "b"})
	assert.Equal(t, []string{"a", "T"}, parts)
	assert.True(t, global)
}

func TestOverlay_DoesNotModifyBase(t *testing.T) {
	base := NewTable("x::A")
	over := base.Overlay([]cppast.TypeDecl{{Name: "B", Scope: []string{"x"}}})
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, over.Len())
}

func TestRewriteInPlace_KeepsSpacing(t *testing.T) {
	tab := table()
	assert.Equal(t, "const Widget::Size &", RewriteInPlace(tab, "const Size &", []string{"ui", "Widget"}, []string{"ui"}))
	assert.Equal(t, "unsigned  long *", RewriteInPlace(tab, "unsigned  long *", nil, []string{"ui"}))
	assert.Equal(t, "std::vector< geo::Point >", RewriteInPlace(tab, "std::vector< Point >", []string{"geo"}, nil))
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "operator==", Pretty("operator =="))
	assert.Equal(t, "geo::Shape::operator<<", Pretty("geo::Shape::operator <<"))
	assert.Equal(t, "ns::f", Pretty("ns :: f"))
	assert.Equal(t, "operator new", Pretty("operator  new"))
}
