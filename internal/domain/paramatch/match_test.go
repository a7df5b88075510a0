package paramatch

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func params(pairs ...string) []Param {
	var out []Param
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Param{Type: pairs[i], Name: pairs[i+1]})
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		orig, cur []Param
		curToOrig []int
	}{
		{
			name:      "unchanged",
			orig:      params("int", "a", "int", "b"),
			cur:       params("int", "a", "int", "b"),
			curToOrig: []int{0, 1},
		},
		{
			name:      "swap",
			orig:      params("int", "a", "int", "b"),
			cur:       params("int", "b", "int", "a"),
			curToOrig: []int{1, 0},
		},
		{
			name:      "append",
			orig:      params("int", "a"),
			cur:       params("int", "a", "double", "c"),
			curToOrig: []int{0, Unbound},
		},
		{
			name:      "insert at front",
			orig:      params("int", "a"),
			cur:       params("double", "c", "int", "a"),
			curToOrig: []int{Unbound, 0},
		},
		{
			name:      "rename in place",
			orig:      params("int", "a"),
			cur:       params("int", "x"),
			curToOrig: []int{0},
		},
		{
			name:      "retype in place",
			orig:      params("int", "a", "int", "b"),
			cur:       params("long", "a", "int", "b"),
			curToOrig: []int{0, 1},
		},
		{
			name:      "remove middle",
			orig:      params("int", "a", "int", "b", "int", "c"),
			cur:       params("int", "a", "int", "c"),
			curToOrig: []int{0, 2},
		},
		{
			name:      "renamed parameter at a new index is new",
			orig:      params("int", "a", "char", "b"),
			cur:       params("char", "b", "int", "z"),
			curToOrig: []int{1, Unbound},
		},
		{
			name:      "name collision resolved by type",
			orig:      params("int", "v", "double", "v"),
			cur:       params("double", "v", "int", "v"),
			curToOrig: []int{1, 0},
		},
		{
			name:      "name collision with ambiguous types falls back to position",
			orig:      params("int", "v", "int", "v"),
			cur:       params("int", "v", "int", "v"),
			curToOrig: []int{0, 1},
		},
		{
			name:      "collision only on the current side",
			orig:      params("int", "a", "char", "c"),
			cur:       params("char", "a", "int", "a"),
			curToOrig: []int{Unbound, 0},
		},
		{
			name:      "unnamed parameters bind by position",
			orig:      params("int", "", "char", ""),
			cur:       params("int", "", "char", "", "bool", "flag"),
			curToOrig: []int{0, 1, Unbound},
		},
		{
			name:      "all removed",
			orig:      params("int", "a"),
			cur:       nil,
			curToOrig: []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Match(tt.orig, tt.cur)
			assert.Equal(t, tt.curToOrig, c.CurToOrig)
			assertInjective(t, c)
		})
	}
}

func TestCorrespondence_Helpers(t *testing.T) {
	c := Match(params("int", "a", "int", "b"), params("int", "b", "int", "a", "int", "n"))
	o, ok := c.Orig(0)
	require.True(t, ok)
	assert.Equal(t, 1, o)
	assert.True(t, c.IsNew(2))
	assert.True(t, c.Reordered())

	assert.False(t, Match(params("int", "a"), params("long", "a")).Reordered())
}

func assertInjective(t *testing.T, c Correspondence) {
	t.Helper()
	for k, o := range c.CurToOrig {
		if o == Unbound {
			continue
		}
		require.Equal(t, k, c.OrigToCur[o], "cur %d -> orig %d not mirrored", k, o)
	}
	for o, k := range c.OrigToCur {
		if k == Unbound {
			continue
		}
		require.Equal(t, o, c.CurToOrig[k], "orig %d -> cur %d not mirrored", o, k)
	}
}

func TestMatch_RandomInputsStayInjectiveAndDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"", "a", "b", "c", "a"}
	types := []string{"int", "char", "int", "double"}
	gen := func() []Param {
		n := rng.Intn(6)
		out := make([]Param, n)
		for i := range out {
			out[i] = Param{Name: names[rng.Intn(len(names))], Type: types[rng.Intn(len(types))]}
		}
		return out
	}

	for i := 0; i < 500; i++ {
		orig, cur := gen(), gen()
		c := Match(orig, cur)
		assertInjective(t, c)
		assert.Equal(t, c, Match(orig, cur), fmt.Sprintf("case %d", i))

		// A name bound in the first pass is unique on both sides.
		for k, o := range c.CurToOrig {
			if o == Unbound || orig[o].Name == "" || orig[o].Name != cur[k].Name {
				continue
			}
			if count(orig, orig[o].Name) == 1 && count(cur, cur[k].Name) == 1 {
				continue
			}
			// Otherwise the pair came from the type pass or by position.
			assert.True(t, orig[o].Type == cur[k].Type || o == k, "case %d: %v %v", i, orig, cur)
		}
	}
}

func count(ps []Param, name string) int {
	n := 0
	for _, p := range ps {
		if p.Name == name {
			n++
		}
	}
	return n
}
