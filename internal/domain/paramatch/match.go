// Package paramatch pairs the parameters of a signature before and after an
// edit, so renames, retypes, moves and insertions can be told apart.
//
// Passes run in strict priority: unique names, then unique types inside a
// name collision, then same position. A pass never guesses; a parameter it
// cannot pair unambiguously is left for the next pass or left unbound.
package paramatch

// Unbound marks an index with no partner.
const Unbound = -1

// Param is the part of a parameter the matcher looks at. Type should be
// canonical so equal types compare equal.
type Param struct {
	Name string
	Type string
}

// Correspondence is a partial injection between current and original
// parameter indexes, kept in both directions.
type Correspondence struct {
	CurToOrig []int
	OrigToCur []int
}

// Orig returns the original index bound to current index cur.
func (c Correspondence) Orig(cur int) (int, bool) {
	o := c.CurToOrig[cur]
	return o, o != Unbound
}

// IsNew reports whether the current parameter has no original.
func (c Correspondence) IsNew(cur int) bool { return c.CurToOrig[cur] == Unbound }

// Reordered reports whether bound parameters changed relative order or
// position.
func (c Correspondence) Reordered() bool {
	for cur, o := range c.CurToOrig {
		if o != Unbound && o != cur {
			return true
		}
	}
	return false
}

// Match computes the correspondence between orig and cur.
func Match(orig, cur []Param) Correspondence {
	c := Correspondence{
		CurToOrig: fill(len(cur)),
		OrigToCur: fill(len(orig)),
	}
	bind := func(o, k int) {
		c.OrigToCur[o] = k
		c.CurToOrig[k] = o
	}

	origByName := groupByName(orig)
	curByName := groupByName(cur)

	// Names unique on both sides.
	for o, p := range orig {
		if p.Name == "" {
			continue
		}
		origs, curs := origByName[p.Name], curByName[p.Name]
		if len(origs) == 1 && len(curs) == 1 {
			bind(o, curs[0])
		}
	}

	// Inside a name collision, a type unique among the originals that
	// appears on exactly one current parameter.
	for o, p := range orig {
		if p.Name == "" || c.OrigToCur[o] != Unbound {
			continue
		}
		origs, curs := origByName[p.Name], curByName[p.Name]
		if len(origs) < 2 && len(curs) < 2 {
			continue
		}
		if countType(orig, origs, p.Type) != 1 {
			continue
		}
		k, n := Unbound, 0
		for _, i := range curs {
			if cur[i].Type == p.Type {
				k = i
				n++
			}
		}
		if n == 1 && c.CurToOrig[k] == Unbound {
			bind(o, k)
		}
	}

	// Same index, unbound on both sides.
	for i := 0; i < len(orig) && i < len(cur); i++ {
		if c.OrigToCur[i] == Unbound && c.CurToOrig[i] == Unbound {
			bind(i, i)
		}
	}
	return c
}

func fill(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = Unbound
	}
	return out
}

func groupByName(params []Param) map[string][]int {
	out := make(map[string][]int)
	for i, p := range params {
		if p.Name != "" {
			out[p.Name] = append(out[p.Name], i)
		}
	}
	return out
}

func countType(params []Param, idx []int, typ string) int {
	n := 0
	for _, i := range idx {
		if params[i].Type == typ {
			n++
		}
	}
	return n
}
