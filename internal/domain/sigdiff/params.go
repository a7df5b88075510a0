package sigdiff

import (
	"strings"

	"github.com/corey/sigsync/internal/domain/paramatch"
	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// keys returns the canonical parameter types of s.
func (d *differ) keys(s *signature.Signature) []string {
	out := make([]string, len(s.Function.Params))
	for i, p := range s.Function.Params {
		out[i] = rewrite.Canonical(d.Types, p.Type, s.FuncScope)
	}
	return out
}

func matchable(params []signature.Param, keys []string) []paramatch.Param {
	out := make([]paramatch.Param, len(params))
	for i, p := range params {
		out[i] = paramatch.Param{Name: p.Name, Type: keys[i]}
	}
	return out
}

// effectiveName is the declared name, or the /*name*/ comment of an unnamed
// parameter.
func effectiveName(p signature.Param) string {
	if p.Name == "" {
		return p.CommentName
	}
	return p.Name
}

func sameParams(a []signature.Param, ak []string, b []signature.Param, bk []string, defaults bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if ak[i] != bk[i] || effectiveName(a[i]) != effectiveName(b[i]) {
			return false
		}
		if defaults && rewrite.Normalize(a[i].Default) != rewrite.Normalize(b[i].Default) {
			return false
		}
	}
	return true
}

func (d *differ) params() []textedit.Edit {
	orig, live, target := d.Orig.Function.Params, d.Live.Function.Params, d.Target.Function.Params
	origKeys, liveKeys, targetKeys := d.keys(d.Orig), d.keys(d.Live), d.keys(d.Target)

	if sameParams(orig, origKeys, live, liveKeys, true) && d.Orig.Function.VoidList == d.Live.Function.VoidList {
		return nil
	}
	if sameParams(target, targetKeys, live, liveKeys, d.Target.Kind == signature.KindDeclaration) && d.Target.Function.VoidList == d.Live.Function.VoidList {
		return nil
	}

	corr := paramatch.Match(matchable(orig, origKeys), matchable(live, liveKeys))
	lay := layoutOf(d.Target)
	renames := make(map[string]string)

	parts := make([]string, len(live))
	for k, cur := range live {
		o, ok := corr.Orig(k)
		if !ok || o >= len(target) {
			parts[k] = d.synthesize(cur)
			continue
		}
		text, name := d.carry(target[o], lay.chunks[o], orig[o], origKeys[o], cur, liveKeys[k])
		parts[k] = text
		if target[o].Named() && name != "" && name != target[o].Name {
			renames[target[o].Name] = name
		}
	}

	var b strings.Builder
	switch {
	case len(parts) == 0 && d.Live.Function.VoidList:
		b.WriteString("void")
	case len(parts) > 0:
		b.WriteString(lay.leading)
		for i, p := range parts {
			if i > 0 {
				b.WriteString(lay.sep(i - 1))
			}
			b.WriteString(p)
		}
		b.WriteString(lay.trailing)
	}

	fd := d.Target.Declarator
	interior := fd.Interior()
	old := d.Target.File.Text(interior)
	if b.String() == old {
		return nil
	}
	edits := []textedit.Edit{textedit.Replace(interior, old, b.String())}
	return append(edits, d.useSites(renames)...)
}

// carry rebuilds the target parameter t bound to the live parameter cur,
// keeping every part of its text that did not change. It returns the new
// text and the name the parameter ends up with.
func (d *differ) carry(t signature.Param, chunk textedit.Span, orig signature.Param, origKey string, cur signature.Param, curKey string) (string, string) {
	f := d.Target.File
	text := f.Text(chunk)
	rel := func(off int) int { return off - chunk.Start }

	head := text[:rel(t.Decl.End)]
	mid := ""
	rest := text[rel(t.Decl.End):]
	if t.HasDefault() {
		mid = text[rel(t.Decl.End):rel(t.DefaultSpan.End)]
		rest = text[rel(t.DefaultSpan.End):]
	}

	// The target keeps its own name unless it still used the one the user
	// just replaced. A /*name*/ comment is never touched.
	name := t.Name
	if cur.Name != orig.Name && t.Name == orig.Name && !(t.Name == "" && t.CommentName != "") {
		name = cur.Name
	}
	if !t.Named() && name != "" && strings.ContainsAny(t.Type, "[(") {
		name = ""
	}

	switch {
	case curKey != origKey:
		prefix := rewrite.RewriteInPlace(d.Types, cur.Prefix, d.Live.FuncScope, d.Target.FuncScope)
		suffix := rewrite.RewriteInPlace(d.Types, cur.Suffix, d.Live.FuncScope, d.Target.FuncScope)
		head = joinName(prefix, name) + suffix
	case name != t.Name:
		head = rename(head, t, chunk.Start, name)
	}

	if d.Target.Kind == signature.KindDeclaration && rewrite.Normalize(cur.Default) != rewrite.Normalize(orig.Default) {
		switch {
		case !cur.HasDefault():
			mid = ""
		case t.HasDefault():
			mid = f.Text(textedit.Span{Start: t.Decl.End, End: t.DefaultSpan.Start}) + cur.Default
		case t.CommentSpan.Start >= 0 && t.CommentSpan.End <= chunk.End:
			// The default goes after the /*name*/ comment, not before it.
			cut := rel(t.CommentSpan.End)
			mid = text[rel(t.Decl.End):cut] + " = " + cur.Default
			rest = text[cut:]
		default:
			mid = " = " + cur.Default
		}
	}
	return head + mid + rest, name
}

// synthesize writes a parameter the target never had.
func (d *differ) synthesize(cur signature.Param) string {
	if cur.Variadic {
		return "..."
	}
	prefix := rewrite.RewriteInPlace(d.Types, cur.Prefix, d.Live.FuncScope, d.Target.FuncScope)
	suffix := rewrite.RewriteInPlace(d.Types, cur.Suffix, d.Live.FuncScope, d.Target.FuncScope)
	text := joinName(prefix, cur.Name) + suffix
	if d.Target.Kind == signature.KindDeclaration && cur.HasDefault() {
		text += " = " + cur.Default
	}
	return text
}

// useSites renames references to renamed parameters inside a target
// definition's initializers and body.
func (d *differ) useSites(renames map[string]string) []textedit.Edit {
	def := d.Target.Definition()
	if def == nil || len(renames) == 0 {
		return nil
	}
	var out []textedit.Edit
	for _, u := range def.Uses {
		to, ok := renames[u.Name]
		if !ok || u.Span.Start <= d.Target.Declarator.RParen {
			continue
		}
		out = append(out, textedit.Replace(u.Span, u.Name, to))
	}
	return out
}

// joinName appends a declarator name to type text, keeping the author's
// spacing: "int " + "x", "char *" + "x", "int" + " x".
func joinName(prefix, name string) string {
	if name == "" {
		return strings.TrimRight(prefix, " \t\r\n")
	}
	if prefix == "" {
		return name
	}
	switch prefix[len(prefix)-1] {
	case ' ', '\t', '\n', '*', '&':
		return prefix + name
	}
	return prefix + " " + name
}

// rename splices name into head, the declaration text of t starting at
// base. An empty name removes the identifier and, when nothing but a
// separator follows it, the whitespace before it.
func rename(head string, t signature.Param, base int, name string) string {
	if !t.Named() {
		return joinName(head, name)
	}
	s, e := t.NameSpan.Start-base, t.NameSpan.End-base
	if name == "" {
		after := strings.TrimLeft(head[e:], " \t\r\n")
		if after == "" || strings.ContainsAny(after[:1], ",=)") {
			for s > 0 && isSpace(head[s-1]) {
				s--
			}
		}
	}
	return head[:s] + name + head[e:]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }
