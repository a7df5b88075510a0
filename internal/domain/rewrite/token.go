package rewrite

import "strings"

type tokenKind int

const (
	tokWord tokenKind = iota // identifiers, keywords, numbers
	tokScope                 // ::
	tokPunct
)

type token struct {
	kind       tokenKind
	text       string
	start, end int // byte offsets in the tokenized text
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

// tokenize splits type text into words, "::" and single punctuation bytes.
// Comments are dropped.
func tokenize(s string) []token {
	var out []token
	for i := 0; i < len(s); {
		b := s[i]
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			i++
		case strings.HasPrefix(s[i:], "/*"):
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return out
			}
			i += end + 4
		case strings.HasPrefix(s[i:], "//"):
			end := strings.IndexByte(s[i:], '\n')
			if end < 0 {
				return out
			}
			i += end
		case strings.HasPrefix(s[i:], "::"):
			out = append(out, token{kind: tokScope, text: "::", start: i, end: i + 2})
			i += 2
		case isWordByte(b):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			out = append(out, token{kind: tokWord, text: s[i:j], start: i, end: j})
			i = j
		default:
			out = append(out, token{kind: tokPunct, text: s[i : i+1], start: i, end: i + 1})
			i++
		}
	}
	return out
}

// render joins tokens, with a single space only between two words.
func render(toks []token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && t.kind == tokWord && toks[i-1].kind == tokWord {
			b.WriteByte(' ')
		}
		b.WriteString(t.text)
	}
	return b.String()
}

// Normalize collapses the whitespace of a type or name: "const  char *" and
// "const char*" both become "const char*".
func Normalize(s string) string { return render(tokenize(s)) }

// chain is a run of tokens forming one possibly qualified name:
// [::] word (:: word)*
type chain struct {
	start, end int // token indexes, end exclusive
	global     bool
	parts      []string
}

// chains finds the qualified-name runs in toks. A run that follows a
// template argument list (vector<int>::iterator) is not a name on its own
// and is left alone.
func chains(toks []token) []chain {
	var out []chain
	for i := 0; i < len(toks); {
		start := i
		global := false
		if toks[i].kind == tokScope {
			if i > 0 && toks[i-1].kind == tokPunct && toks[i-1].text == ">" {
				i++
				for i < len(toks) && (toks[i].kind == tokWord || toks[i].kind == tokScope) {
					i++
				}
				continue
			}
			global = true
			i++
		}
		if i >= len(toks) || toks[i].kind != tokWord {
			if !global {
				i++
			}
			continue
		}
		c := chain{start: start, global: global}
		for i < len(toks) && toks[i].kind == tokWord {
			c.parts = append(c.parts, toks[i].text)
			i++
			if i+1 < len(toks) && toks[i].kind == tokScope && toks[i+1].kind == tokWord {
				i++
				continue
			}
			break
		}
		c.end = i
		out = append(out, c)
	}
	return out
}
