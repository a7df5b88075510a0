package sigdiff

import (
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// layout is the target parameter list cut into per-parameter chunks and the
// text between them. A chunk runs from the parameter's first byte through
// any comments that follow it up to the separating comma.
type layout struct {
	chunks   []textedit.Span
	leading  string
	seps     []string
	trailing string
}

// sep returns the separator to write before parameter i+1, reusing the
// target's own separators and repeating the last one for added parameters.
func (l layout) sep(i int) string {
	switch {
	case i < len(l.seps):
		return l.seps[i]
	case len(l.seps) > 0:
		return l.seps[len(l.seps)-1]
	default:
		return ", "
	}
}

func layoutOf(s *signature.Signature) layout {
	var l layout
	params := s.Function.Params
	if len(params) == 0 {
		return l
	}
	src := s.File.Src
	rparen := s.Declarator.RParen
	for i, p := range params {
		end := rparen
		if i+1 < len(params) {
			next := params[i+1].Extent.Start
			end = next
			if c := lastComma(src[p.Extent.End:next]); c >= 0 {
				end = p.Extent.End + c
			}
		}
		for end > p.Extent.End && isSpace(src[end-1]) {
			end--
		}
		l.chunks = append(l.chunks, textedit.Span{Start: p.Extent.Start, End: end})
	}

	text := func(start, end int) string { return s.File.Text(textedit.Span{Start: start, End: end}) }
	l.leading = text(s.Declarator.LParen+1, l.chunks[0].Start)
	for i := 0; i+1 < len(l.chunks); i++ {
		l.seps = append(l.seps, text(l.chunks[i].End, l.chunks[i+1].Start))
	}
	l.trailing = text(l.chunks[len(l.chunks)-1].End, rparen)
	return l
}

// lastComma returns the index of the last comma in b outside comments, or -1.
func lastComma(b []byte) int {
	at := -1
	for i := 0; i < len(b); i++ {
		switch {
		case b[i] == ',':
			at = i
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			i += 2
			for i+1 < len(b) && !(b[i] == '*' && b[i+1] == '/') {
				i++
			}
			i++
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				i++
			}
		}
	}
	return at
}
