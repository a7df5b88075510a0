package textedit

import (
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// Preview renders edits against src as a unified diff, one hunk per group of
// edits touching adjacent lines. No context lines are emitted.
func Preview(path string, src []byte, edits []Edit) ([]byte, error) {
	if err := Validate(src, edits); err != nil {
		return nil, err
	}
	lines := NewLines(src)

	type group struct {
		first, last int
		edits       []Edit
	}
	var groups []*group
	for _, e := range Sorted(edits) {
		first, _ := lines.Position(e.Span.Start)
		last := first
		if !e.Span.IsEmpty() {
			last, _ = lines.Position(e.Span.End - 1)
		}
		if n := len(groups); n > 0 && first <= groups[n-1].last+1 {
			g := groups[n-1]
			if last > g.last {
				g.last = last
			}
			g.edits = append(g.edits, e)
			continue
		}
		groups = append(groups, &group{first: first, last: last, edits: []Edit{e}})
	}

	fd := &diff.FileDiff{OrigName: "a/" + path, NewName: "b/" + path}
	lineDelta := 0
	for _, g := range groups {
		start := lines.LineStart(g.first)
		end := lines.LineEnd(g.last)
		orig := src[start:end]
		updated, err := Apply(orig, Shift(g.edits, -start))
		if err != nil {
			return nil, err
		}

		origLines := strings.Split(string(orig), "\n")
		newLines := strings.Split(string(updated), "\n")

		var body strings.Builder
		for _, l := range origLines {
			body.WriteString("-" + l + "\n")
		}
		for _, l := range newLines {
			body.WriteString("+" + l + "\n")
		}

		fd.Hunks = append(fd.Hunks, &diff.Hunk{
			OrigStartLine: int32(g.first),
			OrigLines:     int32(len(origLines)),
			NewStartLine:  int32(g.first + lineDelta),
			NewLines:      int32(len(newLines)),
			Body:          []byte(body.String()),
		})
		lineDelta += len(newLines) - len(origLines)
	}
	if len(fd.Hunks) == 0 {
		return nil, nil
	}
	return diff.PrintFileDiff(fd)
}
