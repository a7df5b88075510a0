package textedit

import "sort"

// Lines converts between byte offsets and 1-based line/column positions.
// Columns count bytes, starting at 1.
type Lines struct {
	starts []int
	size   int
}

// NewLines indexes the line starts of src.
func NewLines(src []byte) *Lines {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lines{starts: starts, size: len(src)}
}

// Count returns the number of lines.
func (l *Lines) Count() int { return len(l.starts) }

// Offset returns the byte offset for a 1-based line and column. Columns past
// the end of the line clamp to the line end.
func (l *Lines) Offset(line, col int) (int, bool) {
	if line < 1 || line > len(l.starts) || col < 1 {
		return 0, false
	}
	start := l.starts[line-1]
	end := l.size
	if line < len(l.starts) {
		end = l.starts[line] - 1
	}
	off := start + col - 1
	if off > end {
		off = end
	}
	return off, true
}

// Position returns the 1-based line and column of a byte offset.
func (l *Lines) Position(off int) (line, col int) {
	if off < 0 {
		off = 0
	}
	if off > l.size {
		off = l.size
	}
	i := sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > off }) - 1
	return i + 1, off - l.starts[i] + 1
}

// LineStart returns the byte offset where a 1-based line begins.
func (l *Lines) LineStart(line int) int {
	if line < 1 {
		return 0
	}
	if line > len(l.starts) {
		return l.size
	}
	return l.starts[line-1]
}

// LineEnd returns the byte offset of the newline ending a 1-based line, or
// the buffer size for the last line.
func (l *Lines) LineEnd(line int) int {
	if line >= len(l.starts) {
		return l.size
	}
	if line < 1 {
		line = 1
	}
	return l.starts[line] - 1
}
