package textedit

import (
	"bytes"
	"fmt"
)

// Validate checks that edits fit into src, do not overlap, and that every
// edit carrying an expected text finds it in src.
func Validate(src []byte, edits []Edit) error {
	sorted := Sorted(edits)
	prevEnd := 0
	for i, e := range sorted {
		if !e.Span.InBounds(len(src)) {
			return fmt.Errorf("%w: %s in %d bytes", ErrOutOfRange, e.Span, len(src))
		}
		if i > 0 && e.Span.Start < prevEnd {
			return fmt.Errorf("%w: %s starts before %d", ErrOverlap, e.Span, prevEnd)
		}
		if e.Old != "" && e.Span.Text(src) != e.Old {
			return fmt.Errorf("%w: %s holds %q, want %q", ErrMismatch, e.Span, e.Span.Text(src), e.Old)
		}
		if e.Span.End > prevEnd {
			prevEnd = e.Span.End
		}
	}
	return nil
}

// Apply splices edits into a copy of src. Either all edits apply or none do.
func Apply(src []byte, edits []Edit) ([]byte, error) {
	if err := Validate(src, edits); err != nil {
		return nil, err
	}
	sorted := Sorted(edits)

	size := len(src)
	for _, e := range sorted {
		size += len(e.New) - e.Span.Len()
	}
	var buf bytes.Buffer
	buf.Grow(size)

	pos := 0
	for _, e := range sorted {
		buf.Write(src[pos:e.Span.Start])
		buf.WriteString(e.New)
		pos = e.Span.End
	}
	buf.Write(src[pos:])
	return buf.Bytes(), nil
}

// ApplyString is Apply for string buffers.
func ApplyString(src string, edits []Edit) (string, error) {
	out, err := Apply([]byte(src), edits)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// MapOffset translates an offset in the pre-edit buffer to the post-edit
// buffer. Offsets inside a replaced range map to the start of its
// replacement.
func MapOffset(off int, edits []Edit) int {
	delta := 0
	for _, e := range Sorted(edits) {
		if e.Span.Start > off || (e.Span.IsEmpty() && e.Span.Start == off) {
			break
		}
		if off < e.Span.End {
			return e.Span.Start + delta
		}
		delta += len(e.New) - e.Span.Len()
	}
	return off + delta
}
