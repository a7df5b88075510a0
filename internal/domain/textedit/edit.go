// Package textedit holds the byte-range primitives shared by the signature
// engine: spans, edits, offset/line conversion and atomic multi-edit splicing.
//
// All offsets are byte offsets into one version of one file. An edit list is
// order-independent as long as its ranges do not overlap, but it must be
// applied as a whole against the version it was computed for.
package textedit

import (
	"fmt"
	"sort"
)

// Span is a half-open byte range [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// IsEmpty reports whether the span covers no bytes.
func (s Span) IsEmpty() bool { return s.End <= s.Start }

// Contains reports whether off lies inside the span. A cursor sitting right
// after the last byte (off == End) counts as inside.
func (s Span) Contains(off int) bool { return off >= s.Start && off <= s.End }

// Covers reports whether other lies entirely inside s.
func (s Span) Covers(other Span) bool { return other.Start >= s.Start && other.End <= s.End }

// Shift returns the span moved by delta bytes.
func (s Span) Shift(delta int) Span { return Span{Start: s.Start + delta, End: s.End + delta} }

// Text returns the bytes of src covered by the span, or "" when the span does
// not fit into src.
func (s Span) Text(src []byte) string {
	if s.Start < 0 || s.End > len(src) || s.Start > s.End {
		return ""
	}
	return string(src[s.Start:s.End])
}

// InBounds reports whether the span is well-formed and fits into n bytes.
func (s Span) InBounds(n int) bool { return s.Start >= 0 && s.Start <= s.End && s.End <= n }

func (s Span) String() string { return fmt.Sprintf("[%d,%d)", s.Start, s.End) }

// Kind classifies an edit.
type Kind int

const (
	KindInsert Kind = iota
	KindReplace
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindReplace:
		return "replace"
	case KindRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Edit replaces the bytes covered by Span with New. Old, when set, is the
// text the edit expects to find at Span; Apply refuses to splice if the
// buffer disagrees.
type Edit struct {
	Span Span   `json:"span"`
	New  string `json:"new"`
	Old  string `json:"old,omitempty"`
}

// Insert returns an edit inserting text at off.
func Insert(off int, text string) Edit {
	return Edit{Span: Span{Start: off, End: off}, New: text}
}

// Replace returns an edit replacing old (found at span) with text.
func Replace(span Span, old, text string) Edit {
	return Edit{Span: span, Old: old, New: text}
}

// Remove returns an edit deleting old, found at span.
func Remove(span Span, old string) Edit {
	return Edit{Span: span, Old: old}
}

// Kind classifies the edit by its shape.
func (e Edit) Kind() Kind {
	switch {
	case e.Span.IsEmpty():
		return KindInsert
	case e.New == "":
		return KindRemove
	default:
		return KindReplace
	}
}

// Shift returns a copy of edits with every span moved by delta bytes.
func Shift(edits []Edit, delta int) []Edit {
	if len(edits) == 0 {
		return nil
	}
	out := make([]Edit, len(edits))
	for i, e := range edits {
		e.Span = e.Span.Shift(delta)
		out[i] = e
	}
	return out
}

// Sorted returns a copy of edits ordered by start offset. Inserts at the same
// offset keep their relative order.
func Sorted(edits []Edit) []Edit {
	out := make([]Edit, len(edits))
	copy(out, edits)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Span.Start != out[j].Span.Start {
			return out[i].Span.Start < out[j].Span.Start
		}
		return out[i].Span.End < out[j].Span.End
	})
	return out
}
