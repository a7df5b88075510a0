// Package sigdiff computes the edits that bring the counterpart of an edited
// signature in line with it.
//
// Three signatures go in: the edited side as it was when the link formed
// (orig), the same side as it is now (live), and the counterpart (target).
// Every piece of the target the user did not change on the source side is
// left alone, so comments, independent parameter names and formatting
// survive.
package sigdiff

import (
	"strings"

	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/signature"
	"github.com/corey/sigsync/internal/domain/textedit"
)

// Input is one diff request.
type Input struct {
	Orig   *signature.Signature
	Live   *signature.Signature
	Target *signature.Signature

	// Types resolves names in all three signatures. Nil means no names are
	// known and type text is compared after whitespace normalization.
	Types *rewrite.Table
}

// Option configures Diff.
type Option func(*options)

type options struct {
	delta int
}

// WithDelta shifts every produced edit by delta bytes, for callers that
// splice the result into a batch computed against a moved copy of the
// target.
func WithDelta(delta int) Option {
	return func(o *options) { o.delta = delta }
}

// Diff returns the edits for the target file, ordered by offset. Offsets are
// relative to the target file the target signature was located in. No edits
// means the target is already in sync.
func Diff(in Input, opts ...Option) []textedit.Edit {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if in.Orig == nil || in.Live == nil || in.Target == nil {
		return nil
	}
	if in.Types == nil {
		in.Types = rewrite.NewTable()
	}
	d := &differ{Input: in}

	var edits []textedit.Edit
	edits = append(edits, d.returnType()...)
	edits = append(edits, d.params()...)
	edits = append(edits, d.qualifiers()...)
	if len(edits) == 0 {
		return nil
	}
	return textedit.Shift(textedit.Sorted(edits), o.delta)
}

type differ struct {
	Input
}

// returnScope is where a signature's return type is looked up: trailing
// return types see the function's scope, leading ones the lexical scope.
func returnScope(s *signature.Signature) []string {
	if s.Declarator.Trailing.Start >= 0 {
		return s.FuncScope
	}
	return s.Scope
}

func (d *differ) returnType() []textedit.Edit {
	orig, live, target := d.Orig.Function, d.Live.Function, d.Target.Function
	if orig.ReturnSpan.Start < 0 || live.ReturnSpan.Start < 0 || target.ReturnSpan.Start < 0 {
		return nil
	}
	want := rewrite.Canonical(d.Types, live.ReturnType, returnScope(d.Live))
	if want == rewrite.Canonical(d.Types, orig.ReturnType, returnScope(d.Orig)) ||
		want == rewrite.Canonical(d.Types, target.ReturnType, returnScope(d.Target)) {
		return nil
	}
	text := rewrite.RewriteInPlace(d.Types, strings.TrimSpace(live.ReturnType), returnScope(d.Live), returnScope(d.Target))
	span := fitReturn(d.Target.File.Src, target.ReturnSpan, &text)
	return []textedit.Edit{textedit.Replace(span, d.Target.File.Text(span), text)}
}

// fitReturn keeps the new return type from fusing with or floating away
// from the declarator name: "long" before "foo" gets a space, "long *"
// absorbs the blanks that followed the old type.
func fitReturn(src []byte, span textedit.Span, text *string) textedit.Span {
	if *text == "" || span.End >= len(src) {
		return span
	}
	switch last := (*text)[len(*text)-1]; {
	case last == '*' || last == '&':
		end := span.End
		for end < len(src) && isSpace(src[end]) {
			end++
		}
		if end > span.End && end < len(src) && isWord(src[end]) {
			span.End = end
		}
	case isWord(last) && isWord(src[span.End]):
		*text += " "
	}
	return span
}

func isWord(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}

func cvText(isConst, isVolatile bool) string {
	switch {
	case isConst && isVolatile:
		return "const volatile"
	case isConst:
		return "const"
	case isVolatile:
		return "volatile"
	default:
		return ""
	}
}

func (d *differ) qualifiers() []textedit.Edit {
	live, target := d.Live.Function, d.Target.Function
	if live.Const == target.Const && live.Volatile == target.Volatile {
		return nil
	}
	fd := d.Target.Declarator
	f := d.Target.File
	want := cvText(live.Const, live.Volatile)
	switch {
	case len(fd.CV) == 0:
		return []textedit.Edit{textedit.Insert(fd.RParen+1, " "+want)}
	case want == "":
		span := textedit.Span{Start: fd.RParen + 1, End: fd.CV[len(fd.CV)-1].Span.End}
		return []textedit.Edit{textedit.Remove(span, f.Text(span))}
	default:
		span := textedit.Span{Start: fd.CV[0].Span.Start, End: fd.CV[len(fd.CV)-1].Span.End}
		return []textedit.Edit{textedit.Replace(span, f.Text(span), want)}
	}
}
