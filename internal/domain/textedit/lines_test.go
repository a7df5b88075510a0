package textedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLines_RoundTrip(t *testing.T) {
	src := []byte("void foo();\n\nint bar(int a)\n{\n}\n")
	l := NewLines(src)
	assert.Equal(t, 6, l.Count())

	off, ok := l.Offset(3, 5)
	require.True(t, ok)
	assert.Equal(t, "bar", string(src[off:off+3]))

	line, col := l.Position(off)
	assert.Equal(t, 3, line)
	assert.Equal(t, 5, col)
}

func TestLines_OffsetClampsColumn(t *testing.T) {
	l := NewLines([]byte("ab\ncd"))
	off, ok := l.Offset(1, 99)
	require.True(t, ok)
	assert.Equal(t, 2, off)

	_, ok = l.Offset(5, 1)
	assert.False(t, ok)
	_, ok = l.Offset(1, 0)
	assert.False(t, ok)
}

func TestLines_LineBounds(t *testing.T) {
	l := NewLines([]byte("ab\ncd"))
	assert.Equal(t, 3, l.LineStart(2))
	assert.Equal(t, 2, l.LineEnd(1))
	assert.Equal(t, 5, l.LineEnd(2))
}
