package cmd

import (
	"fmt"
	"strconv"
	"strings"
)

// position is a FILE:LINE:COL argument. Line and column are 1-based.
type position struct {
	Path      string
	Line, Col int
}

// parsePosition splits FILE:LINE:COL from the right so paths may contain
// colons.
func parsePosition(arg string) (position, error) {
	var pos position
	i := strings.LastIndexByte(arg, ':')
	if i < 0 {
		return pos, fmt.Errorf("position %q: want FILE:LINE:COL", arg)
	}
	j := strings.LastIndexByte(arg[:i], ':')
	if j < 0 {
		return pos, fmt.Errorf("position %q: want FILE:LINE:COL", arg)
	}
	line, err := strconv.Atoi(arg[j+1 : i])
	if err != nil || line < 1 {
		return pos, fmt.Errorf("position %q: bad line", arg)
	}
	col, err := strconv.Atoi(arg[i+1:])
	if err != nil || col < 1 {
		return pos, fmt.Errorf("position %q: bad column", arg)
	}
	if arg[:j] == "" {
		return pos, fmt.Errorf("position %q: missing file", arg)
	}
	return position{Path: arg[:j], Line: line, Col: col}, nil
}

func (p position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.Path, p.Line, p.Col)
}
