package cmd

import "os"

// useColor is set once per process by the root command.
var useColor bool

// isStdoutTTY returns true if stdout is connected to a terminal.
func isStdoutTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// resolveColor enables color on a terminal unless NO_COLOR is set.
func resolveColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isStdoutTTY()
}

// paint wraps s in an ANSI color code when color is enabled.
func paint(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colorReset
}
