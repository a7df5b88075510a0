package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corey/sigsync/internal/adapters/socket"
	"github.com/corey/sigsync/internal/domain/rewrite"
	"github.com/corey/sigsync/internal/domain/signature"
)

// ANSI color codes for terminal output.
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorCyan  = "\033[36m"
	colorGreen = "\033[32m"
	colorGray  = "\033[90m"
)

// relPath shortens path to the project root when it lies inside it.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// sigLocation renders file:line:col of a signature's name.
func sigLocation(root string, sig *signature.Signature) string {
	line, col := sig.File.Lines().Position(sig.NameSpan().Start)
	return fmt.Sprintf("%s:%d:%d", paint(colorCyan, relPath(root, sig.File.Path)), line, col)
}

// formatLocate renders a signature and its counterpart.
//
//	⚡ area (definition) shape.cpp:3:5
//	  → declaration shape.h:3:5  int area(int w, int h)
func formatLocate(root string, src, target *signature.Signature) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s (%s) %s\n",
		paint(colorBold, "⚡ "+displayName(src)), src.Kind, sigLocation(root, src)))
	if target == nil {
		sb.WriteString("  " + paint(colorGray, "no counterpart") + "\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("  → %s %s  %s\n",
		target.Kind, sigLocation(root, target), paint(colorGray, target.Text())))
	return sb.String()
}

// formatReindex renders index build statistics.
func formatReindex(r *socket.ReindexResult) string {
	return fmt.Sprintf("⚡ sigsync indexed %d files, %d functions (%d parsed, %d unchanged, %d removed) │ %dms",
		r.Files, r.Functions, r.Parsed, r.Unchanged, r.Removed, r.ElapsedMs)
}

// formatHealth renders the daemon health report.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s │ %s │ up %s\n",
		paint(colorBold, "⚡ sigsync daemon"), paint(colorGreen, h.Status), h.Uptime))
	sb.WriteString(fmt.Sprintf("  Files:     %d\n", h.FileCount))
	sb.WriteString(fmt.Sprintf("  Functions: %d\n", h.Functions))
	sb.WriteString(fmt.Sprintf("  Editors:   %d (%d open documents)\n", h.Editors, h.Documents))
	sb.WriteString(fmt.Sprintf("  Resolve:   p50 %dms\n", h.ResolveMs))
	if len(h.Links) > 0 {
		outcomes := make([]string, 0, len(h.Links))
		for o := range h.Links {
			outcomes = append(outcomes, o)
		}
		sort.Strings(outcomes)
		parts := make([]string, len(outcomes))
		for i, o := range outcomes {
			parts[i] = fmt.Sprintf("%s %d", o, h.Links[o])
		}
		sb.WriteString(fmt.Sprintf("  Links:     %s\n", strings.Join(parts, ", ")))
	}
	return sb.String()
}

func displayName(s *signature.Signature) string {
	return rewrite.Pretty(s.QualifiedName())
}
