package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI colors used by the console.
const (
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiBlue  = "\033[34m"
	ansiReset = "\033[0m"
)

// console writes user-facing status lines. Colors are only used when the
// writer is a terminal and NO_COLOR is unset.
type console struct {
	w     io.Writer
	color bool
	quiet bool
}

func newConsole(w io.Writer, quiet bool) *console {
	return &console{w: w, color: isTerminal(w), quiet: quiet}
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *console) paint(color, s string) string {
	if !c.color {
		return s
	}

	return color + s + ansiReset
}

// Errorf is always printed, in red.
func (c *console) Errorf(format string, args ...any) {
	fmt.Fprint(c.w, c.paint(ansiRed, fmt.Sprintf(format, args...)))
}

// Successf prints in green unless quiet.
func (c *console) Successf(format string, args ...any) {
	if c.quiet {
		return
	}

	fmt.Fprint(c.w, c.paint(ansiGreen, fmt.Sprintf(format, args...)))
}

// Infof prints in blue unless quiet.
func (c *console) Infof(format string, args ...any) {
	if c.quiet {
		return
	}

	fmt.Fprint(c.w, c.paint(ansiBlue, fmt.Sprintf(format, args...)))
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
