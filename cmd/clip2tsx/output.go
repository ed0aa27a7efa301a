package main

import (
	"fmt"
	"os"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

// statusLine prints a symbol-prefixed line to stderr, keeping stdout
// clean for component source and analysis output.
func statusLine(color, symbol, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(color, symbol+" "+msg))
}

func printSuccess(format string, args ...any) { statusLine(colorGreen, "✓", format, args...) }
func printError(format string, args ...any)   { statusLine(colorRed, "✗", format, args...) }
func printWarning(format string, args ...any) { statusLine(colorYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { statusLine(colorCyan, "→", format, args...) }

// printStatus prints an indented label/value pair.
func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	fmt.Fprintf(os.Stderr, "  %s %s\n", colorize(colorBold, label+":"), val)
}

// printPrompt writes an inline question without a trailing newline so
// the answer is typed on the same line.
func printPrompt(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprint(os.Stderr, colorize(colorBold, msg+" "))
}

// truncate shortens s for single-line listings.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
