package main

import (
	"fmt"
	"io"
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

// statusOut receives progress and diagnostic lines so command output on
// stdout stays pipeable.
var statusOut io.Writer = os.Stderr

// statusLabelWidth aligns the values printed by printStatus.
const statusLabelWidth = 14

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(colorGreen, "ok: "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(colorRed, "error: "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(colorYellow, "warning: "+fmt.Sprintf(format, args...)))
}

// printStatus prints one "label: value" line of status or episode details.
func printStatus(label string, format string, args ...any) {
	l := colorize(colorBold, fmt.Sprintf("%-*s", statusLabelWidth, label+":"))
	fmt.Fprintf(statusOut, "  %s %s\n", l, fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(statusOut, colorize(colorCyan, fmt.Sprintf(format, args...)))
}
