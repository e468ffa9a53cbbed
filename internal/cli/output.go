// Package cli provides the command-line interface for the stock analyst.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"stock-analyst/internal/analysis"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"
)

var ansiCodes = []string{ColorReset, ColorRed, ColorGreen, ColorYellow, ColorCyan, ColorBold, ColorDim}

// Output handles formatted output for the CLI.
type Output struct {
	writer       io.Writer
	jsonMode     bool
	colorEnabled bool
}

// NewOutput creates a new Output instance.
func NewOutput(cmd *cobra.Command) *Output {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &Output{
		writer:       cmd.OutOrStdout(),
		jsonMode:     jsonMode,
		colorEnabled: !jsonMode && colorAllowed && isTerminal(),
	}
}

// newPlainOutput writes to w without color.
func newPlainOutput(w io.Writer) *Output {
	return &Output{writer: w}
}

// colorAllowed is cleared when the config disables color.
var colorAllowed = true

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// IsJSON returns true if JSON output mode is enabled.
func (o *Output) IsJSON() bool {
	return o.jsonMode
}

// JSON outputs data as JSON.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Printf prints a formatted message.
func (o *Output) Printf(format string, args ...interface{}) {
	fmt.Fprintf(o.writer, format, args...)
}

// Success prints a success message in green.
func (o *Output) Success(format string, args ...interface{}) {
	o.colored(ColorGreen, format, args...)
}

// Error prints an error message in red.
func (o *Output) Error(format string, args ...interface{}) {
	o.colored(ColorRed, format, args...)
}

// Warning prints a warning message in yellow.
func (o *Output) Warning(format string, args ...interface{}) {
	o.colored(ColorYellow, format, args...)
}

// Info prints an info message in cyan.
func (o *Output) Info(format string, args ...interface{}) {
	o.colored(ColorCyan, format, args...)
}

// Bold prints a bold message.
func (o *Output) Bold(format string, args ...interface{}) {
	o.colored(ColorBold, format, args...)
}

// Dim prints a dimmed message.
func (o *Output) Dim(format string, args ...interface{}) {
	o.colored(ColorDim, format, args...)
}

func (o *Output) colored(color, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if o.colorEnabled {
		fmt.Fprintf(o.writer, "%s%s%s\n", color, msg, ColorReset)
	} else {
		fmt.Fprintln(o.writer, msg)
	}
}

// ColoredString returns a colored string without newline.
func (o *Output) ColoredString(color, text string) string {
	if o.colorEnabled {
		return color + text + ColorReset
	}
	return text
}

// Green returns green colored text.
func (o *Output) Green(text string) string {
	return o.ColoredString(ColorGreen, text)
}

// Red returns red colored text.
func (o *Output) Red(text string) string {
	return o.ColoredString(ColorRed, text)
}

// Yellow returns yellow colored text.
func (o *Output) Yellow(text string) string {
	return o.ColoredString(ColorYellow, text)
}

// BoldText returns bold text.
func (o *Output) BoldText(text string) string {
	return o.ColoredString(ColorBold, text)
}

// DimText returns dimmed text.
func (o *Output) DimText(text string) string {
	return o.ColoredString(ColorDim, text)
}

// Label colors a family label by direction.
func (o *Output) Label(l analysis.Label) string {
	switch l.Direction() {
	case analysis.Up:
		return o.Green(string(l))
	case analysis.Down:
		return o.Red(string(l))
	default:
		return o.Yellow(string(l))
	}
}

// Stance colors a horizon stance.
func (o *Output) Stance(s analysis.Stance) string {
	switch s {
	case analysis.StanceBullish:
		return o.Green("↑ " + string(s))
	case analysis.StanceBearish:
		return o.Red("↓ " + string(s))
	case analysis.StanceCautious:
		return o.Yellow("⚠ " + string(s))
	default:
		return o.Yellow("→ " + string(s))
	}
}

// Signed colors a number by sign.
func (o *Output) Signed(v float64, text string) string {
	switch {
	case v > 0:
		return o.Green(text)
	case v < 0:
		return o.Red(text)
	default:
		return text
	}
}

// Table represents a simple table for output.
type Table struct {
	headers []string
	rows    [][]string
	output  *Output
}

// NewTable creates a new table.
func NewTable(output *Output, headers ...string) *Table {
	return &Table{
		headers: headers,
		rows:    make([][]string, 0),
		output:  output,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render renders the table.
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = displayWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && displayWidth(cell) > widths[i] {
				widths[i] = displayWidth(cell)
			}
		}
	}

	t.printRow(t.headers, widths, true)
	t.printSeparator(widths)
	for _, row := range t.rows {
		t.printRow(row, widths, false)
	}
}

func (t *Table) printRow(cells []string, widths []int, isHeader bool) {
	var parts []string
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		padded := pad(cell, widths[i])
		if isHeader && t.output.colorEnabled {
			padded = ColorBold + padded + ColorReset
		}
		parts = append(parts, padded)
	}
	t.output.Println(strings.TrimRight(strings.Join(parts, "  "), " "))
}

func (t *Table) printSeparator(widths []int) {
	var parts []string
	for _, w := range widths {
		parts = append(parts, strings.Repeat("─", w))
	}
	sep := strings.Join(parts, "──")
	if t.output.colorEnabled {
		sep = ColorDim + sep + ColorReset
	}
	t.output.Println(sep)
}

// stripANSI removes the escape codes this package emits.
func stripANSI(s string) string {
	for _, esc := range ansiCodes {
		s = strings.ReplaceAll(s, esc, "")
	}
	return s
}

// displayWidth counts runes, so box-drawing and bar glyphs take one column.
func displayWidth(s string) int {
	return utf8.RuneCountInString(stripANSI(s))
}

func pad(s string, width int) string {
	n := width - displayWidth(s)
	if n <= 0 {
		return s
	}
	return s + strings.Repeat(" ", n)
}

// Box draws a box around content.
func (o *Output) Box(title string, content []string) {
	inner := displayWidth(title)
	for _, line := range content {
		if w := displayWidth(line); w > inner {
			inner = w
		}
	}
	border := strings.Repeat("─", inner+2)

	if o.colorEnabled {
		o.Printf("%s┌%s┐%s\n", ColorDim, border, ColorReset)
		o.Printf("%s│%s %s%s%s %s│%s\n", ColorDim, ColorReset, ColorBold, pad(title, inner), ColorReset, ColorDim, ColorReset)
		o.Printf("%s├%s┤%s\n", ColorDim, border, ColorReset)
		for _, line := range content {
			o.Printf("%s│%s %s %s│%s\n", ColorDim, ColorReset, pad(line, inner), ColorDim, ColorReset)
		}
		o.Printf("%s└%s┘%s\n", ColorDim, border, ColorReset)
		return
	}
	o.Printf("+%s+\n", strings.Repeat("-", inner+2))
	o.Printf("| %s |\n", pad(title, inner))
	o.Printf("+%s+\n", strings.Repeat("-", inner+2))
	for _, line := range content {
		o.Printf("| %s |\n", pad(line, inner))
	}
	o.Printf("+%s+\n", strings.Repeat("-", inner+2))
}

// Progress prints a progress indicator.
func (o *Output) Progress(current, total int, message string) {
	if total <= 0 || o.jsonMode {
		return
	}
	pct := float64(current) / float64(total) * 100
	barWidth := 30
	filled := barWidth * current / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	o.Printf("\r%s [%s] %.0f%% ", message, bar, pct)
	if current == total {
		o.Println()
	}
}
