// Package output provides structured output formatting for the launcher CLI.
//
// Output supports multiple formats:
//   - table: Human-readable tables (default)
//   - json: Machine-readable JSON
//   - yaml: Machine-readable YAML
//   - quiet: Minimal output (IDs only)
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatQuiet Format = "quiet"
)

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "yaml", "yml":
		return FormatYAML
	case "quiet", "q":
		return FormatQuiet
	default:
		return FormatTable
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Writer handles formatted output based on the configured format.
type Writer struct {
	format Format
	color  bool
	out    io.Writer
	err    io.Writer
}

// NewWriter creates a new output writer with the specified format.
func NewWriter(format Format) *Writer {
	return &Writer{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// WithOutput sets the output writer.
func (w *Writer) WithOutput(out io.Writer) *Writer {
	w.out = out
	return w
}

// WithError sets the error writer.
func (w *Writer) WithError(err io.Writer) *Writer {
	w.err = err
	return w
}

// WithColor enables styled tables when the output is a terminal.
func (w *Writer) WithColor(color bool) *Writer {
	w.color = color
	return w
}

// Format returns the current format.
func (w *Writer) Format() Format {
	return w.format
}

// Write outputs data according to the configured format.
func (w *Writer) Write(data any) error {
	switch w.format {
	case FormatJSON:
		return w.writeJSON(data)
	case FormatYAML:
		return w.writeYAML(data)
	case FormatQuiet:
		return w.writeQuiet(data)
	default:
		return w.writeTable(data)
	}
}

func (w *Writer) writeJSON(data any) error {
	encoder := json.NewEncoder(w.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func (w *Writer) writeYAML(data any) error {
	enc := yaml.NewEncoder(w.out)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		return err
	}
	return enc.Close()
}

// writeQuiet outputs minimal data (IDs only).
func (w *Writer) writeQuiet(data any) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(w.out, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w.out, s)
		}
	case Identifiable:
		fmt.Fprintln(w.out, v.ID())
	case Listable:
		for _, id := range v.IDs() {
			fmt.Fprintln(w.out, id)
		}
	default:
		return w.writeJSON(data)
	}
	return nil
}

// writeTable outputs data as a formatted table.
func (w *Writer) writeTable(data any) error {
	switch v := data.(type) {
	case Tabular:
		return w.renderTable(v.TableData())
	case string:
		fmt.Fprintln(w.out, v)
	default:
		return w.writeYAML(data)
	}
	return nil
}

func (w *Writer) renderTable(t *Table) error {
	if t == nil || len(t.Headers) == 0 {
		return nil
	}

	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = strings.ToUpper(h)
	}

	if w.color && isTerminal(w.out) {
		lt := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(borderStyle).
			Headers(headers...).
			Rows(t.Rows...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		_, err := fmt.Fprintln(w.out, lt.Render())
		return err
	}

	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Printf writes formatted output.
func (w *Writer) Printf(format string, a ...any) {
	fmt.Fprintf(w.out, format, a...)
}

// Success writes a success message with icon.
func (w *Writer) Success(message string) {
	fmt.Fprintf(w.out, "✓ %s\n", message)
}

// Warn writes a warning message with icon.
func (w *Writer) Warn(message string) {
	fmt.Fprintf(w.err, "⚠ %s\n", message)
}

// Identifiable is an interface for objects with an ID.
type Identifiable interface {
	ID() string
}

// Listable is implemented by collections printed one ID per line in quiet mode.
type Listable interface {
	IDs() []string
}

// Tabular is an interface for objects that can be rendered as a table.
type Tabular interface {
	TableData() *Table
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable creates a new table with headers.
func NewTable(headers ...string) *Table {
	return &Table{
		Headers: headers,
		Rows:    make([][]string, 0),
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) *Table {
	t.Rows = append(t.Rows, cells)
	return t
}

// TableData implements Tabular for Table.
func (t *Table) TableData() *Table {
	return t
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
