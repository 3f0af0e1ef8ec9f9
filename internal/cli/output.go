package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"indiestream/internal/catalog"
	strs "indiestream/pkg/strings"

	"github.com/Masterminds/sprig/v3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the supported output formats for command results.
type OutputFormat string

const (
	// OutputFormatTable renders a plain, column-aligned table.
	OutputFormatTable OutputFormat = "table"
	// OutputFormatWide renders a bordered table with the URL column.
	OutputFormatWide OutputFormat = "wide"
	// OutputFormatJSON renders indented JSON.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML renders YAML.
	OutputFormatYAML OutputFormat = "yaml"
	// OutputFormatTemplate renders a Go template with the sprig functions.
	OutputFormatTemplate OutputFormat = "template"
)

// ValidateOutputFormat returns an error unless format is supported.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case OutputFormatTable, OutputFormatWide, OutputFormatJSON, OutputFormatYAML, OutputFormatTemplate:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (use table, wide, json, yaml or template)", format)
}

// Printer renders catalog entries.
type Printer struct {
	Format    OutputFormat
	Template  string
	NoHeaders bool
	Out       io.Writer
}

// NewPrinter creates a Printer from output flags.
func NewPrinter(out io.Writer, flags OutputFlags) (*Printer, error) {
	if err := ValidateOutputFormat(flags.Format); err != nil {
		return nil, err
	}
	if OutputFormat(flags.Format) == OutputFormatTemplate && flags.Template == "" {
		return nil, fmt.Errorf("--template is required with --output template")
	}
	return &Printer{
		Format:    OutputFormat(flags.Format),
		Template:  flags.Template,
		NoHeaders: flags.NoHeaders,
		Out:       out,
	}, nil
}

// PrintEntries renders a list of entries.
func (p *Printer) PrintEntries(entries []catalog.Entry) error {
	if entries == nil {
		entries = []catalog.Entry{}
	}
	switch p.Format {
	case OutputFormatJSON:
		return p.printJSON(entries)
	case OutputFormatYAML:
		return yaml.NewEncoder(p.Out).Encode(entries)
	case OutputFormatTemplate:
		return p.printTemplate(entries)
	case OutputFormatWide:
		return p.printTable(entries, true)
	default:
		return p.printTable(entries, false)
	}
}

// PrintEntry renders a single entry.
func (p *Printer) PrintEntry(entry catalog.Entry) error {
	switch p.Format {
	case OutputFormatJSON:
		return p.printJSON(entry)
	case OutputFormatYAML:
		return yaml.NewEncoder(p.Out).Encode(entry)
	case OutputFormatTemplate:
		return p.printTemplate(entry)
	}

	t := NewTable(p.Out, true)
	t.AppendRows([]table.Row{
		{text.FgHiCyan.Sprint("ID"), entry.ID},
		{text.FgHiCyan.Sprint("Title"), entry.Title},
		{text.FgHiCyan.Sprint("Status"), FormatStatus(entry.Status)},
		{text.FgHiCyan.Sprint("URL"), orDash(entry.URL)},
	})
	t.Render()
	return nil
}

func (p *Printer) printJSON(v any) error {
	enc := json.NewEncoder(p.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *Printer) printTemplate(data any) error {
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(p.Template)
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	if err := tmpl.Execute(p.Out, data); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	if !strings.HasSuffix(p.Template, "\n") {
		fmt.Fprintln(p.Out)
	}
	return nil
}

func (p *Printer) printTable(entries []catalog.Entry, wide bool) error {
	if len(entries) == 0 {
		fmt.Fprintf(p.Out, "%s\n", text.FgYellow.Sprint("No games found"))
		return nil
	}

	t := NewTable(p.Out, wide)
	if !p.NoHeaders {
		header := table.Row{"ID", "TITLE", "STATUS"}
		if wide {
			header = append(header, "URL")
		}
		t.AppendHeader(header)
	}
	for _, e := range entries {
		row := table.Row{e.ID, e.Title, FormatStatus(e.Status)}
		if wide {
			row = append(row, orDash(strs.TruncateMiddle(e.URL, maxURLWidth)))
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// NewTable returns a go-pretty table writing to out. Bordered tables use
// the rounded style; plain tables are kubectl-style columns without box
// drawing, suited for grep and awk.
func NewTable(out io.Writer, bordered bool) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	if bordered {
		t.SetStyle(table.StyleRounded)
		return t
	}

	style := table.StyleDefault
	style.Options = table.Options{}
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "   "
	style.Format.Header = text.FormatUpper
	t.SetStyle(style)
	return t
}

// maxURLWidth bounds the URL column of wide tables.
const maxURLWidth = 60

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
