// Package output renders command results as styled text, markdown or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Mode selects how results are rendered.
type Mode string

// Render modes.
const (
	// ModeAuto renders text on a terminal and markdown otherwise.
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

type styles struct {
	header  lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	fail    lipgloss.Style
	warn    lipgloss.Style
}

// newStyles binds styles to w. Writers that are not terminals get no color.
func newStyles(w io.Writer, isTTY bool) styles {
	var opts []termenv.OutputOption
	if !isTTY {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	lr := lipgloss.NewRenderer(w, opts...)
	return styles{
		header:  lr.NewStyle().Bold(true),
		muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		success: lr.NewStyle().Foreground(lipgloss.Color("2")),
		fail:    lr.NewStyle().Foreground(lipgloss.Color("1")),
		warn:    lr.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// Renderer writes command output in one mode.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	style  styles
	errSty styles
}

// NewRenderer returns a renderer. ModeAuto resolves against out; unknown
// modes fall back to text.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, IsTerminal(out), mode)
}

// NewRendererWithTTY is NewRenderer with terminal detection overridden.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	switch mode {
	case ModeText, ModeMarkdown, ModeJSON:
	case ModeAuto:
		mode = ModeMarkdown
		if isTTY {
			mode = ModeText
		}
	default:
		mode = ModeText
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		style:  newStyles(out, isTTY),
		errSty: newStyles(errOut, isTTY && IsTerminal(errOut)),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mode returns the effective render mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Println writes a line to stdout.
func (r *Renderer) Println(s string) { _, _ = fmt.Fprintln(r.out, s) }

// Printf writes formatted text to stdout.
func (r *Renderer) Printf(format string, args ...any) { _, _ = fmt.Fprintf(r.out, format, args...) }

// Header writes a section header.
func (r *Renderer) Header(level int, text string) {
	if r.mode == ModeMarkdown {
		r.Println(FormatHeader(level, text))
		return
	}
	r.Println(r.style.header.Render(text))
}

// Muted writes de-emphasized text.
func (r *Renderer) Muted(text string) {
	if r.mode == ModeMarkdown {
		r.Println("_" + text + "_")
		return
	}
	r.Println(r.style.muted.Render(text))
}

// KeyValue writes one labelled value.
func (r *Renderer) KeyValue(key, value string) {
	if r.mode == ModeMarkdown {
		r.Println(FormatKeyValue(key, value))
		return
	}
	r.Println(r.style.muted.Render(key+":") + " " + value)
}

// StatusLine writes a name with a status marker and optional detail.
func (r *Renderer) StatusLine(name, status, detail string) {
	if r.mode == ModeMarkdown {
		line := "- **" + status + "** " + name
		if detail != "" {
			line += " " + detail
		}
		r.Println(line)
		return
	}

	var marker string
	switch status {
	case "success", "completed":
		marker = r.style.success.Render("✓")
	case "failed":
		marker = r.style.fail.Render("✗")
	case "warning":
		marker = r.style.warn.Render("!")
	default:
		marker = r.style.muted.Render("•")
	}
	line := marker + " " + name
	if detail != "" {
		line += " " + r.style.muted.Render(detail)
	}
	r.Println(line)
}

// Warn writes a warning to stderr.
func (r *Renderer) Warn(text string) {
	_, _ = fmt.Fprintln(r.errOut, r.errSty.warn.Render("warning: ")+text)
}

// Table writes rows under a header: a light box table for text and a pipe
// table for markdown.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if r.mode == ModeMarkdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader returns a markdown header.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

// FormatKeyValue returns a bold markdown label and value.
func FormatKeyValue(key, value string) string {
	return "**" + key + ":** " + value
}

// FormatScore renders an R² value, or "n/a" when undefined.
func FormatScore(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", f)
}

// NullableFloat returns nil for NaN so the value encodes as JSON null.
func NullableFloat(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
