package display

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/configcat-cli/internal/models"
	"github.com/harrison/configcat-cli/internal/reference"
)

// Printer writes user-facing output to a writer.
type Printer struct {
	out         io.Writer
	colorOutput bool

	cyan      *color.Color
	yellow    *color.Color
	green     *color.Color
	dim       *color.Color
	highlight *color.Color
}

// NewPrinter creates a Printer that colors its output when w is a terminal and
// NO_COLOR is not set.
func NewPrinter(w io.Writer) *Printer {
	return NewPrinterWithColor(w, IsTerminal(w) && os.Getenv("NO_COLOR") == "")
}

// NewPrinterWithColor creates a Printer with color explicitly on or off.
func NewPrinterWithColor(w io.Writer, colorOutput bool) *Printer {
	p := &Printer{
		out:         w,
		colorOutput: colorOutput,
		cyan:        color.New(color.FgCyan),
		yellow:      color.New(color.FgYellow),
		green:       color.New(color.FgGreen),
		dim:         color.New(color.FgHiBlack),
		highlight:   color.New(color.FgHiWhite, color.BgMagenta),
	}
	for _, c := range []*color.Color{p.cyan, p.yellow, p.green, p.dim, p.highlight} {
		if colorOutput {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Line writes a plain line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success writes a green line.
func (p *Printer) Success(message string) {
	fmt.Fprintln(p.out, p.green.Sprint(message))
}

// Field writes "label: value" with the value in cyan.
func (p *Printer) Field(label, value string) {
	fmt.Fprintf(p.out, "%s: %s\n", label, p.cyan.Sprint(value))
}

// Summary writes the count of alive references.
func (p *Printer) Summary(s reference.Summary) {
	fmt.Fprintf(p.out, "Found %s feature flag / setting reference(s) in %s file(s). Keys: %s\n",
		p.cyan.Sprint(s.References), p.cyan.Sprint(s.Files), s.KeyList())
}

// DeletedSummary warns about references to deleted flags, or confirms there are none.
func (p *Printer) DeletedSummary(s reference.Summary) {
	if s.References == 0 {
		p.Success("OK. Didn't find any deleted feature flag / setting references.")
		return
	}
	w := Warning{
		Title: fmt.Sprintf("%d deleted feature flag/setting reference(s) found in %d file(s). Keys: %s",
			s.References, s.Files, s.KeyList()),
		Files:      s.Paths,
		Suggestion: "Remove the references before the flags are cleaned up, or run with --print to see them.",
	}
	w.display(p.out, p.yellow)
}

// References writes every match of groups as a file header followed by
// reference blocks. Nothing is written for an empty slice.
func (p *Printer) References(groups []models.FileMatchGroup) {
	if len(groups) == 0 {
		return
	}
	fmt.Fprintln(p.out)
	for _, g := range groups {
		fmt.Fprintln(p.out, p.yellow.Sprint(g.File))
		for _, m := range g.Matches {
			p.reference(m)
			fmt.Fprintln(p.out)
		}
	}
}

func (p *Printer) reference(m models.Match) {
	width := digits(m.Line.Number)
	if n := len(m.PostLines); n > 0 {
		width = digits(m.PostLines[n-1].Number)
	}

	for _, l := range m.PreLines {
		fmt.Fprintf(p.out, "%s %s\n", p.gutter(l.Number, width), p.dim.Sprint(l.Text))
	}
	fmt.Fprintf(p.out, "%s %s\n", p.gutter(m.Line.Number, width), p.highlightText(m.Line.Text, m.Target.Texts()))
	for _, l := range m.PostLines {
		fmt.Fprintf(p.out, "%s %s\n", p.gutter(l.Number, width), p.dim.Sprint(l.Text))
	}
}

// gutter renders "N:" padded on the right to width digits.
func (p *Printer) gutter(number, width int) string {
	return p.cyan.Sprintf("%d:", number) + strings.Repeat(" ", width-digits(number))
}

// highlightText marks every occurrence of the key and aliases in text. Where
// several start at the same position the longest one is marked.
func (p *Printer) highlightText(text string, needles []string) string {
	var b strings.Builder
	for i := 0; i < len(text); {
		best := ""
		for _, n := range needles {
			if len(n) > len(best) && strings.HasPrefix(text[i:], n) {
				best = n
			}
		}
		if best == "" {
			b.WriteByte(text[i])
			i++
			continue
		}
		b.WriteString(p.highlight.Sprint(best))
		i += len(best)
	}
	return b.String()
}

func digits(n int) int {
	return len(strconv.Itoa(n))
}
