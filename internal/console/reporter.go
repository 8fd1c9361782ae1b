// Package console prints user-facing progress for ccsetup commands.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Reporter receives progress from long running operations. It replaces a
// process-wide output handle: every component that reports progress takes
// one explicitly.
type Reporter interface {
	// Section starts a new block of list items.
	Section(title string)
	// Item adds one line to the current section.
	Item(format string, args ...any)
	// Block prints multi-line text (for example a diff) verbatim.
	Block(text string)
	// End closes the current section.
	End()
}

// Printer is a Reporter writing to a terminal or any io.Writer.
type Printer struct {
	w      io.Writer
	title  *color.Color
	bullet *color.Color
	added  *color.Color
	gone   *color.Color
}

func NewPrinter(w io.Writer, useColor bool) *Printer {
	p := &Printer{
		w:      w,
		title:  color.New(color.Bold),
		bullet: color.New(color.FgCyan),
		added:  color.New(color.FgGreen),
		gone:   color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.title, p.bullet, p.added, p.gone} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) Section(title string) {
	p.title.Fprintln(p.w, title)
}

func (p *Printer) Item(format string, args ...any) {
	p.bullet.Fprint(p.w, "  - ")
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Block(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprintln(p.w, line)
		case strings.HasPrefix(line, "+"):
			p.added.Fprintln(p.w, line)
		case strings.HasPrefix(line, "-"):
			p.gone.Fprintln(p.w, line)
		default:
			fmt.Fprintln(p.w, line)
		}
	}
}

func (p *Printer) End() {
	fmt.Fprintln(p.w)
}

// Discard is a Reporter that drops everything.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Section(string) {}
func (discard) Item(string, ...any) {}
func (discard) Block(string) {}
func (discard) End() {}
