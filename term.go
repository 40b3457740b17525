package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/tinygo-org/ksched/sim"
)

const colorReset = "\x1b[0m"

// Colours per line kind. Kinds that are not listed are printed plain.
var kindColors = map[string]string{
	"print":   "\x1b[1m",
	"result":  "\x1b[36m",
	"error":   "\x1b[31m",
	"irq":     "\x1b[35m",
	"switch":  "\x1b[33m",
	"timeout": "\x1b[34m",
	"abort":   "\x1b[31m",
}

// printer writes run output to a terminal or a plain writer.
type printer struct {
	w     io.Writer
	color bool
	width int
}

func newPrinter(w io.Writer, mode string) (*printer, error) {
	f, isFile := w.(*os.File)
	p := &printer{w: w}
	switch mode {
	case "always":
		p.color = true
	case "never":
	case "auto":
		p.color = isFile && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	default:
		return nil, fmt.Errorf("invalid colour mode %q, want auto, always or never", mode)
	}
	if isFile {
		if p.color {
			p.w = colorable.NewColorable(f)
		}
		p.width = terminalWidth(f)
	}
	return p, nil
}

func (p *printer) line(l sim.Line) {
	s := l.String()
	if p.width > 0 && len(s) > p.width {
		s = s[:p.width]
	}
	if c := kindColors[l.Kind]; p.color && c != "" {
		s = c + s + colorReset
	}
	fmt.Fprintln(p.w, s)
}
