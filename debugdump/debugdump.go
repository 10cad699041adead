// Package debugdump renders development-only, human-readable dumps of a
// document's rope trees, dirty set, and pagination. It is never on the
// command path: spec.md's core API is commands in, binary buffers out, and
// this package exists purely for print-debugging during development,
// mirroring the teacher's dotty.go tree dump and
// styled/formatter/console.go terminal-color/width detection idioms.
package debugdump

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/npillmayer/schuko/tracing"

	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/layout"
)

func tracer() tracing.Trace {
	return tracing.Select("debugdump")
}

// colorize wraps s in c's escape codes only when fd looks like an
// interactive terminal, following the teacher's ConfigFromTerminal
// heuristic (term.IsTerminal checked before touching width/color).
func colorize(fd int, c *color.Color, s string) string {
	if !term.IsTerminal(fd) {
		return s
	}
	return c.Sprint(s)
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	dirtyColor   = color.New(color.FgYellow)
	pageColor    = color.New(color.FgGreen)
)

// Paragraphs writes one rope-tree dump per paragraph in store, in document
// order, prefixed with the paragraph's id and block kind.
func Paragraphs(w io.Writer, store *document.Store, fd int) {
	tracer().Debugf("dumping %d paragraph(s)", len(store.Paragraphs()))
	for _, p := range store.Paragraphs() {
		header := fmt.Sprintf("paragraph %d (block=%v)", p.ID, p.Block.Tag)
		fmt.Fprintln(w, colorize(fd, headingColor, header))
		p.Text.DumpTree(w)
	}
}

// Dirty writes the set of paragraph ids the layout engine still has queued
// for relayout.
func Dirty(w io.Writer, ids []document.ParagraphID, fd int) {
	fmt.Fprintln(w, colorize(fd, headingColor, "dirty set:"))
	if len(ids) == 0 {
		fmt.Fprintln(w, colorize(fd, dirtyColor, "  (clean)"))
		return
	}
	for _, id := range ids {
		fmt.Fprintln(w, colorize(fd, dirtyColor, fmt.Sprintf("  paragraph %d", id)))
	}
}

// Pages writes a summary of the current pagination: one line per page with
// its line count, one indented line per contributing paragraph range.
func Pages(w io.Writer, pages []layout.Page, fd int) {
	fmt.Fprintln(w, colorize(fd, headingColor, "pagination:"))
	for _, pg := range pages {
		total := 0
		for _, e := range pg.Entries {
			total += e.LineEnd - e.LineStart
		}
		header := fmt.Sprintf("  page %d: %d lines, height=%.1f", pg.PageIndex, total, pg.Height)
		fmt.Fprintln(w, colorize(fd, pageColor, header))
		for _, e := range pg.Entries {
			fmt.Fprintf(w, "    paragraph %d lines [%d,%d)\n", e.ParagraphID, e.LineStart, e.LineEnd)
		}
	}
}
