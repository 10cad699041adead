// Package editor implements the cursor, selection, and transactional
// undo/redo layer over package document, in the teacher's idiom: package
// tracer, string-sentinel errors, and boolean/no-op failure semantics
// rather than propagated errors for user-facing commands.
//
// The command-and-inverse shape (Execute records an inverse, Undo replays
// it, a bounded stack with grouping/merging) has no counterpart in the
// teacher, which has no undo model; it is grounded on the same Command
// pattern the wider examples pack uses for text-editor history (execute
// records operations, undo replays their inverse, compound commands group
// a run of operations as one unit).
package editor

import (
	"time"

	"github.com/npillmayer/schuko/tracing"

	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/fontreg"
	"github.com/inkwell/paginate/styleruns"
)

func tracer() tracing.Trace {
	return tracing.Select("editor")
}

// EditorError is the package sentinel error type.
type EditorError string

func (e EditorError) Error() string { return string(e) }

// Cursor addresses the caret: a paragraph id and a byte offset within it
// that always falls on a grapheme-cluster boundary.
type Cursor = document.Position

// Selection is an ordered anchor/focus pair of cursors. The absence of a
// selection (caret only) is represented by a nil *Selection, not a
// zero-length one, so "no selection" and "empty selection at position X"
// are never confused.
type Selection struct {
	Anchor Cursor
	Focus  Cursor
}

// opKind discriminates an EditOp.
type opKind uint8

const (
	opInsert opKind = iota
	opDelete
	opReplace
	opFormat        // format_range(absStart, absEnd, formatFontID)
	opRestoreStyles // inverse of opFormat: restore each paragraph's prior runs
	opMerge         // merge paragraphA forward with the paragraph following it
	opSplitRestore  // inverse of opMerge: split paragraphA at localOffset, restoring restoreBlock on the new trailing paragraph
	opBlockKinds    // set each named paragraph's block kind; self-inverse (inverse op carries the prior kinds)
)

// styleSnapshot pairs a paragraph id with its style runs at a point in
// time, used to invert format_range.
type styleSnapshot struct {
	runs styleruns.Runs
}

// EditOp is one primitive store mutation, addressed in the single
// absolute-byte-offset coordinate space document.Store resolves through
// its paragraph index.
type EditOp struct {
	kind         opKind
	absStart     uint64
	absEnd       uint64 // valid for opDelete/opReplace/opFormat
	text         string // inserted text for opInsert/opReplace
	formatFontID fontreg.FontID
	snapshot     map[document.ParagraphID]styleSnapshot // valid for opRestoreStyles

	paragraphA   document.ParagraphID // opMerge: surviving id; opSplitRestore: paragraph to split
	localOffset  uint64               // opSplitRestore: split point within paragraphA's text
	restoreBlock document.BlockKind   // opSplitRestore: block kind to assign the new trailing paragraph

	blockKinds map[document.ParagraphID]document.BlockKind // opBlockKinds: kind to assign each paragraph
}

// Transaction is one atomic undo unit: the operations it applied, their
// precomputed inverses, and the cursor/selection state to restore on
// undo.
type Transaction struct {
	Ops             []EditOp
	InverseOps      []EditOp
	CursorBefore    Cursor
	CursorAfter     Cursor
	SelectionBefore *Selection
	SelectionAfter  *Selection
	Timestamp       time.Time
	Description     string
	isTypingInsert  bool // eligible for merge-as-typing (spec.md §4.D)
	isTypingDelete  bool
	endsOnSoftBreak bool // last char was whitespace/punctuation: opens a new merge window
}
