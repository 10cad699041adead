package editor

import (
	"strings"
	"unicode/utf8"

	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/fontreg"
	"github.com/inkwell/paginate/htmlimport"
)

// posAt resolves an absolute byte offset back to a Cursor.
func (ed *Editor) posAt(abs uint64) (Cursor, bool) {
	id, local, err := ed.store.ParagraphAt(abs)
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{ParagraphID: id, ByteOffset: local}, true
}

// InsertText inserts s at the caret, first deleting any selection in the
// same transaction (spec.md §4.D insert_text). Returns false as a no-op if
// s is empty.
func (ed *Editor) InsertText(s string) bool {
	if s == "" {
		return false
	}
	cursorBefore, selBefore := ed.cursor, ed.selection
	focusAbs, err := ed.absOf(ed.focus())
	if err != nil {
		return false
	}
	b := ed.newTxBuilder()
	at, ok := b.deleteSelectionInto(focusAbs)
	if !ok {
		return false
	}
	hadSelection := ed.HasSelection()
	if !b.apply(EditOp{kind: opInsert, absStart: at, text: s}) {
		return false
	}
	// Paragraph breaks take no bytes in the store's absolute offsets.
	newPos, _ := ed.posAt(at + uint64(len(s)-strings.Count(s, "\n")))
	ed.setFocus(newPos, false)

	typing := isSingleRune(s) && !hadSelection
	softBreak := false
	if typing {
		r, _ := utf8.DecodeRuneInString(s)
		softBreak = isSoftBreakRune(r)
	}
	b.commit(cursorBefore, selBefore, commitOpts{
		description:     describeInsert(s),
		typingInsert:    typing,
		endsOnSoftBreak: softBreak,
	})
	return true
}

// InsertHTML parses fragment into block-level paragraphs (spec.md §4.A
// insert_html) and inserts them at the caret under font, first deleting any
// selection. Each produced paragraph's block kind (Paragraph/Heading/
// ListItem, inferred from the source tag) is assigned in the same
// transaction, so undo restores both the text and the block kinds in one
// step. Returns false if fragment has no block content or parsing fails.
func (ed *Editor) InsertHTML(fragment string, font fontreg.FontID) bool {
	blocks, err := htmlimport.Parse(fragment)
	if err != nil || len(blocks) == 0 {
		return false
	}
	texts := make([]string, len(blocks))
	for i, blk := range blocks {
		texts[i] = blk.Text
	}
	joined := strings.Join(texts, "\n")

	cursorBefore, selBefore := ed.cursor, ed.selection
	focusAbs, err := ed.absOf(ed.focus())
	if err != nil {
		return false
	}
	b := ed.newTxBuilder()
	at, ok := b.deleteSelectionInto(focusAbs)
	if !ok {
		return false
	}
	before := len(b.touched)
	if !b.apply(EditOp{kind: opInsert, absStart: at, text: joined}) {
		return false
	}
	insertedIDs := append([]document.ParagraphID(nil), b.touched[before:]...)
	if len(insertedIDs) == len(blocks) {
		kinds := make(map[document.ParagraphID]document.BlockKind, len(blocks))
		for i, id := range insertedIDs {
			kinds[id] = blocks[i].Kind
		}
		b.apply(EditOp{kind: opBlockKinds, blockKinds: kinds})
	}
	// Paragraph breaks take no bytes in the store's absolute offsets.
	insertedLen := uint64(len(joined) - strings.Count(joined, "\n"))
	if font != fontreg.DefaultFontID {
		b.apply(EditOp{kind: opFormat, absStart: at, absEnd: at + insertedLen, formatFontID: font})
	}
	newPos, _ := ed.posAt(at + insertedLen)
	ed.setFocus(newPos, false)
	b.commit(cursorBefore, selBefore, commitOpts{description: "Insert HTML"})
	return true
}

// InsertParagraph splits the paragraph at the caret (an Enter keystroke),
// deleting any selection first.
func (ed *Editor) InsertParagraph() bool {
	cursorBefore, selBefore := ed.cursor, ed.selection
	focusAbs, err := ed.absOf(ed.focus())
	if err != nil {
		return false
	}
	b := ed.newTxBuilder()
	at, ok := b.deleteSelectionInto(focusAbs)
	if !ok {
		return false
	}
	if !b.apply(EditOp{kind: opInsert, absStart: at, text: "\n"}) {
		return false
	}
	// The caret goes to offset 0 of the paragraph the split created, the
	// last one the insert touched.
	ed.setFocus(document.Position{ParagraphID: b.touched[len(b.touched)-1], ByteOffset: 0}, false)
	b.commit(cursorBefore, selBefore, commitOpts{description: "Insert paragraph"})
	return true
}

// DeleteBackward deletes the selection, or one grapheme cluster before the
// caret (merging across a paragraph boundary if the caret is at the start
// of a paragraph). No-op at the very start of the document.
func (ed *Editor) DeleteBackward() bool {
	cursorBefore, selBefore := ed.cursor, ed.selection
	b := ed.newTxBuilder()
	if ed.HasSelection() {
		start, end, err := ed.selectionAbsRange()
		if err != nil || !b.apply(EditOp{kind: opDelete, absStart: start, absEnd: end}) {
			return false
		}
		newPos, _ := ed.posAt(start)
		ed.setFocus(newPos, false)
		b.commit(cursorBefore, selBefore, commitOpts{description: "Delete selection"})
		return true
	}
	cur := ed.cursor
	bounds := ed.clusterBoundariesOf(cur.ParagraphID)
	idx := boundaryIndex(bounds, cur.ByteOffset)
	if idx > 0 {
		local := bounds[idx-1]
		start, _ := ed.absOf(document.Position{ParagraphID: cur.ParagraphID, ByteOffset: local})
		end, err := ed.absOf(cur)
		if err != nil || !b.apply(EditOp{kind: opDelete, absStart: start, absEnd: end}) {
			return false
		}
		newPos, _ := ed.posAt(start)
		ed.setFocus(newPos, false)
		b.commit(cursorBefore, selBefore, commitOpts{description: "Backspace", typingDelete: true})
		return true
	}
	// At the start of a paragraph: merge with the previous one, landing the
	// caret at the join offset (the previous paragraph's length before the
	// merge).
	prevID, ok := ed.prevParagraphID(cur.ParagraphID)
	if !ok {
		return false // start of document
	}
	prevP, _ := ed.store.ParagraphByID(prevID)
	joinLocal := prevP.Text.Len()
	if !b.apply(EditOp{kind: opMerge, paragraphA: prevID}) {
		return false
	}
	ed.setFocus(document.Position{ParagraphID: prevID, ByteOffset: joinLocal}, false)
	b.commit(cursorBefore, selBefore, commitOpts{description: "Backspace", typingDelete: true})
	return true
}

// DeleteForward mirrors DeleteBackward; no-op at end-of-document.
func (ed *Editor) DeleteForward() bool {
	cursorBefore, selBefore := ed.cursor, ed.selection
	b := ed.newTxBuilder()
	if ed.HasSelection() {
		start, end, err := ed.selectionAbsRange()
		if err != nil || !b.apply(EditOp{kind: opDelete, absStart: start, absEnd: end}) {
			return false
		}
		newPos, _ := ed.posAt(start)
		ed.setFocus(newPos, false)
		b.commit(cursorBefore, selBefore, commitOpts{description: "Delete selection"})
		return true
	}
	cur := ed.cursor
	bounds := ed.clusterBoundariesOf(cur.ParagraphID)
	idx := boundaryIndex(bounds, cur.ByteOffset)
	if idx+1 < len(bounds) {
		start, err := ed.absOf(cur)
		if err != nil {
			return false
		}
		local := bounds[idx+1]
		end, _ := ed.absOf(document.Position{ParagraphID: cur.ParagraphID, ByteOffset: local})
		if !b.apply(EditOp{kind: opDelete, absStart: start, absEnd: end}) {
			return false
		}
		newPos, _ := ed.posAt(start)
		ed.setFocus(newPos, false)
		b.commit(cursorBefore, selBefore, commitOpts{description: "Delete", typingDelete: true})
		return true
	}
	// At the end of a paragraph: merge the following one into it, caret
	// stays at the join offset.
	if _, ok := ed.nextParagraphID(cur.ParagraphID); !ok {
		return false // end of document
	}
	joinLocal := cur.ByteOffset
	if !b.apply(EditOp{kind: opMerge, paragraphA: cur.ParagraphID}) {
		return false
	}
	ed.setFocus(document.Position{ParagraphID: cur.ParagraphID, ByteOffset: joinLocal}, false)
	b.commit(cursorBefore, selBefore, commitOpts{description: "Delete", typingDelete: true})
	return true
}

// FormatSelection applies font to the current selection's range. No-op
// when there is no selection.
func (ed *Editor) FormatSelection(font fontreg.FontID) bool {
	if !ed.HasSelection() {
		return false
	}
	cursorBefore, selBefore := ed.cursor, ed.selection
	start, end, err := ed.selectionAbsRange()
	if err != nil {
		return false
	}
	b := ed.newTxBuilder()
	if !b.apply(EditOp{kind: opFormat, absStart: start, absEnd: end, formatFontID: font}) {
		return false
	}
	b.commit(cursorBefore, selBefore, commitOpts{description: "Format selection"})
	return true
}

// SelectAll selects the entire document.
func (ed *Editor) SelectAll() bool {
	paras := ed.store.Paragraphs()
	if len(paras) == 0 {
		return false
	}
	first := document.Position{ParagraphID: paras[0].ID, ByteOffset: 0}
	last := paras[len(paras)-1]
	lastPos := document.Position{ParagraphID: last.ID, ByteOffset: last.Text.Len()}
	ed.selection = &Selection{Anchor: first, Focus: lastPos}
	ed.cursor = lastPos
	return true
}

// ClearSelection collapses the selection to its focus end.
func (ed *Editor) ClearSelection() bool {
	if ed.selection == nil {
		return false
	}
	ed.cursor = ed.selection.Focus
	ed.selection = nil
	return true
}

// MoveCursor moves the caret by one grapheme cluster horizontally (dx) or
// one layout line vertically (dy), extending the selection instead of
// collapsing it when extend is true.
func (ed *Editor) MoveCursor(dx, dy int, extend bool) bool {
	switch {
	case dx != 0:
		return ed.moveHorizontal(dx, extend)
	case dy != 0:
		return ed.moveVertical(dy, extend)
	}
	return false
}

func (ed *Editor) moveHorizontal(dx int, extend bool) bool {
	ed.hasDesiredX = false
	cur := ed.focus()
	bounds := ed.clusterBoundariesOf(cur.ParagraphID)
	idx := boundaryIndex(bounds, cur.ByteOffset)
	if dx > 0 {
		if idx+1 < len(bounds) {
			return ed.setFocus(document.Position{ParagraphID: cur.ParagraphID, ByteOffset: bounds[idx+1]}, extend)
		}
		next, ok := ed.nextParagraphID(cur.ParagraphID)
		if !ok {
			return false
		}
		return ed.setFocus(document.Position{ParagraphID: next, ByteOffset: 0}, extend)
	}
	if idx > 0 {
		return ed.setFocus(document.Position{ParagraphID: cur.ParagraphID, ByteOffset: bounds[idx-1]}, extend)
	}
	prev, ok := ed.prevParagraphID(cur.ParagraphID)
	if !ok {
		return false
	}
	prevBounds := ed.clusterBoundariesOf(prev)
	last := prevBounds[len(prevBounds)-1]
	return ed.setFocus(document.Position{ParagraphID: prev, ByteOffset: last}, extend)
}

func (ed *Editor) moveVertical(dy int, extend bool) bool {
	cur := ed.focus()
	page, x, y, height, _, err := ed.layout.CaretGeometry(cur)
	if err != nil {
		return false
	}
	if !ed.hasDesiredX {
		ed.desiredX = x
		ed.hasDesiredX = true
	}
	pages := ed.layout.Pages()
	if page < 0 || page >= len(pages) {
		return false
	}
	targetY := y + float32(dy)*height
	targetPage := page
	if targetY < 0 {
		if page == 0 {
			return false
		}
		targetPage = page - 1
		targetY = pages[targetPage].Height - height/2
		if targetY < 0 {
			targetY = 0
		}
	} else if targetY >= pages[page].Height {
		if page+1 >= len(pages) {
			return false
		}
		targetPage = page + 1
		targetY = height / 2
	}
	pid, off, err := ed.layout.HitTest(targetPage, ed.desiredX, targetY)
	if err != nil {
		return false
	}
	keepX := ed.desiredX
	ok := ed.setFocus(document.Position{ParagraphID: pid, ByteOffset: off}, extend)
	ed.desiredX, ed.hasDesiredX = keepX, true // vertical motion preserves sticky x
	return ok
}

// SetCursor hit-tests (page, x, y) against the current layout and places
// the caret there, collapsing any selection.
func (ed *Editor) SetCursor(page int, x, y float32) bool {
	pid, off, err := ed.layout.HitTest(page, x, y)
	if err != nil {
		return false
	}
	ed.hasDesiredX = false
	return ed.setFocus(document.Position{ParagraphID: pid, ByteOffset: off}, false)
}

// SelectTo hit-tests (page, x, y) and extends the selection to it, keeping
// the existing anchor (or the current caret, if there was no selection).
func (ed *Editor) SelectTo(page int, x, y float32) bool {
	pid, off, err := ed.layout.HitTest(page, x, y)
	if err != nil {
		return false
	}
	ed.hasDesiredX = false
	return ed.setFocus(document.Position{ParagraphID: pid, ByteOffset: off}, true)
}

// Undo reverses the most recent transaction, restoring its pre-edit cursor
// and selection. Returns false if the undo stack is empty.
func (ed *Editor) Undo() bool {
	tx, ok := ed.undo.PopUndo()
	if !ok {
		return false
	}
	var touched []document.ParagraphID
	var structural bool
	for _, inv := range tx.InverseOps {
		res, _, err := applyOp(ed.store, inv)
		if err != nil {
			tracer().Errorf("undo step failed: %v", err)
			continue
		}
		touched = append(touched, res.TouchedParagraphIDs...)
		structural = structural || res.StructuralChange
	}
	ed.cursor = tx.CursorBefore
	ed.selection = tx.SelectionBefore
	ed.hasDesiredX = false
	ed.invalidateFromResult(dedupe(touched), structural)
	return true
}

// Redo re-applies the most recently undone transaction.
func (ed *Editor) Redo() bool {
	tx, ok := ed.undo.PopRedo()
	if !ok {
		return false
	}
	var touched []document.ParagraphID
	var structural bool
	for _, op := range tx.Ops {
		res, _, err := applyOp(ed.store, op)
		if err != nil {
			tracer().Errorf("redo step failed: %v", err)
			continue
		}
		touched = append(touched, res.TouchedParagraphIDs...)
		structural = structural || res.StructuralChange
	}
	ed.cursor = tx.CursorAfter
	ed.selection = tx.SelectionAfter
	ed.hasDesiredX = false
	ed.invalidateFromResult(dedupe(touched), structural)
	return true
}

// boundaryIndex returns the index of offset within a sorted boundary
// slice, or the nearest preceding index if offset isn't exactly one (a
// defensive fallback; callers always pass an offset produced by the same
// boundary set).
func boundaryIndex(bounds []uint64, offset uint64) int {
	for i, b := range bounds {
		if b == offset {
			return i
		}
	}
	for i := len(bounds) - 1; i >= 0; i-- {
		if bounds[i] < offset {
			return i
		}
	}
	return 0
}

func describeInsert(s string) string {
	if s == "\n" {
		return "Insert newline"
	}
	if isSingleRune(s) {
		return "Type character"
	}
	return "Insert text"
}
