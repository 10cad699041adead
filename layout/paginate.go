package layout

import (
	"github.com/inkwell/paginate/document"
)

// paginate walks the store's paragraphs in document order and the cached
// lines of each, opening a new page whenever the next line would overflow
// content_height (spec.md §4.C step 6). An empty document produces exactly
// one page; its single empty paragraph is laid out as one empty line, so
// that page holds one line rather than none.
func (e *Engine) paginate() {
	contentHeight := e.cfg.ContentHeight()
	var pages []Page
	var docY float32
	cur := Page{PageIndex: 0, YOffset: 0}
	var cursorY float32

	openPage := func() {
		cur = Page{PageIndex: len(pages), YOffset: docY}
		cursorY = 0
	}
	closePage := func() {
		cur.Height = cursorY
		pages = append(pages, cur)
		docY += cursorY
	}

	paragraphs := e.store.Paragraphs()
	for _, p := range paragraphs {
		pl, ok := e.cache[p.ID]
		if !ok {
			pl = e.layoutParagraph(p)
			e.cache[p.ID] = pl
		}
		lineStart := 0
		for i, line := range pl.Lines {
			if cursorY > 0 && cursorY+line.Height > contentHeight {
				if lineStart < i {
					cur.Entries = append(cur.Entries, PageEntry{ParagraphID: p.ID, LineStart: lineStart, LineEnd: i})
				}
				closePage()
				openPage()
				lineStart = i
			}
			cursorY += line.Height
		}
		if lineStart < len(pl.Lines) {
			cur.Entries = append(cur.Entries, PageEntry{ParagraphID: p.ID, LineStart: lineStart, LineEnd: len(pl.Lines)})
		}
	}
	closePage()
	e.pages = pages
}

// HitTest resolves a point within a page to the nearest document position,
// per spec.md §4.C: locate the line whose [top, bottom) range covers y (a y
// above the first line resolves to that line), then walk its clusters
// accumulating x, picking the nearer cluster edge (the right one on a tie).
func (e *Engine) HitTest(pageIndex int, x, y float32) (document.ParagraphID, uint64, error) {
	if pageIndex < 0 || pageIndex >= len(e.pages) {
		return 0, 0, ErrOutOfRange
	}
	page := e.pages[pageIndex]
	if len(page.Entries) == 0 {
		return 0, 0, nil
	}
	var cursorY float32
	for _, entry := range page.Entries {
		pl, ok := e.cache[entry.ParagraphID]
		if !ok {
			continue
		}
		for li := entry.LineStart; li < entry.LineEnd; li++ {
			line := pl.Lines[li]
			lineBottom := cursorY + line.Height
			cursorY = lineBottom
			if y >= lineBottom {
				continue
			}
			return entry.ParagraphID, hitTestLine(line, x), nil
		}
	}
	// below the last line of the page: snap to its end.
	last := page.Entries[len(page.Entries)-1]
	pl, ok := e.cache[last.ParagraphID]
	if !ok || last.LineEnd == 0 {
		return last.ParagraphID, 0, nil
	}
	line := pl.Lines[last.LineEnd-1]
	return last.ParagraphID, line.ByteEnd, nil
}

// hitTestLine walks a line's clusters left to right, returning the byte
// offset of whichever cluster boundary is nearest x (the right one on a
// tie).
func hitTestLine(line LineLayout, x float32) uint64 {
	if x <= 0 || len(line.Clusters) == 0 {
		return line.ByteStart
	}
	var cursorX float32
	for i, c := range line.Clusters {
		left := cursorX
		right := cursorX + c.AdvanceWidth
		cursorX = right
		if x <= right {
			if x-left < right-x {
				return c.ByteOffset
			}
			if i+1 < len(line.Clusters) {
				return line.Clusters[i+1].ByteOffset
			}
			return line.ByteEnd
		}
	}
	return line.ByteEnd
}

// CaretGeometry resolves a document position to its page, pixel location,
// line height, and UTF-16 offset within the line, for placing the blinking
// caret. Returns ErrOutOfRange if pos's paragraph is not currently laid out
// on any page (e.g. a stale id from before a merge).
func (e *Engine) CaretGeometry(pos document.Position) (pageIndex int, x, y, height float32, utf16OffsetInLine uint64, err error) {
	if !e.everLaidOut {
		e.Relayout()
	}
	pl, ok := e.paragraphLayout(pos.ParagraphID)
	if !ok {
		return 0, 0, 0, 0, 0, ErrOutOfRange
	}
	lineIdx, line := findLine(pl, pos.ByteOffset)
	text := ""
	if p, ok := e.store.ParagraphByID(pos.ParagraphID); ok {
		text = p.Text.String()
	}

	for pi, page := range e.pages {
		var cursorY float32
		for _, entry := range page.Entries {
			entryPl, ok := e.cache[entry.ParagraphID]
			if !ok {
				continue
			}
			for li := entry.LineStart; li < entry.LineEnd; li++ {
				if entry.ParagraphID == pos.ParagraphID && li == lineIdx {
					lx := caretX(line, pos.ByteOffset)
					return pi, lx, cursorY, line.Height, caretUTF16Offset(line, pos.ByteOffset, text), nil
				}
				cursorY += entryPl.Lines[li].Height
			}
		}
	}
	return 0, 0, 0, 0, 0, ErrOutOfRange
}

// findLine returns the index and layout of the line containing byteOffset
// within a paragraph's cached layout.
func findLine(pl *ParagraphLayout, byteOffset uint64) (int, LineLayout) {
	for i, line := range pl.Lines {
		if byteOffset >= line.ByteStart && byteOffset <= line.ByteEnd {
			if i < len(pl.Lines)-1 && byteOffset == line.ByteEnd {
				continue // prefer the start of the next line at an exact boundary
			}
			return i, line
		}
	}
	last := len(pl.Lines) - 1
	return last, pl.Lines[last]
}

// caretX returns the pixel x offset of byteOffset within line.
func caretX(line LineLayout, byteOffset uint64) float32 {
	var x float32
	for _, c := range line.Clusters {
		if c.ByteOffset >= byteOffset {
			return x
		}
		x += c.AdvanceWidth
	}
	return line.Width
}

// caretUTF16Offset returns the UTF-16 code unit offset of byteOffset within
// line, for the render encoder's cursor_utf16_offset field. text is the
// paragraph's full text, used to measure the last cluster at line end.
func caretUTF16Offset(line LineLayout, byteOffset uint64, text string) uint64 {
	for _, c := range line.Clusters {
		if c.ByteOffset >= byteOffset {
			return c.UTF16Offset
		}
	}
	if len(line.Clusters) == 0 {
		return 0
	}
	last := line.Clusters[len(line.Clusters)-1]
	if line.ByteEnd <= uint64(len(text)) && last.ByteOffset <= line.ByteEnd {
		return last.UTF16Offset + UTF16Len(text[last.ByteOffset:line.ByteEnd])
	}
	return last.UTF16Offset + 1
}
