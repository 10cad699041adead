// Package render encodes an editor's current layout into the flat,
// little-endian binary buffers spec.md §6 defines as the wire contract
// between the core and a host renderer: a u32 buffer of indices/lengths/
// flags, an f32 buffer of geometry, a UTF-8 text buffer, and a u32 style
// buffer. It is new relative to the teacher (which has no host/renderer
// boundary at all), built with encoding/binary + bytes.Buffer the way the
// teacher's cords.go builds its String()/substr output.
package render

import (
	"bytes"
	"encoding/binary"

	"github.com/npillmayer/schuko/tracing"

	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/editor"
	"github.com/inkwell/paginate/layout"
	"github.com/inkwell/paginate/styleruns"
)

func tracer() tracing.Trace {
	return tracing.Select("render")
}

// Wire constants, stable across builds; changing any requires bumping
// SchemaVersion (spec.md §6 "Block type and flag constants are wire-stable").
const (
	Magic         uint32 = 0x4D575244
	SchemaVersion uint32 = 1

	headerSlots  = 12
	lineSlots    = 14
	cursorU32    = 2
	cursorF32    = 3
	absentUTF16  = uint32(0xFFFFFFFF)
)

// Block-type wire values for the per-line flags/block_type fields.
const (
	BlockTypeParagraph uint32 = 0
	// 1..6 are BlockTypeParagraph+heading level.
	BlockTypeListItem uint32 = 7

	FlagIsHeading  uint32 = 1 << 0
	FlagIsListItem uint32 = 1 << 1
)

// Buffers holds the parallel buffers one Build populates. They are reused
// across calls (cleared then rewritten in place): pointers/slices are only
// valid until the next mutating command or Build call, per spec.md §4.E/§5.
type Buffers struct {
	U32   []uint32
	F32   []float32
	Text  []byte
	Style []uint32
}

// Encoder owns a reusable Buffers, rebuilt by each Build call.
type Encoder struct {
	buf Buffers
}

// New creates an empty encoder.
func New() *Encoder { return &Encoder{} }

// Buffers returns the buffers as populated by the most recent Build.
func (enc *Encoder) Buffers() Buffers { return enc.buf }

// pageLines is one included page's pre-walked line sequence, built once and
// used to size the u32/f32 buffers before the header's offsets are known.
type pageLines struct {
	page  layout.Page
	lines []lineEntry
}

type lineEntry struct {
	paragraphID document.ParagraphID
	line        layout.LineLayout
	y           float32 // line top, content-relative within its page
}

// Build walks ed's current pagination, keeps the pages intersecting
// [viewportY, viewportY+viewportHeight), and (re)populates the encoder's
// four buffers per spec.md §6's exact layout.
func (enc *Encoder) Build(ed *editor.Editor, viewportY, viewportHeight float32) {
	store := ed.Store()
	eng := ed.Layout()
	pages := eng.Pages()
	tracer().Debugf("build: viewport=[%.1f,%.1f) over %d pages", viewportY, viewportY+viewportHeight, len(pages))

	var included []pageLines
	for _, pg := range pages {
		if !intersectsViewport(pg, viewportY, viewportHeight) {
			continue
		}
		included = append(included, walkPage(eng, pg))
	}

	var u32Body []uint32
	var f32Body []float32
	var styleBody []uint32
	var text bytes.Buffer

	var cursorU32Block []uint32
	var cursorF32Block []float32
	cursorPresent := false

	var textUTF16Cursor uint64

	textCache := make(map[document.ParagraphID]string)
	paraText := func(p *document.Paragraph) string {
		if s, ok := textCache[p.ID]; ok {
			return s
		}
		s := p.Text.String()
		textCache[p.ID] = s
		return s
	}

	for _, pl := range included {
		u32Body = append(u32Body, uint32(pl.page.PageIndex), uint32(len(pl.lines)))
		f32Body = append(f32Body, pl.page.YOffset, eng.Config().ContentWidth(), pl.page.Height)

		for _, le := range pl.lines {
			p, ok := store.ParagraphByID(le.paragraphID)
			if !ok {
				continue
			}
			fullText := paraText(p)
			lineText := sliceSafe(fullText, le.line.ByteStart, le.line.ByteEnd)

			textByteOff := uint64(text.Len())
			textUTF16Off := textUTF16Cursor
			text.WriteString(lineText)
			textByteLen := uint64(len(lineText))
			textUTF16Len := layout.UTF16Len(lineText)
			textUTF16Cursor += textUTF16Len

			var markerByteOff, markerByteLen, markerUTF16Off, markerUTF16Len uint64
			if le.line.Marker != "" {
				markerByteOff = uint64(text.Len())
				markerUTF16Off = textUTF16Cursor
				text.WriteString(le.line.Marker)
				markerByteLen = uint64(len(le.line.Marker))
				markerUTF16Len = layout.UTF16Len(le.line.Marker)
				textUTF16Cursor += markerUTF16Len
			}

			blockType, flags := blockWireFields(p.Block)

			selStartU16, selEndU16 := absentUTF16, absentUTF16
			if start, end, ok := ed.SelectionRange(); ok {
				if paraAbsStart, err := store.AbsoluteOffsetOf(le.paragraphID, 0); err == nil {
					if lineStart, lineEnd, ok := lineSelectionRange(fullText, p.Text.Len(), le.line, paraAbsStart, start, end); ok {
						selStartU16, selEndU16 = uint32(lineStart), uint32(lineEnd)
					}
				}
			}

			styleStartIdx := len(styleBody)
			spans := lineStyleSpans(fullText, p.Styles, le.line)
			styleBody = append(styleBody, spans...)
			styleCount := len(spans) / 3

			lineX := float32(0)
			if le.line.Marker != "" {
				lineX = le.line.MarkerWidth
			}

			u32Body = append(u32Body,
				uint32(textByteOff), uint32(textByteLen), uint32(textUTF16Off), uint32(textUTF16Len),
				blockType, flags,
				uint32(markerByteOff), uint32(markerByteLen), uint32(markerUTF16Off), uint32(markerUTF16Len),
				selStartU16, selEndU16,
				uint32(styleStartIdx), uint32(styleCount),
			)
			f32Body = append(f32Body, lineX, le.y)

			if id := ed.CursorParagraphID(); id == le.paragraphID {
				off := ed.CursorByteOffset()
				if off >= le.line.ByteStart && off <= le.line.ByteEnd {
					if page, x, y, height, u16, err := eng.CaretGeometry(document.Position{ParagraphID: id, ByteOffset: off}); err == nil && page == pl.page.PageIndex {
						cursorU32Block = []uint32{uint32(pl.page.PageIndex), uint32(u16)}
						cursorF32Block = []float32{x, y, height}
						cursorPresent = true
					}
				}
			}
		}
	}

	header := make([]uint32, headerSlots)
	header[0] = Magic
	header[1] = SchemaVersion
	version := ed.DocumentVersion()
	header[2] = uint32(version)
	header[3] = uint32(version >> 32)
	header[4] = uint32(len(included))
	if cursorPresent {
		header[5] = 1
	}
	header[6] = 0 // selection_present: legacy, unused
	header[7] = uint32(text.Len())

	u32 := append(append([]uint32(nil), header...), u32Body...)
	if cursorPresent {
		header[8] = uint32(len(u32))
		u32 = append(u32, cursorU32Block...)
	}

	f32 := append([]float32(nil), f32Body...)
	if cursorPresent {
		header[10] = uint32(len(f32))
		f32 = append(f32, cursorF32Block...)
	}
	copy(u32[:headerSlots], header)

	enc.buf.U32 = u32
	enc.buf.F32 = f32
	enc.buf.Style = styleBody
	enc.buf.Text = text.Bytes()
}

// MarshalU32 encodes buf.U32 as little-endian bytes, the wire form a host
// maps or copies directly.
func MarshalU32(buf []uint32) []byte {
	out := make([]byte, len(buf)*4)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// MarshalStyle encodes buf.Style as little-endian bytes.
func MarshalStyle(buf []uint32) []byte {
	return MarshalU32(buf)
}

func intersectsViewport(pg layout.Page, viewportY, viewportHeight float32) bool {
	top, bottom := pg.YOffset, pg.YOffset+pg.Height
	if pg.Height <= 0 {
		bottom = top
	}
	return top < viewportY+viewportHeight && bottom >= viewportY
}

func walkPage(eng *layout.Engine, pg layout.Page) pageLines {
	var cursorY float32
	var lines []lineEntry
	for _, en := range pg.Entries {
		pl, ok := eng.ParagraphLayout(en.ParagraphID)
		if !ok {
			continue
		}
		for li := en.LineStart; li < en.LineEnd; li++ {
			line := pl.Lines[li]
			lines = append(lines, lineEntry{paragraphID: en.ParagraphID, line: line, y: cursorY})
			cursorY += line.Height
		}
	}
	return pageLines{page: pg, lines: lines}
}

func sliceSafe(s string, start, end uint64) string {
	if end > uint64(len(s)) {
		end = uint64(len(s))
	}
	if start > end {
		return ""
	}
	return s[start:end]
}

// blockWireFields maps a paragraph's BlockKind to the §6 block_type/flags
// wire values.
func blockWireFields(b document.BlockKind) (blockType, flags uint32) {
	switch b.Tag {
	case document.Heading:
		return uint32(b.Level), FlagIsHeading
	case document.ListItem:
		return BlockTypeListItem, FlagIsListItem
	default:
		return BlockTypeParagraph, 0
	}
}

// lineSelectionRange translates the document-absolute selection
// [selStart,selEnd) into paragraph-local offsets (via paraAbsStart), clips
// it to line's byte range, and returns the overlap as UTF-16 offsets local
// to the line. ok is false when the line has no overlap with the selection.
func lineSelectionRange(fullText string, paraLen uint64, line layout.LineLayout, paraAbsStart, selStart, selEnd uint64) (startU16, endU16 uint64, ok bool) {
	localStart, localEnd := localRange(paraAbsStart, paraLen, selStart, selEnd)
	lo, hi, ok := lineSelectionLocal(line, localStart, localEnd)
	if !ok {
		return 0, 0, false
	}
	startU16 = layout.UTF16Len(sliceSafe(fullText, line.ByteStart, lo))
	endU16 = layout.UTF16Len(sliceSafe(fullText, line.ByteStart, hi))
	return startU16, endU16, true
}

// localRange clips [absStart,absEnd) to paragraph-local offsets, given the
// paragraph's own absolute start and length.
func localRange(paraAbsStart, paraLen, absStart, absEnd uint64) (lo, hi uint64) {
	paraAbsEnd := paraAbsStart + paraLen
	lo, hi = absStart, absEnd
	if lo < paraAbsStart {
		lo = paraAbsStart
	}
	if hi > paraAbsEnd {
		hi = paraAbsEnd
	}
	if lo > paraAbsStart {
		lo -= paraAbsStart
	} else {
		lo = 0
	}
	if hi > paraAbsStart {
		hi -= paraAbsStart
	} else {
		hi = 0
	}
	return lo, hi
}

func lineSelectionLocal(line layout.LineLayout, selStart, selEnd uint64) (lo, hi uint64, ok bool) {
	if selEnd <= line.ByteStart || selStart >= line.ByteEnd {
		return 0, 0, false
	}
	lo, hi = selStart, selEnd
	if lo < line.ByteStart {
		lo = line.ByteStart
	}
	if hi > line.ByteEnd {
		hi = line.ByteEnd
	}
	return lo, hi, true
}

// lineStyleSpans returns line's style runs clipped to its byte range, as
// flattened [utf16_start_in_line, utf16_len, font_id] triplets.
func lineStyleSpans(fullText string, styles styleruns.Runs, line layout.LineLayout) []uint32 {
	if styles.Len() == 0 {
		return nil
	}
	var out []uint32
	for _, run := range styles.Slice() {
		runEnd := run.ByteStart + run.ByteLen
		lo, hi := run.ByteStart, runEnd
		if lo < line.ByteStart {
			lo = line.ByteStart
		}
		if hi > line.ByteEnd {
			hi = line.ByteEnd
		}
		if lo >= hi {
			continue
		}
		startU16 := layout.UTF16Len(sliceSafe(fullText, line.ByteStart, lo))
		lenU16 := layout.UTF16Len(sliceSafe(fullText, lo, hi))
		out = append(out, uint32(startU16), uint32(lenU16), uint32(run.FontID))
	}
	return out
}
