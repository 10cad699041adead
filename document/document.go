// Package document implements the rope-backed paragraph store: an ordered
// sequence of paragraphs, each with its own rope and style runs, indexed
// by a stable id and addressable through a single absolute byte offset
// space.
//
// The edit operations (insert/delete/replace/split/merge) follow the
// teacher's cords.Insert/Split/Cut shape: resolve a position, operate on
// the addressed rope, and report back which part of the structure
// changed. Where the teacher's cord spans one whole document, here a
// paragraph boundary is also an edit boundary, so the store additionally
// tracks which paragraphs were touched.
package document

import (
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/inkwell/paginate/fontreg"
	"github.com/inkwell/paginate/rope"
	"github.com/inkwell/paginate/styleruns"
)

func tracer() tracing.Trace {
	return tracing.Select("document")
}

// ParagraphID stably identifies a paragraph. Ids are never reused, even
// after the paragraph they named is destroyed by a merge.
type ParagraphID uint64

// BlockTag discriminates the kinds of block-level content a paragraph can
// hold.
type BlockTag uint8

const (
	Paragraph BlockTag = iota
	Heading
	ListItem
)

// BlockKind is a paragraph's block-level classification.
type BlockKind struct {
	Tag    BlockTag
	Level  int    // heading level, 1..=6; valid when Tag == Heading
	Marker string // list marker text; valid when Tag == ListItem
	Indent int    // list indent level, 0..=n; valid when Tag == ListItem
}

// DocError is the package sentinel error type.
type DocError string

func (e DocError) Error() string { return string(e) }

// ErrInvalidOffset is returned for an out-of-range absolute or local byte
// offset. Per spec.md §4.A this is a programmer error: the editor layer is
// responsible for never producing one from a command.
const ErrInvalidOffset = DocError("document: invalid offset")

// ErrInvalidBoundary is returned when an offset does not fall on a UTF-8
// code point boundary.
const ErrInvalidBoundary = DocError("document: offset is not a UTF-8 boundary")

// ErrUnknownParagraph is returned when a ParagraphID no longer resolves to
// a live paragraph (e.g. it was destroyed by a merge). Per the design
// notes, consumers holding a stale id are expected to drop it rather than
// treat this as fatal.
const ErrUnknownParagraph = DocError("document: unknown paragraph id")

// Paragraph is one block-level unit of the document: a contiguous run of
// text with no interior paragraph breaks (a trailing newline is implicit),
// its block classification, and its style runs.
type Paragraph struct {
	ID     ParagraphID
	Block  BlockKind
	Text   *rope.Rope
	Styles styleruns.Runs
}

// EditResult reports the effect of a single store operation.
type EditResult struct {
	TouchedParagraphIDs []ParagraphID
	StructuralChange    bool
	NewCursorHint       CursorHint
}

// CursorHint suggests where the caret should land after an edit.
type CursorHint struct {
	ParagraphID ParagraphID
	ByteOffset  uint64
	HasHint     bool
}

// Position addresses a single byte offset within a named paragraph. It is
// the shared coordinate type between packages layout and editor, kept
// here (rather than in either) since both depend on document but not on
// each other.
type Position struct {
	ParagraphID ParagraphID
	ByteOffset  uint64
}

// Store owns the ordered paragraph sequence, the paragraph index, and the
// document-wide version counter.
type Store struct {
	paragraphs    []*Paragraph
	offsets       []uint64 // offsets[i] = absolute start offset of paragraphs[i]
	byID          map[ParagraphID]int
	nextID        ParagraphID
	version       uint64
	defaultFontID fontreg.FontID
}

// NewStore creates a document with a single, empty paragraph.
func NewStore(defaultFontID fontreg.FontID) *Store {
	s := &Store{
		byID:          make(map[ParagraphID]int),
		defaultFontID: defaultFontID,
	}
	empty, _ := rope.FromString("")
	p := &Paragraph{ID: s.allocID(), Block: BlockKind{Tag: Paragraph}, Text: empty}
	s.paragraphs = []*Paragraph{p}
	s.offsets = []uint64{0}
	s.byID[p.ID] = 0
	return s
}

func (s *Store) allocID() ParagraphID {
	s.nextID++
	return s.nextID
}

// Version returns the current document_version.
func (s *Store) Version() uint64 { return s.version }

func (s *Store) bumpVersion() {
	s.version++
}

// ParagraphCount returns the number of live paragraphs.
func (s *Store) ParagraphCount() int { return len(s.paragraphs) }

// Paragraphs returns the paragraphs in document order. Callers must treat
// the slice and its elements as read-only.
func (s *Store) Paragraphs() []*Paragraph { return s.paragraphs }

// ParagraphByID resolves a stable id to its paragraph, or false if it no
// longer exists.
func (s *Store) ParagraphByID(id ParagraphID) (*Paragraph, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.paragraphs[i], true
}

// Len returns the document's length in the absolute byte-offset coordinate
// space: the sum of every paragraph's own text length, with no separator
// bytes between paragraphs. This is shorter than len(GetText()), which
// joins paragraphs with a display '\n' that has no address in this space.
func (s *Store) Len() uint64 {
	if len(s.paragraphs) == 0 {
		return 0
	}
	last := len(s.paragraphs) - 1
	return s.offsets[last] + s.paragraphs[last].Text.Len()
}

// GetText returns the full document text.
func (s *Store) GetText() string {
	var b strings.Builder
	for i, p := range s.paragraphs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.Text.String())
	}
	return b.String()
}

// ParagraphAt resolves an absolute byte offset to the paragraph containing
// it and the local offset within that paragraph's text. An offset exactly
// at a paragraph boundary resolves to the start of the following
// paragraph, except for the document end, which resolves to the end of
// the last paragraph.
func (s *Store) ParagraphAt(abs uint64) (ParagraphID, uint64, error) {
	if abs > s.Len() {
		return 0, 0, ErrInvalidOffset
	}
	idx := s.paragraphIndexAt(abs)
	local := abs - s.offsets[idx]
	return s.paragraphs[idx].ID, local, nil
}

// paragraphIndexAt returns the slice index of the paragraph containing abs,
// via binary search over the cumulative offset table.
func (s *Store) paragraphIndexAt(abs uint64) int {
	lo, hi := 0, len(s.paragraphs)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if s.offsets[mid] <= abs {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// AbsoluteOffsetOf converts a paragraph-local offset back to an absolute
// document offset.
func (s *Store) AbsoluteOffsetOf(id ParagraphID, local uint64) (uint64, error) {
	i, ok := s.byID[id]
	if !ok {
		return 0, ErrUnknownParagraph
	}
	if local > s.paragraphs[i].Text.Len() {
		return 0, ErrInvalidOffset
	}
	return s.offsets[i] + local, nil
}

// TextOf returns the text of a single paragraph.
func (s *Store) TextOf(id ParagraphID) (string, error) {
	p, ok := s.ParagraphByID(id)
	if !ok {
		return "", ErrUnknownParagraph
	}
	return p.Text.String(), nil
}

// rebuildOffsetsFrom recomputes cumulative offsets for paragraphs[from:],
// leaving everything before `from` untouched; this is the "rebuild the
// affected suffix" step spec.md's paragraph index calls for.
func (s *Store) rebuildOffsetsFrom(from int) {
	start := uint64(0)
	if from > 0 {
		start = s.offsets[from-1] + s.paragraphs[from-1].Text.Len()
	}
	for i := from; i < len(s.paragraphs); i++ {
		s.offsets[i] = start
		start += s.paragraphs[i].Text.Len()
		s.byID[s.paragraphs[i].ID] = i
	}
}
