package editor

import (
	"time"

	"github.com/inkwell/paginate/changefeed"
	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/fontreg"
	"github.com/inkwell/paginate/layout"
)

// Editor owns the document store, font registry, layout engine, cursor/
// selection state, and the undo/redo stack. It is the sole entry point
// commands enter through; package document and package layout are never
// driven directly by a host.
type Editor struct {
	store  *document.Store
	fonts  *fontreg.Registry
	layout *layout.Engine

	cursor      Cursor
	selection   *Selection
	desiredX    float32
	hasDesiredX bool

	undo *History
	now  func() time.Time
	feed *changefeed.Feed
}

// New creates an editor over a fresh empty document, with the given
// layout configuration and a font registry pre-populated with the
// synthetic default font. The caret starts at offset 0 of the document's
// single paragraph.
func New(cfg layout.Config) *Editor {
	fonts := fontreg.NewRegistry()
	store := document.NewStore(fontreg.DefaultFontID)
	return &Editor{
		store:  store,
		cursor: Cursor{ParagraphID: store.Paragraphs()[0].ID},
		fonts:  fonts,
		layout: layout.NewEngine(store, fonts, cfg),
		undo:   NewHistory(),
		now:    time.Now,
		feed:   changefeed.New(),
	}
}

// Versions returns a channel of future document_version values, for hosts
// that want a cheap dirty-document signal without polling DocumentVersion
// (component H, spec.md §6).
func (ed *Editor) Versions() <-chan uint64 {
	return ed.feed.Versions()
}

// Close releases the editor's change feed. Safe to call once the editor is
// no longer in use.
func (ed *Editor) Close() {
	ed.feed.Close()
}

// Cursor returns the current caret position.
func (ed *Editor) Cursor() Cursor { return ed.cursor }

// Selection returns the current selection, or nil if there is none.
func (ed *Editor) Selection() *Selection { return ed.selection }

// HasSelection reports whether a non-collapsed selection exists.
func (ed *Editor) HasSelection() bool {
	return ed.selection != nil && !selectionEmpty(*ed.selection)
}

// GetText returns the full document text.
func (ed *Editor) GetText() string { return ed.store.GetText() }

// PageCount forces a relayout of any pending changes and returns the
// number of pages.
func (ed *Editor) PageCount() int {
	ed.layout.Relayout()
	return len(ed.layout.Pages())
}

// DocumentVersion returns the store's monotonic version counter.
func (ed *Editor) DocumentVersion() uint64 { return ed.store.Version() }

// CursorParagraphID returns the paragraph id the caret currently sits in.
func (ed *Editor) CursorParagraphID() document.ParagraphID { return ed.cursor.ParagraphID }

// CursorByteOffset returns the caret's byte offset within its paragraph.
func (ed *Editor) CursorByteOffset() uint64 { return ed.cursor.ByteOffset }

// SelectionRange returns the ordered [start,end) absolute byte range of the
// current selection. ok is false when there is no selection.
func (ed *Editor) SelectionRange() (start, end uint64, ok bool) {
	if !ed.HasSelection() {
		return 0, 0, false
	}
	start, end, err := ed.selectionAbsRange()
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

// PageWidth returns the configured page width in pixels.
func (ed *Editor) PageWidth() float32 { return ed.layout.Config().PageWidth }

// PageHeight returns the configured page height in pixels.
func (ed *Editor) PageHeight() float32 { return ed.layout.Config().PageHeight }

// MarginTop returns the configured top margin in pixels.
func (ed *Editor) MarginTop() float32 { return ed.layout.Config().MarginTop }

// MarginBottom returns the configured bottom margin in pixels.
func (ed *Editor) MarginBottom() float32 { return ed.layout.Config().MarginBottom }

// MarginLeft returns the configured left margin in pixels.
func (ed *Editor) MarginLeft() float32 { return ed.layout.Config().MarginLeft }

// MarginRight returns the configured right margin in pixels.
func (ed *Editor) MarginRight() float32 { return ed.layout.Config().MarginRight }

// ContentWidth returns PageWidth minus the left/right margins.
func (ed *Editor) ContentWidth() float32 { return ed.layout.Config().ContentWidth() }

// ContentHeight returns PageHeight minus the top/bottom margins.
func (ed *Editor) ContentHeight() float32 { return ed.layout.Config().ContentHeight() }

// Store exposes the underlying paragraph store, for package render.
func (ed *Editor) Store() *document.Store { return ed.store }

// Layout exposes the underlying layout engine, for package render.
func (ed *Editor) Layout() *layout.Engine { return ed.layout }

// Fonts exposes the font registry.
func (ed *Editor) Fonts() *fontreg.Registry { return ed.fonts }

// RegisterFont registers a new font id with the given metrics.
func (ed *Editor) RegisterFont(id fontreg.FontID, m fontreg.Metrics) error {
	return ed.fonts.Register(id, m)
}

// SetFontMetrics updates the default font's metrics in place.
func (ed *Editor) SetFontMetrics(m fontreg.Metrics) {
	ed.fonts.SetDefault(m)
	ed.layout.InvalidateAll()
}

func selectionEmpty(s Selection) bool {
	return s.Anchor.ParagraphID == s.Focus.ParagraphID && s.Anchor.ByteOffset == s.Focus.ByteOffset
}

// focus returns the cursor position that selection/motion commands treat
// as "where the caret visually is": the selection's focus end if a
// selection exists, else the bare cursor.
func (ed *Editor) focus() Cursor {
	if ed.selection != nil {
		return ed.selection.Focus
	}
	return ed.cursor
}

// setFocus moves the caret to pos. With extend=false the selection
// collapses; with extend=true the anchor (existing selection's anchor, or
// the pre-motion cursor if none) is preserved and only the focus moves.
func (ed *Editor) setFocus(pos Cursor, extend bool) bool {
	if extend {
		anchor := ed.cursor
		if ed.selection != nil {
			anchor = ed.selection.Anchor
		}
		ed.selection = &Selection{Anchor: anchor, Focus: pos}
		ed.cursor = pos
		return true
	}
	ed.selection = nil
	ed.cursor = pos
	return true
}

// absOf resolves a Cursor to its absolute document byte offset.
func (ed *Editor) absOf(c Cursor) (uint64, error) {
	return ed.store.AbsoluteOffsetOf(c.ParagraphID, c.ByteOffset)
}

// selectionAbsRange returns the ordered [start,end) absolute byte range of
// the current selection. Only valid when HasSelection() is true.
func (ed *Editor) selectionAbsRange() (uint64, uint64, error) {
	a, err := ed.absOf(ed.selection.Anchor)
	if err != nil {
		return 0, 0, err
	}
	b, err := ed.absOf(ed.selection.Focus)
	if err != nil {
		return 0, 0, err
	}
	if a > b {
		a, b = b, a
	}
	return a, b, nil
}

// invalidateFromResult pushes a store EditResult's touched paragraphs into
// the layout engine's dirty set, forcing repagination on structural
// change, and broadcasts the new document_version on the change feed.
func (ed *Editor) invalidateFromResult(touched []document.ParagraphID, structural bool) {
	ed.layout.Invalidate(touched)
	if structural {
		ed.layout.MarkStructuralChange()
	}
	ed.feed.Publish(ed.store.Version())
}

// nextParagraphID returns the paragraph following id in document order.
func (ed *Editor) nextParagraphID(id document.ParagraphID) (document.ParagraphID, bool) {
	paras := ed.store.Paragraphs()
	for i, p := range paras {
		if p.ID == id {
			if i+1 < len(paras) {
				return paras[i+1].ID, true
			}
			return 0, false
		}
	}
	return 0, false
}

// prevParagraphID returns the paragraph preceding id in document order.
func (ed *Editor) prevParagraphID(id document.ParagraphID) (document.ParagraphID, bool) {
	paras := ed.store.Paragraphs()
	for i, p := range paras {
		if p.ID == id {
			if i > 0 {
				return paras[i-1].ID, true
			}
			return 0, false
		}
	}
	return 0, false
}

// clusterBoundariesOf returns the grapheme-cluster byte boundaries of
// paragraph id's text.
func (ed *Editor) clusterBoundariesOf(id document.ParagraphID) []uint64 {
	p, ok := ed.store.ParagraphByID(id)
	if !ok {
		return []uint64{0}
	}
	bounds, err := layout.ClusterBoundaries(p.Text.String())
	if err != nil || len(bounds) == 0 {
		tracer().Errorf("cluster boundaries for paragraph %d: %v", id, err)
		return []uint64{0}
	}
	return bounds
}
