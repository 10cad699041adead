// Package layout implements per-paragraph line breaking and document-wide
// pagination, driven by a dirty set of paragraph ids the way the teacher's
// package is driven by cord-tree invalidation propagation, and a greedy
// first-fit line breaker generalized from the teacher's
// styled/formatter.firstFit (itself a transliteration of the Wikipedia
// first-fit-decreasing line-wrap pseudocode) from "does this UAX#14
// segment fit in LineWidth columns" to "does this UAX#29 grapheme
// cluster's pixel advance fit in content_width".
package layout

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/fontreg"
)

func tracer() tracing.Trace {
	return tracing.Select("layout")
}

// Config holds the page geometry and list-indent unit the engine lays out
// against. It is set once at editor construction.
type Config struct {
	PageWidth     float32
	PageHeight    float32
	MarginTop     float32
	MarginBottom  float32
	MarginLeft    float32
	MarginRight   float32
	IndentUnit    float32 // pixel width of one list-indent level
}

// ContentWidth is page_width minus left/right margins.
func (c Config) ContentWidth() float32 {
	return c.PageWidth - c.MarginLeft - c.MarginRight
}

// ContentHeight is page_height minus top/bottom margins.
func (c Config) ContentHeight() float32 {
	return c.PageHeight - c.MarginTop - c.MarginBottom
}

// ClusterMetric is one grapheme cluster's position and advance within a
// line.
type ClusterMetric struct {
	ByteOffset   uint64
	UTF16Offset  uint64
	AdvanceWidth float32
}

// LineLayout is one laid-out line within a paragraph.
type LineLayout struct {
	ByteStart, ByteEnd uint64
	Clusters           []ClusterMetric
	Ascent             float32
	Height             float32
	Width              float32
	Marker             string
	MarkerWidth        float32
}

// ParagraphLayout is the cached layout of one paragraph.
type ParagraphLayout struct {
	Lines       []LineLayout
	TotalHeight float32
}

// PageEntry names the line range of one paragraph appearing on a page.
type PageEntry struct {
	ParagraphID      document.ParagraphID
	LineStart, LineEnd int // half-open [LineStart, LineEnd) into that paragraph's Lines
}

// Page is one paginated page of laid-out content.
type Page struct {
	PageIndex int
	YOffset   float32
	Height    float32
	Entries   []PageEntry
}

// RelayoutSummary reports what a Relayout pass did.
type RelayoutSummary struct {
	ChangedParagraphs []document.ParagraphID
	Repaginated       bool
}

// LayoutError is the package sentinel error type.
type LayoutError string

func (e LayoutError) Error() string { return string(e) }

// ErrOutOfRange is returned by HitTest for a page index outside [0, len(pages)).
const ErrOutOfRange = LayoutError("layout: page index out of range")

// Engine owns the dirty set, the per-paragraph layout cache, and the
// current pagination. It never fails: once relaid-out it is total over
// any valid document state (spec.md §4.C "Failure").
type Engine struct {
	store  *document.Store
	fonts  *fontreg.Registry
	cfg    Config

	cache map[document.ParagraphID]*ParagraphLayout
	dirty map[document.ParagraphID]bool

	paginationDirty bool
	everLaidOut     bool
	pages           []Page
}

// NewEngine creates a layout engine bound to store and fonts, with the
// whole document initially dirty.
func NewEngine(store *document.Store, fonts *fontreg.Registry, cfg Config) *Engine {
	e := &Engine{
		store: store,
		fonts: fonts,
		cfg:   cfg,
		cache: make(map[document.ParagraphID]*ParagraphLayout),
		dirty: make(map[document.ParagraphID]bool),
	}
	e.InvalidateAll()
	return e
}

// Invalidate marks paragraphs as needing relayout. Per spec.md §4.C, this
// also marks pagination dirty if any of them had a prior cached (non-nil)
// height — a paragraph whose content changed while it still has a stale
// cached height can only have invalidated page composition once relaid
// out, but a paragraph that was never laid out yet cannot yet have moved
// anything.
func (e *Engine) Invalidate(ids []document.ParagraphID) {
	for _, id := range ids {
		e.dirty[id] = true
		if _, ok := e.cache[id]; ok {
			e.paginationDirty = true
		}
	}
}

// InvalidateAll marks every live paragraph dirty and forces repagination.
func (e *Engine) InvalidateAll() {
	for _, p := range e.store.Paragraphs() {
		e.dirty[p.ID] = true
	}
	e.paginationDirty = true
}

// MarkStructuralChange forces repagination on the next Relayout even if no
// paragraph's measured height actually changed, since paragraph
// insertion/removal alone changes page composition (spec.md §4.A
// EditResult.structural_change).
func (e *Engine) MarkStructuralChange() {
	e.paginationDirty = true
}

// Relayout processes the dirty set in document order, recomputing layout
// for each dirty paragraph still present in the store, then repaginates
// if warranted.
func (e *Engine) Relayout() RelayoutSummary {
	var changed []document.ParagraphID
	for _, p := range e.store.Paragraphs() {
		if !e.dirty[p.ID] {
			continue
		}
		delete(e.dirty, p.ID)
		newLayout := e.layoutParagraph(p)
		old, hadOld := e.cache[p.ID]
		if !hadOld || old.TotalHeight != newLayout.TotalHeight {
			e.paginationDirty = true
		}
		e.cache[p.ID] = newLayout
		changed = append(changed, p.ID)
	}
	// Drop dirty entries for paragraphs the store no longer has (merged
	// away): a stale id is simply forgotten, per the design notes.
	for id := range e.dirty {
		if _, ok := e.store.ParagraphByID(id); !ok {
			delete(e.dirty, id)
		}
	}
	repaginated := false
	if e.paginationDirty || !e.everLaidOut {
		e.paginate()
		e.paginationDirty = false
		e.everLaidOut = true
		repaginated = true
	}
	return RelayoutSummary{ChangedParagraphs: changed, Repaginated: repaginated}
}

// Config returns the engine's page geometry, for package render's
// page_width/page_height/margin_* accessors.
func (e *Engine) Config() Config { return e.cfg }

// DirtyIDs returns the paragraph ids currently queued for relayout, for
// package debugdump.
func (e *Engine) DirtyIDs() []document.ParagraphID {
	ids := make([]document.ParagraphID, 0, len(e.dirty))
	for id := range e.dirty {
		ids = append(ids, id)
	}
	return ids
}

// Pages forces a lazy relayout if one has never happened (spec.md §7
// LayoutPrecondition), then returns the current pagination.
func (e *Engine) Pages() []Page {
	if !e.everLaidOut {
		e.Relayout()
	}
	return e.pages
}

// paragraphLayout returns the cached layout for id, relaying out lazily if
// it is missing or dirty.
func (e *Engine) paragraphLayout(id document.ParagraphID) (*ParagraphLayout, bool) {
	if e.dirty[id] {
		e.Relayout()
	}
	pl, ok := e.cache[id]
	return pl, ok
}

// ParagraphLayout exposes a paragraph's cached line layout, relaying out
// lazily if needed, for package render to walk lines within a page entry.
func (e *Engine) ParagraphLayout(id document.ParagraphID) (*ParagraphLayout, bool) {
	return e.paragraphLayout(id)
}

func (e *Engine) contentWidthFor(block document.BlockKind) float32 {
	w := e.cfg.ContentWidth()
	if block.Tag == document.ListItem {
		w -= float32(block.Indent) * e.cfg.IndentUnit
	}
	if w < 0 {
		w = 0
	}
	return w
}
