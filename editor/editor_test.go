package editor

import (
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/fontreg"
	"github.com/inkwell/paginate/layout"
	"github.com/inkwell/paginate/styleruns"
)

func testConfig() layout.Config {
	return layout.Config{
		PageWidth:    200,
		PageHeight:   100,
		IndentUnit:   14,
	}
}

// fakeClock lets a test control the timestamps Editor.now() reports, so the
// 500ms typing-merge window (spec.md §4.D) can be exercised deterministically.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestEditor() (*Editor, *fakeClock) {
	ed := New(testConfig())
	clock := &fakeClock{t: time.Unix(0, 0)}
	ed.now = clock.now
	return ed, clock
}

func TestInsertThenUndo(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	if !ed.InsertText("hello") {
		t.Fatal("InsertText returned false")
	}
	if got := ed.GetText(); got != "hello" {
		t.Fatalf("expected %q, got %q", "hello", got)
	}
	if !ed.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := ed.GetText(); got != "" {
		t.Fatalf("expected empty text after undo, got %q", got)
	}
}

func TestParagraphSplitThenUndo(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	ed.InsertText("ab")
	if !ed.MoveCursor(-1, 0, false) {
		t.Fatal("MoveCursor returned false")
	}
	if !ed.InsertParagraph() {
		t.Fatal("InsertParagraph returned false")
	}
	if got := ed.store.ParagraphCount(); got != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", got)
	}
	texts := paragraphTexts(t, ed)
	if len(texts) != 2 || texts[0] != "a" || texts[1] != "b" {
		t.Fatalf("expected paragraphs [a b], got %v", texts)
	}

	if !ed.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := ed.store.ParagraphCount(); got != 1 {
		t.Fatalf("expected 1 paragraph after undo, got %d", got)
	}
	if got := ed.GetText(); got != "ab" {
		t.Fatalf("expected %q after undo, got %q", "ab", got)
	}
}

func TestMergeAcrossBackspace(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	ed.InsertText("foo")
	ed.InsertParagraph()
	ed.InsertText("bar")
	if got := ed.store.ParagraphCount(); got != 2 {
		t.Fatalf("expected 2 paragraphs before backspace, got %d", got)
	}

	second := ed.store.Paragraphs()[1].ID
	ed.setFocus(posForOffset(t, ed, second, 0), false)

	if !ed.DeleteBackward() {
		t.Fatal("DeleteBackward returned false")
	}
	if got := ed.store.ParagraphCount(); got != 1 {
		t.Fatalf("expected paragraphs to merge, got %d", got)
	}
	if got := ed.GetText(); got != "foobar" {
		t.Fatalf("expected %q, got %q", "foobar", got)
	}
}

func TestTypingMergesIntoOneTransaction(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, clock := newTestEditor()

	ed.InsertText("h")
	clock.advance(100 * time.Millisecond)
	ed.InsertText("i")

	if got := ed.GetText(); got != "hi" {
		t.Fatalf("expected %q, got %q", "hi", got)
	}
	if !ed.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := ed.GetText(); got != "" {
		t.Fatalf("expected a single undo to clear both characters, got %q", got)
	}
	if ed.Undo() {
		t.Fatal("expected nothing left to undo")
	}
}

func TestTypingSplitsOnSoftBreak(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, clock := newTestEditor()

	ed.InsertText("hi")
	clock.advance(600 * time.Millisecond)
	ed.InsertText(" there")

	if got := ed.GetText(); got != "hi there" {
		t.Fatalf("expected %q, got %q", "hi there", got)
	}
	if !ed.Undo() {
		t.Fatal("first undo returned false")
	}
	if got := ed.GetText(); got != "hi" {
		t.Fatalf("expected %q after first undo, got %q", "hi", got)
	}
	if !ed.Undo() {
		t.Fatal("second undo returned false")
	}
	if got := ed.GetText(); got != "" {
		t.Fatalf("expected empty text after second undo, got %q", got)
	}
}

// TestSoftBreakOpensNewMergeWindow exercises the single-character typing
// path directly: 'h' and 'i' merge, the following space merges into that run
// too (the gap is still inside the window), but the soft break it ends on
// keeps the next character from folding into it even though it arrives
// within the window (spec.md §4.D).
func TestSoftBreakOpensNewMergeWindow(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, clock := newTestEditor()

	ed.InsertText("h")
	clock.advance(100 * time.Millisecond)
	ed.InsertText("i")
	clock.advance(100 * time.Millisecond)
	ed.InsertText(" ")
	clock.advance(100 * time.Millisecond)
	ed.InsertText("x")

	if got := ed.GetText(); got != "hi x" {
		t.Fatalf("expected %q, got %q", "hi x", got)
	}
	if !ed.Undo() {
		t.Fatal("first undo returned false")
	}
	if got := ed.GetText(); got != "hi " {
		t.Fatalf("expected the soft break to keep 'x' in its own transaction, got %q", got)
	}
	if !ed.Undo() {
		t.Fatal("second undo returned false")
	}
	if got := ed.GetText(); got != "" {
		t.Fatalf("expected 'h', 'i' and ' ' to have merged into one transaction, got %q", got)
	}
}

func TestSelectionReplace(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	ed.InsertText("abcdef")
	first := ed.store.Paragraphs()[0].ID
	ed.selection = &Selection{
		Anchor: posForOffset(t, ed, first, 2),
		Focus:  posForOffset(t, ed, first, 4),
	}
	ed.cursor = ed.selection.Focus

	if !ed.InsertText("XY") {
		t.Fatal("InsertText returned false")
	}
	if got := ed.GetText(); got != "abXYef" {
		t.Fatalf("expected %q, got %q", "abXYef", got)
	}

	if !ed.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := ed.GetText(); got != "abcdef" {
		t.Fatalf("expected %q after undo, got %q", "abcdef", got)
	}
	if !ed.HasSelection() {
		t.Fatal("expected selection restored after undo")
	}
	start, end, err := ed.selectionAbsRange()
	if err != nil {
		t.Fatal(err)
	}
	if start != 2 || end != 4 {
		t.Fatalf("expected restored selection [2,4), got [%d,%d)", start, end)
	}
}

func TestUndoRedoRoundtrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	ed.InsertText("hello")
	ed.Undo()
	if got := ed.GetText(); got != "" {
		t.Fatalf("expected empty text after undo, got %q", got)
	}
	if !ed.Redo() {
		t.Fatal("Redo returned false")
	}
	if got := ed.GetText(); got != "hello" {
		t.Fatalf("expected %q after redo, got %q", "hello", got)
	}
}

func TestDeleteForwardMergesAtParagraphEnd(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	ed.InsertText("foo")
	ed.InsertParagraph()
	ed.InsertText("bar")

	first := ed.store.Paragraphs()[0].ID
	ed.setFocus(posForOffset(t, ed, first, 3), false)

	if !ed.DeleteForward() {
		t.Fatal("DeleteForward returned false")
	}
	if got := ed.store.ParagraphCount(); got != 1 {
		t.Fatalf("expected paragraphs to merge, got %d", got)
	}
	if got := ed.GetText(); got != "foobar" {
		t.Fatalf("expected %q, got %q", "foobar", got)
	}
}

func TestInsertHTMLProducesBlockKindsAndUndoes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	if !ed.InsertHTML("<h1>Title</h1><p>Body text</p>", fontreg.DefaultFontID) {
		t.Fatal("InsertHTML returned false")
	}
	texts := paragraphTexts(t, ed)
	if len(texts) != 2 || texts[0] != "Title" || texts[1] != "Body text" {
		t.Fatalf("unexpected paragraphs: %+v", texts)
	}
	paras := ed.store.Paragraphs()
	if paras[0].Block.Tag != document.Heading || paras[0].Block.Level != 1 {
		t.Errorf("paragraph 0 block = %+v, want heading level 1", paras[0].Block)
	}
	if paras[1].Block.Tag != document.Paragraph {
		t.Errorf("paragraph 1 block = %+v, want Paragraph", paras[1].Block)
	}

	if !ed.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := ed.store.ParagraphCount(); got != 1 {
		t.Fatalf("expected a single empty paragraph after undo, got %d", got)
	}
	if got := ed.GetText(); got != "" {
		t.Fatalf("expected empty document after undo, got %q", got)
	}
}

func paragraphTexts(t *testing.T, ed *Editor) []string {
	t.Helper()
	var out []string
	for _, p := range ed.store.Paragraphs() {
		out = append(out, p.Text.String())
	}
	return out
}

func posForOffset(t *testing.T, ed *Editor, id document.ParagraphID, local uint64) Cursor {
	t.Helper()
	return Cursor{ParagraphID: id, ByteOffset: local}
}

// TestDeleteAcrossStyleRunsThenUndoRestoresStyles guards against the
// opDelete inverse collapsing a deleted range's original per-byte fonts
// into whatever font styleruns.InsertExtend happens to pick on reinsert:
// the deleted range here spans a plain/bold/plain boundary, so a bare
// reinsert would merge it all back into one run instead of three.
func TestDeleteAcrossStyleRunsThenUndoRestoresStyles(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "editor")
	defer teardown()
	//
	ed, _ := newTestEditor()

	ed.InsertText("helloworld")
	pid := ed.store.Paragraphs()[0].ID

	bold := fontreg.FontID(1)
	ed.selection = &Selection{
		Anchor: posForOffset(t, ed, pid, 2),
		Focus:  posForOffset(t, ed, pid, 6),
	}
	ed.cursor = ed.selection.Focus
	if !ed.FormatSelection(bold) {
		t.Fatal("FormatSelection returned false")
	}

	before, err := ed.store.ParagraphStyles(pid)
	if err != nil {
		t.Fatal(err)
	}

	ed.selection = &Selection{
		Anchor: posForOffset(t, ed, pid, 1),
		Focus:  posForOffset(t, ed, pid, 8),
	}
	ed.cursor = ed.selection.Focus
	if !ed.DeleteForward() {
		t.Fatal("DeleteForward returned false")
	}
	if got := ed.GetText(); got != "hld" {
		t.Fatalf("expected %q after delete, got %q", "hld", got)
	}

	if !ed.Undo() {
		t.Fatal("Undo returned false")
	}
	if got := ed.GetText(); got != "helloworld" {
		t.Fatalf("expected %q after undo, got %q", "helloworld", got)
	}

	after, err := ed.store.ParagraphStyles(pid)
	if err != nil {
		t.Fatal(err)
	}
	if !stylesEqual(after.Slice(), before.Slice()) {
		t.Fatalf("styles not restored after undo: got %+v, want %+v", after.Slice(), before.Slice())
	}
}

func stylesEqual(a, b []styleruns.Run) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
