package render

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/inkwell/paginate/editor"
	"github.com/inkwell/paginate/layout"
)

func newTestEditor() *editor.Editor {
	return editor.New(layout.Config{PageWidth: 200, PageHeight: 100, IndentUnit: 14})
}

func TestBuildHeaderMagicAndSchema(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "render")
	defer teardown()
	//
	ed := newTestEditor()
	ed.InsertText("hello")

	enc := New()
	enc.Build(ed, 0, 1000)
	buf := enc.Buffers()

	if len(buf.U32) < headerSlots {
		t.Fatalf("u32 buffer too short: %d", len(buf.U32))
	}
	if buf.U32[0] != Magic {
		t.Errorf("MAGIC = %#x, want %#x", buf.U32[0], Magic)
	}
	if buf.U32[1] != SchemaVersion {
		t.Errorf("SCHEMA_VERSION = %d, want %d", buf.U32[1], SchemaVersion)
	}
	if buf.U32[4] == 0 {
		t.Errorf("page_count = 0, want at least one page")
	}
	if got := buf.U32[7]; int(got) != len(buf.Text) {
		t.Errorf("text_buffer_len_bytes = %d, want %d", got, len(buf.Text))
	}
}

func TestBuildLineUTF16LenMatchesTextBuffer(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "render")
	defer teardown()
	//
	ed := newTestEditor()
	ed.InsertText("héllo wörld")

	enc := New()
	enc.Build(ed, 0, 1000)
	buf := enc.Buffers()

	idx := headerSlots
	pageCount := int(buf.U32[4])
	for pg := 0; pg < pageCount; pg++ {
		lineCount := int(buf.U32[idx+1])
		idx += 2
		for li := 0; li < lineCount; li++ {
			rec := buf.U32[idx : idx+14]
			textByteOff, textByteLen := rec[0], rec[1]
			textUTF16Len := rec[3]
			substr := string(buf.Text[textByteOff : textByteOff+textByteLen])
			want := len(utf16.Encode([]rune(substr)))
			if int(textUTF16Len) != want {
				t.Errorf("line %d: text_utf16_len = %d, want %d (for %q)", li, textUTF16Len, want, substr)
			}
			idx += 14
		}
	}
}

func TestBuildCursorPresentWhenNoSelection(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "render")
	defer teardown()
	//
	ed := newTestEditor()
	ed.InsertText("abc")

	enc := New()
	enc.Build(ed, 0, 1000)
	buf := enc.Buffers()

	if buf.U32[5] != 1 {
		t.Fatalf("cursor_present = %d, want 1", buf.U32[5])
	}
	cursorOff := buf.U32[8]
	if cursorOff == 0 {
		t.Fatal("u32_cursor_offset is 0, expected a populated offset")
	}
	if int(cursorOff)+2 > len(buf.U32) {
		t.Fatalf("u32_cursor_offset %d out of range for buffer of len %d", cursorOff, len(buf.U32))
	}
}

func TestBuildViewportCullingExcludesFarPages(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "render")
	defer teardown()
	//
	ed := newTestEditor()
	ed.InsertText("short document")

	enc := New()
	enc.Build(ed, 100000, 10)
	buf := enc.Buffers()

	if buf.U32[4] != 0 {
		t.Errorf("page_count = %d, want 0 for a far-away viewport", buf.U32[4])
	}
}

func TestMarshalU32RoundTrips(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "render")
	defer teardown()
	//
	in := []uint32{Magic, SchemaVersion, 7}
	out := MarshalU32(in)
	if len(out) != len(in)*4 {
		t.Fatalf("marshaled length = %d, want %d", len(out), len(in)*4)
	}
	if got := binary.LittleEndian.Uint32(out[0:4]); got != Magic {
		t.Errorf("first word = %#x, want %#x", got, Magic)
	}
}
