package styleruns

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/inkwell/paginate/fontreg"
)

func TestNewCoversWholeRangeWithDefaultFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "styleruns")
	defer teardown()
	//
	rs := New(10, fontreg.DefaultFontID)
	if rs.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", rs.Len())
	}
	font, _ := rs.At(0)
	if font != fontreg.DefaultFontID {
		t.Errorf("At(0) font = %d, want default", font)
	}
}

func TestFormatRangeSplitsAndNormalizes(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "styleruns")
	defer teardown()
	//
	rs := New(10, fontreg.DefaultFontID)
	bold := fontreg.FontID(1)
	rs = FormatRange(rs, 2, 5, bold)
	slice := rs.Slice()
	if len(slice) != 3 {
		t.Fatalf("expected 3 runs after formatting a middle range, got %d: %+v", len(slice), slice)
	}
	font, _ := rs.At(3)
	if font != bold {
		t.Errorf("At(3) font = %d, want bold(%d)", font, bold)
	}
	font, _ = rs.At(0)
	if font != fontreg.DefaultFontID {
		t.Errorf("At(0) font = %d, want default", font)
	}
	// re-applying the same font to the whole range normalizes back to one run.
	rs = FormatRange(rs, 0, 10, fontreg.DefaultFontID)
	if got := len(rs.Slice()); got != 1 {
		t.Errorf("expected normalization to merge back to 1 run, got %d", got)
	}
}

func TestInsertExtendAtBoundaryExtendsPrecedingRun(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "styleruns")
	defer teardown()
	//
	rs := New(5, fontreg.DefaultFontID)
	bold := fontreg.FontID(1)
	rs = FormatRange(rs, 0, 5, bold)
	rs = InsertExtend(rs, 5, 3, fontreg.DefaultFontID)
	if got := rs.Len(); got != 8 {
		t.Fatalf("Len() = %d, want 8", got)
	}
	font, _ := rs.At(7)
	if font != bold {
		t.Errorf("inserted text at the end should extend the preceding bold run, got font %d", font)
	}
	if got := len(rs.Slice()); got != 1 {
		t.Errorf("expected a single merged run, got %d: %+v", got, rs.Slice())
	}
}

func TestDeleteRangeShiftsTrailingRuns(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "styleruns")
	defer teardown()
	//
	rs := New(10, fontreg.DefaultFontID)
	bold := fontreg.FontID(1)
	rs = FormatRange(rs, 6, 10, bold)
	rs = DeleteRange(rs, 2, 4)
	if got := rs.Len(); got != 8 {
		t.Fatalf("Len() = %d, want 8", got)
	}
	font, _ := rs.At(5)
	if font != bold {
		t.Errorf("At(5) after delete = %d, want bold(%d)", font, bold)
	}
}

func TestSplitAtRenumbersRightSide(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "styleruns")
	defer teardown()
	//
	rs := New(10, fontreg.DefaultFontID)
	bold := fontreg.FontID(1)
	rs = FormatRange(rs, 5, 10, bold)
	left, right := SplitAt(rs, 5)
	if left.Len() != 5 || right.Len() != 5 {
		t.Fatalf("left.Len()=%d right.Len()=%d, want 5 and 5", left.Len(), right.Len())
	}
	font, _ := right.At(0)
	if font != bold {
		t.Errorf("right.At(0) = %d, want bold(%d)", font, bold)
	}
}

func TestConcatOffsetsSecondParagraph(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "styleruns")
	defer teardown()
	//
	a := New(5, fontreg.DefaultFontID)
	bold := fontreg.FontID(1)
	b := FormatRange(New(5, fontreg.DefaultFontID), 0, 5, bold)
	merged := Concat(a, b)
	if got := merged.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10", got)
	}
	font, _ := merged.At(7)
	if font != bold {
		t.Errorf("merged.At(7) = %d, want bold(%d)", font, bold)
	}
}

func TestAtPanicsOutOfRange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "styleruns")
	defer teardown()
	//
	defer func() {
		if recover() == nil {
			t.Error("expected At to panic for an out-of-range position")
		}
	}()
	rs := New(3, fontreg.DefaultFontID)
	rs.At(10)
}
