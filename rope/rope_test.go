package rope

import (
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestFromStringRoundtrip(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "rope")
	defer teardown()
	//
	r, err := FromString("Hello World")
	if err != nil {
		t.Fatal(err)
	}
	if r.String() != "Hello World" {
		t.Errorf("expected 'Hello World', got %q", r.String())
	}
	if r.Len() != 11 {
		t.Errorf("expected len 11, got %d", r.Len())
	}
}

func TestInsertMiddle(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "rope")
	defer teardown()
	//
	r, _ := FromString("Hello World")
	r2, err := r.Insert(5, ",")
	if err != nil {
		t.Fatal(err)
	}
	if r2.String() != "Hello, World" {
		t.Errorf("got %q", r2.String())
	}
	if r.String() != "Hello World" {
		t.Errorf("original rope mutated: %q", r.String())
	}
}

func TestDeleteRange(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "rope")
	defer teardown()
	//
	r, _ := FromString("Hello, World")
	r2, err := r.Delete(5, 7)
	if err != nil {
		t.Fatal(err)
	}
	if r2.String() != "HelloWorld" {
		t.Errorf("got %q", r2.String())
	}
}

func TestSliceAndSplit(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "rope")
	defer teardown()
	//
	r, _ := FromString("abcdefgh")
	s, err := r.Slice(2, 5)
	if err != nil || s != "cde" {
		t.Errorf("Slice(2,5) = %q, %v", s, err)
	}
	l, rr, err := r.Split(4)
	if err != nil {
		t.Fatal(err)
	}
	if l.String() != "abcd" || rr.String() != "efgh" {
		t.Errorf("split = %q | %q", l.String(), rr.String())
	}
}

func TestLargeInsertChunking(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "rope")
	defer teardown()
	//
	big := strings.Repeat("x", 10_000)
	r, err := FromString(big)
	if err != nil {
		t.Fatal(err)
	}
	if r.Len() != 10_000 {
		t.Errorf("expected len 10000, got %d", r.Len())
	}
	if r.String() != big {
		t.Errorf("roundtrip mismatch for chunked rope")
	}
}

func TestNotBoundaryRejected(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "rope")
	defer teardown()
	//
	r, _ := FromString("héllo") // é is 2 bytes
	if r.IsBoundary(2) {
		t.Errorf("offset 2 should fall inside the 'é' rune")
	}
	if _, err := r.Insert(2, "x"); err != ErrNotBoundary {
		t.Errorf("expected ErrNotBoundary, got %v", err)
	}
}

func TestEmptyRope(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "rope")
	defer teardown()
	//
	var r Rope
	if r.Len() != 0 || r.String() != "" {
		t.Errorf("zero-value rope should behave as empty string")
	}
}
