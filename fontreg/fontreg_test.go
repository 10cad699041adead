package fontreg

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestNewRegistryHasDefaultFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontreg")
	defer teardown()
	//
	r := NewRegistry()
	m, err := r.Lookup(DefaultFontID)
	if err != nil {
		t.Fatalf("lookup default font: %v", err)
	}
	if m.LineHeight <= 0 {
		t.Errorf("default font line height = %v, want > 0", m.LineHeight)
	}
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontreg")
	defer teardown()
	//
	r := NewRegistry()
	id := r.NextID()
	if err := r.Register(id, Metrics{LineHeight: 20, DefaultWidth: 10}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(id, Metrics{LineHeight: 30, DefaultWidth: 12}); err != ErrAlreadyRegistered {
		t.Errorf("re-register same id: got %v, want ErrAlreadyRegistered", err)
	}
}

func TestLookupUnknownFontFails(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontreg")
	defer teardown()
	//
	r := NewRegistry()
	if _, err := r.Lookup(FontID(999)); err != ErrUnknownFont {
		t.Errorf("lookup unregistered id: got %v, want ErrUnknownFont", err)
	}
}

func TestWidthFallsBackToDefaultWidthOutsideASCIITable(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontreg")
	defer teardown()
	//
	m := Metrics{DefaultWidth: 9.5}
	m.CharWidths['a'] = 6
	if got := m.Width('a'); got != 6 {
		t.Errorf("Width('a') = %v, want 6", got)
	}
	if got := m.Width('世'); got != 9.5 {
		t.Errorf("Width('世') = %v, want fallback 9.5", got)
	}
}

func TestSetDefaultReplacesBootstrapMetrics(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontreg")
	defer teardown()
	//
	r := NewRegistry()
	r.SetDefault(Metrics{LineHeight: 42, DefaultWidth: 11})
	m, err := r.Lookup(DefaultFontID)
	if err != nil {
		t.Fatalf("lookup default font: %v", err)
	}
	if m.LineHeight != 42 {
		t.Errorf("LineHeight = %v, want 42", m.LineHeight)
	}
}

func TestNextIDSkipsRegisteredIDs(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "fontreg")
	defer teardown()
	//
	r := NewRegistry()
	first := r.NextID()
	if err := r.Register(first, Metrics{DefaultWidth: 5}); err != nil {
		t.Fatalf("register: %v", err)
	}
	second := r.NextID()
	if second == first {
		t.Errorf("NextID returned %d twice", first)
	}
}
