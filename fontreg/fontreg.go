// Package fontreg implements the host-facing font metric registry: a
// monotonic id -> metrics map the layout engine consults for glyph
// advances and line heights.
//
// The registration-then-lookup shape mirrors the teacher's cords.Metric /
// MetricValue pairing (register a computation, look it up by key), but
// without the teacher's tree-propagation machinery: font metrics are a
// flat fact registered once per id, never combined across document
// fragments, so a plain map serves the same role the teacher solves with
// MaterializedMetric trees for a different (propagating) problem.
package fontreg

import (
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("fontreg")
}

// FontID identifies a registered font. It is a distinct type so callers
// cannot transpose it with a ParagraphID or other uint-keyed identifier.
type FontID uint32

// DefaultFontID is registered automatically at registry construction with
// synthetic metrics, so the core can lay out text before the host
// registers any real font.
const DefaultFontID FontID = 0

// Metrics describes a font's layout-relevant measurements.
type Metrics struct {
	LineHeight   float32
	CharWidths   [128]float32
	DefaultWidth float32
}

// Width returns the advance width of code point c under these metrics.
func (m Metrics) Width(c rune) float32 {
	if c >= 0 && c < 128 {
		return m.CharWidths[c]
	}
	return m.DefaultWidth
}

// FontError is the package sentinel error type.
type FontError string

func (e FontError) Error() string { return string(e) }

// ErrAlreadyRegistered is returned by Register when id has already been set.
// Registrations are monotonic: the host must mint a new id for changed
// metrics rather than overwrite an existing one, so layouts already cached
// against the old metrics are never invalidated retroactively.
const ErrAlreadyRegistered = FontError("fontreg: font id already registered")

// ErrUnknownFont is returned by Lookup for an id that was never registered.
const ErrUnknownFont = FontError("fontreg: unknown font id")

// Registry is a monotonic font-id -> Metrics map.
type Registry struct {
	metrics map[FontID]Metrics
	next    FontID
}

// NewRegistry creates a registry pre-populated with DefaultFontID.
func NewRegistry() *Registry {
	r := &Registry{metrics: make(map[FontID]Metrics)}
	r.metrics[DefaultFontID] = syntheticDefaultMetrics()
	if r.next <= DefaultFontID {
		r.next = DefaultFontID + 1
	}
	return r
}

func syntheticDefaultMetrics() Metrics {
	m := Metrics{LineHeight: 16.8, DefaultWidth: 7.0}
	for i := range m.CharWidths {
		m.CharWidths[i] = 7.0
	}
	return m
}

// Register sets the metrics for id. Returns ErrAlreadyRegistered if id was
// previously set; the host must pick a new id instead.
func (r *Registry) Register(id FontID, m Metrics) error {
	if _, ok := r.metrics[id]; ok {
		return ErrAlreadyRegistered
	}
	r.metrics[id] = m
	tracer().Infof("registered font %d (line_height=%.2f)", id, m.LineHeight)
	return nil
}

// NextID returns an id not yet registered, for hosts that don't track ids
// themselves.
func (r *Registry) NextID() FontID {
	for {
		if _, ok := r.metrics[r.next]; !ok {
			return r.next
		}
		r.next++
	}
}

// Lookup returns the metrics registered for id.
func (r *Registry) Lookup(id FontID) (Metrics, error) {
	m, ok := r.metrics[id]
	if !ok {
		return Metrics{}, ErrUnknownFont
	}
	return m, nil
}

// SetDefault replaces the metrics backing DefaultFontID. This is the one
// sanctioned exception to monotonic registration: spec.md's
// set_font_metrics command updates "the default font" in place, since
// hosts calling it before any real fonts are registered expect the
// synthetic bootstrap metrics to be replaceable.
func (r *Registry) SetDefault(m Metrics) {
	r.metrics[DefaultFontID] = m
	tracer().Infof("updated default font metrics (line_height=%.2f)", m.LineHeight)
}
