package layout

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/npillmayer/uax/grapheme"
	"github.com/npillmayer/uax/segment"

	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/fontreg"
	"github.com/inkwell/paginate/styleruns"
)

// cluster is one grapheme cluster of paragraph text, with its byte range,
// its measured advance width, and whether a line break is allowed right
// after it.
type cluster struct {
	byteStart, byteEnd uint64
	utf16Len           uint64
	advance            float32
	breakable          bool
	isExplicitBreak    bool
}

// graphemeClusters segments text into UAX#29 grapheme clusters using the
// same segment.Segmenter driver the teacher uses for UAX#14 line-break
// segments in styled/formatter/firstfit.go, swapping in grapheme.NewBreaker
// in place of uax14.NewLineWrap.
func graphemeClusters(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	brk := grapheme.NewBreaker()
	seg := segment.NewSegmenter(brk)
	seg.Init(strings.NewReader(text))
	var out []string
	for seg.Next() {
		out = append(out, string(seg.Bytes()))
	}
	return out, nil
}

// measureClusters builds the per-cluster metrics for a paragraph's text,
// resolving each cluster's font from the paragraph's style runs and
// summing code-point widths from the covering font's metrics (spec.md
// §4.C step 1).
func measureClusters(text string, styles styleruns.Runs, fonts *fontreg.Registry, defaultFont fontreg.FontID) ([]cluster, error) {
	raw, err := graphemeClusters(text)
	if err != nil {
		return nil, err
	}
	out := make([]cluster, 0, len(raw))
	var byteOff uint64
	for _, g := range raw {
		start := byteOff
		end := byteOff + uint64(len(g))
		fontID := defaultFont
		if styles.Len() > 0 && start < styles.Len() {
			fontID, _ = styles.At(start)
		}
		metrics, err := fonts.Lookup(fontID)
		if err != nil {
			metrics, _ = fonts.Lookup(fontreg.DefaultFontID)
		}
		var width float32
		var utf16Len uint64
		for _, r := range g {
			width += metrics.Width(r)
			if r > 0xFFFF {
				utf16Len += 2
			} else {
				utf16Len++
			}
		}
		out = append(out, cluster{
			byteStart:       start,
			byteEnd:         end,
			utf16Len:        utf16Len,
			advance:         width,
			breakable:       isBreakable(g),
			isExplicitBreak: g == "\n",
		})
		byteOff = end
	}
	return out, nil
}

// isBreakable reports whether a line break is an allowed opportunity right
// after this grapheme cluster: whitespace or a trailing hyphen.
func isBreakable(g string) bool {
	r, _ := utf8.DecodeRuneInString(g)
	if unicode.IsSpace(r) {
		return true
	}
	return strings.HasSuffix(g, "-")
}

// lineSpan is a half-open [start,end) range of cluster indices forming one
// line.
type lineSpan struct {
	start, end int
}

// breakLines runs the greedy first-fit algorithm of spec.md §4.C over a
// paragraph's clusters: maintain the last allowed break opportunity seen
// since the current line started, and break there once the next cluster
// would overflow content_width; force a break before the overflowing
// cluster itself if no opportunity was seen (never splitting a cluster).
func breakLines(clusters []cluster, contentWidth, firstLineWidth float32) []lineSpan {
	if len(clusters) == 0 {
		return []lineSpan{{0, 0}}
	}
	var lines []lineSpan
	lineStart := 0
	width := float32(0)
	lastBreak := -1 // index of the last breakable cluster seen since lineStart

	budget := func() float32 {
		if len(lines) == 0 {
			return firstLineWidth
		}
		return contentWidth
	}

	for i := 0; i < len(clusters); i++ {
		c := clusters[i]
		if c.isExplicitBreak {
			lines = append(lines, lineSpan{lineStart, i + 1})
			lineStart = i + 1
			width = 0
			lastBreak = -1
			continue
		}
		if width > 0 && width+c.advance > budget() {
			breakAt := i
			if lastBreak >= lineStart {
				breakAt = lastBreak + 1
			}
			lines = append(lines, lineSpan{lineStart, breakAt})
			lineStart = breakAt
			width = 0
			lastBreak = -1
			for k := lineStart; k <= i; k++ {
				width += clusters[k].advance
				if clusters[k].breakable {
					lastBreak = k
				}
			}
			continue
		}
		if width == 0 && c.advance > budget() {
			// a single cluster wider than the line: emit it alone rather
			// than ever splitting it.
			lines = append(lines, lineSpan{i, i + 1})
			lineStart = i + 1
			width = 0
			lastBreak = -1
			continue
		}
		width += c.advance
		if c.breakable {
			lastBreak = i
		}
	}
	lines = append(lines, lineSpan{lineStart, len(clusters)})
	return lines
}

// UTF16Len returns the UTF-16 code unit length of s, used for the render
// encoder's parallel byte/UTF-16 offsets.
func UTF16Len(s string) uint64 {
	n := uint64(0)
	for _, r := range s {
		n += uint64(utf16.RuneLen(r))
	}
	return n
}

// ClusterBoundaries returns the sorted byte offsets of every grapheme
// cluster boundary in text, including 0 and len(text). Package editor
// uses it to step the caret by one grapheme cluster without duplicating
// the UAX#29 segmentation driver.
func ClusterBoundaries(text string) ([]uint64, error) {
	raw, err := graphemeClusters(text)
	if err != nil {
		return nil, err
	}
	bounds := make([]uint64, 0, len(raw)+1)
	var off uint64
	bounds = append(bounds, 0)
	for _, g := range raw {
		off += uint64(len(g))
		bounds = append(bounds, off)
	}
	return bounds, nil
}
