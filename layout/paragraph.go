package layout

import (
	"github.com/inkwell/paginate/document"
	"github.com/inkwell/paginate/fontreg"
)

// listMarkerWidth measures a list item's marker string against the
// default font, since markers are laid out in the document's base font
// regardless of the run styling of the first character of text.
func (e *Engine) listMarkerWidth(marker string) float32 {
	if marker == "" {
		return 0
	}
	metrics, _ := e.fonts.Lookup(fontreg.DefaultFontID)
	var w float32
	for _, r := range marker {
		w += metrics.Width(r)
	}
	return w
}

// clusterFont resolves the font id covering a cluster's start offset,
// falling back to the document default for an unstyled paragraph.
func clusterFont(p *document.Paragraph, byteStart uint64) fontreg.FontID {
	if p.Styles.Len() == 0 {
		return fontreg.DefaultFontID
	}
	id, _ := p.Styles.At(byteStart)
	return id
}

// layoutParagraph computes a fresh ParagraphLayout for p, per spec.md
// §4.C: walk grapheme clusters, font-metric-aware greedy line breaking,
// then derive per-line ascent/height/width.
func (e *Engine) layoutParagraph(p *document.Paragraph) *ParagraphLayout {
	text := p.Text.String()
	clusters, err := measureClusters(text, p.Styles, e.fonts, fontreg.DefaultFontID)
	if err != nil {
		tracer().Errorf("measureClusters(%d): %v", p.ID, err)
		clusters = nil
	}
	contentWidth := e.contentWidthFor(p.Block)
	marker := ""
	markerWidth := float32(0)
	if p.Block.Tag == document.ListItem {
		marker = p.Block.Marker
		markerWidth = e.listMarkerWidth(marker)
	}
	firstLineWidth := contentWidth - markerWidth
	if firstLineWidth < 0 {
		firstLineWidth = 0
	}

	spans := breakLines(clusters, contentWidth, firstLineWidth)
	lines := make([]LineLayout, 0, len(spans))
	var totalHeight float32

	defMetrics, _ := e.fonts.Lookup(fontreg.DefaultFontID)

	for li, span := range spans {
		line := LineLayout{}
		var byteStart, byteEnd uint64
		if span.start < len(clusters) {
			byteStart = clusters[span.start].byteStart
		} else if len(clusters) > 0 {
			byteStart = clusters[len(clusters)-1].byteEnd
		}
		if span.end > 0 && span.end-1 < len(clusters) {
			byteEnd = clusters[span.end-1].byteEnd
		} else {
			byteEnd = byteStart
		}
		line.ByteStart, line.ByteEnd = byteStart, byteEnd

		var width float32
		var utf16Cursor uint64
		// seed the height floor from the first font actually used on this
		// line, per spec.md §4.C step 5 ("max(line_height of fonts used)");
		// the default's line height is a fallback for an empty span only,
		// never a floor under a line set entirely in a smaller custom font.
		maxLineHeight := defMetrics.LineHeight
		if span.start < span.end {
			firstFid := clusterFont(p, clusters[span.start].byteStart)
			if m, err := e.fonts.Lookup(firstFid); err == nil {
				maxLineHeight = m.LineHeight
			}
		}
		seenFonts := map[fontreg.FontID]bool{}
		line.Clusters = make([]ClusterMetric, 0, span.end-span.start)
		for ci := span.start; ci < span.end; ci++ {
			c := clusters[ci]
			line.Clusters = append(line.Clusters, ClusterMetric{
				ByteOffset:   c.byteStart,
				UTF16Offset:  utf16Cursor,
				AdvanceWidth: c.advance,
			})
			utf16Cursor += c.utf16Len
			width += c.advance

			fid := clusterFont(p, c.byteStart)
			if !seenFonts[fid] {
				seenFonts[fid] = true
				if m, err := e.fonts.Lookup(fid); err == nil && m.LineHeight > maxLineHeight {
					maxLineHeight = m.LineHeight
				}
			}
		}
		line.Height = maxLineHeight
		line.Ascent = maxLineHeight * 0.8 // proportional ascent, per spec.md §4.C step 5
		line.Width = width
		if li == 0 {
			line.Marker = marker
			line.MarkerWidth = markerWidth
		}
		lines = append(lines, line)
		totalHeight += maxLineHeight
	}
	if len(lines) == 0 {
		lines = append(lines, LineLayout{Height: defMetrics.LineHeight, Ascent: defMetrics.LineHeight * 0.8})
		totalHeight = defMetrics.LineHeight
	}
	return &ParagraphLayout{Lines: lines, TotalHeight: totalHeight}
}
