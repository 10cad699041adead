package document

import (
	"errors"
	"strings"

	"github.com/inkwell/paginate/fontreg"
	"github.com/inkwell/paginate/rope"
	"github.com/inkwell/paginate/styleruns"
)

// InsertAt inserts text at absolute byte offset abs. Text without a
// newline is a single-paragraph rope insert; text containing one or more
// newlines splits the origin paragraph and creates fresh paragraphs for
// every newline-separated chunk but the last, which attaches to the
// following content (spec.md §4.A "Insert rules").
func (s *Store) InsertAt(abs uint64, text string) (EditResult, error) {
	if text == "" {
		id, local, err := s.ParagraphAt(abs)
		if err != nil {
			return EditResult{}, err
		}
		return EditResult{TouchedParagraphIDs: []ParagraphID{id},
			NewCursorHint: CursorHint{ParagraphID: id, ByteOffset: local, HasHint: true}}, nil
	}
	id, local, err := s.ParagraphAt(abs)
	if err != nil {
		return EditResult{}, err
	}
	i := s.byID[id]
	para := s.paragraphs[i]

	if !strings.Contains(text, "\n") {
		newRope, err := para.Text.Insert(local, text)
		if err != nil {
			return EditResult{}, translateRopeErr(err)
		}
		para.Text = newRope
		para.Styles = styleruns.InsertExtend(para.Styles, local, uint64(len(text)), s.defaultFontID)
		s.rebuildOffsetsFrom(i)
		s.bumpVersion()
		return EditResult{
			TouchedParagraphIDs: []ParagraphID{id},
			NewCursorHint:       CursorHint{ParagraphID: id, ByteOffset: local + uint64(len(text)), HasHint: true},
		}, nil
	}

	return s.insertMultiParagraph(i, local, text)
}

// insertMultiParagraph implements the newline-splitting insert rule.
func (s *Store) insertMultiParagraph(i int, local uint64, text string) (EditResult, error) {
	origin := s.paragraphs[i]
	before, err := origin.Text.Slice(0, local)
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	after, err := origin.Text.Slice(local, origin.Text.Len())
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	runsBefore, runsAfter := styleruns.SplitAt(origin.Styles, local)
	splitFont := s.defaultFontID
	if origin.Text.Len() > 0 {
		if local > 0 {
			splitFont, _ = origin.Styles.At(local - 1)
		} else if origin.Text.Len() > 0 {
			splitFont, _ = origin.Styles.At(0)
		}
	}

	chunks := strings.Split(text, "\n")
	touched := make([]ParagraphID, 0, len(chunks))

	// Origin keeps its id and block kind; its new text is before+chunks[0].
	originText := before + chunks[0]
	originRope, err := rope.FromString(originText)
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	origin.Text = originRope
	origin.Styles = styleruns.InsertExtend(runsBefore, local, uint64(len(chunks[0])), splitFont)
	touched = append(touched, origin.ID)

	newParas := make([]*Paragraph, 0, len(chunks)-1)
	for k := 1; k < len(chunks)-1; k++ {
		r, err := rope.FromString(chunks[k])
		if err != nil {
			return EditResult{}, translateRopeErr(err)
		}
		p := &Paragraph{
			ID:     s.allocID(),
			Block:  BlockKind{Tag: Paragraph},
			Text:   r,
			Styles: styleruns.New(uint64(len(chunks[k])), splitFont),
		}
		newParas = append(newParas, p)
		touched = append(touched, p.ID)
	}

	lastChunk := chunks[len(chunks)-1]
	lastText := lastChunk + after
	lastRope, err := rope.FromString(lastText)
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	lastStyles := styleruns.Concat(styleruns.New(uint64(len(lastChunk)), splitFont), runsAfter)
	lastPara := &Paragraph{
		ID:     s.allocID(),
		Block:  BlockKind{Tag: Paragraph},
		Text:   lastRope,
		Styles: lastStyles,
	}
	newParas = append(newParas, lastPara)
	touched = append(touched, lastPara.ID)

	// Splice newParas into the paragraph list right after origin.
	tail := append([]*Paragraph{}, s.paragraphs[i+1:]...)
	s.paragraphs = append(s.paragraphs[:i+1], newParas...)
	s.paragraphs = append(s.paragraphs, tail...)
	s.offsets = make([]uint64, len(s.paragraphs))
	s.rebuildOffsetsFrom(0)
	s.bumpVersion()

	tracer().Infof("insert split paragraph %d into %d paragraphs", origin.ID, len(newParas)+1)
	return EditResult{
		TouchedParagraphIDs: touched,
		StructuralChange:    true,
		NewCursorHint:       CursorHint{ParagraphID: lastPara.ID, ByteOffset: uint64(len(lastChunk)), HasHint: true},
	}, nil
}

// DeleteRange deletes the absolute byte range [start, end). A range inside
// one paragraph is a plain rope delete; a range spanning paragraphs
// removes every fully-covered interior paragraph and merges the first and
// last surviving paragraphs, retaining the first's block kind.
func (s *Store) DeleteRange(start, end uint64) (EditResult, error) {
	if end < start {
		start, end = end, start
	}
	if end > s.Len() {
		return EditResult{}, ErrInvalidOffset
	}
	if start == end {
		id, local, _ := s.ParagraphAt(start)
		return EditResult{TouchedParagraphIDs: []ParagraphID{id},
			NewCursorHint: CursorHint{ParagraphID: id, ByteOffset: local, HasHint: true}}, nil
	}

	startID, startLocal, err := s.ParagraphAt(start)
	if err != nil {
		return EditResult{}, err
	}
	// endAbs-1 resolves the paragraph containing the last deleted byte.
	endID, endLocal, err := s.paragraphAtInclusiveEnd(end)
	if err != nil {
		return EditResult{}, err
	}
	si, ei := s.byID[startID], s.byID[endID]

	if si == ei {
		p := s.paragraphs[si]
		newRope, err := p.Text.Delete(startLocal, endLocal)
		if err != nil {
			return EditResult{}, translateRopeErr(err)
		}
		p.Text = newRope
		p.Styles = styleruns.DeleteRange(p.Styles, startLocal, endLocal)
		s.rebuildOffsetsFrom(si)
		s.bumpVersion()
		return EditResult{
			TouchedParagraphIDs: []ParagraphID{p.ID},
			NewCursorHint:       CursorHint{ParagraphID: p.ID, ByteOffset: startLocal, HasHint: true},
		}, nil
	}

	first, last := s.paragraphs[si], s.paragraphs[ei]
	firstBefore, err := first.Text.Slice(0, startLocal)
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	lastAfter, err := last.Text.Slice(endLocal, last.Text.Len())
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	mergedText := firstBefore + lastAfter
	mergedRope, err := rope.FromString(mergedText)
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	firstRunsBefore, _ := styleruns.SplitAt(first.Styles, startLocal)
	_, lastRunsAfter := styleruns.SplitAt(last.Styles, endLocal)

	touched := make([]ParagraphID, 0, ei-si+1)
	for k := si; k <= ei; k++ {
		touched = append(touched, s.paragraphs[k].ID)
	}

	first.Text = mergedRope
	first.Styles = styleruns.Concat(firstRunsBefore, lastRunsAfter)
	// Block kind: retain the first paragraph's.

	tail := append([]*Paragraph{}, s.paragraphs[ei+1:]...)
	s.paragraphs = append(s.paragraphs[:si+1], tail...)
	s.offsets = make([]uint64, len(s.paragraphs))
	s.rebuildOffsetsFrom(0)
	s.bumpVersion()

	tracer().Infof("delete merged paragraphs %d..%d into %d", si, ei, first.ID)
	return EditResult{
		TouchedParagraphIDs: touched,
		StructuralChange:    true,
		NewCursorHint:       CursorHint{ParagraphID: first.ID, ByteOffset: startLocal, HasHint: true},
	}, nil
}

// paragraphAtInclusiveEnd resolves offset abs (the exclusive end of a
// delete range) to the paragraph/local-offset pair that contains the byte
// just before abs. This differs from ParagraphAt at paragraph boundaries:
// a delete ending exactly at a paragraph boundary must resolve to the end
// of the *preceding* paragraph, not the start of the following one.
func (s *Store) paragraphAtInclusiveEnd(abs uint64) (ParagraphID, uint64, error) {
	if abs == 0 {
		return s.ParagraphAt(0)
	}
	id, local, err := s.ParagraphAt(abs - 1)
	if err != nil {
		return 0, 0, err
	}
	return id, local + 1, nil
}

// ReplaceRange replaces [start, end) with text, implemented as a delete
// followed by an insert, matching the EditOp::Replace contract of
// spec.md §3 (whose inverse is itself a Replace of the old text).
func (s *Store) ReplaceRange(start, end uint64, text string) (EditResult, error) {
	delRes, err := s.DeleteRange(start, end)
	if err != nil {
		return EditResult{}, err
	}
	insRes, err := s.InsertAt(start, text)
	if err != nil {
		return EditResult{}, err
	}
	touched := dedupeIDs(append(delRes.TouchedParagraphIDs, insRes.TouchedParagraphIDs...))
	return EditResult{
		TouchedParagraphIDs: touched,
		StructuralChange:    delRes.StructuralChange || insRes.StructuralChange,
		NewCursorHint:       insRes.NewCursorHint,
	}, nil
}

// SplitParagraphAt splits the paragraph containing abs into two paragraphs
// at that position (an Enter keystroke). The new trailing paragraph gets a
// fresh id and defaults to BlockKind{Tag: Paragraph}; the original
// retains its id and block kind.
func (s *Store) SplitParagraphAt(abs uint64) (EditResult, error) {
	id, local, err := s.ParagraphAt(abs)
	if err != nil {
		return EditResult{}, err
	}
	i := s.byID[id]
	p := s.paragraphs[i]
	left, right, err := p.Text.Split(local)
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	leftRuns, rightRuns := styleruns.SplitAt(p.Styles, local)
	p.Text = left
	p.Styles = leftRuns

	newPara := &Paragraph{
		ID:     s.allocID(),
		Block:  BlockKind{Tag: Paragraph},
		Text:   right,
		Styles: rightRuns,
	}
	tail := append([]*Paragraph{}, s.paragraphs[i+1:]...)
	s.paragraphs = append(s.paragraphs[:i+1], newPara)
	s.paragraphs = append(s.paragraphs, tail...)
	s.offsets = make([]uint64, len(s.paragraphs))
	s.rebuildOffsetsFrom(0)
	s.bumpVersion()

	return EditResult{
		TouchedParagraphIDs: []ParagraphID{p.ID, newPara.ID},
		StructuralChange:    true,
		NewCursorHint:       CursorHint{ParagraphID: newPara.ID, ByteOffset: 0, HasHint: true},
	}, nil
}

// MergeParagraphs merges secondID into firstID, which must be adjacent in
// document order; the merged paragraph retains firstID's block kind and is
// destroyed as a distinct entity, i.e. secondID no longer resolves after
// this call.
func (s *Store) MergeParagraphs(firstID, secondID ParagraphID) (EditResult, error) {
	fi, ok := s.byID[firstID]
	if !ok {
		return EditResult{}, ErrUnknownParagraph
	}
	si, ok := s.byID[secondID]
	if !ok {
		return EditResult{}, ErrUnknownParagraph
	}
	if si != fi+1 {
		return EditResult{}, errors.New("document: MergeParagraphs requires adjacent paragraphs")
	}
	first, second := s.paragraphs[fi], s.paragraphs[si]
	joinOffset := first.Text.Len()
	mergedText := first.Text.String() + second.Text.String()
	mergedRope, err := rope.FromString(mergedText)
	if err != nil {
		return EditResult{}, translateRopeErr(err)
	}
	first.Text = mergedRope
	first.Styles = styleruns.Concat(first.Styles, second.Styles)

	tail := append([]*Paragraph{}, s.paragraphs[si+1:]...)
	s.paragraphs = append(s.paragraphs[:si], tail...)
	s.offsets = make([]uint64, len(s.paragraphs))
	s.rebuildOffsetsFrom(0)
	s.bumpVersion()

	return EditResult{
		TouchedParagraphIDs: []ParagraphID{first.ID, second.ID},
		StructuralChange:    true,
		NewCursorHint:       CursorHint{ParagraphID: first.ID, ByteOffset: joinOffset, HasHint: true},
	}, nil
}

// FormatRange applies font to the absolute byte range [start, end),
// splitting and normalizing style runs across every paragraph the range
// touches.
func (s *Store) FormatRange(start, end uint64, font fontreg.FontID) (EditResult, error) {
	if end < start {
		start, end = end, start
	}
	if end > s.Len() {
		return EditResult{}, ErrInvalidOffset
	}
	if start == end {
		return EditResult{}, nil
	}
	startID, startLocal, err := s.ParagraphAt(start)
	if err != nil {
		return EditResult{}, err
	}
	endID, endLocal, err := s.paragraphAtInclusiveEnd(end)
	if err != nil {
		return EditResult{}, err
	}
	si, ei := s.byID[startID], s.byID[endID]
	touched := make([]ParagraphID, 0, ei-si+1)
	for i := si; i <= ei; i++ {
		p := s.paragraphs[i]
		lo := uint64(0)
		if i == si {
			lo = startLocal
		}
		hi := p.Text.Len()
		if i == ei {
			hi = endLocal
		}
		p.Styles = styleruns.FormatRange(p.Styles, lo, hi, font)
		touched = append(touched, p.ID)
	}
	s.bumpVersion()
	return EditResult{TouchedParagraphIDs: touched}, nil
}

// ParagraphStyles returns a copy of id's current style runs, used by
// package editor to snapshot the pre-image of a format_range for its undo
// inverse.
func (s *Store) ParagraphStyles(id ParagraphID) (styleruns.Runs, error) {
	p, ok := s.ParagraphByID(id)
	if !ok {
		return styleruns.Runs{}, ErrUnknownParagraph
	}
	return p.Styles, nil
}

// SetParagraphStyles overwrites id's style runs wholesale and bumps
// document_version. It exists solely to let package editor restore a
// format_range's pre-image on undo, where the inverse cannot be expressed
// as a single FormatRange call because the formatted range may have
// covered more than one font before the edit.
func (s *Store) SetParagraphStyles(id ParagraphID, runs styleruns.Runs) error {
	p, ok := s.ParagraphByID(id)
	if !ok {
		return ErrUnknownParagraph
	}
	p.Styles = runs
	s.bumpVersion()
	return nil
}

// SetBlockKind overwrites id's block classification and bumps
// document_version. Used by package editor to restore a paragraph's
// original block kind after undoing a merge, since SplitParagraphAt always
// defaults a freshly split trailing paragraph to BlockKind{Tag: Paragraph}.
func (s *Store) SetBlockKind(id ParagraphID, kind BlockKind) error {
	p, ok := s.ParagraphByID(id)
	if !ok {
		return ErrUnknownParagraph
	}
	p.Block = kind
	s.bumpVersion()
	return nil
}

func dedupeIDs(ids []ParagraphID) []ParagraphID {
	seen := make(map[ParagraphID]bool, len(ids))
	out := make([]ParagraphID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func translateRopeErr(err error) error {
	switch err {
	case rope.ErrIndexOutOfBounds:
		return ErrInvalidOffset
	case rope.ErrNotBoundary:
		return ErrInvalidBoundary
	case rope.ErrInvalidUTF8:
		return ErrInvalidOffset
	default:
		return err
	}
}
