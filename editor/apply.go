package editor

import (
	"strings"

	"github.com/inkwell/paginate/document"
)

// ErrUnknownOp is returned for an EditOp with an unrecognized kind; this
// can only happen from a programming error within the package.
const ErrUnknownOp = EditorError("editor: unknown op kind")

// applyOp applies one primitive EditOp to store and returns the resulting
// EditResult plus the inverse ops computed from the pre-image (spec.md §9
// "Undo inverse capture": inverses are derived at apply time rather than
// kept as full snapshots), in the order they must be replayed to undo this
// one op. Format, delete, and replace ops are inverted by snapshotting the
// affected paragraphs' prior style runs, since the touched range may have
// spanned more than one font before the edit and a single
// FormatRange/InsertExtend call cannot restore that on its own — the
// inverse is the text-restoring op followed by an opRestoreStyles step
// that reasserts the exact pre-edit per-byte font assignment.
func applyOp(store *document.Store, op EditOp) (document.EditResult, []EditOp, error) {
	switch op.kind {
	case opInsert:
		res, err := store.InsertAt(op.absStart, op.text)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		// Paragraph breaks take no bytes in the absolute offset space, so the
		// inverse first merges every paragraph the insert split off back into
		// the origin, then deletes the inserted bytes.
		breaks := strings.Count(op.text, "\n")
		var invs []EditOp
		for k := 0; k < breaks && len(res.TouchedParagraphIDs) > 0; k++ {
			invs = append(invs, EditOp{kind: opMerge, paragraphA: res.TouchedParagraphIDs[0]})
		}
		invs = append(invs, EditOp{kind: opDelete, absStart: op.absStart, absEnd: op.absStart + uint64(len(op.text)-breaks)})
		return res, invs, nil

	case opDelete:
		old, err := sliceAbs(store, op.absStart, op.absEnd)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		snapshots, err := snapshotStyles(store, op.absStart, op.absEnd)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		res, err := store.DeleteRange(op.absStart, op.absEnd)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		invs := []EditOp{
			{kind: opInsert, absStart: op.absStart, text: old},
			{kind: opRestoreStyles, snapshot: snapshots},
		}
		return res, invs, nil

	case opReplace:
		old, err := sliceAbs(store, op.absStart, op.absEnd)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		snapshots, err := snapshotStyles(store, op.absStart, op.absEnd)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		res, err := store.ReplaceRange(op.absStart, op.absEnd, op.text)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		invs := []EditOp{
			{kind: opReplace, absStart: op.absStart, absEnd: op.absStart + uint64(len(op.text)), text: old},
			{kind: opRestoreStyles, snapshot: snapshots},
		}
		return res, invs, nil

	case opFormat:
		snapshots, err := snapshotStyles(store, op.absStart, op.absEnd)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		res, err := store.FormatRange(op.absStart, op.absEnd, op.formatFontID)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		inv := EditOp{kind: opRestoreStyles, snapshot: snapshots}
		return res, []EditOp{inv}, nil

	case opRestoreStyles:
		var touched []document.ParagraphID
		for pid, snap := range op.snapshot {
			if err := store.SetParagraphStyles(pid, snap.runs); err != nil {
				continue
			}
			touched = append(touched, pid)
		}
		return document.EditResult{TouchedParagraphIDs: touched}, nil, nil

	case opMerge:
		nextID, ok := nextParagraphIn(store, op.paragraphA)
		if !ok {
			return document.EditResult{}, nil, document.ErrUnknownParagraph
		}
		nextP, _ := store.ParagraphByID(nextID)
		origBlock := nextP.Block
		res, err := store.MergeParagraphs(op.paragraphA, nextID)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		inv := EditOp{
			kind:         opSplitRestore,
			paragraphA:   op.paragraphA,
			localOffset:  res.NewCursorHint.ByteOffset,
			restoreBlock: origBlock,
		}
		return res, []EditOp{inv}, nil

	case opSplitRestore:
		abs, err := store.AbsoluteOffsetOf(op.paragraphA, op.localOffset)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		res, err := store.SplitParagraphAt(abs)
		if err != nil {
			return document.EditResult{}, nil, err
		}
		newID := res.NewCursorHint.ParagraphID
		if err := store.SetBlockKind(newID, op.restoreBlock); err != nil {
			return document.EditResult{}, nil, err
		}
		inv := EditOp{kind: opMerge, paragraphA: op.paragraphA}
		return res, []EditOp{inv}, nil

	case opBlockKinds:
		prior := make(map[document.ParagraphID]document.BlockKind, len(op.blockKinds))
		var touched []document.ParagraphID
		for pid, kind := range op.blockKinds {
			p, ok := store.ParagraphByID(pid)
			if !ok {
				continue
			}
			prior[pid] = p.Block
			if err := store.SetBlockKind(pid, kind); err != nil {
				continue
			}
			touched = append(touched, pid)
		}
		inv := EditOp{kind: opBlockKinds, blockKinds: prior}
		return document.EditResult{TouchedParagraphIDs: touched}, []EditOp{inv}, nil
	}
	return document.EditResult{}, nil, ErrUnknownOp
}

// snapshotStyles captures the style runs of every paragraph touched by the
// absolute byte range [absStart, absEnd), for restoration by opRestoreStyles
// once a delete/replace/format over that range has been applied. Capturing
// per-paragraph runs rather than a single run (as opFormat already does)
// is what lets the inverse restore a range that spanned more than one font
// before the edit, instead of collapsing it to whatever font
// styleruns.InsertExtend happens to extend on re-insertion.
func snapshotStyles(store *document.Store, absStart, absEnd uint64) (map[document.ParagraphID]styleSnapshot, error) {
	id, _, err := store.ParagraphAt(absStart)
	if err != nil {
		return nil, err
	}
	endID, _, err := store.ParagraphAt(absEnd)
	if err != nil {
		endID = id
	}
	snapshots := make(map[document.ParagraphID]styleSnapshot)
	for _, pid := range paragraphRangeIDs(store, id, endID) {
		runs, err := store.ParagraphStyles(pid)
		if err != nil {
			continue
		}
		snapshots[pid] = styleSnapshot{runs: runs}
	}
	return snapshots, nil
}

// nextParagraphIn returns the paragraph following id in document order.
func nextParagraphIn(store *document.Store, id document.ParagraphID) (document.ParagraphID, bool) {
	paras := store.Paragraphs()
	for i, p := range paras {
		if p.ID == id {
			if i+1 < len(paras) {
				return paras[i+1].ID, true
			}
			return 0, false
		}
	}
	return 0, false
}

// paragraphRangeIDs returns the ids of every paragraph from startID to
// endID inclusive, in document order.
func paragraphRangeIDs(store *document.Store, startID, endID document.ParagraphID) []document.ParagraphID {
	var out []document.ParagraphID
	started := false
	for _, p := range store.Paragraphs() {
		if p.ID == startID {
			started = true
		}
		if started {
			out = append(out, p.ID)
		}
		if p.ID == endID {
			break
		}
	}
	return out
}

// sliceAbs returns the text in [start,end) of the document's absolute byte
// space, used to capture the pre-image of a delete/replace for its
// inverse. The absolute space (unlike GetText, which joins paragraphs with
// a display '\n') has no separator bytes between paragraphs, so this walks
// the paragraph index directly rather than slicing GetText's output.
func sliceAbs(store *document.Store, start, end uint64) (string, error) {
	if end <= start {
		return "", nil
	}
	if end > store.Len() {
		return "", document.ErrInvalidOffset
	}
	var b strings.Builder
	pos := start
	for pos < end {
		id, local, err := store.ParagraphAt(pos)
		if err != nil {
			return "", err
		}
		p, ok := store.ParagraphByID(id)
		if !ok {
			return "", document.ErrUnknownParagraph
		}
		hi := p.Text.Len()
		if remaining := end - pos; local+remaining < hi {
			hi = local + remaining
		}
		chunk, err := p.Text.Slice(local, hi)
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
		pos += hi - local
	}
	return b.String(), nil
}
