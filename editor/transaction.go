package editor

import (
	"unicode"
	"unicode/utf8"

	"github.com/inkwell/paginate/document"
)

// txBuilder accumulates ops applied to the store during one command,
// tracking their inverses (in reverse-apply order) and whatever touched
// ids/structural flag fall out, so the whole command can be committed as
// one Transaction or discarded if any step fails.
type txBuilder struct {
	ed         *Editor
	ops        []EditOp
	inverses   []EditOp
	touched    []document.ParagraphID
	structural bool
}

func (ed *Editor) newTxBuilder() *txBuilder {
	return &txBuilder{ed: ed}
}

// apply runs op against the store, recording it and its inverse. Returns
// false (and leaves the store already partially mutated by prior steps in
// this builder, matching the teacher-grounded CompoundCommand contract of
// "a later step's failure does not roll back earlier steps within the same
// call") if op fails.
func (b *txBuilder) apply(op EditOp) bool {
	res, invs, err := applyOp(b.ed.store, op)
	if err != nil {
		tracer().Errorf("apply %v failed: %v", op.kind, err)
		return false
	}
	b.ops = append(b.ops, op)
	b.inverses = append(append([]EditOp{}, invs...), b.inverses...)
	b.touched = append(b.touched, res.TouchedParagraphIDs...)
	b.structural = b.structural || res.StructuralChange
	return true
}

// empty reports whether no op successfully applied.
func (b *txBuilder) empty() bool { return len(b.ops) == 0 }

// commitOpts configures how a committed transaction is recorded for the
// merge rule of spec.md §4.D.
type commitOpts struct {
	description     string
	typingInsert    bool
	typingDelete    bool
	endsOnSoftBreak bool
}

// commit finalizes the transaction: pushes it to undo history (merging
// with the previous one if eligible), invalidates the layout engine over
// every touched paragraph, and leaves the editor's cursor/selection as
// already set by the caller.
func (b *txBuilder) commit(cursorBefore Cursor, selBefore *Selection, opts commitOpts) {
	if b.empty() {
		return
	}
	tx := &Transaction{
		Ops:             b.ops,
		InverseOps:      b.inverses,
		CursorBefore:    cursorBefore,
		CursorAfter:     b.ed.cursor,
		SelectionBefore: selBefore,
		SelectionAfter:  b.ed.selection,
		Timestamp:       b.ed.now(),
		Description:     opts.description,
		isTypingInsert:  opts.typingInsert,
		isTypingDelete:  opts.typingDelete,
		endsOnSoftBreak: opts.endsOnSoftBreak,
	}
	b.ed.undo.Push(tx)
	b.ed.invalidateFromResult(dedupe(b.touched), b.structural)
}

func dedupe(ids []document.ParagraphID) []document.ParagraphID {
	seen := make(map[document.ParagraphID]bool, len(ids))
	out := make([]document.ParagraphID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// deleteSelectionInto deletes the current selection (if any) as the first
// step of b, returning the absolute offset the caret should continue from.
// Reports false only on an internal resolution error; an absent selection
// is not a failure.
func (b *txBuilder) deleteSelectionInto(focusAbs uint64) (uint64, bool) {
	if !b.ed.HasSelection() {
		return focusAbs, true
	}
	start, end, err := b.ed.selectionAbsRange()
	if err != nil {
		return 0, false
	}
	if !b.apply(EditOp{kind: opDelete, absStart: start, absEnd: end}) {
		return 0, false
	}
	return start, true
}

// isSoftBreakRune reports whether r is a typing soft break point: a space
// or punctuation character that, once typed, ends the current merge
// window (spec.md §4.D "typing a whitespace after a run of non-whitespace
// opens a new merge window").
func isSoftBreakRune(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// isSingleRune reports whether s is exactly one rune, the eligibility
// condition for the typing-merge rule.
func isSingleRune(s string) bool {
	if s == "" {
		return false
	}
	_, n := utf8.DecodeRuneInString(s)
	return n == len(s)
}
