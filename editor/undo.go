package editor

import "time"

// mergeWindow is the maximum gap between consecutive single-character
// typing commands that still merge into the same transaction (spec.md
// §4.D).
const mergeWindow = 500 * time.Millisecond

// maxUndoEntries bounds the undo stack; the oldest transaction is dropped
// once the limit is exceeded.
const maxUndoEntries = 100

// History is the transactional undo/redo stack, grounded on the same
// execute-push/undo-pop-to-redo shape the wider examples pack uses for
// editor command history, generalized with the typing-merge rule spec.md
// adds on top of plain undo/redo.
type History struct {
	undoStack []*Transaction
	redoStack []*Transaction
}

// NewHistory creates an empty undo/redo stack.
func NewHistory() *History {
	return &History{}
}

// Push records a completed transaction, merging it into the top of the
// undo stack when it is an eligible single-character typing op within the
// merge window of the previous one, clearing the redo stack otherwise
// (push always clears the redo stack; a merge is not a "new" command for
// that purpose either way since the stack is unchanged beyond its top).
func (h *History) Push(tx *Transaction) {
	if top := h.top(); top != nil && h.tryMerge(top, tx) {
		h.redoStack = nil
		return
	}
	h.undoStack = append(h.undoStack, tx)
	if len(h.undoStack) > maxUndoEntries {
		h.undoStack = h.undoStack[len(h.undoStack)-maxUndoEntries:]
	}
	h.redoStack = nil
}

func (h *History) top() *Transaction {
	if len(h.undoStack) == 0 {
		return nil
	}
	return h.undoStack[len(h.undoStack)-1]
}

// tryMerge folds tx into prev in place if both are eligible typing
// transactions of the same kind (insert or delete), prev does not end on
// a soft break, and tx started within mergeWindow of prev.
func (h *History) tryMerge(prev, tx *Transaction) bool {
	sameKind := (prev.isTypingInsert && tx.isTypingInsert) || (prev.isTypingDelete && tx.isTypingDelete)
	if !sameKind {
		return false
	}
	if prev.endsOnSoftBreak {
		return false
	}
	if tx.Timestamp.Sub(prev.Timestamp) > mergeWindow {
		return false
	}
	prev.Ops = append(prev.Ops, tx.Ops...)
	// Inverses undo in reverse chronological order: the newest op's inverse
	// must run first, so it is prepended.
	prev.InverseOps = append(append([]EditOp{}, tx.InverseOps...), prev.InverseOps...)
	prev.CursorAfter = tx.CursorAfter
	prev.SelectionAfter = tx.SelectionAfter
	prev.Timestamp = tx.Timestamp
	prev.endsOnSoftBreak = tx.endsOnSoftBreak
	prev.Description = tx.Description
	return true
}

// CanUndo reports whether a transaction is available to undo.
func (h *History) CanUndo() bool { return len(h.undoStack) > 0 }

// CanRedo reports whether a transaction is available to redo.
func (h *History) CanRedo() bool { return len(h.redoStack) > 0 }

// PopUndo removes and returns the most recent transaction, moving it onto
// the redo stack.
func (h *History) PopUndo() (*Transaction, bool) {
	if len(h.undoStack) == 0 {
		return nil, false
	}
	tx := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, tx)
	return tx, true
}

// PopRedo removes and returns the most recently undone transaction, moving
// it back onto the undo stack.
func (h *History) PopRedo() (*Transaction, bool) {
	if len(h.redoStack) == 0 {
		return nil, false
	}
	tx := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, tx)
	return tx, true
}

// Clear drops all undo/redo state.
func (h *History) Clear() {
	h.undoStack = nil
	h.redoStack = nil
}
