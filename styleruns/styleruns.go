// Package styleruns tracks per-paragraph font-id style runs: a contiguous,
// gap-free, overlap-free partition of a paragraph's byte range into runs
// that each carry a single font id.
//
// The split/merge shape follows the teacher's cords/styled.Apply: a run
// overwritten over a sub-range splits into (maybe) a left remainder, the
// new styled span, and (maybe) a right remainder; adjacent runs sharing a
// font id are merged away afterwards. Unlike the teacher, runs are kept in
// a plain slice rather than a cord: a paragraph's run count is proportional
// to the number of distinct formatting changes a user made, not to the
// size of the document, so the tree machinery the teacher needs for
// document-sized cords is unwarranted weight here.
package styleruns

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/inkwell/paginate/fontreg"
)

func tracer() tracing.Trace {
	return tracing.Select("styleruns")
}

// Run is a contiguous byte range sharing a single font id.
type Run struct {
	ByteStart uint64
	ByteLen   uint64
	FontID    fontreg.FontID
}

func (r Run) end() uint64 { return r.ByteStart + r.ByteLen }

// Runs is an ordered, gap-free, overlap-free partition of a paragraph's
// byte range.
type Runs struct {
	runs []Run
}

// New creates Runs covering [0, length) with a single run of defaultFont.
func New(length uint64, defaultFont fontreg.FontID) Runs {
	if length == 0 {
		return Runs{}
	}
	return Runs{runs: []Run{{ByteStart: 0, ByteLen: length, FontID: defaultFont}}}
}

// Len returns the total byte length covered by these runs.
func (rs Runs) Len() uint64 {
	if len(rs.runs) == 0 {
		return 0
	}
	last := rs.runs[len(rs.runs)-1]
	return last.end()
}

// Slice returns a copy of the underlying run slice, in byte order.
func (rs Runs) Slice() []Run {
	out := make([]Run, len(rs.runs))
	copy(out, rs.runs)
	return out
}

// At returns the font id covering byte offset pos, and the index of the
// run. pos == Len() resolves to the last run; any other pos outside
// [0, Len()), or any pos when there are no runs, panics. Callers must
// validate range first, mirroring the rope package's boundary-checked API
// shape.
func (rs Runs) At(pos uint64) (fontreg.FontID, int) {
	for i, r := range rs.runs {
		if pos >= r.ByteStart && pos < r.end() {
			return r.FontID, i
		}
	}
	if pos == rs.Len() && len(rs.runs) > 0 {
		last := rs.runs[len(rs.runs)-1]
		return last.FontID, len(rs.runs) - 1
	}
	panic("styleruns: position out of range")
}

// InsertExtend accounts for length bytes of new text having been inserted
// at byte offset pos. Per the "extend preceding run on boundary insertion"
// policy: new text at a run boundary extends the run ending there (i.e.
// the preceding run), not the one starting there; new text strictly inside
// a run extends that run.
func InsertExtend(rs Runs, pos, length uint64, fallback fontreg.FontID) Runs {
	if length == 0 {
		return rs
	}
	if len(rs.runs) == 0 {
		return New(length, fallback)
	}
	out := make([]Run, 0, len(rs.runs)+1)
	inserted := false
	for _, r := range rs.runs {
		switch {
		case inserted:
			out = append(out, Run{ByteStart: r.ByteStart + length, ByteLen: r.ByteLen, FontID: r.FontID})
		case pos > r.ByteStart && pos < r.end():
			// strictly inside this run: grows in place.
			out = append(out, Run{ByteStart: r.ByteStart, ByteLen: r.ByteLen + length, FontID: r.FontID})
			inserted = true
		case pos == r.end():
			// boundary insertion: extend the preceding run (this one).
			out = append(out, Run{ByteStart: r.ByteStart, ByteLen: r.ByteLen + length, FontID: r.FontID})
			inserted = true
		case pos == r.ByteStart && pos == 0:
			// insertion at the very start of the paragraph: no preceding
			// run exists, so the new text takes on this run's font and the
			// run shifts/grows.
			out = append(out, Run{ByteStart: r.ByteStart, ByteLen: r.ByteLen + length, FontID: r.FontID})
			inserted = true
		default:
			out = append(out, r)
		}
	}
	result := Runs{runs: out}
	return normalize(result)
}

// DeleteRange removes [start, end) from the run coverage, shrinking or
// dropping intersecting runs and shifting everything after end left by
// (end-start) bytes.
func DeleteRange(rs Runs, start, end uint64) Runs {
	if end <= start {
		return rs
	}
	width := end - start
	out := make([]Run, 0, len(rs.runs))
	for _, r := range rs.runs {
		rs0, re0 := r.ByteStart, r.end()
		switch {
		case re0 <= start:
			out = append(out, r)
		case rs0 >= end:
			out = append(out, Run{ByteStart: rs0 - width, ByteLen: r.ByteLen, FontID: r.FontID})
		default:
			// overlaps the deleted range: clip it.
			newStart := rs0
			if newStart > start {
				newStart -= umin(newStart-start, width)
			}
			overlapLo, overlapHi := umax(rs0, start), umin(re0, end)
			newLen := r.ByteLen - (overlapHi - overlapLo)
			if rs0 >= start {
				newStart = start
			}
			if newLen > 0 {
				out = append(out, Run{ByteStart: newStart, ByteLen: newLen, FontID: r.FontID})
			}
		}
	}
	return normalize(Runs{runs: out})
}

// FormatRange overwrites font id over [start, end), splitting and
// normalizing surrounding runs exactly as cords/styled.Apply does: a left
// remainder (if start > 0), the newly-styled span, and a right remainder
// (if end < Len()).
func FormatRange(rs Runs, start, end uint64, font fontreg.FontID) Runs {
	total := rs.Len()
	if end > total {
		end = total
	}
	if start >= end {
		return rs
	}
	out := make([]Run, 0, len(rs.runs)+2)
	for _, r := range rs.runs {
		rs0, re0 := r.ByteStart, r.end()
		if re0 <= start || rs0 >= end {
			out = append(out, r)
			continue
		}
		if rs0 < start {
			out = append(out, Run{ByteStart: rs0, ByteLen: start - rs0, FontID: r.FontID})
		}
		if re0 > end {
			out = append(out, Run{ByteStart: end, ByteLen: re0 - end, FontID: r.FontID})
		}
	}
	out = append(out, Run{ByteStart: start, ByteLen: end - start, FontID: font})
	result := Runs{runs: out}
	sortRuns(result.runs)
	return normalize(result)
}

// SplitAt splits the run coverage at byte offset pos into a left part
// covering [0,pos) and a right part covering [pos,Len()) renumbered to
// start at 0, mirroring paragraph splitting in package document.
func SplitAt(rs Runs, pos uint64) (left, right Runs) {
	for _, r := range rs.runs {
		rs0, re0 := r.ByteStart, r.end()
		switch {
		case re0 <= pos:
			left.runs = append(left.runs, r)
		case rs0 >= pos:
			right.runs = append(right.runs, Run{ByteStart: rs0 - pos, ByteLen: r.ByteLen, FontID: r.FontID})
		default:
			left.runs = append(left.runs, Run{ByteStart: rs0, ByteLen: pos - rs0, FontID: r.FontID})
			right.runs = append(right.runs, Run{ByteStart: 0, ByteLen: re0 - pos, FontID: r.FontID})
		}
	}
	return normalize(left), normalize(right)
}

// Concat appends b's runs (already 0-based within its own paragraph) after
// a's runs, used when two paragraphs merge.
func Concat(a, b Runs) Runs {
	offset := a.Len()
	out := make([]Run, 0, len(a.runs)+len(b.runs))
	out = append(out, a.runs...)
	for _, r := range b.runs {
		out = append(out, Run{ByteStart: r.ByteStart + offset, ByteLen: r.ByteLen, FontID: r.FontID})
	}
	return normalize(Runs{runs: out})
}

// normalize merges adjacent runs sharing a font id and drops zero-length
// runs, per spec invariant (i)/(ii).
func normalize(rs Runs) Runs {
	if len(rs.runs) == 0 {
		return rs
	}
	filtered := rs.runs[:0:0]
	for _, r := range rs.runs {
		if r.ByteLen > 0 {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 {
		return Runs{}
	}
	merged := make([]Run, 0, len(filtered))
	merged = append(merged, filtered[0])
	for _, r := range filtered[1:] {
		last := &merged[len(merged)-1]
		if last.FontID == r.FontID && last.end() == r.ByteStart {
			last.ByteLen += r.ByteLen
			continue
		}
		merged = append(merged, r)
	}
	tracer().Debugf("normalized to %d runs", len(merged))
	return Runs{runs: merged}
}

func sortRuns(runs []Run) {
	// runs are nearly sorted already (at most one out-of-order insertion
	// from FormatRange); a simple insertion sort keeps this allocation-free
	// and avoids pulling in sort for O(n) typical sizes.
	for i := 1; i < len(runs); i++ {
		for j := i; j > 0 && runs[j].ByteStart < runs[j-1].ByteStart; j-- {
			runs[j], runs[j-1] = runs[j-1], runs[j]
		}
	}
}

func umin(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func umax(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
