package grid

import "github.com/iliyamo/parking-lot/internal/model"

// Repair returns cells resized to exactly n entries: a short snapshot is
// padded with empty cells at the tail, a long one is truncated from the
// tail.  Entries in the overlapping prefix keep their positions.  The
// boolean reports whether the length changed.
func Repair(cells model.Snapshot, n int) (model.Snapshot, bool) {
	if n < 0 {
		n = 0
	}
	switch {
	case len(cells) == n:
		return cells, false
	case len(cells) > n:
		out := make(model.Snapshot, n)
		copy(out, cells[:n])
		return out, true
	default:
		out := make(model.Snapshot, n)
		copy(out, cells)
		return out, true
	}
}
