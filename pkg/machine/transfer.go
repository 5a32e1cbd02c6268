package machine

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
)

// Transfer moves every loop held on from to to. The head of each moved loop
// (points 4 through 9) is rebuilt at the destination; the legs stay where
// they were formed. It returns the number of loops moved, or false when from
// holds nothing.
func (s *State) Transfer(from, to knitout.BedNeedle) (int, bool) {
	fromRow, ok := s.active[from.Bed][from.Needle]
	if !ok || fromRow >= len(s.rows) || len(s.rows[fromRow].loops[from]) == 0 {
		s.stats.EmptyTransfers++
		return 0, false
	}
	src := s.rows[fromRow].loops[from]

	updated := s.Synthesize(src[0].Direction(), to, src[0].Carrier)

	height, ok := s.MinHeight(to)
	if !ok {
		height, _ = s.MinHeight(from)
	}
	dy := height - updated[1].Y

	moved := make([]Loop, len(src))
	for i, l := range src {
		for p := 4; p <= 9; p++ {
			u := updated[p]
			l.Points[p] = r3.Vec{X: u.X, Y: u.Y - s.cfg.Epsilon + dy, Z: u.Z}
		}
		moved[i] = l
	}

	toRow, ok := s.active[to.Bed][to.Needle]
	if !ok || toRow >= len(s.rows) {
		toRow = fromRow
	}
	s.rows[toRow].append(to, moved...)
	s.active[to.Bed][to.Needle] = toRow

	// The row cursor stays on fromRow so the next stitch never lands in an
	// earlier row than the one being knit.
	if s.last != nil && s.last.needle == from && s.last.row == fromRow {
		s.last.needle = to
	}
	s.rows[fromRow].clear(from)
	delete(s.active[from.Bed], from.Needle)

	s.stats.Transfers++
	s.stats.LoopsMoved += len(moved)
	return len(moved), true
}
