package machine

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
)

// PointsPerLoop is the number of control points in every stitch polygon.
const PointsPerLoop = 16

// Loop is the yarn path of one stitch.
type Loop struct {
	Points  [PointsPerLoop]r3.Vec
	Carrier string
}

// MinY returns the lowest vertex of the loop.
func (l *Loop) MinY() float64 {
	min := l.Points[0].Y
	for _, p := range l.Points[1:] {
		if p.Y < min {
			min = p.Y
		}
	}
	return min
}

// Direction infers the carriage direction the loop was formed in from the
// run of its entry ramp.
func (l *Loop) Direction() knitout.Direction {
	if l.Points[2].X-l.Points[1].X < 0 {
		return knitout.DirLeft
	}
	return knitout.DirRight
}

// YarnRow is one carriage pass worth of loops, keyed by bed and needle.
// A needle may hold several loops, e.g. after tucks.
type YarnRow struct {
	Direction knitout.Direction
	loops     map[knitout.BedNeedle][]Loop
}

func newYarnRow(d knitout.Direction) *YarnRow {
	return &YarnRow{Direction: d, loops: make(map[knitout.BedNeedle][]Loop)}
}

// Loops returns the loops held at bn in this row. The slice is owned by the row.
func (r *YarnRow) Loops(bn knitout.BedNeedle) []Loop {
	return r.loops[bn]
}

// Needles returns every needle index holding loops on any bed, ascending.
func (r *YarnRow) Needles() []int {
	seen := make(map[int]struct{}, len(r.loops))
	out := make([]int, 0, len(r.loops))
	for bn, ls := range r.loops {
		if len(ls) == 0 {
			continue
		}
		if _, ok := seen[bn.Needle]; !ok {
			seen[bn.Needle] = struct{}{}
			out = append(out, bn.Needle)
		}
	}
	sort.Ints(out)
	return out
}

// LoopCount returns the number of loops in the row.
func (r *YarnRow) LoopCount() int {
	n := 0
	for _, ls := range r.loops {
		n += len(ls)
	}
	return n
}

func (r *YarnRow) append(bn knitout.BedNeedle, ls ...Loop) {
	r.loops[bn] = append(r.loops[bn], ls...)
}

func (r *YarnRow) replace(bn knitout.BedNeedle, l Loop) {
	r.loops[bn] = []Loop{l}
}

func (r *YarnRow) clear(bn knitout.BedNeedle) {
	delete(r.loops, bn)
}
