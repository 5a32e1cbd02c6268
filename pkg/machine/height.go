package machine

import (
	"math"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
)

// HeightTable records the highest yarn height reserved at each slot boundary
// so that consecutive floats across the same gap stack instead of colliding.
type HeightTable struct {
	eps     float64
	heights map[int]float64
	bumps   int
}

// NewHeightTable returns an empty table that separates stacked yarn by eps.
func NewHeightTable(eps float64) *HeightTable {
	return &HeightTable{eps: eps, heights: make(map[int]float64)}
}

// Query returns the height recorded at slot.
func (t *HeightTable) Query(slot int) (float64, bool) {
	h, ok := t.heights[slot]
	return h, ok
}

// Reserve claims height at slot and returns the height actually used. When
// the slot already holds a height at or above the request, the yarn is
// stacked eps above it. Recorded heights never decrease.
func (t *HeightTable) Reserve(slot int, height float64) float64 {
	if cur, ok := t.heights[slot]; ok && height <= cur {
		height = cur + t.eps
		t.bumps++
	}
	t.heights[slot] = height
	return height
}

// Bumps returns how many reservations were stacked above an earlier one.
func (t *HeightTable) Bumps() int {
	return t.bumps
}

// MinHeight returns the lowest vertex among the loops bn currently holds.
func (s *State) MinHeight(bn knitout.BedNeedle) (float64, bool) {
	loops := s.activeLoops(bn)
	if len(loops) == 0 {
		return 0, false
	}
	min := math.Inf(1)
	for i := range loops {
		if y := loops[i].MinY(); y < min {
			min = y
		}
	}
	return min, true
}

// NeighborHeight returns the larger of the minimum heights of the nearest
// occupied needle on each side of bn on the same bed, or 0 if neither side
// holds loops. The scan is limited to NeighborScan needles when it is set.
func (s *State) NeighborHeight(bn knitout.BedNeedle) float64 {
	left, right := bn, bn
	haveLeft, haveRight := false, false
	limit := s.cfg.NeighborScan
	for n := range s.active[bn.Bed] {
		if n == bn.Needle {
			continue
		}
		if limit > 0 && abs(n-bn.Needle) > limit {
			continue
		}
		cand := knitout.BedNeedle{Bed: bn.Bed, Needle: n}
		if len(s.activeLoops(cand)) == 0 {
			continue
		}
		if n < bn.Needle && (!haveLeft || n > left.Needle) {
			left, haveLeft = cand, true
		}
		if n > bn.Needle && (!haveRight || n < right.Needle) {
			right, haveRight = cand, true
		}
	}
	height := 0.0
	if haveLeft {
		h, _ := s.MinHeight(left)
		height = h
	}
	if haveRight {
		if h, _ := s.MinHeight(right); !haveLeft || h > height {
			height = h
		}
	}
	return height
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
