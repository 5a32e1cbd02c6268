package machine

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
)

func (s *State) bedDepth(b knitout.Bed) float64 {
	switch b {
	case knitout.BackHook:
		return s.cfg.BackBed
	case knitout.FrontSlider:
		return s.cfg.FrontSliders
	case knitout.BackSlider:
		return s.cfg.BackSliders
	default:
		return s.cfg.FrontBed
	}
}

// Synthesize builds the 16 control points of a new loop at bn.
//
// The loop starts at the needle's current height (stacked above any loops it
// holds, or level with its neighbors when empty), climbs through the
// interlocking head, and ends with a float to the carrier plane at the height
// reserved in the height table for the gap it travels into. The previous
// loop's trailing float is stretched to meet this loop's start.
func (s *State) Synthesize(d knitout.Direction, bn knitout.BedNeedle, carrier string) [PointsPerLoop]r3.Vec {
	cfg := s.cfg
	spacing := cfg.BoxSpacing()
	width := cfg.BoxWidth - 2*cfg.Padding()
	dx := width / 5 * d.Sign()
	dy := cfg.BoxHeight / 3
	dz := cfg.BoxDepth / 2
	if bn.IsBack() {
		dz = -dz
	}
	pad := cfg.Padding() * d.Sign()

	var height float64
	if h, ok := s.MinHeight(bn); ok {
		height = h + spacing
	} else {
		height = s.NeighborHeight(bn)
	}

	slot := bn.Slot(s.Racking)
	space := slot
	if d != knitout.DirLeft {
		space = slot + 1
	}
	stack := s.heights.Reserve(space, height)
	carrierDepth := cfg.Carriers + cfg.CarrierSpacing()*s.carrierPlane(carrier)

	x := float64(slot) * (cfg.BoxWidth + spacing)
	if d != knitout.DirLeft {
		x -= cfg.BoxWidth
	}

	if s.last != nil && s.last.row < len(s.rows) {
		if prev := s.rows[s.last.row].loops[s.last.needle]; len(prev) > 0 {
			prev[len(prev)-1].Points[PointsPerLoop-1].X = x
		}
	}

	var pts [PointsPerLoop]r3.Vec
	pen := r3.Vec{X: x, Y: height, Z: s.bedDepth(bn.Bed)}
	pts[0] = pen
	for i, step := range [...]r3.Vec{
		{X: pad},
		{X: 2 * dx, Z: -dz},
		{Y: dy, Z: 2 * dz},
		{X: -dx},
		{Y: dy},
		{X: dx, Z: -2 * dz},
		{X: dx},
		{X: dx, Z: 2 * dz},
		{Y: -dy},
		{X: -dx},
		{Y: -dy, Z: -2 * dz},
		{X: 2 * dx, Z: dz},
		{X: pad},
	} {
		pen = r3.Add(pen, step)
		pts[i+1] = pen
	}
	pen.Y, pen.Z = stack, carrierDepth
	pts[14] = pen
	pts[15] = r3.Add(pen, r3.Vec{X: spacing * d.Sign()})
	return pts
}
