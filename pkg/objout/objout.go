// Package objout serializes yarn rows as the visualizer's point list: runs of
// "x y z" lines, each run introduced by a "usemtl mtl<carrier>" marker when
// the carrier changes.
package objout

import (
	"bufio"
	"io"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/errors"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/machine"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/pool"
)

// LoopRef is one loop visited in output order.
type LoopRef struct {
	Row     int
	Needle  knitout.BedNeedle
	Index   int // position within the needle's loop sequence
	Carrier string
	Points  *[machine.PointsPerLoop]r3.Vec
}

// Walk visits every loop in output order: rows from 0 upward, needle columns
// in carriage direction, and within a column the beds in knitout.Beds order.
// Walk stops early if fn returns false.
func Walk(rows []*machine.YarnRow, fn func(LoopRef) bool) {
	for r, row := range rows {
		needles := row.Needles()
		if row.Direction == knitout.DirLeft {
			for i, j := 0, len(needles)-1; i < j; i, j = i+1, j-1 {
				needles[i], needles[j] = needles[j], needles[i]
			}
		}
		for _, n := range needles {
			for _, bed := range knitout.Beds {
				bn := knitout.BedNeedle{Bed: bed, Needle: n}
				loops := row.Loops(bn)
				for i := range loops {
					ref := LoopRef{Row: r, Needle: bn, Index: i, Carrier: loops[i].Carrier, Points: &loops[i].Points}
					if !fn(ref) {
						return
					}
				}
			}
		}
	}
}

// FormatNumber renders x the way the viewer expects: shortest round-trip
// decimal, exponent form only for very large or very small magnitudes.
func FormatNumber(x float64) string {
	return string(pool.AppendNumber(nil, x))
}

// Write serializes rows to w.
func Write(w io.Writer, rows []*machine.YarnRow) error {
	bw := bufio.NewWriter(w)
	lines := pool.Get()
	defer pool.Put(lines)
	current := ""
	started := false
	var werr error
	Walk(rows, func(ref LoopRef) bool {
		if !started || ref.Carrier != current {
			started = true
			current = ref.Carrier
			lines.Material(current)
		}
		for _, p := range ref.Points {
			lines.Point(p)
		}
		_, werr = lines.WriteTo(bw)
		return werr == nil
	})
	if werr != nil {
		return errors.Wrap(werr, errors.ErrRuntime, "write output")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrRuntime, "write output")
	}
	return nil
}

// WriteFile serializes rows to path via a temporary file renamed into place.
func WriteFile(path string, rows []*machine.YarnRow) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, errors.ErrRuntime, "create output")
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, errors.ErrRuntime, "close output")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, errors.ErrRuntime, "rename output")
	}
	return nil
}
