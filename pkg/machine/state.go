// Package machine models the state of a V-bed knitting machine while a
// knitout program runs: active carriers and the yarn hook, the loops held
// on every needle, and the yarn rows built so far.
package machine

import (
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/config"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/log"
)

type lastLoop struct {
	needle    knitout.BedNeedle
	row       int
	direction knitout.Direction
}

// Stats counts what the machine has done.
type Stats struct {
	Loops          int
	Transfers      int
	LoopsMoved     int
	EmptyTransfers int
	Drops          int
	Misses         int
	HeightBumps    int
}

// State is the complete machine state. It is owned by a single interpreter
// and is not safe for concurrent use.
type State struct {
	Racking float64
	Stitch  int

	cfg *config.Machine
	log *log.Logger

	carriers  map[string]*Carrier
	activated int
	hook      *Hook

	// active maps each bed's needles to the row holding their loops
	active  map[knitout.Bed]map[int]int
	rows    []*YarnRow
	heights *HeightTable
	last    *lastLoop

	stats Stats
}

// New returns an empty machine using cfg for geometry. A nil cfg means the
// default geometry.
func New(cfg *config.Machine) *State {
	if cfg == nil {
		cfg = config.DefaultMachine()
	}
	s := &State{
		Stitch:   cfg.Stitch,
		cfg:      cfg,
		log:      log.GetLogger("machine"),
		carriers: make(map[string]*Carrier),
		active:   make(map[knitout.Bed]map[int]int),
		heights:  NewHeightTable(cfg.Epsilon),
	}
	for _, b := range knitout.Beds {
		s.active[b] = make(map[int]int)
	}
	return s
}

// Config returns the geometry in use.
func (s *State) Config() *config.Machine {
	return s.cfg
}

// Rows returns all yarn rows in creation order.
func (s *State) Rows() []*YarnRow {
	return s.rows
}

// ActiveRow returns the row holding the loops currently on bn.
func (s *State) ActiveRow(bn knitout.BedNeedle) (int, bool) {
	row, ok := s.active[bn.Bed][bn.Needle]
	return row, ok
}

// LoopCount returns the number of loops currently on bn.
func (s *State) LoopCount(bn knitout.BedNeedle) int {
	return len(s.activeLoops(bn))
}

// Stats returns a snapshot of the counters.
func (s *State) Stats() Stats {
	st := s.stats
	st.HeightBumps = s.heights.Bumps()
	return st
}

func (s *State) activeLoops(bn knitout.BedNeedle) []Loop {
	row, ok := s.active[bn.Bed][bn.Needle]
	if !ok || row >= len(s.rows) {
		return nil
	}
	return s.rows[row].Loops(bn)
}

// nextRow is the row a stitch in direction d joins: the previous stitch's
// row, or the one after it when the carriage turned around.
func (s *State) nextRow(d knitout.Direction) int {
	if s.last == nil {
		return 0
	}
	if s.last.direction != d {
		return s.last.row + 1
	}
	return s.last.row
}

func (s *State) ensureRow(row int, d knitout.Direction) *YarnRow {
	for len(s.rows) <= row {
		s.rows = append(s.rows, newYarnRow(d))
	}
	return s.rows[row]
}

// Tuck adds a loop at bn without releasing the loops already there.
func (s *State) Tuck(d knitout.Direction, bn knitout.BedNeedle, carrier string) {
	l := Loop{Points: s.Synthesize(d, bn, carrier), Carrier: carrier}
	row := s.nextRow(d)
	s.ensureRow(row, d).append(bn, l)
	s.settle(bn, row, d)
}

// Knit forms a new loop at bn that replaces the loops held in its row.
func (s *State) Knit(d knitout.Direction, bn knitout.BedNeedle, carrier string) {
	l := Loop{Points: s.Synthesize(d, bn, carrier), Carrier: carrier}
	row := s.nextRow(d)
	s.ensureRow(row, d).replace(bn, l)
	s.settle(bn, row, d)
}

func (s *State) settle(bn knitout.BedNeedle, row int, d knitout.Direction) {
	s.active[bn.Bed][bn.Needle] = row
	s.last = &lastLoop{needle: bn, row: row, direction: d}
	s.stats.Loops++
}

// Drop releases the loops on bn. Their geometry stays in the rows.
func (s *State) Drop(bn knitout.BedNeedle) int {
	n := len(s.activeLoops(bn))
	delete(s.active[bn.Bed], bn.Needle)
	s.stats.Drops++
	return n
}

// Miss records a carrier pass over bn that forms no loop.
func (s *State) Miss(bn knitout.BedNeedle) {
	s.stats.Misses++
}
