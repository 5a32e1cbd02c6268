package machine

import (
	"strconv"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/errors"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
)

// MinStoppingDistance is recorded with every carrier position.
const MinStoppingDistance = 10

// LastStitch is where a carrier last made a stitch.
type LastStitch struct {
	Needle      knitout.BedNeedle
	Direction   knitout.Direction
	MinDistance int
}

type inInfo struct {
	carriers []string
	hook     bool
}

// Carrier is one active yarn carrier.
type Carrier struct {
	Name string
	// Plane indexes the carrier's depth plane.
	Plane float64
	Last  *LastStitch

	in *inInfo
}

// Hook is the yarn inserting hook while it holds carriers.
type Hook struct {
	Direction knitout.Direction
	Carriers  []string
}

func sameCarriers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// carrierPlane returns the depth index of a carrier: its number when the name
// is numeric, otherwise its 1-based activation order.
func (s *State) carrierPlane(name string) float64 {
	if c, ok := s.carriers[name]; ok {
		return c.Plane
	}
	if v, err := strconv.ParseFloat(name, 64); err == nil {
		return v
	}
	return 0
}

// BringIn activates carriers. The in-info is resolved on first use.
func (s *State) BringIn(names []string, hook bool) error {
	if len(names) == 0 {
		return errors.NoCarriersError("bring in")
	}
	for _, n := range names {
		if _, ok := s.carriers[n]; ok {
			return errors.DuplicateCarrierError(n)
		}
	}
	info := &inInfo{carriers: append([]string(nil), names...), hook: hook}
	for _, n := range names {
		s.activated++
		plane := float64(s.activated)
		if v, err := strconv.ParseFloat(n, 64); err == nil {
			plane = v
		}
		s.carriers[n] = &Carrier{Name: n, Plane: plane, in: info}
	}
	s.log.WithField("carriers", names).WithField("hook", hook).Debug("carriers in")
	return nil
}

// ResolveIn is called before the first stitch with a carrier set. A pending
// in-info must name exactly the carriers used; a pending inhook takes the hook.
func (s *State) ResolveIn(names []string, d knitout.Direction) error {
	var info *inInfo
	for _, n := range names {
		c, ok := s.carriers[n]
		if !ok {
			return errors.UnknownCarrierError(n)
		}
		if c.in != nil {
			info = c.in
			c.in = nil
		}
	}
	if info == nil {
		return nil
	}
	if !sameCarriers(info.carriers, names) {
		return errors.InInfoMismatchError(names, info.carriers)
	}
	if info.hook {
		if s.hook != nil {
			return errors.HookBusyError("inhook", names, s.hook.Carriers)
		}
		s.hook = &Hook{Direction: d, Carriers: append([]string(nil), names...)}
	}
	return nil
}

// ReleaseHook empties the hook. The carrier list must match the held set in order.
func (s *State) ReleaseHook(names []string) error {
	if len(names) == 0 {
		return errors.NoCarriersError("releasehook")
	}
	if s.hook == nil {
		return errors.HookEmptyError(names)
	}
	if !sameCarriers(s.hook.Carriers, names) {
		return errors.HookMismatchError(names, s.hook.Carriers)
	}
	s.hook = nil
	return nil
}

// BringOut deactivates carriers and returns the needle they park at: the
// rightmost last position of the set in slot space.
func (s *State) BringOut(names []string, hook bool) (knitout.BedNeedle, error) {
	if len(names) == 0 {
		return knitout.BedNeedle{}, errors.NoCarriersError("bring out")
	}
	var park knitout.BedNeedle
	for i, n := range names {
		c, ok := s.carriers[n]
		if !ok {
			return knitout.BedNeedle{}, errors.UnknownCarrierError(n)
		}
		if c.Last == nil {
			return knitout.BedNeedle{}, errors.NeverStitchedError(n)
		}
		if i == 0 || c.Last.Needle.Slot(s.Racking) > park.Slot(s.Racking) {
			park = c.Last.Needle
		}
	}
	if hook && s.hook != nil {
		return knitout.BedNeedle{}, errors.HookBusyError("outhook", names, s.hook.Carriers)
	}
	for _, n := range names {
		delete(s.carriers, n)
	}
	s.log.WithField("carriers", names).WithField("needle", park.String()).Debug("carriers out")
	return park, nil
}

// SetLast records where each carrier in names stitched.
func (s *State) SetLast(names []string, d knitout.Direction, bn knitout.BedNeedle) {
	for _, n := range names {
		if c, ok := s.carriers[n]; ok {
			c.Last = &LastStitch{Needle: bn, Direction: d, MinDistance: MinStoppingDistance}
		}
	}
}

// Carrier returns an active carrier.
func (s *State) Carrier(name string) (*Carrier, bool) {
	c, ok := s.carriers[name]
	return c, ok
}

// ActiveCarriers returns the number of active carriers.
func (s *State) ActiveCarriers() int {
	return len(s.carriers)
}

// Hook returns the hook contents, or nil when it is empty.
func (s *State) Hook() *Hook {
	return s.hook
}
