// Package knitout parses the knitout instruction language: bed-needle
// addresses, the version header and one tagged value per instruction line.
package knitout

import (
	"math"
	"regexp"
	"strconv"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/errors"
)

// Bed identifies one of the four needle positions on a V-bed machine.
type Bed uint8

const (
	FrontHook Bed = iota
	BackHook
	FrontSlider
	BackSlider
)

// Beds lists every bed in output column order.
var Beds = [...]Bed{FrontHook, FrontSlider, BackHook, BackSlider}

// String returns the knitout bed prefix.
func (b Bed) String() string {
	switch b {
	case FrontHook:
		return "f"
	case BackHook:
		return "b"
	case FrontSlider:
		return "fs"
	case BackSlider:
		return "bs"
	default:
		return "?"
	}
}

// IsFront reports whether b is on the front bed.
func (b Bed) IsFront() bool { return b == FrontHook || b == FrontSlider }

// IsBack reports whether b is on the back bed.
func (b Bed) IsBack() bool { return b == BackHook || b == BackSlider }

// IsHook reports whether b is a needle hook rather than a slider.
func (b Bed) IsHook() bool { return b == FrontHook || b == BackHook }

// IsSlider reports whether b is a slider position.
func (b Bed) IsSlider() bool { return b == FrontSlider || b == BackSlider }

func parseBed(s string) (Bed, bool) {
	switch s {
	case "f":
		return FrontHook, true
	case "b":
		return BackHook, true
	case "fs":
		return FrontSlider, true
	case "bs":
		return BackSlider, true
	}
	return 0, false
}

// BedNeedle is an immutable bed + needle address such as "f10" or "bs-3".
type BedNeedle struct {
	Bed    Bed
	Needle int
}

var needleRe = regexp.MustCompile(`^(f|b|fs|bs)(-?\d+)$`)

// ParseBedNeedle parses a bed-needle token.
func ParseBedNeedle(token string) (BedNeedle, error) {
	m := needleRe.FindStringSubmatch(token)
	if m == nil {
		return BedNeedle{}, errors.MalformedNeedleError(token)
	}
	bed, _ := parseBed(m[1])
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return BedNeedle{}, errors.MalformedNeedleError(token)
	}
	return BedNeedle{Bed: bed, Needle: n}, nil
}

// MustBedNeedle is like ParseBedNeedle but panics on error. For tests and constants.
func MustBedNeedle(token string) BedNeedle {
	bn, err := ParseBedNeedle(token)
	if err != nil {
		panic(err)
	}
	return bn
}

// String returns the knitout token for bn.
func (bn BedNeedle) String() string {
	return bn.Bed.String() + strconv.Itoa(bn.Needle)
}

// IsFront reports whether bn is on the front bed.
func (bn BedNeedle) IsFront() bool { return bn.Bed.IsFront() }

// IsBack reports whether bn is on the back bed.
func (bn BedNeedle) IsBack() bool { return bn.Bed.IsBack() }

// IsHook reports whether bn is a needle hook.
func (bn BedNeedle) IsHook() bool { return bn.Bed.IsHook() }

// IsSlider reports whether bn is a slider position.
func (bn BedNeedle) IsSlider() bool { return bn.Bed.IsSlider() }

// Slot maps bn into racking-normalized slot space. Front needles keep their
// index; back needles are shifted by the integer part of the racking.
func (bn BedNeedle) Slot(racking float64) int {
	if bn.IsFront() {
		return bn.Needle
	}
	return bn.Needle + int(math.Floor(racking))
}
