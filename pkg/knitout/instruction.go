package knitout

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/errors"
)

// Direction is the carriage direction of a stitching pass.
type Direction byte

const (
	DirNone  Direction = 0
	DirLeft  Direction = '-'
	DirRight Direction = '+'
)

func (d Direction) String() string {
	if d == DirNone {
		return ""
	}
	return string(rune(d))
}

// Sign returns -1 for leftward, +1 otherwise.
func (d Direction) Sign() float64 {
	if d == DirLeft {
		return -1
	}
	return 1
}

func parseDirection(op, tok string) (Direction, error) {
	switch tok {
	case "+":
		return DirRight, nil
	case "-":
		return DirLeft, nil
	}
	return DirNone, errors.MalformedInstructionError(op, "invalid direction '"+tok+"'")
}

// Instruction is one parsed knitout line. The concrete types below carry
// only the fields valid for their instruction kind.
type Instruction interface {
	Op() string
	Line() int
	Raw() string
}

type source struct {
	op   string
	line int
	raw  string
}

func (s source) Op() string  { return s.op }
func (s source) Line() int   { return s.line }
func (s source) Raw() string { return s.raw }

// In is "in" or "inhook".
type In struct {
	source
	Carriers []string
	Hook     bool
}

// ReleaseHook is "releasehook".
type ReleaseHook struct {
	source
	Carriers []string
}

// Out is "out" or "outhook".
type Out struct {
	source
	Carriers []string
	Hook     bool
}

// StitchKind distinguishes knit, tuck and miss.
type StitchKind int

const (
	Knit StitchKind = iota
	Tuck
	Miss
)

func (k StitchKind) String() string {
	switch k {
	case Knit:
		return "knit"
	case Tuck:
		return "tuck"
	default:
		return "miss"
	}
}

// Stitch is "knit", "tuck" or "miss", including the "drop" and "amiss" synonyms.
type Stitch struct {
	source
	Kind      StitchKind
	Direction Direction
	Needle    BedNeedle
	Carriers  []string
}

// Rack is "rack".
type Rack struct {
	source
	Racking float64
}

// Split is "split", including the "xfer" synonym.
type Split struct {
	source
	Direction Direction
	From      BedNeedle
	To        BedNeedle
	Carriers  []string
}

// Pause is "pause".
type Pause struct {
	source
}

// Unsupported is any instruction the interpreter skips with a warning.
type Unsupported struct {
	source
	Extension bool
	Args      []string
}

var rackingRe = regexp.MustCompile(`^[+-]?\d*\.?\d+$`)

// StripComment removes a ';' comment and surrounding whitespace.
func StripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// ParseLine parses one source line. Blank and comment-only lines return nil, nil.
func ParseLine(line string, lineNo int) (Instruction, error) {
	tokens := strings.Fields(StripComment(line))
	if len(tokens) == 0 {
		return nil, nil
	}
	ins, err := parseTokens(tokens, source{op: tokens[0], line: lineNo, raw: line})
	if err != nil {
		if ke, ok := errors.As(err); ok {
			ke.SetLine(lineNo).SetInstruction(line)
		}
		return nil, err
	}
	return ins, nil
}

func parseTokens(tokens []string, src source) (Instruction, error) {
	op := tokens[0]
	args := tokens[1:]

	switch op {
	case "amiss":
		return parseStitch(src, Tuck, append([]string{"+"}, args...), true)
	case "drop":
		return parseStitch(src, Knit, append([]string{"+"}, args...), true)
	case "xfer":
		return parseSplit(src, append([]string{"+"}, args...), true)
	case "in", "inhook":
		if len(args) == 0 {
			return nil, errors.NoCarriersError("bring in")
		}
		return &In{source: src, Carriers: args, Hook: op == "inhook"}, nil
	case "releasehook":
		if len(args) == 0 {
			return nil, errors.NoCarriersError("releasehook")
		}
		return &ReleaseHook{source: src, Carriers: args}, nil
	case "out", "outhook":
		if len(args) == 0 {
			return nil, errors.NoCarriersError("bring out")
		}
		return &Out{source: src, Carriers: args, Hook: op == "outhook"}, nil
	case "knit":
		return parseStitch(src, Knit, args, false)
	case "tuck":
		return parseStitch(src, Tuck, args, false)
	case "miss":
		return parseStitch(src, Miss, args, false)
	case "rack":
		if len(args) != 1 {
			return nil, errors.MalformedInstructionError(op, "racking takes one argument")
		}
		if !rackingRe.MatchString(args[0]) {
			return nil, errors.BadRackingError("racking must be a number")
		}
		r, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return nil, errors.BadRackingError("racking must be a number")
		}
		return &Rack{source: src, Racking: r}, nil
	case "split":
		return parseSplit(src, args, false)
	case "pause":
		return &Pause{source: src}, nil
	}
	return &Unsupported{source: src, Extension: strings.HasPrefix(op, "x-"), Args: args}, nil
}

func parseStitch(src source, kind StitchKind, args []string, synonym bool) (Instruction, error) {
	if len(args) < 2 {
		return nil, errors.MalformedInstructionError(src.op, "expected a direction and a needle")
	}
	d, err := parseDirection(src.op, args[0])
	if err != nil {
		return nil, err
	}
	n, err := ParseBedNeedle(args[1])
	if err != nil {
		return nil, err
	}
	cs := args[2:]
	if synonym && len(cs) > 0 {
		return nil, errors.MalformedInstructionError(src.op, "takes no carriers")
	}
	if len(cs) == 0 {
		// yarnless operations are directionless
		d = DirNone
	}
	return &Stitch{source: src, Kind: kind, Direction: d, Needle: n, Carriers: cs}, nil
}

func parseSplit(src source, args []string, synonym bool) (Instruction, error) {
	if len(args) < 3 {
		return nil, errors.MalformedInstructionError(src.op, "expected a direction and two needles")
	}
	d, err := parseDirection(src.op, args[0])
	if err != nil {
		return nil, err
	}
	from, err := ParseBedNeedle(args[1])
	if err != nil {
		return nil, err
	}
	to, err := ParseBedNeedle(args[2])
	if err != nil {
		return nil, err
	}
	cs := args[3:]
	if synonym && len(cs) > 0 {
		return nil, errors.MalformedInstructionError(src.op, "takes no carriers")
	}
	if len(cs) == 0 {
		d = DirNone
	}
	return &Split{source: src, Direction: d, From: from, To: to, Carriers: cs}, nil
}
