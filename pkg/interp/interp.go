// Package interp runs knitout programs against a machine.State.
package interp

import (
	"fmt"
	"io"
	"math"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/config"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/errors"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/knitout"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/log"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/machine"
)

// Warning is a recoverable problem found while interpreting.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: WARNING: %s", w.Line, w.Message)
	}
	return "WARNING: " + w.Message
}

// Observer receives interpreter events. pkg/metrics implements it.
type Observer interface {
	Instruction(op string)
	Warning(kind string)
	Failed(code string)
}

// Result is the outcome of a complete run.
type Result struct {
	Version      int
	State        *machine.State
	Warnings     []Warning
	Instructions int
	Ops          map[string]int
	Stats        machine.Stats
}

// Rows returns the yarn rows built by the run.
func (r *Result) Rows() []*machine.YarnRow {
	return r.State.Rows()
}

// Interpreter executes instructions in source order.
type Interpreter struct {
	cfg   *config.Machine
	state *machine.State
	log   *log.Logger
	obs   Observer

	version      int
	warnings     []Warning
	instructions int
	ops          map[string]int
}

// New creates an interpreter over a fresh machine. A nil cfg selects the
// default geometry.
func New(cfg *config.Machine) *Interpreter {
	if cfg == nil {
		cfg = config.DefaultMachine()
	}
	return &Interpreter{
		cfg:   cfg,
		state: machine.New(cfg),
		log:   log.GetLogger("interp"),
		ops:   make(map[string]int),
	}
}

// SetObserver installs an event observer.
func (in *Interpreter) SetObserver(o Observer) {
	in.obs = o
}

// State returns the machine being driven.
func (in *Interpreter) State() *machine.State {
	return in.state
}

// Warnings returns the warnings recorded so far.
func (in *Interpreter) Warnings() []Warning {
	return in.warnings
}

// Run reads and executes a whole knitout stream. It stops at the first fatal
// error, which carries the offending line number.
func (in *Interpreter) Run(r io.Reader) (res *Result, err error) {
	defer func() {
		if perr := errors.FromPanic(recover()); perr != nil {
			err = perr
		}
		if err != nil && in.obs != nil {
			code := string(errors.ErrRuntime)
			if ke, ok := errors.As(err); ok {
				code = string(ke.Code)
			}
			in.obs.Failed(code)
		}
	}()

	rd := knitout.NewReader(r)
	first := true
	for {
		ins, err := rd.Next()
		if first {
			first = false
			if err == nil || err == io.EOF {
				in.checkVersion(rd.Version())
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := in.Execute(ins); err != nil {
			return nil, err
		}
	}

	st := in.state.Stats()
	in.log.WithFields(log.Fields{
		"instructions": in.instructions,
		"rows":         len(in.state.Rows()),
		"loops":        st.Loops,
		"warnings":     len(in.warnings),
	}).Debug("run complete")

	return &Result{
		Version:      in.version,
		State:        in.state,
		Warnings:     in.warnings,
		Instructions: in.instructions,
		Ops:          in.ops,
		Stats:        st,
	}, nil
}

func (in *Interpreter) checkVersion(v int) {
	in.version = v
	if v > in.cfg.MaxVersion {
		in.warn(1, "version", fmt.Sprintf("File is version %d, but this code only knows about versions up to %d.", v, in.cfg.MaxVersion))
	}
}

func (in *Interpreter) warn(line int, kind, msg string) {
	w := Warning{Line: line, Message: msg}
	in.warnings = append(in.warnings, w)
	in.log.WithField("line", line).Warn(msg)
	if in.obs != nil {
		in.obs.Warning(kind)
	}
}

// Execute applies one instruction to the machine.
func (in *Interpreter) Execute(ins knitout.Instruction) error {
	in.instructions++
	in.ops[ins.Op()]++
	if in.obs != nil {
		in.obs.Instruction(ins.Op())
	}

	var err error
	switch x := ins.(type) {
	case *knitout.In:
		err = in.state.BringIn(x.Carriers, x.Hook)
	case *knitout.ReleaseHook:
		err = in.state.ReleaseHook(x.Carriers)
	case *knitout.Out:
		err = in.executeOut(x)
	case *knitout.Stitch:
		err = in.executeStitch(x)
	case *knitout.Rack:
		err = in.executeRack(x)
	case *knitout.Split:
		err = in.executeSplit(x)
	case *knitout.Pause:
		// nothing to draw
	case *knitout.Unsupported:
		if x.Extension {
			in.warn(x.Line(), "extension", fmt.Sprintf("unsupported extension operation '%s'.", x.Op()))
		} else {
			in.warn(x.Line(), "unsupported", fmt.Sprintf("unsupported operation '%s'. Ignored.", x.Op()))
		}
	default:
		err = errors.RuntimeError(fmt.Sprintf("unhandled instruction %T", ins))
	}

	if err != nil {
		if ke, ok := errors.As(err); ok {
			if ke.Line == 0 {
				ke.SetLine(ins.Line())
			}
			if ke.Instruction == "" {
				ke.SetInstruction(ins.Raw())
			}
		}
		return err
	}
	return nil
}

func (in *Interpreter) executeOut(x *knitout.Out) error {
	park, err := in.state.BringOut(x.Carriers, x.Hook)
	if err != nil {
		return err
	}
	in.log.WithFields(log.Fields{
		"line":     x.Line(),
		"carriers": x.Carriers,
		"slot":     park.Slot(in.state.Racking),
	}).Debugf("carriers out at %s", park)
	return nil
}

func (in *Interpreter) executeStitch(x *knitout.Stitch) error {
	st := in.state
	if len(x.Carriers) == 0 {
		switch x.Kind {
		case knitout.Knit:
			// drop
			st.Drop(x.Needle)
		default:
			st.Miss(x.Needle)
		}
		return nil
	}

	if x.Kind != knitout.Miss && x.Needle.IsSlider() {
		return errors.SliderStitchError(x.Kind.String(), x.Needle.String())
	}
	if err := st.ResolveIn(x.Carriers, x.Direction); err != nil {
		return err
	}
	switch x.Kind {
	case knitout.Knit:
		st.Knit(x.Direction, x.Needle, x.Carriers[0])
	case knitout.Tuck:
		st.Tuck(x.Direction, x.Needle, x.Carriers[0])
	case knitout.Miss:
		st.Miss(x.Needle)
	}
	st.SetLast(x.Carriers, x.Direction, x.Needle)
	return nil
}

func (in *Interpreter) executeRack(x *knitout.Rack) error {
	frac := x.Racking - math.Floor(x.Racking)
	if frac != 0 && frac != 0.25 {
		return errors.BadRackingError("racking must be an integer or an integer+0.25")
	}
	in.state.Racking = x.Racking
	return nil
}

// aligned reports whether two needles face each other at racking r.
func aligned(from, to knitout.BedNeedle, r float64) bool {
	if from.IsFront() == to.IsFront() {
		return false
	}
	if r != math.Floor(r) {
		return false
	}
	return from.Slot(r) == to.Slot(r)
}

func (in *Interpreter) executeSplit(x *knitout.Split) error {
	st := in.state
	if !aligned(x.From, x.To, st.Racking) {
		return errors.MisalignedTransferError(x.From.String(), x.To.String(), st.Racking)
	}

	yarn := len(x.Carriers) > 0
	switch {
	case x.From.IsHook() && x.To.IsHook(), x.From.IsHook() && x.To.IsSlider():
	case x.From.IsSlider() && x.To.IsHook():
		if yarn {
			return errors.SliderTransferError("cannot split from slider")
		}
	default:
		return errors.SliderTransferError("cannot move from slider to slider")
	}

	if !yarn {
		in.transfer(x)
		return nil
	}

	if err := st.ResolveIn(x.Carriers, x.Direction); err != nil {
		return err
	}
	if st.LoopCount(x.From) > 0 {
		in.transfer(x)
	}
	st.Knit(x.Direction, x.To, x.Carriers[0])
	st.SetLast(x.Carriers, x.Direction, x.From)
	return nil
}

func (in *Interpreter) transfer(x *knitout.Split) {
	n, ok := in.state.Transfer(x.From, x.To)
	if !ok {
		in.warn(x.Line(), "empty_transfer", fmt.Sprintf("no loops on '%s' to transfer to '%s'.", x.From, x.To))
		return
	}
	in.log.WithFields(log.Fields{"line": x.Line(), "loops": n}).Debugf("moved %s -> %s", x.From, x.To)
}
