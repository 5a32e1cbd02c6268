package knitout

import (
	"io"
	"strings"
	"testing"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/errors"
)

func TestParseBedNeedleRoundTrip(t *testing.T) {
	for _, tok := range []string{"f0", "b12", "fs3", "bs-4", "f-10", "b100000"} {
		bn, err := ParseBedNeedle(tok)
		if err != nil {
			t.Fatalf("ParseBedNeedle(%q) failed: %v", tok, err)
		}
		if bn.String() != tok {
			t.Errorf("round trip of %q gave %q", tok, bn.String())
		}
	}
}

func TestParseBedNeedleRejects(t *testing.T) {
	for _, tok := range []string{"", "f", "x3", "sf3", "F3", "f3a", "f+3", "fs", "b 3", "bss1"} {
		_, err := ParseBedNeedle(tok)
		if !errors.Is(err, errors.ErrMalformedNeedle) {
			t.Errorf("ParseBedNeedle(%q): expected MALFORMED_NEEDLE, got %v", tok, err)
		}
	}
}

func TestBedClassification(t *testing.T) {
	tests := []struct {
		tok                          string
		front, back, hook, slider bool
	}{
		{"f1", true, false, true, false},
		{"b1", false, true, true, false},
		{"fs1", true, false, false, true},
		{"bs1", false, true, false, true},
	}
	for _, tt := range tests {
		bn := MustBedNeedle(tt.tok)
		if bn.IsFront() != tt.front || bn.IsBack() != tt.back ||
			bn.IsHook() != tt.hook || bn.IsSlider() != tt.slider {
			t.Errorf("%s: got front=%v back=%v hook=%v slider=%v", tt.tok,
				bn.IsFront(), bn.IsBack(), bn.IsHook(), bn.IsSlider())
		}
	}
}

func TestSlotRackingConsistency(t *testing.T) {
	rackings := []float64{-2, -1.75, -1, 0, 0.25, 1, 1.25, 3}
	for _, r := range rackings {
		for n := -3; n <= 3; n++ {
			for m := -5; m <= 5; m++ {
				front := BedNeedle{Bed: FrontHook, Needle: n}
				back := BedNeedle{Bed: BackHook, Needle: m}
				floor := int(r)
				if float64(floor) > r {
					floor--
				}
				aligned := back.Slot(r) == front.Slot(r)
				if aligned != (m+floor == n) {
					t.Errorf("racking %v: f%d/b%d aligned=%v", r, n, m, aligned)
				}
			}
		}
	}
}

func TestParseLineSynonyms(t *testing.T) {
	ins, err := ParseLine("amiss f3", 2)
	if err != nil {
		t.Fatalf("amiss failed: %v", err)
	}
	st, ok := ins.(*Stitch)
	if !ok || st.Kind != Tuck || len(st.Carriers) != 0 || st.Direction != DirNone {
		t.Errorf("amiss parsed as %#v", ins)
	}

	ins, err = ParseLine("drop b-2", 3)
	if err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	st = ins.(*Stitch)
	if st.Kind != Knit || st.Needle != (BedNeedle{Bed: BackHook, Needle: -2}) {
		t.Errorf("drop parsed as %#v", st)
	}

	ins, err = ParseLine("xfer f1 bs1 ; to sliders", 4)
	if err != nil {
		t.Fatalf("xfer failed: %v", err)
	}
	sp := ins.(*Split)
	if sp.From.String() != "f1" || sp.To.String() != "bs1" || len(sp.Carriers) != 0 {
		t.Errorf("xfer parsed as %#v", sp)
	}
	if sp.Op() != "xfer" || sp.Line() != 4 {
		t.Errorf("expected op xfer on line 4, got %s on %d", sp.Op(), sp.Line())
	}
}

func TestParseLineStitch(t *testing.T) {
	ins, err := ParseLine("  knit - f10 1 2   ", 9)
	if err != nil {
		t.Fatalf("knit failed: %v", err)
	}
	st := ins.(*Stitch)
	if st.Direction != DirLeft || st.Needle.Needle != 10 || strings.Join(st.Carriers, ",") != "1,2" {
		t.Errorf("knit parsed as %#v", st)
	}
}

func TestParseLineBlankAndComments(t *testing.T) {
	for _, line := range []string{"", "   ", ";; comment", "\t; x"} {
		ins, err := ParseLine(line, 1)
		if ins != nil || err != nil {
			t.Errorf("ParseLine(%q) = %v, %v; want nil, nil", line, ins, err)
		}
	}
}

func TestParseLineErrors(t *testing.T) {
	tests := []struct {
		line string
		code errors.ErrorCode
	}{
		{"knit + q3 1", errors.ErrMalformedNeedle},
		{"knit f3 1", errors.ErrMalformedInstruction},
		{"knit +", errors.ErrMalformedInstruction},
		{"split + f1", errors.ErrMalformedInstruction},
		{"rack", errors.ErrMalformedInstruction},
		{"rack 1 2", errors.ErrMalformedInstruction},
		{"rack one", errors.ErrBadRacking},
		{"in", errors.ErrNoCarriers},
		{"drop f1 3", errors.ErrMalformedInstruction},
	}
	for _, tt := range tests {
		_, err := ParseLine(tt.line, 5)
		if !errors.Is(err, tt.code) {
			t.Errorf("ParseLine(%q): expected %s, got %v", tt.line, tt.code, err)
			continue
		}
		ke, _ := errors.As(err)
		if ke.Line != 5 {
			t.Errorf("ParseLine(%q): expected line 5, got %d", tt.line, ke.Line)
		}
	}
}

func TestParseLineUnsupported(t *testing.T) {
	ins, _ := ParseLine("x-speed-number 300", 1)
	u, ok := ins.(*Unsupported)
	if !ok || !u.Extension {
		t.Errorf("expected extension instruction, got %#v", ins)
	}
	ins, _ = ParseLine("stitch 5 5", 1)
	u, ok = ins.(*Unsupported)
	if !ok || u.Extension {
		t.Errorf("expected plain unsupported instruction, got %#v", ins)
	}
}

func TestReader(t *testing.T) {
	src := ";!knitout-2\n;;Machine: test\n\nin 1\r\nknit + f0 1\n"
	r := NewReader(strings.NewReader(src))

	ins, err := r.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if r.Version() != 2 {
		t.Errorf("expected version 2, got %d", r.Version())
	}
	if in, ok := ins.(*In); !ok || in.Line() != 4 || in.Carriers[0] != "1" {
		t.Errorf("expected in 1 on line 4, got %#v", ins)
	}
	if _, err := r.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReaderHeader(t *testing.T) {
	for _, src := range []string{"", "in 1\n", ";!knitout\n", "; !knitout-2\n"} {
		_, err := NewReader(strings.NewReader(src)).Next()
		if !errors.Is(err, errors.ErrMalformedHeader) {
			t.Errorf("%q: expected MALFORMED_HEADER, got %v", src, err)
		}
	}

	r := NewReader(strings.NewReader(";!knitout-3\n"))
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF after newer header, got %v", err)
	}
	if r.Version() != 3 {
		t.Errorf("expected version 3, got %d", r.Version())
	}
}
