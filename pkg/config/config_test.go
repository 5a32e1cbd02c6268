package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadString(t *testing.T) {
	data := `
# geometry overrides
[geometry]
box_width: 2
epsilon = 0.05   # inline comment

[machine]
stitch: 7
`
	cfg, err := LoadString(data)
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}

	geom := cfg.Section("geometry")
	if w, err := geom.Float("box_width", 1); err != nil || w != 2 {
		t.Errorf("expected box_width 2, got %v (%v)", w, err)
	}
	if e, err := geom.Float("EPSILON", 1); err != nil || e != 0.05 {
		t.Errorf("expected case-insensitive epsilon 0.05, got %v (%v)", e, err)
	}
	if l := geom.Line("epsilon"); l != 5 {
		t.Errorf("expected epsilon on line 5, got %d", l)
	}
	if v, err := cfg.Section("depth").Float("carriers", 0.5); err != nil || v != 0.5 {
		t.Errorf("absent section should fall back, got %v (%v)", v, err)
	}
}

func TestLoadStringErrors(t *testing.T) {
	tests := []struct {
		data string
		line int
	}{
		{"box_width: 1\n", 1},
		{"# header\n[]\n", 2},
		{"[geometry]\nno separator here\n", 2},
		{"[geometry]\n: 3\n", 2},
	}
	for _, tt := range tests {
		_, err := LoadString(tt.data)
		var cerr *Error
		if !errors.As(err, &cerr) {
			t.Errorf("%q: expected *Error, got %v", tt.data, err)
			continue
		}
		if cerr.Line != tt.line {
			t.Errorf("%q: expected line %d, got %d", tt.data, tt.line, cerr.Line)
		}
	}
}

func TestSectionReads(t *testing.T) {
	cfg, err := LoadString("[test]\nint_val: 42\nfloat_val: 3.5\nbad_int: x\nbad_float: 1.2.3\n")
	if err != nil {
		t.Fatalf("LoadString failed: %v", err)
	}
	sec := cfg.Section("test")

	if v, err := sec.Int("int_val", 0); err != nil || v != 42 {
		t.Errorf("Int: got %d, %v", v, err)
	}
	if v, err := sec.Float("float_val", 0); err != nil || v != 3.5 {
		t.Errorf("Float: got %v, %v", v, err)
	}
	if v, err := sec.Int("missing", 9); err != nil || v != 9 {
		t.Errorf("expected default 9, got %d, %v", v, err)
	}
	if _, err := sec.Int("bad_int", 0); err == nil || !strings.Contains(err.Error(), "[test] bad_int = x: not an integer") {
		t.Errorf("unexpected error for non-integer value: %v", err)
	}
	if _, err := sec.Float("bad_float", 0); err == nil || !strings.Contains(err.Error(), "not a number") {
		t.Errorf("unexpected error for non-number value: %v", err)
	}
}

func TestRules(t *testing.T) {
	cfg, _ := LoadString("[b]\nneg: -1\nzero: 0\n")
	sec := cfg.Section("b")
	if _, err := sec.Float("neg", 0, AtLeast(0)); err == nil {
		t.Error("expected minimum violation")
	}
	if _, err := sec.Float("zero", 1, Above(0)); err == nil || !strings.Contains(err.Error(), "must be above 0") {
		t.Errorf("expected above violation, got %v", err)
	}
	if v, err := sec.Float("zero", 1, AtLeast(0)); err != nil || v != 0 {
		t.Errorf("expected 0 within bounds, got %v, %v", v, err)
	}
	if _, err := sec.Int("zero", 1, AtLeast(1)); err == nil {
		t.Error("expected integer minimum violation")
	}
	if v, err := sec.Int("absent", -5, AtLeast(0)); err != nil || v != -5 {
		t.Errorf("defaults bypass rules, got %v, %v", v, err)
	}
}

func TestCheckUnused(t *testing.T) {
	cfg, _ := LoadString("[geometry]\nbox_width: 1\nbox_widht: 2\n[extra]\na: 1\n")
	if _, err := cfg.Section("geometry").Float("box_width", 1); err != nil {
		t.Fatal(err)
	}
	err := cfg.CheckUnused()
	var uerr *UnknownError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected *UnknownError, got %v", err)
	}
	if len(uerr.Sections) != 1 || uerr.Sections[0] != "extra" {
		t.Errorf("expected unused section extra, got %v", uerr.Sections)
	}
	if len(uerr.Options) != 1 || uerr.Options[0] != "geometry.box_widht" {
		t.Errorf("expected misspelled option, got %v", uerr.Options)
	}
	if msg := err.Error(); !strings.Contains(msg, "[extra]") || !strings.Contains(msg, "geometry.box_widht") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestDefaultMachine(t *testing.T) {
	m := DefaultMachine()
	if m.BoxSpacing() != 0.5 {
		t.Errorf("expected box spacing 0.5, got %v", m.BoxSpacing())
	}
	if m.Padding() != 0.1 {
		t.Errorf("expected padding 0.1, got %v", m.Padding())
	}
	if m.CarrierSpacing() != 0 {
		t.Errorf("expected carrier spacing 0 with default depths, got %v", m.CarrierSpacing())
	}
}

func TestMachineFromConfig(t *testing.T) {
	cfg, _ := LoadString("[depth]\ncarriers: 0.25\n[machine]\nneighbor_scan: 8\n")
	m, err := MachineFromConfig(cfg)
	if err != nil {
		t.Fatalf("MachineFromConfig failed: %v", err)
	}
	if m.Carriers != 0.25 || m.NeighborScan != 8 {
		t.Errorf("expected overrides, got %+v", m)
	}
	if m.BoxWidth != 1 || m.FrontBed != 1 {
		t.Errorf("expected defaults to survive, got %+v", m)
	}
	if got, want := m.CarrierSpacing(), (0.5-0.25)/16; got != want {
		t.Errorf("expected carrier spacing %v, got %v", want, got)
	}
}

func TestMachineFromConfigErrors(t *testing.T) {
	for _, data := range []string{
		"[geometry]\nbox_width: 0\n",
		"[depth]\nfront_bed: -2\n",
		"[machine]\nmax_version: 0\n",
		"[machine]\nstich: 5\n",
		"[colour]\nred: 1\n",
	} {
		cfg, err := LoadString(data)
		if err != nil {
			t.Fatalf("LoadString(%q) failed: %v", data, err)
		}
		if _, err := MachineFromConfig(cfg); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestMachineErrorLocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.cfg")
	data := "[geometry]\nbox_width: 1\n[depth]\nfront_bed: -2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadMachine(path)
	var cerr *Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if cerr.File != path || cerr.Line != 4 || cerr.Option != "front_bed" {
		t.Errorf("unexpected location %+v", cerr)
	}
	if !strings.HasPrefix(err.Error(), path+":4: [depth] front_bed = -2: ") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestLoadMachine(t *testing.T) {
	m, err := LoadMachine("")
	if err != nil || m.Epsilon != 0.1 {
		t.Fatalf("expected defaults for empty path, got %+v, %v", m, err)
	}

	path := filepath.Join(t.TempDir(), "machine.cfg")
	if err := os.WriteFile(path, []byte("[geometry]\nepsilon: 0.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err = LoadMachine(path)
	if err != nil || m.Epsilon != 0.2 {
		t.Errorf("expected epsilon 0.2, got %+v, %v", m, err)
	}

	if _, err := LoadMachine(filepath.Join(t.TempDir(), "missing.cfg")); err == nil {
		t.Error("expected error for missing file")
	}
}
