// Unit tests for interpreter metrics
//
// Copyright (C) 2026  Knitout Visualizer Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/machine"
)

func TestObserverCounters(t *testing.T) {
	km := NewKnitMetrics()
	km.Instruction("knit")
	km.Instruction("knit")
	km.Instruction("xfer")
	km.Warning("extension")
	km.Failed("HOOK_BUSY")

	out := km.Gather()
	for _, want := range []string{
		`knitout_instructions_total{op="knit"} 2`,
		`knitout_instructions_total{op="xfer"} 1`,
		`knitout_warnings_total{kind="extension"} 1`,
		`knitout_errors_total{code="HOOK_BUSY"} 1`,
		`knitout_runs_total{outcome="failed"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRecordRun(t *testing.T) {
	km := NewKnitMetrics()
	km.RecordRun(3, machine.Stats{Loops: 12, Transfers: 2, LoopsMoved: 4, HeightBumps: 1}, 5*time.Millisecond)

	out := km.Gather()
	for _, want := range []string{
		"knitout_rows 3",
		"knitout_loops 12",
		"knitout_transfers 2",
		"knitout_loops_moved 4",
		"knitout_height_bumps 1",
		`knitout_runs_total{outcome="ok"} 1`,
		"knitout_run_duration_seconds_count 1",
		"# TYPE knitout_run_duration_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWriteFile(t *testing.T) {
	km := NewKnitMetrics()
	km.Instruction("in")
	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := km.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# HELP knitout_instructions_total") {
		t.Errorf("unexpected file contents:\n%s", data)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := NewKnitMetrics(), NewKnitMetrics()
	a.Instruction("knit")
	if strings.Contains(b.Gather(), `op="knit"`) {
		t.Error("metrics leaked between registries")
	}
}
