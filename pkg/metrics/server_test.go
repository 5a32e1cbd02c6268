// Unit tests for the metrics HTTP endpoint
//
// Copyright (C) 2026  Knitout Visualizer Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/machine"
)

func get(s *Server, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestServerBasic(t *testing.T) {
	server := NewServer(NewKnitMetrics(), ":0")
	if server.Addr() != ":0" {
		t.Errorf("unexpected address %s", server.Addr())
	}
	if server.Uptime() != 0 {
		t.Error("uptime should be zero before Serve")
	}
}

func TestHandleMetrics(t *testing.T) {
	km := NewKnitMetrics()
	km.Instruction("knit")
	server := NewServer(km, ":0")

	resp := get(server, http.MethodGet, "/metrics").Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `knitout_instructions_total{op="knit"} 1`) {
		t.Errorf("metrics output missing instruction counter:\n%s", body)
	}
}

func TestReadOnlyEndpoints(t *testing.T) {
	server := NewServer(NewKnitMetrics(), ":0")
	for _, path := range []string{"/metrics", "/summary", "/"} {
		w := get(server, http.MethodPost, path)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: expected 405, got %d", path, w.Code)
		}
		if w.Header().Get("Allow") != "GET, HEAD" {
			t.Errorf("POST %s: missing Allow header", path)
		}
	}
}

func TestHandleSummary(t *testing.T) {
	km := NewKnitMetrics()
	km.Instruction("knit")
	km.Instruction("knit")
	km.Instruction("xfer")
	km.Warning("empty-transfer")
	km.RecordRun(3, machine.Stats{Loops: 2, Transfers: 1, LoopsMoved: 1}, 5*time.Millisecond)
	km.Failed("carrier")
	server := NewServer(km, ":0")

	w := get(server, http.MethodGet, "/summary")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got struct {
		Summary
		Uptime float64 `json:"uptime_seconds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, w.Body.String())
	}
	if got.Instructions["knit"] != 2 || got.Instructions["xfer"] != 1 {
		t.Errorf("unexpected instructions %v", got.Instructions)
	}
	if got.Warnings["empty-transfer"] != 1 || got.Errors["carrier"] != 1 {
		t.Errorf("unexpected warnings %v / errors %v", got.Warnings, got.Errors)
	}
	if got.Runs["ok"] != 1 || got.Runs["failed"] != 1 {
		t.Errorf("unexpected runs %v", got.Runs)
	}
	if got.Model["rows"] != 3 || got.Model["loops"] != 2 || got.Model["loops_moved"] != 1 {
		t.Errorf("unexpected model gauges %v", got.Model)
	}
	if _, ok := got.Model["run_duration_seconds"]; ok {
		t.Error("histograms should not appear in the summary")
	}
}

func TestHandleIndex(t *testing.T) {
	server := NewServer(NewKnitMetrics(), ":0")

	w := get(server, http.MethodGet, "/")
	body := w.Body.String()
	for _, want := range []string{"/metrics", "/summary", "knitout_rows", "Yarn rows in the last model."} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q:\n%s", want, body)
		}
	}

	if w := get(server, http.MethodGet, "/nope"); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestServeAndShutdown(t *testing.T) {
	server := NewServer(NewKnitMetrics(), "127.0.0.1:0")
	errCh := server.Serve()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected nil after Shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
	if server.Uptime() != 0 {
		t.Error("uptime should reset after Shutdown")
	}
}
