// HTTP endpoint for interpreter metrics
//
// Serves the registry to scrapers on /metrics, a JSON digest of the latest
// run on /summary, and a plain-text index of the metric families on /.
//
// Copyright (C) 2026  Knitout Visualizer Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/log"
)

// Summary is a digest of the counters and gauges in a KnitMetrics.
type Summary struct {
	Runs         map[string]float64 `json:"runs"`
	Instructions map[string]float64 `json:"instructions"`
	Warnings     map[string]float64 `json:"warnings"`
	Errors       map[string]float64 `json:"errors"`
	Model        map[string]float64 `json:"model"`
}

// Summary gathers the registry into a Summary. Histograms are left out.
func (km *KnitMetrics) Summary() (*Summary, error) {
	families, err := km.registry.Gather()
	if err != nil {
		return nil, err
	}
	s := &Summary{
		Runs:         map[string]float64{},
		Instructions: map[string]float64{},
		Warnings:     map[string]float64{},
		Errors:       map[string]float64{},
		Model:        map[string]float64{},
	}
	for _, mf := range families {
		name := strings.TrimPrefix(mf.GetName(), namespace+"_")
		for _, m := range mf.GetMetric() {
			var v float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				v = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				v = m.GetGauge().GetValue()
			default:
				continue
			}
			var label string
			if lp := m.GetLabel(); len(lp) > 0 {
				label = lp[0].GetValue()
			}
			switch name {
			case "runs_total":
				s.Runs[label] = v
			case "instructions_total":
				s.Instructions[label] = v
			case "warnings_total":
				s.Warnings[label] = v
			case "errors_total":
				s.Errors[label] = v
			default:
				s.Model[name] = v
			}
		}
	}
	return s, nil
}

// Server exposes a KnitMetrics over HTTP.
type Server struct {
	km      *KnitMetrics
	addr    string
	mux     *http.ServeMux
	srv     *http.Server
	log     *log.Logger
	started atomic.Int64 // unix nanoseconds, 0 while stopped
}

// NewServer creates a server for km listening on addr.
func NewServer(km *KnitMetrics, addr string) *Server {
	s := &Server{
		km:   km,
		addr: addr,
		mux:  http.NewServeMux(),
		log:  log.GetLogger("metrics"),
	}
	s.mux.Handle("/metrics", readOnly(km.Handler()))
	s.mux.Handle("/summary", readOnly(http.HandlerFunc(s.handleSummary)))
	s.mux.Handle("/", readOnly(http.HandlerFunc(s.handleIndex)))
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Uptime returns how long the server has been serving, or 0 when stopped.
func (s *Server) Uptime() time.Duration {
	ns := s.started.Load()
	if ns == 0 {
		return 0
	}
	return time.Since(time.Unix(0, ns))
}

// Serve starts listening in the background. The returned channel yields the
// listener's error, or nil after Shutdown.
func (s *Server) Serve() <-chan error {
	errCh := make(chan error, 1)
	s.started.Store(time.Now().UnixNano())
	s.log.WithField("addr", s.addr).Info("metrics server starting")
	go func() {
		err := s.srv.ListenAndServe()
		s.started.Store(0)
		if err == http.ErrServerClosed {
			err = nil
		}
		errCh <- err
	}()
	return errCh
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.started.Store(0)
	return s.srv.Shutdown(ctx)
}

func readOnly(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.km.Summary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		*Summary
		Uptime float64 `json:"uptime_seconds"`
	}{sum, s.Uptime().Seconds()}); err != nil {
		s.log.WithError(err).Warn("summary encode failed")
	}
}

// handleIndex lists the metric families with their help text.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	families, err := s.km.registry.Gather()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "knitout-3d metrics\n\n/metrics  Prometheus exposition\n/summary  JSON digest of the latest run\n\n")
	for _, mf := range families {
		fmt.Fprintf(w, "%-36s %-9s %s\n", mf.GetName(), strings.ToLower(mf.GetType().String()), mf.GetHelp())
	}
}
