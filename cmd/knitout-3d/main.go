// knitout-3d converts a knitout program into the point list read by the 3-D
// yarn viewer.
//
// Usage:
//
//	knitout-3d [options] <in.k> <out.txt>
//
// Options:
//
//	-config string        Machine geometry file (default: built-in constants)
//	-logfile string       Log file path (default: stderr)
//	-log-level string     DEBUG, INFO, WARN or ERROR (default "INFO")
//	-log-json             Log one JSON object per line
//	-metrics-file string  Write run metrics in Prometheus text format
//	-metrics-addr string  Serve /metrics on this address after the run
//	-sqlite string        Also export the model to this SQLite database
//	-serve string         Serve the model to browser viewers on this address
//
// Examples:
//
//	# Plain conversion
//	knitout-3d in.k out.txt
//
//	# Keep the viewer feed running on :7125
//	knitout-3d -serve :7125 in.k out.txt
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/config"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/interp"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/log"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/metrics"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/objout"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/preview"
	"github.com/jackajackalop/Knitout-3D-Visualizer/pkg/store"
)

type options struct {
	configFile  string
	logFile     string
	logLevel    string
	logJSON     bool
	metricsFile string
	metricsAddr string
	sqlitePath  string
	serveAddr   string
	input       string
	output      string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("knitout-3d", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := &options{}
	fs.StringVar(&opts.configFile, "config", "", "Machine geometry file (default: built-in constants)")
	fs.StringVar(&opts.logFile, "logfile", "", "Log file path (default: stderr)")
	fs.StringVar(&opts.logLevel, "log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	fs.BoolVar(&opts.logJSON, "log-json", false, "Log one JSON object per line")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics on this address after the run")
	fs.StringVar(&opts.sqlitePath, "sqlite", "", "Also export the model to this SQLite database")
	fs.StringVar(&opts.serveAddr, "serve", "", "Serve the model to browser viewers on this address")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: knitout-3d [options] <in.k> <out.txt>\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return nil, fmt.Errorf("expected 2 arguments, got %d", fs.NArg())
	}
	opts.input, opts.output = fs.Arg(0), fs.Arg(1)
	return opts, nil
}

func setupLogging(opts *options, stderr io.Writer) (func(), error) {
	logger := log.GetLogger("")
	closer := func() {}
	logger.SetWriter(stderr)
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetWriter(f)
		closer = func() { f.Close() }
	}
	logger.SetLevel(log.ParseLevel(opts.logLevel))
	if opts.logJSON {
		logger.SetFormat(log.FormatJSON)
	}
	return closer, nil
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	closeLog, err := setupLogging(opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()
	logger := log.GetLogger("main")

	mach, err := config.LoadMachine(opts.configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	in, err := os.Open(opts.input)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer in.Close()

	km := metrics.NewKnitMetrics()
	ip := interp.New(mach)
	ip.SetObserver(km)

	start := time.Now()
	res, err := ip.Run(in)
	if err != nil {
		fmt.Fprintln(stderr, err)
		writeMetrics(km, opts.metricsFile, logger)
		return 1
	}
	km.RecordRun(len(res.Rows()), res.Stats, time.Since(start))

	if err := objout.WriteFile(opts.output, res.Rows()); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	logger.WithFields(log.Fields{
		"output":   opts.output,
		"rows":     len(res.Rows()),
		"loops":    res.Stats.Loops,
		"warnings": len(res.Warnings),
	}).Info("model written")

	writeMetrics(km, opts.metricsFile, logger)

	if opts.sqlitePath != "" {
		if err := exportSQLite(opts.sqlitePath, opts.input, res); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		logger.WithField("db", opts.sqlitePath).Info("model exported")
	}

	if opts.serveAddr == "" && opts.metricsAddr == "" {
		return 0
	}
	return serve(opts, km, preview.NewModel(filepath.Base(opts.input), res), logger)
}

func writeMetrics(km *metrics.KnitMetrics, path string, logger *log.Logger) {
	if path == "" {
		return
	}
	if err := km.WriteFile(path); err != nil {
		logger.WithError(err).Warn("metrics file not written")
	}
}

func exportSQLite(path, source string, res *interp.Result) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.SaveRun(context.Background(), source, res)
	return err
}

// serve keeps the preview and metrics servers up until SIGINT or SIGTERM.
func serve(opts *options, km *metrics.KnitMetrics, model *preview.Model, logger *log.Logger) int {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 2)
	var pv *preview.Server
	if opts.serveAddr != "" {
		pv = preview.New(preview.Config{Addr: opts.serveAddr, Metrics: km.Handler()})
		pv.Publish(model)
		go func() { errCh <- pv.Start() }()
		logger.WithField("addr", opts.serveAddr).Info("viewer feed ready")
	}
	var ms *metrics.Server
	if opts.metricsAddr != "" {
		ms = metrics.NewServer(km, opts.metricsAddr)
		go func() {
			if err := <-ms.Serve(); err != nil {
				errCh <- err
			}
		}()
		logger.WithField("addr", opts.metricsAddr).Info("metrics server ready")
	}

	code := 0
	select {
	case <-sigCh:
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.WithError(err).Error("server stopped")
			code = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if pv != nil {
		_ = pv.Shutdown(ctx)
	}
	if ms != nil {
		_ = ms.Shutdown(ctx)
	}
	return code
}
