package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/seclens/windevices/internal/server"
)

const (
	logLevelAll   = "all"
	logLevelDebug = "debug"
	logLevelInfo  = "info"
	logLevelWarn  = "warn"
	logLevelError = "error"
	logLevelNone  = "none"

	logFormatAuto   = "auto"
	logFormatLogfmt = "logfmt"
	logFormatJSON   = "json"

	defaultScanInterval = 30 * time.Second
)

var availableLogLevels = strings.Join([]string{
	logLevelAll,
	logLevelDebug,
	logLevelInfo,
	logLevelWarn,
	logLevelError,
	logLevelNone,
}, ", ")

func buildLogger(levelName, format string) (log.Logger, error) {
	var logger log.Logger
	switch format {
	case logFormatJSON:
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	case logFormatLogfmt:
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	case logFormatAuto:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
		} else {
			logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	switch levelName {
	case logLevelAll:
		logger = level.NewFilter(logger, level.AllowAll())
	case logLevelDebug:
		logger = level.NewFilter(logger, level.AllowDebug())
	case logLevelInfo:
		logger = level.NewFilter(logger, level.AllowInfo())
	case logLevelWarn:
		logger = level.NewFilter(logger, level.AllowWarn())
	case logLevelError:
		logger = level.NewFilter(logger, level.AllowError())
	case logLevelNone:
		logger = level.NewFilter(logger, level.AllowNone())
	default:
		return nil, fmt.Errorf("unknown log level %q (expected one of %s)", levelName, availableLogLevels)
	}
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller), nil
}

// Main is the principal function for the binary, wrapped only by `main`
// for convenience.
func Main() error {
	if err := initConfig(); err != nil {
		return err
	}

	logger, err := buildLogger(viper.GetString("log-level"), viper.GetString("log-format"))
	if err != nil {
		return err
	}

	sc, err := newScanner(logger)
	if err != nil {
		return err
	}

	if guid := viper.GetString("class-guid"); guid != "" {
		return printByClass(sc, guid)
	}
	if viper.GetBool("once") {
		return printOnce(sc, viper.GetBool("mass-storage-only"))
	}

	return serve(sc, logger)
}

func printOnce(sc *scanner, massOnly bool) error {
	devices, err := sc.Scan(context.Background(), massOnly)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VID\tPID\tPRODUCT\tSERIAL\tCLASS\tSPEED\tPORT")
	for _, d := range devices {
		fmt.Fprintf(w, "%04X\t%04X\t%s\t%s\t%s\t%s\t%d\n",
			d.VendorID, d.ProductID, d.Product, d.SerialNumber,
			d.InterfaceClassName, d.Speed, d.Port)
	}
	return w.Flush()
}

func printByClass(sc *scanner, classGUID string) error {
	devices, err := sc.ByClass(classGUID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(devices)
}

func serve(sc *scanner, logger log.Logger) error {
	interval := viper.GetDuration("scan-interval")
	if interval <= 0 {
		interval = defaultScanInterval
	}
	massOnly := viper.GetBool("mass-storage-only")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	scansTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "windevices_scans_total",
		Help: "Topology scans attempted.",
	})
	scanFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "windevices_scan_failures_total",
		Help: "Topology scans that failed outright.",
	})
	connectedDevices := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "windevices_connected_devices",
		Help: "Devices in the latest snapshot.",
	})
	registry.MustRegister(scansTotal, scanFailures, connectedDevices)

	store := server.NewSnapshotStore()
	api := server.New(server.Config{ListenAddr: viper.GetString("listen")}, store, logger)

	mux := http.NewServeMux()
	mux.Handle("/", api.Router)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := api.HTTPServer(mux)

	scan := func(ctx context.Context) {
		scansTotal.Inc()
		devices, err := sc.Scan(ctx, massOnly)
		store.Publish(devices, err)
		if err != nil {
			scanFailures.Inc()
			level.Error(logger).Log("msg", "scan failed", "err", err)
			return
		}
		connectedDevices.Set(float64(len(devices)))
		level.Info(logger).Log("msg", "scan complete", "devices", len(devices))
	}

	var g run.Group
	g.Add(run.SignalHandler(context.Background(), os.Interrupt, syscall.SIGTERM))

	scanCtx, cancelScans := context.WithCancel(context.Background())
	g.Add(func() error {
		scan(scanCtx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				scan(scanCtx)
			case <-scanCtx.Done():
				return scanCtx.Err()
			}
		}
	}, func(error) {
		cancelScans()
	})

	g.Add(func() error {
		level.Info(logger).Log("msg", "listening", "addr", srv.Addr)
		return srv.ListenAndServe()
	}, func(error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	if err := g.Run(); err != nil {
		if _, ok := err.(run.SignalError); ok {
			level.Info(logger).Log("msg", "shutting down", "reason", err)
			return nil
		}
		return err
	}
	return nil
}

func main() {
	if err := Main(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}
