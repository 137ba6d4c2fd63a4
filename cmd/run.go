package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/encodeous/ara/core"
	_ "github.com/encodeous/ara/perf"
	"github.com/encodeous/ara/sim"
	"github.com/encodeous/ara/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	showTrace = false
	seed      = uint64(0)
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long:  `Builds the mesh described by the config, plays its traffic and prints what every node saw.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := state.ReadSimConfig(configPath)
		if err != nil {
			return err
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		if logPath == "" {
			logPath = cfg.LogPath
		}
		logger, closer, err := state.NewLogger("ara ", level, logPath)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		if metricsAddr != "" {
			srv := serveMetrics(metricsAddr, reg, logger)
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = srv.Shutdown(sctx)
			}()
		}

		opts := sim.Options{
			Logger:   logger,
			Registry: reg,
			Seed:     seed,
		}
		if showTrace {
			opts.Trace = core.NewTrace()
			events := make(chan any, 1024)
			opts.Trace.Register(events)
			defer func() {
				opts.Trace.Unregister(events)
				_ = opts.Trace.Close()
			}()
			go printTrace(cmd, events)
		}

		network, err := sim.NewNetwork(cfg, opts)
		if err != nil {
			return err
		}
		report, err := network.Simulate(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		if report != nil {
			fmt.Fprint(cmd.OutOrStdout(), report.String())
		}
		return nil
	},
	GroupID: "sim",
}

func printTrace(cmd *cobra.Command, events <-chan any) {
	for e := range events {
		ev, ok := e.(core.TraceEvent)
		if !ok {
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s %s %v\n", ev.Node, ev.Event, ev.Desc, ev.Args)
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	// expvar and the perf counters live on the default mux
	mux.Handle("/debug/", http.DefaultServeMux)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVarP(&showTrace, "trace", "t", false, "print every router event")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "seed for link loss and jitter")
	runCmd.Flags().StringVarP(&metricsAddr, "metrics", "m", "", "serve prometheus metrics and expvar on this address")
}
