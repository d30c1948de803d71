package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/avsbatch"
	"github.com/five82/avsbatch/internal/logging"
	"github.com/five82/avsbatch/internal/metrics"
	"github.com/five82/avsbatch/internal/reporter"
	"github.com/five82/avsbatch/internal/util"
)

// runOptions holds the parsed flags of the run command.
type runOptions struct {
	*globalOptions
	job          jobFlags
	workers      int
	keepSegments bool
	json         bool
	watchDir     string
	metricsAddr  string
	logDir       string
	noLog        bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "run [job.yaml ...]",
		Short: "Encode the jobs of job files and -i inputs",
		Long: `Encode jobs one at a time. Each job's scripts are joined, split into
segments encoded in parallel with x264, and merged with mkvmerge.

The first Ctrl+C cancels the running job and moves on to the next one; a
second Ctrl+C cancels every remaining job.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeRun(cmd, args, opts)
		},
	}

	opts.job.register(cmd)
	fs := cmd.Flags()
	fs.IntVar(&opts.workers, "workers", 0, "Parallel encoders per job (0: one per logical CPU)")
	fs.BoolVar(&opts.keepSegments, "keep-segments", false, "Keep segment scripts and encodes after merging")
	fs.BoolVar(&opts.json, "json", false, "Write progress as NDJSON events to stdout")
	fs.StringVar(&opts.watchDir, "watch", "", "Keep running and queue job files created in this directory")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, such as :9090")
	fs.StringVarP(&opts.logDir, "log-dir", "l", "", "Log directory (default: OUTPUT/logs)")
	fs.BoolVar(&opts.noLog, "no-log", false, "Disable log file creation")
	return cmd
}

func executeRun(cmd *cobra.Command, args []string, opts *runOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Parallelism = opts.workers
	}
	if opts.keepSegments {
		cfg.Cleanup = false
	}
	opts.job.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(args) == 0 && len(opts.job.inputs) == 0 && opts.watchDir == "" {
		return fmt.Errorf("nothing to encode: pass job files, -i inputs or --watch DIR")
	}

	logDir := opts.logDir
	if logDir == "" {
		logDir = cfg.LogDir
	}
	if logDir == "" {
		logDir = filepath.Join(baseDir(args, &opts.job, opts.watchDir), "logs")
	}
	runLog, err := logging.Setup(logDir, opts.verbose, opts.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = runLog.Close() }()

	specs, err := collectSpecs(args, &opts.job, runLog)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if err := util.EnsureDirectoryWritable(spec.OutputDir); err != nil {
			return fmt.Errorf("job %s: %w", spec.Name, err)
		}
	}

	var rep reporter.Reporter
	if opts.json {
		rep = reporter.NewJSONReporter()
	} else {
		rep = reporter.NewTerminalReporter(opts.verbose)
	}
	info := util.GetSystemInfo()
	rep.Hardware(reporter.HardwareSummary{Hostname: info.Hostname, LogicalCores: info.NumCPU})

	runLog.Info("Encoder: %s, merger: %s", cfg.Encoder, cfg.Merger)
	runLog.Info("Parallelism: %d, SAR: %s, preset: %s, cleanup: %v",
		cfg.Parallelism, cfg.SAR, cfg.ActivePreset, cfg.Cleanup)

	enc, err := avsbatch.New(
		avsbatch.WithConfig(cfg),
		avsbatch.WithReporter(rep),
		avsbatch.WithRunLogger(runLog),
	)
	if err != nil {
		return err
	}
	defer enc.Close()

	for _, spec := range specs {
		if _, err := enc.AddJob(spec); err != nil {
			return fmt.Errorf("job %s: %w", spec.Name, err)
		}
	}

	if opts.metricsAddr != "" {
		srv := startMetricsServer(opts.metricsAddr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	stopSignals := handleInterrupts(enc, rep, stop)
	defer stopSignals()

	if opts.watchDir != "" {
		if err := enc.Start(); err != nil {
			return err
		}
		if err := enc.Watch(ctx, opts.watchDir); err != nil {
			return err
		}
		if err := enc.CancelAll(); err != nil {
			return err
		}
		return enc.Wait(context.Background())
	}

	result, err := enc.Encode(ctx)
	if err != nil {
		return err
	}
	if result.FailedCount > 0 {
		return fmt.Errorf("%d of %d job(s) failed", result.FailedCount, result.TotalJobs)
	}
	return nil
}

// handleInterrupts cancels the running job on the first SIGINT or SIGTERM
// and every job on the second, which also calls stop. The returned function
// stops signal handling.
func handleInterrupts(enc *avsbatch.Encoder, rep reporter.Reporter, stop context.CancelFunc) func() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		interrupts := 0
		for {
			select {
			case <-done:
				return
			case <-sigCh:
				interrupts++
				if interrupts == 1 {
					rep.Warning("Interrupted: cancelling the current job. Press Ctrl+C again to cancel all jobs.")
					_ = enc.Cancel()
					continue
				}
				rep.Warning("Interrupted again: cancelling all jobs.")
				_ = enc.CancelAll()
				stop()
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logging.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	return srv
}
