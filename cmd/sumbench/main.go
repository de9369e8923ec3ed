// Package main provides the sumbench CLI: it sums one workload with every
// host and device strategy, verifies each trial and reports throughput.
//
// Usage:
//
//	go run ./cmd/sumbench -n 100000000 -iters 10 -device auto
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/born-ml/sumbench/internal/bench"
	"github.com/born-ml/sumbench/internal/config"
	"github.com/born-ml/sumbench/internal/device"
	_ "github.com/born-ml/sumbench/internal/device/emu"
	_ "github.com/born-ml/sumbench/internal/device/webgpu"
	"github.com/born-ml/sumbench/internal/reduce"
	"github.com/born-ml/sumbench/internal/report"
	"github.com/born-ml/sumbench/internal/workload"
)

const version = "v0.1.0"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.DefaultConfig()
	fs := flag.NewFlagSet("sumbench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.RegisterFlags(fs)
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	switch {
	case *showVersion:
		fmt.Fprintf(stdout, "sumbench %s\n", version)
		return exitOK
	case cfg.ListDevices:
		listDevices(stdout)
		return exitOK
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	if err := benchmark(ctx, cfg, logger, stdout); err != nil {
		report.Failure(stderr, err)
		logger.Error("benchmark aborted", "err", err)
		return exitFailure
	}
	return exitOK
}

func benchmark(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout io.Writer) error {
	w, err := workload.Generate(cfg.N, cfg.Seed)
	if err != nil {
		return err
	}
	logger.Debug("workload generated", "n", w.Len(), "seed", w.Seed(), "bound", workload.Bound(w.Len()))

	sel, err := reduce.Select(cfg.Strategies)
	if err != nil {
		return err
	}

	var dev device.Device
	if sel.NeedsDevice() {
		dev, err = device.Choose(cfg.Device, device.Requirements{GroupSize: cfg.GroupSize, N: cfg.N})
		if err != nil {
			return err
		}
		defer dev.Release()
		logger.Debug("device activated", "device", dev.Name())
	}

	cands, err := reduce.Plan(sel, w, dev, reduce.Settings{
		GroupSize: cfg.GroupSize,
		Parallel:  cfg.ParallelConfig(),
	})
	if err != nil {
		return err
	}

	rep := report.New(stdout)
	deviceName := ""
	if dev != nil {
		deviceName = dev.Name()
	}
	rep.Header(w, cfg.Iterations, deviceName)

	results, err := bench.RunAll(ctx, cands, w, bench.Options{
		Iterations: cfg.Iterations,
		Warmup:     cfg.Warmup,
		Logger:     logger,
	}, rep.Result)
	if err != nil {
		return err
	}

	if cfg.Summary {
		rep.Summary(results)
	}
	return nil
}

func listDevices(stdout io.Writer) {
	for _, name := range device.Backends() {
		dev, err := device.Open(name)
		if err != nil {
			fmt.Fprintf(stdout, "%-8s unavailable: %v\n", name, err)
			continue
		}
		fmt.Fprintf(stdout, "%-8s %s\n", name, dev.Name())
		dev.Release()
	}
}
