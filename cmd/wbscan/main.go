// Command wbscan scans a wideband frequency range with an SDR and
// accumulates a running power spectrum, optionally publishing it over
// HTTP. Entry point shape (slog.LevelVar, flag parsing, signal wiring)
// follows cmd/sweeper/main.go.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/wbscan/wbscan/internal/accumulator"
	"github.com/wbscan/wbscan/internal/config"
	"github.com/wbscan/wbscan/internal/dsp"
	"github.com/wbscan/wbscan/internal/plan"
	"github.com/wbscan/wbscan/internal/publisher"
	"github.com/wbscan/wbscan/internal/radio"
	"github.com/wbscan/wbscan/internal/scan"
	"github.com/wbscan/wbscan/internal/store"
	"github.com/wbscan/wbscan/internal/tuner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}))

	cfg, err := config.Parse(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.Error(err.Error())
		return 1
	}
	if cfg.Verbose {
		logLevel.Set(slog.LevelDebug)
	}

	if cfg.ListDevices {
		compiled := map[string]bool{}
		for _, d := range radio.EnumerateAll(drivers) {
			fmt.Printf("%s\t%s %s %s\n", d.Name, d.Manufacturer, d.Product, d.Serial)
			compiled[d.Name] = true
		}
		for _, d := range cfg.Catalog.Devices {
			if compiled[d.Name] {
				continue
			}
			fmt.Printf("%s\t(%s backend not compiled in this build)\tsample rates: %v\n", d.Name, d.Driver, d.SampleRates)
		}
		return 0
	}

	dev, err := radio.Open(drivers, cfg.DeviceName)
	if err != nil {
		if entry, ok := cfg.Catalog.Find(cfg.DeviceName); ok {
			logger.Error("opening device", "error", err, "device", cfg.DeviceName,
				"hint", fmt.Sprintf("catalog lists %q under the %q backend; is it compiled into this build?", entry.Name, entry.Driver))
			return 1
		}
		logger.Error("opening device", "error", err, "device", cfg.DeviceName)
		return 1
	}
	defer dev.Close()

	info := dev.Info()
	caps := plan.DeviceCapabilities{SampleRates: info.SampleRates}

	p, err := plan.Compute(cfg.Plan, caps)
	if err != nil {
		logger.Error("planning scan", "error", err)
		return 1
	}
	logger.Info("scan plan", "plan", p.String(), "span", humanize.SI(float64(p.EndFrequency-p.StartFrequency), "Hz"))

	if err := dev.SetGain(cfg.Channel, cfg.GainDB); err != nil {
		logger.Error("setting gain", "error", err)
		return 1
	}
	if err := dev.SetSampleRate(cfg.Channel, p.SampleRate); err != nil {
		logger.Error("setting sample rate", "error", err)
		return 1
	}
	if err := dev.SetupRXStream(cfg.Channel, radio.CS16); err != nil {
		logger.Error("setting up RX stream", "error", err)
		return 1
	}
	if err := dev.Activate(cfg.Channel); err != nil {
		logger.Error("activating device", "error", err)
		return 1
	}
	defer dev.Deactivate(cfg.Channel)

	acc := accumulator.New(p.StartFrequency, p.FrequencyResolution, p.TuningBandwidth, p.PowerBuckets)
	pipeline := dsp.New(p.FFTSize, p.FrequencyResolution, acc)
	tu := tuner.New(dev, cfg.Channel, nil)
	signals := scan.NewSignalHandler(logger)
	defer signals.Stop()

	var snapshotStore *store.Store
	if cfg.StorePath != "" {
		snapshotStore, err = store.Open(context.Background(), cfg.StorePath, cfg.DeviceName, "")
		if err != nil {
			logger.Error("opening snapshot store", "error", err)
			return 1
		}
		defer snapshotStore.Close()
	}

	if cfg.WebPort != 0 {
		srv := publisher.New(publisher.Options{
			Addr:      fmt.Sprintf("localhost:%d", cfg.WebPort),
			PublicDir: cfg.PublicDir,
			Theme:     cfg.Theme,
			Store:     snapshotStore,
		}, acc, logger)
		srv.Start()
		defer func() {
			_ = srv.Stop(context.Background())
		}()
	}

	loop := scan.New(p, dev, cfg.Channel, tu, pipeline, signals, logger, cfg.SweepCount, nil)

	result, err := loop.Run(context.Background())
	if err != nil {
		logger.Error("scan loop", "error", err)
		return 1
	}

	if snapshotStore != nil {
		view := publisher.BuildSnapshotView(acc.Snapshot(), time.Now())
		if err := snapshotStore.Append(context.Background(), store.SnapshotRecord{
			TakenAt:             view.TakenAt,
			StartFrequency:      view.StartFrequency,
			FrequencyResolution: view.FrequencyResolution,
			AccumulationCount:   view.AccumulationCount,
			PowerDB:             view.PowerDB,
		}); err != nil {
			logger.Warn("persisting final snapshot", "error", err)
		}
	}

	logger.Info("scan complete", "repetitions", result.Repetitions, "aborted", result.Aborted)
	return 0
}
