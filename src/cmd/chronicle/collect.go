// FILE: src/cmd/chronicle/collect.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"chronicle/src/internal/collector"
	"chronicle/src/internal/config"
	"chronicle/src/internal/filter"
	"chronicle/src/internal/sink"
	"chronicle/src/internal/stream"
	"chronicle/src/internal/version"
)

// runCollect runs a collector server: records received from forward
// sinks are persisted to a recording file and optionally re-served to
// viewers.
func runCollect(args []string) error {
	cfg, err := config.Load(args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := config.NewDiagLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Shutdown(2 * time.Second)

	logger.Info("msg", "Chronicle collector starting",
		"version", version.String(),
		"port", cfg.Collector.Port,
		"save_path", cfg.Collector.SavePath)

	entityFilter, err := filter.New(cfg.Filter, logger)
	if err != nil {
		return err
	}

	st := stream.New(cfg.ApplicationID, stream.Options{
		BufferSize: int(cfg.Stream.BufferSize),
		RateLimit:  cfg.Stream.RateLimit,
		RateBurst:  int(cfg.Stream.RateBurst),
		Filter:     entityFilter,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sinks []sink.Sink
	if cfg.Collector.SavePath != "" {
		fileSink, err := sink.NewFileSink(cfg.Collector.SavePath, cfg.ApplicationID, cfg.File, logger)
		if err != nil {
			return fmt.Errorf("failed to create file sink: %w", err)
		}
		sinks = append(sinks, fileSink)
	}

	if cfg.SpawnViewer {
		viewerSink, err := sink.NewViewerSink(cfg.ApplicationID, &cfg.Viewer, logger)
		if err != nil {
			return fmt.Errorf("failed to create viewer sink: %w", err)
		}
		sinks = append(sinks, viewerSink)
	}

	if len(sinks) == 0 {
		return fmt.Errorf("collector has no destination: set collector.save_path or spawn_viewer")
	}

	var pumpWg sync.WaitGroup
	for _, s := range sinks {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sink: %w", err)
		}

		sub := st.Subscribe()
		in := s.Input()
		pumpWg.Add(1)
		go func() {
			defer pumpWg.Done()
			for rec := range sub {
				in <- rec
			}
		}()
	}

	coll, err := collector.New(cfg.Collector, st, logger)
	if err != nil {
		return err
	}
	if err := coll.Start(); err != nil {
		return fmt.Errorf("failed to start collector: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...")

	coll.Stop()
	st.Close()
	pumpWg.Wait()
	for _, s := range sinks {
		s.Stop()
	}

	stats := coll.GetStats()
	logger.Info("msg", "Collector shutdown complete",
		"total_records", stats.TotalRecords,
		"invalid_records", stats.InvalidRecords)

	return nil
}
