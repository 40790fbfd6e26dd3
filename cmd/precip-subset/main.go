package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/i474232898/precip-subset/internal/acquire"
	httpapi "github.com/i474232898/precip-subset/internal/api/http"
	"github.com/i474232898/precip-subset/internal/config"
	"github.com/i474232898/precip-subset/internal/ncout"
	"github.com/i474232898/precip-subset/internal/pipeline"
	"github.com/i474232898/precip-subset/internal/scheduler"
	"github.com/i474232898/precip-subset/internal/store"
)

func main() {
	serve := flag.Bool("serve", false, "run on a schedule and expose the HTTP API instead of running once")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// In-memory run history with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	opts := pipeline.Options{
		Box:        cfg.Box,
		InputDir:   cfg.DownloadDir,
		OutputPath: cfg.OutputPath(),
		Format:     ncout.Format(cfg.OutputFormat),
		Source:     cfg.ListingURL,
	}
	if cfg.AcquireEnabled {
		// Shared HTTP client for archive downloads.
		httpClient := &http.Client{
			Timeout: cfg.HTTPTimeout,
		}
		opts.Acquirer = acquire.NewFetcher(httpClient, acquire.Config{
			ListingURL: cfg.ListingURL,
			Dir:        cfg.DownloadDir,
			UserAgent:  cfg.UserAgent,
			Suffixes:   cfg.FileSuffixes,
		})
	}

	service := pipeline.NewService(memStore, opts)

	if !*serve {
		if err := runOnce(service); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	// Scheduler that periodically rebuilds the combined file.
	sched := scheduler.New(cfg.ScheduleInterval, cfg.RunTimeout, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, cfg.RunTimeout)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("ERROR: fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}

func runOnce(service *pipeline.Service) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := service.Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("INFO: combined %d files into %s, shape %v", len(report.InputFiles), report.OutputPath, report.Shape)
	return nil
}
