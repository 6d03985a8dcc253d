// Chronovox is a historical scene daemon that researches a place and date,
// scripts a two-character dialogue in the period language, and voices it
// with multi-speaker speech synthesis.
//
// Usage:
//
//	chronovox [flags]
//	chronovox --config /path/to/chronovox.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/avendel/chronovox/docs" // generated swagger docs
	"github.com/avendel/chronovox/internal/avatar"
	"github.com/avendel/chronovox/internal/config"
	"github.com/avendel/chronovox/internal/genai"
	"github.com/avendel/chronovox/internal/genai/local"
	"github.com/avendel/chronovox/internal/health"
	"github.com/avendel/chronovox/internal/journal"
	"github.com/avendel/chronovox/internal/research"
	"github.com/avendel/chronovox/internal/retry"
	"github.com/avendel/chronovox/internal/server"
	"github.com/avendel/chronovox/internal/session"
	"github.com/avendel/chronovox/internal/speech"
)

// version is set at build time via ldflags.
var version = "dev"

// backend is the full set of model capabilities the pipeline needs.
type backend interface {
	research.Backend
	speech.Synthesizer
	avatar.Painter
}

// @title        Chronovox API
// @version      1.0
// @description  Researches a place and date, writes a period dialogue between two characters, and synthesizes multi-speaker audio and portraits for it.
// @BasePath     /api
func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/chronovox.local.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chronovox %s\n", version)
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("chronovox starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the generative backend.
	var models backend
	if cfg.GenAI.APIKey == "" {
		models = local.New()
		slog.Warn("no API key configured, serving canned scenes from the local backend")
	} else {
		opts := []genai.Option{genai.WithModels(genai.Models{
			Research: cfg.GenAI.ResearchModel,
			Speech:   cfg.GenAI.SpeechModel,
			Image:    cfg.GenAI.ImageModel,
		})}
		if cfg.GenAI.BaseURL != "" {
			opts = append(opts, genai.WithBaseURL(cfg.GenAI.BaseURL))
		}
		if cfg.GenAI.RequestsPerMinute > 0 {
			opts = append(opts, genai.WithRequestsPerMinute(cfg.GenAI.RequestsPerMinute))
		}
		models = genai.New(cfg.GenAI.APIKey, opts...)
		slog.Info("using generative language backend",
			"research_model", cfg.GenAI.ResearchModel,
			"speech_model", cfg.GenAI.SpeechModel,
			"image_model", cfg.GenAI.ImageModel)
	}

	// Open the submission journal.
	var recorder session.Recorder
	var history server.History
	if cfg.Journal.Enabled {
		j, err := journal.Open(ctx, cfg.Journal.Path, cfg.Journal.MaxEntries)
		if err != nil {
			slog.Warn("journal unavailable, continuing without history",
				"path", cfg.Journal.Path, "error", err)
		} else {
			defer j.Close()
			recorder, history = j, j
		}
	}

	// Assemble the pipeline.
	policy := retry.Policy{
		MaxRetries:   cfg.Retry.MaxRetries,
		InitialDelay: time.Duration(cfg.Retry.DelayMS) * time.Millisecond,
	}
	avatarPolicy := retry.Policy{
		MaxRetries:   cfg.Retry.AvatarRetries,
		InitialDelay: time.Duration(cfg.Retry.DelayMS) * time.Millisecond,
	}
	coordinator := session.New(
		research.New(models, policy),
		speech.New(models, policy),
		avatar.New(models, avatarPolicy),
		recorder,
	)

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, cfg.Server.GRPCHealthPort)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start the API server.
	apiServer := server.New(cfg.Server.Port, coordinator, history)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.Listen(ctx); err != nil {
			slog.Error("api server failed", "error", err)
		}
	}()

	// Mark as ready once the servers are started.
	healthServer.SetReady(true)
	slog.Info("chronovox ready",
		"port", cfg.Server.Port,
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	wg.Wait()
	slog.Info("chronovox stopped")
}
