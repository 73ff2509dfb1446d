// Command deckguide-server runs the REST API for decklist guide generation,
// with websocket progress events for connected UIs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmcavoy/deckguide/internal/api"
	"github.com/jmcavoy/deckguide/internal/config"
	"github.com/jmcavoy/deckguide/internal/gemini"
	"github.com/jmcavoy/deckguide/internal/guide"
	"github.com/jmcavoy/deckguide/internal/metrics"
	"github.com/jmcavoy/deckguide/internal/resolver"
	"github.com/jmcavoy/deckguide/internal/scryfall"
	"github.com/jmcavoy/deckguide/internal/storage"
)

var (
	configPath = flag.String("config", "", "Config file path (default: ~/.deckguide/config.toml)")
	port       = flag.Int("port", 0, "API server port (overrides config)")
	dbPath     = flag.String("db-path", "", "Guide history database path (overrides config)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := *configPath
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
		cfg.Storage.Enabled = true
	}

	logLevel := slog.LevelInfo
	if cfg.App.DebugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	inferenceTimeout, err := time.ParseDuration(cfg.Gemini.InferenceTimeout)
	if err != nil {
		return fmt.Errorf("invalid inference timeout: %w", err)
	}

	pipelineMetrics := metrics.NewPipeline()

	cardClient := scryfall.NewClientWithBaseURL(cfg.Scryfall.BaseURL)
	cardResolver := resolver.New(cardClient, pipelineMetrics)

	generator := gemini.NewClient(&gemini.Config{
		BaseURL:          cfg.Gemini.BaseURL,
		Model:            cfg.Gemini.Model,
		APIKey:           cfg.Gemini.APIKey,
		InferenceTimeout: inferenceTimeout,
	})

	var db *storage.DB
	var history guide.History
	var historyReader *storage.DB
	if cfg.Storage.Enabled {
		path := cfg.Storage.Path
		if path == "" {
			path, err = config.DefaultDBPath()
			if err != nil {
				return err
			}
		}

		dbConfig := storage.DefaultConfig(path)
		dbConfig.AutoMigrate = true
		db, err = storage.Open(dbConfig)
		if err != nil {
			return fmt.Errorf("failed to open guide history: %w", err)
		}
		defer func() { _ = db.Close() }()
		history = db
		historyReader = db

		logger.Info("guide history enabled", "path", path)
	}

	svc := guide.NewService(cardResolver, generator, history, pipelineMetrics, logger)

	serverCfg := &api.Config{Port: cfg.Server.Port}
	var server *api.Server
	if historyReader != nil {
		server = api.NewServer(serverCfg, svc, historyReader, pipelineMetrics, logger)
	} else {
		server = api.NewServer(serverCfg, svc, nil, pipelineMetrics, logger)
	}

	// Stream per-card resolution progress to connected websocket clients.
	cardResolver.OnProgress = func(e resolver.ProgressEvent) {
		server.Hub().BroadcastEvent("resolution_progress", e)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}
