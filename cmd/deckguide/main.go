// Command deckguide generates a strategy guide for a decklist from the
// command line. The decklist is read from a file or stdin, one card per
// line in "<quantity> <name>" format.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmcavoy/deckguide/internal/config"
	"github.com/jmcavoy/deckguide/internal/gemini"
	"github.com/jmcavoy/deckguide/internal/guide"
	"github.com/jmcavoy/deckguide/internal/resolver"
	"github.com/jmcavoy/deckguide/internal/scryfall"
	"github.com/jmcavoy/deckguide/internal/storage"
)

var (
	configPath = flag.String("config", "", "Config file path (default: ~/.deckguide/config.toml)")
	inputPath  = flag.String("f", "", "Decklist file (default: read from stdin)")
	outputPath = flag.String("o", "", "Write the guide to a file instead of stdout")
	verbose    = flag.Bool("verbose", false, "Print per-card resolution progress")
	noHistory  = flag.Bool("no-history", false, "Skip saving the guide to history")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelWarn
	if cfg.App.DebugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	decklistText, err := readDecklist()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := buildService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := svc.Generate(ctx, decklistText)
	if err != nil {
		return err
	}

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, []byte(result.Guide), 0o644); err != nil {
			return fmt.Errorf("failed to write guide: %w", err)
		}
		fmt.Printf("Guide written to %s (%d cards)\n", *outputPath, len(result.Cards))
		return nil
	}

	fmt.Println(result.Guide)
	return nil
}

func loadConfig() (*config.Config, error) {
	path := *configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	return config.Load(path)
}

func readDecklist() (string, error) {
	if *inputPath != "" {
		data, err := os.ReadFile(*inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to read decklist: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read decklist from stdin: %w", err)
	}
	return string(data), nil
}

// buildService wires the pipeline from configuration. The returned cleanup
// closes the history database if one was opened.
func buildService(cfg *config.Config, logger *slog.Logger) (*guide.Service, func(), error) {
	cardClient := scryfall.NewClientWithBaseURL(cfg.Scryfall.BaseURL)
	cardResolver := resolver.New(cardClient, nil)

	if *verbose {
		cardResolver.OnProgress = func(e resolver.ProgressEvent) {
			if e.Resolved {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", e.Index+1, e.Total, e.CardName)
			} else {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s FAILED: %s\n", e.Index+1, e.Total, e.CardName, e.Reason)
			}
		}
	}

	inferenceTimeout, err := time.ParseDuration(cfg.Gemini.InferenceTimeout)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid inference timeout: %w", err)
	}

	generator := gemini.NewClient(&gemini.Config{
		BaseURL:          cfg.Gemini.BaseURL,
		Model:            cfg.Gemini.Model,
		APIKey:           cfg.Gemini.APIKey,
		InferenceTimeout: inferenceTimeout,
	})

	cleanup := func() {}
	var history guide.History
	if cfg.Storage.Enabled && !*noHistory {
		dbPath := cfg.Storage.Path
		if dbPath == "" {
			dbPath, err = config.DefaultDBPath()
			if err != nil {
				return nil, nil, err
			}
		}

		dbConfig := storage.DefaultConfig(dbPath)
		dbConfig.AutoMigrate = true
		db, err := storage.Open(dbConfig)
		if err != nil {
			// History is a convenience; a broken local database should not
			// block guide generation.
			logger.Warn("guide history unavailable", "error", err)
		} else {
			history = db
			cleanup = func() { _ = db.Close() }
		}
	}

	return guide.NewService(cardResolver, generator, history, nil, logger), cleanup, nil
}
