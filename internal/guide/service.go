// Package guide orchestrates the decklist-to-strategy-guide pipeline.
package guide

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jmcavoy/deckguide/internal/decklist"
	"github.com/jmcavoy/deckguide/internal/metrics"
	"github.com/jmcavoy/deckguide/internal/resolver"
	"github.com/jmcavoy/deckguide/internal/storage"
)

// ErrNoValidLines is returned when parsing finds no card-shaped lines.
var ErrNoValidLines = errors.New("no valid decklist lines found")

// ErrGenerationInFlight is returned when a generation is already running.
// Overlapping invocations are rejected, not queued.
var ErrGenerationInFlight = errors.New("a guide generation is already in progress")

// Status describes where the pipeline currently is.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusParsing    Status = "parsing"
	StatusResolving  Status = "resolving"
	StatusGenerating Status = "generating"
)

// CardResolver resolves parsed lines into card records.
type CardResolver interface {
	Resolve(ctx context.Context, lines []decklist.Line) ([]resolver.ResolvedCard, error)
}

// Generator produces guide text from a prompt.
type Generator interface {
	GenerateGuide(ctx context.Context, prompt string) (string, error)
	Model() string
}

// History persists generated guides. Optional.
type History interface {
	SaveGuide(ctx context.Context, rec *storage.GuideRecord) (int64, error)
}

// Result is the outcome of one successful generation.
type Result struct {
	GuideID int64                   `json:"guide_id,omitempty"`
	Guide   string                  `json:"guide"`
	Cards   []resolver.ResolvedCard `json:"cards"`
}

// Service runs the full pipeline: parse, resolve, build prompt, generate,
// and optionally persist. Only one generation runs at a time.
type Service struct {
	resolver  CardResolver
	generator Generator
	history   History
	metrics   *metrics.Pipeline
	logger    *slog.Logger

	busy   atomic.Bool
	status atomic.Value // Status
}

// NewService wires the pipeline together. history may be nil to disable
// persistence; metrics may be nil to disable instrumentation.
func NewService(r CardResolver, g Generator, h History, m *metrics.Pipeline, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		resolver:  r,
		generator: g,
		history:   h,
		metrics:   m,
		logger:    logger,
	}
	s.status.Store(StatusIdle)
	return s
}

// Status returns the current pipeline status.
func (s *Service) Status() Status {
	return s.status.Load().(Status)
}

// Generate runs the pipeline for one decklist. Errors are terminal for the
// invocation: no partial guide is ever produced, and a resolution failure
// aborts before any generation call is made.
func (s *Service) Generate(ctx context.Context, decklistText string) (*Result, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrGenerationInFlight
	}
	defer func() {
		s.busy.Store(false)
		s.status.Store(StatusIdle)
	}()

	s.status.Store(StatusParsing)
	lines := decklist.Parse(decklistText)
	s.metrics.AddLinesParsed(len(lines))
	if len(lines) == 0 {
		return nil, ErrNoValidLines
	}
	s.logger.Debug("parsed decklist", "lines", len(lines))

	s.status.Store(StatusResolving)
	cards, err := s.resolver.Resolve(ctx, lines)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("resolved decklist", "cards", len(cards))

	prompt, err := BuildPrompt(cards)
	if err != nil {
		return nil, err
	}

	s.status.Store(StatusGenerating)
	start := time.Now()
	guideText, err := s.generator.GenerateGuide(ctx, prompt)
	s.metrics.ObserveGeneration(time.Since(start), err == nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info("guide generated",
		"cards", len(cards),
		"elapsed", time.Since(start).Round(time.Millisecond))

	result := &Result{Guide: guideText, Cards: cards}

	if s.history != nil {
		id, err := s.saveToHistory(ctx, decklistText, guideText, cards)
		if err != nil {
			// The guide itself succeeded; losing the history row is not
			// worth failing the request over.
			s.logger.Warn("failed to persist guide", "error", err)
		} else {
			result.GuideID = id
		}
	}

	return result, nil
}

// saveToHistory writes the finished guide and its card list to storage.
func (s *Service) saveToHistory(ctx context.Context, decklistText, guideText string, cards []resolver.ResolvedCard) (int64, error) {
	cardsJSON, err := json.Marshal(cards)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize cards: %w", err)
	}

	return s.history.SaveGuide(ctx, &storage.GuideRecord{
		Decklist:  decklistText,
		Guide:     guideText,
		Model:     s.generator.Model(),
		CardCount: len(cards),
		CardsJSON: string(cardsJSON),
	})
}
