// Package resolver matches parsed decklist lines against the Scryfall API.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmcavoy/deckguide/internal/decklist"
	"github.com/jmcavoy/deckguide/internal/metrics"
	"github.com/jmcavoy/deckguide/internal/scryfall"
)

// lookupDelay paces successful fetches per Scryfall's rate-limit guidance.
// Failed lookups are not paced; only completed fetches throttle the loop.
const lookupDelay = 100 * time.Millisecond

// CardLookup is the subset of the Scryfall client the resolver needs.
// Tests substitute a counting fake.
type CardLookup interface {
	GetCardByName(ctx context.Context, name string) (*scryfall.Card, error)
	SearchCards(ctx context.Context, query string) (*scryfall.SearchResult, error)
}

// ResolvedCard is the external card record merged with the originating
// line's quantity and display identity.
type ResolvedCard struct {
	scryfall.Card

	Quantity        int    `json:"quantity"`
	DisplayIdentity string `json:"display_identity"`
}

// Failure records one line that could not be resolved.
type Failure struct {
	Line   decklist.Line
	Reason string
}

// ResolutionError aggregates every failed line in a batch. Resolution is
// atomic: a single failed line fails the whole batch, but only after every
// line has been attempted.
type ResolutionError struct {
	Failures []Failure
}

func (e *ResolutionError) Error() string {
	reasons := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		reasons[i] = f.Reason
	}
	return strings.Join(reasons, "\n")
}

// ProgressEvent reports the outcome of one line during resolution.
type ProgressEvent struct {
	Index    int    `json:"index"`
	Total    int    `json:"total"`
	CardName string `json:"card_name"`
	Resolved bool   `json:"resolved"`
	Reason   string `json:"reason,omitempty"`
}

// Resolver resolves decklist lines one at a time, in order.
type Resolver struct {
	lookup  CardLookup
	metrics *metrics.Pipeline
	delay   time.Duration

	// OnProgress, when set, is invoked after each line is attempted.
	OnProgress func(ProgressEvent)
}

// New creates a resolver backed by the given card lookup.
func New(lookup CardLookup, m *metrics.Pipeline) *Resolver {
	return &Resolver{
		lookup:  lookup,
		metrics: m,
		delay:   lookupDelay,
	}
}

// Resolve resolves every line against the card database. Each line gets an
// exact-name lookup first; on failure, a full-text search where the first
// match wins. All lines are attempted before any error is returned: if any
// line failed, the result is a *ResolutionError covering the whole batch
// and no cards are returned.
func (r *Resolver) Resolve(ctx context.Context, lines []decklist.Line) ([]ResolvedCard, error) {
	resolved := make([]ResolvedCard, 0, len(lines))
	var failures []Failure

	for i, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resolution cancelled: %w", err)
		}

		start := time.Now()
		card, reason := r.resolveLine(ctx, line.Name)
		r.metrics.ObserveLookup(time.Since(start), card != nil)

		if card == nil {
			failures = append(failures, Failure{Line: line, Reason: reason})
			r.emitProgress(i, len(lines), line.Name, false, reason)
			continue
		}

		resolved = append(resolved, ResolvedCard{
			Card:            *card,
			Quantity:        line.Quantity,
			DisplayIdentity: line.Identity,
		})
		r.emitProgress(i, len(lines), line.Name, true, "")

		// Pace only after a successful fetch.
		if i < len(lines)-1 {
			if err := sleepCtx(ctx, r.delay); err != nil {
				return nil, fmt.Errorf("resolution cancelled: %w", err)
			}
		}
	}

	if len(failures) > 0 {
		return nil, &ResolutionError{Failures: failures}
	}

	return resolved, nil
}

// resolveLine runs the exact-then-search chain for one name. It returns the
// resolved card, or a nil card with a human-readable failure reason.
func (r *Resolver) resolveLine(ctx context.Context, name string) (*scryfall.Card, string) {
	card, err := r.lookup.GetCardByName(ctx, name)
	if err == nil {
		return card, ""
	}

	result, err := r.lookup.SearchCards(ctx, name)
	if err != nil {
		var apiErr *scryfall.APIError
		if errors.As(err, &apiErr) && apiErr.Details != "" {
			return nil, apiErr.Details
		}
		return nil, fmt.Sprintf("API error for %s", name)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Sprintf("no cards found matching %s after general search", name)
	}

	// First match wins; no ranking or disambiguation.
	return &result.Data[0], ""
}

func (r *Resolver) emitProgress(index, total int, name string, ok bool, reason string) {
	if r.OnProgress == nil {
		return
	}
	r.OnProgress(ProgressEvent{
		Index:    index,
		Total:    total,
		CardName: name,
		Resolved: ok,
		Reason:   reason,
	})
}

// sleepCtx sleeps for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
