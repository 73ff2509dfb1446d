package guide

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmcavoy/deckguide/internal/decklist"
	"github.com/jmcavoy/deckguide/internal/resolver"
	"github.com/jmcavoy/deckguide/internal/scryfall"
	"github.com/jmcavoy/deckguide/internal/storage"
)

type fakeResolver struct {
	resolve func(lines []decklist.Line) ([]resolver.ResolvedCard, error)
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, lines []decklist.Line) ([]resolver.ResolvedCard, error) {
	f.calls++
	return f.resolve(lines)
}

type fakeGenerator struct {
	generate func(prompt string) (string, error)
	prompts  []string
	block    chan struct{}
}

func (f *fakeGenerator) GenerateGuide(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block != nil {
		<-f.block
	}
	if f.generate == nil {
		return "a guide", nil
	}
	return f.generate(prompt)
}

func (f *fakeGenerator) Model() string { return "test-model" }

type fakeHistory struct {
	saved []*storage.GuideRecord
	err   error
}

func (f *fakeHistory) SaveGuide(_ context.Context, rec *storage.GuideRecord) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, rec)
	return int64(len(f.saved)), nil
}

func passthroughResolver() *fakeResolver {
	return &fakeResolver{
		resolve: func(lines []decklist.Line) ([]resolver.ResolvedCard, error) {
			cards := make([]resolver.ResolvedCard, len(lines))
			for i, line := range lines {
				cards[i] = resolver.ResolvedCard{
					Card:            scryfall.Card{Name: line.Name, TypeLine: "Instant"},
					Quantity:        line.Quantity,
					DisplayIdentity: line.Identity,
				}
			}
			return cards, nil
		},
	}
}

func TestGenerate_FullPipeline(t *testing.T) {
	r := passthroughResolver()
	g := &fakeGenerator{generate: func(string) (string, error) { return "## Archetype\nBurn.", nil }}
	h := &fakeHistory{}

	svc := NewService(r, g, h, nil, nil)

	result, err := svc.Generate(context.Background(), "4 Lightning Bolt\n18 Mountain")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Guide != "## Archetype\nBurn." {
		t.Errorf("Guide = %q", result.Guide)
	}
	if len(result.Cards) != 2 {
		t.Errorf("len(Cards) = %d, want 2", len(result.Cards))
	}
	if result.GuideID != 1 {
		t.Errorf("GuideID = %d, want 1", result.GuideID)
	}

	if len(g.prompts) != 1 {
		t.Fatalf("Generator called %d times, want 1", len(g.prompts))
	}
	if !strings.Contains(g.prompts[0], "4 Lightning Bolt") {
		t.Errorf("Prompt missing card line:\n%s", g.prompts[0])
	}

	if len(h.saved) != 1 {
		t.Fatalf("History has %d records, want 1", len(h.saved))
	}
	if h.saved[0].Model != "test-model" {
		t.Errorf("Saved model = %q", h.saved[0].Model)
	}
	if h.saved[0].CardCount != 2 {
		t.Errorf("Saved card count = %d, want 2", h.saved[0].CardCount)
	}
}

func TestGenerate_NoValidLines(t *testing.T) {
	svc := NewService(passthroughResolver(), &fakeGenerator{}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "Creatures\nLands")
	if !errors.Is(err, ErrNoValidLines) {
		t.Fatalf("Expected ErrNoValidLines, got %v", err)
	}
}

func TestGenerate_ResolutionFailureAbortsBeforeGeneration(t *testing.T) {
	resErr := &resolver.ResolutionError{Failures: []resolver.Failure{
		{Reason: "no cards found matching Lighming Bolt after general search"},
	}}
	r := &fakeResolver{
		resolve: func([]decklist.Line) ([]resolver.ResolvedCard, error) {
			return nil, resErr
		},
	}
	g := &fakeGenerator{}

	svc := NewService(r, g, nil, nil, nil)

	_, err := svc.Generate(context.Background(), "4 Lighming Bolt")
	var gotErr *resolver.ResolutionError
	if !errors.As(err, &gotErr) {
		t.Fatalf("Expected *ResolutionError, got %v", err)
	}

	if len(g.prompts) != 0 {
		t.Errorf("Generator called %d times, want 0 after resolution failure", len(g.prompts))
	}
}

func TestGenerate_GenerationFailurePropagates(t *testing.T) {
	g := &fakeGenerator{
		generate: func(string) (string, error) {
			return "", errors.New("upstream down")
		},
	}
	h := &fakeHistory{}

	svc := NewService(passthroughResolver(), g, h, nil, nil)

	_, err := svc.Generate(context.Background(), "1 Island")
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if len(h.saved) != 0 {
		t.Errorf("History has %d records, want 0 after generation failure", len(h.saved))
	}
}

func TestGenerate_RejectsOverlappingInvocations(t *testing.T) {
	g := &fakeGenerator{block: make(chan struct{})}
	svc := NewService(passthroughResolver(), g, nil, nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Generate(context.Background(), "1 Island")
	}()

	// Wait for the first invocation to reach the generator.
	deadline := time.Now().Add(2 * time.Second)
	for svc.Status() != StatusGenerating {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for generation to start")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := svc.Generate(context.Background(), "1 Mountain")
	if !errors.Is(err, ErrGenerationInFlight) {
		t.Errorf("Expected ErrGenerationInFlight, got %v", err)
	}

	close(g.block)
	wg.Wait()

	if svc.Status() != StatusIdle {
		t.Errorf("Status = %q, want idle after completion", svc.Status())
	}
}

func TestGenerate_HistoryFailureDoesNotFailRequest(t *testing.T) {
	h := &fakeHistory{err: errors.New("disk full")}
	svc := NewService(passthroughResolver(), &fakeGenerator{}, h, nil, nil)

	result, err := svc.Generate(context.Background(), "1 Island")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.GuideID != 0 {
		t.Errorf("GuideID = %d, want 0 when persistence failed", result.GuideID)
	}
	if result.Guide == "" {
		t.Error("Guide should still be returned")
	}
}
