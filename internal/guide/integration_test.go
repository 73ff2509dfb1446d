package guide

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmcavoy/deckguide/internal/gemini"
	"github.com/jmcavoy/deckguide/internal/resolver"
	"github.com/jmcavoy/deckguide/internal/scryfall"
	"github.com/jmcavoy/deckguide/internal/storage"
)

// TestPipeline_EndToEnd runs the real parser, resolver, clients, and
// history against local HTTP stand-ins for Scryfall and Gemini.
func TestPipeline_EndToEnd(t *testing.T) {
	cards := map[string]scryfall.Card{
		"Lightning Bolt": {
			ID:         "bolt",
			Name:       "Lightning Bolt",
			ManaCost:   "{R}",
			TypeLine:   "Instant",
			OracleText: "Lightning Bolt deals 3 damage to any target.",
			SetName:    "Magic 2011",
		},
		"Mountain": {
			ID:       "mountain",
			Name:     "Mountain",
			TypeLine: "Basic Land - Mountain",
		},
	}

	cardServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards/named" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		card, ok := cards[r.URL.Query().Get("exact")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"object":"error","status":404}`))
			return
		}
		_ = json.NewEncoder(w).Encode(card)
	}))
	defer cardServer.Close()

	var gotPrompt string
	genServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Bad generate request: %v", err)
		}
		gotPrompt = req.Contents[0].Parts[0].Text

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"## Archetype & Strategy\nBurn them out."}]}}]}`))
	}))
	defer genServer.Close()

	dbConfig := storage.DefaultConfig(":memory:")
	dbConfig.AutoMigrate = true
	dbConfig.MaxOpenConns = 1
	db, err := storage.Open(dbConfig)
	if err != nil {
		t.Fatalf("Failed to open history: %v", err)
	}
	defer func() { _ = db.Close() }()

	genConfig := gemini.DefaultConfig()
	genConfig.BaseURL = genServer.URL
	genConfig.APIKey = "test-key"

	svc := NewService(
		resolver.New(scryfall.NewClientWithBaseURL(cardServer.URL), nil),
		gemini.NewClient(genConfig),
		db,
		nil,
		nil,
	)

	result, err := svc.Generate(context.Background(), "Burn Deck\n4 Lightning Bolt\n\n18 Mountain")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Guide != "## Archetype & Strategy\nBurn them out." {
		t.Errorf("Guide = %q", result.Guide)
	}
	if len(result.Cards) != 2 {
		t.Fatalf("len(Cards) = %d, want 2", len(result.Cards))
	}
	if result.Cards[0].Name != "Lightning Bolt" || result.Cards[0].Quantity != 4 {
		t.Errorf("Cards[0] = %s x%d", result.Cards[0].Name, result.Cards[0].Quantity)
	}

	if !strings.Contains(gotPrompt, "4 Lightning Bolt [MAGIC 2011] - Mana Cost: {R} - Type: Instant") {
		t.Errorf("Prompt missing formatted bolt line:\n%s", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "18 Mountain - Mana Cost: N/A") {
		t.Errorf("Prompt missing mountain line:\n%s", gotPrompt)
	}

	rec, err := db.GetGuide(context.Background(), result.GuideID)
	if err != nil {
		t.Fatalf("GetGuide failed: %v", err)
	}
	if rec.CardCount != 2 {
		t.Errorf("Persisted CardCount = %d, want 2", rec.CardCount)
	}
	if !strings.Contains(rec.CardsJSON, "Lightning Bolt") {
		t.Errorf("Persisted CardsJSON missing card: %s", rec.CardsJSON)
	}
}
