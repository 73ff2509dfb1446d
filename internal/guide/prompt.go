package guide

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmcavoy/deckguide/internal/resolver"
)

// ErrNoCards is returned when a prompt is requested for an empty card list.
var ErrNoCards = errors.New("cannot build a prompt from an empty card list")

// promptHeader and promptFooter wrap the formatted decklist. The section
// list is a fixed contract with the generative service; downstream renderers
// key off these headings.
const promptHeader = `You are a Magic: The Gathering deckbuilding expert. Analyze the following decklist and write a detailed strategy guide for the pilot.

Decklist:

`

const promptFooter = `

Structure your guide with the following sections, using Markdown headings:
1. Archetype & Strategy
2. Key Cards & Synergies
3. Mana Curve Analysis
4. Strengths
5. Weaknesses
6. Mulligan Guide
7. Matchup Considerations`

// BuildPrompt formats the resolved cards into the generation prompt.
// Cards appear in input order, one block per card, blocks separated by a
// blank line. It fails rather than producing a prompt with no cards.
func BuildPrompt(cards []resolver.ResolvedCard) (string, error) {
	if len(cards) == 0 {
		return "", ErrNoCards
	}

	blocks := make([]string, len(cards))
	for i, card := range cards {
		blocks[i] = formatCard(card)
	}

	return promptHeader + strings.Join(blocks, "\n\n") + promptFooter, nil
}

// formatCard renders one card as a two-line block: a summary line and an
// oracle-text line.
func formatCard(card resolver.ResolvedCard) string {
	setPart := ""
	if card.SetName != "" {
		setPart = fmt.Sprintf(" [%s]", strings.ToUpper(card.SetName))
	}

	manaCost := card.ManaCost
	if manaCost == "" {
		manaCost = "N/A"
	}

	typeLine := card.TypeLine
	if typeLine == "" {
		typeLine = "N/A"
	}

	oracleText := card.OracleText
	if oracleText == "" {
		oracleText = "No Oracle Text"
	}

	return fmt.Sprintf("%d %s%s - Mana Cost: %s - Type: %s\nOracle Text: %s",
		card.Quantity, card.Name, setPart, manaCost, typeLine, oracleText)
}
