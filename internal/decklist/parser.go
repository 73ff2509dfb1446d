// Package decklist parses free-text decklists into structured line items.
package decklist

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Line represents a single parsed decklist line.
type Line struct {
	// Quantity is the number of copies requested.
	Quantity int

	// Name is the card name exactly as typed, trimmed. Trailing annotations
	// such as "(Commander)" are part of the name and used verbatim for lookup.
	Name string

	// Identity uniquely keys this line within one parse. It carries no
	// semantic meaning and exists only for list rendering by callers.
	Identity string
}

// lineRegex matches "leading integer, whitespace, remainder".
var lineRegex = regexp.MustCompile(`^(\d+)\s+(.*)$`)

// Parse splits text into decklist lines. Lines that are blank after trimming,
// or whose trimmed form does not begin with a decimal digit, are skipped —
// this filters section headers like "Creatures" or "Lands" without treating
// them as errors. Digit-prefixed lines that still fail the quantity/name
// pattern are skipped the same way.
//
// Parse never fails; an input with no card-shaped lines yields an empty
// result, which callers treat as a user-input error.
func Parse(text string) []Line {
	var lines []Line

	for i, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || !startsWithDigit(trimmed) {
			continue
		}

		matches := lineRegex.FindStringSubmatch(trimmed)
		if matches == nil {
			continue
		}

		quantity, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		name := strings.TrimSpace(matches[2])
		lines = append(lines, Line{
			Quantity: quantity,
			Name:     name,
			Identity: lineIdentity(name, quantity, i),
		})
	}

	return lines
}

func startsWithDigit(s string) bool {
	r := []rune(s)
	return len(r) > 0 && unicode.IsDigit(r[0])
}

// lineIdentity derives a per-parse unique key from the line's content,
// position, and a random component.
func lineIdentity(name string, quantity, position int) string {
	return strconv.Itoa(quantity) + "-" + name + "-" + strconv.Itoa(position) + "-" + uuid.NewString()
}
