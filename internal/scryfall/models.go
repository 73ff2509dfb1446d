package scryfall

import (
	"errors"
	"fmt"
)

// Card represents a Magic card record returned by Scryfall. Only the fields
// the guide pipeline consumes are declared; unknown fields are ignored on
// decode.
type Card struct {
	ID          string `json:"id"`
	OracleID    string `json:"oracle_id,omitempty"`
	Name        string `json:"name"`
	Lang        string `json:"lang,omitempty"`
	ScryfallURI string `json:"scryfall_uri,omitempty"`

	ManaCost   string     `json:"mana_cost,omitempty"`
	CMC        float64    `json:"cmc"`
	TypeLine   string     `json:"type_line"`
	OracleText string     `json:"oracle_text,omitempty"`
	Colors     []string   `json:"colors,omitempty"`
	Keywords   []string   `json:"keywords,omitempty"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`

	SetCode string `json:"set,omitempty"`
	SetName string `json:"set_name,omitempty"`
	Rarity  string `json:"rarity,omitempty"`
}

// ImageURIs contains card image URLs in the sizes Scryfall serves.
type ImageURIs struct {
	Small      string `json:"small,omitempty"`
	Normal     string `json:"normal,omitempty"`
	Large      string `json:"large,omitempty"`
	PNG        string `json:"png,omitempty"`
	ArtCrop    string `json:"art_crop,omitempty"`
	BorderCrop string `json:"border_crop,omitempty"`
}

// SearchResult is the response from the full-text search endpoint.
// An empty or absent Data slice means no cards matched.
type SearchResult struct {
	Object     string `json:"object,omitempty"`
	TotalCards int    `json:"total_cards,omitempty"`
	HasMore    bool   `json:"has_more,omitempty"`
	Data       []Card `json:"data"`
}

// APIError represents an error payload returned by the Scryfall API.
type APIError struct {
	Object  string `json:"object,omitempty"`
	Code    string `json:"code,omitempty"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 from the API, which for the named-card
// endpoint means no card carries the requested exact name.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
