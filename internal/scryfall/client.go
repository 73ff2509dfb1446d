// Package scryfall provides a rate-limited client for the Scryfall card API.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Scryfall API endpoint.
	DefaultBaseURL = "https://api.scryfall.com"

	// rateLimitDelay spaces requests per Scryfall's guidance (10 req/sec).
	rateLimitDelay = 100 * time.Millisecond

	requestTimeout = 30 * time.Second
)

// Client is a Scryfall API client with built-in rate limiting.
//
// Lookups are deliberately retry-free: callers decide the fallback chain
// (exact name, then full-text search), and a failed lookup must surface
// immediately rather than being retried.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	userAgent   string
}

// NewClient creates a client against the public Scryfall API.
func NewClient() *Client {
	return NewClientWithBaseURL(DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against an arbitrary endpoint.
// Used by tests to point at a local server.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		userAgent:   "deckguide/1.0",
	}
}

// GetCardByName retrieves a card by its exact name.
// A 404 (no card with that exact name) is returned as *NotFoundError.
func (c *Client) GetCardByName(ctx context.Context, name string) (*Card, error) {
	reqURL := fmt.Sprintf("%s/cards/named?exact=%s", c.baseURL, url.QueryEscape(name))

	var card Card
	if err := c.doRequest(ctx, reqURL, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %q: %w", name, err)
	}

	return &card, nil
}

// SearchCards performs a full-text search for cards.
// An empty Data slice in the result means nothing matched.
func (c *Client) SearchCards(ctx context.Context, query string) (*SearchResult, error) {
	reqURL := fmt.Sprintf("%s/cards/search?q=%s", c.baseURL, url.QueryEscape(query))

	var result SearchResult
	if err := c.doRequest(ctx, reqURL, &result); err != nil {
		return nil, fmt.Errorf("failed to search cards with query %q: %w", query, err)
	}

	return &result, nil
}

// doRequest performs a rate-limited GET and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, reqURL string, result interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to parse JSON response: %w", err)
		}

		return nil

	case http.StatusNotFound:
		// Scryfall serves 404s with an error payload; prefer its details.
		body, _ := io.ReadAll(resp.Body)

		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			return &apiErr
		}

		return &NotFoundError{URL: reqURL}

	default:
		body, _ := io.ReadAll(resp.Body)

		var apiErr APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details != "" {
			return &apiErr
		}

		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}
}
