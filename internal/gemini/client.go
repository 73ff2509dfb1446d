// Package gemini provides a client for the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Config configures the Gemini client.
type Config struct {
	// BaseURL is the API endpoint, without a trailing slash.
	BaseURL string

	// Model is the model name used in the generateContent path.
	Model string

	// APIKey authenticates the request via the key query parameter.
	APIKey string

	// InferenceTimeout bounds a single generation request.
	InferenceTimeout time.Duration
}

// DefaultConfig returns sensible defaults. The API key must still be set.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://generativelanguage.googleapis.com/v1beta",
		Model:            "gemini-1.5-flash",
		InferenceTimeout: 120 * time.Second,
	}
}

// Client submits prompts to the generative-text service. It is stateless
// between calls: one request, one response, no retry, no streaming.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// TransportError indicates the request failed before a usable response was
// produced: a network failure, a non-200 status, or an undecodable body.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to communicate with AI service: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ShapeError indicates the response decoded but lacked the expected
// candidates/content/parts structure.
type ShapeError struct {
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("unexpected response from AI service: %s", e.Detail)
}

// generateContentRequest is the request body for generateContent.
type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateContentResponse is the response body from generateContent.
type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}

// NewClient creates a Gemini client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.InferenceTimeout,
		},
	}
}

// GenerateGuide submits the prompt as a single user turn and returns the
// first candidate's first part text. Any deviation from that exact response
// shape is a *ShapeError; request-level failures are *TransportError.
func (c *Client) GenerateGuide(ctx context.Context, prompt string) (string, error) {
	reqURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.config.BaseURL, c.config.Model, url.QueryEscape(c.config.APIKey))

	body, err := json.Marshal(&generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &TransportError{
			Err: fmt.Errorf("generateContent failed with status %d: %s", resp.StatusCode, string(respBody)),
		}
	}

	var genResp generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if len(genResp.Candidates) == 0 {
		return "", &ShapeError{Detail: "no candidates"}
	}
	if len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", &ShapeError{Detail: "candidate has no content parts"}
	}

	return genResp.Candidates[0].Content.Parts[0].Text, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}
