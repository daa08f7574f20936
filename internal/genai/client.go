// Package genai is a minimal HTTP client for a Gemini-style text completion
// endpoint (models/<model>:generateContent). The caller supplies the API key
// per request; the client holds no credentials of its own.
//
// Failure policy: a single synchronous attempt, no retries. Any non-2xx
// status, transport failure, timeout, or response missing the expected field
// path surfaces as *UpstreamError carrying the status and a truncated copy of
// the raw body for diagnostics.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// maxErrBody caps how much of an upstream error body is retained.
const maxErrBody = 4 * 1024

// UpstreamError describes a failed or malformed completion-provider exchange.
// Status is zero when the request never produced an HTTP response (transport
// error or timeout).
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return "completion provider: " + e.Body
	}
	return fmt.Sprintf("completion provider: status %d: %s", e.Status, e.Body)
}

// Client calls the completion provider. It is safe for concurrent use.
type Client struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client

	// Limiter throttles outbound calls so a burst of chat turns cannot
	// exhaust the caller's provider quota. Nil disables throttling.
	Limiter *rate.Limiter
}

// NewClient constructs a Client with an explicit request timeout and a
// client-side rate limit of rps tokens per second (burst-sized bucket).
// An rps <= 0 disables the limiter.
func NewClient(baseURL, model string, timeout time.Duration, rps float64, burst int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var lim *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
		HTTPClient: &http.Client{Timeout: timeout},
		Limiter:    lim,
	}
}

// Request/response wire shapes for generateContent.

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateContent sends prompt as a single-turn request authenticated with
// apiKey and returns the first candidate's text.
func (c *Client) GenerateContent(ctx context.Context, apiKey, prompt string) (string, error) {
	if c.HTTPClient == nil {
		return "", errors.New("genai: http client is nil")
	}
	if strings.TrimSpace(apiKey) == "" {
		return "", errors.New("genai: api key is required")
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		return "", errors.New("genai: model is required")
	}

	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", &UpstreamError{Body: "rate limiter: " + err.Error()}
		}
	}

	body, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		msg := "request failed"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			msg = "request timed out"
		}
		return "", &UpstreamError{Body: msg + ": " + err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = "no response body"
		}
		return "", &UpstreamError{Status: resp.StatusCode, Body: msg}
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", &UpstreamError{Status: resp.StatusCode, Body: "malformed response body: " + err.Error()}
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", &UpstreamError{Status: resp.StatusCode, Body: decoded.Error.Message}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: "response has no candidates"}
	}

	var b strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String(), nil
}

// isTimeout reports whether err carries a net-level timeout flag.
func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
