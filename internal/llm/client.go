package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"dbmarkdown/internal/errs"
	"dbmarkdown/internal/logger"
	"dbmarkdown/pkg/config"
)

const (
	Temperature = 0.7

	DefaultMaxAttempts = 5
	DefaultCooldown    = 60 * time.Second

	// maxErrorBody caps how much of an error response ends up in messages.
	maxErrorBody = 512
)

// Options tunes a Client. Zero values select the defaults.
type Options struct {
	HTTPClient  *http.Client
	Limiter     *RateLimiter
	Clock       Clock
	MaxAttempts int
	Cooldown    time.Duration
}

// Client calls the generateContent endpoint under a request quota.
type Client struct {
	settings    config.APIConfig
	httpClient  *http.Client
	limiter     *RateLimiter
	clock       Clock
	maxAttempts int
	cooldown    time.Duration
}

// NewClient creates a client for settings.
func NewClient(settings config.APIConfig, opts Options) *Client {
	c := &Client{
		settings:    settings,
		httpClient:  opts.HTTPClient,
		limiter:     opts.Limiter,
		clock:       opts.Clock,
		maxAttempts: opts.MaxAttempts,
		cooldown:    opts.Cooldown,
	}
	if c.clock == nil {
		c.clock = RealClock
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(DefaultRequestsPerWindow, DefaultWindow, c.clock)
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.cooldown <= 0 {
		c.cooldown = DefaultCooldown
	}
	if c.settings.BaseURL == "" {
		c.settings.BaseURL = config.DefaultBaseURL
	}
	return c
}

// Limiter returns the client's rate limiter.
func (c *Client) Limiter() *RateLimiter { return c.limiter }

type part struct {
	Text *string `json:"text,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content *content `json:"content"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

// endpoint returns {base}/{model}:generateContent?key={key}.
func (c *Client) endpoint() string {
	base := strings.TrimRight(c.settings.BaseURL, "/")
	return fmt.Sprintf("%s/%s:generateContent?key=%s",
		base, url.PathEscape(c.settings.Model), url.QueryEscape(c.settings.APIKey))
}

// Generate sends prompt and returns the generated text. A 429 answer is
// retried after the cooldown, up to the attempt limit; any other failure
// is returned at once. All failures are generation errors.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: &prompt}}}},
		GenerationConfig: generationConfig{Temperature: Temperature},
	})
	if err != nil {
		return "", errs.Wrap(errs.KindGeneration, "encode request", err)
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		var status int
		var respBody []byte
		err := c.limiter.Do(ctx, func() error {
			var err error
			status, respBody, err = c.post(ctx, body)
			return err
		})
		if err != nil {
			return "", errs.Wrap(errs.KindGeneration, "send request", err)
		}

		switch {
		case status == http.StatusTooManyRequests:
			logger.Warn("rate limited by endpoint, attempt %d/%d: %s", attempt, c.maxAttempts, truncate(respBody))
			if attempt < c.maxAttempts {
				if err := c.clock.Sleep(ctx, c.cooldown); err != nil {
					return "", errs.Wrap(errs.KindGeneration, "wait after rate limit", err)
				}
			}
		case status < 200 || status > 299:
			return "", errs.Newf(errs.KindGeneration, "API request failed with status %d: %s", status, truncate(respBody))
		default:
			return decodeText(respBody)
		}
	}
	return "", errs.Newf(errs.KindGeneration, "reached maximum retries (%d), API request failed", c.maxAttempts)
}

func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// decodeText extracts candidates[0].content.parts[0].text.
func decodeText(body []byte) (string, error) {
	var r generateResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", errs.Wrap(errs.KindGeneration, "response shape unexpected", err)
	}
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil ||
		len(r.Candidates[0].Content.Parts) == 0 || r.Candidates[0].Content.Parts[0].Text == nil {
		return "", errs.New(errs.KindGeneration, "response shape unexpected: no candidate text")
	}
	return *r.Candidates[0].Content.Parts[0].Text, nil
}

func truncate(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
