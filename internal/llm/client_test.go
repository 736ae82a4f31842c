package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbmarkdown/internal/errs"
	"dbmarkdown/pkg/config"
)

func okBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeClock) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	clk := newFakeClock()
	c := NewClient(config.APIConfig{BaseURL: srv.URL + "/v1beta/models", Model: "gemini-test", APIKey: "secret key"},
		Options{HTTPClient: srv.Client(), Clock: clk})
	return c, clk
}

func TestClient_GenerateSuccess(t *testing.T) {
	var gotPath, gotKey, gotContentType string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &gotBody))
		io.WriteString(w, okBody("# 資料庫文檔"))
	})

	text, err := c.Generate(context.Background(), "describe the schema")

	require.NoError(t, err)
	assert.Equal(t, "# 資料庫文檔", text)
	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "secret key", gotKey)
	assert.Equal(t, "application/json", gotContentType)

	contents := gotBody["contents"].([]any)
	parts := contents[0].(map[string]any)["parts"].([]any)
	assert.Equal(t, "describe the schema", parts[0].(map[string]any)["text"])
	assert.Equal(t, 0.7, gotBody["generationConfig"].(map[string]any)["temperature"])
	assert.Equal(t, 1, c.Limiter().Count())
}

func TestClient_RetriesOn429ThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"error":{"message":"quota"}}`)
			return
		}
		io.WriteString(w, okBody("done"))
	})

	text, err := c.Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []time.Duration{DefaultCooldown, DefaultCooldown}, clk.Sleeps())
}

func TestClient_GivesUpAfterFiveThrottledAttempts(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, errs.IsGeneration(err))
	assert.Contains(t, err.Error(), "maximum retries (5)")
	assert.EqualValues(t, 5, calls.Load())
	sleeps := clk.Sleeps()
	assert.Len(t, sleeps, 4, "cooldown between attempts only")
	for _, d := range sleeps {
		assert.Equal(t, DefaultCooldown, d)
	}
	assert.Equal(t, 5, c.Limiter().Count(), "throttled requests still count")
}

func TestClient_OtherStatusFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	c, clk := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"message":"API key not valid"}}`)
	})

	_, err := c.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, errs.IsGeneration(err))
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "API key not valid")
	assert.EqualValues(t, 1, calls.Load())
	assert.Empty(t, clk.Sleeps())
}

func TestClient_UnexpectedShape(t *testing.T) {
	bodies := map[string]string{
		"no candidates":   `{"candidates":[]}`,
		"no content":      `{"candidates":[{}]}`,
		"no parts":        `{"candidates":[{"content":{"parts":[]}}]}`,
		"no text":         `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`,
		"not json":        `<html>oops</html>`,
		"wrong json type": `{"candidates":"none"}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			})

			_, err := c.Generate(context.Background(), "p")

			require.Error(t, err)
			assert.True(t, errs.IsGeneration(err))
			assert.Contains(t, err.Error(), "response shape unexpected")
		})
	}
}

func TestClient_EmptyTextIsValid(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okBody(""))
	})

	text, err := c.Generate(context.Background(), "p")

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestClient_TransportErrorIsGenerationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(config.APIConfig{BaseURL: url, Model: "m", APIKey: "k"}, Options{Clock: newFakeClock()})

	_, err := c.Generate(context.Background(), "p")

	require.Error(t, err)
	assert.True(t, errs.IsGeneration(err))
	assert.Equal(t, 1, c.Limiter().Count())
}

func TestClient_SharedLimiterWaitsAcrossCalls(t *testing.T) {
	clk := newFakeClock()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, okBody("ok"))
	}))
	t.Cleanup(srv.Close)
	limiter := NewRateLimiter(2, time.Minute, clk)
	c := NewClient(config.APIConfig{BaseURL: srv.URL, Model: "m", APIKey: "k"},
		Options{HTTPClient: srv.Client(), Clock: clk, Limiter: limiter})

	for i := 0; i < 3; i++ {
		_, err := c.Generate(context.Background(), "p")
		require.NoError(t, err)
	}

	sleeps := clk.Sleeps()
	require.Len(t, sleeps, 1)
	assert.Equal(t, time.Minute+100*time.Millisecond, sleeps[0])
	assert.Equal(t, 1, limiter.Count())
}

func TestClient_Endpoint(t *testing.T) {
	c := NewClient(config.APIConfig{Model: "gemini-2.0-flash", APIKey: "a&b"}, Options{})

	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent?key=a%26b",
		c.endpoint())
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	// 3-byte runes never line up with the cut offset
	long := "x" + strings.Repeat("錯", maxErrorBody)

	got := truncate([]byte(long))

	assert.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got), maxErrorBody+len("..."))
	assert.Equal(t, "short", truncate([]byte("  short \n")))
}
