package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/draftly-app/draftly/internal/config"
)

func testConfig(baseURL string) config.UpstreamConfig {
	return config.UpstreamConfig{
		BaseURL:        baseURL,
		APIKey:         "sk-or-test",
		Model:          "google/gemini-2.5-flash-lite",
		SiteURL:        "https://example.test",
		Title:          "Ghostwriter",
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		RetryBaseDelay: time.Second,
	}
}

func successBody(text string) []byte {
	body := map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
	}
	data, _ := json.Marshal(body)
	return data
}

func TestGenerate_Success(t *testing.T) {
	var gotAuth, gotReferer, gotTitle string
	var gotBody chatRequestBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotTitle = r.Header.Get("X-Title")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write(successBody("Generated post"))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	out, err := c.Generate(context.Background(), "the prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Generated post" {
		t.Errorf("unexpected output %q", out)
	}
	if gotAuth != "Bearer sk-or-test" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if gotReferer != "https://example.test" {
		t.Errorf("unexpected HTTP-Referer %q", gotReferer)
	}
	if gotTitle != "Ghostwriter" {
		t.Errorf("unexpected X-Title %q", gotTitle)
	}
	if gotBody.Model != "google/gemini-2.5-flash-lite" {
		t.Errorf("unexpected model %q", gotBody.Model)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "the prompt" {
		t.Errorf("expected a single user message with the prompt, got %+v", gotBody.Messages)
	}
}

func TestGenerate_MissingCredential(t *testing.T) {
	cfg := testConfig("http://unused.invalid")
	cfg.APIKey = ""
	c := NewClient(cfg, nil)

	_, err := c.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(successBody("eventually fine"))
	}))
	defer srv.Close()

	sleeper := &recordingSleeper{}
	c := NewClient(testConfig(srv.URL), nil)
	c.retry.Sleep = sleeper.sleep

	out, err := c.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "eventually fine" {
		t.Errorf("unexpected output %q", out)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != want[0] || sleeper.delays[1] != want[1] {
		t.Errorf("expected backoff delays %v, got %v", want, sleeper.delays)
	}
}

func TestGenerate_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	c.retry.Sleep = (&recordingSleeper{}).sleep

	_, err := c.Generate(context.Background(), "prompt")
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if ue.Status != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", ue.Status)
	}
	if ue.Message != "invalid model" {
		t.Errorf("expected provider message extracted, got %q", ue.Message)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected zero retries, got %d attempts", got)
	}
}

func TestGenerate_MissingContentIsShapeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	_, err := c.Generate(context.Background(), "prompt")
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if ue.Message != "response missing message content" {
		t.Errorf("unexpected message %q", ue.Message)
	}
	if DefaultRetryable(err) {
		t.Error("shape errors must not be retryable")
	}
}

func TestGenerate_TimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write(successBody("too late"))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 20 * time.Millisecond
	c := NewClient(cfg, nil)
	c.retry.Sleep = (&recordingSleeper{}).sleep

	_, err := c.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{ErrTimeout, "timeout"},
		{ErrMissingCredential, "missing_credential"},
		{&Error{Status: 502}, "server_error"},
		{&Error{Status: 404}, "client_error"},
		{&Error{Status: 200}, "bad_shape"},
		{errors.New("conn refused"), "network"},
	}
	for _, tt := range tests {
		if got := errorKind(tt.err); got != tt.expected {
			t.Errorf("errorKind(%v) = %q, want %q", tt.err, got, tt.expected)
		}
	}
}
