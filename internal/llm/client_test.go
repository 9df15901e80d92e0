package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func chatBody(content string) string {
	return fmt.Sprintf(`{"model":"test-model","choices":[{"message":{"content":%q},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`, content)
}

// testClient builds a Client against a test server with zero backoff-relevant
// retries unless overridden.
func testClient(serverURL string, retries int) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: 5 * time.Second},
		baseURL:       serverURL,
		apiKey:        "test-key",
		maxRetries:    retries,
		contextBudget: 8192,
		log:           zerolog.Nop(),
		profiles: map[Purpose]profile{
			PurposeEvaluation:   {model: "primary", temperature: 0.1, maxTokens: 1024},
			PurposeAnalysis:     {model: "analysis", temperature: 0.3, maxTokens: 2048},
			PurposeConversation: {model: "primary", temperature: 0.7, maxTokens: 1024},
		},
	}
}

func TestCompleteSuccess(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, chatBody(`{"score": 80}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	resp, err := c.Complete(context.Background(), Request{
		Purpose:  PurposeEvaluation,
		Messages: []Message{{Role: "user", Content: "grade this"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != `{"score": 80}` {
		t.Fatalf("content = %q", resp.Content)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody.Model != "primary" {
		t.Fatalf("model = %q, want primary profile", gotBody.Model)
	}
	if gotBody.ResponseFormat == nil || gotBody.ResponseFormat.Type != "json_object" {
		t.Fatalf("JSON mode not requested: %+v", gotBody.ResponseFormat)
	}
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, chatBody("ok"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	resp, err := c.Complete(context.Background(), Request{
		Purpose:  PurposeEvaluation,
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("content = %q", resp.Content)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.Complete(context.Background(), Request{
		Purpose:  PurposeEvaluation,
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (4xx must not retry)", calls)
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable wrap, got %v", err)
	}
}

func TestCompleteFallsBackOnce(t *testing.T) {
	var mu sync.Mutex
	var models []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		models = append(models, body.Model)
		mu.Unlock()
		if body.Model == "primary" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, chatBody("from fallback"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	c.fallbackModel = "cheap"

	resp, err := c.Complete(context.Background(), Request{
		Purpose:  PurposeEvaluation,
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "from fallback" {
		t.Fatalf("content = %q", resp.Content)
	}
	if len(models) != 2 || models[0] != "primary" || models[1] != "cheap" {
		t.Fatalf("model sequence = %v", models)
	}
}

func TestCompleteFallbackFailureWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	c.fallbackModel = "cheap"

	_, err := c.Complete(context.Background(), Request{
		Purpose:  PurposeEvaluation,
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

// memCache is an in-memory Cache for tests.
type memCache struct {
	mu      sync.Mutex
	entries map[string]string
	sets    int
}

func (m *memCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.entries[key] = value
	m.sets++
	return nil
}

func TestCompleteUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, chatBody("fresh"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	c.cache = &memCache{}
	c.cacheTTL = time.Minute

	req := Request{
		Purpose:  PurposeEvaluation,
		Messages: []Message{{Role: "user", Content: "x"}},
		CacheKey: "eval:abc",
	}

	first, err := c.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := c.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (second hit should come from cache)", calls)
	}
	if first.Content != second.Content {
		t.Fatalf("cache returned different content: %q vs %q", first.Content, second.Content)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		status    int
		kind      ErrorKind
		retryable bool
	}{
		{429, KindRateLimit, true},
		{500, KindUpstream, true},
		{503, KindUpstream, true},
		{400, KindMalformed, false},
		{404, KindMalformed, false},
	}
	for _, tc := range cases {
		kind := classifyStatus(tc.status)
		if kind != tc.kind {
			t.Fatalf("status %d: kind = %s, want %s", tc.status, kind, tc.kind)
		}
		e := &Error{Kind: kind, Status: tc.status, Err: errors.New("x")}
		if e.Retryable() != tc.retryable {
			t.Fatalf("status %d: retryable = %v, want %v", tc.status, e.Retryable(), tc.retryable)
		}
	}
}

func TestTrimMessagesKeepsSystemAndLatest(t *testing.T) {
	long := strings.Repeat("word ", 500) // ~625 estimated tokens

	messages := []Message{
		{Role: "system", Content: "grader instructions"},
		{Role: "user", Content: long},
		{Role: "assistant", Content: long},
		{Role: "user", Content: "final question"},
	}

	trimmed := trimMessages(messages, 700)
	if len(trimmed) >= len(messages) {
		t.Fatalf("expected trimming, got %d messages", len(trimmed))
	}
	if trimmed[0].Role != "system" {
		t.Fatal("system message must survive trimming")
	}
	if trimmed[len(trimmed)-1].Content != "final question" {
		t.Fatal("most recent message must survive trimming")
	}

	// Under budget: untouched.
	small := []Message{{Role: "user", Content: "hi"}}
	if got := trimMessages(small, 700); len(got) != 1 {
		t.Fatalf("under-budget conversation was trimmed: %v", got)
	}
}
