package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lernio/lernio-backend/internal/config"
	"github.com/rs/zerolog"
)

// Purpose selects the model/temperature/token-budget profile for a call.
type Purpose string

const (
	PurposeEvaluation   Purpose = "evaluation"
	PurposeAnalysis     Purpose = "analysis"
	PurposeConversation Purpose = "conversation"
)

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one logical completion call against the gateway.
type Request struct {
	Purpose     Purpose
	Messages    []Message
	Temperature *float64 // overrides the purpose profile when set
	MaxTokens   int      // overrides the purpose profile when > 0
	JSONMode    bool     // request response_format=json_object
	Logprobs    bool     // request per-token log-probabilities
	TopLogprobs int

	// CacheKey enables the injected response cache for this call. Empty
	// means no caching.
	CacheKey string
}

// TokenLogprob is one token's log-probability from the completion.
type TokenLogprob struct {
	Token   string  `json:"token"`
	Logprob float64 `json:"logprob"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Response is the normalized completion result.
type Response struct {
	Content      string         `json:"content"`
	FinishReason string         `json:"finish_reason"`
	Model        string         `json:"model"`
	Usage        Usage          `json:"usage"`
	Logprobs     []TokenLogprob `json:"logprobs,omitempty"`
}

type profile struct {
	model       string
	temperature float64
	maxTokens   int
}

// Client is the single outbound LLM integration point. It attaches
// credentials, selects per-purpose profiles, trims oversized histories,
// retries transient failures with exponential backoff and falls back to a
// cheaper model exactly once.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	fallbackModel string
	maxRetries    int
	contextBudget int
	cacheTTL      time.Duration
	cache         Cache
	profiles      map[Purpose]profile
	log           zerolog.Logger
}

// NewClient creates a gateway client from configuration. cache may be nil to
// disable response caching.
func NewClient(cfg *config.Config, cache Cache, log zerolog.Logger) *Client {
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.LLMTimeout},
		baseURL:       cfg.LLMBaseURL,
		apiKey:        cfg.LLMAPIKey,
		fallbackModel: cfg.LLMFallbackModel,
		maxRetries:    cfg.LLMMaxRetries,
		contextBudget: cfg.LLMContextBudget,
		cacheTTL:      cfg.LLMCacheTTL,
		cache:         cache,
		log:           log.With().Str("component", "llm_client").Logger(),
		profiles: map[Purpose]profile{
			PurposeEvaluation:   {model: cfg.LLMModel, temperature: 0.1, maxTokens: 1024},
			PurposeAnalysis:     {model: cfg.LLMAnalysisModel, temperature: 0.3, maxTokens: 2048},
			PurposeConversation: {model: cfg.LLMModel, temperature: 0.7, maxTokens: 1024},
		},
	}
}

// ─── Chat-completions wire format ──────────────────────────────────

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []Message           `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Logprobs       bool                `json:"logprobs,omitempty"`
	TopLogprobs    int                 `json:"top_logprobs,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Logprobs     *struct {
			Content []TokenLogprob `json:"content"`
		} `json:"logprobs"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Complete performs one logical completion: at most one round trip per
// attempt, up to maxRetries retries on transient failures, and a single
// fallback-model attempt when the primary is exhausted.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	prof, ok := c.profiles[req.Purpose]
	if !ok {
		prof = c.profiles[PurposeConversation]
	}

	if req.CacheKey != "" && c.cache != nil {
		if cached, hit, err := c.cache.Get(ctx, req.CacheKey); err == nil && hit {
			var resp Response
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	temperature := prof.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := prof.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	messages := trimMessages(req.Messages, c.contextBudget-maxTokens)

	body := chatRequest{
		Model:       prof.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Logprobs:    req.Logprobs,
		TopLogprobs: req.TopLogprobs,
	}
	if req.JSONMode {
		body.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}

	resp, err := c.completeWithRetry(ctx, body)
	if err != nil {
		if c.fallbackModel == "" || c.fallbackModel == prof.model {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
		// One-shot fallback. Never recurse past it.
		c.log.Warn().
			Str("primary", prof.model).
			Str("fallback", c.fallbackModel).
			Err(err).
			Msg("Primary model failed, trying fallback once")

		body.Model = c.fallbackModel
		resp, err = c.doOnce(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
		}
	}

	if req.CacheKey != "" && c.cache != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := c.cache.Set(ctx, req.CacheKey, string(raw), c.cacheTTL); err != nil {
				c.log.Warn().Err(err).Msg("Response cache write failed")
			}
		}
	}

	return resp, nil
}

// completeWithRetry retries transient failures with exponential backoff.
func (c *Client) completeWithRetry(ctx context.Context, body chatRequest) (*Response, error) {
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, &Error{Kind: KindTimeout, Err: ctx.Err()}
		}

		resp, err := c.doOnce(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var le *Error
		if !errors.As(err, &le) || !le.Retryable() || attempt == c.maxRetries {
			break
		}

		c.log.Warn().
			Str("model", body.Model).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("LLM request retrying")

		select {
		case <-ctx.Done():
			return nil, &Error{Kind: KindTimeout, Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}

// doOnce performs exactly one round trip.
func (c *Client) doOnce(ctx context.Context, body chatRequest) (*Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(err), Err: err}
	}
	raw, readErr := io.ReadAll(httpResp.Body)
	_ = httpResp.Body.Close()
	if readErr != nil {
		return nil, &Error{Kind: KindConnection, Err: readErr}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &Error{
			Kind:   classifyStatus(httpResp.StatusCode),
			Status: httpResp.StatusCode,
			Err:    fmt.Errorf("http %d: %s", httpResp.StatusCode, truncate(string(raw), 512)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Kind: KindMalformed, Err: errors.New("no choices in response")}
	}

	choice := parsed.Choices[0]
	out := &Response{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        parsed.Model,
		Usage:        parsed.Usage,
	}
	if choice.Logprobs != nil {
		out.Logprobs = choice.Logprobs.Content
	}
	return out, nil
}

// ─── Token budget ──────────────────────────────────────────────────

// EstimateTokens approximates the token count of a text (~4 chars/token).
func EstimateTokens(text string) int {
	return len(text)/4 + 1
}

// trimMessages drops the oldest non-system messages until the estimated
// token count fits the budget. The most recent message is always kept.
func trimMessages(messages []Message, budget int) []Message {
	if budget <= 0 {
		return messages
	}

	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	if total <= budget {
		return messages
	}

	out := make([]Message, len(messages))
	copy(out, messages)

	for i := 0; i < len(out)-1 && total > budget; {
		if out[i].Role == "system" {
			i++
			continue
		}
		total -= EstimateTokens(out[i].Content)
		out = append(out[:i], out[i+1:]...)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
