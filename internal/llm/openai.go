package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AngelCh415/smartreach/internal/utils"
)

const defaultOpenAIModel = "gpt-3.5-turbo"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*options)

type options struct {
	httpClient HTTPDoer
	retries    int
}

func WithHTTPClient(c HTTPDoer) Option { return func(o *options) { o.httpClient = c } }

func WithRetries(n int) Option { return func(o *options) { o.retries = n } }

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
	Retries    int
	RetryBase  time.Duration
}

// OpenAI talks to a chat-completions compatible endpoint.
type OpenAI struct {
	apiKey  string
	baseURL string
	c       HTTPDoer
	backoff utils.Backoff
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	b := utils.NewBackoff(cfg.RetryBase, cfg.Retries)
	b.Retryable = retryable
	return &OpenAI{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		c:       cfg.HTTPClient,
		backoff: b,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	if o.apiKey == "" {
		return "", &Error{Provider: "openai", Kind: KindAuth, Err: ErrNotConfigured}
	}
	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var out string
	err = o.backoff.Do(ctx, func(int) error {
		text, err := o.once(ctx, body)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (o *OpenAI) once(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.c.Do(httpReq)
	if err != nil {
		return "", &Error{Provider: "openai", Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &Error{Provider: "openai", Kind: KindTransport, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &Error{Provider: "openai", Kind: KindAuth, Status: resp.StatusCode, Err: fmt.Errorf("%s", snippet(raw))}
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &Error{Provider: "openai", Kind: KindRateLimit, Status: resp.StatusCode, Err: fmt.Errorf("%s", snippet(raw))}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", &Error{Provider: "openai", Kind: KindProvider, Status: resp.StatusCode, Err: fmt.Errorf("%s", snippet(raw))}
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", &Error{Provider: "openai", Kind: KindProvider, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if cr.Error != nil {
		return "", &Error{Provider: "openai", Kind: KindProvider, Status: resp.StatusCode, Err: fmt.Errorf("%s", cr.Error.Message)}
	}
	if len(cr.Choices) == 0 {
		return "", &Error{Provider: "openai", Kind: KindEmpty, Status: resp.StatusCode, Err: fmt.Errorf("no completion returned")}
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}

func snippet(b []byte) string {
	if len(b) > 512 {
		b = b[:512]
	}
	return string(b)
}
