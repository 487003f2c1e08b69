package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini generates through the Google GenAI API. Request.Model is honoured only when it names
// a Gemini model; the OpenAI model names used by the agents fall back to the configured model.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) modelFor(req Request) string {
	if strings.HasPrefix(req.Model, "gemini") {
		return req.Model
	}
	return g.model
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	temp := float32(req.Temperature)
	resp, err := g.client.Models.GenerateContent(ctx, g.modelFor(req), genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: &temp,
	})
	if err != nil {
		return "", classifyGemini(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &Error{Provider: "gemini", Kind: KindEmpty, Err: fmt.Errorf("no completion returned")}
	}
	return text, nil
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		kind := KindProvider
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			kind = KindAuth
		case apiErr.Code == 429:
			kind = KindRateLimit
		}
		return &Error{Provider: "gemini", Kind: kind, Status: apiErr.Code, Err: err}
	}
	return &Error{Provider: "gemini", Kind: KindTransport, Err: err}
}
