package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const maxSearchResults = 5

type SerpAPI struct {
	Key     string
	BaseURL string
	Client  HTTPClient
}

func (s *SerpAPI) Name() string { return "serpapi" }

func (s *SerpAPI) Search(ctx context.Context, query, location string) ([]SearchResult, error) {
	base := s.BaseURL
	if base == "" {
		base = "https://serpapi.com/search.json"
	}
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("api_key", s.Key)
	if location != "" {
		q.Set("location", location)
	}
	var resp struct {
		OrganicResults []SearchResult `json:"organic_results"`
	}
	if err := GetJSONWithRetry(ctx, s.Client, base+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("serpapi: %w", err)
	}
	out := resp.OrganicResults
	if len(out) > maxSearchResults {
		out = out[:maxSearchResults]
	}
	return out, nil
}

type GoogleCSE struct {
	Key      string
	EngineID string
	BaseURL  string
	Client   HTTPClient
}

func (g *GoogleCSE) Name() string { return "google" }

// Search ignores location; Custom Search has no location parameter.
func (g *GoogleCSE) Search(ctx context.Context, query, _ string) ([]SearchResult, error) {
	base := g.BaseURL
	if base == "" {
		base = "https://www.googleapis.com/customsearch/v1"
	}
	q := url.Values{}
	q.Set("key", g.Key)
	q.Set("cx", g.EngineID)
	q.Set("q", query)
	var resp struct {
		Items []SearchResult `json:"items"`
	}
	if err := GetJSONWithRetry(ctx, g.Client, base+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("google search: %w", err)
	}
	out := resp.Items
	if len(out) > maxSearchResults {
		out = out[:maxSearchResults]
	}
	for i := range out {
		out[i].Position = i + 1
	}
	return out, nil
}

// SearchChain asks each searcher in order and returns the first answer.
type SearchChain []Searcher

func (c SearchChain) Name() string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name())
	}
	return strings.Join(names, ",")
}

func (c SearchChain) Search(ctx context.Context, query, location string) ([]SearchResult, error) {
	var errs []error
	for _, s := range c {
		res, err := s.Search(ctx, query, location)
		if err == nil {
			return res, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoProvider
	}
	return nil, fmt.Errorf("%w: %w", ErrNoProvider, errors.Join(errs...))
}

// SearchVerifier decides existence from web search: the company exists when any top result
// mentions its name. No configured searcher means the answer is unknown.
type SearchVerifier struct {
	Searcher Searcher
}

func (v SearchVerifier) Verify(ctx context.Context, name, location string) (Verdict, error) {
	if v.Searcher == nil {
		return VerdictUnknown, nil
	}
	query := fmt.Sprintf("%q company", name)
	if location != "" {
		query += " " + location
	}
	results, err := v.Searcher.Search(ctx, query, location)
	if err != nil {
		if err == ErrNoProvider { // empty chain
			return VerdictUnknown, nil
		}
		return VerdictUnknown, err
	}
	if len(results) == 0 {
		return VerdictMissing, nil
	}
	needle := strings.ToLower(name)
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Title), needle) || strings.Contains(strings.ToLower(r.Snippet), needle) {
			return VerdictExists, nil
		}
	}
	return VerdictMissing, nil
}
