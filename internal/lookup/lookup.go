// Package lookup verifies that researched companies exist and enriches them with real data.
//
// Each concern is a chain of providers tried in a fixed priority order. A provider that is
// not configured is simply absent from its chain, so an empty chain answers "unknown".
package lookup

import (
	"context"
	"errors"
)

type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictExists
	VerdictMissing
)

func (v Verdict) String() string {
	switch v {
	case VerdictExists:
		return "exists"
	case VerdictMissing:
		return "missing"
	}
	return "unknown"
}

// Verifier answers whether a named entity exists. Unknown must be treated as exists.
type Verifier interface {
	Verify(ctx context.Context, name, location string) (Verdict, error)
}

type CompanyData struct {
	Name        string `json:"name,omitempty"`
	Domain      string `json:"domain,omitempty"`
	Description string `json:"description,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Employees   string `json:"employees,omitempty"`
	Location    string `json:"location,omitempty"`
	Website     string `json:"website,omitempty"`
}

// Result is the uniform shape every data provider returns.
type Result struct {
	Success  bool
	Data     CompanyData
	Provider string
}

type DataProvider interface {
	Lookup(ctx context.Context, name, domain string) (Result, error)
}

type SearchResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

type Searcher interface {
	Name() string
	Search(ctx context.Context, query, location string) ([]SearchResult, error)
}

// ErrNoProvider is returned by a chain with nothing configured or nothing that answered.
var ErrNoProvider = errors.New("no provider available")
