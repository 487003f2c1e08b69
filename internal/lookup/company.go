package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

type Clearbit struct {
	Key     string
	BaseURL string // defaults to https://company.clearbit.com
	Client  HTTPClient
}

type clearbitCompany struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
	Category    struct {
		Industry string `json:"industry"`
	} `json:"category"`
	Metrics struct {
		Employees *int `json:"employees"`
	} `json:"metrics"`
	Geo struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"geo"`
}

func (c *Clearbit) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://company.clearbit.com"
}

func (c *Clearbit) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.Key)
	return h
}

func (c *Clearbit) Lookup(ctx context.Context, name, domain string) (Result, error) {
	domain = Domain(domain)
	if domain == "" {
		var found struct {
			Domain string `json:"domain"`
		}
		err := GetJSONWithRetry(ctx, c.Client, c.base()+"/v1/domains/find?name="+url.QueryEscape(name), c.header(), &found)
		if isNotFound(err) {
			return Result{Provider: "clearbit"}, nil
		}
		if err != nil {
			return Result{Provider: "clearbit"}, fmt.Errorf("clearbit name to domain: %w", err)
		}
		if found.Domain == "" {
			return Result{Provider: "clearbit"}, nil
		}
		domain = found.Domain
	}

	var co clearbitCompany
	err := GetJSONWithRetry(ctx, c.Client, c.base()+"/v2/companies/find?domain="+url.QueryEscape(domain), c.header(), &co)
	if isNotFound(err) {
		return Result{Provider: "clearbit"}, nil
	}
	if err != nil {
		return Result{Provider: "clearbit"}, fmt.Errorf("clearbit company: %w", err)
	}
	data := CompanyData{
		Name:        co.Name,
		Domain:      co.Domain,
		Description: co.Description,
		Industry:    co.Category.Industry,
		Location:    joinNonEmpty(", ", co.Geo.City, co.Geo.State),
		Website:     co.Domain,
	}
	if co.Metrics.Employees != nil {
		data.Employees = strconv.Itoa(*co.Metrics.Employees)
	}
	return Result{Success: true, Data: data, Provider: "clearbit"}, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// WebData falls back to the first web search hit for a company.
type WebData struct {
	Searcher Searcher
}

func (w WebData) Lookup(ctx context.Context, name, _ string) (Result, error) {
	if w.Searcher == nil {
		return Result{Provider: "web_search"}, nil
	}
	results, err := w.Searcher.Search(ctx, name+" company information about", "")
	if err != nil {
		if err == ErrNoProvider {
			return Result{Provider: "web_search"}, nil
		}
		return Result{Provider: "web_search"}, err
	}
	if len(results) == 0 {
		return Result{Provider: "web_search"}, nil
	}
	first := results[0]
	return Result{
		Success:  true,
		Provider: "web_search",
		Data: CompanyData{
			Name:        name,
			Description: first.Snippet,
			Website:     first.Link,
		},
	}, nil
}

// DataChain returns the first successful lookup in priority order.
type DataChain []DataProvider

func (c DataChain) Lookup(ctx context.Context, name, domain string) (Result, error) {
	var errs []error
	for _, p := range c {
		res, err := p.Lookup(ctx, name, domain)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Success {
			return res, nil
		}
	}
	return Result{}, errors.Join(errs...)
}

// Domain reduces a website URL to its bare host without "www.".
func Domain(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
