package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/smartreach/internal/config"
)

type fakeSearcher struct {
	name    string
	results []SearchResult
	err     error
	calls   int
}

func (f *fakeSearcher) Name() string { return f.name }

func (f *fakeSearcher) Search(context.Context, string, string) ([]SearchResult, error) {
	f.calls++
	return f.results, f.err
}

func TestHTTPClientHandles500(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	var v map[string]any
	err := GetJSONWithRetry(context.Background(), NewHTTPClient(2*time.Second), srv.URL, nil, &v)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, 3, calls)
}

func TestHTTPClientDoesNotRetry404(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	var v map[string]any
	err := GetJSONWithRetry(context.Background(), NewHTTPClient(2*time.Second), srv.URL, nil, &v)
	assert.True(t, isNotFound(err))
	assert.Equal(t, 1, calls)
}

func TestHTTPClientHandlesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	var out map[string]any
	err := getJSON(context.Background(), NewHTTPClient(50*time.Millisecond), srv.URL, nil, &out)
	require.Error(t, err)
}

func TestSerpAPISearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		assert.Equal(t, "Austin, TX", r.URL.Query().Get("location"))
		w.Write([]byte(`{"organic_results":[
			{"title":"a","link":"l1","snippet":"s1","position":1},
			{"title":"b"},{"title":"c"},{"title":"d"},{"title":"e"},{"title":"f"}]}`))
	}))
	defer srv.Close()

	s := &SerpAPI{Key: "k", BaseURL: srv.URL, Client: srv.Client()}
	res, err := s.Search(context.Background(), "acme", "Austin, TX")
	require.NoError(t, err)
	assert.Len(t, res, 5)
	assert.Equal(t, "l1", res[0].Link)
}

func TestGoogleCSESearchNumbersPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cx1", r.URL.Query().Get("cx"))
		w.Write([]byte(`{"items":[{"title":"x"},{"title":"y"}]}`))
	}))
	defer srv.Close()

	g := &GoogleCSE{Key: "k", EngineID: "cx1", BaseURL: srv.URL, Client: srv.Client()}
	res, err := g.Search(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, 2, res[1].Position)
}

func TestSearchChainFallsBack(t *testing.T) {
	first := &fakeSearcher{name: "a", err: errors.New("down")}
	second := &fakeSearcher{name: "b", results: []SearchResult{{Title: "ok"}}}
	res, err := SearchChain{first, second}.Search(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "ok", res[0].Title)
	assert.Equal(t, "a,b", SearchChain{first, second}.Name())

	_, err = SearchChain{first}.Search(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = SearchChain{}.Search(context.Background(), "q", "")
	assert.Equal(t, ErrNoProvider, err)
}

func TestSearchVerifier(t *testing.T) {
	ctx := context.Background()

	v, err := SearchVerifier{}.Verify(ctx, "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, v)

	v, err = SearchVerifier{Searcher: SearchChain{}}.Verify(ctx, "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, VerdictUnknown, v)

	hit := &fakeSearcher{results: []SearchResult{{Title: "Other"}, {Snippet: "about ACME Robotics inc"}}}
	v, err = SearchVerifier{Searcher: hit}.Verify(ctx, "Acme Robotics", "Austin")
	require.NoError(t, err)
	assert.Equal(t, VerdictExists, v)

	miss := &fakeSearcher{results: []SearchResult{{Title: "Unrelated"}}}
	v, _ = SearchVerifier{Searcher: miss}.Verify(ctx, "Acme Ghost Corp", "")
	assert.Equal(t, VerdictMissing, v)

	none := &fakeSearcher{}
	v, _ = SearchVerifier{Searcher: none}.Verify(ctx, "Acme Ghost Corp", "")
	assert.Equal(t, VerdictMissing, v)

	broken := &fakeSearcher{err: errors.New("quota")}
	v, err = SearchVerifier{Searcher: broken}.Verify(ctx, "Acme", "")
	assert.Error(t, err)
	assert.Equal(t, VerdictUnknown, v)
}

func TestClearbitLookupByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer ck", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/domains/find":
			assert.Equal(t, "Acme", r.URL.Query().Get("name"))
			w.Write([]byte(`{"domain":"acme.com"}`))
		case "/v2/companies/find":
			assert.Equal(t, "acme.com", r.URL.Query().Get("domain"))
			w.Write([]byte(`{"name":"Acme","domain":"acme.com","description":"Rockets",
				"category":{"industry":"Aerospace"},"metrics":{"employees":120},
				"geo":{"city":"Austin","state":"TX"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := &Clearbit{Key: "ck", BaseURL: srv.URL, Client: srv.Client()}
	res, err := c.Lookup(context.Background(), "Acme", "")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "clearbit", res.Provider)
	assert.Equal(t, "120", res.Data.Employees)
	assert.Equal(t, "Austin, TX", res.Data.Location)
	assert.Equal(t, "acme.com", res.Data.Website)
}

func TestClearbitNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := &Clearbit{Key: "ck", BaseURL: srv.URL, Client: srv.Client()}
	res, err := c.Lookup(context.Background(), "Nobody", "https://www.nobody.io/about")
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestDataChain(t *testing.T) {
	web := WebData{Searcher: &fakeSearcher{results: []SearchResult{{Link: "https://acme.com", Snippet: "Acme makes rockets"}}}}
	res, err := DataChain{WebData{}, web}.Lookup(context.Background(), "Acme", "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "web_search", res.Provider)
	assert.Equal(t, "Acme makes rockets", res.Data.Description)

	broken := WebData{Searcher: &fakeSearcher{err: errors.New("down")}}
	res, err = DataChain{broken}.Lookup(context.Background(), "Acme", "")
	assert.Error(t, err)
	assert.False(t, res.Success)

	res, err = DataChain{}.Lookup(context.Background(), "Acme", "")
	assert.NoError(t, err)
	assert.False(t, res.Success)
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "acme.com", Domain("https://www.acme.com/about"))
	assert.Equal(t, "acme.com", Domain("acme.com"))
	assert.Equal(t, "", Domain("  "))
}

func TestFromConfig(t *testing.T) {
	v, d := FromConfig(config.Search{}, nil)
	assert.Nil(t, v)
	assert.Empty(t, d)

	v, d = FromConfig(config.Search{SerpAPIKey: "s", ClearbitKey: "c"}, nil)
	assert.NotNil(t, v)
	assert.Len(t, d, 2)
}
