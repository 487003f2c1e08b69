package lookup

import "github.com/AngelCh415/smartreach/internal/config"

// FromConfig wires the provider chains. Verification is nil when no search key is set;
// data lookup always exists but may be an empty chain.
func FromConfig(cfg config.Search, c HTTPClient) (Verifier, DataProvider) {
	var search SearchChain
	if cfg.SerpAPIKey != "" {
		search = append(search, &SerpAPI{Key: cfg.SerpAPIKey, Client: c})
	}
	if cfg.GoogleKey != "" && cfg.GoogleEngineID != "" {
		search = append(search, &GoogleCSE{Key: cfg.GoogleKey, EngineID: cfg.GoogleEngineID, Client: c})
	}

	var data DataChain
	if cfg.ClearbitKey != "" {
		data = append(data, &Clearbit{Key: cfg.ClearbitKey, Client: c})
	}
	if len(search) > 0 {
		data = append(data, WebData{Searcher: search})
	}

	if !cfg.VerificationEnabled() {
		return nil, data
	}
	return SearchVerifier{Searcher: search}, data
}
