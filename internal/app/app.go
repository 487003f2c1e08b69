// Package app wires the store, generation provider, lookups and agents into an orchestrator.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/AngelCh415/smartreach/internal/agents"
	"github.com/AngelCh415/smartreach/internal/config"
	"github.com/AngelCh415/smartreach/internal/export"
	"github.com/AngelCh415/smartreach/internal/httpx"
	"github.com/AngelCh415/smartreach/internal/llm"
	"github.com/AngelCh415/smartreach/internal/lookup"
	"github.com/AngelCh415/smartreach/internal/metrics"
	"github.com/AngelCh415/smartreach/internal/orchestrator"
	"github.com/AngelCh415/smartreach/internal/store"
	"github.com/AngelCh415/smartreach/internal/utils"
)

type App struct {
	Store        store.Store
	Orchestrator *orchestrator.Orchestrator
	History      *metrics.Service
	Prom         *metrics.Prom
	Verification bool
	Exporting    bool

	log *slog.Logger
}

type Option func(*options)

type options struct {
	gen   llm.Generator
	store store.Store
	http  lookup.HTTPClient
}

// WithGenerator replaces the provider selected by config.
func WithGenerator(g llm.Generator) Option { return func(o *options) { o.gen = g } }

// WithStore replaces the backend selected by config. The App takes ownership of st.
func WithStore(st store.Store) Option { return func(o *options) { o.store = st } }

func WithLookupClient(c lookup.HTTPClient) Option { return func(o *options) { o.http = c } }

func New(ctx context.Context, cfg config.Config, log *slog.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}

	gen := o.gen
	if gen == nil {
		var err error
		gen, err = llm.New(ctx, cfg.LLM, llm.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
	}

	st := o.store
	if st == nil {
		var err error
		st, err = store.Open(cfg.StoreDriver, cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	if o.http == nil {
		o.http = lookup.NewHTTPClient(cfg.HTTPTimeout)
	}

	prom := metrics.NewProm()
	gen = prom.Instrument(gen)

	verifier, data := lookup.FromConfig(cfg.Search, o.http)
	pool := utils.NewPool(cfg.WorkerPoolSize)
	m := agents.ModelsFrom(cfg.LLM)

	var exporter orchestrator.Exporter
	if sink := export.NewSink(cfg.SinkURL, cfg.SinkSecret, o.http); sink != nil {
		exporter = sink
	}

	writer := agents.NewContentWriter(gen, m.Content)
	eval := agents.NewEvaluator(gen, m.Quality, log)
	orch := orchestrator.New(orchestrator.Deps{
		Store:      st,
		Researcher: agents.NewResearcher(gen, verifier, data, pool, m, log, prom),
		Exporter:   exporter,
		Writer:     writer,
		Evaluator:  eval,
		Refiner:    agents.NewRefiner(writer, eval, gen, m.Quality, log, prom),
		Pool:       pool,
		Log:        log,
		Prom:       prom,
	}, orchestrator.Options{
		CacheTTL:      cfg.CampaignCacheTTL,
		Refine:        agents.RefineOptions{MinScore: cfg.RefineMinScore, MaxRounds: cfg.RefineMaxRounds},
		DefaultSender: cfg.DefaultSender,
	})

	return &App{
		Store:        st,
		Orchestrator: orch,
		History:      metrics.NewService(st),
		Prom:         prom,
		Verification: verifier != nil,
		Exporting:    exporter != nil,
		log:          log,
	}, nil
}

func (a *App) Handler() http.Handler {
	return httpx.NewRouter(a.log, a.Orchestrator, a.History, a.Store, a.Prom)
}

func (a *App) Close() error { return a.Store.Close() }
