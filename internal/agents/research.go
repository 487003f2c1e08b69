package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/AngelCh415/smartreach/internal/extract"
	"github.com/AngelCh415/smartreach/internal/llm"
	"github.com/AngelCh415/smartreach/internal/lookup"
	"github.com/AngelCh415/smartreach/internal/metrics"
	"github.com/AngelCh415/smartreach/internal/models"
	"github.com/AngelCh415/smartreach/internal/utils"
)

const noRecentNews = "No recent news available"

type Researcher struct {
	gen      llm.Generator
	verifier lookup.Verifier     // nil when verification is off
	data     lookup.DataProvider // nil when no data provider is configured
	pool     *utils.Pool
	models   Models
	log      *slog.Logger
	prom     *metrics.Prom
}

func NewResearcher(gen llm.Generator, verifier lookup.Verifier, data lookup.DataProvider, pool *utils.Pool, m Models, log *slog.Logger, prom *metrics.Prom) *Researcher {
	if pool == nil {
		pool = utils.NewPool(1)
	}
	return &Researcher{gen: gen, verifier: verifier, data: data, pool: pool, models: m, log: log, prom: prom}
}

// Research asks for MaxLeads candidates in one call, then verifies, looks up and enriches
// each candidate independently. Only a failure of the bulk call is returned; a response that
// cannot be parsed yields an empty list. Candidates dropped by verification are not replaced.
func (r *Researcher) Research(ctx context.Context, c models.Criteria) ([]models.Lead, error) {
	if c.MaxLeads <= 0 {
		return []models.Lead{}, nil
	}
	brief := Brief{ProductService: c.ProductService, Context: c.Context, Angle: c.Angle}
	prompt, err := render(promptCompanyGeneration, promptData{Brief: brief, Area: c.Area, MaxLeads: c.MaxLeads})
	if err != nil {
		return nil, err
	}
	text, err := r.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Model:       r.models.Research,
		Temperature: tempResearch,
		Purpose:     "research",
	})
	if err != nil {
		return nil, fmt.Errorf("generate companies: %w", err)
	}

	cands, ok := candidates(text)
	if !ok {
		r.log.Warn("unparseable company list", slog.Int("len", len(text)))
		return []models.Lead{}, nil
	}
	if len(cands) > c.MaxLeads {
		cands = cands[:c.MaxLeads]
	}
	r.log.Info("companies generated", slog.Int("count", len(cands)))

	kept := make([]*models.Lead, len(cands))
	err = r.pool.Each(ctx, len(cands), func(ctx context.Context, i int) error {
		if lead, keep := r.process(ctx, cands[i], brief); keep {
			kept[i] = &lead
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Lead, 0, len(kept))
	for _, l := range kept {
		if l != nil {
			out = append(out, *l)
		}
	}
	if len(out) > c.MaxLeads {
		out = out[:c.MaxLeads]
	}
	return out, nil
}

// candidates reads the company array field by field so one odd value does not lose the batch.
func candidates(text string) ([]models.Lead, bool) {
	raw, ok := extract.Array(text)
	if !ok {
		return nil, false
	}
	var out []models.Lead
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		l := models.Lead{
			ID:          v.Get("id").String(),
			Name:        strings.TrimSpace(v.Get("name").String()),
			Industry:    v.Get("industry").String(),
			Location:    v.Get("location").String(),
			Description: v.Get("description").String(),
			Website:     v.Get("website").String(),
			Employees:   v.Get("employees").String(),
		}
		if l.Employees == "" {
			l.Employees = "Unknown"
		}
		if l.Website == "" {
			l.Website = "https://" + strings.ToLower(strings.ReplaceAll(l.Name, " ", "")) + ".com"
		}
		out = append(out, l)
		return true
	})
	return out, true
}

// process runs the per-candidate steps. It reports false only when verification says the
// company does not exist.
func (r *Researcher) process(ctx context.Context, lead models.Lead, brief Brief) (models.Lead, bool) {
	log := r.log.With(slog.String("company", lead.Name))

	if r.verifier != nil {
		v, err := r.verifier.Verify(ctx, lead.Name, lead.Location)
		switch {
		case err != nil:
			log.Warn("verification failed", slog.String("err", err.Error()))
		case v == lookup.VerdictMissing:
			log.Info("dropping unverified company")
			r.prom.LeadDropped("unverified")
			return lead, false
		default:
			verified := true
			lead.Verified = &verified
		}
	}

	if r.data != nil {
		res, err := r.data.Lookup(ctx, lead.Name, lead.Website)
		switch {
		case err != nil:
			log.Warn("company data lookup failed", slog.String("err", err.Error()))
		case res.Success:
			mergeCompanyData(&lead, res)
			log.Debug("company data merged", slog.String("provider", res.Provider))
		}
	}

	lead = r.enrich(ctx, lead, brief)
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	return lead, true
}

func mergeCompanyData(lead *models.Lead, res lookup.Result) {
	if res.Data.Description != "" {
		lead.Description = res.Data.Description
	}
	if res.Data.Website != "" {
		lead.Website = res.Data.Website
	}
	if res.Data.Employees != "" {
		lead.Employees = res.Data.Employees
	}
	lead.DataSource = res.Provider
}

// enrich adds relevance and recent news. It never fails; a bad call falls back to templated text.
func (r *Researcher) enrich(ctx context.Context, lead models.Lead, brief Brief) models.Lead {
	fallback := func() models.Lead {
		lead.RelevanceReason = fmt.Sprintf("Company in %s industry could benefit from %s", lead.Industry, brief.ProductService)
		lead.RecentNews = noRecentNews
		return lead
	}
	prompt, err := render(promptCompanyEnrichment, promptData{Brief: brief, Lead: lead})
	if err != nil {
		return fallback()
	}
	text, err := r.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Model:       r.models.Enrich,
		Temperature: tempEnrich,
		Purpose:     "enrich",
	})
	if err != nil {
		r.log.Warn("enrichment failed", slog.String("company", lead.Name), slog.String("err", err.Error()))
		return fallback()
	}
	raw, ok := extract.Object(text)
	if !ok {
		return fallback()
	}
	if lead.DataSource == "" {
		lead.Description = extract.StringField(raw, "description", lead.Description)
	}
	lead.RelevanceReason = extract.StringField(raw, "relevance_reason", "")
	lead.RecentNews = extract.StringField(raw, "recent_news", noRecentNews)
	if lead.RelevanceReason == "" {
		lead.RelevanceReason = fmt.Sprintf("Company in %s industry could benefit from %s", lead.Industry, brief.ProductService)
	}
	return lead
}
