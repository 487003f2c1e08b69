package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AngelCh415/smartreach/internal/llm"
)

// Prom holds the pipeline collectors. All methods are safe on a nil *Prom.
type Prom struct {
	reg *prometheus.Registry

	llmCalls     *prometheus.CounterVec
	leadsDropped *prometheus.CounterVec
	stages       *prometheus.CounterVec
	quality      prometheus.Histogram
	refineRounds prometheus.Histogram
}

func NewProm() *Prom {
	p := &Prom{
		reg: prometheus.NewRegistry(),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartreach",
			Name:      "llm_calls_total",
			Help:      "Generation calls by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		leadsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartreach",
			Name:      "leads_dropped_total",
			Help:      "Research candidates removed before reaching the caller.",
		}, []string{"reason"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smartreach",
			Name:      "campaign_stages_total",
			Help:      "Campaign stage operations by stage and result.",
		}, []string{"stage", "result"}),
		quality: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartreach",
			Name:      "message_quality_score",
			Help:      "Overall quality score of generated messages.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		refineRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartreach",
			Name:      "refine_rounds",
			Help:      "Refinement rounds spent per message.",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}),
	}
	p.reg.MustRegister(p.llmCalls, p.leadsDropped, p.stages, p.quality, p.refineRounds)
	return p
}

func (p *Prom) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Prom) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.reg
}

func (p *Prom) LeadDropped(reason string) {
	if p == nil {
		return
	}
	p.leadsDropped.WithLabelValues(reason).Inc()
}

func (p *Prom) Stage(stage string, err error) {
	if p == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.stages.WithLabelValues(stage, result).Inc()
}

func (p *Prom) ObserveQuality(score int) {
	if p == nil {
		return
	}
	p.quality.Observe(float64(score))
}

func (p *Prom) ObserveRefine(rounds int) {
	if p == nil {
		return
	}
	p.refineRounds.Observe(float64(rounds))
}

// Instrument counts every call made through g.
func (p *Prom) Instrument(g llm.Generator) llm.Generator {
	if p == nil {
		return g
	}
	return llm.GeneratorFunc(func(ctx context.Context, req llm.Request) (string, error) {
		out, err := g.Generate(ctx, req)
		purpose := req.Purpose
		if purpose == "" {
			purpose = "unknown"
		}
		p.llmCalls.WithLabelValues(purpose, outcome(err)).Inc()
		return out, err
	})
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *llm.Error
	if errors.As(err, &e) {
		return string(e.Kind)
	}
	return "error"
}
