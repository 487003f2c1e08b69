package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/smartreach/internal/llm"
)

func TestInstrumentCountsOutcomes(t *testing.T) {
	p := NewProm()
	fail := false
	g := p.Instrument(llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) {
		if fail {
			return "", &llm.Error{Provider: "openai", Kind: llm.KindRateLimit, Status: 429, Err: errors.New("slow down")}
		}
		return "ok", nil
	}))

	_, err := g.Generate(context.Background(), llm.Request{Purpose: "content"})
	require.NoError(t, err)
	fail = true
	_, err = g.Generate(context.Background(), llm.Request{Purpose: "content"})
	require.Error(t, err)
	_, _ = g.Generate(context.Background(), llm.Request{})

	assert.Equal(t, 1.0, testutil.ToFloat64(p.llmCalls.WithLabelValues("content", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.llmCalls.WithLabelValues("content", "rate_limit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.llmCalls.WithLabelValues("unknown", "rate_limit")))
}

func TestPromStagesAndHandler(t *testing.T) {
	p := NewProm()
	p.Stage("research", nil)
	p.Stage("research", errors.New("boom"))
	p.LeadDropped("unverified")
	p.ObserveQuality(82)
	p.ObserveRefine(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.stages.WithLabelValues("research", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.leadsDropped.WithLabelValues("unverified")))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "smartreach_message_quality_score_count 1"))
}

func TestNilPromIsSafe(t *testing.T) {
	var p *Prom
	p.Stage("save", nil)
	p.LeadDropped("x")
	p.ObserveQuality(1)
	p.ObserveRefine(1)
	assert.Nil(t, p.Registry())

	g := llm.GeneratorFunc(func(context.Context, llm.Request) (string, error) { return "x", nil })
	out, err := p.Instrument(g).Generate(context.Background(), llm.Request{})
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
