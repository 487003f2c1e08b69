package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AngelCh415/smartreach/internal/llm"
	"github.com/AngelCh415/smartreach/internal/metrics"
	"github.com/AngelCh415/smartreach/internal/models"
)

type RefineOptions struct {
	MinScore  int
	MaxRounds int
}

// Refined is the outcome of a refinement run. Scores is zero when no evaluator was supplied.
type Refined struct {
	Content string
	Scores  models.Scores
	Rounds  int
}

type Refiner struct {
	writer *ContentWriter
	eval   *Evaluator // nil skips scoring entirely
	gen    llm.Generator
	model  string
	log    *slog.Logger
	prom   *metrics.Prom
}

// NewRefiner builds the loop. gen and model are used for the improvement-feedback call.
func NewRefiner(writer *ContentWriter, eval *Evaluator, gen llm.Generator, model string, log *slog.Logger, prom *metrics.Prom) *Refiner {
	return &Refiner{writer: writer, eval: eval, gen: gen, model: model, log: log, prom: prom}
}

// Refine writes, scores and rewrites content until its overall score reaches MinScore or
// MaxRounds rewrites have been spent. Missing the threshold is not an error.
func (r *Refiner) Refine(ctx context.Context, lead models.Lead, brief Brief, opts RefineOptions) (Refined, error) {
	content, err := r.writer.Write(ctx, lead, brief)
	if err != nil {
		return Refined{}, err
	}
	if r.eval == nil {
		return Refined{Content: content}, nil
	}
	scores, err := r.eval.Evaluate(ctx, content, lead, brief.ProductService)
	if err != nil {
		return Refined{}, err
	}

	rounds := 0
	for scores.Overall < opts.MinScore && rounds < opts.MaxRounds {
		fb := r.feedback(ctx, content, scores, lead, brief)
		content, err = r.writer.Rewrite(ctx, lead, brief, content, fb)
		if err != nil {
			return Refined{}, err
		}
		scores, err = r.eval.Evaluate(ctx, content, lead, brief.ProductService)
		if err != nil {
			return Refined{}, err
		}
		rounds++
		r.log.Debug("refine round",
			slog.String("company", lead.Name),
			slog.Int("round", rounds),
			slog.Int("overall", scores.Overall))
	}
	r.prom.ObserveRefine(rounds)
	return Refined{Content: content, Scores: scores, Rounds: rounds}, nil
}

// feedback asks for improvement suggestions; on failure it names the weakest dimensions.
func (r *Refiner) feedback(ctx context.Context, content string, scores models.Scores, lead models.Lead, brief Brief) string {
	if r.gen != nil {
		prompt, err := render(promptFeedback, promptData{Brief: brief, Lead: lead, Content: content, Scores: scores})
		if err == nil {
			text, err := r.gen.Generate(ctx, llm.Request{
				Prompt:      prompt,
				Model:       r.model,
				Temperature: tempFeedback,
				Purpose:     "feedback",
			})
			if err == nil && strings.TrimSpace(text) != "" {
				return strings.TrimSpace(text)
			}
			if err != nil {
				r.log.Warn("feedback failed", slog.String("company", lead.Name), slog.String("err", err.Error()))
			}
		}
	}
	return templateFeedback(scores)
}

func templateFeedback(s models.Scores) string {
	weak := s.Weakest()
	dim := func(name string) string { return strings.ReplaceAll(name, "_", " ") }
	return fmt.Sprintf("Improve the %s and %s of the email; the overall score was %d.", dim(weak[0]), dim(weak[1]), s.Overall)
}
