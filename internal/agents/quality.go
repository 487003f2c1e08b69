package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/AngelCh415/smartreach/internal/extract"
	"github.com/AngelCh415/smartreach/internal/llm"
	"github.com/AngelCh415/smartreach/internal/models"
)

type Evaluator struct {
	gen   llm.Generator
	model string
	log   *slog.Logger
}

func NewEvaluator(gen llm.Generator, model string, log *slog.Logger) *Evaluator {
	return &Evaluator{gen: gen, model: model, log: log}
}

// Evaluate scores content against the rubric. Only the generation call can fail;
// anything unreadable in the response becomes the default score.
func (e *Evaluator) Evaluate(ctx context.Context, content string, lead models.Lead, productService string) (models.Scores, error) {
	prompt, err := render(promptQuality, promptData{
		Brief:   Brief{ProductService: productService},
		Lead:    lead,
		Content: content,
	})
	if err != nil {
		return models.Scores{}, err
	}
	text, err := e.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Model:       e.model,
		Temperature: tempQuality,
		Purpose:     "quality",
	})
	if err != nil {
		return models.Scores{}, fmt.Errorf("evaluate content for %s: %w", lead.Name, err)
	}
	scores, note := extract.Scores(text)
	if !note.Empty() {
		e.log.Debug("quality scores defaulted",
			slog.String("company", lead.Name),
			slog.String("reason", note.Reason),
			slog.String("fields", strings.Join(note.Defaulted, ",")))
	}
	return scores, nil
}
