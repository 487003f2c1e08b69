package agents

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/AngelCh415/smartreach/internal/models"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	promptCompanyGeneration = "company_generation"
	promptCompanyEnrichment = "company_enrichment"
	promptEmail             = "email"
	promptQuality           = "quality_evaluation"
	promptFeedback          = "feedback"
)

// promptData is the single value every template renders against.
type promptData struct {
	Brief    Brief
	Lead     models.Lead
	Area     string
	MaxLeads int
	Content  string
	Scores   models.Scores
	Feedback string
}

var prompts = mustParsePrompts(promptsYAML)

func mustParsePrompts(src []byte) map[string]*template.Template {
	t, err := parsePrompts(src)
	if err != nil {
		panic(err)
	}
	return t
}

func parsePrompts(src []byte) (map[string]*template.Template, error) {
	var raw map[string]string
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	out := make(map[string]*template.Template, len(raw))
	for name, body := range raw {
		t, err := template.New(name).Option("missingkey=error").Parse(body)
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", name, err)
		}
		out[name] = t
	}
	for _, name := range []string{promptCompanyGeneration, promptCompanyEnrichment, promptEmail, promptQuality, promptFeedback} {
		if _, ok := out[name]; !ok {
			return nil, fmt.Errorf("prompt %s: missing", name)
		}
	}
	return out, nil
}

func render(name string, data promptData) (string, error) {
	t, ok := prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt %s: missing", name)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return b.String(), nil
}
