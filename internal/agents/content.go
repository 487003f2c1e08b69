package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/AngelCh415/smartreach/internal/llm"
	"github.com/AngelCh415/smartreach/internal/models"
)

const (
	DefaultSubject = "Partnership Opportunity"
	defaultSender  = "Our Company"
	subjectMarker  = "subject:"
)

type ContentWriter struct {
	gen   llm.Generator
	model string
}

func NewContentWriter(gen llm.Generator, model string) *ContentWriter {
	return &ContentWriter{gen: gen, model: model}
}

// Write drafts one outreach email for lead. The result always begins with a subject line.
func (w *ContentWriter) Write(ctx context.Context, lead models.Lead, brief Brief) (string, error) {
	return w.write(ctx, promptData{Brief: brief, Lead: lead}, "content")
}

// Rewrite drafts a new version of previous that addresses feedback.
func (w *ContentWriter) Rewrite(ctx context.Context, lead models.Lead, brief Brief, previous, feedback string) (string, error) {
	return w.write(ctx, promptData{Brief: brief, Lead: lead, Content: previous, Feedback: feedback}, "rewrite")
}

func (w *ContentWriter) write(ctx context.Context, data promptData, purpose string) (string, error) {
	if strings.TrimSpace(data.Brief.Sender) == "" {
		data.Brief.Sender = defaultSender
	}
	prompt, err := render(promptEmail, data)
	if err != nil {
		return "", err
	}
	text, err := w.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Model:       w.model,
		Temperature: tempContent,
		Purpose:     purpose,
	})
	if err != nil {
		return "", fmt.Errorf("generate content for %s: %w", data.Lead.Name, err)
	}
	return ensureSubject(text), nil
}

func ensureSubject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(strings.ToLower(text), subjectMarker) {
		return text
	}
	return "Subject: " + DefaultSubject + "\n\n" + text
}

// SplitArtifact separates the subject line from the body of generated content.
// Content without a subject line has an empty subject.
func SplitArtifact(content string) (subject, body string) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(strings.ToLower(content), subjectMarker) {
		return "", content
	}
	first, rest, _ := strings.Cut(content, "\n")
	return strings.TrimSpace(first[len(subjectMarker):]), strings.TrimSpace(rest)
}
