package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/smartreach/internal/llm"
	"github.com/AngelCh415/smartreach/internal/models"
)

var acme = models.Lead{ID: "l1", Name: "Acme Robotics", Industry: "Manufacturing", Location: "Austin, TX", Description: "Robots"}

func constGen(text string, err error) *scripted {
	return newScripted(func(llm.Request, int) (string, error) { return text, err })
}

func TestWritePrependsDefaultSubject(t *testing.T) {
	w := NewContentWriter(constGen("  Hi Acme,\n\nLet's talk.\n", nil), "gpt-4")
	out, err := w.Write(context.Background(), acme, Brief{ProductService: "CRM"})
	require.NoError(t, err)
	assert.Equal(t, "Subject: Partnership Opportunity\n\nHi Acme,\n\nLet's talk.", out)
}

func TestWriteKeepsExistingSubject(t *testing.T) {
	w := NewContentWriter(constGen("subject: Faster robots\n\nHello", nil), "gpt-4")
	out, err := w.Write(context.Background(), acme, Brief{ProductService: "CRM"})
	require.NoError(t, err)
	assert.Equal(t, "subject: Faster robots\n\nHello", out)
}

func TestWriteDefaultsSender(t *testing.T) {
	gen := constGen("Subject: x\n\ny", nil)
	w := NewContentWriter(gen, "gpt-4")
	_, err := w.Write(context.Background(), acme, Brief{ProductService: "CRM"})
	require.NoError(t, err)
	assert.Contains(t, gen.prompt("content", 0), "You are writing as Our Company")

	_, err = w.Write(context.Background(), acme, Brief{ProductService: "CRM", Sender: "Marketmind AI Hub"})
	require.NoError(t, err)
	assert.Contains(t, gen.prompt("content", 1), "You are writing as Marketmind AI Hub")
}

func TestWritePropagatesGenerationError(t *testing.T) {
	cause := &llm.Error{Provider: "openai", Kind: llm.KindTransport, Err: errors.New("reset")}
	w := NewContentWriter(constGen("", cause), "gpt-4")
	_, err := w.Write(context.Background(), acme, Brief{})
	assert.ErrorIs(t, err, cause)
}

func TestSplitArtifact(t *testing.T) {
	cases := []struct {
		in, subject, body string
	}{
		{"Subject: Hello there\n\nBody line", "Hello there", "Body line"},
		{"SUBJECT:Quick\nBody", "Quick", "Body"},
		{"Subject: Only subject", "Only subject", ""},
		{"No subject here", "", "No subject here"},
	}
	for _, c := range cases {
		s, b := SplitArtifact(c.in)
		assert.Equal(t, c.subject, s, c.in)
		assert.Equal(t, c.body, b, c.in)
	}
}
