package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AngelCh415/smartreach/internal/models"
)

func TestObjectAndArraySlicing(t *testing.T) {
	raw, ok := Object("Sure! Here you go:\n{\"a\": {\"b\": 1}}\nThanks")
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, raw)

	_, ok = Object("no braces here")
	assert.False(t, ok)

	_, ok = Object("} backwards {")
	assert.False(t, ok)

	raw, ok = Array("```json\n[{\"name\":\"x\"}]\n```")
	require.True(t, ok)
	assert.Equal(t, `[{"name":"x"}]`, raw)

	_, ok = Array("[not json")
	assert.False(t, ok)
}

func TestDecodeArray(t *testing.T) {
	var got []struct {
		Name string `json:"name"`
	}
	require.True(t, DecodeArray(`prefix [{"name":"Acme"},{"name":"Globex"}] suffix`, &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "Globex", got[1].Name)

	got = nil
	assert.False(t, DecodeArray(`[{"name": }]`, &got))
}

func TestStringField(t *testing.T) {
	raw := `{"description":"d","recent_news":42}`
	assert.Equal(t, "d", StringField(raw, "description", "x"))
	assert.Equal(t, "none", StringField(raw, "recent_news", "none"))
	assert.Equal(t, "none", StringField(raw, "missing", "none"))
}

func TestScores(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      models.Scores
		defaulted []string
	}{
		{
			name: "clean json",
			text: `{"personalization": 80, "clarity": 70, "relevance": 90, "call_to_action": 60}`,
			want: models.Scores{Personalization: 80, Clarity: 70, Relevance: 90, CallToAction: 60, Overall: 77},
		},
		{
			name: "wrapped in prose with floats and strings",
			text: "Here are the scores:\n{\"personalization\": 88.9, \"clarity\": \"about 70 points\", \"relevance\": 90, \"call_to_action\": 60}\nDone.",
			want: models.Scores{Personalization: 88, Clarity: 70, Relevance: 90, CallToAction: 60},
		},
		{
			name: "out of range values are clamped",
			text: `{"personalization": 140, "clarity": -20, "relevance": 100, "call_to_action": 100}`,
			want: models.Scores{Personalization: 100, Clarity: 0, Relevance: 100, CallToAction: 100},
		},
		{
			name: "overflowing digits clamp to the top",
			text: `{"personalization": "99999999999999999999", "clarity": 70, "relevance": 90, "call_to_action": 60}`,
			want: models.Scores{Personalization: 100, Clarity: 70, Relevance: 90, CallToAction: 60},
		},
		{
			name: "overflowing key pattern clamps",
			text: "personalization: 123456789012345678901234\nclarity: 65\nrelevance: 70\ncall_to_action: 80",
			want: models.Scores{Personalization: 100, Clarity: 65, Relevance: 70, CallToAction: 80},
		},
		{
			name:      "missing and non numeric fields default",
			text:      `{"personalization": "great", "clarity": null, "relevance": 90}`,
			want:      models.Scores{Personalization: 75, Clarity: 75, Relevance: 90, CallToAction: 75},
			defaulted: []string{"personalization", "clarity", "call_to_action"},
		},
		{
			name: "no json falls back to key patterns",
			text: "Personalization: 60\nClarity: 65\nrelevance: 70\ncall_to_action: 80",
			want: models.Scores{Personalization: 60, Clarity: 65, Relevance: 70, CallToAction: 80},
		},
		{
			name:      "garbage yields defaults",
			text:      "I cannot evaluate this email.",
			want:      models.Scores{Personalization: 75, Clarity: 75, Relevance: 75, CallToAction: 75},
			defaulted: []string{"personalization", "clarity", "relevance", "call_to_action"},
		},
		{
			name:      "truncated json yields defaults",
			text:      `{"personalization": 80, "clarity": `,
			want:      models.Scores{Personalization: 80, Clarity: 75, Relevance: 75, CallToAction: 75},
			defaulted: []string{"clarity", "relevance", "call_to_action"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, note := Scores(tt.text)
			want := tt.want.WithOverall()
			assert.Equal(t, want, got)
			assert.Equal(t, tt.defaulted, note.Defaulted)
			for _, v := range []int{got.Personalization, got.Clarity, got.Relevance, got.CallToAction, got.Overall} {
				assert.GreaterOrEqual(t, v, 0)
				assert.LessOrEqual(t, v, 100)
			}
		})
	}
}

func TestScoresNoteReason(t *testing.T) {
	_, note := Scores("nothing")
	assert.Equal(t, "no JSON object in response", note.Reason)

	_, note = Scores(`{"personalization": 1, "clarity": 2, "relevance": 3, "call_to_action": 4}`)
	assert.True(t, note.Empty())
}
