package extract

import (
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"

	"github.com/AngelCh415/smartreach/internal/models"
)

// DefaultScore substitutes any sub-score that cannot be read.
const DefaultScore = 75

type scoreField struct {
	key string
	set func(*models.Scores, int)
	pat *regexp.Regexp
}

var scoreFields = []scoreField{
	{"personalization", func(s *models.Scores, v int) { s.Personalization = v }, keyPattern("personalization")},
	{"clarity", func(s *models.Scores, v int) { s.Clarity = v }, keyPattern("clarity")},
	{"relevance", func(s *models.Scores, v int) { s.Relevance = v }, keyPattern("relevance")},
	{"call_to_action", func(s *models.Scores, v int) { s.CallToAction = v }, keyPattern("call_to_action")},
}

func keyPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)"?` + key + `"?\s*:\s*(\d+)`)
}

// Scores reads the four quality dimensions from an evaluator response and computes Overall.
// Phase one reads the JSON object; fields it cannot resolve are looked up with a lenient
// "key: N" pattern over the whole text; whatever is still missing becomes DefaultScore.
func Scores(text string) (models.Scores, Note) {
	var (
		out  models.Scores
		note Note
	)
	raw, hasObject := Object(text)
	if !hasObject {
		note.Reason = "no JSON object in response"
	}
	for _, f := range scoreFields {
		if hasObject {
			if v, ok := IntFrom(gjson.Get(raw, f.key)); ok {
				f.set(&out, models.Clamp(v))
				continue
			}
		}
		if m := f.pat.FindStringSubmatch(text); m != nil {
			if v, ok := digits(m[1]); ok {
				f.set(&out, models.Clamp(v))
				continue
			}
		}
		f.set(&out, DefaultScore)
		note.Defaulted = append(note.Defaulted, f.key)
	}
	if note.Reason == "" && len(note.Defaulted) > 0 {
		note.Reason = fmt.Sprintf("%d of %d scores missing", len(note.Defaulted), len(scoreFields))
	}
	return out.WithOverall(), note
}
