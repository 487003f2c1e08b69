package models

// Scores is the per-dimension quality vector for one artifact. It is never persisted on its own;
// only Overall lands in Message.QualityScore.
type Scores struct {
	Personalization int `json:"personalization"`
	Clarity         int `json:"clarity"`
	Relevance       int `json:"relevance"`
	CallToAction    int `json:"call_to_action"`
	Overall         int `json:"overall"`
}

// Weights in tenths: 0.3, 0.2, 0.3, 0.2.
const (
	weightPersonalization = 3
	weightClarity         = 2
	weightRelevance       = 3
	weightCallToAction    = 2
)

// Overall combines the four dimensions as round(0.3p + 0.2c + 0.3r + 0.2a).
// Ties round half to even, matching scores stored by earlier versions of the service.
func Overall(personalization, clarity, relevance, callToAction int) int {
	total := weightPersonalization*Clamp(personalization) +
		weightClarity*Clamp(clarity) +
		weightRelevance*Clamp(relevance) +
		weightCallToAction*Clamp(callToAction)
	q, r := total/10, total%10
	if r > 5 || (r == 5 && q%2 == 1) {
		q++
	}
	return q
}

// WithOverall returns s with Overall recomputed from the dimensions.
func (s Scores) WithOverall() Scores {
	s.Personalization = Clamp(s.Personalization)
	s.Clarity = Clamp(s.Clarity)
	s.Relevance = Clamp(s.Relevance)
	s.CallToAction = Clamp(s.CallToAction)
	s.Overall = Overall(s.Personalization, s.Clarity, s.Relevance, s.CallToAction)
	return s
}

// Weakest returns the dimension names ordered from lowest to highest score.
func (s Scores) Weakest() []string {
	type dim struct {
		name  string
		score int
	}
	dims := []dim{
		{"personalization", s.Personalization},
		{"clarity", s.Clarity},
		{"relevance", s.Relevance},
		{"call_to_action", s.CallToAction},
	}
	// insertion sort, stable on ties
	for i := 1; i < len(dims); i++ {
		for j := i; j > 0 && dims[j].score < dims[j-1].score; j-- {
			dims[j], dims[j-1] = dims[j-1], dims[j]
		}
	}
	out := make([]string, len(dims))
	for i, d := range dims {
		out[i] = d.name
	}
	return out
}

func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
