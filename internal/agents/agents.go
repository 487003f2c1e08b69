// Package agents holds the generation-backed pipeline steps: lead research, content writing,
// quality evaluation and the refinement loop that ties the last two together.
package agents

import "github.com/AngelCh415/smartreach/internal/config"

// Brief is what every generated artifact is written about and on whose behalf.
type Brief struct {
	ProductService string
	Context        string
	Angle          string
	Sender         string
}

// Models names the model used for each kind of call.
type Models struct {
	Research string
	Enrich   string
	Content  string
	Quality  string
}

func ModelsFrom(cfg config.LLM) Models {
	return Models{
		Research: cfg.ResearchModel,
		Enrich:   cfg.EnrichModel,
		Content:  cfg.ContentModel,
		Quality:  cfg.QualityModel,
	}
}

const (
	tempResearch = 0.8
	tempEnrich   = 0.7
	tempContent  = 0.7
	tempFeedback = 0.5
	tempQuality  = 0.3
)
