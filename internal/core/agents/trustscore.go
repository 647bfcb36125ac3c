package agents

import (
	"github.com/tarkai/trustlens/internal/core/agent"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

// TrustScoreRequest aggregates everything the pipeline learned. Vendor and
// CVE analysis are optional: scoring still runs when earlier enrichment
// produced nothing to analyze.
type TrustScoreRequest struct {
	Entity            domain.Entity       `json:"entity"`
	Vendor            *domain.Vendor      `json:"vendor,omitempty"`
	CVEAnalysis       *domain.CVEAnalysis `json:"cve_analysis,omitempty"`
	AdditionalContext string              `json:"additional_context,omitempty"`
}

func (r TrustScoreRequest) Validate() error {
	return r.Entity.Validate()
}

type TrustScoreResponse struct {
	TrustScore domain.TrustScore `json:"trust_score"`
}

func (r *TrustScoreResponse) Validate() error {
	return r.TrustScore.Validate()
}

// TrustScoreAgent produces the terminal composite trust score.
type TrustScoreAgent = agent.Agent[TrustScoreRequest, TrustScoreResponse]

func NewTrustScoreAgent(llm ports.LLMProvider) (*TrustScoreAgent, error) {
	return agent.New[TrustScoreRequest, TrustScoreResponse](llm, agent.Definition{
		Name:           "trust_score",
		SystemTemplate: "templates/trust_score/system.tmpl",
		UserTemplate:   "templates/trust_score/user.tmpl",
		MaxTokens:      budgetTrustScore,
	}, templateFS)
}
