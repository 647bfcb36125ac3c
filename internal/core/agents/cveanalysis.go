package agents

import (
	"fmt"

	"github.com/tarkai/trustlens/internal/core/agent"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

// CVEAnalysisRequest carries the entity and the full deduplicated CVE set.
type CVEAnalysisRequest struct {
	Entity domain.Entity `json:"entity"`
	CVEs   []domain.CVE  `json:"cves"`
}

func (r CVEAnalysisRequest) Validate() error {
	if err := r.Entity.Validate(); err != nil {
		return err
	}
	if len(r.CVEs) == 0 {
		return fmt.Errorf("at least one CVE is required for analysis")
	}
	return nil
}

type CVEAnalysisResponse struct {
	RiskAssessment          string         `json:"risk_assessment"`
	CriticalVulnerabilities []string       `json:"critical_vulnerabilities"`
	Recommendations         []string       `json:"recommendations"`
	SeverityBreakdown       map[string]int `json:"severity_breakdown"`
	TotalCVEs               int            `json:"total_cves"`
}

// ToDomain converts the response into the persisted analysis payload.
func (r *CVEAnalysisResponse) ToDomain() *domain.CVEAnalysis {
	return &domain.CVEAnalysis{
		RiskAssessment:          r.RiskAssessment,
		CriticalVulnerabilities: r.CriticalVulnerabilities,
		Recommendations:         r.Recommendations,
		SeverityBreakdown:       r.SeverityBreakdown,
		TotalCVEs:               r.TotalCVEs,
	}
}

// CVEAnalysisAgent produces the long-form vulnerability analysis.
type CVEAnalysisAgent = agent.Agent[CVEAnalysisRequest, CVEAnalysisResponse]

func NewCVEAnalysisAgent(llm ports.LLMProvider) (*CVEAnalysisAgent, error) {
	return agent.New[CVEAnalysisRequest, CVEAnalysisResponse](llm, agent.Definition{
		Name:           "cve_analysis",
		SystemTemplate: "templates/cve_analysis/system.tmpl",
		UserTemplate:   "templates/cve_analysis/user.tmpl",
		MaxTokens:      budgetCVEAnalysis,
	}, templateFS)
}
