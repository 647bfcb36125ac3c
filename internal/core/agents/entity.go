package agents

import (
	"github.com/tarkai/trustlens/internal/core/agent"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

// EntityResolutionRequest carries the raw assessment input to resolve.
type EntityResolutionRequest struct {
	EntityData domain.AssessmentInput `json:"entity_data"`
}

func (r EntityResolutionRequest) Validate() error {
	return domain.ValidateInput(r.EntityData)
}

// EntityResolutionResponse is the canonical resolved product.
type EntityResolutionResponse struct {
	ResolvedEntity domain.Entity `json:"resolved_entity"`
}

func (r *EntityResolutionResponse) Validate() error {
	return r.ResolvedEntity.Validate()
}

// EntityResolutionAgent resolves a product name to a canonical entity.
type EntityResolutionAgent = agent.Agent[EntityResolutionRequest, EntityResolutionResponse]

func NewEntityResolutionAgent(llm ports.LLMProvider) (*EntityResolutionAgent, error) {
	return agent.New[EntityResolutionRequest, EntityResolutionResponse](llm, agent.Definition{
		Name:           "entity_resolution",
		SystemTemplate: "templates/entity_resolution/system.tmpl",
		UserTemplate:   "templates/entity_resolution/user.tmpl",
		MaxTokens:      budgetEntityResolution,
	}, templateFS)
}
