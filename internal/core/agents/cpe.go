package agents

import (
	"fmt"

	"github.com/tarkai/trustlens/internal/core/agent"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

// CPEResolverRequest asks for platform identifiers matching an entity.
type CPEResolverRequest struct {
	EntityData domain.Entity `json:"entity_data"`
}

func (r CPEResolverRequest) Validate() error {
	return r.EntityData.Validate()
}

type CPEResolverResponse struct {
	CPEs []domain.CPE `json:"cpes"`
}

func (r *CPEResolverResponse) Validate() error {
	for i, cpe := range r.CPEs {
		if cpe.FullCPE == "" {
			return fmt.Errorf("cpes[%d]: full_cpe is required", i)
		}
	}
	return nil
}

// CPEResolverAgent generates CPE identifiers used as vulnerability lookup keys.
type CPEResolverAgent = agent.Agent[CPEResolverRequest, CPEResolverResponse]

func NewCPEResolverAgent(llm ports.LLMProvider) (*CPEResolverAgent, error) {
	return agent.New[CPEResolverRequest, CPEResolverResponse](llm, agent.Definition{
		Name:           "cpe_resolver",
		SystemTemplate: "templates/cpe_resolver/system.tmpl",
		UserTemplate:   "templates/cpe_resolver/user.tmpl",
		MaxTokens:      budgetCPEResolver,
	}, templateFS)
}
