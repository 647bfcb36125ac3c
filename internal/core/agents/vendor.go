package agents

import (
	"fmt"

	"github.com/tarkai/trustlens/internal/core/agent"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

// VendorInformationRequest asks for enrichment of a resolved entity's vendor.
type VendorInformationRequest struct {
	Entity domain.Entity `json:"entity"`
}

func (r VendorInformationRequest) Validate() error {
	return r.Entity.Validate()
}

type VendorInformationResponse struct {
	Vendor domain.Vendor `json:"vendor"`
}

func (r *VendorInformationResponse) Validate() error {
	if r.Vendor.Name == "" {
		return fmt.Errorf("vendor name is required")
	}
	return nil
}

// VendorInformationAgent enriches the vendor behind a resolved entity.
type VendorInformationAgent = agent.Agent[VendorInformationRequest, VendorInformationResponse]

func NewVendorInformationAgent(llm ports.LLMProvider) (*VendorInformationAgent, error) {
	return agent.New[VendorInformationRequest, VendorInformationResponse](llm, agent.Definition{
		Name:           "vendor_information",
		SystemTemplate: "templates/vendor_information/system.tmpl",
		UserTemplate:   "templates/vendor_information/user.tmpl",
		MaxTokens:      budgetVendorInfo,
	}, templateFS)
}
