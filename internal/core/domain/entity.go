package domain

import "fmt"

// EntityCategory classifies the product under assessment.
type EntityCategory string

const (
	CategoryFileSharing EntityCategory = "filesharing"
	CategoryChat        EntityCategory = "chat"
	CategoryGenAITool   EntityCategory = "gen_ai_tool"
	CategoryCRM         EntityCategory = "crm"
)

// Valid reports whether the category is one of the known values.
func (c EntityCategory) Valid() bool {
	switch c {
	case CategoryFileSharing, CategoryChat, CategoryGenAITool, CategoryCRM:
		return true
	}
	return false
}

// Vendor identifies the company behind a product.
type Vendor struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
}

// Entity is the canonical resolved representation of the product. It is
// produced once by entity resolution and read-only for later stages.
type Entity struct {
	Name        string         `json:"name"`
	Vendor      Vendor         `json:"vendor"`
	Category    EntityCategory `json:"category"`
	Description string         `json:"description"`
	Usage       string         `json:"usage"`
	Website     string         `json:"website,omitempty"`
	LogoURL     string         `json:"logo_url,omitempty"`
}

// Validate checks the required fields of a resolved entity.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entity: name is required")
	}
	if e.Vendor.Name == "" {
		return fmt.Errorf("entity: vendor name is required")
	}
	if !e.Category.Valid() {
		return fmt.Errorf("entity: unknown category %q", e.Category)
	}
	return nil
}
