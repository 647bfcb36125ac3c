// Package agents holds the five fixed instantiations of the structured-output
// agent core used by the assessment pipeline. Each binds an input schema, an
// output schema, a prompt template pair and a token budget, nothing else.
package agents

import "embed"

//go:embed templates
var templateFS embed.FS

// Token budgets. Short structured answers get small budgets; long-form
// analytical output gets large ones so deep reasoning is not truncated.
const (
	budgetEntityResolution = 2048
	budgetVendorInfo       = 4096
	budgetCPEResolver      = 2048
	budgetCVEAnalysis      = 100192
	budgetTrustScore       = 150000
)
