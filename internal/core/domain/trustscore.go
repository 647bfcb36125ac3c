package domain

import "fmt"

// TrustLevel is the qualitative band for a trust score.
type TrustLevel string

const (
	TrustVeryLow  TrustLevel = "very_low"
	TrustLow      TrustLevel = "low"
	TrustMedium   TrustLevel = "medium"
	TrustHigh     TrustLevel = "high"
	TrustVeryHigh TrustLevel = "very_high"
)

// TrustCategory is one of the fixed dimensions a trust score is broken into.
type TrustCategory string

const (
	TrustSecurity             TrustCategory = "security"
	TrustPrivacy              TrustCategory = "privacy"
	TrustCompliance           TrustCategory = "compliance"
	TrustVendorReputation     TrustCategory = "vendor_reputation"
	TrustDataHandling         TrustCategory = "data_handling"
	TrustTransparency         TrustCategory = "transparency"
	TrustBusinessContinuity   TrustCategory = "business_continuity"
	TrustTechnicalReliability TrustCategory = "technical_reliability"
)

// CategoryScore holds the per-category verdict with its supporting reasoning.
type CategoryScore struct {
	Score      float64    `json:"score"`
	Level      TrustLevel `json:"level"`
	Reasoning  string     `json:"reasoning"`
	KeyFactors []string   `json:"key_factors"`
	Risks      []string   `json:"risks,omitempty"`
	Strengths  []string   `json:"strengths,omitempty"`
}

// TrustScore is the terminal composite output of the pipeline.
type TrustScore struct {
	OverallScore float64    `json:"overall_score"`
	OverallLevel TrustLevel `json:"overall_level"`

	CategoryScores map[TrustCategory]CategoryScore `json:"category_scores"`

	Summary            string   `json:"summary"`
	KeyRecommendations []string `json:"key_recommendations,omitempty"`

	ConfidenceScore       float64  `json:"confidence_score"`
	AssessmentLimitations []string `json:"assessment_limitations,omitempty"`
}

// Validate checks score ranges on the overall and per-category values.
func (t *TrustScore) Validate() error {
	if t.OverallScore < 0 || t.OverallScore > 100 {
		return fmt.Errorf("trust score: overall_score %.2f out of range [0,100]", t.OverallScore)
	}
	if t.ConfidenceScore < 0 || t.ConfidenceScore > 100 {
		return fmt.Errorf("trust score: confidence_score %.2f out of range [0,100]", t.ConfidenceScore)
	}
	for cat, cs := range t.CategoryScores {
		if cs.Score < 0 || cs.Score > 100 {
			return fmt.Errorf("trust score: category %s score %.2f out of range [0,100]", cat, cs.Score)
		}
	}
	return nil
}
