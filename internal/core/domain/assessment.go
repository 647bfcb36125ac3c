package domain

import "time"

// AssessmentStatus tracks the lifecycle of an assessment record.
// COMPLETED and FAILED are terminal: once reached, the record never
// transitions again.
type AssessmentStatus string

const (
	StatusQueued     AssessmentStatus = "queued"
	StatusInProgress AssessmentStatus = "in_progress"
	StatusCompleted  AssessmentStatus = "completed"
	StatusFailed     AssessmentStatus = "failed"
)

// IsTerminal reports whether the status admits no further transitions.
func (s AssessmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AssessmentType controls the depth of the assessment.
type AssessmentType string

const (
	TypeSmall  AssessmentType = "small"
	TypeMedium AssessmentType = "medium"
	TypeLarge  AssessmentType = "large"
)

// AssessmentInput is the caller-supplied description of the product under
// assessment. Name doubles as the dedup key: one record per distinct name.
type AssessmentInput struct {
	Name       string `json:"name"`
	VendorName string `json:"vendor_name,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Assessment is the persisted record behind one pipeline run. Enrichment
// payloads are populated strictly in pipeline order; a failure leaves later
// payloads permanently absent.
type Assessment struct {
	ID     string           `json:"id"`
	Input  AssessmentInput  `json:"input_data"`
	Type   AssessmentType   `json:"assessment_type"`
	Status AssessmentStatus `json:"assessment_status"`

	Entity      *Entity      `json:"entity,omitempty"`
	Vendor      *Vendor      `json:"vendor,omitempty"`
	CVEAnalysis *CVEAnalysis `json:"cve_analysis,omitempty"`
	TrustScore  *TrustScore  `json:"trust_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
