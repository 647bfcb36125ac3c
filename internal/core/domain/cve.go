package domain

import "time"

// CPE is a Common Platform Enumeration identifier used as a lookup key for
// vulnerability search.
type CPE struct {
	Vendor  string `json:"vendor"`
	Product string `json:"product"`
	FullCPE string `json:"full_cpe"` // e.g. "cpe:2.3:a:slack:slack:*:*:*:*:*:*:*:*"
}

// CVESeverity is the qualitative CVSS severity classification.
type CVESeverity string

const (
	SeverityCritical CVESeverity = "CRITICAL"
	SeverityHigh     CVESeverity = "HIGH"
	SeverityMedium   CVESeverity = "MEDIUM"
	SeverityLow      CVESeverity = "LOW"
	SeverityNone     CVESeverity = "NONE"
)

// SeverityFromScore approximates a qualitative severity from a CVSS v2 base
// score, for records that carry no v3 metrics.
func SeverityFromScore(score float64) CVESeverity {
	switch {
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// CVEAffectedProduct describes one vendor/product/version range a CVE applies to.
type CVEAffectedProduct struct {
	Vendor                string `json:"vendor"`
	Product               string `json:"product"`
	Version               string `json:"version,omitempty"`
	VersionStartIncluding string `json:"version_start_including,omitempty"`
	VersionEndIncluding   string `json:"version_end_including,omitempty"`
	VersionStartExcluding string `json:"version_start_excluding,omitempty"`
	VersionEndExcluding   string `json:"version_end_excluding,omitempty"`
}

// CVE is a normalized vulnerability record from the NVD.
type CVE struct {
	ID           string      `json:"id"` // e.g. "CVE-2023-1234"
	Description  string      `json:"description"`
	Published    time.Time   `json:"published"`
	LastModified time.Time   `json:"last_modified,omitempty"`
	Severity     CVESeverity `json:"severity"`
	Score        float64     `json:"score,omitempty"`
	VectorString string      `json:"vector_string,omitempty"`

	References       []string             `json:"references,omitempty"`
	AffectedProducts []CVEAffectedProduct `json:"affected_products,omitempty"`
	CWEIDs           []string             `json:"cwe_ids,omitempty"`
}

// DeduplicateCVEs collapses a merged result set to one record per CVE id.
// The first occurrence wins; input order of equal ids is otherwise
// irrelevant, so callers may accumulate results concurrently.
func DeduplicateCVEs(cves []CVE) []CVE {
	seen := make(map[string]struct{}, len(cves))
	out := make([]CVE, 0, len(cves))
	for _, c := range cves {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// CVEAnalysis is the agent-produced assessment of a vulnerability set.
type CVEAnalysis struct {
	RiskAssessment          string         `json:"risk_assessment"`
	CriticalVulnerabilities []string       `json:"critical_vulnerabilities"`
	Recommendations         []string       `json:"recommendations"`
	SeverityBreakdown       map[string]int `json:"severity_breakdown"`
	TotalCVEs               int            `json:"total_cves"`
}
