// Package nvd implements the vulnerability lookup client against the NIST
// NVD 2.0 REST API.
package nvd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
	"github.com/tarkai/trustlens/internal/telemetry"
)

const (
	defaultBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	defaultLimit   = 20

	// DefaultTimeout bounds one lookup round trip.
	DefaultTimeout = 30 * time.Second
)

// Failure taxonomy. 404/403/503 are downgraded to empty results instead,
// since the upstream rate-limits and paginates past valid ranges.
var (
	// ErrAPI wraps transport and HTTP-status failures.
	ErrAPI = errors.New("nvd: api failure")
	// ErrService wraps unexpected parse failures.
	ErrService = errors.New("nvd: service failure")
)

// Client implements ports.CVESource. It owns its outbound connection pool
// for its lifetime; Close releases it deterministically.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	transport  *http.Transport
}

// NewClient creates an NVD client. apiKey may be empty (anonymous access,
// lower rate limits). timeout <= 0 falls back to DefaultTimeout.
func NewClient(apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}
	return &Client{
		baseURL:   defaultBaseURL,
		apiKey:    apiKey,
		transport: transport,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Search queries the NVD. An explicit CVE id is an exact filter; otherwise
// vendor and product are combined into one keyword search.
func (c *Client) Search(ctx context.Context, q ports.CVEQuery) ([]domain.CVE, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+c.buildParams(q).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAPI, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.NVDRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrAPI, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusForbidden, http.StatusServiceUnavailable:
		// Rate limiting or paging past the valid range; not an error.
		telemetry.NVDRequests.WithLabelValues("empty").Inc()
		return nil, nil
	default:
		telemetry.NVDRequests.WithLabelValues("error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, detail)
	}

	var nr nvdResponse
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		telemetry.NVDRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}

	telemetry.NVDRequests.WithLabelValues("ok").Inc()
	return parseVulnerabilities(nr), nil
}

// Close releases the client's outbound connection resources.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}

func (c *Client) buildParams(q ports.CVEQuery) url.Values {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	params := url.Values{}
	params.Set("resultsPerPage", strconv.Itoa(limit))
	params.Set("startIndex", strconv.Itoa(q.Offset))

	if q.CVEID != "" {
		params.Set("cveId", q.CVEID)
	}

	switch {
	case q.Vendor != "" && q.Product != "":
		params.Set("keywordSearch", q.Vendor+" "+q.Product)
	case q.Vendor != "":
		params.Set("keywordSearch", q.Vendor)
	case q.Product != "":
		params.Set("keywordSearch", q.Product)
	}

	if q.Severity != "" && q.Severity != domain.SeverityNone {
		params.Set("cvssV3Severity", string(q.Severity))
	}

	return params
}

// NVD wire format.

type nvdResponse struct {
	ResultsPerPage  int                `json:"resultsPerPage"`
	StartIndex      int                `json:"startIndex"`
	TotalResults    int                `json:"totalResults"`
	Vulnerabilities []nvdVulnerability `json:"vulnerabilities"`
}

type nvdVulnerability struct {
	CVE nvdCVE `json:"cve"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	LastModified string `json:"lastModified"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		CVSSMetricV31 []nvdCVSSMetric `json:"cvssMetricV31"`
		CVSSMetricV30 []nvdCVSSMetric `json:"cvssMetricV30"`
		CVSSMetricV2  []struct {
			CVSSData struct {
				VectorString string  `json:"vectorString"`
				BaseScore    float64 `json:"baseScore"`
			} `json:"cvssData"`
			BaseSeverity string `json:"baseSeverity"`
		} `json:"cvssMetricV2"`
	} `json:"metrics"`
	Weaknesses []struct {
		Description []struct {
			Lang  string `json:"lang"`
			Value string `json:"value"`
		} `json:"description"`
	} `json:"weaknesses"`
	Configurations []struct {
		Nodes []struct {
			CPEMatch []struct {
				Vulnerable            bool   `json:"vulnerable"`
				Criteria              string `json:"criteria"`
				VersionStartIncluding string `json:"versionStartIncluding"`
				VersionEndIncluding   string `json:"versionEndIncluding"`
				VersionStartExcluding string `json:"versionStartExcluding"`
				VersionEndExcluding   string `json:"versionEndExcluding"`
			} `json:"cpeMatch"`
		} `json:"nodes"`
	} `json:"configurations"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
}

type nvdCVSSMetric struct {
	CVSSData struct {
		VectorString string  `json:"vectorString"`
		BaseScore    float64 `json:"baseScore"`
		BaseSeverity string  `json:"baseSeverity"`
	} `json:"cvssData"`
}

func parseVulnerabilities(nr nvdResponse) []domain.CVE {
	cves := make([]domain.CVE, 0, len(nr.Vulnerabilities))
	for _, v := range nr.Vulnerabilities {
		if v.CVE.ID == "" {
			slog.Warn("Skipping NVD record without id")
			continue
		}
		cves = append(cves, parseCVE(v.CVE))
	}
	return cves
}

func parseCVE(raw nvdCVE) domain.CVE {
	cve := domain.CVE{
		ID:           raw.ID,
		Description:  englishDescription(raw),
		Published:    parseNVDTime(raw.Published),
		LastModified: parseNVDTime(raw.LastModified),
		Severity:     domain.SeverityNone,
	}

	// Severity precedence: v3.1, then v3.0, then v2 approximated by score.
	switch {
	case len(raw.Metrics.CVSSMetricV31) > 0:
		m := raw.Metrics.CVSSMetricV31[0].CVSSData
		cve.Severity = domain.CVESeverity(m.BaseSeverity)
		cve.Score = m.BaseScore
		cve.VectorString = m.VectorString
	case len(raw.Metrics.CVSSMetricV30) > 0:
		m := raw.Metrics.CVSSMetricV30[0].CVSSData
		cve.Severity = domain.CVESeverity(m.BaseSeverity)
		cve.Score = m.BaseScore
		cve.VectorString = m.VectorString
	case len(raw.Metrics.CVSSMetricV2) > 0:
		m := raw.Metrics.CVSSMetricV2[0]
		cve.Score = m.CVSSData.BaseScore
		cve.VectorString = m.CVSSData.VectorString
		cve.Severity = domain.SeverityFromScore(m.CVSSData.BaseScore)
	}
	if cve.Severity == "" {
		cve.Severity = domain.SeverityNone
	}

	for _, ref := range raw.References {
		if ref.URL != "" {
			cve.References = append(cve.References, ref.URL)
		}
	}

	for _, cfg := range raw.Configurations {
		for _, node := range cfg.Nodes {
			for _, match := range node.CPEMatch {
				if ap, ok := parseCPECriteria(match.Criteria); ok {
					ap.VersionStartIncluding = match.VersionStartIncluding
					ap.VersionEndIncluding = match.VersionEndIncluding
					ap.VersionStartExcluding = match.VersionStartExcluding
					ap.VersionEndExcluding = match.VersionEndExcluding
					cve.AffectedProducts = append(cve.AffectedProducts, ap)
				}
			}
		}
	}

	for _, weakness := range raw.Weaknesses {
		for _, desc := range weakness.Description {
			if desc.Lang == "en" && strings.HasPrefix(desc.Value, "CWE-") {
				cve.CWEIDs = append(cve.CWEIDs, desc.Value)
			}
		}
	}

	return cve
}

func englishDescription(raw nvdCVE) string {
	for _, d := range raw.Descriptions {
		if d.Lang == "en" && d.Value != "" {
			return d.Value
		}
	}
	return "No description available"
}

// parseCPECriteria splits "cpe:2.3:a:vendor:product:version:..." into an
// affected-product record. Wildcard segments are dropped.
func parseCPECriteria(criteria string) (domain.CVEAffectedProduct, bool) {
	parts := strings.Split(criteria, ":")
	if len(parts) < 5 {
		return domain.CVEAffectedProduct{}, false
	}

	ap := domain.CVEAffectedProduct{}
	if parts[3] != "*" {
		ap.Vendor = parts[3]
	}
	if parts[4] != "*" {
		ap.Product = parts[4]
	}
	if len(parts) > 5 && parts[5] != "*" {
		ap.Version = parts[5]
	}

	if ap.Vendor == "" && ap.Product == "" {
		return domain.CVEAffectedProduct{}, false
	}
	return ap, true
}

func parseNVDTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}
