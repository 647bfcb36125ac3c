package nvd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient("nvd-test-key", 5*time.Second)
	c.baseURL = srv.URL
	t.Cleanup(func() { c.Close() })
	return c
}

const sampleResponse = `{
  "resultsPerPage": 2,
  "startIndex": 0,
  "totalResults": 2,
  "vulnerabilities": [
    {
      "cve": {
        "id": "CVE-2023-1234",
        "published": "2023-03-15T10:30:00.000",
        "lastModified": "2023-04-01T08:00:00.000",
        "descriptions": [
          {"lang": "es", "value": "descripcion"},
          {"lang": "en", "value": "Heap overflow in the parser."}
        ],
        "metrics": {
          "cvssMetricV31": [
            {"cvssData": {"vectorString": "CVSS:3.1/AV:N", "baseScore": 9.8, "baseSeverity": "CRITICAL"}}
          ]
        },
        "weaknesses": [
          {"description": [{"lang": "en", "value": "CWE-787"}, {"lang": "en", "value": "NVD-CWE-noinfo"}]}
        ],
        "configurations": [
          {"nodes": [{"cpeMatch": [
            {"vulnerable": true, "criteria": "cpe:2.3:a:slack:slack:*:*:*:*:*:*:*:*", "versionEndExcluding": "4.29.0"}
          ]}]}
        ],
        "references": [{"url": "https://example.com/advisory"}]
      }
    },
    {
      "cve": {
        "id": "CVE-2020-0001",
        "published": "2020-01-02T00:00:00.000",
        "descriptions": [],
        "metrics": {
          "cvssMetricV2": [
            {"cvssData": {"vectorString": "AV:N/AC:L", "baseScore": 5.0}, "baseSeverity": "MEDIUM"}
          ]
        }
      }
    }
  ]
}`

func TestSearch_ParsesRecords(t *testing.T) {
	var gotQuery map[string]string
	var gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("apiKey")
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(sampleResponse))
	})

	cves, err := c.Search(context.Background(), ports.CVEQuery{Vendor: "slack", Product: "slack", Limit: 50})
	require.NoError(t, err)
	require.Len(t, cves, 2)

	assert.Equal(t, "nvd-test-key", gotKey)
	assert.Equal(t, "slack slack", gotQuery["keywordSearch"])
	assert.Equal(t, "50", gotQuery["resultsPerPage"])
	assert.Equal(t, "0", gotQuery["startIndex"])

	first := cves[0]
	assert.Equal(t, "CVE-2023-1234", first.ID)
	assert.Equal(t, "Heap overflow in the parser.", first.Description)
	assert.Equal(t, domain.SeverityCritical, first.Severity)
	assert.InDelta(t, 9.8, first.Score, 0.001)
	assert.Equal(t, "CVSS:3.1/AV:N", first.VectorString)
	assert.Equal(t, []string{"CWE-787"}, first.CWEIDs)
	assert.Equal(t, []string{"https://example.com/advisory"}, first.References)
	assert.Equal(t, 2023, first.Published.Year())

	require.Len(t, first.AffectedProducts, 1)
	assert.Equal(t, "slack", first.AffectedProducts[0].Vendor)
	assert.Equal(t, "slack", first.AffectedProducts[0].Product)
	assert.Equal(t, "4.29.0", first.AffectedProducts[0].VersionEndExcluding)
}

func TestSearch_V2OnlyRecordApproximatesSeverity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleResponse))
	})

	cves, err := c.Search(context.Background(), ports.CVEQuery{Product: "slack"})
	require.NoError(t, err)
	require.Len(t, cves, 2)

	second := cves[1]
	assert.Equal(t, domain.SeverityMedium, second.Severity)
	assert.InDelta(t, 5.0, second.Score, 0.001)
	// No English description on the record.
	assert.Equal(t, "No description available", second.Description)
}

func TestSearch_CVEIDQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CVE-2023-1234", r.URL.Query().Get("cveId"))
		assert.Empty(t, r.URL.Query().Get("keywordSearch"))
		w.Write([]byte(`{"vulnerabilities":[]}`))
	})

	cves, err := c.Search(context.Background(), ports.CVEQuery{CVEID: "CVE-2023-1234"})
	require.NoError(t, err)
	assert.Empty(t, cves)
}

func TestSearch_SeverityFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "HIGH", r.URL.Query().Get("cvssV3Severity"))
		w.Write([]byte(`{"vulnerabilities":[]}`))
	})

	_, err := c.Search(context.Background(), ports.CVEQuery{Product: "slack", Severity: domain.SeverityHigh})
	require.NoError(t, err)
}

func TestSearch_SoftFailureStatusesReturnEmpty(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusForbidden, http.StatusServiceUnavailable} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unavailable", status)
		})

		cves, err := c.Search(context.Background(), ports.CVEQuery{Product: "slack"})
		require.NoError(t, err, "status %d", status)
		assert.Empty(t, cves, "status %d", status)
	}
}

func TestSearch_UnexpectedStatusIsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Search(context.Background(), ports.CVEQuery{Product: "slack"})
	assert.ErrorIs(t, err, ErrAPI)
}

func TestSearch_MalformedBodyIsServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	})

	_, err := c.Search(context.Background(), ports.CVEQuery{Product: "slack"})
	assert.ErrorIs(t, err, ErrService)
}

func TestSearch_SkipsRecordsWithoutID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities":[{"cve":{"descriptions":[]}},{"cve":{"id":"CVE-2021-0002"}}]}`))
	})

	cves, err := c.Search(context.Background(), ports.CVEQuery{Product: "slack"})
	require.NoError(t, err)
	require.Len(t, cves, 1)
	assert.Equal(t, "CVE-2021-0002", cves[0].ID)
	assert.Equal(t, domain.SeverityNone, cves[0].Severity)
}

func TestParseCPECriteria(t *testing.T) {
	ap, ok := parseCPECriteria("cpe:2.3:a:zoom:zoom:5.0.0:*:*:*:*:*:*:*")
	require.True(t, ok)
	assert.Equal(t, "zoom", ap.Vendor)
	assert.Equal(t, "zoom", ap.Product)
	assert.Equal(t, "5.0.0", ap.Version)

	_, ok = parseCPECriteria("cpe:2.3:a:*:*:*:*:*:*:*:*:*:*")
	assert.False(t, ok)

	_, ok = parseCPECriteria("garbage")
	assert.False(t, ok)
}
