package ports

import (
	"context"

	"github.com/tarkai/trustlens/internal/core/domain"
)

// CVEQuery describes one vulnerability-database search. An explicit CVEID
// takes precedence as an exact filter; otherwise vendor and product are
// combined into a keyword search.
type CVEQuery struct {
	Vendor   string
	Product  string
	CVEID    string
	Severity domain.CVESeverity
	Limit    int
	Offset   int
}

// CVESource queries an external vulnerability database. Implementations own
// a single outbound connection resource for their lifetime; Close releases
// it deterministically.
type CVESource interface {
	Search(ctx context.Context, q CVEQuery) ([]domain.CVE, error)
	Close() error
}

// CVECache is a local store of normalized CVE records fetched during
// pipeline runs, queryable outside any assessment.
type CVECache interface {
	Upsert(ctx context.Context, cve domain.CVE) error
	GetByID(ctx context.Context, id string) (*domain.CVE, error)
	List(ctx context.Context, severity domain.CVESeverity, limit int) ([]domain.CVE, error)
	CountBySeverity(ctx context.Context) (map[domain.CVESeverity]int, error)
	Close() error
}
