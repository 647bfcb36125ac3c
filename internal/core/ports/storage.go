package ports

import (
	"context"

	"github.com/tarkai/trustlens/internal/core/domain"
)

// AssessmentStore persists assessment records. Enrichment payloads are
// stored as schema-free JSON blobs and re-validated against their schema
// when read back.
type AssessmentStore interface {
	Create(ctx context.Context, a *domain.Assessment) error
	GetByID(ctx context.Context, id string) (*domain.Assessment, error)

	// GetByName returns the record whose input name matches, or nil when
	// absent. Input name is the dedup key for idempotent submission.
	GetByName(ctx context.Context, name string) (*domain.Assessment, error)

	List(ctx context.Context) ([]domain.Assessment, error)

	// Partial field updates, one per pipeline stage.
	UpdateStatus(ctx context.Context, id string, status domain.AssessmentStatus) error
	UpdateEntity(ctx context.Context, id string, entity *domain.Entity) error
	UpdateVendor(ctx context.Context, id string, vendor *domain.Vendor) error
	UpdateCVEAnalysis(ctx context.Context, id string, analysis *domain.CVEAnalysis) error
	UpdateTrustScore(ctx context.Context, id string, score *domain.TrustScore) error

	Close() error
}
