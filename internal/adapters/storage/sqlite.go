// Package storage persists assessment records using GORM and SQLite.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

// SQLiteStore implements ports.AssessmentStore.
type SQLiteStore struct {
	db *gorm.DB
}

// AssessmentModel is the GORM model for assessment records. Enrichment
// payloads live in TEXT columns as JSON blobs; the converter re-validates
// them on read.
type AssessmentModel struct {
	ID     string `gorm:"primaryKey"`
	Name   string `gorm:"uniqueIndex"` // dedup key for idempotent submission
	Vendor string
	URL    string
	Type   string
	Status string `gorm:"index"`

	EntityJSON      string
	VendorJSON      string
	CVEAnalysisJSON string
	TrustScoreJSON  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSQLiteStore initializes the database and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("failed to install tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&AssessmentModel{}); err != nil {
		return nil, err
	}

	db.Exec("CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessment_models(created_at)")

	return &SQLiteStore{db: db}, nil
}

// Create inserts a new assessment record.
func (s *SQLiteStore) Create(ctx context.Context, a *domain.Assessment) error {
	model, err := toModel(a)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// GetByID retrieves an assessment by record id, or nil when absent.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.Assessment, error) {
	var model AssessmentModel
	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomain(model)
}

// GetByName retrieves the assessment whose input name matches, or nil.
func (s *SQLiteStore) GetByName(ctx context.Context, name string) (*domain.Assessment, error) {
	var model AssessmentModel
	err := s.db.WithContext(ctx).First(&model, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toDomain(model)
}

// List returns all assessment records, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Assessment, error) {
	var models []AssessmentModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	assessments := make([]domain.Assessment, 0, len(models))
	for _, m := range models {
		a, err := toDomain(m)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, *a)
	}
	return assessments, nil
}

// UpdateStatus sets the lifecycle status of a record.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.AssessmentStatus) error {
	return s.updateColumn(ctx, id, "status", string(status))
}

// UpdateEntity stores the entity-resolution payload.
func (s *SQLiteStore) UpdateEntity(ctx context.Context, id string, entity *domain.Entity) error {
	blob, err := marshalPayload(entity)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "entity_json", blob)
}

// UpdateVendor stores the vendor-enrichment payload.
func (s *SQLiteStore) UpdateVendor(ctx context.Context, id string, vendor *domain.Vendor) error {
	blob, err := marshalPayload(vendor)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "vendor_json", blob)
}

// UpdateCVEAnalysis stores the vulnerability-analysis payload.
func (s *SQLiteStore) UpdateCVEAnalysis(ctx context.Context, id string, analysis *domain.CVEAnalysis) error {
	blob, err := marshalPayload(analysis)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "cve_analysis_json", blob)
}

// UpdateTrustScore stores the trust-scoring payload.
func (s *SQLiteStore) UpdateTrustScore(ctx context.Context, id string, score *domain.TrustScore) error {
	blob, err := marshalPayload(score)
	if err != nil {
		return err
	}
	return s.updateColumn(ctx, id, "trust_score_json", blob)
}

func (s *SQLiteStore) updateColumn(ctx context.Context, id, column string, value string) error {
	res := s.db.WithContext(ctx).Model(&AssessmentModel{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("assessment %s not found", id)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.AssessmentStore = (*SQLiteStore)(nil)
