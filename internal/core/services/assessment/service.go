// Package assessment orchestrates the trust-assessment pipeline: entity
// resolution, vendor enrichment, CPE resolution, vulnerability lookup and
// analysis, and trust scoring, all behind a persisted assessment record.
package assessment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tarkai/trustlens/internal/core/agents"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
	"github.com/tarkai/trustlens/internal/telemetry"
)

// ErrInvalidInput marks rejected submissions.
var ErrInvalidInput = errors.New("assessment: invalid input")

// Agents bundles the five pipeline agents.
type Agents struct {
	Entity   *agents.EntityResolutionAgent
	Vendor   *agents.VendorInformationAgent
	CPE      *agents.CPEResolverAgent
	Analysis *agents.CVEAnalysisAgent
	Trust    *agents.TrustScoreAgent
}

// NewAgents constructs all pipeline agents on one provider.
func NewAgents(llm ports.LLMProvider) (*Agents, error) {
	entity, err := agents.NewEntityResolutionAgent(llm)
	if err != nil {
		return nil, err
	}
	vendor, err := agents.NewVendorInformationAgent(llm)
	if err != nil {
		return nil, err
	}
	cpe, err := agents.NewCPEResolverAgent(llm)
	if err != nil {
		return nil, err
	}
	analysis, err := agents.NewCVEAnalysisAgent(llm)
	if err != nil {
		return nil, err
	}
	trust, err := agents.NewTrustScoreAgent(llm)
	if err != nil {
		return nil, err
	}
	return &Agents{Entity: entity, Vendor: vendor, CPE: cpe, Analysis: analysis, Trust: trust}, nil
}

// StatusNotifier receives lifecycle transitions as they are persisted.
// Implementations must not block.
type StatusNotifier interface {
	NotifyStatus(id string, status domain.AssessmentStatus)
}

// Service is the application service behind the assessment API.
type Service struct {
	store    ports.AssessmentStore
	source   ports.CVESource
	cache    ports.CVECache
	agents   *Agents
	notifier StatusNotifier
	logger   *slog.Logger
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithCache enables best-effort persistence of fetched CVE records.
func WithCache(cache ports.CVECache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithNotifier broadcasts status transitions, e.g. over websockets.
func WithNotifier(n StatusNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// NewService creates the assessment service.
func NewService(store ports.AssessmentStore, source ports.CVESource, ag *Agents, opts ...Option) *Service {
	s := &Service{
		store:  store,
		source: source,
		agents: ag,
		logger: slog.Default().With("component", "assessment"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new assessment in QUEUED state. Submission
// is idempotent on input name: resubmitting an existing name returns the
// existing record with created=false, regardless of its status.
func (s *Service) Create(ctx context.Context, input domain.AssessmentInput, typ domain.AssessmentType) (*domain.Assessment, bool, error) {
	if err := domain.ValidateInput(input); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if typ == "" {
		typ = domain.TypeSmall
	}
	if !domain.ValidType(typ) {
		return nil, false, fmt.Errorf("%w: unknown assessment type %q", ErrInvalidInput, typ)
	}

	existing, err := s.store.GetByName(ctx, input.Name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	a := &domain.Assessment{
		ID:        uuid.NewString(),
		Input:     input,
		Type:      typ,
		Status:    domain.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, false, err
	}

	telemetry.AssessmentsCreated.Inc()
	s.logger.Info("Assessment created", "id", a.ID, "name", input.Name, "type", typ)
	return a, true, nil
}

// Get returns one assessment record, or nil when absent.
func (s *Service) Get(ctx context.Context, id string) (*domain.Assessment, error) {
	return s.store.GetByID(ctx, id)
}

// List returns all assessment records, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Assessment, error) {
	return s.store.List(ctx)
}

// Process runs the full pipeline for a queued assessment. It is designed to
// run on a background goroutine: it never returns an error, every failure
// path ends in a persisted FAILED status instead.
func (s *Service) Process(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Pipeline panicked", "id", id, "panic", r)
			s.fail(ctx, id)
		}
	}()

	a, err := s.store.GetByID(ctx, id)
	if err != nil || a == nil {
		s.logger.Error("Cannot load assessment for processing", "id", id, "error", err)
		return
	}
	if a.Status.IsTerminal() {
		s.logger.Warn("Refusing to reprocess terminal assessment", "id", id, "status", a.Status)
		return
	}

	s.setStatus(ctx, id, domain.StatusInProgress)

	if err := s.runPipeline(ctx, a); err != nil {
		s.logger.Error("Pipeline failed", "id", id, "error", err)
		s.fail(ctx, id)
		return
	}

	s.setStatus(ctx, id, domain.StatusCompleted)
	telemetry.AssessmentsFinished.WithLabelValues(string(domain.StatusCompleted)).Inc()
	s.logger.Info("Assessment completed", "id", id)
}

func (s *Service) runPipeline(ctx context.Context, a *domain.Assessment) error {
	// Stage 1: resolve the product to a canonical entity.
	entityResp, err := s.agents.Entity.Execute(ctx, agents.EntityResolutionRequest{EntityData: a.Input})
	if err != nil {
		return fmt.Errorf("entity resolution: %w", err)
	}
	entity := entityResp.ResolvedEntity
	if err := s.store.UpdateEntity(ctx, a.ID, &entity); err != nil {
		return fmt.Errorf("persist entity: %w", err)
	}

	// Stage 2: enrich the vendor behind the entity.
	vendorResp, err := s.agents.Vendor.Execute(ctx, agents.VendorInformationRequest{Entity: entity})
	if err != nil {
		return fmt.Errorf("vendor enrichment: %w", err)
	}
	vendor := vendorResp.Vendor
	if err := s.store.UpdateVendor(ctx, a.ID, &vendor); err != nil {
		return fmt.Errorf("persist vendor: %w", err)
	}

	// Stage 3: resolve CPE lookup keys.
	cpeResp, err := s.agents.CPE.Execute(ctx, agents.CPEResolverRequest{EntityData: entity})
	if err != nil {
		return fmt.Errorf("cpe resolution: %w", err)
	}

	// Stage 4: fetch CVEs for each CPE concurrently. A failed lookup drops
	// that CPE's results and the pipeline continues.
	cves := s.fetchCVEs(ctx, a.ID, cpeResp.CPEs)

	// Stage 5: long-form analysis, skipped when nothing was found.
	var analysis *domain.CVEAnalysis
	if len(cves) > 0 {
		analysisResp, err := s.agents.Analysis.Execute(ctx, agents.CVEAnalysisRequest{Entity: entity, CVEs: cves})
		if err != nil {
			return fmt.Errorf("cve analysis: %w", err)
		}
		analysis = analysisResp.ToDomain()
		if err := s.store.UpdateCVEAnalysis(ctx, a.ID, analysis); err != nil {
			return fmt.Errorf("persist cve analysis: %w", err)
		}
	} else {
		s.logger.Info("No CVEs found, skipping analysis", "id", a.ID)
	}

	// Stage 6: terminal composite trust score.
	trustResp, err := s.agents.Trust.Execute(ctx, agents.TrustScoreRequest{
		Entity:      entity,
		Vendor:      &vendor,
		CVEAnalysis: analysis,
	})
	if err != nil {
		return fmt.Errorf("trust scoring: %w", err)
	}
	if err := s.store.UpdateTrustScore(ctx, a.ID, &trustResp.TrustScore); err != nil {
		return fmt.Errorf("persist trust score: %w", err)
	}

	return nil
}

// fetchCVEs fans one vulnerability lookup per CPE out over the source and
// merges the results, deduplicated by CVE id.
func (s *Service) fetchCVEs(ctx context.Context, id string, cpes []domain.CPE) []domain.CVE {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all []domain.CVE
	)

	for _, cpe := range cpes {
		wg.Add(1)
		go func(cpe domain.CPE) {
			defer wg.Done()

			found, err := s.source.Search(ctx, ports.CVEQuery{
				Vendor:  cpe.Vendor,
				Product: cpe.Product,
			})
			if err != nil {
				s.logger.Warn("CVE lookup failed for CPE",
					"id", id, "vendor", cpe.Vendor, "product", cpe.Product, "error", err)
				return
			}

			mu.Lock()
			all = append(all, found...)
			mu.Unlock()
		}(cpe)
	}
	wg.Wait()

	deduped := domain.DeduplicateCVEs(all)
	s.cacheCVEs(ctx, deduped)
	return deduped
}

// cacheCVEs persists fetched records best-effort; cache failures never stall
// the pipeline.
func (s *Service) cacheCVEs(ctx context.Context, cves []domain.CVE) {
	if s.cache == nil {
		return
	}
	for _, cve := range cves {
		if err := s.cache.Upsert(ctx, cve); err != nil {
			s.logger.Warn("Failed to cache CVE", "cve", cve.ID, "error", err)
		}
	}
}

func (s *Service) fail(ctx context.Context, id string) {
	s.setStatus(ctx, id, domain.StatusFailed)
	telemetry.AssessmentsFinished.WithLabelValues(string(domain.StatusFailed)).Inc()
}

func (s *Service) setStatus(ctx context.Context, id string, status domain.AssessmentStatus) {
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		s.logger.Error("Failed to update status", "id", id, "status", status, "error", err)
		return
	}
	if s.notifier != nil {
		s.notifier.NotifyStatus(id, status)
	}
}
