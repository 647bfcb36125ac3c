package storage

import (
	"encoding/json"
	"fmt"

	"github.com/tarkai/trustlens/internal/core/domain"
)

// toModel converts a domain assessment into its persistence form.
func toModel(a *domain.Assessment) (AssessmentModel, error) {
	model := AssessmentModel{
		ID:        a.ID,
		Name:      a.Input.Name,
		Vendor:    a.Input.VendorName,
		URL:       a.Input.URL,
		Type:      string(a.Type),
		Status:    string(a.Status),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}

	var err error
	if model.EntityJSON, err = marshalPayload(a.Entity); err != nil {
		return model, fmt.Errorf("entity payload: %w", err)
	}
	if model.VendorJSON, err = marshalPayload(a.Vendor); err != nil {
		return model, fmt.Errorf("vendor payload: %w", err)
	}
	if model.CVEAnalysisJSON, err = marshalPayload(a.CVEAnalysis); err != nil {
		return model, fmt.Errorf("cve analysis payload: %w", err)
	}
	if model.TrustScoreJSON, err = marshalPayload(a.TrustScore); err != nil {
		return model, fmt.Errorf("trust score payload: %w", err)
	}
	return model, nil
}

// toDomain converts a persistence row back into a domain assessment,
// re-validating each stored payload against its schema.
func toDomain(m AssessmentModel) (*domain.Assessment, error) {
	a := &domain.Assessment{
		ID: m.ID,
		Input: domain.AssessmentInput{
			Name:       m.Name,
			VendorName: m.Vendor,
			URL:        m.URL,
		},
		Type:      domain.AssessmentType(m.Type),
		Status:    domain.AssessmentStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}

	if m.EntityJSON != "" {
		var entity domain.Entity
		if err := json.Unmarshal([]byte(m.EntityJSON), &entity); err != nil {
			return nil, fmt.Errorf("corrupt entity payload for %s: %w", m.ID, err)
		}
		a.Entity = &entity
	}
	if m.VendorJSON != "" {
		var vendor domain.Vendor
		if err := json.Unmarshal([]byte(m.VendorJSON), &vendor); err != nil {
			return nil, fmt.Errorf("corrupt vendor payload for %s: %w", m.ID, err)
		}
		a.Vendor = &vendor
	}
	if m.CVEAnalysisJSON != "" {
		var analysis domain.CVEAnalysis
		if err := json.Unmarshal([]byte(m.CVEAnalysisJSON), &analysis); err != nil {
			return nil, fmt.Errorf("corrupt cve analysis payload for %s: %w", m.ID, err)
		}
		a.CVEAnalysis = &analysis
	}
	if m.TrustScoreJSON != "" {
		var score domain.TrustScore
		if err := json.Unmarshal([]byte(m.TrustScoreJSON), &score); err != nil {
			return nil, fmt.Errorf("corrupt trust score payload for %s: %w", m.ID, err)
		}
		a.TrustScore = &score
	}

	return a, nil
}

// marshalPayload serializes an optional payload; nil pointers produce the
// empty string so absent stages stay NULL-like in storage.
func marshalPayload[T any](p *T) (string, error) {
	if p == nil {
		return "", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
