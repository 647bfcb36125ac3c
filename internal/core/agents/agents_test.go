package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkai/trustlens/internal/core/agent"
	"github.com/tarkai/trustlens/internal/core/domain"
	"github.com/tarkai/trustlens/internal/core/ports"
)

type scriptedProvider struct {
	response string
	messages []ports.Message
}

func (s *scriptedProvider) Generate(_ context.Context, messages []ports.Message, _ *ports.GenerateOptions) (string, error) {
	s.messages = messages
	return s.response, nil
}

func (s *scriptedProvider) GenerateStream(_ context.Context, _ []ports.Message, _ *ports.GenerateOptions) (<-chan ports.StreamChunk, error) {
	ch := make(chan ports.StreamChunk)
	close(ch)
	return ch, nil
}

// All five constructors must find their templates and reflect their schemas.
func TestAgentConstruction(t *testing.T) {
	llm := &scriptedProvider{}

	_, err := NewEntityResolutionAgent(llm)
	assert.NoError(t, err)
	_, err = NewVendorInformationAgent(llm)
	assert.NoError(t, err)
	_, err = NewCPEResolverAgent(llm)
	assert.NoError(t, err)
	_, err = NewCVEAnalysisAgent(llm)
	assert.NoError(t, err)
	_, err = NewTrustScoreAgent(llm)
	assert.NoError(t, err)
}

func TestEntityResolutionAgent_Execute(t *testing.T) {
	llm := &scriptedProvider{response: "```json\n" + `{
		"resolved_entity": {
			"name": "Slack",
			"vendor": {"name": "Slack Technologies", "website": "https://slack.com"},
			"category": "chat",
			"description": "Team messaging platform",
			"usage": "Workplace communication"
		}
	}` + "\n```"}

	a, err := NewEntityResolutionAgent(llm)
	require.NoError(t, err)

	out, err := a.Execute(context.Background(), EntityResolutionRequest{
		EntityData: domain.AssessmentInput{Name: "Slack", VendorName: "Slack Technologies"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Slack", out.ResolvedEntity.Name)
	assert.Equal(t, domain.CategoryChat, out.ResolvedEntity.Category)

	// Prompt pair carries the input name and the expected output shape.
	require.Len(t, llm.messages, 2)
	assert.Contains(t, llm.messages[0].Content, "resolved_entity")
	assert.Contains(t, llm.messages[1].Content, "Slack")
}

func TestEntityResolutionAgent_RejectsBadCategory(t *testing.T) {
	llm := &scriptedProvider{response: `{
		"resolved_entity": {
			"name": "Slack",
			"vendor": {"name": "Slack Technologies"},
			"category": "spreadsheet",
			"description": "d",
			"usage": "u"
		}
	}`}

	a, err := NewEntityResolutionAgent(llm)
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), EntityResolutionRequest{
		EntityData: domain.AssessmentInput{Name: "Slack"},
	})

	var perr *agent.ProcessingError
	require.ErrorAs(t, err, &perr)
}

func TestTrustScoreAgent_Execute(t *testing.T) {
	llm := &scriptedProvider{response: `{
		"trust_score": {
			"overall_score": 74,
			"overall_level": "high",
			"category_scores": {
				"security": {"score": 70, "level": "high", "reasoning": "few open CVEs", "key_factors": ["patch cadence"]}
			},
			"summary": "Generally trustworthy",
			"confidence_score": 60
		}
	}`}

	a, err := NewTrustScoreAgent(llm)
	require.NoError(t, err)

	out, err := a.Execute(context.Background(), TrustScoreRequest{
		Entity: domain.Entity{
			Name:        "Slack",
			Vendor:      domain.Vendor{Name: "Slack Technologies"},
			Category:    domain.CategoryChat,
			Description: "d",
			Usage:       "u",
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 74.0, out.TrustScore.OverallScore, 0.001)
	assert.Equal(t, domain.TrustHigh, out.TrustScore.OverallLevel)
}

func TestCVEAnalysisRequest_RequiresCVEs(t *testing.T) {
	req := CVEAnalysisRequest{Entity: domain.Entity{
		Name:        "Slack",
		Vendor:      domain.Vendor{Name: "Slack Technologies"},
		Category:    domain.CategoryChat,
		Description: "d",
		Usage:       "u",
	}}
	assert.Error(t, req.Validate())

	req.CVEs = []domain.CVE{{ID: "CVE-2023-1234"}}
	assert.NoError(t, req.Validate())
}
