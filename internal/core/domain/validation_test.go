package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateInput(t *testing.T) {
	assert.NoError(t, ValidateInput(AssessmentInput{Name: "Slack"}))
	assert.NoError(t, ValidateInput(AssessmentInput{Name: "Slack", VendorName: "Slack Technologies"}))

	assert.Error(t, ValidateInput(AssessmentInput{}))
	assert.Error(t, ValidateInput(AssessmentInput{Name: "   "}))
	assert.Error(t, ValidateInput(AssessmentInput{Name: strings.Repeat("x", 256)}))
}

func TestValidType(t *testing.T) {
	assert.True(t, ValidType(TypeSmall))
	assert.True(t, ValidType(TypeMedium))
	assert.True(t, ValidType(TypeLarge))
	assert.False(t, ValidType(AssessmentType("huge")))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestTrustScoreValidate(t *testing.T) {
	ts := &TrustScore{
		OverallScore:    72,
		OverallLevel:    TrustHigh,
		ConfidenceScore: 80,
		CategoryScores: map[TrustCategory]CategoryScore{
			TrustSecurity: {Score: 70, Level: TrustHigh, Reasoning: "ok"},
		},
	}
	assert.NoError(t, ts.Validate())

	ts.OverallScore = 120
	assert.Error(t, ts.Validate())

	ts.OverallScore = 72
	ts.CategoryScores[TrustSecurity] = CategoryScore{Score: -1}
	assert.Error(t, ts.Validate())
}
