package models

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
)

func TestClassifyConfidence(t *testing.T) {
	tests := []struct {
		score          float64
		wantLevel      ConfidenceLevel
		requiresReview bool
	}{
		{0.0, ConfidenceLow, true},
		{0.5, ConfidenceLow, true},
		{0.749999, ConfidenceLow, true},
		{0.75, ConfidenceMedium, true},
		{0.80, ConfidenceMedium, true},
		{0.849999, ConfidenceMedium, true},
		{0.85, ConfidenceMedium, false},
		{0.899999, ConfidenceMedium, false},
		{0.90, ConfidenceHigh, false},
		{0.95, ConfidenceHigh, false},
		{1.0, ConfidenceHigh, false},
	}

	for _, tt := range tests {
		level, requiresReview, err := ClassifyConfidence(tt.score)
		require.NoError(t, err, "score %v", tt.score)
		assert.Equal(t, tt.wantLevel, level, "level for score %v", tt.score)
		assert.Equal(t, tt.requiresReview, requiresReview, "requires_review for score %v", tt.score)
	}
}

// The review flag is exactly score < 0.85 regardless of display level.
func TestClassifyConfidence_ReviewFlagMatchesThreshold(t *testing.T) {
	for score := 0.0; score <= 1.0; score += 0.005 {
		_, requiresReview, err := ClassifyConfidence(score)
		require.NoError(t, err)
		assert.Equal(t, score < ReviewThreshold, requiresReview, "score %v", score)
	}
}

func TestClassifyConfidence_OutOfRange(t *testing.T) {
	for _, score := range []float64{-0.01, 1.01, -1, 2} {
		_, _, err := ClassifyConfidence(score)
		assert.ErrorIs(t, err, apperrors.ErrInvalidScore, "score %v", score)
	}
}

// NaN compares false against both range bounds, so it needs its own check.
func TestClassifyConfidence_NaN(t *testing.T) {
	_, _, err := ClassifyConfidence(math.NaN())
	assert.ErrorIs(t, err, apperrors.ErrInvalidScore)
}

func TestApplyConfidence_RecomputesDerivedFields(t *testing.T) {
	f := &ExtractedField{}
	require.NoError(t, f.ApplyConfidence(0.95))
	assert.Equal(t, ConfidenceHigh, f.ConfidenceLevel)
	assert.False(t, f.RequiresReview)

	require.NoError(t, f.ApplyConfidence(0.60))
	assert.Equal(t, ConfidenceLow, f.ConfidenceLevel)
	assert.True(t, f.RequiresReview)

	err := f.ApplyConfidence(1.5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidScore)
	// Rejected writes must not touch the field.
	assert.Equal(t, 0.60, f.ConfidenceScore)
}

func TestApplyCorrection_PreservesOriginalOnce(t *testing.T) {
	f := &ExtractedField{Value: "12.4"}

	f.ApplyCorrection("12.8")
	require.NotNil(t, f.OriginalValue)
	assert.Equal(t, "12.4", *f.OriginalValue)
	assert.Equal(t, "12.8", f.Value)
	assert.True(t, f.WasCorrected)

	// A second correction keeps the first original, not the intermediate value.
	f.ApplyCorrection("13.0")
	assert.Equal(t, "12.4", *f.OriginalValue)
	assert.Equal(t, "13.0", f.Value)
}

func TestMarkReviewed(t *testing.T) {
	f := &ExtractedField{RequiresReview: true}
	reviewer := uuid.New()
	at := time.Now()

	f.MarkReviewed(reviewer, at)
	require.NotNil(t, f.ReviewedBy)
	assert.Equal(t, reviewer, *f.ReviewedBy)
	assert.False(t, f.RequiresReview)
}
