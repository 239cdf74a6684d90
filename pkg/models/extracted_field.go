package models

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
)

// ============================================================================
// Confidence Classification
// ============================================================================

// ConfidenceLevel is the display bucket for an extraction confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// ReviewThreshold is the score below which a field requires human review.
// It falls inside the medium band on purpose: medium fields in [0.85, 0.90)
// pass without review, medium fields in [0.75, 0.85) do not.
const ReviewThreshold = 0.85

// ClassifyConfidence maps a score in [0,1] to a display level and a
// review-required flag. Scores outside [0,1], NaN included, are rejected
// with apperrors.ErrInvalidScore.
func ClassifyConfidence(score float64) (ConfidenceLevel, bool, error) {
	if math.IsNaN(score) || score < 0 || score > 1 {
		return "", false, apperrors.ErrInvalidScore
	}

	level := ConfidenceLow
	switch {
	case score >= 0.90:
		level = ConfidenceHigh
	case score >= 0.75:
		level = ConfidenceMedium
	}

	return level, score < ReviewThreshold, nil
}

// ============================================================================
// Extracted Field Model
// ============================================================================

// ExtractedField is one data point (domain, variable, value) produced by the
// upstream extraction pipeline for a submission. Fields are never deleted;
// corrections keep the original value alongside the corrected one.
type ExtractedField struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	Domain       string    `json:"domain"`   // SEND domain code, e.g. "BW"
	Variable     string    `json:"variable"` // SEND variable name, e.g. "BWSTRESN"
	Value        string    `json:"value"`

	ConfidenceScore float64         `json:"confidence_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	RequiresReview  bool            `json:"requires_review"`

	WasCorrected  bool    `json:"was_corrected"`
	OriginalValue *string `json:"original_value,omitempty"`

	ReviewedBy *uuid.UUID `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyConfidence sets the score and recomputes the derived level and
// review-required flag. The derived fields must never be written directly.
func (f *ExtractedField) ApplyConfidence(score float64) error {
	level, requiresReview, err := ClassifyConfidence(score)
	if err != nil {
		return err
	}
	f.ConfidenceScore = score
	f.ConfidenceLevel = level
	f.RequiresReview = requiresReview
	return nil
}

// ApplyCorrection replaces the field value, preserving the original the
// first time the field is corrected.
func (f *ExtractedField) ApplyCorrection(correctedValue string) {
	if !f.WasCorrected {
		original := f.Value
		f.OriginalValue = &original
	}
	f.Value = correctedValue
	f.WasCorrected = true
}

// MarkReviewed records who signed off on the field and clears the review flag.
func (f *ExtractedField) MarkReviewed(reviewerID uuid.UUID, at time.Time) {
	f.ReviewedBy = &reviewerID
	f.ReviewedAt = &at
	f.RequiresReview = false
}
