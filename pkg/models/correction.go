package models

import (
	"time"

	"github.com/google/uuid"
)

// CorrectionType categorizes what was wrong with the extracted value.
type CorrectionType string

const (
	CorrectionWrongValue    CorrectionType = "wrong_value"
	CorrectionWrongUnit     CorrectionType = "wrong_unit"
	CorrectionWrongVariable CorrectionType = "wrong_variable"
	CorrectionMissingData   CorrectionType = "missing_data"
	CorrectionFormatting    CorrectionType = "formatting"
	CorrectionOther         CorrectionType = "other"
)

// ValidCorrectionTypes contains all valid correction type values.
var ValidCorrectionTypes = []CorrectionType{
	CorrectionWrongValue,
	CorrectionWrongUnit,
	CorrectionWrongVariable,
	CorrectionMissingData,
	CorrectionFormatting,
	CorrectionOther,
}

// IsValidCorrectionType checks if the given type is valid.
func IsValidCorrectionType(t CorrectionType) bool {
	for _, v := range ValidCorrectionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Correction records a human override of an AI-extracted value. The record
// is immutable once written, except for the training-export flag; it feeds
// both the audit trail and the extraction model's training data.
type Correction struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`
	FieldID      uuid.UUID `json:"field_id"`
	CorrectedBy  uuid.UUID `json:"corrected_by"`

	Domain         string         `json:"domain"`
	Variable       string         `json:"variable"`
	OriginalValue  string         `json:"original_value"`
	CorrectedValue string         `json:"corrected_value"`
	Reason         string         `json:"reason"`
	Type           CorrectionType `json:"type"`

	// ConfidenceBefore is the extraction confidence at correction time,
	// kept for training-data fidelity.
	ConfidenceBefore float64 `json:"confidence_before"`

	AddedToTraining  bool       `json:"added_to_training"`
	TrainingExportAt *time.Time `json:"training_export_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
