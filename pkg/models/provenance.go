// Package models contains domain types for sendbridge-engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionMethod represents how a value was obtained from the source document.
type ExtractionMethod string

const (
	MethodAutomated ExtractionMethod = "automated" // upstream AI extraction
	MethodManual    ExtractionMethod = "manual"    // entered by a reviewer
	MethodCorrected ExtractionMethod = "corrected" // reviewer override of an extracted value
)

// IsValid returns true if the method is a valid extraction method.
func (m ExtractionMethod) IsValid() bool {
	switch m {
	case MethodAutomated, MethodManual, MethodCorrected:
		return true
	default:
		return false
	}
}

// SourceLocation pins a value to its position in the originating document.
type SourceLocation struct {
	Page   int      `json:"page"`
	Table  *string  `json:"table,omitempty"`
	Row    *int     `json:"row,omitempty"`
	Column *string  `json:"column,omitempty"`
	X      *float64 `json:"x,omitempty"` // optional geometric coordinates on the page
	Y      *float64 `json:"y,omitempty"`
}

// ProvenanceRecord links an extracted or corrected value back to its source
// location in the study document. Records are written once and never mutated;
// they are the traceability backbone for regulatory audit.
type ProvenanceRecord struct {
	ID           uuid.UUID `json:"id"`
	SubmissionID uuid.UUID `json:"submission_id"`

	Domain   string `json:"domain"`
	Variable string `json:"variable"`
	Value    string `json:"value"`

	Location SourceLocation   `json:"location"`
	Method   ExtractionMethod `json:"method"`

	// ConfidenceScore is set for automated extractions, nil for manual entries.
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`

	ExtractedBy *uuid.UUID `json:"extracted_by,omitempty"`
	ExtractedAt time.Time  `json:"extracted_at"`
}
