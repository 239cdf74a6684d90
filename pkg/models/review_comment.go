package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
)

// CommentSeverity orders review feedback from critical down to informational.
type CommentSeverity string

const (
	SeverityCritical CommentSeverity = "critical"
	SeverityMajor    CommentSeverity = "major"
	SeverityMinor    CommentSeverity = "minor"
	SeverityInfo     CommentSeverity = "info"
)

// severityRank supports ordering; lower rank sorts first.
var severityRank = map[CommentSeverity]int{
	SeverityCritical: 0,
	SeverityMajor:    1,
	SeverityMinor:    2,
	SeverityInfo:     3,
}

// IsValidCommentSeverity checks if the given severity is valid.
func IsValidCommentSeverity(s CommentSeverity) bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the sort rank of the severity (critical first).
func (s CommentSeverity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return len(severityRank)
}

// ReviewComment is reviewer feedback on a submission, optionally scoped to a
// specific domain/variable. A comment is resolved at most once and is
// immutable afterward.
type ReviewComment struct {
	ID           uuid.UUID       `json:"id"`
	SubmissionID uuid.UUID       `json:"submission_id"`
	ReviewerID   uuid.UUID       `json:"reviewer_id"`
	Severity     CommentSeverity `json:"severity"`
	Domain       string          `json:"domain,omitempty"`
	Variable     string          `json:"variable,omitempty"`
	Text         string          `json:"text"`

	Resolved        bool       `json:"resolved"`
	ResolvedBy      *uuid.UUID `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes *string    `json:"resolution_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Resolve marks the comment resolved. Resolving twice is a conflict.
func (c *ReviewComment) Resolve(resolverID uuid.UUID, notes string, at time.Time) error {
	if c.Resolved {
		return apperrors.ErrConflict
	}
	c.Resolved = true
	c.ResolvedBy = &resolverID
	c.ResolvedAt = &at
	if notes != "" {
		c.ResolutionNotes = &notes
	}
	return nil
}
