package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Submission Status
// ============================================================================

// SubmissionStatus represents where a submission sits in the review workflow.
// State machine:
//
//	uploaded → ai_processing → toxicologist_review → send_expert_review → qc_review → approved
//
// send_expert_review and qc_review can send the submission back one stage.
// ai_processing and every review stage can reject; rejected restarts at
// toxicologist_review. approved is terminal.
type SubmissionStatus string

const (
	StatusUploaded           SubmissionStatus = "uploaded"
	StatusAIProcessing       SubmissionStatus = "ai_processing"
	StatusToxicologistReview SubmissionStatus = "toxicologist_review"
	StatusSendExpertReview   SubmissionStatus = "send_expert_review"
	StatusQCReview           SubmissionStatus = "qc_review"
	StatusApproved           SubmissionStatus = "approved"
	StatusRejected           SubmissionStatus = "rejected"
)

// ValidSubmissionStatuses contains all valid status values.
var ValidSubmissionStatuses = []SubmissionStatus{
	StatusUploaded,
	StatusAIProcessing,
	StatusToxicologistReview,
	StatusSendExpertReview,
	StatusQCReview,
	StatusApproved,
	StatusRejected,
}

// statusTransitions is the legal-transition table. A status maps to the set
// of statuses it may move to; absence means no outgoing transitions.
var statusTransitions = map[SubmissionStatus][]SubmissionStatus{
	StatusUploaded:           {StatusAIProcessing},
	StatusAIProcessing:       {StatusToxicologistReview, StatusRejected},
	StatusToxicologistReview: {StatusSendExpertReview, StatusRejected},
	StatusSendExpertReview:   {StatusQCReview, StatusToxicologistReview, StatusRejected},
	StatusQCReview:           {StatusApproved, StatusSendExpertReview, StatusRejected},
	StatusRejected:           {StatusToxicologistReview},
	StatusApproved:           {},
}

// IsValidSubmissionStatus checks if the given status is valid.
func IsValidSubmissionStatus(s SubmissionStatus) bool {
	for _, v := range ValidSubmissionStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// CanTransitionTo returns true if transitioning from this status to the
// target is a legal edge. Pure table lookup, no side effects.
func (s SubmissionStatus) CanTransitionTo(target SubmissionStatus) bool {
	for _, t := range statusTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status has no outgoing transitions.
// Only approved is terminal; rejected can restart at toxicologist review.
func (s SubmissionStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0 && IsValidSubmissionStatus(s)
}

// ============================================================================
// Review Roles
// ============================================================================

// ReviewRole identifies which review responsibility a reviewer holds.
type ReviewRole string

const (
	RoleToxicologist ReviewRole = "toxicologist"
	RoleSendExpert   ReviewRole = "send_expert"
	RoleQCReviewer   ReviewRole = "qc_reviewer"
	RoleAdmin        ReviewRole = "admin"
)

// ReviewRoles lists the three roles a submission needs assigned, in workflow order.
var ReviewRoles = []ReviewRole{RoleToxicologist, RoleSendExpert, RoleQCReviewer}

// IsValidReviewRole checks if the given role is valid.
func IsValidReviewRole(r ReviewRole) bool {
	switch r {
	case RoleToxicologist, RoleSendExpert, RoleQCReviewer, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleForStatus returns the role responsible for reviewing at the given
// status, or "" for statuses with no responsible reviewer.
func RoleForStatus(s SubmissionStatus) ReviewRole {
	switch s {
	case StatusToxicologistReview:
		return RoleToxicologist
	case StatusSendExpertReview:
		return RoleSendExpert
	case StatusQCReview:
		return RoleQCReviewer
	default:
		return ""
	}
}

// ============================================================================
// Submission Model
// ============================================================================

// Submission tracks one study's journey through the review workflow.
// Submissions are never deleted; rejection and restart preserve the row and
// its accumulated fields, comments, and corrections.
type Submission struct {
	ID           uuid.UUID        `json:"id"`
	SubmissionID string           `json:"submission_id"`
	StudyID      uuid.UUID        `json:"study_id"`
	Status       SubmissionStatus `json:"status"`
	Priority     int              `json:"priority"` // 1 (highest) to 5

	AssignedToxicologist *uuid.UUID `json:"assigned_toxicologist,omitempty"`
	AssignedSendExpert   *uuid.UUID `json:"assigned_send_expert,omitempty"`
	AssignedQCReviewer   *uuid.UUID `json:"assigned_qc_reviewer,omitempty"`

	// Entered-at timestamp per workflow stage. uploaded is CreatedAt.
	AIProcessingAt *time.Time `json:"ai_processing_at,omitempty"`
	ToxReviewAt    *time.Time `json:"tox_review_at,omitempty"`
	SendReviewAt   *time.Time `json:"send_review_at,omitempty"`
	QCReviewAt     *time.Time `json:"qc_review_at,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	RejectedAt     *time.Time `json:"rejected_at,omitempty"`

	RejectionReason *string `json:"rejection_reason,omitempty"`
	Notes           string  `json:"notes,omitempty"`

	// Version is the optimistic-concurrency token. Every state-changing
	// write must match the version it read and increments it.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSubmissionID builds the human-readable submission key from the study
// number and creation time, e.g. "SUB-S0042-20260828T093015".
func NewSubmissionID(studyNumber string, createdAt time.Time) string {
	return fmt.Sprintf("SUB-%s-%s", studyNumber, createdAt.UTC().Format("20060102T150405"))
}

// StampStatusEntry records the entered-at timestamp for the target status.
func (s *Submission) StampStatusEntry(target SubmissionStatus, now time.Time) {
	switch target {
	case StatusAIProcessing:
		s.AIProcessingAt = &now
	case StatusToxicologistReview:
		s.ToxReviewAt = &now
	case StatusSendExpertReview:
		s.SendReviewAt = &now
	case StatusQCReview:
		s.QCReviewAt = &now
	case StatusApproved:
		s.ApprovedAt = &now
	case StatusRejected:
		s.RejectedAt = &now
	}
}

// AssignedReviewer returns the reviewer assigned for the given role, nil if
// unassigned or the role carries no assignment slot.
func (s *Submission) AssignedReviewer(role ReviewRole) *uuid.UUID {
	switch role {
	case RoleToxicologist:
		return s.AssignedToxicologist
	case RoleSendExpert:
		return s.AssignedSendExpert
	case RoleQCReviewer:
		return s.AssignedQCReviewer
	default:
		return nil
	}
}

// SetAssignedReviewer writes the reviewer reference for the given role.
func (s *Submission) SetAssignedReviewer(role ReviewRole, reviewerID uuid.UUID) {
	switch role {
	case RoleToxicologist:
		s.AssignedToxicologist = &reviewerID
	case RoleSendExpert:
		s.AssignedSendExpert = &reviewerID
	case RoleQCReviewer:
		s.AssignedQCReviewer = &reviewerID
	}
}

// IsOpen returns true while the submission still counts toward reviewer
// workload. Everything except approved is open; rejected submissions can
// restart and still belong to their reviewers.
func (s *Submission) IsOpen() bool {
	return !s.Status.IsTerminal()
}
