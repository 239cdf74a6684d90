package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
)

// SelectReviewer picks the reviewer with the fewest open submissions from a
// workload snapshot, breaking ties by reviewer ID ascending so that repeated
// calls over the same snapshot always agree. Pure; persistence is the
// service's job. An empty pool fails with apperrors.ErrNoAvailableReviewer.
//
// This is a greedy heuristic: assignment happens one submission at a time,
// so there is no batch to optimize over.
func SelectReviewer(workloads []models.ReviewerWorkload) (*models.Reviewer, error) {
	var best *models.ReviewerWorkload
	for i := range workloads {
		w := &workloads[i]
		if !w.Reviewer.IsAvailable {
			continue
		}
		if best == nil ||
			w.OpenCount < best.OpenCount ||
			(w.OpenCount == best.OpenCount && strings.Compare(w.Reviewer.ID.String(), best.Reviewer.ID.String()) < 0) {
			best = w
		}
	}
	if best == nil {
		return nil, apperrors.ErrNoAvailableReviewer
	}
	reviewer := best.Reviewer
	return &reviewer, nil
}

// AssignmentResult reports what AssignAllRoles accomplished. Warnings carry
// one entry per role that could not be assigned; partial staffing is not a
// failure.
type AssignmentResult struct {
	Submission *models.Submission              `json:"submission"`
	Assigned   map[models.ReviewRole]uuid.UUID `json:"assigned"`
	Warnings   []string                        `json:"warnings,omitempty"`
}

// AssignmentService fills the three reviewer slots on a submission.
type AssignmentService interface {
	// AssignAllRoles assigns each of the three review roles independently
	// by current workload. Roles with an empty candidate pool are left
	// unassigned and reported as warnings. All successful assignments are
	// persisted in one version-guarded write.
	AssignAllRoles(ctx context.Context, submissionID uuid.UUID) (*AssignmentResult, error)
}

type assignmentService struct {
	submissions repositories.SubmissionRepository
	reviewers   repositories.ReviewerRepository
	notifier    Notifier
	logger      *zap.Logger
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	submissions repositories.SubmissionRepository,
	reviewers repositories.ReviewerRepository,
	notifier Notifier,
	logger *zap.Logger,
) AssignmentService {
	return &assignmentService{
		submissions: submissions,
		reviewers:   reviewers,
		notifier:    notifier,
		logger:      logger.Named("assignment-service"),
	}
}

var _ AssignmentService = (*assignmentService)(nil)

func (s *assignmentService) AssignAllRoles(ctx context.Context, submissionID uuid.UUID) (*AssignmentResult, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	result := &AssignmentResult{
		Assigned: make(map[models.ReviewRole]uuid.UUID),
	}
	assigned := make(map[models.ReviewRole]*models.Reviewer)

	for _, role := range models.ReviewRoles {
		workloads, err := s.reviewers.ListWorkloads(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("list %s workloads: %w", role, err)
		}

		reviewer, err := SelectReviewer(workloads)
		if err != nil {
			// Keep moving with partial staffing; the caller sees the gap.
			result.Warnings = append(result.Warnings, fmt.Sprintf("no available %s", role))
			s.logger.Warn("No available reviewer for role",
				zap.String("submission", sub.SubmissionID),
				zap.String("role", string(role)))
			continue
		}

		sub.SetAssignedReviewer(role, reviewer.ID)
		assigned[role] = reviewer
		result.Assigned[role] = reviewer.ID
	}

	if len(assigned) > 0 {
		if err := s.submissions.Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("persist assignments: %w", err)
		}
	}
	result.Submission = sub

	for role, reviewer := range assigned {
		if err := s.notifier.Notify(ctx, reviewer, sub, EventAssigned); err != nil {
			s.logger.Warn("Failed to notify assigned reviewer",
				zap.String("reviewer", reviewer.Email),
				zap.String("role", string(role)),
				zap.Error(err))
		}
	}

	return result, nil
}
