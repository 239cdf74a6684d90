package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
)

// WorkflowService owns the submission lifecycle: creation and validated
// state transitions.
type WorkflowService interface {
	// CreateSubmission opens a new submission for a study in the uploaded
	// state.
	CreateSubmission(ctx context.Context, studyID uuid.UUID, studyNumber string, priority int) (*models.Submission, error)

	// Transition moves the submission to the target status. It fails with
	// apperrors.ErrInvalidTransition for illegal edges,
	// apperrors.ErrMissingRejectionReason when rejecting without a reason,
	// and apperrors.ErrConcurrentModification when another caller changed
	// the submission since it was read. The write is a single
	// version-guarded read-modify-write; callers retry on conflict with
	// fresh state.
	Transition(ctx context.Context, submissionID uuid.UUID, target models.SubmissionStatus, reason string) (*models.Submission, error)
}

type workflowService struct {
	submissions repositories.SubmissionRepository
	reviewers   repositories.ReviewerRepository
	notifier    Notifier
	logger      *zap.Logger
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	submissions repositories.SubmissionRepository,
	reviewers repositories.ReviewerRepository,
	notifier Notifier,
	logger *zap.Logger,
) WorkflowService {
	return &workflowService{
		submissions: submissions,
		reviewers:   reviewers,
		notifier:    notifier,
		logger:      logger.Named("workflow-service"),
	}
}

var _ WorkflowService = (*workflowService)(nil)

func (s *workflowService) CreateSubmission(ctx context.Context, studyID uuid.UUID, studyNumber string, priority int) (*models.Submission, error) {
	if priority < 1 || priority > 5 {
		priority = 3
	}

	now := time.Now()
	sub := &models.Submission{
		ID:           uuid.New(),
		SubmissionID: models.NewSubmissionID(studyNumber, now),
		StudyID:      studyID,
		Status:       models.StatusUploaded,
		Priority:     priority,
	}

	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	s.logger.Info("Submission created",
		zap.String("submission", sub.SubmissionID),
		zap.String("study_id", studyID.String()))
	return sub, nil
}

func (s *workflowService) Transition(ctx context.Context, submissionID uuid.UUID, target models.SubmissionStatus, reason string) (*models.Submission, error) {
	if !models.IsValidSubmissionStatus(target) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidTransition, target)
	}

	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	if !sub.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", apperrors.ErrInvalidTransition, sub.Status, target)
	}

	if target == models.StatusRejected {
		if reason == "" {
			return nil, apperrors.ErrMissingRejectionReason
		}
		sub.RejectionReason = &reason
	}

	now := time.Now()
	sub.Status = target
	sub.StampStatusEntry(target, now)

	// Version-guarded write; a concurrent transition on the same submission
	// surfaces here as ErrConcurrentModification and the caller re-reads.
	if err := s.submissions.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist transition: %w", err)
	}

	actorID := "system"
	if actor, ok := models.GetActor(ctx); ok {
		actorID = actor.UserID.String()
	}
	s.logger.Info("Submission transitioned",
		zap.String("submission", sub.SubmissionID),
		zap.String("to", string(target)),
		zap.String("actor", actorID))

	s.notifyResponsibleReviewer(ctx, sub, target)
	return sub, nil
}

// notifyResponsibleReviewer tells the reviewer assigned for the entered
// stage. Failures are logged, never propagated.
func (s *workflowService) notifyResponsibleReviewer(ctx context.Context, sub *models.Submission, target models.SubmissionStatus) {
	role := models.RoleForStatus(target)
	if role == "" {
		return
	}
	reviewerID := sub.AssignedReviewer(role)
	if reviewerID == nil {
		return
	}

	reviewer, err := s.reviewers.GetByID(ctx, *reviewerID)
	if err != nil {
		s.logger.Warn("Failed to load reviewer for notification",
			zap.String("reviewer_id", reviewerID.String()), zap.Error(err))
		return
	}

	if err := s.notifier.Notify(ctx, reviewer, sub, EventStageEntered); err != nil {
		s.logger.Warn("Failed to notify reviewer",
			zap.String("reviewer", reviewer.Email),
			zap.String("submission", sub.SubmissionID),
			zap.Error(err))
	}
}
