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

// CommentInput is the caller-supplied part of a new review comment.
type CommentInput struct {
	SubmissionID uuid.UUID              `json:"submission_id"`
	ReviewerID   uuid.UUID              `json:"reviewer_id"`
	Severity     models.CommentSeverity `json:"severity"`
	Domain       string                 `json:"domain,omitempty"`
	Variable     string                 `json:"variable,omitempty"`
	Text         string                 `json:"text"`
}

// CorrectionInput is the caller-supplied part of a field correction.
type CorrectionInput struct {
	FieldID        uuid.UUID             `json:"field_id"`
	CorrectedBy    uuid.UUID             `json:"corrected_by"`
	CorrectedValue string                `json:"corrected_value"`
	Reason         string                `json:"reason"`
	Type           models.CorrectionType `json:"type"`
}

// ReviewService covers the human side of a review: comments, corrections and
// field sign-off.
type ReviewService interface {
	AddComment(ctx context.Context, input CommentInput) (*models.ReviewComment, error)

	// ResolveComment marks a comment resolved. Resolving twice fails with
	// apperrors.ErrConflict.
	ResolveComment(ctx context.Context, commentID, resolverID uuid.UUID, notes string) (*models.ReviewComment, error)

	// RecordCorrection overrides an extracted value. It writes the
	// correction record, updates the field in place and appends a
	// provenance record for the corrected value.
	RecordCorrection(ctx context.Context, input CorrectionInput) (*models.Correction, error)

	// MarkFieldReviewed records a reviewer's sign-off on a field and clears
	// its review flag.
	MarkFieldReviewed(ctx context.Context, fieldID, reviewerID uuid.UUID) (*models.ExtractedField, error)
}

type reviewService struct {
	fields      repositories.ExtractedFieldRepository
	comments    repositories.ReviewCommentRepository
	corrections repositories.CorrectionRepository
	provenance  repositories.ProvenanceRepository
	analytics   SummaryInvalidator
	logger      *zap.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	fields repositories.ExtractedFieldRepository,
	comments repositories.ReviewCommentRepository,
	corrections repositories.CorrectionRepository,
	provenance repositories.ProvenanceRepository,
	analytics SummaryInvalidator,
	logger *zap.Logger,
) ReviewService {
	return &reviewService{
		fields:      fields,
		comments:    comments,
		corrections: corrections,
		provenance:  provenance,
		analytics:   analytics,
		logger:      logger.Named("review-service"),
	}
}

var _ ReviewService = (*reviewService)(nil)

func (s *reviewService) AddComment(ctx context.Context, input CommentInput) (*models.ReviewComment, error) {
	if input.Text == "" {
		return nil, fmt.Errorf("%w: comment text is required", apperrors.ErrValidation)
	}
	if !models.IsValidCommentSeverity(input.Severity) {
		return nil, fmt.Errorf("%w: invalid severity %q", apperrors.ErrValidation, input.Severity)
	}

	comment := &models.ReviewComment{
		ID:           uuid.New(),
		SubmissionID: input.SubmissionID,
		ReviewerID:   input.ReviewerID,
		Severity:     input.Severity,
		Domain:       input.Domain,
		Variable:     input.Variable,
		Text:         input.Text,
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	s.logger.Info("Review comment added",
		zap.String("submission_id", input.SubmissionID.String()),
		zap.String("severity", string(input.Severity)))
	return comment, nil
}

func (s *reviewService) ResolveComment(ctx context.Context, commentID, resolverID uuid.UUID, notes string) (*models.ReviewComment, error) {
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("load comment: %w", err)
	}

	if err := comment.Resolve(resolverID, notes, time.Now()); err != nil {
		return nil, err
	}
	if err := s.comments.Resolve(ctx, comment); err != nil {
		return nil, fmt.Errorf("persist resolution: %w", err)
	}
	return comment, nil
}

func (s *reviewService) RecordCorrection(ctx context.Context, input CorrectionInput) (*models.Correction, error) {
	if !models.IsValidCorrectionType(input.Type) {
		return nil, fmt.Errorf("%w: invalid correction type %q", apperrors.ErrValidation, input.Type)
	}

	field, err := s.fields.GetByID(ctx, input.FieldID)
	if err != nil {
		return nil, fmt.Errorf("load field: %w", err)
	}

	correction := &models.Correction{
		ID:               uuid.New(),
		SubmissionID:     field.SubmissionID,
		FieldID:          field.ID,
		CorrectedBy:      input.CorrectedBy,
		Domain:           field.Domain,
		Variable:         field.Variable,
		OriginalValue:    field.Value,
		CorrectedValue:   input.CorrectedValue,
		Reason:           input.Reason,
		Type:             input.Type,
		ConfidenceBefore: field.ConfidenceScore,
	}

	if err := s.corrections.Create(ctx, correction); err != nil {
		return nil, fmt.Errorf("create correction: %w", err)
	}

	field.ApplyCorrection(input.CorrectedValue)
	if err := s.fields.Update(ctx, field); err != nil {
		return nil, fmt.Errorf("update field: %w", err)
	}

	correctedBy := input.CorrectedBy
	record := &models.ProvenanceRecord{
		ID:           uuid.New(),
		SubmissionID: field.SubmissionID,
		Domain:       field.Domain,
		Variable:     field.Variable,
		Value:        input.CorrectedValue,
		Location:     s.sourceLocationFor(ctx, field),
		Method:       models.MethodCorrected,
		ExtractedBy:  &correctedBy,
	}
	if err := s.provenance.Create(ctx, record); err != nil {
		// The correction itself is committed; the audit trail gap is logged
		// rather than rolled back.
		s.logger.Error("Failed to record correction provenance",
			zap.String("field_id", field.ID.String()), zap.Error(err))
	}

	s.analytics.InvalidateConfidenceSummary(ctx, field.SubmissionID)

	s.logger.Info("Correction recorded",
		zap.String("field_id", field.ID.String()),
		zap.String("domain", field.Domain),
		zap.String("variable", field.Variable),
		zap.String("type", string(input.Type)))
	return correction, nil
}

// sourceLocationFor returns the document location already on record for the
// field's variable, so a corrected value stays pinned to the same source
// position as the value it replaces. The newest matching record wins, which
// keeps the location through chained corrections. A lookup failure degrades
// to an empty location rather than failing the correction.
func (s *reviewService) sourceLocationFor(ctx context.Context, field *models.ExtractedField) models.SourceLocation {
	records, err := s.provenance.ListBySubmission(ctx, field.SubmissionID)
	if err != nil {
		s.logger.Warn("Failed to look up provenance for correction location",
			zap.String("field_id", field.ID.String()), zap.Error(err))
		return models.SourceLocation{}
	}

	var location models.SourceLocation
	var newest time.Time
	for _, r := range records {
		if r.Domain != field.Domain || r.Variable != field.Variable {
			continue
		}
		if !r.ExtractedAt.Before(newest) {
			location = r.Location
			newest = r.ExtractedAt
		}
	}
	return location
}

func (s *reviewService) MarkFieldReviewed(ctx context.Context, fieldID, reviewerID uuid.UUID) (*models.ExtractedField, error) {
	field, err := s.fields.GetByID(ctx, fieldID)
	if err != nil {
		return nil, fmt.Errorf("load field: %w", err)
	}

	field.MarkReviewed(reviewerID, time.Now())
	if err := s.fields.Update(ctx, field); err != nil {
		return nil, fmt.Errorf("update field: %w", err)
	}

	s.analytics.InvalidateConfidenceSummary(ctx, field.SubmissionID)
	return field, nil
}
