package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
	"github.com/sendbridge/sendbridge-engine/pkg/database"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
)

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	Statuses []models.SubmissionStatus
	Priority *int
}

// SubmissionRepository provides data access for submissions.
type SubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error)

	// Update persists the submission with an optimistic-concurrency check:
	// the row's version must still equal sub.Version or the update fails
	// with apperrors.ErrConcurrentModification. On success sub.Version is
	// incremented to match the stored row.
	Update(ctx context.Context, sub *models.Submission) error

	// CountOpenByReviewer returns how many non-approved submissions are
	// assigned to the reviewer in the given role.
	CountOpenByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error)

	// CountCompletedByReviewer returns how many of the reviewer's
	// submissions have moved past their review stage.
	CountCompletedByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error)
}

type submissionRepository struct {
	db *database.DB
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(db *database.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

var _ SubmissionRepository = (*submissionRepository)(nil)

const submissionColumns = `
	id, submission_id, study_id, status, priority,
	assigned_toxicologist, assigned_send_expert, assigned_qc_reviewer,
	ai_processing_at, tox_review_at, send_review_at, qc_review_at,
	approved_at, rejected_at, rejection_reason, notes,
	version, created_at, updated_at`

func (r *submissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Status == "" {
		sub.Status = models.StatusUploaded
	}
	if sub.Version == 0 {
		sub.Version = 1
	}

	query := `
		INSERT INTO submissions (
			id, submission_id, study_id, status, priority,
			assigned_toxicologist, assigned_send_expert, assigned_qc_reviewer,
			rejection_reason, notes, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.SubmissionID, sub.StudyID, sub.Status, sub.Priority,
		sub.AssignedToxicologist, sub.AssignedSendExpert, sub.AssignedQCReviewer,
		sub.RejectionReason, sub.Notes, sub.Version, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	query := `SELECT` + submissionColumns + ` FROM submissions WHERE id = $1`

	sub, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]*models.Submission, error) {
	query := `SELECT` + submissionColumns + ` FROM submissions`
	args := []any{}
	where := ""

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = fmt.Sprintf(" WHERE status = ANY($%d)", len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		if where == "" {
			where = fmt.Sprintf(" WHERE priority = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND priority = $%d", len(args))
		}
	}

	query += where + ` ORDER BY priority, created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (r *submissionRepository) Update(ctx context.Context, sub *models.Submission) error {
	query := `
		UPDATE submissions SET
			status = $1, priority = $2,
			assigned_toxicologist = $3, assigned_send_expert = $4, assigned_qc_reviewer = $5,
			ai_processing_at = $6, tox_review_at = $7, send_review_at = $8, qc_review_at = $9,
			approved_at = $10, rejected_at = $11, rejection_reason = $12, notes = $13,
			version = version + 1, updated_at = now()
		WHERE id = $14 AND version = $15`

	tag, err := r.db.Exec(ctx, query,
		sub.Status, sub.Priority,
		sub.AssignedToxicologist, sub.AssignedSendExpert, sub.AssignedQCReviewer,
		sub.AIProcessingAt, sub.ToxReviewAt, sub.SendReviewAt, sub.QCReviewAt,
		sub.ApprovedAt, sub.RejectedAt, sub.RejectionReason, sub.Notes,
		sub.ID, sub.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone else won the version race.
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, sub.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check submission existence: %w", err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrConcurrentModification
	}

	sub.Version++
	return nil
}

func (r *submissionRepository) CountOpenByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error) {
	col, err := assignmentColumn(role)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM submissions WHERE %s = $1 AND status <> $2`, col)

	var count int
	if err := r.db.QueryRow(ctx, query, reviewerID, models.StatusApproved).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count open submissions: %w", err)
	}
	return count, nil
}

func (r *submissionRepository) CountCompletedByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error) {
	col, err := assignmentColumn(role)
	if err != nil {
		return 0, err
	}

	// A review stage is completed once the submission entered the next one.
	var completedAt string
	switch role {
	case models.RoleToxicologist:
		completedAt = "send_review_at"
	case models.RoleSendExpert:
		completedAt = "qc_review_at"
	case models.RoleQCReviewer:
		completedAt = "approved_at"
	}

	query := fmt.Sprintf(
		`SELECT COUNT(*) FROM submissions WHERE %s = $1 AND %s IS NOT NULL`, col, completedAt)

	var count int
	if err := r.db.QueryRow(ctx, query, reviewerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed submissions: %w", err)
	}
	return count, nil
}

// assignmentColumn maps a review role to its submission column. The column
// name is interpolated into SQL, so only known roles are accepted.
func assignmentColumn(role models.ReviewRole) (string, error) {
	switch role {
	case models.RoleToxicologist:
		return "assigned_toxicologist", nil
	case models.RoleSendExpert:
		return "assigned_send_expert", nil
	case models.RoleQCReviewer:
		return "assigned_qc_reviewer", nil
	default:
		return "", fmt.Errorf("role %q has no assignment column", role)
	}
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	var sub models.Submission
	err := row.Scan(
		&sub.ID, &sub.SubmissionID, &sub.StudyID, &sub.Status, &sub.Priority,
		&sub.AssignedToxicologist, &sub.AssignedSendExpert, &sub.AssignedQCReviewer,
		&sub.AIProcessingAt, &sub.ToxReviewAt, &sub.SendReviewAt, &sub.QCReviewAt,
		&sub.ApprovedAt, &sub.RejectedAt, &sub.RejectionReason, &sub.Notes,
		&sub.Version, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
