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

// ReviewCommentRepository provides data access for review comments.
type ReviewCommentRepository interface {
	Create(ctx context.Context, comment *models.ReviewComment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewComment, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ReviewComment, error)

	// Resolve persists a resolution. The WHERE clause guards the
	// resolve-once invariant at the store level; resolving an already
	// resolved comment fails with apperrors.ErrConflict.
	Resolve(ctx context.Context, comment *models.ReviewComment) error

	CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error)
}

type reviewCommentRepository struct {
	db *database.DB
}

// NewReviewCommentRepository creates a new ReviewCommentRepository.
func NewReviewCommentRepository(db *database.DB) ReviewCommentRepository {
	return &reviewCommentRepository{db: db}
}

var _ ReviewCommentRepository = (*reviewCommentRepository)(nil)

const commentColumns = `
	id, submission_id, reviewer_id, severity, domain, variable, text,
	resolved, resolved_by, resolved_at, resolution_notes, created_at`

func (r *reviewCommentRepository) Create(ctx context.Context, comment *models.ReviewComment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = time.Now()

	query := `
		INSERT INTO review_comments (
			id, submission_id, reviewer_id, severity, domain, variable, text, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		comment.ID, comment.SubmissionID, comment.ReviewerID, comment.Severity,
		comment.Domain, comment.Variable, comment.Text, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create review comment: %w", err)
	}
	return nil
}

func (r *reviewCommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewComment, error) {
	query := `SELECT` + commentColumns + ` FROM review_comments WHERE id = $1`

	comment, err := scanComment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get review comment: %w", err)
	}
	return comment, nil
}

func (r *reviewCommentRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ReviewComment, error) {
	query := `SELECT` + commentColumns + `
		FROM review_comments
		WHERE submission_id = $1
		ORDER BY CASE severity
			WHEN 'critical' THEN 0 WHEN 'major' THEN 1
			WHEN 'minor' THEN 2 ELSE 3 END,
			resolved, created_at DESC`

	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list review comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.ReviewComment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (r *reviewCommentRepository) Resolve(ctx context.Context, comment *models.ReviewComment) error {
	query := `
		UPDATE review_comments SET
			resolved = TRUE, resolved_by = $1, resolved_at = $2, resolution_notes = $3
		WHERE id = $4 AND NOT resolved`

	tag, err := r.db.Exec(ctx, query,
		comment.ResolvedBy, comment.ResolvedAt, comment.ResolutionNotes, comment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to resolve review comment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM review_comments WHERE id = $1)`, comment.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check comment existence: %w", err)
		}
		if !exists {
			return apperrors.ErrNotFound
		}
		return apperrors.ErrConflict
	}
	return nil
}

func (r *reviewCommentRepository) CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM review_comments WHERE reviewer_id = $1`, reviewerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return count, nil
}

func scanComment(row pgx.Row) (*models.ReviewComment, error) {
	var c models.ReviewComment
	err := row.Scan(
		&c.ID, &c.SubmissionID, &c.ReviewerID, &c.Severity, &c.Domain, &c.Variable,
		&c.Text, &c.Resolved, &c.ResolvedBy, &c.ResolvedAt, &c.ResolutionNotes, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
