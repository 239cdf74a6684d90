package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
	"github.com/sendbridge/sendbridge-engine/pkg/database"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
)

// ReviewerRepository provides read access to reviewers. Reviewer lifecycle
// is owned by the identity system; this service never writes reviewers
// outside of tests and seeds.
type ReviewerRepository interface {
	Create(ctx context.Context, reviewer *models.Reviewer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reviewer, error)

	// ListWorkloads returns every available reviewer holding the role,
	// each paired with their current open-submission count for that role.
	// The counts are computed fresh on every call.
	ListWorkloads(ctx context.Context, role models.ReviewRole) ([]models.ReviewerWorkload, error)
}

type reviewerRepository struct {
	db *database.DB
}

// NewReviewerRepository creates a new ReviewerRepository.
func NewReviewerRepository(db *database.DB) ReviewerRepository {
	return &reviewerRepository{db: db}
}

var _ ReviewerRepository = (*reviewerRepository)(nil)

func (r *reviewerRepository) Create(ctx context.Context, reviewer *models.Reviewer) error {
	if reviewer.ID == uuid.Nil {
		reviewer.ID = uuid.New()
	}

	query := `
		INSERT INTO reviewers (id, name, email, role, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		reviewer.ID, reviewer.Name, reviewer.Email, reviewer.Role, reviewer.IsAvailable,
	).Scan(&reviewer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create reviewer: %w", err)
	}
	return nil
}

func (r *reviewerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reviewer, error) {
	query := `SELECT id, name, email, role, is_available, created_at FROM reviewers WHERE id = $1`

	var rev models.Reviewer
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rev.ID, &rev.Name, &rev.Email, &rev.Role, &rev.IsAvailable, &rev.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	return &rev, nil
}

func (r *reviewerRepository) ListWorkloads(ctx context.Context, role models.ReviewRole) ([]models.ReviewerWorkload, error) {
	col, err := assignmentColumn(role)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT r.id, r.name, r.email, r.role, r.is_available, r.created_at,
			COUNT(s.id) AS open_count
		FROM reviewers r
		LEFT JOIN submissions s ON s.%s = r.id AND s.status <> $1
		WHERE r.role = $2 AND r.is_available
		GROUP BY r.id
		ORDER BY open_count, r.id`, col)

	rows, err := r.db.Query(ctx, query, models.StatusApproved, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviewer workloads: %w", err)
	}
	defer rows.Close()

	var workloads []models.ReviewerWorkload
	for rows.Next() {
		var w models.ReviewerWorkload
		if err := rows.Scan(
			&w.Reviewer.ID, &w.Reviewer.Name, &w.Reviewer.Email, &w.Reviewer.Role,
			&w.Reviewer.IsAvailable, &w.Reviewer.CreatedAt, &w.OpenCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reviewer workload: %w", err)
		}
		workloads = append(workloads, w)
	}
	return workloads, rows.Err()
}
