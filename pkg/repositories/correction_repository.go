package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sendbridge/sendbridge-engine/pkg/database"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
)

// CorrectionRepository provides data access for correction records.
// Corrections are immutable after creation except for the training-export
// flag.
type CorrectionRepository interface {
	Create(ctx context.Context, correction *models.Correction) error
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.Correction, error)

	// ListAll returns every correction, optionally filtered by domain.
	ListAll(ctx context.Context, domain string) ([]*models.Correction, error)

	// ListPendingTraining returns corrections not yet exported for training.
	ListPendingTraining(ctx context.Context) ([]*models.Correction, error)

	// MarkExported flags the given corrections as included in a training
	// export at the given time.
	MarkExported(ctx context.Context, ids []uuid.UUID, at time.Time) error

	CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error)
}

type correctionRepository struct {
	db *database.DB
}

// NewCorrectionRepository creates a new CorrectionRepository.
func NewCorrectionRepository(db *database.DB) CorrectionRepository {
	return &correctionRepository{db: db}
}

var _ CorrectionRepository = (*correctionRepository)(nil)

const correctionColumns = `
	id, submission_id, field_id, corrected_by, domain, variable,
	original_value, corrected_value, reason, type, confidence_before,
	added_to_training, training_export_at, created_at`

func (r *correctionRepository) Create(ctx context.Context, correction *models.Correction) error {
	if correction.ID == uuid.Nil {
		correction.ID = uuid.New()
	}
	correction.CreatedAt = time.Now()

	query := `
		INSERT INTO corrections (
			id, submission_id, field_id, corrected_by, domain, variable,
			original_value, corrected_value, reason, type, confidence_before, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		correction.ID, correction.SubmissionID, correction.FieldID, correction.CorrectedBy,
		correction.Domain, correction.Variable, correction.OriginalValue,
		correction.CorrectedValue, correction.Reason, correction.Type,
		correction.ConfidenceBefore, correction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create correction: %w", err)
	}
	return nil
}

func (r *correctionRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.Correction, error) {
	query := `SELECT` + correctionColumns + ` FROM corrections WHERE submission_id = $1 ORDER BY created_at DESC`
	return r.queryCorrections(ctx, query, submissionID)
}

func (r *correctionRepository) ListAll(ctx context.Context, domain string) ([]*models.Correction, error) {
	if domain != "" {
		query := `SELECT` + correctionColumns + ` FROM corrections WHERE domain = $1 ORDER BY created_at DESC`
		return r.queryCorrections(ctx, query, domain)
	}
	query := `SELECT` + correctionColumns + ` FROM corrections ORDER BY created_at DESC`
	return r.queryCorrections(ctx, query)
}

func (r *correctionRepository) ListPendingTraining(ctx context.Context) ([]*models.Correction, error) {
	query := `SELECT` + correctionColumns + ` FROM corrections WHERE NOT added_to_training ORDER BY created_at`
	return r.queryCorrections(ctx, query)
}

func (r *correctionRepository) MarkExported(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.Exec(ctx,
		`UPDATE corrections SET added_to_training = TRUE, training_export_at = $1 WHERE id = ANY($2)`,
		at, ids,
	)
	if err != nil {
		return fmt.Errorf("failed to mark corrections exported: %w", err)
	}
	return nil
}

func (r *correctionRepository) CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM corrections WHERE corrected_by = $1`, reviewerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count corrections: %w", err)
	}
	return count, nil
}

func (r *correctionRepository) queryCorrections(ctx context.Context, query string, args ...any) ([]*models.Correction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer rows.Close()

	var corrections []*models.Correction
	for rows.Next() {
		correction, err := scanCorrection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan correction: %w", err)
		}
		corrections = append(corrections, correction)
	}
	return corrections, rows.Err()
}

func scanCorrection(row pgx.Row) (*models.Correction, error) {
	var c models.Correction
	err := row.Scan(
		&c.ID, &c.SubmissionID, &c.FieldID, &c.CorrectedBy, &c.Domain, &c.Variable,
		&c.OriginalValue, &c.CorrectedValue, &c.Reason, &c.Type, &c.ConfidenceBefore,
		&c.AddedToTraining, &c.TrainingExportAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
