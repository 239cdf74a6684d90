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

// ExtractedFieldRepository provides data access for extracted fields.
type ExtractedFieldRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExtractedField, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ExtractedField, error)
	Update(ctx context.Context, field *models.ExtractedField) error

	// CreateBatchWithProvenance inserts fields and their provenance records
	// in a single transaction, so a half-ingested batch never becomes
	// visible. Slices must be index-aligned.
	CreateBatchWithProvenance(ctx context.Context, fields []*models.ExtractedField, records []*models.ProvenanceRecord) error
}

type extractedFieldRepository struct {
	db *database.DB
}

// NewExtractedFieldRepository creates a new ExtractedFieldRepository.
func NewExtractedFieldRepository(db *database.DB) ExtractedFieldRepository {
	return &extractedFieldRepository{db: db}
}

var _ ExtractedFieldRepository = (*extractedFieldRepository)(nil)

const fieldColumns = `
	id, submission_id, domain, variable, value,
	confidence_score, confidence_level, requires_review,
	was_corrected, original_value, reviewed_by, reviewed_at,
	created_at, updated_at`

func (r *extractedFieldRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExtractedField, error) {
	query := `SELECT` + fieldColumns + ` FROM extracted_fields WHERE id = $1`

	field, err := scanField(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get extracted field: %w", err)
	}
	return field, nil
}

func (r *extractedFieldRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ExtractedField, error) {
	query := `SELECT` + fieldColumns + ` FROM extracted_fields WHERE submission_id = $1 ORDER BY domain, variable`

	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list extracted fields: %w", err)
	}
	defer rows.Close()

	var fields []*models.ExtractedField
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan extracted field: %w", err)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

func (r *extractedFieldRepository) Update(ctx context.Context, field *models.ExtractedField) error {
	query := `
		UPDATE extracted_fields SET
			value = $1, confidence_score = $2, confidence_level = $3,
			requires_review = $4, was_corrected = $5, original_value = $6,
			reviewed_by = $7, reviewed_at = $8, updated_at = now()
		WHERE id = $9`

	tag, err := r.db.Exec(ctx, query,
		field.Value, field.ConfidenceScore, field.ConfidenceLevel,
		field.RequiresReview, field.WasCorrected, field.OriginalValue,
		field.ReviewedBy, field.ReviewedAt, field.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update extracted field: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *extractedFieldRepository) CreateBatchWithProvenance(ctx context.Context, fields []*models.ExtractedField, records []*models.ProvenanceRecord) error {
	if len(fields) != len(records) {
		return fmt.Errorf("fields and provenance records must be aligned: %d vs %d", len(fields), len(records))
	}
	if len(fields) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	now := time.Now()
	for i, field := range fields {
		if field.ID == uuid.Nil {
			field.ID = uuid.New()
		}
		field.CreatedAt = now
		field.UpdatedAt = now

		_, err := tx.Exec(ctx, `
			INSERT INTO extracted_fields (
				id, submission_id, domain, variable, value,
				confidence_score, confidence_level, requires_review,
				was_corrected, original_value, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			field.ID, field.SubmissionID, field.Domain, field.Variable, field.Value,
			field.ConfidenceScore, field.ConfidenceLevel, field.RequiresReview,
			field.WasCorrected, field.OriginalValue, field.CreatedAt, field.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert extracted field: %w", err)
		}

		if err := insertProvenance(ctx, tx, records[i], now); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit field batch: %w", err)
	}
	return nil
}

func scanField(row pgx.Row) (*models.ExtractedField, error) {
	var f models.ExtractedField
	err := row.Scan(
		&f.ID, &f.SubmissionID, &f.Domain, &f.Variable, &f.Value,
		&f.ConfidenceScore, &f.ConfidenceLevel, &f.RequiresReview,
		&f.WasCorrected, &f.OriginalValue, &f.ReviewedBy, &f.ReviewedAt,
		&f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
