package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sendbridge/sendbridge-engine/pkg/database"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
)

// pgxExecutor is satisfied by both the pool and a transaction.
type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ProvenanceRepository provides data access for provenance records.
// Records are append-only; there is no update or delete.
type ProvenanceRepository interface {
	Create(ctx context.Context, record *models.ProvenanceRecord) error
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ProvenanceRecord, error)
}

type provenanceRepository struct {
	db *database.DB
}

// NewProvenanceRepository creates a new ProvenanceRepository.
func NewProvenanceRepository(db *database.DB) ProvenanceRepository {
	return &provenanceRepository{db: db}
}

var _ ProvenanceRepository = (*provenanceRepository)(nil)

func (r *provenanceRepository) Create(ctx context.Context, record *models.ProvenanceRecord) error {
	return insertProvenance(ctx, r.db, record, time.Now())
}

// insertProvenance writes one record through any pgx executor so it can run
// standalone or inside the field-batch transaction.
func insertProvenance(ctx context.Context, exec pgxExecutor, record *models.ProvenanceRecord, now time.Time) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.ExtractedAt.IsZero() {
		record.ExtractedAt = now
	}

	_, err := exec.Exec(ctx, `
		INSERT INTO provenance_records (
			id, submission_id, domain, variable, value,
			page, source_table, source_row, source_column, x, y,
			method, confidence_score, extracted_by, extracted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		record.ID, record.SubmissionID, record.Domain, record.Variable, record.Value,
		record.Location.Page, record.Location.Table, record.Location.Row,
		record.Location.Column, record.Location.X, record.Location.Y,
		record.Method, record.ConfidenceScore, record.ExtractedBy, record.ExtractedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert provenance record: %w", err)
	}
	return nil
}

func (r *provenanceRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ProvenanceRecord, error) {
	query := `
		SELECT id, submission_id, domain, variable, value,
			page, source_table, source_row, source_column, x, y,
			method, confidence_score, extracted_by, extracted_at
		FROM provenance_records
		WHERE submission_id = $1
		ORDER BY page, domain, variable`

	rows, err := r.db.Query(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provenance records: %w", err)
	}
	defer rows.Close()

	var records []*models.ProvenanceRecord
	for rows.Next() {
		record, err := scanProvenance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan provenance record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanProvenance(row pgx.Row) (*models.ProvenanceRecord, error) {
	var p models.ProvenanceRecord
	err := row.Scan(
		&p.ID, &p.SubmissionID, &p.Domain, &p.Variable, &p.Value,
		&p.Location.Page, &p.Location.Table, &p.Location.Row,
		&p.Location.Column, &p.Location.X, &p.Location.Y,
		&p.Method, &p.ConfidenceScore, &p.ExtractedBy, &p.ExtractedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
