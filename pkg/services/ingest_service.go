package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
)

// ExtractedValue is one tuple reported by the upstream extraction pipeline.
type ExtractedValue struct {
	Domain          string                `json:"domain"`
	Variable        string                `json:"variable"`
	Value           string                `json:"value"`
	ConfidenceScore float64               `json:"confidence_score"`
	Location        models.SourceLocation `json:"location"`
}

// IngestService turns upstream extraction output into stored fields with
// their provenance. The extraction pipeline itself is an opaque producer;
// this is the only door its results come through.
type IngestService interface {
	// RecordBatch classifies and stores a batch of extracted values for a
	// submission, creating one ExtractedField and one ProvenanceRecord per
	// tuple atomically. A tuple with a score outside [0,1] rejects the
	// whole batch.
	RecordBatch(ctx context.Context, submissionID uuid.UUID, values []ExtractedValue) ([]*models.ExtractedField, error)
}

type ingestService struct {
	submissions repositories.SubmissionRepository
	fields      repositories.ExtractedFieldRepository
	analytics   SummaryInvalidator
	logger      *zap.Logger
}

// NewIngestService creates a new IngestService.
func NewIngestService(
	submissions repositories.SubmissionRepository,
	fields repositories.ExtractedFieldRepository,
	analytics SummaryInvalidator,
	logger *zap.Logger,
) IngestService {
	return &ingestService{
		submissions: submissions,
		fields:      fields,
		analytics:   analytics,
		logger:      logger.Named("ingest-service"),
	}
}

var _ IngestService = (*ingestService)(nil)

func (s *ingestService) RecordBatch(ctx context.Context, submissionID uuid.UUID, values []ExtractedValue) ([]*models.ExtractedField, error) {
	sub, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}

	fields := make([]*models.ExtractedField, 0, len(values))
	records := make([]*models.ProvenanceRecord, 0, len(values))

	for i, v := range values {
		field := &models.ExtractedField{
			ID:           uuid.New(),
			SubmissionID: sub.ID,
			Domain:       v.Domain,
			Variable:     v.Variable,
			Value:        v.Value,
		}
		if err := field.ApplyConfidence(v.ConfidenceScore); err != nil {
			return nil, fmt.Errorf("value %d (%s.%s): %w", i, v.Domain, v.Variable, err)
		}

		score := v.ConfidenceScore
		records = append(records, &models.ProvenanceRecord{
			ID:              uuid.New(),
			SubmissionID:    sub.ID,
			Domain:          v.Domain,
			Variable:        v.Variable,
			Value:           v.Value,
			Location:        v.Location,
			Method:          models.MethodAutomated,
			ConfidenceScore: &score,
		})
		fields = append(fields, field)
	}

	if err := s.fields.CreateBatchWithProvenance(ctx, fields, records); err != nil {
		return nil, fmt.Errorf("store extracted batch: %w", err)
	}

	s.analytics.InvalidateConfidenceSummary(ctx, sub.ID)

	s.logger.Info("Extracted batch recorded",
		zap.String("submission", sub.SubmissionID),
		zap.Int("fields", len(fields)))
	return fields, nil
}
