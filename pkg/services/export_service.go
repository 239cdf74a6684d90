package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/config"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
)

// ExportFormat selects the training dataset file format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// TrainingRecord is one row of the exported training dataset. It pairs what
// the extraction pipeline produced with what the reviewer said it should have
// been.
type TrainingRecord struct {
	Domain          string                `json:"domain"`
	Variable        string                `json:"variable"`
	OriginalValue   string                `json:"original_value"`
	CorrectedValue  string                `json:"corrected_value"`
	Reason          string                `json:"reason"`
	Type            models.CorrectionType `json:"type"`
	ConfidenceScore float64               `json:"confidence_score"`
}

// ExportResult reports what an export run produced.
type ExportResult struct {
	File       string       `json:"file"`
	Format     ExportFormat `json:"format"`
	Count      int          `json:"count"`
	ExportedAt time.Time    `json:"exported_at"`
}

// ExportService writes reviewer corrections out as training data for the
// extraction model.
type ExportService interface {
	// ExportTraining writes every not-yet-exported correction to a
	// timestamped dataset file and flags the corrections as exported.
	// An empty pending set still produces a result with Count zero and no
	// file.
	ExportTraining(ctx context.Context, format ExportFormat) (*ExportResult, error)
}

type exportService struct {
	corrections repositories.CorrectionRepository
	cfg         config.ExportConfig
	logger      *zap.Logger
}

// NewExportService creates a new ExportService.
func NewExportService(corrections repositories.CorrectionRepository, cfg config.ExportConfig, logger *zap.Logger) ExportService {
	return &exportService{
		corrections: corrections,
		cfg:         cfg,
		logger:      logger.Named("export-service"),
	}
}

var _ ExportService = (*exportService)(nil)

func (s *exportService) ExportTraining(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	if format != FormatCSV && format != FormatJSON {
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	pending, err := s.corrections.ListPendingTraining(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending corrections: %w", err)
	}

	now := time.Now()
	result := &ExportResult{Format: format, Count: len(pending), ExportedAt: now}
	if len(pending) == 0 {
		return result, nil
	}

	records := make([]TrainingRecord, len(pending))
	ids := make([]uuid.UUID, len(pending))
	for i, c := range pending {
		records[i] = TrainingRecord{
			Domain:          c.Domain,
			Variable:        c.Variable,
			OriginalValue:   c.OriginalValue,
			CorrectedValue:  c.CorrectedValue,
			Reason:          c.Reason,
			Type:            c.Type,
			ConfidenceScore: c.ConfidenceBefore,
		}
		ids[i] = c.ID
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("training_dataset_%s.%s", now.UTC().Format("20060102T150405"), format)
	path := filepath.Join(s.cfg.Dir, name)

	if err := writeDataset(path, format, records); err != nil {
		return nil, err
	}

	if err := s.corrections.MarkExported(ctx, ids, now); err != nil {
		// The file exists but the flags did not stick; the next run will
		// re-export these rows. Surface the error so the caller retries.
		return nil, fmt.Errorf("mark corrections exported: %w", err)
	}

	result.File = path
	s.logger.Info("Training dataset exported",
		zap.String("file", path),
		zap.Int("records", len(records)))
	return result, nil
}

func writeDataset(path string, format ExportFormat, records []TrainingRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err := encodeDataset(f, format, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

func encodeDataset(f *os.File, format ExportFormat, records []TrainingRecord) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode dataset: %w", err)
		}
	case FormatCSV:
		w := csv.NewWriter(f)
		header := []string{
			"domain", "variable", "original_value", "corrected_value",
			"reason", "type", "confidence_score",
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write dataset header: %w", err)
		}
		for _, r := range records {
			row := []string{
				r.Domain, r.Variable, r.OriginalValue, r.CorrectedValue,
				r.Reason, string(r.Type),
				strconv.FormatFloat(r.ConfidenceScore, 'f', 4, 64),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write dataset row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush dataset: %w", err)
		}
	}
	return nil
}
