package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
)

const confidenceSummaryTTL = 5 * time.Minute

// ConfidenceSummary aggregates extraction confidence for one submission.
type ConfidenceSummary struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	TotalFields  int       `json:"total_fields"`

	HighCount   int `json:"high_count"`
	MediumCount int `json:"medium_count"`
	LowCount    int `json:"low_count"`

	HighPct   float64 `json:"high_pct"`
	MediumPct float64 `json:"medium_pct"`
	LowPct    float64 `json:"low_pct"`

	RequiresReviewCount int     `json:"requires_review_count"`
	AverageScore        float64 `json:"average_score"`

	ByDomain map[string]*DomainConfidence `json:"by_domain"`
}

// DomainConfidence is the per-SEND-domain slice of a confidence summary.
type DomainConfidence struct {
	Total          int     `json:"total"`
	High           int     `json:"high"`
	Medium         int     `json:"medium"`
	Low            int     `json:"low"`
	RequiresReview int     `json:"requires_review"`
	AverageScore   float64 `json:"average_score"`
}

// TypePattern counts corrections of one type across the dataset.
type TypePattern struct {
	Type       models.CorrectionType `json:"type"`
	Count      int                   `json:"count"`
	Percentage float64               `json:"percentage"`
}

// DomainPattern summarizes corrections within one SEND domain.
type DomainPattern struct {
	Domain         string                `json:"domain"`
	Count          int                   `json:"count"`
	MostCommonType models.CorrectionType `json:"most_common_type"`
}

// CorrectionPatterns reports where the extraction pipeline keeps getting
// things wrong. It drives both reviewer attention and training priorities.
type CorrectionPatterns struct {
	TotalCorrections int             `json:"total_corrections"`
	ByType           []TypePattern   `json:"by_type"`
	ByDomain         []DomainPattern `json:"by_domain"`
	TrainingReady    int             `json:"training_ready"`
	AlreadyExported  int             `json:"already_exported"`
}

// TraceabilityReport summarizes the provenance trail of a submission.
type TraceabilityReport struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	TotalRecords int       `json:"total_records"`

	ByDomain map[string]int                  `json:"by_domain"`
	ByPage   map[int]int                     `json:"by_page"`
	ByMethod map[models.ExtractionMethod]int `json:"by_method"`

	Records []*models.ProvenanceRecord `json:"records"`
}

// ReviewerStats is the activity snapshot for one reviewer.
type ReviewerStats struct {
	ReviewerID       uuid.UUID         `json:"reviewer_id"`
	Name             string            `json:"name"`
	Role             models.ReviewRole `json:"role"`
	PendingReviews   int               `json:"pending_reviews"`
	CompletedReviews int               `json:"completed_reviews"`
	CommentsWritten  int               `json:"comments_written"`
	CorrectionsMade  int               `json:"corrections_made"`
}

// SummaryInvalidator is the slice of AnalyticsService that writers need:
// dropping stale cached summaries after a field-level write.
type SummaryInvalidator interface {
	InvalidateConfidenceSummary(ctx context.Context, submissionID uuid.UUID)
}

// AnalyticsService computes read-only reports over the review data.
type AnalyticsService interface {
	SummaryInvalidator

	// ConfidenceSummary aggregates field confidence for a submission.
	// Summaries are cached briefly; writers call
	// InvalidateConfidenceSummary to keep readers fresh.
	ConfidenceSummary(ctx context.Context, submissionID uuid.UUID) (*ConfidenceSummary, error)

	// CorrectionPatterns aggregates corrections across all submissions,
	// optionally narrowed to one SEND domain.
	CorrectionPatterns(ctx context.Context, domain string) (*CorrectionPatterns, error)

	// TraceabilityReport returns the provenance trail of a submission with
	// per-domain, per-page and per-method counts.
	TraceabilityReport(ctx context.Context, submissionID uuid.UUID) (*TraceabilityReport, error)

	// WriteTraceabilityCSV streams the provenance trail as CSV, one row
	// per record, for regulatory hand-off.
	WriteTraceabilityCSV(ctx context.Context, submissionID uuid.UUID, w io.Writer) error

	// ReviewerStats gathers per-reviewer workload and activity counts.
	ReviewerStats(ctx context.Context, reviewerID uuid.UUID) (*ReviewerStats, error)
}

type analyticsService struct {
	fields      repositories.ExtractedFieldRepository
	corrections repositories.CorrectionRepository
	provenance  repositories.ProvenanceRepository
	comments    repositories.ReviewCommentRepository
	submissions repositories.SubmissionRepository
	reviewers   repositories.ReviewerRepository
	cache       *redis.Client // nil disables caching
	logger      *zap.Logger
}

// NewAnalyticsService creates a new AnalyticsService. A nil cache client
// disables summary caching.
func NewAnalyticsService(
	fields repositories.ExtractedFieldRepository,
	corrections repositories.CorrectionRepository,
	provenance repositories.ProvenanceRepository,
	comments repositories.ReviewCommentRepository,
	submissions repositories.SubmissionRepository,
	reviewers repositories.ReviewerRepository,
	cache *redis.Client,
	logger *zap.Logger,
) AnalyticsService {
	return &analyticsService{
		fields:      fields,
		corrections: corrections,
		provenance:  provenance,
		comments:    comments,
		submissions: submissions,
		reviewers:   reviewers,
		cache:       cache,
		logger:      logger.Named("analytics-service"),
	}
}

var _ AnalyticsService = (*analyticsService)(nil)

// ============================================================================
// Confidence Summary
// ============================================================================

func confidenceSummaryKey(submissionID uuid.UUID) string {
	return "analytics:confidence:" + submissionID.String()
}

func (s *analyticsService) ConfidenceSummary(ctx context.Context, submissionID uuid.UUID) (*ConfidenceSummary, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, confidenceSummaryKey(submissionID)).Bytes(); err == nil {
			var summary ConfidenceSummary
			if err := json.Unmarshal(data, &summary); err == nil {
				return &summary, nil
			}
		}
	}

	fields, err := s.fields.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}

	summary := &ConfidenceSummary{
		SubmissionID: submissionID,
		TotalFields:  len(fields),
		ByDomain:     make(map[string]*DomainConfidence),
	}

	var scoreSum float64
	domainSums := make(map[string]float64)

	for _, f := range fields {
		scoreSum += f.ConfidenceScore

		dc := summary.ByDomain[f.Domain]
		if dc == nil {
			dc = &DomainConfidence{}
			summary.ByDomain[f.Domain] = dc
		}
		dc.Total++
		domainSums[f.Domain] += f.ConfidenceScore

		switch f.ConfidenceLevel {
		case models.ConfidenceHigh:
			summary.HighCount++
			dc.High++
		case models.ConfidenceMedium:
			summary.MediumCount++
			dc.Medium++
		case models.ConfidenceLow:
			summary.LowCount++
			dc.Low++
		}
		if f.RequiresReview {
			summary.RequiresReviewCount++
			dc.RequiresReview++
		}
	}

	if summary.TotalFields > 0 {
		total := float64(summary.TotalFields)
		summary.HighPct = 100 * float64(summary.HighCount) / total
		summary.MediumPct = 100 * float64(summary.MediumCount) / total
		summary.LowPct = 100 * float64(summary.LowCount) / total
		summary.AverageScore = scoreSum / total
	}
	for domain, dc := range summary.ByDomain {
		dc.AverageScore = domainSums[domain] / float64(dc.Total)
	}

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, confidenceSummaryKey(submissionID), data, confidenceSummaryTTL).Err(); err != nil {
				s.logger.Warn("Failed to cache confidence summary", zap.Error(err))
			}
		}
	}
	return summary, nil
}

func (s *analyticsService) InvalidateConfidenceSummary(ctx context.Context, submissionID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, confidenceSummaryKey(submissionID)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate confidence summary cache",
			zap.String("submission_id", submissionID.String()), zap.Error(err))
	}
}

// ============================================================================
// Correction Patterns
// ============================================================================

func (s *analyticsService) CorrectionPatterns(ctx context.Context, domain string) (*CorrectionPatterns, error) {
	corrections, err := s.corrections.ListAll(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}

	patterns := &CorrectionPatterns{TotalCorrections: len(corrections)}

	typeCounts := make(map[models.CorrectionType]int)
	domainCounts := make(map[string]int)
	domainTypeCounts := make(map[string]map[models.CorrectionType]int)

	for _, c := range corrections {
		typeCounts[c.Type]++
		domainCounts[c.Domain]++
		if domainTypeCounts[c.Domain] == nil {
			domainTypeCounts[c.Domain] = make(map[models.CorrectionType]int)
		}
		domainTypeCounts[c.Domain][c.Type]++

		if c.AddedToTraining {
			patterns.AlreadyExported++
		} else {
			patterns.TrainingReady++
		}
	}

	for t, count := range typeCounts {
		pct := 0.0
		if patterns.TotalCorrections > 0 {
			pct = 100 * float64(count) / float64(patterns.TotalCorrections)
		}
		patterns.ByType = append(patterns.ByType, TypePattern{Type: t, Count: count, Percentage: pct})
	}
	sort.Slice(patterns.ByType, func(i, j int) bool {
		if patterns.ByType[i].Count != patterns.ByType[j].Count {
			return patterns.ByType[i].Count > patterns.ByType[j].Count
		}
		return patterns.ByType[i].Type < patterns.ByType[j].Type
	})

	for d, count := range domainCounts {
		patterns.ByDomain = append(patterns.ByDomain, DomainPattern{
			Domain:         d,
			Count:          count,
			MostCommonType: mostCommonType(domainTypeCounts[d]),
		})
	}
	sort.Slice(patterns.ByDomain, func(i, j int) bool {
		if patterns.ByDomain[i].Count != patterns.ByDomain[j].Count {
			return patterns.ByDomain[i].Count > patterns.ByDomain[j].Count
		}
		return patterns.ByDomain[i].Domain < patterns.ByDomain[j].Domain
	})

	return patterns, nil
}

// mostCommonType breaks count ties alphabetically so the report is stable.
func mostCommonType(counts map[models.CorrectionType]int) models.CorrectionType {
	var best models.CorrectionType
	bestCount := -1
	for t, count := range counts {
		if count > bestCount || (count == bestCount && t < best) {
			best = t
			bestCount = count
		}
	}
	return best
}

// ============================================================================
// Traceability
// ============================================================================

func (s *analyticsService) TraceabilityReport(ctx context.Context, submissionID uuid.UUID) (*TraceabilityReport, error) {
	records, err := s.provenance.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}

	report := &TraceabilityReport{
		SubmissionID: submissionID,
		TotalRecords: len(records),
		ByDomain:     make(map[string]int),
		ByPage:       make(map[int]int),
		ByMethod:     make(map[models.ExtractionMethod]int),
		Records:      records,
	}
	for _, r := range records {
		report.ByDomain[r.Domain]++
		report.ByPage[r.Location.Page]++
		report.ByMethod[r.Method]++
	}
	return report, nil
}

func (s *analyticsService) WriteTraceabilityCSV(ctx context.Context, submissionID uuid.UUID, w io.Writer) error {
	records, err := s.provenance.ListBySubmission(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("list provenance: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{
		"domain", "variable", "value", "page", "table", "row", "column",
		"method", "confidence_score", "extracted_at",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.Domain, r.Variable, r.Value,
			strconv.Itoa(r.Location.Page),
			derefString(r.Location.Table),
			derefInt(r.Location.Row),
			derefString(r.Location.Column),
			string(r.Method),
			derefScore(r.ConfidenceScore),
			r.ExtractedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

func derefScore(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 4, 64)
}

// ============================================================================
// Reviewer Stats
// ============================================================================

func (s *analyticsService) ReviewerStats(ctx context.Context, reviewerID uuid.UUID) (*ReviewerStats, error) {
	reviewer, err := s.reviewers.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("load reviewer: %w", err)
	}

	stats := &ReviewerStats{
		ReviewerID: reviewer.ID,
		Name:       reviewer.Name,
		Role:       reviewer.Role,
	}

	// The four counts are independent queries; fan them out.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.submissions.CountOpenByReviewer(gctx, reviewerID, reviewer.Role)
		stats.PendingReviews = n
		return err
	})
	g.Go(func() error {
		n, err := s.submissions.CountCompletedByReviewer(gctx, reviewerID, reviewer.Role)
		stats.CompletedReviews = n
		return err
	})
	g.Go(func() error {
		n, err := s.comments.CountByReviewer(gctx, reviewerID)
		stats.CommentsWritten = n
		return err
	})
	g.Go(func() error {
		n, err := s.corrections.CountByReviewer(gctx, reviewerID)
		stats.CorrectionsMade = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather reviewer stats: %w", err)
	}

	return stats, nil
}
