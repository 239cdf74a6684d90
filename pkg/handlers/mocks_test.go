package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
	"github.com/sendbridge/sendbridge-engine/pkg/services"
)

// Handler tests call the handler methods directly with path values and an
// actor already in context; middleware behavior is covered in pkg/auth.

func actorRequest(method, target string, body io.Reader, actor models.Actor) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(models.WithActor(req.Context(), actor))
}

// ============================================================================
// Service Mocks
// ============================================================================

type mockWorkflowService struct {
	sub           *models.Submission
	createErr     error
	transitionErr error

	gotTarget models.SubmissionStatus
	gotReason string
}

var _ services.WorkflowService = (*mockWorkflowService)(nil)

func (m *mockWorkflowService) CreateSubmission(ctx context.Context, studyID uuid.UUID, studyNumber string, priority int) (*models.Submission, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.sub, nil
}

func (m *mockWorkflowService) Transition(ctx context.Context, submissionID uuid.UUID, target models.SubmissionStatus, reason string) (*models.Submission, error) {
	m.gotTarget = target
	m.gotReason = reason
	if m.transitionErr != nil {
		return nil, m.transitionErr
	}
	return m.sub, nil
}

type mockAssignmentService struct {
	result *services.AssignmentResult
	err    error
}

var _ services.AssignmentService = (*mockAssignmentService)(nil)

func (m *mockAssignmentService) AssignAllRoles(ctx context.Context, submissionID uuid.UUID) (*services.AssignmentResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockIngestService struct {
	fields []*models.ExtractedField
	err    error

	gotValues []services.ExtractedValue
}

var _ services.IngestService = (*mockIngestService)(nil)

func (m *mockIngestService) RecordBatch(ctx context.Context, submissionID uuid.UUID, values []services.ExtractedValue) ([]*models.ExtractedField, error) {
	m.gotValues = values
	if m.err != nil {
		return nil, m.err
	}
	return m.fields, nil
}

type mockReviewService struct {
	comment    *models.ReviewComment
	correction *models.Correction
	field      *models.ExtractedField
	err        error

	gotCommentInput    services.CommentInput
	gotCorrectionInput services.CorrectionInput
	gotResolverID      uuid.UUID
}

var _ services.ReviewService = (*mockReviewService)(nil)

func (m *mockReviewService) AddComment(ctx context.Context, input services.CommentInput) (*models.ReviewComment, error) {
	m.gotCommentInput = input
	if m.err != nil {
		return nil, m.err
	}
	return m.comment, nil
}

func (m *mockReviewService) ResolveComment(ctx context.Context, commentID, resolverID uuid.UUID, notes string) (*models.ReviewComment, error) {
	m.gotResolverID = resolverID
	if m.err != nil {
		return nil, m.err
	}
	return m.comment, nil
}

func (m *mockReviewService) RecordCorrection(ctx context.Context, input services.CorrectionInput) (*models.Correction, error) {
	m.gotCorrectionInput = input
	if m.err != nil {
		return nil, m.err
	}
	return m.correction, nil
}

func (m *mockReviewService) MarkFieldReviewed(ctx context.Context, fieldID, reviewerID uuid.UUID) (*models.ExtractedField, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.field, nil
}

type mockAnalyticsService struct {
	summary  *services.ConfidenceSummary
	patterns *services.CorrectionPatterns
	report   *services.TraceabilityReport
	stats    *services.ReviewerStats
	csvBody  string
	err      error
}

var _ services.AnalyticsService = (*mockAnalyticsService)(nil)

func (m *mockAnalyticsService) ConfidenceSummary(ctx context.Context, submissionID uuid.UUID) (*services.ConfidenceSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

func (m *mockAnalyticsService) InvalidateConfidenceSummary(ctx context.Context, submissionID uuid.UUID) {
}

func (m *mockAnalyticsService) CorrectionPatterns(ctx context.Context, domain string) (*services.CorrectionPatterns, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.patterns, nil
}

func (m *mockAnalyticsService) TraceabilityReport(ctx context.Context, submissionID uuid.UUID) (*services.TraceabilityReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.report, nil
}

func (m *mockAnalyticsService) WriteTraceabilityCSV(ctx context.Context, submissionID uuid.UUID, w io.Writer) error {
	if m.err != nil {
		return m.err
	}
	_, err := w.Write([]byte(m.csvBody))
	return err
}

func (m *mockAnalyticsService) ReviewerStats(ctx context.Context, reviewerID uuid.UUID) (*services.ReviewerStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

type mockExportService struct {
	result *services.ExportResult
	err    error

	gotFormat services.ExportFormat
}

var _ services.ExportService = (*mockExportService)(nil)

func (m *mockExportService) ExportTraining(ctx context.Context, format services.ExportFormat) (*services.ExportResult, error) {
	m.gotFormat = format
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// ============================================================================
// Repository Mocks
// ============================================================================

type mockSubmissionRepoForHandler struct {
	sub  *models.Submission
	subs []*models.Submission
	err  error
}

var _ repositories.SubmissionRepository = (*mockSubmissionRepoForHandler)(nil)

func (m *mockSubmissionRepoForHandler) Create(ctx context.Context, sub *models.Submission) error {
	return m.err
}

func (m *mockSubmissionRepoForHandler) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.sub == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.sub, nil
}

func (m *mockSubmissionRepoForHandler) List(ctx context.Context, filter repositories.SubmissionFilter) ([]*models.Submission, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subs, nil
}

func (m *mockSubmissionRepoForHandler) Update(ctx context.Context, sub *models.Submission) error {
	return m.err
}

func (m *mockSubmissionRepoForHandler) CountOpenByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error) {
	return 0, m.err
}

func (m *mockSubmissionRepoForHandler) CountCompletedByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error) {
	return 0, m.err
}

type mockFieldRepoForHandler struct {
	field  *models.ExtractedField
	fields []*models.ExtractedField
	err    error
}

var _ repositories.ExtractedFieldRepository = (*mockFieldRepoForHandler)(nil)

func (m *mockFieldRepoForHandler) GetByID(ctx context.Context, id uuid.UUID) (*models.ExtractedField, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.field == nil {
		return nil, apperrors.ErrNotFound
	}
	return m.field, nil
}

func (m *mockFieldRepoForHandler) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ExtractedField, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.fields, nil
}

func (m *mockFieldRepoForHandler) Update(ctx context.Context, field *models.ExtractedField) error {
	return m.err
}

func (m *mockFieldRepoForHandler) CreateBatchWithProvenance(ctx context.Context, fields []*models.ExtractedField, records []*models.ProvenanceRecord) error {
	return m.err
}

type mockCommentRepoForHandler struct {
	comments []*models.ReviewComment
	err      error
}

var _ repositories.ReviewCommentRepository = (*mockCommentRepoForHandler)(nil)

func (m *mockCommentRepoForHandler) Create(ctx context.Context, comment *models.ReviewComment) error {
	return m.err
}

func (m *mockCommentRepoForHandler) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewComment, error) {
	return nil, apperrors.ErrNotFound
}

func (m *mockCommentRepoForHandler) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ReviewComment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.comments, nil
}

func (m *mockCommentRepoForHandler) Resolve(ctx context.Context, comment *models.ReviewComment) error {
	return m.err
}

func (m *mockCommentRepoForHandler) CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	return 0, m.err
}

type mockCorrectionRepoForHandler struct {
	corrections []*models.Correction
	err         error
}

var _ repositories.CorrectionRepository = (*mockCorrectionRepoForHandler)(nil)

func (m *mockCorrectionRepoForHandler) Create(ctx context.Context, correction *models.Correction) error {
	return m.err
}

func (m *mockCorrectionRepoForHandler) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.Correction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.corrections, nil
}

func (m *mockCorrectionRepoForHandler) ListAll(ctx context.Context, domain string) ([]*models.Correction, error) {
	return m.corrections, m.err
}

func (m *mockCorrectionRepoForHandler) ListPendingTraining(ctx context.Context) ([]*models.Correction, error) {
	return m.corrections, m.err
}

func (m *mockCorrectionRepoForHandler) MarkExported(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	return m.err
}

func (m *mockCorrectionRepoForHandler) CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	return 0, m.err
}
