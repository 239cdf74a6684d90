package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
)

// In-memory repository fakes shared by the service tests. They mirror the
// store-level guarantees the real repositories provide (version checks,
// resolve-once), so services are exercised against the same contracts.

// ============================================================================
// Submissions
// ============================================================================

type mockSubmissionRepo struct {
	subs map[uuid.UUID]*models.Submission

	openCounts      map[uuid.UUID]int
	completedCounts map[uuid.UUID]int

	updateErr error
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{
		subs:            make(map[uuid.UUID]*models.Submission),
		openCounts:      make(map[uuid.UUID]int),
		completedCounts: make(map[uuid.UUID]int),
	}
}

var _ repositories.SubmissionRepository = (*mockSubmissionRepo)(nil)

func (m *mockSubmissionRepo) Create(ctx context.Context, sub *models.Submission) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Version == 0 {
		sub.Version = 1
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt
	copied := *sub
	m.subs[sub.ID] = &copied
	return nil
}

func (m *mockSubmissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	sub, ok := m.subs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *mockSubmissionRepo) List(ctx context.Context, filter repositories.SubmissionFilter) ([]*models.Submission, error) {
	var result []*models.Submission
	for _, sub := range m.subs {
		if filter.Priority != nil && sub.Priority != *filter.Priority {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if sub.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		copied := *sub
		result = append(result, &copied)
	}
	return result, nil
}

func (m *mockSubmissionRepo) Update(ctx context.Context, sub *models.Submission) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.subs[sub.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Version != sub.Version {
		return apperrors.ErrConcurrentModification
	}
	copied := *sub
	copied.Version++
	copied.UpdatedAt = time.Now()
	m.subs[sub.ID] = &copied
	sub.Version++
	return nil
}

func (m *mockSubmissionRepo) CountOpenByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error) {
	return m.openCounts[reviewerID], nil
}

func (m *mockSubmissionRepo) CountCompletedByReviewer(ctx context.Context, reviewerID uuid.UUID, role models.ReviewRole) (int, error) {
	return m.completedCounts[reviewerID], nil
}

// ============================================================================
// Reviewers
// ============================================================================

type mockReviewerRepo struct {
	reviewers map[uuid.UUID]*models.Reviewer
	workloads map[models.ReviewRole][]models.ReviewerWorkload
}

func newMockReviewerRepo() *mockReviewerRepo {
	return &mockReviewerRepo{
		reviewers: make(map[uuid.UUID]*models.Reviewer),
		workloads: make(map[models.ReviewRole][]models.ReviewerWorkload),
	}
}

var _ repositories.ReviewerRepository = (*mockReviewerRepo)(nil)

func (m *mockReviewerRepo) Create(ctx context.Context, reviewer *models.Reviewer) error {
	if reviewer.ID == uuid.Nil {
		reviewer.ID = uuid.New()
	}
	m.reviewers[reviewer.ID] = reviewer
	return nil
}

func (m *mockReviewerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reviewer, error) {
	reviewer, ok := m.reviewers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return reviewer, nil
}

func (m *mockReviewerRepo) ListWorkloads(ctx context.Context, role models.ReviewRole) ([]models.ReviewerWorkload, error) {
	return m.workloads[role], nil
}

// ============================================================================
// Extracted Fields
// ============================================================================

type mockFieldRepo struct {
	fields   map[uuid.UUID]*models.ExtractedField
	batchErr error

	// records captured by CreateBatchWithProvenance
	batchedRecords []*models.ProvenanceRecord
}

func newMockFieldRepo() *mockFieldRepo {
	return &mockFieldRepo{fields: make(map[uuid.UUID]*models.ExtractedField)}
}

var _ repositories.ExtractedFieldRepository = (*mockFieldRepo)(nil)

func (m *mockFieldRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ExtractedField, error) {
	field, ok := m.fields[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *field
	return &copied, nil
}

func (m *mockFieldRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ExtractedField, error) {
	var result []*models.ExtractedField
	for _, f := range m.fields {
		if f.SubmissionID == submissionID {
			copied := *f
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockFieldRepo) Update(ctx context.Context, field *models.ExtractedField) error {
	if _, ok := m.fields[field.ID]; !ok {
		return apperrors.ErrNotFound
	}
	copied := *field
	m.fields[field.ID] = &copied
	return nil
}

func (m *mockFieldRepo) CreateBatchWithProvenance(ctx context.Context, fields []*models.ExtractedField, records []*models.ProvenanceRecord) error {
	if m.batchErr != nil {
		return m.batchErr
	}
	for _, f := range fields {
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		copied := *f
		m.fields[f.ID] = &copied
	}
	m.batchedRecords = append(m.batchedRecords, records...)
	return nil
}

// ============================================================================
// Review Comments
// ============================================================================

type mockCommentRepo struct {
	comments map[uuid.UUID]*models.ReviewComment
	counts   map[uuid.UUID]int
}

func newMockCommentRepo() *mockCommentRepo {
	return &mockCommentRepo{
		comments: make(map[uuid.UUID]*models.ReviewComment),
		counts:   make(map[uuid.UUID]int),
	}
}

var _ repositories.ReviewCommentRepository = (*mockCommentRepo)(nil)

func (m *mockCommentRepo) Create(ctx context.Context, comment *models.ReviewComment) error {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	comment.CreatedAt = time.Now()
	copied := *comment
	m.comments[comment.ID] = &copied
	return nil
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ReviewComment, error) {
	comment, ok := m.comments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *comment
	return &copied, nil
}

func (m *mockCommentRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ReviewComment, error) {
	var result []*models.ReviewComment
	for _, c := range m.comments {
		if c.SubmissionID == submissionID {
			copied := *c
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockCommentRepo) Resolve(ctx context.Context, comment *models.ReviewComment) error {
	stored, ok := m.comments[comment.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if stored.Resolved {
		return apperrors.ErrConflict
	}
	copied := *comment
	m.comments[comment.ID] = &copied
	return nil
}

func (m *mockCommentRepo) CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	return m.counts[reviewerID], nil
}

// ============================================================================
// Corrections
// ============================================================================

type mockCorrectionRepo struct {
	corrections []*models.Correction
	counts      map[uuid.UUID]int
	listErr     error
	markErr     error
}

func newMockCorrectionRepo() *mockCorrectionRepo {
	return &mockCorrectionRepo{counts: make(map[uuid.UUID]int)}
}

var _ repositories.CorrectionRepository = (*mockCorrectionRepo)(nil)

func (m *mockCorrectionRepo) Create(ctx context.Context, correction *models.Correction) error {
	if correction.ID == uuid.Nil {
		correction.ID = uuid.New()
	}
	correction.CreatedAt = time.Now()
	copied := *correction
	m.corrections = append(m.corrections, &copied)
	return nil
}

func (m *mockCorrectionRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.Correction, error) {
	var result []*models.Correction
	for _, c := range m.corrections {
		if c.SubmissionID == submissionID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCorrectionRepo) ListAll(ctx context.Context, domain string) ([]*models.Correction, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if domain == "" {
		return m.corrections, nil
	}
	var result []*models.Correction
	for _, c := range m.corrections {
		if c.Domain == domain {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCorrectionRepo) ListPendingTraining(ctx context.Context) ([]*models.Correction, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*models.Correction
	for _, c := range m.corrections {
		if !c.AddedToTraining {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockCorrectionRepo) MarkExported(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if m.markErr != nil {
		return m.markErr
	}
	for _, c := range m.corrections {
		for _, id := range ids {
			if c.ID == id {
				c.AddedToTraining = true
				exported := at
				c.TrainingExportAt = &exported
			}
		}
	}
	return nil
}

func (m *mockCorrectionRepo) CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	return m.counts[reviewerID], nil
}

// ============================================================================
// Provenance
// ============================================================================

type mockProvenanceRepo struct {
	records []*models.ProvenanceRecord
}

var _ repositories.ProvenanceRepository = (*mockProvenanceRepo)(nil)

func (m *mockProvenanceRepo) Create(ctx context.Context, record *models.ProvenanceRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.ExtractedAt.IsZero() {
		record.ExtractedAt = time.Now()
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockProvenanceRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]*models.ProvenanceRecord, error) {
	var result []*models.ProvenanceRecord
	for _, r := range m.records {
		if r.SubmissionID == submissionID {
			result = append(result, r)
		}
	}
	return result, nil
}

// ============================================================================
// Notifier / Cache
// ============================================================================

type sentNotification struct {
	reviewer *models.Reviewer
	sub      *models.Submission
	event    NotificationEvent
}

type mockNotifier struct {
	sent []sentNotification
	err  error
}

var _ Notifier = (*mockNotifier)(nil)

func (m *mockNotifier) Notify(ctx context.Context, reviewer *models.Reviewer, sub *models.Submission, event NotificationEvent) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentNotification{reviewer: reviewer, sub: sub, event: event})
	return nil
}

type mockInvalidator struct {
	invalidated []uuid.UUID
}

var _ SummaryInvalidator = (*mockInvalidator)(nil)

func (m *mockInvalidator) InvalidateConfidenceSummary(ctx context.Context, submissionID uuid.UUID) {
	m.invalidated = append(m.invalidated, submissionID)
}
