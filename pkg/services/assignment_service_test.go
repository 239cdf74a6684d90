package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/apperrors"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
)

func workload(id uuid.UUID, role models.ReviewRole, open int, available bool) models.ReviewerWorkload {
	return models.ReviewerWorkload{
		Reviewer: models.Reviewer{
			ID:          id,
			Name:        "Reviewer " + id.String()[:8],
			Email:       id.String()[:8] + "@example.com",
			Role:        role,
			IsAvailable: available,
		},
		OpenCount: open,
	}
}

func TestSelectReviewer(t *testing.T) {
	busy := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	idle := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")

	got, err := SelectReviewer([]models.ReviewerWorkload{
		workload(busy, models.RoleToxicologist, 5, true),
		workload(idle, models.RoleToxicologist, 1, true),
	})
	require.NoError(t, err)
	assert.Equal(t, idle, got.ID)
}

func TestSelectReviewer_TieBreaksByID(t *testing.T) {
	lower := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	higher := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")

	// Same workload, order in the slice must not matter.
	forward := []models.ReviewerWorkload{
		workload(lower, models.RoleQCReviewer, 2, true),
		workload(higher, models.RoleQCReviewer, 2, true),
	}
	backward := []models.ReviewerWorkload{
		workload(higher, models.RoleQCReviewer, 2, true),
		workload(lower, models.RoleQCReviewer, 2, true),
	}

	got, err := SelectReviewer(forward)
	require.NoError(t, err)
	assert.Equal(t, lower, got.ID)

	got, err = SelectReviewer(backward)
	require.NoError(t, err)
	assert.Equal(t, lower, got.ID)
}

func TestSelectReviewer_SkipsUnavailable(t *testing.T) {
	unavailable := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	available := uuid.MustParse("ffffffff-0000-0000-0000-000000000001")

	got, err := SelectReviewer([]models.ReviewerWorkload{
		workload(unavailable, models.RoleSendExpert, 0, false),
		workload(available, models.RoleSendExpert, 9, true),
	})
	require.NoError(t, err)
	assert.Equal(t, available, got.ID)
}

func TestSelectReviewer_EmptyPool(t *testing.T) {
	_, err := SelectReviewer(nil)
	assert.ErrorIs(t, err, apperrors.ErrNoAvailableReviewer)

	_, err = SelectReviewer([]models.ReviewerWorkload{
		workload(uuid.New(), models.RoleToxicologist, 0, false),
	})
	assert.ErrorIs(t, err, apperrors.ErrNoAvailableReviewer)
}

func newAssignmentFixture() (*assignmentService, *mockSubmissionRepo, *mockReviewerRepo, *mockNotifier) {
	subs := newMockSubmissionRepo()
	reviewers := newMockReviewerRepo()
	notifier := &mockNotifier{}
	svc := NewAssignmentService(subs, reviewers, notifier, zap.NewNop()).(*assignmentService)
	return svc, subs, reviewers, notifier
}

func TestAssignAllRoles(t *testing.T) {
	svc, subs, reviewers, notifier := newAssignmentFixture()
	ctx := context.Background()

	sub := &models.Submission{StudyID: uuid.New(), Status: models.StatusUploaded, Priority: 3}
	require.NoError(t, subs.Create(ctx, sub))

	toxID := uuid.New()
	sendID := uuid.New()
	qcID := uuid.New()
	reviewers.workloads[models.RoleToxicologist] = []models.ReviewerWorkload{workload(toxID, models.RoleToxicologist, 0, true)}
	reviewers.workloads[models.RoleSendExpert] = []models.ReviewerWorkload{workload(sendID, models.RoleSendExpert, 3, true)}
	reviewers.workloads[models.RoleQCReviewer] = []models.ReviewerWorkload{workload(qcID, models.RoleQCReviewer, 1, true)}

	result, err := svc.AssignAllRoles(ctx, sub.ID)
	require.NoError(t, err)

	assert.Empty(t, result.Warnings)
	assert.Equal(t, toxID, result.Assigned[models.RoleToxicologist])
	assert.Equal(t, sendID, result.Assigned[models.RoleSendExpert])
	assert.Equal(t, qcID, result.Assigned[models.RoleQCReviewer])

	stored, err := subs.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AssignedToxicologist)
	assert.Equal(t, toxID, *stored.AssignedToxicologist)
	require.NotNil(t, stored.AssignedSendExpert)
	assert.Equal(t, sendID, *stored.AssignedSendExpert)
	require.NotNil(t, stored.AssignedQCReviewer)
	assert.Equal(t, qcID, *stored.AssignedQCReviewer)

	assert.Len(t, notifier.sent, 3)
	for _, n := range notifier.sent {
		assert.Equal(t, EventAssigned, n.event)
	}
}

func TestAssignAllRoles_PartialStaffing(t *testing.T) {
	svc, subs, reviewers, _ := newAssignmentFixture()
	ctx := context.Background()

	sub := &models.Submission{StudyID: uuid.New(), Status: models.StatusUploaded, Priority: 3}
	require.NoError(t, subs.Create(ctx, sub))

	toxID := uuid.New()
	qcID := uuid.New()
	reviewers.workloads[models.RoleToxicologist] = []models.ReviewerWorkload{workload(toxID, models.RoleToxicologist, 0, true)}
	// no SEND experts at all
	reviewers.workloads[models.RoleQCReviewer] = []models.ReviewerWorkload{workload(qcID, models.RoleQCReviewer, 0, true)}

	result, err := svc.AssignAllRoles(ctx, sub.ID)
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "no available send_expert", result.Warnings[0])
	assert.Len(t, result.Assigned, 2)

	stored, err := subs.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.AssignedToxicologist)
	assert.Nil(t, stored.AssignedSendExpert)
	assert.NotNil(t, stored.AssignedQCReviewer)
}

func TestAssignAllRoles_NoReviewersAnywhere(t *testing.T) {
	svc, subs, _, notifier := newAssignmentFixture()
	ctx := context.Background()

	sub := &models.Submission{StudyID: uuid.New(), Status: models.StatusUploaded, Priority: 3}
	require.NoError(t, subs.Create(ctx, sub))
	before := sub.Version

	result, err := svc.AssignAllRoles(ctx, sub.ID)
	require.NoError(t, err)

	assert.Len(t, result.Warnings, 3)
	assert.Empty(t, result.Assigned)
	assert.Empty(t, notifier.sent)

	// Nothing assigned, so nothing written.
	stored, err := subs.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, before, stored.Version)
}

func TestAssignAllRoles_SubmissionNotFound(t *testing.T) {
	svc, _, _, _ := newAssignmentFixture()

	_, err := svc.AssignAllRoles(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
