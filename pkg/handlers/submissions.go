package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/auth"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
	"github.com/sendbridge/sendbridge-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// CreateSubmissionRequest for POST /api/submissions
type CreateSubmissionRequest struct {
	StudyID     uuid.UUID `json:"study_id"`
	StudyNumber string    `json:"study_number"`
	Priority    int       `json:"priority,omitempty"`
}

// TransitionRequest for POST /api/submissions/{sid}/transition
type TransitionRequest struct {
	Target models.SubmissionStatus `json:"target"`
	Reason string                  `json:"reason,omitempty"`
}

// SubmissionListResponse for GET /api/submissions
type SubmissionListResponse struct {
	Submissions []*models.Submission `json:"submissions"`
	Total       int                  `json:"total"`
}

// SubmissionDetailResponse for GET /api/submissions/{sid}
type SubmissionDetailResponse struct {
	Submission  *models.Submission          `json:"submission"`
	Fields      []*models.ExtractedField    `json:"fields"`
	Comments    []*models.ReviewComment     `json:"comments"`
	Corrections []*models.Correction        `json:"corrections"`
	Confidence  *services.ConfidenceSummary `json:"confidence"`
}

// SubmissionStatusResponse for the GET /api/submissions/{sid}/status poll.
type SubmissionStatusResponse struct {
	ID           uuid.UUID               `json:"id"`
	SubmissionID string                  `json:"submission_id"`
	Status       models.SubmissionStatus `json:"status"`
	Version      int64                   `json:"version"`
	UpdatedAt    time.Time               `json:"updated_at"`
}

// ============================================================================
// Handler
// ============================================================================

// SubmissionsHandler handles submission lifecycle HTTP requests.
type SubmissionsHandler struct {
	workflow    services.WorkflowService
	assignment  services.AssignmentService
	analytics   services.AnalyticsService
	submissions repositories.SubmissionRepository
	fields      repositories.ExtractedFieldRepository
	comments    repositories.ReviewCommentRepository
	corrections repositories.CorrectionRepository
	logger      *zap.Logger
}

// NewSubmissionsHandler creates a new submissions handler.
func NewSubmissionsHandler(
	workflow services.WorkflowService,
	assignment services.AssignmentService,
	analytics services.AnalyticsService,
	submissions repositories.SubmissionRepository,
	fields repositories.ExtractedFieldRepository,
	comments repositories.ReviewCommentRepository,
	corrections repositories.CorrectionRepository,
	logger *zap.Logger,
) *SubmissionsHandler {
	return &SubmissionsHandler{
		workflow:    workflow,
		assignment:  assignment,
		analytics:   analytics,
		submissions: submissions,
		fields:      fields,
		comments:    comments,
		corrections: corrections,
		logger:      logger,
	}
}

// RegisterRoutes registers the submission routes on the given mux.
func (h *SubmissionsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/submissions", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/submissions", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/submissions/{sid}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("GET /api/submissions/{sid}/status", authMiddleware.RequireAuth(h.Status))
	mux.HandleFunc("POST /api/submissions/{sid}/transition", authMiddleware.RequireAuth(h.Transition))
	mux.HandleFunc("POST /api/submissions/{sid}/assign", authMiddleware.RequireAuth(h.Assign))
}

// Create handles POST /api/submissions
func (h *SubmissionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	if req.StudyID == uuid.Nil || req.StudyNumber == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_study", "study_id and study_number are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	sub, err := h.workflow.CreateSubmission(r.Context(), req.StudyID, req.StudyNumber, req.Priority)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: sub}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/submissions
func (h *SubmissionsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter repositories.SubmissionFilter
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := models.SubmissionStatus(statusParam)
		if !models.IsValidSubmissionStatus(status) {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_status", "Unknown status filter"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Statuses = []models.SubmissionStatus{status}
	}
	if priorityParam := r.URL.Query().Get("priority"); priorityParam != "" {
		priority, err := strconv.Atoi(priorityParam)
		if err != nil || priority < 1 || priority > 5 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_priority", "Priority must be 1-5"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		filter.Priority = &priority
	}

	subs, err := h.submissions.List(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := SubmissionListResponse{Submissions: subs, Total: len(subs)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/submissions/{sid}
func (h *SubmissionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	sub, err := h.submissions.GetByID(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	fields, err := h.fields.ListBySubmission(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	comments, err := h.comments.ListBySubmission(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	corrections, err := h.corrections.ListBySubmission(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	confidence, err := h.analytics.ConfidenceSummary(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := SubmissionDetailResponse{
		Submission:  sub,
		Fields:      fields,
		Comments:    comments,
		Corrections: corrections,
		Confidence:  confidence,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Status handles GET /api/submissions/{sid}/status, a light polling endpoint.
func (h *SubmissionsHandler) Status(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	sub, err := h.submissions.GetByID(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := SubmissionStatusResponse{
		ID:           sub.ID,
		SubmissionID: sub.SubmissionID,
		Status:       sub.Status,
		Version:      sub.Version,
		UpdatedAt:    sub.UpdatedAt,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Transition handles POST /api/submissions/{sid}/transition
func (h *SubmissionsHandler) Transition(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	sub, err := h.workflow.Transition(r.Context(), submissionID, req.Target, req.Reason)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: sub}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Assign handles POST /api/submissions/{sid}/assign
func (h *SubmissionsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.assignment.AssignAllRoles(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
