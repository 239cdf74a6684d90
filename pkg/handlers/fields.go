package handlers

import (
	"encoding/json"
	"net/http"

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

// IngestFieldsRequest for POST /api/submissions/{sid}/fields
type IngestFieldsRequest struct {
	Values []services.ExtractedValue `json:"values"`
}

// FieldListResponse for GET /api/submissions/{sid}/fields
type FieldListResponse struct {
	Fields []*models.ExtractedField `json:"fields"`
	Total  int                      `json:"total"`
}

// RecordCorrectionRequest for POST /api/submissions/{sid}/corrections
type RecordCorrectionRequest struct {
	FieldID        string                `json:"field_id"`
	CorrectedValue string                `json:"corrected_value"`
	Reason         string                `json:"reason"`
	Type           models.CorrectionType `json:"type"`
}

// ============================================================================
// Handler
// ============================================================================

// FieldsHandler handles extracted-field HTTP requests: ingest, listing,
// review sign-off, and corrections.
type FieldsHandler struct {
	ingest services.IngestService
	review services.ReviewService
	fields repositories.ExtractedFieldRepository
	logger *zap.Logger
}

// NewFieldsHandler creates a new fields handler.
func NewFieldsHandler(
	ingest services.IngestService,
	review services.ReviewService,
	fields repositories.ExtractedFieldRepository,
	logger *zap.Logger,
) *FieldsHandler {
	return &FieldsHandler{
		ingest: ingest,
		review: review,
		fields: fields,
		logger: logger,
	}
}

// RegisterRoutes registers the field routes on the given mux.
func (h *FieldsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/submissions/{sid}/fields", authMiddleware.RequireAuth(h.Ingest))
	mux.HandleFunc("GET /api/submissions/{sid}/fields", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/submissions/{sid}/corrections", authMiddleware.RequireAuth(h.RecordCorrection))
	mux.HandleFunc("POST /api/fields/{fid}/review", authMiddleware.RequireAuth(h.MarkReviewed))
}

// Ingest handles POST /api/submissions/{sid}/fields
func (h *FieldsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	var req IngestFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	fields, err := h.ingest.RecordBatch(r.Context(), submissionID, req.Values)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := FieldListResponse{Fields: fields, Total: len(fields)}
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/submissions/{sid}/fields with an optional
// level=low|medium|high|review filter.
func (h *FieldsHandler) List(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	fields, err := h.fields.ListBySubmission(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if level := r.URL.Query().Get("level"); level != "" {
		filtered, ok := filterFieldsByLevel(fields, level)
		if !ok {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_level", "Level must be low, medium, high, or review"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		fields = filtered
	}

	response := FieldListResponse{Fields: fields, Total: len(fields)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// filterFieldsByLevel narrows a field list to one confidence level, or to the
// review queue when level is "review".
func filterFieldsByLevel(fields []*models.ExtractedField, level string) ([]*models.ExtractedField, bool) {
	var keep func(*models.ExtractedField) bool
	switch level {
	case "review":
		keep = func(f *models.ExtractedField) bool { return f.RequiresReview }
	case string(models.ConfidenceHigh), string(models.ConfidenceMedium), string(models.ConfidenceLow):
		want := models.ConfidenceLevel(level)
		keep = func(f *models.ExtractedField) bool { return f.ConfidenceLevel == want }
	default:
		return nil, false
	}

	filtered := make([]*models.ExtractedField, 0, len(fields))
	for _, f := range fields {
		if keep(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered, true
}

// RecordCorrection handles POST /api/submissions/{sid}/corrections
func (h *FieldsHandler) RecordCorrection(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	var req RecordCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	fieldID, err := uuid.Parse(req.FieldID)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_field_id", "Invalid field ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// The field must belong to the submission in the path.
	field, err := h.fields.GetByID(r.Context(), fieldID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if field.SubmissionID != submissionID {
		if err := ErrorResponse(w, http.StatusBadRequest, "field_submission_mismatch", "Field does not belong to this submission"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	actor, ok := models.GetActor(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	correction, err := h.review.RecordCorrection(r.Context(), services.CorrectionInput{
		FieldID:        fieldID,
		CorrectedBy:    actor.UserID,
		CorrectedValue: req.CorrectedValue,
		Reason:         req.Reason,
		Type:           req.Type,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: correction}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// MarkReviewed handles POST /api/fields/{fid}/review
func (h *FieldsHandler) MarkReviewed(w http.ResponseWriter, r *http.Request) {
	fieldID, ok := ParseFieldID(w, r, h.logger)
	if !ok {
		return
	}

	actor, ok := models.GetActor(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	field, err := h.review.MarkFieldReviewed(r.Context(), fieldID, actor.UserID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: field}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
