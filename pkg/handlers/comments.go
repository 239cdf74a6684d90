package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/auth"
	"github.com/sendbridge/sendbridge-engine/pkg/models"
	"github.com/sendbridge/sendbridge-engine/pkg/repositories"
	"github.com/sendbridge/sendbridge-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// AddCommentRequest for POST /api/submissions/{sid}/comments
type AddCommentRequest struct {
	Severity models.CommentSeverity `json:"severity"`
	Domain   string                 `json:"domain,omitempty"`
	Variable string                 `json:"variable,omitempty"`
	Text     string                 `json:"text"`
}

// ResolveCommentRequest for POST /api/comments/{cid}/resolve
type ResolveCommentRequest struct {
	Notes string `json:"notes,omitempty"`
}

// CommentListResponse for GET /api/submissions/{sid}/comments
type CommentListResponse struct {
	Comments []*models.ReviewComment `json:"comments"`
	Total    int                     `json:"total"`
}

// ============================================================================
// Handler
// ============================================================================

// CommentsHandler handles review comment HTTP requests.
type CommentsHandler struct {
	review   services.ReviewService
	comments repositories.ReviewCommentRepository
	logger   *zap.Logger
}

// NewCommentsHandler creates a new comments handler.
func NewCommentsHandler(
	review services.ReviewService,
	comments repositories.ReviewCommentRepository,
	logger *zap.Logger,
) *CommentsHandler {
	return &CommentsHandler{
		review:   review,
		comments: comments,
		logger:   logger,
	}
}

// RegisterRoutes registers the comment routes on the given mux.
func (h *CommentsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/submissions/{sid}/comments", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/submissions/{sid}/comments", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/comments/{cid}/resolve", authMiddleware.RequireAuth(h.Resolve))
}

// Create handles POST /api/submissions/{sid}/comments
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
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

	comment, err := h.review.AddComment(r.Context(), services.CommentInput{
		SubmissionID: submissionID,
		ReviewerID:   actor.UserID,
		Severity:     req.Severity,
		Domain:       req.Domain,
		Variable:     req.Variable,
		Text:         req.Text,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: comment}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/submissions/{sid}/comments
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	comments, err := h.comments.ListBySubmission(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	response := CommentListResponse{Comments: comments, Total: len(comments)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Resolve handles POST /api/comments/{cid}/resolve
func (h *CommentsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	commentID, ok := ParseCommentID(w, r, h.logger)
	if !ok {
		return
	}

	var req ResolveCommentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
	}

	actor, ok := models.GetActor(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	comment, err := h.review.ResolveComment(r.Context(), commentID, actor.UserID, req.Notes)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: comment}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
