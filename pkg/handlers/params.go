package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseSubmissionID extracts and validates the submission ID from the
// request path. Returns the parsed UUID and true on success, or uuid.Nil and
// false after writing an error response. Expects path parameter: sid
func ParseSubmissionID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "sid", "invalid_submission_id", "Invalid submission ID format", logger)
}

// ParseFieldID extracts and validates the field ID from the request path.
// Expects path parameter: fid
func ParseFieldID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "fid", "invalid_field_id", "Invalid field ID format", logger)
}

// ParseCommentID extracts and validates the comment ID from the request path.
// Expects path parameter: cid
func ParseCommentID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "cid", "invalid_comment_id", "Invalid comment ID format", logger)
}

// ParseReviewerID extracts and validates the reviewer ID from the request
// path. Expects path parameter: rid
func ParseReviewerID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "rid", "invalid_reviewer_id", "Invalid reviewer ID format", logger)
}

func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
