package handlers

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sendbridge/sendbridge-engine/pkg/auth"
	"github.com/sendbridge/sendbridge-engine/pkg/services"
)

// AnalyticsHandler handles reporting and export HTTP requests.
type AnalyticsHandler struct {
	analytics services.AnalyticsService
	export    services.ExportService
	logger    *zap.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(
	analytics services.AnalyticsService,
	export services.ExportService,
	logger *zap.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analytics,
		export:    export,
		logger:    logger,
	}
}

// RegisterRoutes registers the analytics routes on the given mux.
func (h *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/submissions/{sid}/analytics/confidence", authMiddleware.RequireAuth(h.Confidence))
	mux.HandleFunc("GET /api/submissions/{sid}/analytics/traceability", authMiddleware.RequireAuth(h.Traceability))
	mux.HandleFunc("GET /api/submissions/{sid}/traceability.csv", authMiddleware.RequireAuth(h.TraceabilityCSV))
	mux.HandleFunc("GET /api/analytics/corrections", authMiddleware.RequireAuth(h.CorrectionPatterns))
	mux.HandleFunc("POST /api/export/training", authMiddleware.RequireAuth(h.ExportTraining))
	mux.HandleFunc("GET /api/reviewers/{rid}/stats", authMiddleware.RequireAuth(h.ReviewerStats))
}

// Confidence handles GET /api/submissions/{sid}/analytics/confidence
func (h *AnalyticsHandler) Confidence(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	summary, err := h.analytics.ConfidenceSummary(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: summary}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Traceability handles GET /api/submissions/{sid}/analytics/traceability
func (h *AnalyticsHandler) Traceability(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.analytics.TraceabilityReport(r.Context(), submissionID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// TraceabilityCSV handles GET /api/submissions/{sid}/traceability.csv as a
// file download.
func (h *AnalyticsHandler) TraceabilityCSV(w http.ResponseWriter, r *http.Request) {
	submissionID, ok := ParseSubmissionID(w, r, h.logger)
	if !ok {
		return
	}

	filename := fmt.Sprintf("traceability_%s_%s.csv",
		submissionID, time.Now().UTC().Format("20060102T150405"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.analytics.WriteTraceabilityCSV(r.Context(), submissionID, w); err != nil {
		// Headers may be gone already; log and give up on the body.
		h.logger.Error("Failed to stream traceability CSV",
			zap.String("submission_id", submissionID.String()), zap.Error(err))
	}
}

// CorrectionPatterns handles GET /api/analytics/corrections?domain=
func (h *AnalyticsHandler) CorrectionPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := h.analytics.CorrectionPatterns(r.Context(), r.URL.Query().Get("domain"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: patterns}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ExportTraining handles POST /api/export/training?format=csv|json
func (h *AnalyticsHandler) ExportTraining(w http.ResponseWriter, r *http.Request) {
	format := services.ExportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = services.FormatJSON
	}
	if format != services.FormatCSV && format != services.FormatJSON {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_format", "Format must be csv or json"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.export.ExportTraining(r.Context(), format)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ReviewerStats handles GET /api/reviewers/{rid}/stats
func (h *AnalyticsHandler) ReviewerStats(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := ParseReviewerID(w, r, h.logger)
	if !ok {
		return
	}

	stats, err := h.analytics.ReviewerStats(r.Context(), reviewerID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: stats}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
