package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/prayer-debt/internal/application"
	"github.com/example/prayer-debt/internal/domain"
)

type prayerDebtService interface {
	Calculate(ctx context.Context, params application.CalculateParams) (domain.Snapshot, error)
	Snapshot(ctx context.Context, userID string) (domain.Snapshot, error)
	UpdateProgress(ctx context.Context, params application.UpdateProgressParams) (domain.RepaymentProgress, error)
	ProgressHistory(ctx context.Context, params application.ProgressHistoryParams) ([]application.ProgressPoint, error)
	EnqueueCalculation(ctx context.Context, params application.CalculateParams) (domain.CalculationJob, error)
	CalculationStatus(ctx context.Context, userID, jobID string) (domain.CalculationJob, error)
}

type PrayerDebtHandler struct {
	service   prayerDebtService
	responder responder
	logger    *slog.Logger
}

func NewPrayerDebtHandler(service prayerDebtService, logger *slog.Logger) *PrayerDebtHandler {
	base := defaultLogger(logger)
	return &PrayerDebtHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PrayerDebtHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PrayerDebtHandler", operation, attrs...)
}

func (h *PrayerDebtHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, _ := UserIDFromContext(r.Context())

	var req application.CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Calculate", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode calculation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Calculate")

	snapshot, err := h.service.Calculate(r.Context(), application.CalculateParams{UserID: userID, Request: req})
	if err != nil {
		logger.ErrorContext(r.Context(), "calculation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "debt calculated", "effective_days", snapshot.Calculation.EffectiveDays)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snapshotResponse{Snapshot: snapshot})
}

func (h *PrayerDebtHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	snapshot, err := h.service.Snapshot(r.Context(), userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snapshotResponse{Snapshot: snapshot})
}

func (h *PrayerDebtHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, _ := UserIDFromContext(r.Context())

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "UpdateProgress", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode progress request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "UpdateProgress", "entry_count", len(req.Entries))

	progress, err := h.service.UpdateProgress(r.Context(), application.UpdateProgressParams{UserID: userID, Entries: req.Entries})
	if err != nil {
		logger.ErrorContext(r.Context(), "progress update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "progress updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, progressResponse{Progress: progress})
}

func (h *PrayerDebtHandler) ProgressHistory(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	query := r.URL.Query()
	points, err := h.service.ProgressHistory(r.Context(), application.ProgressHistoryParams{
		UserID:    userID,
		StartDate: query.Get("start_date"),
		EndDate:   query.Get("end_date"),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if points == nil {
		points = []application.ProgressPoint{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, historyResponse{History: points})
}

func (h *PrayerDebtHandler) EnqueueCalculation(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID, _ := UserIDFromContext(r.Context())

	var req application.CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "EnqueueCalculation", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode calculation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "EnqueueCalculation")

	job, err := h.service.EnqueueCalculation(r.Context(), application.CalculateParams{UserID: userID, Request: req})
	if err != nil {
		logger.ErrorContext(r.Context(), "enqueue failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("job_id", job.ID).InfoContext(r.Context(), "calculation queued", "status", job.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusAccepted, jobAcceptedResponse{JobID: job.ID, Status: job.Status})
}

func (h *PrayerDebtHandler) CalculationStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	jobID, ok := JobIDFromContext(r.Context())
	if !ok || strings.TrimSpace(jobID) == "" {
		h.log(r.Context(), "CalculationStatus", "error_kind", "bad_request").ErrorContext(r.Context(), "missing job id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidJobID)
		return
	}

	userID, _ := UserIDFromContext(r.Context())
	job, err := h.service.CalculationStatus(r.Context(), userID, jobID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toJobDTO(job))
}

type progressRequest struct {
	Entries []domain.ProgressEntry `json:"entries"`
}

type snapshotResponse struct {
	Snapshot domain.Snapshot `json:"snapshot"`
}

type progressResponse struct {
	Progress domain.RepaymentProgress `json:"repayment_progress"`
}

type historyResponse struct {
	History []application.ProgressPoint `json:"history"`
}

type jobAcceptedResponse struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

type jobDTO struct {
	JobID     string           `json:"job_id"`
	UserID    string           `json:"user_id"`
	Status    domain.JobStatus `json:"status"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Result    *domain.Snapshot `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func toJobDTO(job domain.CalculationJob) jobDTO {
	return jobDTO{
		JobID:     job.ID,
		UserID:    job.UserID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339),
		Payload:   job.Payload,
		Result:    job.Result,
		Error:     job.Error,
	}
}
