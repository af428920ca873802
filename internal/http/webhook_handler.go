package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/example/prayer-debt/internal/application"
	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/secure"
)

const maxWebhookBody = 1 << 20

type webhookService interface {
	VerifyWebhook(body []byte, signature string) error
	ResolveJob(ctx context.Context, params application.ResolveJobParams) (domain.CalculationJob, error)
}

// WebhookHandler receives job outcomes from external calculators.
type WebhookHandler struct {
	service   webhookService
	responder responder
	logger    *slog.Logger
}

func NewWebhookHandler(service webhookService, logger *slog.Logger) *WebhookHandler {
	base := defaultLogger(logger)
	return &WebhookHandler{service: service, responder: newResponder(base), logger: base}
}

// Receive verifies the signature over the raw body before decoding it.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "WebhookHandler", "Receive")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to read webhook body", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if err := h.service.VerifyWebhook(body, r.Header.Get(secure.SignatureHeader)); err != nil {
		logger.WarnContext(r.Context(), "rejected webhook", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode webhook", "error", err, "error_kind", "bad_request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger = logger.With("job_id", req.JobID, "status", req.Status)
	if _, err := h.service.ResolveJob(r.Context(), application.ResolveJobParams{
		JobID:  req.JobID,
		Status: req.Status,
		Result: req.Result,
		Error:  req.Error,
	}); err != nil {
		logger.ErrorContext(r.Context(), "webhook resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "webhook accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type webhookRequest struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
	Result *domain.Snapshot `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}
