package payments

import (
	"encoding/json"
	"net/http"

	apperrors "parkly/pkg/errors"
	httputil "parkly/pkg/http"
	"parkly/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// Gateway webhook event types.
const (
	webhookCheckoutCompleted = "checkout.completed"
	webhookCheckoutFailed    = "checkout.failed"
)

type webhookPayload struct {
	EventType  string `json:"event_type"`
	PaymentRef string `json:"payment_ref"`
}

type webhookResponse struct {
	Status string `json:"status"`
}

// PaymentHandler exposes the gateway-facing callback surface. All routes
// here sit behind the HMAC signature middleware, not bearer auth.
type PaymentHandler struct {
	service ReconciliationService
	log     *logger.Logger
}

func NewPaymentHandler(service ReconciliationService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.PUT("/api/v1/payments/:ref/success", h.Success)
	router.PUT("/api/v1/payments/:ref/failure", h.Failure)
	router.POST("/api/v1/payments/webhook", h.Webhook)
}

func (h *PaymentHandler) Success(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.reconcile(w, r, ps.ByName("ref"), true)
}

func (h *PaymentHandler) Failure(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.reconcile(w, r, ps.ByName("ref"), false)
}

// Webhook maps gateway event payloads onto the same two outcomes as the
// direct callbacks. Unknown event types are acknowledged and ignored so
// the gateway does not retry them forever.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid webhook payload",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Webhook", "error", writeErr)
		}
		return
	}

	switch payload.EventType {
	case webhookCheckoutCompleted:
		h.reconcile(w, r, payload.PaymentRef, true)
	case webhookCheckoutFailed:
		h.reconcile(w, r, payload.PaymentRef, false)
	default:
		h.log.Warn("Ignoring unknown webhook event type", "event_type", payload.EventType)
		if err := httputil.WriteJSON(w, http.StatusOK, webhookResponse{Status: "ignored"}); err != nil {
			h.log.Error("failed to write JSON response", "handler", "Webhook", "error", err)
		}
	}
}

func (h *PaymentHandler) reconcile(w http.ResponseWriter, r *http.Request, paymentRef string, success bool) {
	if paymentRef == "" {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Payment reference is required")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "reconcile", "error", writeErr)
		}
		return
	}

	var err error
	if success {
		err = h.service.HandleSuccess(r.Context(), paymentRef)
	} else {
		err = h.service.HandleFailure(r.Context(), paymentRef)
	}

	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "reconcile", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, webhookResponse{Status: "processed"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "reconcile", "error", err)
	}
}
