package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/insider-one/order-confirmation-service/internal/domain"
	"github.com/insider-one/order-confirmation-service/internal/service"
)

// ConfirmationHandler triggers order-confirmation dispatches
type ConfirmationHandler struct {
	builder    *service.ContextBuilder
	dispatcher *service.Dispatcher
	validate   *validator.Validate
}

// NewConfirmationHandler creates a new ConfirmationHandler
func NewConfirmationHandler(builder *service.ContextBuilder, dispatcher *service.Dispatcher) *ConfirmationHandler {
	return &ConfirmationHandler{
		builder:    builder,
		dispatcher: dispatcher,
		validate:   validator.New(),
	}
}

// RegisterRoutes registers confirmation trigger routes
func (h *ConfirmationHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Dispatch)
	r.Get("/sample", h.Sample)
}

// DispatchRequest identifies the order to confirm
type DispatchRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0" example:"1042"`
}

// Dispatch sends the confirmation for one order across both channels
// @Summary Dispatch order confirmation
// @Description Send the purchase confirmation for a paid order over email and WhatsApp
// @Tags confirmations
// @Accept json
// @Produce json
// @Param request body DispatchRequest true "Dispatch request"
// @Success 200 {object} Response{data=domain.DispatchReport}
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /test/order-confirmations [post]
func (h *ConfirmationHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		HandleError(w, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "order_id must be a positive integer", err.Error())
		return
	}

	confirmation, err := h.builder.Build(r.Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		HandleError(w, err)
		return
	}

	report := h.dispatcher.Dispatch(r.Context(), confirmation)

	message := "order confirmation dispatched"
	if !report.Success {
		message = "order confirmation failed on all channels"
	} else if report.EmailResults.Status != domain.OutcomeSuccess ||
		report.WhatsAppResults.Status != domain.OutcomeSuccess {
		message = "order confirmation dispatched with partial failures"
	}

	JSONResult(w, report.Success, message, map[string]any{
		"order":            report.Order,
		"payment_data":     report.PaymentData,
		"email_results":    report.EmailResults,
		"whatsapp_results": report.WhatsAppResults,
	})
}

// Sample returns the most recently paid order's summary
// @Summary Sample dispatch input
// @Description Get the most recently paid order for use as dispatch input
// @Tags confirmations
// @Produce json
// @Success 200 {object} Response{data=domain.OrderSummary}
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /test/order-confirmations/sample [get]
func (h *ConfirmationHandler) Sample(w http.ResponseWriter, r *http.Request) {
	summary, err := h.builder.Sample(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "no paid orders found", nil)
			return
		}
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, summary)
}
