package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/insider-one/order-confirmation-service/internal/domain"
	"github.com/insider-one/order-confirmation-service/internal/service"
)

// SettingsHandler serves cached store settings
type SettingsHandler struct {
	service *service.SettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(service *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{service: service}
}

// RegisterRoutes registers settings routes
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{key}", h.Get)
	r.Delete("/{key}/cache", h.Refresh)
}

// Get returns a store setting by key
// @Summary Get setting
// @Description Get a store setting, served from the TTL cache when fresh
// @Tags settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} Response
// @Failure 404 {object} Response
// @Router /api/v1/settings/{key} [get]
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, err := h.service.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			JSONError(w, http.StatusNotFound, "NOT_FOUND", "setting not found", nil)
			return
		}
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"key":   key,
		"value": value,
	})
}

// Refresh drops the cached value for a setting
// @Summary Refresh setting cache
// @Description Invalidate the cached value so the next read hits the store
// @Tags settings
// @Produce json
// @Param key path string true "Setting key"
// @Success 200 {object} Response
// @Router /api/v1/settings/{key}/cache [delete]
func (h *SettingsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := h.service.Refresh(r.Context(), key); err != nil {
		HandleError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"message": "cache invalidated",
	})
}
