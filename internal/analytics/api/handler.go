package analytics_api

import (
	"context"
	"fmt"
	"net/http"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

type InsightsService interface {
	GetEventInsights(ctx context.Context, eventID string) (*models.EventInsights, error)
}

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service InsightsService
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service InsightsService, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events/{event_id}/insights", h.GetEventInsights)
}

// GetEventInsights reports revenue, attendance and tickets sold for one event.
func (h *Handler) GetEventInsights(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")
	if err := utils.ValidateID(eventID); err != nil {
		utils.WriteError(w, err)
		return
	}

	insights, err := h.Service.GetEventInsights(r.Context(), eventID)
	if err != nil {
		h.Logger.Debug("ANALYTICS", fmt.Sprintf("Insights for event %s failed: %v", eventID, err))
		utils.WriteError(w, err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "event insights retrieved", insights)
}
