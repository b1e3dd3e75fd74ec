package analytics_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"
	"event-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInsights struct {
	insights *models.EventInsights
	err      error
}

func (s stubInsights) GetEventInsights(context.Context, string) (*models.EventInsights, error) {
	return s.insights, s.err
}

func serve(svc InsightsService, target string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(svc, logger.NewDiscard()).RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetEventInsights(t *testing.T) {
	const eventID = "7f1c8a52-4c8e-4f7e-9d55-2f0b7d1e6a10"

	rec := serve(stubInsights{insights: &models.EventInsights{TotalRevenue: 250, TotalAttendees: 1, TicketSoldCount: 2}},
		"/events/"+eventID+"/insights")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                 `json:"success"`
		Data    models.EventInsights `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 250.0, resp.Data.TotalRevenue)
	assert.Equal(t, 1, resp.Data.TotalAttendees)
	assert.Equal(t, 2, resp.Data.TicketSoldCount)

	rec = serve(stubInsights{err: models.ErrEventNotFound}, "/events/"+eventID+"/insights")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(stubInsights{}, "/events/abc/insights")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var bad utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	assert.Equal(t, "INVALID_OBJECT_ID", bad.Error.Code)
}
