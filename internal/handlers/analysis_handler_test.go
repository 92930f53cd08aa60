package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
	"github.com/ternarybob/quaestus/internal/services/analysis"
)

type mockAnalysisService struct {
	record  *models.AnalysisRecord
	history []analysis.HistoryItem
	err     error
}

func (m *mockAnalysisService) Analyze(ctx context.Context, symbol string) (*models.AnalysisRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *mockAnalysisService) Get(id string) (*models.AnalysisRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.record, nil
}

func (m *mockAnalysisService) History(symbol string) ([]analysis.HistoryItem, error) {
	return m.history, m.err
}

func TestAnalysisRoute_GetByID(t *testing.T) {
	svc := &mockAnalysisService{
		record: &models.AnalysisRecord{ID: "analysis_abc", Symbol: "INFY", Provider: "claude"},
	}
	handler := NewAnalysisHandler(svc, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.Route(rec, httptest.NewRequest("GET", "/api/analysis/analysis_abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "analysis_abc", data["id"])
}

func TestAnalysisRoute_GetByID_NotFound(t *testing.T) {
	handler := NewAnalysisHandler(&mockAnalysisService{err: interfaces.ErrNotFound}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.Route(rec, httptest.NewRequest("GET", "/api/analysis/analysis_missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestAnalysisRoute_History(t *testing.T) {
	svc := &mockAnalysisService{
		history: []analysis.HistoryItem{
			{ID: "analysis_1", Label: "Today 10:30", Provider: "claude", Recommendation: "Buy"},
		},
	}
	handler := NewAnalysisHandler(svc, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.Route(rec, httptest.NewRequest("GET", "/api/analysis/infy/history", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec).Data.(map[string]interface{})
	assert.Equal(t, "INFY", data["symbol"])
	history := data["history"].([]interface{})
	assert.Len(t, history, 1)
}

func TestAnalysisRoute_Refresh(t *testing.T) {
	svc := &mockAnalysisService{
		record: &models.AnalysisRecord{ID: "analysis_new", Symbol: "INFY", Recommendation: "Buy"},
	}
	handler := NewAnalysisHandler(svc, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.Route(rec, httptest.NewRequest("POST", "/api/analysis/INFY/refresh", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Analysis generated", resp.Message)
}

func TestAnalysisRoute_RefreshErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown symbol", interfaces.ErrNotFound, http.StatusNotFound},
		{"no data", analysis.ErrNoFinancialData, http.StatusBadRequest},
		{"no provider", analysis.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{"provider failure", assert.AnError, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewAnalysisHandler(&mockAnalysisService{err: tc.err}, common.GetLogger())

			rec := httptest.NewRecorder()
			handler.Route(rec, httptest.NewRequest("POST", "/api/analysis/INFY/refresh", nil))

			assert.Equal(t, tc.code, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).Success)
		})
	}
}

func TestAnalysisRoute_UnknownPath(t *testing.T) {
	handler := NewAnalysisHandler(&mockAnalysisService{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.Route(rec, httptest.NewRequest("GET", "/api/analysis/INFY/unknown", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalysisRoute_RefreshWrongMethod(t *testing.T) {
	handler := NewAnalysisHandler(&mockAnalysisService{}, common.GetLogger())

	rec := httptest.NewRecorder()
	handler.Route(rec, httptest.NewRequest("GET", "/api/analysis/INFY/refresh", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
