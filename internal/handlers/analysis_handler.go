package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
	"github.com/ternarybob/quaestus/internal/services/analysis"
)

// AnalysisServiceInterface defines the methods needed from the analysis service
type AnalysisServiceInterface interface {
	Analyze(ctx context.Context, symbol string) (*models.AnalysisRecord, error)
	Get(id string) (*models.AnalysisRecord, error)
	History(symbol string) ([]analysis.HistoryItem, error)
}

// AnalysisHandler serves analysis generation and history requests.
type AnalysisHandler struct {
	analysis AnalysisServiceInterface
	logger   arbor.ILogger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisService AnalysisServiceInterface, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysisService,
		logger:   logger,
	}
}

// Route dispatches /api/analysis/ requests:
// GET  /api/analysis/{id}               (ids carry the analysis_ prefix)
// GET  /api/analysis/{symbol}/history
// POST /api/analysis/{symbol}/refresh
func (h *AnalysisHandler) Route(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/analysis/"), "/")
	if rest == "" {
		WriteError(w, http.StatusBadRequest, "Missing analysis id or symbol")
		return
	}

	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && strings.HasPrefix(parts[0], "analysis_"):
		h.getAnalysis(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history":
		h.getHistory(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "refresh":
		h.refreshAnalysis(w, r, parts[0])
	default:
		WriteError(w, http.StatusNotFound, "Unknown analysis endpoint")
	}
}

func (h *AnalysisHandler) getAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	record, err := h.analysis.Get(id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Analysis not found: "+id)
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to load analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to load analysis")
		return
	}

	WriteData(w, http.StatusOK, "Analysis retrieved", record)
}

func (h *AnalysisHandler) getHistory(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	items, err := h.analysis.History(symbol)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load analysis history")
		WriteError(w, http.StatusInternalServerError, "Failed to load analysis history")
		return
	}

	WriteData(w, http.StatusOK, "Analysis history retrieved", map[string]interface{}{
		"symbol":  strings.ToUpper(symbol),
		"history": items,
	})
}

func (h *AnalysisHandler) refreshAnalysis(w http.ResponseWriter, r *http.Request, symbol string) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	record, err := h.analysis.Analyze(r.Context(), symbol)
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
			WriteError(w, http.StatusNotFound, "Stock not found: "+strings.ToUpper(symbol))
		case errors.Is(err, analysis.ErrNoFinancialData):
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, analysis.ErrProviderUnavailable):
			WriteError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.logger.Error().Err(err).Str("symbol", symbol).Msg("Analysis generation failed")
			WriteError(w, http.StatusServiceUnavailable, "Analysis generation failed: "+err.Error())
		}
		return
	}

	WriteData(w, http.StatusOK, "Analysis generated", record)
}
