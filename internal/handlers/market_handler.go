package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
)

// MarketServiceInterface defines the methods needed from the market service
type MarketServiceInterface interface {
	GetOverview(ctx context.Context, quarter string, force bool) (*models.MarketOverview, error)
	GetQuarters(ctx context.Context, force bool) ([]string, error)
	GetRecord(symbol string) (*models.StockRecord, error)
	ListRecords(quarter string) ([]*models.StockRecord, error)
}

// MarketHandler serves market overview and stock detail requests.
type MarketHandler struct {
	market MarketServiceInterface
	logger arbor.ILogger
}

// NewMarketHandler creates a new market handler.
func NewMarketHandler(market MarketServiceInterface, logger arbor.ILogger) *MarketHandler {
	return &MarketHandler{
		market: market,
		logger: logger,
	}
}

// MarketDataHandler handles GET /api/market-data?quarter=&force_refresh=
func (h *MarketHandler) MarketDataHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	quarter := r.URL.Query().Get("quarter")
	force := parseBoolParam(r, "force_refresh")

	overview, err := h.market.GetOverview(r.Context(), quarter, force)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute market overview")
		WriteError(w, http.StatusInternalServerError, "Failed to compute market overview")
		return
	}

	WriteData(w, http.StatusOK, "Market overview retrieved", overview)
}

// QuartersHandler handles GET /api/quarters?force_refresh=
func (h *MarketHandler) QuartersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	quarters, err := h.market.GetQuarters(r.Context(), parseBoolParam(r, "force_refresh"))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list quarters")
		WriteError(w, http.StatusInternalServerError, "Failed to list quarters")
		return
	}

	WriteData(w, http.StatusOK, "Quarters retrieved", map[string]interface{}{
		"quarters": quarters,
	})
}

// CompaniesHandler handles GET /api/scraper/companies?quarter=
func (h *MarketHandler) CompaniesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	records, err := h.market.ListRecords(r.URL.Query().Get("quarter"))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list companies")
		WriteError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}

	WriteData(w, http.StatusOK, "Companies retrieved", map[string]interface{}{
		"companies": records,
		"count":     len(records),
	})
}

// StockHandler handles GET /api/stock/{symbol}
func (h *MarketHandler) StockHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/stock/"), "/")
	if symbol == "" {
		WriteError(w, http.StatusBadRequest, "Missing stock symbol")
		return
	}

	record, err := h.market.GetRecord(symbol)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Stock not found: "+strings.ToUpper(symbol))
			return
		}
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load stock record")
		WriteError(w, http.StatusInternalServerError, "Failed to load stock record")
		return
	}

	WriteData(w, http.StatusOK, "Stock retrieved", record)
}

// parseBoolParam reads a query flag, treating "true" and "1" as set.
func parseBoolParam(r *http.Request, name string) bool {
	value := strings.ToLower(r.URL.Query().Get(name))
	return value == "true" || value == "1"
}
