package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/services/scraper"
)

// ScraperServiceInterface defines the methods needed from the scraper service
type ScraperServiceInterface interface {
	Run(ctx context.Context, symbols []string) (scraper.RunStatus, error)
	ScrapeListing(ctx context.Context, url string) (scraper.RunStatus, error)
}

// QuarterRemover removes one quarter's snapshots across all records.
type QuarterRemover interface {
	RemoveQuarter(quarter string) (int, error)
}

// ScraperHandler serves scrape triggers and quarter removal.
type ScraperHandler struct {
	scraper ScraperServiceInterface
	market  QuarterRemover
	logger  arbor.ILogger
}

// NewScraperHandler creates a new scraper handler.
func NewScraperHandler(scraperService ScraperServiceInterface, market QuarterRemover, logger arbor.ILogger) *ScraperHandler {
	return &ScraperHandler{
		scraper: scraperService,
		market:  market,
		logger:  logger,
	}
}

type scrapeRequest struct {
	Stock      string `json:"stock"`
	ResultType string `json:"result_type"`
	URL        string `json:"url"`
}

// ScrapeHandler handles POST /api/scraper/scrape. The body names exactly one
// target: a single stock symbol, a result-type listing, or a custom URL.
func (h *ScraperHandler) ScrapeHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req scrapeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Stock = strings.TrimSpace(req.Stock)
	req.ResultType = strings.TrimSpace(req.ResultType)
	req.URL = strings.TrimSpace(req.URL)

	targets := 0
	for _, target := range []string{req.Stock, req.ResultType, req.URL} {
		if target != "" {
			targets++
		}
	}
	if targets != 1 {
		WriteError(w, http.StatusBadRequest, "Provide exactly one of stock, result_type, or url")
		return
	}

	var status scraper.RunStatus
	var err error
	switch {
	case req.Stock != "":
		status, err = h.scraper.Run(r.Context(), []string{req.Stock})
	case req.ResultType != "":
		var url string
		url, err = scraper.ListingURL(req.ResultType)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		status, err = h.scraper.ScrapeListing(r.Context(), url)
	default:
		status, err = h.scraper.ScrapeListing(r.Context(), req.URL)
	}

	if err != nil {
		if errors.Is(err, scraper.ErrRunInProgress) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error().Err(err).Msg("Scrape run failed")
		WriteError(w, http.StatusServiceUnavailable, "Scrape failed: "+err.Error())
		return
	}

	WriteData(w, http.StatusOK, "Scrape completed", map[string]interface{}{
		"companies_scraped": status.Added,
		"companies_skipped": status.Skipped,
		"companies_failed":  status.Failed,
	})
}

type removeQuarterRequest struct {
	Quarter string `json:"quarter"`
}

// RemoveQuarterHandler handles POST /api/scraper/remove-quarter
func (h *ScraperHandler) RemoveQuarterHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req removeQuarterRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Quarter) == "" {
		WriteError(w, http.StatusBadRequest, "Quarter is required")
		return
	}

	updated, err := h.market.RemoveQuarter(req.Quarter)
	if err != nil {
		h.logger.Error().Err(err).Str("quarter", req.Quarter).Msg("Failed to remove quarter")
		WriteError(w, http.StatusInternalServerError, "Failed to remove quarter")
		return
	}

	WriteData(w, http.StatusOK, "Quarter removed", map[string]interface{}{
		"documents_updated": updated,
	})
}
