package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
)

// PortfolioServiceInterface defines the methods needed from the portfolio service
type PortfolioServiceInterface interface {
	Summary() (*models.PortfolioSummary, error)
	Create(holding *models.Holding) (*models.HoldingView, error)
	Update(id string, holding *models.Holding) (*models.HoldingView, error)
	Delete(id string) error
	Clear() (int, error)
	ImportCSV(r io.Reader) (int, error)
}

// PortfolioHandler serves portfolio holding requests.
type PortfolioHandler struct {
	portfolio PortfolioServiceInterface
	logger    arbor.ILogger
}

// NewPortfolioHandler creates a new portfolio handler.
func NewPortfolioHandler(portfolio PortfolioServiceInterface, logger arbor.ILogger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		logger:    logger,
	}
}

// HoldingsHandler handles the holdings collection:
// GET /api/portfolio/holdings, POST /api/portfolio/holdings,
// DELETE /api/portfolio/holdings (clear all).
func (h *PortfolioHandler) HoldingsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.listHoldings(w, r)
	case "POST":
		h.createHolding(w, r)
	case "DELETE":
		h.clearHoldings(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HoldingHandler handles one holding:
// PUT /api/portfolio/holdings/{id}, DELETE /api/portfolio/holdings/{id}.
func (h *PortfolioHandler) HoldingHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/portfolio/holdings/"), "/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Missing holding id")
		return
	}

	switch r.Method {
	case "PUT":
		h.updateHolding(w, r, id)
	case "DELETE":
		h.deleteHolding(w, r, id)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *PortfolioHandler) listHoldings(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolio.Summary()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to load portfolio")
		WriteError(w, http.StatusInternalServerError, "Failed to load portfolio")
		return
	}
	WriteData(w, http.StatusOK, "Portfolio retrieved", summary)
}

func (h *PortfolioHandler) createHolding(w http.ResponseWriter, r *http.Request) {
	var holding models.Holding
	if err := DecodeJSON(r, &holding); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.portfolio.Create(&holding)
	if err != nil {
		WriteValidationError(w, err)
		return
	}

	h.logger.Info().Str("id", view.ID).Str("symbol", view.Symbol).Msg("Holding created")
	WriteData(w, http.StatusCreated, "Holding created", view)
}

func (h *PortfolioHandler) updateHolding(w http.ResponseWriter, r *http.Request, id string) {
	var holding models.Holding
	if err := DecodeJSON(r, &holding); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.portfolio.Update(id, &holding)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Holding not found: "+id)
			return
		}
		WriteValidationError(w, err)
		return
	}

	WriteData(w, http.StatusOK, "Holding updated", view)
}

func (h *PortfolioHandler) deleteHolding(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.portfolio.Delete(id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Holding not found: "+id)
			return
		}
		h.logger.Error().Err(err).Str("id", id).Msg("Failed to delete holding")
		WriteError(w, http.StatusInternalServerError, "Failed to delete holding")
		return
	}
	WriteData(w, http.StatusOK, "Holding deleted", nil)
}

func (h *PortfolioHandler) clearHoldings(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.portfolio.Clear()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear portfolio")
		WriteError(w, http.StatusInternalServerError, "Failed to clear portfolio")
		return
	}
	WriteData(w, http.StatusOK, "Portfolio cleared", map[string]interface{}{
		"deleted": deleted,
	})
}

// ImportHandler handles POST /api/portfolio/holdings/import with a CSV body.
func (h *PortfolioHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	imported, err := h.portfolio.ImportCSV(r.Body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Import failed: "+err.Error())
		return
	}

	h.logger.Info().Int("imported", imported).Msg("Portfolio imported")
	WriteData(w, http.StatusOK, "Portfolio imported", map[string]interface{}{
		"imported": imported,
	})
}
