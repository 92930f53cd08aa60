// Package portfolio manages the user's holdings and their valuation against
// the latest scraped prices.
package portfolio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gocarina/gocsv"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
)

var validate = validator.New()

// Service manages portfolio holdings.
type Service struct {
	holdingStorage interfaces.HoldingStorage
	stockStorage   interfaces.StockStorage
	logger         arbor.ILogger
}

// NewService creates a new portfolio service.
func NewService(holdingStorage interfaces.HoldingStorage, stockStorage interfaces.StockStorage, logger arbor.ILogger) *Service {
	return &Service{
		holdingStorage: holdingStorage,
		stockStorage:   stockStorage,
		logger:         logger,
	}
}

// Summary returns all holdings enriched with latest prices plus totals.
func (s *Service) Summary() (*models.PortfolioSummary, error) {
	holdings, err := s.holdingStorage.ListHoldings()
	if err != nil {
		return nil, err
	}

	summary := &models.PortfolioSummary{
		Holdings: make([]models.HoldingView, 0, len(holdings)),
	}
	for _, holding := range holdings {
		view := s.enrich(holding)
		summary.Holdings = append(summary.Holdings, view)
		summary.TotalInvested += holding.InvestedValue()
		summary.TotalCurrent += view.CurrentValue
	}
	summary.TotalPL = summary.TotalCurrent - summary.TotalInvested
	if summary.TotalInvested > 0 {
		summary.TotalPLPct = summary.TotalPL / summary.TotalInvested * 100
	}
	return summary, nil
}

// Get returns a single holding enriched with the latest price.
func (s *Service) Get(id string) (*models.HoldingView, error) {
	holding, err := s.holdingStorage.GetHolding(id)
	if err != nil {
		return nil, err
	}
	view := s.enrich(holding)
	return &view, nil
}

// Create validates and stores a new holding.
func (s *Service) Create(holding *models.Holding) (*models.HoldingView, error) {
	holding.Symbol = strings.ToUpper(strings.TrimSpace(holding.Symbol))
	if err := validate.Struct(holding); err != nil {
		return nil, fmt.Errorf("invalid holding: %w", err)
	}

	holding.ID = common.NewHoldingID()
	if err := s.holdingStorage.SaveHolding(holding); err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", holding.ID).Str("symbol", holding.Symbol).Msg("Holding created")
	view := s.enrich(holding)
	return &view, nil
}

// Update replaces every stored field of an existing holding.
func (s *Service) Update(id string, holding *models.Holding) (*models.HoldingView, error) {
	holding.Symbol = strings.ToUpper(strings.TrimSpace(holding.Symbol))
	if err := validate.Struct(holding); err != nil {
		return nil, fmt.Errorf("invalid holding: %w", err)
	}

	if err := s.holdingStorage.ReplaceHolding(id, holding); err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", id).Str("symbol", holding.Symbol).Msg("Holding updated")
	view := s.enrich(holding)
	return &view, nil
}

// Delete removes a holding.
func (s *Service) Delete(id string) error {
	if err := s.holdingStorage.DeleteHolding(id); err != nil {
		return err
	}
	s.logger.Info().Str("id", id).Msg("Holding deleted")
	return nil
}

// Clear removes every holding, returning how many were deleted.
func (s *Service) Clear() (int, error) {
	deleted, err := s.holdingStorage.ClearHoldings()
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("deleted", deleted).Msg("Portfolio cleared")
	return deleted, nil
}

// ImportCSV replaces all holdings with the rows of a CSV stream. Existing
// holdings are cleared first, matching the source application's import.
func (s *Service) ImportCSV(r io.Reader) (int, error) {
	var rows []models.HoldingImportRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("CSV contains no holdings")
	}

	holdings := make([]*models.Holding, 0, len(rows))
	for i, row := range rows {
		holding := &models.Holding{
			ID:           common.NewHoldingID(),
			Symbol:       strings.ToUpper(strings.TrimSpace(row.Symbol)),
			CompanyName:  strings.TrimSpace(row.CompanyName),
			Quantity:     row.Quantity,
			AveragePrice: row.AveragePrice,
			PurchaseDate: strings.TrimSpace(row.PurchaseDate),
			Notes:        strings.TrimSpace(row.Notes),
		}
		if err := validate.Struct(holding); err != nil {
			return 0, fmt.Errorf("invalid holding on row %d: %w", i+1, err)
		}
		holdings = append(holdings, holding)
	}

	cleared, err := s.holdingStorage.ClearHoldings()
	if err != nil {
		return 0, fmt.Errorf("failed to clear holdings: %w", err)
	}

	for _, holding := range holdings {
		if err := s.holdingStorage.SaveHolding(holding); err != nil {
			return 0, fmt.Errorf("failed to save holding %s: %w", holding.Symbol, err)
		}
	}

	s.logger.Info().Int("imported", len(holdings)).Int("cleared", cleared).Msg("Portfolio imported from CSV")
	return len(holdings), nil
}

// enrich computes the market-derived fields of a holding view from the
// latest stored snapshot. Holdings without scraped data value at zero.
func (s *Service) enrich(holding *models.Holding) models.HoldingView {
	view := models.HoldingView{Holding: *holding}

	record, err := s.stockStorage.FindBySymbol(holding.Symbol)
	if err != nil {
		return view
	}
	latest := record.LatestSnapshot()
	if latest == nil {
		return view
	}

	view.CurrentPrice = parsePrice(latest.CMP)
	view.CurrentValue = view.CurrentPrice * holding.Quantity
	view.ProfitLoss = view.CurrentValue - holding.InvestedValue()
	if invested := holding.InvestedValue(); invested > 0 {
		view.ProfitLossPct = view.ProfitLoss / invested * 100
	}
	view.LatestQuarter = latest.Quarter
	return view
}

// parsePrice parses the leading numeric token of a price cell.
func parsePrice(value string) float64 {
	fields := strings.Fields(strings.TrimSpace(value))
	if len(fields) == 0 {
		return 0
	}
	token := strings.ReplaceAll(fields[0], ",", "")
	token = strings.TrimLeft(token, "₹$")
	price, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return price
}
