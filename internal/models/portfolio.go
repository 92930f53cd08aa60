package models

import "time"

// Holding is one position in the user's portfolio.
type Holding struct {
	ID           string    `json:"id" badgerhold:"key"`
	Symbol       string    `json:"symbol" validate:"required"`
	CompanyName  string    `json:"company_name"`
	Quantity     float64   `json:"quantity" validate:"gt=0"`
	AveragePrice float64   `json:"average_price" validate:"gte=0"`
	PurchaseDate string    `json:"purchase_date,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InvestedValue returns quantity times average purchase price.
func (h *Holding) InvestedValue() float64 {
	return h.Quantity * h.AveragePrice
}

// HoldingView is a holding enriched with the latest scraped market price.
type HoldingView struct {
	Holding
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_pct"`
	LatestQuarter string  `json:"latest_quarter,omitempty"`
}

// PortfolioSummary aggregates all holdings.
type PortfolioSummary struct {
	Holdings      []HoldingView `json:"holdings"`
	TotalInvested float64       `json:"total_invested"`
	TotalCurrent  float64       `json:"total_current"`
	TotalPL       float64       `json:"total_pl"`
	TotalPLPct    float64       `json:"total_pl_pct"`
}

// HoldingImportRow is one line of a portfolio CSV import.
type HoldingImportRow struct {
	Symbol       string  `csv:"symbol"`
	CompanyName  string  `csv:"company_name"`
	Quantity     float64 `csv:"quantity"`
	AveragePrice float64 `csv:"average_price"`
	PurchaseDate string  `csv:"purchase_date"`
	Notes        string  `csv:"notes"`
}
