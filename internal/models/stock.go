package models

import "time"

// FinancialSnapshot holds the scraped metrics for one company and quarter.
// Metric values are stored as the source presents them, including units and
// percent signs, so the UI can render them without reformatting.
type FinancialSnapshot struct {
	Quarter       string    `json:"quarter"`
	ResultDate    string    `json:"result_date,omitempty"`
	ResultType    string    `json:"result_type,omitempty"`
	CMP           string    `json:"cmp,omitempty"`
	MarketCap     string    `json:"market_cap,omitempty"`
	Revenue       string    `json:"revenue,omitempty"`
	RevenueGrowth string    `json:"revenue_growth,omitempty"`
	NetProfit     string    `json:"net_profit,omitempty"`
	ProfitGrowth  string    `json:"profit_growth,omitempty"`
	EPS           string    `json:"eps,omitempty"`
	Strengths     string    `json:"strengths,omitempty"`
	Weaknesses    string    `json:"weaknesses,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at"`
}

// StockRecord is one company's document in the financial collection, keyed
// by uppercase symbol and accumulating snapshots across quarters.
type StockRecord struct {
	Symbol      string              `json:"symbol" badgerhold:"key"`
	CompanyName string              `json:"company_name"`
	Snapshots   []FinancialSnapshot `json:"snapshots"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// LatestSnapshot returns the snapshot with the most recent fiscal quarter,
// or nil when the record has no snapshots.
func (r *StockRecord) LatestSnapshot() *FinancialSnapshot {
	if len(r.Snapshots) == 0 {
		return nil
	}
	latest := &r.Snapshots[0]
	for i := 1; i < len(r.Snapshots); i++ {
		if CompareQuarters(r.Snapshots[i].Quarter, latest.Quarter) > 0 {
			latest = &r.Snapshots[i]
		}
	}
	return latest
}

// SnapshotForQuarter returns the snapshot matching quarter, or nil. Matching
// ignores case and surrounding whitespace.
func (r *StockRecord) SnapshotForQuarter(quarter string) *FinancialSnapshot {
	for i := range r.Snapshots {
		if QuartersEqual(r.Snapshots[i].Quarter, quarter) {
			return &r.Snapshots[i]
		}
	}
	return nil
}

// MarketOverview is the computed market summary served to the dashboard.
type MarketOverview struct {
	TotalCompanies   int             `json:"total_companies"`
	AverageStrengths float64         `json:"average_strengths"`
	AverageWeakness  float64         `json:"average_weaknesses"`
	TopPerformers    []StockSummary  `json:"top_performers"`
	WorstPerformers  []StockSummary  `json:"worst_performers"`
	LatestResults    []StockSummary  `json:"latest_results"`
	GeneratedAt      time.Time       `json:"generated_at"`
}

// StockSummary is one company's latest-quarter view inside the overview.
type StockSummary struct {
	Symbol        string  `json:"symbol"`
	CompanyName   string  `json:"company_name"`
	Quarter       string  `json:"quarter"`
	CMP           float64 `json:"cmp"`
	RevenueGrowth string  `json:"revenue_growth"`
	ProfitGrowth  string  `json:"profit_growth"`
	GrowthValue   float64 `json:"growth_value"`
	ResultDate    string  `json:"result_date,omitempty"`
	Strengths     int     `json:"strengths"`
	Weaknesses    int     `json:"weaknesses"`
}
