package models

import "time"

// Recommendation values derived from sentiment score.
const (
	RecommendationBuy  = "Buy"
	RecommendationSell = "Sell"
	RecommendationHold = "Hold"
)

// Sentiment is the parsed model sentiment for an analysis.
type Sentiment struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

// AnalysisRecord is one stored AI analysis of a company.
type AnalysisRecord struct {
	ID             string    `json:"id" badgerhold:"key"`
	Symbol         string    `json:"symbol"`
	CompanyName    string    `json:"company_name"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model,omitempty"`
	Analysis       string    `json:"analysis"`
	Sentiment      Sentiment `json:"sentiment"`
	Recommendation string    `json:"recommendation"`
	Quarters       []string  `json:"quarters,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HistoryLabel formats the analysis timestamp for history listings. Analyses
// from today render as "Today HH:MM", from the previous day as
// "Yesterday HH:MM", anything older as "2 January 2006".
func (a *AnalysisRecord) HistoryLabel(now time.Time) string {
	ts := a.CreatedAt.In(now.Location())
	y1, m1, d1 := ts.Date()
	y2, m2, d2 := now.Date()
	yy, ym, yd := now.AddDate(0, 0, -1).Date()
	switch {
	case y1 == y2 && m1 == m2 && d1 == d2:
		return "Today " + ts.Format("15:04")
	case y1 == yy && m1 == ym && d1 == yd:
		return "Yesterday " + ts.Format("15:04")
	default:
		return ts.Format("2 January 2006")
	}
}

// RecommendationFromScore maps a sentiment score to a recommendation.
// Scores of 0.6 and above are Buy, 0.4 and below are Sell, the rest Hold.
func RecommendationFromScore(score float64) string {
	switch {
	case score >= 0.6:
		return RecommendationBuy
	case score <= 0.4:
		return RecommendationSell
	default:
		return RecommendationHold
	}
}

// SentimentLabel maps a score to a coarse label for display.
func SentimentLabel(score float64) string {
	switch {
	case score >= 0.6:
		return "positive"
	case score <= 0.4:
		return "negative"
	default:
		return "neutral"
	}
}
