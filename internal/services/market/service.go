// Package market computes market-level views over the scraped financial
// records, fronted by a TTL cache.
package market

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
	"github.com/ternarybob/quaestus/internal/services/cache"
)

const (
	overviewCacheKey = "market_overview"
	quartersCacheKey = "available_quarters"
)

// Top/worst/latest lists in the overview carry at most this many entries.
const summaryListSize = 10

// Service computes market overviews and serves record queries.
type Service struct {
	stockStorage interfaces.StockStorage
	cache        *cache.Service
	overviewTTL  time.Duration
	logger       arbor.ILogger
}

// NewService creates a new market service.
func NewService(stockStorage interfaces.StockStorage, cacheService *cache.Service, overviewTTL time.Duration, logger arbor.ILogger) *Service {
	if overviewTTL <= 0 {
		overviewTTL = time.Hour
	}
	return &Service{
		stockStorage: stockStorage,
		cache:        cacheService,
		overviewTTL:  overviewTTL,
		logger:       logger,
	}
}

// GetOverview returns the market overview, recomputing it when the cached
// copy has expired or force is set. A non-empty quarter restricts the view
// to records containing that quarter, using that quarter's snapshots.
func (s *Service) GetOverview(ctx context.Context, quarter string, force bool) (*models.MarketOverview, error) {
	quarter = strings.TrimSpace(quarter)
	key := overviewCacheKey
	if quarter != "" {
		key = overviewCacheKey + ":" + strings.ToUpper(quarter)
	}
	value, err := s.cache.GetOrCompute(ctx, key, s.overviewTTL, force, func(ctx context.Context) (interface{}, error) {
		return s.computeOverview(quarter)
	})
	if err != nil {
		return nil, err
	}
	overview, ok := value.(*models.MarketOverview)
	if !ok {
		return nil, fmt.Errorf("unexpected cache entry type for market overview")
	}
	return overview, nil
}

// GetQuarters returns every stored quarter, most recent first, cached.
func (s *Service) GetQuarters(ctx context.Context, force bool) ([]string, error) {
	value, err := s.cache.GetOrCompute(ctx, quartersCacheKey, s.overviewTTL, force, func(ctx context.Context) (interface{}, error) {
		return s.stockStorage.DistinctQuarters()
	})
	if err != nil {
		return nil, err
	}
	quarters, ok := value.([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected cache entry type for quarter list")
	}
	return quarters, nil
}

// Invalidate drops every cached view so the next reads recompute. Called
// after ingest and quarter removal.
func (s *Service) Invalidate() {
	s.cache.InvalidateAll()
}

// computeOverview builds the overview from one snapshot per record: the
// requested quarter's when given, otherwise the latest. Records without a
// matching snapshot contribute nothing.
func (s *Service) computeOverview(quarter string) (*models.MarketOverview, error) {
	records, err := s.stockStorage.ListRecords(quarter)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}

	summaries := make([]models.StockSummary, 0, len(records))
	totalStrengths := 0
	totalWeaknesses := 0
	for _, record := range records {
		var latest *models.FinancialSnapshot
		if quarter != "" {
			latest = record.SnapshotForQuarter(quarter)
		} else {
			latest = record.LatestSnapshot()
		}
		if latest == nil {
			continue
		}
		summary := models.StockSummary{
			Symbol:        record.Symbol,
			CompanyName:   record.CompanyName,
			Quarter:       latest.Quarter,
			CMP:           parsePrice(latest.CMP),
			RevenueGrowth: normalizeGrowth(latest.RevenueGrowth),
			ProfitGrowth:  normalizeGrowth(latest.ProfitGrowth),
			ResultDate:    latest.ResultDate,
			Strengths:     parseCount(latest.Strengths),
			Weaknesses:    parseCount(latest.Weaknesses),
		}
		summary.GrowthValue = parseGrowthValue(summary.ProfitGrowth)
		totalStrengths += summary.Strengths
		totalWeaknesses += summary.Weaknesses
		summaries = append(summaries, summary)
	}

	overview := &models.MarketOverview{
		TotalCompanies: len(summaries),
		GeneratedAt:    time.Now(),
	}
	if len(summaries) > 0 {
		overview.AverageStrengths = float64(totalStrengths) / float64(len(summaries))
		overview.AverageWeakness = float64(totalWeaknesses) / float64(len(summaries))
	}

	overview.TopPerformers = topByGrowth(summaries, true)
	overview.WorstPerformers = topByGrowth(summaries, false)
	overview.LatestResults = latestByResultDate(summaries)

	s.logger.Debug().
		Int("companies", overview.TotalCompanies).
		Msg("Market overview computed")

	return overview, nil
}

// GetRecord returns the full record for a symbol.
func (s *Service) GetRecord(symbol string) (*models.StockRecord, error) {
	return s.stockStorage.FindBySymbol(symbol)
}

// ListRecords returns all records, optionally filtered by quarter.
func (s *Service) ListRecords(quarter string) ([]*models.StockRecord, error) {
	return s.stockStorage.ListRecords(quarter)
}

// RemoveQuarter deletes a quarter's snapshots across all records and drops
// the cached views. Returns the number of records updated.
func (s *Service) RemoveQuarter(quarter string) (int, error) {
	if strings.TrimSpace(quarter) == "" {
		return 0, fmt.Errorf("quarter is required")
	}
	updated, err := s.stockStorage.RemoveQuarter(quarter)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.Invalidate()
	}
	return updated, nil
}

func topByGrowth(summaries []models.StockSummary, descending bool) []models.StockSummary {
	sorted := make([]models.StockSummary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].GrowthValue > sorted[j].GrowthValue
		}
		return sorted[i].GrowthValue < sorted[j].GrowthValue
	})
	if len(sorted) > summaryListSize {
		sorted = sorted[:summaryListSize]
	}
	return sorted
}

func latestByResultDate(summaries []models.StockSummary) []models.StockSummary {
	sorted := make([]models.StockSummary, 0, len(summaries))
	for _, sum := range summaries {
		if sum.ResultDate != "" {
			sorted = append(sorted, sum)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return parseResultDate(sorted[i].ResultDate).After(parseResultDate(sorted[j].ResultDate))
	})
	if len(sorted) > summaryListSize {
		sorted = sorted[:summaryListSize]
	}
	return sorted
}

var countPattern = regexp.MustCompile(`\((\d+)\)`)

// parseCount extracts the count from values like "Strengths (12)". A bare
// number is accepted as-is, anything else counts as zero.
func parseCount(value string) int {
	if m := countPattern.FindStringSubmatch(value); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return n
	}
	return 0
}

// parsePrice parses the first whitespace-separated token of a price cell,
// tolerating thousands separators and currency prefixes.
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

// normalizeGrowth maps the source's "--" placeholder to "0%".
func normalizeGrowth(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed == "--" {
		return "0%"
	}
	return trimmed
}

// parseGrowthValue converts a growth label like "12.5%" to its numeric value.
func parseGrowthValue(value string) float64 {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimSuffix(trimmed, "%")
	trimmed = strings.ReplaceAll(trimmed, ",", "")
	growth, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return growth
}

var resultDateLayouts = []string{
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"2006-01-02",
	"02-01-2006",
}

// parseResultDate parses a result date cell. Unparseable dates sort last.
func parseResultDate(value string) time.Time {
	trimmed := strings.TrimSpace(value)
	for _, layout := range resultDateLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts
		}
	}
	return time.Time{}
}
