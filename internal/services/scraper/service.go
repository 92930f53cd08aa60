// Package scraper ingests quarterly financial metrics from the source site
// into the financial record collection. One scrape run executes at a time.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"golang.org/x/time/rate"
)

// ErrRunInProgress is returned when a scrape is triggered while another
// run holds the run lock.
var ErrRunInProgress = errors.New("a scrape run is already in progress")

// RunStatus is a snapshot of the current or most recent scrape run.
type RunStatus struct {
	Running       bool       `json:"running"`
	Total         int        `json:"total"`
	Completed     int        `json:"completed"`
	Added         int        `json:"added"`
	Skipped       int        `json:"skipped"`
	Failed        int        `json:"failed"`
	CurrentSymbol string     `json:"current_symbol,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// symbolRow is one line of a symbols CSV file.
type symbolRow struct {
	Symbol string `csv:"symbol"`
}

// Service orchestrates scrape runs against the source site.
type Service struct {
	config       *common.ScraperConfig
	stockStorage interfaces.StockStorage
	events       interfaces.EventService
	browser      *Browser
	limiter      *rate.Limiter
	logger       arbor.ILogger

	// onIngest runs after a run that added records (cache invalidation)
	onIngest func()

	runMu    sync.Mutex
	statusMu sync.RWMutex
	status   RunStatus

	// fetch is swappable for tests
	fetch func(ctx context.Context, url string) (string, error)
}

// NewService creates a new scraper service.
func NewService(config *common.ScraperConfig, stockStorage interfaces.StockStorage, events interfaces.EventService, logger arbor.ILogger) *Service {
	browser := NewBrowser(config, logger)
	rateLimit := config.RateLimit
	if rateLimit <= 0 {
		rateLimit = time.Second
	}
	s := &Service{
		config:       config,
		stockStorage: stockStorage,
		events:       events,
		browser:      browser,
		limiter:      rate.NewLimiter(rate.Every(rateLimit), 1),
		logger:       logger,
	}
	s.fetch = browser.FetchHTML
	return s
}

// OnIngest registers a callback invoked after a run that added snapshots.
func (s *Service) OnIngest(fn func()) {
	s.onIngest = fn
}

// Status returns a snapshot of the current run state.
func (s *Service) Status() RunStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Run scrapes the given symbols sequentially. It returns an error without
// starting when another run is already in progress. An empty symbol list
// falls back to the configured symbols file.
func (s *Service) Run(ctx context.Context, symbols []string) (RunStatus, error) {
	if !s.runMu.TryLock() {
		return s.Status(), ErrRunInProgress
	}
	defer s.runMu.Unlock()

	symbols, err := s.resolveSymbols(symbols)
	if err != nil {
		return s.Status(), err
	}
	if len(symbols) == 0 {
		return s.Status(), fmt.Errorf("no symbols to scrape")
	}
	if s.config.MaxSymbols > 0 && len(symbols) > s.config.MaxSymbols {
		s.logger.Warn().
			Int("requested", len(symbols)).
			Int("max", s.config.MaxSymbols).
			Msg("Symbol list truncated to configured maximum")
		symbols = symbols[:s.config.MaxSymbols]
	}

	now := time.Now()
	s.setStatus(RunStatus{Running: true, Total: len(symbols), StartedAt: &now})
	s.publish(interfaces.EventScrapeStarted, fmt.Sprintf("Scrape started for %d symbols", len(symbols)), map[string]interface{}{
		"total": len(symbols),
	})

	added := 0
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}

		select {
		case <-ctx.Done():
			s.finishRun(ctx.Err())
			return s.Status(), ctx.Err()
		default:
		}

		s.updateStatus(func(st *RunStatus) { st.CurrentSymbol = symbol })

		wasAdded, err := s.scrapeSymbol(ctx, symbol)
		s.updateStatus(func(st *RunStatus) {
			st.Completed++
			switch {
			case err != nil:
				st.Failed++
				st.LastError = err.Error()
			case wasAdded:
				st.Added++
			default:
				st.Skipped++
			}
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Symbol scrape failed")
		}
		if wasAdded {
			added++
		}

		status := s.Status()
		eventType := interfaces.EventCompanySkipped
		message := fmt.Sprintf("Skipped %s (%d/%d)", symbol, status.Completed, status.Total)
		if wasAdded {
			eventType = interfaces.EventCompanyScraped
			message = fmt.Sprintf("Scraped %s (%d/%d)", symbol, status.Completed, status.Total)
		}
		s.publish(eventType, message, map[string]interface{}{
			"symbol":    symbol,
			"completed": status.Completed,
			"total":     status.Total,
			"added":     status.Added,
			"skipped":   status.Skipped,
			"failed":    status.Failed,
		})
	}

	s.finishRun(nil)
	if added > 0 && s.onIngest != nil {
		s.onIngest()
	}

	final := s.Status()
	s.publish(interfaces.EventScrapeCompleted, fmt.Sprintf("Scrape completed: %d added, %d skipped, %d failed", final.Added, final.Skipped, final.Failed), map[string]interface{}{
		"added":   final.Added,
		"skipped": final.Skipped,
		"failed":  final.Failed,
	})
	return final, nil
}

// RunStoredSymbols re-scrapes every symbol already present in the store,
// falling back to the configured symbols file when the store is empty.
func (s *Service) RunStoredSymbols(ctx context.Context) (RunStatus, error) {
	records, err := s.stockStorage.ListRecords("")
	if err != nil {
		return s.Status(), fmt.Errorf("failed to list stored symbols: %w", err)
	}
	symbols := make([]string, 0, len(records))
	for _, record := range records {
		symbols = append(symbols, record.Symbol)
	}
	return s.Run(ctx, symbols)
}

// scrapeSymbol fetches, extracts, and stores one symbol's latest quarter.
// Returns whether a new snapshot was added.
func (s *Service) scrapeSymbol(ctx context.Context, symbol string) (bool, error) {
	url := fmt.Sprintf("%s/%s/", strings.TrimRight(s.config.BaseURL, "/"), symbol)

	html, err := s.fetchPage(ctx, url)
	if err != nil {
		return false, err
	}

	companyName, snapshot, err := ExtractSnapshot(html)
	if err != nil {
		return false, fmt.Errorf("extraction failed: %w", err)
	}
	if snapshot.Quarter == "" {
		return false, fmt.Errorf("no quarter found for %s", symbol)
	}

	// Dedup gate. A storage error here fails open so a flaky read cannot
	// block ingest; the store-side conflict check still prevents duplicates.
	exists, err := s.stockStorage.HasQuarter(symbol, snapshot.Quarter)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Dedup check failed, continuing")
	} else if exists {
		s.logger.Debug().
			Str("symbol", symbol).
			Str("quarter", snapshot.Quarter).
			Msg("Quarter already stored, skipping")
		return false, nil
	}

	return s.stockStorage.UpsertSnapshot(symbol, companyName, snapshot)
}

// fetchPage loads one page with rate limiting and bounded retries.
func (s *Service) fetchPage(ctx context.Context, url string) (string, error) {
	attempts := s.config.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var html string
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if waitErr := s.limiter.Wait(ctx); waitErr != nil {
			return "", waitErr
		}
		html, err = s.fetch(ctx, url)
		if err == nil {
			return html, nil
		}
		s.logger.Debug().
			Err(err).
			Str("url", url).
			Int("attempt", attempt).
			Msg("Page fetch failed")
	}
	return "", fmt.Errorf("fetch failed after %d attempts: %w", attempts, err)
}

// resultTypeURLs maps the short result-type codes to the earnings listing
// pages: latest, best and worst performers, positive and negative turnaround.
var resultTypeURLs = map[string]string{
	"LR": "https://www.moneycontrol.com/markets/earnings/latest-results/?tab=LR&subType=yoy",
	"BP": "https://www.moneycontrol.com/markets/earnings/latest-results/?tab=BP&subType=yoy",
	"WP": "https://www.moneycontrol.com/markets/earnings/latest-results/?tab=WP&subType=yoy",
	"PT": "https://www.moneycontrol.com/markets/earnings/latest-results/?tab=PT&subType=yoy",
	"NT": "https://www.moneycontrol.com/markets/earnings/latest-results/?tab=NT&subType=yoy",
}

// ListingURL resolves a result-type code to its listing page URL.
func ListingURL(resultType string) (string, error) {
	url, ok := resultTypeURLs[strings.ToUpper(strings.TrimSpace(resultType))]
	if !ok {
		return "", fmt.Errorf("unknown result type %q (valid: LR, BP, WP, PT, NT)", resultType)
	}
	return url, nil
}

// ScrapeListing scrapes an earnings listing page. Each result card is checked
// against the store first; detail pages open only for quarters not yet stored.
func (s *Service) ScrapeListing(ctx context.Context, url string) (RunStatus, error) {
	if !s.runMu.TryLock() {
		return s.Status(), ErrRunInProgress
	}
	defer s.runMu.Unlock()

	now := time.Now()
	s.setStatus(RunStatus{Running: true, StartedAt: &now})

	html, err := s.fetchPage(ctx, url)
	if err != nil {
		s.finishRun(err)
		return s.Status(), err
	}

	cards, err := ExtractResultCards(html)
	if err != nil {
		s.finishRun(err)
		return s.Status(), err
	}

	s.updateStatus(func(st *RunStatus) { st.Total = len(cards) })
	s.publish(interfaces.EventScrapeStarted, fmt.Sprintf("Scrape started for %d result cards", len(cards)), map[string]interface{}{
		"total": len(cards),
		"url":   url,
	})

	added := 0
	for _, card := range cards {
		select {
		case <-ctx.Done():
			s.finishRun(ctx.Err())
			return s.Status(), ctx.Err()
		default:
		}

		s.updateStatus(func(st *RunStatus) { st.CurrentSymbol = card.Symbol })

		wasAdded, err := s.scrapeCard(ctx, card)
		s.updateStatus(func(st *RunStatus) {
			st.Completed++
			switch {
			case err != nil:
				st.Failed++
				st.LastError = err.Error()
			case wasAdded:
				st.Added++
			default:
				st.Skipped++
			}
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("company", card.CompanyName).Msg("Result card scrape failed")
		}
		if wasAdded {
			added++
		}

		status := s.Status()
		eventType := interfaces.EventCompanySkipped
		message := fmt.Sprintf("Skipped %s (%d/%d)", card.CompanyName, status.Completed, status.Total)
		if wasAdded {
			eventType = interfaces.EventCompanyScraped
			message = fmt.Sprintf("Scraped %s (%d/%d)", card.CompanyName, status.Completed, status.Total)
		}
		s.publish(eventType, message, map[string]interface{}{
			"symbol":    card.Symbol,
			"company":   card.CompanyName,
			"completed": status.Completed,
			"total":     status.Total,
			"added":     status.Added,
			"skipped":   status.Skipped,
		})
	}

	s.finishRun(nil)
	if added > 0 && s.onIngest != nil {
		s.onIngest()
	}

	final := s.Status()
	s.publish(interfaces.EventScrapeCompleted, fmt.Sprintf("Scrape completed: %d added, %d skipped, %d failed", final.Added, final.Skipped, final.Failed), map[string]interface{}{
		"added":   final.Added,
		"skipped": final.Skipped,
		"failed":  final.Failed,
	})
	return final, nil
}

// scrapeCard processes one listing result card. The card's quarter gates the
// detail page: an already stored (symbol, quarter) skips without a page load.
func (s *Service) scrapeCard(ctx context.Context, card ResultCard) (bool, error) {
	symbol := strings.ToUpper(strings.TrimSpace(card.Symbol))
	if symbol == "" {
		symbol = strings.ToUpper(strings.TrimSpace(card.CompanyName))
	}
	if symbol == "" {
		return false, fmt.Errorf("result card has no symbol or company name")
	}
	if card.DetailURL == "" {
		return false, fmt.Errorf("result card for %s has no detail link", symbol)
	}

	// Dedup gate. Empty quarter cannot be checked; a storage error fails
	// open so a flaky read cannot block ingest.
	if card.Quarter != "" {
		exists, err := s.stockStorage.HasQuarter(symbol, card.Quarter)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Dedup check failed, continuing")
		} else if exists {
			s.logger.Debug().
				Str("symbol", symbol).
				Str("quarter", card.Quarter).
				Msg("Quarter already stored, skipping card")
			return false, nil
		}
	}

	html, err := s.fetchPage(ctx, card.DetailURL)
	if err != nil {
		return false, err
	}

	companyName, snapshot, err := ExtractSnapshot(html)
	if err != nil {
		return false, fmt.Errorf("extraction failed: %w", err)
	}
	if companyName == "" {
		companyName = card.CompanyName
	}
	if snapshot.Quarter == "" {
		snapshot.Quarter = card.Quarter
	}
	if snapshot.Quarter == "" {
		return false, fmt.Errorf("no quarter found for %s", symbol)
	}

	return s.stockStorage.UpsertSnapshot(symbol, companyName, snapshot)
}

// resolveSymbols returns the explicit list, or loads the configured CSV.
func (s *Service) resolveSymbols(symbols []string) ([]string, error) {
	cleaned := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if trimmed := strings.TrimSpace(symbol); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) > 0 {
		return cleaned, nil
	}
	if s.config.SymbolsFile == "" {
		return nil, nil
	}
	return loadSymbolsFile(s.config.SymbolsFile)
}

// loadSymbolsFile reads a CSV with a "symbol" column.
func loadSymbolsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbols file: %w", err)
	}
	defer f.Close()

	var rows []symbolRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse symbols file: %w", err)
	}

	symbols := make([]string, 0, len(rows))
	for _, row := range rows {
		if trimmed := strings.TrimSpace(row.Symbol); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	return symbols, nil
}

func (s *Service) setStatus(status RunStatus) {
	s.statusMu.Lock()
	s.status = status
	s.statusMu.Unlock()
}

func (s *Service) updateStatus(fn func(*RunStatus)) {
	s.statusMu.Lock()
	fn(&s.status)
	s.statusMu.Unlock()
}

func (s *Service) finishRun(err error) {
	now := time.Now()
	s.updateStatus(func(st *RunStatus) {
		st.Running = false
		st.CurrentSymbol = ""
		st.CompletedAt = &now
		if err != nil {
			st.LastError = err.Error()
		}
	})
	if err != nil {
		s.publish(interfaces.EventScrapeFailed, "Scrape run aborted: "+err.Error(), nil)
	}
}

func (s *Service) publish(eventType, message string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(interfaces.Event{
		Type:    eventType,
		Message: message,
		Data:    data,
	})
}

// Close releases the browser session.
func (s *Service) Close() {
	s.browser.Close()
}
