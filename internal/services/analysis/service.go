// Package analysis generates AI investment analyses from stored financial
// records and keeps an append-only history of results.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
)

// Prompts include at most this many recent quarters.
const maxPromptQuarters = 4

// ErrProviderUnavailable is returned when no AI provider is configured or
// the configured provider has no API key.
var ErrProviderUnavailable = errors.New("no AI provider configured")

// ErrNoFinancialData is returned when a symbol has no stored snapshots to
// analyze.
var ErrNoFinancialData = errors.New("no financial data stored")

// HistoryItem is one entry in a symbol's analysis history listing.
type HistoryItem struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Label          string    `json:"label"`
	Provider       string    `json:"provider"`
	Recommendation string    `json:"recommendation"`
	SentimentScore float64   `json:"sentiment_score"`
}

// Service generates and serves analyses.
type Service struct {
	stockStorage    interfaces.StockStorage
	analysisStorage interfaces.AnalysisStorage
	llm             interfaces.LLMService
	events          interfaces.EventService
	logger          arbor.ILogger
	now             func() time.Time
}

// NewService creates a new analysis service.
func NewService(stockStorage interfaces.StockStorage, analysisStorage interfaces.AnalysisStorage, llm interfaces.LLMService, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		stockStorage:    stockStorage,
		analysisStorage: analysisStorage,
		llm:             llm,
		events:          events,
		logger:          logger,
		now:             time.Now,
	}
}

// Analyze generates an analysis for symbol from its stored snapshots and
// persists the result. Nothing is written when the provider call fails.
func (s *Service) Analyze(ctx context.Context, symbol string) (*models.AnalysisRecord, error) {
	record, err := s.stockStorage.FindBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if len(record.Snapshots) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoFinancialData, record.Symbol)
	}
	if s.llm == nil || !s.llm.IsAvailable() {
		return nil, ErrProviderUnavailable
	}

	quarters, prompt := buildPrompt(record)

	startTime := s.now()
	response, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("analysis generation failed: %w", err)
	}

	score, fromModel := parseSentimentScore(response)
	if !fromModel {
		score = heuristicSentiment(response)
		s.logger.Debug().
			Str("symbol", record.Symbol).
			Float64("score", score).
			Msg("Sentiment line missing, using heuristic score")
	}

	analysis := &models.AnalysisRecord{
		ID:          common.NewAnalysisID(),
		Symbol:      record.Symbol,
		CompanyName: record.CompanyName,
		Provider:    string(s.llm.Mode()),
		Analysis:    strings.TrimSpace(response),
		Sentiment: models.Sentiment{
			Score: score,
			Label: models.SentimentLabel(score),
		},
		Recommendation: models.RecommendationFromScore(score),
		Quarters:       quarters,
		CreatedAt:      s.now(),
	}

	if err := s.analysisStorage.SaveAnalysis(analysis); err != nil {
		return nil, fmt.Errorf("failed to persist analysis: %w", err)
	}

	s.logger.Info().
		Str("symbol", record.Symbol).
		Str("recommendation", analysis.Recommendation).
		Float64("score", score).
		Dur("duration", s.now().Sub(startTime)).
		Msg("Analysis generated")

	if s.events != nil {
		s.events.Publish(interfaces.Event{
			Type:    interfaces.EventAnalysisCreated,
			Message: fmt.Sprintf("Analysis created for %s (%s)", record.Symbol, analysis.Recommendation),
			Data: map[string]interface{}{
				"id":             analysis.ID,
				"symbol":         analysis.Symbol,
				"recommendation": analysis.Recommendation,
			},
		})
	}

	return analysis, nil
}

// Get returns a stored analysis by id.
func (s *Service) Get(id string) (*models.AnalysisRecord, error) {
	return s.analysisStorage.GetAnalysis(id)
}

// History lists a symbol's analyses newest first with display labels.
func (s *Service) History(symbol string) ([]HistoryItem, error) {
	records, err := s.analysisStorage.ListBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	now := s.now()
	items := make([]HistoryItem, 0, len(records))
	for _, record := range records {
		items = append(items, HistoryItem{
			ID:             record.ID,
			Timestamp:      record.CreatedAt,
			Label:          record.HistoryLabel(now),
			Provider:       record.Provider,
			Recommendation: record.Recommendation,
			SentimentScore: record.Sentiment.Score,
		})
	}
	return items, nil
}

// buildPrompt renders the prompt from the record's most recent quarters.
func buildPrompt(record *models.StockRecord) ([]string, string) {
	snapshots := make([]models.FinancialSnapshot, len(record.Snapshots))
	copy(snapshots, record.Snapshots)
	sort.SliceStable(snapshots, func(i, j int) bool {
		return models.CompareQuarters(snapshots[i].Quarter, snapshots[j].Quarter) > 0
	})
	if len(snapshots) > maxPromptQuarters {
		snapshots = snapshots[:maxPromptQuarters]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an equity research analyst. Analyze the quarterly results of %s (%s) and give a concise investment view.\n\n",
		record.CompanyName, record.Symbol)

	quarters := make([]string, 0, len(snapshots))
	for _, snap := range snapshots {
		quarters = append(quarters, snap.Quarter)
		fmt.Fprintf(&b, "%s:\n", snap.Quarter)
		writeMetric(&b, "Revenue", snap.Revenue)
		writeMetric(&b, "Revenue growth", snap.RevenueGrowth)
		writeMetric(&b, "Net profit", snap.NetProfit)
		writeMetric(&b, "Profit growth", snap.ProfitGrowth)
		writeMetric(&b, "EPS", snap.EPS)
		writeMetric(&b, "Price", snap.CMP)
		writeMetric(&b, "Market cap", snap.MarketCap)
		writeMetric(&b, "Strengths", snap.Strengths)
		writeMetric(&b, "Weaknesses", snap.Weaknesses)
		b.WriteString("\n")
	}

	b.WriteString("Cover growth trend, profitability, and risks in under 300 words.\n")
	b.WriteString("End your reply with exactly one line of the form:\nSENTIMENT: <score between 0.0 and 1.0>\n")

	return quarters, b.String()
}

func writeMetric(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, value)
}

var sentimentPattern = regexp.MustCompile(`(?im)^\s*SENTIMENT:\s*([0-9]*\.?[0-9]+)\s*$`)

// parseSentimentScore extracts the SENTIMENT line from a model response.
// The second return value reports whether the line was present and valid.
func parseSentimentScore(response string) (float64, bool) {
	matches := sentimentPattern.FindAllStringSubmatch(response, -1)
	if len(matches) == 0 {
		return 0, false
	}
	// The last occurrence wins if the model repeated itself
	raw := matches[len(matches)-1][1]
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return clampScore(score), true
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

var positiveWords = []string{"strong", "growth", "positive", "improving", "healthy", "robust", "outperform", "upside", "buy"}
var negativeWords = []string{"weak", "decline", "negative", "deteriorating", "risk", "concern", "underperform", "downside", "sell", "loss"}

// heuristicSentiment estimates a score from the response wording when the
// model omits the SENTIMENT line. A response with no signal words is neutral.
func heuristicSentiment(response string) float64 {
	lower := strings.ToLower(response)
	positives := 0
	negatives := 0
	for _, word := range positiveWords {
		positives += strings.Count(lower, word)
	}
	for _, word := range negativeWords {
		negatives += strings.Count(lower, word)
	}
	if positives+negatives == 0 {
		return 0.5
	}
	return float64(positives) / float64(positives+negatives)
}
