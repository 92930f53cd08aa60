package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
)

// mockLLM implements interfaces.LLMService
type mockLLM struct {
	response  string
	err       error
	available bool
	prompts   []string
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}
func (m *mockLLM) Mode() interfaces.LLMMode { return interfaces.LLMModeClaude }
func (m *mockLLM) IsAvailable() bool        { return m.available }

// mockAnalysisStorage implements interfaces.AnalysisStorage
type mockAnalysisStorage struct {
	saved   []*models.AnalysisRecord
	saveErr error
	records map[string]*models.AnalysisRecord
}

func (m *mockAnalysisStorage) SaveAnalysis(a *models.AnalysisRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, a)
	return nil
}

func (m *mockAnalysisStorage) GetAnalysis(id string) (*models.AnalysisRecord, error) {
	if r, ok := m.records[id]; ok {
		return r, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockAnalysisStorage) ListBySymbol(symbol string) ([]*models.AnalysisRecord, error) {
	var result []*models.AnalysisRecord
	for _, r := range m.records {
		if r.Symbol == symbol {
			result = append(result, r)
		}
	}
	return result, nil
}

// stockStorageStub implements interfaces.StockStorage returning one record
type stockStorageStub struct {
	record *models.StockRecord
}

func (s *stockStorageStub) UpsertSnapshot(symbol, companyName string, snapshot models.FinancialSnapshot) (bool, error) {
	return false, nil
}
func (s *stockStorageStub) HasQuarter(symbol, quarter string) (bool, error) { return false, nil }
func (s *stockStorageStub) FindBySymbol(symbol string) (*models.StockRecord, error) {
	if s.record == nil {
		return nil, interfaces.ErrNotFound
	}
	return s.record, nil
}
func (s *stockStorageStub) ListRecords(quarter string) ([]*models.StockRecord, error) { return nil, nil }
func (s *stockStorageStub) DistinctQuarters() ([]string, error)                       { return nil, nil }
func (s *stockStorageStub) RemoveQuarter(quarter string) (int, error)                 { return 0, nil }
func (s *stockStorageStub) CountRecords() (int, error)                                { return 0, nil }
func (s *stockStorageStub) ClearAll() (int, error)                                    { return 0, nil }

func testRecord() *models.StockRecord {
	return &models.StockRecord{
		Symbol:      "ACME",
		CompanyName: "Acme Industries Ltd",
		Snapshots: []models.FinancialSnapshot{
			{Quarter: "Q2 FY24-25", Revenue: "980 Cr", ProfitGrowth: "4%"},
			{Quarter: "Q3 FY24-25", Revenue: "1,050 Cr", ProfitGrowth: "27.3%"},
		},
	}
}

func TestAnalyze_ParsesSentimentLine(t *testing.T) {
	llm := &mockLLM{available: true, response: "Solid quarter with broad growth.\nSENTIMENT: 0.8"}
	store := &mockAnalysisStorage{}
	svc := NewService(&stockStorageStub{record: testRecord()}, store, llm, nil, common.GetLogger())

	analysis, err := svc.Analyze(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, "ACME", analysis.Symbol)
	assert.InDelta(t, 0.8, analysis.Sentiment.Score, 0.001)
	assert.Equal(t, models.RecommendationBuy, analysis.Recommendation)
	assert.Equal(t, "positive", analysis.Sentiment.Label)
	assert.True(t, strings.HasPrefix(analysis.ID, "analysis_"))
	require.Len(t, store.saved, 1)

	// Prompt carries the most recent quarter first
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "Q3 FY24-25")
	assert.Contains(t, llm.prompts[0], "Acme Industries Ltd")
	assert.Equal(t, []string{"Q3 FY24-25", "Q2 FY24-25"}, analysis.Quarters)
}

func TestAnalyze_HeuristicFallback(t *testing.T) {
	llm := &mockLLM{available: true, response: "Weak results with declining margins and rising risk."}
	store := &mockAnalysisStorage{}
	svc := NewService(&stockStorageStub{record: testRecord()}, store, llm, nil, common.GetLogger())

	analysis, err := svc.Analyze(context.Background(), "ACME")
	require.NoError(t, err)

	assert.Equal(t, models.RecommendationSell, analysis.Recommendation)
	assert.Equal(t, "negative", analysis.Sentiment.Label)
}

func TestAnalyze_ProviderFailureWritesNothing(t *testing.T) {
	llm := &mockLLM{available: true, err: errors.New("api down")}
	store := &mockAnalysisStorage{}
	svc := NewService(&stockStorageStub{record: testRecord()}, store, llm, nil, common.GetLogger())

	_, err := svc.Analyze(context.Background(), "ACME")
	require.Error(t, err)
	assert.Empty(t, store.saved)
}

func TestAnalyze_UnknownSymbol(t *testing.T) {
	svc := NewService(&stockStorageStub{}, &mockAnalysisStorage{}, &mockLLM{available: true}, nil, common.GetLogger())
	_, err := svc.Analyze(context.Background(), "NOPE")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestAnalyze_ProviderUnavailable(t *testing.T) {
	svc := NewService(&stockStorageStub{record: testRecord()}, &mockAnalysisStorage{}, &mockLLM{available: false}, nil, common.GetLogger())
	_, err := svc.Analyze(context.Background(), "ACME")
	assert.Error(t, err)
}

func TestHistory_Labels(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	store := &mockAnalysisStorage{records: map[string]*models.AnalysisRecord{
		"analysis_1": {ID: "analysis_1", Symbol: "ACME", CreatedAt: now.Add(-2 * time.Hour), Recommendation: "Buy"},
		"analysis_2": {ID: "analysis_2", Symbol: "ACME", CreatedAt: now.AddDate(0, 0, -1), Recommendation: "Hold"},
		"analysis_3": {ID: "analysis_3", Symbol: "ACME", CreatedAt: now.AddDate(0, 0, -20), Recommendation: "Sell"},
	}}
	svc := NewService(&stockStorageStub{}, store, &mockLLM{}, nil, common.GetLogger())
	svc.now = func() time.Time { return now }

	items, err := svc.History("ACME")
	require.NoError(t, err)
	require.Len(t, items, 3)

	labels := map[string]string{}
	timestamps := map[string]time.Time{}
	for _, item := range items {
		labels[item.ID] = item.Label
		timestamps[item.ID] = item.Timestamp
	}
	assert.Equal(t, "Today 12:30", labels["analysis_1"])
	assert.Equal(t, "Yesterday 14:30", labels["analysis_2"])
	assert.Equal(t, "18 February 2026", labels["analysis_3"])

	// Each item carries the raw record timestamp alongside its label
	assert.Equal(t, now.Add(-2*time.Hour), timestamps["analysis_1"])
	assert.Equal(t, now.AddDate(0, 0, -1), timestamps["analysis_2"])
	assert.Equal(t, now.AddDate(0, 0, -20), timestamps["analysis_3"])
}

func TestParseSentimentScore(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
		ok       bool
	}{
		{"plain", "text\nSENTIMENT: 0.7", 0.7, true},
		{"lowercase", "sentiment: 0.25", 0.25, true},
		{"clamped", "SENTIMENT: 1.8", 1.0, true},
		{"missing", "no score here", 0, false},
		{"last wins", "SENTIMENT: 0.2\nmore\nSENTIMENT: 0.9", 0.9, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSentimentScore(tt.response)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}
