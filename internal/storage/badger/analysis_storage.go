package badger

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// AnalysisStorage implements the AnalysisStorage interface for Badger
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

// SaveAnalysis stores an analysis record
func (s *AnalysisStorage) SaveAnalysis(a *models.AnalysisRecord) error {
	if a.ID == "" {
		return fmt.Errorf("analysis id is required")
	}
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(a.ID, a); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// GetAnalysis returns the analysis with the given id or interfaces.ErrNotFound
func (s *AnalysisStorage) GetAnalysis(id string) (*models.AnalysisRecord, error) {
	var record models.AnalysisRecord
	err := s.db.Store().Get(id, &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &record, nil
}

// ListBySymbol returns analyses for symbol ordered by timestamp descending
func (s *AnalysisStorage) ListBySymbol(symbol string) ([]*models.AnalysisRecord, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	var records []models.AnalysisRecord
	err := s.db.Store().Find(&records, badgerhold.Where("Symbol").Eq(normalized).SortBy("CreatedAt").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	result := make([]*models.AnalysisRecord, 0, len(records))
	for i := range records {
		result = append(result, &records[i])
	}
	return result, nil
}
