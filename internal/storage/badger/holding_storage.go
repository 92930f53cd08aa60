package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// HoldingStorage implements the HoldingStorage interface for Badger
type HoldingStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewHoldingStorage creates a new HoldingStorage instance
func NewHoldingStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HoldingStorage {
	return &HoldingStorage{
		db:     db,
		logger: logger,
	}
}

// ListHoldings returns all holdings ordered by symbol
func (s *HoldingStorage) ListHoldings() ([]*models.Holding, error) {
	var holdings []models.Holding
	err := s.db.Store().Find(&holdings, badgerhold.Where("ID").Ne("").SortBy("Symbol"))
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	result := make([]*models.Holding, 0, len(holdings))
	for i := range holdings {
		result = append(result, &holdings[i])
	}
	return result, nil
}

// GetHolding returns the holding with the given id or interfaces.ErrNotFound
func (s *HoldingStorage) GetHolding(id string) (*models.Holding, error) {
	var holding models.Holding
	err := s.db.Store().Get(id, &holding)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &holding, nil
}

// SaveHolding stores a new holding
func (s *HoldingStorage) SaveHolding(h *models.Holding) error {
	if h.ID == "" {
		return fmt.Errorf("holding id is required")
	}
	now := time.Now()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now

	if err := s.db.Store().Upsert(h.ID, h); err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}

// ReplaceHolding overwrites every stored field of the holding
func (s *HoldingStorage) ReplaceHolding(id string, h *models.Holding) error {
	var existing models.Holding
	err := s.db.Store().Get(id, &existing)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load holding: %w", err)
	}

	h.ID = id
	h.CreatedAt = existing.CreatedAt
	h.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(id, h); err != nil {
		return fmt.Errorf("failed to replace holding: %w", err)
	}
	return nil
}

// DeleteHolding removes the holding with the given id
func (s *HoldingStorage) DeleteHolding(id string) error {
	err := s.db.Store().Delete(id, &models.Holding{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}
	return nil
}

// ClearHoldings removes all holdings and returns the number deleted
func (s *HoldingStorage) ClearHoldings() (int, error) {
	count, err := s.db.Store().Count(&models.Holding{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count holdings: %w", err)
	}
	if err := s.db.Store().DeleteMatching(&models.Holding{}, badgerhold.Where("ID").Ne("")); err != nil {
		return 0, fmt.Errorf("failed to clear holdings: %w", err)
	}
	s.logger.Info().Int("count", int(count)).Msg("Cleared all holdings")
	return int(count), nil
}
