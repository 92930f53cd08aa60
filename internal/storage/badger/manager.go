package badger

import (
	"fmt"
	"io"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	stock    interfaces.StockStorage
	holding  interfaces.HoldingStorage
	analysis interfaces.AnalysisStorage
	kv       interfaces.KeyValueStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		stock:    NewStockStorage(db, logger),
		holding:  NewHoldingStorage(db, logger),
		analysis: NewAnalysisStorage(db, logger),
		kv:       NewKVStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// StockStorage returns the financial record storage interface
func (m *Manager) StockStorage() interfaces.StockStorage {
	return m.stock
}

// HoldingStorage returns the portfolio holding storage interface
func (m *Manager) HoldingStorage() interfaces.HoldingStorage {
	return m.holding
}

// AnalysisStorage returns the analysis storage interface
func (m *Manager) AnalysisStorage() interfaces.AnalysisStorage {
	return m.analysis
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Backup streams a full backup of the underlying Badger database to w.
func (m *Manager) Backup(w io.Writer) error {
	if m.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, err := m.db.Store().Badger().Backup(w, 0); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	return nil
}

// Restore loads a backup stream produced by Backup into the database.
func (m *Manager) Restore(r io.Reader) error {
	if m.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if err := m.db.Store().Badger().Load(r, 16); err != nil {
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
