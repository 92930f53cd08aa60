package badger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// StockStorage implements the StockStorage interface for Badger. Writes
// rewrite a record's whole snapshot list, so they serialize on a mutex.
type StockStorage struct {
	db     *BadgerDB
	logger arbor.ILogger

	writeMu sync.Mutex
}

// NewStockStorage creates a new StockStorage instance
func NewStockStorage(db *BadgerDB, logger arbor.ILogger) interfaces.StockStorage {
	return &StockStorage{
		db:     db,
		logger: logger,
	}
}

// normalizeSymbol converts a symbol to its canonical uppercase form
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// UpsertSnapshot appends a snapshot to the record for symbol, creating the
// record on first sight. An existing snapshot for the same quarter wins and
// the incoming one is skipped.
func (s *StockStorage) UpsertSnapshot(symbol, companyName string, snapshot models.FinancialSnapshot) (bool, error) {
	key := normalizeSymbol(symbol)
	if key == "" {
		return false, fmt.Errorf("symbol is required")
	}

	// The conflict check and the write must see the same record state
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	now := time.Now()

	var record models.StockRecord
	err := s.db.Store().Get(key, &record)
	if err == badgerhold.ErrNotFound {
		record = models.StockRecord{
			Symbol:      key,
			CompanyName: companyName,
			Snapshots:   []models.FinancialSnapshot{snapshot},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.db.Store().Upsert(key, &record); err != nil {
			return false, fmt.Errorf("failed to create record for %s: %w", key, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load record for %s: %w", key, err)
	}

	if record.SnapshotForQuarter(snapshot.Quarter) != nil {
		s.logger.Debug().
			Str("symbol", key).
			Str("quarter", snapshot.Quarter).
			Msg("Snapshot already present, skipping")
		return false, nil
	}

	record.Snapshots = append(record.Snapshots, snapshot)
	if companyName != "" {
		record.CompanyName = companyName
	}
	record.UpdatedAt = now

	if err := s.db.Store().Upsert(key, &record); err != nil {
		return false, fmt.Errorf("failed to update record for %s: %w", key, err)
	}
	return true, nil
}

// HasQuarter reports whether a snapshot for (symbol, quarter) exists
func (s *StockStorage) HasQuarter(symbol, quarter string) (bool, error) {
	var record models.StockRecord
	err := s.db.Store().Get(normalizeSymbol(symbol), &record)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check quarter: %w", err)
	}
	return record.SnapshotForQuarter(quarter) != nil, nil
}

// FindBySymbol returns the record for symbol or interfaces.ErrNotFound
func (s *StockStorage) FindBySymbol(symbol string) (*models.StockRecord, error) {
	var record models.StockRecord
	err := s.db.Store().Get(normalizeSymbol(symbol), &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &record, nil
}

// ListRecords returns all records, optionally filtered to those containing
// a snapshot for the given quarter
func (s *StockStorage) ListRecords(quarter string) ([]*models.StockRecord, error) {
	var records []models.StockRecord
	err := s.db.Store().Find(&records, badgerhold.Where("Symbol").Ne("").SortBy("Symbol"))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	result := make([]*models.StockRecord, 0, len(records))
	for i := range records {
		if quarter != "" && records[i].SnapshotForQuarter(quarter) == nil {
			continue
		}
		result = append(result, &records[i])
	}
	return result, nil
}

// DistinctQuarters returns every quarter present in the collection, most
// recent fiscal period first
func (s *StockStorage) DistinctQuarters() ([]string, error) {
	var records []models.StockRecord
	err := s.db.Store().Find(&records, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}

	seen := make(map[string]string)
	for i := range records {
		for _, snap := range records[i].Snapshots {
			normalized := strings.ToUpper(strings.TrimSpace(snap.Quarter))
			if normalized == "" {
				continue
			}
			if _, ok := seen[normalized]; !ok {
				seen[normalized] = strings.TrimSpace(snap.Quarter)
			}
		}
	}

	quarters := make([]string, 0, len(seen))
	for _, label := range seen {
		quarters = append(quarters, label)
	}
	sort.Slice(quarters, func(i, j int) bool {
		return models.CompareQuarters(quarters[i], quarters[j]) > 0
	})
	return quarters, nil
}

// RemoveQuarter strips snapshots matching quarter from every record. Records
// left with no snapshots are retained.
func (s *StockStorage) RemoveQuarter(quarter string) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var records []models.StockRecord
	err := s.db.Store().Find(&records, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to scan records: %w", err)
	}

	updated := 0
	for i := range records {
		record := &records[i]
		kept := record.Snapshots[:0]
		removed := false
		for _, snap := range record.Snapshots {
			if models.QuartersEqual(snap.Quarter, quarter) {
				removed = true
				continue
			}
			kept = append(kept, snap)
		}
		if !removed {
			continue
		}
		record.Snapshots = kept
		record.UpdatedAt = time.Now()
		if err := s.db.Store().Upsert(record.Symbol, record); err != nil {
			return updated, fmt.Errorf("failed to update record %s: %w", record.Symbol, err)
		}
		updated++
	}

	s.logger.Info().Str("quarter", quarter).Int("records_updated", updated).Msg("Removed quarter from records")
	return updated, nil
}

// CountRecords returns the number of records in the collection
func (s *StockStorage) CountRecords() (int, error) {
	count, err := s.db.Store().Count(&models.StockRecord{}, badgerhold.Where("Symbol").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(count), nil
}

// ClearAll removes every financial record
func (s *StockStorage) ClearAll() (int, error) {
	count, err := s.CountRecords()
	if err != nil {
		return 0, err
	}
	if err := s.db.Store().DeleteMatching(&models.StockRecord{}, badgerhold.Where("Symbol").Ne("")); err != nil {
		return 0, fmt.Errorf("failed to clear records: %w", err)
	}
	s.logger.Info().Int("count", count).Msg("Cleared all financial records")
	return count, nil
}
