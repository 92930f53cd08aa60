package interfaces

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ternarybob/quaestus/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrKeyNotFound is returned when a settings key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// StockStorage defines operations on the financial record collection.
// Records are keyed by uppercase symbol and hold an ordered list of
// per-quarter snapshots, at most one snapshot per quarter.
type StockStorage interface {
	// UpsertSnapshot creates the record for symbol if it does not exist and
	// appends the snapshot unless a snapshot for the same quarter is already
	// present. Returns true when the snapshot was added, false when it was
	// skipped as a duplicate.
	UpsertSnapshot(symbol, companyName string, snapshot models.FinancialSnapshot) (bool, error)

	// HasQuarter reports whether a snapshot for (symbol, quarter) exists.
	// Quarter matching ignores case and surrounding whitespace.
	HasQuarter(symbol, quarter string) (bool, error)

	// FindBySymbol returns the record for symbol or ErrNotFound.
	FindBySymbol(symbol string) (*models.StockRecord, error)

	// ListRecords returns all records. When quarter is non-empty only records
	// containing a snapshot for that quarter are returned.
	ListRecords(quarter string) ([]*models.StockRecord, error)

	// DistinctQuarters returns every quarter present in the collection,
	// most recent fiscal period first.
	DistinctQuarters() ([]string, error)

	// RemoveQuarter strips snapshots matching quarter from every record and
	// returns the number of records whose snapshot list changed. Records left
	// with zero snapshots are retained.
	RemoveQuarter(quarter string) (int, error)

	CountRecords() (int, error)

	// ClearAll removes every financial record and returns the number deleted.
	ClearAll() (int, error)
}

// HoldingStorage defines CRUD operations on portfolio holdings.
type HoldingStorage interface {
	ListHoldings() ([]*models.Holding, error)
	GetHolding(id string) (*models.Holding, error)
	SaveHolding(h *models.Holding) error

	// ReplaceHolding overwrites every stored field of the holding with the
	// given value. Returns ErrNotFound when the id is unknown.
	ReplaceHolding(id string, h *models.Holding) error

	DeleteHolding(id string) error

	// ClearHoldings removes all holdings and returns the number deleted.
	ClearHoldings() (int, error)
}

// AnalysisStorage defines operations on the append-only analysis collection.
type AnalysisStorage interface {
	SaveAnalysis(a *models.AnalysisRecord) error
	GetAnalysis(id string) (*models.AnalysisRecord, error)

	// ListBySymbol returns analyses for symbol ordered by timestamp descending.
	ListBySymbol(symbol string) ([]*models.AnalysisRecord, error)
}

// KeyValuePair is a stored settings entry.
type KeyValuePair struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// KeyValueStorage defines operations on the settings collection.
type KeyValueStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value, description string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]KeyValuePair, error)
}

// StorageManager provides access to all storage interfaces over one store.
type StorageManager interface {
	StockStorage() StockStorage
	HoldingStorage() HoldingStorage
	AnalysisStorage() AnalysisStorage
	KeyValueStorage() KeyValueStorage

	// Backup streams a full backup of the store to w.
	Backup(w io.Writer) error

	// Restore loads a backup stream produced by Backup into the store.
	Restore(r io.Reader) error

	Close() error
}
