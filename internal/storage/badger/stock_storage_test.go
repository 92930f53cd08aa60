package badger

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
)

func openTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertSnapshot_FirstWriteWins(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	added, err := storage.UpsertSnapshot("infy", "Infosys Ltd", models.FinancialSnapshot{
		Quarter: "Q2 FY24-25",
		Revenue: "100",
	})
	require.NoError(t, err)
	assert.True(t, added)

	// A second snapshot for the same quarter is skipped, keeping the original
	added, err = storage.UpsertSnapshot("INFY", "Infosys Ltd", models.FinancialSnapshot{
		Quarter: "q2 fy24-25",
		Revenue: "999",
	})
	require.NoError(t, err)
	assert.False(t, added)

	record, err := storage.FindBySymbol("infy")
	require.NoError(t, err)
	require.Len(t, record.Snapshots, 1)
	assert.Equal(t, "100", record.Snapshots[0].Revenue)
	assert.Equal(t, "INFY", record.Symbol)
}

func TestUpsertSnapshot_AppendsNewQuarter(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.UpsertSnapshot("TCS", "Tata Consultancy", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)
	added, err := storage.UpsertSnapshot("TCS", "Tata Consultancy", models.FinancialSnapshot{Quarter: "Q2 FY24-25"})
	require.NoError(t, err)
	assert.True(t, added)

	record, err := storage.FindBySymbol("TCS")
	require.NoError(t, err)
	assert.Len(t, record.Snapshots, 2)
}

func TestUpsertSnapshot_RequiresSymbol(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.UpsertSnapshot("  ", "", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	assert.Error(t, err)
}

func TestHasQuarter(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.UpsertSnapshot("HDFC", "HDFC Bank", models.FinancialSnapshot{Quarter: "Q3 FY24-25"})
	require.NoError(t, err)

	has, err := storage.HasQuarter("hdfc", "q3 fy24-25")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = storage.HasQuarter("HDFC", "Q4 FY24-25")
	require.NoError(t, err)
	assert.False(t, has)

	has, err = storage.HasQuarter("UNKNOWN", "Q3 FY24-25")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestFindBySymbol_NotFound(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.FindBySymbol("MISSING")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestListRecords_QuarterFilter(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.UpsertSnapshot("AAA", "Aaa Ltd", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("BBB", "Bbb Ltd", models.FinancialSnapshot{Quarter: "Q2 FY24-25"})
	require.NoError(t, err)

	all, err := storage.ListRecords("")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := storage.ListRecords("Q2 FY24-25")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "BBB", filtered[0].Symbol)
}

func TestDistinctQuarters_SortedNewestFirst(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.UpsertSnapshot("AAA", "Aaa Ltd", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("AAA", "Aaa Ltd", models.FinancialSnapshot{Quarter: "Q3 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("BBB", "Bbb Ltd", models.FinancialSnapshot{Quarter: "Q3 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("BBB", "Bbb Ltd", models.FinancialSnapshot{Quarter: "Q4 FY23-24"})
	require.NoError(t, err)

	quarters, err := storage.DistinctQuarters()
	require.NoError(t, err)
	assert.Equal(t, []string{"Q3 FY24-25", "Q1 FY24-25", "Q4 FY23-24"}, quarters)
}

func TestRemoveQuarter(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.UpsertSnapshot("AAA", "Aaa Ltd", models.FinancialSnapshot{Quarter: "Q2 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("BBB", "Bbb Ltd", models.FinancialSnapshot{Quarter: "Q2 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("BBB", "Bbb Ltd", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("CCC", "Ccc Ltd", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)

	updated, err := storage.RemoveQuarter("q2 fy24-25")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	// Records emptied by the removal are retained
	record, err := storage.FindBySymbol("AAA")
	require.NoError(t, err)
	assert.Empty(t, record.Snapshots)

	record, err = storage.FindBySymbol("BBB")
	require.NoError(t, err)
	require.Len(t, record.Snapshots, 1)
	assert.Equal(t, "Q1 FY24-25", record.Snapshots[0].Quarter)

	// Removing again touches nothing
	updated, err = storage.RemoveQuarter("Q2 FY24-25")
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
}

func TestClearAll(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	_, err := storage.UpsertSnapshot("AAA", "Aaa Ltd", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)
	_, err = storage.UpsertSnapshot("BBB", "Bbb Ltd", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)

	cleared, err := storage.ClearAll()
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	count, err := storage.CountRecords()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpsertSnapshot_ConcurrentSameQuarter(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	const writers = 8
	var added int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := storage.UpsertSnapshot("INFY", "Infosys Ltd", models.FinancialSnapshot{
				Quarter: "Q2 FY24-25",
				Revenue: fmt.Sprintf("%d", n),
			})
			require.NoError(t, err)
			if ok {
				atomic.AddInt32(&added, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), added)

	record, err := storage.FindBySymbol("INFY")
	require.NoError(t, err)
	assert.Len(t, record.Snapshots, 1)
}

func TestUpsertSnapshot_SetsTimestamps(t *testing.T) {
	storage := NewStockStorage(openTestDB(t), common.GetLogger())

	before := time.Now().Add(-time.Second)
	_, err := storage.UpsertSnapshot("AAA", "Aaa Ltd", models.FinancialSnapshot{Quarter: "Q1 FY24-25"})
	require.NoError(t, err)

	record, err := storage.FindBySymbol("AAA")
	require.NoError(t, err)
	assert.True(t, record.CreatedAt.After(before))
	assert.False(t, record.UpdatedAt.Before(record.CreatedAt))
}
