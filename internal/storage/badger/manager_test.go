package badger

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(common.GetLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr.(*Manager)
}

func TestManager_BackupRestoreRoundTrip(t *testing.T) {
	source := newTestManager(t)

	_, err := source.StockStorage().UpsertSnapshot("INFY", "Infosys Ltd", models.FinancialSnapshot{
		Quarter: "Q2 FY24-25",
		Revenue: "40,986",
	})
	require.NoError(t, err)
	require.NoError(t, source.HoldingStorage().SaveHolding(&models.Holding{
		ID: "hold_1", Symbol: "INFY", Quantity: 10, AveragePrice: 1500,
	}))

	var buf bytes.Buffer
	require.NoError(t, source.Backup(&buf))
	assert.NotZero(t, buf.Len())

	target := newTestManager(t)
	require.NoError(t, target.Restore(&buf))

	record, err := target.StockStorage().FindBySymbol("INFY")
	require.NoError(t, err)
	require.Len(t, record.Snapshots, 1)
	assert.Equal(t, "40,986", record.Snapshots[0].Revenue)

	holdings, err := target.HoldingStorage().ListHoldings()
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "INFY", holdings[0].Symbol)
}
