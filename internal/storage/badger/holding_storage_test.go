package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/quaestus/internal/common"
	"github.com/ternarybob/quaestus/internal/interfaces"
	"github.com/ternarybob/quaestus/internal/models"
)

func TestHoldingCRUD(t *testing.T) {
	storage := NewHoldingStorage(openTestDB(t), common.GetLogger())

	h := &models.Holding{
		ID:           "hold_1",
		Symbol:       "INFY",
		CompanyName:  "Infosys Ltd",
		Quantity:     10,
		AveragePrice: 1500,
		Notes:        "long term",
	}
	require.NoError(t, storage.SaveHolding(h))
	assert.False(t, h.CreatedAt.IsZero())

	got, err := storage.GetHolding("hold_1")
	require.NoError(t, err)
	assert.Equal(t, "INFY", got.Symbol)
	assert.Equal(t, 10.0, got.Quantity)

	require.NoError(t, storage.DeleteHolding("hold_1"))
	_, err = storage.GetHolding("hold_1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestReplaceHolding_FullReplacement(t *testing.T) {
	storage := NewHoldingStorage(openTestDB(t), common.GetLogger())

	require.NoError(t, storage.SaveHolding(&models.Holding{
		ID:           "hold_1",
		Symbol:       "INFY",
		Quantity:     10,
		AveragePrice: 1500,
		PurchaseDate: "2025-01-15",
		Notes:        "long term",
	}))

	original, err := storage.GetHolding("hold_1")
	require.NoError(t, err)

	require.NoError(t, storage.ReplaceHolding("hold_1", &models.Holding{
		Symbol:       "INFY",
		Quantity:     20,
		AveragePrice: 1450,
	}))

	got, err := storage.GetHolding("hold_1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got.Quantity)
	assert.Equal(t, 1450.0, got.AveragePrice)

	// Omitted fields do not survive the replacement
	assert.Empty(t, got.PurchaseDate)
	assert.Empty(t, got.Notes)

	// Identity and creation time do
	assert.Equal(t, "hold_1", got.ID)
	assert.Equal(t, original.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestReplaceHolding_NotFound(t *testing.T) {
	storage := NewHoldingStorage(openTestDB(t), common.GetLogger())

	err := storage.ReplaceHolding("hold_missing", &models.Holding{Symbol: "INFY", Quantity: 1})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestDeleteHolding_NotFound(t *testing.T) {
	storage := NewHoldingStorage(openTestDB(t), common.GetLogger())

	err := storage.DeleteHolding("hold_missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestListHoldings_SortedBySymbol(t *testing.T) {
	storage := NewHoldingStorage(openTestDB(t), common.GetLogger())

	require.NoError(t, storage.SaveHolding(&models.Holding{ID: "hold_1", Symbol: "TCS", Quantity: 5}))
	require.NoError(t, storage.SaveHolding(&models.Holding{ID: "hold_2", Symbol: "INFY", Quantity: 5}))

	holdings, err := storage.ListHoldings()
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "INFY", holdings[0].Symbol)
	assert.Equal(t, "TCS", holdings[1].Symbol)
}

func TestClearHoldings(t *testing.T) {
	storage := NewHoldingStorage(openTestDB(t), common.GetLogger())

	require.NoError(t, storage.SaveHolding(&models.Holding{ID: "hold_1", Symbol: "TCS", Quantity: 5}))
	require.NoError(t, storage.SaveHolding(&models.Holding{ID: "hold_2", Symbol: "INFY", Quantity: 5}))

	deleted, err := storage.ClearHoldings()
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	holdings, err := storage.ListHoldings()
	require.NoError(t, err)
	assert.Empty(t, holdings)

	deleted, err = storage.ClearHoldings()
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}
