package recovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/common/logger"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/domain"
	"github.com/ThinhEm47/MixiPOS-Coffee-sub000/internal/pos/table"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "orders.json"), logger.New("test"))
}

func TestRestoreMissingFile(t *testing.T) {
	s := testStore(t)
	_, ok := s.Restore()
	assert.False(t, ok)
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	s := testStore(t)

	snap := Snapshot{
		ActiveOrders: []table.OrderEntry{
			{TableID: "t1", Items: []domain.LineItem{
				{ProductID: "p1", Name: "Latte", UnitPrice: decimal.NewFromInt(50_000), Quantity: 2, Note: "oat milk"},
			}},
		},
		SelectedTable: "t1",
	}
	require.NoError(t, s.Save(snap))

	got, ok := s.Restore()
	require.True(t, ok)
	assert.Equal(t, "t1", got.SelectedTable)
	require.Len(t, got.ActiveOrders, 1)
	require.Len(t, got.ActiveOrders[0].Items, 1)
	li := got.ActiveOrders[0].Items[0]
	assert.Equal(t, "p1", li.ProductID)
	assert.Equal(t, 2, li.Quantity)
	assert.Equal(t, "oat milk", li.Note)
	assert.True(t, li.UnitPrice.Equal(decimal.NewFromInt(50_000)))
	assert.False(t, got.SavedAt.IsZero())
}

func TestRestoreDiscardsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s := NewStore(path, logger.New("test"))
	_, ok := s.Restore()
	assert.False(t, ok, "corrupt snapshots are discarded, never fatal")
}

func TestSaveOverwritesAtomically(t *testing.T) {
	s := testStore(t)
	require.NoError(t, s.Save(Snapshot{SelectedTable: "t1"}))
	require.NoError(t, s.Save(Snapshot{SelectedTable: "t2"}))

	got, ok := s.Restore()
	require.True(t, ok)
	assert.Equal(t, "t2", got.SelectedTable)
	_, err := os.Stat(s.path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file renamed away")
}
