package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwagner-dev/wheelengine/internal/adapters/storage"
	"github.com/mwagner-dev/wheelengine/internal/domain"
)

func makeCycle(kind string, best float64) domain.CycleSummary {
	return domain.CycleSummary{
		ScannedAt:             time.Now().UTC().Truncate(time.Second),
		Kind:                  kind,
		UnderlyingsConsidered: 10,
		BlockedByStage:        map[string]int{"stage1_price_volume": 3, "stage7_chain_selection": 2},
		OrdersPlaced:          2,
		OrdersSkipped:         1,
		BestScore:             best,
	}
}

func TestCycleStore_SaveAndGetHistory(t *testing.T) {
	db, err := storage.OpenCycleStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SaveCycle(context.Background(), makeCycle("scan", 1.69)))
	require.NoError(t, db.SaveCycle(context.Background(), makeCycle("run", 1.10)))

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	history, err := db.GetHistory(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// Most recent first.
	assert.Equal(t, "run", history[0].Kind)
	assert.Equal(t, "scan", history[1].Kind)
	assert.Equal(t, 3, history[1].BlockedByStage["stage1_price_volume"])
}

func TestCycleStore_GetHistory_EmptyRange(t *testing.T) {
	db, err := storage.OpenCycleStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	history, err := db.GetHistory(context.Background(),
		time.Now().Add(-time.Hour),
		time.Now(),
	)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCycleStore_OutsideRangeExcluded(t *testing.T) {
	db, err := storage.OpenCycleStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	old := makeCycle("scan", 1.0)
	old.ScannedAt = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.SaveCycle(ctx, old))
	require.NoError(t, db.SaveCycle(ctx, makeCycle("scan", 2.0)))

	from := time.Now().UTC().Add(-time.Hour)
	to := time.Now().UTC().Add(time.Hour)
	history, err := db.GetHistory(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 2.0, history[0].BestScore, 0.01)
}

func TestCycleStore_MultipleCyclesOrderedByTime(t *testing.T) {
	db, err := storage.OpenCycleStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	for i, kind := range []string{"scan", "run", "monitor"} {
		c := makeCycle(kind, float64(i))
		c.ScannedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, db.SaveCycle(ctx, c))
	}

	from := time.Now().UTC().Add(-time.Minute)
	to := time.Now().UTC().Add(time.Minute)
	history, err := db.GetHistory(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "monitor", history[0].Kind)
}
