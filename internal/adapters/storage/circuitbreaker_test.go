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

func TestCircuitBreakerStore_LoadDefaultsToClosed(t *testing.T) {
	db, err := storage.OpenCircuitBreakerStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	cb, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, cb.Triggered)
	assert.Equal(t, 0, cb.ConsecutiveFailures)
}

func TestCircuitBreakerStore_SaveAndLoadRoundTrip(t *testing.T) {
	db, err := storage.OpenCircuitBreakerStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	cooldown := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	want := domain.CircuitBreaker{
		ConsecutiveFailures: 2,
		MaxFailures:         3,
		CooldownUntil:       cooldown,
		CooldownDuration:    time.Hour,
		Triggered:           true,
		TriggeredReason:     "consecutive order failures",
	}

	require.NoError(t, db.Save(ctx, want))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.ConsecutiveFailures, got.ConsecutiveFailures)
	assert.Equal(t, want.MaxFailures, got.MaxFailures)
	assert.True(t, want.CooldownUntil.Equal(got.CooldownUntil))
	assert.Equal(t, want.CooldownDuration, got.CooldownDuration)
	assert.True(t, got.Triggered)
	assert.Equal(t, want.TriggeredReason, got.TriggeredReason)
}

func TestCircuitBreakerStore_SaveOverwritesSingleRow(t *testing.T) {
	db, err := storage.OpenCircuitBreakerStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.Save(ctx, domain.CircuitBreaker{ConsecutiveFailures: 1, MaxFailures: 3}))
	require.NoError(t, db.Save(ctx, domain.CircuitBreaker{ConsecutiveFailures: 2, MaxFailures: 3}))

	got, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ConsecutiveFailures)
}
