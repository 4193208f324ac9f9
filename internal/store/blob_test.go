package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwagner-dev/wheelengine/internal/domain"
	"github.com/mwagner-dev/wheelengine/internal/store"
)

func sampleOpportunities() []domain.Opportunity {
	return []domain.Opportunity{
		{
			Contract: domain.OptionContract{
				OCCSymbol:  "AMD250117P00145000",
				Underlying: "AMD",
				Right:      domain.RightPut,
				Strike:     decimal.NewFromFloat(145),
				Bid:        decimal.NewFromFloat(1.40),
				Ask:        decimal.NewFromFloat(1.60),
				DTE:        7,
				Delta:      -0.18,
			},
			Score: 0.42,
		},
	}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir, dir+"/index.db", 30*time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPersistAndRetrieveLatestValid(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	scanTime := time.Date(2026, 1, 30, 14, 0, 0, 0, time.UTC)

	path, err := s.Persist(ctx, scanTime, sampleOpportunities())
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	artifact, gotPath, ok, err := s.RetrieveLatestValid(ctx, scanTime.Add(5*time.Minute), 30*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, gotPath)
	require.Len(t, artifact.Opportunities, 1)
	assert.Equal(t, "AMD250117P00145000", artifact.Opportunities[0].Contract.OCCSymbol)
	assert.Equal(t, domain.ArtifactPending, artifact.Status)
}

func TestRetrieveLatestValid_ExpiredArtifactNotReturned(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	scanTime := time.Date(2026, 1, 30, 14, 0, 0, 0, time.UTC)

	_, err := s.Persist(ctx, scanTime, sampleOpportunities())
	require.NoError(t, err)

	_, _, ok, err := s.RetrieveLatestValid(ctx, scanTime.Add(time.Hour), 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRetrieveLatestValid_NoArtifactsReturnsFalse(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, _, ok, err := s.RetrieveLatestValid(ctx, time.Now(), 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkExecuted_ArtifactNoLongerRetrievable(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	scanTime := time.Date(2026, 1, 30, 14, 0, 0, 0, time.UTC)

	path, err := s.Persist(ctx, scanTime, sampleOpportunities())
	require.NoError(t, err)

	require.NoError(t, s.MarkExecuted(ctx, path))

	_, _, ok, err := s.RetrieveLatestValid(ctx, scanTime.Add(time.Minute), 30*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkExecuted_AlreadyExecutedIsNoop(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	scanTime := time.Date(2026, 1, 30, 14, 0, 0, 0, time.UTC)

	path, err := s.Persist(ctx, scanTime, sampleOpportunities())
	require.NoError(t, err)
	require.NoError(t, s.MarkExecuted(ctx, path))
	assert.NoError(t, s.MarkExecuted(ctx, path))
}

func TestRetrieveLatestValid_PicksMostRecentOfSeveral(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	older := time.Date(2026, 1, 30, 13, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 1, 30, 14, 0, 0, 0, time.UTC)

	_, err := s.Persist(ctx, older, sampleOpportunities())
	require.NoError(t, err)
	newPath, err := s.Persist(ctx, newer, sampleOpportunities())
	require.NoError(t, err)

	_, gotPath, ok, err := s.RetrieveLatestValid(ctx, newer.Add(time.Minute), 2*time.Hour)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, newPath, gotPath)
}
