package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jyothsnakarra/cricket-productivity-dashboard/internal/match"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleInfo(id string) match.Info {
	return match.Info{
		MatchID:      id,
		Teams:        []string{"India", "Australia"},
		Venue:        "Wankhede Stadium",
		Date:         "2024-03-10",
		MatchType:    "ODI",
		EventName:    "World Cup",
		Significance: match.SignificanceWorldCup,
		Outcome:      map[string]any{"winner": "India"},
		FilePath:     "/data/" + id + ".json",
		DisplayName:  "India vs Australia (ODI) - 2024-03-10 🌍",
	}
}

func TestUpsertAndGet(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	want := sampleInfo("1345678")
	require.NoError(t, s.Upsert(ctx, want))

	got, err := s.Get(ctx, "1345678")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.MatchID, got.MatchID)
	assert.Equal(t, want.Teams, got.Teams)
	assert.Equal(t, want.Significance, got.Significance)
	assert.Equal(t, "India", got.Outcome["winner"])
	assert.Equal(t, want.DisplayName, got.DisplayName)
}

func TestGetUnknownReturnsNil(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertSupersedes(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	first := sampleInfo("m1")
	require.NoError(t, s.Upsert(ctx, first))

	second := first
	second.Venue = "MCG"
	second.DisplayName = "India vs Australia (ODI) - 2024-03-10 🌍 @ MCG"
	require.NoError(t, s.Upsert(ctx, second))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "MCG", got.Venue)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rediscovery must not duplicate rows")
}

func TestListOrdersByRecency(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Upsert(ctx, sampleInfo(fmt.Sprintf("m%d", i))))
	}
	// Touch m4 so it becomes the most recently updated.
	require.NoError(t, s.Upsert(ctx, sampleInfo("m4")))

	infos, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, infos, 5)
	assert.Equal(t, "m4", infos[0].MatchID)
}

func TestUpsertAll(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	infos := []match.Info{sampleInfo("a"), sampleInfo("b"), sampleInfo("c")}
	require.NoError(t, s.UpsertAll(ctx, infos))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpsertAll_MidBatchFailureLeavesCatalogUntouched(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	infos := []match.Info{sampleInfo("a"), {MatchID: "  "}, sampleInfo("c")}
	require.Error(t, s.UpsertAll(ctx, infos))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a failed batch must not partially apply")
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, sampleInfo("m1")))
	require.NoError(t, s.Delete(ctx, "m1"))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.Delete(ctx, "m1"), sql.ErrNoRows)
}

func TestUpsertRejectsMissingID(t *testing.T) {
	t.Parallel()

	s := openStore(t)
	assert.Error(t, s.Upsert(context.Background(), match.Info{}))
}

func TestReopenPreservesRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(), sampleInfo("m1")))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Wankhede Stadium", got.Venue)
}
