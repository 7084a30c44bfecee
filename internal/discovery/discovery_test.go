package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMatchFile(t *testing.T, dir, name, eventName string) {
	t.Helper()
	doc := map[string]any{
		"info": map[string]any{
			"teams":      []string{"India", "Australia"},
			"venue":      "Eden Gardens",
			"dates":      []string{"2024-03-10"},
			"match_type": "ODI",
			"event":      map[string]any{"name": eventName},
		},
		"innings": []any{},
	}
	b, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), b, 0o600))
}

func TestDiscover_SkipsCorruptFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeMatchFile(t, dir, "1345678.json", "World Cup")
	writeMatchFile(t, dir, "1345679.json", "Asia Cup")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o600))

	s := NewScanner(Options{})
	got, err := s.Discover(context.Background(), dir, 0, false)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Contains(t, got, "1345678")
	assert.Contains(t, got, "1345679")
	assert.NotContains(t, got, "broken")
	assert.Equal(t, "World Cup", got["1345678"].EventName)
}

func TestDiscover_IgnoresNonJSONAndDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeMatchFile(t, dir, "m1.json", "Test Series")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	got, err := NewScanner(Options{}).Discover(context.Background(), dir, 0, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got, "m1")
}

func TestDiscover_RespectsMaxMatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < 8; i++ {
		writeMatchFile(t, dir, fmt.Sprintf("m%02d.json", i), "Regular")
	}

	got, err := NewScanner(Options{}).Discover(context.Background(), dir, 3, false)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Enumeration is sorted, so the cap keeps the lexicographically first files.
	assert.Contains(t, got, "m00")
	assert.Contains(t, got, "m01")
	assert.Contains(t, got, "m02")
}

func TestDiscover_ParallelMatchesSequential(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for i := 0; i < 24; i++ {
		writeMatchFile(t, dir, fmt.Sprintf("m%02d.json", i), "World Cup")
	}

	seq, err := NewScanner(Options{MaxWorkers: 1}).Discover(context.Background(), dir, 30, false)
	require.NoError(t, err)
	par, err := NewScanner(Options{MaxWorkers: 4}).Discover(context.Background(), dir, 30, false)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
	assert.Len(t, par, 24)
}

func TestDiscover_LazyReusesResult(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeMatchFile(t, dir, "m1.json", "Regular")

	s := NewScanner(Options{})
	first, err := s.Discover(context.Background(), dir, 0, false)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// New files appear, but the lazy call sees the memoized pass.
	writeMatchFile(t, dir, "m2.json", "Regular")
	lazy, err := s.Discover(context.Background(), dir, 0, true)
	require.NoError(t, err)
	assert.Len(t, lazy, 1)

	// A forced rescan picks them up, and refreshes the memo.
	fresh, err := s.Discover(context.Background(), dir, 0, false)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)

	s.Forget(dir)
	after, err := s.Discover(context.Background(), dir, 0, true)
	require.NoError(t, err)
	assert.Len(t, after, 2)
}

func TestDiscover_MissingDirFails(t *testing.T) {
	t.Parallel()

	_, err := NewScanner(Options{}).Discover(context.Background(), filepath.Join(t.TempDir(), "absent"), 0, false)
	assert.Error(t, err)
}

func TestDiscover_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeMatchFile(t, dir, "m1.json", "Regular")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner(Options{}).Discover(ctx, dir, 0, false)
	assert.ErrorIs(t, err, context.Canceled)
}
