package auditlog

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndList(t *testing.T) {
	t.Parallel()

	s, err := New(Options{StateDir: t.TempDir()})
	require.NoError(t, err)

	runID := uuid.NewString()
	s.Append(Entry{RunID: runID, Action: "discover", Detail: map[string]any{"files": 3}})
	s.Append(Entry{RunID: runID, Action: "process", MatchID: "1345678", Status: "failure", Error: "unreadable"})

	entries, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first.
	assert.Equal(t, "process", entries[0].Action)
	assert.Equal(t, "failure", entries[0].Status)
	assert.Equal(t, "1345678", entries[0].MatchID)
	assert.Equal(t, "discover", entries[1].Action)
	assert.Equal(t, "success", entries[1].Status, "status defaults to success")
	assert.Equal(t, runID, entries[1].RunID)
	assert.NotEmpty(t, entries[1].CreatedAt)
}

func TestRotationKeepsBackupBound(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := New(Options{StateDir: dir, MaxBytes: 256, MaxBackups: 2})
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		s.Append(Entry{RunID: "r", Action: "process", MatchID: fmt.Sprintf("match_%04d", i)})
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "audit", "runs-*.jsonl"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated, "rotation must have happened")
	assert.LessOrEqual(t, len(rotated), 2)
}

func TestListSpansRotatedFiles(t *testing.T) {
	t.Parallel()

	s, err := New(Options{StateDir: t.TempDir(), MaxBytes: 2048, MaxBackups: 3})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		s.Append(Entry{RunID: "r", Action: "process", MatchID: fmt.Sprintf("m%02d", i)})
	}

	entries, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	assert.Equal(t, "m49", entries[0].MatchID, "newest entry comes first")
}

func TestNilStoreIsInert(t *testing.T) {
	t.Parallel()

	var s *Store
	s.Append(Entry{Action: "discover"})
	entries, err := s.List(5)
	assert.NoError(t, err)
	assert.Nil(t, entries)
}

func TestNewRequiresStateDir(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	assert.Error(t, err)
}
