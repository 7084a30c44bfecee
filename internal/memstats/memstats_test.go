package memstats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStats_ReusesRecentSample(t *testing.T) {
	t.Parallel()

	s := NewService(nil, 512<<20)
	first := s.Stats()
	second := s.Stats()
	assert.Equal(t, first.TimestampMs, second.TimestampMs, "within TTL the sample is reused")
}

func TestStats_ExpiredSampleIsRecollected(t *testing.T) {
	t.Parallel()

	s := NewService(nil, 512<<20)
	first := s.Stats()

	s.mu.Lock()
	s.snap.collectedAt = time.Now().Add(-2 * snapshotTTL)
	s.mu.Unlock()

	second := s.Stats()
	assert.GreaterOrEqual(t, second.TimestampMs, first.TimestampMs)
}

func TestHeadroom_FailsOpen(t *testing.T) {
	t.Parallel()

	var s *Service
	assert.True(t, s.Headroom(), "nil service never blocks")

	// Unlimited budget always has headroom regardless of RSS.
	assert.True(t, NewService(nil, 0).Headroom())
}

func TestHeadroom_HugeBudget(t *testing.T) {
	t.Parallel()

	s := NewService(nil, 1<<62)
	assert.True(t, s.Headroom())
}

func TestStats_BudgetCarried(t *testing.T) {
	t.Parallel()

	s := NewService(nil, 256<<20)
	st := s.Stats()
	assert.Equal(t, uint64(256<<20), st.BudgetBytes)
	if st.RSSBytes > 0 {
		assert.Greater(t, st.UsedPercent, 0.0)
	}
}
