package lsm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nireo/kantadb/internal/config"
	"github.com/nireo/kantadb/kvpair"
	"github.com/nireo/kantadb/lsm"
)

func newStore(t *testing.T, cfg *config.Config) *lsm.Store {
	t.Helper()
	cfg.StorageDir = t.TempDir()
	s, err := lsm.New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// S1 — overwrite.
func TestOverwrite(t *testing.T) {
	s := newStore(t, config.DefaultConfiguration())
	s.Insert(5, 100)
	s.Insert(5, 200)

	v, ok := s.Lookup(5)
	require.True(t, ok)
	assert.EqualValues(t, 200, v)
}

// S2 — delete then re-insert.
func TestDeleteThenReinsert(t *testing.T) {
	s := newStore(t, config.DefaultConfiguration())
	s.Insert(7, 1)
	s.Delete(7)

	_, ok := s.Lookup(7)
	assert.False(t, ok)

	s.Insert(7, 2)
	v, ok := s.Lookup(7)
	require.True(t, ok)
	assert.EqualValues(t, 2, v)
}

// S3 — forced merge visibility.
func TestForcedMergeVisibility(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 2
	cfg.R = 2
	cfg.FracMerged = 1.0
	s := newStore(t, cfg)

	s.Insert(1, 1)
	s.Insert(2, 2)
	s.Insert(3, 3)
	s.Insert(4, 4)
	s.Insert(5, 5)

	v, ok := s.Lookup(3)
	require.True(t, ok)
	assert.EqualValues(t, 3, v)

	v, ok = s.Lookup(5)
	require.True(t, ok)
	assert.EqualValues(t, 5, v)
}

// S4 — cascading merge.
func TestCascadingMerge(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 1
	cfg.R = 2
	cfg.FracMerged = 1.0
	cfg.DiskRunsPerLevel = 2
	s := newStore(t, cfg)

	for k := kvpair.K(1); k <= 8; k++ {
		s.Insert(k, kvpair.V(k))
	}

	got := s.Range(1, 9)
	require.Len(t, got, 8)
	for i, p := range got {
		assert.EqualValues(t, i+1, p.Key)
		assert.EqualValues(t, i+1, p.Value)
	}
}

// S5 — tombstone collapse.
func TestTombstoneCollapseAtTerminalLevel(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 1
	cfg.R = 2
	cfg.FracMerged = 1.0
	cfg.DiskRunsPerLevel = 2
	s := newStore(t, cfg)

	s.Insert(42, 999)
	s.Delete(42)

	for k := kvpair.K(100); k < 120; k++ {
		s.Insert(k, kvpair.V(k))
	}

	_, ok := s.Lookup(42)
	assert.False(t, ok)
}

// S6 — range across tiers, newer in-memory value shadowing an older
// on-disk one.
func TestRangeAcrossTiersShadowing(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 1
	cfg.R = 2
	cfg.FracMerged = 1.0
	s := newStore(t, cfg)

	s.Insert(1, 100)
	s.Insert(2, 200) // C_0 is now full with (1,100) and (2,200)
	s.Insert(3, 300) // forces (1,100) and (2,200) to disk level 0
	s.Insert(4, 400)

	s.Insert(2, 2000) // shadows (2, 200) from memory

	got := s.Range(2, 4)
	require.Len(t, got, 2)
	assert.EqualValues(t, 2, got[0].Key)
	assert.EqualValues(t, 2000, got[0].Value)
	assert.EqualValues(t, 3, got[1].Key)
	assert.EqualValues(t, 300, got[1].Value)
}

func TestLookupMissingKeyNotFound(t *testing.T) {
	s := newStore(t, config.DefaultConfiguration())
	s.Insert(1, 1)
	_, ok := s.Lookup(999)
	assert.False(t, ok)
}

func TestSizeCountsAcrossTiers(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 2
	cfg.R = 2
	cfg.FracMerged = 1.0
	s := newStore(t, cfg)

	for k := kvpair.K(0); k < 10; k++ {
		s.Insert(k, kvpair.V(k))
	}
	assert.GreaterOrEqual(t, s.Size(), 10)
}

// TestFullCompaction forces enough runs down to level 0 that it fills
// on its own, then compacts every run it holds into level 1 and checks
// that level 0 ends up empty and level 1 holds exactly one run while
// every key stays reachable.
func TestFullCompaction(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 50
	cfg.R = 2
	cfg.FracMerged = 1.0
	cfg.DiskRunsPerLevel = 100 // keep level 0 from cascading on its own
	s := newStore(t, cfg)

	for k := kvpair.K(0); k < 400; k++ {
		s.Insert(k, kvpair.V(k))
	}
	s.Close()

	before := s.LevelRunCount(0)
	require.Greater(t, before, 1, "test needs more than one run at level 0 to exercise compaction")

	require.NoError(t, s.CompactLevel(0, before))

	assert.Equal(t, 0, s.LevelRunCount(0))
	assert.Equal(t, 1, s.LevelRunCount(1))

	for k := kvpair.K(0); k < 400; k++ {
		v, ok := s.Lookup(k)
		require.True(t, ok, "key %d should still be reachable after compaction", k)
		assert.EqualValues(t, k, v)
	}
}

// TestPartialCompaction checks that compacting fewer runs than a level
// holds merges only that many into the next level down, leaving the
// rest in place.
func TestPartialCompaction(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 50
	cfg.R = 2
	cfg.FracMerged = 1.0
	cfg.DiskRunsPerLevel = 100
	s := newStore(t, cfg)

	for k := kvpair.K(0); k < 600; k++ {
		s.Insert(k, kvpair.V(k))
	}
	s.Close()

	before := s.LevelRunCount(0)
	require.Greater(t, before, 2, "test needs more than two runs at level 0 to exercise a partial compaction")

	require.NoError(t, s.CompactLevel(0, 2))

	assert.Equal(t, before-2, s.LevelRunCount(0))
	assert.Equal(t, 1, s.LevelRunCount(1))

	for k := kvpair.K(0); k < 600; k++ {
		v, ok := s.Lookup(k)
		require.True(t, ok, "key %d should still be reachable after partial compaction", k)
		assert.EqualValues(t, k, v)
	}
}

// TestCompactLevelNoSuchLevel checks that compacting a level that does
// not exist yet reports an error instead of silently no-opping.
func TestCompactLevelNoSuchLevel(t *testing.T) {
	s := newStore(t, config.DefaultConfiguration())
	assert.Error(t, s.CompactLevel(5, 1))
}
