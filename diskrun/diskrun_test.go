package diskrun_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nireo/kantadb/diskrun"
	"github.com/nireo/kantadb/kvpair"
)

func newRun(t *testing.T, pairs []kvpair.KVPair) *diskrun.Run {
	t.Helper()
	dir := t.TempDir()
	r, err := diskrun.Create(dir, len(pairs), 4, 0, 0, 0.02)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	r.WriteData(pairs, 0)
	r.ConstructIndex()
	return r
}

func TestLookupFindsEveryWrittenKey(t *testing.T) {
	pairs := []kvpair.KVPair{{Key: 5, Value: 50}, {Key: 1, Value: 10}, {Key: 9, Value: 90}, {Key: 3, Value: 30}}
	r := newRun(t, pairs)

	for _, p := range pairs {
		v, ok := r.Lookup(p.Key)
		require.True(t, ok)
		assert.Equal(t, p.Value, v)
	}
}

func TestLookupMissingKeyNotFound(t *testing.T) {
	r := newRun(t, []kvpair.KVPair{{Key: 2, Value: 20}, {Key: 4, Value: 40}})
	_, ok := r.Lookup(3)
	assert.False(t, ok)

	_, ok = r.Lookup(100)
	assert.False(t, ok)

	_, ok = r.Lookup(-100)
	assert.False(t, ok)
}

func TestRangeReturnsHalfOpenIndexInterval(t *testing.T) {
	var pairs []kvpair.KVPair
	for k := kvpair.K(0); k < 20; k++ {
		pairs = append(pairs, kvpair.KVPair{Key: k, Value: kvpair.V(k)})
	}
	r := newRun(t, pairs)

	i1, i2 := r.Range(5, 10)
	require.Equal(t, 5, i1)
	require.Equal(t, 11, i2)
	for i := i1; i < i2; i++ {
		p := r.At(i)
		assert.True(t, p.Key >= 5 && p.Key <= 10)
	}
}

func TestConstructIndexRecordsBounds(t *testing.T) {
	r := newRun(t, []kvpair.KVPair{{Key: 7, Value: 0}, {Key: 1, Value: 0}, {Key: 42, Value: 0}})

	min, ok := r.MinKey()
	require.True(t, ok)
	assert.EqualValues(t, 1, min)

	max, ok := r.MaxKey()
	require.True(t, ok)
	assert.EqualValues(t, 42, max)
}

func TestFilterAcceptsEveryWrittenKey(t *testing.T) {
	var pairs []kvpair.KVPair
	for k := kvpair.K(0); k < 500; k += 2 {
		pairs = append(pairs, kvpair.KVPair{Key: k, Value: kvpair.V(k)})
	}
	r := newRun(t, pairs)
	require.NotNil(t, r.Filter())

	for _, p := range pairs {
		assert.True(t, r.Filter().MayContain(p.Key))
	}
}
