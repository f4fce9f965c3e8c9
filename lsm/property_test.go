package lsm_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/nireo/kantadb/internal/config"
	"github.com/nireo/kantadb/kvpair"
	"github.com/nireo/kantadb/lsm"
)

// TestReadYourWrites checks that for any sequence of inserts
// terminating with insert(k, v), lookup(k) returns (v, true) —
// exercised across enough keys to force several merges.
func TestReadYourWrites(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 30
	properties := gopter.NewProperties(params)

	properties.Property("the last insert for a key is always visible", prop.ForAll(
		func(keys []int64) bool {
			cfg := config.DefaultConfiguration()
			cfg.E = 4
			cfg.R = 3
			cfg.FracMerged = 0.5
			cfg.StorageDir = t.TempDir()
			s, err := lsm.New(cfg)
			if err != nil {
				return false
			}
			defer s.Close()

			last := map[int64]int64{}
			for i, k := range keys {
				v := int64(i)
				s.Insert(k, v)
				last[k] = v
			}

			for k, want := range last {
				got, ok := s.Lookup(k)
				if !ok || got != want {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(60, gen.Int64Range(-200, 200)),
	))

	properties.TestingRun(t)
}

// TestDeleteSemantics checks that after delete(k) with no later
// insert(k, _), lookup(k) is a miss and k is absent from range.
func TestDeleteSemantics(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 30
	properties := gopter.NewProperties(params)

	properties.Property("a deleted key with no later insert stays absent", prop.ForAll(
		func(keys []int64) bool {
			cfg := config.DefaultConfiguration()
			cfg.E = 3
			cfg.R = 3
			cfg.FracMerged = 1.0
			cfg.StorageDir = t.TempDir()
			s, err := lsm.New(cfg)
			if err != nil {
				return false
			}
			defer s.Close()

			for _, k := range keys {
				s.Insert(k, kvpair.V(k))
			}
			for _, k := range keys {
				s.Delete(k)
			}

			for _, k := range keys {
				if _, ok := s.Lookup(k); ok {
					return false
				}
			}

			for _, p := range s.Range(-1000, 1000) {
				for _, k := range keys {
					if p.Key == k {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(20, gen.Int64Range(-50, 50)),
	))

	properties.TestingRun(t)
}

// TestRangeCompleteness checks that range(lo, hi) returns exactly the
// live, non-tombstone keys in [lo, hi) with no duplicates.
func TestRangeCompleteness(t *testing.T) {
	cfg := config.DefaultConfiguration()
	cfg.E = 4
	cfg.R = 3
	cfg.FracMerged = 0.5
	cfg.StorageDir = t.TempDir()
	s, err := lsm.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	want := map[int64]int64{}
	for k := int64(0); k < 100; k++ {
		s.Insert(k, k*10)
		want[k] = k * 10
	}
	for k := int64(0); k < 100; k += 3 {
		s.Delete(k)
		delete(want, k)
	}

	got := s.Range(0, 100)
	seen := map[int64]bool{}
	for _, p := range got {
		if seen[int64(p.Key)] {
			t.Fatalf("duplicate key %d in range result", p.Key)
		}
		seen[int64(p.Key)] = true
		wantV, ok := want[int64(p.Key)]
		if !ok {
			t.Fatalf("range returned deleted or unknown key %d", p.Key)
		}
		if int64(p.Value) != wantV {
			t.Fatalf("key %d: got %d want %d", p.Key, p.Value, wantV)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("range returned %d pairs, want %d", len(got), len(want))
	}
}
