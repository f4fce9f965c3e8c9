// Package lsm implements the store's coordinator: it owns the ring of
// in-memory runs (C_0), their per-run Bloom filters, and an ordered
// chain of disk levels, and drives merges from memory to disk and
// from one disk level to the next. Its shape — a struct holding the
// live write target plus a queue of not-yet-flushed structures,
// guarded by a mutex, drained by a background goroutine — is grounded
// on the teacher's root DB type (kantadb.go), generalized from
// kantadb's single in-memory table plus unbounded MEMQueue to a ring
// of in-memory runs draining into leveled disk storage.
package lsm

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/nireo/kantadb/bloom"
	"github.com/nireo/kantadb/disklevel"
	"github.com/nireo/kantadb/internal/config"
	"github.com/nireo/kantadb/internal/fsutil"
	"github.com/nireo/kantadb/internal/logging"
	"github.com/nireo/kantadb/kvpair"
	"github.com/nireo/kantadb/skiplist"
)

// Store is the LSM coordinator: C_0 (a ring of R in-memory runs) plus
// an ordered chain of disk levels.
type Store struct {
	cfg *config.Config

	mu      sync.Mutex // guards active, c0, filters, and levels
	active  int
	c0      []skiplist.Run
	filters []*bloom.Filter
	levels  []*disklevel.Level

	mergeMu sync.Mutex // serializes the merge-down cascade across background goroutines
	mergeWG sync.WaitGroup
}

// New creates a Store rooted at cfg.StorageDir, creating the
// directory if it does not exist. A new Store always starts with an
// empty C_0 and no disk levels — it never reads back an existing
// directory's run files, so any left over from a prior process are
// orphaned; New reports them rather than silently leaving them on
// disk.
func New(cfg *config.Config) (*Store, error) {
	if err := fsutil.CreateDirectory(cfg.StorageDir); err != nil {
		return nil, err
	}
	logging.SetDebuggingMode(cfg.Debug)

	if stale := fsutil.ListFilesWithSuffix(cfg.StorageDir, ".txt"); len(stale) > 0 {
		logging.Infof("ignoring %d run file(s) left over from a previous process in %s", len(stale), cfg.StorageDir)
	}

	s := &Store{cfg: cfg}
	s.c0 = make([]skiplist.Run, cfg.R)
	s.filters = make([]*bloom.Filter, cfg.R)
	for i := 0; i < cfg.R; i++ {
		s.c0[i] = s.newRun()
		s.filters[i] = bloom.New(cfg.E, cfg.BFFalsePositive)
	}
	return s, nil
}

func (s *Store) newRun() skiplist.Run {
	if s.cfg.InMemoryBackend == "rbtree" {
		return skiplist.NewTreeRun()
	}
	return skiplist.New()
}

// Directory returns the storage directory backing this store, in the
// teacher's GetDirectory() style.
func (s *Store) Directory() string { return s.cfg.StorageDir }

// Insert writes (k, v), advancing C_0's active run and triggering a
// merge to disk when it fills.
func (s *Store) Insert(k kvpair.K, v kvpair.V) {
	s.mu.Lock()
	full := s.c0[s.active].Count() >= s.cfg.E
	if full {
		s.active++
	}
	needDrain := s.active == s.cfg.R
	s.mu.Unlock()

	// drainToDisk joins the prior merge thread itself; it must not be
	// called with s.mu held, or it would deadlock against that
	// thread's own need for s.mu to install its result.
	if needDrain {
		s.drainToDisk()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.c0[s.active].Insert(k, v)
	s.filters[s.active].Add(k)
}

// Delete marks k as removed by writing a tombstone value.
func (s *Store) Delete(k kvpair.K) {
	s.Insert(k, kvpair.VTombstone)
}

// Lookup returns the value for k and whether a live (non-tombstone)
// value was found: in-memory runs newest-to-oldest, then disk levels
// 0..L, newest run first within each level; the first hit wins.
func (s *Store) Lookup(k kvpair.K) (kvpair.V, bool) {
	s.mergeWG.Wait() // join the merge thread before reading disk state

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := s.active; i >= 0; i-- {
		if !s.filters[i].MayContain(k) {
			continue
		}
		if v, ok := s.c0[i].Lookup(k); ok {
			return tombstoneToMiss(v)
		}
	}

	for _, level := range s.levels {
		if v, ok := level.Lookup(k); ok {
			return tombstoneToMiss(v)
		}
	}

	return 0, false
}

func tombstoneToMiss(v kvpair.V) (kvpair.V, bool) {
	if v == kvpair.VTombstone {
		return 0, false
	}
	return v, true
}

// Range returns every live pair with lo <= key < hi, merged across
// every in-memory run and disk level, the most recent write winning on
// duplicate keys.
func (s *Store) Range(lo, hi kvpair.K) []kvpair.KVPair {
	if hi <= lo {
		return nil
	}

	s.mergeWG.Wait() // join the merge thread before reading disk state

	s.mu.Lock()
	defer s.mu.Unlock()

	type tagged struct {
		p   kvpair.KVPair
		gen int // higher gen = more recently written
	}
	var all []tagged
	gen := 0

	// Oldest disk level first: level 0 is always more recently merged
	// than level 1, and so on, following the cascade direction. diskrun.Range
	// is inclusive of both ends, so hi-1 recovers the exclusive-hi
	// contract this function promises.
	for li := len(s.levels) - 1; li >= 0; li-- {
		level := s.levels[li]
		for _, r := range level.GetRunsToMerge(level.NumRuns()) {
			i1, i2 := r.Range(lo, hi-1)
			for i := i1; i < i2; i++ {
				all = append(all, tagged{r.At(i), gen})
			}
			gen++
		}
	}

	for i := 0; i <= s.active; i++ {
		for _, p := range s.c0[i].RangeScan(lo, hi) {
			all = append(all, tagged{p, gen})
		}
		gen++
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].p.Key != all[j].p.Key {
			return all[i].p.Key < all[j].p.Key
		}
		return all[i].gen < all[j].gen
	})

	var out []kvpair.KVPair
	for i, t := range all {
		if i+1 < len(all) && all[i+1].p.Key == t.p.Key {
			continue
		}
		if t.p.Value != kvpair.VTombstone {
			out = append(out, t.p)
		}
	}
	return out
}

// Size returns the total number of entries held across C_0 and every
// disk level. This is an upper bound on the number of distinct live
// keys: duplicate and tombstoned entries not yet collapsed by a merge
// are counted too.
func (s *Store) Size() int {
	s.mergeWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for i := 0; i <= s.active; i++ {
		n += s.c0[i].Count()
	}
	for _, level := range s.levels {
		n += level.NumElements()
	}
	return n
}

// NumBuffer returns the capacity of one in-memory run (E).
func (s *Store) NumBuffer() int { return s.cfg.E }

// PrintElts dumps every run's full key order to stdout, one line per
// run, buffer runs first (level -1) followed by disk levels low to
// high, following the original sLSM-Tree's printElts structure.
func (s *Store) PrintElts() {
	s.mergeWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i <= s.active; i++ {
		pairs := s.c0[i].Enumerate()
		keys := make([]kvpair.K, len(pairs))
		for j, p := range pairs {
			keys[j] = p.Key
		}
		fmt.Printf("level=%d run=%d keys=%v\n", -1, i, keys)
	}

	for _, level := range s.levels {
		for ri, r := range level.GetRunsToMerge(level.NumRuns()) {
			keys := make([]kvpair.K, r.Capacity())
			for i := range keys {
				keys[i] = r.At(i).Key
			}
			fmt.Printf("level=%d run=%d keys=%v\n", level.LevelNum(), ri, keys)
		}
	}
}

// PrintStats dumps per-level element counts to stdout, one line per
// tier (the buffer counted as level -1), matching PrintElts' `level=`
// prefix style.
func (s *Store) PrintStats() {
	s.mergeWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	bufElts := 0
	for i := 0; i <= s.active; i++ {
		bufElts += s.c0[i].Count()
	}
	fmt.Fprintf(os.Stdout, "level=%d elements=%d\n", -1, bufElts)

	for _, level := range s.levels {
		fmt.Fprintf(os.Stdout, "level=%d elements=%d\n", level.LevelNum(), level.NumElements())
	}
}

// drainToDisk joins any prior merge thread, snapshots the oldest M
// in-memory runs, refills their ring slots, and hands the snapshot to
// a new background goroutine that sorts, merges, and installs it at
// disk level 0. Must NOT be called with s.mu held.
func (s *Store) drainToDisk() {
	s.mergeWG.Wait()

	s.mu.Lock()
	m := s.cfg.M()
	if m == 0 {
		s.mu.Unlock()
		return
	}
	if m > len(s.c0) {
		m = len(s.c0)
	}

	drained := make([]skiplist.Run, m)
	copy(drained, s.c0[:m])

	s.c0 = append(s.c0[m:], newRuns(s, m)...)
	s.filters = append(s.filters[m:], newFilters(s, m)...)
	s.active -= m
	if s.active < 0 {
		s.active = 0
	}
	s.mu.Unlock()

	s.mergeWG.Add(1)
	go func() {
		defer s.mergeWG.Done()
		sorted := mergeMemoryRuns(drained)
		if err := s.flushToLevel0(sorted); err != nil {
			logging.Errorf("merge to disk level 0 failed: %v", err)
		}
	}()
}

func newRuns(s *Store, n int) []skiplist.Run {
	out := make([]skiplist.Run, n)
	for i := range out {
		out[i] = s.newRun()
	}
	return out
}

func newFilters(s *Store, n int) []*bloom.Filter {
	out := make([]*bloom.Filter, n)
	for i := range out {
		out[i] = bloom.New(s.cfg.E, s.cfg.BFFalsePositive)
	}
	return out
}

// mergeMemoryRuns flattens and dedups a snapshot of in-memory runs,
// the most recently created run (highest slice index) winning
// duplicate keys.
func mergeMemoryRuns(runs []skiplist.Run) []kvpair.KVPair {
	type tagged struct {
		p   kvpair.KVPair
		src int
	}
	var all []tagged
	for src, r := range runs {
		for _, p := range r.Enumerate() {
			all = append(all, tagged{p, src})
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].p.Key != all[j].p.Key {
			return all[i].p.Key < all[j].p.Key
		}
		return all[i].src < all[j].src
	})

	var out []kvpair.KVPair
	for i, t := range all {
		if i+1 < len(all) && all[i+1].p.Key == t.p.Key {
			continue
		}
		out = append(out, t.p)
	}
	return out
}

// flushToLevel0 installs sorted as a new run at disk level 0 (creating
// it if it does not yet exist) and cascades the merge downward while a
// level remains full, recursively creating a new level below when
// necessary. Runs on the background merge goroutine, so it acquires
// s.mu itself.
func (s *Store) flushToLevel0(sorted []kvpair.KVPair) error {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	s.mu.Lock()
	level := s.ensureLevelLocked(0)
	s.mu.Unlock()

	if _, err := level.AddRunByArray(sorted); err != nil {
		return fmt.Errorf("lsm: flush to level 0: %w", err)
	}

	return s.cascade(0)
}

// cascade merges levelIdx's oldest M runs into levelIdx+1 for as long
// as levelIdx remains full, recursively pushing the cascade further
// down when necessary.
func (s *Store) cascade(levelIdx int) error {
	s.mu.Lock()
	level := s.levels[levelIdx]
	full := level.IsFull()
	s.mu.Unlock()
	if !full {
		return nil
	}

	m := s.cfg.M()
	toMerge := level.GetRunsToMerge(m)

	s.mu.Lock()
	next := s.ensureLevelLocked(levelIdx + 1)
	s.mu.Unlock()

	if _, err := next.AddRuns(toMerge); err != nil {
		return fmt.Errorf("lsm: cascade level %d to %d: %w", levelIdx, levelIdx+1, err)
	}
	if err := level.FreeMergedRuns(toMerge); err != nil {
		return fmt.Errorf("lsm: free merged runs at level %d: %w", levelIdx, err)
	}

	logging.Infof("merged %d run(s) from level %d into level %d", len(toMerge), levelIdx, levelIdx+1)
	return s.cascade(levelIdx + 1)
}

// ensureLevelLocked returns s.levels[idx], creating it (and any
// intermediate levels) if it does not yet exist, and keeps the last
// level in the chain marked terminal. s.mu must be held.
func (s *Store) ensureLevelLocked(idx int) *disklevel.Level {
	for len(s.levels) <= idx {
		k := len(s.levels)
		if k > 0 {
			s.levels[k-1].SetTerminal(false)
		}
		level := disklevel.New(s.cfg.StorageDir, k, s.cfg.DiskRunsPerLevel, s.cfg.PageSize, s.cfg.BFFalsePositive, true)
		s.levels = append(s.levels, level)
	}
	return s.levels[idx]
}

// Close joins any in-flight merge goroutine. Callers that want a
// clean shutdown before removing the storage directory should call
// this first.
func (s *Store) Close() {
	s.mergeWG.Wait()
}

// CompactLevel manually merges the n oldest runs at level down into
// level+1, regardless of whether level is actually full — the
// teacher's CompactNTables carried forward to this store's tiered
// disk levels, for an operator who wants to force compaction ahead of
// schedule rather than wait for the level to fill. n is clamped to the
// level's current run count; n <= 0 compacts every run currently held.
func (s *Store) CompactLevel(level, n int) error {
	s.mergeMu.Lock()
	defer s.mergeMu.Unlock()

	s.mu.Lock()
	if level < 0 || level >= len(s.levels) {
		s.mu.Unlock()
		return fmt.Errorf("lsm: no such level %d", level)
	}
	lvl := s.levels[level]
	s.mu.Unlock()

	if n <= 0 || n > lvl.NumRuns() {
		n = lvl.NumRuns()
	}
	if n == 0 {
		return nil
	}
	toMerge := lvl.GetRunsToMerge(n)

	s.mu.Lock()
	next := s.ensureLevelLocked(level + 1)
	s.mu.Unlock()

	if _, err := next.AddRuns(toMerge); err != nil {
		return fmt.Errorf("lsm: compact level %d: %w", level, err)
	}
	if err := lvl.FreeMergedRuns(toMerge); err != nil {
		return fmt.Errorf("lsm: compact level %d: free merged runs: %w", level, err)
	}

	logging.Infof("manually compacted %d run(s) from level %d into level %d", len(toMerge), level, level+1)
	return nil
}

// LevelRunCount reports how many runs a disk level currently holds, or
// 0 if the level does not yet exist.
func (s *Store) LevelRunCount(level int) int {
	s.mergeWG.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if level < 0 || level >= len(s.levels) {
		return 0
	}
	return s.levels[level].NumRuns()
}
