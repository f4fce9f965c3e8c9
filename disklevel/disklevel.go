// Package disklevel implements a single tier of the disk hierarchy: an
// ordered sequence of immutable disk runs, merged and collapsed down
// from the level above via a k-way merge that discards superseded
// duplicates and, at the terminal level only, drops tombstones
// entirely.
package disklevel

import (
	"container/heap"
	"fmt"

	"github.com/nireo/kantadb/diskrun"
	"github.com/nireo/kantadb/kvpair"
)

// Level holds up to maxRuns disk runs, always occupying a prefix of
// the conceptual run slots; a run slot is only allocated (its file
// created) when a run is actually written into it.
type Level struct {
	dir        string
	levelNum   int
	maxRuns    int
	pageSize   int
	bfFP       float64
	isTerminal bool

	runs    []*diskrun.Run
	nextRun int // next unused run id in this level, monotonically increasing
}

// New creates an empty level.
func New(dir string, levelNum, maxRuns, pageSize int, bfFP float64, isTerminal bool) *Level {
	return &Level{
		dir:        dir,
		levelNum:   levelNum,
		maxRuns:    maxRuns,
		pageSize:   pageSize,
		bfFP:       bfFP,
		isTerminal: isTerminal,
	}
}

// LevelNum reports this level's tier index.
func (l *Level) LevelNum() int { return l.levelNum }

// SetTerminal marks whether this is the lowest level in the chain;
// only a terminal level that is still empty collapses tombstones
// during a merge. The
// coordinator flips this as it appends new levels below an existing
// one.
func (l *Level) SetTerminal(terminal bool) { l.isTerminal = terminal }

// IsFull reports whether every run slot is occupied.
func (l *Level) IsFull() bool { return len(l.runs) >= l.maxRuns }

// IsEmpty reports whether the level holds no runs.
func (l *Level) IsEmpty() bool { return len(l.runs) == 0 }

// NumRuns returns the number of occupied run slots.
func (l *Level) NumRuns() int { return len(l.runs) }

// NumElements sums the logical record counts across all runs.
func (l *Level) NumElements() int {
	n := 0
	for _, r := range l.runs {
		n += r.Capacity()
	}
	return n
}

// Lookup checks runs from most to least recently written, returning
// the first match — newer runs shadow older ones within a level.
func (l *Level) Lookup(k kvpair.K) (kvpair.V, bool) {
	for i := len(l.runs) - 1; i >= 0; i-- {
		if v, ok := l.runs[i].Lookup(k); ok {
			return v, true
		}
	}
	return 0, false
}

// GetRunsToMerge returns the m oldest runs held by this level (a
// prefix of the run slots, oldest first) — the set the coordinator
// drains into the level below when this level is full.
func (l *Level) GetRunsToMerge(m int) []*diskrun.Run {
	if m > len(l.runs) {
		m = len(l.runs)
	}
	out := make([]*diskrun.Run, m)
	copy(out, l.runs[:m])
	return out
}

// AddRunByArray writes a single new run directly from a sorted,
// deduplicated array into the next free slot, used when flushing an
// in-memory run straight to level 0.
func (l *Level) AddRunByArray(sorted []kvpair.KVPair) (*diskrun.Run, error) {
	if l.IsFull() {
		return nil, fmt.Errorf("disklevel: level %d is full", l.levelNum)
	}

	r, err := diskrun.Create(l.dir, len(sorted), l.pageSize, l.levelNum, l.nextRun, l.bfFP)
	if err != nil {
		return nil, err
	}
	l.nextRun++

	r.WriteData(sorted, 0)
	r.ConstructIndex()
	l.runs = append(l.runs, r)
	return r, nil
}

// heapItem is one cursor into a source run during the k-way merge.
// runIdx orders sources by recency: a higher runIdx is more recently
// written and wins ties on equal keys.
type heapItem struct {
	pair   kvpair.KVPair
	run    *diskrun.Run
	idx    int
	runIdx int
}

type mergeHeap []heapItem

func (h mergeHeap) Len() int { return len(h) }
func (h mergeHeap) Less(i, j int) bool {
	if h[i].pair.Key != h[j].pair.Key {
		return h[i].pair.Key < h[j].pair.Key
	}
	return h[i].runIdx > h[j].runIdx // more recent source sorts first among equal keys
}
func (h mergeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(heapItem)) }
func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// AddRuns k-way merges incoming (runs handed down from the level
// above, oldest first) into a single new run and appends it to this
// level's own run slots, collapsing superseded duplicates and, if
// this is the terminal level and it holds no runs yet, dropping
// tombstones outright, grounded
// on original_source/sLSM-Tree/diskLevel.hpp's StaticHeap. It does not
// touch or free incoming — the caller does that via FreeMergedRuns on
// the source level once this call returns successfully.
func (l *Level) AddRuns(incoming []*diskrun.Run) (*diskrun.Run, error) {
	if l.IsFull() {
		return nil, fmt.Errorf("disklevel: level %d is full", l.levelNum)
	}

	// Tombstones may only be dropped when nothing older can resurface:
	// this is the deepest level and it holds no older runs of its own.
	merged, err := mergeSources(incoming, l.isTerminal && l.IsEmpty())
	if err != nil {
		return nil, err
	}

	// A fully-collapsed merge (every incoming key was a tombstone
	// shadowing its only value at the terminal level) produces no
	// surviving pairs. Don't advance into a new run slot in that case —
	// it would burn one of this level's R run slots on a phantom, empty
	// run.
	if len(merged) == 0 {
		return nil, nil
	}

	r, err := diskrun.Create(l.dir, len(merged), l.pageSize, l.levelNum, l.nextRun, l.bfFP)
	if err != nil {
		return nil, err
	}
	l.nextRun++

	r.WriteData(merged, 0)
	r.ConstructIndex()

	l.runs = append(l.runs, r)
	return r, nil
}

// mergeSources performs a k-way merge over sources: among entries with
// equal keys the one from the highest-indexed source (the most
// recently written run) wins; tombstones are kept through
// intermediate levels so they can continue to shadow older values, and
// dropped only when isTerminal is true.
func mergeSources(sources []*diskrun.Run, isTerminal bool) ([]kvpair.KVPair, error) {
	h := make(mergeHeap, 0, len(sources))
	for si, r := range sources {
		if r.Capacity() == 0 {
			continue
		}
		h = append(h, heapItem{pair: r.At(0), run: r, idx: 0, runIdx: si})
	}
	heap.Init(&h)

	var out []kvpair.KVPair
	for h.Len() > 0 {
		top := heap.Pop(&h).(heapItem)

		// Drain and discard every other cursor currently sitting on
		// the same key; the popped one (highest runIdx, by Less) is
		// authoritative.
		for h.Len() > 0 && h[0].pair.Key == top.pair.Key {
			dup := heap.Pop(&h).(heapItem)
			advance(&h, dup)
		}

		if !(isTerminal && kvpair.IsTombstone(top.pair)) {
			out = append(out, top.pair)
		}
		advance(&h, top)
	}

	return out, nil
}

func advance(h *mergeHeap, it heapItem) {
	if it.idx+1 < it.run.Capacity() {
		heap.Push(h, heapItem{pair: it.run.At(it.idx + 1), run: it.run, idx: it.idx + 1, runIdx: it.runIdx})
	}
}

// FreeMergedRuns closes and unlinks the given runs (expected to be
// the current oldest prefix, as returned by GetRunsToMerge), then
// renames the remaining runs so slot i again corresponds to
// C_{level}_{i}.txt.
func (l *Level) FreeMergedRuns(old []*diskrun.Run) error {
	n := len(old)
	if n > len(l.runs) {
		n = len(l.runs)
	}

	for _, r := range old {
		if err := r.Close(); err != nil {
			return err
		}
	}

	remaining := l.runs[n:]
	for i, r := range remaining {
		if err := r.Rename(i); err != nil {
			return err
		}
	}
	l.runs = remaining
	return nil
}
