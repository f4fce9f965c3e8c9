package skiplist

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/nireo/kantadb/kvpair"
)

func int64Comparator(a, b interface{}) int {
	ka, kb := a.(kvpair.K), b.(kvpair.K)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

// TreeRun is the alternate ordered in-memory run backing, selected via
// Config.InMemoryBackend = "rbtree". It wraps emirpasic/gods' red-black
// tree, the library the teacher's own sstable package already depended
// on for sparse indexing.
type TreeRun struct {
	tree    *redblacktree.Tree
	min     kvpair.K
	max     kvpair.K
	haveMin bool
}

// NewTreeRun creates an empty tree-backed run.
func NewTreeRun() *TreeRun {
	return &TreeRun{tree: redblacktree.NewWith(int64Comparator)}
}

// Insert overwrites the value if k is already present.
func (t *TreeRun) Insert(k kvpair.K, v kvpair.V) {
	t.tree.Put(k, v)
	if !t.haveMin {
		t.min, t.max = k, k
		t.haveMin = true
		return
	}
	if k < t.min {
		t.min = k
	}
	if k > t.max {
		t.max = k
	}
}

// Lookup returns the value for k and whether it was found.
func (t *TreeRun) Lookup(k kvpair.K) (kvpair.V, bool) {
	v, found := t.tree.Get(k)
	if !found {
		return 0, false
	}
	return v.(kvpair.V), true
}

// RangeScan returns every pair with lo <= key < hi, in key order.
func (t *TreeRun) RangeScan(lo, hi kvpair.K) []kvpair.KVPair {
	var out []kvpair.KVPair
	it := t.tree.Iterator()
	for it.Next() {
		k := it.Key().(kvpair.K)
		if k < lo {
			continue
		}
		if k >= hi {
			break
		}
		out = append(out, kvpair.KVPair{Key: k, Value: it.Value().(kvpair.V)})
	}
	return out
}

// Enumerate returns every pair in ascending key order.
func (t *TreeRun) Enumerate() []kvpair.KVPair {
	out := make([]kvpair.KVPair, 0, t.tree.Size())
	it := t.tree.Iterator()
	for it.Next() {
		out = append(out, kvpair.KVPair{Key: it.Key().(kvpair.K), Value: it.Value().(kvpair.V)})
	}
	return out
}

// Count returns the number of elements currently held.
func (t *TreeRun) Count() int { return t.tree.Size() }

// Min returns the smallest key inserted so far.
func (t *TreeRun) Min() (kvpair.K, bool) { return t.min, t.haveMin }

// Max returns the largest key inserted so far.
func (t *TreeRun) Max() (kvpair.K, bool) { return t.max, t.haveMin }

var _ Run = (*Skiplist)(nil)
var _ Run = (*TreeRun)(nil)
