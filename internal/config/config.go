// Package config expands the teacher's bare Config struct
// (MaxMemSize, Debug, StorageDir) into the parameter set the LSM
// coordinator needs.
package config

// Config parameterizes a Store.
type Config struct {
	// E is the capacity, in elements, of each in-memory run.
	E int

	// R is the number of in-memory runs in C_0. Disk levels take
	// their run-slot count from DiskRunsPerLevel instead.
	R int

	// FracMerged is the fraction of a full tier drained on each
	// merge; M = ceil(FracMerged * R).
	FracMerged float64

	// BFFalsePositive is the target Bloom-filter false-positive rate.
	BFFalsePositive float64

	// PageSize is the fence-pointer stride, in records.
	PageSize int

	// DiskRunsPerLevel is R applied to disk levels; may differ from
	// the in-memory R.
	DiskRunsPerLevel int

	// StorageDir is the directory holding disk run files.
	StorageDir string

	// Debug enables verbose diagnostic logging.
	Debug bool

	// InMemoryBackend selects the ordered-multiset implementation
	// backing each in-memory run: "skiplist" (default) or "rbtree".
	InMemoryBackend string
}

// DefaultConfiguration returns sensible defaults for interactive use
// and the benchmark/example commands, matching the teacher's
// DefaultConfiguration helper in shape.
func DefaultConfiguration() *Config {
	return &Config{
		E:                1000,
		R:                4,
		FracMerged:       0.5,
		BFFalsePositive:  0.02,
		PageSize:         64,
		DiskRunsPerLevel: 4,
		StorageDir:       "kantadb_data",
		Debug:            false,
		InMemoryBackend:  "skiplist",
	}
}

// M returns ceil(FracMerged * R), the number of runs drained per
// merge.
func (c *Config) M() int {
	m := int(c.FracMerged*float64(c.R) + 0.999999)
	if m < 1 {
		m = 1
	}
	if m > c.R {
		m = c.R
	}
	return m
}
