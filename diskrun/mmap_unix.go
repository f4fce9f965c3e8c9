//go:build !windows

// Memory-map discipline for disk runs, grounded on dd0wney-graphdb's
// mmap-backed SSTable reader (pkg/lsm/sstable_mmap.go), which opens
// its files with the read-only golang.org/x/exp/mmap. Disk runs need a
// shared read-write mapping — writeData copies records directly into
// it — so this package reaches one level lower in the same dependency
// family, golang.org/x/sys/unix, for Mmap/Munmap/Msync.
package diskrun

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/nireo/kantadb/kvpair"
)

// Create opens (or truncates and recreates) the backing file for a
// new disk run, stretches it to capacity*sizeof(KVPair) bytes, and
// maps it shared read-write.
func Create(dir string, capacity, pageSize int, level, runID int, bfFP float64) (*Run, error) {
	path := filepath.Join(dir, Filename(level, runID))

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size := int64(capacity) * kvpair.Size
	if size == 0 {
		size = kvpair.Size
	}
	if err := f.Truncate(size); err != nil {
		return nil, err
	}

	mapping, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	return &Run{
		dir:      dir,
		level:    level,
		runID:    runID,
		pageSize: pageSize,
		bfFP:     bfFP,
		mapping:  mapping,
		fd:       int(f.Fd()),
		capacity: capacity,
	}, nil
}

// Close flushes dirty pages, unmaps the file, and unlinks it.
func (r *Run) Close() error {
	if r.mapping == nil {
		return nil
	}

	if err := unix.Msync(r.mapping, unix.MS_SYNC); err != nil {
		return err
	}
	if err := unix.Munmap(r.mapping); err != nil {
		return err
	}
	r.mapping = nil

	path := filepath.Join(r.dir, Filename(r.level, r.runID))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Rename moves the backing file to the slot for newRunID, used by
// disklevel.FreeMergedRuns when compacting run slots downward.
func (r *Run) Rename(newRunID int) error {
	oldPath := filepath.Join(r.dir, Filename(r.level, r.runID))
	newPath := filepath.Join(r.dir, Filename(r.level, newRunID))
	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}
	r.runID = newRunID
	return nil
}
