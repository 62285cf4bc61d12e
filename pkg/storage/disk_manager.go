package storage

import (
	"fmt"
	"os"
	"sync"
)

// DiskManager is the narrow, block-addressable I/O contract the
// buffer pool consumes. Buffers are always exactly PageSize bytes.
// Implementations are assumed internally serialized for per-page I/O.
type DiskManager interface {
	ReadPage(id PageID, dst *[PageSize]byte) error
	WritePage(id PageID, src *[PageSize]byte) error
	DeallocatePage(id PageID) error
}

// FileDiskManager is a DiskManager backed by a single flat file, with
// page id i occupying the byte range [i*PageSize, (i+1)*PageSize).
type FileDiskManager struct {
	mu          sync.Mutex
	file        *os.File
	totalReads  int64
	totalWrites int64
}

// NewFileDiskManager opens (creating if necessary) the data file at path.
func NewFileDiskManager(path string) (*FileDiskManager, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open data file: %w", err)
	}
	return &FileDiskManager{file: f}, nil
}

// ReadPage reads page id's bytes into dst. A page beyond the current
// end of file reads as all-zero, since the pool may read a page it
// allocated but has not yet flushed.
func (dm *FileDiskManager) ReadPage(id PageID, dst *[PageSize]byte) error {
	if id == InvalidPageID {
		return fmt.Errorf("storage: cannot read invalid page id")
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(id) * PageSize
	n, err := dm.file.ReadAt(dst[:], offset)
	if err != nil && n < PageSize {
		for i := n; i < PageSize; i++ {
			dst[i] = 0
		}
	}
	dm.totalReads++
	return nil
}

// WritePage writes src to page id's on-disk slot.
func (dm *FileDiskManager) WritePage(id PageID, src *[PageSize]byte) error {
	if id == InvalidPageID {
		return fmt.Errorf("storage: cannot write invalid page id")
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	offset := int64(id) * PageSize
	if _, err := dm.file.WriteAt(src[:], offset); err != nil {
		return fmt.Errorf("storage: failed to write page %d: %w", id, err)
	}
	dm.totalWrites++
	return nil
}

// DeallocatePage marks a page's on-disk slot as free. This
// implementation does not reclaim the space; it exists to satisfy the
// contract and to let the pool record the deallocation.
func (dm *FileDiskManager) DeallocatePage(id PageID) error {
	if id == InvalidPageID {
		return fmt.Errorf("storage: cannot deallocate invalid page id")
	}
	return nil
}

// Stats returns simple I/O counters, used by poolctl's stats operation.
func (dm *FileDiskManager) Stats() (reads, writes int64) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.totalReads, dm.totalWrites
}

// Sync flushes the underlying file to stable storage.
func (dm *FileDiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Sync()
}

// Close closes the underlying file.
func (dm *FileDiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.file.Close()
}
