// Package bufferpool implements the buffer pool core: an LRU
// replacer, a single-shard pool instance, and a sharded pool that
// composes many instances behind page-id residue routing.
package bufferpool

import (
	"sync"

	"github.com/halvardsen/pagepool/pkg/storage"
)

// frame is one slot in an Instance's page array.
type frame struct {
	page *storage.Page
}

// Instance owns a fixed array of frames, a page table, a free list,
// and a replacer. It implements fetch/new/unpin/flush/delete against
// one shard of the page-id space: every page id it allocates satisfies
// `id mod shardCount == shardIndex`, and it must never be asked to
// fetch, unpin, flush, or delete a page id outside that residue class
// (the ParallelPool enforces that by construction; a standalone
// Instance with shardCount==1 has no such restriction).
type Instance struct {
	mu sync.Mutex

	frames    []frame
	pageTable map[storage.PageID]FrameID
	freeList  []FrameID
	replacer  *lruReplacer

	diskMgr storage.DiskManager
	logMgr  storage.LogManager

	nextPageID  storage.PageID
	shardIndex  int
	shardCount  int
	instanceTag int // identifies this instance in published events

	sink EventSink

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewInstance creates a pool instance of poolSize frames, backed by
// diskMgr, in shard shardIndex of shardCount total shards. Pass
// shardIndex 0 and shardCount 1 for a standalone instance.
func NewInstance(poolSize int, diskMgr storage.DiskManager, logMgr storage.LogManager, shardIndex, shardCount int) (*Instance, error) {
	if poolSize <= 0 {
		return nil, ErrInvalidPoolSize
	}
	if shardCount <= 0 {
		return nil, ErrInvalidShardCount
	}
	if logMgr == nil {
		logMgr = storage.NoopLogManager{}
	}

	inst := &Instance{
		frames:     make([]frame, poolSize),
		pageTable:  make(map[storage.PageID]FrameID, poolSize),
		freeList:   make([]FrameID, poolSize),
		replacer:   newLRUReplacer(poolSize),
		diskMgr:    diskMgr,
		logMgr:     logMgr,
		nextPageID: storage.PageID(shardIndex),
		shardIndex: shardIndex,
		shardCount: shardCount,
		sink:       nopSink{},
	}
	for i := 0; i < poolSize; i++ {
		inst.frames[i] = frame{page: storage.NewPage(storage.InvalidPageID)}
		inst.freeList[i] = FrameID(i)
	}
	return inst, nil
}

// SetEventSink installs the sink instance events are published to.
// Pass nil to stop publishing. Not safe to call concurrently with
// pool operations.
func (inst *Instance) SetEventSink(sink EventSink) {
	if sink == nil {
		sink = nopSink{}
	}
	inst.sink = sink
}

// SetInstanceTag sets the instance index reported in published
// events; ParallelPool calls this when it builds its shards.
func (inst *Instance) SetInstanceTag(tag int) {
	inst.instanceTag = tag
}

// Fetch returns the page, incrementing its pin count, reading it from
// disk first if it is not already resident. It returns nil when the
// page is not resident and either no frame is available to bring it
// in or the disk read fails.
func (inst *Instance) Fetch(id storage.PageID) (*storage.Page, bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if fid, ok := inst.pageTable[id]; ok {
		fr := inst.frames[fid]
		fr.page.PinCount++
		inst.replacer.Pin(fid)
		inst.hits++
		inst.sink.Publish(Event{Kind: EventFetchHit, Instance: inst.instanceTag, PageID: id, FrameID: fid})
		return fr.page, true
	}

	inst.misses++
	fid, ok := inst.findReplacement()
	if !ok {
		inst.sink.Publish(Event{Kind: EventFetchMiss, Instance: inst.instanceTag, PageID: id})
		return nil, false
	}

	fr := inst.frames[fid]
	if err := inst.diskMgr.ReadPage(id, &fr.page.Data); err != nil {
		// Roll back: the frame never leaves the free/evicted state the
		// caller can see, and no table entry was inserted.
		inst.freeList = append(inst.freeList, fid)
		return nil, false
	}
	fr.page.ID = id
	fr.page.PinCount = 1
	fr.page.Dirty = false
	inst.pageTable[id] = fid
	inst.replacer.Pin(fid)
	inst.sink.Publish(Event{Kind: EventFetchMiss, Instance: inst.instanceTag, PageID: id, FrameID: fid})
	return fr.page, true
}

// NewPage allocates a fresh page id owned by this instance, obtains a
// frame for it, and returns it pinned. It returns nil if every frame
// is currently pinned.
func (inst *Instance) NewPage() (*storage.Page, bool) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if !inst.hasUnpinnedFrame() {
		return nil, false
	}

	fid, ok := inst.findReplacement()
	if !ok {
		return nil, false
	}

	id := inst.nextPageID
	inst.nextPageID += storage.PageID(inst.shardCount)

	fr := inst.frames[fid]
	fr.page.ID = id
	fr.page.PinCount = 1
	fr.page.Dirty = false
	inst.pageTable[id] = fid
	inst.replacer.Pin(fid)

	// Reserve the block on disk so future fetches see it exists, per
	// spec; the written frame is still logically uninitialized.
	if err := inst.diskMgr.WritePage(id, &fr.page.Data); err != nil {
		delete(inst.pageTable, id)
		fr.page.ID = storage.InvalidPageID
		fr.page.PinCount = 0
		fr.page.Dirty = false
		inst.freeList = append(inst.freeList, fid)
		return nil, false
	}

	inst.sink.Publish(Event{Kind: EventNewPage, Instance: inst.instanceTag, PageID: id, FrameID: fid})
	return fr.page, true
}

// Unpin decrements the page's pin count. If isDirty is true the
// frame's dirty flag is set (dirty is sticky until a flush). A
// double-unpin (pin count already zero) is a no-op that returns
// false. It returns false on a miss as well.
func (inst *Instance) Unpin(id storage.PageID, isDirty bool) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	fid, ok := inst.pageTable[id]
	if !ok {
		return false
	}
	fr := inst.frames[fid]

	if isDirty {
		fr.page.Dirty = true
	}
	if fr.page.PinCount == 0 {
		return false
	}
	fr.page.PinCount--
	if fr.page.PinCount == 0 {
		inst.replacer.Unpin(fid)
		inst.sink.Publish(Event{Kind: EventUnpin, Instance: inst.instanceTag, PageID: id, FrameID: fid})
	}
	return true
}

// Flush writes the page's bytes through the disk manager. It returns
// false on a miss or for InvalidPageID.
func (inst *Instance) Flush(id storage.PageID) bool {
	if id == storage.InvalidPageID {
		return false
	}

	inst.mu.Lock()
	defer inst.mu.Unlock()

	fid, ok := inst.pageTable[id]
	if !ok {
		return false
	}
	fr := inst.frames[fid]
	if err := inst.diskMgr.WritePage(id, &fr.page.Data); err != nil {
		return false
	}
	fr.page.Dirty = false
	inst.sink.Publish(Event{Kind: EventFlush, Instance: inst.instanceTag, PageID: id, FrameID: fid})
	return true
}

// FlushAll flushes every resident page.
func (inst *Instance) FlushAll() {
	inst.mu.Lock()
	ids := make([]storage.PageID, 0, len(inst.pageTable))
	for id := range inst.pageTable {
		ids = append(ids, id)
	}
	inst.mu.Unlock()

	for _, id := range ids {
		inst.Flush(id)
	}
}

// Delete removes a page from the pool and the disk. A page not
// resident is considered already deleted and returns true. A pinned
// page cannot be deleted and returns false.
func (inst *Instance) Delete(id storage.PageID) bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	fid, ok := inst.pageTable[id]
	if !ok {
		return true
	}
	fr := inst.frames[fid]
	if fr.page.IsPinned() {
		return false
	}

	if fr.page.Dirty {
		if err := inst.diskMgr.WritePage(id, &fr.page.Data); err != nil {
			return false
		}
	}
	if err := inst.diskMgr.DeallocatePage(id); err != nil {
		return false
	}

	delete(inst.pageTable, id)
	fr.page.ID = storage.InvalidPageID
	fr.page.Dirty = false
	fr.page.PinCount = 0
	inst.replacer.Pin(fid) // no-op if already absent; guarantees it leaves the replacer
	inst.freeList = append(inst.freeList, fid)

	inst.sink.Publish(Event{Kind: EventDelete, Instance: inst.instanceTag, PageID: id, FrameID: fid})
	return true
}

// hasUnpinnedFrame reports whether at least one frame is free or
// unpinned-resident. Must be called with inst.mu held.
func (inst *Instance) hasUnpinnedFrame() bool {
	if len(inst.freeList) > 0 {
		return true
	}
	return inst.replacer.Size() > 0
}

// findReplacement obtains a frame for a new occupant: the free list is
// always preferred over eviction. On return the frame is owned by the
// caller, absent from the free list, page table, and replacer; its
// metadata still reflects the previous occupant until overwritten.
// Must be called with inst.mu held.
func (inst *Instance) findReplacement() (FrameID, bool) {
	if n := len(inst.freeList); n > 0 {
		fid := inst.freeList[0]
		inst.freeList = inst.freeList[1:]
		return fid, true
	}

	fid, ok := inst.replacer.Victim()
	if !ok {
		return 0, false
	}

	fr := inst.frames[fid]
	oldID := fr.page.ID
	if fr.page.Dirty {
		if err := inst.diskMgr.WritePage(oldID, &fr.page.Data); err != nil {
			// Roll back: the old page stays resident and in the
			// replacer, nothing here claims this frame.
			inst.replacer.Unpin(fid)
			return 0, false
		}
	}
	delete(inst.pageTable, oldID)
	inst.evictions++
	inst.sink.Publish(Event{Kind: EventEvict, Instance: inst.instanceTag, PageID: oldID, FrameID: fid})
	return fid, true
}

// Stats is a snapshot of an instance's cache counters and frame
// occupancy, used by the admin server and CLI.
type Stats struct {
	Size           int
	FramesFree     int
	FramesPinned   int
	FramesResident int
	Hits           uint64
	Misses         uint64
	Evictions      uint64
}

// Stats returns a snapshot of this instance's counters.
func (inst *Instance) Stats() Stats {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	pinned := 0
	for id := range inst.pageTable {
		if inst.frames[inst.pageTable[id]].page.IsPinned() {
			pinned++
		}
	}
	return Stats{
		Size:           len(inst.frames),
		FramesFree:     len(inst.freeList),
		FramesPinned:   pinned,
		FramesResident: len(inst.pageTable),
		Hits:           inst.hits,
		Misses:         inst.misses,
		Evictions:      inst.evictions,
	}
}
