package bufferpool

import (
	"testing"

	"github.com/halvardsen/pagepool/pkg/storage"
)

// memDiskManager is an in-memory storage.DiskManager for tests that
// don't need a real file.
type memDiskManager struct {
	pages map[storage.PageID]*[storage.PageSize]byte
	dead  map[storage.PageID]bool
}

func newMemDiskManager() *memDiskManager {
	return &memDiskManager{
		pages: make(map[storage.PageID]*[storage.PageSize]byte),
		dead:  make(map[storage.PageID]bool),
	}
}

func (m *memDiskManager) ReadPage(id storage.PageID, dst *[storage.PageSize]byte) error {
	if buf, ok := m.pages[id]; ok {
		*dst = *buf
		return nil
	}
	*dst = [storage.PageSize]byte{}
	return nil
}

func (m *memDiskManager) WritePage(id storage.PageID, src *[storage.PageSize]byte) error {
	cp := *src
	m.pages[id] = &cp
	return nil
}

func (m *memDiskManager) DeallocatePage(id storage.PageID) error {
	m.dead[id] = true
	delete(m.pages, id)
	return nil
}

func mustInstance(t *testing.T, poolSize int) (*Instance, *memDiskManager) {
	t.Helper()
	dm := newMemDiskManager()
	inst, err := NewInstance(poolSize, dm, nil, 0, 1)
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	return inst, dm
}

func TestInstanceNewPageThenFetchHits(t *testing.T) {
	inst, _ := mustInstance(t, 2)

	p, ok := inst.NewPage()
	if !ok {
		t.Fatal("expected NewPage to succeed")
	}
	id := p.ID
	inst.Unpin(id, false)

	st := inst.Stats()
	if st.Misses != 0 || st.Hits != 0 {
		t.Fatalf("NewPage should not affect hit/miss counters, got %+v", st)
	}

	got, ok := inst.Fetch(id)
	if !ok {
		t.Fatal("expected Fetch to hit")
	}
	if got.ID != id {
		t.Fatalf("expected page %d, got %d", id, got.ID)
	}
	if inst.Stats().Hits != 1 {
		t.Fatalf("expected 1 hit, got %+v", inst.Stats())
	}
	inst.Unpin(id, false)
}

func TestInstanceEvictsLRUWhenFull(t *testing.T) {
	inst, dm := mustInstance(t, 2)

	p0, _ := inst.NewPage()
	p1, _ := inst.NewPage()
	id0, id1 := p0.ID, p1.ID
	inst.Unpin(id0, false)
	inst.Unpin(id1, false)

	// id0 is LRU (unpinned first). Fetching a new page should evict it.
	p2, ok := inst.NewPage()
	if !ok {
		t.Fatal("expected room via eviction")
	}
	id2 := p2.ID
	inst.Unpin(id2, false)

	if _, ok := inst.pageTable[id0]; ok {
		t.Fatal("expected id0 to have been evicted")
	}
	if _, ok := inst.pageTable[id1]; !ok {
		t.Fatal("expected id1 to remain resident")
	}
	if dm == nil {
		t.Fatal("unreachable")
	}
}

func TestInstanceAllPinnedExhaustsPool(t *testing.T) {
	inst, _ := mustInstance(t, 2)

	if _, ok := inst.NewPage(); !ok {
		t.Fatal("expected first NewPage to succeed")
	}
	if _, ok := inst.NewPage(); !ok {
		t.Fatal("expected second NewPage to succeed")
	}
	// Both pages remain pinned: no frame available.
	if _, ok := inst.NewPage(); ok {
		t.Fatal("expected NewPage to fail when every frame is pinned")
	}
}

func TestInstanceDirtyWritebackOnEvict(t *testing.T) {
	inst, dm := mustInstance(t, 1)

	p0, _ := inst.NewPage()
	id0 := p0.ID
	p0.Data[0] = 0x42
	inst.Unpin(id0, true)

	p1, ok := inst.NewPage()
	if !ok {
		t.Fatal("expected eviction to make room")
	}
	id1 := p1.ID
	inst.Unpin(id1, false)

	buf, ok := dm.pages[id0]
	if !ok {
		t.Fatal("expected dirty page to be written back on eviction")
	}
	if buf[0] != 0x42 {
		t.Fatalf("expected written byte 0x42, got %#x", buf[0])
	}
}

func TestInstanceDoubleUnpinIsNoop(t *testing.T) {
	inst, _ := mustInstance(t, 1)

	p, _ := inst.NewPage()
	id := p.ID
	if ok := inst.Unpin(id, false); !ok {
		t.Fatal("expected first unpin to succeed")
	}
	if ok := inst.Unpin(id, false); ok {
		t.Fatal("expected second unpin on an already-unpinned page to report false")
	}
}

func TestInstanceDeletePinnedFails(t *testing.T) {
	inst, _ := mustInstance(t, 1)

	p, _ := inst.NewPage()
	id := p.ID
	if inst.Delete(id) {
		t.Fatal("expected delete of a pinned page to fail")
	}
	inst.Unpin(id, false)
	if !inst.Delete(id) {
		t.Fatal("expected delete of an unpinned page to succeed")
	}
	if _, ok := inst.Fetch(id); !ok || inst.Stats().Misses != 1 || inst.Stats().Hits != 0 {
		t.Fatal("expected deleted page to read back as a miss into a fresh read, not found resident")
	}
}

func TestInstanceDeleteAbsentPageIsNoop(t *testing.T) {
	inst, _ := mustInstance(t, 1)
	if !inst.Delete(storage.PageID(999)) {
		t.Fatal("expected delete of a never-resident page to report true")
	}
}

func TestInstanceFlushClearsDirty(t *testing.T) {
	inst, dm := mustInstance(t, 1)

	p, _ := inst.NewPage()
	id := p.ID
	p.Data[10] = 7
	inst.Unpin(id, true)

	if !inst.Flush(id) {
		t.Fatal("expected flush to succeed")
	}
	if dm.pages[id][10] != 7 {
		t.Fatal("expected flushed byte to reach disk")
	}
	if p.Dirty {
		t.Fatal("expected flush to clear the dirty flag")
	}
}
