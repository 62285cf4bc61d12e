package bufferpool

import (
	"sync"

	"github.com/halvardsen/pagepool/pkg/storage"
)

// ParallelPool shards the page-id space across N independent
// instances by `id mod N`, so a page's owning instance is a pure
// function of its id and every instance latches separately: two
// goroutines touching pages in different shards never contend on the
// same mutex.
type ParallelPool struct {
	shards []*Instance

	// startMu guards round-robin rotation of where NewPage begins its
	// search for a shard with room, so concurrent allocators fan out
	// across shards instead of piling onto shard 0.
	startMu    sync.Mutex
	startIndex int
}

// NewParallelPool creates shardCount instances of poolSize frames
// each, every instance backed by its own DiskManager (diskMgrs must
// have exactly shardCount entries, one data file per shard) and all
// sharing logMgr. Pass a nil logMgr for no write-ahead logging.
func NewParallelPool(poolSize int, diskMgrs []storage.DiskManager, logMgr storage.LogManager) (*ParallelPool, error) {
	shardCount := len(diskMgrs)
	if shardCount <= 0 {
		return nil, ErrInvalidShardCount
	}

	shards := make([]*Instance, shardCount)
	for i := 0; i < shardCount; i++ {
		inst, err := NewInstance(poolSize, diskMgrs[i], logMgr, i, shardCount)
		if err != nil {
			return nil, err
		}
		inst.SetInstanceTag(i)
		shards[i] = inst
	}
	return &ParallelPool{shards: shards}, nil
}

// ShardCount returns N.
func (p *ParallelPool) ShardCount() int {
	return len(p.shards)
}

// Shard returns the instance that owns page id id, per `id mod N`.
// A negative remainder is shifted by N so every id, negative ones
// included, maps into [0, N); InvalidPageID lands on shard N-1, whose
// operations treat it as a miss. The pool never hands out negative ids
// itself.
func (p *ParallelPool) Shard(id storage.PageID) *Instance {
	n := storage.PageID(len(p.shards))
	idx := int64(id) % int64(n)
	if idx < 0 {
		idx += int64(n)
	}
	return p.shards[idx]
}

// SetEventSink installs sink on every shard.
func (p *ParallelPool) SetEventSink(sink EventSink) {
	for _, s := range p.shards {
		s.SetEventSink(sink)
	}
}

// Fetch routes to the owning shard and fetches.
func (p *ParallelPool) Fetch(id storage.PageID) (*storage.Page, bool) {
	return p.Shard(id).Fetch(id)
}

// Unpin routes to the owning shard and unpins.
func (p *ParallelPool) Unpin(id storage.PageID, isDirty bool) bool {
	return p.Shard(id).Unpin(id, isDirty)
}

// Flush routes to the owning shard and flushes.
func (p *ParallelPool) Flush(id storage.PageID) bool {
	return p.Shard(id).Flush(id)
}

// Delete routes to the owning shard and deletes.
func (p *ParallelPool) Delete(id storage.PageID) bool {
	return p.Shard(id).Delete(id)
}

// FlushAll flushes every shard.
func (p *ParallelPool) FlushAll() {
	for _, s := range p.shards {
		s.FlushAll()
	}
}

// NewPage allocates a page on whichever shard has room, starting from
// a rotating index so repeated calls fan allocations out round-robin
// rather than always favoring shard 0. It returns false only when
// every shard is exhausted.
func (p *ParallelPool) NewPage() (*storage.Page, bool) {
	n := len(p.shards)

	p.startMu.Lock()
	start := p.startIndex
	p.startIndex = (p.startIndex + 1) % n
	p.startMu.Unlock()

	for i := 0; i < n; i++ {
		shard := p.shards[(start+i)%n]
		if page, ok := shard.NewPage(); ok {
			return page, true
		}
	}
	return nil, false
}

// Size returns the number of shards (N). The aggregate frame count is
// N times the per-shard pool size; Stats().Totals.Size reports it.
func (p *ParallelPool) Size() int {
	return len(p.shards)
}

// Stats aggregates per-shard Stats into totals, plus the per-shard
// breakdown for callers (the admin server) that want it.
type PoolStats struct {
	Shards []Stats
	Totals Stats
}

// Stats returns a snapshot of every shard plus the aggregate totals.
func (p *ParallelPool) Stats() PoolStats {
	out := PoolStats{Shards: make([]Stats, len(p.shards))}
	for i, s := range p.shards {
		st := s.Stats()
		out.Shards[i] = st
		out.Totals.Size += st.Size
		out.Totals.FramesFree += st.FramesFree
		out.Totals.FramesPinned += st.FramesPinned
		out.Totals.FramesResident += st.FramesResident
		out.Totals.Hits += st.Hits
		out.Totals.Misses += st.Misses
		out.Totals.Evictions += st.Evictions
	}
	return out
}
