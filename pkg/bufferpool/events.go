package bufferpool

import "github.com/halvardsen/pagepool/pkg/storage"

// EventKind categorizes a pool event published to an EventSink.
type EventKind string

const (
	EventFetchHit  EventKind = "fetch_hit"
	EventFetchMiss EventKind = "fetch_miss"
	EventNewPage   EventKind = "new_page"
	EventEvict     EventKind = "evict"
	EventUnpin     EventKind = "unpin"
	EventFlush     EventKind = "flush"
	EventDelete    EventKind = "delete"
)

// Event describes a single notable occurrence inside a pool instance.
// Instances are identified by index within their parent ParallelPool,
// or 0 for a standalone Instance.
type Event struct {
	Kind     EventKind
	Instance int
	PageID   storage.PageID
	FrameID  FrameID
}

// EventSink receives pool events. Publish must not block and must not
// call back into the pool that invoked it; instances call sinks
// synchronously while holding their own lock, so a slow sink delays
// every operation on the publishing shard, not only the goroutine
// that triggered the event.
type EventSink interface {
	Publish(Event)
}

// EventSinkFunc adapts a plain function to an EventSink.
type EventSinkFunc func(Event)

// Publish calls f.
func (f EventSinkFunc) Publish(e Event) { f(e) }

// nopSink is the default sink when none is configured.
type nopSink struct{}

func (nopSink) Publish(Event) {}
