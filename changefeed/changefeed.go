// Package changefeed broadcasts document_version bumps to interested
// observers without coupling the editor's synchronous command path to how
// many hosts are listening, or whether any are.
//
// It wraps a single github.com/guiguan/caster.Caster: the teacher's go.mod
// requires caster directly but never uses it in-tree, so this package gives
// that dependency the home the original project evidently planned for it.
// Cast is non-blocking by design (a slow or absent subscriber never stalls
// a Pub), matching spec.md §5's single-threaded, non-suspending execution
// model: the feed is a courtesy signal, never on the command path.
package changefeed

import (
	"sync"

	"github.com/guiguan/caster"

	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("changefeed")
}

// Feed fans out document_version values to any number of subscribers,
// behind the single-channel Versions() shape spec.md §6 names. Every
// subscription's pump goroutine and the underlying caster subscription are
// tracked so Close releases all of them together, since callers of
// Versions() are never handed anything to cancel individually.
type Feed struct {
	c *caster.Caster

	mu      sync.Mutex
	cancels []func()
}

// New creates an empty feed.
func New() *Feed {
	return &Feed{c: caster.New(0)}
}

// Publish casts the current document_version to every active subscriber.
// It never blocks: a subscriber that isn't ready to receive simply misses
// this value.
func (f *Feed) Publish(version uint64) {
	if err := f.c.Pub(version); err != nil {
		tracer().Debugf("publish version %d: %v", version, err)
	}
}

// Versions returns a channel of future document_version values. The
// channel is closed when Close is called; there is no per-subscription
// unsubscribe, matching the courtesy, fire-and-forget nature of the feed.
func (f *Feed) Versions() <-chan uint64 {
	sub, cancel := f.c.Sub()
	f.mu.Lock()
	f.cancels = append(f.cancels, cancel)
	f.mu.Unlock()

	out := make(chan uint64, 1)
	go func() {
		defer close(out)
		for v := range sub {
			version, ok := v.(uint64)
			if !ok {
				continue
			}
			select {
			case out <- version:
			default:
			}
		}
	}()
	return out
}

// Close shuts the feed down, releasing every subscription and closing
// their channels.
func (f *Feed) Close() {
	f.mu.Lock()
	cancels := f.cancels
	f.cancels = nil
	f.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
	f.c.Close()
}
