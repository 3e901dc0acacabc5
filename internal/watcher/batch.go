package watcher

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/conneroisu/rune/internal/logging"
)

// merge folds a later change to the same path into an earlier one. ok is
// false when the two cancel out.
func merge(prev, next ChangeEvent) (ChangeEvent, bool) {
	switch {
	case prev.Type == EventTypeCreated && next.Type == EventTypeDeleted:
		return ChangeEvent{}, false
	case prev.Type == EventTypeCreated && next.Type == EventTypeModified:
		next.Type = EventTypeCreated
	case prev.Type == EventTypeDeleted && next.Type == EventTypeCreated:
		next.Type = EventTypeModified
	}

	return next, true
}

// batcher collects changes until delay passes without a new one, then
// emits them as one batch sorted by path. Only run touches pending.
type batcher struct {
	delay  time.Duration
	in     chan ChangeEvent
	out    chan []ChangeEvent
	logger logging.Logger
	// overflow is set when a change was dropped since the last batch.
	overflow atomic.Bool
}

func newBatcher(delay time.Duration, logger logging.Logger) *batcher {
	if logger == nil {
		logger = logging.Discard()
	}

	return &batcher{
		delay:  delay,
		in:     make(chan ChangeEvent, 256),
		out:    make(chan []ChangeEvent, 8),
		logger: logger,
	}
}

// add queues ev. When the queue is full the change is dropped and the next
// batch carries an EventTypeOverflow event instead.
func (b *batcher) add(ev ChangeEvent) {
	select {
	case b.in <- ev:
	default:
		if b.overflow.CompareAndSwap(false, true) {
			b.logger.Warn(context.Background(), nil, "Change queue full, dropping changes", "path", ev.Path)
		}
	}
}

func (b *batcher) batches() <-chan []ChangeEvent { return b.out }

func (b *batcher) run(ctx context.Context) {
	pending := make(map[string]ChangeEvent)
	timer := time.NewTimer(b.delay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-b.in:
			if prev, ok := pending[ev.Path]; ok {
				merged, keep := merge(prev, ev)
				if !keep {
					delete(pending, ev.Path)
					break
				}
				ev = merged
			}
			pending[ev.Path] = ev
			timer.Reset(b.delay)

		case <-timer.C:
			dropped := b.overflow.Swap(false)
			if len(pending) == 0 && !dropped {
				continue
			}
			batch := make([]ChangeEvent, 0, len(pending)+1)
			for _, ev := range pending {
				batch = append(batch, ev)
			}
			if dropped {
				batch = append(batch, ChangeEvent{Type: EventTypeOverflow, ModTime: time.Now()})
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			pending = make(map[string]ChangeEvent)

			select {
			case b.out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}
