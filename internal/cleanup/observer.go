package cleanup

import (
	"context"
	"sync"
	"sync/atomic"
)

// Observer receives progress snapshots on the worker goroutine. It must not block.
type Observer interface {
	OnProgress(p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(p Progress)

// OnProgress implements Observer.
func (f ObserverFunc) OnProgress(p Progress) {
	f(p)
}

// Notifier receives the summary of every finished run.
type Notifier interface {
	Notify(ctx context.Context, r Result) error
}

// ChannelObserver forwards snapshots over a bounded channel. Intermediate
// ticks are dropped when the reader falls behind; the terminal snapshot
// always replaces the oldest queued one. The channel is closed after the
// terminal snapshot, so one observer serves one run.
type ChannelObserver struct {
	ch      chan Progress
	once    sync.Once
	dropped atomic.Int64
}

// NewChannelObserver creates an observer with room for size queued snapshots.
func NewChannelObserver(size int) *ChannelObserver {
	if size < 1 {
		size = 1
	}
	return &ChannelObserver{ch: make(chan Progress, size)}
}

// C returns the receive side.
func (c *ChannelObserver) C() <-chan Progress {
	return c.ch
}

// Dropped reports how many ticks were discarded.
func (c *ChannelObserver) Dropped() int64 {
	return c.dropped.Load()
}

// OnProgress implements Observer.
func (c *ChannelObserver) OnProgress(p Progress) {
	if !p.State.Terminal() {
		select {
		case c.ch <- p:
		default:
			c.dropped.Add(1)
		}
		return
	}

	c.once.Do(func() {
		for {
			select {
			case c.ch <- p:
				close(c.ch)
				return
			default:
			}
			select {
			case <-c.ch:
				c.dropped.Add(1)
			default:
			}
		}
	})
}
