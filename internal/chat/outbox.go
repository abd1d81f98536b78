package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	ErrOutboxFull   = errors.New("export outbox full")
	ErrOutboxClosed = errors.New("export outbox closed")
)

// Outbox decouples callers from a slow Exporter. Export only enqueues; a
// single goroutine forwards events to the wrapped exporter in order. When the
// queue is full the event is dropped.
type Outbox struct {
	next  Exporter
	queue chan queuedEvent
	log   *slog.Logger

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

type queuedEvent struct {
	ctx context.Context
	evt ExportEvent
}

func NewOutbox(next Exporter, size int, log *slog.Logger) *Outbox {
	if size <= 0 {
		size = 1
	}
	o := &Outbox{
		next:  next,
		queue: make(chan queuedEvent, size),
		log:   log,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *Outbox) Export(ctx context.Context, evt ExportEvent) error {
	select {
	case <-o.stop:
		return ErrOutboxClosed
	default:
	}

	// the caller's request may end before the event is forwarded
	item := queuedEvent{ctx: context.WithoutCancel(ctx), evt: evt}
	select {
	case o.queue <- item:
		return nil
	default:
		o.dropped.Add(1)
		return ErrOutboxFull
	}
}

// Dropped reports how many events were refused because the queue was full.
func (o *Outbox) Dropped() int64 {
	return o.dropped.Load()
}

// Close stops accepting events and forwards what is already queued, giving
// up when ctx is done.
func (o *Outbox) Close(ctx context.Context) error {
	o.closeOnce.Do(func() { close(o.stop) })
	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Outbox) run() {
	defer close(o.done)
	for {
		select {
		case item := <-o.queue:
			o.forward(item)
		case <-o.stop:
			for {
				select {
				case item := <-o.queue:
					o.forward(item)
				default:
					return
				}
			}
		}
	}
}

func (o *Outbox) forward(item queuedEvent) {
	if err := o.next.Export(item.ctx, item.evt); err != nil {
		o.log.Warn("event export failed", "kind", item.evt.Kind, "err", err)
	}
}
