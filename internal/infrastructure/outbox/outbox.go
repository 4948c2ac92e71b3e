package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/pantrychef/pantry/internal/domain/outbox"
	"github.com/pantrychef/pantry/internal/observability"
	"github.com/pantrychef/pantry/internal/observability/logctx"
)

var ErrBusClosed = errors.New("outbox: bus closed")

const componentOutbox = "outbox"

// Bus is an in-memory event bus with a buffered queue and bounded handler fanout.
// It is not durable: events still queued when the process dies are lost.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	queueMu     sync.RWMutex
	queue       chan domoutbox.Event
	closed      bool
	done        chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
	concurrency int
	timeout     time.Duration
	log         observability.Logger
}

type Options struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = 30 * time.Second
	}
	return o
}

func NewBus(logger observability.Logger, opts Options) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	opts = opts.withDefaults()
	return &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan domoutbox.Event, opts.QueueSize),
		done:        make(chan struct{}),
		concurrency: opts.Concurrency,
		timeout:     opts.HandlerTimeout,
		log:         logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events, lets the queued ones drain and waits for the
// dispatcher to exit or ctx to end.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.queueMu.Lock()
		b.closed = true
		close(b.queue)
		b.queueMu.Unlock()

		// A bus that never started has no dispatcher to wait for.
		b.startOnce.Do(func() { close(b.done) })

		logger := logctx.FromOr(ctx, b.log)
		select {
		case <-b.done:
			logger.Info("event_bus_stopped")
		case <-ctx.Done():
			logger.Warn("event_bus_stop_timeout", observability.F("pending", len(b.queue)))
		}
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	b.queueMu.RLock()
	defer b.queueMu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- e:
		logctx.FromOr(ctx, b.log).Debug("event_enqueued", observability.F("event", e.EventName()))
		return nil
	case <-ctx.Done():
		logctx.FromOr(ctx, b.log).Warn("event_enqueue_aborted",
			observability.F("event", e.EventName()),
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	logger := b.log.With(observability.F("event", name))
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()
			if err := h(logctx.With(hctx, logger), e); err != nil {
				logger.Warn("event_handler_error", observability.F("error", err))
			}
		}()
	}

	wg.Wait()
	logger.Debug("event_fanned_out", observability.F("handlers", len(handlers)))
}
