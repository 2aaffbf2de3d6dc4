package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-fashion/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
)

var ErrBusStopped = errors.New("outbox: bus stopped")

const (
	componentOutbox       = "outbox"
	defaultQueueSize      = 1024
	defaultConcurrency    = 8
	defaultHandlerTimeout = 30 * time.Second
	defaultSinkTimeout    = 5 * time.Second
)

// Bus is an in-memory event bus with per-event handler fanout and optional
// sinks that receive every event. It is not durable: events still queued when
// the process dies are lost.
type Bus struct {
	mu    sync.RWMutex // guards subs and sinks
	subs  map[string][]domoutbox.Handler
	sinks []domoutbox.Sink

	stateMu sync.RWMutex // guards stopped, started and sends on queue
	queue   chan domoutbox.Event
	stopped bool
	started bool
	drained chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	concurrency    int
	handlerTimeout time.Duration
	sinkTimeout    time.Duration

	log          observability.Logger
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

type Option func(*Bus)

func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan domoutbox.Event, n)
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithHandlerTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

// NewBus creates a bus with a buffered queue and a concurrency cap.
func NewBus(tel observability.Observability, opts ...Option) *Bus {
	if tel == nil {
		tel = observability.Nop()
	}
	b := &Bus{
		subs:           make(map[string][]domoutbox.Handler),
		queue:          make(chan domoutbox.Event, defaultQueueSize),
		drained:        make(chan struct{}),
		concurrency:    defaultConcurrency,
		handlerTimeout: defaultHandlerTimeout,
		sinkTimeout:    defaultSinkTimeout,
		log:            tel.Logger().With(observability.F("component", componentOutbox)),
		extCounter:     tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram:   tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// AddSink registers a sink that receives every event after its handlers ran.
func (b *Bus) AddSink(s domoutbox.Sink) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		b.stateMu.Lock()
		b.started = true
		b.stateMu.Unlock()

		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events and waits until queued ones are dispatched or ctx expires.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.stateMu.Lock()
		b.stopped = true
		started := b.started
		close(b.queue)
		b.stateMu.Unlock()

		logger := logctx.FromOr(ctx, b.log)
		if started {
			select {
			case <-b.drained:
			case <-ctx.Done():
				logger.Warn("event_bus_drain_aborted", observability.F("error", ctx.Err()))
			}
		}
		logger.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}

	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if b.stopped {
		return ErrBusStopped
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted",
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.drained)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	sinks := append([]domoutbox.Sink(nil), b.sinks...)
	b.mu.RUnlock()

	logger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 && len(sinks) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return
	}

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

			hctx, cancel := context.WithTimeout(ctx, b.handlerTimeout)
			defer cancel()
			hctx = logctx.With(hctx, logger)
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error",
					observability.F("error", err),
				)
			}
		}()
	}
	wg.Wait()

	for _, s := range sinks {
		b.forward(ctx, logger, s, e)
	}

	logger.Debug("event_fanned_out",
		observability.F("handlers", len(handlers)),
		observability.F("sinks", len(sinks)),
	)
}

func (b *Bus) forward(ctx context.Context, logger observability.Logger, s domoutbox.Sink, e domoutbox.Event) {
	sctx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := s.Forward(sctx, e)
	if err != nil {
		outcome = "error"
		logger.Warn("event_forward_failed",
			observability.F("sink", s.Name()),
			observability.F("error", err),
		)
	}

	b.extCounter.Add(1,
		observability.L("peer", s.Name()),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	b.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", s.Name()),
		observability.L("endpoint", e.EventName()),
	)
}
