package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/event"
)

type Options struct {
	Async        bool
	Workers      int
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration

	// how long Publish waits for room in a full queue before handling the event inline
	EnqueueTimeout time.Duration
}

const defaultEnqueueTimeout = 500 * time.Millisecond

func OptionsFromConfig(conf *core.Config) Options {
	return Options{
		Async:        conf.Events.Async,
		Workers:      conf.Events.Workers,
		QueueSize:    conf.Events.QueueSize,
		MaxAttempts:  conf.Events.MaxAttempts,
		RetryBackoff: conf.Events.RetryBackoff,

		EnqueueTimeout: conf.Events.EnqueueTimeout,
	}
}

// Bus dispatches domain events to subscribed handlers.
// In sync mode handlers run inline, in the publisher's goroutine, once the triggering write is done.
// In async mode events are queued and handled by a pool of workers; Close drains the queue.
// Handler errors are retried up to MaxAttempts, then logged: they never reach the publisher.
type Bus struct {
	opts   Options
	logger core.Logger

	mu       sync.RWMutex
	handlers map[event.Kind][]event.Handler

	queue   chan event.Event
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

var (
	_ event.Publisher  = (*Bus)(nil)
	_ event.Subscriber = (*Bus)(nil)
)

func New(opts Options, logger core.Logger) *Bus {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	b := &Bus{
		opts:     opts,
		logger:   logger,
		handlers: make(map[event.Kind][]event.Handler),
	}
	if opts.Async {
		if opts.Workers < 1 {
			opts.Workers = 1
		}
		if opts.QueueSize < 0 {
			opts.QueueSize = 0
		}
		if opts.EnqueueTimeout <= 0 {
			opts.EnqueueTimeout = defaultEnqueueTimeout
		}
		b.opts = opts
		b.queue = make(chan event.Event, opts.QueueSize)
		for i := 0; i < opts.Workers; i++ {
			b.wg.Add(1)
			go b.work()
		}
	}
	return b
}

func (b *Bus) Subscribe(kind event.Kind, h event.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish never drops an event: when the queue stays full, or the bus is closed,
// the event is handled inline. The publisher's cancellation does not reach handlers.
func (b *Bus) Publish(ctx context.Context, events ...event.Event) {
	ctx = context.WithoutCancel(ctx)
	for _, ev := range events {
		if !b.opts.Async {
			b.dispatch(ctx, ev)
			continue
		}
		if !b.enqueue(ev) {
			b.logger.Warn(fmt.Sprintf("eventbus: queue unavailable, handling %s event %s inline", ev.Kind, ev.ID))
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Bus) enqueue(ev event.Event) bool {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.queue <- ev:
		return true
	default:
	}

	timer := time.NewTimer(b.opts.EnqueueTimeout)
	defer timer.Stop()
	select {
	case b.queue <- ev:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops accepting events and waits for the queued ones to be handled.
func (b *Bus) Close() {
	if !b.opts.Async {
		return
	}
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.closeMu.Unlock()
	b.wg.Wait()
}

func (b *Bus) work() {
	defer b.wg.Done()
	for ev := range b.queue {
		// handlers outlive the request that published the event
		b.dispatch(context.Background(), ev)
	}
}

func (b *Bus) dispatch(ctx context.Context, ev event.Event) {
	b.mu.RLock()
	handlers := append([]event.Handler(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.handle(ctx, h, ev)
	}
}

func (b *Bus) handle(ctx context.Context, h event.Handler, ev event.Event) {
	var err error
	for attempt := 1; attempt <= b.opts.MaxAttempts; attempt++ {
		ev.Attempt = attempt
		if err = b.call(ctx, h, ev); err == nil {
			return
		}
		if attempt < b.opts.MaxAttempts && b.opts.RetryBackoff > 0 {
			time.Sleep(time.Duration(attempt) * b.opts.RetryBackoff)
		}
	}
	b.logger.Error(
		fmt.Sprintf("eventbus: handling %s event %s failed after %d attempt(s): %v", ev.Kind, ev.ID, b.opts.MaxAttempts, err),
		err,
	)
}

// call runs a handler, turning panics into errors so one bad handler cannot take a worker down.
func (b *Bus) call(ctx context.Context, h event.Handler, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}
