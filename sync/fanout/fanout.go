// Package fanout runs independent jobs on a bounded set of workers.
package fanout

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrFull chan full.
	ErrFull = errors.New("fanout: chan full")
	// ErrClosed fanout closed.
	ErrClosed = errors.New("fanout: closed")
	tracer    = otel.Tracer("github.com/mohamedhabibwork/abp-script/sync/fanout")
)

type options struct {
	worker int
	buffer int
	logger *log.Helper
}

// Option fanout option
type Option func(*options)

// WithWorker specifies the worker of fanout
func WithWorker(n int) Option {
	if n <= 0 {
		panic("fanout: worker should > 0")
	}
	return func(o *options) {
		o.worker = n
	}
}

// WithBuffer specifies the buffer of fanout
func WithBuffer(n int) Option {
	if n <= 0 {
		panic("fanout: buffer should > 0")
	}
	return func(o *options) {
		o.buffer = n
	}
}

// WithLogger specifies the logger of fanout
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(log.With(l, "module", "fanout", "caller", log.DefaultCaller))
	}
}

type item struct {
	f   func(c context.Context)
	ctx context.Context
}

// Fanout consumes jobs from a channel. Close drains the jobs already accepted.
type Fanout struct {
	name    string
	ch      chan item
	options *options
	waiter  sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New a fanout struct.
func New(name string, opts ...Option) *Fanout {
	if name == "" {
		name = "anonymous"
	}
	o := &options{
		worker: 1,
		buffer: 1024,
		logger: log.NewHelper(log.With(log.DefaultLogger, "module", "fanout", "caller", log.DefaultCaller)),
	}
	for _, op := range opts {
		op(o)
	}
	c := &Fanout{
		ch:      make(chan item, o.buffer),
		name:    name,
		options: o,
	}
	c.waiter.Add(o.worker)
	for i := 0; i < o.worker; i++ {
		go c.proc()
	}
	return c
}

func (c *Fanout) proc() {
	defer c.waiter.Done()
	for t := range c.ch {
		wrapFunc(t.f, c.options.logger)(t.ctx)
	}
}

func wrapFunc(f func(c context.Context), logger *log.Helper) (res func(context.Context)) {
	res = func(ctx context.Context) {
		span := trace.SpanFromContext(ctx)
		defer span.End()
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 64<<10)
				buf = buf[:runtime.Stack(buf, false)]
				logger.WithContext(ctx).Errorf("err: %s, stack: %s", r, buf)
				span.SetStatus(codes.Error, fmt.Sprintf("%s", r))
			}
		}()
		f(ctx)
	}
	return
}

// Do save a callback func. It never blocks: ErrFull is returned when the buffer
// is full. The job outlives ctx, only its span is carried over.
func (c *Fanout) Do(ctx context.Context, f func(ctx context.Context)) error {
	return c.submit(ctx, f, false)
}

// Submit saves a callback func, waiting for buffer space until ctx is done. The
// job runs with ctx, so it sees the caller's cancellation.
func (c *Fanout) Submit(ctx context.Context, f func(ctx context.Context)) error {
	return c.submit(ctx, f, true)
}

func (c *Fanout) submit(ctx context.Context, f func(ctx context.Context), wait bool) (err error) {
	if f == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	_, span := tracer.Start(ctx, "fanout:"+c.name, trace.WithSpanKind(trace.SpanKindInternal))
	base := context.Background()
	if wait {
		base = ctx
	}
	sc := trace.ContextWithSpan(base, span)
	it := item{f: f, ctx: sc}
	if wait {
		select {
		case c.ch <- it:
		case <-ctx.Done():
			err = ctx.Err()
		}
	} else {
		select {
		case c.ch <- it:
		default:
			err = ErrFull
		}
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.End()
	}
	return
}

// Close stops accepting jobs and waits for the accepted ones to finish.
func (c *Fanout) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	close(c.ch)
	c.mu.Unlock()
	c.waiter.Wait()
	return nil
}
