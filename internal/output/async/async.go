// Package async decouples comment producers from slow outputs such as
// webhooks.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crimson-sun/commentguard/internal/model"
	"github.com/crimson-sun/commentguard/internal/output"
)

const (
	defaultBufferSize   = 256
	defaultDrainTimeout = 5 * time.Second
)

// ErrClosed is returned by Write after Close.
var ErrClosed = errors.New("async output closed")

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the queue capacity. Default: 256.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithDrainTimeout bounds how long Close waits for queued comments. Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write drop the comment instead of blocking when the
// queue is full.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Async queues comments and writes them to the inner output from a
// background goroutine. Inner errors go to the error callback, never to
// the caller.
type Async struct {
	inner        output.Output
	ch           chan model.Comment
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	drainTimeout time.Duration
	dropOnFull   bool
	dropped      atomic.Int64

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// New wraps inner and starts the drain goroutine.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output write error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan model.Comment, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues c. It blocks while the queue is full unless WithDropOnFull
// was given, and gives up when ctx is done.
func (a *Async) Write(ctx context.Context, c model.Comment) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}

	if a.dropOnFull {
		select {
		case a.ch <- c:
		default:
			a.dropped.Add(1)
			slog.Warn("async output queue full, dropping comment",
				"comment_id", c.ID, "post", c.PostID)
		}
		return nil
	}

	select {
	case a.ch <- c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped reports how many comments were discarded because the queue was full.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting comments, waits up to the drain timeout for the
// queue to empty, then closes the inner output. Safe to call more than once.
func (a *Async) Close() error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.ch)
		a.mu.Unlock()

		select {
		case <-a.done:
		case <-time.After(a.drainTimeout):
			slog.Warn("async output drain timed out", "pending", len(a.ch))
		}
		a.closeErr = a.inner.Close()
	})
	return a.closeErr
}

func (a *Async) drain() {
	defer close(a.done)
	for c := range a.ch {
		if err := a.inner.Write(context.Background(), c); err != nil {
			a.errFunc(err)
		}
	}
}
