package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
)

// Subscription is one running feed.
//
// C is closed when the feed ends: after Cancel, after the parent context is
// done, or on a terminal error (see Err).
type Subscription[T any] struct {
	c      chan T
	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

func subscribe[T any](parent context.Context, buffer int, run func(ctx context.Context, out chan<- T) error) *Subscription[T] {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription[T]{
		c:      make(chan T, buffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer close(s.done)
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
				}
			}()
			return run(ctx, s.c)
		}()
		cancel()
		s.err = err
		close(s.c)
	}()
	return s
}

func (s *Subscription[T]) C() <-chan T { return s.c }

// Done is closed after the feed has released every resource.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Err blocks until the feed has ended and returns its terminal error.
// It is nil when the feed was cancelled.
func (s *Subscription[T]) Err() error {
	<-s.done
	return s.err
}

// Cancel stops the feed and waits until its watch, jobs and executions are
// released.
func (s *Subscription[T]) Cancel() {
	s.cancel()
	<-s.done
}

func send[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
