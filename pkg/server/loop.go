package server

import (
	"context"
	"errors"
)

var errLoopStopped = errors.New("event loop stopped")

// eventLoop runs every operation on the render tree on a single goroutine, so
// reconcile passes and user interactions never interleave.
type eventLoop struct {
	ops  chan func()
	done chan struct{}
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		ops:  make(chan func(), 64),
		done: make(chan struct{}),
	}
}

func (l *eventLoop) run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-l.ops:
			op()
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (l *eventLoop) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.ops <- op:
	case <-l.done:
		return errLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop may have stopped before picking op up.
		select {
		case <-finished:
			return nil
		default:
			return errLoopStopped
		}
	}
}
