package deferred

import (
	"context"

	"github.com/wippyai/lazyload/errors"
)

// ErrPending is returned by Future.Result before the future completes.
var ErrPending = errors.New(errors.PhaseLoad, errors.KindNotInitialized).Detail("future pending").Build()

// Future is a single-producer, multi-consumer completion handle for one
// import attempt. It completes exactly once.
type Future struct {
	done chan struct{}
	err  error
	mod  Module
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete must be called exactly once, by the attempt that owns the future.
func (f *Future) complete(mod Module, err error) {
	f.mod = mod
	f.err = err
	close(f.done)
}

// Done returns a channel closed once the attempt finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the attempt finished, successfully or not.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome without blocking. Before completion it
// returns ErrPending.
func (f *Future) Result() (Module, error) {
	if !f.Ready() {
		return Module{}, ErrPending
	}
	return f.mod, f.err
}

// Wait blocks until the attempt finishes or ctx is done. Giving up on ctx
// does not cancel the attempt.
func (f *Future) Wait(ctx context.Context) (Module, error) {
	select {
	case <-f.done:
		return f.mod, f.err
	case <-ctx.Done():
		return Module{}, ctx.Err()
	}
}
