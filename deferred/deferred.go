package deferred

import (
	"context"
	"fmt"
	"sync"

	"github.com/wippyai/lazyload/errors"
)

// Status is the lifecycle state of a deferred unit.
type Status int

const (
	Unstarted Status = iota
	Loading
	Resolved
)

func (s Status) String() string {
	switch s {
	case Unstarted:
		return "UNSTARTED"
	case Loading:
		return "LOADING"
	case Resolved:
		return "RESOLVED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// ImportFunc fetches a unit's code. It is invoked in its own goroutine.
type ImportFunc func(ctx context.Context) (any, error)

// Option configures a Deferred.
type Option func(*Deferred)

// WithContext sets the parent context handed to the import function.
// Cancellation of ctx is not propagated: a started import always runs to
// completion or failure.
func WithContext(ctx context.Context) Option {
	return func(d *Deferred) {
		d.ctx = context.WithoutCancel(ctx)
	}
}

// WithName labels the unit in fetch failure errors.
func WithName(name string) Option {
	return func(d *Deferred) {
		d.name = name
	}
}

// Deferred wraps an import function in an at-most-once deferred value.
// Preload and Start coalesce onto one attempt; a successful attempt is
// cached for the lifetime of the Deferred. Safe for concurrent use.
type Deferred struct {
	ctx     context.Context
	load    ImportFunc
	attempt *Future
	name    string
	result  Module
	mu      sync.Mutex
	status  Status
}

// New creates a Deferred for load. Nothing is fetched until Preload or Start.
func New(load ImportFunc, opts ...Option) *Deferred {
	d := &Deferred{
		ctx:  context.Background(),
		load: load,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Status returns the current lifecycle state.
func (d *Deferred) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Result returns the cached module, if the unit has resolved.
func (d *Deferred) Result() (Module, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != Resolved {
		return Module{}, false
	}
	return d.result, true
}

// Preload begins fetching without activating the unit. It is a no-op while
// an attempt is in flight or after resolution.
func (d *Deferred) Preload() {
	d.begin()
}

// Start returns the completion handle for the unit. When the unit already
// resolved the handle is complete on return and no fetch happens.
func (d *Deferred) Start() *Future {
	return d.begin()
}

func (d *Deferred) begin() *Future {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.status != Unstarted {
		return d.attempt
	}

	f := newFuture()
	d.transition(Unstarted, Loading)
	d.attempt = f
	go d.run(f)
	return f
}

func (d *Deferred) run(f *Future) {
	v, err := d.invoke()

	var mod Module
	d.mu.Lock()
	if err != nil {
		// Failed attempts are not cached; the next Preload/Start retries.
		d.transition(Loading, Unstarted)
		d.attempt = nil
		err = errors.FetchFailure(d.name, err)
	} else {
		mod = Normalize(v)
		d.result = mod
		d.transition(Loading, Resolved)
	}
	d.mu.Unlock()

	f.complete(mod, err)
}

func (d *Deferred) invoke() (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import panicked: %v", r)
		}
	}()
	if d.load == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "nil import function")
	}
	return d.load(d.ctx)
}

// transition moves the state machine; d.mu must be held.
func (d *Deferred) transition(from, to Status) {
	if d.status != from || !isAllowedTransition(from, to) {
		panic(fmt.Sprintf("deferred: invalid transition %s -> %s (current %s)", from, to, d.status))
	}
	d.status = to
}

func isAllowedTransition(from, to Status) bool {
	switch from {
	case Unstarted:
		return to == Loading
	case Loading:
		return to == Resolved || to == Unstarted
	default:
		return false
	}
}
