package phase

import (
	"sync"

	"github.com/wippyai/lazyload/errors"
)

type subscription struct {
	fn        func(Phase)
	id        uint64
	threshold Phase
}

// Scheduler owns one session's monotonic render phase and notifies
// subscribers when their threshold is crossed. A Scheduler must not be
// shared across requests.
type Scheduler struct {
	subs   []subscription
	nextID uint64
	mu     sync.Mutex
	phase  Phase
	pinned bool
}

// New creates a client scheduler starting at Immediate.
func New() *Scheduler {
	return &Scheduler{phase: Immediate}
}

// NewPinned creates a server scheduler that stays at Immediate for the
// whole pass; Advance and AdvanceTo are no-ops.
func NewPinned() *Scheduler {
	return &Scheduler{phase: Immediate, pinned: true}
}

// Pinned reports whether the scheduler ignores advances.
func (s *Scheduler) Pinned() bool {
	return s.pinned
}

// Current returns the current phase.
func (s *Scheduler) Current() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Len returns the number of subscribers still waiting for their threshold.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Advance moves to the next phase and returns it. At Terminal, or on a
// pinned scheduler, it is a no-op. Subscribers whose threshold was crossed
// run synchronously, in registration order, before Advance returns.
func (s *Scheduler) Advance() Phase {
	s.mu.Lock()
	if s.pinned || s.phase >= Terminal {
		p := s.phase
		s.mu.Unlock()
		return p
	}
	s.phase++
	p := s.phase
	due := s.takeDue(p)
	s.mu.Unlock()

	for _, sub := range due {
		sub.fn(p)
	}
	return p
}

// AdvanceTo advances one phase at a time until target is reached. A target
// below the current phase is rejected without changing state.
func (s *Scheduler) AdvanceTo(target Phase) error {
	if !target.Valid() {
		return errors.InvalidInput(errors.PhaseSchedule, "unknown phase "+target.String())
	}
	if s.pinned {
		return nil
	}
	cur := s.Current()
	if target < cur {
		return errors.PhaseRegression(cur, target)
	}
	for cur < target {
		next := s.Advance()
		if next == cur {
			break
		}
		cur = next
	}
	return nil
}

// Subscribe registers fn to run once when the phase first reaches or
// exceeds threshold. When threshold is already satisfied fn runs before
// Subscribe returns. The returned func removes a pending subscription and is
// safe to call more than once.
func (s *Scheduler) Subscribe(threshold Phase, fn func(Phase)) (unsubscribe func()) {
	s.mu.Lock()
	if s.phase >= threshold {
		p := s.phase
		s.mu.Unlock()
		fn(p)
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, threshold: threshold, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

// takeDue removes and returns, in registration order, the subscribers
// satisfied at p; s.mu must be held.
func (s *Scheduler) takeDue(p Phase) []subscription {
	var due []subscription
	kept := s.subs[:0]
	for _, sub := range s.subs {
		if sub.threshold <= p {
			due = append(due, sub)
			continue
		}
		kept = append(kept, sub)
	}
	for i := len(kept); i < len(s.subs); i++ {
		s.subs[i] = subscription{}
	}
	s.subs = kept
	return due
}

func (s *Scheduler) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}
