// Package autosave implements the debounced save trigger for an
// assessment session. The scheduler is an explicit state machine with
// states idle, armed and saving; its guard is the only mutual
// exclusion around saves, so at most one save is ever in flight per
// session.
package autosave

import (
	"sync"
	"time"
)

// DefaultDelay is the inactivity window after the last edit before an
// autosave fires.
const DefaultDelay = 8 * time.Second

type State int

const (
	Idle State = iota
	Armed
	Saving
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Saving:
		return "saving"
	default:
		return "unknown"
	}
}

// Scheduler debounces save triggers. Arm replaces any pending timer,
// so only the last edit in a burst schedules the fire. The save
// callback runs on the timer goroutine; failures inside it are the
// caller's to report and are never retried here.
type Scheduler struct {
	mu    sync.Mutex
	state State
	delay time.Duration
	timer *time.Timer
	save  func()
}

// New creates a scheduler that invokes save after delay elapses with
// no intervening Arm. A non-positive delay falls back to DefaultDelay.
func New(delay time.Duration, save func()) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{delay: delay, save: save}
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Arm schedules (or reschedules) the save timer. Arming while a save
// is in flight is dropped: the next edit after completion re-arms.
func (s *Scheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Saving {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = Armed
	s.timer = time.AfterFunc(s.delay, s.fire)
}

// Cancel disarms a pending timer without saving. Used when the session
// closes; an in-flight save is left to complete.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.state == Armed {
		s.state = Idle
	}
}

// BeginSave claims the saving slot for a manual save, cancelling any
// pending timer so the elapsed window cannot fire a duplicate save
// right after. Returns false when a save is already in flight; the
// request is dropped, not queued.
func (s *Scheduler) BeginSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Saving {
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = Saving
	return true
}

// Done releases the saving slot. Called on save completion, success or
// failure alike.
func (s *Scheduler) Done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Saving {
		s.state = Idle
	}
}

// fire runs on timer expiry: armed -> saving, invoke the callback
// exactly once, then back to idle.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.state != Armed {
		s.mu.Unlock()
		return
	}
	s.state = Saving
	s.timer = nil
	s.mu.Unlock()

	s.save()
	s.Done()
}
