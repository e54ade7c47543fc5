package reveal

import (
	"sync"
	"time"
)

// Scheduler paces visible assistant text at a steady cadence, decoupled from
// the bursty arrival of network chunks. Characters are revealed per tick at
// baseStep; whenever the target grows, a catch-up deadline of catchupWindow
// ticks is armed and the per-tick step is sized against the ticks left on
// that deadline, so the backlog is fully revealed within catchupWindow ticks
// of the last growth even under a flood of late chunks.
type Scheduler struct {
	mu              sync.Mutex
	baseStep        int
	catchupWindow   int
	ticksLeft       int
	target          []rune
	revealed        int
	pendingFinalize func()
	onReveal        func(visible string)
	stop            chan struct{}
	stopOnce        sync.Once
}

// NewScheduler creates a scheduler delivering visible prefixes to onReveal.
func NewScheduler(baseStep, catchupWindow int, onReveal func(string)) *Scheduler {
	if baseStep < 1 {
		baseStep = 1
	}
	if catchupWindow < 1 {
		catchupWindow = 1
	}
	return &Scheduler{
		baseStep:      baseStep,
		catchupWindow: catchupWindow,
		ticksLeft:     catchupWindow,
		onReveal:      onReveal,
		stop:          make(chan struct{}),
	}
}

// Run ticks the scheduler at the given interval until Stop is called.
func (s *Scheduler) Run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Stop terminates a running Run loop.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// SetTarget switches the active reveal target to a new message, resetting
// progress. Any finalize queued for the previous target is discarded.
func (s *Scheduler) SetTarget(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = []rune(text)
	s.revealed = 0
	s.ticksLeft = s.catchupWindow
	s.pendingFinalize = nil
}

// Append grows the current target with newly arrived text and re-arms the
// catch-up deadline.
func (s *Scheduler) Append(delta string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = append(s.target, []rune(delta)...)
	s.ticksLeft = s.catchupWindow
}

// Finalize runs fn once the full target is revealed: immediately if no
// reveal is in progress, otherwise queued behind the in-flight animation.
func (s *Scheduler) Finalize(fn func()) {
	s.mu.Lock()
	if s.revealed == len(s.target) {
		s.mu.Unlock()
		fn()
		return
	}
	s.pendingFinalize = fn
	s.mu.Unlock()
}

// Tick advances the reveal by one step and fires callbacks. Exposed so the
// cadence can be driven deterministically in tests.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	remaining := len(s.target) - s.revealed
	if remaining <= 0 {
		s.mu.Unlock()
		return
	}

	// Sizing the step against the ticks left on the deadline, not the full
	// window, makes the bound exact: once ticksLeft reaches 1 the whole
	// backlog goes out in one step.
	step := s.baseStep
	if catchup := (remaining + s.ticksLeft - 1) / s.ticksLeft; catchup > step {
		step = catchup
	}
	if step > remaining {
		step = remaining
	}
	if s.ticksLeft > 1 {
		s.ticksLeft--
	}
	s.revealed += step
	visible := string(s.target[:s.revealed])

	var finalize func()
	if s.revealed == len(s.target) && s.pendingFinalize != nil {
		finalize = s.pendingFinalize
		s.pendingFinalize = nil
	}
	onReveal := s.onReveal
	s.mu.Unlock()

	if onReveal != nil {
		onReveal(visible)
	}
	if finalize != nil {
		finalize()
	}
}

// Revealed returns how many characters are currently visible.
func (s *Scheduler) Revealed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed
}

// TargetLen returns the length of the current target in characters.
func (s *Scheduler) TargetLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.target)
}
