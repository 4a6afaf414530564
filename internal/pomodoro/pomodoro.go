// Package pomodoro implements the work/break timer: a finite-state machine
// (stopped -> work -> short_break|long_break -> stopped) driven by a one
// second tick goroutine. Observers consume value snapshots and an event
// channel; nothing outside the package touches the authoritative state.
package pomodoro

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/config"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// EventKind discriminates timer notifications.
type EventKind string

const (
	EventTick        EventKind = "tick"
	EventStateChange EventKind = "state_change"
	EventComplete    EventKind = "complete"
)

// Event is a timer notification. State is a snapshot taken at emit time;
// Old/New are set for state changes, Period for completions.
type Event struct {
	Kind   EventKind
	State  types.PomodoroState
	Old    types.TimerState
	New    types.TimerState
	Period types.TimerState
}

// Timer is the pomodoro timer. All mutation happens under mu; the tick loop
// is restarted on every state change and joined with a bounded timeout on
// Stop.
type Timer struct {
	mu     sync.Mutex
	state  types.PomodoroState
	logger *zap.Logger

	tickInterval time.Duration
	stopCh       chan struct{}
	doneCh       chan struct{}

	events chan Event
}

// Option customizes a Timer.
type Option func(*Timer)

// WithTickInterval shortens the tick period for tests.
func WithTickInterval(d time.Duration) Option {
	return func(t *Timer) { t.tickInterval = d }
}

// NewTimer builds a stopped timer from config.
func NewTimer(cfg config.PomodoroConfig, logger *zap.Logger, opts ...Option) *Timer {
	t := &Timer{
		state: types.PomodoroState{
			CurrentState:       types.TimerStopped,
			WorkMinutes:        cfg.WorkMinutes,
			ShortBreakMinutes:  cfg.ShortBreakMinutes,
			LongBreakMinutes:   cfg.LongBreakMinutes,
			PomodorosUntilLong: cfg.PomodorosUntilLong,
		},
		logger:       logger,
		tickInterval: time.Second,
		events:       make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Events exposes the timer's notification channel. Sends are non-blocking;
// a full channel drops the oldest kind of traffic (ticks) implicitly by
// dropping the new event.
func (t *Timer) Events() <-chan Event {
	return t.events
}

// Snapshot returns a value copy of the current state.
func (t *Timer) Snapshot() types.PomodoroState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// DisplayTime formats the remaining time as MM:SS.
func (t *Timer) DisplayTime() string {
	return t.Snapshot().DisplayTime()
}

// StartWork begins a work period.
func (t *Timer) StartWork() {
	t.startPeriod(types.TimerWork, t.Snapshot().WorkMinutes)
}

// StartShortBreak begins a short break.
func (t *Timer) StartShortBreak() {
	t.startPeriod(types.TimerShortBreak, t.Snapshot().ShortBreakMinutes)
}

// StartLongBreak begins a long break.
func (t *Timer) StartLongBreak() {
	t.startPeriod(types.TimerLongBreak, t.Snapshot().LongBreakMinutes)
}

func (t *Timer) startPeriod(state types.TimerState, minutes int) {
	t.mu.Lock()
	old := t.state.CurrentState
	t.state.CurrentState = state
	t.state.TimeRemainingSeconds = minutes * 60
	t.state.IsPaused = false
	snap := t.state
	t.mu.Unlock()

	if old != state {
		t.emit(Event{Kind: EventStateChange, State: snap, Old: old, New: state})
	}
	t.restartLoop()
	t.logger.Info("pomodoro period started",
		zap.String("state", string(state)), zap.Int("minutes", minutes))
}

// Pause stops the tick loop without losing remaining time. Idempotent.
func (t *Timer) Pause() {
	t.mu.Lock()
	if t.state.CurrentState == types.TimerStopped || t.state.IsPaused {
		t.mu.Unlock()
		return
	}
	t.state.IsPaused = true
	t.mu.Unlock()

	t.cancelLoop()
	t.logger.Info("pomodoro paused")
}

// Resume restarts the tick loop from the preserved remaining time.
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.state.CurrentState == types.TimerStopped || !t.state.IsPaused {
		t.mu.Unlock()
		return
	}
	t.state.IsPaused = false
	t.mu.Unlock()

	t.restartLoop()
	t.logger.Info("pomodoro resumed")
}

// Stop forces a transition to stopped. No-op when already stopped.
func (t *Timer) Stop() {
	t.mu.Lock()
	old := t.state.CurrentState
	if old == types.TimerStopped {
		t.mu.Unlock()
		return
	}
	t.state.CurrentState = types.TimerStopped
	t.state.TimeRemainingSeconds = 0
	t.state.IsPaused = false
	snap := t.state
	t.mu.Unlock()

	t.cancelLoop()
	t.emit(Event{Kind: EventStateChange, State: snap, Old: old, New: types.TimerStopped})
	t.logger.Info("pomodoro stopped")
}

// Reset stops the timer and zeroes the completed count.
func (t *Timer) Reset() {
	t.Stop()
	t.mu.Lock()
	t.state.PomodorosCompleted = 0
	t.mu.Unlock()
}

// Skip forces completion handling of the current period without waiting for
// the countdown.
func (t *Timer) Skip() {
	switch t.Snapshot().CurrentState {
	case types.TimerWork:
		t.completeWork()
	case types.TimerShortBreak, types.TimerLongBreak:
		t.completeBreak()
	}
}

// restartLoop joins any running loop, then starts a fresh one.
func (t *Timer) restartLoop() {
	t.cancelLoop()

	t.mu.Lock()
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	stopCh, doneCh := t.stopCh, t.doneCh
	t.mu.Unlock()

	go t.loop(stopCh, doneCh)
}

// cancelLoop signals the tick loop and joins it with a bounded timeout.
func (t *Timer) cancelLoop() {
	t.mu.Lock()
	stopCh, doneCh := t.stopCh, t.doneCh
	t.stopCh, t.doneCh = nil, nil
	t.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		t.logger.Warn("pomodoro tick loop did not stop in time")
	}
}

// loop runs the 1 Hz countdown. Completion handling runs only after doneCh is
// closed so that restarting the loop never joins the goroutine it runs on.
func (t *Timer) loop(stopCh, doneCh chan struct{}) {
	var completed types.TimerState

	func() {
		defer close(doneCh)
		ticker := time.NewTicker(t.tickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				if state, done := t.tick(); done {
					completed = state
					return
				}
			}
		}
	}()

	if completed != "" {
		t.handleCompletion(completed)
	}
}

// tick decrements remaining time by one second. It reports the period to
// complete once the countdown reaches zero.
func (t *Timer) tick() (types.TimerState, bool) {
	t.mu.Lock()
	if t.state.TimeRemainingSeconds <= 0 {
		state := t.state.CurrentState
		t.mu.Unlock()
		return state, true
	}
	t.state.TimeRemainingSeconds--
	snap := t.state
	t.mu.Unlock()

	t.emit(Event{Kind: EventTick, State: snap})

	if snap.TimeRemainingSeconds == 0 {
		return snap.CurrentState, true
	}
	return "", false
}

func (t *Timer) handleCompletion(state types.TimerState) {
	switch state {
	case types.TimerWork:
		t.completeWork()
	case types.TimerShortBreak, types.TimerLongBreak:
		t.completeBreak()
	}
}

// completeWork increments the completed count and auto-starts the next break,
// long when the cycle count is reached.
func (t *Timer) completeWork() {
	t.mu.Lock()
	t.state.PomodorosCompleted++
	completed := t.state.PomodorosCompleted
	untilLong := t.state.PomodorosUntilLong

	next := types.TimerShortBreak
	minutes := t.state.ShortBreakMinutes
	if untilLong > 0 && completed%untilLong == 0 {
		next = types.TimerLongBreak
		minutes = t.state.LongBreakMinutes
	}
	t.state.CurrentState = next
	t.state.TimeRemainingSeconds = minutes * 60
	t.state.IsPaused = false
	snap := t.state
	t.mu.Unlock()

	t.emit(Event{Kind: EventComplete, State: snap, Period: types.TimerWork})
	t.emit(Event{Kind: EventStateChange, State: snap, Old: types.TimerWork, New: next})
	t.logger.Info("work period complete",
		zap.Int("pomodoros", completed), zap.String("next", string(next)))

	t.restartLoop()
}

// completeBreak returns the timer to stopped; the next work period starts on
// demand.
func (t *Timer) completeBreak() {
	t.mu.Lock()
	old := t.state.CurrentState
	t.state.CurrentState = types.TimerStopped
	t.state.TimeRemainingSeconds = 0
	snap := t.state
	t.mu.Unlock()

	t.cancelLoop()
	t.emit(Event{Kind: EventComplete, State: snap, Period: old})
	t.emit(Event{Kind: EventStateChange, State: snap, Old: old, New: types.TimerStopped})
	t.logger.Info("break complete, timer stopped")
}

// emit sends without blocking; events are best-effort notifications.
func (t *Timer) emit(ev Event) {
	select {
	case t.events <- ev:
	default:
	}
}
