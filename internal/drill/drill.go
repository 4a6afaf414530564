// Package drill implements the repeating nag loop that runs while the user
// stays off task. The loop races against the judgment engine's re-evaluation:
// stopping cancels all pending speech so a stale nag never plays after the
// user has refocused.
package drill

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/personality"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// Status is the loop's view of the session, read fresh on every cadence tick.
type Status struct {
	SessionActive  bool
	Classification types.Classification
}

// Loop nags on a fixed cadence while the status stays off_task.
type Loop struct {
	interval time.Duration
	speaker  types.Speaker
	phrases  *personality.Manager
	status   func() Status
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewLoop builds a drill loop. status must be safe to call from the loop
// goroutine.
func NewLoop(interval time.Duration, speaker types.Speaker, phrases *personality.Manager, status func() Status, logger *zap.Logger) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{
		interval: interval,
		speaker:  speaker,
		phrases:  phrases,
		status:   status,
		logger:   logger,
	}
}

// Start launches the nag goroutine. No-op when already running.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	l.running = true
	l.cancel = cancel
	l.doneCh = make(chan struct{})

	go l.run(loopCtx, cancel, l.doneCh)
	l.logger.Info("drill loop started", zap.Duration("interval", l.interval))
}

// Stop cancels the loop, cancels all pending speech, and joins the goroutine
// with a bounded timeout. No-op when not running.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	doneCh := l.doneCh
	l.mu.Unlock()

	cancel()
	dropped := l.speaker.CancelAll()

	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		l.logger.Warn("drill loop did not stop in time")
	}
	l.logger.Info("drill loop stopped", zap.Int("speech_cancelled", dropped))
}

// Running reports whether the loop is active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *Loop) run(ctx context.Context, cancel context.CancelFunc, doneCh chan struct{}) {
	defer close(doneCh)
	defer cancel()

	// The initial warning was already spoken; wait one interval before the
	// first nag.
	select {
	case <-ctx.Done():
		return
	case <-time.After(l.interval):
	}

	for {
		st := l.status()
		if !st.SessionActive || st.Classification != types.ClassOffTask {
			l.logger.Info("user back on task, drill exiting")
			l.markStopped()
			return
		}

		phrase := l.phrases.Phrase(personality.PhraseDrill)
		l.speaker.Say(phrase)

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.interval):
		}
	}
}

// markStopped clears the running flag when the loop exits on its own so the
// next off_task judgment can start it again.
func (l *Loop) markStopped() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
}
