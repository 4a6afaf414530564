// Package session implements the session controller: the single owner of
// session state. Workers (activity poller, judge worker, reminder scheduler,
// pomodoro timer, motivation monitor) communicate with it exclusively through
// a buffered event queue; only the controller's drain loop mutates stats, so
// no handler takes a lock around them.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CuevaLabs/CodeSergeant/internal/config"
	"github.com/CuevaLabs/CodeSergeant/internal/drill"
	"github.com/CuevaLabs/CodeSergeant/internal/judge"
	"github.com/CuevaLabs/CodeSergeant/internal/motivation"
	"github.com/CuevaLabs/CodeSergeant/internal/personality"
	"github.com/CuevaLabs/CodeSergeant/internal/pomodoro"
	"github.com/CuevaLabs/CodeSergeant/internal/reminder"
	"github.com/CuevaLabs/CodeSergeant/internal/store"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

const (
	eventQueueSize = 256
	historySize    = 10
	workerJoinWait = 5 * time.Second
)

// Deps are the controller's external collaborators. History and Logs may be
// nil, in which case sessions are not persisted.
type Deps struct {
	Sensor  types.ActivitySensor
	Speaker types.Speaker
	Backend types.AIBackend
	History *store.SessionStore
	Logs    *store.LogWriter
	Logger  *zap.Logger
}

// Controller owns the session lifecycle and the event queue.
type Controller struct {
	logger  *zap.Logger
	speaker types.Speaker
	sensor  types.ActivitySensor
	phrases *personality.Manager

	engine     *judge.Engine
	timer      *pomodoro.Timer
	drill      *drill.Loop
	motivation *motivation.Monitor

	history *store.SessionStore
	logs    *store.LogWriter

	events chan types.Event

	// judgeKick requests an immediate re-judgment (activity change, resumed
	// session). Capacity 1; extra kicks coalesce.
	judgeKick chan struct{}

	drainInterval time.Duration
	pollOverride  time.Duration
	judgeStep     time.Duration
	now           func() time.Time

	mu             sync.Mutex
	cfg            config.Config
	pendingJudge   *config.JudgeConfig
	active         bool
	paused         bool
	goal           string
	stats          types.SessionStats
	lastActivity   types.ActivityEvent
	activityKnown  bool
	activityHist   []types.ActivityEvent
	lastJudgment   types.Judgment
	lastEscalation time.Time

	baseCtx       context.Context
	sessionCtx    context.Context
	sessionCancel context.CancelFunc
	workers       *errgroup.Group
}

// Option customizes a Controller, mainly for tests.
type Option func(*Controller)

// WithDrainInterval sets the drain loop cadence.
func WithDrainInterval(d time.Duration) Option {
	return func(c *Controller) { c.drainInterval = d }
}

// WithPollInterval overrides the configured activity poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) { c.pollOverride = d }
}

// WithJudgeStep sets the granularity of the judge worker's wait. The worker
// still judges every JudgeIntervalSec; the step only bounds cancellation
// latency.
func WithJudgeStep(d time.Duration) Option {
	return func(c *Controller) { c.judgeStep = d }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController wires a controller and its internal components from config.
func NewController(cfg config.Config, deps Deps, opts ...Option) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	speaker := deps.Speaker
	if speaker == nil {
		speaker = types.Silent()
	}

	phrases := personality.NewManager(cfg.Personality.Name, 0)

	c := &Controller{
		logger:        logger,
		speaker:       speaker,
		sensor:        deps.Sensor,
		phrases:       phrases,
		history:       deps.History,
		logs:          deps.Logs,
		events:        make(chan types.Event, eventQueueSize),
		judgeKick:     make(chan struct{}, 1),
		drainInterval: 100 * time.Millisecond,
		judgeStep:     time.Second,
		now:           time.Now,
		cfg:           cfg,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.engine = judge.NewEngine(deps.Backend, cfg.Judge, phrases, logger.Named("judge"))
	c.timer = pomodoro.NewTimer(cfg.Pomodoro, logger.Named("pomodoro"))
	c.drill = drill.NewLoop(
		time.Duration(cfg.Drill.IntervalSec*float64(time.Second)),
		speaker, phrases, c.drillStatus, logger.Named("drill"),
	)
	c.motivation = motivation.NewMonitor(
		cfg.Motivation, deps.Backend, speaker, phrases, logger.Named("motivation"),
	)
	return c
}

// Push enqueues an event without blocking. A full queue drops the event and
// logs; dropping is preferable to stalling a worker.
func (c *Controller) Push(ev types.Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event queue full, dropping event", zap.String("type", string(ev.Type)))
	}
}

// Run drains the event queue until ctx is cancelled. It is the only goroutine
// that mutates session stats.
func (c *Controller) Run(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()

	ticker := time.NewTicker(c.drainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.ProcessEventsTick()
		}
	}
}

// ProcessEventsTick drains all currently queued events and pomodoro
// notifications, then returns. Exposed so tests can step the controller
// deterministically.
func (c *Controller) ProcessEventsTick() {
	for {
		select {
		case ev := <-c.events:
			c.processEvent(ev)
		default:
			c.drainTimerEvents()
			return
		}
	}
}

func (c *Controller) drainTimerEvents() {
	for {
		select {
		case ev := <-c.timer.Events():
			c.handleTimerEvent(ev)
		default:
			return
		}
	}
}

// Active reports whether a session is running.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Snapshot is a value copy of the observable session state.
type Snapshot struct {
	Active       bool
	Paused       bool
	Goal         string
	Stats        types.SessionStats
	LastJudgment types.Judgment
	Pomodoro     types.PomodoroState
}

// Snapshot returns the current session state for display.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Active:       c.active,
		Paused:       c.paused,
		Goal:         c.goal,
		Stats:        c.stats,
		LastJudgment: c.lastJudgment,
		Pomodoro:     c.timer.Snapshot(),
	}
}

// UpdateConfig applies a hot-reloaded configuration. Cadence changes take
// effect at the next session; judge policy (keywords, drift thresholds) is
// handed to the judge worker and applied before its next judgment.
func (c *Controller) UpdateConfig(cfg config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	judgeCfg := cfg.Judge
	c.pendingJudge = &judgeCfg
	c.phrases.SetProfile(personality.Predefined(cfg.Personality.Name))
	c.logger.Info("configuration updated")
}

// StartSession begins monitoring toward goal. An already-active session is
// ended first.
func (c *Controller) StartSession(ctx context.Context, goal string) {
	if c.Active() {
		c.EndSession()
	}

	c.mu.Lock()
	cfg := c.cfg
	c.active = true
	c.paused = false
	c.goal = goal
	c.stats = types.SessionStats{StartTime: c.now()}
	c.lastJudgment = types.Judgment{}
	c.lastEscalation = time.Time{}
	c.activityKnown = false
	c.activityHist = nil

	sessionCtx, cancel := context.WithCancel(ctx)
	c.sessionCtx = sessionCtx
	c.sessionCancel = cancel
	g, gctx := errgroup.WithContext(sessionCtx)
	c.workers = g
	c.mu.Unlock()

	c.engine.ResetPatterns()
	c.drainQueue()

	g.Go(func() error {
		c.pollActivity(gctx)
		return nil
	})
	g.Go(func() error {
		c.judgeLoop(gctx)
		return nil
	})
	sched := reminder.NewScheduler(cfg.ReminderOffsetsSec, c.Push, c.phrases, c.logger.Named("reminder"))
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})

	if cfg.Motivation.IsEnabled() {
		c.motivation.Start(sessionCtx, goal)
	}
	if cfg.Pomodoro.AutoStartWithSession {
		c.timer.StartWork()
	}

	c.speaker.Say(c.phrases.Phrase(personality.PhraseSessionStart) + " Goal: " + goal)
	c.logger.Info("session started", zap.String("goal", goal))
}

// EndSession stops all workers, finalizes stats, persists the session, and
// speaks the summary. Safe to call when no session is active.
func (c *Controller) EndSession() {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.active = false
	c.paused = false
	cancel := c.sessionCancel
	workers := c.workers
	c.mu.Unlock()

	cancel()
	c.drill.Stop()
	c.timer.Stop()
	c.motivation.Stop()

	done := make(chan struct{})
	go func() {
		workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(workerJoinWait):
		c.logger.Warn("session workers did not stop in time")
	}

	// Drain anything the workers queued on the way out, then finalize.
	c.ProcessEventsTick()

	c.mu.Lock()
	c.stats.EndTime = c.now()
	c.stats.PomodorosCompleted = c.timer.Snapshot().PomodorosCompleted
	goal := c.goal
	stats := c.stats
	cfg := c.cfg
	c.mu.Unlock()

	c.persist(goal, stats, cfg)

	focusMinutes := (stats.FocusSeconds + stats.ThinkingSeconds) / 60
	c.speaker.Say(c.phrases.Phrase(personality.PhraseSessionEnd) + " " +
		c.phrases.SessionSummary(focusMinutes, stats.DistractionsCount))
	c.logger.Info("session ended",
		zap.Int("focus_seconds", stats.FocusSeconds),
		zap.Int("off_task_seconds", stats.OffTaskSeconds),
		zap.Int("distractions", stats.DistractionsCount))
}

// PauseSession suspends judging and stat accrual without tearing down
// workers.
func (c *Controller) PauseSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.paused {
		return
	}
	c.paused = true
	c.logger.Info("session paused")
}

// ResumeSession resumes a paused session and requests an immediate judgment.
func (c *Controller) ResumeSession() {
	c.mu.Lock()
	if !c.active || !c.paused {
		c.mu.Unlock()
		return
	}
	c.paused = false
	c.mu.Unlock()
	c.kickJudge()
	c.logger.Info("session resumed")
}

// ChangeGoal swaps the session goal mid-flight and clears the pattern buffer
// so drift detection starts fresh against the new goal.
func (c *Controller) ChangeGoal(goal string) {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return
	}
	c.goal = goal
	c.mu.Unlock()
	c.engine.ResetPatterns()
	c.kickJudge()
	c.speaker.Say("New goal locked in: " + goal)
	c.logger.Info("goal changed", zap.String("goal", goal))
}

// Pomodoro exposes the timer for direct control (CLI, voice commands).
func (c *Controller) Pomodoro() *pomodoro.Timer {
	return c.timer
}

func (c *Controller) persist(goal string, stats types.SessionStats, cfg config.Config) {
	rec := store.NewRecord(goal, stats)
	rec.Personality = cfg.Personality.Name
	rec.Settings = &store.SettingsSnapshot{
		LLMProvider:      cfg.LLM.Provider,
		JudgeIntervalSec: cfg.JudgeIntervalSec,
		PollIntervalSec:  cfg.PollIntervalSec,
		CooldownSeconds:  cfg.CooldownSeconds,
		WorkMinutes:      cfg.Pomodoro.WorkMinutes,
	}
	if c.logs != nil {
		if path, err := c.logs.WriteSessionLog(rec); err != nil {
			c.logger.Error("failed to write session log", zap.Error(err))
		} else {
			c.logger.Info("session log written", zap.String("path", path))
		}
	}
	if c.history != nil {
		if err := c.history.SaveSession(rec); err != nil {
			c.logger.Error("failed to save session history", zap.Error(err))
		}
	}
}

func (c *Controller) drainQueue() {
	for {
		select {
		case <-c.events:
		default:
			return
		}
	}
}

func (c *Controller) kickJudge() {
	select {
	case c.judgeKick <- struct{}{}:
	default:
	}
}

// drillStatus is read by the drill loop on every nag cadence.
func (c *Controller) drillStatus() drill.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return drill.Status{
		SessionActive:  c.active && !c.paused,
		Classification: c.lastJudgment.Classification,
	}
}
