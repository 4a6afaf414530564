package session

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CuevaLabs/CodeSergeant/internal/config"
	"github.com/CuevaLabs/CodeSergeant/internal/sensor"
	"github.com/CuevaLabs/CodeSergeant/internal/store"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

type recordingSpeaker struct {
	mu        sync.Mutex
	said      []string
	cancelled int
}

func (s *recordingSpeaker) Say(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.said = append(s.said, text)
}

func (s *recordingSpeaker) CancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
	return 0
}

func (s *recordingSpeaker) saidContaining(substr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range s.said {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.PollIntervalSec = 0.005
	cfg.JudgeIntervalSec = 1
	cfg.CooldownSeconds = 30
	cfg.Drill.IntervalSec = 0.005
	cfg.Motivation.Enabled = config.Bool(false)
	cfg.ReminderOffsetsSec = nil
	return cfg
}

func newTestController(t *testing.T, cfg config.Config, deps Deps) (*Controller, *recordingSpeaker, *sensor.Scripted) {
	t.Helper()
	scripted := sensor.NewScripted()
	speaker := &recordingSpeaker{}
	if deps.Sensor == nil {
		deps.Sensor = scripted
	}
	if deps.Speaker == nil {
		deps.Speaker = speaker
	}
	deps.Logger = zap.NewNop()
	ctrl := NewController(cfg, deps,
		WithDrainInterval(5*time.Millisecond),
		WithPollInterval(5*time.Millisecond),
		WithJudgeStep(5*time.Millisecond),
	)
	return ctrl, speaker, scripted
}

// beginManualSession marks the controller active without starting workers so
// event handlers can be driven deterministically.
func beginManualSession(c *Controller, goal string) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	g, _ := errgroup.WithContext(ctx)
	c.mu.Lock()
	c.active = true
	c.goal = goal
	c.stats = types.SessionStats{StartTime: time.Now()}
	c.sessionCtx = ctx
	c.sessionCancel = cancel
	c.workers = g
	c.mu.Unlock()
	return cancel
}

func judgment(class types.Classification, action types.Action, say string) types.Judgment {
	return types.Judgment{
		Classification: class,
		Action:         action,
		Say:            say,
		Confidence:     0.9,
		Reason:         "r",
	}
}

func TestStatAttribution(t *testing.T) {
	cfg := testConfig()
	cfg.JudgeIntervalSec = 10
	ctrl, _, _ := newTestController(t, cfg, Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()

	for i := 0; i < 3; i++ {
		ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), false, false)
	}
	ctrl.handleJudgmentUpdate(judgment(types.ClassThinking, types.ActionNone, ""), false, false)

	snap := ctrl.Snapshot()
	assert.Equal(t, 30, snap.Stats.FocusSeconds)
	assert.Equal(t, 10, snap.Stats.ThinkingSeconds)
	assert.Equal(t, 40, snap.Stats.CurrentFocusStreakSecs)
	assert.Equal(t, 40, snap.Stats.BestFocusStreakSecs)

	ctrl.handleJudgmentUpdate(judgment(types.ClassIdle, types.ActionNone, ""), false, false)
	snap = ctrl.Snapshot()
	assert.Equal(t, 10, snap.Stats.IdleSeconds)
	assert.Equal(t, 0, snap.Stats.CurrentFocusStreakSecs)
	assert.Equal(t, 40, snap.Stats.BestFocusStreakSecs)
}

func TestEscalationBooksOffTaskTime(t *testing.T) {
	cfg := testConfig()
	cfg.JudgeIntervalSec = 10
	ctrl, _, _ := newTestController(t, cfg, Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()

	ctrl.handleJudgmentUpdate(judgment(types.ClassUnknown, types.ActionWarn, "eyes front"), false, false)

	snap := ctrl.Snapshot()
	assert.Equal(t, 10, snap.Stats.OffTaskSeconds)
	assert.Equal(t, 0, snap.Stats.FocusSeconds)
	// Distraction counting keys off the classification, not the action.
	assert.Equal(t, 0, snap.Stats.DistractionsCount)
}

func TestOffTaskWarnCountsDistractionAndStartsDrill(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl, speaker, _ := newTestController(t, testConfig(), Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()
	defer ctrl.drill.Stop()

	// The first strike for a distraction is a warn; the drill and the count
	// fire on the off_task classification regardless.
	ctrl.handleJudgmentUpdate(judgment(types.ClassOffTask, types.ActionWarn, "back to it"), false, false)

	snap := ctrl.Snapshot()
	assert.Equal(t, 1, snap.Stats.DistractionsCount)
	assert.True(t, ctrl.drill.Running())
	assert.True(t, speaker.saidContaining("back to it"))

	ctrl.mu.Lock()
	escalated := !ctrl.lastEscalation.IsZero()
	ctrl.mu.Unlock()
	assert.False(t, escalated, "warn must not update the escalation clock")

	ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), false, false)
	assert.False(t, ctrl.drill.Running())
}

func TestImmediateJudgmentBooksNoTime(t *testing.T) {
	cfg := testConfig()
	cfg.JudgeIntervalSec = 10
	ctrl, _, _ := newTestController(t, cfg, Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()

	// Two rapid activity-change judgments inside one interval.
	ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), false, true)
	ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), false, true)

	snap := ctrl.Snapshot()
	assert.Equal(t, 0, snap.Stats.FocusSeconds)
	assert.Equal(t, types.ClassOnTask, snap.LastJudgment.Classification)

	// The interval cadence still books time afterwards.
	ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), true, false)
	assert.Equal(t, 10, ctrl.Snapshot().Stats.FocusSeconds)
}

func TestRapidSwitchingBooksOneIntervalOnly(t *testing.T) {
	cfg := testConfig()
	cfg.JudgeIntervalSec = 10
	ctrl, _, _ := newTestController(t, cfg, Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()
	defer ctrl.drill.Stop()

	ctx := context.Background()
	var st judgeState

	ctrl.handleActivityUpdate(types.ActivityEvent{App: "vscode", Title: "main.go"})
	ctrl.judgeOnce(ctx, &st, true)
	ctrl.handleActivityUpdate(types.ActivityEvent{App: "vscode", Title: "store.go"})
	ctrl.judgeOnce(ctx, &st, true)
	ctrl.handleActivityUpdate(types.ActivityEvent{App: "vscode", Title: "events.go"})
	ctrl.judgeOnce(ctx, &st, true)
	ctrl.ProcessEventsTick()

	stats := ctrl.Snapshot().Stats
	total := stats.FocusSeconds + stats.IdleSeconds + stats.OffTaskSeconds + stats.ThinkingSeconds
	assert.Equal(t, 10, total)
}

func TestYellStartsDrillAndCountsDistraction(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl, speaker, _ := newTestController(t, testConfig(), Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()
	defer ctrl.drill.Stop()

	ctrl.handleJudgmentUpdate(judgment(types.ClassOffTask, types.ActionYell, "drop it now"), false, false)
	snap := ctrl.Snapshot()
	assert.Equal(t, 1, snap.Stats.DistractionsCount)
	assert.True(t, ctrl.drill.Running())
	assert.True(t, speaker.saidContaining("drop it now"))

	ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), false, false)
	assert.False(t, ctrl.drill.Running())
}

func TestRepeatedJudgmentAccruesWithoutEscalating(t *testing.T) {
	cfg := testConfig()
	cfg.JudgeIntervalSec = 10
	ctrl, speaker, _ := newTestController(t, cfg, Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()
	defer ctrl.drill.Stop()

	yell := judgment(types.ClassOffTask, types.ActionYell, "drop it now")
	ctrl.handleJudgmentUpdate(yell, false, false)
	ctrl.handleJudgmentUpdate(yell, true, false)
	ctrl.handleJudgmentUpdate(yell, true, false)

	snap := ctrl.Snapshot()
	assert.Equal(t, 30, snap.Stats.OffTaskSeconds)
	assert.Equal(t, 1, snap.Stats.DistractionsCount)

	speaker.mu.Lock()
	count := len(speaker.said)
	speaker.mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestJudgmentsIgnoredWhilePaused(t *testing.T) {
	ctrl, _, _ := newTestController(t, testConfig(), Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()

	ctrl.PauseSession()
	ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), false, false)
	assert.Equal(t, 0, ctrl.Snapshot().Stats.FocusSeconds)

	ctrl.ResumeSession()
	ctrl.handleJudgmentUpdate(judgment(types.ClassOnTask, types.ActionNone, ""), false, false)
	assert.Equal(t, 1, ctrl.Snapshot().Stats.FocusSeconds)
}

func TestVoiceCommands(t *testing.T) {
	ctrl, speaker, _ := newTestController(t, testConfig(), Deps{})
	cancel := beginManualSession(ctrl, "write code")
	defer cancel()

	ctrl.handleVoiceCommand("save_note", "benchmark the parser")
	ctrl.handleVoiceCommand("report_phone", "")
	ctrl.handleVoiceCommand("report_distraction", "coworker dropped by")

	snap := ctrl.Snapshot()
	require.Len(t, snap.Stats.VoiceNotes, 1)
	assert.Equal(t, "benchmark the parser", snap.Stats.VoiceNotes[0].Content)
	assert.Len(t, snap.Stats.PhoneReports, 1)
	assert.Len(t, snap.Stats.DistractionLogs, 2)
	assert.Equal(t, 2, snap.Stats.DistractionsCount)

	ctrl.handleVoiceCommand("status", "")
	assert.True(t, speaker.saidContaining("write code"))

	ctrl.handleVoiceCommand("make_me_coffee", "")
	assert.True(t, speaker.saidContaining("don't know"))
}

func TestVoiceCommandChangeGoal(t *testing.T) {
	ctrl, speaker, _ := newTestController(t, testConfig(), Deps{})
	cancel := beginManualSession(ctrl, "old goal")
	defer cancel()

	ctrl.handleVoiceCommand("change_goal", "refactor the store")
	assert.Equal(t, "refactor the store", ctrl.Snapshot().Goal)
	assert.True(t, speaker.saidContaining("refactor the store"))

	ctrl.handleVoiceCommand("change_goal", "   ")
	assert.Equal(t, "refactor the store", ctrl.Snapshot().Goal)
}

func TestReminderOnlySpokenWhileActive(t *testing.T) {
	ctrl, speaker, _ := newTestController(t, testConfig(), Deps{})

	ctrl.handleReminder("15 minutes in. Still on target?")
	assert.False(t, speaker.saidContaining("15 minutes"))

	cancel := beginManualSession(ctrl, "write code")
	defer cancel()
	ctrl.handleReminder("15 minutes in. Still on target?")
	assert.True(t, speaker.saidContaining("15 minutes"))
}

func TestPushDropsWhenQueueFull(t *testing.T) {
	ctrl, _, _ := newTestController(t, testConfig(), Deps{})
	for i := 0; i < eventQueueSize+50; i++ {
		ctrl.Push(types.NewErrorEvent("overflow"))
	}
	assert.Len(t, ctrl.events, eventQueueSize)
}

func TestSessionLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	logger := zap.NewNop()
	history, err := store.OpenSessionStore(filepath.Join(dir, "sessions.db"), logger)
	require.NoError(t, err)
	defer history.Close()
	logs := store.NewLogWriter(filepath.Join(dir, "logs"), filepath.Join(dir, "notes"))

	ctrl, speaker, scripted := newTestController(t, testConfig(), Deps{
		History: history,
		Logs:    logs,
	})
	scripted.Set(types.ActivityEvent{App: "vscode", Title: "main.go"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl.StartSession(ctx, "finish the migration")
	require.True(t, ctrl.Active())

	assert.Eventually(t, func() bool {
		ctrl.ProcessEventsTick()
		return ctrl.Snapshot().LastJudgment.Classification == types.ClassOnTask
	}, 3*time.Second, 5*time.Millisecond)

	ctrl.EndSession()
	assert.False(t, ctrl.Active())
	assert.False(t, ctrl.Snapshot().Stats.EndTime.IsZero())
	assert.True(t, speaker.saidContaining("distractions"))

	recs, err := history.RecentSessions(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "finish the migration", recs[0].Goal)

	files, err := filepath.Glob(filepath.Join(dir, "logs", "session_*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestDistractionEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl, speaker, scripted := newTestController(t, testConfig(), Deps{})
	scripted.Set(types.ActivityEvent{App: "vscode", Title: "main.go"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl.StartSession(ctx, "write code")

	assert.Eventually(t, func() bool {
		ctrl.ProcessEventsTick()
		return ctrl.Snapshot().LastJudgment.Classification == types.ClassOnTask
	}, 3*time.Second, 5*time.Millisecond)

	scripted.Set(types.ActivityEvent{App: "chrome", Title: "Twitter - Home"})
	assert.Eventually(t, func() bool {
		ctrl.ProcessEventsTick()
		snap := ctrl.Snapshot()
		return snap.Stats.DistractionsCount >= 1 && snap.Stats.OffTaskSeconds >= 1
	}, 3*time.Second, 5*time.Millisecond)
	assert.True(t, ctrl.drill.Running())
	assert.True(t, speaker.saidContaining("!"))

	scripted.Set(types.ActivityEvent{App: "vscode", Title: "main.go"})
	assert.Eventually(t, func() bool {
		ctrl.ProcessEventsTick()
		return !ctrl.drill.Running()
	}, 3*time.Second, 5*time.Millisecond)

	ctrl.EndSession()
}

func TestStartSessionEndsPreviousSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctrl, _, scripted := newTestController(t, testConfig(), Deps{})
	scripted.Set(types.ActivityEvent{App: "vscode", Title: "main.go"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl.StartSession(ctx, "first goal")
	ctrl.StartSession(ctx, "second goal")
	assert.Equal(t, "second goal", ctrl.Snapshot().Goal)

	ctrl.EndSession()
	ctrl.EndSession()
	assert.False(t, ctrl.Active())
}

func TestAutoStartPomodoroWithSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig()
	cfg.Pomodoro.AutoStartWithSession = true
	ctrl, _, scripted := newTestController(t, cfg, Deps{})
	scripted.Set(types.ActivityEvent{App: "vscode", Title: "main.go"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl.StartSession(ctx, "write code")
	assert.Equal(t, types.TimerWork, ctrl.Pomodoro().Snapshot().CurrentState)

	ctrl.EndSession()
	assert.Equal(t, types.TimerStopped, ctrl.Pomodoro().Snapshot().CurrentState)
}

func TestUpdateConfigSwapsJudgePolicy(t *testing.T) {
	ctrl, _, _ := newTestController(t, testConfig(), Deps{})

	cfg := testConfig()
	cfg.Judge.DistractionKeywords = []string{"solitaire"}
	cfg.Personality.Name = "coach"
	ctrl.UpdateConfig(cfg)

	ctrl.mu.Lock()
	pending := ctrl.pendingJudge
	ctrl.mu.Unlock()
	require.NotNil(t, pending)
	assert.Equal(t, []string{"solitaire"}, pending.DistractionKeywords)
	assert.Equal(t, "coach", ctrl.phrases.Profile().Name)
}

func TestMarkThinking(t *testing.T) {
	ctrl, _, _ := newTestController(t, testConfig(), Deps{})

	a := types.ActivityEvent{App: "vscode", Title: "main.go", IdleSeconds: 60}
	ctrl.markThinking(&a)
	assert.True(t, a.IsThinking)

	a = types.ActivityEvent{App: "chrome", Title: "Reddit", IdleSeconds: 60}
	ctrl.markThinking(&a)
	assert.False(t, a.IsThinking)

	a = types.ActivityEvent{App: "vscode", Title: "main.go", IdleSeconds: 5}
	ctrl.markThinking(&a)
	assert.False(t, a.IsThinking)

	a = types.ActivityEvent{App: "vscode", Title: "main.go", IdleSeconds: 60, IsAFK: true}
	ctrl.markThinking(&a)
	assert.False(t, a.IsThinking)
}
