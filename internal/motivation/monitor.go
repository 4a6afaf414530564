// Package motivation runs a low-frequency heuristic/LLM check over session
// level signals (focus duration, app-switch rate, idle time) and produces a
// coarse state that gates whether the user should be interrupted.
package motivation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/config"
	"github.com/CuevaLabs/CodeSergeant/internal/personality"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// MentalState is the coarse motivation classification.
type MentalState string

const (
	StateFlow       MentalState = "flow"
	StateProductive MentalState = "productive"
	StateStruggling MentalState = "struggling"
	StateDistracted MentalState = "distracted"
	StateFatigued   MentalState = "fatigued"
)

func sanitizeState(s string) MentalState {
	switch MentalState(s) {
	case StateFlow, StateProductive, StateStruggling, StateDistracted, StateFatigued:
		return MentalState(s)
	default:
		return StateProductive
	}
}

// State is one motivation assessment.
type State struct {
	State      MentalState
	Confidence float64
	Suggestion string
	Timestamp  time.Time
}

// ShouldInterrupt reports whether speaking to the user is acceptable in this
// state. Flow is never interrupted; productive only on high confidence.
func (s State) ShouldInterrupt() bool {
	if s.State == StateFlow {
		return false
	}
	if s.State == StateProductive && s.Confidence < 0.8 {
		return false
	}
	return true
}

// Monitor tracks app switches and periodically assesses motivation.
type Monitor struct {
	cfg     config.MotivationConfig
	backend types.AIBackend // nil means rule-based only
	speaker types.Speaker
	phrases *personality.Manager
	logger  *zap.Logger
	now     func() time.Time

	mu           sync.Mutex
	goal         string
	sessionStart time.Time
	current      *State
	appSwitches  []time.Time
	recentApps   []string
	lastApp      string
	idleSeconds  float64

	cancel  context.CancelFunc
	doneCh  chan struct{}
	running bool

	firstCheckDelay time.Duration
}

// Option customizes a Monitor.
type Option func(*Monitor)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithFirstCheckDelay shortens the warm-up delay for tests.
func WithFirstCheckDelay(d time.Duration) Option {
	return func(m *Monitor) { m.firstCheckDelay = d }
}

// NewMonitor builds a motivation monitor. backend may be nil.
func NewMonitor(cfg config.MotivationConfig, backend types.AIBackend, speaker types.Speaker, phrases *personality.Manager, logger *zap.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:             cfg,
		backend:         backend,
		speaker:         speaker,
		phrases:         phrases,
		logger:          logger,
		now:             time.Now,
		firstCheckDelay: time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins monitoring for a session. Idempotent per session; resets all
// tracked signals.
func (m *Monitor) Start(ctx context.Context, goal string) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.goal = goal
	m.sessionStart = m.now()
	m.current = nil
	m.appSwitches = nil
	m.recentApps = nil
	m.lastApp = ""
	m.idleSeconds = 0

	monCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.doneCh = make(chan struct{})
	doneCh := m.doneCh
	m.mu.Unlock()

	go m.loop(monCtx, doneCh)
	m.logger.Info("motivation monitoring started",
		zap.Int("check_interval_minutes", m.cfg.CheckIntervalMinutes))
}

// Stop halts monitoring and joins the goroutine with a bounded timeout.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	doneCh := m.doneCh
	m.mu.Unlock()

	cancel()
	select {
	case <-doneCh:
	case <-time.After(2 * time.Second):
		m.logger.Warn("motivation monitor did not stop in time")
	}
	m.logger.Info("motivation monitoring stopped")
}

// RecordAppChange notes an app switch for distraction detection.
func (m *Monitor) RecordAppChange(app string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app == m.lastApp {
		return
	}
	m.appSwitches = append(m.appSwitches, m.now())
	if len(m.appSwitches) > 100 {
		m.appSwitches = m.appSwitches[len(m.appSwitches)-100:]
	}
	m.recentApps = append(m.recentApps, app)
	if len(m.recentApps) > 20 {
		m.recentApps = m.recentApps[len(m.recentApps)-20:]
	}
	m.lastApp = app
}

// RecordIdle notes the latest observed idle duration.
func (m *Monitor) RecordIdle(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleSeconds = seconds
}

// Current returns the last assessment, or nil before the first check.
func (m *Monitor) Current() *State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ForceCheck runs an immediate rule-based assessment and stores it.
func (m *Monitor) ForceCheck() State {
	m.mu.Lock()
	focusMinutes := int(m.now().Sub(m.sessionStart).Minutes())
	switches := m.switchesInWindowLocked(5 * time.Minute)
	idle := m.idleSeconds
	m.mu.Unlock()

	state := m.detectByRules(focusMinutes, switches, idle)
	m.mu.Lock()
	m.current = &state
	m.mu.Unlock()
	return state
}

func (m *Monitor) switchesInWindowLocked(window time.Duration) int {
	cutoff := m.now().Add(-window)
	n := 0
	for _, ts := range m.appSwitches {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}

func (m *Monitor) loop(ctx context.Context, doneCh chan struct{}) {
	defer close(doneCh)

	// Warm-up: signals are meaningless in the first minute.
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.firstCheckDelay):
	}

	interval := time.Duration(m.cfg.CheckIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 3 * time.Minute
	}

	for {
		m.check(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	m.mu.Lock()
	goal := m.goal
	focusMinutes := int(m.now().Sub(m.sessionStart).Minutes())
	switches := m.switchesInWindowLocked(5 * time.Minute)
	recentApps := append([]string(nil), m.recentApps...)
	idle := m.idleSeconds
	old := m.current
	m.mu.Unlock()

	var state State
	if m.backend != nil {
		detected, err := m.detectByLLM(ctx, goal, focusMinutes, switches, recentApps, idle)
		if err != nil {
			m.logger.Warn("AI motivation detection failed, using rules", zap.Error(err))
			state = m.detectByRules(focusMinutes, switches, idle)
		} else {
			state = detected
		}
	} else {
		state = m.detectByRules(focusMinutes, switches, idle)
	}

	m.mu.Lock()
	m.current = &state
	m.mu.Unlock()

	if old == nil || old.State != state.State {
		m.logger.Info("motivation state changed", zap.String("state", string(state.State)),
			zap.Float64("confidence", state.Confidence))
	}

	m.encourage(state)
}

// detectByRules is the deterministic assessment over the tracked signals.
func (m *Monitor) detectByRules(focusMinutes, switches int, idleSeconds float64) State {
	now := m.now()

	if focusMinutes >= m.cfg.FlowMinFocusMinutes &&
		switches <= m.cfg.FlowMaxAppSwitches &&
		idleSeconds <= m.cfg.FlowMaxIdleSeconds {
		return State{State: StateFlow, Confidence: 0.8, Timestamp: now}
	}
	if switches >= m.cfg.DistractedMinSwitches {
		return State{
			State:      StateDistracted,
			Confidence: 0.7,
			Suggestion: "Try focusing on one thing at a time.",
			Timestamp:  now,
		}
	}
	if focusMinutes >= m.cfg.FatiguedMinMinutes {
		return State{
			State:      StateFatigued,
			Confidence: 0.6,
			Suggestion: "You've been working a while. Consider a break.",
			Timestamp:  now,
		}
	}
	if idleSeconds >= m.cfg.StrugglingIdleSeconds {
		return State{
			State:      StateStruggling,
			Confidence: 0.6,
			Suggestion: "Need help? Try breaking down the problem.",
			Timestamp:  now,
		}
	}
	return State{
		State:      StateProductive,
		Confidence: 0.5,
		Suggestion: "Keep up the good work!",
		Timestamp:  now,
	}
}

type llmMotivation struct {
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
	Suggestion string  `json:"suggestion"`
}

func (m *Monitor) detectByLLM(ctx context.Context, goal string, focusMinutes, switches int, recentApps []string, idleSeconds float64) (State, error) {
	if len(recentApps) > 5 {
		recentApps = recentApps[len(recentApps)-5:]
	}
	prompt := fmt.Sprintf(`You monitor a user's work session and classify their mental state.

Goal: %s
Minutes in session: %d
App switches in the last 5 minutes: %d
Current idle seconds: %.0f
Recent apps: %s

Classify as one of: "flow" (deep focus, do not interrupt), "productive",
"struggling", "distracted", "fatigued".

Output ONLY valid JSON:
{"state": "...", "confidence": 0.0-1.0, "suggestion": "one short sentence"}`,
		goal, focusMinutes, switches, idleSeconds, strings.Join(recentApps, ", "))

	raw, err := m.backend.Complete(ctx, prompt, true)
	if err != nil {
		return State{}, err
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return State{}, fmt.Errorf("no JSON object in response")
	}

	var parsed llmMotivation
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return State{}, fmt.Errorf("invalid motivation JSON: %w", err)
	}

	return State{
		State:      sanitizeState(parsed.State),
		Confidence: types.ClampConfidence(parsed.Confidence),
		Suggestion: parsed.Suggestion,
		Timestamp:  m.now(),
	}, nil
}

// encourage speaks a phrase appropriate to the state, respecting the
// interruption gate.
func (m *Monitor) encourage(state State) {
	if !state.ShouldInterrupt() {
		return
	}

	var phrase string
	switch state.State {
	case StateStruggling:
		phrase = m.phrases.Phrase(personality.PhraseStuck)
	case StateDistracted:
		phrase = m.phrases.Phrase(personality.PhraseRefocus)
	case StateFatigued:
		phrase = m.phrases.Phrase(personality.PhraseBreak)
	case StateProductive:
		// ShouldInterrupt has already required high confidence here.
		phrase = m.phrases.Phrase(personality.PhraseEncouragement)
	}
	if phrase == "" {
		phrase = state.Suggestion
	}
	if phrase != "" {
		m.speaker.Say(phrase)
	}
}

// HandleUserStatement scans a transcript for signals of motivation trouble
// and returns a response phrase, or "" when nothing matched.
func (m *Monitor) HandleUserStatement(statement string) string {
	lower := strings.ToLower(statement)

	containsAny := func(keywords ...string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}

	switch {
	case containsAny("stuck", "can't figure", "don't know", "confused", "lost", "no idea"):
		return m.phrases.Phrase(personality.PhraseStuck)
	case containsAny("can't focus", "distracted", "keep thinking", "mind wandering"):
		return m.phrases.Phrase(personality.PhraseRefocus)
	case containsAny("overwhelmed", "too much", "stressed", "anxious"):
		return "Take a moment. Write down the three most important things, then tackle one at a time."
	case containsAny("tired", "exhausted", "need a break", "burned out"):
		return "You've been working hard. Take a short break, stretch, then come back refreshed."
	case containsAny("unmotivated", "don't want to", "bored", "pointless"):
		return m.phrases.Phrase(personality.PhraseEncouragement)
	default:
		return ""
	}
}
