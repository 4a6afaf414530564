// Package judge implements the judgment engine: given a goal and an observed
// activity it produces a classification, a suggested utterance, and an
// escalation action. An LLM backend is consulted under a strict JSON contract
// with one retry; a deterministic keyword override and a rule-based fallback
// guard against classifier failures. The engine never returns an error.
package judge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/config"
	"github.com/CuevaLabs/CodeSergeant/internal/personality"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

const (
	maxReasonLen = 100
	maxSayLen    = 200
)

// Engine judges whether activity matches the stated goal. The pattern buffer
// is mutated only by the single worker calling Judge, so it needs no lock;
// the config snapshot is swapped atomically on hot reload.
type Engine struct {
	backend types.AIBackend // nil means rule-based only
	phrases *personality.Manager
	logger  *zap.Logger
	now     func() time.Time

	cfg config.JudgeConfig

	pattern            *patternBuffer
	consecutiveOffTask int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds a judgment engine. backend may be nil, in which case every
// judgment uses the rule-based fallback.
func NewEngine(backend types.AIBackend, cfg config.JudgeConfig, phrases *personality.Manager, logger *zap.Logger, opts ...Option) *Engine {
	size := cfg.PatternBufferSize
	if size <= 0 {
		size = 20
	}
	e := &Engine{
		backend: backend,
		phrases: phrases,
		logger:  logger,
		now:     time.Now,
		cfg:     cfg,
		pattern: newPatternBuffer(size),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetConfig swaps the policy constants (keyword lists, drift thresholds).
// Called on config hot reload from the controller's drain goroutine; Judge is
// called from the judge worker, so the swap is serialized by the controller.
func (e *Engine) SetConfig(cfg config.JudgeConfig) {
	e.cfg = cfg
}

// ResetPatterns clears the pattern buffer. Called at session start.
func (e *Engine) ResetPatterns() {
	e.pattern.reset()
	e.consecutiveOffTask = 0
}

// ConsecutiveOffTask reports the current run of off-task judgments.
func (e *Engine) ConsecutiveOffTask() int {
	return e.consecutiveOffTask
}

// Judge classifies the activity against the goal. It always returns a valid
// Judgment: backend failures are logged and absorbed by the fallback.
func (e *Engine) Judge(ctx context.Context, goal string, activity types.ActivityEvent, history []types.ActivityEvent, lastEscalation time.Time, cooldown time.Duration) types.Judgment {
	// AFK short-circuits without touching the backend.
	if activity.IsAFK {
		return types.Judgment{
			Classification: types.ClassIdle,
			Confidence:     1.0,
			Reason:         "User is away from keyboard",
			Say:            "",
			Action:         types.ActionNone,
		}
	}

	if activity.IsThinking {
		return types.Judgment{
			Classification: types.ClassThinking,
			Confidence:     0.8,
			Reason:         fmt.Sprintf("User appears to be thinking (idle %.0fs in productive app)", activity.IdleSeconds),
			Say:            e.phrases.Phrase(personality.PhraseThinking),
			Action:         types.ActionNone,
		}
	}

	judgment, err := e.judgeWithBackend(ctx, goal, activity, history)
	if err != nil {
		e.logger.Warn("LLM judgment failed, using fallback", zap.Error(err))
		judgment = e.fallback(activity)
	}

	e.trackPattern(activity, judgment)
	judgment = e.applyCooldown(judgment, lastEscalation, cooldown)
	return judgment
}

// DetectGoalDrift reports whether recent judgments show a drift trend: at
// least DriftThreshold of the last DriftWindow entries classified off_task.
func (e *Engine) DetectGoalDrift() bool {
	window := e.cfg.DriftWindow
	if window <= 0 {
		window = 10
	}
	threshold := e.cfg.DriftThreshold
	if threshold <= 0 {
		threshold = 6
	}
	if e.pattern.len() < 5 {
		return false
	}
	offTask := 0
	for _, entry := range e.pattern.last(window) {
		if entry.classification == types.ClassOffTask {
			offTask++
		}
	}
	return offTask >= threshold
}

func (e *Engine) judgeWithBackend(ctx context.Context, goal string, activity types.ActivityEvent, history []types.ActivityEvent) (types.Judgment, error) {
	if e.backend == nil {
		return types.Judgment{}, fmt.Errorf("no AI backend configured")
	}

	prompt := e.buildPrompt(goal, activity, history)

	raw, err := e.backend.Complete(ctx, prompt, true)
	if err != nil {
		return types.Judgment{}, fmt.Errorf("backend call failed: %w", err)
	}

	judgment, parseErr := e.parseResponse(raw, activity)
	if parseErr == nil {
		return judgment, nil
	}

	// One retry with an explicit JSON-only instruction.
	e.logger.Warn("invalid JSON from LLM, retrying once", zap.Error(parseErr))
	raw, err = e.backend.Complete(ctx, prompt+"\n\nRemember: output ONLY valid JSON.", true)
	if err != nil {
		return types.Judgment{}, fmt.Errorf("retry call failed: %w", err)
	}
	judgment, parseErr = e.parseResponse(raw, activity)
	if parseErr != nil {
		return types.Judgment{}, fmt.Errorf("retry also returned invalid JSON: %w", parseErr)
	}
	return judgment, nil
}

// applyCooldown demotes a yell to a warn when the previous escalation is
// still inside the cooldown window.
func (e *Engine) applyCooldown(j types.Judgment, lastEscalation time.Time, cooldown time.Duration) types.Judgment {
	if j.Action != types.ActionYell || lastEscalation.IsZero() {
		return j
	}
	since := e.now().Sub(lastEscalation)
	if since >= cooldown {
		return j
	}
	e.logger.Debug("suppressing yell due to cooldown",
		zap.Duration("since_last", since),
		zap.Duration("cooldown", cooldown))
	j.Action = types.ActionWarn
	j.Say = e.phrases.Phrase(personality.PhraseWarning)
	return j
}

func (e *Engine) trackPattern(activity types.ActivityEvent, j types.Judgment) {
	e.pattern.push(patternEntry{app: activity.App, classification: j.Classification})
	if j.Classification == types.ClassOffTask {
		e.consecutiveOffTask++
	} else {
		e.consecutiveOffTask = 0
	}
}

// matchDistractionKeyword returns the first configured distraction keyword
// found in the activity text, if any.
func (e *Engine) matchDistractionKeyword(activity types.ActivityEvent) (string, bool) {
	text := strings.ToLower(activity.Context())
	for _, kw := range e.cfg.DistractionKeywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func (e *Engine) matchProductiveKeyword(activity types.ActivityEvent) bool {
	text := strings.ToLower(activity.Context())
	for _, kw := range e.cfg.ProductiveKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
