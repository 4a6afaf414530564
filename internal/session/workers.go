package session

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// pollActivity samples the activity sensor on a fixed cadence and feeds the
// event queue. An activity change kicks the judge worker so the user isn't
// judged against a stale window.
func (c *Controller) pollActivity(ctx context.Context) {
	interval := c.pollOverride
	if interval <= 0 {
		c.mu.Lock()
		interval = time.Duration(c.cfg.PollIntervalSec * float64(time.Second))
		c.mu.Unlock()
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	var lastKey string
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		activity, err := c.sensor.CurrentActivity()
		if err != nil {
			c.logger.Warn("activity sensor read failed", zap.Error(err))
			c.Push(types.NewErrorEvent("activity sensor: " + err.Error()))
			continue
		}
		c.markThinking(&activity)

		changed := activity.Key() != lastKey
		lastKey = activity.Key()
		c.Push(types.NewActivityUpdate(activity))
		if changed {
			c.kickJudge()
		}
	}
}

// markThinking flags bounded idle time inside a known-productive app. AFK
// takes precedence.
func (c *Controller) markThinking(a *types.ActivityEvent) {
	if a.IsAFK || a.IsThinking {
		return
	}
	c.mu.Lock()
	minIdle := c.cfg.Judge.ThinkingMinIdleSec
	maxIdle := c.cfg.Judge.ThinkingMaxIdleSec
	keywords := c.cfg.Judge.ProductiveKeywords
	c.mu.Unlock()

	if a.IdleSeconds < minIdle || a.IdleSeconds > maxIdle {
		return
	}
	ctx := strings.ToLower(a.Context())
	for _, kw := range keywords {
		if strings.Contains(ctx, strings.ToLower(kw)) {
			a.IsThinking = true
			return
		}
	}
}

// judgeState is the judge worker's local memory: the key and result of the
// last real judgment, reused for accrual while the activity is unchanged.
type judgeState struct {
	key  string
	last types.Judgment
	held bool
}

// judgeLoop wakes once per JudgeIntervalSec, or immediately on a kick. A
// change in activity (or a kick) triggers a real judgment; an unchanged
// activity re-applies the previous judgment so time keeps accruing without
// re-escalating. The wait is chunked by judgeStep so cancellation and
// interval changes are noticed promptly.
func (c *Controller) judgeLoop(ctx context.Context) {
	step := c.judgeStep
	if step <= 0 {
		step = time.Second
	}
	var st judgeState
	for {
		c.mu.Lock()
		interval := time.Duration(c.cfg.JudgeIntervalSec) * time.Second
		c.mu.Unlock()

		deadline := time.Now().Add(interval)
		kicked := false
		for !kicked {
			wait := time.Until(deadline)
			if wait <= 0 {
				break
			}
			if wait > step {
				wait = step
			}
			select {
			case <-ctx.Done():
				return
			case <-c.judgeKick:
				kicked = true
			case <-time.After(wait):
			}
		}

		c.judgeOnce(ctx, &st, kicked)
	}
}

func (c *Controller) judgeOnce(ctx context.Context, st *judgeState, kicked bool) {
	c.mu.Lock()
	if c.paused || !c.activityKnown {
		c.mu.Unlock()
		return
	}
	if c.pendingJudge != nil {
		c.engine.SetConfig(*c.pendingJudge)
		c.pendingJudge = nil
	}
	goal := c.goal
	activity := c.lastActivity
	history := make([]types.ActivityEvent, len(c.activityHist))
	copy(history, c.activityHist)
	lastEscalation := c.lastEscalation
	cooldown := time.Duration(c.cfg.CooldownSeconds) * time.Second
	c.mu.Unlock()

	if st.held && !kicked && st.key == activity.Key() {
		c.Push(types.NewJudgmentRepeat(st.last))
		return
	}

	judgment := c.engine.Judge(ctx, goal, activity, history, lastEscalation, cooldown)
	st.key = activity.Key()
	st.last = judgment
	// A kicked judgment fires off-cadence and books no interval time.
	if kicked && st.held {
		c.Push(types.NewJudgmentImmediate(judgment))
	} else {
		c.Push(types.NewJudgmentUpdate(judgment))
	}
	st.held = true

	if c.engine.DetectGoalDrift() {
		c.logger.Info("goal drift detected",
			zap.Int("consecutive_off_task", c.engine.ConsecutiveOffTask()))
	}
}
