package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/pomodoro"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

func (c *Controller) processEvent(ev types.Event) {
	switch ev.Type {
	case types.EventActivityUpdate:
		c.handleActivityUpdate(ev.Activity)
	case types.EventJudgmentUpdate:
		c.handleJudgmentUpdate(ev.Judgment, ev.Repeat, ev.Immediate)
	case types.EventReminderTriggered:
		c.handleReminder(ev.Message)
	case types.EventVoiceCommand:
		c.handleVoiceCommand(ev.Command, ev.Args)
	case types.EventWakeWordDetected:
		c.speaker.Say("Yes?")
	case types.EventNoteTakingTriggered:
		c.speaker.Say("Go ahead, I'm listening.")
	case types.EventError:
		c.logger.Error("worker error", zap.String("message", ev.Message))
	default:
		c.logger.Warn("unknown event type", zap.String("type", string(ev.Type)))
	}
}

func (c *Controller) handleActivityUpdate(activity types.ActivityEvent) {
	c.mu.Lock()
	changed := !c.activityKnown || activity.Key() != c.lastActivity.Key()
	c.lastActivity = activity
	c.activityKnown = true
	if changed {
		c.activityHist = append(c.activityHist, activity)
		if len(c.activityHist) > historySize {
			c.activityHist = c.activityHist[len(c.activityHist)-historySize:]
		}
	}
	c.mu.Unlock()

	if changed {
		c.motivation.RecordAppChange(activity.App)
		c.logger.Debug("activity changed",
			zap.String("app", activity.App),
			zap.String("title", activity.Title))
	}
	c.motivation.RecordIdle(activity.IdleSeconds)
}

// handleJudgmentUpdate books one judge interval of time onto the stat bucket
// the judgment selects. An escalating action books the cycle as off task
// regardless of the classification label. A repeat accrues time only: no
// speech, no distraction counting, no drill transitions. An immediate is the
// inverse: it drives effects but books no time, since it fired off the
// interval cadence.
func (c *Controller) handleJudgmentUpdate(j types.Judgment, repeat, immediate bool) {
	c.mu.Lock()
	if !c.active || c.paused {
		c.mu.Unlock()
		return
	}
	c.lastJudgment = j

	if !immediate {
		interval := c.cfg.JudgeIntervalSec
		escalating := j.Action == types.ActionWarn || j.Action == types.ActionYell
		switch {
		case escalating:
			c.stats.OffTaskSeconds += interval
			c.stats.CurrentFocusStreakSecs = 0
		case j.Classification == types.ClassOnTask:
			c.stats.FocusSeconds += interval
			c.stats.CurrentFocusStreakSecs += interval
		case j.Classification == types.ClassThinking:
			c.stats.ThinkingSeconds += interval
			c.stats.CurrentFocusStreakSecs += interval
		case j.Classification == types.ClassIdle:
			c.stats.IdleSeconds += interval
			c.stats.CurrentFocusStreakSecs = 0
		case j.Classification == types.ClassOffTask:
			c.stats.OffTaskSeconds += interval
			c.stats.CurrentFocusStreakSecs = 0
		}
		if c.stats.CurrentFocusStreakSecs > c.stats.BestFocusStreakSecs {
			c.stats.BestFocusStreakSecs = c.stats.CurrentFocusStreakSecs
		}
	}

	newDistraction := !repeat && j.Classification == types.ClassOffTask
	if newDistraction {
		c.stats.DistractionsCount++
	}
	if !repeat && j.Action == types.ActionYell {
		c.lastEscalation = c.now()
	}
	sessionCtx := c.sessionCtx
	c.mu.Unlock()

	if repeat {
		return
	}

	c.logger.Debug("judgment applied",
		zap.String("classification", string(j.Classification)),
		zap.String("action", string(j.Action)),
		zap.Float64("confidence", j.Confidence))

	if j.Say != "" && j.Action != types.ActionNone {
		c.speaker.Say(j.Say)
	}

	switch {
	case newDistraction:
		c.drill.Start(sessionCtx)
	case j.Classification != types.ClassOffTask && c.drill.Running():
		c.drill.Stop()
	}
}

func (c *Controller) handleReminder(message string) {
	if !c.Active() {
		return
	}
	c.speaker.Say(message)
	c.logger.Info("reminder delivered", zap.String("message", message))
}

func (c *Controller) handleVoiceCommand(command, args string) {
	c.logger.Info("voice command", zap.String("command", command), zap.String("args", args))
	switch command {
	case "start_session":
		goal := strings.TrimSpace(args)
		if goal == "" {
			c.speaker.Say("I need a goal to start a session.")
			return
		}
		c.mu.Lock()
		ctx := c.baseCtx
		c.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		c.StartSession(ctx, goal)
	case "end_session":
		c.EndSession()
	case "pause_session":
		c.PauseSession()
		c.speaker.Say("Session paused. Say resume when you're back.")
	case "resume_session":
		c.ResumeSession()
		c.speaker.Say("Back on the clock.")
	case "change_goal":
		goal := strings.TrimSpace(args)
		if goal == "" {
			c.speaker.Say("I didn't catch the new goal.")
			return
		}
		c.ChangeGoal(goal)
	case "save_note":
		c.mu.Lock()
		c.stats.AddVoiceNote(args, args)
		c.mu.Unlock()
		c.speaker.Say("Noted.")
	case "report_distraction":
		reason := strings.TrimSpace(args)
		if reason == "" {
			reason = "unspecified"
		}
		c.mu.Lock()
		c.stats.AddDistraction(reason, false)
		c.stats.DistractionsCount++
		c.mu.Unlock()
		c.speaker.Say("Logged. Back to it.")
	case "report_phone":
		c.mu.Lock()
		c.stats.AddDistraction("phone", true)
		c.stats.DistractionsCount++
		c.mu.Unlock()
		c.speaker.Say("Phone logged. Put it away.")
	case "start_pomodoro":
		c.timer.StartWork()
		c.speaker.Say(fmt.Sprintf("Pomodoro started. %s on the clock.", c.timer.DisplayTime()))
	case "pause_pomodoro":
		c.timer.Pause()
		c.speaker.Say("Timer paused.")
	case "resume_pomodoro":
		c.timer.Resume()
		c.speaker.Say("Timer running.")
	case "stop_pomodoro":
		c.timer.Stop()
		c.speaker.Say("Timer stopped.")
	case "skip_pomodoro":
		c.timer.Skip()
		c.speaker.Say("Skipped ahead.")
	case "status", "how_am_i_doing":
		c.speaker.Say(c.statusLine())
	case "motivation_check":
		state := c.motivation.ForceCheck()
		if state.Suggestion != "" {
			c.speaker.Say(state.Suggestion)
		}
	default:
		if reply := c.motivation.HandleUserStatement(command + " " + args); reply != "" {
			c.speaker.Say(reply)
			return
		}
		c.speaker.Say("I don't know that command.")
	}
}

func (c *Controller) statusLine() string {
	snap := c.Snapshot()
	if !snap.Active {
		return "No session running."
	}
	focusMinutes := (snap.Stats.FocusSeconds + snap.Stats.ThinkingSeconds) / 60
	line := fmt.Sprintf("Goal: %s. %d minutes focused, %d distractions.",
		snap.Goal, focusMinutes, snap.Stats.DistractionsCount)
	if snap.Pomodoro.CurrentState != types.TimerStopped {
		line += fmt.Sprintf(" Pomodoro: %s, %s left.",
			snap.Pomodoro.CurrentState, c.timer.DisplayTime())
	}
	return line
}

func (c *Controller) handleTimerEvent(ev pomodoro.Event) {
	switch ev.Kind {
	case pomodoro.EventComplete:
		c.announceCompletion(ev)
	case pomodoro.EventStateChange:
		c.logger.Debug("pomodoro state change",
			zap.String("from", string(ev.Old)),
			zap.String("to", string(ev.New)))
	}
}

func (c *Controller) announceCompletion(ev pomodoro.Event) {
	switch ev.Period {
	case types.TimerWork:
		c.mu.Lock()
		c.stats.PomodorosCompleted = ev.State.PomodorosCompleted
		c.mu.Unlock()
		next := "short break"
		if ev.State.CurrentState == types.TimerLongBreak {
			next = "long break"
		}
		c.speaker.Say(fmt.Sprintf("Pomodoro %d complete. Time for a %s.",
			ev.State.PomodorosCompleted, next))
	case types.TimerShortBreak, types.TimerLongBreak:
		c.speaker.Say("Break's over. Back to work.")
	}
	c.logger.Info("pomodoro period complete", zap.String("period", string(ev.Period)))
}
