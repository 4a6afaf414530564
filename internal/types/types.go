// Package types holds the shared data model for Code Sergeant: activity
// observations, judgments, session statistics, pomodoro state, and the event
// variants that flow through the session controller's queue.
package types

import (
	"fmt"
	"time"
)

// Classification is the judgment verdict for an observed activity.
type Classification string

const (
	ClassOnTask   Classification = "on_task"
	ClassOffTask  Classification = "off_task"
	ClassIdle     Classification = "idle"
	ClassUnknown  Classification = "unknown"
	ClassThinking Classification = "thinking"
)

// SanitizeClassification maps any input to a valid Classification.
// Unknown values collapse to ClassUnknown rather than propagating.
func SanitizeClassification(s string) Classification {
	switch Classification(s) {
	case ClassOnTask, ClassOffTask, ClassIdle, ClassUnknown, ClassThinking:
		return Classification(s)
	default:
		return ClassUnknown
	}
}

// Action is the escalation decision attached to a judgment.
type Action string

const (
	ActionNone Action = "none"
	ActionWarn Action = "warn"
	ActionYell Action = "yell"
)

// SanitizeAction maps any input to a valid Action, defaulting to ActionNone.
func SanitizeAction(s string) Action {
	switch Action(s) {
	case ActionNone, ActionWarn, ActionYell:
		return Action(s)
	default:
		return ActionNone
	}
}

// ClampConfidence bounds a confidence value to [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// ActivityEvent is a single activity observation produced by the activity
// sensor. Immutable once created.
type ActivityEvent struct {
	Timestamp      time.Time
	App            string
	Title          string
	IsAFK          bool
	KeyboardActive bool
	MouseActive    bool
	IdleSeconds    float64
	// IsThinking is set by the sensor when the user has been idle for a
	// bounded window inside a known-productive app.
	IsThinking bool
}

// Key identifies an activity for change detection (app plus window title).
func (a ActivityEvent) Key() string {
	return a.App + ":" + a.Title
}

// Context renders the activity for keyword matching and prompts.
func (a ActivityEvent) Context() string {
	return a.App + " " + a.Title
}

// Judgment is the outcome of one judgment call. Immutable once produced.
type Judgment struct {
	Classification Classification
	Confidence     float64
	Reason         string
	Say            string
	Action         Action
}

// String renders the judgment for UI and log display.
func (j Judgment) String() string {
	return fmt.Sprintf("%s (%.0f%%)", j.Classification, j.Confidence*100)
}

// VoiceNote is a note captured by the voice collaborator during a session.
type VoiceNote struct {
	Timestamp     time.Time
	Content       string
	Transcription string
}

// DistractionEntry records a user-reported distraction.
type DistractionEntry struct {
	Timestamp time.Time
	Reason    string
	IsPhone   bool
}

// SessionStats accumulates per-session counters and append-only logs.
// Counters are monotonic; only the session controller mutates them.
type SessionStats struct {
	StartTime time.Time
	EndTime   time.Time

	FocusSeconds    int
	IdleSeconds     int
	OffTaskSeconds  int
	ThinkingSeconds int

	DistractionsCount       int
	CurrentFocusStreakSecs  int
	BestFocusStreakSecs     int
	PomodorosCompleted      int

	VoiceNotes      []VoiceNote
	DistractionLogs []DistractionEntry
	PhoneReports    []time.Time
	Annotations     []string
}

// AddVoiceNote appends a voice note to the session log.
func (s *SessionStats) AddVoiceNote(content, transcription string) {
	s.VoiceNotes = append(s.VoiceNotes, VoiceNote{
		Timestamp:     time.Now(),
		Content:       content,
		Transcription: transcription,
	})
}

// AddDistraction appends a user-reported distraction. Phone distractions are
// additionally tracked in PhoneReports.
func (s *SessionStats) AddDistraction(reason string, isPhone bool) {
	now := time.Now()
	s.DistractionLogs = append(s.DistractionLogs, DistractionEntry{
		Timestamp: now,
		Reason:    reason,
		IsPhone:   isPhone,
	})
	if isPhone {
		s.PhoneReports = append(s.PhoneReports, now)
	}
}

// AddAnnotation appends a freeform annotation.
func (s *SessionStats) AddAnnotation(text string) {
	s.Annotations = append(s.Annotations, text)
}

// TotalSeconds is the sum of all attributed time buckets.
func (s *SessionStats) TotalSeconds() int {
	return s.FocusSeconds + s.IdleSeconds + s.OffTaskSeconds + s.ThinkingSeconds
}

// TimerState enumerates the pomodoro timer's phases.
type TimerState string

const (
	TimerStopped    TimerState = "stopped"
	TimerWork       TimerState = "work"
	TimerShortBreak TimerState = "short_break"
	TimerLongBreak  TimerState = "long_break"
)

// PomodoroState is a value snapshot of the pomodoro timer. The timer owns the
// authoritative copy; everything outside reads snapshots.
type PomodoroState struct {
	CurrentState         TimerState
	TimeRemainingSeconds int
	WorkMinutes          int
	ShortBreakMinutes    int
	LongBreakMinutes     int
	PomodorosCompleted   int
	PomodorosUntilLong   int
	IsPaused             bool
}

// DisplayTime formats the remaining time as MM:SS.
func (p PomodoroState) DisplayTime() string {
	m := p.TimeRemainingSeconds / 60
	s := p.TimeRemainingSeconds % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
