package types

import "time"

// EventType discriminates the variants of Event.
type EventType string

const (
	EventActivityUpdate      EventType = "activity_update"
	EventJudgmentUpdate      EventType = "judgment_update"
	EventReminderTriggered   EventType = "reminder_triggered"
	EventVoiceCommand        EventType = "voice_command"
	EventWakeWordDetected    EventType = "wake_word_detected"
	EventNoteTakingTriggered EventType = "note_taking_triggered"
	EventError               EventType = "error_event"
)

// Event is the tagged union carried on the controller's queue. Exactly the
// fields for the variant named by Type are populated; events are passed by
// value and never mutated after construction.
type Event struct {
	Type      EventType
	Timestamp time.Time

	Activity ActivityEvent // activity_update
	Judgment Judgment      // judgment_update
	// Repeat marks a judgment_update that re-applies an unchanged judgment
	// for time accrual. Repeats never speak, escalate, or count distractions.
	Repeat bool
	// Immediate marks a judgment_update triggered by an activity change
	// rather than the interval cadence. Immediates drive speech and drill
	// transitions but book no time.
	Immediate bool
	Message  string // reminder_triggered, error_event
	Command  string // voice_command
	Args     string // voice_command
	WakeWord string // wake_word_detected, note_taking_triggered
}

// NewActivityUpdate wraps an activity observation for the queue.
func NewActivityUpdate(a ActivityEvent) Event {
	return Event{Type: EventActivityUpdate, Timestamp: time.Now(), Activity: a}
}

// NewJudgmentUpdate wraps a judgment for the queue.
func NewJudgmentUpdate(j Judgment) Event {
	return Event{Type: EventJudgmentUpdate, Timestamp: time.Now(), Judgment: j}
}

// NewJudgmentRepeat wraps an unchanged judgment re-applied for accrual.
func NewJudgmentRepeat(j Judgment) Event {
	return Event{Type: EventJudgmentUpdate, Timestamp: time.Now(), Judgment: j, Repeat: true}
}

// NewJudgmentImmediate wraps a judgment made off-cadence on activity change.
func NewJudgmentImmediate(j Judgment) Event {
	return Event{Type: EventJudgmentUpdate, Timestamp: time.Now(), Judgment: j, Immediate: true}
}

// NewReminderTriggered wraps a fired reminder message.
func NewReminderTriggered(message string) Event {
	return Event{Type: EventReminderTriggered, Timestamp: time.Now(), Message: message}
}

// NewVoiceCommand wraps a parsed voice command and its argument text.
func NewVoiceCommand(command, args string) Event {
	return Event{Type: EventVoiceCommand, Timestamp: time.Now(), Command: command, Args: args}
}

// NewWakeWordDetected wraps a wake-word detection.
func NewWakeWordDetected(word string) Event {
	return Event{Type: EventWakeWordDetected, Timestamp: time.Now(), WakeWord: word}
}

// NewNoteTakingTriggered wraps a note-taking trigger.
func NewNoteTakingTriggered(word string) Event {
	return Event{Type: EventNoteTakingTriggered, Timestamp: time.Now(), WakeWord: word}
}

// NewErrorEvent wraps a worker error for surfacing on the queue.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Timestamp: time.Now(), Message: message}
}
