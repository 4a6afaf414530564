package types

import "context"

// Speaker delivers spoken feedback. Implementations queue utterances and play
// them asynchronously; CancelAll drops everything pending and reports how many
// utterances were dropped.
type Speaker interface {
	Say(text string)
	CancelAll() int
}

// ActivitySensor reports the user's current foreground activity. The OS-level
// sensing behind it is out of scope; the controller only polls this method.
type ActivitySensor interface {
	CurrentActivity() (ActivityEvent, error)
}

// AIBackend is the LLM collaborator used by the judgment engine and the
// motivation monitor. When jsonMode is set the backend is asked for a strict
// JSON object response. Timeouts are the implementation's responsibility;
// callers treat any error as "backend unavailable".
type AIBackend interface {
	Complete(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

type noopSpeaker struct{}

func (noopSpeaker) Say(string)     {}
func (noopSpeaker) CancelAll() int { return 0 }

var _ Speaker = noopSpeaker{}

// Silent returns a Speaker that discards all utterances. Used when speech is
// disabled.
func Silent() Speaker { return noopSpeaker{} }
