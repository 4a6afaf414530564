package judge

import (
	"github.com/CuevaLabs/CodeSergeant/internal/personality"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// fallback is the deterministic rule-based classifier used when no backend is
// configured or every backend attempt failed. Strict by design: anything
// matching a distraction keyword is off_task.
func (e *Engine) fallback(activity types.ActivityEvent) types.Judgment {
	if _, ok := e.matchDistractionKeyword(activity); ok {
		return types.Judgment{
			Classification: types.ClassOffTask,
			Confidence:     0.9,
			Reason:         "Detected entertainment/social/distraction",
			Say:            e.phrases.Phrase(personality.PhraseYell),
			Action:         types.ActionYell,
		}
	}

	if e.matchProductiveKeyword(activity) {
		minIdle, maxIdle := e.cfg.ThinkingMinIdleSec, e.cfg.ThinkingMaxIdleSec
		if maxIdle <= 0 {
			minIdle, maxIdle = 30, 180
		}
		if activity.IsThinking || (activity.IdleSeconds >= minIdle && activity.IdleSeconds <= maxIdle) {
			return types.Judgment{
				Classification: types.ClassThinking,
				Confidence:     0.7,
				Reason:         "User appears to be thinking in productive app",
				Say:            "",
				Action:         types.ActionNone,
			}
		}
		return types.Judgment{
			Classification: types.ClassOnTask,
			Confidence:     0.8,
			Reason:         "Detected productive app",
			Say:            "",
			Action:         types.ActionNone,
		}
	}

	return types.Judgment{
		Classification: types.ClassUnknown,
		Confidence:     0.5,
		Reason:         "Ambiguous activity - staying vigilant",
		Say:            e.phrases.Phrase(personality.PhraseWarning),
		Action:         types.ActionWarn,
	}
}
