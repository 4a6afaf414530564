package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/personality"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// llmJudgment mirrors the JSON contract the backend must honor.
type llmJudgment struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reason         string  `json:"reason"`
	Say            string  `json:"say"`
	Action         string  `json:"action"`
}

// parseResponse extracts the JSON object from a raw completion, sanitizes
// every field, and applies the distraction-keyword override.
func (e *Engine) parseResponse(raw string, activity types.ActivityEvent) (types.Judgment, error) {
	jsonStr := extractJSON(raw)

	var parsed llmJudgment
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return types.Judgment{}, fmt.Errorf("invalid judgment JSON: %w", err)
	}

	j := types.Judgment{
		Classification: types.SanitizeClassification(parsed.Classification),
		Confidence:     types.ClampConfidence(parsed.Confidence),
		Reason:         truncate(parsed.Reason, maxReasonLen),
		Say:            truncate(parsed.Say, maxSayLen),
		Action:         types.SanitizeAction(parsed.Action),
	}
	if parsed.Classification != string(j.Classification) {
		e.logger.Warn("invalid classification from LLM, defaulting to unknown",
			zap.String("classification", parsed.Classification))
	}

	j = e.applyKeywordOverride(j, activity)

	// Backfill an utterance when the action demands one.
	if j.Say == "" && j.Action != types.ActionNone {
		if j.Action == types.ActionYell {
			j.Say = e.phrases.Phrase(personality.PhraseYell)
		} else {
			j.Say = e.phrases.Phrase(personality.PhraseWarning)
		}
	}

	return j, nil
}

// applyKeywordOverride forces off_task for known distraction apps regardless
// of the classifier's verdict. Guards against false negatives on unambiguous
// distractions like social media and streaming.
func (e *Engine) applyKeywordOverride(j types.Judgment, activity types.ActivityEvent) types.Judgment {
	kw, ok := e.matchDistractionKeyword(activity)
	if !ok {
		return j
	}
	if j.Classification != types.ClassOffTask {
		e.logger.Info("forcing off_task for known distraction", zap.String("keyword", kw))
	}
	j.Classification = types.ClassOffTask
	j.Confidence = 0.95
	j.Action = types.ActionYell
	j.Reason = "Detected distraction: " + kw
	j.Say = e.phrases.Phrase(personality.PhraseYell)
	return j
}

// extractJSON pulls the outermost JSON object out of a completion that may
// carry extra prose around it.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end != -1 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
