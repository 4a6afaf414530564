package judge

import (
	"fmt"
	"strings"

	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// buildPrompt assembles the judgment prompt: goal, activity context, the last
// three history entries, an optional drift warning, and the JSON contract.
func (e *Engine) buildPrompt(goal string, activity types.ActivityEvent, history []types.ActivityEvent) string {
	var b strings.Builder

	profile := e.phrases.Profile()

	b.WriteString("You are a focus assistant helping users stay on task.")
	if profile.Description != "" {
		fmt.Fprintf(&b, "\nYour personality: %s", profile.Description)
	}

	fmt.Fprintf(&b, "\n\nUser's goal: %s\n", goal)

	fmt.Fprintf(&b, "\nCurrent activity:\n- App: %s\n- Window title: %s\n- Idle duration: %.0f seconds\n- Keyboard active: %t\n",
		activity.App, activity.Title, activity.IdleSeconds, activity.KeyboardActive)

	if len(history) > 0 {
		recent := history
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		b.WriteString("\nRecent activities:\n")
		for _, h := range recent {
			fmt.Fprintf(&b, "- %s: %s\n", h.App, h.Title)
		}
	}

	if e.DetectGoalDrift() {
		b.WriteString("\nWARNING: User appears to be gradually drifting from their goal. Consider a firmer response.\n")
	}

	b.WriteString(`
CLASSIFICATION RULES:
- "on_task": Activity is DIRECTLY related to the goal (coding, documentation, relevant research)
- "off_task": ANY entertainment, social media, videos, games, news, or unrelated browsing
- "thinking": User is in a productive app but idle (30-180 seconds) - they may be thinking
- "idle": User is truly AFK (away from keyboard) for extended period
- "unknown": Activity is ambiguous but NOT entertainment

CRITICAL - These are ALWAYS "off_task":
- YouTube (unless goal specifically involves YouTube)
- Netflix, Twitch, any streaming
- Twitter/X, Facebook, Instagram, TikTok, Reddit, Discord (social)
- News sites, sports sites
- Games of any kind
- Shopping sites
- Any video/audio entertainment

DO NOT classify entertainment as "idle" or "thinking" - that's WRONG. Entertainment = "off_task".

Output ONLY valid JSON:
{
  "classification": "on_task" | "off_task" | "thinking" | "idle" | "unknown",
  "confidence": 0.0-1.0,
  "reason": "brief explanation",
  "say": "short phrase (max 15 words)",
  "action": "none" | "warn" | "yell"
}

ACTION RULES:
- "none": For on_task or thinking
- "warn": First time off_task OR unknown activity
- "yell": Repeated off_task or obvious distraction (YouTube, social media, games)

JSON only:`)

	return b.String()
}
