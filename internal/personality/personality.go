// Package personality provides the phrase sets that color Code Sergeant's
// spoken feedback. A profile selects tone; the manager picks a phrase of the
// requested kind at random.
package personality

import (
	"fmt"
	"math/rand"
	"sync"
)

// PhraseKind names the situations a phrase can be requested for.
type PhraseKind string

const (
	PhraseSessionStart  PhraseKind = "session_start"
	PhraseSessionEnd    PhraseKind = "session_end"
	PhraseWarning       PhraseKind = "off_task_warning"
	PhraseYell          PhraseKind = "off_task_yell"
	PhraseDrill         PhraseKind = "off_task_drill"
	PhraseThinking      PhraseKind = "thinking"
	PhraseReminder      PhraseKind = "reminder"
	PhraseStuck         PhraseKind = "encouragement_stuck"
	PhraseRefocus       PhraseKind = "refocus_gentle"
	PhraseBreak         PhraseKind = "break_suggestion"
	PhraseEncouragement PhraseKind = "encouragement_general"
)

// Profile describes a personality.
type Profile struct {
	Name        string
	WakeWord    string
	Description string
	Tone        []string
}

// Predefined returns a built-in profile by name, falling back to sergeant.
func Predefined(name string) Profile {
	switch name {
	case "buddy":
		return Profile{
			Name:        "buddy",
			WakeWord:    "hey buddy",
			Description: "A friendly, supportive friend who encourages you gently.",
			Tone:        []string{"friendly", "supportive", "casual", "warm"},
		}
	case "advisor":
		return Profile{
			Name:        "advisor",
			WakeWord:    "hey advisor",
			Description: "A professional advisor who provides thoughtful guidance.",
			Tone:        []string{"professional", "helpful", "respectful", "clear"},
		}
	case "coach":
		return Profile{
			Name:        "coach",
			WakeWord:    "hey coach",
			Description: "A motivational coach who inspires you to achieve your goals.",
			Tone:        []string{"motivational", "energetic", "positive"},
		}
	default:
		return Profile{
			Name:        "sergeant",
			WakeWord:    "hey sergeant",
			Description: "A strict drill sergeant who keeps you focused with firm, no-nonsense commands.",
			Tone:        []string{"strict", "firm", "commanding"},
		}
	}
}

// Manager hands out phrases matching the active profile.
type Manager struct {
	mu      sync.RWMutex
	profile Profile
	phrases map[PhraseKind][]string
	rng     *rand.Rand
}

// NewManager builds a manager for the named profile. seed fixes phrase
// selection for tests; pass 0 for nondeterministic selection.
func NewManager(name string, seed int64) *Manager {
	if seed == 0 {
		seed = rand.Int63()
	}
	m := &Manager{
		rng: rand.New(rand.NewSource(seed)),
	}
	m.SetProfile(Predefined(name))
	return m
}

// Profile returns the active profile.
func (m *Manager) Profile() Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

// SetProfile switches the active profile and its phrase set.
func (m *Manager) SetProfile(p Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = p
	m.phrases = phrasesFor(p.Name)
}

// Phrase returns a phrase of the given kind, or a generic fallback when the
// kind has no entries.
func (m *Manager) Phrase(kind PhraseKind) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.phrases[kind]
	if len(list) == 0 {
		return "Stay focused!"
	}
	return list[m.rng.Intn(len(list))]
}

// SessionSummary formats the end-of-session spoken summary.
func (m *Manager) SessionSummary(focusMinutes, distractions int) string {
	return fmt.Sprintf("Session complete. %d minutes of focus, %d distractions.", focusMinutes, distractions)
}

func phrasesFor(name string) map[PhraseKind][]string {
	switch name {
	case "buddy":
		return map[PhraseKind][]string{
			PhraseSessionStart:  {"Alright, let's get into it!", "Session started, you've got this."},
			PhraseSessionEnd:    {"Nice work today.", "Good session, take a breather."},
			PhraseWarning:       {"Hey, that doesn't look like your goal.", "Gentle nudge: back to the task?"},
			PhraseYell:          {"Come on, close that tab!", "Seriously, back to work, friend."},
			PhraseDrill:         {"Still waiting on you...", "That tab is still open.", "Focus, focus, focus."},
			PhraseThinking:      {"Take your time, thinking counts."},
			PhraseReminder:      {"Quick check-in: how's the goal coming?", "Still on track?"},
			PhraseStuck:         {"Stuck? Try the smallest next step."},
			PhraseRefocus:       {"Deep breath, back to one thing."},
			PhraseBreak:         {"You've earned a break soon."},
			PhraseEncouragement: {"You're doing great, keep it rolling."},
		}
	case "advisor":
		return map[PhraseKind][]string{
			PhraseSessionStart:  {"Session started. I will monitor your focus."},
			PhraseSessionEnd:    {"Session complete. Review the summary when convenient."},
			PhraseWarning:       {"This activity appears unrelated to your goal."},
			PhraseYell:          {"Please return to your stated objective."},
			PhraseDrill:         {"You remain off task.", "Your objective is still pending."},
			PhraseThinking:      {"Reflection time noted."},
			PhraseReminder:      {"A scheduled reminder: consider your progress."},
			PhraseStuck:         {"Consider decomposing the problem into smaller steps."},
			PhraseRefocus:       {"I recommend returning attention to a single task."},
			PhraseBreak:         {"A short break may improve your output."},
			PhraseEncouragement: {"Your progress is consistent. Well done."},
		}
	case "coach":
		return map[PhraseKind][]string{
			PhraseSessionStart:  {"Let's go! Eyes on the prize!"},
			PhraseSessionEnd:    {"Great session! That's how it's done!"},
			PhraseWarning:       {"Hey! That's not the play we called!"},
			PhraseYell:          {"Get back in the game, now!"},
			PhraseDrill:         {"Push through it!", "Back on the field!", "No excuses!"},
			PhraseThinking:      {"Good, visualize the next move."},
			PhraseReminder:      {"Checkpoint! How's the drive going?"},
			PhraseStuck:         {"Champions break big problems into small wins."},
			PhraseRefocus:       {"Reset. One play at a time."},
			PhraseBreak:         {"Hydrate and stretch, then back at it."},
			PhraseEncouragement: {"That's the energy! Keep it up!"},
		}
	default: // sergeant
		return map[PhraseKind][]string{
			PhraseSessionStart:  {"Session started! Eyes forward!", "On the clock. Move!"},
			PhraseSessionEnd:    {"Session complete. Dismissed.", "Stand down. Review your numbers."},
			PhraseWarning:       {"That is not your mission.", "Eyes on the objective!"},
			PhraseYell:          {"Drop that distraction, now!", "Back to work! That's an order!"},
			PhraseDrill:         {"Still off task!", "I can wait all day. Get back to it!", "Focus up, soldier!"},
			PhraseThinking:      {"Thinking time. Carry on."},
			PhraseReminder:      {"Status check: are you on mission?", "Reminder: the objective stands."},
			PhraseStuck:         {"Stuck is temporary. Name the next step and take it."},
			PhraseRefocus:       {"Regroup. One target at a time."},
			PhraseBreak:         {"Even soldiers rest. Take five soon."},
			PhraseEncouragement: {"Outstanding pace. Maintain it."},
		}
	}
}
