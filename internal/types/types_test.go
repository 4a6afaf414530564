package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeClassification(t *testing.T) {
	assert.Equal(t, ClassOnTask, SanitizeClassification("on_task"))
	assert.Equal(t, ClassThinking, SanitizeClassification("thinking"))
	assert.Equal(t, ClassUnknown, SanitizeClassification("procrastinating"))
	assert.Equal(t, ClassUnknown, SanitizeClassification(""))
}

func TestSanitizeAction(t *testing.T) {
	assert.Equal(t, ActionYell, SanitizeAction("yell"))
	assert.Equal(t, ActionNone, SanitizeAction("scream"))
	assert.Equal(t, ActionNone, SanitizeAction(""))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.5))
	assert.Equal(t, 0.7, ClampConfidence(0.7))
	assert.Equal(t, 1.0, ClampConfidence(3.0))
}

func TestActivityKeyAndContext(t *testing.T) {
	a := ActivityEvent{App: "chrome", Title: "YouTube - Home"}
	assert.Equal(t, "chrome:YouTube - Home", a.Key())
	assert.Equal(t, "chrome YouTube - Home", a.Context())
}

func TestJudgmentString(t *testing.T) {
	j := Judgment{Classification: ClassOffTask, Confidence: 0.95}
	assert.Equal(t, "off_task (95%)", j.String())
}

func TestSessionStatsHelpers(t *testing.T) {
	var s SessionStats

	s.AddVoiceNote("note one", "transcript one")
	assert.Len(t, s.VoiceNotes, 1)
	assert.False(t, s.VoiceNotes[0].Timestamp.IsZero())

	s.AddDistraction("scrolling", false)
	s.AddDistraction("phone buzzed", true)
	assert.Len(t, s.DistractionLogs, 2)
	assert.Len(t, s.PhoneReports, 1, "only phone distractions land in PhoneReports")

	s.AddAnnotation("switched subtask")
	assert.Equal(t, []string{"switched subtask"}, s.Annotations)

	s.FocusSeconds = 100
	s.IdleSeconds = 20
	s.OffTaskSeconds = 30
	s.ThinkingSeconds = 50
	assert.Equal(t, 200, s.TotalSeconds())
}

func TestPomodoroDisplayTime(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{60, "01:00"},
		{25 * 60, "25:00"},
		{3599, "59:59"},
	}
	for _, tt := range tests {
		p := PomodoroState{TimeRemainingSeconds: tt.seconds}
		assert.Equal(t, tt.want, p.DisplayTime())
	}
}

func TestEventConstructors(t *testing.T) {
	a := NewActivityUpdate(ActivityEvent{App: "vscode"})
	assert.Equal(t, EventActivityUpdate, a.Type)
	assert.Equal(t, "vscode", a.Activity.App)
	assert.False(t, a.Timestamp.IsZero())

	j := NewJudgmentUpdate(Judgment{Classification: ClassOnTask})
	assert.Equal(t, EventJudgmentUpdate, j.Type)
	assert.False(t, j.Repeat)

	jr := NewJudgmentRepeat(Judgment{Classification: ClassOnTask})
	assert.Equal(t, EventJudgmentUpdate, jr.Type)
	assert.True(t, jr.Repeat)

	ji := NewJudgmentImmediate(Judgment{Classification: ClassOffTask})
	assert.Equal(t, EventJudgmentUpdate, ji.Type)
	assert.True(t, ji.Immediate)
	assert.False(t, ji.Repeat)

	r := NewReminderTriggered("check in")
	assert.Equal(t, EventReminderTriggered, r.Type)
	assert.Equal(t, "check in", r.Message)

	v := NewVoiceCommand("save_note", "benchmark the parser")
	assert.Equal(t, EventVoiceCommand, v.Type)
	assert.Equal(t, "save_note", v.Command)
	assert.Equal(t, "benchmark the parser", v.Args)
}

func TestSilentSpeaker(t *testing.T) {
	s := Silent()
	s.Say("into the void")
	assert.Zero(t, s.CancelAll())
}
