package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

func sampleStats() types.SessionStats {
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	return types.SessionStats{
		StartTime:           start,
		EndTime:             start.Add(90 * time.Minute),
		FocusSeconds:        3600,
		IdleSeconds:         300,
		OffTaskSeconds:      600,
		ThinkingSeconds:     900,
		DistractionsCount:   3,
		BestFocusStreakSecs: 1200,
		PomodorosCompleted:  2,
	}
}

func TestNewRecordCopiesStats(t *testing.T) {
	stats := sampleStats()
	stats.AddVoiceNote("idea: cache the parse tree", "idea: cache the parse tree")
	stats.AddDistraction("phone", true)

	rec := NewRecord("refactor the scheduler", stats)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "refactor the scheduler", rec.Goal)
	assert.Equal(t, 3600, rec.FocusSeconds)
	assert.Len(t, rec.VoiceNotes, 1)
	assert.Len(t, rec.DistractionLogs, 1)
	assert.Equal(t, 90*time.Minute, rec.Duration())
}

func TestFocusRate(t *testing.T) {
	rec := NewRecord("g", sampleStats())
	// (3600 + 900) / 5400
	assert.InDelta(t, 0.8333, rec.FocusRate(), 0.001)

	empty := SessionRecord{}
	assert.Zero(t, empty.FocusRate())
}

func TestSessionStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSessionStore(filepath.Join(dir, "sessions.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	first := NewRecord("first goal", sampleStats())
	require.NoError(t, s.SaveSession(first))

	laterStats := sampleStats()
	laterStats.StartTime = laterStats.StartTime.Add(2 * time.Hour)
	laterStats.EndTime = laterStats.EndTime.Add(2 * time.Hour)
	second := NewRecord("second goal", laterStats)
	require.NoError(t, s.SaveSession(second))

	got, err := s.RecentSessions(10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "second goal", got[0].Goal)
	assert.Equal(t, "first goal", got[1].Goal)

	want := first
	want.VoiceNotes = nil
	want.DistractionLogs = nil
	want.Annotations = nil
	if diff := cmp.Diff(want, got[1], cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("stored session mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentSessionsLimit(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSessionStore(filepath.Join(dir, "sessions.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 5; i++ {
		stats := sampleStats()
		stats.StartTime = stats.StartTime.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.SaveSession(NewRecord("g", stats)))
	}

	got, err := s.RecentSessions(3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestTotalFocusSince(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSessionStore(filepath.Join(dir, "sessions.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	stats := sampleStats()
	require.NoError(t, s.SaveSession(NewRecord("g", stats)))

	total, err := s.TotalFocusSince(stats.StartTime.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4500*time.Second, total)

	total, err = s.TotalFocusSince(stats.StartTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWriteSessionLog(t *testing.T) {
	dir := t.TempDir()
	w := NewLogWriter(filepath.Join(dir, "logs"), filepath.Join(dir, "notes"))

	rec := NewRecord("write the parser", sampleStats())
	path, err := w.WriteSessionLog(rec)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got SessionRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Goal, got.Goal)
	assert.Equal(t, rec.FocusSeconds, got.FocusSeconds)
}

func TestExportMarkdown(t *testing.T) {
	dir := t.TempDir()
	w := NewLogWriter(filepath.Join(dir, "logs"), filepath.Join(dir, "notes"))

	stats := sampleStats()
	stats.AddVoiceNote("remember to benchmark", "remember to benchmark")
	stats.AddDistraction("checked phone", true)
	rec := NewRecord("write the parser", stats)

	path, err := w.ExportMarkdown(rec)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)

	assert.Contains(t, md, "# Focus Session: write the parser")
	assert.Contains(t, md, "remember to benchmark")
	assert.Contains(t, md, "(phone)")
	assert.Contains(t, md, "Pomodoros completed: 2")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "5m 30s", formatDuration(5*time.Minute+30*time.Second))
	assert.Equal(t, "1h 15m 0s", formatDuration(75*time.Minute))
}
