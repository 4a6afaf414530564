package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LogWriter writes per-session JSON log files and markdown notes.
type LogWriter struct {
	logDir   string
	notesDir string
}

// NewLogWriter builds a writer rooted at the configured directories.
func NewLogWriter(logDir, notesDir string) *LogWriter {
	return &LogWriter{logDir: logDir, notesDir: notesDir}
}

// WriteSessionLog serializes one session record to a timestamped JSON file
// and returns its path.
func (w *LogWriter) WriteSessionLog(rec SessionRecord) (string, error) {
	if err := os.MkdirAll(w.logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("session_%s_%s.json",
		rec.StartTime.Format("20060102_150405"), rec.ID[:8])
	path := filepath.Join(w.logDir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write session log: %w", err)
	}
	return path, nil
}

// ExportMarkdown renders a session as a human-readable markdown report and
// writes it to the notes directory.
func (w *LogWriter) ExportMarkdown(rec SessionRecord) (string, error) {
	if err := os.MkdirAll(w.notesDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create notes directory: %w", err)
	}

	name := fmt.Sprintf("session_%s.md", rec.StartTime.Format("20060102_150405"))
	path := filepath.Join(w.notesDir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "# Focus Session: %s\n\n", rec.Goal)
	fmt.Fprintf(&b, "**Date:** %s  \n", rec.StartTime.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "**Duration:** %s  \n", formatDuration(rec.Duration()))
	fmt.Fprintf(&b, "**Focus rate:** %.0f%%\n\n", rec.FocusRate()*100)

	b.WriteString("## Breakdown\n\n")
	fmt.Fprintf(&b, "- Focused: %s\n", formatDuration(time.Duration(rec.FocusSeconds)*time.Second))
	fmt.Fprintf(&b, "- Thinking: %s\n", formatDuration(time.Duration(rec.ThinkingSeconds)*time.Second))
	fmt.Fprintf(&b, "- Off task: %s\n", formatDuration(time.Duration(rec.OffTaskSeconds)*time.Second))
	fmt.Fprintf(&b, "- Idle: %s\n", formatDuration(time.Duration(rec.IdleSeconds)*time.Second))
	fmt.Fprintf(&b, "- Distractions: %d\n", rec.DistractionsCount)
	fmt.Fprintf(&b, "- Best focus streak: %s\n", formatDuration(time.Duration(rec.BestStreakSeconds)*time.Second))
	if rec.Pomodoros > 0 {
		fmt.Fprintf(&b, "- Pomodoros completed: %d\n", rec.Pomodoros)
	}

	if len(rec.VoiceNotes) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, note := range rec.VoiceNotes {
			fmt.Fprintf(&b, "- [%s] %s\n", note.Timestamp.Format("15:04"), note.Content)
		}
	}
	if len(rec.DistractionLogs) > 0 {
		b.WriteString("\n## Reported distractions\n\n")
		for _, d := range rec.DistractionLogs {
			kind := ""
			if d.IsPhone {
				kind = " (phone)"
			}
			fmt.Fprintf(&b, "- [%s]%s %s\n", d.Timestamp.Format("15:04"), kind, d.Reason)
		}
	}
	if len(rec.Annotations) > 0 {
		b.WriteString("\n## Annotations\n\n")
		for _, a := range rec.Annotations {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write markdown export: %w", err)
	}
	return path, nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
