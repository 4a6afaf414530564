// Package store persists session history. Completed sessions are recorded in
// a local SQLite database for querying and additionally written as JSON log
// files, one per session, for inspection and export.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// SessionRecord is one completed session as persisted.
type SessionRecord struct {
	ID                string    `json:"id"`
	Goal              string    `json:"goal"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	FocusSeconds      int       `json:"focus_seconds"`
	IdleSeconds       int       `json:"idle_seconds"`
	OffTaskSeconds    int       `json:"off_task_seconds"`
	ThinkingSeconds   int       `json:"thinking_seconds"`
	DistractionsCount int       `json:"distractions_count"`
	BestStreakSeconds int       `json:"best_streak_seconds"`
	Pomodoros         int       `json:"pomodoros_completed"`

	VoiceNotes      []types.VoiceNote        `json:"voice_notes,omitempty"`
	DistractionLogs []types.DistractionEntry `json:"distraction_logs,omitempty"`
	Annotations     []string                 `json:"annotations,omitempty"`

	Personality string            `json:"personality,omitempty"`
	Settings    *SettingsSnapshot `json:"settings,omitempty"`
}

// SettingsSnapshot records the configuration a session ran with, for the
// session log file. Credentials are never part of it.
type SettingsSnapshot struct {
	LLMProvider      string  `json:"llm_provider"`
	JudgeIntervalSec int     `json:"judge_interval_sec"`
	PollIntervalSec  float64 `json:"poll_interval_sec"`
	CooldownSeconds  int     `json:"cooldown_seconds"`
	WorkMinutes      int     `json:"work_minutes"`
}

// NewRecord builds a SessionRecord from finalized session stats, minting a
// fresh session ID.
func NewRecord(goal string, stats types.SessionStats) SessionRecord {
	return SessionRecord{
		ID:                uuid.NewString(),
		Goal:              goal,
		StartTime:         stats.StartTime,
		EndTime:           stats.EndTime,
		FocusSeconds:      stats.FocusSeconds,
		IdleSeconds:       stats.IdleSeconds,
		OffTaskSeconds:    stats.OffTaskSeconds,
		ThinkingSeconds:   stats.ThinkingSeconds,
		DistractionsCount: stats.DistractionsCount,
		BestStreakSeconds: stats.BestFocusStreakSecs,
		Pomodoros:         stats.PomodorosCompleted,
		VoiceNotes:        stats.VoiceNotes,
		DistractionLogs:   stats.DistractionLogs,
		Annotations:       stats.Annotations,
	}
}

// Duration is the wall-clock session length.
func (r SessionRecord) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// FocusRate is the fraction of attributed time spent on task, in [0, 1].
func (r SessionRecord) FocusRate() float64 {
	total := r.FocusSeconds + r.IdleSeconds + r.OffTaskSeconds + r.ThinkingSeconds
	if total == 0 {
		return 0
	}
	return float64(r.FocusSeconds+r.ThinkingSeconds) / float64(total)
}

// SessionStore is the SQLite history database.
type SessionStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenSessionStore opens (or creates) the history database at path.
func OpenSessionStore(path string, logger *zap.Logger) (*SessionStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logger.Debug("failed to set sqlite journal_mode=WAL", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logger.Debug("failed to set sqlite synchronous=NORMAL", zap.Error(err))
	}

	s := &SessionStore{db: db, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SessionStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		goal TEXT NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		focus_seconds INTEGER NOT NULL DEFAULT 0,
		idle_seconds INTEGER NOT NULL DEFAULT 0,
		off_task_seconds INTEGER NOT NULL DEFAULT 0,
		thinking_seconds INTEGER NOT NULL DEFAULT 0,
		distractions_count INTEGER NOT NULL DEFAULT 0,
		best_streak_seconds INTEGER NOT NULL DEFAULT 0,
		pomodoros_completed INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(start_time);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create sessions schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SessionStore) Close() error {
	return s.db.Close()
}

// SaveSession inserts one completed session row.
func (s *SessionStore) SaveSession(rec SessionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (
			id, goal, start_time, end_time,
			focus_seconds, idle_seconds, off_task_seconds, thinking_seconds,
			distractions_count, best_streak_seconds, pomodoros_completed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Goal, rec.StartTime.UTC(), rec.EndTime.UTC(),
		rec.FocusSeconds, rec.IdleSeconds, rec.OffTaskSeconds, rec.ThinkingSeconds,
		rec.DistractionsCount, rec.BestStreakSeconds, rec.Pomodoros,
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", rec.ID, err)
	}
	s.logger.Debug("session saved", zap.String("session_id", rec.ID))
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *SessionStore) RecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT id, goal, start_time, end_time,
			focus_seconds, idle_seconds, off_task_seconds, thinking_seconds,
			distractions_count, best_streak_seconds, pomodoros_completed
		FROM sessions ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(
			&rec.ID, &rec.Goal, &rec.StartTime, &rec.EndTime,
			&rec.FocusSeconds, &rec.IdleSeconds, &rec.OffTaskSeconds, &rec.ThinkingSeconds,
			&rec.DistractionsCount, &rec.BestStreakSeconds, &rec.Pomodoros,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TotalFocusSince sums focus time across sessions starting at or after since.
func (s *SessionStore) TotalFocusSince(since time.Time) (time.Duration, error) {
	var secs sql.NullInt64
	err := s.db.QueryRow(
		`SELECT SUM(focus_seconds + thinking_seconds) FROM sessions WHERE start_time >= ?`,
		since.UTC(),
	).Scan(&secs)
	if err != nil {
		return 0, fmt.Errorf("failed to sum focus time: %w", err)
	}
	return time.Duration(secs.Int64) * time.Second, nil
}
