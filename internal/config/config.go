// Package config holds the typed Code Sergeant configuration: defaults, YAML
// load/save, a pure merge, and environment overrides. Secrets are read from
// the environment only and are never written back to disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all Code Sergeant configuration.
type Config struct {
	// Polling and judging cadence
	PollIntervalSec  float64 `yaml:"poll_interval_sec"`
	JudgeIntervalSec int     `yaml:"judge_interval_sec"`

	// Minimum gap between two yells
	CooldownSeconds int `yaml:"cooldown_seconds"`

	// One-shot reminder offsets from session start
	ReminderOffsetsSec []int `yaml:"reminder_offsets_sec"`

	LLM         LLMConfig         `yaml:"llm"`
	Judge       JudgeConfig       `yaml:"judge"`
	Pomodoro    PomodoroConfig    `yaml:"pomodoro"`
	Drill       DrillConfig       `yaml:"drill"`
	Motivation  MotivationConfig  `yaml:"motivation"`
	Personality PersonalityConfig `yaml:"personality"`
	Storage     StorageConfig     `yaml:"storage"`
}

// LLMConfig configures the AI backend used for judgment and motivation checks.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, ollama, none
	APIKey   string `yaml:"-"`        // env only, never persisted
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// JudgeConfig holds the judgment engine's policy constants. The drift and
// keyword values are tuned heuristics carried over from field use, exposed
// here rather than hardcoded.
type JudgeConfig struct {
	DistractionKeywords []string `yaml:"distraction_keywords"`
	ProductiveKeywords  []string `yaml:"productive_keywords"`

	PatternBufferSize int `yaml:"pattern_buffer_size"`
	DriftWindow       int `yaml:"drift_window"`
	DriftThreshold    int `yaml:"drift_threshold"`

	ThinkingMinIdleSec float64 `yaml:"thinking_min_idle_sec"`
	ThinkingMaxIdleSec float64 `yaml:"thinking_max_idle_sec"`
}

// PomodoroConfig configures the work/break timer.
type PomodoroConfig struct {
	WorkMinutes          int  `yaml:"work_minutes"`
	ShortBreakMinutes    int  `yaml:"short_break_minutes"`
	LongBreakMinutes     int  `yaml:"long_break_minutes"`
	PomodorosUntilLong   int  `yaml:"pomodoros_until_long_break"`
	AutoStartWithSession bool `yaml:"auto_start_with_session"`
}

// DrillConfig configures the off-task nag loop.
type DrillConfig struct {
	IntervalSec float64 `yaml:"interval_sec"`
}

// MotivationConfig configures the motivation monitor. Enabled is a pointer so
// a file that sets it to false is distinguishable from one that omits it.
type MotivationConfig struct {
	Enabled              *bool `yaml:"enabled"`
	CheckIntervalMinutes int   `yaml:"check_interval_minutes"`

	FlowMinFocusMinutes   int     `yaml:"flow_min_focus_minutes"`
	FlowMaxIdleSeconds    float64 `yaml:"flow_max_idle_seconds"`
	FlowMaxAppSwitches    int     `yaml:"flow_max_app_switches"`
	DistractedMinSwitches int     `yaml:"distracted_min_switches"`
	FatiguedMinMinutes    int     `yaml:"fatigued_min_minutes"`
	StrugglingIdleSeconds float64 `yaml:"struggling_idle_seconds"`
}

// IsEnabled reports whether the monitor should run; an unset Enabled means on.
func (m MotivationConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Bool returns a pointer to b, for optional config fields.
func Bool(b bool) *bool { return &b }

// PersonalityConfig selects the phrase set and wake word.
type PersonalityConfig struct {
	Name         string   `yaml:"name"` // sergeant, buddy, advisor, coach, custom
	WakeWordName string   `yaml:"wake_word_name"`
	Description  string   `yaml:"description"`
	Tone         []string `yaml:"tone"`
}

// StorageConfig configures session persistence.
type StorageConfig struct {
	LogDir       string `yaml:"log_dir"`
	NotesDir     string `yaml:"notes_dir"`
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the canonical defaults.
func DefaultConfig() Config {
	return Config{
		PollIntervalSec:    0.5,
		JudgeIntervalSec:   10,
		CooldownSeconds:    30,
		ReminderOffsetsSec: []int{300, 600, 900},
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.2",
			BaseURL:  "http://localhost:11434",
			Timeout:  "30s",
		},
		Judge: JudgeConfig{
			DistractionKeywords: []string{
				// Social media
				"instagram", "facebook", "twitter", "x.com", "tiktok", "reddit",
				"snapchat", "linkedin", "threads", "mastodon", "bluesky",
				// Video streaming
				"youtube", "netflix", "hulu", "disney+", "hbo", "twitch",
				"vimeo", "dailymotion", "prime video",
				// Messaging
				"discord", "whatsapp", "telegram", "messenger",
				// Entertainment
				"spotify", "apple music", "soundcloud",
				// Games
				"steam", "epic games", "game",
				// News and sports
				"espn", "sports",
				// Shopping
				"amazon", "ebay", "shopping",
			},
			ProductiveKeywords: []string{
				"code", "cursor", "vscode", "xcode", "sublime", "vim", "emacs", "neovim",
				"terminal", "iterm", "console", "shell",
				"docs", "documentation", "stackoverflow", "github", "gitlab", "bitbucket",
				"jira", "confluence", "notion", "obsidian",
				"figma", "sketch", "photoshop", "illustrator",
			},
			PatternBufferSize:  20,
			DriftWindow:        10,
			DriftThreshold:     6,
			ThinkingMinIdleSec: 30,
			ThinkingMaxIdleSec: 180,
		},
		Pomodoro: PomodoroConfig{
			WorkMinutes:          25,
			ShortBreakMinutes:    5,
			LongBreakMinutes:     15,
			PomodorosUntilLong:   4,
			AutoStartWithSession: false,
		},
		Drill: DrillConfig{IntervalSec: 1},
		Motivation: MotivationConfig{
			Enabled:               Bool(true),
			CheckIntervalMinutes:  3,
			FlowMinFocusMinutes:   10,
			FlowMaxIdleSeconds:    30,
			FlowMaxAppSwitches:    2,
			DistractedMinSwitches: 5,
			FatiguedMinMinutes:    45,
			StrugglingIdleSeconds: 120,
		},
		Personality: PersonalityConfig{
			Name:         "sergeant",
			WakeWordName: "sergeant",
			Tone:         []string{"strict", "firm", "commanding"},
		},
		Storage: StorageConfig{
			LogDir:       "logs",
			NotesDir:     "notes",
			DatabasePath: filepath.Join("logs", "sessions.db"),
		},
	}
}

// Load reads configuration from path, creating the file with defaults when it
// does not exist. A malformed file falls back to defaults rather than failing
// startup. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if werr := Save(cfg, path); werr != nil {
			return cfg, fmt.Errorf("failed to write default config: %w", werr)
		}
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		var loaded Config
		if uerr := yaml.Unmarshal(data, &loaded); uerr != nil {
			// Keep running on defaults; a bad config must not block a session.
			cfg.applyEnv()
			return cfg, nil
		}
		cfg = Merge(cfg, loaded)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config as YAML. The APIKey field is excluded by its tag so
// secrets never land on disk.
func Save(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Merge layers override on top of base, returning a new Config. Zero values
// in override leave the base value in place; slices replace wholesale.
func Merge(base, override Config) Config {
	out := base

	if override.PollIntervalSec != 0 {
		out.PollIntervalSec = override.PollIntervalSec
	}
	if override.JudgeIntervalSec != 0 {
		out.JudgeIntervalSec = override.JudgeIntervalSec
	}
	if override.CooldownSeconds != 0 {
		out.CooldownSeconds = override.CooldownSeconds
	}
	if override.ReminderOffsetsSec != nil {
		out.ReminderOffsetsSec = override.ReminderOffsetsSec
	}

	if override.LLM.Provider != "" {
		out.LLM.Provider = override.LLM.Provider
	}
	if override.LLM.Model != "" {
		out.LLM.Model = override.LLM.Model
	}
	if override.LLM.BaseURL != "" {
		out.LLM.BaseURL = override.LLM.BaseURL
	}
	if override.LLM.Timeout != "" {
		out.LLM.Timeout = override.LLM.Timeout
	}

	if override.Judge.DistractionKeywords != nil {
		out.Judge.DistractionKeywords = override.Judge.DistractionKeywords
	}
	if override.Judge.ProductiveKeywords != nil {
		out.Judge.ProductiveKeywords = override.Judge.ProductiveKeywords
	}
	if override.Judge.PatternBufferSize != 0 {
		out.Judge.PatternBufferSize = override.Judge.PatternBufferSize
	}
	if override.Judge.DriftWindow != 0 {
		out.Judge.DriftWindow = override.Judge.DriftWindow
	}
	if override.Judge.DriftThreshold != 0 {
		out.Judge.DriftThreshold = override.Judge.DriftThreshold
	}
	if override.Judge.ThinkingMinIdleSec != 0 {
		out.Judge.ThinkingMinIdleSec = override.Judge.ThinkingMinIdleSec
	}
	if override.Judge.ThinkingMaxIdleSec != 0 {
		out.Judge.ThinkingMaxIdleSec = override.Judge.ThinkingMaxIdleSec
	}

	if override.Pomodoro.WorkMinutes != 0 {
		out.Pomodoro.WorkMinutes = override.Pomodoro.WorkMinutes
	}
	if override.Pomodoro.ShortBreakMinutes != 0 {
		out.Pomodoro.ShortBreakMinutes = override.Pomodoro.ShortBreakMinutes
	}
	if override.Pomodoro.LongBreakMinutes != 0 {
		out.Pomodoro.LongBreakMinutes = override.Pomodoro.LongBreakMinutes
	}
	if override.Pomodoro.PomodorosUntilLong != 0 {
		out.Pomodoro.PomodorosUntilLong = override.Pomodoro.PomodorosUntilLong
	}
	if override.Pomodoro.AutoStartWithSession {
		out.Pomodoro.AutoStartWithSession = true
	}

	if override.Drill.IntervalSec != 0 {
		out.Drill.IntervalSec = override.Drill.IntervalSec
	}

	out.Motivation = mergeMotivation(out.Motivation, override.Motivation)

	if override.Personality.Name != "" {
		out.Personality.Name = override.Personality.Name
	}
	if override.Personality.WakeWordName != "" {
		out.Personality.WakeWordName = override.Personality.WakeWordName
	}
	if override.Personality.Description != "" {
		out.Personality.Description = override.Personality.Description
	}
	if override.Personality.Tone != nil {
		out.Personality.Tone = override.Personality.Tone
	}

	if override.Storage.LogDir != "" {
		out.Storage.LogDir = override.Storage.LogDir
	}
	if override.Storage.NotesDir != "" {
		out.Storage.NotesDir = override.Storage.NotesDir
	}
	if override.Storage.DatabasePath != "" {
		out.Storage.DatabasePath = override.Storage.DatabasePath
	}

	return out
}

func mergeMotivation(base, override MotivationConfig) MotivationConfig {
	out := base
	if override.Enabled != nil {
		out.Enabled = override.Enabled
	}
	if override.CheckIntervalMinutes != 0 {
		out.CheckIntervalMinutes = override.CheckIntervalMinutes
	}
	if override.FlowMinFocusMinutes != 0 {
		out.FlowMinFocusMinutes = override.FlowMinFocusMinutes
	}
	if override.FlowMaxIdleSeconds != 0 {
		out.FlowMaxIdleSeconds = override.FlowMaxIdleSeconds
	}
	if override.FlowMaxAppSwitches != 0 {
		out.FlowMaxAppSwitches = override.FlowMaxAppSwitches
	}
	if override.DistractedMinSwitches != 0 {
		out.DistractedMinSwitches = override.DistractedMinSwitches
	}
	if override.FatiguedMinMinutes != 0 {
		out.FatiguedMinMinutes = override.FatiguedMinMinutes
	}
	if override.StrugglingIdleSeconds != 0 {
		out.StrugglingIdleSeconds = override.StrugglingIdleSeconds
	}
	return out
}

// applyEnv reads environment overrides. API keys only ever come from here.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		if c.LLM.Provider == "" || c.LLM.Provider == "ollama" {
			c.LLM.Provider = "openai"
		}
	}
	if v := os.Getenv("SERGEANT_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("SERGEANT_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("SERGEANT_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
}
