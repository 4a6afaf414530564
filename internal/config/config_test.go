package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.5, cfg.PollIntervalSec)
	assert.Equal(t, 10, cfg.JudgeIntervalSec)
	assert.Equal(t, 30, cfg.CooldownSeconds)
	assert.Equal(t, []int{300, 600, 900}, cfg.ReminderOffsetsSec)
	assert.Equal(t, 25, cfg.Pomodoro.WorkMinutes)
	assert.Equal(t, 4, cfg.Pomodoro.PomodorosUntilLong)
	assert.Contains(t, cfg.Judge.DistractionKeywords, "twitter")
	assert.Contains(t, cfg.Judge.ProductiveKeywords, "vscode")
	assert.Equal(t, 6, cfg.Judge.DriftThreshold)
	assert.Equal(t, "sergeant", cfg.Personality.Name)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sergeant.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().JudgeIntervalSec, cfg.JudgeIntervalSec)

	_, err = os.Stat(path)
	assert.NoError(t, err, "Load must create the file with defaults")
}

func TestLoadMergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sergeant.yaml")
	content := `
judge_interval_sec: 5
cooldown_seconds: 60
pomodoro:
  work_minutes: 50
personality:
  name: coach
motivation:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.JudgeIntervalSec)
	assert.Equal(t, 60, cfg.CooldownSeconds)
	assert.Equal(t, 50, cfg.Pomodoro.WorkMinutes)
	assert.Equal(t, "coach", cfg.Personality.Name)
	assert.False(t, cfg.Motivation.IsEnabled())
	// Untouched values keep their defaults.
	assert.Equal(t, 0.5, cfg.PollIntervalSec)
	assert.Equal(t, 5, cfg.Pomodoro.ShortBreakMinutes)
	assert.NotEmpty(t, cfg.Judge.DistractionKeywords)
}

func TestLoadMalformedFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sergeant.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{{{not yaml"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err, "a bad config must not block startup")
	assert.Equal(t, DefaultConfig().JudgeIntervalSec, cfg.JudgeIntervalSec)
}

func TestSaveNeverPersistsAPIKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sergeant.yaml")

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-super-secret"
	require.NoError(t, Save(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-super-secret")
}

func TestMergeSlicesReplaceWholesale(t *testing.T) {
	base := DefaultConfig()
	override := Config{}
	override.Judge.DistractionKeywords = []string{"solitaire"}

	out := Merge(base, override)
	assert.Equal(t, []string{"solitaire"}, out.Judge.DistractionKeywords)
	assert.Equal(t, base.Judge.ProductiveKeywords, out.Judge.ProductiveKeywords)
}

func TestMergeZeroValuesKeepBase(t *testing.T) {
	base := DefaultConfig()
	out := Merge(base, Config{})
	assert.Equal(t, base.JudgeIntervalSec, out.JudgeIntervalSec)
	assert.Equal(t, base.Pomodoro, out.Pomodoro)
	assert.Equal(t, base.Personality, out.Personality)
	assert.True(t, out.Motivation.IsEnabled())
}

func TestMergeMotivationEnabledAlone(t *testing.T) {
	base := DefaultConfig()
	override := Config{}
	override.Motivation.Enabled = Bool(false)

	out := Merge(base, override)
	assert.False(t, out.Motivation.IsEnabled())
	assert.Equal(t, base.Motivation.CheckIntervalMinutes, out.Motivation.CheckIntervalMinutes)
	assert.Equal(t, base.Motivation.FlowMinFocusMinutes, out.Motivation.FlowMinFocusMinutes)
}

func TestMergePersonalityNameAloneKeepsDefaults(t *testing.T) {
	base := DefaultConfig()
	override := Config{}
	override.Personality.Name = "coach"

	out := Merge(base, override)
	assert.Equal(t, "coach", out.Personality.Name)
	assert.Equal(t, base.Personality.WakeWordName, out.Personality.WakeWordName)
	assert.Equal(t, base.Personality.Tone, out.Personality.Tone)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("SERGEANT_LLM_MODEL", "gpt-4o")

	path := filepath.Join(t.TempDir(), "sergeant.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLM.APIKey)
	assert.Equal(t, "openai", cfg.LLM.Provider, "an API key in the env flips the default provider")
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
}

func TestEnvProviderOverrideWins(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("SERGEANT_LLM_PROVIDER", "ollama")

	path := filepath.Join(t.TempDir(), "sergeant.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
}
