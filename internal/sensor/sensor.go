// Package sensor provides ActivitySensor implementations for environments
// without a native OS monitor: a scripted sensor driven programmatically
// (tests, demos) and a stdin-driven sensor for interactive use.
package sensor

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// Scripted is an ActivitySensor whose current activity is set by the caller.
type Scripted struct {
	mu       sync.Mutex
	current  types.ActivityEvent
	hasValue bool
}

// NewScripted builds an empty scripted sensor.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Set replaces the current activity.
func (s *Scripted) Set(a types.ActivityEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	s.current = a
	s.hasValue = true
}

// CurrentActivity returns the last value set, or a neutral unknown activity
// before the first Set.
func (s *Scripted) CurrentActivity() (types.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasValue {
		return types.ActivityEvent{
			Timestamp:      time.Now(),
			App:            "unknown",
			KeyboardActive: true,
			MouseActive:    true,
		}, nil
	}
	return s.current, nil
}

var _ types.ActivitySensor = (*Scripted)(nil)

// Stdin reads activity lines of the form "app | window title" from a reader.
// The last line read is the current activity; idle time is the time since the
// last line, with AFK inferred past a threshold.
type Stdin struct {
	mu           sync.Mutex
	current      types.ActivityEvent
	lastInput    time.Time
	afkThreshold time.Duration
	logger       *zap.Logger
}

// NewStdin builds a sensor reading from r. afkThreshold bounds how long
// without input before the user counts as AFK.
func NewStdin(r io.Reader, afkThreshold time.Duration, logger *zap.Logger) *Stdin {
	s := &Stdin{
		afkThreshold: afkThreshold,
		lastInput:    time.Now(),
		logger:       logger,
	}
	go s.readLoop(r)
	return s
}

func (s *Stdin) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		app, title := line, ""
		if idx := strings.Index(line, "|"); idx >= 0 {
			app = strings.TrimSpace(line[:idx])
			title = strings.TrimSpace(line[idx+1:])
		}
		s.mu.Lock()
		s.current = types.ActivityEvent{
			Timestamp:      time.Now(),
			App:            app,
			Title:          title,
			KeyboardActive: true,
			MouseActive:    true,
		}
		s.lastInput = time.Now()
		s.mu.Unlock()
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("activity input closed", zap.Error(err))
	}
}

// CurrentActivity returns the last line's activity with idle/AFK state
// derived from time since the line arrived.
func (s *Stdin) CurrentActivity() (types.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.current
	if a.App == "" {
		a = types.ActivityEvent{App: "unknown", KeyboardActive: true, MouseActive: true}
	}
	idle := time.Since(s.lastInput)
	a.Timestamp = time.Now()
	a.IdleSeconds = idle.Seconds()
	a.IsAFK = idle >= s.afkThreshold
	return a, nil
}

var _ types.ActivitySensor = (*Stdin)(nil)
