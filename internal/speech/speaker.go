// Package speech adapts an external text-to-speech engine to the Speaker
// interface. Utterances are queued and played by a single goroutine so a slow
// engine never blocks callers; CancelAll drops the queue and interrupts the
// current utterance.
package speech

import (
	"sync"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// Engine is the boundary to the actual TTS implementation. Speak blocks until
// playback finishes or Stop interrupts it.
type Engine interface {
	Speak(text string) error
	Stop()
}

// QueueSpeaker implements types.Speaker over an Engine.
type QueueSpeaker struct {
	engine Engine
	logger *zap.Logger

	mu      sync.Mutex
	queue   []string
	wake    chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewQueueSpeaker builds a speaker over the given engine.
func NewQueueSpeaker(engine Engine, logger *zap.Logger) *QueueSpeaker {
	return &QueueSpeaker{
		engine: engine,
		logger: logger,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start launches the playback goroutine. Idempotent.
func (s *QueueSpeaker) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.playbackLoop()
}

// Close stops the playback goroutine. Pending utterances are dropped.
func (s *QueueSpeaker) Close() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stopCh)
	s.engine.Stop()
	<-s.doneCh
}

// Say queues an utterance. Empty strings are ignored.
func (s *QueueSpeaker) Say(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, text)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// CancelAll drops every queued utterance, interrupts the current one, and
// returns the number dropped.
func (s *QueueSpeaker) CancelAll() int {
	s.mu.Lock()
	n := len(s.queue)
	s.queue = nil
	s.mu.Unlock()

	s.engine.Stop()
	if n > 0 {
		s.logger.Debug("cancelled pending utterances", zap.Int("count", n))
	}
	return n
}

func (s *QueueSpeaker) playbackLoop() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.wake:
		}

		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			text := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if err := s.engine.Speak(text); err != nil {
				s.logger.Warn("speech engine error", zap.Error(err))
			}

			select {
			case <-s.stopCh:
				return
			default:
			}
		}
	}
}

var _ types.Speaker = (*QueueSpeaker)(nil)

// LogEngine is an Engine that writes utterances to the log instead of audio.
// Used when no TTS collaborator is wired up.
type LogEngine struct {
	logger *zap.Logger
}

// NewLogEngine builds a log-only engine.
func NewLogEngine(logger *zap.Logger) *LogEngine {
	return &LogEngine{logger: logger}
}

func (e *LogEngine) Speak(text string) error {
	e.logger.Info("say", zap.String("text", text))
	return nil
}

func (e *LogEngine) Stop() {}
