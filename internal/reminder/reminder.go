// Package reminder fires one-shot reminders at configured offsets from
// session start, then terminates. It is not a repeating timer.
package reminder

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/CuevaLabs/CodeSergeant/internal/personality"
	"github.com/CuevaLabs/CodeSergeant/internal/types"
)

// Scheduler emits reminder_triggered events at its offsets.
type Scheduler struct {
	offsets []time.Duration
	emit    func(types.Event)
	phrases *personality.Manager
	logger  *zap.Logger
	now     func() time.Time
}

// NewScheduler builds a scheduler. emit delivers events to the controller's
// queue; offsets may arrive unsorted.
func NewScheduler(offsetsSec []int, emit func(types.Event), phrases *personality.Manager, logger *zap.Logger) *Scheduler {
	offsets := make([]time.Duration, 0, len(offsetsSec))
	for _, s := range offsetsSec {
		if s > 0 {
			offsets = append(offsets, time.Duration(s)*time.Second)
		}
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return &Scheduler{
		offsets: offsets,
		emit:    emit,
		phrases: phrases,
		logger:  logger,
		now:     time.Now,
	}
}

// Run fires exactly one event per offset, sleeping in bounded steps so
// cancellation is observed within a second. Returns when all offsets have
// fired or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	start := s.now()
	s.logger.Info("reminder scheduler started", zap.Int("offsets", len(s.offsets)))

	for _, offset := range s.offsets {
		for {
			remaining := offset - s.now().Sub(start)
			if remaining <= 0 {
				break
			}
			wait := remaining
			if wait > time.Second {
				wait = time.Second
			}
			select {
			case <-ctx.Done():
				s.logger.Info("reminder scheduler cancelled")
				return
			case <-time.After(wait):
			}
		}

		message := s.phrases.Phrase(personality.PhraseReminder)
		s.emit(types.NewReminderTriggered(message))
		s.logger.Info("reminder fired", zap.Duration("offset", offset))
	}

	s.logger.Info("all reminders fired, scheduler stopping")
}
