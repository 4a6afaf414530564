package speech

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// fakeEngine records spoken text and can be made slow to back up the queue.
type fakeEngine struct {
	mu      sync.Mutex
	spoken  []string
	delay   time.Duration
	stopped int
}

func (e *fakeEngine) Speak(text string) error {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spoken = append(e.spoken, text)
	return nil
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped++
}

func (e *fakeEngine) spokenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.spoken)
}

func TestQueueSpeakerPlaysInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := &fakeEngine{}
	s := NewQueueSpeaker(engine, zap.NewNop())
	s.Start()

	s.Say("first")
	s.Say("second")

	require.Eventually(t, func() bool { return engine.spokenCount() == 2 },
		2*time.Second, 5*time.Millisecond)

	engine.mu.Lock()
	assert.Equal(t, []string{"first", "second"}, engine.spoken)
	engine.mu.Unlock()

	s.Close()
}

func TestQueueSpeakerIgnoresEmpty(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := &fakeEngine{}
	s := NewQueueSpeaker(engine, zap.NewNop())
	s.Start()
	defer s.Close()

	s.Say("")
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, engine.spokenCount())
}

func TestCancelAllDropsQueue(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := &fakeEngine{delay: 50 * time.Millisecond}
	s := NewQueueSpeaker(engine, zap.NewNop())
	s.Start()
	defer s.Close()

	s.Say("one")
	// Give the playback goroutine time to pick up the first utterance.
	time.Sleep(10 * time.Millisecond)
	s.Say("two")
	s.Say("three")

	dropped := s.CancelAll()
	assert.GreaterOrEqual(t, dropped, 1, "pending utterances are dropped")

	engine.mu.Lock()
	stops := engine.stopped
	engine.mu.Unlock()
	assert.GreaterOrEqual(t, stops, 1, "current utterance is interrupted")
}

func TestCloseIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewQueueSpeaker(&fakeEngine{}, zap.NewNop())
	s.Start()
	s.Start() // second start is a no-op
	s.Close()
	s.Close() // second close is a no-op
}

func TestLogEngine(t *testing.T) {
	e := NewLogEngine(zap.NewNop())
	assert.NoError(t, e.Speak("hello"))
	e.Stop()
}
