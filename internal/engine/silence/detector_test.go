// internal/engine/silence/detector_test.go
package silence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const tick = 100 * time.Millisecond

func collect(d *Detector, samples []bool) []Event {
	var events []Event
	for _, s := range samples {
		if ev := d.Tick(s); ev != None {
			events = append(events, ev)
		}
	}
	return events
}

func samples(speech int, quiet int) []bool {
	out := make([]bool, 0, speech+quiet)
	for i := 0; i < speech; i++ {
		out = append(out, true)
	}
	for i := 0; i < quiet; i++ {
		out = append(out, false)
	}
	return out
}

func TestDetector_TimeoutFiresExactlyOnce(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		speech   int
		quiet    int
	}{
		{name: "threshold exactly reached", duration: 2 * time.Second, speech: 1, quiet: 20},
		{name: "silence continues past threshold", duration: 2 * time.Second, speech: 5, quiet: 100},
		{name: "short threshold", duration: 300 * time.Millisecond, speech: 3, quiet: 50},
		{name: "long speech before silence", duration: 1 * time.Second, speech: 200, quiet: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(tt.duration, tick)

			timeouts := 0
			for _, ev := range collect(d, samples(tt.speech, tt.quiet)) {
				if ev == Timeout {
					timeouts++
				}
			}
			assert.Equal(t, 1, timeouts, "exactly one timeout per continuous silence interval")
		})
	}
}

func TestDetector_NoSpeechNeverTimesOut(t *testing.T) {
	d := NewDetector(500*time.Millisecond, tick)

	for i := 0; i < 1000; i++ {
		assert.Equal(t, None, d.Tick(false))
	}
	assert.False(t, d.SpeechSeen())
}

func TestDetector_SpeechStartedOnFirstSampleAfterIdle(t *testing.T) {
	d := NewDetector(1*time.Second, tick)

	assert.Equal(t, SpeechStarted, d.Tick(true))
	assert.Equal(t, None, d.Tick(true), "no repeat while continuously speaking")

	// Go quiet, then resume: a fresh SpeechStarted fires.
	d.Tick(false)
	d.Tick(false)
	assert.Equal(t, SpeechStarted, d.Tick(true))
}

func TestDetector_SpeechResetsSilenceTimer(t *testing.T) {
	d := NewDetector(500*time.Millisecond, tick)

	d.Tick(true)
	// Four quiet ticks, not enough for the 5-tick threshold.
	for i := 0; i < 4; i++ {
		assert.Equal(t, None, d.Tick(false))
	}
	// Speech resets the timer; four more quiet ticks still do not fire.
	d.Tick(true)
	for i := 0; i < 4; i++ {
		assert.Equal(t, None, d.Tick(false))
	}
	assert.Equal(t, Timeout, d.Tick(false))
}

func TestDetector_HoldsUntilSpeechResumesThenFiresAgain(t *testing.T) {
	d := NewDetector(300*time.Millisecond, tick)

	d.Tick(true)
	events := collect(d, samples(0, 30))
	assert.Equal(t, []Event{Timeout}, events, "held through extended silence")

	// New utterance, new silence interval, new timeout.
	assert.Equal(t, SpeechStarted, d.Tick(true))
	events = collect(d, samples(0, 10))
	assert.Equal(t, []Event{Timeout}, events)
}

func TestDetector_ResetClearsSpeechGate(t *testing.T) {
	d := NewDetector(300*time.Millisecond, tick)

	d.Tick(true)
	d.Reset()

	assert.False(t, d.SpeechSeen())
	for i := 0; i < 50; i++ {
		assert.Equal(t, None, d.Tick(false), "reset turn without speech must not time out")
	}
}
