// internal/engine/silence/detector.go
package silence

import "time"

// Event is the discrete outcome of one voice-activity tick.
type Event int

const (
	// None means keep listening.
	None Event = iota
	// SpeechStarted fires on the first speaking sample after being idle.
	// Used to cancel in-flight reply playback.
	SpeechStarted
	// Timeout fires exactly once per continuous silence interval that
	// reaches the configured duration, then holds until speech resumes.
	Timeout
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case SpeechStarted:
		return "SPEECH_STARTED"
	case Timeout:
		return "SILENCE_TIMEOUT"
	default:
		return "NONE"
	}
}

// Detector consumes boolean voice-activity samples at a fixed tick interval
// and emits speech-start and silence-timeout events. It is not safe for
// concurrent use; the session's consumer loop owns it.
type Detector struct {
	silenceDuration time.Duration
	tickInterval    time.Duration

	silenceElapsed time.Duration
	speaking       bool
	speechSeen     bool
	fired          bool
}

// NewDetector creates a detector for the given silence threshold and sample
// tick interval.
func NewDetector(silenceDuration, tickInterval time.Duration) *Detector {
	return &Detector{
		silenceDuration: silenceDuration,
		tickInterval:    tickInterval,
	}
}

// Tick applies one voice-activity sample and returns the event it produced.
//
// The silence timer resets to zero on every speaking sample and accumulates
// one tick on every non-speaking sample. A timeout can only fire after at
// least one speaking sample this turn, so a turn of total silence never
// submits.
func (d *Detector) Tick(hasSpeech bool) Event {
	if hasSpeech {
		d.silenceElapsed = 0
		d.fired = false
		wasIdle := !d.speaking
		d.speaking = true
		d.speechSeen = true
		if wasIdle {
			return SpeechStarted
		}
		return None
	}

	d.speaking = false
	d.silenceElapsed += d.tickInterval

	if !d.speechSeen {
		return None
	}
	if d.fired {
		return None
	}
	if d.silenceElapsed >= d.silenceDuration {
		d.fired = true
		return Timeout
	}
	return None
}

// SpeechSeen reports whether any speaking sample was observed this turn.
func (d *Detector) SpeechSeen() bool {
	return d.speechSeen
}

// Reset clears per-turn state. Called when a new turn begins.
func (d *Detector) Reset() {
	d.silenceElapsed = 0
	d.speaking = false
	d.speechSeen = false
	d.fired = false
}
