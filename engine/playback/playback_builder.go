package playback

import (
	"time"

	"gitlab.com/gomidi/midi/v2"
)

type ClockSourceBuilderOption func(*clockSourceImpl)

// WithClockNow replaces the wall clock, mainly for tests.
//
// Parameters:
//   - now: the function returning the current time
//
// Returns:
//   - ClockSourceBuilderOption: a function that sets the time source
func WithClockNow(now func() time.Time) ClockSourceBuilderOption {
	return func(c *clockSourceImpl) {
		if now != nil {
			c.now = now
		}
	}
}

type AudioSourceBuilderOption func(*audioSourceImpl)

// WithMusic sets the WAV file to play. Without it the source plays silence and still counts
// samples.
//
// Parameters:
//   - path: the WAV file path
//
// Returns:
//   - AudioSourceBuilderOption: a function that sets the music file
func WithMusic(path string) AudioSourceBuilderOption {
	return func(a *audioSourceImpl) {
		a.music = path
	}
}

// WithSpeakerBuffer sets the speaker buffer length.
func WithSpeakerBuffer(d time.Duration) AudioSourceBuilderOption {
	return func(a *audioSourceImpl) {
		if d > 0 {
			a.buffer = d
		}
	}
}

// WithSpeaker replaces the audio output, mainly for tests.
func WithSpeaker(s Speaker) AudioSourceBuilderOption {
	return func(a *audioSourceImpl) {
		if s != nil {
			a.speaker = s
		}
	}
}

type MIDISourceBuilderOption func(*midiSourceImpl)

// WithPort selects the input port whose name contains name, case-insensitively. An empty name
// picks the first port.
//
// Parameters:
//   - name: a substring of the port name
//
// Returns:
//   - MIDISourceBuilderOption: a function that sets the port filter
func WithPort(name string) MIDISourceBuilderOption {
	return func(m *midiSourceImpl) {
		m.port = name
	}
}

// WithListener replaces the MIDI driver binding, mainly for tests.
func WithListener(listen func(port string, recv func(msg midi.Message)) (stop func(), err error)) MIDISourceBuilderOption {
	return func(m *midiSourceImpl) {
		if listen != nil {
			m.listen = listen
		}
	}
}
