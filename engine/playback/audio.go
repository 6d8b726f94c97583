package playback

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog/log"
)

// SpeakerRate is the output sample rate. Music in another rate is resampled.
const SpeakerRate = beep.SampleRate(44100)

// resampleQuality is the beep resampler quality, 1 (linear) to 64.
const resampleQuality = 4

// Speaker is the audio output the source plays into. The default is beep's speaker package.
type Speaker interface {
	Init(rate beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

type beepSpeaker struct{}

func (beepSpeaker) Init(rate beep.SampleRate, bufferSize int) error {
	return speaker.Init(rate, bufferSize)
}
func (beepSpeaker) Play(s beep.Streamer) { speaker.Play(s) }
func (beepSpeaker) Lock()                { speaker.Lock() }
func (beepSpeaker) Unlock()              { speaker.Unlock() }
func (beepSpeaker) Close() {
	speaker.Clear()
	speaker.Close()
}

// audioSourceImpl is the implementation of the AudioSource interface.
type audioSourceImpl struct {
	mu *sync.Mutex

	clock   TrackerClock
	music   string
	buffer  time.Duration
	speaker Speaker

	snapshot Snapshot
	counter  *countingStreamer
	ctrl     *beep.Ctrl
	closer   beep.StreamSeekCloser
	running  bool
}

// AudioSource plays the soundtrack and derives the tracker position from the number of
// samples the speaker has consumed, so the visuals follow what is actually heard.
type AudioSource interface {
	Source
	Pausable

	// Samples returns the number of samples streamed so far.
	Samples() int64
}

var _ AudioSource = &audioSourceImpl{}

// NewAudioSource creates an audio source. It does not touch the audio device until Start.
//
// Parameters:
//   - clock: the tracker timing of the music
//   - options: functional options to configure the source
//
// Returns:
//   - AudioSource: the newly created source
func NewAudioSource(clock TrackerClock, options ...AudioSourceBuilderOption) AudioSource {
	a := &audioSourceImpl{
		mu:      &sync.Mutex{},
		clock:   clock,
		buffer:  100 * time.Millisecond,
		speaker: beepSpeaker{},
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *audioSourceImpl) Position() (show.Position, bool) {
	return a.snapshot.Load()
}

func (a *audioSourceImpl) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return nil
	}

	stream, err := a.open()
	if err != nil {
		return err
	}
	if err := a.speaker.Init(SpeakerRate, SpeakerRate.N(a.buffer)); err != nil {
		if a.closer != nil {
			a.closer.Close()
			a.closer = nil
		}
		return fmt.Errorf("failed to init speaker: %w", err)
	}

	a.counter = newCountingStreamer(stream, SpeakerRate, a.clock, &a.snapshot)
	a.ctrl = &beep.Ctrl{Streamer: a.counter}
	a.speaker.Play(a.ctrl)
	a.running = true

	music := a.music
	if music == "" {
		music = "silence"
	}
	log.Info().Str("source", "audio").Str("music", music).Int("rate", int(SpeakerRate)).Msg("playback started")

	go func() {
		<-ctx.Done()
		a.Close()
	}()
	return nil
}

// open decodes the music file, or returns endless silence. Caller must hold the mutex.
func (a *audioSourceImpl) open() (beep.Streamer, error) {
	if a.music == "" {
		return beep.Silence(-1), nil
	}
	f, err := os.Open(a.music)
	if err != nil {
		return nil, fmt.Errorf("failed to open music: %w", err)
	}
	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", a.music, err)
	}
	a.closer = s
	log.Debug().Str("music", a.music).Int("rate", int(format.SampleRate)).Int("channels", format.NumChannels).Msg("music decoded")
	if format.SampleRate == SpeakerRate {
		return s, nil
	}
	return beep.Resample(resampleQuality, format.SampleRate, SpeakerRate, s), nil
}

func (a *audioSourceImpl) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	a.running = false
	a.speaker.Close()

	var err error
	if a.closer != nil {
		err = a.closer.Close()
		a.closer = nil
	}
	log.Info().Str("source", "audio").Int64("samples", a.counter.Samples()).Msg("playback stopped")
	return err
}

func (a *audioSourceImpl) TogglePause() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctrl == nil {
		return false
	}
	a.speaker.Lock()
	a.ctrl.Paused = !a.ctrl.Paused
	paused := a.ctrl.Paused
	a.speaker.Unlock()
	log.Info().Bool("paused", paused).Msg("playback audio toggled")
	return paused
}

func (a *audioSourceImpl) Samples() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counter == nil {
		return 0
	}
	return a.counter.Samples()
}

// countingStreamer forwards samples and publishes the tracker position after every buffer.
// It runs on the speaker goroutine.
type countingStreamer struct {
	s        beep.Streamer
	rate     beep.SampleRate
	clock    TrackerClock
	snapshot *Snapshot

	mu      sync.Mutex
	samples int64
}

func newCountingStreamer(s beep.Streamer, rate beep.SampleRate, clock TrackerClock, snapshot *Snapshot) *countingStreamer {
	c := &countingStreamer{s: s, rate: rate, clock: clock, snapshot: snapshot}
	snapshot.Store(show.Position{})
	return c
}

func (c *countingStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := c.s.Stream(samples)
	c.mu.Lock()
	c.samples += int64(n)
	total := c.samples
	c.mu.Unlock()

	c.snapshot.Store(c.clock.PositionAt(float64(total) / float64(c.rate)))
	return n, ok
}

func (c *countingStreamer) Err() error {
	return c.s.Err()
}

// Samples returns the number of samples streamed.
func (c *countingStreamer) Samples() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples
}
