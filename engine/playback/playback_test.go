package playback

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

func TestSnapshot(t *testing.T) {
	var s Snapshot
	_, ok := s.Load()
	assert.False(t, ok, "zero snapshot is invalid")

	s.Store(show.Position{})
	pos, ok := s.Load()
	assert.True(t, ok, "pattern 0 row 0 is a valid position")
	assert.Equal(t, show.Position{}, pos)

	s.Store(show.Position{Pattern: 41, Row: 63})
	pos, ok = s.Load()
	require.True(t, ok)
	assert.Equal(t, show.Position{Pattern: 41, Row: 63}, pos)

	s.Store(show.Position{Pattern: -3, Row: -1})
	pos, _ = s.Load()
	assert.Equal(t, show.Position{}, pos)

	s.Invalidate()
	_, ok = s.Load()
	assert.False(t, ok)
}

func TestSnapshotConcurrentReads(t *testing.T) {
	var s Snapshot
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range 1000 {
			s.Store(show.Position{Pattern: i, Row: i})
		}
	}()
	go func() {
		defer wg.Done()
		for range 1000 {
			if pos, ok := s.Load(); ok {
				assert.Equal(t, pos.Pattern, pos.Row, "positions are never torn")
			}
		}
	}()
	wg.Wait()
}

func TestTrackerClock(t *testing.T) {
	c := DefaultTrackerClock
	assert.True(t, c.Valid())
	assert.InDelta(t, 0.12, c.RowSeconds(), 1e-12)
	assert.Equal(t, 120*time.Millisecond, c.RowDuration())

	tests := []struct {
		elapsed float64
		want    show.Position
	}{
		{-1, show.Position{}},
		{0, show.Position{}},
		{0.119, show.Position{}},
		{0.121, show.Position{Row: 1}},
		{64 * 0.12, show.Position{Pattern: 1}},
		{64*0.12*3 + 0.12*5 + 0.01, show.Position{Pattern: 3, Row: 5}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.PositionAt(tt.elapsed), "elapsed %f", tt.elapsed)
	}

	assert.Equal(t, show.Position{Pattern: 2, Row: 1}, TrackerClock{BPM: 125, Speed: 3, RowsPerPattern: 32}.PositionOf(65))
	assert.False(t, TrackerClock{BPM: 0, Speed: 6, RowsPerPattern: 64}.Valid())
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestClockSourcePause(t *testing.T) {
	fc := &fakeClock{now: time.Unix(100, 0)}
	src := NewClockSource(DefaultTrackerClock, WithClockNow(fc.Now))

	_, ok := src.Position()
	assert.False(t, ok, "no position before start")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Start(ctx))

	fc.Advance(1200 * time.Millisecond)
	pos, ok := src.Position()
	require.True(t, ok)
	assert.Equal(t, show.Position{Row: 10}, pos)

	assert.True(t, src.TogglePause())
	fc.Advance(time.Minute)
	pos, _ = src.Position()
	assert.Equal(t, show.Position{Row: 10}, pos, "paused time does not count")

	assert.False(t, src.TogglePause())
	fc.Advance(240 * time.Millisecond)
	assert.Equal(t, 1440*time.Millisecond, src.Elapsed())

	require.NoError(t, src.Close())
	_, ok = src.Position()
	assert.False(t, ok)
}

type fakeSpeaker struct {
	rate    beep.SampleRate
	buffer  int
	played  beep.Streamer
	locks   int
	closed  bool
	initErr error
}

func (f *fakeSpeaker) Init(rate beep.SampleRate, bufferSize int) error {
	f.rate, f.buffer = rate, bufferSize
	return f.initErr
}
func (f *fakeSpeaker) Play(s beep.Streamer) { f.played = s }
func (f *fakeSpeaker) Lock()                { f.locks++ }
func (f *fakeSpeaker) Unlock()              {}
func (f *fakeSpeaker) Close()               { f.closed = true }

// drain pulls n samples through the played streamer in speaker-sized chunks.
func drain(t *testing.T, s beep.Streamer, n int) {
	t.Helper()
	buf := make([][2]float64, 512)
	for n > 0 {
		chunk := min(n, len(buf))
		got, ok := s.Stream(buf[:chunk])
		require.True(t, ok)
		n -= got
	}
}

func TestAudioSourceSilence(t *testing.T) {
	sp := &fakeSpeaker{}
	src := NewAudioSource(DefaultTrackerClock, WithSpeaker(sp))

	_, ok := src.Position()
	assert.False(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Start(ctx))
	assert.Equal(t, SpeakerRate, sp.rate)
	assert.Equal(t, SpeakerRate.N(100*time.Millisecond), sp.buffer)
	require.NotNil(t, sp.played)

	pos, ok := src.Position()
	require.True(t, ok, "position is valid as soon as playback starts")
	assert.Equal(t, show.Position{}, pos)

	drain(t, sp.played, int(SpeakerRate))
	pos, _ = src.Position()
	assert.Equal(t, show.Position{Row: 8}, pos, "one second is 8 rows of 120 ms")
	assert.Equal(t, int64(SpeakerRate), src.Samples())

	assert.True(t, src.TogglePause())
	assert.Equal(t, 1, sp.locks)

	require.NoError(t, src.Close())
	assert.True(t, sp.closed)
}

func TestAudioSourceResamplesMusic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "music.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Take(int(format.SampleRate)*3, beep.Silence(-1)), format))
	require.NoError(t, f.Close())

	sp := &fakeSpeaker{}
	src := NewAudioSource(DefaultTrackerClock, WithSpeaker(sp), WithMusic(path))
	require.NoError(t, src.Start(context.Background()))

	drain(t, sp.played, int(SpeakerRate)*2)
	pos, ok := src.Position()
	require.True(t, ok)
	assert.Equal(t, show.Position{Row: 16}, pos)
	require.NoError(t, src.Close())
}

func TestAudioSourceErrors(t *testing.T) {
	src := NewAudioSource(DefaultTrackerClock, WithSpeaker(&fakeSpeaker{}), WithMusic(filepath.Join(t.TempDir(), "missing.wav")))
	assert.Error(t, src.Start(context.Background()))

	bad := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not a wav"), 0o644))
	src = NewAudioSource(DefaultTrackerClock, WithSpeaker(&fakeSpeaker{}), WithMusic(bad))
	assert.Error(t, src.Start(context.Background()))

	sp := &fakeSpeaker{initErr: assert.AnError}
	src = NewAudioSource(DefaultTrackerClock, WithSpeaker(sp))
	assert.ErrorIs(t, src.Start(context.Background()), assert.AnError)
	_, ok := src.Position()
	assert.False(t, ok)
}

func TestMIDISourceMessages(t *testing.T) {
	var recv func(msg midi.Message)
	stopped := false
	src := NewMIDISource(DefaultTrackerClock, WithPort("seq"), WithListener(func(port string, r func(midi.Message)) (func(), error) {
		assert.Equal(t, "seq", port)
		recv = r
		return func() { stopped = true }, nil
	}))

	require.NoError(t, src.Start(context.Background()))
	require.NotNil(t, recv)
	_, ok := src.Position()
	assert.False(t, ok, "no position before the sequencer speaks")

	clocks := func(n int) {
		for range n {
			recv(midi.TimingClock())
		}
	}

	clocks(12)
	_, ok = src.Position()
	assert.False(t, ok, "clocks are ignored while stopped")

	recv(midi.Start())
	assert.True(t, src.Running())
	clocks(ClocksPerRow*3 + 5)
	pos, ok := src.Position()
	require.True(t, ok)
	assert.Equal(t, show.Position{Row: 3}, pos)

	recv(midi.Stop())
	clocks(60)
	pos, _ = src.Position()
	assert.Equal(t, show.Position{Row: 3}, pos, "stop freezes the position")

	recv(midi.SPP(64*2 + 10))
	pos, _ = src.Position()
	assert.Equal(t, show.Position{Pattern: 2, Row: 10}, pos)

	recv(midi.Continue())
	clocks(ClocksPerRow)
	pos, _ = src.Position()
	assert.Equal(t, show.Position{Pattern: 2, Row: 11}, pos)

	recv(midi.NoteOn(0, 60, 100))
	pos, _ = src.Position()
	assert.Equal(t, show.Position{Pattern: 2, Row: 11}, pos, "channel messages are ignored")

	recv(midi.Start())
	pos, _ = src.Position()
	assert.Equal(t, show.Position{}, pos, "start rewinds")

	require.NoError(t, src.Close())
	assert.True(t, stopped)
	assert.False(t, src.Running())
}

func TestMIDISourceListenError(t *testing.T) {
	src := NewMIDISource(DefaultTrackerClock, WithListener(func(string, func(midi.Message)) (func(), error) {
		return nil, ErrNoMIDIPort
	}))
	assert.ErrorIs(t, src.Start(context.Background()), ErrNoMIDIPort)
}

type namedPort struct {
	drivers.In
	name string
}

func (p namedPort) String() string { return p.name }

func TestMatchPort(t *testing.T) {
	ports := []drivers.In{namedPort{name: "Midi Through Port-0"}, namedPort{name: "Renoise MIDI Out"}}

	p, err := matchPort(ports, "renoise")
	require.NoError(t, err)
	assert.Equal(t, "Renoise MIDI Out", p.String())

	p, err = matchPort(ports, "")
	require.NoError(t, err)
	assert.Equal(t, "Midi Through Port-0", p.String())

	_, err = matchPort(ports, "ableton")
	assert.ErrorIs(t, err, ErrNoMIDIPort)
	_, err = matchPort(nil, "")
	assert.ErrorIs(t, err, ErrNoMIDIPort)
}
