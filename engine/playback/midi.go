package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ClocksPerRow is the number of MIDI timing clocks in one tracker row. One row is a sixteenth
// note, which is also one Song Position Pointer unit.
const ClocksPerRow = 6

// ErrNoMIDIPort is returned when no input port matches the configured name.
var ErrNoMIDIPort = errors.New("no matching MIDI input port")

// midiSourceImpl is the implementation of the MIDISource interface.
type midiSourceImpl struct {
	mu *sync.Mutex

	clock  TrackerClock
	port   string
	listen func(port string, recv func(msg midi.Message)) (stop func(), err error)
	stop   func()

	snapshot Snapshot
	running  bool
	clocks   int64
}

// MIDISource follows an external sequencer through MIDI real-time messages. Start resets the
// song to row 0, Continue resumes, Stop freezes the position, every timing clock advances
// one sixth of a row and a Song Position Pointer jumps to a row.
type MIDISource interface {
	Source

	// Running reports whether the sequencer is playing.
	Running() bool

	// Handle applies one MIDI message. It is called from the driver goroutine.
	//
	// Parameters:
	//   - msg: the received message
	Handle(msg midi.Message)
}

var _ MIDISource = &midiSourceImpl{}

// NewMIDISource creates a MIDI source. The port is opened on Start.
//
// Parameters:
//   - clock: the tracker timing, only RowsPerPattern is used
//   - options: functional options to configure the source
//
// Returns:
//   - MIDISource: the newly created source
func NewMIDISource(clock TrackerClock, options ...MIDISourceBuilderOption) MIDISource {
	m := &midiSourceImpl{
		mu:     &sync.Mutex{},
		clock:  clock,
		listen: listenDriver,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// FindInPort returns the first input port whose name contains substr, case-insensitively.
//
// Parameters:
//   - substr: the name filter, empty matches any port
//
// Returns:
//   - drivers.In: the matched port
//   - error: ErrNoMIDIPort if nothing matched
func FindInPort(substr string) (drivers.In, error) {
	return matchPort(midi.GetInPorts(), substr)
}

func matchPort(ports []drivers.In, substr string) (drivers.In, error) {
	substr = strings.ToLower(substr)
	for _, port := range ports {
		if strings.Contains(strings.ToLower(port.String()), substr) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoMIDIPort, substr)
}

func listenDriver(name string, recv func(msg midi.Message)) (func(), error) {
	port, err := FindInPort(name)
	if err != nil {
		return nil, err
	}
	log.Info().Str("port", port.String()).Msg("MIDI input selected")
	return midi.ListenTo(port, func(msg midi.Message, _ int32) {
		recv(msg)
	})
}

func (m *midiSourceImpl) Position() (show.Position, bool) {
	return m.snapshot.Load()
}

func (m *midiSourceImpl) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return nil
	}
	stop, err := m.listen(m.port, m.Handle)
	if err != nil {
		return fmt.Errorf("failed to listen for MIDI: %w", err)
	}
	m.stop = stop
	log.Info().Str("source", "midi").Str("port", m.port).Msg("playback started")

	go func() {
		<-ctx.Done()
		m.Close()
	}()
	return nil
}

func (m *midiSourceImpl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop == nil {
		return nil
	}
	m.stop()
	m.stop = nil
	m.running = false
	log.Info().Str("source", "midi").Msg("playback stopped")
	return nil
}

func (m *midiSourceImpl) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *midiSourceImpl) Handle(msg midi.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var spp uint16
	switch {
	case msg.Is(midi.StartMsg):
		m.running = true
		m.clocks = 0
		log.Debug().Msg("MIDI start")
	case msg.Is(midi.ContinueMsg):
		m.running = true
		log.Debug().Int64("row", m.clocks/ClocksPerRow).Msg("MIDI continue")
	case msg.Is(midi.StopMsg):
		m.running = false
		log.Debug().Int64("row", m.clocks/ClocksPerRow).Msg("MIDI stop")
	case msg.GetSPP(&spp):
		m.clocks = int64(spp) * ClocksPerRow
		log.Debug().Uint16("spp", spp).Msg("MIDI song position")
	case msg.Is(midi.TimingClockMsg):
		if !m.running {
			return
		}
		m.clocks++
	default:
		return
	}
	m.snapshot.Store(m.clock.PositionOf(m.clocks / ClocksPerRow))
}
