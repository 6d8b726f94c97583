package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/Carmen-Shannon/oxy-demo/engine"
	"github.com/Carmen-Shannon/oxy-demo/engine/playback"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer"
	"github.com/Carmen-Shannon/oxy-demo/engine/window"
	"github.com/Carmen-Shannon/oxy-demo/internal/config"
)

func main() {
	// ---- Flags (override oxy-demo.yaml) ----
	var (
		configPath  = flag.String("config", "oxy-demo.yaml", "path to the YAML config")
		source      = flag.String("source", "", "playback source: audio | midi | clock")
		music       = flag.String("music", "", "WAV file to play with the audio source")
		midiPort    = flag.String("midi-port", "", "substring of the MIDI input port name")
		grid        = flag.String("grid", "", "smoke grid, N or XxYxZ")
		reference   = flag.Bool("reference", false, "step the CPU reference solver alongside the GPU")
		writeConfig = flag.Bool("write-config", false, "write the effective config to -config and exit")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
	}
	if err := applyFlags(cfg, *source, *music, *midiPort, *grid, *reference); err != nil {
		log.Fatal().Err(err).Msg("bad flags")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("unknown log level; using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if *writeConfig {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Fatal().Err(err).Msg("config save failed")
		}
		log.Info().Str("path", *configPath).Msg("config written")
		return
	}

	defer midi.CloseDriver()

	// ---- Window + renderer (GLFW must stay on the main thread) ----
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithFullscreen(cfg.Window.Fullscreen),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("window setup failed")
	}
	defer win.Close()

	r := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithVSync(cfg.Render.VSync),
		renderer.WithSoftwareAdapter(cfg.Render.Software),
	)

	eng, err := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithConfig(cfg),
		engine.WithPlayback(newSource(cfg)),
		engine.WithProfiling(cfg.Render.Profiling),
		engine.WithRenderFrameLimit(cfg.Render.FrameLimit),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("engine setup failed")
	}
	if err := eng.Run(); err != nil {
		log.Fatal().Err(err).Msg("demo failed")
	}
}

func newSource(cfg *config.Config) playback.Source {
	clock := playback.TrackerClock{
		BPM:            cfg.Playback.BPM,
		Speed:          cfg.Playback.Speed,
		RowsPerPattern: cfg.Playback.RowsPerPattern,
	}
	switch cfg.Playback.Source {
	case config.SourceMIDI:
		return playback.NewMIDISource(clock, playback.WithPort(cfg.Playback.MIDIPort))
	case config.SourceClock:
		return playback.NewClockSource(clock)
	default:
		return playback.NewAudioSource(clock, playback.WithMusic(cfg.Playback.Music))
	}
}

// applyFlags overrides cfg with the non-empty flag values.
func applyFlags(cfg *config.Config, source, music, midiPort, grid string, reference bool) error {
	if source != "" {
		cfg.Playback.Source = source
	}
	if music != "" {
		cfg.Playback.Music = music
	}
	if midiPort != "" {
		cfg.Playback.MIDIPort = midiPort
	}
	if reference {
		cfg.Solver.Reference = true
	}
	if grid != "" {
		g, err := parseGrid(grid)
		if err != nil {
			return err
		}
		cfg.Grid = g
	}
	return nil
}

// parseGrid accepts "N" for a cube or "XxYxZ".
func parseGrid(s string) (config.Grid, error) {
	parts := strings.Split(strings.ToLower(s), "x")
	if len(parts) != 1 && len(parts) != 3 {
		return config.Grid{}, fmt.Errorf("grid %q: want N or XxYxZ", s)
	}
	dims := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return config.Grid{}, fmt.Errorf("grid %q: %w", s, err)
		}
		dims[i] = n
	}
	if len(dims) == 1 {
		return config.Grid{X: dims[0], Y: dims[0], Z: dims[0]}, nil
	}
	return config.Grid{X: dims[0], Y: dims[1], Z: dims[2]}, nil
}
