// Package config loads and validates the demo's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Playback sources.
const (
	SourceAudio = "audio"
	SourceMIDI  = "midi"
	SourceClock = "clock"
)

type Window struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Fullscreen bool   `yaml:"fullscreen"`
}

type Render struct {
	VSync      bool    `yaml:"vsync"`
	FrameLimit float64 `yaml:"frame_limit"` // fps cap, 0 = uncapped
	Profiling  bool    `yaml:"profiling"`
	Software   bool    `yaml:"software"` // force the fallback adapter
}

type Grid struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

type Solver struct {
	Iterations int     `yaml:"iterations"`
	Diffusion  float64 `yaml:"diffusion"`
	Viscosity  float64 `yaml:"viscosity"`
	Scale      float64 `yaml:"scale"`
	Workers    int     `yaml:"workers"` // 0 = NumCPU
	Reference  bool    `yaml:"reference"`
}

type Playback struct {
	Source         string  `yaml:"source"` // "audio" | "midi" | "clock"
	Music          string  `yaml:"music,omitempty"`
	BPM            float64 `yaml:"bpm"`
	Speed          int     `yaml:"speed"`
	RowsPerPattern int     `yaml:"rows_per_pattern"`
	MIDIPort       string  `yaml:"midi_port,omitempty"`
}

type Slides struct {
	Dir      string `yaml:"dir,omitempty"` // empty = generated slides
	CountMin int    `yaml:"count_min"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Config struct {
	Window   Window   `yaml:"window"`
	Render   Render   `yaml:"render"`
	Grid     Grid     `yaml:"grid"`
	Solver   Solver   `yaml:"solver"`
	Playback Playback `yaml:"playback"`
	Slides   Slides   `yaml:"slides"`
	Log      Log      `yaml:"log"`
}

// Default returns the configuration used when no file exists. Keys missing from a file keep
// these values.
func Default() *Config {
	return &Config{
		Window: Window{Title: "oxy demo", Width: 1280, Height: 720},
		Render: Render{VSync: true},
		Grid:   Grid{X: 100, Y: 100, Z: 100},
		Solver: Solver{Iterations: 4, Scale: 1},
		Playback: Playback{
			Source:         SourceAudio,
			BPM:            125,
			Speed:          6,
			RowsPerPattern: 64,
		},
		Slides: Slides{CountMin: 6},
		Log:    Log{Level: "info"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
//
// Parameters:
//   - path: the YAML file
//
// Returns:
//   - *Config: the merged and validated configuration
//   - error: a read, parse or validation error
func Load(path string) (*Config, error) {
	c := Default()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes c to path as YAML.
func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate rejects configurations the demo cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Grid.X <= 0 || c.Grid.Y <= 0 || c.Grid.Z <= 0:
		return fmt.Errorf("%w: grid %dx%dx%d must be positive", ErrInvalid, c.Grid.X, c.Grid.Y, c.Grid.Z)
	case c.Solver.Iterations < 1:
		return fmt.Errorf("%w: solver.iterations %d < 1", ErrInvalid, c.Solver.Iterations)
	case c.Solver.Diffusion < 0 || c.Solver.Viscosity < 0:
		return fmt.Errorf("%w: negative diffusion or viscosity", ErrInvalid)
	case c.Playback.BPM <= 0:
		return fmt.Errorf("%w: playback.bpm %v must be positive", ErrInvalid, c.Playback.BPM)
	case c.Playback.Speed <= 0:
		return fmt.Errorf("%w: playback.speed %d must be positive", ErrInvalid, c.Playback.Speed)
	case c.Playback.RowsPerPattern <= 0:
		return fmt.Errorf("%w: playback.rows_per_pattern %d must be positive", ErrInvalid, c.Playback.RowsPerPattern)
	case c.Slides.CountMin < 0:
		return fmt.Errorf("%w: slides.count_min %d is negative", ErrInvalid, c.Slides.CountMin)
	}
	switch c.Playback.Source {
	case SourceAudio, SourceMIDI, SourceClock:
	default:
		return fmt.Errorf("%w: unknown playback.source %q", ErrInvalid, c.Playback.Source)
	}
	return nil
}
