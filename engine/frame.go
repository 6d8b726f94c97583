package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-demo/engine/camera"
	"github.com/Carmen-Shannon/oxy-demo/engine/compositor"
	"github.com/Carmen-Shannon/oxy-demo/engine/fluid"
	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/Carmen-Shannon/oxy-demo/engine/playback"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/Carmen-Shannon/oxy-demo/engine/uniforms"
)

// frameState is the GPU-free part of the frame driver. It owns the show, the CD field and the
// impulse gate and turns one playback sample into everything the compositor and the
// simulation need for a frame.
type frameState struct {
	show   show.Show
	source playback.Source
	camera camera.Camera
	cds    *model.CDField
	gate   fluid.ImpulseGate

	last     time.Time
	snapshot bool
}

// frameUpdate is the result of one frameState step.
type frameUpdate struct {
	Frame compositor.Frame

	DT float64
	T  float64

	Position   show.Position
	PositionOK bool
	Events     show.FrameEvents

	// Extras is the number of leading impulse steps for the smoke dispatch.
	Extras int
	// Modulation is the impulse strength derived from the beat phase.
	Modulation float32
}

// Smoke reports whether the simulation runs this frame.
func (u frameUpdate) Smoke() bool {
	_, ok := u.Frame.Scene.(show.Smoke)
	return ok
}

func newFrameState(timeline *show.Timeline, source playback.Source, cam camera.Camera, start time.Time) *frameState {
	f := &frameState{
		source: source,
		camera: cam,
		cds:    model.NewCDField(),
		last:   start,
	}
	f.show = show.NewShow(timeline,
		show.WithStartTime(start),
		show.WithAdvanceHook(func(from, to show.Cue) {
			f.snapshot = true
		}),
	)
	return f
}

// next advances the show to now and builds the frame. It polls the playback source once.
func (f *frameState) next(now time.Time) frameUpdate {
	dt := now.Sub(f.last).Seconds()
	if dt < 0 {
		dt = 0
	}
	f.last = now

	pos, ok := f.source.Position()
	ev := f.show.Update(now, pos, ok)

	t := f.show.SinceStart(now)
	scene := f.show.Scene()
	sinceBeat := f.show.SinceBeat(now)

	u := frameUpdate{
		Frame: compositor.Frame{
			Scene:      scene,
			Snapshot:   f.snapshot,
			Final:      uniforms.FinalParams(f.show.Transition(), f.show.Progress(now), t, sinceBeat),
			Background: uniforms.BackgroundParams(scene, t, sinceBeat),
			Foreground: uniforms.ForegroundParams(t, f.show.SincePattern(now)),
		},
		DT:         dt,
		T:          t,
		Position:   pos,
		PositionOK: ok,
		Events:     ev,
	}
	f.snapshot = false

	switch s := scene.(type) {
	case show.CDs:
		f.cds.Update(dt, t)
		u.Frame.CDs = f.cds.Instances()
	case show.StarWars:
		u.Frame.Lasers = uniforms.NewLaserUniform(f.camera.ViewProjectionMatrix(), model.LaserVolley(t, sinceBeat, s.Stage))
	}

	u.Extras = f.gate.Extras(scene, pos, ok)
	if u.Smoke() {
		u.Modulation = fluid.Modulation(sinceBeat)
	} else {
		f.gate.Reset()
	}
	return u
}
