package fluid

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/stretchr/testify/assert"
)

func TestPlanSteps(t *testing.T) {
	tests := []struct {
		name    string
		regular int
		extras  int
		want    []Step
	}{
		{"regular only", RegularSteps, 0, []Step{
			{0, 0}, {1, 1}, {2, 0}, {3, 1}, {4, 0}, {5, 1},
		}},
		{"extras lead", RegularSteps, ExtraSteps, []Step{
			{6, 0}, {7, 1}, {0, 0}, {1, 1}, {2, 0}, {3, 1}, {4, 0}, {5, 1},
		}},
		{"single extra shifts groups", 2, 1, []Step{
			{6, 0}, {0, 1}, {1, 0},
		}},
		{"clamped", 99, 99, nil},
		{"empty", 0, 0, []Step{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanSteps(tt.regular, tt.extras)
			if tt.want == nil {
				assert.Len(t, got, ParamSlots)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlannedSlotsAreDistinctAndInRange(t *testing.T) {
	seen := map[int]bool{}
	for _, s := range PlanSteps(RegularSteps, ExtraSteps) {
		assert.GreaterOrEqual(t, s.Slot, 0)
		assert.Less(t, s.Slot, ParamSlots)
		assert.False(t, seen[s.Slot], "slot %d planned twice", s.Slot)
		seen[s.Slot] = true
	}
}

func TestParity(t *testing.T) {
	assert.Equal(t, BufferA, Parity(0))
	assert.Equal(t, BufferB, Parity(1))
	assert.Equal(t, BufferA, Parity(RegularSteps))
	assert.Equal(t, BufferA, Parity(RegularSteps+ExtraSteps))
	assert.Equal(t, BufferB, Parity(7))
	assert.Equal(t, "B", BufferB.String())
}

func TestImpulseGate(t *testing.T) {
	var g ImpulseGate
	smoke := show.Smoke{Stage: 1}
	pos := func(p, r int) show.Position { return show.Position{Pattern: p, Row: r} }

	assert.Zero(t, g.Extras(show.Smoke{Stage: 0}, pos(4, 0), true), "stage 0 never fires")
	assert.Zero(t, g.Extras(show.Ocean{Stage: 2}, pos(4, 0), true), "other scenes never fire")
	assert.Zero(t, g.Extras(smoke, pos(4, 0), false), "invalid position")

	assert.Equal(t, ExtraSteps, g.Extras(smoke, pos(4, 0), true))
	assert.Zero(t, g.Extras(smoke, pos(4, 0), true), "once per phrase")
	assert.Zero(t, g.Extras(smoke, pos(4, 1), true), "once per phrase")
	assert.Zero(t, g.Extras(smoke, pos(4, 2), true), "outside the window")
	assert.Zero(t, g.Extras(smoke, pos(4, 15), true))
	assert.Equal(t, ExtraSteps, g.Extras(show.Smoke{Stage: 3}, pos(4, 17), true), "next phrase, late start")
	assert.Equal(t, ExtraSteps, g.Extras(smoke, pos(5, 0), true), "next pattern")

	g.Reset()
	assert.Equal(t, ExtraSteps, g.Extras(smoke, pos(5, 1), true))
}

func TestModulation(t *testing.T) {
	assert.Equal(t, float32(1), Modulation(0))
	assert.InDelta(t, 0.5, Modulation(0.125), 1e-6)
	assert.Zero(t, Modulation(0.25))
	assert.Zero(t, Modulation(3))
}

func TestGPUComputeParamsMarshal(t *testing.T) {
	p := GPUComputeParams{Step: 7, DeltaTime: 0.016, Time: 12.5, Modulation: 0.75}
	assert.Equal(t, 16, p.Size())

	buf := p.Marshal()
	assert.Len(t, buf, 16)
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(buf[0:]))
	assert.Equal(t, float32(0.016), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])))
	assert.Equal(t, float32(12.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[8:])))
	assert.Equal(t, float32(0.75), math.Float32frombits(binary.LittleEndian.Uint32(buf[12:])))
}
