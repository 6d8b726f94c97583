package compositor

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-demo/common"
	"github.com/Carmen-Shannon/oxy-demo/engine/model"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-demo/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-demo/engine/show"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	label         string
	width, height uint32
	depth         bool
	released      bool
}

func (f *fakeTarget) Label() string                { return f.label }
func (f *fakeTarget) Texture() *wgpu.Texture       { return nil }
func (f *fakeTarget) View() *wgpu.TextureView      { return nil }
func (f *fakeTarget) DepthView() *wgpu.TextureView { return nil }
func (f *fakeTarget) Width() uint32                { return f.width }
func (f *fakeTarget) Height() uint32               { return f.height }
func (f *fakeTarget) Release()                     { f.released = true }

// recordingBackend logs the calls a Compositor makes instead of touching a GPU.
type recordingBackend struct {
	pipelines  []string
	targets    []*fakeTarget
	bindGroups map[string]wgpu.BindGroupLayoutDescriptor
	textures   []string
	writes     []bind_group_provider.BufferWrite
	draws      []renderer.DrawCommand
	events     []string

	failDraw bool
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{bindGroups: map[string]wgpu.BindGroupLayoutDescriptor{}}
}

func (r *recordingBackend) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	for _, p := range pipelines {
		r.pipelines = append(r.pipelines, p.PipelineKey())
	}
	return nil
}

func (r *recordingBackend) CreateRenderTarget(label string, width, height uint32, depth bool) (renderer.RenderTarget, error) {
	t := &fakeTarget{label: label, width: width, height: height, depth: depth}
	r.targets = append(r.targets, t)
	return t, nil
}

func (r *recordingBackend) InitMeshBuffers(p bind_group_provider.BindGroupProvider, _, _ []byte, _ int) error {
	r.events = append(r.events, "mesh "+p.Label())
	return nil
}

func (r *recordingBackend) InitBindGroup(p bind_group_provider.BindGroupProvider, d wgpu.BindGroupLayoutDescriptor, _ map[int]wgpu.BufferUsage, _ map[int]uint64) error {
	r.bindGroups[p.Label()] = d
	return nil
}

func (r *recordingBackend) InitTextureView(p bind_group_provider.BindGroupProvider, _ int, data common.TextureStagingData) error {
	r.textures = append(r.textures, data.Label)
	return nil
}

func (r *recordingBackend) InitSampler(bind_group_provider.BindGroupProvider, int, common.SamplerStagingData) error {
	return nil
}

func (r *recordingBackend) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.writes = append(r.writes, writes...)
	r.events = append(r.events, "write")
}

func (r *recordingBackend) BeginFrame() error {
	r.events = append(r.events, "begin frame")
	return nil
}

func (r *recordingBackend) BeginRenderPass(target renderer.RenderTarget, clear bool) error {
	label := "surface"
	if target != nil {
		label = target.Label()
	}
	r.events = append(r.events, fmt.Sprintf("pass %s clear=%t", label, clear))
	return nil
}

func (r *recordingBackend) Draw(cmd renderer.DrawCommand) error {
	if r.failDraw {
		return errors.New("device lost")
	}
	r.draws = append(r.draws, cmd)
	r.events = append(r.events, "draw "+cmd.PipelineKey)
	return nil
}

func (r *recordingBackend) EndRenderPass() {
	r.events = append(r.events, "end pass")
}

func (r *recordingBackend) CopyTexture(src, dst renderer.RenderTarget) error {
	r.events = append(r.events, "copy "+src.Label()+" -> "+dst.Label())
	return nil
}

func (r *recordingBackend) EndFrame() {
	r.events = append(r.events, "end frame")
}

func (r *recordingBackend) Present() {
	r.events = append(r.events, "present")
}

func (r *recordingBackend) reset() {
	r.events = nil
	r.writes = nil
	r.draws = nil
}

func testSlides(n int) []common.TextureStagingData {
	out := make([]common.TextureStagingData, n)
	for i := range out {
		out[i] = common.TextureStagingData{Label: fmt.Sprintf("slide-%d", i), Width: 4, Height: 4, Pixels: make([]byte, 64)}
	}
	return out
}

func newTestCompositor(t *testing.T) (*recordingBackend, Compositor) {
	t.Helper()
	backend := newRecordingBackend()
	c, err := NewCompositor(backend, testSlides(3))
	require.NoError(t, err)
	backend.reset()
	return backend, c
}

func TestNewCompositorResources(t *testing.T) {
	backend := newRecordingBackend()
	c, err := NewCompositor(backend, testSlides(3), WithSize(640, 360))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{PipelineFinal, PipelineSimple, PipelineCD, PipelineBackground, PipelineLaser, PipelineSmoke}, backend.pipelines)

	require.Len(t, backend.targets, 3)
	for _, rt := range backend.targets {
		assert.Equal(t, uint32(640), rt.width)
		assert.Equal(t, uint32(360), rt.height)
		assert.Equal(t, rt.label == "window", rt.depth, "%s depth", rt.label)
	}
	assert.Nil(t, c.Target(TargetSurface))
	assert.Equal(t, "pass1", c.Target(TargetPass1).Label())

	assert.Equal(t, []string{"slide-0", "slide-1", "slide-2"}, backend.textures)
	assert.Equal(t, 3, c.SlideCount())
	for _, label := range []string{"Slide 0", "Slide 2", "pass1 Texture", "previous Texture", "window Texture",
		"Final Params", "Background Params", "Laser Uniform", "Object Uniforms"} {
		assert.Contains(t, backend.bindGroups, label)
	}
	assert.Len(t, backend.bindGroups["Object Uniforms"].Entries, 2, "camera and foreground params")

	smoke := c.SmokeRenderLayout()
	require.Len(t, smoke.Entries, 1)
	assert.Equal(t, wgpu.TextureViewDimension3D, smoke.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeUint, smoke.Entries[0].Texture.SampleType)

	c.Release()
	for _, rt := range backend.targets {
		assert.True(t, rt.released, "%s released", rt.label)
	}
}

func TestRenderSlide(t *testing.T) {
	backend, c := newTestCompositor(t)

	require.NoError(t, c.Render(Frame{Scene: show.Slide{Index: 1}}))
	assert.Equal(t, []string{
		"begin frame",
		"write",
		"pass pass1 clear=true", "draw simple", "end pass",
		"pass surface clear=true", "draw final", "end pass",
		"end frame",
		"present",
	}, backend.events)
	assert.Equal(t, uint64(1), c.Frames())

	final := backend.draws[1]
	require.Len(t, final.BindGroups, 3)
	assert.Equal(t, "Slide 1", final.BindGroups[0].Label())
	assert.Equal(t, "Final Params", final.BindGroups[1].Label())
	assert.Equal(t, "Slide 0", final.BindGroups[2].Label())
	assert.Equal(t, "Fullscreen Quad", final.Mesh.Label())
	assert.Equal(t, "Base Instances", final.Instances.Label())
}

func TestRenderSnapshotCopiesBeforePasses(t *testing.T) {
	backend, c := newTestCompositor(t)

	require.NoError(t, c.Render(Frame{Scene: show.Black{}, Snapshot: true}))
	require.GreaterOrEqual(t, len(backend.events), 4)
	assert.Equal(t, "copy pass1 -> previous", backend.events[2])
	assert.Equal(t, "pass pass1 clear=true", backend.events[3])
}

func TestRenderCDsUploadsInstances(t *testing.T) {
	backend, c := newTestCompositor(t)

	field := model.NewCDField()
	field.Update(0.5, 1)
	cam := c.Camera()
	cam.SetEye(mgl32.Vec3{0, 0, 12})

	require.NoError(t, c.Render(Frame{Scene: show.CDs{Stage: 1}, CDs: field.Instances()}))

	var vertexWrites []string
	for _, w := range backend.writes {
		if w.Binding == bind_group_provider.VertexBinding {
			vertexWrites = append(vertexWrites, w.Provider.Label())
			assert.Len(t, w.Data, model.CDCount*76)
		}
	}
	assert.Equal(t, []string{"CD Instances"}, vertexWrites)

	require.Len(t, backend.draws, 4)
	cds := backend.draws[0]
	assert.Equal(t, PipelineCD, cds.PipelineKey)
	assert.Equal(t, "CD Instances", cds.Instances.Label())
	assert.Equal(t, uint32(model.CDCount), cds.InstanceCount)
	assert.Equal(t, "Object Uniforms", cds.BindGroups[0].Label())
	assert.Equal(t, "window Texture", backend.draws[2].BindGroups[0].Label())

	var cameraWrite bool
	for _, w := range backend.writes {
		if w.Provider == cam.BindGroupProvider() && w.Binding == 0 {
			cameraWrite = true
			assert.Equal(t, cam.Write().Data, w.Data)
		}
	}
	assert.True(t, cameraWrite)

	// an unchanged field is not uploaded again
	backend.reset()
	require.NoError(t, c.Render(Frame{Scene: show.CDs{Stage: 1}}))
	for _, w := range backend.writes {
		assert.NotEqual(t, bind_group_provider.VertexBinding, w.Binding)
	}
}

func TestRenderSmoke(t *testing.T) {
	backend, c := newTestCompositor(t)

	err := c.Render(Frame{Scene: show.Smoke{Stage: 0}})
	assert.ErrorIs(t, err, ErrMissingSmoke)
	assert.Equal(t, []string{"end pass", "end frame", "present"}, backend.events[len(backend.events)-3:],
		"a failed frame is still closed")
	assert.Equal(t, uint64(0), c.Frames())

	backend.reset()
	smoke := bind_group_provider.NewBindGroupProvider("Smoke Render")
	computed := false
	err = c.Render(Frame{
		Scene: show.Smoke{Stage: 0},
		Smoke: smoke,
		Compute: func() error {
			computed = true
			assert.Equal(t, []string{"begin frame"}, backend.events, "compute runs before writes and passes")
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, computed)
	require.Len(t, backend.draws, 2)
	assert.Same(t, smoke, backend.draws[0].BindGroups[0])
	assert.Nil(t, backend.draws[0].Instances)
}

func TestRenderErrors(t *testing.T) {
	backend, c := newTestCompositor(t)

	err := c.Render(Frame{Scene: show.Black{}, Compute: func() error { return errors.New("dispatch failed") }})
	assert.ErrorContains(t, err, "dispatch failed")
	assert.Equal(t, "present", backend.events[len(backend.events)-1])

	err = c.Render(Frame{Scene: show.Slide{Index: 7}})
	assert.ErrorContains(t, err, "slide 7 of 3")

	backend.failDraw = true
	err = c.Render(Frame{Scene: show.Ocean{}})
	assert.ErrorContains(t, err, "device lost")
}
