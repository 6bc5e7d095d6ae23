// internal/render/render3d/render3d_test.go
package render3d

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/render/scene3d"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cycle replays values in order.
type cycle struct {
	values []float64
	i      int
}

func (c *cycle) Float64() float64 {
	v := c.values[c.i%len(c.values)]
	c.i++
	return v
}

var viewport = render.Viewport{Width: 800, Height: 600, DPR: 1}

func testScene() *models.DreamScene {
	return &models.DreamScene{
		ID:     "scene",
		Mood:   models.MoodOminous,
		Colors: []models.Color{"#0A0A0A"},
		Elements: []models.DreamElement{
			{ID: "element-0", Kind: models.KindObject, Scale: 1, Color: "#10B981"},
			{ID: "element-1", Kind: models.KindLocation, Position: models.Vector3{X: 3, Y: 1, Z: -2}, Scale: 0.5, Color: "#FFD700"},
			{ID: "element-2", Kind: models.KindCreature, Position: models.Vector3{X: -4, Y: 2}, Scale: 0.8, Color: "#DC2626"},
		},
		Lighting: models.LightingSetup{AmbientIntensity: 0.3, PrimaryColor: "#FF0000", SecondaryColor: "#111111", FogColor: "#1F1F1F"},
		Fog:      models.FogSetup{Enabled: true, Density: 0.05, Color: "#2D3748", Near: 0.1, Far: 100},
	}
}

type deviceLog struct {
	devices []*SoftwareDevice
}

func (l *deviceLog) factory(v render.Viewport) (Device, error) {
	d, err := NewSoftwareDevice(v)
	if err != nil {
		return nil, err
	}
	l.devices = append(l.devices, d.(*SoftwareDevice))
	return d, nil
}

func newRenderer(t *testing.T, log *deviceLog, values ...float64) *Renderer {
	t.Helper()
	if len(values) == 0 {
		values = []float64{0.1, 0.5}
	}
	return New(testScene(), Options{Viewport: viewport, NewDevice: log.factory, Random: &cycle{values: values}})
}

func TestSetup(t *testing.T) {
	log := &deviceLog{}
	r := newRenderer(t, log)
	require.NoError(t, r.Start())
	defer r.Stop()

	g := r.Graph()
	require.NotNil(t, g)
	assert.Equal(t, scene3d.ColorOf("#FF0000"), g.Ambient.Color)
	assert.InDelta(t, 0.3, g.Ambient.Intensity, 1e-6)
	assert.Equal(t, scene3d.ColorOf("#111111"), g.Directional.Color)
	assert.InDelta(t, 0.8, g.Directional.Intensity, 1e-6)
	assert.True(t, g.Directional.CastShadow)
	assert.InDelta(t, 0.6, g.Point.Intensity, 1e-6)
	assert.InDelta(t, 50, g.Point.Distance, 1e-6)
	assert.True(t, g.ShadowsEnabled)

	cam := r.Camera()
	assert.InDelta(t, 75, cam.Fov, 1e-6)
	assert.InDelta(t, 15, cam.Position[2], 1e-6)
	assert.InDelta(t, 4.0/3.0, cam.Aspect, 1e-6)
}

func TestFogNearFarAreSwapped(t *testing.T) {
	r := newRenderer(t, &deviceLog{})
	require.NoError(t, r.Start())
	defer r.Stop()

	fog := r.Graph().Fog
	require.NotNil(t, fog)
	assert.InDelta(t, 100, fog.Near, 1e-6)
	assert.InDelta(t, 0.1, fog.Far, 1e-6)
	assert.Equal(t, scene3d.ColorOf("#2D3748"), fog.Color)
}

func TestNoFogWhenDisabled(t *testing.T) {
	s := testScene()
	s.Fog.Enabled = false
	r := New(s, Options{Viewport: viewport, Random: &cycle{values: []float64{0.2}}})
	require.NoError(t, r.Start())
	defer r.Stop()
	assert.Nil(t, r.Graph().Fog)
}

func TestMeshesFollowElements(t *testing.T) {
	// wireframe, speed per element: 0.9/0.0, 0.1/1.0, 0.71/0.5
	r := newRenderer(t, &deviceLog{}, 0.9, 0.0, 0.1, 0.999, 0.71, 0.5)
	require.NoError(t, r.Start())
	defer r.Stop()

	meshes := r.Graph().Meshes
	require.Len(t, meshes, 3)
	scene := testScene()
	for i, m := range meshes {
		el := scene.Elements[i]
		assert.Equal(t, scene3d.GeometryFor(el.Kind, i).String(), m.Geometry.String())
		assert.Equal(t, scene3d.ColorOf(el.Color), m.Material.Color)
		assert.InDelta(t, scene3d.ColorOf(el.Color)[0]*0.3, m.Material.Emissive[0], 1e-6)
		assert.InDelta(t, el.Scale, m.Scale, 1e-6)
		assert.InDelta(t, el.Position.Y, m.OriginY, 1e-6)
		assert.GreaterOrEqual(t, m.FloatSpeed, float32(0.5))
		assert.LessOrEqual(t, m.FloatSpeed, float32(1.0))
	}
	assert.True(t, meshes[0].Material.Wireframe)
	assert.False(t, meshes[1].Material.Wireframe)
	assert.True(t, meshes[2].Material.Wireframe)
	assert.InDelta(t, 0.5, meshes[0].FloatSpeed, 1e-6)

	stars := r.Graph().Points
	require.Len(t, stars, 1)
	assert.Len(t, stars[0].Positions, 200)
	for _, p := range stars[0].Positions {
		for _, c := range p {
			assert.True(t, c >= -50 && c < 50)
		}
	}
	assert.InDelta(t, 0.2, stars[0].Size, 1e-6)
}

func TestTickAnimates(t *testing.T) {
	r := newRenderer(t, &deviceLog{})
	require.NoError(t, r.Start())
	defer r.Stop()

	r.Tick(0, nil)
	r.Tick(2*time.Second, nil)

	m := r.Graph().Meshes[1]
	want := 1 + math.Sin(2*float64(m.FloatSpeed))*2
	assert.InDelta(t, want, m.Position[1], 1e-4)
	assert.InDelta(t, 0.004, m.Rotation.X, 1e-6)
	assert.InDelta(t, 0.006, m.Rotation.Y, 1e-6)
	assert.InDelta(t, 0.002, m.Rotation.Z, 1e-6)
	assert.InDelta(t, 0.0002, r.Graph().Points[0].Rotation.Z, 1e-7)
	assert.Equal(t, uint64(2), r.Frames())
}

func TestCameraEasesTowardPointer(t *testing.T) {
	r := newRenderer(t, &deviceLog{})
	require.NoError(t, r.Start())
	defer r.Stop()

	r.Tick(0, &render.Pointer{X: 0, Y: 0})
	cam := r.Camera()
	assert.InDelta(t, 0.3*0.05, cam.Rotation.X, 1e-6)
	assert.InDelta(t, -0.3*0.05, cam.Rotation.Y, 1e-6)

	// target persists without new pointer input
	r.Tick(16*time.Millisecond, nil)
	assert.InDelta(t, 0.015+(0.3-0.015)*0.05, cam.Rotation.X, 1e-6)
}

func TestRenderDrawsScene(t *testing.T) {
	r := newRenderer(t, &deviceLog{})
	require.NoError(t, r.Start())
	defer r.Stop()

	_, ok := r.Snapshot()
	assert.False(t, ok, "no frame before the first tick")

	r.Tick(0, nil)
	img, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 800, img.Bounds().Dx())

	// the box sits at the origin, below the image centre
	assert.Equal(t, uint8(255), img.RGBAAt(400, 430).A)
}

func TestResizeKeepsGraph(t *testing.T) {
	log := &deviceLog{}
	r := newRenderer(t, log)
	require.NoError(t, r.Start())
	defer r.Stop()

	g := r.Graph()
	r.Resize(render.Viewport{Width: 300, Height: 300, DPR: 2})
	assert.Same(t, g, r.Graph())
	assert.InDelta(t, 1, r.Camera().Aspect, 1e-6)

	r.Tick(0, nil)
	img, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, 600, img.Bounds().Dx())

	r.Resize(render.Viewport{})
	assert.InDelta(t, 1, r.Camera().Aspect, 1e-6)
}

func TestStopReleasesEverything(t *testing.T) {
	log := &deviceLog{}
	r := newRenderer(t, log)
	require.NoError(t, r.Start())
	require.Len(t, log.devices, 1)
	dev := log.devices[0]

	// geometry + material per element, one point cloud
	assert.Equal(t, 7, dev.Live())
	assert.Equal(t, map[ResourceKind]int{ResourceGeometry: 3, ResourceMaterial: 3, ResourcePoints: 1}, dev.LiveByKind())

	r.Tick(0, nil)
	r.Stop()
	assert.Zero(t, dev.Live())
	assert.True(t, dev.Disposed())

	frames := dev.Frames()
	r.Tick(time.Second, nil)
	r.Resize(viewport)
	assert.Equal(t, frames, dev.Frames())
	_, ok := r.Snapshot()
	assert.False(t, ok)

	assert.Error(t, r.Start(), "a stopped renderer cannot be restarted")
}

func TestRepeatedSceneChangesDoNotLeak(t *testing.T) {
	log := &deviceLog{}
	for i := 0; i < 10; i++ {
		r := newRenderer(t, log)
		require.NoError(t, r.Start())
		r.Tick(time.Duration(i)*time.Millisecond, nil)
		r.Stop()
	}
	require.Len(t, log.devices, 10)
	for _, d := range log.devices {
		assert.Zero(t, d.Live())
		assert.True(t, d.Disposed())
	}
}

func TestDeviceFailureLeavesRendererInert(t *testing.T) {
	failing := func(render.Viewport) (Device, error) { return nil, errors.New("no gpu") }
	r := New(testScene(), Options{Viewport: viewport, NewDevice: failing})

	err := r.Start()
	require.Error(t, err)
	assert.NotPanics(t, func() {
		r.Tick(0, &render.Pointer{X: 1, Y: 1})
		r.Resize(viewport)
		r.Stop()
	})
	_, ok := r.Snapshot()
	assert.False(t, ok)
}

func TestInvalidViewportFailsDeviceCreation(t *testing.T) {
	r := New(testScene(), Options{Viewport: render.Viewport{Width: -1, Height: 1, DPR: 1}})
	assert.Error(t, r.Start())
}
