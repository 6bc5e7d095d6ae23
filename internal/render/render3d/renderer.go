// internal/render/render3d/renderer.go
package render3d

import (
	"image"
	"math"
	"sync"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/render/scene3d"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	cameraFov        = 75
	cameraNear       = 0.1
	cameraFar        = 1000
	clearAlpha       = 0.9
	directionalPower = 0.8
	pointPower       = 0.6
	pointDistance    = 50
	pointDecay       = 2
	emissiveFactor   = 0.3
	wireframeCutoff  = 0.7
	floatAmplitude   = 2
	starCount        = 200
	starSpread       = 100
	starSize         = 0.2
	starSpin         = 0.0001
	pointerGain      = 0.3
	cameraEasing     = 0.05
)

var (
	cameraPosition = mgl32.Vec3{0, 5, 15}
	spin           = scene3d.Euler{X: 0.002, Y: 0.003, Z: 0.001}
)

// Options configures a Renderer.
type Options struct {
	Viewport  render.Viewport
	NewDevice DeviceFactory
	// Random drives the wireframe flag, float speed and star field.
	Random render.RandomSource
}

type lifecycle int

const (
	idle lifecycle = iota
	running
	stopped
)

// Renderer builds a scene graph from a DreamScene and animates it on a Device.
type Renderer struct {
	mu       sync.Mutex
	scene    *models.DreamScene
	opts     Options
	viewport render.Viewport
	state    lifecycle

	device    Device
	graph     *scene3d.Scene
	camera    *scene3d.PerspectiveCamera
	stars     *scene3d.Points
	resources []ResourceID
	targetX   float32
	targetY   float32
	frames    uint64
}

var _ render.Renderer = (*Renderer)(nil)

// New creates a renderer; nothing is allocated until Start.
func New(scene *models.DreamScene, opts Options) *Renderer {
	if opts.NewDevice == nil {
		opts.NewDevice = NewSoftwareDevice
	}
	if opts.Random == nil {
		opts.Random = render.DefaultRandom()
	}
	if opts.Viewport == (render.Viewport{}) {
		opts.Viewport = render.DefaultViewport
	}
	return &Renderer{scene: scene, opts: opts, viewport: opts.Viewport}
}

// Start creates the device and builds the scene graph. On failure the renderer
// stays inert and holds no resources.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case running:
		return nil
	case stopped:
		return apperrors.NewRenderUnavailableError("renderer already stopped", nil)
	}
	if r.scene == nil {
		return apperrors.NewRenderUnavailableError("3d renderer has no scene", nil)
	}

	device, err := r.opts.NewDevice(r.viewport)
	if err != nil {
		return apperrors.NewRenderUnavailableError("3d device unavailable", err)
	}
	r.device = device

	if err := r.build(); err != nil {
		r.releaseLocked()
		return apperrors.NewRenderUnavailableError("3d scene setup failed", err)
	}
	r.state = running
	return nil
}

func (r *Renderer) build() error {
	sc := r.scene
	rnd := r.opts.Random

	r.camera = scene3d.NewPerspectiveCamera(cameraFov, float32(r.viewport.Aspect()), cameraNear, cameraFar)
	r.camera.Position = cameraPosition
	r.device.SetClearColor(scene3d.ColorOf("#0A0A0A"), clearAlpha)

	primary := scene3d.ColorOf(sc.Lighting.PrimaryColor)
	g := &scene3d.Scene{
		Background:      scene3d.ColorOf("#0A0A0A"),
		BackgroundAlpha: clearAlpha,
		ShadowsEnabled:  true,
		Ambient:         scene3d.AmbientLight{Color: primary, Intensity: float32(sc.Lighting.AmbientIntensity)},
		Directional: scene3d.DirectionalLight{
			Color:      scene3d.ColorOf(sc.Lighting.SecondaryColor),
			Intensity:  directionalPower,
			Position:   mgl32.Vec3{10, 10, 5},
			CastShadow: true,
		},
		Point: scene3d.PointLight{
			Color:     primary,
			Intensity: pointPower,
			Distance:  pointDistance,
			Decay:     pointDecay,
			Position:  mgl32.Vec3{0, 10, 0},
		},
	}
	if sc.Fog.Enabled {
		// near and far are handed over swapped
		g.Fog = &scene3d.Fog{
			Color: scene3d.ColorOf(sc.Fog.Color),
			Near:  float32(sc.Fog.Far),
			Far:   float32(sc.Fog.Near),
		}
	}

	for i, el := range sc.Elements {
		geom := scene3d.GeometryFor(el.Kind, i)
		base := scene3d.ColorOf(el.Color)
		mat := &scene3d.Material{
			Color:     base,
			Emissive:  base.Mul(emissiveFactor),
			Shininess: 30,
			Wireframe: rnd.Float64() > wireframeCutoff,
		}
		mesh := &scene3d.Mesh{
			Name:          el.ID,
			Geometry:      geom,
			Material:      mat,
			Position:      mgl32.Vec3{float32(el.Position.X), float32(el.Position.Y), float32(el.Position.Z)},
			Scale:         float32(el.Scale),
			CastShadow:    true,
			ReceiveShadow: true,
			OriginY:       float32(el.Position.Y),
			FloatSpeed:    float32(0.5 + rnd.Float64()*0.5),
		}
		if err := r.track(r.device.CreateGeometry(geom)); err != nil {
			return err
		}
		if err := r.track(r.device.CreateMaterial(mat)); err != nil {
			return err
		}
		g.Meshes = append(g.Meshes, mesh)
	}

	stars := &scene3d.Points{Color: scene3d.White, Size: starSize}
	for i := 0; i < starCount; i++ {
		stars.Positions = append(stars.Positions, mgl32.Vec3{
			float32((rnd.Float64() - 0.5) * starSpread),
			float32((rnd.Float64() - 0.5) * starSpread),
			float32((rnd.Float64() - 0.5) * starSpread),
		})
	}
	if err := r.track(r.device.CreatePoints(stars)); err != nil {
		return err
	}
	g.Points = append(g.Points, stars)

	r.stars = stars
	r.graph = g
	return nil
}

func (r *Renderer) track(id ResourceID, err error) error {
	if err != nil {
		return err
	}
	r.resources = append(r.resources, id)
	return nil
}

// Tick eases the camera toward the pointer, advances the float and spin
// animations and renders one frame. t is elapsed time since start.
func (r *Renderer) Tick(t time.Duration, pointer *render.Pointer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != running {
		return
	}

	if pointer != nil {
		x, y := pointer.NDC(r.viewport)
		r.targetX = float32(y * pointerGain)
		r.targetY = float32(x * pointerGain)
	}
	r.camera.EaseRotation(r.targetX, r.targetY, cameraEasing)

	secs := t.Seconds()
	for _, m := range r.graph.Meshes {
		m.Position[1] = m.OriginY + float32(math.Sin(secs*float64(m.FloatSpeed)))*floatAmplitude
		m.Rotation.X += spin.X
		m.Rotation.Y += spin.Y
		m.Rotation.Z += spin.Z
	}
	r.stars.Rotation.Z += starSpin

	r.device.Render(r.graph, r.camera)
	r.frames++
}

// Resize updates the projection and device size without rebuilding the graph.
func (r *Renderer) Resize(v render.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != running || v.Validate() != nil {
		return
	}
	r.viewport = v
	r.camera.Aspect = float32(v.Aspect())
	r.device.SetSize(v)
}

// Stop releases every device resource and disposes the device.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == running {
		r.releaseLocked()
	}
	r.state = stopped
}

func (r *Renderer) releaseLocked() {
	if r.device == nil {
		return
	}
	for _, id := range r.resources {
		r.device.Release(id)
	}
	r.resources = nil
	r.device.Dispose()
	r.device = nil
	r.graph = nil
	r.stars = nil
}

// Snapshot implements render.Renderer.
func (r *Renderer) Snapshot() (*image.RGBA, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device == nil || r.frames == 0 {
		return nil, false
	}
	return r.device.Snapshot(), true
}

// Frames returns the number of frames rendered.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Graph exposes the scene graph for inspection. It is nil unless running.
func (r *Renderer) Graph() *scene3d.Scene {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.graph
}

// Camera exposes the camera for inspection.
func (r *Renderer) Camera() *scene3d.PerspectiveCamera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}
