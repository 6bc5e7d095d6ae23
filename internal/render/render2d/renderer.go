// internal/render/render2d/renderer.go
package render2d

import (
	"image"
	"sync"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/render/canvas"
)

// Snapshotter is implemented by surfaces that can copy out their pixels.
type Snapshotter interface {
	Snapshot() *image.RGBA
}

type lifecycle int

const (
	idle lifecycle = iota
	running
	stopped
)

// Renderer draws a DreamScene onto a Canvas with procedural 2D shapes.
type Renderer struct {
	mu      sync.Mutex
	scene   *models.DreamScene
	surface canvas.Canvas
	state   lifecycle
	frames  uint64
}

var _ render.Renderer = (*Renderer)(nil)

// New creates a renderer. A nil surface yields an inert renderer.
func New(scene *models.DreamScene, surface canvas.Canvas) *Renderer {
	return &Renderer{scene: scene, surface: surface}
}

// Start arms the renderer. It fails, leaving the renderer inert, when there is
// no surface or no scene.
func (r *Renderer) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.surface == nil || r.scene == nil {
		return apperrors.NewRenderUnavailableError("2d surface unavailable", nil)
	}
	if r.state == idle {
		r.state = running
	}
	return nil
}

// Tick draws one frame. It is a no-op unless the renderer is running.
func (r *Renderer) Tick(t time.Duration, pointer *render.Pointer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != running {
		return
	}
	DrawFrame(r.surface, r.scene, t, pointer)
	r.frames++
}

// Resize rescales the backing buffer. Animation state is derived from t on
// every tick, so nothing else changes.
func (r *Renderer) Resize(v render.Viewport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != running {
		return
	}
	r.surface.Resize(v)
}

// Stop detaches the renderer from its surface. Later calls are ignored.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = stopped
}

// Snapshot implements render.Renderer when the surface supports it.
func (r *Renderer) Snapshot() (*image.RGBA, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surface.(Snapshotter)
	if !ok || r.frames == 0 {
		return nil, false
	}
	return s.Snapshot(), true
}

// Frames returns the number of frames drawn.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}
