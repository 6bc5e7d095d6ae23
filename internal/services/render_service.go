// internal/services/render_service.go
package services

import (
	"bytes"
	"image"
	"image/png"
	"sync"
	"time"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/render/canvas"
	"github.com/Corphon/DreamScape/internal/render/render2d"
	"github.com/Corphon/DreamScape/internal/render/render3d"
	"github.com/Corphon/DreamScape/internal/utils"
)

// RenderOptions configures a RenderService.
type RenderOptions struct {
	FrameRate int
	Viewport  render.Viewport
	// NewDevice overrides the 3D device; nil uses the software device.
	NewDevice render3d.DeviceFactory
	Random    render.RandomSource
}

// Mount is one live render loop bound to a session surface.
type Mount struct {
	SessionID string
	SceneID   string
	Mode      models.RenderMode
	StartedAt time.Time

	loop *render.Loop
}

// Frames returns the number of frames drawn so far.
func (m *Mount) Frames() uint64 {
	return m.loop.Frames()
}

// Running reports whether the loop still ticks.
func (m *Mount) Running() bool {
	return m.loop.Running()
}

// SetPointer forwards a pointer position to this loop.
func (m *Mount) SetPointer(p render.Pointer) {
	m.loop.SetPointer(p)
}

// Resize forwards a surface resize to this loop.
func (m *Mount) Resize(v render.Viewport) error {
	if err := v.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	m.loop.Resize(v)
	return nil
}

// RenderService keeps exactly one live render loop per session.
type RenderService struct {
	opts    RenderOptions
	locks   *LockManager
	metrics *utils.DreamMetrics
	logger  *utils.Logger

	mu     sync.Mutex
	mounts map[string]*Mount
}

// NewRenderService creates a render service.
func NewRenderService(opts RenderOptions) *RenderService {
	if opts.FrameRate <= 0 {
		opts.FrameRate = render.DefaultFrameRate
	}
	if opts.Viewport.Validate() != nil {
		opts.Viewport = render.DefaultViewport
	}
	return &RenderService{
		opts:    opts,
		locks:   NewLockManager(),
		metrics: utils.NewDreamMetrics(),
		logger:  utils.GetLogger().WithComponent("render_service"),
		mounts:  make(map[string]*Mount),
	}
}

// DefaultViewport is the surface size used when a client reports none.
func (s *RenderService) DefaultViewport() render.Viewport {
	return s.options().Viewport
}

func (s *RenderService) options() RenderOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// SetDefaults replaces the frame rate and default surface used by later mounts.
func (s *RenderService) SetDefaults(frameRate int, v render.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if frameRate > 0 {
		s.opts.FrameRate = frameRate
	}
	if v.Validate() == nil {
		s.opts.Viewport = v
	}
}

// NewRenderer builds an unstarted renderer for mode. A surface that cannot be
// created yields a renderer whose Start fails with render_unavailable.
func (s *RenderService) NewRenderer(scene *models.DreamScene, mode models.RenderMode, v render.Viewport) (render.Renderer, error) {
	opts := s.options()
	if v == (render.Viewport{}) {
		v = opts.Viewport
	}
	switch mode {
	case models.RenderMode2D:
		var surface canvas.Canvas
		if raster, err := canvas.NewRaster(v); err == nil {
			surface = raster
		} else {
			s.logger.Warn("2d surface unavailable", map[string]interface{}{"error": err.Error()})
		}
		return render2d.New(scene, surface), nil
	case models.RenderMode3D:
		return render3d.New(scene, render3d.Options{
			Viewport:  v,
			NewDevice: opts.NewDevice,
			Random:    opts.Random,
		}), nil
	}
	return nil, apperrors.NewValidationError("unknown render mode "+string(mode), nil)
}

// Mount stops the session's current loop, waiting for it to finish, and
// starts a new one for scene. onFrame receives every frame.
func (s *RenderService) Mount(sessionID string, scene *models.DreamScene, mode models.RenderMode, v render.Viewport, onFrame render.FrameFunc) (*Mount, error) {
	sessionID = normalizeSessionID(sessionID)
	var mount *Mount
	err := s.locks.ExecuteWithLock(sessionID, func() error {
		s.unmountLocked(sessionID, nil)

		r, err := s.NewRenderer(scene, mode, v)
		if err != nil {
			return err
		}
		frameFn := func(frame *image.RGBA, seq uint64) {
			s.metrics.RecordFrame(string(mode))
			if onFrame != nil {
				onFrame(frame, seq)
			}
		}
		loop := render.NewLoop(r, s.options().FrameRate, frameFn)
		if err := loop.Start(); err != nil {
			s.metrics.Collector().IncrementCounter(utils.MetricRenderFailures)
			s.logger.Warn("render loop not started", map[string]interface{}{
				"session": sessionID,
				"mode":    mode,
				"error":   err.Error(),
			})
			return err
		}

		mount = &Mount{
			SessionID: sessionID,
			SceneID:   scene.ID,
			Mode:      mode,
			StartedAt: time.Now(),
			loop:      loop,
		}
		s.mu.Lock()
		s.mounts[sessionID] = mount
		s.mu.Unlock()
		s.metrics.LoopStarted()
		s.logger.Debug("render loop mounted", map[string]interface{}{
			"session": sessionID,
			"scene":   scene.ID,
			"mode":    mode,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mount, nil
}

// unmountLocked stops the session's loop. When only is set, a different
// current mount is left alone. The session lock must be held.
func (s *RenderService) unmountLocked(sessionID string, only *Mount) bool {
	s.mu.Lock()
	current, ok := s.mounts[sessionID]
	if !ok || (only != nil && current != only) {
		s.mu.Unlock()
		return false
	}
	delete(s.mounts, sessionID)
	s.mu.Unlock()

	current.loop.Stop()
	s.metrics.LoopStopped()
	return true
}

// Unmount stops the session's loop. It reports whether one was running.
func (s *RenderService) Unmount(sessionID string) bool {
	sessionID = normalizeSessionID(sessionID)
	var stopped bool
	s.locks.ExecuteWithLock(sessionID, func() error {
		stopped = s.unmountLocked(sessionID, nil)
		return nil
	})
	return stopped
}

// Release stops m. If m is still the session's current mount it is removed;
// a newer mount is left running.
func (s *RenderService) Release(m *Mount) {
	if m == nil {
		return
	}
	s.locks.ExecuteWithLock(m.SessionID, func() error {
		if !s.unmountLocked(m.SessionID, m) {
			m.loop.Stop()
		}
		return nil
	})
}

// Current returns the session's live mount.
func (s *RenderService) Current(sessionID string) (*Mount, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mounts[normalizeSessionID(sessionID)]
	return m, ok
}

// SetPointer forwards a pointer position to the session's loop.
func (s *RenderService) SetPointer(sessionID string, p render.Pointer) bool {
	m, ok := s.Current(sessionID)
	if !ok {
		return false
	}
	m.SetPointer(p)
	return true
}

// Resize forwards a surface resize to the session's loop.
func (s *RenderService) Resize(sessionID string, v render.Viewport) error {
	if err := v.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	m, ok := s.Current(sessionID)
	if !ok {
		return apperrors.NewNotFoundError("no render loop for session", nil)
	}
	m.loop.Resize(v)
	return nil
}

// LiveLoops counts running loops across sessions.
func (s *RenderService) LiveLoops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.mounts {
		if m.loop.Running() {
			n++
		}
	}
	return n
}

// StopAll stops every loop. Used on shutdown.
func (s *RenderService) StopAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.mounts))
	for id := range s.mounts {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Unmount(id)
	}
}

// RenderFrame draws a single frame at time t and releases the renderer.
func (s *RenderService) RenderFrame(scene *models.DreamScene, mode models.RenderMode, v render.Viewport, t time.Duration, pointer *render.Pointer) (*image.RGBA, error) {
	r, err := s.NewRenderer(scene, mode, v)
	if err != nil {
		return nil, err
	}
	if err := r.Start(); err != nil {
		s.metrics.Collector().IncrementCounter(utils.MetricRenderFailures)
		return nil, err
	}
	defer r.Stop()

	r.Tick(t, pointer)
	frame, ok := r.Snapshot()
	if !ok {
		return nil, apperrors.NewRenderUnavailableError("renderer produced no frame", nil)
	}
	s.metrics.RecordFrame(string(mode))
	return frame, nil
}

// EncodePNG encodes a frame.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, apperrors.NewProcessingError("encode frame", err)
	}
	return buf.Bytes(), nil
}
