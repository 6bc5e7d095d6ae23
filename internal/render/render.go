// internal/render/render.go
package render

import (
	"fmt"
	"image"
	"math/rand/v2"
	"time"
)

// MaxBackingSize bounds each side of a surface's backing buffer in device pixels.
const MaxBackingSize = 8192

// Viewport is the CSS size of a render surface plus its device pixel ratio.
type Viewport struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

// DefaultViewport is used when a client does not report its size.
var DefaultViewport = Viewport{Width: 800, Height: 600, DPR: 1}

// Validate reports whether a surface of this size can be allocated.
func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("viewport %dx%d is empty", v.Width, v.Height)
	}
	if v.DPR <= 0 {
		return fmt.Errorf("device pixel ratio %v must be positive", v.DPR)
	}
	w, h := v.Backing()
	if w > MaxBackingSize || h > MaxBackingSize {
		return fmt.Errorf("backing buffer %dx%d exceeds %d", w, h, MaxBackingSize)
	}
	return nil
}

// Backing returns the backing buffer size in device pixels.
func (v Viewport) Backing() (int, int) {
	return int(float64(v.Width) * v.DPR), int(float64(v.Height) * v.DPR)
}

// Aspect is width over height.
func (v Viewport) Aspect() float64 {
	if v.Height == 0 {
		return 1
	}
	return float64(v.Width) / float64(v.Height)
}

// Pointer is a pointer position in CSS pixels relative to the surface origin.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NDC maps the pointer into normalised device coordinates, y up.
func (p Pointer) NDC(v Viewport) (x, y float64) {
	if v.Width <= 0 || v.Height <= 0 {
		return 0, 0
	}
	return p.X/float64(v.Width)*2 - 1, -(p.Y/float64(v.Height))*2 + 1
}

// Renderer is a frame-driven scene renderer. Start sets up resources, Tick
// draws one frame at elapsed time t, Stop releases everything. Once stopped a
// renderer ignores Tick and Resize.
type Renderer interface {
	Start() error
	Tick(t time.Duration, pointer *Pointer)
	Resize(v Viewport)
	Stop()
	// Snapshot copies the last drawn frame.
	Snapshot() (*image.RGBA, bool)
}

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// DefaultRandom draws from the process-wide generator.
func DefaultRandom() RandomSource {
	return globalRandom{}
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }
