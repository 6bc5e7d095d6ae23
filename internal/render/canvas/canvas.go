// internal/render/canvas/canvas.go
package canvas

import (
	"image/color"
	"sort"

	"github.com/Corphon/DreamScape/internal/render"
)

// Canvas is an immediate-mode 2D drawing surface with a transform stack,
// modelled on the browser canvas API. Coordinates are CSS pixels; the
// implementation applies the device pixel ratio.
type Canvas interface {
	// Size returns the surface size in CSS pixels.
	Size() (width, height float64)
	// Resize reallocates the backing buffer and resets the drawing state.
	Resize(v render.Viewport)

	Save()
	Restore()
	Translate(x, y float64)
	Rotate(angle float64)
	SetGlobalAlpha(alpha float64)

	SetFillStyle(p Paint)
	SetStrokeStyle(p Paint)
	SetLineWidth(width float64)

	FillRect(x, y, width, height float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadraticCurveTo(cpx, cpy, x, y float64)
	Arc(x, y, radius, startAngle, endAngle float64)
	ClosePath()
	Fill()
	Stroke()
}

// Paint is either a solid colour or a radial gradient.
type Paint struct {
	Color    color.NRGBA
	Gradient *RadialGradient
}

// Solid returns a solid colour paint.
func Solid(c color.NRGBA) Paint {
	return Paint{Color: c}
}

// Gradient returns a gradient paint.
func Gradient(g *RadialGradient) Paint {
	return Paint{Gradient: g}
}

// ColorStop is one stop of a gradient, offset in [0,1].
type ColorStop struct {
	Offset float64
	Color  color.NRGBA
}

// RadialGradient is a concentric gradient between radius R0 and R1 around
// (X, Y), in the user space active when it is used.
type RadialGradient struct {
	X, Y   float64
	R0, R1 float64
	Stops  []ColorStop
}

// NewRadialGradient creates a gradient without stops.
func NewRadialGradient(x, y, r0, r1 float64) *RadialGradient {
	return &RadialGradient{X: x, Y: y, R0: r0, R1: r1}
}

// AddColorStop inserts a stop keeping offsets sorted.
func (g *RadialGradient) AddColorStop(offset float64, c color.NRGBA) {
	g.Stops = append(g.Stops, ColorStop{Offset: offset, Color: c})
	sort.SliceStable(g.Stops, func(i, j int) bool { return g.Stops[i].Offset < g.Stops[j].Offset })
}

// ColorAt returns the gradient colour at distance d from the centre.
func (g *RadialGradient) ColorAt(d float64) color.NRGBA {
	if len(g.Stops) == 0 {
		return color.NRGBA{}
	}
	t := 0.0
	if g.R1 > g.R0 {
		t = (d - g.R0) / (g.R1 - g.R0)
	}
	if t <= g.Stops[0].Offset {
		return g.Stops[0].Color
	}
	last := g.Stops[len(g.Stops)-1]
	if t >= last.Offset {
		return last.Color
	}
	for i := 1; i < len(g.Stops); i++ {
		a, b := g.Stops[i-1], g.Stops[i]
		if t <= b.Offset {
			span := b.Offset - a.Offset
			if span <= 0 {
				return b.Color
			}
			return render.Lerp(a.Color, b.Color, (t-a.Offset)/span)
		}
	}
	return last.Color
}

// NewRadialGradientWithStops creates a two-stop gradient from inner to outer.
func NewRadialGradientWithStops(x, y, r0, r1 float64, inner, outer color.NRGBA) *RadialGradient {
	g := NewRadialGradient(x, y, r0, r1)
	g.AddColorStop(0, inner)
	g.AddColorStop(1, outer)
	return g
}
