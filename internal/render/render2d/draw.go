// internal/render/render2d/draw.go
package render2d

import (
	"math"
	"time"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/render/canvas"
)

const (
	gridSize        = 40.0
	fogRadius       = 300.0
	projectionScale = 10.0
	shapeScale      = 15.0
	elementAlpha    = 0.85
	floatAmplitude  = 5.0
	proximityRadius = 200.0
	spiralSteps     = 50
	starPoints      = 6
	organicPoints   = 8
)

var (
	background  = render.RGBA(0x0A, 0x0A, 0x0A, 1)
	fogInner    = render.RGBA(79, 159, 255, 0.1)
	fogOuter    = render.RGBA(10, 10, 10, 0.9)
	gridColor   = render.RGBA(79, 159, 255, 0.05)
	centerColor = render.RGBA(79, 159, 255, 0.5)
)

// Project maps an element position onto a width×height surface: the xy
// direction is kept and the distance is scaled by 10, clamped per axis to half
// the surface extent so every element lands on screen.
func Project(pos models.Vector3, width, height float64) models.Vector2 {
	angle := math.Atan2(pos.Y, pos.X)
	distance := models.Vector2{X: pos.X, Y: pos.Y}.Length()
	return models.Vector2{
		X: width/2 + math.Cos(angle)*math.Min(distance*projectionScale, width/2),
		Y: height/2 + math.Sin(angle)*math.Min(distance*projectionScale, height/2),
	}
}

// FloatOffset is the vertical bob of an element at t milliseconds.
func FloatOffset(t, scale float64) float64 {
	return math.Sin(t*scale*0.5) * floatAmplitude
}

// Rotation is the element angle at t milliseconds, wrapped into [0, 2π).
func Rotation(t, scale float64) float64 {
	a := math.Mod(t*0.001*scale, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// DrawFrame draws one frame of scene at elapsed time t. A nil pointer means
// the pointer is not over the surface.
func DrawFrame(c canvas.Canvas, scene *models.DreamScene, t time.Duration, pointer *render.Pointer) {
	width, height := c.Size()
	cx, cy := width/2, height/2
	ms := float64(t) / float64(time.Millisecond)

	c.SetGlobalAlpha(1)
	c.SetFillStyle(canvas.Solid(background))
	c.FillRect(0, 0, width, height)

	c.SetFillStyle(canvas.Gradient(canvas.NewRadialGradientWithStops(cx, cy, 0, fogRadius, fogInner, fogOuter)))
	c.FillRect(0, 0, width, height)

	drawGrid(c, width, height)

	for i := range scene.Elements {
		el := &scene.Elements[i]
		p := Project(el.Position, width, height)
		drawElement(c, el, p.X, p.Y, ms)
	}

	c.BeginPath()
	c.Arc(cx, cy, 3, 0, 2*math.Pi)
	c.SetFillStyle(canvas.Solid(centerColor))
	c.Fill()

	if pointer != nil {
		d := models.Vector2{X: pointer.X, Y: pointer.Y}.Sub(models.Vector2{X: cx, Y: cy}).Length()
		if d < proximityRadius {
			c.SetStrokeStyle(canvas.Solid(render.RGBA(79, 159, 255, 0.3*(1-d/proximityRadius))))
			c.SetLineWidth(2)
			c.BeginPath()
			c.Arc(cx, cy, d, 0, 2*math.Pi)
			c.Stroke()
		}
	}
}

func drawGrid(c canvas.Canvas, width, height float64) {
	c.SetStrokeStyle(canvas.Solid(gridColor))
	c.SetLineWidth(1)
	for x := 0.0; x < width; x += gridSize {
		c.BeginPath()
		c.MoveTo(x, 0)
		c.LineTo(x, height)
		c.Stroke()
	}
	for y := 0.0; y < height; y += gridSize {
		c.BeginPath()
		c.MoveTo(0, y)
		c.LineTo(width, y)
		c.Stroke()
	}
}

func drawElement(c canvas.Canvas, el *models.DreamElement, x, y, ms float64) {
	size := el.Scale * shapeScale

	c.Save()
	c.SetGlobalAlpha(elementAlpha)
	c.Translate(x, y)
	c.Translate(0, FloatOffset(ms, el.Scale))
	c.Rotate(Rotation(ms, el.Scale))

	draw, ok := shapes[el.Kind]
	if !ok {
		draw = drawAbstract
	}
	draw(c, el.Color, size)

	c.Restore()
}

// shapeFunc draws an element centred on the origin.
type shapeFunc func(c canvas.Canvas, col models.Color, size float64)

var shapes = map[models.ElementKind]shapeFunc{
	models.KindLocation: drawLocation,
	models.KindCreature: drawCreature,
	models.KindObject:   drawObject,
	models.KindAbstract: drawAbstract,
}

func init() {
	for _, k := range models.ElementKinds {
		if shapes[k] == nil {
			panic("render2d: no shape for element kind " + string(k))
		}
	}
}

func drawLocation(c canvas.Canvas, col models.Color, size float64) {
	c.SetFillStyle(canvas.Solid(render.WithAlpha(col, 0.8)))
	c.BeginPath()
	for i := 0; i < starPoints*2; i++ {
		radius := size
		if i%2 == 1 {
			radius = size * 0.5
		}
		angle := float64(i)/float64(starPoints*2)*2*math.Pi - math.Pi/2
		px, py := math.Cos(angle)*radius, math.Sin(angle)*radius
		if i == 0 {
			c.MoveTo(px, py)
		} else {
			c.LineTo(px, py)
		}
	}
	c.ClosePath()
	c.Fill()

	c.BeginPath()
	c.Arc(0, 0, size*0.6, 0, 2*math.Pi)
	c.SetStrokeStyle(canvas.Solid(render.WithAlpha(col, 0.3)))
	c.SetLineWidth(2)
	c.Stroke()
}

func drawCreature(c canvas.Canvas, col models.Color, size float64) {
	c.SetFillStyle(canvas.Solid(render.WithAlpha(col, 0.8)))
	c.BeginPath()
	for i := 0; i < organicPoints; i++ {
		angle := float64(i) / organicPoints * 2 * math.Pi
		radius := size * (0.8 + math.Sin(angle*3)*0.2)
		px, py := math.Cos(angle)*radius, math.Sin(angle)*radius
		if i == 0 {
			c.MoveTo(px, py)
			continue
		}
		ctrl := angle - math.Pi/organicPoints
		c.QuadraticCurveTo(math.Cos(ctrl)*size, math.Sin(ctrl)*size, px, py)
	}
	c.ClosePath()
	c.Fill()
}

func drawObject(c canvas.Canvas, col models.Color, size float64) {
	c.SetFillStyle(canvas.Solid(render.WithAlpha(col, 0.6)))
	c.FillRect(-size/2, -size/2, size, size)

	for i := 3; i > 0; i-- {
		c.SetFillStyle(canvas.Solid(render.WithAlpha(col, 0.3/float64(4-i))))
		c.BeginPath()
		c.Arc(0, 0, size+float64(i)*5, 0, 2*math.Pi)
		c.Fill()
	}
}

func drawAbstract(c canvas.Canvas, col models.Color, size float64) {
	c.SetStrokeStyle(canvas.Solid(render.WithAlpha(col, 0.7)))
	c.SetLineWidth(2)
	c.BeginPath()
	for i := 0; i < spiralSteps; i++ {
		frac := float64(i) / spiralSteps
		angle := frac * 4 * math.Pi
		radius := frac * size
		px, py := math.Cos(angle)*radius, math.Sin(angle)*radius
		if i == 0 {
			c.MoveTo(px, py)
		} else {
			c.LineTo(px, py)
		}
	}
	c.Stroke()
}
