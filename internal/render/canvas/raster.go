// internal/render/canvas/raster.go
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/vector"
)

const (
	curveSegments = 16
	maxArcSteps   = 360
)

type state struct {
	ctm       mgl32.Mat3
	alpha     float64
	fill      Paint
	stroke    Paint
	lineWidth float64
}

type subpath struct {
	pts    []mgl32.Vec2 // device space
	closed bool
}

// Raster is a Canvas backed by an *image.RGBA, rasterised with
// golang.org/x/image/vector. It is not safe for concurrent use.
type Raster struct {
	viewport render.Viewport
	img      *image.RGBA
	ras      vector.Rasterizer

	st    state
	stack []state
	path  []subpath
}

// NewRaster allocates a surface for v.
func NewRaster(v render.Viewport) (*Raster, error) {
	if err := v.Validate(); err != nil {
		return nil, apperrors.NewRenderUnavailableError("cannot allocate 2d surface", err)
	}
	r := &Raster{}
	r.allocate(v)
	return r, nil
}

func (r *Raster) allocate(v render.Viewport) {
	w, h := v.Backing()
	r.viewport = v
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	r.st = state{
		ctm:       mgl32.Scale2D(float32(v.DPR), float32(v.DPR)),
		alpha:     1,
		fill:      Solid(color.NRGBA{A: 255}),
		stroke:    Solid(color.NRGBA{A: 255}),
		lineWidth: 1,
	}
	r.stack = nil
	r.path = nil
}

// Size implements Canvas.
func (r *Raster) Size() (float64, float64) {
	return float64(r.viewport.Width), float64(r.viewport.Height)
}

// Viewport returns the current surface size.
func (r *Raster) Viewport() render.Viewport {
	return r.viewport
}

// Resize implements Canvas. Invalid sizes are ignored.
func (r *Raster) Resize(v render.Viewport) {
	if v.Validate() != nil {
		return
	}
	r.allocate(v)
}

// Image returns the backing buffer. It is overwritten by later draws.
func (r *Raster) Image() *image.RGBA {
	return r.img
}

// Snapshot returns a copy of the backing buffer.
func (r *Raster) Snapshot() *image.RGBA {
	out := image.NewRGBA(r.img.Bounds())
	copy(out.Pix, r.img.Pix)
	return out
}

// Clear replaces every pixel with c, ignoring global alpha and transform.
func (r *Raster) Clear(c color.NRGBA) {
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Save implements Canvas.
func (r *Raster) Save() {
	r.stack = append(r.stack, r.st)
}

// Restore implements Canvas.
func (r *Raster) Restore() {
	if n := len(r.stack); n > 0 {
		r.st = r.stack[n-1]
		r.stack = r.stack[:n-1]
	}
}

// Translate implements Canvas.
func (r *Raster) Translate(x, y float64) {
	r.st.ctm = r.st.ctm.Mul3(mgl32.Translate2D(float32(x), float32(y)))
}

// Rotate implements Canvas.
func (r *Raster) Rotate(angle float64) {
	r.st.ctm = r.st.ctm.Mul3(mgl32.HomogRotate2D(float32(angle)))
}

// SetGlobalAlpha implements Canvas. Values outside [0,1] are ignored.
func (r *Raster) SetGlobalAlpha(alpha float64) {
	if alpha < 0 || alpha > 1 || math.IsNaN(alpha) {
		return
	}
	r.st.alpha = alpha
}

// SetFillStyle implements Canvas.
func (r *Raster) SetFillStyle(p Paint) { r.st.fill = p }

// SetStrokeStyle implements Canvas.
func (r *Raster) SetStrokeStyle(p Paint) { r.st.stroke = p }

// SetLineWidth implements Canvas. Non-positive widths are ignored.
func (r *Raster) SetLineWidth(width float64) {
	if width > 0 {
		r.st.lineWidth = width
	}
}

func (r *Raster) transform(x, y float64) mgl32.Vec2 {
	v := r.st.ctm.Mul3x1(mgl32.Vec3{float32(x), float32(y), 1})
	return mgl32.Vec2{v[0], v[1]}
}

// FillRect implements Canvas. The current path is left untouched.
func (r *Raster) FillRect(x, y, width, height float64) {
	rect := subpath{pts: []mgl32.Vec2{
		r.transform(x, y),
		r.transform(x+width, y),
		r.transform(x+width, y+height),
		r.transform(x, y+height),
	}, closed: true}
	r.fillSubpaths([]subpath{rect}, r.st.fill)
}

// BeginPath implements Canvas.
func (r *Raster) BeginPath() {
	r.path = r.path[:0]
}

// MoveTo implements Canvas.
func (r *Raster) MoveTo(x, y float64) {
	r.path = append(r.path, subpath{pts: []mgl32.Vec2{r.transform(x, y)}})
}

// LineTo implements Canvas.
func (r *Raster) LineTo(x, y float64) {
	if len(r.path) == 0 {
		r.MoveTo(x, y)
		return
	}
	cur := &r.path[len(r.path)-1]
	cur.pts = append(cur.pts, r.transform(x, y))
}

// QuadraticCurveTo implements Canvas.
func (r *Raster) QuadraticCurveTo(cpx, cpy, x, y float64) {
	if len(r.path) == 0 {
		r.MoveTo(cpx, cpy)
	}
	cur := &r.path[len(r.path)-1]
	p0 := cur.pts[len(cur.pts)-1]
	p1 := r.transform(cpx, cpy)
	p2 := r.transform(x, y)
	for i := 1; i <= curveSegments; i++ {
		t := float32(i) / curveSegments
		u := 1 - t
		cur.pts = append(cur.pts, p0.Mul(u*u).Add(p1.Mul(2*u*t)).Add(p2.Mul(t*t)))
	}
}

// Arc implements Canvas for clockwise arcs.
func (r *Raster) Arc(x, y, radius, startAngle, endAngle float64) {
	if radius < 0 || math.IsNaN(radius) {
		return
	}
	sweep := endAngle - startAngle
	if sweep >= 2*math.Pi {
		sweep = 2 * math.Pi
	} else {
		sweep = math.Mod(sweep, 2*math.Pi)
		if sweep < 0 {
			sweep += 2 * math.Pi
		}
	}

	deviceRadius := radius * r.scale()
	steps := int(math.Ceil(sweep / (2 * math.Pi) * math.Max(24, deviceRadius)))
	if steps < 1 {
		steps = 1
	}
	if steps > maxArcSteps {
		steps = maxArcSteps
	}

	for i := 0; i <= steps; i++ {
		a := startAngle + sweep*float64(i)/float64(steps)
		px, py := x+math.Cos(a)*radius, y+math.Sin(a)*radius
		if i == 0 && len(r.path) == 0 {
			r.MoveTo(px, py)
			continue
		}
		r.LineTo(px, py)
	}
}

// ClosePath implements Canvas.
func (r *Raster) ClosePath() {
	if len(r.path) == 0 {
		return
	}
	cur := &r.path[len(r.path)-1]
	cur.closed = true
	r.path = append(r.path, subpath{pts: []mgl32.Vec2{cur.pts[0]}})
}

// Fill implements Canvas.
func (r *Raster) Fill() {
	r.fillSubpaths(r.path, r.st.fill)
}

// Stroke implements Canvas with butt caps and no joins.
func (r *Raster) Stroke() {
	hw := float32(r.st.lineWidth * r.scale() / 2)
	var quads []subpath
	for _, sp := range r.path {
		n := len(sp.pts)
		if n < 2 {
			continue
		}
		segs := n - 1
		if sp.closed {
			segs = n
		}
		for i := 0; i < segs; i++ {
			if q, ok := segmentQuad(sp.pts[i], sp.pts[(i+1)%n], hw); ok {
				quads = append(quads, q)
			}
		}
	}
	r.fillSubpaths(quads, r.st.stroke)
}

// segmentQuad returns the rectangle covering a line segment. All quads share
// the same winding, so overlaps never cancel.
func segmentQuad(a, b mgl32.Vec2, hw float32) (subpath, bool) {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		return subpath{}, false
	}
	n := mgl32.Vec2{-d[1], d[0]}.Mul(hw / l)
	return subpath{pts: []mgl32.Vec2{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}, closed: true}, true
}

// scale is the uniform scale factor of the current transform.
func (r *Raster) scale() float64 {
	m := r.st.ctm
	return math.Sqrt(math.Abs(float64(m[0]*m[4] - m[3]*m[1])))
}

func (r *Raster) fillSubpaths(paths []subpath, p Paint) {
	bounds, ok := pathBounds(paths, r.img.Bounds())
	if !ok {
		return
	}

	r.ras.Reset(bounds.Dx(), bounds.Dy())
	ox, oy := float32(bounds.Min.X), float32(bounds.Min.Y)
	drawn := false
	for _, sp := range paths {
		if len(sp.pts) < 3 {
			continue
		}
		r.ras.MoveTo(sp.pts[0][0]-ox, sp.pts[0][1]-oy)
		for _, pt := range sp.pts[1:] {
			r.ras.LineTo(pt[0]-ox, pt[1]-oy)
		}
		r.ras.ClosePath()
		drawn = true
	}
	if !drawn {
		return
	}
	r.ras.Draw(r.img, bounds, r.source(p), bounds.Min)
}

func (r *Raster) source(p Paint) image.Image {
	if p.Gradient == nil {
		return image.NewUniform(render.ScaleAlpha(p.Color, r.st.alpha))
	}
	return newGradientImage(p.Gradient, r.st.ctm.Inv(), r.st.alpha)
}

// pathBounds returns the integer device bounds of paths clipped to clip.
func pathBounds(paths []subpath, clip image.Rectangle) (image.Rectangle, bool) {
	minX, minY := float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY := float32(math.Inf(-1)), float32(math.Inf(-1))
	for _, sp := range paths {
		for _, pt := range sp.pts {
			if math.IsNaN(float64(pt[0])) || math.IsNaN(float64(pt[1])) {
				continue
			}
			minX, minY = min(minX, pt[0]), min(minY, pt[1])
			maxX, maxY = max(maxX, pt[0]), max(maxY, pt[1])
		}
	}
	if minX > maxX || minY > maxY {
		return image.Rectangle{}, false
	}
	b := image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX)))+1, int(math.Ceil(float64(maxY)))+1,
	).Intersect(clip)
	return b, !b.Empty()
}

const gradientLUTSize = 1024

// gradientImage evaluates a RadialGradient per device pixel through a
// precomputed lookup table.
type gradientImage struct {
	g   *RadialGradient
	inv mgl32.Mat3
	lut [gradientLUTSize]color.NRGBA
}

func newGradientImage(g *RadialGradient, inv mgl32.Mat3, alpha float64) *gradientImage {
	gi := &gradientImage{g: g, inv: inv}
	for i := range gi.lut {
		d := g.R0 + (g.R1-g.R0)*float64(i)/(gradientLUTSize-1)
		gi.lut[i] = render.ScaleAlpha(g.ColorAt(d), alpha)
	}
	return gi
}

func (gi *gradientImage) ColorModel() color.Model { return color.NRGBAModel }

func (gi *gradientImage) Bounds() image.Rectangle {
	return image.Rect(-1<<20, -1<<20, 1<<20, 1<<20)
}

func (gi *gradientImage) At(x, y int) color.Color {
	u := gi.inv.Mul3x1(mgl32.Vec3{float32(x) + 0.5, float32(y) + 0.5, 1})
	d := math.Hypot(float64(u[0])-gi.g.X, float64(u[1])-gi.g.Y)
	t := 0.0
	if gi.g.R1 > gi.g.R0 {
		t = (d - gi.g.R0) / (gi.g.R1 - gi.g.R0)
	}
	t = math.Max(0, math.Min(1, t))
	return gi.lut[int(t*(gradientLUTSize-1)+0.5)]
}
