// internal/render/render3d/device.go
package render3d

import (
	"image"
	"image/color"
	"math"
	"sort"
	"sync"

	apperrors "github.com/Corphon/DreamScape/internal/errors"
	"github.com/Corphon/DreamScape/internal/render"
	"github.com/Corphon/DreamScape/internal/render/canvas"
	"github.com/Corphon/DreamScape/internal/render/scene3d"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ResourceID identifies a device-side resource.
type ResourceID uint64

// ResourceKind classifies device resources for leak reports.
type ResourceKind string

const (
	ResourceGeometry ResourceKind = "geometry"
	ResourceMaterial ResourceKind = "material"
	ResourcePoints   ResourceKind = "points"
)

// Device is the graphics backend of the 3D renderer. Every Create call must be
// paired with a Release before Dispose.
type Device interface {
	CreateGeometry(g *scene3d.Geometry) (ResourceID, error)
	CreateMaterial(m *scene3d.Material) (ResourceID, error)
	CreatePoints(p *scene3d.Points) (ResourceID, error)
	Release(id ResourceID)

	SetClearColor(c scene3d.Color, alpha float32)
	SetSize(v render.Viewport)
	Render(s *scene3d.Scene, cam *scene3d.PerspectiveCamera)
	Snapshot() *image.RGBA

	// Live returns the number of resources not yet released.
	Live() int
	Dispose()
}

// DeviceFactory creates a device for a surface of size v.
type DeviceFactory func(v render.Viewport) (Device, error)

// SoftwareDevice rasterises a scene onto a canvas.Raster with flat Phong
// shading, linear fog and painter's-order visibility.
type SoftwareDevice struct {
	mu         sync.Mutex
	target     *canvas.Raster
	clear      color.NRGBA
	nextID     ResourceID
	resources  map[ResourceID]ResourceKind
	disposed   bool
	prims      []prim
	renderedAt int
}

var _ Device = (*SoftwareDevice)(nil)

// NewSoftwareDevice allocates a framebuffer for v.
func NewSoftwareDevice(v render.Viewport) (Device, error) {
	target, err := canvas.NewRaster(v)
	if err != nil {
		return nil, apperrors.NewRenderUnavailableError("cannot create 3d device", err)
	}
	return &SoftwareDevice{
		target:    target,
		clear:     color.NRGBA{A: 255},
		resources: make(map[ResourceID]ResourceKind),
	}, nil
}

func (d *SoftwareDevice) create(kind ResourceKind) (ResourceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return 0, apperrors.NewRenderUnavailableError("device disposed", nil)
	}
	d.nextID++
	d.resources[d.nextID] = kind
	return d.nextID, nil
}

// CreateGeometry implements Device.
func (d *SoftwareDevice) CreateGeometry(*scene3d.Geometry) (ResourceID, error) {
	return d.create(ResourceGeometry)
}

// CreateMaterial implements Device.
func (d *SoftwareDevice) CreateMaterial(*scene3d.Material) (ResourceID, error) {
	return d.create(ResourceMaterial)
}

// CreatePoints implements Device.
func (d *SoftwareDevice) CreatePoints(*scene3d.Points) (ResourceID, error) {
	return d.create(ResourcePoints)
}

// Release implements Device. Unknown ids are ignored.
func (d *SoftwareDevice) Release(id ResourceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.resources, id)
}

// Live implements Device.
func (d *SoftwareDevice) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.resources)
}

// LiveByKind breaks Live down by resource kind.
func (d *SoftwareDevice) LiveByKind() map[ResourceKind]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[ResourceKind]int)
	for _, k := range d.resources {
		out[k]++
	}
	return out
}

// Disposed reports whether Dispose has run.
func (d *SoftwareDevice) Disposed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.disposed
}

// Dispose implements Device.
func (d *SoftwareDevice) Dispose() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disposed = true
	d.prims = nil
}

// SetClearColor implements Device.
func (d *SoftwareDevice) SetClearColor(c scene3d.Color, alpha float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, g, b := scene3d.Colorful(c).Clamped().RGB255()
	d.clear = render.RGBA(r, g, b, float64(alpha))
}

// SetSize implements Device.
func (d *SoftwareDevice) SetSize(v render.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.disposed {
		d.target.Resize(v)
	}
}

// Snapshot implements Device.
func (d *SoftwareDevice) Snapshot() *image.RGBA {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target.Snapshot()
}

// Frames returns how many times Render drew.
func (d *SoftwareDevice) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renderedAt
}

// prim is one screen-space polygon waiting for the painter's sort.
type prim struct {
	pts   [4]mgl32.Vec2
	n     int
	depth float32
	color color.NRGBA
	wire  bool
}

// Render implements Device.
func (d *SoftwareDevice) Render(s *scene3d.Scene, cam *scene3d.PerspectiveCamera) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return
	}

	d.target.Clear(d.clear)
	width, height := d.target.Size()
	vp := cam.Projection().Mul4(cam.View())
	eye := cam.Position

	d.prims = d.prims[:0]
	for _, m := range s.Meshes {
		d.collectMesh(s, m, vp, eye, float32(width), float32(height), cam.Near)
	}
	for _, p := range s.Points {
		d.collectPoints(s, p, cam, vp, float32(width), float32(height))
	}

	sort.SliceStable(d.prims, func(i, j int) bool { return d.prims[i].depth > d.prims[j].depth })

	c := d.target
	for i := range d.prims {
		p := &d.prims[i]
		c.BeginPath()
		c.MoveTo(float64(p.pts[0][0]), float64(p.pts[0][1]))
		for k := 1; k < p.n; k++ {
			c.LineTo(float64(p.pts[k][0]), float64(p.pts[k][1]))
		}
		c.ClosePath()
		if p.wire {
			c.SetStrokeStyle(canvas.Solid(p.color))
			c.SetLineWidth(1)
			c.Stroke()
		} else {
			c.SetFillStyle(canvas.Solid(p.color))
			c.Fill()
		}
	}
	d.renderedAt++
}

// toScreen projects a world point; ok is false behind the near plane.
func toScreen(vp mgl32.Mat4, p mgl32.Vec3, width, height, near float32) (mgl32.Vec2, float32, bool) {
	clip := vp.Mul4x1(p.Vec4(1))
	if clip[3] <= near {
		return mgl32.Vec2{}, 0, false
	}
	x := clip[0] / clip[3]
	y := clip[1] / clip[3]
	return mgl32.Vec2{(x + 1) / 2 * width, (1 - y) / 2 * height}, clip[3], true
}

func (d *SoftwareDevice) collectMesh(s *scene3d.Scene, m *scene3d.Mesh, vp mgl32.Mat4, eye mgl32.Vec3, width, height, near float32) {
	model := m.Model()
	world := make([]mgl32.Vec3, len(m.Geometry.Positions))
	for i, p := range m.Geometry.Positions {
		world[i] = model.Mul4x1(p.Vec4(1)).Vec3()
	}

	idx := m.Geometry.Indices
	for t := 0; t+2 < len(idx); t += 3 {
		a, b, c := world[idx[t]], world[idx[t+1]], world[idx[t+2]]
		var pr prim
		pr.n = 3
		visible := true
		var depth float32
		for k, w := range [3]mgl32.Vec3{a, b, c} {
			sp, z, ok := toScreen(vp, w, width, height, near)
			if !ok {
				visible = false
				break
			}
			pr.pts[k] = sp
			depth += z
		}
		if !visible {
			continue
		}
		pr.depth = depth / 3

		centroid := a.Add(b).Add(c).Mul(1.0 / 3)
		normal := b.Sub(a).Cross(c.Sub(a))
		if normal.Len() == 0 {
			continue
		}
		normal = normal.Normalize()
		if normal.Dot(eye.Sub(centroid)) < 0 {
			normal = normal.Mul(-1)
		}

		lit := shade(s, m.Material, centroid, normal)
		pr.color = applyFog(s.Fog, lit, pr.depth)
		pr.wire = m.Material.Wireframe
		d.prims = append(d.prims, pr)
	}
}

func (d *SoftwareDevice) collectPoints(s *scene3d.Scene, p *scene3d.Points, cam *scene3d.PerspectiveCamera, vp mgl32.Mat4, width, height float32) {
	rot := p.Rotation.Matrix()
	focal := height / 2 / float32(math.Tan(float64(mgl32.DegToRad(cam.Fov))/2))
	for _, pos := range p.Positions {
		w := rot.Mul4x1(pos.Vec4(1)).Vec3()
		sp, z, ok := toScreen(vp, w, width, height, cam.Near)
		if !ok {
			continue
		}
		half := math32.Max(0.5, p.Size*focal/z/2)
		d.prims = append(d.prims, prim{
			pts: [4]mgl32.Vec2{
				{sp[0] - half, sp[1] - half},
				{sp[0] + half, sp[1] - half},
				{sp[0] + half, sp[1] + half},
				{sp[0] - half, sp[1] + half},
			},
			n:     4,
			depth: z,
			color: applyFog(s.Fog, p.Color, z),
		})
	}
}

// shade is flat Phong without the specular term: ambient + Lambert
// directional + attenuated point light, plus emissive.
func shade(s *scene3d.Scene, mat *scene3d.Material, pos, normal mgl32.Vec3) scene3d.Color {
	light := s.Ambient.Color.Mul(s.Ambient.Intensity)

	if diff := normal.Dot(s.Directional.Direction()); diff > 0 {
		light = light.Add(s.Directional.Color.Mul(s.Directional.Intensity * diff))
	}

	toLight := s.Point.Position.Sub(pos)
	if dist := toLight.Len(); dist > 0 {
		if diff := normal.Dot(toLight.Mul(1 / dist)); diff > 0 {
			light = light.Add(s.Point.Color.Mul(s.Point.Intensity * diff * s.Point.Attenuation(dist)))
		}
	}

	out := hadamard(mat.Color, light).Add(mat.Emissive)
	for i := range out {
		out[i] = math32.Max(0, math32.Min(1, out[i]))
	}
	return out
}

func hadamard(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func applyFog(f *scene3d.Fog, c scene3d.Color, depth float32) color.NRGBA {
	cf := scene3d.Colorful(c)
	if f != nil {
		cf = cf.BlendRgb(scene3d.Colorful(f.Color), float64(f.Factor(depth)))
	}
	r, g, b := cf.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
