// internal/render/scene3d/geometry.go
package scene3d

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Shape names a primitive geometry family.
type Shape string

const (
	ShapeTorus        Shape = "torus"
	ShapeOctahedron   Shape = "octahedron"
	ShapeIcosahedron  Shape = "icosahedron"
	ShapeTetrahedron  Shape = "tetrahedron"
	ShapeSphere       Shape = "sphere"
	ShapeCone         Shape = "cone"
	ShapeBox          Shape = "box"
	ShapeCylinder     Shape = "cylinder"
	ShapeDodecahedron Shape = "dodecahedron"
)

// Geometry is an indexed triangle mesh in model space.
type Geometry struct {
	Shape     Shape
	Params    []float32
	Positions []mgl32.Vec3
	Indices   []uint32 // three per triangle
}

// Triangles returns the number of triangles.
func (g *Geometry) Triangles() int {
	return len(g.Indices) / 3
}

// String describes the geometry as shape(params).
func (g *Geometry) String() string {
	return fmt.Sprintf("%s%v", g.Shape, g.Params)
}

// polyhedron scales unit-direction vertices onto a sphere of radius.
func polyhedron(shape Shape, radius float32, verts []float32, idx []uint32) *Geometry {
	g := &Geometry{Shape: shape, Params: []float32{radius}, Indices: idx}
	for i := 0; i+2 < len(verts); i += 3 {
		v := mgl32.Vec3{verts[i], verts[i+1], verts[i+2]}
		g.Positions = append(g.Positions, v.Normalize().Mul(radius))
	}
	return g
}

// Tetrahedron is a 4-face polyhedron inscribed in radius.
func Tetrahedron(radius float32) *Geometry {
	return polyhedron(ShapeTetrahedron, radius,
		[]float32{1, 1, 1, -1, -1, 1, -1, 1, -1, 1, -1, -1},
		[]uint32{2, 1, 0, 0, 3, 2, 1, 3, 0, 2, 3, 1})
}

// Octahedron is an 8-face polyhedron inscribed in radius.
func Octahedron(radius float32) *Geometry {
	return polyhedron(ShapeOctahedron, radius,
		[]float32{1, 0, 0, -1, 0, 0, 0, 1, 0, 0, -1, 0, 0, 0, 1, 0, 0, -1},
		[]uint32{0, 2, 4, 0, 4, 3, 0, 3, 5, 0, 5, 2, 1, 2, 5, 1, 5, 3, 1, 3, 4, 1, 4, 2})
}

var phi = (1 + math32.Sqrt(5)) / 2

// Icosahedron is a 20-face polyhedron inscribed in radius.
func Icosahedron(radius float32) *Geometry {
	t := phi
	return polyhedron(ShapeIcosahedron, radius,
		[]float32{
			-1, t, 0, 1, t, 0, -1, -t, 0, 1, -t, 0,
			0, -1, t, 0, 1, t, 0, -1, -t, 0, 1, -t,
			t, 0, -1, t, 0, 1, -t, 0, -1, -t, 0, 1,
		},
		[]uint32{
			0, 11, 5, 0, 5, 1, 0, 1, 7, 0, 7, 10, 0, 10, 11,
			1, 5, 9, 5, 11, 4, 11, 10, 2, 10, 7, 6, 7, 1, 8,
			3, 9, 4, 3, 4, 2, 3, 2, 6, 3, 6, 8, 3, 8, 9,
			4, 9, 5, 2, 4, 11, 6, 2, 10, 8, 6, 7, 9, 8, 1,
		})
}

// Dodecahedron is a 12-face polyhedron inscribed in radius, each pentagon
// split into three triangles.
func Dodecahedron(radius float32) *Geometry {
	t := phi
	r := 1 / t
	return polyhedron(ShapeDodecahedron, radius,
		[]float32{
			-1, -1, -1, -1, -1, 1, -1, 1, -1, -1, 1, 1,
			1, -1, -1, 1, -1, 1, 1, 1, -1, 1, 1, 1,
			0, -r, -t, 0, -r, t, 0, r, -t, 0, r, t,
			-r, -t, 0, -r, t, 0, r, -t, 0, r, t, 0,
			-t, 0, -r, t, 0, -r, -t, 0, r, t, 0, r,
		},
		[]uint32{
			3, 11, 7, 3, 7, 15, 3, 15, 13,
			7, 19, 17, 7, 17, 6, 7, 6, 15,
			17, 4, 8, 17, 8, 10, 17, 10, 6,
			8, 0, 16, 8, 16, 2, 8, 2, 10,
			0, 12, 1, 0, 1, 18, 0, 18, 16,
			6, 10, 2, 6, 2, 13, 6, 13, 15,
			2, 16, 18, 2, 18, 3, 2, 3, 13,
			18, 1, 9, 18, 9, 11, 18, 11, 3,
			4, 14, 12, 4, 12, 0, 4, 0, 8,
			11, 9, 5, 11, 5, 19, 11, 19, 7,
			19, 5, 14, 19, 14, 4, 19, 4, 17,
			1, 12, 14, 1, 14, 5, 1, 5, 9,
		})
}

// Box is an axis-aligned cuboid centred on the origin.
func Box(width, height, depth float32) *Geometry {
	x, y, z := width/2, height/2, depth/2
	g := &Geometry{Shape: ShapeBox, Params: []float32{width, height, depth}}
	for i := 0; i < 8; i++ {
		g.Positions = append(g.Positions, mgl32.Vec3{
			sign(i&1 != 0) * x, sign(i&2 != 0) * y, sign(i&4 != 0) * z,
		})
	}
	g.Indices = []uint32{
		0, 2, 3, 0, 3, 1, // -z
		4, 5, 7, 4, 7, 6, // +z
		0, 1, 5, 0, 5, 4, // -y
		2, 6, 7, 2, 7, 3, // +y
		0, 4, 6, 0, 6, 2, // -x
		1, 3, 7, 1, 7, 5, // +x
	}
	return g
}

func sign(positive bool) float32 {
	if positive {
		return 1
	}
	return -1
}

// Sphere is a UV sphere with the given segment counts.
func Sphere(radius float32, widthSegments, heightSegments int) *Geometry {
	g := &Geometry{Shape: ShapeSphere, Params: []float32{radius, float32(widthSegments), float32(heightSegments)}}
	row := uint32(widthSegments + 1)
	for iy := 0; iy <= heightSegments; iy++ {
		v := float32(iy) / float32(heightSegments)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float32(ix) / float32(widthSegments)
			g.Positions = append(g.Positions, mgl32.Vec3{
				-radius * math32.Cos(u*2*math32.Pi) * math32.Sin(v*math32.Pi),
				radius * math32.Cos(v*math32.Pi),
				radius * math32.Sin(u*2*math32.Pi) * math32.Sin(v*math32.Pi),
			})
		}
	}
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := uint32(iy)*row + uint32(ix) + 1
			b := uint32(iy)*row + uint32(ix)
			c := uint32(iy+1)*row + uint32(ix)
			d := uint32(iy+1)*row + uint32(ix) + 1
			if iy != 0 {
				g.Indices = append(g.Indices, a, b, d)
			}
			if iy != heightSegments-1 {
				g.Indices = append(g.Indices, b, c, d)
			}
		}
	}
	return g
}

// Torus lies in the xy plane around the origin.
func Torus(radius, tube float32, radialSegments, tubularSegments int) *Geometry {
	g := &Geometry{Shape: ShapeTorus, Params: []float32{radius, tube, float32(radialSegments), float32(tubularSegments)}}
	for j := 0; j <= radialSegments; j++ {
		v := float32(j) / float32(radialSegments) * 2 * math32.Pi
		for i := 0; i <= tubularSegments; i++ {
			u := float32(i) / float32(tubularSegments) * 2 * math32.Pi
			g.Positions = append(g.Positions, mgl32.Vec3{
				(radius + tube*math32.Cos(v)) * math32.Cos(u),
				(radius + tube*math32.Cos(v)) * math32.Sin(u),
				tube * math32.Sin(v),
			})
		}
	}
	row := uint32(tubularSegments + 1)
	for j := 1; j <= radialSegments; j++ {
		for i := 1; i <= tubularSegments; i++ {
			a := row*uint32(j) + uint32(i) - 1
			b := row*uint32(j-1) + uint32(i) - 1
			c := row*uint32(j-1) + uint32(i)
			d := row*uint32(j) + uint32(i)
			g.Indices = append(g.Indices, a, b, d, b, c, d)
		}
	}
	return g
}

// Cylinder is a capped frustum along y; a zero top radius gives a cone.
func Cylinder(radiusTop, radiusBottom, height float32, radialSegments int) *Geometry {
	g := frustum(radiusTop, radiusBottom, height, radialSegments)
	g.Shape = ShapeCylinder
	g.Params = []float32{radiusTop, radiusBottom, height, float32(radialSegments)}
	return g
}

// Cone is a capped cone along y with its apex up.
func Cone(radius, height float32, radialSegments int) *Geometry {
	g := frustum(0, radius, height, radialSegments)
	g.Shape = ShapeCone
	g.Params = []float32{radius, height, float32(radialSegments)}
	return g
}

func frustum(radiusTop, radiusBottom, height float32, segments int) *Geometry {
	g := &Geometry{}
	half := height / 2
	n := uint32(segments)

	// rings: top [0,n), bottom [n,2n); centres 2n (top), 2n+1 (bottom)
	for _, ring := range []struct{ r, y float32 }{{radiusTop, half}, {radiusBottom, -half}} {
		for i := 0; i < segments; i++ {
			theta := float32(i) / float32(segments) * 2 * math32.Pi
			g.Positions = append(g.Positions, mgl32.Vec3{ring.r * math32.Sin(theta), ring.y, ring.r * math32.Cos(theta)})
		}
	}
	g.Positions = append(g.Positions, mgl32.Vec3{0, half, 0}, mgl32.Vec3{0, -half, 0})

	for i := uint32(0); i < n; i++ {
		next := (i + 1) % n
		if radiusTop > 0 {
			g.Indices = append(g.Indices, i, n+i, next)
			g.Indices = append(g.Indices, 2*n, i, next)
		}
		g.Indices = append(g.Indices, next, n+i, n+next)
		g.Indices = append(g.Indices, 2*n+1, n+next, n+i)
	}
	return g
}
