// internal/render/scene3d/select.go
package scene3d

import (
	"fmt"

	"github.com/Corphon/DreamScape/internal/models"
)

// GeometrySpec is a recipe for a primitive.
type GeometrySpec struct {
	Shape  Shape
	Params []float32
}

// Build creates the geometry.
func (s GeometrySpec) Build() *Geometry {
	p := s.Params
	switch s.Shape {
	case ShapeTorus:
		return Torus(p[0], p[1], int(p[2]), int(p[3]))
	case ShapeOctahedron:
		return Octahedron(p[0])
	case ShapeIcosahedron:
		return Icosahedron(p[0])
	case ShapeTetrahedron:
		return Tetrahedron(p[0])
	case ShapeSphere:
		return Sphere(p[0], int(p[1]), int(p[2]))
	case ShapeCone:
		return Cone(p[0], p[1], int(p[2]))
	case ShapeBox:
		return Box(p[0], p[1], p[2])
	case ShapeCylinder:
		return Cylinder(p[0], p[1], p[2], int(p[3]))
	case ShapeDodecahedron:
		return Dodecahedron(p[0])
	}
	panic(fmt.Sprintf("scene3d: unknown shape %q", s.Shape))
}

var paramCount = map[Shape]int{
	ShapeTorus: 4, ShapeOctahedron: 1, ShapeIcosahedron: 1, ShapeTetrahedron: 1,
	ShapeSphere: 3, ShapeCone: 3, ShapeBox: 3, ShapeCylinder: 4, ShapeDodecahedron: 1,
}

// Variants is the number of geometry choices per kind.
const Variants = 5

// geometryTable gives the candidates for each kind, indexed by element index mod 5.
var geometryTable = map[models.ElementKind][Variants]GeometrySpec{
	models.KindLocation: {
		{ShapeTorus, []float32{2, 0.5, 16, 8}},
		{ShapeOctahedron, []float32{1.5}},
		{ShapeIcosahedron, []float32{1}},
		{ShapeTetrahedron, []float32{2}},
		{ShapeSphere, []float32{1.5, 32, 32}},
	},
	models.KindCreature: {
		{ShapeCone, []float32{1, 3, 8}},
		{ShapeTetrahedron, []float32{1}},
		{ShapeIcosahedron, []float32{1.2}},
		{ShapeIcosahedron, []float32{1.2}},
		{ShapeIcosahedron, []float32{1.2}},
	},
	models.KindObject: {
		{ShapeBox, []float32{1, 1.5, 1}},
		{ShapeCylinder, []float32{1, 1, 2, 8}},
		{ShapeCone, []float32{1, 2, 16}},
		{ShapeDodecahedron, []float32{1}},
		{ShapeDodecahedron, []float32{1}},
	},
	models.KindAbstract: {
		{ShapeIcosahedron, []float32{1.25}},
		{ShapeIcosahedron, []float32{1.25}},
		{ShapeIcosahedron, []float32{1.25}},
		{ShapeIcosahedron, []float32{1.25}},
		{ShapeIcosahedron, []float32{1.25}},
	},
}

// SpecFor returns the geometry recipe for the element at index. Unknown kinds
// use the abstract row.
func SpecFor(kind models.ElementKind, index int) GeometrySpec {
	row, ok := geometryTable[kind]
	if !ok {
		row = geometryTable[models.KindAbstract]
	}
	i := index % Variants
	if i < 0 {
		i += Variants
	}
	return row[i]
}

// GeometryFor builds the geometry for the element at index.
func GeometryFor(kind models.ElementKind, index int) *Geometry {
	return SpecFor(kind, index).Build()
}

func checkGeometryTable() error {
	for _, k := range models.ElementKinds {
		row, ok := geometryTable[k]
		if !ok {
			return fmt.Errorf("no geometry row for kind %s", k)
		}
		for i, spec := range row {
			want, known := paramCount[spec.Shape]
			if !known {
				return fmt.Errorf("%s[%d]: unknown shape %q", k, i, spec.Shape)
			}
			if len(spec.Params) != want {
				return fmt.Errorf("%s[%d]: %s wants %d params, has %d", k, i, spec.Shape, want, len(spec.Params))
			}
		}
	}
	return nil
}

func init() {
	if err := checkGeometryTable(); err != nil {
		panic("scene3d: " + err.Error())
	}
}
