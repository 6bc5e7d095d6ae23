// internal/render/scene3d/scene.go
package scene3d

import (
	"github.com/Corphon/DreamScape/internal/models"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lucasb-eyer/go-colorful"
)

// Color is a linear RGB triple in [0,1].
type Color = mgl32.Vec3

// ColorOf converts a #RRGGBB colour.
func ColorOf(c models.Color) Color {
	cf := c.Colorful()
	return Color{float32(cf.R), float32(cf.G), float32(cf.B)}
}

// Colorful converts back for blending.
func Colorful(c Color) colorful.Color {
	return colorful.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])}
}

// White is the default point colour.
var White = Color{1, 1, 1}

// Material holds the Phong surface parameters of a mesh.
type Material struct {
	Color     Color
	Emissive  Color
	Shininess float32
	Wireframe bool
}

// Euler is a rotation in radians applied in X, Y, Z order.
type Euler struct {
	X, Y, Z float32
}

// Matrix returns the rotation matrix Rx·Ry·Rz.
func (e Euler) Matrix() mgl32.Mat4 {
	return mgl32.HomogRotate3DX(e.X).Mul4(mgl32.HomogRotate3DY(e.Y)).Mul4(mgl32.HomogRotate3DZ(e.Z))
}

// Mesh is a geometry placed in the world with a material.
type Mesh struct {
	Name          string
	Geometry      *Geometry
	Material      *Material
	Position      mgl32.Vec3
	Rotation      Euler
	Scale         float32
	CastShadow    bool
	ReceiveShadow bool

	// OriginY is the rest height the float animation oscillates around.
	OriginY float32
	// FloatSpeed is the angular speed of the float animation, rad/s.
	FloatSpeed float32
}

// Model returns the model matrix T·R·S.
func (m *Mesh) Model() mgl32.Mat4 {
	s := m.Scale
	if s == 0 {
		s = 1
	}
	return mgl32.Translate3D(m.Position[0], m.Position[1], m.Position[2]).
		Mul4(m.Rotation.Matrix()).
		Mul4(mgl32.Scale3D(s, s, s))
}

// Points is a cloud of screen-facing squares.
type Points struct {
	Positions []mgl32.Vec3
	Color     Color
	// Size is in world units, attenuated with distance.
	Size     float32
	Rotation Euler
}

// AmbientLight lights every face equally.
type AmbientLight struct {
	Color     Color
	Intensity float32
}

// DirectionalLight shines from Position towards the origin.
type DirectionalLight struct {
	Color      Color
	Intensity  float32
	Position   mgl32.Vec3
	CastShadow bool
}

// Direction is the unit vector pointing from the surface towards the light.
func (l *DirectionalLight) Direction() mgl32.Vec3 {
	if l.Position.Len() == 0 {
		return mgl32.Vec3{0, 1, 0}
	}
	return l.Position.Normalize()
}

// PointLight radiates from Position and fades to zero at Distance.
type PointLight struct {
	Color     Color
	Intensity float32
	Distance  float32
	Decay     float32
	Position  mgl32.Vec3
}

// Attenuation is the intensity factor at distance d.
func (l *PointLight) Attenuation(d float32) float32 {
	if l.Distance <= 0 {
		return 1
	}
	f := 1 - d/l.Distance
	if f <= 0 {
		return 0
	}
	return math32.Pow(f, l.Decay)
}

// Fog blends fragments towards Color linearly between Near and Far.
type Fog struct {
	Color Color
	Near  float32
	Far   float32
}

// Factor is the fog amount in [0,1] at view depth d.
func (f *Fog) Factor(d float32) float32 {
	if f.Far == f.Near {
		return 0
	}
	t := (d - f.Near) / (f.Far - f.Near)
	return math32.Max(0, math32.Min(1, t))
}

// Scene is everything the device draws in one frame.
type Scene struct {
	Background      Color
	BackgroundAlpha float32
	Ambient         AmbientLight
	Directional     DirectionalLight
	Point           PointLight
	Fog             *Fog
	Meshes          []*Mesh
	Points          []*Points
	ShadowsEnabled  bool
}
