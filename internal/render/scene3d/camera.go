// internal/render/scene3d/camera.go
package scene3d

import (
	"github.com/go-gl/mathgl/mgl32"
)

// PerspectiveCamera is a pinhole camera with Euler orientation.
type PerspectiveCamera struct {
	Fov      float32 // vertical, degrees
	Aspect   float32
	Near     float32
	Far      float32
	Position mgl32.Vec3
	Rotation Euler
}

// NewPerspectiveCamera creates a camera at the origin looking down -z.
func NewPerspectiveCamera(fov, aspect, near, far float32) *PerspectiveCamera {
	return &PerspectiveCamera{Fov: fov, Aspect: aspect, Near: near, Far: far}
}

// Projection returns the projection matrix.
func (c *PerspectiveCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), c.Aspect, c.Near, c.Far)
}

// View returns the inverse of the camera's world transform.
func (c *PerspectiveCamera) View() mgl32.Mat4 {
	return c.Rotation.Matrix().Transpose().
		Mul4(mgl32.Translate3D(-c.Position[0], -c.Position[1], -c.Position[2]))
}

// EaseRotation moves the x and y rotation a fraction k of the way to target.
func (c *PerspectiveCamera) EaseRotation(targetX, targetY, k float32) {
	c.Rotation.X += (targetX - c.Rotation.X) * k
	c.Rotation.Y += (targetY - c.Rotation.Y) * k
}
