// internal/render/color.go
package render

import (
	"image/color"
	"math"

	"github.com/Corphon/DreamScape/internal/models"
	"github.com/lucasb-eyer/go-colorful"
)

// RGBA builds a non-premultiplied colour from 8-bit channels and a [0,1] alpha.
func RGBA(r, g, b uint8, alpha float64) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: alphaByte(alpha)}
}

// WithAlpha returns c with the given [0,1] alpha.
func WithAlpha(c models.Color, alpha float64) color.NRGBA {
	r, g, b := c.RGB()
	return RGBA(r, g, b, alpha)
}

// ScaleAlpha multiplies the alpha channel of c by f.
func ScaleAlpha(c color.NRGBA, f float64) color.NRGBA {
	c.A = alphaByte(float64(c.A) / 255 * f)
	return c
}

// Lerp blends a towards b by t in RGB space, alpha linearly.
func Lerp(a, b color.NRGBA, t float64) color.NRGBA {
	ca := colorful.Color{R: float64(a.R) / 255, G: float64(a.G) / 255, B: float64(a.B) / 255}
	cb := colorful.Color{R: float64(b.R) / 255, G: float64(b.G) / 255, B: float64(b.B) / 255}
	r, g, bl := ca.BlendRgb(cb, t).Clamped().RGB255()
	alpha := float64(a.A) + (float64(b.A)-float64(a.A))*t
	return color.NRGBA{R: r, G: g, B: bl, A: uint8(alpha + 0.5)}
}

// alphaByte maps [0,1] to 0..255. The epsilon keeps run-time quotients such
// as 0.3/3 on the same byte as their exact value.
func alphaByte(alpha float64) uint8 {
	switch {
	case alpha <= 0:
		return 0
	case alpha >= 1:
		return 255
	}
	return uint8(math.Round(alpha*255 + 1e-9))
}
