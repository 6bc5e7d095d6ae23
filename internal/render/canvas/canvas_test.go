// internal/render/canvas/canvas_test.go
package canvas

import (
	"image/color"
	"math"
	"testing"

	"github.com/Corphon/DreamScape/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{R: 255, A: 255}

func TestNewRasterRejectsBadViewport(t *testing.T) {
	_, err := NewRaster(render.Viewport{Width: 0, Height: 10, DPR: 1})
	assert.Error(t, err)
}

func TestRasterBackingFollowsDPR(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 40, Height: 30, DPR: 2})
	require.NoError(t, err)
	assert.Equal(t, 80, r.Image().Bounds().Dx())
	assert.Equal(t, 60, r.Image().Bounds().Dy())
	w, h := r.Size()
	assert.Equal(t, 40.0, w)
	assert.Equal(t, 30.0, h)

	r.Resize(render.Viewport{Width: 10, Height: 10, DPR: 3})
	assert.Equal(t, 30, r.Image().Bounds().Dx())

	r.Resize(render.Viewport{Width: -1, Height: 10, DPR: 1})
	assert.Equal(t, 30, r.Image().Bounds().Dx())
}

func TestFillRectCoversPixels(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 20, Height: 20, DPR: 1})
	require.NoError(t, err)

	r.SetFillStyle(Solid(red))
	r.FillRect(5, 5, 10, 10)

	assert.Equal(t, color.RGBA{R: 255, A: 255}, r.Image().RGBAAt(10, 10))
	assert.Equal(t, color.RGBA{}, r.Image().RGBAAt(1, 1))
}

func TestFillRectRespectsDPRAndTranslate(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 20, Height: 20, DPR: 2})
	require.NoError(t, err)

	r.SetFillStyle(Solid(red))
	r.Save()
	r.Translate(10, 10)
	r.FillRect(0, 0, 5, 5)
	r.Restore()

	assert.Equal(t, uint8(255), r.Image().RGBAAt(25, 25).R)
	assert.Equal(t, uint8(0), r.Image().RGBAAt(15, 15).R)
}

func TestGlobalAlphaBlends(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 4, Height: 4, DPR: 1})
	require.NoError(t, err)

	r.SetGlobalAlpha(0.5)
	r.SetFillStyle(Solid(red))
	r.FillRect(0, 0, 4, 4)

	px := r.Image().RGBAAt(2, 2)
	assert.InDelta(t, 128, int(px.A), 2)
	assert.InDelta(t, 128, int(px.R), 2)

	r.SetGlobalAlpha(7)
	r.FillRect(0, 0, 4, 4)
	assert.InDelta(t, 192, int(r.Image().RGBAAt(2, 2).A), 3)
}

func TestArcFill(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 40, Height: 40, DPR: 1})
	require.NoError(t, err)

	r.SetFillStyle(Solid(red))
	r.BeginPath()
	r.Arc(20, 20, 10, 0, 2*math.Pi)
	r.Fill()

	assert.Equal(t, uint8(255), r.Image().RGBAAt(20, 20).R)
	assert.Equal(t, uint8(0), r.Image().RGBAAt(2, 2).R)
	assert.Equal(t, uint8(0), r.Image().RGBAAt(20, 35).R)
}

func TestStrokeDrawsOutlineOnly(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 40, Height: 40, DPR: 1})
	require.NoError(t, err)

	r.SetStrokeStyle(Solid(red))
	r.SetLineWidth(2)
	r.BeginPath()
	r.Arc(20, 20, 10, 0, 2*math.Pi)
	r.Stroke()

	assert.Equal(t, uint8(0), r.Image().RGBAAt(20, 20).R)
	assert.Greater(t, r.Image().RGBAAt(30, 20).R, uint8(100))
}

func TestQuadraticCurveFill(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 40, Height: 40, DPR: 1})
	require.NoError(t, err)

	r.SetFillStyle(Solid(red))
	r.BeginPath()
	r.MoveTo(0, 0)
	r.QuadraticCurveTo(40, 0, 40, 40)
	r.LineTo(0, 40)
	r.ClosePath()
	r.Fill()

	assert.Equal(t, uint8(255), r.Image().RGBAAt(10, 30).R)
}

func TestRadialGradient(t *testing.T) {
	g := NewRadialGradient(0, 0, 0, 100)
	g.AddColorStop(1, color.NRGBA{B: 255, A: 255})
	g.AddColorStop(0, red)

	assert.Equal(t, red, g.ColorAt(0))
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, g.ColorAt(150))
	mid := g.ColorAt(50)
	assert.InDelta(t, 128, int(mid.R), 2)
	assert.InDelta(t, 128, int(mid.B), 2)

	r, err := NewRaster(render.Viewport{Width: 200, Height: 200, DPR: 1})
	require.NoError(t, err)
	r.SetFillStyle(Gradient(NewRadialGradientWithStops(100, 100, 0, 100, red, color.NRGBA{B: 255, A: 255})))
	r.FillRect(0, 0, 200, 200)
	assert.Greater(t, r.Image().RGBAAt(100, 100).R, uint8(240))
	assert.Greater(t, r.Image().RGBAAt(0, 0).B, uint8(240))
}

func TestSnapshotIsACopy(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 4, Height: 4, DPR: 1})
	require.NoError(t, err)
	snap := r.Snapshot()
	r.SetFillStyle(Solid(red))
	r.FillRect(0, 0, 4, 4)
	assert.Equal(t, uint8(0), snap.RGBAAt(1, 1).R)
}

func TestRecorder(t *testing.T) {
	rec := NewRecorder(render.Viewport{Width: 100, Height: 50, DPR: 1})
	rec.SetGlobalAlpha(0.5)
	rec.Save()
	rec.SetFillStyle(Solid(red))
	rec.FillRect(0, 0, 1, 1)
	rec.SetGlobalAlpha(0.25)
	rec.Restore()
	rec.BeginPath()
	rec.Arc(1, 2, 3, 0, math.Pi)
	rec.SetLineWidth(4)
	rec.Stroke()

	fr := rec.Filter("fillRect")
	require.Len(t, fr, 1)
	assert.Equal(t, red, fr[0].Paint.Color)
	assert.Equal(t, 0.5, fr[0].Alpha)
	assert.Equal(t, 1, fr[0].Depth)

	st := rec.Filter("stroke")
	require.Len(t, st, 1)
	assert.Equal(t, 0.5, st[0].Alpha)
	assert.Equal(t, []float64{4}, st[0].Args)
	assert.Equal(t, 1, rec.Count("arc"))
}

func TestClearReplacesPixels(t *testing.T) {
	r, err := NewRaster(render.Viewport{Width: 4, Height: 4, DPR: 1})
	require.NoError(t, err)
	r.SetFillStyle(Solid(red))
	r.FillRect(0, 0, 4, 4)

	r.Clear(render.RGBA(0, 0, 255, 0.5))
	px := r.Image().RGBAAt(1, 1)
	assert.Equal(t, uint8(0), px.R)
	assert.Equal(t, uint8(128), px.A)
}
