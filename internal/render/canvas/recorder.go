// internal/render/canvas/recorder.go
package canvas

import (
	"github.com/Corphon/DreamScape/internal/render"
)

// Op is one recorded canvas call.
type Op struct {
	Name  string
	Args  []float64
	Paint Paint
	// Alpha is the global alpha in effect when the op ran.
	Alpha float64
	// Depth is the Save nesting level when the op ran.
	Depth int
}

// Recorder is a Canvas that records calls instead of drawing. Fill, Stroke
// and FillRect capture the paint that would have been used.
type Recorder struct {
	viewport render.Viewport
	Ops      []Op

	alpha     float64
	fill      Paint
	stroke    Paint
	lineWidth float64
	stack     []recState
}

type recState struct {
	alpha     float64
	fill      Paint
	stroke    Paint
	lineWidth float64
}

// NewRecorder returns a recorder reporting the given size.
func NewRecorder(v render.Viewport) *Recorder {
	return &Recorder{viewport: v, alpha: 1, lineWidth: 1}
}

func (r *Recorder) record(name string, p Paint, args ...float64) {
	r.Ops = append(r.Ops, Op{Name: name, Args: args, Paint: p, Alpha: r.alpha, Depth: len(r.stack)})
}

// Reset drops recorded ops.
func (r *Recorder) Reset() { r.Ops = r.Ops[:0] }

// Count returns how many ops with name were recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, op := range r.Ops {
		if op.Name == name {
			n++
		}
	}
	return n
}

// Filter returns the ops with name, in order.
func (r *Recorder) Filter(name string) []Op {
	var out []Op
	for _, op := range r.Ops {
		if op.Name == name {
			out = append(out, op)
		}
	}
	return out
}

// Size implements Canvas.
func (r *Recorder) Size() (float64, float64) {
	return float64(r.viewport.Width), float64(r.viewport.Height)
}

// Resize implements Canvas.
func (r *Recorder) Resize(v render.Viewport) {
	r.viewport = v
	r.stack = nil
	r.alpha, r.lineWidth = 1, 1
	r.record("resize", Paint{}, float64(v.Width), float64(v.Height), v.DPR)
}

// Save implements Canvas.
func (r *Recorder) Save() {
	r.record("save", Paint{})
	r.stack = append(r.stack, recState{r.alpha, r.fill, r.stroke, r.lineWidth})
}

// Restore implements Canvas.
func (r *Recorder) Restore() {
	if n := len(r.stack); n > 0 {
		s := r.stack[n-1]
		r.stack = r.stack[:n-1]
		r.alpha, r.fill, r.stroke, r.lineWidth = s.alpha, s.fill, s.stroke, s.lineWidth
	}
	r.record("restore", Paint{})
}

// Translate implements Canvas.
func (r *Recorder) Translate(x, y float64) { r.record("translate", Paint{}, x, y) }

// Rotate implements Canvas.
func (r *Recorder) Rotate(angle float64) { r.record("rotate", Paint{}, angle) }

// SetGlobalAlpha implements Canvas.
func (r *Recorder) SetGlobalAlpha(alpha float64) {
	if alpha >= 0 && alpha <= 1 {
		r.alpha = alpha
	}
}

// SetFillStyle implements Canvas.
func (r *Recorder) SetFillStyle(p Paint) { r.fill = p }

// SetStrokeStyle implements Canvas.
func (r *Recorder) SetStrokeStyle(p Paint) { r.stroke = p }

// SetLineWidth implements Canvas.
func (r *Recorder) SetLineWidth(width float64) {
	if width > 0 {
		r.lineWidth = width
	}
}

// FillRect implements Canvas.
func (r *Recorder) FillRect(x, y, width, height float64) {
	r.record("fillRect", r.fill, x, y, width, height)
}

// BeginPath implements Canvas.
func (r *Recorder) BeginPath() { r.record("beginPath", Paint{}) }

// MoveTo implements Canvas.
func (r *Recorder) MoveTo(x, y float64) { r.record("moveTo", Paint{}, x, y) }

// LineTo implements Canvas.
func (r *Recorder) LineTo(x, y float64) { r.record("lineTo", Paint{}, x, y) }

// QuadraticCurveTo implements Canvas.
func (r *Recorder) QuadraticCurveTo(cpx, cpy, x, y float64) {
	r.record("quadraticCurveTo", Paint{}, cpx, cpy, x, y)
}

// Arc implements Canvas.
func (r *Recorder) Arc(x, y, radius, startAngle, endAngle float64) {
	r.record("arc", Paint{}, x, y, radius, startAngle, endAngle)
}

// ClosePath implements Canvas.
func (r *Recorder) ClosePath() { r.record("closePath", Paint{}) }

// Fill implements Canvas.
func (r *Recorder) Fill() { r.record("fill", r.fill) }

// Stroke implements Canvas. The line width is the op's only argument.
func (r *Recorder) Stroke() { r.record("stroke", r.stroke, r.lineWidth) }
