// internal/render/loop.go
package render

import (
	"context"
	"image"
	"sync"
	"time"
)

// DefaultFrameRate stands in for the display refresh signal.
const DefaultFrameRate = 60

// FrameFunc receives every frame after it is drawn. It runs on the loop
// goroutine; a slow FrameFunc slows the loop rather than queueing frames.
type FrameFunc func(frame *image.RGBA, seq uint64)

// Loop drives a Renderer from a ticker. Pointer and resize events may arrive
// from any goroutine; Stop returns only after the last Tick has finished.
type Loop struct {
	renderer Renderer
	interval time.Duration
	onFrame  FrameFunc

	mu      sync.Mutex
	pointer *Pointer
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	frames  uint64
}

// NewLoop creates a loop at fps frames per second (DefaultFrameRate if <= 0).
func NewLoop(r Renderer, fps int, onFrame FrameFunc) *Loop {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	return &Loop{
		renderer: r,
		interval: time.Second / time.Duration(fps),
		onFrame:  onFrame,
	}
}

// Start starts the renderer and then the ticker. A renderer that fails to
// start leaves the loop stopped.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}
	if err := l.renderer.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	l.running = true
	go l.run(ctx, l.done)
	return nil
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// re-check so a tick that raced with Stop draws nothing
			if ctx.Err() != nil {
				return
			}
			l.step(now.Sub(start))
		}
	}
}

func (l *Loop) step(t time.Duration) {
	l.mu.Lock()
	var p *Pointer
	if l.pointer != nil {
		cp := *l.pointer
		p = &cp
	}
	l.mu.Unlock()

	l.renderer.Tick(t, p)

	l.mu.Lock()
	l.frames++
	seq := l.frames
	l.mu.Unlock()

	if l.onFrame != nil {
		if frame, ok := l.renderer.Snapshot(); ok {
			l.onFrame(frame, seq)
		}
	}
}

// SetPointer records the latest pointer position for the next tick.
func (l *Loop) SetPointer(p Pointer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.pointer = &p
}

// Resize forwards a resize to the renderer while the loop runs.
func (l *Loop) Resize(v Viewport) {
	l.mu.Lock()
	running := l.running
	l.mu.Unlock()
	if running {
		l.renderer.Resize(v)
	}
}

// Stop cancels the ticker, waits for the in-flight tick and stops the
// renderer. It is safe to call more than once.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.pointer = nil
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done
	l.renderer.Stop()
}

// Running reports whether the loop is ticking.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Frames returns the number of ticks run so far.
func (l *Loop) Frames() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}
