// Package video hosts the display and input collaborators the system
// controller talks to: an ebiten-backed window and a headless stand-in.
package video

import (
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/rvsim/rvsim/internal/soc"
)

// Window shows presented frames in an ebiten window and feeds key
// transitions back to the machine. The render loop runs on its own
// goroutine; Present and PollEvents are called from the machine's
// thread, so everything they touch is behind the mutex.
type Window struct {
	width  int
	height int

	mu      sync.Mutex
	frame   []byte // RGBA, written by Present, read by Draw
	pending []soc.KeyEvent
	quit    bool
	closing bool // host asked to close; tear down once quit is delivered
	stopped bool
	pressed []ebiten.Key
	img     *ebiten.Image
}

// NewWindow builds a window for w*h frames at the given integer scale.
func NewWindow(title string, w, h, scale int) *Window {
	if scale < 1 {
		scale = 1
	}
	ebiten.SetWindowSize(w*scale, h*scale)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowClosingHandled(true)
	ebiten.SetScreenClearedEveryFrame(false)
	return &Window{
		width:  w,
		height: h,
		frame:  make([]byte, w*h*4),
	}
}

// Start runs the render loop until Stop is called or the host closes the
// window. It never returns before that, so callers start it on a dedicated
// goroutine unless they want it to own theirs.
func (w *Window) Start() {
	if err := ebiten.RunGame(w); err != nil {
		slog.Error("render loop stopped", "error", err)
	}
}

// Stop makes the render loop exit on its next frame. Safe to call from any
// goroutine.
func (w *Window) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}

// Present implements soc.Display. Pixels arrive packed as 00RRGGBB words.
func (w *Window) Present(frame []uint32, fw, fh int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := min(len(frame), w.width*w.height)
	for i := 0; i < n; i++ {
		px := frame[i]
		w.frame[i*4+0] = byte(px >> 16)
		w.frame[i*4+1] = byte(px >> 8)
		w.frame[i*4+2] = byte(px)
		w.frame[i*4+3] = 0xFF
	}
	return nil
}

// PollEvents implements soc.InputSource. Once a host close request has been
// delivered the render loop is released; the machine turns the request into
// a poweroff command on its own.
func (w *Window) PollEvents() ([]soc.KeyEvent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	keys := w.pending
	quit := w.quit
	w.pending = nil
	w.quit = false
	if quit && w.closing {
		w.stopped = true
	}
	return keys, quit
}

// Update runs on the ebiten goroutine once per display frame.
func (w *Window) Update() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return ebiten.Termination
	}

	w.pressed = inpututil.AppendJustPressedKeys(w.pressed[:0])
	for _, k := range w.pressed {
		if code, ok := keymap[k]; ok {
			w.pending = append(w.pending, soc.KeyEvent{Code: code, Down: true})
		}
	}
	w.pressed = inpututil.AppendJustReleasedKeys(w.pressed[:0])
	for _, k := range w.pressed {
		if code, ok := keymap[k]; ok {
			w.pending = append(w.pending, soc.KeyEvent{Code: code, Down: false})
		}
	}

	if ebiten.IsWindowBeingClosed() {
		w.quit = true
		w.closing = true
	}
	return nil
}

// Draw runs on the ebiten goroutine.
func (w *Window) Draw(screen *ebiten.Image) {
	if w.img == nil {
		w.img = ebiten.NewImage(w.width, w.height)
	}
	w.mu.Lock()
	w.img.WritePixels(w.frame)
	w.mu.Unlock()
	screen.DrawImage(w.img, nil)
}

// Layout reports the logical screen size; window scaling happens above it.
func (w *Window) Layout(_, _ int) (int, int) {
	return w.width, w.height
}

var (
	_ soc.Display     = (*Window)(nil)
	_ soc.InputSource = (*Window)(nil)
)
