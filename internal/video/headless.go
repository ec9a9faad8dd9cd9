package video

import (
	"sync"

	"github.com/rvsim/rvsim/internal/soc"
)

// Headless satisfies the display and input contracts without opening a
// window. Presented frames are retained for inspection and input is
// whatever the harness pushes in, which makes it the backend of choice
// for tests and for machines running without a framebuffer consumer.
type Headless struct {
	mu      sync.Mutex
	frame   []uint32
	w, h    int
	frames  int
	pending []soc.KeyEvent
	quit    bool
}

func NewHeadless() *Headless {
	return &Headless{}
}

// Present implements soc.Display.
func (hl *Headless) Present(frame []uint32, w, h int) error {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	hl.frame = frame
	hl.w, hl.h = w, h
	hl.frames++
	return nil
}

// PollEvents implements soc.InputSource.
func (hl *Headless) PollEvents() ([]soc.KeyEvent, bool) {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	keys := hl.pending
	quit := hl.quit
	hl.pending = nil
	hl.quit = false
	return keys, quit
}

// PushKey queues one key transition for the next poll.
func (hl *Headless) PushKey(code uint32, down bool) {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	hl.pending = append(hl.pending, soc.KeyEvent{Code: code, Down: down})
}

// RequestQuit makes the next poll report a host close request.
func (hl *Headless) RequestQuit() {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	hl.quit = true
}

// LastFrame returns the most recently presented frame and its geometry,
// or nil if nothing was presented yet.
func (hl *Headless) LastFrame() ([]uint32, int, int) {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return hl.frame, hl.w, hl.h
}

// Frames reports how many frames were presented.
func (hl *Headless) Frames() int {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	return hl.frames
}

var (
	_ soc.Display     = (*Headless)(nil)
	_ soc.InputSource = (*Headless)(nil)
)
