package soc

import (
	"fmt"
	"time"

	"github.com/rvsim/rvsim/internal/channel"
)

// Syscon register offsets relative to the device base. The wall clock pair
// is read with 8-byte accesses, the poweroff register is written with a
// 1-byte access, everything else is 4 bytes wide.
const (
	sysconTimeLow   = 0x000
	sysconTimeHigh  = 0x008
	sysconFBCtlLow  = 0x100
	sysconFBCtlHigh = 0x104
	sysconKeyboard  = 0x200
	sysconPoweroff  = 0x300
	sysconFBBase    = 0x0100_0000
)

// Default framebuffer geometry, half of an 800x600 mode.
const (
	FBWidth  = 400
	FBHeight = 300
)

// sysconKeyDown marks a scancode in the keyboard FIFO as a press rather
// than a release.
const sysconKeyDown = 0x8000

// Command is an out-of-band request the system controller emits toward the
// harness that owns the machine.
type Command int

const (
	// CmdPoweroff asks the harness to stop the machine.
	CmdPoweroff Command = iota
)

// KeyEvent is one host keyboard transition, already translated to the SoC
// scancode numbering (1-based; 0 is reserved for "no key").
type KeyEvent struct {
	Code uint32
	Down bool
}

// InputSource supplies host input to the system controller once per tick.
// Implementations live outside this package; the register protocol never
// touches the host directly.
type InputSource interface {
	// PollEvents returns the key transitions since the last call and
	// whether the host asked to close the machine.
	PollEvents() (keys []KeyEvent, quit bool)
}

// Display receives a completed frame when the guest writes the framebuffer
// present register.
type Display interface {
	// Present shows one frame of w*h pixels packed as 00RRGGBB words.
	Present(frame []uint32, w, h int) error
}

// Syscon is the board-level auxiliary device: the millisecond wall clock,
// the framebuffer with its geometry/present control pair, the keyboard
// scancode FIFO and the write-only poweroff register.
type Syscon struct {
	cmds  *channel.Sender[Command]
	input InputSource
	disp  Display

	width  int
	height int
	fbctl  [2]uint32
	vmem   []uint32
	keys   []uint32

	now func() time.Time
}

// NewSyscon builds the device plus the Receiver on which poweroff commands
// are delivered. Either collaborator may be nil: input means no keyboard or
// host close events, display means presented frames are dropped.
func NewSyscon(input InputSource, disp Display) (*Syscon, *channel.Receiver[Command]) {
	send, recv := channel.New[Command]()
	s := &Syscon{
		cmds:   send,
		input:  input,
		disp:   disp,
		width:  FBWidth,
		height: FBHeight,
		vmem:   make([]uint32, FBWidth*FBHeight),
		now:    time.Now,
	}
	s.fbctl[0] = uint32(s.width)<<16 | uint32(s.height)
	return s, recv
}

// Clk implements Device. It drains host input into the keyboard FIFO and
// emits a poweroff command when the host asked to close.
func (s *Syscon) Clk(*IrqSet) {
	if s.input == nil {
		return
	}
	keys, quit := s.input.PollEvents()
	for _, k := range keys {
		code := k.Code
		if k.Down {
			code |= sysconKeyDown
		}
		s.keys = append(s.keys, code)
	}
	if quit {
		s.cmds.Send(CmdPoweroff)
	}
}

// Read implements Device.
func (s *Syscon) Read(offset uint32, size int) (uint64, error) {
	switch size {
	case 8:
		switch offset {
		case sysconTimeLow:
			return uint64(s.now().UnixMilli()), nil
		case sysconTimeHigh:
			// Bits 64..127 of the millisecond count.
			return 0, nil
		}
	case 4:
		switch {
		case offset == sysconFBCtlLow:
			return uint64(s.fbctl[0]), nil
		case offset == sysconFBCtlHigh:
			return uint64(s.fbctl[1]), nil
		case offset == sysconKeyboard:
			if len(s.keys) == 0 {
				return 0, nil
			}
			code := s.keys[0]
			s.keys = s.keys[1:]
			return uint64(code), nil
		case s.inFramebuffer(offset):
			return uint64(s.vmem[(offset-sysconFBBase)/4]), nil
		}
	}
	return 0, fmt.Errorf("syscon read at 0x%x: size %d: %w", offset, size, ErrAccessFault)
}

// Write implements Device. Writing the high framebuffer control word
// presents the current pixel buffer to the display.
func (s *Syscon) Write(offset uint32, size int, value uint64) error {
	switch size {
	case 1:
		if offset == sysconPoweroff {
			s.cmds.Send(CmdPoweroff)
			return nil
		}
	case 4:
		switch {
		case offset == sysconFBCtlHigh:
			s.fbctl[1] = uint32(value)
			s.present()
			return nil
		case s.inFramebuffer(offset):
			s.vmem[(offset-sysconFBBase)/4] = uint32(value)
			return nil
		}
	}
	return fmt.Errorf("syscon write at 0x%x: size %d: %w", offset, size, ErrAccessFault)
}

func (s *Syscon) inFramebuffer(offset uint32) bool {
	return offset >= sysconFBBase && offset < sysconFBBase+uint32(len(s.vmem)*4)
}

func (s *Syscon) present() {
	if s.disp == nil {
		return
	}
	// Hand the display its own copy; it renders on another goroutine.
	frame := make([]uint32, len(s.vmem))
	copy(frame, s.vmem)
	_ = s.disp.Present(frame, s.width, s.height)
}

var _ Device = (*Syscon)(nil)
