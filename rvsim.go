// Package rvsim models the memory-mapped I/O plane of a small RISC-V
// system: RAM, a platform-level interrupt controller, a 16550A-style
// serial port and a board controller with a framebuffer, keyboard FIFO
// and poweroff register, all behind one bus. A CPU core drives the bus
// with read/write/clk/interrupt; external goroutines talk to the devices
// only through the channel endpoints on the Controller.
package rvsim

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rvsim/rvsim/internal/config"
	"github.com/rvsim/rvsim/internal/soc"
	"github.com/rvsim/rvsim/internal/video"
)

// -----------------------------------------------------------------------------
// Type aliases re-exported from internal/soc
// -----------------------------------------------------------------------------

// Bus routes physical addresses to the devices behind it.
type Bus = soc.Bus

// Controller carries the channel endpoints for external I/O.
type Controller = soc.Controller

// Device is the contract every peripheral on the bus implements.
type Device = soc.Device

// IrqSet collects interrupt transitions during one device tick.
type IrqSet = soc.IrqSet

// Command is an out-of-band request from the machine to its harness.
type Command = soc.Command

// Config describes a machine; see the config package for the file format.
type Config = config.Config

const (
	// CmdPoweroff asks the harness to stop the machine.
	CmdPoweroff = soc.CmdPoweroff

	// MemoryBase is the physical address RAM starts at.
	MemoryBase = soc.MemoryBase

	// UARTInterruptSource is the PLIC source id of the serial port.
	UARTInterruptSource = soc.UARTInterruptSource
)

// ErrAccessFault reports a bus access no device accepted.
var ErrAccessFault = soc.ErrAccessFault

// DefaultConfig returns the machine description used when no file is given.
func DefaultConfig() Config {
	return config.Default()
}

// LoadConfig reads a machine description from a YAML file.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// Machine is one assembled system: the bus the CPU core drives and the
// controller handle the harness drives.
type Machine struct {
	Bus        *Bus
	Controller *Controller

	window *video.Window
}

// NewMachine assembles a machine from its description. Unset fields take
// their defaults; set fields are kept. With a headless display the machine
// is complete on return; otherwise RunDisplay must be called from the main
// goroutine to open the window.
func NewMachine(cfg Config) (*Machine, error) {
	cfg.Normalize()
	if cfg.MemoryMB > 1024 {
		return nil, fmt.Errorf("memoryMB %d exceeds the 1024 MB address window", cfg.MemoryMB)
	}

	opts := soc.Options{
		MemorySize:   cfg.MemoryMB << 20,
		TickInterval: cfg.TickInterval,
		Contexts:     cfg.Harts * 2,
	}

	m := &Machine{}
	if cfg.Display.Headless {
		hl := video.NewHeadless()
		opts.Input = hl
		opts.Display = hl
	} else {
		m.window = video.NewWindow(cfg.Display.Title, soc.FBWidth, soc.FBHeight, cfg.Display.Scale)
		opts.Input = m.window
		opts.Display = m.window
	}

	m.Bus, m.Controller = soc.NewBus(opts)
	slog.Debug("machine assembled",
		"memoryMB", cfg.MemoryMB,
		"tickInterval", cfg.TickInterval,
		"harts", cfg.Harts,
		"headless", cfg.Display.Headless)
	return m, nil
}

// RunDisplay runs the window's render loop until StopDisplay is called or
// the window closes. Most GUI backends require this to happen on the main
// goroutine. It returns immediately for headless machines.
func (m *Machine) RunDisplay() {
	if m.window == nil {
		return
	}
	m.window.Start()
}

// StopDisplay makes a running render loop exit. It is a no-op for headless
// machines and may be called from any goroutine.
func (m *Machine) StopDisplay() {
	if m.window == nil {
		return
	}
	m.window.Stop()
}

// LoadBytes copies a flat binary into RAM at the given physical address.
func (m *Machine) LoadBytes(addr uint32, data []byte) error {
	return m.Bus.LoadBytes(addr, data)
}

// LoadImage reads a flat binary image from r into RAM starting at the
// reset address.
func (m *Machine) LoadImage(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read image: %w", err)
	}
	if err := m.Bus.LoadBytes(MemoryBase, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// LoadImageFile reads a flat binary image file into RAM starting at the
// reset address.
func (m *Machine) LoadImageFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return m.LoadImage(f)
}
