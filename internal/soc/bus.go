package soc

import (
	"fmt"

	"github.com/rvsim/rvsim/internal/channel"
)

// Physical address map. The four regions are disjoint; anything outside
// them is an access fault.
const (
	MemoryBase    = 0x8000_0000
	MemoryMaxSize = 0x4000_0000 // 1 GiB ceiling; actual RAM may be smaller

	PLICBase = 0x0C00_0000
	PLICSize = 0x0400_0000

	UARTBase = 0x1000_0000
	UARTSize = 8

	SysconBase = 0x2000_0000
	SysconSize = 0x1000_0000
)

// DefaultTickInterval is how many Clk calls elapse between device ticks.
// Device-visible time advances at this granularity, so a CPU stepping one
// instruction per Clk does not pay for device work on every cycle.
const DefaultTickInterval = 1000

// Options configures bus construction. The zero value gives 1 GiB of RAM,
// the default tick interval, a single hart and no display or input.
type Options struct {
	MemorySize   uint64 // bytes of RAM, capped to MemoryMaxSize
	TickInterval uint64 // Clk calls per device tick
	Contexts     int    // PLIC contexts, two per hart
	Input        InputSource
	Display      Display
}

// Controller carries the channel endpoints an external harness uses to talk
// to the devices outside the bus's read/write/clk/interrupt surface.
type Controller struct {
	// UARTIn feeds bytes into the UART receive stream.
	UARTIn *channel.Sender[byte]
	// UARTOut delivers bytes the guest transmitted.
	UARTOut *channel.Receiver[byte]
	// Commands delivers out-of-band requests such as poweroff.
	Commands *channel.Receiver[Command]
}

// Bus owns one concrete instance of each device and routes physical
// addresses to them. The device set is closed and known at build time, so
// the bus holds plain fields rather than a polymorphic collection.
type Bus struct {
	memory *Memory
	plic   *PLIC
	uart   *UART
	syscon *Syscon

	tickInterval uint64
	count        uint64
	irqs         IrqSet
	applied      map[uint32]struct{}
}

// NewBus builds the bus with all devices attached and returns it together
// with the controller handle for the external harness.
func NewBus(opts Options) (*Bus, *Controller) {
	if opts.MemorySize == 0 || opts.MemorySize > MemoryMaxSize {
		opts.MemorySize = MemoryMaxSize
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Contexts == 0 {
		opts.Contexts = 2
	}

	uart, uartIn, uartOut := NewUART()
	syscon, cmds := NewSyscon(opts.Input, opts.Display)

	bus := &Bus{
		memory:       NewMemory(opts.MemorySize),
		plic:         NewPLIC(opts.Contexts),
		uart:         uart,
		syscon:       syscon,
		tickInterval: opts.TickInterval,
		applied:      make(map[uint32]struct{}),
	}
	ctrl := &Controller{
		UARTIn:   uartIn,
		UARTOut:  uartOut,
		Commands: cmds,
	}
	return bus, ctrl
}

// Clk advances device time. Devices only tick once every tickInterval
// calls; on a driven tick every device runs, then the collected interrupt
// events are applied to the PLIC, most recently appended first.
func (b *Bus) Clk() {
	b.count++
	if b.count < b.tickInterval {
		return
	}
	b.count = 0

	b.memory.Clk(&b.irqs)
	b.plic.Clk(&b.irqs)
	b.uart.Clk(&b.irqs)
	b.syscon.Clk(&b.irqs)

	// Drain as a stack: the most recent transition recorded for a source
	// is the effective one for this tick.
	clear(b.applied)
	for {
		ev, ok := b.irqs.Pop()
		if !ok {
			break
		}
		if _, done := b.applied[ev.Source]; done {
			continue
		}
		b.applied[ev.Source] = struct{}{}
		b.plic.IRQ(ev.Source, ev.Level)
	}
}

// Interrupt reports the aggregate external interrupt level, but only on the
// tick where it changed; ok is false otherwise. Transitions only happen on
// driven ticks, so polling once per instruction cannot miss one.
func (b *Bus) Interrupt() (level, ok bool) {
	return b.plic.CheckInterrupt()
}

// Read decodes addr against the four device ranges and forwards the access.
func (b *Bus) Read(addr uint32, size int) (uint64, error) {
	switch {
	case addr >= MemoryBase && uint64(addr) < MemoryBase+b.memory.Size():
		return b.memory.Read(addr-MemoryBase, size)
	case addr >= PLICBase && addr < PLICBase+PLICSize:
		return b.plic.Read(addr-PLICBase, size)
	case addr >= UARTBase && addr < UARTBase+UARTSize:
		return b.uart.Read(addr-UARTBase, size)
	case addr >= SysconBase && addr < SysconBase+SysconSize:
		return b.syscon.Read(addr-SysconBase, size)
	}
	return 0, fmt.Errorf("bus read at 0x%08x: no device: %w", addr, ErrAccessFault)
}

// Write decodes addr against the four device ranges and forwards the access.
func (b *Bus) Write(addr uint32, size int, value uint64) error {
	switch {
	case addr >= MemoryBase && uint64(addr) < MemoryBase+b.memory.Size():
		return b.memory.Write(addr-MemoryBase, size, value)
	case addr >= PLICBase && addr < PLICBase+PLICSize:
		return b.plic.Write(addr-PLICBase, size, value)
	case addr >= UARTBase && addr < UARTBase+UARTSize:
		return b.uart.Write(addr-UARTBase, size, value)
	case addr >= SysconBase && addr < SysconBase+SysconSize:
		return b.syscon.Write(addr-SysconBase, size, value)
	}
	return fmt.Errorf("bus write at 0x%08x: no device: %w", addr, ErrAccessFault)
}

// LoadBytes copies data into RAM starting at the physical address addr.
func (b *Bus) LoadBytes(addr uint32, data []byte) error {
	if addr < MemoryBase || uint64(addr)+uint64(len(data)) > MemoryBase+b.memory.Size() {
		return fmt.Errorf("load of %d bytes at 0x%08x: outside RAM: %w", len(data), addr, ErrAccessFault)
	}
	_, err := b.memory.WriteAt(data, int64(addr-MemoryBase))
	return err
}

// MemorySize returns the amount of RAM behind the bus.
func (b *Bus) MemorySize() uint64 {
	return b.memory.Size()
}
