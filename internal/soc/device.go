// Package soc models the memory-mapped I/O plane of a small RISC-V
// system-on-chip: the bus that routes physical addresses, the flat RAM, the
// platform-level interrupt controller, a 16550-compatible UART and the
// board controller with its framebuffer, keyboard and poweroff registers.
//
// Everything here is driven synchronously by one calling thread, normally a
// cycle-stepped CPU core. The only cross-thread boundary is the channel
// endpoints handed out at bus construction.
package soc

import "errors"

// ErrAccessFault is the single error kind of the bus: the address matched no
// device range, the target device rejected the access width, or the offset
// fell in a gap of an otherwise valid register file. The caller translates
// it into an architectural trap.
var ErrAccessFault = errors.New("bus access fault")

// Device is the uniform capability every peripheral implements. Read and
// Write receive offsets relative to the device's base address. Clk runs once
// per throttled bus tick and may raise or lower interrupt lines through the
// IrqSet.
type Device interface {
	Clk(irqs *IrqSet)
	Read(offset uint32, size int) (uint64, error)
	Write(offset uint32, size int, value uint64) error
}

// IrqEvent is one interrupt line transition observed during a tick.
type IrqEvent struct {
	Source uint32
	Level  bool
}

// IrqSet collects the interrupt line transitions of one bus tick before they
// are applied to the PLIC. Events drain in reverse append order, so if two
// devices were ever to touch the same source within a tick (the fixed source
// assignment rules that out) the last writer would win.
type IrqSet struct {
	events []IrqEvent
}

// Set records a level change for an interrupt source.
func (s *IrqSet) Set(source uint32, level bool) {
	s.events = append(s.events, IrqEvent{Source: source, Level: level})
}

// Pop removes and returns the most recently recorded event.
func (s *IrqSet) Pop() (IrqEvent, bool) {
	if len(s.events) == 0 {
		return IrqEvent{}, false
	}
	ev := s.events[len(s.events)-1]
	s.events = s.events[:len(s.events)-1]
	return ev, true
}

// Len returns the number of undrained events.
func (s *IrqSet) Len() int {
	return len(s.events)
}
