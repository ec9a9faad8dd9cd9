package soc

import (
	"bytes"
	"errors"
	"testing"
)

func newTestBus(t *testing.T, opts Options) (*Bus, *Controller) {
	t.Helper()
	if opts.MemorySize == 0 {
		opts.MemorySize = 1 << 20
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = 1
	}
	return NewBus(opts)
}

func TestBusMemoryRoundTrip(t *testing.T) {
	b, _ := newTestBus(t, Options{})

	tests := []struct {
		addr  uint32
		size  int
		value uint64
	}{
		{MemoryBase, 1, 0xA5},
		{MemoryBase + 0x10, 2, 0xBEEF},
		{MemoryBase + 0x20, 4, 0xDEADBEEF},
		{MemoryBase + 0x28, 8, 0x0123456789ABCDEF},
	}
	for _, tt := range tests {
		if err := b.Write(tt.addr, tt.size, tt.value); err != nil {
			t.Fatalf("write %d bytes at 0x%08x: %v", tt.size, tt.addr, err)
		}
		got, err := b.Read(tt.addr, tt.size)
		if err != nil {
			t.Fatalf("read %d bytes at 0x%08x: %v", tt.size, tt.addr, err)
		}
		if got != tt.value {
			t.Errorf("0x%08x: expected 0x%x, got 0x%x", tt.addr, tt.value, got)
		}
	}
}

func TestBusDecodeFaults(t *testing.T) {
	b, _ := newTestBus(t, Options{MemorySize: 1 << 20})

	addrs := []uint32{
		0x0000_0000,                // before any device
		PLICBase - 4,               // just under the PLIC
		PLICBase + PLICSize,        // just past the PLIC
		UARTBase + UARTSize,        // just past the UART
		SysconBase + SysconSize,    // just past the syscon
		MemoryBase + (1 << 20),     // past the configured RAM, still under the ceiling
		MemoryBase + MemoryMaxSize, // past the RAM ceiling (wraps only notionally)
	}
	for _, addr := range addrs {
		if _, err := b.Read(addr, 4); !errors.Is(err, ErrAccessFault) {
			t.Errorf("read 0x%08x: expected ErrAccessFault, got %v", addr, err)
		}
		if err := b.Write(addr, 4, 0); !errors.Is(err, ErrAccessFault) {
			t.Errorf("write 0x%08x: expected ErrAccessFault, got %v", addr, err)
		}
	}
}

func TestBusForwardsWidthFaults(t *testing.T) {
	b, _ := newTestBus(t, Options{})

	// The UART only speaks bytes and the PLIC only words.
	if _, err := b.Read(UARTBase, 4); !errors.Is(err, ErrAccessFault) {
		t.Errorf("word-wide uart read: expected ErrAccessFault, got %v", err)
	}
	if err := b.Write(PLICBase+4, 1, 1); !errors.Is(err, ErrAccessFault) {
		t.Errorf("byte-wide plic write: expected ErrAccessFault, got %v", err)
	}
}

func TestBusTickInterval(t *testing.T) {
	b, ctrl := newTestBus(t, Options{TickInterval: 3})

	ctrl.UARTIn.Send('x')

	// Data ready is only latched on a driven tick.
	for i := 0; i < 2; i++ {
		b.Clk()
		lsr, err := b.Read(UARTBase+uartRegLSR, 1)
		if err != nil {
			t.Fatalf("lsr read: %v", err)
		}
		if lsr&uartLSRDataReady != 0 {
			t.Fatalf("clk %d: data ready latched before the tick interval elapsed", i+1)
		}
	}

	b.Clk()
	lsr, err := b.Read(UARTBase+uartRegLSR, 1)
	if err != nil {
		t.Fatalf("lsr read: %v", err)
	}
	if lsr&uartLSRDataReady == 0 {
		t.Fatal("data ready not latched on the driven tick")
	}
}

// TestBusUARTInterruptThroughPLIC drives the full path: a byte arrives at
// the UART, the UART raises its line on the next tick, the PLIC makes it
// pending and the hart sees exactly one rising edge, claims source 1 and
// completes it.
func TestBusUARTInterruptThroughPLIC(t *testing.T) {
	b, ctrl := newTestBus(t, Options{})

	// Arm the PLIC for the UART source and unmask receive interrupts.
	if err := b.Write(PLICBase+4*UARTInterruptSource, 4, 5); err != nil {
		t.Fatalf("priority write: %v", err)
	}
	if err := b.Write(PLICBase+plicEnableBase, 4, 1<<UARTInterruptSource); err != nil {
		t.Fatalf("enable write: %v", err)
	}
	if err := b.Write(UARTBase+uartRegIER, 1, uartIERRecvData); err != nil {
		t.Fatalf("ier write: %v", err)
	}

	// Quiet ticks: the line settles low, then stops reporting edges.
	b.Clk()
	b.Interrupt()
	b.Clk()
	if _, ok := b.Interrupt(); ok {
		t.Fatal("interrupt edge with no pending source")
	}

	ctrl.UARTIn.Send('x')
	b.Clk()

	level, ok := b.Interrupt()
	if !ok || !level {
		t.Fatalf("expected a rising edge, got level=%v ok=%v", level, ok)
	}
	if _, ok := b.Interrupt(); ok {
		t.Fatal("edge reported twice")
	}

	claim, err := b.Read(PLICBase+plicContextBase+4, 4)
	if err != nil {
		t.Fatalf("claim read: %v", err)
	}
	if claim != UARTInterruptSource {
		t.Fatalf("expected to claim source %d, got %d", UARTInterruptSource, claim)
	}

	// Claiming drops the line.
	level, ok = b.Interrupt()
	if !ok || level {
		t.Fatalf("expected a falling edge after claim, got level=%v ok=%v", level, ok)
	}

	// Read the byte and clear the receive FIFO so data-ready drops, then
	// complete the claim. Nothing is left to assert, so the line stays low.
	if _, err := b.Read(UARTBase+uartRegData, 1); err != nil {
		t.Fatalf("data read: %v", err)
	}
	lcr, err := b.Read(UARTBase+uartRegLCR, 1)
	if err != nil {
		t.Fatalf("lcr read: %v", err)
	}
	if err := b.Write(UARTBase+uartRegLCR, 1, lcr|uartFCRClearRecv); err != nil {
		t.Fatalf("lcr write: %v", err)
	}
	b.Clk()
	if err := b.Write(PLICBase+plicContextBase+4, 4, UARTInterruptSource); err != nil {
		t.Fatalf("complete write: %v", err)
	}
	b.Clk()
	if level, ok := b.Interrupt(); ok && level {
		t.Fatal("line still high after drain and complete")
	}
}

func TestBusGuestTransmitReachesController(t *testing.T) {
	b, ctrl := newTestBus(t, Options{})

	for _, c := range []byte("hi\n") {
		if err := b.Write(UARTBase+uartRegData, 1, uint64(c)); err != nil {
			t.Fatalf("data write: %v", err)
		}
	}
	var got []byte
	for ctrl.UARTOut.Available() {
		got = append(got, ctrl.UARTOut.Recv())
	}
	if !bytes.Equal(got, []byte("hi\n")) {
		t.Errorf("expected %q, got %q", "hi\n", got)
	}
}

func TestBusLoadBytes(t *testing.T) {
	b, _ := newTestBus(t, Options{MemorySize: 1 << 20})

	img := []byte{0x13, 0x05, 0x00, 0x00} // li a0, 0
	if err := b.LoadBytes(MemoryBase+0x1000, img); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := b.Read(MemoryBase+0x1000, 4)
	if err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got != 0x0000_0513 {
		t.Errorf("expected 0x513, got 0x%x", got)
	}

	if err := b.LoadBytes(MemoryBase-4, img); !errors.Is(err, ErrAccessFault) {
		t.Errorf("load below RAM: expected ErrAccessFault, got %v", err)
	}
	if err := b.LoadBytes(MemoryBase+(1<<20)-2, img); !errors.Is(err, ErrAccessFault) {
		t.Errorf("load past RAM end: expected ErrAccessFault, got %v", err)
	}
}
