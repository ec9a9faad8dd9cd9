package soc

import (
	"errors"
	"testing"
)

// armSource gives source a priority and enables it for context 0 through
// the register file, the same path a guest would use.
func armSource(t *testing.T, p *PLIC, source, priority uint32) {
	t.Helper()
	if err := p.Write(source*4, 4, uint64(priority)); err != nil {
		t.Fatalf("priority write for source %d: %v", source, err)
	}
	word := source / 32
	got, err := p.Read(plicEnableBase+word*4, 4)
	if err != nil {
		t.Fatalf("enable read: %v", err)
	}
	enable := uint32(got) | 1<<(source%32)
	if err := p.Write(plicEnableBase+word*4, 4, uint64(enable)); err != nil {
		t.Fatalf("enable write for source %d: %v", source, err)
	}
}

func TestClaimCompleteCycle(t *testing.T) {
	p := NewPLIC(2)
	armSource(t, p, 5, 3)
	if err := p.Write(plicContextBase, 4, 1); err != nil { // threshold = 1
		t.Fatalf("threshold write: %v", err)
	}

	p.IRQ(5, true)

	if got := p.Claim(0); got != 5 {
		t.Fatalf("first claim: expected 5, got %d", got)
	}
	if got := p.Claim(0); got != 0 {
		t.Errorf("claim while claimed: expected 0, got %d", got)
	}

	// Still not eligible while unacknowledged, even if re-asserted.
	p.IRQ(5, true)
	if got := p.Claim(0); got != 0 {
		t.Errorf("claim before complete: expected 0, got %d", got)
	}

	p.Complete(0, 5)
	if got := p.Claim(0); got != 5 {
		t.Errorf("claim after complete: expected 5, got %d", got)
	}
}

func TestClaimViaRegisterFile(t *testing.T) {
	p := NewPLIC(2)
	armSource(t, p, 7, 2)
	p.IRQ(7, true)

	got, err := p.Read(plicContextBase+plicContextClaim, 4)
	if err != nil {
		t.Fatalf("claim read: %v", err)
	}
	if got != 7 {
		t.Fatalf("claim read: expected 7, got %d", got)
	}

	// Complete through the same register, then the source is claimable again.
	p.IRQ(7, true)
	if err := p.Write(plicContextBase+plicContextClaim, 4, 7); err != nil {
		t.Fatalf("complete write: %v", err)
	}
	if got := p.Claim(0); got != 7 {
		t.Errorf("claim after register complete: expected 7, got %d", got)
	}
}

func TestThresholdAndEnableGating(t *testing.T) {
	p := NewPLIC(2)

	// Priority at the threshold is not claimable.
	armSource(t, p, 3, 1)
	if err := p.Write(plicContextBase, 4, 1); err != nil {
		t.Fatalf("threshold write: %v", err)
	}
	p.IRQ(3, true)
	if got := p.Claim(0); got != 0 {
		t.Errorf("claim at threshold: expected 0, got %d", got)
	}

	// A disabled source never becomes claimable.
	if err := p.Write(9*4, 4, 7); err != nil {
		t.Fatalf("priority write: %v", err)
	}
	p.IRQ(9, true)
	if got := p.Claim(0); got != 0 {
		t.Errorf("claim of disabled source: expected 0, got %d", got)
	}

	// Priority zero means never interruptable.
	p.IRQ(3, false)
	armSource(t, p, 4, 0)
	p.IRQ(4, true)
	if err := p.Write(plicContextBase, 4, 0); err != nil {
		t.Fatalf("threshold write: %v", err)
	}
	if got := p.Claim(0); got != 0 {
		t.Errorf("claim of priority-0 source: expected 0, got %d", got)
	}
}

func TestArbitrationOrder(t *testing.T) {
	p := NewPLIC(2)
	armSource(t, p, 3, 5)
	armSource(t, p, 10, 5)
	armSource(t, p, 12, 6)
	p.IRQ(3, true)
	p.IRQ(10, true)
	p.IRQ(12, true)

	if got := p.Claim(0); got != 12 {
		t.Fatalf("highest priority should win: expected 12, got %d", got)
	}
	// At equal priority the lowest source id wins.
	if got := p.Claim(0); got != 3 {
		t.Fatalf("tie break: expected 3, got %d", got)
	}
	if got := p.Claim(0); got != 10 {
		t.Fatalf("remaining source: expected 10, got %d", got)
	}
}

func TestContextsAreIndependent(t *testing.T) {
	p := NewPLIC(4)
	armSource(t, p, 6, 4) // context 0 only

	// Enable the same source for context 2 through its own bitmap.
	if err := p.Write(plicEnableBase+2*plicEnableStride, 4, 1<<6); err != nil {
		t.Fatalf("enable write: %v", err)
	}

	p.IRQ(6, true)
	if got := p.Claim(1); got != 0 {
		t.Errorf("context 1 has source 6 disabled: expected 0, got %d", got)
	}
	if got := p.Claim(2); got != 6 {
		t.Errorf("context 2 claim: expected 6, got %d", got)
	}
	// The pending bit is shared: once claimed by context 2 it is gone for
	// context 0 as well.
	if got := p.Claim(0); got != 0 {
		t.Errorf("context 0 claim after context 2 took it: expected 0, got %d", got)
	}
}

func TestCheckInterruptEdges(t *testing.T) {
	p := NewPLIC(2)
	armSource(t, p, 5, 3)

	if _, changed := p.CheckInterrupt(); changed {
		t.Fatal("no edge expected before any irq")
	}

	p.IRQ(5, true)
	level, changed := p.CheckInterrupt()
	if !changed || !level {
		t.Fatalf("assert edge: expected (true, true), got (%v, %v)", level, changed)
	}
	if _, changed := p.CheckInterrupt(); changed {
		t.Error("edge must be reported exactly once")
	}

	// Re-asserting an already pending source is not a change.
	p.IRQ(5, true)
	if _, changed := p.CheckInterrupt(); changed {
		t.Error("no edge expected when the pending bit did not change")
	}

	p.IRQ(5, false)
	level, changed = p.CheckInterrupt()
	if !changed || level {
		t.Errorf("deassert edge: expected (false, true), got (%v, %v)", level, changed)
	}

	// A claim changes the pending state, so it produces an edge too.
	p.IRQ(5, true)
	p.CheckInterrupt()
	p.Claim(0)
	level, changed = p.CheckInterrupt()
	if !changed || level {
		t.Errorf("edge after claim: expected (false, true), got (%v, %v)", level, changed)
	}
}

func TestRegisterFileFaults(t *testing.T) {
	p := NewPLIC(2)

	tests := []struct {
		name   string
		read   bool
		offset uint32
		size   int
	}{
		{"read width 1", true, plicPriorityBase, 1},
		{"read width 8", true, plicPendingBase, 8},
		{"write width 2", false, plicPriorityBase, 2},
		{"priority gap at 0", true, 0x0, 4},
		{"gap between pending and enable", true, 0x1080, 4},
		{"context sub-offset gap", true, plicContextBase + 8, 4},
		{"context beyond configured count", true, plicContextBase + 2*plicContextStride, 4},
		{"enable beyond configured count", false, plicEnableBase + 2*plicEnableStride, 4},
		{"pending is read-only", false, plicPendingBase, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.read {
				_, err = p.Read(tt.offset, tt.size)
			} else {
				err = p.Write(tt.offset, tt.size, 0)
			}
			if !errors.Is(err, ErrAccessFault) {
				t.Errorf("expected ErrAccessFault, got %v", err)
			}
		})
	}
}

func TestPendingBitmapReadback(t *testing.T) {
	p := NewPLIC(2)
	p.IRQ(1, true)
	p.IRQ(33, true)

	got, err := p.Read(plicPendingBase, 4)
	if err != nil {
		t.Fatalf("pending word 0: %v", err)
	}
	if got != 1<<1 {
		t.Errorf("pending word 0: expected 0x%x, got 0x%x", 1<<1, got)
	}

	got, err = p.Read(plicPendingBase+4, 4)
	if err != nil {
		t.Fatalf("pending word 1: %v", err)
	}
	if got != 1<<1 {
		t.Errorf("pending word 1: expected 0x%x, got 0x%x", 1<<1, got)
	}
}
