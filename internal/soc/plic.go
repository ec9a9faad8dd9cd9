package soc

import "fmt"

// PLIC register file layout, as offsets from the PLIC base address. The
// priority table holds one 4-byte entry per source starting at source 1;
// offset 0 is a gap. Enable bitmaps are packed at 0x80 bytes per context,
// threshold/claim/complete blocks at 0x1000 bytes per context.
const (
	plicPriorityBase = 0x000004
	plicPriorityEnd  = 0x000FFF
	plicPendingBase  = 0x001000
	plicPendingEnd   = 0x00107F
	plicEnableBase   = 0x002000
	plicEnableEnd    = 0x1F1FFF
	plicContextBase  = 0x200000
	plicContextEnd   = 0x3FFFFFF

	plicEnableStride  = 0x80
	plicContextStride = 0x1000

	plicContextThreshold = 0x0
	plicContextClaim     = 0x4
)

// PLICMaxSources is the number of interrupt source ids. Source 0 means
// "no interrupt" and is never claimable.
const PLICMaxSources = 1024

type plicBitmap [PLICMaxSources / 32]uint32

func (b *plicBitmap) get(source uint32) bool {
	return b[source/32]&(1<<(source%32)) != 0
}

func (b *plicBitmap) set(source uint32, level bool) {
	if level {
		b[source/32] |= 1 << (source % 32)
	} else {
		b[source/32] &^= 1 << (source % 32)
	}
}

// PLIC is the platform-level interrupt controller. It aggregates device
// interrupt lines into a pending bitmap and arbitrates them per context
// (context = hart*2 + privilege mode, machine first) using the per-source
// priorities, the per-context enable bitmap and threshold, and the
// claim/complete handshake.
type PLIC struct {
	priorities [PLICMaxSources]uint32
	pending    plicBitmap

	enable    []plicBitmap
	threshold []uint32
	claimed   []plicBitmap

	// update is raised whenever the pending state changed since the last
	// CheckInterrupt, so the caller sees exactly one edge per change.
	update bool
}

// NewPLIC creates a controller tracking the given number of contexts, two
// per hart. Fewer than two is clamped to two (one machine-mode and one
// supervisor-mode context).
func NewPLIC(contexts int) *PLIC {
	if contexts < 2 {
		contexts = 2
	}
	return &PLIC{
		enable:    make([]plicBitmap, contexts),
		threshold: make([]uint32, contexts),
		claimed:   make([]plicBitmap, contexts),
	}
}

// Contexts returns the number of contexts the controller tracks.
func (p *PLIC) Contexts() int {
	return len(p.threshold)
}

// IRQ sets or clears the pending bit for a source. The edge-report flag is
// raised only if the bit actually changed.
func (p *PLIC) IRQ(source uint32, level bool) {
	if source == 0 || source >= PLICMaxSources {
		return
	}
	prev := p.pending.get(source)
	p.pending.set(source, level)
	if prev != level {
		p.update = true
	}
}

// CheckInterrupt reports the aggregate external interrupt level for context
// 0, but only on a call where the pending state changed since the previous
// one; changed is false otherwise. Generalizing the aggregate across all
// contexts is a known limitation left to a multi-hart caller.
func (p *PLIC) CheckInterrupt() (level, changed bool) {
	if !p.update {
		return false, false
	}
	p.update = false
	return p.highest(0) != 0, true
}

// Claim hands the highest-priority eligible source to a context: the pending
// bit is cleared, the source is marked claimed for that context until
// Complete, and its id is returned. Zero means nothing was eligible.
func (p *PLIC) Claim(context int) uint32 {
	if context < 0 || context >= len(p.threshold) {
		return 0
	}
	source := p.highest(context)
	if source == 0 {
		return 0
	}
	p.pending.set(source, false)
	p.claimed[context].set(source, true)
	p.update = true
	return source
}

// Complete acknowledges a previously claimed source for a context, making it
// eligible again the next time it becomes pending.
func (p *PLIC) Complete(context int, source uint32) {
	if context < 0 || context >= len(p.threshold) {
		return
	}
	if source == 0 || source >= PLICMaxSources {
		return
	}
	p.claimed[context].set(source, false)
}

// highest finds the best eligible source for a context: enabled, pending,
// not claimed-and-unacknowledged, and with priority strictly above both the
// context threshold and every earlier candidate. Ties go to the lowest id.
func (p *PLIC) highest(context int) uint32 {
	var best uint32
	var bestPriority uint32
	for source := uint32(1); source < PLICMaxSources; source++ {
		if !p.enable[context].get(source) {
			continue
		}
		if !p.pending.get(source) {
			continue
		}
		if p.claimed[context].get(source) {
			continue
		}
		priority := p.priorities[source]
		if priority <= p.threshold[context] {
			continue
		}
		if priority > bestPriority {
			best = source
			bestPriority = priority
		}
	}
	return best
}

// Clk implements Device. The PLIC itself has no time-dependent behavior.
func (p *PLIC) Clk(*IrqSet) {}

// Read implements Device. All registers are 4 bytes wide; any other width,
// and any offset in a gap of the register file, is an access fault.
func (p *PLIC) Read(offset uint32, size int) (uint64, error) {
	if size != 4 {
		return 0, fmt.Errorf("plic read at 0x%x: size %d: %w", offset, size, ErrAccessFault)
	}

	switch {
	case offset >= plicPriorityBase && offset <= plicPriorityEnd:
		return uint64(p.priorities[offset/4]), nil

	case offset >= plicPendingBase && offset <= plicPendingEnd:
		return uint64(p.pending[(offset-plicPendingBase)/4]), nil

	case offset >= plicEnableBase && offset <= plicEnableEnd:
		rel := offset - plicEnableBase
		context := int(rel / plicEnableStride)
		if context >= len(p.enable) {
			return 0, fmt.Errorf("plic enable read for context %d of %d: %w", context, len(p.enable), ErrAccessFault)
		}
		return uint64(p.enable[context][(rel%plicEnableStride)/4]), nil

	case offset >= plicContextBase && offset <= plicContextEnd:
		rel := offset - plicContextBase
		context := int(rel / plicContextStride)
		if context >= len(p.threshold) {
			return 0, fmt.Errorf("plic context read for context %d of %d: %w", context, len(p.threshold), ErrAccessFault)
		}
		switch rel % plicContextStride {
		case plicContextThreshold:
			return uint64(p.threshold[context]), nil
		case plicContextClaim:
			return uint64(p.Claim(context)), nil
		}
	}

	return 0, fmt.Errorf("plic read at 0x%x: %w", offset, ErrAccessFault)
}

// Write implements Device. The pending bitmap is read-only.
func (p *PLIC) Write(offset uint32, size int, value uint64) error {
	if size != 4 {
		return fmt.Errorf("plic write at 0x%x: size %d: %w", offset, size, ErrAccessFault)
	}

	switch {
	case offset >= plicPriorityBase && offset <= plicPriorityEnd:
		p.priorities[offset/4] = uint32(value)
		return nil

	case offset >= plicEnableBase && offset <= plicEnableEnd:
		rel := offset - plicEnableBase
		context := int(rel / plicEnableStride)
		if context >= len(p.enable) {
			return fmt.Errorf("plic enable write for context %d of %d: %w", context, len(p.enable), ErrAccessFault)
		}
		p.enable[context][(rel%plicEnableStride)/4] = uint32(value)
		return nil

	case offset >= plicContextBase && offset <= plicContextEnd:
		rel := offset - plicContextBase
		context := int(rel / plicContextStride)
		if context >= len(p.threshold) {
			return fmt.Errorf("plic context write for context %d of %d: %w", context, len(p.threshold), ErrAccessFault)
		}
		switch rel % plicContextStride {
		case plicContextThreshold:
			p.threshold[context] = uint32(value)
			return nil
		case plicContextClaim:
			p.Complete(context, uint32(value))
			return nil
		}
	}

	return fmt.Errorf("plic write at 0x%x: %w", offset, ErrAccessFault)
}

var _ Device = (*PLIC)(nil)
