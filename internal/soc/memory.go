package soc

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Memory is the flat RAM device. Multi-byte accesses are little-endian and
// carry no alignment requirement; all four widths are legal. RAM never
// raises interrupts.
type Memory struct {
	data []byte
}

// NewMemory allocates a RAM device of the given size in bytes.
func NewMemory(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the amount of RAM in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Clk implements Device. RAM has no time-dependent behavior.
func (m *Memory) Clk(*IrqSet) {}

// Read implements Device.
func (m *Memory) Read(offset uint32, size int) (uint64, error) {
	if uint64(offset)+uint64(size) > uint64(len(m.data)) {
		return 0, fmt.Errorf("memory read out of bounds: offset=0x%x size=%d: %w", offset, size, ErrAccessFault)
	}
	switch size {
	case 1:
		return uint64(m.data[offset]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(m.data[offset:])), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(m.data[offset:])), nil
	case 8:
		return binary.LittleEndian.Uint64(m.data[offset:]), nil
	}
	return 0, fmt.Errorf("memory read size %d: %w", size, ErrAccessFault)
}

// Write implements Device.
func (m *Memory) Write(offset uint32, size int, value uint64) error {
	if uint64(offset)+uint64(size) > uint64(len(m.data)) {
		return fmt.Errorf("memory write out of bounds: offset=0x%x size=%d: %w", offset, size, ErrAccessFault)
	}
	switch size {
	case 1:
		m.data[offset] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(m.data[offset:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(m.data[offset:], uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(m.data[offset:], value)
	default:
		return fmt.Errorf("memory write size %d: %w", size, ErrAccessFault)
	}
	return nil
}

// ReadAt implements io.ReaderAt so harnesses can inspect loaded images.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt for loading data.
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, fmt.Errorf("memory write offset out of bounds: 0x%x", off)
	}
	n := copy(m.data[off:], p)
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

var _ Device = (*Memory)(nil)
