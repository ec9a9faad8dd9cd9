package soc

import (
	"fmt"

	"github.com/rvsim/rvsim/internal/channel"
)

// NS16550A register offsets relative to the UART base. With the divisor
// latch access bit set in LCR, offsets 0 and 1 address the divisor latch
// pair instead of the data and interrupt-enable registers.
const (
	uartRegData = 0 // receive buffer (read) / transmit holding (write) / DLL
	uartRegIER  = 1 // interrupt enable / DLM
	uartRegIIR  = 2 // interrupt identification (read) / FIFO control (write)
	uartRegLCR  = 3 // line control
	uartRegMCR  = 4 // modem control
	uartRegLSR  = 5 // line status (read only)
	uartRegMSR  = 6 // modem status (reads as 0)
	uartRegSCR  = 7 // scratch
)

const (
	uartIERRecvData = 1 << 0 // receive data available interrupt enable
	uartIERTHREmpty = 1 << 1 // transmit holding register empty interrupt enable

	uartIIRNoInt    = 1 << 0
	uartIIRTHREmpty = 1 << 1
	uartIIRRecvData = 1 << 2

	uartFCREnableFIFO = 1 << 0
	uartFCRClearRecv  = 1 << 1
	uartFCRClearXmit  = 1 << 2

	uartLCRDLAB = 1 << 7

	uartMCROut2 = 1 << 3
	uartMCRLoop = 1 << 4

	uartLSRDataReady = 1 << 0
	uartLSROverrun   = 1 << 1
	uartLSRBreak     = 1 << 4
	uartLSRTHRE      = 1 << 5
	uartLSRTEMT      = 1 << 6
)

// UARTInterruptSource is the PLIC source id of the serial port.
const UARTInterruptSource = 1

// UART models the NS16550A subset the guest drives through eight one-byte
// registers. Received bytes arrive on a channel fed by the external harness;
// transmitted bytes leave on a second channel, or loop straight back into
// the receive stream when the MCR loopback bit is set.
type UART struct {
	recv     *channel.Receiver[byte]
	loopback *channel.Sender[byte]
	send     *channel.Sender[byte]

	dll byte
	dlm byte
	ier byte
	iir byte
	fcr byte
	lcr byte
	mcr byte
	lsr byte
	scr byte
}

// NewUART builds the device together with its external endpoints: a Sender
// feeding the receive stream and a Receiver draining transmitted bytes.
func NewUART() (*UART, *channel.Sender[byte], *channel.Receiver[byte]) {
	recvSender, recv := channel.New[byte]()
	send, sendReceiver := channel.New[byte]()
	u := &UART{
		recv:     recv,
		loopback: recvSender,
		send:     send,
		dll:      0x0c, // 9600 baud at the conventional 1.8432 MHz clock
		iir:      uartIIRNoInt,
		mcr:      uartMCROut2,
		lsr:      uartLSRTEMT | uartLSRTHRE,
	}
	return u, recvSender, sendReceiver
}

// Clk implements Device. It refreshes the data-ready status from the receive
// channel, services any FIFO clear requests, recomputes the interrupt
// identification register from IER crossed with LSR, and drives the
// interrupt line accordingly.
//
// The FIFO clear requests are carried in LCR bits 1 and 2 rather than in the
// FCR; guests drive the clears through LCR writes.
func (u *UART) Clk(irqs *IrqSet) {
	if u.recv.Available() {
		u.lsr |= uartLSRDataReady
	}

	if u.lcr&uartFCRClearRecv != 0 {
		u.recv.Clear()
		u.lsr &^= uartLSRDataReady
		u.lcr &^= uartFCRClearRecv
	}

	if u.lcr&uartFCRClearXmit != 0 {
		u.lcr &^= uartFCRClearXmit
		u.lsr |= uartLSRTEMT | uartLSRTHRE
	}

	var interrupts byte
	if u.ier&uartIERRecvData != 0 && u.lsr&uartLSRDataReady != 0 {
		interrupts |= uartIIRRecvData
	}
	if u.ier&uartIERTHREmpty != 0 && u.lsr&uartLSRTEMT != 0 {
		interrupts |= uartIIRTHREmpty
	}

	if interrupts != 0 {
		u.iir = interrupts
		irqs.Set(UARTInterruptSource, true)
	} else {
		u.iir = uartIIRNoInt
		irqs.Set(UARTInterruptSource, false)
	}

	// A guest that never enables transmit interrupts always sees the port
	// ready to accept another byte.
	if u.ier&uartIERTHREmpty == 0 {
		u.lsr |= uartLSRTEMT | uartLSRTHRE
	}
}

// Read implements Device. Only one-byte accesses are legal.
func (u *UART) Read(offset uint32, size int) (uint64, error) {
	if size != 1 {
		return 0, fmt.Errorf("uart read at 0x%x: size %d: %w", offset, size, ErrAccessFault)
	}

	switch offset {
	case uartRegData:
		switch {
		case u.lcr&uartLCRDLAB != 0:
			return uint64(u.dll), nil
		case u.lsr&uartLSRBreak != 0:
			return 0, nil
		case u.recv.Available():
			u.lsr &^= uartLSROverrun
			return uint64(u.recv.Recv()), nil
		default:
			return 0, nil
		}
	case uartRegIER:
		if u.lcr&uartLCRDLAB != 0 {
			return uint64(u.dlm), nil
		}
		return uint64(u.ier), nil
	case uartRegIIR:
		return uint64(u.iir), nil
	case uartRegLCR:
		return uint64(u.lcr), nil
	case uartRegMCR:
		return uint64(u.mcr), nil
	case uartRegLSR:
		return uint64(u.lsr), nil
	case uartRegMSR:
		return 0, nil
	case uartRegSCR:
		return uint64(u.scr), nil
	}

	return 0, fmt.Errorf("uart read at 0x%x: %w", offset, ErrAccessFault)
}

// Write implements Device. Only one-byte accesses are legal; LSR and MSR are
// not writable.
func (u *UART) Write(offset uint32, size int, value uint64) error {
	if size != 1 {
		return fmt.Errorf("uart write at 0x%x: size %d: %w", offset, size, ErrAccessFault)
	}
	data := byte(value)

	switch offset {
	case uartRegData:
		switch {
		case u.lcr&uartLCRDLAB != 0:
			u.dll = data
		case u.fcr&uartFCREnableFIFO == 0 && u.recv.Available():
			// Without FIFOs a still-pending byte means overrun; the
			// new byte is dropped.
			u.lsr |= uartLSROverrun
		default:
			u.lsr |= uartLSRTEMT | uartLSRTHRE
			if u.mcr&uartMCRLoop != 0 {
				u.loopback.Send(data)
			} else {
				u.send.Send(data)
			}
		}
		return nil
	case uartRegIER:
		if u.lcr&uartLCRDLAB != 0 {
			u.dlm = data
		} else {
			u.ier = data & 0x0F
		}
		return nil
	case uartRegIIR:
		u.fcr = data
		return nil
	case uartRegLCR:
		u.lcr = data
		return nil
	case uartRegMCR:
		u.mcr = data & 0x1F
		return nil
	case uartRegSCR:
		u.scr = data
		return nil
	}

	return fmt.Errorf("uart write at 0x%x: %w", offset, ErrAccessFault)
}

var _ Device = (*UART)(nil)
