// stdiox/rp2.go

//go:build rp2040 || rp2350

package stdiox

import (
	"device/rp"
	"errors"

	"machine"
)

// Aliases so callers can configure a console UART without importing machine
// alongside this package.
type UARTConfig = machine.UARTConfig
type UARTParity = machine.UARTParity
type Pin = machine.Pin

const (
	NoPin = machine.NoPin

	ParityNone = machine.ParityNone
	ParityEven = machine.ParityEven
	ParityOdd  = machine.ParityOdd

	UART_TX_PIN  = machine.UART_TX_PIN
	UART_RX_PIN  = machine.UART_RX_PIN
	UART1_TX_PIN = machine.UART1_TX_PIN
	UART1_RX_PIN = machine.UART1_RX_PIN
)

// PL011 is a polled binding to one PL011 instance on RP2040/RP2350. It is
// the hardware UART a Console drives on these chips: transmit readiness,
// busy and receive state come straight from the flag register, data moves
// through the data register, and no interrupt is ever installed. The
// hardware FIFOs are the only buffering.
//
// The register writes never fail, so TxWrite and RxRead always return nil.
type PL011 struct {
	Bus *rp.UART0_Type

	baud uint32 // last configured baud (diagnostics only)
}

var _ UART = (*PL011)(nil)

// The two PL011 instances, separate from machine.UARTx so the machine
// package's interrupt-driven driver is never entangled with a console.
var (
	UART0 = &_UART0
	UART1 = &_UART1

	_UART0 = PL011{Bus: rp.UART0}
	_UART1 = PL011{Bus: rp.UART1}
)

// Configure resets and sets up the PL011, its pins, baud and format.
// The UART comes up 8N1 with FIFOs enabled and no interrupts unmasked.
func (u *PL011) Configure(cfg UARTConfig) error {
	u.reset()

	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	// Pin zero values follow machine semantics: TX/RX both unset selects the
	// default pins, RTS/CTS zero means no flow control.
	if cfg.TX == 0 && cfg.RX == 0 {
		cfg.TX = UART_TX_PIN
		cfg.RX = UART_RX_PIN
	}

	// 1) Disable UART while configuring (PL011 CR).
	u.Bus.UARTCR.ClearBits(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	// 2) Mux pins before touching baud/format.
	if cfg.TX != NoPin {
		cfg.TX.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
	if cfg.RX != NoPin {
		cfg.RX.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
	if cfg.RTS != 0 {
		cfg.RTS.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
	if cfg.CTS != 0 {
		cfg.CTS.Configure(machine.PinConfig{Mode: machine.PinUART})
	}

	// 3) Baud and format. SetFormat does a full LCR_H write including FEN.
	u.SetBaudRate(cfg.BaudRate)
	_ = u.SetFormat(8, 1, ParityNone)

	// 4) Clear pending IRQ state and purge the RX FIFO (read until RXFE).
	u.Bus.UARTICR.Set(0x7FF)
	for !u.Bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
		_ = u.Bus.UARTDR.Get()
	}
	// Clear sticky RX errors (ECR shares the RSR address).
	u.Bus.UARTRSR.Set(0)

	// 5) Enable UART and optional flow control (only if both pins given).
	settings := uint32(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)
	if cfg.RTS != 0 && cfg.CTS != 0 {
		settings |= rp.UART0_UARTCR_RTSEN | rp.UART0_UARTCR_CTSEN
	}
	u.Bus.UARTCR.Set(settings)

	return nil
}

// SetBaudRate programs the PL011 integer and fractional divisors and performs
// the dummy LCR_H write required to latch them.
func (u *PL011) SetBaudRate(br uint32) {
	u.baud = br
	div := 8 * machine.CPUFrequency() / br

	ibrd := div >> 7
	var fbrd uint32
	switch {
	case ibrd == 0:
		ibrd = 1
		fbrd = 0
	case ibrd >= 65535:
		ibrd = 65535
		fbrd = 0
	default:
		fbrd = ((div & 0x7f) + 1) / 2
	}

	u.Bus.UARTIBRD.Set(ibrd)
	u.Bus.UARTFBRD.Set(fbrd)

	// PL011 requires an LCR_H write after changing divisors.
	u.Bus.UARTLCR_H.Set(u.Bus.UARTLCR_H.Get())
}

// SetFormat sets data bits, stop bits and parity, and enables the FIFOs.
// It writes the full LCR_H value (not OR-ing).
func (u *PL011) SetFormat(databits, stopbits uint8, parity UARTParity) error {
	if databits < 5 || databits > 8 {
		return errors.New("invalid databits")
	}
	if stopbits != 1 && stopbits != 2 {
		return errors.New("invalid stopbits")
	}

	var pen, pev uint32
	if parity != ParityNone {
		pen = rp.UART0_UARTLCR_H_PEN
		if parity == ParityEven {
			pev = rp.UART0_UARTLCR_H_EPS
		}
	}
	const fen = rp.UART0_UARTLCR_H_FEN

	val := uint32((databits-5)<<rp.UART0_UARTLCR_H_WLEN_Pos|
		(stopbits-1)<<rp.UART0_UARTLCR_H_STP2_Pos) |
		pen | pev | fen

	u.Bus.UARTLCR_H.Set(val)
	return nil
}

// Baud returns the last configured baud rate.
func (u *PL011) Baud() uint32 { return u.baud }

// TxReady reports TX FIFO space (FR.TXFF clear).
func (u *PL011) TxReady() bool {
	return !u.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF)
}

// TxWrite pushes one byte into the TX FIFO.
func (u *PL011) TxWrite(b byte) error {
	u.Bus.UARTDR.Set(uint32(b))
	return nil
}

// TxBusy reports FR.BUSY: the shifter still has bits to put on the wire.
// The flag stays set until the last stop bit is out, so it is the one to
// poll before tearing the peripheral down.
func (u *PL011) TxBusy() bool {
	return u.Bus.UARTFR.HasBits(rp.UART0_UARTFR_BUSY)
}

// RxReady reports pending receive data (FR.RXFE clear).
func (u *PL011) RxReady() bool {
	return !u.Bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE)
}

// RxRead pops one byte from the RX FIFO. Reading DR clears the per-byte
// error flags; when any were set the sticky copies are cleared too and the
// data byte is returned as-is.
func (u *PL011) RxRead() (byte, error) {
	r := u.Bus.UARTDR.Get()
	if r&(rp.UART0_UARTDR_OE|rp.UART0_UARTDR_BE|rp.UART0_UARTDR_PE|rp.UART0_UARTDR_FE) != 0 {
		u.Bus.UARTRSR.Set(0)
	}
	return byte(r & 0xFF), nil
}

// reset asserts and releases the peripheral reset for the selected PL011.
func (u *PL011) reset() {
	var resetVal uint32
	switch {
	case u.Bus == rp.UART0:
		resetVal = rp.RESETS_RESET_UART0
	case u.Bus == rp.UART1:
		resetVal = rp.RESETS_RESET_UART1
	}

	rp.RESETS.RESET.SetBits(resetVal)
	rp.RESETS.RESET.ClearBits(resetVal)
	for !rp.RESETS.RESET_DONE.HasBits(resetVal) {
	}
}
