// stdiox/stdiox.go

// Package stdiox retargets printf/scanf-style character I/O onto a single
// UART. A Console wraps one peripheral with blocking io.Reader/io.Writer
// semantics, an optional LF→CRLF policy on the outgoing path, and a bounded
// drain on shutdown. It is strictly synchronous and character-at-a-time:
// no interrupts, no software buffering beyond the peripheral's own FIFO.
//
// The usual wiring on a board is one package-level default console (see
// stdio.go) initialised once at startup and fed to fmt:
//
//	stdiox.UART0.Configure(stdiox.UARTConfig{BaudRate: 115200})
//	stdiox.Init(stdiox.UART0, stdiox.Config{})
//	fmt.Fprintf(stdiox.Default(), "booted in %d ms\n", ms)
package stdiox

import (
	"errors"
	"io"
	"sync"
	"time"
)

// DefaultDrainTimeout bounds the Deinit/Drain wait for in-flight transmission.
// The largest hardware FIFO in common use is 256 bytes, which takes about
// 500 ms to shift out at 9600 baud; one second leaves 50% margin on top.
const DefaultDrainTimeout = time.Second

// drainPollInterval is how often Drain re-checks the busy flag. The console
// cannot see line baud through the UART interface, so the tick is fixed
// rather than derived from character time.
const drainPollInterval = 500 * time.Microsecond

var (
	// ErrNoUART is returned by Init when no peripheral is supplied.
	ErrNoUART = errors.New("stdiox: nil UART")

	// ErrDrainTimeout is returned by Drain when the transmitter is still
	// busy after the configured timeout.
	ErrDrainTimeout = errors.New("stdiox: transmit still active after drain timeout")
)

// LineEnding selects the outgoing newline policy. Incoming bytes are never
// translated.
type LineEnding uint8

const (
	// LineEndingCRLF inserts a carriage return before any line feed that
	// does not already follow one, so terminals see CRLF pairs (the default).
	LineEndingCRLF LineEnding = iota
	// LineEndingRaw passes every byte through untouched.
	LineEndingRaw
)

// Config holds console configuration. The zero value selects CRLF
// translation and DefaultDrainTimeout.
type Config struct {
	LineEnding   LineEnding
	DrainTimeout time.Duration // 0 means DefaultDrainTimeout
}

// Console binds stdio-style reads and writes to one UART.
//
// Invariants:
//   - The peripheral handle is assigned by Init and read-only afterwards.
//   - Write holds the console lock for its whole byte loop, so bytes from
//     concurrent Write calls never interleave on the wire and the
//     previous-character state is only ever mutated under the lock.
//   - Read takes no lock; a single reader is assumed.
//   - The lock exists from the first Init until Deinit. Writing or
//     deinitialising outside that window is a programming error and panics.
//
// Behaviour after Deinit is undefined; a console is not reusable.
type Console struct {
	uart UART
	mu   *sync.Mutex

	lineEnding   LineEnding
	drainTimeout time.Duration

	// prev is the last byte sent while CRLF translation is active. It spans
	// Write calls so a line feed opening one call still sees the carriage
	// return that closed the previous one.
	prev byte

	stats Stats
}

var _ io.ReadWriter = (*Console)(nil)

// Init binds the console to u and creates the write lock if this is the
// first initialisation. Re-initialising an initialised console succeeds
// without touching the lock or the translation state, so the configuration
// can be changed between writes. The only failure is a nil peripheral.
//
// On builds with a scheduler, call Init only after the runtime is up.
func (c *Console) Init(u UART, cfg Config) error {
	if u == nil {
		return ErrNoUART
	}
	c.uart = u
	c.lineEnding = cfg.LineEnding
	c.drainTimeout = cfg.DrainTimeout
	if c.drainTimeout == 0 {
		c.drainTimeout = DefaultDrainTimeout
	}
	if c.mu == nil {
		c.mu = new(sync.Mutex)
	}
	return nil
}

// Write implements io.Writer. It sends p through the line-ending policy one
// byte at a time, holding the console lock for the whole call. On the first
// transmit failure it stops and returns how many bytes of p were fully sent,
// with the underlying error. A nil or empty buffer is a no-op returning
// (0, nil) without touching the peripheral.
func (c *Console) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	c.lock()
	defer c.unlock()

	translate := c.lineEnding == LineEndingCRLF
	n := 0
	var err error
	for ; n < len(p); n++ {
		b := p[n]
		if translate && b == '\n' && c.prev != '\r' {
			if err = c.putChar('\r'); err != nil {
				break
			}
			c.dbgCRInserted()
		}
		if err = c.putChar(b); err != nil {
			break
		}
		if translate {
			// Record only after the byte is out, so a failed send leaves
			// the translation state at the last byte actually on the wire.
			c.prev = b
		}
	}
	if err != nil {
		c.dbgShortWrite()
	}
	return n, err
}

// Read implements io.Reader. It fills p one byte at a time, blocking
// indefinitely for each byte, and returns once p is full or a line feed or
// carriage return has been stored (the terminator is included in the count).
// Incoming bytes are not translated. A nil or empty buffer is a no-op
// returning (0, nil) without touching the peripheral.
//
// Read takes no lock: concurrent readers are not a supported configuration.
func (c *Console) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		b, err := c.getChar()
		if err != nil {
			return n, err
		}
		p[n] = b
		n++
		c.dbgRxByte()
		if b == '\n' || b == '\r' {
			break
		}
	}
	return n, nil
}

// TxBusy reports whether the peripheral is still shifting out previously
// submitted bytes. It is false on a console that was never initialised.
func (c *Console) TxBusy() bool {
	if c.uart == nil {
		return false
	}
	return c.uart.TxBusy()
}

// Drain blocks until the transmitter is idle or the configured drain timeout
// expires, polling the busy flag against a deadline from the monotonic
// clock. It returns ErrDrainTimeout if bytes may still be in flight.
func (c *Console) Drain() error {
	c.dbgDrainWait()
	deadline := time.Now().Add(c.drainTimeout)
	for c.TxBusy() {
		if !time.Now().Before(deadline) {
			c.dbgDrainTimeout()
			return ErrDrainTimeout
		}
		time.Sleep(drainPollInterval)
	}
	return nil
}

// Deinit waits out in-flight transmission with Drain and then destroys the
// write lock. If the drain times out, builds with the stdioxdebug tag panic
// (losing the tail of the output is treated as a defect worth halting for);
// release builds proceed and accept the loss. Deinit of a console that was
// never initialised panics. The console must not be used afterwards.
func (c *Console) Deinit() {
	if c.mu == nil {
		panic("stdiox: Deinit of uninitialised console")
	}
	if err := c.Drain(); err != nil {
		assertDrained()
	}
	c.mu = nil
}

// Buffered reports how many received bytes can be read without blocking.
// The transport has no software buffer, so this is 0 or 1: it only reflects
// the peripheral's received-data indication.
func (c *Console) Buffered() int {
	if c.uart == nil || !c.uart.RxReady() {
		return 0
	}
	return 1
}

// putChar sends one byte, waiting for transmitter space first. In practice
// the wait is momentary: submission just queues into the hardware FIFO.
func (c *Console) putChar(b byte) error {
	for !c.uart.TxReady() {
		time.Sleep(0) // polite yield
	}
	if err := c.uart.TxWrite(b); err != nil {
		return err
	}
	c.dbgTxByte()
	return nil
}

// getChar returns the next received byte, polling the received-data
// indication until one arrives. There is no timeout: an attached terminal is
// assumed, and blocking forever is preferred over silently dropping input.
func (c *Console) getChar() (byte, error) {
	for !c.uart.RxReady() {
		time.Sleep(0) // polite yield
	}
	return c.uart.RxRead()
}

func (c *Console) lock() {
	if c.mu == nil {
		panic("stdiox: console not initialised")
	}
	c.mu.Lock()
}

func (c *Console) unlock() {
	if c.mu == nil {
		panic("stdiox: console not initialised")
	}
	c.mu.Unlock()
}
