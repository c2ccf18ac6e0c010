package stdiox

// UART is the minimal peripheral surface a Console drives: the five
// register-level primitives of a polled serial channel. The console holds one
// UART from Init to Deinit and only ever reads through it; implementations
// own their configuration and lifecycle (Configure, Open..., Close).
//
// Hardware implementations (PL011) never fail: their data registers accept
// writes unconditionally once TxReady reports space, so TxWrite and RxRead
// always return nil. Host implementations (TTY, Loopback) surface real I/O
// errors instead, which the console turns into short counts.
type UART interface {
	// TxReady reports whether the transmitter can accept one byte now.
	TxReady() bool

	// TxWrite writes one byte into the transmit data register. It must only
	// be called after TxReady has reported space.
	TxWrite(b byte) error

	// TxBusy reports whether the transmit shifter is still moving bits onto
	// the wire. It stays true after TxWrite until the last stop bit is out.
	TxBusy() bool

	// RxReady reports whether a received byte is waiting to be read.
	RxReady() bool

	// RxRead reads the receive data register and clears the received-data
	// indication. It must only be called after RxReady has reported data.
	RxRead() (byte, error)
}
