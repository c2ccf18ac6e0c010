package stdiox

// The package-level console is the one sanctioned singleton: runtime stdio
// hooks have fixed signatures with nowhere to thread a receiver through, so
// they need a process-wide target. Everything here is a thin delegate with
// no logic of its own; library code should take a *Console instead.

var std Console

// Init binds the default console to u. Call it once at startup, before any
// other function in this file, and after the scheduler is running on builds
// that have one.
func Init(u UART, cfg Config) error {
	return std.Init(u, cfg)
}

// Default returns the package-level console, for use with fmt and friends:
//
//	fmt.Fprintf(stdiox.Default(), "tick %d\n", n)
func Default() *Console {
	return &std
}

// Write sends p through the default console and returns the number of bytes
// transmitted. This is the buffer-and-count shape low-level runtime write
// hooks expect; a short count stands in for the error.
func Write(p []byte) int {
	n, _ := std.Write(p)
	return n
}

// Read fills p from the default console, stopping at a line terminator, and
// returns the number of bytes stored. Like Write, the count is the whole
// story: hooks interpret a short count by their own convention.
func Read(p []byte) int {
	n, _ := std.Read(p)
	return n
}

// Putchar sends one byte through the default console, line-ending policy
// included. It is the character-at-a-time output hook.
func Putchar(b byte) {
	var buf [1]byte
	buf[0] = b
	_, _ = std.Write(buf[:])
}

// Getchar blocks for and returns one byte from the default console. It is
// the character-at-a-time input hook.
func Getchar() byte {
	var buf [1]byte
	_, _ = std.Read(buf[:])
	return buf[0]
}

// Buffered reports how many bytes Getchar could return without blocking,
// which for an unbuffered transport is 0 or 1. Runtime input hooks spin on
// it before calling Getchar.
func Buffered() int {
	return std.Buffered()
}

// TxBusy reports whether the default console is still transmitting.
func TxBusy() bool {
	return std.TxBusy()
}

// Drain waits for the default console's transmitter to go idle, bounded by
// the configured drain timeout.
func Drain() error {
	return std.Drain()
}

// Deinit drains the default console and releases its lock.
func Deinit() {
	std.Deinit()
}
