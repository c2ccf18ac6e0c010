// stdiox/loopback.go

package stdiox

import (
	"errors"
	"sync"
)

// ErrClosed is returned by transport operations on a peripheral that has
// been closed.
var ErrClosed = errors.New("stdiox: peripheral closed")

// errRxEmpty flags an RxRead with nothing to read, which only happens when a
// caller skips the RxReady check.
var errRxEmpty = errors.New("stdiox: receive register empty")

// Loopback is an in-memory UART for tests and hosted demos: transmitted
// bytes are captured, received bytes are fed in by hand. The wire is memory,
// so the transmitter is always ready and never busy.
//
// Unlike a hardware channel it is safe to feed and inspect from other
// goroutines, and Close unblocks a console read that is waiting for input.
type Loopback struct {
	mu     sync.Mutex
	rx     ring
	tx     []byte
	closed bool
}

var _ UART = (*Loopback)(nil)

// NewLoopback returns an open in-memory UART.
func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) TxReady() bool { return true }

func (l *Loopback) TxWrite(b byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.tx = append(l.tx, b)
	return nil
}

func (l *Loopback) TxBusy() bool { return false }

// RxReady reports pending input. A closed loopback also reports ready so
// that a blocked reader wakes up and sees ErrClosed.
func (l *Loopback) RxReady() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed || l.rx.len() > 0
}

func (l *Loopback) RxRead() (byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rx.len() == 0 {
		if l.closed {
			return 0, ErrClosed
		}
		return 0, errRxEmpty
	}
	return l.rx.get(), nil
}

// FeedRx queues bytes for the receive side, as if they had arrived on the
// wire. When the ring overflows the oldest bytes are dropped, matching what
// an overrun does to a real FIFO.
func (l *Loopback) FeedRx(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range p {
		l.rx.put(b)
	}
}

// TxBytes returns a copy of everything transmitted so far.
func (l *Loopback) TxBytes() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, len(l.tx))
	copy(out, l.tx)
	return out
}

// TxString returns everything transmitted so far as a string.
func (l *Loopback) TxString() string {
	return string(l.TxBytes())
}

// Close marks the loopback closed. Subsequent transmits fail with ErrClosed
// and pending console reads unblock with the same error once the ring is
// empty. Closing twice is harmless.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// ring is a fixed byte ring. put on a full ring drops the oldest byte.
type ring struct {
	buf        [512]byte
	head, tail int
}

func (r *ring) len() int {
	if r.head >= r.tail {
		return r.head - r.tail
	}
	return len(r.buf) - r.tail + r.head
}

func (r *ring) put(b byte) {
	next := (r.head + 1) % len(r.buf)
	if next == r.tail {
		// drop oldest
		r.tail = (r.tail + 1) % len(r.buf)
	}
	r.buf[r.head] = b
	r.head = next
}

func (r *ring) get() byte {
	if r.len() == 0 {
		return 0
	}
	b := r.buf[r.tail]
	r.tail = (r.tail + 1) % len(r.buf)
	return b
}
