package stdiox

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

// newTestConsole returns a console bound to a fresh loopback.
func newTestConsole(t *testing.T, cfg Config) (*Console, *Loopback) {
	t.Helper()
	lb := NewLoopback()
	c := new(Console)
	if err := c.Init(lb, cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return c, lb
}

// countingUART tallies every transport call so no-op paths can prove they
// never touched the peripheral.
type countingUART struct {
	calls int
}

func (u *countingUART) TxReady() bool         { u.calls++; return true }
func (u *countingUART) TxWrite(byte) error    { u.calls++; return nil }
func (u *countingUART) TxBusy() bool          { u.calls++; return false }
func (u *countingUART) RxReady() bool         { u.calls++; return true }
func (u *countingUART) RxRead() (byte, error) { u.calls++; return 0, nil }

// stuckUART reports a transmitter that never finishes.
type stuckUART struct{}

func (stuckUART) TxReady() bool         { return true }
func (stuckUART) TxWrite(byte) error    { return nil }
func (stuckUART) TxBusy() bool          { return true }
func (stuckUART) RxReady() bool         { return false }
func (stuckUART) RxRead() (byte, error) { return 0, nil }

var errTxFault = errors.New("injected transmit fault")

// flakyUART accepts failAfter bytes and then fails every TxWrite.
type flakyUART struct {
	tx        []byte
	failAfter int
}

func (u *flakyUART) TxReady() bool { return true }
func (u *flakyUART) TxWrite(b byte) error {
	if u.failAfter == 0 {
		return errTxFault
	}
	u.failAfter--
	u.tx = append(u.tx, b)
	return nil
}
func (u *flakyUART) TxBusy() bool          { return false }
func (u *flakyUART) RxReady() bool         { return false }
func (u *flakyUART) RxRead() (byte, error) { return 0, errTxFault }

func TestWrite_NoLineFeedsIdenticalInBothModes(t *testing.T) {
	// Sequences without LF must come out byte-identical whether translation
	// is on or off, CRs included.
	in := []byte("abc\rdef \x00\xff ghi")
	for _, le := range []LineEnding{LineEndingCRLF, LineEndingRaw} {
		c, lb := newTestConsole(t, Config{LineEnding: le})
		n, err := c.Write(in)
		if err != nil || n != len(in) {
			t.Fatalf("mode %d: Write: n=%d err=%v; want %d,nil", le, n, err, len(in))
		}
		if got := lb.TxBytes(); !bytes.Equal(got, in) {
			t.Fatalf("mode %d: got %q want %q", le, got, in)
		}
	}
}

func TestWrite_InsertsCRBeforeBareLF(t *testing.T) {
	c, lb := newTestConsole(t, Config{})

	if n, err := c.Write([]byte("\n")); err != nil || n != 1 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if got := lb.TxString(); got != "\r\n" {
		t.Fatalf("got %q want %q", got, "\r\n")
	}

	c2, lb2 := newTestConsole(t, Config{})
	if _, err := c2.Write([]byte("a\nb")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := lb2.TxString(); got != "a\r\nb" {
		t.Fatalf("got %q want %q", got, "a\r\nb")
	}
}

func TestWrite_NoDuplicateCR(t *testing.T) {
	c, lb := newTestConsole(t, Config{})
	if _, err := c.Write([]byte("\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := lb.TxString(); got != "\r\n" {
		t.Fatalf("got %q want %q", got, "\r\n")
	}
}

func TestWrite_RawModePassesLineFeedsThrough(t *testing.T) {
	c, lb := newTestConsole(t, Config{LineEnding: LineEndingRaw})
	in := []byte("a\nb\r\nc\n")
	if _, err := c.Write(in); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := lb.TxBytes(); !bytes.Equal(got, in) {
		t.Fatalf("got %q want %q", got, in)
	}
}

func TestWrite_TranslationStateSpansCalls(t *testing.T) {
	// A CR that ends one call must suppress the inserted CR for an LF that
	// opens the next call.
	c, lb := newTestConsole(t, Config{})
	_, _ = c.Write([]byte("a\r"))
	_, _ = c.Write([]byte("\nb"))
	if got := lb.TxString(); got != "a\r\nb" {
		t.Fatalf("got %q want %q", got, "a\r\nb")
	}

	// And an ordinary split still translates each LF exactly once.
	c2, lb2 := newTestConsole(t, Config{})
	_, _ = c2.Write([]byte("a\n"))
	_, _ = c2.Write([]byte("b\nc"))
	if got := lb2.TxString(); got != "a\r\nb\r\nc" {
		t.Fatalf("got %q want %q", got, "a\r\nb\r\nc")
	}
}

func TestRead_StopsAfterLineFeed(t *testing.T) {
	c, lb := newTestConsole(t, Config{})
	lb.FeedRx([]byte("hello\nworld"))

	buf := make([]byte, 10)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 6 || string(buf[:n]) != "hello\n" {
		t.Fatalf("got n=%d data=%q; want 6, %q", n, string(buf[:n]), "hello\n")
	}
}

func TestRead_StopsAfterCarriageReturn(t *testing.T) {
	c, lb := newTestConsole(t, Config{})
	lb.FeedRx([]byte("ok\rx"))

	buf := make([]byte, 8)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 || string(buf[:n]) != "ok\r" {
		t.Fatalf("got n=%d data=%q; want 3, %q", n, string(buf[:n]), "ok\r")
	}
}

func TestRead_StopsAtBufferLimitWithoutTerminator(t *testing.T) {
	c, lb := newTestConsole(t, Config{})
	lb.FeedRx([]byte("abcdef"))

	buf := make([]byte, 3)
	n, err := c.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 || string(buf) != "abc" {
		t.Fatalf("got n=%d data=%q; want 3, %q", n, string(buf), "abc")
	}
	if c.Buffered() == 0 {
		t.Fatal("rest of the input should still be pending")
	}
}

func TestNilBuffers_NoPeripheralAccess(t *testing.T) {
	u := &countingUART{}
	c := new(Console)
	if err := c.Init(u, Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if n, err := c.Write(nil); err != nil || n != 0 {
		t.Fatalf("Write(nil): n=%d err=%v; want 0,nil", n, err)
	}
	if n, err := c.Read(nil); err != nil || n != 0 {
		t.Fatalf("Read(nil): n=%d err=%v; want 0,nil", n, err)
	}
	if u.calls != 0 {
		t.Fatalf("peripheral touched %d times by nil-buffer calls", u.calls)
	}
}

func TestWrite_ShortCountOnTransmitFailure(t *testing.T) {
	// Accept 'x' and the inserted CR, then fail on the LF itself.
	u := &flakyUART{failAfter: 2}
	c := new(Console)
	if err := c.Init(u, Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	n, err := c.Write([]byte("x\nyz"))
	if !errors.Is(err, errTxFault) {
		t.Fatalf("err = %v; want injected fault", err)
	}
	if n != 1 {
		t.Fatalf("n = %d; want 1 (only 'x' fully sent)", n)
	}
	if got := string(u.tx); got != "x\r" {
		t.Fatalf("wire got %q want %q", got, "x\r")
	}

	// The failed LF must not have been recorded: once the fault clears, a
	// retried LF still gets its CR.
	u.failAfter = 16
	if _, err := c.Write([]byte("\nz")); err != nil {
		t.Fatalf("Write after fault: %v", err)
	}
	if got := string(u.tx); got != "x\r\r\nz" {
		t.Fatalf("wire got %q want %q", got, "x\r\r\nz")
	}
}

func TestWrite_ConcurrentWritersDoNotInterleave(t *testing.T) {
	const blockLen = 32
	const rounds = 8

	c, lb := newTestConsole(t, Config{LineEnding: LineEndingRaw})
	msgA := bytes.Repeat([]byte{'a'}, blockLen)
	msgB := bytes.Repeat([]byte{'b'}, blockLen)

	doneA := make(chan struct{})
	doneB := make(chan struct{})
	go func() {
		defer close(doneA)
		for i := 0; i < rounds; i++ {
			_, _ = c.Write(msgA)
		}
	}()
	go func() {
		defer close(doneB)
		for i := 0; i < rounds; i++ {
			_, _ = c.Write(msgB)
		}
	}()

	for _, done := range []chan struct{}{doneA, doneB} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for writers")
		}
	}

	tx := lb.TxBytes()
	if len(tx) != 2*rounds*blockLen {
		t.Fatalf("transmitted %d bytes, want %d", len(tx), 2*rounds*blockLen)
	}
	var nA, nB int
	for off := 0; off < len(tx); off += blockLen {
		block := tx[off : off+blockLen]
		switch {
		case bytes.Equal(block, msgA):
			nA++
		case bytes.Equal(block, msgB):
			nB++
		default:
			t.Fatalf("interleaved block at offset %d: %q", off, block)
		}
	}
	if nA != rounds || nB != rounds {
		t.Fatalf("block counts a=%d b=%d, want %d each", nA, nB, rounds)
	}
}

func TestDrain_BoundedWhenTransmitterStuck(t *testing.T) {
	c := new(Console)
	if err := c.Init(stuckUART{}, Config{DrainTimeout: 50 * time.Millisecond}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	start := time.Now()
	err := c.Drain()
	elapsed := time.Since(start)

	if !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("err = %v; want ErrDrainTimeout", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Fatalf("Drain returned after %v, before the timeout", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("Drain took %v, far beyond the 50ms bound", elapsed)
	}
}

func TestWrite_BeforeInitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Write before Init to panic")
		}
	}()
	var c Console
	_, _ = c.Write([]byte("x"))
}

func TestDeinit_BeforeInitPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Deinit before Init to panic")
		}
	}()
	var c Console
	c.Deinit()
}

func TestInit_IdempotentAndStatePreserving(t *testing.T) {
	c, lb := newTestConsole(t, Config{})

	if err := c.Init(nil, Config{}); !errors.Is(err, ErrNoUART) {
		t.Fatalf("Init(nil) = %v; want ErrNoUART", err)
	}

	_, _ = c.Write([]byte("a\r"))
	if err := c.Init(lb, Config{}); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	// The translation state survived re-Init: this LF follows the CR sent
	// before it, so no CR is inserted.
	_, _ = c.Write([]byte("\n"))
	if got := lb.TxString(); got != "a\r\n" {
		t.Fatalf("got %q want %q", got, "a\r\n")
	}
}

func TestRead_BlocksUntilByteArrives(t *testing.T) {
	c, lb := newTestConsole(t, Config{})

	done := make(chan struct{})
	buf := make([]byte, 4)
	var n int
	var err error
	go func() {
		defer close(done)
		n, err = c.Read(buf)
	}()

	time.Sleep(20 * time.Millisecond)
	lb.FeedRx([]byte("ok\n"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Read")
	}
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 || string(buf[:n]) != "ok\n" {
		t.Fatalf("got n=%d data=%q; want 3, %q", n, string(buf[:n]), "ok\n")
	}
}

func TestRead_UnblocksOnPeripheralClose(t *testing.T) {
	c, lb := newTestConsole(t, Config{})

	done := make(chan struct{})
	var n int
	var err error
	go func() {
		defer close(done)
		n, err = c.Read(make([]byte, 4))
	}()

	time.Sleep(20 * time.Millisecond)
	_ = lb.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Read to unblock on Close")
	}
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v; want ErrClosed", err)
	}
	if n != 0 {
		t.Fatalf("n = %d; want 0", n)
	}
}

func TestConsole_ZeroValueQueries(t *testing.T) {
	var c Console
	if c.TxBusy() {
		t.Fatal("TxBusy on an unbound console should be false")
	}
	if c.Buffered() != 0 {
		t.Fatal("Buffered on an unbound console should be 0")
	}
}

func TestDefaultConsole_HookSurface(t *testing.T) {
	lb := NewLoopback()
	if err := Init(lb, Config{}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Deinit()

	Putchar('h')
	Putchar('\n')
	if got := lb.TxString(); got != "h\r\n" {
		t.Fatalf("Putchar wire got %q want %q", got, "h\r\n")
	}

	if n := Write([]byte("x")); n != 1 {
		t.Fatalf("Write = %d; want 1", n)
	}
	if n := Write(nil); n != 0 {
		t.Fatalf("Write(nil) = %d; want 0", n)
	}

	lb.FeedRx([]byte("ab"))
	if Buffered() != 1 {
		t.Fatal("Buffered should report pending input")
	}
	if b := Getchar(); b != 'a' {
		t.Fatalf("Getchar = %q; want 'a'", b)
	}
	if b := Getchar(); b != 'b' {
		t.Fatalf("Getchar = %q; want 'b'", b)
	}

	lb.FeedRx([]byte("line\nrest"))
	buf := make([]byte, 16)
	if n := Read(buf); n != 5 || string(buf[:n]) != "line\n" {
		t.Fatalf("Read got n=%d data=%q; want 5, %q", n, string(buf[:n]), "line\n")
	}

	if TxBusy() {
		t.Fatal("TxBusy on an idle loopback should be false")
	}
	if err := Drain(); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}
