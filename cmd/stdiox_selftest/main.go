//go:build rp2040 || rp2350

// Wired-loopback self-test for the stdiox console: connect UART1 TX to RX
// (Pico: GP8 to GP9) and flash. Results appear on the default serial monitor;
// the LED blinks three times on success and slowly forever on failure.
package main

import (
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-stdiox/stdiox"
)

const baud = 115200

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)

	println("stdiox self-test starting")
	println("wiring: UART1 TX -> UART1 RX (Pico: GP8 -> GP9)")

	if err := stdiox.UART1.Configure(stdiox.UARTConfig{
		BaudRate: baud,
		TX:       stdiox.UART1_TX_PIN,
		RX:       stdiox.UART1_RX_PIN,
	}); err != nil {
		println("Configure failed")
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}
	if err := stdiox.Init(stdiox.UART1, stdiox.Config{}); err != nil {
		println("Init failed")
		for {
			ledBlink(1, 500*time.Millisecond)
		}
	}
	println("uart1 up at", stdiox.UART1.Baud(), "baud")

	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	drainRx()

	pass, fail := 0, 0
	defer func() {
		println("")
		println("Summary")
		println("  passed =", pass)
		println("  failed =", fail)
		if fail == 0 {
			ledBlink(3, 120*time.Millisecond)
		} else {
			for {
				ledBlink(1, 600*time.Millisecond)
				time.Sleep(800 * time.Millisecond)
			}
		}
	}()

	run := func(name string, f func() string) {
		println("")
		println("[Test]", name)
		if msg := f(); msg == "" {
			println("  PASS")
			pass++
		} else {
			println("  FAIL:", msg)
			fail++
		}
	}

	run("wire: single byte round trip", func() string {
		drainRx()
		stdiox.Putchar('X')
		got, ok := recvExact(1, time.Second)
		if !ok || got[0] != 'X' {
			return "echo failed"
		}
		return ""
	})

	run("crlf: bare LF gains a CR on the wire", func() string {
		drainRx()
		if n := stdiox.Write([]byte("a\n")); n != 2 {
			return "short write"
		}
		got, ok := recvExact(3, time.Second)
		if !ok {
			return "timeout"
		}
		if string(got) != "a\r\n" {
			return "wire bytes wrong"
		}
		return ""
	})

	run("crlf: explicit CRLF not duplicated", func() string {
		drainRx()
		if n := stdiox.Write([]byte("b\r\n")); n != 3 {
			return "short write"
		}
		got, ok := recvExact(3, time.Second)
		if !ok {
			return "timeout"
		}
		if string(got) != "b\r\n" {
			return "wire bytes wrong"
		}
		return ""
	})

	run("read: stops at the first terminator", func() string {
		drainRx()
		if n := stdiox.Write([]byte("hi\n")); n != 3 {
			return "short write"
		}
		// Wait for the first byte so a broken wire fails instead of hanging.
		if _, ok := waitBuffered(time.Second); !ok {
			return "no data"
		}
		var buf [8]byte
		if n := stdiox.Read(buf[:]); n != 3 || string(buf[:n]) != "hi\r" {
			return "line framing wrong"
		}
		got, ok := recvExact(1, time.Second)
		if !ok || got[0] != '\n' {
			return "trailing LF missing"
		}
		return ""
	})

	run("drain: burst fully on the wire before Drain returns", func() string {
		drainRx()
		payload := fill(24, '#')
		if n := stdiox.Write(payload); n != len(payload) {
			return "short write"
		}
		if err := stdiox.Drain(); err != nil {
			return "drain timeout"
		}
		if stdiox.TxBusy() {
			return "still busy after drain"
		}
		got, ok := recvExact(len(payload), time.Second)
		if !ok || string(got) != string(payload) {
			return "payload mismatch"
		}
		return ""
	})

	run("null: nil buffers are no-ops", func() string {
		drainRx()
		if stdiox.Write(nil) != 0 {
			return "Write(nil) != 0"
		}
		if stdiox.Read(nil) != 0 {
			return "Read(nil) != 0"
		}
		return ""
	})

	run("concurrent: two writers never interleave", func() string {
		drainRx()
		const blockLen = 8
		const rounds = 4
		blockA := fill(blockLen, 'a')
		blockB := fill(blockLen, 'b')

		go func() {
			for i := 0; i < rounds; i++ {
				stdiox.Write(blockA)
			}
		}()
		go func() {
			for i := 0; i < rounds; i++ {
				stdiox.Write(blockB)
			}
		}()

		got, ok := recvExact(2*rounds*blockLen, 2*time.Second)
		if !ok {
			return "timeout collecting blocks"
		}
		nA, nB := 0, 0
		for off := 0; off < len(got); off += blockLen {
			switch string(got[off : off+blockLen]) {
			case string(blockA):
				nA++
			case string(blockB):
				nB++
			default:
				return "interleaved block at offset " + itoa(off)
			}
		}
		if nA != rounds || nB != rounds {
			return "block counts wrong"
		}
		return ""
	})

	println("")
	println("All tests completed")
}

// recvExact collects exactly n bytes from the console, bounded by d. The
// Buffered gate keeps Read from blocking past the deadline.
func recvExact(n int, d time.Duration) ([]byte, bool) {
	out := make([]byte, 0, n)
	deadline := time.Now().Add(d)
	var b [1]byte
	for len(out) < n && time.Now().Before(deadline) {
		if stdiox.Buffered() == 0 {
			time.Sleep(time.Millisecond)
			continue
		}
		if k := stdiox.Read(b[:]); k == 1 {
			out = append(out, b[0])
		}
	}
	return out, len(out) == n
}

// waitBuffered waits up to d for at least one pending byte.
func waitBuffered(d time.Duration) (int, bool) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if n := stdiox.Buffered(); n > 0 {
			return n, true
		}
		time.Sleep(time.Millisecond)
	}
	return 0, false
}

// drainRx discards leftover loopback bytes, waiting out stragglers still
// shifting through the wire.
func drainRx() {
	var b [1]byte
	for {
		if stdiox.Buffered() == 0 {
			time.Sleep(2 * time.Millisecond)
			if stdiox.Buffered() == 0 {
				return
			}
		}
		_ = stdiox.Read(b[:])
	}
}

// --- tiny helpers (no fmt) ---

func fill(n int, ch byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = ch
	}
	return p
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := false
	if n < 0 {
		neg = true
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + (n % 10))
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func ledBlink(times int, on time.Duration) {
	for i := 0; i < times; i++ {
		machine.LED.High()
		time.Sleep(on)
		machine.LED.Low()
		time.Sleep(on)
	}
}
