//go:build linux && !baremetal

// serial_term attaches the local terminal to a serial console: keystrokes go
// to the device, device output comes back to the screen, both raw. Detach
// with ^]. Handy for talking to a board running the stdiox examples.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/ssh/terminal"

	"github.com/jangala-dev/tinygo-stdiox/stdiox"
)

const escapeByte = 0x1D // ^]

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "serial device to attach to")
	baud := flag.Int("baud", 115200, "line baud rate")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("serial_term: ")

	tty, err := stdiox.OpenTTY(stdiox.TTYConfig{Device: *device, BaudRate: *baud})
	if err != nil {
		log.Fatal(err)
	}
	defer tty.Close()

	// The bridge is transparent: the far end owns its own line endings.
	console := new(stdiox.Console)
	if err := console.Init(tty, stdiox.Config{LineEnding: stdiox.LineEndingRaw}); err != nil {
		log.Fatal(err)
	}
	defer console.Deinit()

	state, err := terminal.MakeRaw(0)
	if err != nil {
		log.Fatalf("raw terminal: %v", err)
	}
	defer terminal.Restore(0, state)

	fmt.Printf("attached to %s at %d baud, detach with ^]\r\n", *device, *baud)

	done := make(chan struct{}, 1)
	stop := func() {
		select {
		case done <- struct{}{}:
		default:
		}
	}

	// Downlink: serial console -> screen.
	go func() {
		var b [1]byte
		for {
			n, err := console.Read(b[:])
			if err != nil {
				fmt.Printf("\r\nserial_term: read: %v\r\n", err)
				stop()
				return
			}
			if n == 1 {
				os.Stdout.Write(b[:1])
			}
		}
	}()

	// Uplink: keystrokes -> serial console.
	go func() {
		var b [1]byte
		for {
			n, err := os.Stdin.Read(b[:])
			if err != nil || (n == 1 && b[0] == escapeByte) {
				stop()
				return
			}
			if n == 1 {
				if _, err := console.Write(b[:1]); err != nil {
					fmt.Printf("\r\nserial_term: write: %v\r\n", err)
					stop()
					return
				}
			}
		}
	}()

	<-done
	fmt.Print("\r\ndetached\r\n")
}
