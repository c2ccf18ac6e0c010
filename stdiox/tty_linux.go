//go:build !baremetal

package stdiox

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// TTYConfig holds the parameters for opening a host serial device.
type TTYConfig struct {
	Device   string // e.g. /dev/ttyUSB0, or a pty slave in tests
	BaudRate int    // 0 means 115200
}

// ttyPollTick bounds each readiness poll. The console re-polls in a loop, so
// this only caps how stale a readiness answer can be, not how long a blocking
// read waits overall.
const ttyPollTick = 10 // milliseconds

// TTY adapts a raw-mode host serial device to the UART interface, standing in
// for a memory-mapped peripheral when the console runs on an OS: readiness
// comes from poll(2), the transmit-busy flag from the driver's count of bytes
// not yet on the wire (TIOCOUTQ).
//
// Unlike the hardware bindings its transport calls can fail, surfacing
// device errors to the console as short counts.
type TTY struct {
	fd        int
	file      *os.File
	closeOnce sync.Once
}

var _ UART = (*TTY)(nil)

// OpenTTY opens the device and puts it into raw 8N1 mode at the configured
// baud rate, with unknown rates falling back to 115200.
func OpenTTY(cfg TTYConfig) (*TTY, error) {
	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("stdiox: open %s: %w", cfg.Device, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stdiox: get termios: %w", err)
	}

	// Raw mode: no echo, no line editing, no CR/LF rewriting in the kernel.
	// The console owns line-ending policy; the tty must not second-guess it.
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8

	baud := baudToUnix(cfg.BaudRate)
	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud

	// VMIN=1, VTIME=0: a read returns as soon as one byte is in.
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stdiox: set termios: %w", err)
	}

	// Back to blocking mode now that configuration is done.
	syscall.SetNonblock(fd, false)

	return &TTY{
		fd:   fd,
		file: os.NewFile(uintptr(fd), cfg.Device),
	}, nil
}

// TxReady reports whether the device would accept a byte without blocking.
func (t *TTY) TxReady() bool {
	return t.poll(unix.POLLOUT)
}

// TxWrite writes one byte to the device.
func (t *TTY) TxWrite(b byte) error {
	buf := [1]byte{b}
	_, err := t.file.Write(buf[:])
	return err
}

// TxBusy reports whether the driver still holds bytes that have not reached
// the wire, the host analogue of a shifter-busy flag. It is false on any
// ioctl failure, which errs toward letting a shutdown proceed.
func (t *TTY) TxBusy() bool {
	queued, err := unix.IoctlGetInt(t.fd, unix.TIOCOUTQ)
	if err != nil {
		return false
	}
	return queued > 0
}

// RxReady reports whether a byte is waiting, polling for up to ttyPollTick
// so the console's readiness loop parks in the kernel instead of spinning.
// A hangup or device error also reports ready, so a blocked reader goes on
// to RxRead and surfaces the failure.
func (t *TTY) RxReady() bool {
	return t.poll(unix.POLLIN)
}

// RxRead reads one byte from the device.
func (t *TTY) RxRead() (byte, error) {
	var buf [1]byte
	if _, err := t.file.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// Close releases the device. Safe to call more than once.
func (t *TTY) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.file.Close()
	})
	return err
}

// Name returns the device path the TTY was opened with.
func (t *TTY) Name() string { return t.file.Name() }

func (t *TTY) poll(events int16) bool {
	pfd := []unix.PollFd{{Fd: int32(t.fd), Events: events}}
	n, err := unix.Poll(pfd, ttyPollTick)
	if err != nil || n == 0 {
		return false
	}
	return pfd[0].Revents&(events|unix.POLLHUP|unix.POLLERR) != 0
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	case 460800:
		return unix.B460800
	case 921600:
		return unix.B921600
	default:
		return unix.B115200 // fallback
	}
}
