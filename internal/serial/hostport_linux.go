package serial

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/pfsys/pfs/internal/vfs"
	"golang.org/x/sys/unix"
)

//nolint:gochecknoglobals
var baudFlags = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

// HostPort is a [Port] over a host tty. The receive "interrupt" is a poll
// goroutine invoking the installed handler whenever the descriptor becomes
// readable; masking the interrupt stops the goroutine, which is the same
// hysteresis a masked hardware interrupt line gives.
type HostPort struct {
	fd int

	mu      sync.Mutex
	handler func()
	enabled bool
	stop    chan struct{}
}

// OpenHostPort opens a tty in raw non-blocking mode.
func OpenHostPort(path string) (*HostPort, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("(serial) open %s: %w", path, err)
	}

	return &HostPort{fd: fd}, nil
}

func (p *HostPort) termios() (*unix.Termios, error) {
	tio, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return nil, fmt.Errorf("(serial) tcgetattr: %w", err)
	}

	return tio, nil
}

func (p *HostPort) apply(tio *unix.Termios) bool {
	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, tio); err != nil {
		slog.Warn("Serial termios update failed", "err", err)

		return false
	}

	return true
}

// Init puts the tty into raw mode at the requested baud rate. A zero rate
// keeps the tty's current rate.
func (p *HostPort) Init(baud int) int {
	tio, err := p.termios()
	if err != nil {
		return 0
	}

	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag |= unix.CLOCAL | unix.CREAD
	tio.Cc[unix.VMIN] = 0
	tio.Cc[unix.VTIME] = 0

	actual := baud
	if baud != 0 {
		flag, ok := baudFlags[baud]
		if !ok {
			return 0
		}
		tio.Cflag &^= unix.CBAUD
		tio.Cflag |= flag
		tio.Ispeed = flag
		tio.Ospeed = flag
	} else {
		actual = p.currentBaud(tio)
	}

	if !p.apply(tio) {
		return 0
	}

	return actual
}

func (p *HostPort) currentBaud(tio *unix.Termios) int {
	flag := tio.Cflag & unix.CBAUD
	for rate, f := range baudFlags {
		if f == flag {
			return rate
		}
	}

	return 9600
}

// Deinit stops the poller and closes the descriptor.
func (p *HostPort) Deinit() {
	p.EnableReceiveInterrupt(false)
	_ = unix.Close(p.fd)
}

func (p *HostPort) Readable() bool {
	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)

	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

func (p *HostPort) ReadByte() byte {
	var b [1]byte
	if n, err := unix.Read(p.fd, b[:]); err != nil || n != 1 {
		return 0
	}

	return b[0]
}

func (p *HostPort) WriteByte(b byte) {
	buf := []byte{b}
	for {
		_, err := unix.Write(p.fd, buf)
		if err != unix.EAGAIN {
			return
		}

		fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLOUT}}
		_, _ = unix.Poll(fds, -1)
	}
}

func (p *HostPort) SetBaudRate(baud int) int {
	flag, ok := baudFlags[baud]
	if !ok {
		return 0
	}

	tio, err := p.termios()
	if err != nil {
		return 0
	}

	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= flag
	tio.Ispeed = flag
	tio.Ospeed = flag

	if !p.apply(tio) {
		return 0
	}

	return baud
}

func (p *HostPort) SetFormat(dataBits int, stopBits int, parity vfs.Parity) {
	tio, err := p.termios()
	if err != nil {
		return
	}

	tio.Cflag &^= unix.CSIZE
	switch dataBits {
	case 5:
		tio.Cflag |= unix.CS5
	case 6:
		tio.Cflag |= unix.CS6
	case 7:
		tio.Cflag |= unix.CS7
	default:
		tio.Cflag |= unix.CS8
	}

	if stopBits == 2 {
		tio.Cflag |= unix.CSTOPB
	} else {
		tio.Cflag &^= unix.CSTOPB
	}

	switch parity {
	case vfs.ParityOdd:
		tio.Cflag |= unix.PARENB | unix.PARODD
	case vfs.ParityEven:
		tio.Cflag |= unix.PARENB
		tio.Cflag &^= unix.PARODD
	default:
		tio.Cflag &^= unix.PARENB | unix.PARODD
	}

	p.apply(tio)
}

func (p *HostPort) SetHardwareFlow(cts bool, _ bool) {
	tio, err := p.termios()
	if err != nil {
		return
	}

	if cts {
		tio.Cflag |= unix.CRTSCTS
	} else {
		tio.Cflag &^= unix.CRTSCTS
	}

	p.apply(tio)
}

// PinValid always fails: a host tty carries no routable pins, so any pin
// request in a serial configuration is rejected before hardware is touched.
func (p *HostPort) PinValid(PinRole, int) bool {
	return false
}

func (p *HostPort) AttachPin(PinRole, int) {}

func (p *HostPort) SetReadyToReceive(asserted bool) {
	req := uint(unix.TIOCMBIC)
	if asserted {
		req = unix.TIOCMBIS
	}

	if err := unix.IoctlSetPointerInt(p.fd, req, unix.TIOCM_RTS); err != nil {
		slog.Debug("Serial RTS update failed", "err", err)
	}
}

func (p *HostPort) SetInterruptHandler(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handler = fn
}

func (p *HostPort) EnableReceiveInterrupt(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if enabled == p.enabled {
		return
	}
	p.enabled = enabled

	if !enabled {
		close(p.stop)
		p.stop = nil

		return
	}

	stop := make(chan struct{})
	p.stop = stop
	handler := p.handler

	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}

			fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
			n, err := unix.Poll(fds, 100)
			if err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0 && handler != nil {
				handler()
			}
		}
	}()
}
