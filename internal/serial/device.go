package serial

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/pfsys/pfs/internal/vfs"
)

const (
	// BufferSize is the receive ring buffer capacity; must be a power of
	// two. One slot stays reserved, so BufferSize-1 bytes are usable.
	BufferSize = 512

	bufferMask = BufferSize - 1
)

// DefaultMode terminates reads on a carriage return and rewrites it to a
// newline.
const DefaultMode = vfs.ModeTermChar | vfs.ModeTermToLF | vfs.Mode('\r')

// Device is one serial line. Received bytes flow from the [Port]'s
// interrupt context into the ring buffer; the buffer and the flow-control
// bits are the only state shared across the two concurrency domains, and
// every access is serialized through the device mutex.
type Device struct {
	port Port

	mu   sync.Mutex
	mode vfs.Mode
	tout time.Duration
	rptr int
	wptr int
	data [BufferSize]byte
}

// NewDevice brings up a serial line over a port. Every requested pin is
// validated against the peripheral's alternate-function layout before any
// of them is committed; the handler is installed and the receive interrupt
// unmasked with the ring buffer empty, so ready-to-receive starts asserted.
func NewDevice(port Port, cfg vfs.SerialConfig) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("(serial) %w: bad line format", vfs.ErrInvalidArgument)
	}

	pins := []struct {
		role PinRole
		pin  int
	}{
		{RoleTX, cfg.TxPin},
		{RoleRX, cfg.RxPin},
		{RoleCTS, cfg.CtsPin},
		{RoleRTS, cfg.RtsPin},
	}
	for _, p := range pins {
		if p.pin != vfs.PinNone && !port.PinValid(p.role, p.pin) {
			return nil, fmt.Errorf("(serial) %w: pin %d cannot carry role %d",
				vfs.ErrInvalidArgument, p.pin, p.role)
		}
	}

	if port.Init(cfg.BaudRate) == 0 {
		return nil, fmt.Errorf("(serial) %w: peripheral init failed", vfs.ErrNotReady)
	}

	for _, p := range pins {
		if p.pin != vfs.PinNone {
			port.AttachPin(p.role, p.pin)
		}
	}
	port.SetHardwareFlow(cfg.CtsPin != vfs.PinNone, false)
	port.SetFormat(cfg.DataBits, cfg.StopBits, cfg.Parity)

	dev := &Device{
		port: port,
		mode: DefaultMode,
	}

	port.SetInterruptHandler(dev.OnReceiveInterrupt)
	port.SetReadyToReceive(true)
	port.EnableReceiveInterrupt(true)

	slog.Debug("Serial device up", "baud", cfg.BaudRate, "data", cfg.DataBits,
		"stop", cfg.StopBits, "parity", cfg.Parity)

	return dev, nil
}

// Close tears the underlying peripheral down. Handles opened on the device
// have no close path of their own; the device outlives them.
func (d *Device) Close() {
	d.port.EnableReceiveInterrupt(false)
	d.port.Deinit()
}

// OpenDevice returns a file handle bound to the file-level capability set.
// The device identity is the whole name; the flags carry no meaning here.
func (d *Device) OpenDevice(string, vfs.OpenFlag) (vfs.File, error) {
	return &handle{dev: d}, nil
}

// OnReceiveInterrupt drains pending hardware bytes into the ring buffer.
// It runs in the port's interrupt context, and additionally inside every
// read, since interrupt servicing may lag. When the buffer fills, the RTS
// line is deasserted and the receive interrupt masked until a read drains
// the buffer again.
func (d *Device) OnReceiveInterrupt() {
	d.mu.Lock()
	defer d.mu.Unlock()

	wend := (d.rptr - 1) & bufferMask
	for d.wptr != wend && d.port.Readable() {
		b := d.port.ReadByte()
		if d.mode&vfs.ModeEcho != 0 {
			d.port.WriteByte(b)
		}
		d.data[d.wptr] = b
		d.wptr = (d.wptr + 1) & bufferMask
	}

	if d.wptr == wend {
		d.port.SetReadyToReceive(false)
		d.port.EnableReceiveInterrupt(false)
	}
}

func (d *Device) emptyBuffer() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.rptr == d.wptr
}

func (d *Device) popByte() byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	b := d.data[d.rptr]
	d.rptr = (d.rptr + 1) & bufferMask

	return b
}

func (d *Device) modeWord() vfs.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.mode
}

// read copies buffered bytes out, polling the hardware while waiting. On
// every exit path the RTS line is re-asserted and the receive interrupt
// re-enabled, so flow control recovers even when backpressure never
// engaged.
func (d *Device) read(p []byte) (int, error) {
	defer func() {
		d.mu.Lock()
		d.port.SetReadyToReceive(true)
		d.port.EnableReceiveInterrupt(true)
		d.mu.Unlock()
	}()

	d.mu.Lock()
	tout := d.tout
	d.mu.Unlock()

	var deadline time.Time
	if tout > 0 {
		deadline = time.Now().Add(tout)
	}

	nread := 0
	d.OnReceiveInterrupt()

	for nread < len(p) {
		mode := d.modeWord()

		if d.emptyBuffer() {
			if mode&vfs.ModeNonBlock != 0 {
				break
			}
			if mode&vfs.ModeAnyData != 0 && nread > 0 {
				break
			}
		}

		for d.emptyBuffer() {
			if tout > 0 && !time.Now().Before(deadline) {
				break
			}
			d.OnReceiveInterrupt()
			runtime.Gosched()
		}
		if d.emptyBuffer() {
			break
		}

		b := d.popByte()
		p[nread] = b
		nread++

		if mode&vfs.ModeTermChar != 0 && b == mode.Term() {
			if mode&vfs.ModeTermToLF != 0 {
				p[nread-1] = '\n'
			}

			break
		}
	}

	return nread, nil
}

// write pushes every byte to the hardware synchronously; there is no
// partial-write outcome.
func (d *Device) write(p []byte) (int, error) {
	for _, b := range p {
		d.port.WriteByte(b)
	}

	return len(p), nil
}

func (d *Device) ioctl(req vfs.Request, arg any) error {
	switch req {
	case vfs.ReqSetMode:
		mode, ok := arg.(vfs.Mode)
		if !ok {
			return fmt.Errorf("(serial) %w: want vfs.Mode", vfs.ErrInvalidArgument)
		}
		d.mu.Lock()
		d.mode = mode
		d.mu.Unlock()

	case vfs.ReqPurge:
		d.mu.Lock()
		d.rptr = 0
		d.wptr = 0
		d.mu.Unlock()

	case vfs.ReqCount:
		count, ok := arg.(*int)
		if !ok {
			return fmt.Errorf("(serial) %w: want *int", vfs.ErrInvalidArgument)
		}
		d.mu.Lock()
		*count = (d.wptr - d.rptr) & bufferMask
		d.mu.Unlock()

	case vfs.ReqSetTimeout:
		tout, ok := arg.(time.Duration)
		if !ok {
			return fmt.Errorf("(serial) %w: want time.Duration", vfs.ErrInvalidArgument)
		}
		d.mu.Lock()
		d.tout = tout
		d.mu.Unlock()

	case vfs.ReqSetSerialConfig:
		sc, ok := arg.(*vfs.SerialConfig)
		if !ok {
			return fmt.Errorf("(serial) %w: want *vfs.SerialConfig", vfs.ErrInvalidArgument)
		}
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("(serial) %w: bad line format", vfs.ErrInvalidArgument)
		}
		if sc.BaudRate != 0 {
			sc.BaudRate = d.port.SetBaudRate(sc.BaudRate)
		}
		d.port.SetFormat(sc.DataBits, sc.StopBits, sc.Parity)

	default:
		return fmt.Errorf("(serial) %w: unknown request %d", vfs.ErrInvalidArgument, req)
	}

	return nil
}

// handle is a file handle onto a [Device]. Seek, fstat and close are absent
// from the capability set.
type handle struct {
	vfs.UnsupportedFile

	dev *Device
}

func (h *handle) Read(p []byte) (int, error) {
	return h.dev.read(p)
}

func (h *handle) Write(p []byte) (int, error) {
	return h.dev.write(p)
}

func (h *handle) Ioctl(req vfs.Request, arg any) error {
	return h.dev.ioctl(req, arg)
}
