// Package serial implements the character-device side of the dispatch
// contract: an interrupt-fed ring buffer over a UART-class peripheral with
// hardware flow-control hysteresis, plus two simpler stream devices.
package serial

import "github.com/pfsys/pfs/internal/vfs"

// PinRole identifies the function a pin is asked to carry. The numeric
// values equal the alternate-function offsets of the peripheral pin layout.
type PinRole int

const (
	RoleTX PinRole = iota
	RoleRX
	RoleCTS
	RoleRTS
)

// PinValid reports whether a pin can carry the given role on a peripheral
// instance. Each instance exposes four alternate-function pin groups; a pin
// is valid when it sits at the role's offset within one of them.
func PinValid(instance int, role PinRole, pin int) bool {
	if pin < 0 || pin > 29 {
		return false
	}

	base := pin - int(role)
	switch instance {
	case 0:
		return base == 0 || base == 12 || base == 16 || base == 28
	case 1:
		return base == 4 || base == 8 || base == 20 || base == 24
	}

	return false
}

// Port is the hardware seam of a [Device]. Implementations wrap one
// UART-class peripheral; all methods are expected to be cheap and
// non-blocking except WriteByte, which blocks until the hardware has
// accepted the byte.
type Port interface {
	// Init brings the peripheral up at the requested baud rate, returning
	// the actual rate achieved, or zero on failure.
	Init(baud int) int

	// Deinit releases the peripheral.
	Deinit()

	// Readable reports whether received bytes are pending in hardware.
	Readable() bool

	// ReadByte pops one pending byte; only valid after Readable.
	ReadByte() byte

	// WriteByte blocks until the hardware has accepted the byte.
	WriteByte(b byte)

	// SetBaudRate reconfigures the baud rate, returning the actual rate
	// achieved, or zero on failure.
	SetBaudRate(baud int) int

	// SetFormat reconfigures data bits, stop bits and parity.
	SetFormat(dataBits int, stopBits int, parity vfs.Parity)

	// SetHardwareFlow enables or disables CTS/RTS hardware flow control.
	SetHardwareFlow(cts bool, rts bool)

	// PinValid reports whether a pin can carry a role on this peripheral.
	PinValid(role PinRole, pin int) bool

	// AttachPin routes a validated pin to the peripheral.
	AttachPin(role PinRole, pin int)

	// SetReadyToReceive asserts or deasserts the RTS line, the
	// backpressure signal towards the remote sender.
	SetReadyToReceive(asserted bool)

	// SetInterruptHandler installs the receive interrupt callback. The
	// port invokes it from its own interrupt context whenever received
	// data becomes pending.
	SetInterruptHandler(fn func())

	// EnableReceiveInterrupt masks or unmasks the receive interrupt.
	// Enabling an already-enabled interrupt is safe.
	EnableReceiveInterrupt(enabled bool)
}
