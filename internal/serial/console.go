package serial

import (
	"fmt"
	"io"

	"github.com/pfsys/pfs/internal/vfs"
)

// Console is a terminal-backed character device: reads and writes pass
// straight through to the underlying stream, and handles report themselves
// as terminals.
type Console struct {
	rw io.ReadWriter
}

// NewConsole wraps a terminal stream as a device.
func NewConsole(rw io.ReadWriter) *Console {
	return &Console{rw: rw}
}

func (c *Console) OpenDevice(string, vfs.OpenFlag) (vfs.File, error) {
	return &consoleHandle{rw: c.rw}, nil
}

type consoleHandle struct {
	vfs.UnsupportedFile

	rw io.ReadWriter
}

// Read blocks until the whole buffer is filled, matching the console
// semantics of the serial line discipline this device stands in for.
func (h *consoleHandle) Read(p []byte) (int, error) {
	if _, err := io.ReadFull(h.rw, p); err != nil {
		return 0, fmt.Errorf("(serial) console read: %w", err)
	}

	return len(p), nil
}

func (h *consoleHandle) Write(p []byte) (int, error) {
	if _, err := h.rw.Write(p); err != nil {
		return 0, fmt.Errorf("(serial) console write: %w", err)
	}

	return len(p), nil
}

func (h *consoleHandle) IsTerminal() bool {
	return true
}
