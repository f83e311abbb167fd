package serial

import (
	"fmt"

	"github.com/pfsys/pfs/internal/vfs"
)

// Output is a write-only character device over a plain byte sink, for
// displays and similar one-way hardware.
type Output struct {
	sink func(b byte)
}

// NewOutput wraps a byte sink as a device.
func NewOutput(sink func(b byte)) *Output {
	return &Output{sink: sink}
}

// OpenDevice rejects anything but a write-only open.
func (o *Output) OpenDevice(_ string, flags vfs.OpenFlag) (vfs.File, error) {
	if flags&vfs.AccessMask != vfs.WriteOnly {
		return nil, fmt.Errorf("(serial) %w: output device is write-only", vfs.ErrInvalidArgument)
	}

	return &outputHandle{sink: o.sink}, nil
}

type outputHandle struct {
	vfs.UnsupportedFile

	sink func(b byte)
}

func (h *outputHandle) Write(p []byte) (int, error) {
	for _, b := range p {
		h.sink(b)
	}

	return len(p), nil
}
