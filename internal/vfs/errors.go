package vfs

import "errors"

var (
	// ErrNotSupported is an error that occurs when an operation is called
	// on a backend that does not provide it.
	ErrNotSupported = errors.New("operation not supported")

	// ErrInvalidArgument is an error that occurs on a bad ioctl request or
	// a malformed serial configuration.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotReady is an error that occurs when a backend could not be
	// mounted or initialized.
	ErrNotReady = errors.New("backend not ready")

	// ErrOutOfMemory is an error that occurs when a backend cannot obtain
	// the fixed-size resources an operation requires.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrNotExist is an error that occurs when a name resolves to no file,
	// directory or device.
	ErrNotExist = errors.New("no such file or device")
)
