// Package vfs defines the dispatch contract between the mount layer and the
// storage and device backends: three capability sets (filesystem-level,
// file-level and directory-level operations), the shared flag, mode and
// configuration words, and the common error taxonomy.
//
// A backend implements only the capability sets it supports; missing
// operations are expressed by embedding one of the Unsupported defaults,
// whose methods fail with [ErrNotSupported] and have no side effect.
package vfs

import (
	iofs "io/fs"
	"time"
)

// OpenFlag is the POSIX-shaped open flag word shared by all backends.
type OpenFlag int

const (
	ReadOnly  OpenFlag = 0x0
	WriteOnly OpenFlag = 0x1
	ReadWrite OpenFlag = 0x2

	// AccessMask selects the access mode bits of an [OpenFlag].
	AccessMask OpenFlag = 0x3

	Append    OpenFlag = 0x0008
	Create    OpenFlag = 0x0200
	Truncate  OpenFlag = 0x0400
	Exclusive OpenFlag = 0x0800
)

// FileInfo describes a single file, directory or device, as reported by the
// stat operations of a backend.
type FileInfo struct {
	Name      string
	Size      int64
	Mode      iofs.FileMode
	Nlink     int
	BlockSize int
	Blocks    int64
}

// IsDir returns whether the described entry is a directory.
func (fi FileInfo) IsDir() bool {
	return fi.Mode.IsDir()
}

// Entry is a single directory entry, reused across [Dir] read calls.
type Entry struct {
	Name string
	Mode iofs.FileMode
}

// Filesystem is the filesystem-level capability set. Handles returned by
// Open and OpenDir are bound to their backend for their entire lifetime.
type Filesystem interface {
	Open(name string, flags OpenFlag) (File, error)
	Stat(name string) (FileInfo, error)
	Rename(oldName string, newName string) error
	Remove(name string) error
	Mkdir(name string, mode iofs.FileMode) error
	Rmdir(name string) error
	OpenDir(name string) (Dir, error)
	Chmod(name string, mode iofs.FileMode) error
}

// File is the file-level capability set.
//
// Read may legitimately return a zero count with a nil error where a
// backend's mode word permits it (non-blocking devices); callers must not
// assume [io.Reader] end-of-stream semantics.
type File interface {
	Close() error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Stat() (FileInfo, error)
	IsTerminal() bool
	Ioctl(req Request, arg any) error
}

// Dir is the directory-level capability set. Read returns [io.EOF] once the
// directory is exhausted; that is not an error condition.
type Dir interface {
	Read() (Entry, error)
	Close() error
}

// Device is the device-level entry point for backends that have no
// hierarchical naming: the device identity is the whole name. A Device
// never implements [Filesystem].
type Device interface {
	OpenDevice(name string, flags OpenFlag) (File, error)
}

// Request is an ioctl request code.
type Request int

const (
	ReqSetMode Request = iota + 1
	ReqPurge
	ReqCount
	ReqSetTimeout
	ReqSetSerialConfig
)

// Mode is the device mode word: independent flag bits plus, when
// [ModeTermChar] is set, the terminator byte embedded in the low byte.
type Mode int

const (
	// TermMask selects the embedded terminator byte.
	TermMask Mode = 0x00FF

	// ModeEcho echoes received bytes back to the device.
	ModeEcho Mode = 0x0100

	// ModeNonBlock makes reads return immediately when no data is pending.
	ModeNonBlock Mode = 0x0200

	// ModeAnyData makes reads return as soon as at least one byte was copied.
	ModeAnyData Mode = 0x0400

	// ModeTermChar makes reads stop after consuming the embedded terminator.
	ModeTermChar Mode = 0x0800

	// ModeTermToLF rewrites a matched terminator to a newline.
	ModeTermToLF Mode = 0x1000
)

// Term returns the embedded terminator byte of a mode word.
func (m Mode) Term() byte {
	return byte(m & TermMask)
}

// Parity is a serial line parity setting.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// PinNone marks an unwired pin assignment in a [SerialConfig].
const PinNone = -1

// SerialConfig is the serial line configuration record. A zero BaudRate
// leaves the current baud rate unchanged. Pin assignments set to [PinNone]
// are not wired.
type SerialConfig struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   Parity

	TxPin  int
	RxPin  int
	CtsPin int
	RtsPin int
}

// Validate range-checks the format fields of a serial configuration.
func (sc SerialConfig) Validate() error {
	if sc.DataBits < 5 || sc.DataBits > 8 {
		return ErrInvalidArgument
	}
	if sc.StopBits < 1 || sc.StopBits > 2 {
		return ErrInvalidArgument
	}
	if sc.Parity != ParityNone && sc.Parity != ParityOdd && sc.Parity != ParityEven {
		return ErrInvalidArgument
	}

	return nil
}

// Timeout is the read timeout carried by [ReqSetTimeout]; zero means
// unbounded.
type Timeout = time.Duration
