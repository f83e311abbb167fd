// Package flashfs adapts the [littlefs] backend library onto the pfs
// dispatch contract: POSIX-shaped flags, io seek origins and the common
// error taxonomy on the outside, the library's native flag and error spaces
// on the inside.
package flashfs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"

	"github.com/pfsys/pfs/internal/littlefs"
	"github.com/pfsys/pfs/internal/vfs"
)

// EntryNameMax caps directory entry names copied out of the backend.
const EntryNameMax = 255

// Filesystem implements all three capability sets of the dispatch contract
// over one littlefs instance.
type Filesystem struct {
	lfs *littlefs.FS
}

// New mounts a flash volume described by the block configuration. A failed
// mount is retried exactly once after an automatic reformat; a second
// failure yields no filesystem.
func New(cfg littlefs.Config) (*Filesystem, error) {
	lfs, err := littlefs.New(cfg)
	if err != nil {
		return nil, translate(err)
	}

	if err := lfs.Mount(); err != nil {
		slog.Warn("Flash mount failed, reformatting volume", "err", err)

		if err := lfs.Format(); err != nil {
			return nil, fmt.Errorf("(flashfs) %w: format: %w", vfs.ErrNotReady, err)
		}
		if err := lfs.Mount(); err != nil {
			return nil, fmt.Errorf("(flashfs) %w: remount: %w", vfs.ErrNotReady, err)
		}
	}

	return &Filesystem{lfs: lfs}, nil
}

// translate maps a backend error into the common taxonomy, wrapping the
// native code so it stays inspectable.
func translate(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, littlefs.ErrNoEnt):
		return fmt.Errorf("(flashfs) %w: %w", vfs.ErrNotExist, err)
	case errors.Is(err, littlefs.ErrInval), errors.Is(err, littlefs.ErrNameTooLong):
		return fmt.Errorf("(flashfs) %w: %w", vfs.ErrInvalidArgument, err)
	default:
		return fmt.Errorf("(flashfs) backend: %w", err)
	}
}

func translateFlags(flags vfs.OpenFlag) littlefs.OpenFlag {
	var of littlefs.OpenFlag

	switch flags & vfs.AccessMask {
	case vfs.ReadOnly:
		of = littlefs.ORdOnly
	case vfs.WriteOnly:
		of = littlefs.OWrOnly
	case vfs.ReadWrite:
		of = littlefs.ORdWr
	}

	if flags&vfs.Append != 0 {
		of |= littlefs.OAppend
	}
	if flags&vfs.Create != 0 {
		of |= littlefs.OCreat
	}
	if flags&vfs.Exclusive != 0 {
		of |= littlefs.OExcl
	}
	if flags&vfs.Truncate != 0 {
		of |= littlefs.OTrunc
	}

	return of
}

func translateInfo(info littlefs.Info) vfs.FileInfo {
	mode := iofs.FileMode(0o777)
	if info.Type == littlefs.TypeDir {
		mode |= iofs.ModeDir
	}

	return vfs.FileInfo{
		Name:      info.Name,
		Size:      int64(info.Size),
		Mode:      mode,
		Nlink:     1,
		BlockSize: 1,
		Blocks:    int64(info.Size),
	}
}

// Open opens a file handle bound to this backend.
func (f *Filesystem) Open(name string, flags vfs.OpenFlag) (vfs.File, error) {
	fd, err := f.lfs.OpenFile(name, translateFlags(flags))
	if err != nil {
		return nil, translate(err)
	}

	return &file{fs: f, fd: fd, name: name}, nil
}

// Stat reports the fixed all-access mode mask along with the backend's size
// and type information.
func (f *Filesystem) Stat(name string) (vfs.FileInfo, error) {
	info, err := f.lfs.Stat(name)
	if err != nil {
		return vfs.FileInfo{}, translate(err)
	}

	return translateInfo(info), nil
}

func (f *Filesystem) Rename(oldName string, newName string) error {
	return translate(f.lfs.Rename(oldName, newName))
}

func (f *Filesystem) Remove(name string) error {
	return translate(f.lfs.Remove(name))
}

// Mkdir creates a directory; the mode is accepted for contract symmetry and
// ignored, the backend has no permission model.
func (f *Filesystem) Mkdir(name string, _ iofs.FileMode) error {
	return translate(f.lfs.Mkdir(name))
}

// Rmdir reuses the backend's delete primitive, which already refuses
// populated directories.
func (f *Filesystem) Rmdir(name string) error {
	return translate(f.lfs.Remove(name))
}

func (f *Filesystem) OpenDir(name string) (vfs.Dir, error) {
	dd, err := f.lfs.OpenDir(name)
	if err != nil {
		return nil, translate(err)
	}

	return &dir{dd: dd}, nil
}

// Chmod always fails; the backend stores no permissions.
func (f *Filesystem) Chmod(string, iofs.FileMode) error {
	return fmt.Errorf("(flashfs) %w: no permission model", vfs.ErrInvalidArgument)
}

type file struct {
	vfs.UnsupportedFile

	fs   *Filesystem
	fd   *littlefs.File
	name string
}

func (f *file) Close() error {
	return translate(f.fd.Close())
}

func (f *file) Read(p []byte) (int, error) {
	n, err := f.fd.Read(p)

	return n, translate(err)
}

func (f *file) Write(p []byte) (int, error) {
	n, err := f.fd.Write(p)

	return n, translate(err)
}

func (f *file) Seek(offset int64, whence int) (int64, error) {
	var w littlefs.Whence
	switch whence {
	case io.SeekStart:
		w = littlefs.SeekSet
	case io.SeekCurrent:
		w = littlefs.SeekCur
	case io.SeekEnd:
		w = littlefs.SeekEnd
	default:
		return 0, fmt.Errorf("(flashfs) %w: whence %d", vfs.ErrInvalidArgument, whence)
	}

	pos, err := f.fd.Seek(int(offset), w)

	return int64(pos), translate(err)
}

// Stat reports the committed state under the handle's retained path.
func (f *file) Stat() (vfs.FileInfo, error) {
	return f.fs.Stat(f.name)
}

type dir struct {
	dd *littlefs.Dir
}

// Read copies the next entry name, truncated to [EntryNameMax], or reports
// [io.EOF] once the backend is exhausted.
func (d *dir) Read() (vfs.Entry, error) {
	info, ok, err := d.dd.Read()
	if err != nil {
		return vfs.Entry{}, translate(err)
	}
	if !ok {
		return vfs.Entry{}, io.EOF
	}

	name := info.Name
	if len(name) > EntryNameMax {
		name = name[:EntryNameMax]
	}

	mode := iofs.FileMode(0o777)
	if info.Type == littlefs.TypeDir {
		mode |= iofs.ModeDir
	}

	return vfs.Entry{Name: name, Mode: mode}, nil
}

func (d *dir) Close() error {
	return translate(d.dd.Close())
}
