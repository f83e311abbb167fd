package vfs

import iofs "io/fs"

// UnsupportedFilesystem is an embeddable default for the filesystem-level
// capability set. Every method fails with [ErrNotSupported] and has no side
// effect; backends override only the entries they provide.
type UnsupportedFilesystem struct{}

func (UnsupportedFilesystem) Open(string, OpenFlag) (File, error) {
	return nil, ErrNotSupported
}

func (UnsupportedFilesystem) Stat(string) (FileInfo, error) {
	return FileInfo{}, ErrNotSupported
}

func (UnsupportedFilesystem) Rename(string, string) error {
	return ErrNotSupported
}

func (UnsupportedFilesystem) Remove(string) error {
	return ErrNotSupported
}

func (UnsupportedFilesystem) Mkdir(string, iofs.FileMode) error {
	return ErrNotSupported
}

func (UnsupportedFilesystem) Rmdir(string) error {
	return ErrNotSupported
}

func (UnsupportedFilesystem) OpenDir(string) (Dir, error) {
	return nil, ErrNotSupported
}

func (UnsupportedFilesystem) Chmod(string, iofs.FileMode) error {
	return ErrNotSupported
}

// UnsupportedFile is an embeddable default for the file-level capability set.
type UnsupportedFile struct{}

func (UnsupportedFile) Close() error {
	return ErrNotSupported
}

func (UnsupportedFile) Read([]byte) (int, error) {
	return 0, ErrNotSupported
}

func (UnsupportedFile) Write([]byte) (int, error) {
	return 0, ErrNotSupported
}

func (UnsupportedFile) Seek(int64, int) (int64, error) {
	return 0, ErrNotSupported
}

func (UnsupportedFile) Stat() (FileInfo, error) {
	return FileInfo{}, ErrNotSupported
}

func (UnsupportedFile) IsTerminal() bool {
	return false
}

func (UnsupportedFile) Ioctl(Request, any) error {
	return ErrNotSupported
}

// UnsupportedDir is an embeddable default for the directory-level capability
// set.
type UnsupportedDir struct{}

func (UnsupportedDir) Read() (Entry, error) {
	return Entry{}, ErrNotSupported
}

func (UnsupportedDir) Close() error {
	return ErrNotSupported
}
