// Package mount dispatches path operations to mounted backends. A table
// holds one optional root volume plus named single-component mount points;
// every caller path is resolved against the table's current directory,
// split at the mount point, and forwarded to the owning backend with the
// mount prefix stripped.
package mount

import (
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/pfsys/pfs/internal/pname"
	"github.com/pfsys/pfs/internal/vfs"
)

// Table is the mount dispatcher. It mirrors the filesystem-level capability
// set, with handles bound permanently to the backend that produced them.
type Table struct {
	mu     sync.RWMutex
	root   vfs.Filesystem
	points map[string]vfs.Filesystem
	names  []string // mount order, for listings
	cwd    string
}

// NewTable returns an empty table with "/" as the current directory.
func NewTable() *Table {
	return &Table{points: make(map[string]vfs.Filesystem), cwd: "/"}
}

// Mount attaches a backend. The empty name or "/" designates the root
// volume; every other name is a single path component. A mount point
// shadows the same name on the root volume.
func (t *Table) Mount(name string, fs vfs.Filesystem) error {
	if fs == nil {
		return fmt.Errorf("(mount) %w: nil filesystem", vfs.ErrInvalidArgument)
	}

	name = strings.Trim(name, "/")

	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" {
		if t.root != nil {
			return fmt.Errorf("(mount) %w: root volume already mounted", vfs.ErrInvalidArgument)
		}
		t.root = fs
		slog.Info("Volume mounted", "at", "/")

		return nil
	}

	if strings.ContainsRune(name, '/') {
		return fmt.Errorf("(mount) %w: mount name %q is not a single component",
			vfs.ErrInvalidArgument, name)
	}
	if _, ok := t.points[name]; ok {
		return fmt.Errorf("(mount) %w: %q already mounted", vfs.ErrInvalidArgument, name)
	}

	t.points[name] = fs
	t.names = append(t.names, name)
	slog.Info("Volume mounted", "at", "/"+name)

	return nil
}

// Resolve canonicalizes a caller path against the current directory and
// returns the owning backend together with the backend-relative remainder.
func (t *Table) Resolve(name string) (vfs.Filesystem, string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.resolveLocked(name)
}

func (t *Table) resolveLocked(name string) (vfs.Filesystem, string, error) {
	full := pname.Join(t.cwd, name)

	head, rest := splitPoint(full)
	if fs, ok := t.points[head]; ok {
		return fs, rest, nil
	}

	if t.root == nil {
		return nil, "", fmt.Errorf("(mount) %w: no volume for %s", vfs.ErrNotExist, full)
	}

	return t.root, full, nil
}

// splitPoint separates the first component of an absolute canonical path
// from the remainder, which keeps its leading separator.
func splitPoint(full string) (string, string) {
	trimmed := strings.TrimPrefix(full, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i], trimmed[i:]
	}

	return trimmed, "/"
}

// Chdir canonicalizes and records a new current directory after checking
// that the target resolves to a directory.
func (t *Table) Chdir(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	full := pname.Join(t.cwd, name)

	if head, _ := splitPoint(full); head != "" {
		fs, rest, err := t.resolveLocked(full)
		if err != nil {
			return err
		}
		fi, err := fs.Stat(rest)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			return fmt.Errorf("(mount) %w: %s is not a directory", vfs.ErrInvalidArgument, full)
		}
	}

	t.cwd = full

	return nil
}

// Getwd returns the current directory.
func (t *Table) Getwd() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.cwd
}

// MountPoints returns the non-root mount names in mount order.
func (t *Table) MountPoints() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]string(nil), t.names...)
}

func (t *Table) Open(name string, flags vfs.OpenFlag) (vfs.File, error) {
	fs, rest, err := t.Resolve(name)
	if err != nil {
		return nil, err
	}

	return fs.Open(rest, flags)
}

func (t *Table) Stat(name string) (vfs.FileInfo, error) {
	t.mu.RLock()
	full := pname.Join(t.cwd, name)
	head, rest := splitPoint(full)
	if fs, ok := t.points[head]; ok && rest == "/" {
		t.mu.RUnlock()

		// Stat the mount point itself, not a root-volume entry it shadows.
		fi, err := fs.Stat("/")
		if err != nil {
			return vfs.FileInfo{}, err
		}
		fi.Name = head

		return fi, nil
	}
	t.mu.RUnlock()

	fs, rest, err := t.Resolve(name)
	if err != nil {
		return vfs.FileInfo{}, err
	}

	return fs.Stat(rest)
}

// Rename forwards within a single backend; a rename whose source and
// destination resolve to different backends is rejected.
func (t *Table) Rename(oldName string, newName string) error {
	oldFS, oldRest, err := t.Resolve(oldName)
	if err != nil {
		return err
	}
	newFS, newRest, err := t.Resolve(newName)
	if err != nil {
		return err
	}
	if oldFS != newFS {
		return fmt.Errorf("(mount) %w: rename crosses volumes", vfs.ErrInvalidArgument)
	}

	return oldFS.Rename(oldRest, newRest)
}

func (t *Table) Remove(name string) error {
	fs, rest, err := t.Resolve(name)
	if err != nil {
		return err
	}

	return fs.Remove(rest)
}

func (t *Table) Mkdir(name string, mode iofs.FileMode) error {
	fs, rest, err := t.Resolve(name)
	if err != nil {
		return err
	}

	return fs.Mkdir(rest, mode)
}

func (t *Table) Rmdir(name string) error {
	fs, rest, err := t.Resolve(name)
	if err != nil {
		return err
	}

	return fs.Rmdir(rest)
}

func (t *Table) Chmod(name string, mode iofs.FileMode) error {
	fs, rest, err := t.Resolve(name)
	if err != nil {
		return err
	}

	return fs.Chmod(rest, mode)
}

// OpenDir opens a directory handle. The root directory interleaves the
// root volume's own listing with the mount points.
func (t *Table) OpenDir(name string) (vfs.Dir, error) {
	t.mu.RLock()
	full := pname.Join(t.cwd, name)
	head, rest := splitPoint(full)

	if head == "" {
		points := append([]string(nil), t.names...)
		root := t.root
		t.mu.RUnlock()

		var inner vfs.Dir
		if root != nil {
			var err error
			inner, err = root.OpenDir("/")
			if err != nil {
				return nil, err
			}
		}

		return &rootDir{inner: inner, points: points}, nil
	}

	if fs, ok := t.points[head]; ok {
		t.mu.RUnlock()

		return fs.OpenDir(rest)
	}
	root := t.root
	t.mu.RUnlock()

	if root == nil {
		return nil, fmt.Errorf("(mount) %w: no volume for %s", vfs.ErrNotExist, full)
	}

	return root.OpenDir(full)
}

// rootDir iterates the root volume's entries, then the mount points. Mount
// points shadow root-volume entries of the same name, so shadowed entries
// are skipped.
type rootDir struct {
	inner  vfs.Dir
	points []string
	pos    int
}

func (d *rootDir) Read() (vfs.Entry, error) {
	for d.inner != nil {
		ent, err := d.inner.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return vfs.Entry{}, err
		}
		if d.shadowed(ent.Name) {
			continue
		}

		return ent, nil
	}

	if d.pos >= len(d.points) {
		return vfs.Entry{}, io.EOF
	}

	name := d.points[d.pos]
	d.pos++

	return vfs.Entry{Name: name, Mode: iofs.ModeDir | 0o555}, nil
}

func (d *rootDir) shadowed(name string) bool {
	for _, p := range d.points {
		if p == name {
			return true
		}
	}

	return false
}

func (d *rootDir) Close() error {
	if d.inner != nil {
		return d.inner.Close()
	}

	return nil
}
