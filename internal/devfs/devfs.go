// Package devfs provides a flat namespace of character devices behind the
// filesystem-level capability set. Devices register under a node name; a
// node name ending in '*' claims every open whose name carries the prefix,
// and the opened name is handed to the device unmodified, so one device can
// multiplex a family of names.
package devfs

import (
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pfsys/pfs/internal/vfs"
)

// FS is the device registry. The zero value is not usable; construct with
// [New].
type FS struct {
	vfs.UnsupportedFilesystem

	mu    sync.RWMutex
	nodes map[string]vfs.Device
}

// New returns an empty device registry.
func New() *FS {
	return &FS{nodes: make(map[string]vfs.Device)}
}

// MkNod registers a device under a node name. A trailing '*' makes the node
// a prefix claim. Node names are single components; re-registering a name
// replaces the previous device.
func (f *FS) MkNod(name string, dev vfs.Device) error {
	if name == "" || strings.ContainsRune(name, '/') {
		return fmt.Errorf("(devfs) %w: bad node name %q", vfs.ErrInvalidArgument, name)
	}
	if dev == nil {
		return fmt.Errorf("(devfs) %w: nil device for %q", vfs.ErrInvalidArgument, name)
	}

	f.mu.Lock()
	f.nodes[name] = dev
	f.mu.Unlock()

	slog.Debug("Device node registered", "name", name)

	return nil
}

// lookup resolves an opened name to its claiming device. Exact nodes win
// over prefix claims.
func (f *FS) lookup(name string) (vfs.Device, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if dev, ok := f.nodes[name]; ok {
		return dev, true
	}
	for node, dev := range f.nodes {
		if strings.HasSuffix(node, "*") && strings.HasPrefix(name, node[:len(node)-1]) {
			return dev, true
		}
	}

	return nil, false
}

func trimName(name string) string {
	return strings.TrimPrefix(name, "/")
}

func (f *FS) Open(name string, flags vfs.OpenFlag) (vfs.File, error) {
	name = trimName(name)

	dev, ok := f.lookup(name)
	if !ok {
		return nil, fmt.Errorf("(devfs) %w: %s", vfs.ErrNotExist, name)
	}

	return dev.OpenDevice(name, flags)
}

func (f *FS) Stat(name string) (vfs.FileInfo, error) {
	name = trimName(name)

	if name == "" {
		return vfs.FileInfo{Name: "/", Mode: iofs.ModeDir | 0o555, Nlink: 1}, nil
	}

	if _, ok := f.lookup(name); !ok {
		return vfs.FileInfo{}, fmt.Errorf("(devfs) %w: %s", vfs.ErrNotExist, name)
	}

	return vfs.FileInfo{
		Name:  name,
		Mode:  iofs.ModeDevice | iofs.ModeCharDevice | 0o666,
		Nlink: 1,
	}, nil
}

func (f *FS) OpenDir(name string) (vfs.Dir, error) {
	if trimName(name) != "" {
		return nil, fmt.Errorf("(devfs) %w: %s", vfs.ErrNotExist, name)
	}

	f.mu.RLock()
	names := make([]string, 0, len(f.nodes))
	for node := range f.nodes {
		names = append(names, strings.TrimSuffix(node, "*"))
	}
	f.mu.RUnlock()
	sort.Strings(names)

	return &dir{names: names}, nil
}

// dir iterates a snapshot of the registry taken at open time.
type dir struct {
	names []string
	pos   int
}

func (d *dir) Read() (vfs.Entry, error) {
	if d.pos >= len(d.names) {
		return vfs.Entry{}, io.EOF
	}

	name := d.names[d.pos]
	d.pos++

	return vfs.Entry{Name: name, Mode: iofs.ModeDevice | iofs.ModeCharDevice | 0o666}, nil
}

func (d *dir) Close() error { return nil }
