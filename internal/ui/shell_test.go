package ui

import (
	"testing"

	"github.com/pfsys/pfs/internal/devfs"
	"github.com/pfsys/pfs/internal/flashfs"
	"github.com/pfsys/pfs/internal/littlefs"
	"github.com/pfsys/pfs/internal/mount"
	"github.com/pfsys/pfs/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ioctlDevice records every request issued to its handles.
type ioctlDevice struct {
	reqs []vfs.Request
}

type ioctlHandle struct {
	vfs.UnsupportedFile

	dev *ioctlDevice
}

func (d *ioctlDevice) OpenDevice(string, vfs.OpenFlag) (vfs.File, error) {
	return &ioctlHandle{dev: d}, nil
}

func (h *ioctlHandle) Ioctl(req vfs.Request, _ any) error {
	h.dev.reqs = append(h.dev.reqs, req)

	return nil
}

func newTestShell(t *testing.T) (*Shell, *ioctlDevice) {
	t.Helper()

	blocks := make([][]byte, 32)
	for i := range blocks {
		blocks[i] = make([]byte, 512)
		for j := range blocks[i] {
			blocks[i][j] = 0xFF
		}
	}

	cfg := littlefs.Config{
		BlockSize:  512,
		BlockCount: len(blocks),
		Read: func(block, off int, p []byte) error {
			copy(p, blocks[block][off:])

			return nil
		},
		Prog: func(block, off int, p []byte) error {
			copy(blocks[block][off:], p)

			return nil
		},
		Erase: func(block int) error {
			for j := range blocks[block] {
				blocks[block][j] = 0xFF
			}

			return nil
		},
	}

	flash, err := flashfs.New(cfg)
	require.NoError(t, err)

	dev := &ioctlDevice{}
	devices := devfs.New()
	require.NoError(t, devices.MkNod("uart0", dev))

	table := mount.NewTable()
	require.NoError(t, table.Mount("/", flash))
	require.NoError(t, table.Mount("dev", devices))

	return NewShell(table), dev
}

func TestShellFileLifecycle(t *testing.T) {
	t.Parallel()
	shell, _ := newTestShell(t)

	assert.Equal(t, "/", shell.Run("pwd"))
	assert.Empty(t, shell.Run("write note.txt hello flash"))
	assert.Equal(t, "hello flash", shell.Run("cat note.txt"))

	assert.Empty(t, shell.Run("append note.txt more"))
	assert.Equal(t, "hello flash\nmore", shell.Run("cat note.txt"))

	assert.Empty(t, shell.Run("mv note.txt renamed.txt"))
	assert.Equal(t, "hello flash\nmore", shell.Run("cat renamed.txt"))

	assert.Empty(t, shell.Run("rm renamed.txt"))
	assert.Contains(t, shell.Run("cat renamed.txt"), "cat:")
}

func TestShellDirectories(t *testing.T) {
	t.Parallel()
	shell, _ := newTestShell(t)

	assert.Empty(t, shell.Run("mkdir docs"))
	assert.Empty(t, shell.Run("cd docs"))
	assert.Equal(t, "/docs", shell.Run("pwd"))

	assert.Empty(t, shell.Run("write readme contents here"))
	listing := shell.Run("ls")
	assert.Contains(t, listing, "readme")

	assert.Empty(t, shell.Run("cd .."))
	assert.Contains(t, shell.Run("rmdir docs"), "rmdir:") // not empty
	assert.Empty(t, shell.Run("rm docs/readme"))
	assert.Empty(t, shell.Run("rmdir docs"))
}

func TestShellStatAndMounts(t *testing.T) {
	t.Parallel()
	shell, _ := newTestShell(t)

	assert.Empty(t, shell.Run("write file.bin payload"))
	out := shell.Run("stat file.bin")
	assert.Contains(t, out, "name: ")
	assert.Contains(t, out, "type: file")

	assert.Equal(t, "dev", shell.Run("mounts"))

	rootListing := shell.Run("ls /")
	assert.Contains(t, rootListing, "dev/")
	assert.Contains(t, rootListing, "file.bin")
}

func TestShellDeviceRequests(t *testing.T) {
	t.Parallel()
	shell, dev := newTestShell(t)

	assert.Empty(t, shell.Run("purge /dev/uart0"))
	assert.Empty(t, shell.Run("mode /dev/uart0 0x1800"))
	assert.Empty(t, shell.Run("timeout /dev/uart0 250ms"))
	assert.Equal(t, []vfs.Request{vfs.ReqPurge, vfs.ReqSetMode, vfs.ReqSetTimeout}, dev.reqs)

	assert.Contains(t, shell.Run("mode /dev/uart0 zz"), "mode:")
	assert.Contains(t, shell.Run("timeout /dev/uart0 soon"), "timeout:")
}

func TestShellErrorsAndHelp(t *testing.T) {
	t.Parallel()
	shell, _ := newTestShell(t)

	assert.Empty(t, shell.Run("   "))
	assert.Contains(t, shell.Run("frobnicate"), "unknown command")
	assert.Contains(t, shell.Run("cd"), "usage:")
	assert.Contains(t, shell.Run("cd /missing"), "cd:")
	assert.Contains(t, shell.Run("help"), "working directory")
}
