package vfs_test

import (
	"testing"

	"github.com/pfsys/pfs/internal/vfs"
	"github.com/stretchr/testify/assert"
)

type bareFS struct {
	vfs.UnsupportedFilesystem
}

type bareFile struct {
	vfs.UnsupportedFile
}

type bareDir struct {
	vfs.UnsupportedDir
}

func TestUnsupportedDefaults(t *testing.T) {
	t.Parallel()

	var fs vfs.Filesystem = &bareFS{}

	_, err := fs.Open("x", vfs.ReadOnly)
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	_, err = fs.Stat("x")
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	_, err = fs.OpenDir("x")
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Rename("a", "b"), vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Remove("x"), vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Mkdir("x", 0o755), vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Rmdir("x"), vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Chmod("x", 0o644), vfs.ErrNotSupported)

	var fd vfs.File = &bareFile{}

	assert.ErrorIs(t, fd.Close(), vfs.ErrNotSupported)
	_, err = fd.Read(nil)
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	_, err = fd.Write(nil)
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	_, err = fd.Seek(0, 0)
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	_, err = fd.Stat()
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	assert.ErrorIs(t, fd.Ioctl(vfs.ReqPurge, nil), vfs.ErrNotSupported)
	assert.False(t, fd.IsTerminal())

	var dir vfs.Dir = &bareDir{}

	_, err = dir.Read()
	assert.ErrorIs(t, err, vfs.ErrNotSupported)
	assert.ErrorIs(t, dir.Close(), vfs.ErrNotSupported)
}

func TestSerialConfigValidate(t *testing.T) {
	t.Parallel()

	good := vfs.SerialConfig{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: vfs.ParityNone}
	assert.NoError(t, good.Validate())

	cases := []struct {
		name string
		mut  func(*vfs.SerialConfig)
	}{
		{"DataBitsLow", func(sc *vfs.SerialConfig) { sc.DataBits = 4 }},
		{"DataBitsHigh", func(sc *vfs.SerialConfig) { sc.DataBits = 9 }},
		{"StopBitsLow", func(sc *vfs.SerialConfig) { sc.StopBits = 0 }},
		{"StopBitsHigh", func(sc *vfs.SerialConfig) { sc.StopBits = 3 }},
		{"BadParity", func(sc *vfs.SerialConfig) { sc.Parity = vfs.Parity(7) }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sc := good
			tc.mut(&sc)
			assert.ErrorIs(t, sc.Validate(), vfs.ErrInvalidArgument)
		})
	}
}

func TestModeWord(t *testing.T) {
	t.Parallel()

	mode := vfs.ModeTermChar | vfs.ModeTermToLF | vfs.Mode('\r')
	assert.Equal(t, byte('\r'), mode.Term())
	assert.NotZero(t, mode&vfs.ModeTermChar)
	assert.Zero(t, mode&vfs.ModeEcho)

	assert.Equal(t, byte(0), (vfs.ModeNonBlock | vfs.ModeAnyData).Term())
}

func TestFileInfoIsDir(t *testing.T) {
	t.Parallel()

	assert.False(t, vfs.FileInfo{Mode: 0o644}.IsDir())
}
