package devfs_test

import (
	"io"
	iofs "io/fs"
	"testing"

	"github.com/pfsys/pfs/internal/devfs"
	"github.com/pfsys/pfs/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice records the name and flags of every open.
type fakeDevice struct {
	opens []string
}

type fakeHandle struct {
	vfs.UnsupportedFile
}

func (d *fakeDevice) OpenDevice(name string, _ vfs.OpenFlag) (vfs.File, error) {
	d.opens = append(d.opens, name)

	return &fakeHandle{}, nil
}

func TestMkNodValidation(t *testing.T) {
	t.Parallel()
	fs := devfs.New()

	assert.ErrorIs(t, fs.MkNod("", &fakeDevice{}), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, fs.MkNod("a/b", &fakeDevice{}), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, fs.MkNod("tty", nil), vfs.ErrInvalidArgument)
	assert.NoError(t, fs.MkNod("tty", &fakeDevice{}))
}

func TestOpenDispatch(t *testing.T) {
	t.Parallel()
	fs := devfs.New()
	dev := &fakeDevice{}
	require.NoError(t, fs.MkNod("uart0", dev))

	fd, err := fs.Open("uart0", vfs.ReadWrite)
	require.NoError(t, err)
	require.NotNil(t, fd)

	// Names arrive with or without the leading separator.
	_, err = fs.Open("/uart0", vfs.ReadOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"uart0", "uart0"}, dev.opens)

	_, err = fs.Open("uart1", vfs.ReadOnly)
	assert.ErrorIs(t, err, vfs.ErrNotExist)
}

func TestPrefixClaim(t *testing.T) {
	t.Parallel()
	fs := devfs.New()
	family := &fakeDevice{}
	exact := &fakeDevice{}
	require.NoError(t, fs.MkNod("gpio*", family))
	require.NoError(t, fs.MkNod("gpio7", exact))

	// The claiming device receives the full opened name.
	_, err := fs.Open("gpio22", vfs.ReadWrite)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpio22"}, family.opens)

	// An exact node shadows the prefix claim.
	_, err = fs.Open("gpio7", vfs.ReadWrite)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpio7"}, exact.opens)
	assert.Len(t, family.opens, 1)
}

func TestStat(t *testing.T) {
	t.Parallel()
	fs := devfs.New()
	require.NoError(t, fs.MkNod("console", &fakeDevice{}))

	fi, err := fs.Stat("")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	fi, err = fs.Stat("console")
	require.NoError(t, err)
	assert.Equal(t, "console", fi.Name)
	assert.NotZero(t, fi.Mode&iofs.ModeCharDevice)
	assert.False(t, fi.IsDir())

	_, err = fs.Stat("missing")
	assert.ErrorIs(t, err, vfs.ErrNotExist)
}

func TestOpenDirListing(t *testing.T) {
	t.Parallel()
	fs := devfs.New()
	require.NoError(t, fs.MkNod("uart0", &fakeDevice{}))
	require.NoError(t, fs.MkNod("console", &fakeDevice{}))
	require.NoError(t, fs.MkNod("gpio*", &fakeDevice{}))

	_, err := fs.OpenDir("uart0")
	assert.ErrorIs(t, err, vfs.ErrNotExist)

	dir, err := fs.OpenDir("")
	require.NoError(t, err)
	defer dir.Close()

	var names []string
	for {
		ent, err := dir.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, ent.Name)
	}
	assert.Equal(t, []string{"console", "gpio", "uart0"}, names)
}

func TestUnsupportedOperations(t *testing.T) {
	t.Parallel()
	fs := devfs.New()

	assert.ErrorIs(t, fs.Remove("x"), vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Rename("a", "b"), vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Mkdir("d", 0o755), vfs.ErrNotSupported)
	assert.ErrorIs(t, fs.Chmod("x", 0o644), vfs.ErrNotSupported)
}
