package mount_test

import (
	"io"
	iofs "io/fs"
	"testing"

	"github.com/pfsys/pfs/internal/mount"
	"github.com/pfsys/pfs/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFS records the backend-relative name of every forwarded call. Paths
// under "dirs" stat as directories, paths under "files" as regular files.
type fakeFS struct {
	vfs.UnsupportedFilesystem

	dirs  map[string]bool
	files map[string]bool
	calls []string
}

func newFakeFS(dirs []string, files []string) *fakeFS {
	fs := &fakeFS{dirs: map[string]bool{"/": true}, files: make(map[string]bool)}
	for _, d := range dirs {
		fs.dirs[d] = true
	}
	for _, f := range files {
		fs.files[f] = true
	}

	return fs
}

func (f *fakeFS) Stat(name string) (vfs.FileInfo, error) {
	f.calls = append(f.calls, "stat "+name)
	if f.dirs[name] {
		return vfs.FileInfo{Name: name, Mode: iofs.ModeDir | 0o777}, nil
	}
	if f.files[name] {
		return vfs.FileInfo{Name: name, Mode: 0o777}, nil
	}

	return vfs.FileInfo{}, vfs.ErrNotExist
}

func (f *fakeFS) Open(name string, _ vfs.OpenFlag) (vfs.File, error) {
	f.calls = append(f.calls, "open "+name)

	return &fakeFile{}, nil
}

func (f *fakeFS) Rename(oldName string, newName string) error {
	f.calls = append(f.calls, "rename "+oldName+" "+newName)

	return nil
}

func (f *fakeFS) Remove(name string) error {
	f.calls = append(f.calls, "remove "+name)

	return nil
}

func (f *fakeFS) OpenDir(name string) (vfs.Dir, error) {
	f.calls = append(f.calls, "opendir "+name)

	var names []string
	for d := range f.dirs {
		if d != "/" {
			names = append(names, d[1:])
		}
	}
	for file := range f.files {
		names = append(names, file[1:])
	}

	return &fakeDir{names: names}, nil
}

type fakeFile struct {
	vfs.UnsupportedFile
}

type fakeDir struct {
	names []string
	pos   int
}

func (d *fakeDir) Read() (vfs.Entry, error) {
	if d.pos >= len(d.names) {
		return vfs.Entry{}, io.EOF
	}
	name := d.names[d.pos]
	d.pos++

	return vfs.Entry{Name: name}, nil
}

func (d *fakeDir) Close() error { return nil }

func readAll(t *testing.T, dir vfs.Dir) []string {
	t.Helper()

	var names []string
	for {
		ent, err := dir.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, ent.Name)
	}
	require.NoError(t, dir.Close())

	return names
}

func TestMountValidation(t *testing.T) {
	t.Parallel()
	tbl := mount.NewTable()

	assert.ErrorIs(t, tbl.Mount("/", nil), vfs.ErrInvalidArgument)
	require.NoError(t, tbl.Mount("/", newFakeFS(nil, nil)))
	assert.ErrorIs(t, tbl.Mount("", newFakeFS(nil, nil)), vfs.ErrInvalidArgument)

	require.NoError(t, tbl.Mount("dev", newFakeFS(nil, nil)))
	assert.ErrorIs(t, tbl.Mount("dev", newFakeFS(nil, nil)), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, tbl.Mount("a/b", newFakeFS(nil, nil)), vfs.ErrInvalidArgument)

	assert.Equal(t, []string{"dev"}, tbl.MountPoints())
}

func TestResolveDispatch(t *testing.T) {
	t.Parallel()
	root := newFakeFS([]string{"/home"}, []string{"/readme"})
	dev := newFakeFS(nil, []string{"/uart0"})

	tbl := mount.NewTable()
	require.NoError(t, tbl.Mount("", root))
	require.NoError(t, tbl.Mount("dev", dev))

	_, err := tbl.Open("/readme", vfs.ReadOnly)
	require.NoError(t, err)
	assert.Contains(t, root.calls, "open /readme")

	// The mount prefix is stripped before forwarding.
	_, err = tbl.Open("/dev/uart0", vfs.ReadWrite)
	require.NoError(t, err)
	assert.Contains(t, dev.calls, "open /uart0")
}

func TestResolveRelative(t *testing.T) {
	t.Parallel()
	root := newFakeFS([]string{"/home", "/home/sub"}, []string{"/home/sub/note"})

	tbl := mount.NewTable()
	require.NoError(t, tbl.Mount("/", root))

	require.NoError(t, tbl.Chdir("home"))
	assert.Equal(t, "/home", tbl.Getwd())

	_, err := tbl.Open("sub/note", vfs.ReadOnly)
	require.NoError(t, err)
	assert.Contains(t, root.calls, "open /home/sub/note")

	require.NoError(t, tbl.Chdir("sub"))
	require.NoError(t, tbl.Chdir("../.."))
	assert.Equal(t, "/", tbl.Getwd())
}

func TestChdirRejectsNonDirectory(t *testing.T) {
	t.Parallel()
	root := newFakeFS(nil, []string{"/readme"})

	tbl := mount.NewTable()
	require.NoError(t, tbl.Mount("/", root))

	assert.ErrorIs(t, tbl.Chdir("/readme"), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, tbl.Chdir("/missing"), vfs.ErrNotExist)
	assert.Equal(t, "/", tbl.Getwd())
}

func TestStatMountPoint(t *testing.T) {
	t.Parallel()
	root := newFakeFS(nil, []string{"/dev"}) // shadowed by the mount
	dev := newFakeFS(nil, nil)

	tbl := mount.NewTable()
	require.NoError(t, tbl.Mount("/", root))
	require.NoError(t, tbl.Mount("dev", dev))

	fi, err := tbl.Stat("/dev")
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, "dev", fi.Name)
	assert.Empty(t, root.calls)
}

func TestRenameWithinAndAcross(t *testing.T) {
	t.Parallel()
	root := newFakeFS(nil, []string{"/a"})
	dev := newFakeFS(nil, nil)

	tbl := mount.NewTable()
	require.NoError(t, tbl.Mount("/", root))
	require.NoError(t, tbl.Mount("dev", dev))

	require.NoError(t, tbl.Rename("/a", "/b"))
	assert.Contains(t, root.calls, "rename /a /b")

	assert.ErrorIs(t, tbl.Rename("/a", "/dev/a"), vfs.ErrInvalidArgument)
}

func TestRootDirListing(t *testing.T) {
	t.Parallel()
	root := newFakeFS(nil, []string{"/readme", "/dev"})
	dev := newFakeFS(nil, nil)

	tbl := mount.NewTable()
	require.NoError(t, tbl.Mount("/", root))
	require.NoError(t, tbl.Mount("dev", dev))

	dir, err := tbl.OpenDir("/")
	require.NoError(t, err)

	names := readAll(t, dir)
	assert.ElementsMatch(t, []string{"readme", "dev"}, names)
	// The shadowed root entry must not appear twice.
	assert.Len(t, names, 2)
}

func TestRootDirWithoutRootVolume(t *testing.T) {
	t.Parallel()
	tbl := mount.NewTable()
	require.NoError(t, tbl.Mount("dev", newFakeFS(nil, nil)))

	dir, err := tbl.OpenDir("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, readAll(t, dir))

	_, err = tbl.Open("/readme", vfs.ReadOnly)
	assert.ErrorIs(t, err, vfs.ErrNotExist)
}
