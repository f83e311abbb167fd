package blockdev_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pfsys/pfs/internal/blockdev"
	"github.com/pfsys/pfs/internal/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMedia = errors.New("media gone")

// ramMedia simulates a raw medium in memory.
type ramMedia struct {
	data     []byte
	failRead bool
	syncs    int
}

func newRAMMedia(sectors int) *ramMedia {
	return &ramMedia{data: make([]byte, sectors*blockdev.SectorSize)}
}

func (m *ramMedia) ReadSector(sector int64, p []byte) error {
	if m.failRead {
		return errMedia
	}
	copy(p, m.data[sector*blockdev.SectorSize:])

	return nil
}

func (m *ramMedia) WriteSector(sector int64, p []byte) error {
	copy(m.data[sector*blockdev.SectorSize:], p)

	return nil
}

func (m *ramMedia) Sync() error {
	m.syncs++

	return nil
}

func (m *ramMedia) Sectors() int64 {
	return int64(len(m.data) / blockdev.SectorSize)
}

// withMBR stamps a partition table onto sector 0: signature plus one slot
// of the given type starting at lba.
func withMBR(m *ramMedia, slot int, ptype byte, lba uint32) {
	m.data[0x1FE] = 0x55
	m.data[0x1FF] = 0xAA
	rec := m.data[0x1BE+slot*16:]
	rec[0x04] = ptype
	binary.LittleEndian.PutUint32(rec[0x08:], lba)
}

func TestInitializeSuperFloppy(t *testing.T) {
	t.Parallel()
	media := newRAMMedia(64)
	disk := blockdev.NewDisk(media)

	require.NoError(t, disk.Initialize())
	assert.True(t, disk.Ready())
	assert.EqualValues(t, 64, disk.Sectors())
}

func TestInitializePartitioned(t *testing.T) {
	t.Parallel()
	media := newRAMMedia(64)
	withMBR(media, 1, 0x0C, 8)
	disk := blockdev.NewDisk(media)

	require.NoError(t, disk.Initialize())
	assert.EqualValues(t, 56, disk.Sectors())

	// Sector addressing is rebased onto the partition start.
	payload := make([]byte, blockdev.SectorSize)
	payload[0] = 0xD7
	require.NoError(t, disk.WriteSectors(0, payload))
	assert.Equal(t, byte(0xD7), media.data[8*blockdev.SectorSize])

	got := make([]byte, blockdev.SectorSize)
	require.NoError(t, disk.ReadSectors(0, got))
	assert.Equal(t, payload, got)
}

func TestInitializeIgnoresForeignPartitions(t *testing.T) {
	t.Parallel()
	media := newRAMMedia(64)
	withMBR(media, 0, 0x83, 4) // not FAT32-LBA
	disk := blockdev.NewDisk(media)

	require.NoError(t, disk.Initialize())
	assert.EqualValues(t, 64, disk.Sectors())
}

func TestInitializeReadFailure(t *testing.T) {
	t.Parallel()
	media := newRAMMedia(64)
	media.failRead = true
	disk := blockdev.NewDisk(media)

	err := disk.Initialize()
	assert.ErrorIs(t, err, vfs.ErrNotReady)
	assert.ErrorIs(t, err, errMedia)
	assert.False(t, disk.Ready())
}

func TestAccessBeforeInitialize(t *testing.T) {
	t.Parallel()
	disk := blockdev.NewDisk(newRAMMedia(8))

	buf := make([]byte, blockdev.SectorSize)
	assert.ErrorIs(t, disk.ReadSectors(0, buf), vfs.ErrNotReady)
	assert.ErrorIs(t, disk.WriteSectors(0, buf), vfs.ErrNotReady)
	assert.ErrorIs(t, disk.Sync(), vfs.ErrNotReady)
}

func TestRangeChecks(t *testing.T) {
	t.Parallel()
	disk := blockdev.NewDisk(newRAMMedia(8))
	require.NoError(t, disk.Initialize())

	buf := make([]byte, blockdev.SectorSize)
	assert.ErrorIs(t, disk.ReadSectors(8, buf), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, disk.ReadSectors(-1, buf), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, disk.ReadSectors(0, buf[:100]), vfs.ErrInvalidArgument)

	require.NoError(t, disk.ReadSectors(7, buf))
	require.NoError(t, disk.Sync())
}

func TestFileImage(t *testing.T) {
	t.Parallel()
	path := t.TempDir() + "/disk.img"

	img, err := blockdev.OpenFileImage(path, 16)
	require.NoError(t, err)
	assert.EqualValues(t, 16, img.Sectors())

	payload := make([]byte, blockdev.SectorSize)
	payload[100] = 0x42
	require.NoError(t, img.WriteSector(3, payload))
	require.NoError(t, img.Close())

	// Reopening keeps the content and the size.
	img, err = blockdev.OpenFileImage(path, 16)
	require.NoError(t, err)
	defer img.Close()

	got := make([]byte, blockdev.SectorSize)
	require.NoError(t, img.ReadSector(3, got))
	assert.Equal(t, payload, got)

	_, err = blockdev.OpenFileImage(t.TempDir()+"/bad.img", 0)
	assert.ErrorIs(t, err, vfs.ErrInvalidArgument)
}

func TestFlashRegionGeometry(t *testing.T) {
	t.Parallel()
	disk := blockdev.NewDisk(newRAMMedia(16))
	require.NoError(t, disk.Initialize())

	_, err := blockdev.NewFlashRegion(disk, 100, 4)
	assert.ErrorIs(t, err, vfs.ErrInvalidArgument)

	_, err = blockdev.NewFlashRegion(disk, 4096, 4) // 32 sectors > 16
	assert.ErrorIs(t, err, vfs.ErrInvalidArgument)

	region, err := blockdev.NewFlashRegion(disk, 1024, 8)
	require.NoError(t, err)
	cfg := region.Config()
	assert.Equal(t, 1024, cfg.BlockSize)
	assert.Equal(t, 8, cfg.BlockCount)
}

func TestFlashRegionPrimitives(t *testing.T) {
	t.Parallel()
	media := newRAMMedia(16)
	disk := blockdev.NewDisk(media)
	require.NoError(t, disk.Initialize())

	region, err := blockdev.NewFlashRegion(disk, 1024, 8)
	require.NoError(t, err)
	cfg := region.Config()

	require.NoError(t, cfg.Erase(2))
	for _, b := range media.data[2*1024 : 3*1024] {
		require.Equal(t, byte(0xFF), b)
	}

	// Byte-granular program straddling a sector boundary, preserving the
	// surrounding erased bytes.
	payload := []byte("flash payload crossing a sector edge")
	require.NoError(t, cfg.Prog(2, 500, payload))

	got := make([]byte, len(payload))
	require.NoError(t, cfg.Read(2, 500, got))
	assert.Equal(t, payload, got)
	assert.Equal(t, byte(0xFF), media.data[2*1024+499])
	assert.Equal(t, byte(0xFF), media.data[2*1024+500+len(payload)])

	assert.ErrorIs(t, cfg.Read(8, 0, got), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, cfg.Prog(0, 1020, payload), vfs.ErrInvalidArgument)
	assert.ErrorIs(t, cfg.Erase(-1), vfs.ErrInvalidArgument)
}
