package blockdev

import (
	"fmt"

	"github.com/pfsys/pfs/internal/littlefs"
	"github.com/pfsys/pfs/internal/vfs"
)

// FlashRegion exposes a disk as flash-style block primitives: byte-granular
// reads and programs implemented by read-modify-write of whole sectors, and
// erases that reset a block to 0xFF. Blocks must be a whole number of
// sectors.
type FlashRegion struct {
	disk      *Disk
	blockSize int
	count     int
}

// NewFlashRegion carves a block region out of a disk. The region starts at
// sector zero of the disk's rebased address space.
func NewFlashRegion(disk *Disk, blockSize int, blockCount int) (*FlashRegion, error) {
	if blockSize <= 0 || blockSize%SectorSize != 0 {
		return nil, fmt.Errorf("(blockdev) %w: block size %d is not sector aligned",
			vfs.ErrInvalidArgument, blockSize)
	}

	sectors := int64(blockSize/SectorSize) * int64(blockCount)
	if blockCount <= 0 || sectors > disk.Sectors() {
		return nil, fmt.Errorf("(blockdev) %w: region of %d blocks exceeds medium",
			vfs.ErrInvalidArgument, blockCount)
	}

	return &FlashRegion{disk: disk, blockSize: blockSize, count: blockCount}, nil
}

// Config returns the block primitives wired for a littlefs volume.
func (r *FlashRegion) Config() littlefs.Config {
	return littlefs.Config{
		BlockSize:  r.blockSize,
		BlockCount: r.count,
		Read:       r.read,
		Prog:       r.prog,
		Erase:      r.erase,
	}
}

func (r *FlashRegion) checkRange(block int, off int, n int) error {
	if block < 0 || block >= r.count || off < 0 || off+n > r.blockSize {
		return fmt.Errorf("(blockdev) %w: access outside block %d",
			vfs.ErrInvalidArgument, block)
	}

	return nil
}

// sectorSpan returns the first sector touched by a block-relative byte
// range and the in-sector offset of its start.
func (r *FlashRegion) sectorSpan(block int, off int) (int64, int) {
	abs := int64(block)*int64(r.blockSize) + int64(off)

	return abs / SectorSize, int(abs % SectorSize)
}

func (r *FlashRegion) read(block int, off int, p []byte) error {
	if err := r.checkRange(block, off, len(p)); err != nil {
		return err
	}

	sector, skew := r.sectorSpan(block, off)
	var buf [SectorSize]byte
	for len(p) > 0 {
		if err := r.disk.ReadSectors(sector, buf[:]); err != nil {
			return err
		}

		n := copy(p, buf[skew:])
		p = p[n:]
		sector++
		skew = 0
	}

	return nil
}

func (r *FlashRegion) prog(block int, off int, p []byte) error {
	if err := r.checkRange(block, off, len(p)); err != nil {
		return err
	}

	sector, skew := r.sectorSpan(block, off)
	var buf [SectorSize]byte
	for len(p) > 0 {
		if err := r.disk.ReadSectors(sector, buf[:]); err != nil {
			return err
		}

		n := copy(buf[skew:], p)
		if err := r.disk.WriteSectors(sector, buf[:]); err != nil {
			return err
		}

		p = p[n:]
		sector++
		skew = 0
	}

	return nil
}

func (r *FlashRegion) erase(block int) error {
	if err := r.checkRange(block, 0, r.blockSize); err != nil {
		return err
	}

	var buf [SectorSize]byte
	for i := range buf {
		buf[i] = 0xFF
	}

	sector, _ := r.sectorSpan(block, 0)
	for n := 0; n < r.blockSize/SectorSize; n++ {
		if err := r.disk.WriteSectors(sector+int64(n), buf[:]); err != nil {
			return err
		}
	}

	return nil
}
