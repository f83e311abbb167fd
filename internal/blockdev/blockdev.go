// Package blockdev provides sector-granular access to removable media. A
// disk wraps a raw medium, detects an MBR partition table at initialization
// and rebases all sector addressing onto the first FAT32-LBA partition;
// media without a partition signature are treated as super-floppy layouts
// addressed from sector zero.
package blockdev

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pfsys/pfs/internal/vfs"
)

// SectorSize is the fixed sector size of all supported media.
const SectorSize = 512

const (
	mbrSignatureOff = 0x1FE
	mbrTableOff     = 0x1BE
	mbrSlotSize     = 16
	mbrSlotType     = 0x04
	mbrSlotLBA      = 0x08

	// partition type 0x0C is FAT32 with LBA addressing
	partTypeFAT32LBA = 0x0C
)

// Media is one raw sector-addressable medium.
type Media interface {
	// ReadSector fills p, which is exactly one sector long.
	ReadSector(sector int64, p []byte) error

	// WriteSector stores p, which is exactly one sector long.
	WriteSector(sector int64, p []byte) error

	// Sync flushes buffered writes to the medium.
	Sync() error

	// Sectors returns the medium capacity in sectors.
	Sectors() int64
}

// Disk is an initialized medium with partition rebasing applied.
type Disk struct {
	mu    sync.Mutex
	media Media
	base  int64
	ready bool
}

// NewDisk wraps a medium; the disk is not usable until [Disk.Initialize]
// succeeds.
func NewDisk(media Media) *Disk {
	return &Disk{media: media}
}

// Initialize reads the first sector and scans the MBR slots for the first
// FAT32-LBA partition, whose start becomes the sector base. A missing
// partition signature leaves the base at zero.
func (d *Disk) Initialize() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.base = 0
	d.ready = false

	var mbr [SectorSize]byte
	if err := d.media.ReadSector(0, mbr[:]); err != nil {
		return fmt.Errorf("(blockdev) %w: first sector unreadable: %w", vfs.ErrNotReady, err)
	}

	if mbr[mbrSignatureOff] == 0x55 && mbr[mbrSignatureOff+1] == 0xAA {
		for slot := 0; slot < 4; slot++ {
			rec := mbr[mbrTableOff+slot*mbrSlotSize:]
			if rec[mbrSlotType] == partTypeFAT32LBA && d.base == 0 {
				d.base = int64(binary.LittleEndian.Uint32(rec[mbrSlotLBA:]))
				slog.Debug("Partition found", "slot", slot, "lba", d.base)
			}
		}
	} else {
		slog.Debug("No partition table, super-floppy layout assumed")
	}

	d.ready = true

	return nil
}

// Ready reports whether initialization has succeeded.
func (d *Disk) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.ready
}

// Sectors returns the addressable capacity in sectors, past the partition
// base.
func (d *Disk) Sectors() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.media.Sectors() - d.base
}

func (d *Disk) checkRange(sector int64, count int) error {
	if !d.ready {
		return fmt.Errorf("(blockdev) %w: disk not initialized", vfs.ErrNotReady)
	}
	if sector < 0 || sector+int64(count) > d.media.Sectors()-d.base {
		return fmt.Errorf("(blockdev) %w: sector %d+%d out of range",
			vfs.ErrInvalidArgument, sector, count)
	}

	return nil
}

// ReadSectors fills p, which is a whole number of sectors long, starting at
// the rebased sector address.
func (d *Disk) ReadSectors(sector int64, p []byte) error {
	count := len(p) / SectorSize
	if len(p)%SectorSize != 0 {
		return fmt.Errorf("(blockdev) %w: partial sector read", vfs.ErrInvalidArgument)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkRange(sector, count); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		off := i * SectorSize
		if err := d.media.ReadSector(d.base+sector+int64(i), p[off:off+SectorSize]); err != nil {
			return fmt.Errorf("(blockdev) read failed: %w", err)
		}
	}

	return nil
}

// WriteSectors stores p, which is a whole number of sectors long, starting
// at the rebased sector address.
func (d *Disk) WriteSectors(sector int64, p []byte) error {
	count := len(p) / SectorSize
	if len(p)%SectorSize != 0 {
		return fmt.Errorf("(blockdev) %w: partial sector write", vfs.ErrInvalidArgument)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkRange(sector, count); err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		off := i * SectorSize
		if err := d.media.WriteSector(d.base+sector+int64(i), p[off:off+SectorSize]); err != nil {
			return fmt.Errorf("(blockdev) write failed: %w", err)
		}
	}

	return nil
}

// Sync flushes the underlying medium.
func (d *Disk) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ready {
		return fmt.Errorf("(blockdev) %w: disk not initialized", vfs.ErrNotReady)
	}

	return d.media.Sync()
}
