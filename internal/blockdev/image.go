package blockdev

import (
	"fmt"
	"os"

	"github.com/pfsys/pfs/internal/vfs"
)

// FileImage is a [Media] backed by a fixed-size image file on the host.
type FileImage struct {
	f       *os.File
	sectors int64
}

// OpenFileImage opens (or creates) an image file and pads it to the
// requested sector count. An existing larger image keeps its size.
func OpenFileImage(path string, sectors int64) (*FileImage, error) {
	if sectors <= 0 {
		return nil, fmt.Errorf("(blockdev) %w: image needs a positive sector count",
			vfs.ErrInvalidArgument)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("(blockdev) image open failed: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("(blockdev) image stat failed: %w", err)
	}

	size := sectors * SectorSize
	if fi.Size() > size {
		sectors = fi.Size() / SectorSize
	} else if fi.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()

			return nil, fmt.Errorf("(blockdev) image resize failed: %w", err)
		}
	}

	return &FileImage{f: f, sectors: sectors}, nil
}

func (img *FileImage) ReadSector(sector int64, p []byte) error {
	if _, err := img.f.ReadAt(p, sector*SectorSize); err != nil {
		return err
	}

	return nil
}

func (img *FileImage) WriteSector(sector int64, p []byte) error {
	if _, err := img.f.WriteAt(p, sector*SectorSize); err != nil {
		return err
	}

	return nil
}

func (img *FileImage) Sync() error { return img.f.Sync() }

func (img *FileImage) Sectors() int64 { return img.sectors }

// Close flushes and releases the image file.
func (img *FileImage) Close() error {
	if err := img.f.Sync(); err != nil {
		img.f.Close()

		return err
	}

	return img.f.Close()
}
