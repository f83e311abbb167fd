package littlefs

// NameMax is the longest accepted name for a single path component.
const NameMax = 255

// Config describes the flash geometry and the raw block primitives of one
// storage region. The primitives are opaque to this package and are invoked
// with block-relative offsets; Prog is only ever called on freshly erased
// bytes.
type Config struct {
	// BlockSize is the size of one erasable block in bytes.
	BlockSize int

	// BlockCount is the number of erasable blocks in the region.
	BlockCount int

	// Read reads len(p) bytes at off within block.
	Read func(block int, off int, p []byte) error

	// Prog programs len(p) bytes at off within block.
	Prog func(block int, off int, p []byte) error

	// Erase resets a whole block to 0xFF.
	Erase func(block int) error
}

func (cfg Config) validate() error {
	if cfg.BlockSize < superblockSize || cfg.BlockCount < 2 {
		return ErrInval
	}
	if cfg.Read == nil || cfg.Prog == nil || cfg.Erase == nil {
		return ErrInval
	}

	return nil
}
