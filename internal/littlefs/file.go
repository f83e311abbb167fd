package littlefs

// File is an open file cursor. Writes collect in RAM and are committed to
// the log by Sync or Close; reads of the committed content go through the
// configured block primitives at open time.
type File struct {
	fs    *FS
	key   string
	flags OpenFlag
	pos   int
	buf   []byte
	dirty bool
	open  bool
}

// OpenFile opens, and depending on the flags creates or truncates, a file.
// Creation and truncation are committed to the log immediately; written
// data only on Sync or Close.
func (fs *FS) OpenFile(name string, flags OpenFlag) (*File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return nil, ErrInval
	}
	if flags&ORdWr == 0 {
		return nil, ErrInval
	}

	key, err := normalize(name)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, ErrIsDir
	}

	nd, ok := fs.nodes[key]
	switch {
	case ok && nd.typ == TypeDir:
		return nil, ErrIsDir
	case ok && flags&OCreat != 0 && flags&OExcl != 0:
		return nil, ErrExist
	case !ok && flags&OCreat == 0:
		return nil, ErrNoEnt
	}

	f := &File{fs: fs, key: key, flags: flags, open: true}

	if !ok || flags&OTrunc != 0 {
		if !ok {
			if err := fs.checkParentLocked(key); err != nil {
				return nil, err
			}
		}
		off, err := fs.appendLocked(tagFile, key, nil)
		if err != nil {
			return nil, err
		}
		fs.nodes[key] = &node{typ: TypeReg, off: off}

		return f, nil
	}

	f.buf = make([]byte, nd.size)
	if err := fs.readAt(nd.off, f.buf); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *File) readable() bool {
	return f.flags&ORdWr != OWrOnly
}

func (f *File) writable() bool {
	return f.flags&ORdWr != ORdOnly
}

// Read copies bytes from the cursor position. A zero count with a nil error
// marks end of file.
func (f *File) Read(p []byte) (int, error) {
	if !f.open || !f.readable() {
		return 0, ErrBadFile
	}

	if f.pos >= len(f.buf) {
		return 0, nil
	}

	n := copy(p, f.buf[f.pos:])
	f.pos += n

	return n, nil
}

// Write copies bytes at the cursor position, extending the file as needed.
// With [OAppend] the cursor moves to the end before every write.
func (f *File) Write(p []byte) (int, error) {
	if !f.open || !f.writable() {
		return 0, ErrBadFile
	}

	if f.flags&OAppend != 0 {
		f.pos = len(f.buf)
	}

	if end := f.pos + len(p); end > len(f.buf) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}

	copy(f.buf[f.pos:], p)
	f.pos += len(p)
	f.dirty = true

	return len(p), nil
}

// Seek repositions the cursor. Seeking beyond the end is allowed; the gap
// fills with zero bytes if written past.
func (f *File) Seek(pos int, whence Whence) (int, error) {
	if !f.open {
		return 0, ErrBadFile
	}

	var next int
	switch whence {
	case SeekSet:
		next = pos
	case SeekCur:
		next = f.pos + pos
	case SeekEnd:
		next = len(f.buf) + pos
	default:
		return 0, ErrInval
	}

	if next < 0 {
		return 0, ErrInval
	}
	f.pos = next

	return next, nil
}

// Size returns the current (possibly uncommitted) length of the file.
func (f *File) Size() (int, error) {
	if !f.open {
		return 0, ErrBadFile
	}

	return len(f.buf), nil
}

// Sync commits pending writes to the log.
func (f *File) Sync() error {
	if !f.open {
		return ErrBadFile
	}
	if !f.dirty {
		return nil
	}

	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	if !f.fs.mounted {
		return ErrInval
	}

	off, err := f.fs.appendLocked(tagFile, f.key, f.buf)
	if err != nil {
		return err
	}
	f.fs.nodes[f.key] = &node{typ: TypeReg, size: len(f.buf), off: off}
	f.dirty = false

	return nil
}

// Close commits pending writes and invalidates the handle.
func (f *File) Close() error {
	if !f.open {
		return ErrBadFile
	}

	err := f.Sync()
	f.open = false

	return err
}
