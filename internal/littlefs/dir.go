package littlefs

import "sort"

// Dir is an open directory iterator over a snapshot of the directory's
// entries at open time. The dot and dot-dot entries come first, the
// remainder in name order.
type Dir struct {
	entries []Info
	pos     int
	open    bool
}

// OpenDir opens a directory for iteration.
func (fs *FS) OpenDir(name string) (*Dir, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return nil, ErrInval
	}

	key, err := normalize(name)
	if err != nil {
		return nil, err
	}
	if key != "" {
		nd, ok := fs.nodes[key]
		if !ok {
			return nil, ErrNoEnt
		}
		if nd.typ != TypeDir {
			return nil, ErrNotDir
		}
	}

	entries := []Info{
		{Name: ".", Type: TypeDir},
		{Name: "..", Type: TypeDir},
	}

	children := make([]Info, 0, 8)
	for k, nd := range fs.nodes {
		if parentOf(k) == key && k != "" {
			children = append(children, Info{Name: baseOf(k), Type: nd.typ, Size: nd.size})
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].Name < children[j].Name
	})

	return &Dir{entries: append(entries, children...), open: true}, nil
}

// Read returns the next entry; the second result is false once the
// directory is exhausted.
func (d *Dir) Read() (Info, bool, error) {
	if !d.open {
		return Info{}, false, ErrBadFile
	}

	if d.pos >= len(d.entries) {
		return Info{}, false, nil
	}

	info := d.entries[d.pos]
	d.pos++

	return info, true, nil
}

// Close invalidates the iterator.
func (d *Dir) Close() error {
	if !d.open {
		return ErrBadFile
	}
	d.open = false

	return nil
}
