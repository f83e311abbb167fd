// Package pname implements the canonical path-name algebra used to join and
// normalize paths across mount boundaries.
//
// A path decomposes into an ordered sequence of segments whose names alias
// the input strings; the sequence only lives for the duration of a [Join]
// call, which always returns a freshly owned string.
package pname

// A segment is one path component. Root segments mark an absolute path and
// carry no name of their own.
type segment struct {
	name string
	root bool
}

func isSep(c byte) bool {
	return c == '/' || c == '\\'
}

// scan decomposes a path into segments, appending onto segs. Runs of
// separators collapse, single-dot components are discarded, and a leading
// separator contributes the root segment.
func scan(segs []segment, path string) []segment {
	i, n := 0, len(path)

	if n > 0 && isSep(path[0]) {
		segs = append(segs, segment{root: true})
		i++
	}

	for i < n {
		for i < n && isSep(path[i]) {
			i++
		}
		if i >= n {
			break
		}

		j := i
		for j < n && !isSep(path[j]) {
			j++
		}

		if j > i+1 || path[i] != '.' {
			segs = append(segs, segment{name: path[i:j]})
		}

		i = j
	}

	return segs
}

// join relinks the addition's segments onto the base sequence: an absolute
// addition replaces the base outright, a ".." ascends where a non-root tail
// segment exists and is otherwise discarded silently, and anything else
// appends.
func join(base []segment, addition []segment) []segment {
	for _, seg := range addition {
		switch {
		case seg.root:
			base = base[:0]
			base = append(base, seg)
		case seg.name == "..":
			if n := len(base); n > 0 && !base[n-1].root {
				base = base[:n-1]
			}
		default:
			base = append(base, seg)
		}
	}

	return base
}

// serialize concatenates the remaining segments with separators, emitting a
// leading separator only when a root segment is present. An empty sequence
// serializes to "/".
func serialize(segs []segment) string {
	size := 0
	for _, seg := range segs {
		if !seg.root {
			size += len(seg.name) + 1
		}
	}

	if size == 0 {
		return "/"
	}

	rooted := len(segs) > 0 && segs[0].root

	out := make([]byte, 0, size)
	for _, seg := range segs {
		if seg.root {
			continue
		}
		if len(out) > 0 || rooted {
			out = append(out, '/')
		}
		out = append(out, seg.name...)
	}

	return string(out)
}

// Join resolves addition against base and returns the canonical form of the
// combined path.
func Join(base string, addition string) string {
	segs := make([]segment, 0, 16)
	segs = scan(segs, base)
	segs = join(segs, scan(nil, addition))

	return serialize(segs)
}

// Clean returns the canonical form of a single path.
func Clean(path string) string {
	return serialize(scan(make([]segment, 0, 16), path))
}

// IsAbs returns whether a path begins with a separator.
func IsAbs(path string) bool {
	return len(path) > 0 && isSep(path[0])
}
