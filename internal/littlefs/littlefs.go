// Package littlefs is a small log-structured filesystem for raw flash
// regions, in the spirit of the embedded littlefs libraries: block 0 holds a
// checksummed superblock, the remaining blocks form an append-only record
// log that is replayed into an in-RAM index on mount. The log is compacted
// in place once before any operation fails with [ErrNoSpace].
//
// The package keeps its own open-flag, whence and error spaces; nothing here
// is interchangeable with the pfs dispatch contract, adapters translate at
// their boundary.
package littlefs

import (
	"encoding/binary"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
)

const (
	magic   = "pfslfs01"
	version = 1

	superblockSize = 32
	headerSize     = 7
	sumSize        = 8

	tagFile   = 0xF1
	tagMkdir  = 0xF2
	tagRemove = 0xF3
	tagRename = 0xF4
)

// OpenFlag is the native open flag word.
type OpenFlag int

const (
	ORdOnly OpenFlag = 0x1
	OWrOnly OpenFlag = 0x2
	ORdWr   OpenFlag = 0x3

	OCreat  OpenFlag = 0x0100
	OExcl   OpenFlag = 0x0200
	OTrunc  OpenFlag = 0x0400
	OAppend OpenFlag = 0x0800
)

// Whence is the native seek origin enumeration.
type Whence int

const (
	SeekSet Whence = 0
	SeekCur Whence = 1
	SeekEnd Whence = 2
)

// Type tags a directory entry as a regular file or a directory.
type Type int

const (
	TypeReg Type = 0x1
	TypeDir Type = 0x2
)

// Info describes one file or directory.
type Info struct {
	Name string
	Type Type
	Size int
}

type node struct {
	typ  Type
	size int
	off  int64 // storage offset of the committed content (files only)
}

// FS is one mounted (or mountable) filesystem instance over a [Config].
type FS struct {
	mu      sync.Mutex
	cfg     Config
	mounted bool
	epoch   uint32
	logOff  int
	nodes   map[string]*node
}

// New returns an unmounted filesystem over the given flash region. The
// configuration is copied; it does not need to persist at the caller.
func New(cfg Config) (*FS, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &FS{cfg: cfg}, nil
}

func (fs *FS) logCap() int {
	return (fs.cfg.BlockCount - 1) * fs.cfg.BlockSize
}

func (fs *FS) logBase() int64 {
	return int64(fs.cfg.BlockSize)
}

func sum8(parts ...[]byte) [sumSize]byte {
	h := blake3.New()
	for _, p := range parts {
		_, _ = h.Write(p)
	}

	var full [32]byte
	h.Sum(full[:0])

	var s [sumSize]byte
	copy(s[:], full[:sumSize])

	return s
}

// readAt reads across block boundaries at an absolute storage offset.
func (fs *FS) readAt(abs int64, p []byte) error {
	bs := int64(fs.cfg.BlockSize)
	for len(p) > 0 {
		block := int(abs / bs)
		off := int(abs % bs)
		n := fs.cfg.BlockSize - off
		if n > len(p) {
			n = len(p)
		}
		if err := fs.cfg.Read(block, off, p[:n]); err != nil {
			return ErrIO
		}
		abs += int64(n)
		p = p[n:]
	}

	return nil
}

// progAt programs across block boundaries at an absolute storage offset.
func (fs *FS) progAt(abs int64, p []byte) error {
	bs := int64(fs.cfg.BlockSize)
	for len(p) > 0 {
		block := int(abs / bs)
		off := int(abs % bs)
		n := fs.cfg.BlockSize - off
		if n > len(p) {
			n = len(p)
		}
		if err := fs.cfg.Prog(block, off, p[:n]); err != nil {
			return ErrIO
		}
		abs += int64(n)
		p = p[n:]
	}

	return nil
}

func encodeSuperblock(cfg Config, epoch uint32) []byte {
	sb := make([]byte, superblockSize)
	copy(sb[0:8], magic)
	binary.LittleEndian.PutUint32(sb[8:12], version)
	binary.LittleEndian.PutUint32(sb[12:16], uint32(cfg.BlockSize))
	binary.LittleEndian.PutUint32(sb[16:20], uint32(cfg.BlockCount))
	binary.LittleEndian.PutUint32(sb[20:24], epoch)

	s := sum8(sb[:24])
	copy(sb[24:32], s[:])

	return sb
}

// readSuperblock validates block 0 and returns the stored epoch.
func (fs *FS) readSuperblock() (uint32, error) {
	sb := make([]byte, superblockSize)
	if err := fs.cfg.Read(0, 0, sb); err != nil {
		return 0, ErrIO
	}

	s := sum8(sb[:24])
	if string(sb[0:8]) != magic || string(sb[24:32]) != string(s[:]) {
		return 0, ErrCorrupt
	}
	if binary.LittleEndian.Uint32(sb[8:12]) != version {
		return 0, ErrInval
	}
	if int(binary.LittleEndian.Uint32(sb[12:16])) != fs.cfg.BlockSize ||
		int(binary.LittleEndian.Uint32(sb[16:20])) != fs.cfg.BlockCount {
		return 0, ErrInval
	}

	return binary.LittleEndian.Uint32(sb[20:24]), nil
}

func encodeRecord(tag byte, name string, data []byte) []byte {
	rec := make([]byte, 0, headerSize+len(name)+len(data)+sumSize)
	rec = append(rec, tag)
	rec = binary.LittleEndian.AppendUint16(rec, uint16(len(name)))
	rec = binary.LittleEndian.AppendUint32(rec, uint32(len(data)))
	rec = append(rec, name...)
	rec = append(rec, data...)

	s := sum8(rec)
	rec = append(rec, s[:]...)

	return rec
}

// Format erases the region and writes a fresh superblock. Any previous
// contents are lost; the epoch survives a readable superblock so that wear
// history remains monotonic.
func (fs *FS) Format() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.mounted {
		return ErrInval
	}

	epoch := uint32(0)
	if old, err := fs.readSuperblock(); err == nil {
		epoch = old
	}

	for b := 0; b < fs.cfg.BlockCount; b++ {
		if err := fs.cfg.Erase(b); err != nil {
			return ErrIO
		}
	}

	if err := fs.cfg.Prog(0, 0, encodeSuperblock(fs.cfg, epoch+1)); err != nil {
		return ErrIO
	}

	return nil
}

// Mount validates the superblock and replays the record log into the
// in-RAM index.
func (fs *FS) Mount() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.mounted {
		return ErrInval
	}

	epoch, err := fs.readSuperblock()
	if err != nil {
		return err
	}

	log := make([]byte, fs.logCap())
	if err := fs.readAt(fs.logBase(), log); err != nil {
		return err
	}

	fs.nodes = make(map[string]*node)
	off := 0

	for off+headerSize+sumSize <= len(log) {
		tag := log[off]
		if tag != tagFile && tag != tagMkdir && tag != tagRemove && tag != tagRename {
			break
		}

		nameLen := int(binary.LittleEndian.Uint16(log[off+1 : off+3]))
		dataLen := int(binary.LittleEndian.Uint32(log[off+3 : off+7]))
		end := off + headerSize + nameLen + dataLen + sumSize
		if end > len(log) {
			break
		}

		s := sum8(log[off : end-sumSize])
		if string(log[end-sumSize:end]) != string(s[:]) {
			break
		}

		name := string(log[off+headerSize : off+headerSize+nameLen])
		data := log[off+headerSize+nameLen : end-sumSize]

		switch tag {
		case tagFile:
			fs.nodes[name] = &node{
				typ:  TypeReg,
				size: dataLen,
				off:  fs.logBase() + int64(off+headerSize+nameLen),
			}
		case tagMkdir:
			fs.nodes[name] = &node{typ: TypeDir}
		case tagRemove:
			delete(fs.nodes, name)
		case tagRename:
			fs.applyRename(name, string(data))
		}

		off = end
	}

	fs.epoch = epoch
	fs.logOff = off
	fs.mounted = true

	return nil
}

// Unmount drops the in-RAM index. Open handles become invalid.
func (fs *FS) Unmount() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return ErrInval
	}

	fs.mounted = false
	fs.nodes = nil

	return nil
}

// applyRename moves a node, carrying any descendants of a directory along.
func (fs *FS) applyRename(oldKey string, newKey string) {
	nd, ok := fs.nodes[oldKey]
	if !ok {
		return
	}

	delete(fs.nodes, newKey)
	delete(fs.nodes, oldKey)
	fs.nodes[newKey] = nd

	if nd.typ != TypeDir {
		return
	}

	prefix := oldKey + "/"
	moved := make(map[string]*node)
	for k, v := range fs.nodes {
		if strings.HasPrefix(k, prefix) {
			moved[newKey+"/"+k[len(prefix):]] = v
			delete(fs.nodes, k)
		}
	}
	for k, v := range moved {
		fs.nodes[k] = v
	}
}

// appendLocked writes one record to the log tail, compacting once if the
// record does not fit. It returns the storage offset of the record's data
// payload.
func (fs *FS) appendLocked(tag byte, name string, data []byte) (int64, error) {
	rec := encodeRecord(tag, name, data)

	if fs.logOff+len(rec) > fs.logCap() {
		if err := fs.compactLocked(len(rec)); err != nil {
			return 0, err
		}
	}

	abs := fs.logBase() + int64(fs.logOff)
	if err := fs.progAt(abs, rec); err != nil {
		return 0, err
	}
	fs.logOff += len(rec)

	return abs + int64(headerSize+len(name)), nil
}

// compactLocked rewrites the log to hold only live state. The live contents
// are staged in RAM before anything is erased, and the rewrite is refused
// outright when even the compacted form plus the pending record cannot fit.
func (fs *FS) compactLocked(pending int) error {
	keys := make([]string, 0, len(fs.nodes))
	for k := range fs.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	need := 0
	contents := make(map[string][]byte, len(keys))
	for _, k := range keys {
		nd := fs.nodes[k]
		need += headerSize + len(k) + nd.size + sumSize
		if nd.typ == TypeReg {
			data := make([]byte, nd.size)
			if err := fs.readAt(nd.off, data); err != nil {
				return err
			}
			contents[k] = data
		}
	}

	if need+pending > fs.logCap() {
		return ErrNoSpace
	}

	for b := 1; b < fs.cfg.BlockCount; b++ {
		if err := fs.cfg.Erase(b); err != nil {
			return ErrIO
		}
	}
	if err := fs.cfg.Erase(0); err != nil {
		return ErrIO
	}
	fs.epoch++
	if err := fs.cfg.Prog(0, 0, encodeSuperblock(fs.cfg, fs.epoch)); err != nil {
		return ErrIO
	}

	fs.logOff = 0
	for _, k := range keys {
		nd := fs.nodes[k]
		if nd.typ == TypeDir {
			if _, err := fs.appendLocked(tagMkdir, k, nil); err != nil {
				return err
			}

			continue
		}

		off, err := fs.appendLocked(tagFile, k, contents[k])
		if err != nil {
			return err
		}
		nd.off = off
	}

	return nil
}

// normalize maps an external path onto an internal key: components joined
// by single slashes, the empty key denoting the root directory.
func normalize(name string) (string, error) {
	trimmed := strings.Trim(name, "/")
	if trimmed == "" {
		return "", nil
	}

	parts := strings.Split(trimmed, "/")
	for _, part := range parts {
		if part == "" {
			return "", ErrInval
		}
		if len(part) > NameMax {
			return "", ErrNameTooLong
		}
	}

	return strings.Join(parts, "/"), nil
}

func parentOf(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[:i]
	}

	return ""
}

func baseOf(key string) string {
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		return key[i+1:]
	}

	return key
}

// checkParentLocked verifies that the parent of a key exists and is a
// directory.
func (fs *FS) checkParentLocked(key string) error {
	parent := parentOf(key)
	if parent == "" {
		return nil
	}

	nd, ok := fs.nodes[parent]
	if !ok {
		return ErrNoEnt
	}
	if nd.typ != TypeDir {
		return ErrNotDir
	}

	return nil
}

func (fs *FS) hasChildrenLocked(key string) bool {
	prefix := key + "/"
	for k := range fs.nodes {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}

	return false
}

// Stat returns the committed state of a single entry.
func (fs *FS) Stat(name string) (Info, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return Info{}, ErrInval
	}

	key, err := normalize(name)
	if err != nil {
		return Info{}, err
	}
	if key == "" {
		return Info{Name: "/", Type: TypeDir}, nil
	}

	nd, ok := fs.nodes[key]
	if !ok {
		return Info{}, ErrNoEnt
	}

	return Info{Name: baseOf(key), Type: nd.typ, Size: nd.size}, nil
}

// Rename moves an entry, directories together with their descendants.
func (fs *FS) Rename(oldName string, newName string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return ErrInval
	}

	oldKey, err := normalize(oldName)
	if err != nil {
		return err
	}
	newKey, err := normalize(newName)
	if err != nil {
		return err
	}
	if oldKey == "" || newKey == "" {
		return ErrInval
	}

	src, ok := fs.nodes[oldKey]
	if !ok {
		return ErrNoEnt
	}
	if oldKey == newKey {
		return nil
	}
	if src.typ == TypeDir && strings.HasPrefix(newKey, oldKey+"/") {
		return ErrInval
	}
	if err := fs.checkParentLocked(newKey); err != nil {
		return err
	}

	if dst, ok := fs.nodes[newKey]; ok {
		if dst.typ != src.typ {
			if dst.typ == TypeDir {
				return ErrIsDir
			}

			return ErrNotDir
		}
		if dst.typ == TypeDir && fs.hasChildrenLocked(newKey) {
			return ErrNotEmpty
		}
	}

	if _, err := fs.appendLocked(tagRename, oldKey, []byte(newKey)); err != nil {
		return err
	}
	fs.applyRename(oldKey, newKey)

	return nil
}

// Remove deletes a file, or a directory without entries.
func (fs *FS) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return ErrInval
	}

	key, err := normalize(name)
	if err != nil {
		return err
	}
	if key == "" {
		return ErrInval
	}

	nd, ok := fs.nodes[key]
	if !ok {
		return ErrNoEnt
	}
	if nd.typ == TypeDir && fs.hasChildrenLocked(key) {
		return ErrNotEmpty
	}

	if _, err := fs.appendLocked(tagRemove, key, nil); err != nil {
		return err
	}
	delete(fs.nodes, key)

	return nil
}

// Mkdir creates a directory under an existing parent.
func (fs *FS) Mkdir(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.mounted {
		return ErrInval
	}

	key, err := normalize(name)
	if err != nil {
		return err
	}
	if key == "" {
		return ErrExist
	}

	if _, ok := fs.nodes[key]; ok {
		return ErrExist
	}
	if err := fs.checkParentLocked(key); err != nil {
		return err
	}

	if _, err := fs.appendLocked(tagMkdir, key, nil); err != nil {
		return err
	}
	fs.nodes[key] = &node{typ: TypeDir}

	return nil
}
