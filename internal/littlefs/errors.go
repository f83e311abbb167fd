package littlefs

import "strconv"

// Error is a native filesystem error code. The codes are negative, in the
// manner of the embedded littlefs implementations this package descends
// from; adapters are expected to translate them at their own boundary.
type Error int

const (
	ErrIO          Error = -5
	ErrCorrupt     Error = -84
	ErrNoEnt       Error = -2
	ErrExist       Error = -17
	ErrNotDir      Error = -20
	ErrIsDir       Error = -21
	ErrNotEmpty    Error = -39
	ErrBadFile     Error = -9
	ErrInval       Error = -22
	ErrNoSpace     Error = -28
	ErrNameTooLong Error = -36
)

func (e Error) Error() string {
	switch e {
	case ErrIO:
		return "lfs: input/output error"
	case ErrCorrupt:
		return "lfs: corrupted"
	case ErrNoEnt:
		return "lfs: no directory entry"
	case ErrExist:
		return "lfs: entry already exists"
	case ErrNotDir:
		return "lfs: entry is not a dir"
	case ErrIsDir:
		return "lfs: entry is a dir"
	case ErrNotEmpty:
		return "lfs: dir is not empty"
	case ErrBadFile:
		return "lfs: bad file number"
	case ErrInval:
		return "lfs: invalid parameter"
	case ErrNoSpace:
		return "lfs: no space left on device"
	case ErrNameTooLong:
		return "lfs: file name too long"
	default:
		return "lfs: error " + strconv.Itoa(int(e))
	}
}
