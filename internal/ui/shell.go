package ui

import (
	"fmt"
	"io"
	iofs "io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pfsys/pfs/internal/mount"
	"github.com/pfsys/pfs/internal/vfs"
)

const catLimit = 64 * 1024

// Shell interprets command lines against a mount table. It carries no
// state of its own beyond the table, so one instance serves the whole
// session.
type Shell struct {
	table *mount.Table
}

// NewShell returns a [Shell] over the given mount table.
func NewShell(table *mount.Table) *Shell {
	return &Shell{table: table}
}

// Run executes one command line and returns its output. Errors are
// rendered into the output rather than returned, so the caller always has
// something to display.
func (s *Shell) Run(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	cmd, args := fields[0], fields[1:]

	out, err := s.dispatch(cmd, args)
	if err != nil {
		return fmt.Sprintf("%s: %v", cmd, err)
	}

	return out
}

//nolint:funlen
func (s *Shell) dispatch(cmd string, args []string) (string, error) {
	switch cmd {
	case "help":
		return helpText, nil

	case "pwd":
		return s.table.Getwd(), nil

	case "cd":
		if len(args) != 1 {
			return "", errUsage("cd <dir>")
		}

		return "", s.table.Chdir(args[0])

	case "ls":
		name := "."
		if len(args) > 0 {
			name = args[0]
		}

		return s.list(name)

	case "cat":
		if len(args) != 1 {
			return "", errUsage("cat <file>")
		}

		return s.readFile(args[0])

	case "write":
		if len(args) < 2 {
			return "", errUsage("write <file> <text>")
		}

		return "", s.writeFile(args[0], strings.Join(args[1:], " "),
			vfs.WriteOnly|vfs.Create|vfs.Truncate)

	case "append":
		if len(args) < 2 {
			return "", errUsage("append <file> <text>")
		}

		return "", s.writeFile(args[0], strings.Join(args[1:], " "),
			vfs.WriteOnly|vfs.Create|vfs.Append)

	case "mkdir":
		if len(args) != 1 {
			return "", errUsage("mkdir <dir>")
		}

		return "", s.table.Mkdir(args[0], 0o755)

	case "rm":
		if len(args) != 1 {
			return "", errUsage("rm <file>")
		}

		return "", s.table.Remove(args[0])

	case "rmdir":
		if len(args) != 1 {
			return "", errUsage("rmdir <dir>")
		}

		return "", s.table.Rmdir(args[0])

	case "mv":
		if len(args) != 2 {
			return "", errUsage("mv <old> <new>")
		}

		return "", s.table.Rename(args[0], args[1])

	case "stat":
		if len(args) != 1 {
			return "", errUsage("stat <name>")
		}

		return s.statName(args[0])

	case "mounts":
		points := s.table.MountPoints()
		sort.Strings(points)

		return strings.Join(points, "\n"), nil

	case "purge":
		if len(args) != 1 {
			return "", errUsage("purge <device>")
		}

		return "", s.ioctl(args[0], vfs.ReqPurge, nil)

	case "mode":
		if len(args) != 2 {
			return "", errUsage("mode <device> <hex-word>")
		}
		word, err := strconv.ParseInt(strings.TrimPrefix(args[1], "0x"), 16, 32)
		if err != nil {
			return "", fmt.Errorf("%w: bad mode word", vfs.ErrInvalidArgument)
		}

		return "", s.ioctl(args[0], vfs.ReqSetMode, vfs.Mode(word))

	case "timeout":
		if len(args) != 2 {
			return "", errUsage("timeout <device> <duration>")
		}
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return "", fmt.Errorf("%w: bad duration", vfs.ErrInvalidArgument)
		}

		return "", s.ioctl(args[0], vfs.ReqSetTimeout, d)
	}

	return "", fmt.Errorf("unknown command (try \"help\")")
}

const helpText = `help                      show this text
pwd                       print working directory
cd <dir>                  change working directory
ls [dir]                  list directory
cat <file>                print file contents
write <file> <text>       replace file contents
append <file> <text>      append to file
mkdir <dir>               create directory
rm <file>                 remove file
rmdir <dir>               remove empty directory
mv <old> <new>            rename within one volume
stat <name>               show entry details
mounts                    list mount points
purge <device>            discard buffered device input
mode <device> <hex-word>  set device mode word
timeout <device> <dur>    set device read timeout`

func errUsage(usage string) error {
	return fmt.Errorf("usage: %s", usage)
}

func (s *Shell) list(name string) (string, error) {
	dir, err := s.table.OpenDir(name)
	if err != nil {
		return "", err
	}
	defer dir.Close()

	var b strings.Builder
	for {
		ent, err := dir.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		if ent.Mode.IsDir() {
			fmt.Fprintf(&b, "%-24s <dir>", ent.Name+"/")

			continue
		}

		size := "-"
		if ent.Name != "." && ent.Name != ".." {
			if fi, err := s.statEntry(name, ent.Name); err == nil {
				size = humanize.Bytes(uint64(fi.Size))
			}
		}
		fmt.Fprintf(&b, "%-24s %s", ent.Name, size)
	}

	return b.String(), nil
}

func (s *Shell) statEntry(dir string, name string) (vfs.FileInfo, error) {
	if dir == "." {
		return s.table.Stat(name)
	}

	return s.table.Stat(strings.TrimSuffix(dir, "/") + "/" + name)
}

func (s *Shell) readFile(name string) (string, error) {
	fd, err := s.table.Open(name, vfs.ReadOnly)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	var b strings.Builder
	buf := make([]byte, 4096)
	for b.Len() < catLimit {
		n, err := fd.Read(buf)
		if err == io.EOF || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return "", err
		}
		b.Write(buf[:n])
	}

	return strings.TrimSuffix(b.String(), "\n"), nil
}

func (s *Shell) writeFile(name string, text string, flags vfs.OpenFlag) error {
	fd, err := s.table.Open(name, flags)
	if err != nil {
		return err
	}
	defer fd.Close()

	if _, err := fd.Write([]byte(text + "\n")); err != nil {
		return err
	}

	return nil
}

func (s *Shell) statName(name string) (string, error) {
	fi, err := s.table.Stat(name)
	if err != nil {
		return "", err
	}

	kind := "file"
	switch {
	case fi.IsDir():
		kind = "directory"
	case fi.Mode&iofs.ModeDevice != 0:
		kind = "device"
	}

	return fmt.Sprintf("name: %s\ntype: %s\nsize: %s\nmode: %v\nlinks: %d",
		fi.Name, kind, humanize.Bytes(uint64(fi.Size)), fi.Mode, fi.Nlink), nil
}

func (s *Shell) ioctl(name string, req vfs.Request, arg any) error {
	fd, err := s.table.Open(name, vfs.ReadWrite)
	if err != nil {
		return err
	}
	defer fd.Close()

	return fd.Ioctl(req, arg)
}
