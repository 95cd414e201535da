package mount

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// mountFlags maps the symbolic flag tokens accepted in mount entries
// to their mount(2) values. MS_SYNC is accepted as a synonym for
// MS_SYNCHRONOUS; the msync(2) constant of the same name is not a
// mount flag.
var mountFlags = map[string]uintptr{
	"MS_BIND":        unix.MS_BIND,
	"MS_DIRSYNC":     unix.MS_DIRSYNC,
	"MS_I_VERSION":   unix.MS_I_VERSION,
	"MS_LAZYTIME":    unix.MS_LAZYTIME,
	"MS_MANDLOCK":    unix.MS_MANDLOCK,
	"MS_MOVE":        unix.MS_MOVE,
	"MS_NOATIME":     unix.MS_NOATIME,
	"MS_NODEV":       unix.MS_NODEV,
	"MS_NODIRATIME":  unix.MS_NODIRATIME,
	"MS_NOEXEC":      unix.MS_NOEXEC,
	"MS_NOSUID":      unix.MS_NOSUID,
	"MS_PRIVATE":     unix.MS_PRIVATE,
	"MS_RDONLY":      unix.MS_RDONLY,
	"MS_REC":         unix.MS_REC,
	"MS_RELATIME":    unix.MS_RELATIME,
	"MS_REMOUNT":     unix.MS_REMOUNT,
	"MS_SHARED":      unix.MS_SHARED,
	"MS_SILENT":      unix.MS_SILENT,
	"MS_SLAVE":       unix.MS_SLAVE,
	"MS_STRICTATIME": unix.MS_STRICTATIME,
	"MS_SYNC":        unix.MS_SYNCHRONOUS,
	"MS_SYNCHRONOUS": unix.MS_SYNCHRONOUS,
	"MS_UNBINDABLE":  unix.MS_UNBINDABLE,
	"MS_VERBOSE":     unix.MS_VERBOSE,
}

// ParseFlags resolves symbolic flag tokens to their OR-ed value.
// Unknown tokens are fatal.
func ParseFlags(tokens []string) (uintptr, error) {
	var flags uintptr
	for _, tok := range tokens {
		f, ok := mountFlags[tok]
		if !ok {
			return 0, fmt.Errorf("mount: unrecognized mount flag %q", tok)
		}
		flags |= f
	}
	return flags, nil
}
