// Package mount performs the ordered mount setup of a container,
// including the pivot-root sequence that replaces the root filesystem.
package mount

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MaxPath bounds every resolved mount path, terminating NUL included.
const MaxPath = 1024

// Mount defines a single mount operation. Source and Target are kept
// as configured; Resolve produces the absolute form.
type Mount struct {
	Source, Target, FsType, Data string
	Flags                        uintptr
}

// pivotRootType is the mount entry type that triggers the pivot-root
// sequence instead of mount(2).
const pivotRootType = "pivot-root"

// IsPivotRoot reports whether the entry requests a root pivot.
func (m *Mount) IsPivotRoot() bool {
	return m.FsType == pivotRootType
}

func (m Mount) String() string {
	switch {
	case m.IsPivotRoot():
		return fmt.Sprintf("pivot-root[%s]", m.Source)

	case m.Flags&unix.MS_BIND == unix.MS_BIND:
		flag := "rw"
		if m.Flags&unix.MS_RDONLY == unix.MS_RDONLY {
			flag = "ro"
		}
		return fmt.Sprintf("bind[%s:%s:%s]", m.Source, m.Target, flag)

	case m.FsType == "tmpfs":
		return fmt.Sprintf("tmpfs[%s]", m.Target)

	case m.FsType == "proc":
		return fmt.Sprintf("proc[%s]", m.Target)

	default:
		return fmt.Sprintf("mount[%s,%s:%s:%x,%s]", m.FsType, m.Source, m.Target, m.Flags, m.Data)
	}
}

// Resolve makes path absolute against cwd and enforces MaxPath.
// Absolute paths are used verbatim.
func Resolve(cwd, path string) (string, error) {
	full := path
	if len(path) == 0 || path[0] != '/' {
		full = cwd + "/" + path
	}
	// reserve one byte for the terminating NUL at the syscall boundary
	if len(full) >= MaxPath {
		return "", fmt.Errorf("mount: path %s is too long (%d >= %d)", full, len(full), MaxPath)
	}
	return full, nil
}
