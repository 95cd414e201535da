package mount

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Mount calls mount(2) with the entry's parameters. Paths must
// already be resolved.
func (m *Mount) Mount() error {
	if err := unix.Mount(m.Source, m.Target, m.FsType, m.Flags, m.Data); err != nil {
		return fmt.Errorf("mount: %v: %w", m, err)
	}
	return nil
}

// Apply performs every mount operation in order, resolving relative
// sources and targets against the current working directory captured
// once at entry. A pivot-root entry replaces the root filesystem and
// detaches the old one.
func Apply(mounts []Mount) error {
	if len(mounts) == 0 {
		return nil
	}
	cwd, err := unix.Getwd()
	if err != nil {
		return fmt.Errorf("mount: getcwd: %w", err)
	}
	if len(cwd) == 0 || cwd[0] != '/' {
		return fmt.Errorf("mount: current working directory is unreachable: %s", cwd)
	}
	for i := range mounts {
		m := mounts[i]
		if m.Source != "" {
			if m.Source, err = Resolve(cwd, m.Source); err != nil {
				return err
			}
		}
		if m.Target != "" {
			if m.Target, err = Resolve(cwd, m.Target); err != nil {
				return err
			}
		}
		if m.IsPivotRoot() {
			if err := PivotRoot(m.Source); err != nil {
				return err
			}
			continue
		}
		logrus.Debugf("mount %d: %v (flags: %#x, data: %s)", i, m, m.Flags, m.Data)
		if err := m.Mount(); err != nil {
			return err
		}
	}
	return nil
}

// PivotRoot makes newRoot the root filesystem and removes the old
// root: the old root is pivoted into a temporary directory under
// newRoot, lazily unmounted, and the directory deleted. newRoot must
// already be a mount point.
func PivotRoot(newRoot string) error {
	if mounted, err := mountinfo.Mounted(newRoot); err != nil {
		return fmt.Errorf("mount: check %s: %w", newRoot, err)
	} else if !mounted {
		return fmt.Errorf("mount: pivot-root %s is not a mount point", newRoot)
	}

	putOld, err := os.MkdirTemp(newRoot, "pivot-root.")
	if err != nil {
		return fmt.Errorf("mount: mkdtemp under %s: %w", newRoot, err)
	}

	if err := os.Chdir(newRoot); err != nil {
		os.Remove(putOld)
		return fmt.Errorf("mount: chdir %s: %w", newRoot, err)
	}

	logrus.Debugf("pivot root to %s", newRoot)
	if err := unix.PivotRoot(newRoot, putOld); err != nil {
		os.Remove(putOld)
		return fmt.Errorf("mount: pivot_root(%s, %s): %w", newRoot, putOld, err)
	}

	// the old root now lives under the new root at the basename
	oldBase := filepath.Base(putOld)

	if err := os.Chdir("/"); err != nil {
		os.Remove(oldBase)
		return fmt.Errorf("mount: chdir /: %w", err)
	}

	logrus.Debugf("unmount old root from %s", oldBase)
	if err := unix.Unmount(oldBase, unix.MNT_DETACH); err != nil {
		os.Remove(oldBase)
		return fmt.Errorf("mount: unmount %s: %w", oldBase, err)
	}

	if err := os.Remove(oldBase); err != nil {
		return fmt.Errorf("mount: rmdir %s: %w", oldBase, err)
	}
	return nil
}
