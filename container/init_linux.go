package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/wking/ccon/config"
	"github.com/wking/ccon/pkg/caps"
	"github.com/wking/ccon/pkg/mount"
)

// Init runs the container half when the current binary was
// re-executed by Run. It is a no-op otherwise, so it can sit in a
// main package init function. On the init path it never returns: the
// process either execs the container program or exits.
func Init() {
	if len(os.Args) < 2 || os.Args[1] != initArg {
		return
	}

	// setns and the identity syscalls are thread-scoped
	runtime.LockOSThread()

	if err := initContainer(); err != nil {
		logrus.Errorf("container_init: %v", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// initContainer performs the in-namespace half of the setup. A nil
// return means the configuration asked for no process to exec.
func initContainer() error {
	fromParent := os.NewFile(initPipeFd, "host-to-container")
	toParent := os.NewFile(replyPipeFd, "container-to-host")
	boot := os.NewFile(bootstrapPipeFd, "bootstrap")

	var b bootstrap
	if err := json.NewDecoder(boot).Decode(&b); err != nil {
		return fmt.Errorf("decode bootstrap: %w", err)
	}
	if err := boot.Close(); err != nil {
		return fmt.Errorf("close bootstrap pipe: %w", err)
	}
	if b.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	cfg := b.Config
	if cfg == nil {
		return errors.New("no configuration in bootstrap payload")
	}

	if err := expectMsg(fromParent, msgMappingComplete); err != nil {
		return err
	}

	// resolve the host binary before the mount view changes
	execFd := -1
	if p := cfg.Process; p != nil && p.Host {
		fd, err := openHostExecutable(p)
		if err != nil {
			return err
		}
		execFd = fd
	}

	if err := joinNamespaces(cfg.Namespaces); err != nil {
		return err
	}

	if mnt := cfg.Namespaces.Get("mount"); mnt != nil {
		mounts, err := buildMounts(mnt.Mounts)
		if err != nil {
			return err
		}
		if err := mount.Apply(mounts); err != nil {
			return err
		}
	}

	if err := sendMsg(toParent, msgSetupComplete); err != nil {
		return err
	}
	if err := toParent.Close(); err != nil {
		return fmt.Errorf("close container-to-host pipe write-end: %w", err)
	}

	// block while the host runs pre-start hooks
	if err := expectMsg(fromParent, msgExecProcess); err != nil {
		return err
	}
	if err := fromParent.Close(); err != nil {
		return fmt.Errorf("close host-to-container pipe read-end: %w", err)
	}

	if err := setWorkingDirectory(cfg.Process); err != nil {
		return err
	}
	if err := setUserGroup(cfg.Process); err != nil {
		return err
	}
	if p := cfg.Process; p != nil && p.Capabilities != nil {
		if err := caps.Apply(p.Capabilities); err != nil {
			return err
		}
	}

	return execContainerProcess(cfg.Process, execFd)
}

// joinNamespaces enters every namespace that carries a join path, in
// configuration order.
func joinNamespaces(namespaces config.Namespaces) error {
	for i := range namespaces {
		n := &namespaces[i]
		if n.Create() {
			continue
		}
		flag, err := config.CloneFlag(n.Name)
		if err != nil {
			return err
		}
		logrus.Debugf("join %s namespace at %s", n.Name, n.Path)
		fd, err := unix.Open(n.Path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", n.Path, err)
		}
		if err := unix.Setns(fd, int(flag)); err != nil {
			unix.Close(fd)
			return fmt.Errorf("setns %s: %w", n.Name, err)
		}
		if err := unix.Close(fd); err != nil {
			return fmt.Errorf("close %s: %w", n.Path, err)
		}
	}
	return nil
}

// buildMounts resolves the symbolic flag tokens of the configured
// mount entries.
func buildMounts(entries []config.Mount) ([]mount.Mount, error) {
	mounts := make([]mount.Mount, 0, len(entries))
	for _, e := range entries {
		flags, err := mount.ParseFlags(e.Flags)
		if err != nil {
			return nil, err
		}
		mounts = append(mounts, mount.Mount{
			Source: e.Source,
			Target: e.Target,
			FsType: e.Type,
			Data:   e.Data,
			Flags:  flags,
		})
	}
	return mounts, nil
}

// setWorkingDirectory applies process.cwd; absent means inherit.
func setWorkingDirectory(p *config.Process) error {
	if p == nil || p.Cwd == "" {
		return nil
	}
	logrus.Debugf("change working directory to %s", p.Cwd)
	if err := os.Chdir(p.Cwd); err != nil {
		return fmt.Errorf("chdir: %w", err)
	}
	return nil
}

// setUserGroup applies gid, then supplementary groups, then uid, so
// no privileged step runs after the UID drop. Absent fields are
// skipped.
func setUserGroup(p *config.Process) error {
	if p == nil || p.User == nil {
		return nil
	}
	u := p.User
	if u.GID != nil {
		logrus.Debugf("set GID to %d", *u.GID)
		if err := unix.Setgid(*u.GID); err != nil {
			return fmt.Errorf("setgid: %w", err)
		}
	}
	if u.AdditionalGids != nil {
		logrus.Debugf("set additional GIDs to %v", u.AdditionalGids)
		if err := unix.Setgroups(u.AdditionalGids); err != nil {
			return fmt.Errorf("setgroups: %w", err)
		}
	}
	if u.UID != nil {
		logrus.Debugf("set UID to %d", *u.UID)
		if err := unix.Setuid(*u.UID); err != nil {
			return fmt.Errorf("setuid: %w", err)
		}
	}
	return nil
}

// execContainerProcess hands control to the configured program. With
// no process or no args there is nothing to run and the container
// exits cleanly.
func execContainerProcess(p *config.Process, execFd int) error {
	if p == nil {
		logrus.Debug("process not defined, exiting")
		return nil
	}
	if len(p.Args) == 0 {
		logrus.Debug("args not specified, exiting")
		return nil
	}
	return execProcess(p, execFd)
}
