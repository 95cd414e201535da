package container

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/wking/ccon/config"
)

// execProcess replaces the current process with the configured
// program. With a pre-opened host descriptor the file is executed by
// fd; otherwise process.path, or args[0], is resolved against the
// ambient PATH. It only returns on failure.
func execProcess(p *config.Process, execFd int) error {
	argv := p.Args
	env := p.Env
	if env == nil {
		env = unix.Environ()
	}

	if execFd >= 0 {
		logrus.Debugf("execute host executable: %s", strings.Join(argv, " "))
		if err := fdExec(execFd, argv, env); err != nil {
			return fmt.Errorf("execveat: %w", err)
		}
		return nil
	}

	name := p.Path
	if name == "" {
		name = argv[0]
	}
	full, err := lookPath(name, unix.Environ())
	if err != nil {
		return err
	}
	logrus.Debugf("execute [%s]: %s", full, strings.Join(argv, " "))
	if err := unix.Exec(full, argv, env); err != nil {
		return fmt.Errorf("execve %s: %w", full, err)
	}
	return nil
}

// fdExec is execveat(fd, "", argv, envp, AT_EMPTY_PATH), executing
// the file a descriptor refers to.
func fdExec(fd int, argv, env []string) error {
	argvp, err := syscall.SlicePtrFromStrings(argv)
	if err != nil {
		return err
	}
	envp, err := syscall.SlicePtrFromStrings(env)
	if err != nil {
		return err
	}
	empty, err := syscall.BytePtrFromString("")
	if err != nil {
		return err
	}
	_, _, errno := syscall.Syscall6(unix.SYS_EXECVEAT,
		uintptr(fd),
		uintptr(unsafe.Pointer(empty)),
		uintptr(unsafe.Pointer(&argvp[0])),
		uintptr(unsafe.Pointer(&envp[0])),
		uintptr(unix.AT_EMPTY_PATH), 0)
	return errno
}
