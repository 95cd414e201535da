package container

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/wking/ccon/config"
)

var (
	errNotFound = errors.New("executable file not found in $PATH")
	errNoPath   = errors.New("no PATH environment variable provided for look up")
)

// maxPath bounds every candidate path, terminating NUL included.
const maxPath = 1024

// openHostExecutable resolves the process binary against the host
// filesystem and opens it by path only, before the mount view
// changes. The descriptor is consumed later by the fd-based exec.
func openHostExecutable(p *config.Process) (int, error) {
	arg0 := p.Path
	if arg0 == "" {
		if len(p.Args) == 0 {
			return -1, nil
		}
		arg0 = p.Args[0]
	}
	return openInPath(arg0, unix.O_PATH|unix.O_CLOEXEC)
}

// openInPath opens name directly when absolute, relative to the
// working directory when it contains a separator, and against each
// $PATH entry otherwise. The first successful open wins.
func openInPath(name string, flags int) (int, error) {
	if strings.HasPrefix(name, "/") {
		logrus.Debugf("open container-process executable from host %s", name)
		fd, err := unix.Open(name, flags, 0)
		if err != nil {
			return -1, fmt.Errorf("open %s: %w", name, err)
		}
		return fd, nil
	}

	if strings.Contains(name, "/") {
		cwd, err := unix.Getwd()
		if err != nil {
			return -1, fmt.Errorf("getcwd: %w", err)
		}
		full, err := joinPath(cwd, name)
		if err != nil {
			return -1, err
		}
		logrus.Debugf("open container-process executable from host %s", full)
		fd, err := unix.Open(full, flags, 0)
		if err != nil {
			return -1, fmt.Errorf("open %s: %w", full, err)
		}
		return fd, nil
	}

	path, err := findPath(unix.Environ())
	if err != nil {
		return -1, err
	}
	for _, dir := range path {
		if dir == "" {
			dir = "."
		}
		full, err := joinPath(dir, name)
		if err != nil {
			return -1, err
		}
		fd, err := unix.Open(full, flags, 0)
		if err == nil {
			logrus.Debugf("open container-process executable from host %s", full)
			return fd, nil
		}
	}
	return -1, fmt.Errorf("%s: %w", name, errNotFound)
}

// joinPath joins dir and name with the maxPath bound of the mount and
// exec paths.
func joinPath(dir, name string) (string, error) {
	// dir + '/' + name + NUL
	if len(dir)+len(name)+2 > maxPath {
		return "", fmt.Errorf("path %s/%s is too long (%d > %d)", dir, name, len(dir)+len(name)+2, maxPath)
	}
	return dir + "/" + name, nil
}

// lookPath resolves a program name the way execvpe would: names with
// a separator are used as given, bare names searched across the PATH
// of the supplied environment.
func lookPath(name string, env []string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	path, err := findPath(env)
	if err != nil {
		return "", err
	}
	for _, dir := range path {
		if dir == "" {
			dir = "."
		}
		full, err := joinPath(dir, name)
		if err != nil {
			return "", err
		}
		if err := findExecutable(full); err == nil {
			return full, nil
		}
	}
	return "", fmt.Errorf("%s: %w", name, errNotFound)
}

func findExecutable(file string) error {
	var stat unix.Stat_t
	if err := unix.Stat(file, &stat); err != nil {
		return err
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFDIR && stat.Mode&0111 != 0 {
		return nil
	}
	return unix.EACCES
}

// findPath extracts the last PATH assignment from an environment
// list.
func findPath(env []string) ([]string, error) {
	const pathPrefix = "PATH="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], pathPrefix) {
			return filepath.SplitList(env[i][len(pathPrefix):]), nil
		}
	}
	return nil, errNoPath
}
