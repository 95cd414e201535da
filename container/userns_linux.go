package container

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/wking/ccon/config"
)

var errChildDied = errors.New("container: container process died")

// writeUserNamespaceMappings writes the id mappings for a freshly
// created user namespace from the host side, while the container
// blocks on the mapping-complete message. Files are only touched when
// the corresponding configuration field is present. setgroups must be
// written before gid_map when denying, so the order is uid_map,
// setgroups, gid_map.
func writeUserNamespaceMappings(user *config.Namespace, cpid int) error {
	if user.UIDMappings != nil {
		if !childAlive() {
			return errChildDied
		}
		if err := writeIDMap(procPath(cpid, "uid_map"), user.UIDMappings); err != nil {
			return err
		}
	}
	if user.SetGroups != nil {
		if !childAlive() {
			return errChildDied
		}
		if err := writeSetGroups(procPath(cpid, "setgroups"), *user.SetGroups); err != nil {
			return err
		}
	}
	if user.GIDMappings != nil {
		if !childAlive() {
			return errChildDied
		}
		if err := writeIDMap(procPath(cpid, "gid_map"), user.GIDMappings); err != nil {
			return err
		}
	}
	return nil
}

func procPath(cpid int, name string) string {
	return "/proc/" + strconv.Itoa(cpid) + "/" + name
}

// writeIDMap emits one "container host size" line per mapping entry,
// each in its own write syscall.
func writeIDMap(path string, mappings []config.IDMap) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("container: open %s: %w", path, err)
	}
	defer f.Close()
	for _, m := range mappings {
		line := fmt.Sprintf("%d %d %d\n", m.ContainerID, m.HostID, m.Size)
		logrus.Debugf("write %q to %s", line, path)
		if _, err := f.WriteString(line); err != nil {
			return fmt.Errorf("container: write %q to %s: %w", line, path, err)
		}
	}
	return nil
}

// writeSetGroups writes "allow" or "deny" to the setgroups file.
func writeSetGroups(path string, allow bool) error {
	value := "deny"
	if allow {
		value = "allow"
	}
	logrus.Debugf("write %q to %s", value, path)
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("container: open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(value); err != nil {
		return fmt.Errorf("container: write %q to %s: %w", value, path, err)
	}
	return nil
}
