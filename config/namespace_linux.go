package config

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// namespaceTypes maps configuration namespace names to the
// corresponding CLONE_NEW* flag, used both for clone flag computation
// and for setns.
var namespaceTypes = map[string]uintptr{
	"mount": unix.CLONE_NEWNS,
	"uts":   unix.CLONE_NEWUTS,
	"ipc":   unix.CLONE_NEWIPC,
	"net":   unix.CLONE_NEWNET,
	"pid":   unix.CLONE_NEWPID,
	"user":  unix.CLONE_NEWUSER,
}

// CloneFlag resolves a namespace name to its namespace-type flag.
func CloneFlag(name string) (uintptr, error) {
	flag, ok := namespaceTypes[name]
	if !ok {
		return 0, fmt.Errorf("config: unrecognized namespace %q", name)
	}
	return flag, nil
}

// CloneFlags computes the OR of the CLONE_NEW* flags for every
// namespace that is to be created (no join path).
func (n Namespaces) CloneFlags() (uintptr, error) {
	var flags uintptr
	for i := range n {
		if !n[i].Create() {
			continue
		}
		flag, err := CloneFlag(n[i].Name)
		if err != nil {
			return 0, err
		}
		flags |= flag
	}
	return flags, nil
}
