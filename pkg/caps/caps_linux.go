// Package caps restricts the process capability sets to an explicit
// list of named capabilities.
package caps

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/syndtr/gocapability/capability"
)

// allCapabilityTypes covers the traditional sets and the bounding set;
// a bounding-set update is required for a real drop.
const allCapabilityTypes = capability.CAPS | capability.BOUNDS

// capabilityMap indexes every capability known to the library by its
// CAP_-prefixed upper-case name.
var capabilityMap = func() map[string]capability.Cap {
	m := make(map[string]capability.Cap, len(capability.List()))
	for _, c := range capability.List() {
		m["CAP_"+strings.ToUpper(c.String())] = c
	}
	return m
}()

// Parse resolves CAP_-prefixed capability names. Names shorter than
// the prefix itself or unknown to the library are fatal.
func Parse(names []string) ([]capability.Cap, error) {
	list := make([]capability.Cap, 0, len(names))
	for _, name := range names {
		if len(name) < 4 {
			return nil, fmt.Errorf("caps: invalid capability name %q", name)
		}
		c, ok := capabilityMap[name]
		if !ok {
			return nil, fmt.Errorf("caps: unrecognized capability name %q", name)
		}
		list = append(list, c)
	}
	return list, nil
}

// Apply clears the scratch space for both selectors, restores exactly
// the named capabilities to the effective, permitted, inheritable and
// bounding sets, and commits the result for the current process.
func Apply(names []string) error {
	keep, err := Parse(names)
	if err != nil {
		return err
	}
	pid, err := capability.NewPid2(0)
	if err != nil {
		return fmt.Errorf("caps: init capability state: %w", err)
	}
	logrus.Debug("remove all capabilities from the scratch space")
	pid.Clear(allCapabilityTypes)
	for _, c := range keep {
		logrus.Debugf("restore %s capability to scratch space", c)
	}
	pid.Set(allCapabilityTypes, keep...)
	if err := pid.Apply(allCapabilityTypes); err != nil {
		return fmt.Errorf("caps: apply capabilities: %w", err)
	}
	return nil
}
