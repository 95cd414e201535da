package config

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestCloneFlag(t *testing.T) {
	tests := []struct {
		name string
		flag uintptr
		ok   bool
	}{
		{"mount", unix.CLONE_NEWNS, true},
		{"uts", unix.CLONE_NEWUTS, true},
		{"ipc", unix.CLONE_NEWIPC, true},
		{"net", unix.CLONE_NEWNET, true},
		{"pid", unix.CLONE_NEWPID, true},
		{"user", unix.CLONE_NEWUSER, true},
		{"cgroup", 0, false},
		{"", 0, false},
		{"MOUNT", 0, false},
	}
	for _, tt := range tests {
		flag, err := CloneFlag(tt.name)
		if tt.ok && err != nil {
			t.Errorf("CloneFlag(%q) error: %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("CloneFlag(%q) expected error", tt.name)
		}
		if flag != tt.flag {
			t.Errorf("CloneFlag(%q) = %#x, want %#x", tt.name, flag, tt.flag)
		}
	}
}

func TestNamespaces_CloneFlags(t *testing.T) {
	tests := []struct {
		name string
		ns   Namespaces
		want uintptr
		ok   bool
	}{
		{
			name: "empty",
			ns:   nil,
			want: 0,
			ok:   true,
		},
		{
			name: "create two",
			ns: Namespaces{
				{Name: "uts"},
				{Name: "pid"},
			},
			want: unix.CLONE_NEWUTS | unix.CLONE_NEWPID,
			ok:   true,
		},
		{
			name: "join is excluded",
			ns: Namespaces{
				{Name: "uts"},
				{Name: "net", Path: "/proc/1/ns/net"},
			},
			want: unix.CLONE_NEWUTS,
			ok:   true,
		},
		{
			name: "unknown name",
			ns: Namespaces{
				{Name: "time"},
			},
			ok: false,
		},
	}
	for _, tt := range tests {
		got, err := tt.ns.CloneFlags()
		if tt.ok && err != nil {
			t.Errorf("%s: CloneFlags error: %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: CloneFlags expected error", tt.name)
		}
		if err == nil && got != tt.want {
			t.Errorf("%s: CloneFlags = %#x, want %#x", tt.name, got, tt.want)
		}
	}
}
