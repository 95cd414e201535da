package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wking/ccon/config"
)

func TestWriteIDMap(t *testing.T) {
	tests := []struct {
		name     string
		mappings []config.IDMap
		want     string
	}{
		{
			name:     "single",
			mappings: []config.IDMap{{ContainerID: 0, HostID: 1000, Size: 1}},
			want:     "0 1000 1\n",
		},
		{
			name: "multiple in config order",
			mappings: []config.IDMap{
				{ContainerID: 0, HostID: 1000, Size: 1},
				{ContainerID: 1, HostID: 100000, Size: 65536},
			},
			want: "0 1000 1\n1 100000 65536\n",
		},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "uid_map")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
		if err := writeIDMap(path, tt.mappings); err != nil {
			t.Fatalf("%s: writeIDMap error: %v", tt.name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != tt.want {
			t.Errorf("%s: uid_map content = %q, want %q", tt.name, data, tt.want)
		}
	}
}

func TestWriteIDMap_MissingFile(t *testing.T) {
	err := writeIDMap(filepath.Join(t.TempDir(), "nope", "uid_map"), []config.IDMap{{Size: 1}})
	if err == nil {
		t.Error("writeIDMap expected error for missing file")
	}
}

func TestWriteSetGroups(t *testing.T) {
	tests := []struct {
		allow bool
		want  string
	}{
		{false, "deny"},
		{true, "allow"},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "setgroups")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
		if err := writeSetGroups(path, tt.allow); err != nil {
			t.Fatalf("writeSetGroups(%v) error: %v", tt.allow, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != tt.want {
			t.Errorf("setgroups content = %q, want %q", data, tt.want)
		}
	}
}

func TestWriteUserNamespaceMappings_DeadChild(t *testing.T) {
	old := childPid.Load()
	childPid.Store(-1)
	defer childPid.Store(old)

	ns := &config.Namespace{
		Name:        "user",
		UIDMappings: []config.IDMap{{ContainerID: 0, HostID: 1000, Size: 1}},
	}
	if err := writeUserNamespaceMappings(ns, 1); err != errChildDied {
		t.Errorf("writeUserNamespaceMappings error = %v, want %v", err, errChildDied)
	}
}
