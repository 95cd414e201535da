// Package config loads and validates the declarative container
// configuration consumed by the ccon runtime.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Versions accepted by Validate. Comparison is by prefix so patch
// suffixes like "0.2.0-rc1" stay runnable.
var supportedVersions = []string{"0.1.0", "0.2.0"}

// Config is the top level container configuration. Unknown keys are
// ignored on decode.
type Config struct {
	Version    string     `json:"version"`
	Namespaces Namespaces `json:"namespaces"`
	Hooks      *Hooks     `json:"hooks"`
	Process    *Process   `json:"process"`
}

// Namespaces holds the namespace descriptors in the order they appear
// in the configuration document.
type Namespaces []Namespace

// Namespace describes a single namespace to create (no Path) or join
// (Path set). The user and mount entries carry their extra settings.
type Namespace struct {
	Name string
	Path string

	// user namespace only
	UIDMappings []IDMap
	GIDMappings []IDMap
	SetGroups   *bool

	// mount namespace only
	Mounts []Mount
}

// Create reports whether the namespace is to be newly created rather
// than joined.
func (n *Namespace) Create() bool {
	return n.Path == ""
}

// IDMap is a single uid_map / gid_map line.
type IDMap struct {
	ContainerID int `json:"containerID"`
	HostID      int `json:"hostID"`
	Size        int `json:"size"`
}

// Mount is one entry of namespaces.mount.mounts. Flags are symbolic
// MS_* tokens resolved by the mount package.
type Mount struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Type   string   `json:"type"`
	Flags  []string `json:"flags"`
	Data   string   `json:"data"`
}

// Hooks are the external processes run at lifecycle phases.
type Hooks struct {
	PreStart []*Process `json:"pre-start"`
	PostStop []*Process `json:"post-stop"`
}

// Process describes a program to execute: the container process or a
// hook process.
type Process struct {
	Args         []string `json:"args"`
	Env          []string `json:"env"`
	Path         string   `json:"path"`
	Cwd          string   `json:"cwd"`
	Host         bool     `json:"host"`
	User         *User    `json:"user"`
	Capabilities []string `json:"capabilities"`
}

// User carries the identity applied before exec. Nil fields are left
// unchanged.
type User struct {
	UID            *int  `json:"uid"`
	GID            *int  `json:"gid"`
	AdditionalGids []int `json:"additionalGids"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return LoadString(string(data))
}

// LoadString decodes and validates an inline JSON configuration.
func LoadString(data string) (*Config, error) {
	c := new(Config)
	if err := json.Unmarshal([]byte(data), c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the parts of the configuration the runtime depends
// on before any process is created.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("config: missing version")
	}
	for _, v := range supportedVersions {
		if strings.HasPrefix(c.Version, v) {
			return nil
		}
	}
	return fmt.Errorf("config: version %s is not supported", c.Version)
}

// descriptor is the wire form of a namespace entry.
type descriptor struct {
	Path        string  `json:"path,omitempty"`
	UIDMappings []IDMap `json:"uidMappings,omitempty"`
	GIDMappings []IDMap `json:"gidMappings,omitempty"`
	SetGroups   *bool   `json:"setgroups,omitempty"`
	Mounts      []Mount `json:"mounts,omitempty"`
}

// UnmarshalJSON decodes the namespaces object preserving document
// order. Namespace creation and joining follow the order the keys
// appear in, so a plain map will not do.
func (n *Namespaces) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("config: namespaces is not an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("config: namespace key is not a string")
		}
		var d descriptor
		if err := dec.Decode(&d); err != nil {
			return fmt.Errorf("config: namespace %s: %w", name, err)
		}
		*n = append(*n, Namespace{
			Name:        name,
			Path:        d.Path,
			UIDMappings: d.UIDMappings,
			GIDMappings: d.GIDMappings,
			SetGroups:   d.SetGroups,
			Mounts:      d.Mounts,
		})
	}
	_, err = dec.Token() // consume closing brace
	return err
}

// MarshalJSON encodes the namespaces back to a JSON object in
// document order, so a round trip through the bootstrap payload keeps
// the original ordering.
func (n Namespaces) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n[i].Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(descriptor{
			Path:        n[i].Path,
			UIDMappings: n[i].UIDMappings,
			GIDMappings: n[i].GIDMappings,
			SetGroups:   n[i].SetGroups,
			Mounts:      n[i].Mounts,
		})
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the descriptor for the named namespace, or nil.
func (n Namespaces) Get(name string) *Namespace {
	for i := range n {
		if n[i].Name == name {
			return &n[i]
		}
	}
	return nil
}
