package caps

import (
	"testing"

	"github.com/syndtr/gocapability/capability"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		want  []capability.Cap
		ok    bool
	}{
		{"empty", nil, []capability.Cap{}, true},
		{"kill", []string{"CAP_KILL"}, []capability.Cap{capability.CAP_KILL}, true},
		{
			"several",
			[]string{"CAP_CHOWN", "CAP_NET_BIND_SERVICE"},
			[]capability.Cap{capability.CAP_CHOWN, capability.CAP_NET_BIND_SERVICE},
			true,
		},
		{"too short", []string{"CAP"}, nil, false},
		{"unknown", []string{"CAP_DOES_NOT_EXIST"}, nil, false},
		{"missing prefix", []string{"KILL"}, nil, false},
		{"lowercase", []string{"cap_kill"}, nil, false},
	}
	for _, tt := range tests {
		got, err := Parse(tt.names)
		if tt.ok && err != nil {
			t.Errorf("%s: Parse error: %v", tt.name, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%s: Parse expected error", tt.name)
		}
		if err != nil {
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("%s: Parse returned %d caps, want %d", tt.name, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: Parse[%d] = %v, want %v", tt.name, i, got[i], tt.want[i])
			}
		}
	}
}
