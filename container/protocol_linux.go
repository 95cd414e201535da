package container

import (
	"fmt"
	"os"

	"github.com/wking/ccon/config"
	"github.com/wking/ccon/pkg/pipe"
)

// messages passed between the host and container
const (
	msgMappingComplete = "user-namespace-mapping-complete\n"
	msgSetupComplete   = "container-setup-complete\n"
	msgExecProcess     = "exec-process\n"
)

// initArg marks a re-executed process as the container half.
const initArg = "container_init"

// Pipe ends inherited by the container process, numbered after
// stdin/stdout/stderr in ExtraFiles order.
const (
	initPipeFd      = 3 // host to container messages
	replyPipeFd     = 4 // container to host messages
	bootstrapPipeFd = 5 // bootstrap payload
)

// bootstrap is the one-shot payload shipped to the container process
// right after the clone.
type bootstrap struct {
	Verbose bool           `json:"verbose"`
	Config  *config.Config `json:"config"`
}

// sendMsg writes one protocol message in a single write.
func sendMsg(f *os.File, msg string) error {
	if err := pipe.WriteLine(f, msg); err != nil {
		return fmt.Errorf("protocol: write %q: %w", msg, err)
	}
	return nil
}

// expectMsg consumes exactly one line and fails unless it is the
// expected message. The observed line is reported on mismatch.
func expectMsg(f *os.File, want string) error {
	line, err := pipe.ReadLine(f)
	if err != nil {
		return fmt.Errorf("protocol: read (got %q): %w", line, err)
	}
	if line != want {
		return fmt.Errorf("protocol: unexpected message %q, want %q", line, want)
	}
	return nil
}
