package container

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/wking/ccon/config"
)

// pretend the current process is the container so the liveness probe
// before hook launch passes
func fakeLiveChild(t *testing.T) {
	t.Helper()
	old := childPid.Load()
	childPid.Store(int64(os.Getpid()))
	t.Cleanup(func() { childPid.Store(old) })
}

func TestRunHook_PidOnStdin(t *testing.T) {
	fakeLiveChild(t)
	out := filepath.Join(t.TempDir(), "pid")
	hook := &config.Process{
		Args: []string{"/bin/sh", "-c", "cat > " + out},
	}
	if err := runHook(hook, 4242); err != nil {
		t.Fatalf("runHook error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "4242\n" {
		t.Errorf("hook stdin = %q, want %q", data, "4242\n")
	}
}

func TestRunHook_NoPidForPostStop(t *testing.T) {
	out := filepath.Join(t.TempDir(), "stdin")
	hook := &config.Process{
		Args: []string{"/bin/sh", "-c", "cat > " + out},
		// post-stop hooks read an immediate EOF, not a PID
	}
	if err := runHook(hook, 0); err != nil {
		t.Fatalf("runHook error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 0 {
		t.Errorf("hook stdin = %q, want empty", data)
	}
}

func TestRunHook_Env(t *testing.T) {
	fakeLiveChild(t)
	out := filepath.Join(t.TempDir(), "env")
	hook := &config.Process{
		Args: []string{"/bin/sh", "-c", "echo $HOOK_MARK > " + out},
		Env:  []string{"PATH=/bin:/usr/bin", "HOOK_MARK=mark"},
	}
	if err := runHook(hook, 1); err != nil {
		t.Fatalf("runHook error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(data)) != "mark" {
		t.Errorf("hook env output = %q, want mark", data)
	}
}

func TestRunHooks_PreStartFailureAborts(t *testing.T) {
	fakeLiveChild(t)
	out := filepath.Join(t.TempDir(), "ran")
	hooks := []*config.Process{
		{Args: []string{"/bin/sh", "-c", "exit 3"}},
		{Args: []string{"/bin/sh", "-c", "touch " + out}},
	}
	if err := runHooks(hooks, "pre-start", os.Getpid()); err == nil {
		t.Fatal("runHooks expected error for failing pre-start hook")
	}
	if _, err := os.Stat(out); err == nil {
		t.Error("second pre-start hook ran after failure")
	}
}

func TestRunHooks_PostStopFailureIgnored(t *testing.T) {
	out := filepath.Join(t.TempDir(), "ran")
	hooks := []*config.Process{
		{Args: []string{"/bin/sh", "-c", "exit 3"}},
		{Args: []string{"/bin/sh", "-c", "touch " + out}},
	}
	if err := runHooks(hooks, "post-stop", 0); err != nil {
		t.Errorf("runHooks error: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Error("second post-stop hook did not run after failure")
	}
}

func TestRunHook_DeadChild(t *testing.T) {
	old := childPid.Load()
	childPid.Store(-1)
	defer childPid.Store(old)

	hook := &config.Process{Args: []string{"/bin/true"}}
	if err := runHook(hook, 1); err != errChildDied {
		t.Errorf("runHook error = %v, want %v", err, errChildDied)
	}
}

func TestRunHook_NoArgs(t *testing.T) {
	if err := runHook(&config.Process{}, 0); err == nil {
		t.Error("runHook expected error for hook without args")
	}
}

func TestRunHook_PathOverride(t *testing.T) {
	fakeLiveChild(t)
	out := filepath.Join(t.TempDir(), "argv")
	hook := &config.Process{
		Path: "/bin/sh",
		Args: []string{"ignored-argv0", "-c", "cat > " + out},
	}
	if err := runHook(hook, 7); err != nil {
		t.Fatalf("runHook error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != strconv.Itoa(7)+"\n" {
		t.Errorf("hook stdin = %q", data)
	}
}
