package container

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/wking/ccon/config"
)

// Process-wide PID cells. childPid is read by the signal forwarder
// and the liveness probe; hookPid records the running hook. A value
// greater than zero is a live child; -1 means reaped, 0 that none was
// started.
var (
	childPid atomic.Int64
	hookPid  atomic.Int64
)

// Run launches the container process described by cfg, drives it
// through the setup handshake and hooks, and returns its exit status.
// Any failure before the final wait kills the container.
func Run(cfg *config.Config) (int, error) {
	flags, err := cfg.Namespaces.CloneFlags()
	if err != nil {
		return 1, err
	}

	toChildR, toChildW, err := os.Pipe()
	if err != nil {
		return 1, fmt.Errorf("container: pipe: %w", err)
	}
	fromChildR, fromChildW, err := os.Pipe()
	if err != nil {
		closeAll(toChildR, toChildW)
		return 1, fmt.Errorf("container: pipe: %w", err)
	}
	bootR, bootW, err := os.Pipe()
	if err != nil {
		closeAll(toChildR, toChildW, fromChildR, fromChildW)
		return 1, fmt.Errorf("container: pipe: %w", err)
	}

	cmd := &exec.Cmd{
		Path:       "/proc/self/exe",
		Args:       []string{os.Args[0], initArg},
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		ExtraFiles: []*os.File{toChildR, fromChildW, bootR},
		SysProcAttr: &syscall.SysProcAttr{
			Cloneflags: flags,
		},
	}
	if err := cmd.Start(); err != nil {
		closeAll(toChildR, toChildW, fromChildR, fromChildW, bootR, bootW)
		return 1, fmt.Errorf("container: clone: %w", err)
	}
	cpid := cmd.Process.Pid
	childPid.Store(int64(cpid))
	logrus.Debugf("launched container process with PID %d", cpid)

	stop := forwardSignals()
	defer stop()

	// the child owns these ends now
	closeAll(toChildR, fromChildW, bootR)

	status, err := handleParent(cfg, cmd, cpid, toChildW, fromChildR, bootW)
	closeAll(toChildW, fromChildR, bootW)
	if err != nil {
		killAndReap(cmd)
		return 1, err
	}
	return status, nil
}

// handleParent is the host half of the lifecycle, entered with the
// container cloned and blocked on the bootstrap read.
func handleParent(cfg *config.Config, cmd *exec.Cmd, cpid int, toChild, fromChild, boot *os.File) (int, error) {
	if err := json.NewEncoder(boot).Encode(&bootstrap{
		Verbose: logrus.IsLevelEnabled(logrus.DebugLevel),
		Config:  cfg,
	}); err != nil {
		return 0, fmt.Errorf("container: send bootstrap: %w", err)
	}
	if err := boot.Close(); err != nil {
		return 0, fmt.Errorf("container: close bootstrap pipe: %w", err)
	}

	if user := cfg.Namespaces.Get("user"); user != nil && user.Create() {
		if err := writeUserNamespaceMappings(user, cpid); err != nil {
			return 0, err
		}
	}

	if err := sendMsg(toChild, msgMappingComplete); err != nil {
		return 0, err
	}

	if err := expectMsg(fromChild, msgSetupComplete); err != nil {
		return 0, err
	}
	if err := fromChild.Close(); err != nil {
		return 0, fmt.Errorf("container: close container-to-host pipe read-end: %w", err)
	}

	var hooks *config.Hooks
	if cfg.Hooks != nil {
		hooks = cfg.Hooks
	} else {
		hooks = &config.Hooks{}
	}

	hookErr := runHooks(hooks.PreStart, "pre-start", cpid)
	if hookErr != nil {
		if pid := childPid.Load(); pid > 0 {
			logrus.Debug("SIGKILL the container process")
			if err := unix.Kill(int(pid), unix.SIGKILL); err != nil {
				logrus.Debugf("kill: %v", err)
			}
		}
	} else {
		if err := sendMsg(toChild, msgExecProcess); err != nil {
			return 0, err
		}
	}
	if err := toChild.Close(); err != nil {
		return 0, fmt.Errorf("container: close host-to-container pipe write-end: %w", err)
	}

	status := waitContainer(cmd)

	// best effort; failures must not alter the container's status
	if err := runHooks(hooks.PostStop, "post-stop", 0); err != nil {
		logrus.Debugf("post-stop hooks: %v", err)
	}

	if hookErr != nil {
		return 1, hookErr
	}
	return status, nil
}

// waitContainer reaps the container process and converts its wait
// status to an exit code. A signaled death counts as failure.
func waitContainer(cmd *exec.Cmd) int {
	err := cmd.Wait()
	childPid.Store(-1)
	if err == nil {
		logrus.Debugf("container process %d exited with 0", cmd.Process.Pid)
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				logrus.Debugf("container killed (%v)", ws.Signal())
				return 1
			}
			logrus.Debugf("container process %d exited with %d", cmd.Process.Pid, ws.ExitStatus())
			return ws.ExitStatus()
		}
	}
	logrus.Debugf("wait container: %v", err)
	return 1
}

// killAndReap makes sure a failed run leaves no zombie behind.
func killAndReap(cmd *exec.Cmd) {
	if pid := childPid.Load(); pid > 0 {
		if err := unix.Kill(int(pid), unix.SIGKILL); err != nil {
			logrus.Debugf("kill: %v", err)
		}
	}
	_ = cmd.Wait()
	childPid.Store(-1)
}

// forwardSignals turns SIGHUP, SIGINT and SIGTERM into a SIGKILL of
// the current container process. The returned function uninstalls the
// forwarder.
func forwardSignals() func() {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, unix.SIGHUP, unix.SIGINT, unix.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ch:
				if pid := childPid.Load(); pid > 0 {
					if err := unix.Kill(int(pid), unix.SIGKILL); err != nil {
						logrus.Debugf("kill: %v", err)
					}
				}
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// childAlive reports whether the container process still exists.
func childAlive() bool {
	pid := childPid.Load()
	if pid <= 0 {
		return false
	}
	return unix.Kill(int(pid), 0) == nil
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
