package container

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"

	"github.com/wking/ccon/config"
)

// runHooks executes the hook processes of one lifecycle phase in
// order. With a non-zero cpid (pre-start) the container PID is piped
// to each hook's stdin and the first failure aborts the phase. With
// cpid zero (post-stop) failures are logged and the remaining hooks
// still run.
func runHooks(hooks []*config.Process, name string, cpid int) error {
	for i, hook := range hooks {
		logrus.Debugf("run %s hook %d", name, i)
		err := runHook(hook, cpid)
		if err == nil {
			continue
		}
		if cpid != 0 {
			return fmt.Errorf("container: %s hook %d: %w", name, i, err)
		}
		logrus.Debugf("%s hook %d: %v", name, i, err)
	}
	return nil
}

func runHook(hook *config.Process, cpid int) error {
	if hook == nil || len(hook.Args) == 0 {
		return errors.New("hook has no args")
	}

	path := hook.Path
	if path == "" {
		path = hook.Args[0]
	}
	cmd := exec.Command(path)
	cmd.Args = hook.Args
	if hook.Env != nil {
		cmd.Env = hook.Env
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if cpid != 0 {
		if !childAlive() {
			return errChildDied
		}
		r, w, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("pipe: %w", err)
		}
		// well under PIPE_BUF, so this cannot block
		if _, err := fmt.Fprintf(w, "%d\n", cpid); err != nil {
			r.Close()
			w.Close()
			return fmt.Errorf("write container PID: %w", err)
		}
		if err := w.Close(); err != nil {
			r.Close()
			return fmt.Errorf("close host-to-hook pipe write-end: %w", err)
		}
		cmd.Stdin = r
		defer r.Close()
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	hookPid.Store(int64(cmd.Process.Pid))
	logrus.Debugf("launched hook with PID %d", cmd.Process.Pid)

	err := cmd.Wait()
	hookPid.Store(-1)
	return err
}
