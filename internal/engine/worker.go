package engine

import (
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"vantage/internal/errors"
	"vantage/internal/log"
	"vantage/pkg/types"
)

// killGrace is how long a worker gets between SIGTERM and SIGKILL.
const killGrace = 2 * time.Second

// worker is the parent-side handle of one child process. A worker runs
// one job at a time; the child re-executes this binary with the hidden
// worker subcommand and speaks the framed protocol on its pipes.
type worker struct {
	id     int
	root   string
	theme  string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func spawnWorker(id int, root, theme string) (*worker, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, errors.NewWorkerError("locating executable", errors.WorkerCrash, err)
	}
	cmd := exec.Command(self, "worker", "--root", root, "--theme", theme)
	cmd.Dir = root
	cmd.Stderr = os.Stderr
	// Each worker leads its own process group so a kill reaches the tool
	// it is running, not just the worker itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.NewWorkerError("starting worker", errors.WorkerCrash, err)
	}
	log.Debug("worker %d started (pid %d)", id, cmd.Process.Pid)
	return &worker{id: id, root: root, theme: theme, cmd: cmd, stdin: stdin, stdout: stdout}, nil
}

// run sends one job and waits for its result. The worker enforces the
// job's own timeout internally; the deadline here is a hard backstop for
// a worker that stopped responding, after which the worker is killed and
// the error reported as a crash.
func (w *worker) run(job types.JobSpec) (types.Result, error) {
	if err := WriteJob(w.stdin, job); err != nil {
		return types.Result{}, errors.NewWorkerError("sending job", errors.WorkerCrash, err)
	}

	type outcome struct {
		res types.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := ReadResult(w.stdout)
		done <- outcome{res, err}
	}()

	deadline := job.Timeout + killGrace + 5*time.Second
	select {
	case out := <-done:
		if out.err != nil {
			return types.Result{}, errors.NewWorkerError("reading result", errors.WorkerCrash, out.err)
		}
		return out.res, nil
	case <-time.After(deadline):
		w.kill()
		return types.Result{}, errors.NewWorkerError("worker unresponsive", errors.WorkerCrash, nil)
	}
}

// kill terminates the worker's process group: SIGTERM first, SIGKILL
// after the grace period if it lingers.
func (w *worker) kill() {
	if w.cmd.Process == nil {
		return
	}
	pgid := w.cmd.Process.Pid
	_ = unix.Kill(-pgid, unix.SIGTERM)

	exited := make(chan struct{})
	go func() {
		w.cmd.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(killGrace):
		_ = unix.Kill(-pgid, unix.SIGKILL)
		<-exited
	}
	w.stdin.Close()
	w.stdout.Close()
}

// shutdown ends an idle worker by closing its stdin; the child exits on
// EOF. Used for clean teardown.
func (w *worker) shutdown() {
	w.stdin.Close()
	if w.cmd.Process != nil {
		exited := make(chan struct{})
		go func() {
			w.cmd.Wait()
			close(exited)
		}()
		select {
		case <-exited:
		case <-time.After(killGrace):
			_ = unix.Kill(-w.cmd.Process.Pid, unix.SIGKILL)
		}
	}
}
