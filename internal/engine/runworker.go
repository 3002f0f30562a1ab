package engine

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"vantage/internal/tools"
	"vantage/pkg/types"
)

// maxBodyBytes clips tool output before it is framed back to the parent.
const maxBodyBytes = 4 << 20

// RunWorker is the child-process entry point: read job frames from
// stdin, execute each one, write result frames to stdout, exit on EOF.
func RunWorker(root, theme string) error {
	reg := tools.NewRegistry(theme)
	for {
		job, err := ReadJob(os.Stdin)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		res := executeJob(reg, root, job)
		if err := WriteResult(os.Stdout, res); err != nil {
			return err
		}
	}
}

func executeJob(reg *tools.Registry, root string, job types.JobSpec) types.Result {
	res := types.Result{
		ID:        job.ID,
		Path:      job.Path,
		Tool:      job.Tool,
		Key:       job.Key,
		StartedAt: time.Now(),
	}

	if len(job.Argv) == 0 {
		fn, ok := tools.Builtins[job.Tool]
		if !ok {
			res.Status = types.Error
			res.Body = fmt.Sprintf("unknown builtin %q", job.Tool)
		} else {
			res.Status, res.Body = fn(reg, root, job.Path, job.AbsPath)
		}
		res.FinishedAt = time.Now()
		return res
	}

	status, body := runCommand(reg, root, job)
	res.Status = status
	res.Body = body
	res.FinishedAt = time.Now()
	return res
}

// runCommand executes one external tool with the job's timeout. The tool
// runs in its own process group so the timeout kill cannot leave grand-
// children behind. Partial output survives a timeout.
func runCommand(reg *tools.Registry, root string, job types.JobSpec) (types.Status, string) {
	var buf bytes.Buffer
	cmd := exec.Command(job.Argv[0], job.Argv[1:]...)
	cmd.Dir = root
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return types.Error, fmt.Sprintf("starting %s: %v", job.Argv[0], err)
	}
	pgid := cmd.Process.Pid

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = tools.DefaultTimeout
	}

	timedOut := false
	select {
	case <-done:
	case <-time.After(timeout):
		timedOut = true
		_ = unix.Kill(-pgid, unix.SIGTERM)
		select {
		case <-done:
		case <-time.After(killGrace):
			_ = unix.Kill(-pgid, unix.SIGKILL)
			<-done
		}
	}

	body := clip(buf.String())
	if timedOut {
		return types.TimedOut, body
	}

	exitCode := cmd.ProcessState.ExitCode()
	desc, ok := reg.Get(job.Tool)
	if !ok {
		if exitCode == 0 {
			return types.Ok, body
		}
		return types.Problem, body
	}
	return desc.Classify.Classify(exitCode, body), body
}

func clip(s string) string {
	if len(s) <= maxBodyBytes {
		return s
	}
	return s[:maxBodyBytes] + "\n[output clipped]\n"
}
