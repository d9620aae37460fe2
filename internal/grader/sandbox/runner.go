// Package sandbox executes one program against one input under a
// wall-clock deadline. It knows nothing about test cases or scoring;
// classification of results belongs to the caller.
package sandbox

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	appErr "codearena/pkg/errors"
)

const defaultMaxOutputBytes int64 = 64 * 1024

// RunRequest describes one process invocation.
type RunRequest struct {
	Cmd       []string
	Env       []string
	WorkDir   string
	Stdin     string
	TimeLimit time.Duration
}

// RunResult is the captured outcome of one process invocation.
// A non-zero exit code is a result, not an error: deciding whether
// "ran and failed" matters is the caller's classification decision.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	TimeMs   int64
}

// Runner executes a single prepared command.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (RunResult, error)
}

// ProcessRunner implements Runner with local OS processes.
// It places no limit on concurrent invocations; callers bound
// concurrency themselves.
type ProcessRunner struct {
	maxOutputBytes int64
}

// NewProcessRunner creates a process runner.
func NewProcessRunner(maxOutputBytes int64) *ProcessRunner {
	if maxOutputBytes <= 0 {
		maxOutputBytes = defaultMaxOutputBytes
	}
	return &ProcessRunner{maxOutputBytes: maxOutputBytes}
}

// Run executes the command, feeding Stdin and capturing stdout/stderr.
// When the deadline elapses the whole process group is killed so no
// descendant survives outside the timeout window.
func (r *ProcessRunner) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if len(req.Cmd) == 0 {
		return RunResult{}, appErr.ValidationError("cmd", "required")
	}
	if req.WorkDir == "" {
		return RunResult{}, appErr.ValidationError("work_dir", "required")
	}

	cmd := exec.Command(req.Cmd[0], req.Cmd[1:]...)
	cmd.Dir = req.WorkDir
	cmd.Stdin = strings.NewReader(req.Stdin)
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	// New process group so the deadline kill reaches descendants too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout := newCappedBuffer(r.maxOutputBytes)
	stderr := newCappedBuffer(r.maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return RunResult{}, appErr.Wrapf(err, appErr.EvalSystemError, "spawn process failed")
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		var deadline <-chan time.Time
		if req.TimeLimit > 0 {
			timer := time.NewTimer(req.TimeLimit)
			defer timer.Stop()
			deadline = timer.C
		}
		select {
		case <-deadline:
			timedOut.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-ctx.Done():
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res := RunResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCodeFromErr(waitErr, cmd.ProcessState),
		TimedOut: timedOut.Load(),
		TimeMs:   time.Since(start).Milliseconds(),
	}
	if ctx.Err() != nil && !res.TimedOut {
		return res, appErr.Wrap(ctx.Err(), appErr.Timeout)
	}
	return res, nil
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// cappedBuffer keeps at most max bytes and silently drops the rest.
type cappedBuffer struct {
	max int64
	buf []byte
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - int64(len(b.buf))
	if remaining > 0 {
		if int64(len(p)) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return string(b.buf)
}
