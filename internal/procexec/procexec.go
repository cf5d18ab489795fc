// Package procexec runs external commands with a deadline and captured
// output. Exit codes follow shell conventions: 124 for a timeout and -1
// when the process could not be started.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	ExitTimeout = 124
	ExitNoStart = -1

	DefaultTimeout = 120 * time.Second
	waitDelay      = 2 * time.Second
)

type Command struct {
	Name    string
	Args    []string
	Dir     string
	Env     []string // appended to the parent environment
	Timeout time.Duration
}

type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Combined returns stdout and stderr joined by a newline.
func (r Result) Combined() string {
	return r.Stdout + "\n" + r.Stderr
}

func (r Result) OK() bool { return r.ExitCode == 0 && !r.TimedOut }

// Run executes c and waits for it. Cancellation of ctx kills the process;
// an expired Timeout is reported as ExitTimeout.
func Run(ctx context.Context, c Command) Result {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if strings.TrimSpace(c.Dir) != "" {
		cmd.Dir = c.Dir
	}
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	// Children that inherit the pipes must not keep Wait blocked forever.
	cmd.WaitDelay = waitDelay

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Start(); err != nil {
		return Result{
			ExitCode: ExitNoStart,
			Stderr:   "failed to start " + c.Name + ": " + err.Error(),
		}
	}
	waitErr := cmd.Wait()

	res := Result{Stdout: outBuf.String(), Stderr: errBuf.String()}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ExitCode = ExitTimeout
	case waitErr != nil:
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) && ee.ExitCode() >= 0 {
			res.ExitCode = ee.ExitCode()
		} else {
			res.ExitCode = 1
		}
	default:
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	return res
}

// Which resolves name on PATH.
func Which(name string) (string, bool) {
	p, err := exec.LookPath(name)
	if err != nil || strings.TrimSpace(p) == "" {
		return "", false
	}
	return p, true
}
