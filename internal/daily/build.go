package daily

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/trend-digest/internal/procexec"
)

const (
	defaultBuildTimeout = 10 * time.Minute
	maxBuildOutput      = 2000
)

// CommandBuilder runs the site's build command in its root directory.
type CommandBuilder struct {
	Command []string
	Dir     string
	Timeout time.Duration
}

func (b CommandBuilder) Build(ctx context.Context) error {
	if len(b.Command) == 0 {
		return errors.New("empty build command")
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = defaultBuildTimeout
	}
	res := procexec.Run(ctx, procexec.Command{
		Name:    b.Command[0],
		Args:    b.Command[1:],
		Dir:     b.Dir,
		Timeout: timeout,
	})
	if !res.OK() {
		return fmt.Errorf("%s exited rc=%d: %s", strings.Join(b.Command, " "), res.ExitCode, tail(strings.TrimSpace(res.Combined()), maxBuildOutput))
	}
	return nil
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return "..." + string(r[len(r)-n:])
}
