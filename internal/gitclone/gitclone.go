// Package gitclone makes shallow, blob-less checkouts of trending repos.
package gitclone

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joelkehle/trend-digest/internal/procexec"
)

const DefaultTimeout = 180 * time.Second

var ErrCloneFailed = errors.New("clone failed")

type Cloner struct {
	Git     string
	Timeout time.Duration
}

func New(timeout time.Duration) *Cloner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cloner{Git: "git", Timeout: timeout}
}

// DirName maps "owner/name" to a single path segment.
func DirName(repo string) string {
	return strings.ReplaceAll(repo, "/", "__")
}

// Args is the git command line for a shallow single-branch clone.
func Args(url, dest string) []string {
	return []string{"clone", "--depth", "1", "--filter=blob:none", "--single-branch", url, dest}
}

// Clone checks url out into <root>/<DirName(repo)>. A non-zero exit, a
// timeout or a missing destination all wrap ErrCloneFailed.
func (c *Cloner) Clone(ctx context.Context, root, repo, url string) (string, error) {
	dest := filepath.Join(root, DirName(repo))
	git := c.Git
	if git == "" {
		git = "git"
	}
	res := procexec.Run(ctx, procexec.Command{
		Name:    git,
		Args:    Args(url, dest),
		Timeout: c.Timeout,
		Env:     []string{"GIT_TERMINAL_PROMPT=0"},
	})
	if !res.OK() {
		return "", fmt.Errorf("%w: %s (rc=%d): %s", ErrCloneFailed, repo, res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s: destination %s missing", ErrCloneFailed, repo, dest)
	}
	return dest, nil
}
