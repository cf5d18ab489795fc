package procexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, ok := Which("sh"); !ok {
		t.Skip("sh not available")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	requireShell(t)
	res := Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err >&2; exit 3"},
	})
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, "out\n\nerr\n", res.Combined())
	assert.False(t, res.OK())
}

func TestRunUsesDirAndEnv(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), []byte("x"), 0o644))

	res := Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", `ls; printf '%s' "$PROC_TEST_VALUE"`},
		Dir:  dir,
		Env:  []string{"PROC_TEST_VALUE=hello"},
	})
	require.True(t, res.OK(), res.Stderr)
	assert.Contains(t, res.Stdout, "marker")
	assert.Contains(t, res.Stdout, "hello")
}

func TestRunTimeout(t *testing.T) {
	requireShell(t)
	start := time.Now()
	res := Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	assert.True(t, res.TimedOut)
	assert.Equal(t, ExitTimeout, res.ExitCode)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunStartFailure(t *testing.T) {
	res := Run(context.Background(), Command{Name: filepath.Join(t.TempDir(), "no-such-binary")})
	assert.Equal(t, ExitNoStart, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Contains(t, res.Stderr, "failed to start")
}

func TestRunParentCancellation(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Run(ctx, Command{Name: "sh", Args: []string{"-c", "sleep 5"}})
	assert.False(t, res.OK())
	assert.False(t, res.TimedOut)
}
