package process

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell fixtures require a POSIX shell")
	}
}

func TestRunner_Run(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner()
	runner.Register("shell", "sh", "-c")

	t.Run("Executes Registered Command", func(t *testing.T) {
		res, err := runner.Run(context.Background(), Invocation{Name: "shell", Args: []string{"echo hello"}})
		require.NoError(t, err)
		assert.Equal(t, "hello\n", res.Stdout)
		assert.Equal(t, 0, res.ExitCode)
	})

	t.Run("Fails For Unregistered Command", func(t *testing.T) {
		_, err := runner.Run(context.Background(), Invocation{Name: "hacker_script"})
		assert.ErrorIs(t, err, ErrNotRegistered)
	})

	t.Run("Reports Exit Failures With Stderr", func(t *testing.T) {
		res, err := runner.Run(context.Background(), Invocation{Name: "shell", Args: []string{"echo oops >&2; exit 3"}})
		var execErr *ExecError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, 3, res.ExitCode)
		assert.Contains(t, err.Error(), "Stderr: oops")
	})

	t.Run("Passes Environment And Dir", func(t *testing.T) {
		dir := t.TempDir()
		res, err := runner.Run(context.Background(), Invocation{
			Name: "shell",
			Args: []string{`echo "$REEL_TEST" && pwd`},
			Dir:  dir,
			Env:  map[string]string{"REEL_TEST": "value"},
		})
		require.NoError(t, err)
		assert.Contains(t, res.Stdout, "value")
		assert.Contains(t, res.Stdout, dir)
	})
}

func TestRunner_RegistryFromConfig(t *testing.T) {
	skipOnWindows(t)

	runner := NewRunner(WithRegistry(map[string]ProcessConfig{
		"greet": {Command: "sh", Args: []string{"-c", `echo "hi $WHO"`}, Environment: map[string]string{"WHO": "there"}},
	}))
	assert.True(t, runner.Registered("greet"))

	res, err := runner.Run(context.Background(), Invocation{Name: "greet"})
	require.NoError(t, err)
	assert.Equal(t, "hi there\n", res.Stdout)
}

func TestRunner_CancellationIsBounded(t *testing.T) {
	skipOnWindows(t)
	if testing.Short() {
		t.Skip("skipping slow test in short mode")
	}

	runner := NewRunner(WithGracePeriod(500 * time.Millisecond))
	runner.Register("stubborn", "sh", "-c", `trap "" TERM; sleep 30`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := runner.Run(ctx, Invocation{Name: "stubborn"})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, elapsed, 5*time.Second, "process must be killed after the grace period")
}
