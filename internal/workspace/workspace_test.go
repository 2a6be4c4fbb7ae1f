package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	root := t.TempDir()

	dir, err := Acquire(root, "0123456789abcdef")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(dir.Path()), "req_"))
	assert.Contains(t, filepath.Base(dir.Path()), "_01234567_")

	require.NoError(t, Prepare(dir.Path()))
	for _, stage := range []string{ScriptsDir, MediaDir, AudioDir, BuildDir} {
		assert.DirExists(t, filepath.Join(dir.Path(), stage))
	}

	require.NoError(t, dir.Release(false))
	assert.NoDirExists(t, dir.Path())
	assert.NoError(t, dir.Release(false), "release is idempotent")
}

func TestReleaseKeep(t *testing.T) {
	dir, err := Acquire(t.TempDir(), "keep")
	require.NoError(t, err)

	require.NoError(t, dir.Release(true))
	assert.DirExists(t, dir.Path())
}

func TestAcquireIsExclusive(t *testing.T) {
	root := t.TempDir()
	a, err := Acquire(root, "same")
	require.NoError(t, err)
	b, err := Acquire(root, "same")
	require.NoError(t, err)
	assert.NotEqual(t, a.Path(), b.Path())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ScriptsDir, "script.py")
	require.NoError(t, WriteFile(path, []byte("a")))
	require.NoError(t, WriteFile(path, []byte("b")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}
