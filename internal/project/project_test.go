package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(t *testing.T) *Project {
	t.Helper()
	p, err := New(t.TempDir())
	require.NoError(t, err)
	return p
}

func TestNewResolvesRelativePaths(t *testing.T) {
	p, err := New(".")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.Root()))
}

func TestPaths(t *testing.T) {
	p := newTestProject(t)
	root := p.Root()

	assert.Equal(t, filepath.Join(root, ".cj"), p.Dir())
	assert.Equal(t, filepath.Join(root, ".cj", "Dockerfile"), p.DockerfilePath())
	assert.Equal(t, filepath.Join(root, ".cj", "claude"), p.ClaudeDir())
	assert.Equal(t, filepath.Join(root, ".cj", "ssh"), p.SSHDir())
	assert.Equal(t, filepath.Join(root, ".cj", "build.log"), p.BuildLogPath())
	assert.Equal(t, filepath.Join(root, ".cj", "update.log"), p.UpdateLogPath())
}

func TestCreateAndExists(t *testing.T) {
	p := newTestProject(t)

	assert.False(t, p.Exists())
	require.NoError(t, p.Create())
	assert.True(t, p.Exists())

	err := p.Create()
	assert.ErrorIs(t, err, ErrConfigExists)
}

func TestRemove(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Create())
	require.NoError(t, p.WriteImageName("cj-happy-turtle"))

	require.NoError(t, p.Remove())
	assert.False(t, p.Exists())

	// Removing an absent directory is fine.
	assert.NoError(t, p.Remove())
}

func TestImageNameRoundTrip(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Create())

	_, err := p.ReadImageName()
	assert.ErrorIs(t, err, ErrImageNameNotFound)

	require.NoError(t, p.WriteImageName("cj-bold-fox"))
	name, err := p.ReadImageName()
	require.NoError(t, err)
	assert.Equal(t, "cj-bold-fox", name)
}

func TestReadImageNameIgnoresWhitespace(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Create())

	path := filepath.Join(p.Dir(), "image-name")
	require.NoError(t, os.WriteFile(path, []byte("  cj-wise-owl \n"), 0644))
	name, err := p.ReadImageName()
	require.NoError(t, err)
	assert.Equal(t, "cj-wise-owl", name)

	require.NoError(t, os.WriteFile(path, []byte("   \n"), 0644))
	_, err = p.ReadImageName()
	assert.ErrorIs(t, err, ErrImageNameNotFound)
}

func TestExtraPackagesRoundTrip(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Create())

	packages, err := p.ReadExtraPackages()
	require.NoError(t, err)
	assert.Empty(t, packages)

	require.NoError(t, p.WriteExtraPackages([]string{"htop", "jq"}))
	packages, err = p.ReadExtraPackages()
	require.NoError(t, err)
	assert.Equal(t, []string{"htop", "jq"}, packages)

	require.NoError(t, p.WriteExtraPackages(nil))
	packages, err = p.ReadExtraPackages()
	require.NoError(t, err)
	assert.Empty(t, packages)
}

func TestEnsureDirsAreIdempotent(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Create())

	require.NoError(t, p.EnsureClaudeDir())
	require.NoError(t, p.EnsureClaudeDir())
	info, err := os.Stat(p.ClaudeDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, p.EnsureSSHDir())
	require.NoError(t, p.EnsureSSHDir())
	info, err = os.Stat(p.SSHDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestHasDockerfile(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Create())

	assert.False(t, p.HasDockerfile())
	require.NoError(t, p.WriteDockerfile(nil))
	assert.True(t, p.HasDockerfile())
}
