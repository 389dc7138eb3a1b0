package project

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDockerfileTemplateContent(t *testing.T) {
	for _, want := range []string{
		"FROM ubuntu:25.04",
		"gcc g++",
		"clang",
		"python3",
		"vim neovim",
		"zsh",
		"rustup",
		"nodejs",
		"oh-my-zsh",
		"@anthropic-ai/claude-code",
		"openssh-server",
		"/tmp/host-ssh",
		"WORKDIR /workspace",
		"EXPOSE 22",
	} {
		assert.Contains(t, dockerfileTemplate, want)
	}
}

func TestRenderDockerfileWithoutExtrasIsVerbatim(t *testing.T) {
	assert.Equal(t, dockerfileTemplate, renderDockerfile(nil))
	assert.Equal(t, dockerfileTemplate, renderDockerfile([]string{}))
}

func TestRenderDockerfileInjectsSortedExtras(t *testing.T) {
	content := renderDockerfile([]string{"jq", "htop"})

	assert.Contains(t, content, "\n    htop \\\n")
	assert.Contains(t, content, "\n    jq \\\n")
	assert.Less(t, strings.Index(content, "    htop \\"), strings.Index(content, "    jq \\"))

	// Injected lines extend the first install block, before its package list.
	installIdx := strings.Index(content, "apt-get install -y")
	assert.Less(t, installIdx, strings.Index(content, "    htop \\"))
	assert.Less(t, strings.Index(content, "    jq \\"), strings.Index(content, "build-essential"))
}

func TestRenderDockerfileSkipsTemplatePackages(t *testing.T) {
	assert.Equal(t, dockerfileTemplate, renderDockerfile([]string{"gcc", "zsh", "nodejs"}))

	content := renderDockerfile([]string{"gcc", "jq"})
	assert.Contains(t, content, "    jq \\")
	assert.NotContains(t, content, "    gcc \\", "gcc stays a template-only package")
}

func TestRenderDockerfileDeduplicatesExtras(t *testing.T) {
	content := renderDockerfile([]string{"jq", "jq", " jq "})
	assert.Equal(t, 1, strings.Count(content, "    jq \\"))
}

func TestPackagesIn(t *testing.T) {
	packages := packagesIn(dockerfileTemplate)

	for _, want := range []string{"gcc", "g++", "clang", "python3", "zsh", "nodejs", "openssh-server"} {
		assert.True(t, packages[want], "template should install %s", want)
	}
	for _, notPkg := range []string{"-y", "&&", `\`, "rm", "apt-get", "install"} {
		assert.False(t, packages[notPkg], "%q is not a package", notPkg)
	}
}

func TestWriteDockerfile(t *testing.T) {
	p := newTestProject(t)
	require.NoError(t, p.Create())

	require.NoError(t, p.WriteDockerfile([]string{"htop"}))
	data, err := os.ReadFile(p.DockerfilePath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "    htop \\")
	assert.Contains(t, string(data), "FROM ubuntu:25.04")
}

func TestDefaultClaudeMDContent(t *testing.T) {
	assert.Contains(t, DefaultClaudeMD, "## Modifying Software Projects")
	assert.Contains(t, DefaultClaudeMD, "## Secure Coding")
	assert.Contains(t, DefaultClaudeMD, "cargo clippy")
	assert.NotContains(t, DefaultClaudeMD, "\t")
}
