package project

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// dockerfileTemplate is the image definition setup generates. Extra
// Ubuntu packages are injected into the first apt-get install block.
const dockerfileTemplate = `FROM ubuntu:25.04

ENV DEBIAN_FRONTEND=noninteractive

RUN apt-get update && apt-get install -y \
    build-essential gcc g++ clang \
    python3 python3-pip python3-venv \
    vim neovim zsh \
    curl wget git ripgrep \
    ca-certificates openssh-server \
    && rm -rf /var/lib/apt/lists/*

RUN curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y
ENV PATH="/root/.cargo/bin:${PATH}"

RUN curl -fsSL https://deb.nodesource.com/setup_22.x | bash - \
    && apt-get install -y nodejs \
    && rm -rf /var/lib/apt/lists/* \
    && npm install -g @anthropic-ai/claude-code

# Install oh-my-zsh and make zsh the root shell
RUN sh -c "$(curl -fsSL https://raw.githubusercontent.com/ohmyzsh/ohmyzsh/master/tools/install.sh)" "" --unattended \
    && chsh -s /usr/bin/zsh root

RUN mkdir -p /var/run/sshd \
    && sed -i 's/#\?PermitRootLogin .*/PermitRootLogin prohibit-password/' /etc/ssh/sshd_config \
    && sed -i 's/#\?PasswordAuthentication .*/PasswordAuthentication no/' /etc/ssh/sshd_config

RUN printf '%s\n' \
    '#!/bin/sh' \
    'mkdir -p /root/.ssh && chmod 700 /root/.ssh' \
    'if [ -d /tmp/host-ssh ]; then cat /tmp/host-ssh/*.pub > /root/.ssh/authorized_keys 2>/dev/null; chmod 600 /root/.ssh/authorized_keys 2>/dev/null; fi' \
    '/usr/sbin/sshd' \
    'exec "$@"' \
    > /usr/local/bin/cj-entrypoint \
    && chmod +x /usr/local/bin/cj-entrypoint

WORKDIR /workspace

EXPOSE 22

ENTRYPOINT ["/usr/local/bin/cj-entrypoint"]
CMD ["/bin/bash"]
`

// WriteDockerfile renders the Dockerfile with the given extra packages
// and writes it to the .cj directory. Regenerating overwrites any manual
// edits.
func (p *Project) WriteDockerfile(extraPackages []string) error {
	content := renderDockerfile(extraPackages)
	if err := os.WriteFile(p.DockerfilePath(), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write Dockerfile: %w", err)
	}
	return nil
}

// renderDockerfile injects extra packages into the template's first
// apt-get install block. Packages the template already installs are
// skipped; with nothing left to add the template is returned verbatim.
func renderDockerfile(extra []string) string {
	existing := packagesIn(dockerfileTemplate)

	var missing []string
	seen := make(map[string]bool)
	for _, pkg := range extra {
		pkg = strings.TrimSpace(pkg)
		if pkg == "" || existing[pkg] || seen[pkg] {
			continue
		}
		seen[pkg] = true
		missing = append(missing, pkg)
	}
	if len(missing) == 0 {
		return dockerfileTemplate
	}
	sort.Strings(missing)

	lines := strings.Split(dockerfileTemplate, "\n")
	out := make([]string, 0, len(lines)+len(missing))
	injected := false
	for _, line := range lines {
		out = append(out, line)
		if !injected && strings.Contains(line, "apt-get install -y") {
			for _, pkg := range missing {
				out = append(out, "    "+pkg+" \\")
			}
			injected = true
		}
	}
	return strings.Join(out, "\n")
}

// packagesIn collects the package names named by apt-get install blocks.
func packagesIn(dockerfile string) map[string]bool {
	packages := make(map[string]bool)
	inInstall := false
	for _, line := range strings.Split(dockerfile, "\n") {
		trimmed := strings.TrimSpace(line)

		if !inInstall {
			idx := strings.Index(trimmed, "apt-get install -y")
			if idx < 0 {
				continue
			}
			collectPackages(trimmed[idx+len("apt-get install -y"):], packages)
			inInstall = strings.HasSuffix(trimmed, `\`)
			continue
		}

		if strings.HasPrefix(trimmed, "&&") || strings.HasPrefix(trimmed, "#") {
			inInstall = false
			continue
		}
		collectPackages(trimmed, packages)
		if !strings.HasSuffix(trimmed, `\`) {
			inInstall = false
		}
	}
	return packages
}

func collectPackages(s string, packages map[string]bool) {
	for _, field := range strings.Fields(s) {
		if field == `\` || field == "&&" || strings.HasPrefix(field, "-") {
			continue
		}
		packages[field] = true
	}
}
