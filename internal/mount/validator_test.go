package mount

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// resolved mirrors the normalization NewValidator applies, so expected
// values stay correct on hosts where /etc or the home dir are symlinks.
func resolved(t *testing.T, path string) string {
	t.Helper()
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return filepath.Clean(path)
}

func TestNewValidatorNormalizesEntries(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home directory: %v", err)
	}

	v, err := NewValidator([]string{"~/.ssh", "", "/etc"})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	want := []string{
		resolved(t, filepath.Join(home, ".ssh")),
		resolved(t, "/etc"),
	}
	if len(v.blocked) != len(want) {
		t.Fatalf("blocked = %v, want %v", v.blocked, want)
	}
	for i := range want {
		if v.blocked[i] != want[i] {
			t.Errorf("blocked[%d] = %q, want %q", i, v.blocked[i], want[i])
		}
	}
}

func TestNewValidatorEmptyList(t *testing.T) {
	v, err := NewValidator(nil)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	if len(v.blocked) != 0 {
		t.Errorf("blocked = %v, want empty", v.blocked)
	}
}

func TestValidate(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("home directory: %v", err)
	}

	v, err := NewValidator([]string{"~/.ssh", "/etc"})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name     string
		hostPath string
		errMatch string
	}{
		{
			name:     "unrelated path allowed",
			hostPath: filepath.Join(home, ".npmrc"),
		},
		{
			name:     "blocked path itself",
			hostPath: filepath.Join(home, ".ssh"),
			errMatch: "protected path",
		},
		{
			name:     "file inside blocked path",
			hostPath: filepath.Join(home, ".ssh", "id_rsa"),
			errMatch: "protected path",
		},
		{
			name:     "file inside blocked system path",
			hostPath: "/etc/hosts",
			errMatch: "protected path",
		},
		{
			name:     "sibling with blocked prefix allowed",
			hostPath: filepath.Join(home, ".sshrc"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&Mount{HostPath: tt.hostPath, ContainerPath: "/mnt/data"})
			if tt.errMatch == "" {
				if err != nil {
					t.Errorf("Validate(%q) = %v, want nil", tt.hostPath, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate(%q) = nil, want error containing %q", tt.hostPath, tt.errMatch)
			}
			if !strings.Contains(err.Error(), tt.errMatch) {
				t.Errorf("Validate(%q) = %v, want error containing %q", tt.hostPath, err, tt.errMatch)
			}
		})
	}
}

func TestValidateNilMount(t *testing.T) {
	v, err := NewValidator(nil)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	err = v.Validate(nil)
	if err == nil || !strings.Contains(err.Error(), "cannot be nil") {
		t.Errorf("Validate(nil) = %v, want nil-mount error", err)
	}
}

func TestValidateCatchesSymlinkIntoBlockedPath(t *testing.T) {
	tmp := t.TempDir()
	secrets := filepath.Join(tmp, "secrets")
	if err := os.MkdirAll(secrets, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(tmp, "innocent")
	if err := os.Symlink(secrets, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	v, err := NewValidator([]string{secrets})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	err = v.Validate(&Mount{HostPath: link, ContainerPath: "/mnt/data"})
	if err == nil || !strings.Contains(err.Error(), "resolves to protected path") {
		t.Errorf("symlinked mount = %v, want resolves-to-protected error", err)
	}

	if err := v.Validate(&Mount{HostPath: secrets, ContainerPath: "/mnt/data"}); err == nil {
		t.Error("direct mount of blocked dir must be rejected")
	}

	// The parent of a blocked dir is not itself blocked.
	if err := v.Validate(&Mount{HostPath: tmp, ContainerPath: "/mnt/data"}); err != nil {
		t.Errorf("parent dir = %v, want nil", err)
	}
}

func TestUnderOrEqual(t *testing.T) {
	tests := []struct {
		path string
		base string
		want bool
	}{
		{"/home/u/.ssh", "/home/u/.ssh", true},
		{"/home/u/.ssh/id_rsa", "/home/u/.ssh", true},
		{"/home/u/.ssh/config.d/personal", "/home/u/.ssh", true},
		{"/home/u/.sshrc", "/home/u/.ssh", false},
		{"/home/u", "/home/u/.ssh", false},
		{"/var/log", "/home/u/.ssh", false},
	}

	for _, tt := range tests {
		if got := underOrEqual(tt.path, tt.base); got != tt.want {
			t.Errorf("underOrEqual(%q, %q) = %v, want %v", tt.path, tt.base, got, tt.want)
		}
	}
}
