package bridge

import "strings"

const fileScheme = "file://"

// MountMapping pairs a container path prefix with the host path it is
// mounted from. Order matters: the first matching prefix wins.
type MountMapping struct {
	HostPath      string
	ContainerPath string
}

// TranslatedURL is the outcome of translating a container-originated URL
// into one the host can open.
type TranslatedURL struct {
	Scheme       string
	OriginalPath string
	ResolvedPath string
	Translated   bool
}

// URL returns the dispatchable form of the translation result.
func (t TranslatedURL) URL() string {
	if t.Scheme == "file" {
		return fileScheme + t.ResolvedPath
	}
	return t.ResolvedPath
}

// NeedsMapping reports whether the input referenced a container filesystem
// path that no mount covered. Callers log such URLs before forwarding them
// unchanged.
func (t TranslatedURL) NeedsMapping() bool {
	return t.Scheme == "file" && !t.Translated
}

// Translate rewrites file:// URLs from container paths to host paths using
// the session's mount table. Non-file URLs pass through untouched. The
// function is pure: it inspects strings only and never touches the
// filesystem.
func Translate(rawURL string, mappings []MountMapping) TranslatedURL {
	if !strings.HasPrefix(rawURL, fileScheme) {
		return TranslatedURL{
			Scheme:       schemeOf(rawURL),
			OriginalPath: rawURL,
			ResolvedPath: rawURL,
		}
	}

	path := rawURL[len(fileScheme):]
	for _, m := range mappings {
		if strings.HasPrefix(path, m.ContainerPath) {
			return TranslatedURL{
				Scheme:       "file",
				OriginalPath: path,
				ResolvedPath: m.HostPath + path[len(m.ContainerPath):],
				Translated:   true,
			}
		}
	}

	return TranslatedURL{
		Scheme:       "file",
		OriginalPath: path,
		ResolvedPath: path,
	}
}

func schemeOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i > 0 {
		return strings.ToLower(rawURL[:i])
	}
	return ""
}
