package bridge

import "os/exec"

// OpenFunc hands a URL to the host's opener.
type OpenFunc func(url string) error

// OpenOnHost opens a URL with the macOS open command. It is the default
// OpenFunc for listeners and sessions.
func OpenOnHost(url string) error {
	return exec.Command("open", url).Run()
}
