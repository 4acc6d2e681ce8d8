// Package clipboard provides clipboard access via shell commands.
package clipboard

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when clipboard access is not available.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is one clipboard helper program.
type tool struct {
	name      string
	copyArgs  []string
	pasteName string
	pasteArgs []string
}

// tools returns the helpers to try on this platform, in preference order.
func tools() []tool {
	switch runtime.GOOS {
	case "darwin":
		return []tool{{name: "pbcopy", pasteName: "pbpaste"}}
	case "linux":
		var ts []tool
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			ts = append(ts, tool{name: "wl-copy", pasteName: "wl-paste", pasteArgs: []string{"--no-newline"}})
		}
		return append(ts,
			tool{name: "xclip", copyArgs: []string{"-selection", "clipboard"},
				pasteName: "xclip", pasteArgs: []string{"-selection", "clipboard", "-o"}},
			tool{name: "xsel", copyArgs: []string{"--clipboard", "--input"},
				pasteName: "xsel", pasteArgs: []string{"--clipboard", "--output"}},
		)
	default:
		return nil
	}
}

func find() (tool, bool) {
	for _, t := range tools() {
		if _, err := exec.LookPath(t.name); err == nil {
			return t, true
		}
	}
	return tool{}, false
}

// IsAvailable checks if clipboard functionality is available on this system.
func IsAvailable() bool {
	_, ok := find()
	return ok
}

// Copy copies the given text to the system clipboard.
// Returns ErrClipboardUnavailable if clipboard access is not available.
func Copy(text string) error {
	t, ok := find()
	if !ok {
		return ErrClipboardUnavailable
	}

	cmd := exec.Command(t.name, t.copyArgs...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}
	return nil
}

// Paste returns the clipboard's text.
// Returns ErrClipboardUnavailable if clipboard access is not available.
func Paste() (string, error) {
	t, ok := find()
	if !ok {
		return "", ErrClipboardUnavailable
	}

	out, err := exec.Command(t.pasteName, t.pasteArgs...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", t.pasteName, err)
	}
	return string(out), nil
}
