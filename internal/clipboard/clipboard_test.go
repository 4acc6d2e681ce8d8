package clipboard

import (
	"errors"
	"runtime"
	"testing"
)

func TestIsAvailable(t *testing.T) {
	// Availability depends on the system; only check it doesn't panic.
	_ = IsAvailable()
}

func TestTools_HavePasteCommand(t *testing.T) {
	for _, tl := range tools() {
		if tl.name == "" || tl.pasteName == "" {
			t.Errorf("tool %+v lacks a copy or paste program", tl)
		}
	}
}

func TestCopyPaste_RoundTrip(t *testing.T) {
	if !IsAvailable() {
		t.Skip("clipboard not available on this system")
	}

	want := "extracted passage"
	if err := Copy(want); err != nil {
		t.Skipf("Copy failed (no display?): %v", err)
	}
	got, err := Paste()
	if err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if got != want {
		t.Errorf("Paste() = %q, want %q", got, want)
	}
}

func TestUnavailable(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "linux" {
		t.Skip("platform has clipboard helpers")
	}
	if err := Copy("x"); !errors.Is(err, ErrClipboardUnavailable) {
		t.Errorf("Copy() error = %v, want ErrClipboardUnavailable", err)
	}
}
