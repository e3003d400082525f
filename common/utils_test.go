package common

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrapError(t *testing.T) {
	originalErr := ErrFetch
	wrapped := WrapError(originalErr, "additional context")

	if wrapped == nil {
		t.Fatal("WrapError should return non-nil error")
	}

	if !strings.Contains(wrapped.Error(), "additional context") {
		t.Error("WrapError should include additional context")
	}

	if !errors.Is(wrapped, ErrFetch) {
		t.Error("WrapError should keep the original error in the chain")
	}

	if WrapError(nil, "context") != nil {
		t.Error("WrapError(nil) should return nil")
	}
}

func TestKindError(t *testing.T) {
	cause := fs.ErrPermission
	err := KindError(ErrIO, cause, "write %s", "credentials.txt")

	if !errors.Is(err, ErrIO) {
		t.Error("KindError should match its kind")
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("KindError should match its cause")
	}
	if !strings.Contains(err.Error(), "write credentials.txt") {
		t.Errorf("KindError message = %q", err.Error())
	}

	noCause := KindError(ErrIndex, nil, "%d", 999)
	if !errors.Is(noCause, ErrIndex) {
		t.Error("KindError without cause should match its kind")
	}
	if noCause.Error() != "no such definition: 999" {
		t.Errorf("KindError message = %q", noCause.Error())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"usage", KindError(ErrUsage, nil, "--detach requires --connect"), 2},
		{"interrupted", KindError(ErrInterrupted, nil, "connection"), 130},
		{"index", KindError(ErrIndex, nil, "999"), 1},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRemoveIfExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := RemoveIfExists(path); err != nil {
			t.Fatalf("RemoveIfExists() call %d error = %v", i+1, err)
		}
	}

	if FileExists(path) {
		t.Error("file should be removed")
	}
}

func TestRemoveTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tree")
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0700); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := RemoveTree(dir); err != nil {
			t.Fatalf("RemoveTree() call %d error = %v", i+1, err)
		}
	}

	if FileExists(dir) {
		t.Error("directory should be removed")
	}
}

func TestWritePrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WritePrivateFile(path, []byte("new")); err != nil {
		t.Fatalf("WritePrivateFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != PrivateFilePerm {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(PrivateFilePerm))
	}
}

func TestWritePrivateFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "secret")

	err := WritePrivateFile(path, []byte("x"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("WritePrivateFile() error = %v, want ErrIO", err)
	}
}

func TestCurrentUser_PrefersSudoUser(t *testing.T) {
	t.Setenv("SUDO_USER", "alice")
	t.Setenv("USER", "root")

	if got := CurrentUser(); got != "alice" {
		t.Errorf("CurrentUser() = %q, want alice", got)
	}
}

func TestHasSudo(t *testing.T) {
	t.Setenv("SUDO_UID", "1000")
	if !HasSudo() {
		t.Error("HasSudo() = false with SUDO_UID set")
	}

	os.Unsetenv("SUDO_UID")
	if HasSudo() {
		t.Error("HasSudo() = true without SUDO_UID")
	}
}

func TestDefaultStateDir(t *testing.T) {
	dir, err := DefaultStateDir()
	if err != nil {
		t.Fatalf("DefaultStateDir() error = %v", err)
	}

	if filepath.Base(dir) != StateDirName {
		t.Errorf("DefaultStateDir() = %v, should end with %v", dir, StateDirName)
	}
}

func TestFormatIndex(t *testing.T) {
	if got := FormatIndex(7); got != "7  " {
		t.Errorf("FormatIndex(7) = %q", got)
	}
	if got := FormatIndex(1234); got != "1234" {
		t.Errorf("FormatIndex(1234) = %q", got)
	}
}
